package middleware

import (
	"net/http"
	"strconv"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/handlers"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

var (
	authToken    string
	noAuthBypass bool
)

// Init takes the auth settings; until it runs every request is rejected.
func Init(settings config.Settings) {
	authToken = settings.AuthToken
	noAuthBypass = settings.NoAuthBypass
}

var UploadAgreementHandler = Wrap(handlers.UploadAgreementHandler)
var UploadStandardsHandler = Wrap(handlers.UploadStandardsHandler)
var UploadAllHandler = Wrap(handlers.UploadAllHandler)
var GenerateLoaderHandler = Wrap(handlers.GenerateLoaderHandler)
var GenerateLoaderAsyncHandler = Wrap(handlers.GenerateLoaderAsyncHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var DownloadReportHandler = Wrap(handlers.DownloadReportHandler)

func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: 200} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(routePattern(r), strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received", "path", re.req.URL.Path)

	for _, step := range []func(requestResponseStruct) requestResponseStruct{injectTrace, authenticate, rateLimiter} {
		re = step(re)
		if re.badRequest.isBadRequest {
			return re
		}
	}
	return re
}
