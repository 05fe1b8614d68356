package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/adapter"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/adapter/utils"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/api"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/storage"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

const (
	agreementField = "agreement_file"
	standardsField = "standard_files"
	maxJSONBody    = 1 << 20
)

var logRH = logger_i.NewLogger("RequestHandler")

// generateRequest is the validated body plus the trace of the request it came in on.
type generateRequest struct {
	api.GenerateLoaderRequest
	traceId string
}

// HealthHandler godoc
// @Summary      Service health
// @Description  Reports whether the report store answers.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.HealthResponse
// @Failure      503  {object}  api.HealthResponse
// @Router       /health [get]
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	backend, err := ReportStoreHealth(r.Context())
	if err != nil {
		logRH.Warn("Health check failed", "backend", backend, "err", err)
		writeJsonResponse(w, http.StatusServiceUnavailable, api.HealthResponse{Status: "degraded", ReportStore: backend})
		return
	}
	writeJsonResponse(w, http.StatusOK, api.HealthResponse{Status: "ok", ReportStore: backend})
}

// UploadAgreementHandler godoc
// @Summary      Upload the agreement
// @Description  Stores one agreement document (.pdf, .docx, .txt or .xlsx, max 15 MB) and returns its id.
// @Tags         Uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        agreement_file  formData  file  true  "Agreement document"
// @Success      200  {object}  api.UploadAgreementResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing, empty or unsupported file"
// @Failure      413  {object}  api.ErrorResponse  "File too large"
// @Router       /upload/agreement [post]
func UploadAgreementHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	form, ok := parseForm(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	res, status, msg := storeAgreement(r, form)
	if status != http.StatusOK {
		WriteErrorResponse(w, status, "", msg)
		return
	}
	writeJsonResponse(w, http.StatusOK, res)
}

// UploadStandardsHandler godoc
// @Summary      Upload a batch of standards
// @Description  Stores one or more standard documents in upload order and returns the batch id.
// @Tags         Uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        standard_files  formData  file  true  "Standard documents (repeat the field)"
// @Success      200  {object}  api.UploadStandardsResponse
// @Failure      400  {object}  api.ErrorResponse  "Missing, empty or unsupported file"
// @Failure      413  {object}  api.ErrorResponse  "File too large"
// @Router       /upload/standards [post]
func UploadStandardsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	form, ok := parseForm(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	res, status, msg := storeStandards(r, form)
	if status != http.StatusOK {
		WriteErrorResponse(w, status, "", msg)
		return
	}
	writeJsonResponse(w, http.StatusOK, res)
}

// UploadAllHandler godoc
// @Summary      Upload agreement and standards together
// @Tags         Uploads
// @Accept       multipart/form-data
// @Produce      json
// @Param        agreement_file  formData  file  true  "Agreement document"
// @Param        standard_files  formData  file  true  "Standard documents (repeat the field)"
// @Success      200  {object}  api.UploadAllResponse
// @Failure      400  {object}  api.ErrorResponse
// @Failure      413  {object}  api.ErrorResponse
// @Router       /upload/agreement/file [post]
func UploadAllHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	form, ok := parseForm(w, r)
	if !ok {
		return
	}
	defer form.RemoveAll()

	agreement, status, msg := storeAgreement(r, form)
	if status != http.StatusOK {
		WriteErrorResponse(w, status, "", msg)
		return
	}
	standards, status, msg := storeStandards(r, form)
	if status != http.StatusOK {
		WriteErrorResponse(w, status, agreement.AgreementId, msg)
		return
	}
	writeJsonResponse(w, http.StatusOK, api.UploadAllResponse{Agreement: agreement, Standards: standards})
}

// GenerateLoaderHandler godoc
// @Summary      Generate loader files
// @Description  Runs every standard of the batch against the agreement and returns the loader workbook, or a zip when the batch produced several. Use format=json for the report instead.
// @Tags         Generation
// @Accept       json
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/zip,json
// @Param        request  body   api.GenerateLoaderRequest  true  "Agreement and batch ids"
// @Param        format   query  string                     false "json to receive the report"
// @Success      200  {file}    file                "Loader workbook or zip archive"
// @Failure      400  {object}  api.ErrorResponse   "Body does not match the schema"
// @Failure      404  {object}  api.ErrorResponse   "Unknown agreement or batch"
// @Failure      422  {object}  api.ReportResponse  "No standard produced a loader"
// @Failure      500  {object}  api.ErrorResponse
// @Router       /generate-loader [post]
func GenerateLoaderHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	if handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	req, ok := readGenerateRequest(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	log := logger_i.FromContext(ctx, "RequestHandler").With("agreementId", req.AgreementId, "batchId", req.BatchId)

	agreement, batch, err := resolveInputs(ctx, req.AgreementId, req.BatchId)
	if err != nil {
		writeResolveError(w, err)
		return
	}

	report, err := handlerInstance.loader.Generate(ctx, loader.GenerateRequest{
		ReportId:  utils.GetNewUUID(),
		TraceId:   req.traceId,
		Agreement: agreement,
		Batch:     batch,
		Model:     req.Model,
	})
	if err != nil {
		log.Error("Generation could not run", "err", err)
		status := http.StatusInternalServerError
		if errors.Is(err, loader.ErrEmptyBatch) {
			status = http.StatusBadRequest
		}
		WriteErrorResponse(w, status, report.Id, err.Error())
		return
	}
	SaveReport(ctx, report)

	if len(report.Done()) == 0 {
		log.Warn("No loader produced", "jobs", len(report.Jobs))
		writeJsonResponse(w, http.StatusUnprocessableEntity, adapter.ToReportResponse(report))
		return
	}
	if r.URL.Query().Get("format") == "json" {
		writeJsonResponse(w, http.StatusOK, adapter.ToReportResponse(report))
		return
	}
	serveArtifact(w, r, report.DownloadPath())
}

// GenerateLoaderAsyncHandler godoc
// @Summary      Queue loader generation
// @Description  Validates the ids, queues the batch for the worker pool and returns a report id to poll.
// @Tags         Generation
// @Accept       json
// @Produce      json
// @Param        request  body      api.GenerateLoaderRequest  true  "Agreement and batch ids"
// @Success      202      {object}  api.InitJobResponse
// @Failure      400      {object}  api.ErrorResponse
// @Failure      404      {object}  api.ErrorResponse
// @Router       /generate-loader/async [post]
func GenerateLoaderAsyncHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	if handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return
	}
	req, ok := readGenerateRequest(w, r)
	if !ok {
		return
	}
	if _, _, err := resolveInputs(r.Context(), req.AgreementId, req.BatchId); err != nil {
		writeResolveError(w, err)
		return
	}

	id, err := CreateNewJob(r.Context(), req)
	if err != nil {
		logRH.Error("Could not queue generation", "traceId", req.traceId, "err", err)
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Could not queue request")
		return
	}
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(id))
}

// GetStatusHandler godoc
// @Summary      Get report status
// @Description  Retrieves the state of an asynchronous generation and of every job in it.
// @Tags         Generation
// @Produce      json
// @Param        id   path      string  true  "Report ID"
// @Success      200  {object}  api.ReportResponse
// @Failure      404  {object}  api.ErrorResponse  "Report not found"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	logRH.Debug("Get Status Request", "URL path", r.URL.Path)

	report, isFound := GetReport(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Report not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToReportResponse(report))
}

// DownloadReportHandler godoc
// @Summary      Download generated loaders
// @Description  Returns the workbook or zip archive of a completed report.
// @Tags         Generation
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/zip
// @Param        id   path      string  true  "Report ID"
// @Success      200  {file}    file
// @Failure      404  {object}  api.ErrorResponse  "Report or artifact not found"
// @Failure      409  {object}  api.ErrorResponse  "Report still running"
// @Router       /reports/{id}/download [get]
func DownloadReportHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	idString := utils.GetChiURLParam(r, "id")
	report, isFound := GetReport(r.Context(), idString)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Report not found")
		return
	}
	switch report.Status {
	case jobModel.ReportStatusQueued, jobModel.ReportStatusRunning:
		WriteErrorResponse(w, http.StatusConflict, idString, "Report is not finished")
		return
	}
	path := report.DownloadPath()
	if path == "" {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Report has no artifact")
		return
	}
	serveArtifact(w, r, path)
}

func parseForm(w http.ResponseWriter, r *http.Request) (*formHandle, bool) {
	if handlerInstance == nil {
		WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Service not ready")
		return nil, false
	}
	if err := r.ParseMultipartForm(config.MaxFormMemory); err != nil {
		logRH.Warn("Bad multipart request", "traceId", traceIdFrom(r.Context()), "err", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Expected a multipart/form-data body")
		return nil, false
	}
	return &formHandle{r: r}, true
}

type formHandle struct {
	r *http.Request
}

func (f *formHandle) RemoveAll() {
	if f.r.MultipartForm != nil {
		_ = f.r.MultipartForm.RemoveAll()
	}
}

func storeAgreement(r *http.Request, form *formHandle) (api.UploadAgreementResponse, int, string) {
	uploads, closeAll, err := formUploads(form.r.MultipartForm, agreementField)
	defer closeAll()
	if err != nil {
		return api.UploadAgreementResponse{}, uploadErrorStatus(err), err.Error()
	}
	if len(uploads) != 1 {
		return api.UploadAgreementResponse{}, http.StatusBadRequest, "exactly one " + agreementField + " is required"
	}
	doc, err := handlerInstance.uploads.SaveAgreement(r.Context(), uploads[0])
	if err != nil {
		logRH.Warn("Agreement upload rejected", "traceId", traceIdFrom(r.Context()), "err", err)
		return api.UploadAgreementResponse{}, uploadErrorStatus(err), err.Error()
	}
	return adapter.ToUploadAgreementResponse(doc), http.StatusOK, ""
}

func storeStandards(r *http.Request, form *formHandle) (api.UploadStandardsResponse, int, string) {
	uploads, closeAll, err := formUploads(form.r.MultipartForm, standardsField)
	defer closeAll()
	if err != nil {
		return api.UploadStandardsResponse{}, uploadErrorStatus(err), err.Error()
	}
	batch, err := handlerInstance.uploads.SaveStandards(r.Context(), uploads)
	if err != nil {
		logRH.Warn("Standards upload rejected", "traceId", traceIdFrom(r.Context()), "err", err)
		return api.UploadStandardsResponse{}, uploadErrorStatus(err), err.Error()
	}
	return adapter.ToUploadStandardsResponse(batch), http.StatusOK, ""
}

func readGenerateRequest(w http.ResponseWriter, r *http.Request) (generateRequest, bool) {
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			logRH.Error("Couldn't close the generate request reader", "err", err)
		}
	}(r.Body)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		WriteErrorResponse(w, http.StatusRequestEntityTooLarge, "", "Request body too large")
		return generateRequest{}, false
	}
	req, err := decodeGenerateRequest(body)
	if err != nil {
		logRH.Warn("Bad generate request", "traceId", traceIdFrom(r.Context()), "err", err)
		WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request: "+err.Error())
		return generateRequest{}, false
	}
	req.traceId = traceIdFrom(r.Context())
	return req, true
}

func writeResolveError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrUnknownId) {
		WriteErrorResponse(w, http.StatusNotFound, "", err.Error())
		return
	}
	logRH.Error("Could not resolve uploads", "err", err)
	WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
}
