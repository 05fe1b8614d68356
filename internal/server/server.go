package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/adapter/utils"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/handlers"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/middleware"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// Routes registers the loader endpoints on r.
func Routes(r chi.Router) {
	r.Get("/health", handlers.HealthHandler)

	r.Post("/upload/agreement", middleware.UploadAgreementHandler)
	r.Post("/upload/standards", middleware.UploadStandardsHandler)
	r.Post("/upload/agreement/file", middleware.UploadAllHandler)
	r.Post("/generate-loader", middleware.GenerateLoaderHandler)
	r.Post("/generate-loader/async", middleware.GenerateLoaderAsyncHandler)
	r.Get("/status/{id}", middleware.GetStatusHandler)
	r.Get("/reports/{id}/download", middleware.DownloadReportHandler)
}

func CreateServer(listenAddr string, writeTimeout time.Duration) {
	r := utils.GetRouter()
	Routes(r.Router)

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		server.SetKeepAlivesEnabled(false)

		if err := server.Shutdown(ctx); err != nil {
			_logger.Error("Could not shutdown gracefully", "err", err)
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
