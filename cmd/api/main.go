// @title           Loader Generator API
// @version         1.0
// @description     Turns an agreement and a batch of standards into loader workbooks.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/customHttpClient"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/data/store"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/handlers"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/job"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/extract"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/llm"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/llm/gemini"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/llm/openaiLLM"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/output"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/prompt"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/publish"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/middleware"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/server"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/storage"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/worker"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {
	settings, err := config.Load()
	if err != nil {
		// the logger is configured from settings, so this one goes to stderr
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		if errors.Is(err, config.ErrMissingCredential) {
			os.Exit(2)
		}
		os.Exit(1)
	}

	logger_i.Init(settings)
	var logger = logger_i.NewLogger("main")
	logger.Info("Settings loaded", "llm", settings.LLM, "s3", settings.S3, "dataDir", settings.DataDir)

	flag.StringVar(&listenAddr, "listen-addr", settings.ListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobModel.BatchRequest, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	loaderService, err := buildLoaderService(serviceContext, settings, logger)
	if err != nil {
		logger.Error("Loader pipeline failed to initialize. Shutting down.", "err", err)
		return
	}
	uploads := storage.NewFileStore(settings)

	//init job service and report store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	if redisReports := store.GetRedisReportStore(serviceContext, settings.Redis); redisReports != nil {
		serviceConfig.ReportStore = redisReports
	} else {
		logger.Error("Redis report store is offline, reports are kept in memory")
		serviceConfig.ReportStore = store.InitInMemoryReportStore()
	}
	logger.Info("Starting job service")
	service := job.InitJobService(serviceConfig)

	handlers.InitJobHandler(service, uploads, loaderService)
	middleware.Init(settings)

	//init worker pool
	worker.InitServices(service, loaderService, uploads)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, settings.ServerWriteTimeout())

	<-stopExecution
	logger.Info("Server stopped")
}

func buildLoaderService(ctx context.Context, settings config.Settings, logger *logger_i.Logger) (loader.Service, error) {
	httpClient := customHttpClient.NewPooledClient(settings.LLM.RequestTimeout)

	var provider llm.Provider
	switch settings.LLM.Provider {
	case config.ProviderGemini:
		p, err := gemini.NewGeminiClient(ctx, settings.LLM, httpClient)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		provider = p
	default:
		provider = openaiLLM.NewOpenAIClient(settings.LLM, httpClient)
	}
	completer := llm.NewClient(provider, settings.LLM.DefaultModel, llm.PolicyFromSettings(settings.LLM))

	prompts, err := prompt.NewBuilder(settings.Loader.MaxCharsPerFile)
	if err != nil {
		return nil, fmt.Errorf("prompt builder: %w", err)
	}

	publisher := publish.Noop()
	if settings.S3.Enabled() {
		p, err := publish.NewMinioPublisher(ctx, settings.S3, customHttpClient.Transport())
		if err != nil {
			// local output still works without the bucket
			logger.Error("Artifact publisher unavailable", "err", err)
		} else {
			publisher = p
		}
	}

	return loader.NewService(loader.Deps{
		Extractor: extract.New(extract.WithPageTimeout(config.PDFPageTimeout)),
		Completer: completer,
		Prompts:   prompts,
		Writer:    output.NewWriter(settings.OutputDir()),
		Publisher: publisher,
		Settings:  settings.Loader,
	})
}
