package handlers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/adapter/utils"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/job"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/storage"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           = logger_i.NewLogger("JobHandler")

	ErrNotInitialized = errors.New("job handler is not initialized")
)

type JobHandler struct {
	service *job.Service
	uploads storage.Store
	loader  loader.Service
}

// Pinger is implemented by report stores that sit on an external service.
type Pinger interface {
	Ping(ctx context.Context) error
}

func InitJobHandler(jobService *job.Service, uploads storage.Store, loaderService loader.Service) {
	once.Do(func() {
		handlerInstance = newJobHandler(jobService, uploads, loaderService)
		logJH.Info("Starting job handler")
	})
}

func newJobHandler(jobService *job.Service, uploads storage.Store, loaderService loader.Service) *JobHandler {
	return &JobHandler{service: jobService, uploads: uploads, loader: loaderService}
}

// CreateNewJob records a QUEUED report and hands the request to the worker pool.
func CreateNewJob(ctx context.Context, req generateRequest) (string, error) {
	if handlerInstance == nil {
		return "", ErrNotInitialized
	}
	batchRequest := jobModel.BatchRequest{
		ReportId:    utils.GetNewUUID(),
		TraceId:     req.traceId,
		AgreementId: req.AgreementId,
		BatchId:     req.BatchId,
		Model:       req.Model,
		CreatedTime: time.Now(),
	}
	log := logJH.With("traceId", req.traceId, "reportId", batchRequest.ReportId)
	log.Info("To create new generation job")

	queued := jobModel.BatchReport{
		Id:          batchRequest.ReportId,
		TraceId:     batchRequest.TraceId,
		AgreementId: batchRequest.AgreementId,
		BatchId:     batchRequest.BatchId,
		Model:       batchRequest.Model,
		Status:      jobModel.ReportStatusQueued,
		StartTime:   batchRequest.CreatedTime,
	}
	if err := handlerInstance.service.ReportStore.SaveReport(ctx, queued); err != nil {
		return "", fmt.Errorf("save queued report: %w", err)
	}
	if err := handlerInstance.pushToJobChannel(ctx, batchRequest); err != nil {
		handlerInstance.service.ReportStore.DeleteReport(context.Background(), batchRequest.ReportId)
		return "", err
	}
	return batchRequest.ReportId, nil
}

func GetReport(ctx context.Context, id string) (jobModel.BatchReport, bool) {
	if handlerInstance == nil || id == "" {
		return jobModel.BatchReport{}, false
	}
	return handlerInstance.service.ReportStore.GetReport(ctx, id)
}

func SaveReport(ctx context.Context, report jobModel.BatchReport) {
	if handlerInstance == nil {
		return
	}
	if err := handlerInstance.service.ReportStore.SaveReport(ctx, report); err != nil {
		logJH.Error("Failed to save report", "reportId", report.Id, "err", err)
	}
}

// ReportStoreHealth reports which backend holds reports and whether it answers.
func ReportStoreHealth(ctx context.Context) (string, error) {
	if handlerInstance == nil {
		return "", ErrNotInitialized
	}
	pinger, ok := handlerInstance.service.ReportStore.(Pinger)
	if !ok {
		return "memory", nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, config.RedisPingTimeout)
	defer cancel()
	return "redis", pinger.Ping(pingCtx)
}

func resolveInputs(ctx context.Context, agreementId, batchId string) (documentModel.UploadedDocument, documentModel.Batch, error) {
	agreement, err := handlerInstance.uploads.ResolveAgreement(ctx, agreementId)
	if err != nil {
		return agreement, documentModel.Batch{}, err
	}
	batch, err := handlerInstance.uploads.ResolveBatch(ctx, batchId)
	return agreement, batch, err
}

// private methods
func (h *JobHandler) pushToJobChannel(ctx context.Context, request jobModel.BatchRequest) error {
	metrics.IncrementJobsInQueue()

	// blocking send keeps a full queue from accepting more work
	select {
	case h.service.JobChannel <- request:
	case <-ctx.Done():
		metrics.DecrementJobsInQueue()
		return ctx.Err()
	}
	logJH.Info("Created new job", "reportId", request.ReportId)

	// every batch asks for a worker, idle ones retire
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1)
	metrics.StartDispatcherSignalCount()
	logJH.Debug("Request count", "count", accurateCount)
	select {
	case h.service.DispatcherChannel <- true:
	default:
		// a signal is already pending
	}
	return nil
}
