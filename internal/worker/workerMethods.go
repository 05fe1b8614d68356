package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
)

func executeJob(request jobModel.BatchRequest) {
	start := time.Now()
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, request.TraceId)
	log := logger.With("traceId", request.TraceId, "reportId", request.ReportId)
	log.Debug("Processing generation request")

	report := jobModel.BatchReport{
		Id:          request.ReportId,
		TraceId:     request.TraceId,
		AgreementId: request.AgreementId,
		BatchId:     request.BatchId,
		Model:       request.Model,
		Status:      jobModel.ReportStatusRunning,
		StartTime:   start,
	}
	saveReport(ctx, report)

	agreement, err := _resolver.ResolveAgreement(ctx, request.AgreementId)
	if err != nil {
		failReport(ctx, report, err)
		return
	}
	batch, err := _resolver.ResolveBatch(ctx, request.BatchId)
	if err != nil {
		failReport(ctx, report, err)
		return
	}

	result, err := _loaderService.Generate(ctx, loader.GenerateRequest{
		ReportId:  request.ReportId,
		TraceId:   request.TraceId,
		Agreement: agreement,
		Batch:     batch,
		Model:     request.Model,
	})
	if err != nil {
		log.Error("generation failed", "error", err)
	}
	result.Id = request.ReportId
	saveReport(ctx, result)
	log.Info("Generation request finished", "status", result.Status, "elapsed", time.Since(start))
}

func removeWorker(reason string) {
	retireWorker(reason, atomic.AddInt64(&currentWorkerCount, -1))
}

// claimRetirement takes one worker out of the count unless that would leave
// fewer than minWorkerCount.
func claimRetirement() (int64, bool) {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= atomic.LoadInt64(&minWorkerCount) {
			return count, false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			return count - 1, true
		}
	}
}

// retireWorker runs after the count was already decremented.
func retireWorker(reason string, count int64) {
	workerWaitGroup.Done()
	logger.Info("Removed worker", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func failReport(ctx context.Context, report jobModel.BatchReport, err error) {
	logger.Warn("Generation request rejected", "reportId", report.Id, "error", err)
	jobErr := jobModel.NewJobError(err)
	report.Status = jobModel.ReportStatusError
	report.Error = &jobErr
	report.EndTime = time.Now()
	saveReport(ctx, report)
}

func saveReport(ctx context.Context, report jobModel.BatchReport) {
	if err := _jobService.ReportStore.SaveReport(ctx, report); err != nil {
		logger.Error("Failed to save report state", "reportId", report.Id, "err", err)
	}
}
