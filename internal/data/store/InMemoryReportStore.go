package store

import (
	"context"
	"sync"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem ReportStore")

// InMemoryReportStore is used when redis is not reachable. Reports do not
// survive a restart.
type InMemoryReportStore struct {
	reportMutex *sync.RWMutex
	reportMap   map[string]jobModel.BatchReport
}

func InitInMemoryReportStore() *InMemoryReportStore {
	return &InMemoryReportStore{
		reportMutex: new(sync.RWMutex),
		reportMap:   make(map[string]jobModel.BatchReport),
	}
}

func (store *InMemoryReportStore) SaveReport(ctx context.Context, report jobModel.BatchReport) error {
	store.reportMutex.Lock()
	defer store.reportMutex.Unlock()
	store.reportMap[report.Id] = report
	inMemLogger.Debug("saved report", "reportId", report.Id, "status", report.Status)
	return nil
}

func (store *InMemoryReportStore) GetReport(ctx context.Context, reportId string) (jobModel.BatchReport, bool) {
	store.reportMutex.RLock()
	defer store.reportMutex.RUnlock()
	result, found := store.reportMap[reportId]
	inMemLogger.Debug("report lookup", "reportId", reportId, "found", found)
	return result, found
}

func (store *InMemoryReportStore) DeleteReport(ctx context.Context, reportId string) {
	store.reportMutex.Lock()
	defer store.reportMutex.Unlock()
	delete(store.reportMap, reportId)
}
