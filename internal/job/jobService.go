package job

import (
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
)

// Service carries the channels and store shared by the HTTP handlers and the
// async worker pool.
type Service struct {
	JobChannel        chan jobModel.BatchRequest
	RequestCount      int64
	DispatcherChannel chan bool
	ReportStore       jobModel.ReportStore
}

type ServiceConfig struct {
	JobChannel        chan jobModel.BatchRequest
	RequestCount      int64
	DispatcherChannel chan bool
	ReportStore       jobModel.ReportStore
}

func InitJobService(cfg ServiceConfig) *Service {
	return &Service{
		JobChannel:        cfg.JobChannel,
		RequestCount:      cfg.RequestCount,
		DispatcherChannel: cfg.DispatcherChannel,
		ReportStore:       cfg.ReportStore,
	}
}
