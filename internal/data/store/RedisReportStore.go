package store

import (
	"context"
	"encoding/json"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/data/redisStore"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

const reportKeyPrefix = "loader:report:"

type RedisReportStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

// GetRedisReportStore returns nil when redis is unreachable so the caller can
// fall back to the in-memory store.
func GetRedisReportStore(ctx context.Context, settings config.RedisSettings) *RedisReportStore {
	s := redisStore.GetRedisStore(ctx, settings, config.RedisReportStore)
	if s == nil {
		return nil
	}
	return &RedisReportStore{
		store:  s,
		logger: logger_i.NewLogger("ReportStore"),
	}
}

func reportKey(id string) string {
	return reportKeyPrefix + id
}

func (s *RedisReportStore) SaveReport(ctx context.Context, report jobModel.BatchReport) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "reportId", report.Id)
	log.Debug("saving report")
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}

	err = s.store.Set(ctx, reportKey(report.Id), data, config.RedisReportStoreTTL)
	if err == nil {
		log.Debug("Saved report to Redis", "status", report.Status)
	}
	return err
}

func (s *RedisReportStore) GetReport(ctx context.Context, reportId string) (jobModel.BatchReport, bool) {
	var report jobModel.BatchReport
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "reportId", reportId)
	val, err := s.store.Get(ctx, reportKey(reportId))
	if s.store.IsNil(err) {
		return report, false
	} else if err != nil {
		log.Error("could not read report", "error", err)
		return report, false
	}

	if err := json.Unmarshal([]byte(val), &report); err != nil {
		log.Error("could not decode report", "error", err)
		return report, false
	}
	return report, true
}

func (s *RedisReportStore) DeleteReport(ctx context.Context, reportId string) {
	if err := s.store.Del(ctx, reportKey(reportId)); err != nil {
		s.logger.Error("Error deleting report from Redis", "reportId", reportId, "error", err)
		return
	}
	s.logger.Debug("Report deleted from Redis", "reportId", reportId)
}

func (s *RedisReportStore) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func TestReportStore(store *redisStore.Store) *RedisReportStore {
	return &RedisReportStore{
		store:  store,
		logger: logger_i.NewLogger("test redis"),
	}
}
