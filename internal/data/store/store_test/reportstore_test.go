package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/data/redisStore"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/data/store"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func sampleReport(id string) jobModel.BatchReport {
	failed := jobModel.NewJob(1, documentModel.UploadedDocument{OriginalName: "broken.pdf", Role: documentModel.RoleStandard})
	_ = failed.Advance(jobModel.StateExtracting)
	_ = failed.Fail(jobModel.ErrExtractionFailure)

	return jobModel.BatchReport{
		Id:          id,
		AgreementId: "agr1",
		BatchId:     "b1",
		Model:       "gpt-4.1-mini",
		Status:      jobModel.ReportStatusComplete,
		OutputDir:   "data/output/Roaming",
		Jobs: []jobModel.Job{
			{Index: 0, State: jobModel.StateDone, ArtifactPath: "data/output/Roaming/TAP_loader.xlsx", RowCount: 12},
			failed,
		},
		StartTime: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestRedisReportStore_Lifecycle(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	reportStore := store.TestReportStore(redisStore.NewTestStore(client))

	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "test-trace")
	report := sampleReport("report_abc_123")

	t.Run("Save and Get Roundtrip", func(t *testing.T) {
		if err := reportStore.SaveReport(ctx, report); err != nil {
			t.Fatalf("SaveReport failed: %v", err)
		}

		got, found := reportStore.GetReport(ctx, report.Id)
		if !found {
			t.Fatal("Report was saved but not found in Redis")
		}
		if len(got.Jobs) != 2 || got.Jobs[1].Status() != "failed@extracting" {
			t.Errorf("jobs did not survive the roundtrip: %+v", got.Jobs)
		}
		if got.Jobs[1].Error == nil || got.Jobs[1].Error.Code != jobModel.CodeExtractionFailure {
			t.Errorf("job error lost: %+v", got.Jobs[1].Error)
		}
		if got.DownloadPath() != "data/output/Roaming/TAP_loader.xlsx" {
			t.Errorf("download path = %q", got.DownloadPath())
		}
		if !got.StartTime.Equal(report.StartTime) {
			t.Errorf("start time = %v", got.StartTime)
		}
	})

	t.Run("Report Has TTL", func(t *testing.T) {
		if ttl := mr.TTL("loader:report:" + report.Id); ttl != config.RedisReportStoreTTL {
			t.Errorf("ttl = %v, want %v", ttl, config.RedisReportStoreTTL)
		}
	})

	t.Run("Get Non-Existent Report", func(t *testing.T) {
		if _, found := reportStore.GetReport(ctx, "ghost-id"); found {
			t.Error("Expected found=false for non-existent key")
		}
	})

	t.Run("Corrupt Value Is Not Found", func(t *testing.T) {
		_ = mr.Set("loader:report:corrupt", "{not json")
		if _, found := reportStore.GetReport(ctx, "corrupt"); found {
			t.Error("Expected found=false for undecodable report")
		}
	})

	t.Run("Delete Report", func(t *testing.T) {
		reportStore.DeleteReport(ctx, report.Id)
		if mr.Exists("loader:report:" + report.Id) {
			t.Error("Report still exists in Redis after DeleteReport call")
		}
	})

	t.Run("Ping", func(t *testing.T) {
		if err := reportStore.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})
}

func TestReportStores_ConcurrentAccess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	stores := map[string]jobModel.ReportStore{
		"redis":    store.TestReportStore(redisStore.NewTestStore(client)),
		"inMemory": store.InitInMemoryReportStore(),
	}

	for name, s := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "race-trace")
			report := sampleReport("race-report")

			const workers = 50
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_ = s.SaveReport(ctx, report)
					_, _ = s.GetReport(ctx, report.Id)
				}()
			}
			wg.Wait()

			if _, found := s.GetReport(ctx, report.Id); !found {
				t.Error("report missing after concurrent saves")
			}
			s.DeleteReport(ctx, report.Id)
			if _, found := s.GetReport(ctx, report.Id); found {
				t.Error("report still present after delete")
			}
		})
	}
}
