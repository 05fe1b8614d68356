package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/api"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/data/redisStore"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/data/store"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/job"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/storage"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

// MockLoaderService implements loader.Service
type MockLoaderService struct {
	Requests   []loader.GenerateRequest
	OnGenerate func(ctx context.Context, req loader.GenerateRequest) (jobModel.BatchReport, error)
}

func (m *MockLoaderService) Generate(ctx context.Context, req loader.GenerateRequest) (jobModel.BatchReport, error) {
	m.Requests = append(m.Requests, req)
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, req)
	}
	return jobModel.BatchReport{Id: req.ReportId, Status: jobModel.ReportStatusComplete}, nil
}

type testEnv struct {
	service *job.Service
	uploads storage.Store
	loader  *MockLoaderService
	router  *chi.Mux
	dir     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	settings := config.Defaults()
	settings.DataDir = t.TempDir()

	env := &testEnv{
		service: &job.Service{
			JobChannel:        make(chan jobModel.BatchRequest, 4),
			DispatcherChannel: make(chan bool, 1),
			ReportStore:       store.InitInMemoryReportStore(),
		},
		uploads: storage.NewFileStore(settings),
		loader:  &MockLoaderService{},
		dir:     settings.DataDir,
	}
	handlerInstance = newJobHandler(env.service, env.uploads, env.loader)
	t.Cleanup(func() { handlerInstance = nil })

	r := chi.NewRouter()
	r.Get("/health", HealthHandler)
	r.Post("/upload/agreement", UploadAgreementHandler)
	r.Post("/upload/standards", UploadStandardsHandler)
	r.Post("/upload/agreement/file", UploadAllHandler)
	r.Post("/generate-loader", GenerateLoaderHandler)
	r.Post("/generate-loader/async", GenerateLoaderAsyncHandler)
	r.Get("/status/{id}", GetStatusHandler)
	r.Get("/reports/{id}/download", DownloadReportHandler)
	env.router = r
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// seed stores an agreement and a batch directly and returns their ids.
func (e *testEnv) seed(t *testing.T) (string, string) {
	t.Helper()
	ctx := context.Background()
	doc, err := e.uploads.SaveAgreement(ctx, storage.Upload{Filename: "Roaming Agreement.txt", Content: strings.NewReader("agreement")})
	if err != nil {
		t.Fatal(err)
	}
	batch, err := e.uploads.SaveStandards(ctx, []storage.Upload{{Filename: "TAP.txt", Content: strings.NewReader("tap")}})
	if err != nil {
		t.Fatal(err)
	}
	return doc.Id, batch.Id
}

func (e *testEnv) artifact(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	if err := os.WriteFile(path, []byte("PK-artifact"), 0o640); err != nil {
		t.Fatal(err)
	}
	return path
}

type formFile struct {
	field, name string
	content     []byte
}

func multipartRequest(t *testing.T, url string, files ...formFile) *http.Request {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = part.Write(f.content)
	}
	_ = mw.Close()
	req := httptest.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(url, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestUploadAgreementHandler_Success(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(multipartRequest(t, "/upload/agreement", formFile{agreementField, "Roaming Agreement.pdf", []byte("%PDF-1.4")}))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	res := decode[api.UploadAgreementResponse](t, rr)
	if res.AgreementId == "" || res.StoredFilename != res.AgreementId+"__Roaming_Agreement.pdf" {
		t.Errorf("response = %+v", res)
	}
	if _, err := env.uploads.ResolveAgreement(context.Background(), res.AgreementId); err != nil {
		t.Errorf("stored agreement not resolvable: %v", err)
	}
}

func TestUploadHandlers_Rejections(t *testing.T) {
	tooLarge := make([]byte, config.MaxUploadBytes+1)

	tests := []struct {
		name     string
		url      string
		req      func(t *testing.T, url string) *http.Request
		wantCode int
	}{
		{"Unsupported_Extension", "/upload/agreement", func(t *testing.T, url string) *http.Request {
			return multipartRequest(t, url, formFile{agreementField, "photo.png", []byte("x")})
		}, http.StatusBadRequest},
		{"Empty_File", "/upload/agreement", func(t *testing.T, url string) *http.Request {
			return multipartRequest(t, url, formFile{agreementField, "a.txt", nil})
		}, http.StatusBadRequest},
		{"Missing_Field", "/upload/agreement", func(t *testing.T, url string) *http.Request {
			return multipartRequest(t, url, formFile{"other", "a.txt", []byte("x")})
		}, http.StatusBadRequest},
		{"Not_Multipart", "/upload/agreement", func(t *testing.T, url string) *http.Request {
			return jsonRequest(url, `{}`)
		}, http.StatusBadRequest},
		{"Too_Large", "/upload/agreement", func(t *testing.T, url string) *http.Request {
			return multipartRequest(t, url, formFile{agreementField, "a.txt", tooLarge})
		}, http.StatusRequestEntityTooLarge},
		{"No_Standards", "/upload/standards", func(t *testing.T, url string) *http.Request {
			return multipartRequest(t, url, formFile{agreementField, "a.txt", []byte("x")})
		}, http.StatusBadRequest},
		{"One_Bad_Standard", "/upload/standards", func(t *testing.T, url string) *http.Request {
			return multipartRequest(t, url,
				formFile{standardsField, "a.txt", []byte("x")},
				formFile{standardsField, "b.exe", []byte("x")})
		}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rr := env.do(tt.req(t, tt.url))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			res := decode[api.ErrorResponse](t, rr)
			if res.Status != "Error" || res.Error.Code != tt.wantCode {
				t.Errorf("error envelope = %+v", res)
			}
		})
	}
}

func TestUploadStandardsHandler_KeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(multipartRequest(t, "/upload/standards",
		formFile{standardsField, "TAP 3.12.pdf", []byte("a")},
		formFile{standardsField, "RAEX.xlsx", []byte("b")}))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	res := decode[api.UploadStandardsResponse](t, rr)
	want := []string{"001__TAP_3.12.pdf", "002__RAEX.xlsx"}
	if len(res.StoredFilenames) != 2 || res.StoredFilenames[0] != want[0] || res.StoredFilenames[1] != want[1] {
		t.Errorf("stored = %v", res.StoredFilenames)
	}
}

func TestUploadAllHandler(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(multipartRequest(t, "/upload/agreement/file",
		formFile{agreementField, "agreement.docx", []byte("doc")},
		formFile{standardsField, "TAP.txt", []byte("a")}))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	res := decode[api.UploadAllResponse](t, rr)
	if res.Agreement.AgreementId == "" || res.Standards.BatchId == "" || len(res.Standards.StoredFilenames) != 1 {
		t.Errorf("response = %+v", res)
	}
}

func TestGenerateLoaderHandler(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		report     func(env *testEnv, t *testing.T, req loader.GenerateRequest) jobModel.BatchReport
		wantCode   int
		wantHeader string
	}{
		{
			name: "Single_Loader_As_Xlsx",
			report: func(env *testEnv, t *testing.T, req loader.GenerateRequest) jobModel.BatchReport {
				return jobModel.BatchReport{Id: req.ReportId, Status: jobModel.ReportStatusComplete, Jobs: []jobModel.Job{
					{State: jobModel.StateDone, ArtifactPath: env.artifact(t, "TAP_loader.xlsx")},
				}}
			},
			wantCode:   http.StatusOK,
			wantHeader: xlsxContentType,
		},
		{
			name: "Several_Loaders_As_Zip",
			report: func(env *testEnv, t *testing.T, req loader.GenerateRequest) jobModel.BatchReport {
				return jobModel.BatchReport{Id: req.ReportId, Status: jobModel.ReportStatusComplete,
					ArchivePath: env.artifact(t, "a_b_loader_outputs.zip"),
					Jobs: []jobModel.Job{
						{State: jobModel.StateDone, ArtifactPath: "x_loader.xlsx"},
						{State: jobModel.StateDone, ArtifactPath: "y_loader.xlsx"},
					}}
			},
			wantCode:   http.StatusOK,
			wantHeader: zipContentType,
		},
		{
			name:  "Report_As_Json",
			query: "?format=json",
			report: func(env *testEnv, t *testing.T, req loader.GenerateRequest) jobModel.BatchReport {
				return jobModel.BatchReport{Id: req.ReportId, Status: jobModel.ReportStatusComplete, Jobs: []jobModel.Job{
					{State: jobModel.StateDone, ArtifactPath: "TAP_loader.xlsx"},
				}}
			},
			wantCode:   http.StatusOK,
			wantHeader: "application/json",
		},
		{
			name: "Nothing_Done",
			report: func(env *testEnv, t *testing.T, req loader.GenerateRequest) jobModel.BatchReport {
				jobErr := jobModel.NewJobError(jobModel.ErrExtractionFailure)
				return jobModel.BatchReport{Id: req.ReportId, Status: jobModel.ReportStatusError, Error: &jobErr, Jobs: []jobModel.Job{
					{State: jobModel.StateFailed, FailedAt: jobModel.StateExtracting, Error: &jobErr},
				}}
			},
			wantCode:   http.StatusUnprocessableEntity,
			wantHeader: "application/json",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			agreementId, batchId := env.seed(t)
			env.loader.OnGenerate = func(ctx context.Context, req loader.GenerateRequest) (jobModel.BatchReport, error) {
				return tt.report(env, t, req), nil
			}

			rr := env.do(jsonRequest("/generate-loader"+tt.query,
				`{"agreement_id":"`+agreementId+`","batch_id":"`+batchId+`","model":"gpt-4o"}`))

			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, tt.wantHeader) {
				t.Errorf("content type = %q", ct)
			}
			if len(env.loader.Requests) != 1 {
				t.Fatalf("Generate called %d times", len(env.loader.Requests))
			}
			got := env.loader.Requests[0]
			if got.Agreement.Id != agreementId || got.Batch.Id != batchId || got.Model != "gpt-4o" {
				t.Errorf("request = %+v", got)
			}
			if _, found := GetReport(context.Background(), got.ReportId); !found {
				t.Error("report was not kept for later status lookups")
			}
		})
	}
}

func TestGenerateLoaderHandler_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		body     func(agreementId, batchId string) string
		wantCode int
	}{
		{"Not_Json", func(a, b string) string { return `agreement` }, http.StatusBadRequest},
		{"Missing_Batch", func(a, b string) string { return `{"agreement_id":"` + a + `"}` }, http.StatusBadRequest},
		{"Unknown_Field", func(a, b string) string {
			return `{"agreement_id":"` + a + `","batch_id":"` + b + `","extra":1}`
		}, http.StatusBadRequest},
		{"Bad_Id_Pattern", func(a, b string) string { return `{"agreement_id":"../etc","batch_id":"` + b + `"}` }, http.StatusBadRequest},
		{"Unknown_Agreement", func(a, b string) string { return `{"agreement_id":"deadbeef","batch_id":"` + b + `"}` }, http.StatusNotFound},
		{"Unknown_Batch", func(a, b string) string { return `{"agreement_id":"` + a + `","batch_id":"deadbeef"}` }, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			agreementId, batchId := env.seed(t)

			rr := env.do(jsonRequest("/generate-loader", tt.body(agreementId, batchId)))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d, body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			if len(env.loader.Requests) != 0 {
				t.Error("rejected request reached the loader")
			}
		})
	}
}

func TestGenerateLoaderHandler_EmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	agreementId, batchId := env.seed(t)
	env.loader.OnGenerate = func(ctx context.Context, req loader.GenerateRequest) (jobModel.BatchReport, error) {
		return jobModel.BatchReport{Id: req.ReportId}, loader.ErrEmptyBatch
	}

	rr := env.do(jsonRequest("/generate-loader", `{"agreement_id":"`+agreementId+`","batch_id":"`+batchId+`"}`))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestGenerateLoaderAsyncHandler(t *testing.T) {
	env := newTestEnv(t)
	agreementId, batchId := env.seed(t)

	rr := env.do(jsonRequest("/generate-loader/async", `{"agreement_id":"`+agreementId+`","batch_id":"`+batchId+`"}`))
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
	res := decode[api.InitJobResponse](t, rr)
	if res.Id == "" || res.StatusURL != "status/"+res.Id {
		t.Errorf("response = %+v", res)
	}

	select {
	case queued := <-env.service.JobChannel:
		if queued.ReportId != res.Id || queued.AgreementId != agreementId || queued.BatchId != batchId {
			t.Errorf("queued = %+v", queued)
		}
	case <-time.After(time.Second):
		t.Fatal("request was not queued")
	}
	select {
	case <-env.service.DispatcherChannel:
	default:
		t.Error("dispatcher was not signalled")
	}

	report, found := GetReport(context.Background(), res.Id)
	if !found || report.Status != jobModel.ReportStatusQueued {
		t.Errorf("queued report = %+v, found = %v", report, found)
	}
	if len(env.loader.Requests) != 0 {
		t.Error("async request ran synchronously")
	}

	rr = env.do(jsonRequest("/generate-loader/async", `{"agreement_id":"deadbeef","batch_id":"`+batchId+`"}`))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown agreement status = %d", rr.Code)
	}
}

func TestGetStatusHandler(t *testing.T) {
	env := newTestEnv(t)
	failed := jobModel.NewJob(0, documentModel.UploadedDocument{OriginalName: "broken.pdf", Role: documentModel.RoleStandard})
	_ = failed.Advance(jobModel.StateExtracting)
	_ = failed.Fail(jobModel.ErrExtractionFailure)
	SaveReport(context.Background(), jobModel.BatchReport{
		Id:     "report-1",
		Status: jobModel.ReportStatusComplete,
		Jobs: []jobModel.Job{
			failed,
			{Index: 1, State: jobModel.StateDone, ArtifactPath: "/out/TAP_loader.xlsx", RowCount: 3},
		},
	})

	rr := env.do(httptest.NewRequest(http.MethodGet, "/status/report-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	res := decode[api.ReportResponse](t, rr)
	if len(res.Jobs) != 2 || res.Jobs[0].Status != "failed@extracting" || res.Jobs[0].Error == nil || res.Jobs[0].Error.Code != "EXTRACTION_FAILURE" {
		t.Errorf("jobs = %+v", res.Jobs)
	}
	if res.Jobs[1].Artifact != "TAP_loader.xlsx" || res.DownloadURL != "reports/report-1/download" {
		t.Errorf("response = %+v", res)
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/status/ghost", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown report status = %d", rr.Code)
	}
}

func TestDownloadReportHandler(t *testing.T) {
	env := newTestEnv(t)
	archive := env.artifact(t, "a_b_loader_outputs.zip")
	ctx := context.Background()
	SaveReport(ctx, jobModel.BatchReport{Id: "running", Status: jobModel.ReportStatusRunning})
	SaveReport(ctx, jobModel.BatchReport{Id: "empty", Status: jobModel.ReportStatusError})
	SaveReport(ctx, jobModel.BatchReport{Id: "done", Status: jobModel.ReportStatusComplete, ArchivePath: archive})

	tests := []struct {
		id       string
		wantCode int
	}{
		{"running", http.StatusConflict},
		{"empty", http.StatusNotFound},
		{"ghost", http.StatusNotFound},
		{"done", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			rr := env.do(httptest.NewRequest(http.MethodGet, "/reports/"+tt.id+"/download", nil))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if tt.wantCode == http.StatusOK {
				if rr.Header().Get("Content-Type") != zipContentType || rr.Body.String() != "PK-artifact" {
					t.Errorf("headers = %v body = %q", rr.Header(), rr.Body.String())
				}
				if !strings.Contains(rr.Header().Get("Content-Disposition"), "a_b_loader_outputs.zip") {
					t.Errorf("disposition = %q", rr.Header().Get("Content-Disposition"))
				}
			}
		})
	}
}

func TestHealthHandler(t *testing.T) {
	t.Run("In_Memory", func(t *testing.T) {
		env := newTestEnv(t)
		rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		res := decode[api.HealthResponse](t, rr)
		if rr.Code != http.StatusOK || res.ReportStore != "memory" {
			t.Errorf("status = %d res = %+v", rr.Code, res)
		}
	})

	t.Run("Redis", func(t *testing.T) {
		env := newTestEnv(t)
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		env.service.ReportStore = store.TestReportStore(redisStore.NewTestStore(client))

		rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Code != http.StatusOK || decode[api.HealthResponse](t, rr).ReportStore != "redis" {
			t.Errorf("status = %d body = %s", rr.Code, rr.Body.String())
		}

		mr.Close()
		rr = env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("status with redis down = %d", rr.Code)
		}
	})
}
