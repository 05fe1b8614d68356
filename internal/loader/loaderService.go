package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/extract"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/output"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/publish"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEmptyBatch  = errors.New("batch has no standard documents")
	ErrNoPrompts   = errors.New("prompt builder is required")
	ErrNoCompleter = errors.New("completion client is required")
	ErrNoWriter    = errors.New("output writer is required")
)

// Service is what the handlers and the async workers call. One Generate call
// turns an agreement and a batch of standards into loader files.
type Service interface {
	Generate(ctx context.Context, req GenerateRequest) (jobModel.BatchReport, error)
}

// Completer is satisfied by *llm.Client.
type Completer interface {
	Complete(ctx context.Context, prompt string, model string) (string, error)
	DefaultModel() string
}

// PromptBuilder is satisfied by *prompt.Builder.
type PromptBuilder interface {
	Build(agreementText, standardText string) string
	BuildRepair(previousReply string) string
}

type GenerateRequest struct {
	ReportId  string
	TraceId   string
	Agreement documentModel.UploadedDocument
	Batch     documentModel.Batch
	Model     string
}

type Deps struct {
	Extractor extract.Extractor
	Completer Completer
	Prompts   PromptBuilder
	Writer    *output.Writer
	Publisher publish.Publisher
	Settings  config.LoaderSettings
}

type service struct {
	extractor extract.Extractor
	completer Completer
	prompts   PromptBuilder
	writer    *output.Writer
	publisher publish.Publisher
	settings  config.LoaderSettings
	logger    *logger_i.Logger
}

func NewService(d Deps) (Service, error) {
	if d.Prompts == nil {
		return nil, ErrNoPrompts
	}
	if d.Completer == nil {
		return nil, ErrNoCompleter
	}
	if d.Writer == nil {
		return nil, ErrNoWriter
	}
	if d.Extractor == nil {
		d.Extractor = extract.New()
	}
	if d.Publisher == nil {
		d.Publisher = publish.Noop()
	}
	if d.Settings.Workers < 1 {
		d.Settings.Workers = 1
	}
	if d.Settings.BatchTimeout <= 0 {
		d.Settings.BatchTimeout = config.DefaultBatchTimeout
	}
	return &service{
		extractor: d.Extractor,
		completer: d.Completer,
		prompts:   d.Prompts,
		writer:    d.Writer,
		publisher: d.Publisher,
		settings:  d.Settings,
		logger:    logger_i.NewLogger("Loader Service"),
	}, nil
}

// Generate runs every standard of the batch through the pipeline. Failures stay
// on their own job; the returned error is reserved for problems that prevent
// the batch from running at all.
func (s *service) Generate(ctx context.Context, req GenerateRequest) (jobModel.BatchReport, error) {
	start := time.Now()
	log := logger_i.FromContext(ctx, "Loader Service").With("agreementId", req.Agreement.Id, "batchId", req.Batch.Id)

	model := req.Model
	if model == "" {
		model = s.completer.DefaultModel()
	}
	report := jobModel.BatchReport{
		Id:          req.ReportId,
		TraceId:     req.TraceId,
		AgreementId: req.Agreement.Id,
		BatchId:     req.Batch.Id,
		Model:       model,
		Status:      jobModel.ReportStatusRunning,
		StartTime:   start,
	}
	if len(req.Batch.Documents) == 0 {
		return s.abortReport(report, ErrEmptyBatch), ErrEmptyBatch
	}

	batchCtx, cancel := context.WithTimeout(ctx, s.settings.BatchTimeout)
	defer cancel()

	t := newTracker(req.Batch.Documents)
	agreement := s.executeExtractStep(batchCtx, log, req.Agreement)
	if agreement.Status != documentModel.ExtractionOK {
		log.Warn("agreement could not be extracted", "status", agreement.Status, "error", agreement.Err)
		if errors.Is(batchCtx.Err(), context.DeadlineExceeded) {
			report.Jobs = t.finalize(batchCtx.Err())
			return s.finishReport(report, log), nil
		}
		cause := fmt.Errorf("agreement %s: %w", req.Agreement.OriginalName, agreement.Err)
		report.Jobs = t.failAll(jobModel.StateExtracting, cause)
		return s.finishReport(report, log), nil
	}

	names := make([]string, len(req.Batch.Documents))
	for i, d := range req.Batch.Documents {
		names[i] = d.OriginalName
	}
	base := output.SafeAgreementBaseName(filepath.Base(req.Agreement.StoredPath), req.Agreement.Id)
	session, err := s.writer.Begin(base, output.Meta{
		AgreementId:   req.Agreement.Id,
		AgreementName: req.Agreement.OriginalName,
		BatchId:       req.Batch.Id,
		Model:         model,
		StartedAt:     start.UTC(),
	}, names)
	if err != nil {
		log.Error("could not open output session", "error", err)
		return s.abortReport(report, err), err
	}

	g := new(errgroup.Group)
	g.SetLimit(s.settings.Workers)
	for i := range req.Batch.Documents {
		g.Go(func() error {
			s.runJob(batchCtx, log, t, session, i, req, agreement.Text, model)
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-batchCtx.Done():
		log.Warn("batch stopped before every job finished", "error", batchCtx.Err())
	}

	jobs := t.finalize(batchCtx.Err())
	report.Jobs = s.commit(ctx, log, session, jobs, &report)
	return s.finishReport(report, log), nil
}

// runJob drives one standard from queued to writing. The commit step moves it
// to done once the whole batch is on disk.
func (s *service) runJob(ctx context.Context, log *logger_i.Logger, t *tracker, session *output.Session,
	index int, req GenerateRequest, agreementText string, model string) {

	doc := req.Batch.Documents[index]
	job := t.get(index)
	jobLog := log.With("job", index, "document", doc.OriginalName)

	fail := func(err error) {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			// finalize records it as a timeout
			return
		}
		jobLog.Warn("job failed", "state", job.State, "error", err)
		_ = job.Fail(err)
		t.set(job)
	}
	advance := func(to jobModel.JobState) bool {
		if err := job.Advance(to); err != nil {
			fail(err)
			return false
		}
		return t.set(job)
	}

	if !advance(jobModel.StateExtracting) {
		return
	}
	extracted := s.executeExtractStep(ctx, jobLog, doc)
	if extracted.Status != documentModel.ExtractionOK {
		fail(extracted.Err)
		return
	}

	if !advance(jobModel.StatePrompting) {
		return
	}
	promptText := s.executePromptStep(jobLog, agreementText, extracted.Text)

	if !advance(jobModel.StateCompleting) {
		return
	}
	reply, err := s.executeCompletionStep(ctx, jobLog, promptText, model)
	if err != nil {
		fail(err)
		return
	}

	if !advance(jobModel.StateParsing) {
		return
	}
	parsed := s.executeParseStep(jobLog, reply)
	for attempt := 0; len(parsed.Rows) == 0 && attempt < s.settings.RepairAttempts; attempt++ {
		jobLog.Info("reply had no loader rows, sending repair prompt", "attempt", attempt+1)
		if !advance(jobModel.StateCompleting) {
			return
		}
		reply, err = s.executeCompletionStep(ctx, jobLog, s.prompts.BuildRepair(reply), model)
		if err != nil {
			fail(err)
			return
		}
		if !advance(jobModel.StateParsing) {
			return
		}
		parsed = s.executeParseStep(jobLog, reply)
	}
	if len(parsed.Rows) == 0 {
		fail(fmt.Errorf("%w: %s", jobModel.ErrParseLowConfidence, doc.OriginalName))
		return
	}

	job.RowCount = len(parsed.Rows)
	job.Confidence = parsed.Confidence()
	job.Warnings = parsed.Warnings
	if !advance(jobModel.StateWriting) {
		return
	}

	result := documentModel.LoaderResult{
		Rows: parsed.Rows,
		Provenance: documentModel.Provenance{
			AgreementId:      req.Agreement.Id,
			AgreementName:    req.Agreement.OriginalName,
			BatchId:          req.Batch.Id,
			StandardFilename: doc.OriginalName,
			Model:            model,
			GeneratedAt:      time.Now().UTC(),
		},
		Confidence: parsed.Confidence(),
		Warnings:   parsed.Warnings,
	}
	if err := s.executeWriteStep(jobLog, t, session, job, result); err != nil {
		fail(err)
	}
}

// commit publishes staged loaders and settles every job still in writing.
func (s *service) commit(ctx context.Context, log *logger_i.Logger, session *output.Session,
	jobs []jobModel.Job, report *jobModel.BatchReport) []jobModel.Job {

	if session.Staged() == 0 {
		session.Abort()
		return jobs
	}

	written, err := session.Commit()
	for i := range jobs {
		if jobs[i].State != jobModel.StateWriting {
			continue
		}
		if err != nil {
			_ = jobs[i].Fail(err)
			continue
		}
		jobs[i].ArtifactPath = filepath.Join(written.Dir, jobs[i].ArtifactPath)
		_ = jobs[i].Advance(jobModel.StateDone)
	}
	if err != nil {
		log.Error("output commit failed", "error", err)
		return jobs
	}

	report.OutputDir = written.Dir
	report.ArchivePath = written.Archive
	s.executePublishStep(ctx, log, report, written)
	return jobs
}

func (s *service) finishReport(report jobModel.BatchReport, log *logger_i.Logger) jobModel.BatchReport {
	report.EndTime = time.Now()
	for _, j := range report.Jobs {
		metrics.CaptureJobOutcome(j.Status())
	}

	if len(report.Done()) > 0 {
		report.Status = jobModel.ReportStatusComplete
	} else {
		report.Status = jobModel.ReportStatusError
		jobErr := jobModel.JobError{
			Code:    jobModel.CodeInternal,
			Message: "no loader could be generated for this batch",
			Retry:   anyRetryable(report.Jobs),
		}
		if failed := report.Failed(); len(failed) > 0 && failed[0].Error != nil {
			jobErr.Code = failed[0].Error.Code
		}
		report.Error = &jobErr
	}
	metrics.CaptureJobMetrics(string(report.Status), report.EndTime.Sub(report.StartTime))
	log.Info("batch finished", "status", report.Status, "done", len(report.Done()), "failed", len(report.Failed()),
		"outputDir", report.OutputDir, "elapsed", report.EndTime.Sub(report.StartTime))
	return report
}

func (s *service) abortReport(report jobModel.BatchReport, err error) jobModel.BatchReport {
	jobErr := jobModel.NewJobError(err)
	report.Status = jobModel.ReportStatusError
	report.Error = &jobErr
	report.EndTime = time.Now()
	return report
}

func anyRetryable(jobs []jobModel.Job) bool {
	for _, j := range jobs {
		if j.Error != nil && j.Error.Retry {
			return true
		}
	}
	return false
}
