package loader

import (
	"context"
	"path"
	"path/filepath"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/output"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/parse"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

func (s *service) executeExtractStep(ctx context.Context, log *logger_i.Logger, doc documentModel.UploadedDocument) documentModel.ExtractionResult {
	log.Debug("extracting", "document", doc.OriginalName, "role", doc.Role)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("extract", time.Since(start)) }()

	result := s.extractor.Extract(ctx, doc)
	if result.Status == documentModel.ExtractionOK && result.Text == "" {
		log.Warn("document produced no text", "document", doc.OriginalName)
	}
	return result
}

func (s *service) executePromptStep(log *logger_i.Logger, agreementText, standardText string) string {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("prompt_build", time.Since(start)) }()

	p := s.prompts.Build(agreementText, standardText)
	log.Debug("prompt built", "chars", len(p))
	return p
}

func (s *service) executeCompletionStep(ctx context.Context, log *logger_i.Logger, prompt string, model string) (string, error) {
	log.Debug("requesting completion", "model", model)

	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("completion", time.Since(start)) }()

	return s.completer.Complete(ctx, prompt, model)
}

func (s *service) executeParseStep(log *logger_i.Logger, reply string) parse.Result {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("parse", time.Since(start)) }()

	result := parse.Parse(reply)
	log.Debug("reply parsed", "outcome", result.Outcome, "rows", len(result.Rows), "warnings", len(result.Warnings))
	return result
}

func (s *service) executeWriteStep(log *logger_i.Logger, t *tracker, session *output.Session, job jobModel.Job, result documentModel.LoaderResult) error {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("write_loader", time.Since(start)) }()

	pending, err := session.Prepare(job.Index, result)
	if err != nil {
		return err
	}
	if err := t.stage(job, pending); err != nil {
		return err
	}
	log.Debug("loader staged", "rows", len(result.Rows))
	return nil
}

// executePublishStep mirrors the committed set; failures are logged only.
func (s *service) executePublishStep(ctx context.Context, log *logger_i.Logger, report *jobModel.BatchReport, written output.Written) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("publish", time.Since(start)) }()

	files := append([]string(nil), written.Files...)
	if written.Archive != "" {
		files = append(files, written.Archive)
	}
	files = append(files, filepath.Join(written.Dir, output.MetaFileName))

	prefix := path.Join(report.AgreementId, report.BatchId, filepath.Base(written.Dir))
	if err := s.publisher.Publish(ctx, prefix, files); err != nil {
		log.Warn("publishing loader output failed", "prefix", prefix, "error", err)
	}
}
