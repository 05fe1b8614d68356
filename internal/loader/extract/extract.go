package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

// Extractor turns a stored document into plain text. It never returns an error;
// failures are reported through the result status.
type Extractor interface {
	Extract(ctx context.Context, doc documentModel.UploadedDocument) documentModel.ExtractionResult
}

type extractor struct {
	pageTimeout time.Duration
	logger      *logger_i.Logger
}

type Option func(*extractor)

// WithPageTimeout bounds the time spent decoding a single PDF page.
func WithPageTimeout(d time.Duration) Option {
	return func(e *extractor) {
		if d > 0 {
			e.pageTimeout = d
		}
	}
}

func New(opts ...Option) Extractor {
	e := &extractor{
		pageTimeout: config.PDFPageTimeout,
		logger:      logger_i.NewLogger("Extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *extractor) Extract(ctx context.Context, doc documentModel.UploadedDocument) documentModel.ExtractionResult {
	result := documentModel.ExtractionResult{Document: doc}
	docType := doc.Type
	if docType == "" {
		docType = documentModel.DocTypeFromName(doc.StoredPath)
	}
	log := e.logger.With("document", doc.OriginalName, "type", docType)

	if !docType.Supported() {
		log.Warn("unsupported document type")
		result.Status = documentModel.ExtractionUnsupported
		result.Err = fmt.Errorf("%w: %q", jobModel.ErrUnsupportedType, docType)
		return result
	}
	if err := ctx.Err(); err != nil {
		result.Status = documentModel.ExtractionFailed
		result.Err = err
		return result
	}

	var (
		text  string
		pages int
		err   error
	)
	switch docType {
	case documentModel.TXT:
		text, err = extractTxt(doc.StoredPath)
		pages = 1
	case documentModel.DOCX:
		text, err = extractDocx(doc.StoredPath)
		pages = 1
	case documentModel.PDF:
		text, pages, err = e.extractPDF(ctx, doc.StoredPath, log)
	case documentModel.XLSX:
		text, pages, err = extractXLSX(doc.StoredPath)
	}

	if err != nil {
		log.Error("extraction failed", "error", err)
		result.Status = documentModel.ExtractionFailed
		result.Err = fmt.Errorf("%w: %s: %v", jobModel.ErrExtractionFailure, doc.OriginalName, err)
		return result
	}

	log.Debug("extracted document", "pages", pages, "chars", len(text))
	result.Status = documentModel.ExtractionOK
	result.Text = text
	result.Pages = pages
	return result
}
