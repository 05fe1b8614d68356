package documentModel

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

type DocType string

const (
	PDF  DocType = "pdf"
	DOCX DocType = "docx"
	TXT  DocType = "txt"
	XLSX DocType = "xlsx"
	ERR  DocType = "unknown"
)

// SupportedTypes lists upload types in a stable order.
var SupportedTypes = []DocType{PDF, DOCX, TXT, XLSX}

// DocTypeFromName maps a filename extension to a declared type; unknown extensions map to ERR.
func DocTypeFromName(name string) DocType {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return PDF
	case ".docx":
		return DOCX
	case ".txt":
		return TXT
	case ".xlsx":
		return XLSX
	default:
		return ERR
	}
}

func (t DocType) Supported() bool {
	for _, s := range SupportedTypes {
		if t == s {
			return true
		}
	}
	return false
}

type Role string

const (
	RoleAgreement Role = "agreement"
	RoleStandard  Role = "standard"
)

type UploadedDocument struct {
	Id           string  `json:"id"`
	OriginalName string  `json:"original_name"`
	StoredPath   string  `json:"stored_path"`
	Type         DocType `json:"type"`
	Role         Role    `json:"role"`
}

var ErrMixedBatch = errors.New("batch members must all be standard documents")

type Batch struct {
	Id        string             `json:"id"`
	Documents []UploadedDocument `json:"documents"`
}

func NewBatch(id string, docs []UploadedDocument) (Batch, error) {
	for _, d := range docs {
		if d.Role != RoleStandard {
			return Batch{}, fmt.Errorf("%w: %s has role %q", ErrMixedBatch, d.OriginalName, d.Role)
		}
	}
	return Batch{Id: id, Documents: docs}, nil
}

type ExtractionStatus string

const (
	ExtractionOK          ExtractionStatus = "ok"
	ExtractionUnsupported ExtractionStatus = "unsupported-type"
	ExtractionFailed      ExtractionStatus = "failed"
)

type ExtractionResult struct {
	Document UploadedDocument `json:"document"`
	Text     string           `json:"-"`
	Status   ExtractionStatus `json:"status"`
	Err      error            `json:"-"`
	Pages    int              `json:"pages"`
}

type MappingRow struct {
	SourceField string `json:"source_field"`
	TargetField string `json:"target_field"`
	Note        string `json:"note"`
}

type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

type Provenance struct {
	AgreementId      string    `json:"agreement_id"`
	AgreementName    string    `json:"agreement_name"`
	BatchId          string    `json:"batch_id"`
	StandardFilename string    `json:"standard_filename"`
	Model            string    `json:"model"`
	GeneratedAt      time.Time `json:"generated_at"`
}

// LoaderResult is built once per (agreement, standard) pair and not mutated afterwards.
type LoaderResult struct {
	Rows       []MappingRow `json:"rows"`
	Provenance Provenance   `json:"provenance"`
	Confidence Confidence   `json:"confidence"`
	Warnings   []string     `json:"warnings,omitempty"`
}
