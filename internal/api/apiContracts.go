package api

import "time"

type ReportExternalStatus string

const (
	ReportStatusError ReportExternalStatus = "Error"
)

// ReportResponse is returned by /status/{id} and by /generate-loader?format=json.
type ReportResponse struct {
	Id          string            `json:"id" example:"5f0c8a9e-0b7e-4d3f-9a43-8c1d2b1e7f10"`
	AgreementId string            `json:"agreement_id" example:"3f2b9c0a8e8d4f51a1c6b0b0f1f1e2aa"`
	BatchId     string            `json:"batch_id" example:"b6a7c1d2e3f44a5b8c9d0e1f2a3b4c5d"`
	Model       string            `json:"model" example:"gpt-4.1-mini"`
	Status      string            `json:"status" example:"COMPLETE"`
	OutputDir   string            `json:"output_dir,omitempty" example:"data/output/Roaming_Agreement_v2"`
	Archive     string            `json:"archive,omitempty"`
	DownloadURL string            `json:"download_url,omitempty" example:"reports/5f0c8a9e/download"`
	Jobs        []JobStatus       `json:"jobs"`
	Error       *JobOutgoingError `json:"error,omitempty"`
	StartTime   time.Time         `json:"start_time"`
	EndTime     time.Time         `json:"end_time,omitempty"`
}

// JobStatus is one standard of the batch.
type JobStatus struct {
	Index      int               `json:"index" example:"0"`
	Standard   string            `json:"standard" example:"TAP_3.12.pdf"`
	Status     string            `json:"status" example:"failed@extracting"`
	Artifact   string            `json:"artifact,omitempty" example:"TAP_3.12_loader.xlsx"`
	RowCount   int               `json:"row_count" example:"42"`
	Confidence string            `json:"confidence,omitempty" example:"parsed"`
	Warnings   []string          `json:"warnings,omitempty"`
	Error      *JobOutgoingError `json:"error,omitempty"`
}

type JobOutgoingError struct {
	Code    string `json:"code" example:"EXTRACTION_FAILURE"`
	Message string `json:"message" example:"document could not be read"`
	Retry   bool   `json:"can_retry" example:"false"`
}

// ErrorResponse is the envelope for every rejected request.
type ErrorResponse struct {
	Id     string    `json:"id,omitempty"`
	Status string    `json:"status" example:"Error"`
	Error  HttpError `json:"error"`
}

type HttpError struct {
	Code    int    `json:"code" example:"400"`
	Message string `json:"message" example:"Bad Request"`
	Retry   bool   `json:"can_retry" example:"false"`
}

type InitJobResponse struct {
	Id        string `json:"id"`
	StatusURL string `json:"status_url"`
}

type UploadAgreementResponse struct {
	AgreementId    string `json:"agreement_id"`
	StoredFilename string `json:"stored_filename"`
}

type UploadStandardsResponse struct {
	BatchId         string   `json:"batch_id"`
	StoredFilenames []string `json:"stored_filenames"`
}

type UploadAllResponse struct {
	Agreement UploadAgreementResponse `json:"agreement"`
	Standards UploadStandardsResponse `json:"standards"`
}

type HealthResponse struct {
	Status      string `json:"status" example:"ok"`
	ReportStore string `json:"report_store" example:"redis"`
}

// requests---------------------

type GenerateLoaderRequest struct {
	AgreementId string `json:"agreement_id" validate:"required"`
	BatchId     string `json:"batch_id" validate:"required"`
	Model       string `json:"model,omitempty"`
}
