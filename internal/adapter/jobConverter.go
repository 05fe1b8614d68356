package adapter

import (
	"fmt"
	"path/filepath"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/api"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
)

func ToInitJobResponse(id string) api.InitJobResponse {
	return api.InitJobResponse{
		Id:        id,
		StatusURL: fmt.Sprintf("status/%s", id),
	}
}

func ToReportResponse(report jobModel.BatchReport) api.ReportResponse {
	jobs := make([]api.JobStatus, 0, len(report.Jobs))
	for _, j := range report.Jobs {
		status := api.JobStatus{
			Index:      j.Index,
			Standard:   j.Document.OriginalName,
			Status:     j.Status(),
			RowCount:   j.RowCount,
			Confidence: string(j.Confidence),
			Warnings:   j.Warnings,
			Error:      toOutgoingError(j.Error),
		}
		if j.ArtifactPath != "" {
			status.Artifact = filepath.Base(j.ArtifactPath)
		}
		jobs = append(jobs, status)
	}

	res := api.ReportResponse{
		Id:          report.Id,
		AgreementId: report.AgreementId,
		BatchId:     report.BatchId,
		Model:       report.Model,
		Status:      string(report.Status),
		OutputDir:   report.OutputDir,
		Jobs:        jobs,
		Error:       toOutgoingError(report.Error),
		StartTime:   report.StartTime,
		EndTime:     report.EndTime,
	}
	if report.ArchivePath != "" {
		res.Archive = filepath.Base(report.ArchivePath)
	}
	if report.Id != "" && report.DownloadPath() != "" {
		res.DownloadURL = fmt.Sprintf("reports/%s/download", report.Id)
	}
	return res
}

func toOutgoingError(err *jobModel.JobError) *api.JobOutgoingError {
	if err == nil {
		return nil
	}
	return &api.JobOutgoingError{Code: string(err.Code), Message: err.Message, Retry: err.Retry}
}

func ToUploadAgreementResponse(doc documentModel.UploadedDocument) api.UploadAgreementResponse {
	return api.UploadAgreementResponse{AgreementId: doc.Id, StoredFilename: filepath.Base(doc.StoredPath)}
}

func ToUploadStandardsResponse(batch documentModel.Batch) api.UploadStandardsResponse {
	names := make([]string, len(batch.Documents))
	for i, d := range batch.Documents {
		names[i] = filepath.Base(d.StoredPath)
	}
	return api.UploadStandardsResponse{BatchId: batch.Id, StoredFilenames: names}
}

func BadRequest(id string, error string, code int) api.ErrorResponse {
	return api.ErrorResponse{
		Id:     id,
		Status: string(api.ReportStatusError),
		Error: api.HttpError{
			Code:    code,
			Message: error,
			Retry:   code == 429 || code >= 500,
		},
	}
}
