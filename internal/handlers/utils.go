package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/adapter"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/storage"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipContentType  = "application/zip"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// headers are gone, nothing left but to log it
		logRH.Error("Error encoding response", "err", err)
	}
}

func traceIdFrom(ctx context.Context) string {
	trace, _ := ctx.Value(config.TRACE_ID_KEY).(string)
	return trace
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "traceId", traceIdFrom(ctx), "err", ctx.Err())
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled", "traceId", traceIdFrom(ctx))
		return false
	default:
		return true
	}
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// uploadErrorStatus maps storage rejections onto HTTP codes.
func uploadErrorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, storage.ErrUnsupportedUpload),
		errors.Is(err, storage.ErrEmptyUpload),
		errors.Is(err, storage.ErrMissingFilename),
		errors.Is(err, storage.ErrNoFiles):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// formUploads opens every file of a multipart field. The returned closer must
// be called once the uploads are stored.
func formUploads(form *multipart.Form, field string) ([]storage.Upload, func(), error) {
	headers := form.File[field]
	uploads := make([]storage.Upload, 0, len(headers))
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			if err := f.Close(); err != nil {
				logRH.Warn("Couldn't close the upload reader", "err", err)
			}
		}
	}
	for _, h := range headers {
		if h.Size > config.MaxUploadBytes {
			closeAll()
			return nil, func() {}, storage.ErrTooLarge
		}
		f, err := h.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		files = append(files, f)
		uploads = append(uploads, storage.Upload{Filename: h.Filename, Content: f})
	}
	return uploads, closeAll, nil
}

// serveArtifact streams a loader workbook or the batch archive as an attachment.
func serveArtifact(w http.ResponseWriter, r *http.Request, path string) {
	f, err := os.Open(path)
	if err != nil {
		logRH.Error("Artifact missing on disk", "path", path, "err", err)
		WriteErrorResponse(w, http.StatusNotFound, "", "Artifact not found")
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	name := filepath.Base(path)
	contentType := xlsxContentType
	if strings.EqualFold(filepath.Ext(name), ".zip") {
		contentType = zipContentType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}
