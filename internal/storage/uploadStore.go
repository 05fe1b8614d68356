package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/config"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/output"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
	"github.com/google/uuid"
)

const (
	ManifestFileName = "manifest.json"
	storedSeparator  = "__"
)

var (
	ErrUnknownId         = errors.New("unknown id")
	ErrUnsupportedUpload = errors.New("unsupported file type")
	ErrTooLarge          = errors.New("file too large")
	ErrEmptyUpload       = errors.New("uploaded file is empty")
	ErrMissingFilename   = errors.New("uploaded file must have a filename")
	ErrNoFiles           = errors.New("at least one file is required")

	validId = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
)

// Upload is one file of a multipart request.
type Upload struct {
	Filename string
	Content  io.Reader
}

// Store keeps uploaded agreements and standard batches on local disk.
type Store interface {
	SaveAgreement(ctx context.Context, upload Upload) (documentModel.UploadedDocument, error)
	SaveStandards(ctx context.Context, uploads []Upload) (documentModel.Batch, error)
	ResolveAgreement(ctx context.Context, id string) (documentModel.UploadedDocument, error)
	ResolveBatch(ctx context.Context, id string) (documentModel.Batch, error)
}

type manifest struct {
	BatchId   string          `json:"batch_id"`
	CreatedAt time.Time       `json:"created_at"`
	Files     []manifestEntry `json:"files"`
}

type manifestEntry struct {
	StoredFilename   string `json:"stored_filename"`
	OriginalFilename string `json:"original_filename"`
}

type fileStore struct {
	agreementsDir string
	standardsDir  string
	maxBytes      int64
	logger        *logger_i.Logger
}

func NewFileStore(settings config.Settings) Store {
	return &fileStore{
		agreementsDir: settings.AgreementsDir(),
		standardsDir:  settings.StandardsDir(),
		maxBytes:      config.MaxUploadBytes,
		logger:        logger_i.NewLogger("Upload Store"),
	}
}

func newId() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateExtension rejects anything the extractor cannot read.
func ValidateExtension(filename string) (documentModel.DocType, error) {
	if strings.TrimSpace(filename) == "" {
		return documentModel.ERR, ErrMissingFilename
	}
	t := documentModel.DocTypeFromName(filename)
	if !t.Supported() {
		allowed := make([]string, len(documentModel.SupportedTypes))
		for i, s := range documentModel.SupportedTypes {
			allowed[i] = "." + string(s)
		}
		return t, fmt.Errorf("%w %q, allowed: %s", ErrUnsupportedUpload, filepath.Ext(filename), strings.Join(allowed, ", "))
	}
	return t, nil
}

func (s *fileStore) SaveAgreement(ctx context.Context, upload Upload) (documentModel.UploadedDocument, error) {
	docType, err := ValidateExtension(upload.Filename)
	if err != nil {
		return documentModel.UploadedDocument{}, err
	}
	if err := os.MkdirAll(s.agreementsDir, 0o750); err != nil {
		return documentModel.UploadedDocument{}, err
	}

	id := newId()
	safeName := output.SanitizeFilename(upload.Filename)
	path := filepath.Join(s.agreementsDir, id+storedSeparator+safeName)
	if err := s.writeLimited(ctx, path, upload.Content); err != nil {
		return documentModel.UploadedDocument{}, err
	}

	logger_i.FromContext(ctx, "Upload Store").Info("agreement stored", "agreementId", id, "file", safeName)
	return documentModel.UploadedDocument{
		Id:           id,
		OriginalName: upload.Filename,
		StoredPath:   path,
		Type:         docType,
		Role:         documentModel.RoleAgreement,
	}, nil
}

func (s *fileStore) SaveStandards(ctx context.Context, uploads []Upload) (documentModel.Batch, error) {
	if len(uploads) == 0 {
		return documentModel.Batch{}, ErrNoFiles
	}
	types := make([]documentModel.DocType, len(uploads))
	for i, u := range uploads {
		t, err := ValidateExtension(u.Filename)
		if err != nil {
			return documentModel.Batch{}, err
		}
		types[i] = t
	}

	batchId := newId()
	dir := filepath.Join(s.standardsDir, batchId)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return documentModel.Batch{}, err
	}

	m := manifest{BatchId: batchId, CreatedAt: time.Now().UTC()}
	docs := make([]documentModel.UploadedDocument, 0, len(uploads))
	for i, u := range uploads {
		prefix := fmt.Sprintf("%03d", i+1)
		stored := prefix + storedSeparator + output.SanitizeFilename(u.Filename)
		path := filepath.Join(dir, stored)
		if err := s.writeLimited(ctx, path, u.Content); err != nil {
			_ = os.RemoveAll(dir)
			return documentModel.Batch{}, fmt.Errorf("%s: %w", u.Filename, err)
		}
		m.Files = append(m.Files, manifestEntry{StoredFilename: stored, OriginalFilename: u.Filename})
		docs = append(docs, documentModel.UploadedDocument{
			Id:           prefix,
			OriginalName: u.Filename,
			StoredPath:   path,
			Type:         types[i],
			Role:         documentModel.RoleStandard,
		})
	}

	raw, err := json.MarshalIndent(m, "", "  ")
	if err == nil {
		err = os.WriteFile(filepath.Join(dir, ManifestFileName), append(raw, '\n'), 0o640)
	}
	if err != nil {
		_ = os.RemoveAll(dir)
		return documentModel.Batch{}, err
	}

	logger_i.FromContext(ctx, "Upload Store").Info("standards stored", "batchId", batchId, "files", len(docs))
	return documentModel.NewBatch(batchId, docs)
}

// writeLimited streams content to path and removes it again if the upload is
// empty, too large or the request went away.
func (s *fileStore) writeLimited(ctx context.Context, path string, content io.Reader) (err error) {
	if content == nil {
		return ErrEmptyUpload
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	n, err := io.Copy(f, io.LimitReader(content, s.maxBytes+1))
	if err != nil {
		return err
	}
	if n > s.maxBytes {
		return fmt.Errorf("%w: max allowed is %d bytes", ErrTooLarge, s.maxBytes)
	}
	if n == 0 {
		return ErrEmptyUpload
	}
	return ctx.Err()
}

func (s *fileStore) ResolveAgreement(ctx context.Context, id string) (documentModel.UploadedDocument, error) {
	if !validId.MatchString(id) {
		return documentModel.UploadedDocument{}, fmt.Errorf("%w: agreement %q", ErrUnknownId, id)
	}
	matches, err := filepath.Glob(filepath.Join(s.agreementsDir, id+storedSeparator+"*"))
	if err != nil || len(matches) == 0 {
		return documentModel.UploadedDocument{}, fmt.Errorf("%w: agreement %q", ErrUnknownId, id)
	}
	sort.Strings(matches)
	path := matches[0]
	name := strings.TrimPrefix(filepath.Base(path), id+storedSeparator)
	return documentModel.UploadedDocument{
		Id:           id,
		OriginalName: name,
		StoredPath:   path,
		Type:         documentModel.DocTypeFromName(name),
		Role:         documentModel.RoleAgreement,
	}, nil
}

// ResolveBatch reads the batch manifest; batches without one fall back to the
// NNN__ prefix order of the directory listing.
func (s *fileStore) ResolveBatch(ctx context.Context, id string) (documentModel.Batch, error) {
	if !validId.MatchString(id) {
		return documentModel.Batch{}, fmt.Errorf("%w: batch %q", ErrUnknownId, id)
	}
	dir := filepath.Join(s.standardsDir, id)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return documentModel.Batch{}, fmt.Errorf("%w: batch %q", ErrUnknownId, id)
	}

	entries, err := s.readManifest(dir)
	if err != nil {
		s.logger.Warn("batch manifest unreadable, using directory order", "batchId", id, "error", err)
		entries, err = listStored(dir)
		if err != nil {
			return documentModel.Batch{}, err
		}
	}
	if len(entries) == 0 {
		return documentModel.Batch{}, fmt.Errorf("%w: batch %q has no files", ErrUnknownId, id)
	}

	docs := make([]documentModel.UploadedDocument, 0, len(entries))
	for _, e := range entries {
		prefix, _, _ := strings.Cut(e.StoredFilename, storedSeparator)
		docs = append(docs, documentModel.UploadedDocument{
			Id:           prefix,
			OriginalName: e.OriginalFilename,
			StoredPath:   filepath.Join(dir, e.StoredFilename),
			Type:         documentModel.DocTypeFromName(e.StoredFilename),
			Role:         documentModel.RoleStandard,
		})
	}
	return documentModel.NewBatch(id, docs)
}

func (s *fileStore) readManifest(dir string) ([]manifestEntry, error) {
	raw, err := os.ReadFile(filepath.Join(dir, ManifestFileName))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m.Files, nil
}

func listStored(dir string) ([]manifestEntry, error) {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var entries []manifestEntry
	for _, d := range dirEntries {
		if d.IsDir() || d.Name() == ManifestFileName {
			continue
		}
		_, original, ok := strings.Cut(d.Name(), storedSeparator)
		if !ok {
			original = d.Name()
		}
		entries = append(entries, manifestEntry{StoredFilename: d.Name(), OriginalFilename: original})
	}
	return entries, nil
}
