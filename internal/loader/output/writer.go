package output

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/metrics"
	"github.com/Riturajvaishnav2/chat-gpt-online/pkg/logger_i"
)

const MetaFileName = "meta.json"

var (
	ErrSessionClosed = errors.New("output session already closed")
	ErrNothingStaged = errors.New("no loader files staged")
	ErrUnknownIndex  = errors.New("no planned loader file for index")
)

// Written describes a committed output directory. Paths are absolute or
// relative to the writer root the same way the root was given.
type Written struct {
	Dir     string
	Files   []string
	Archive string
}

// Meta is persisted as meta.json next to the loaders.
type Meta struct {
	AgreementId   string    `json:"agreement_id"`
	AgreementName string    `json:"agreement_name"`
	BatchId       string    `json:"batch_id"`
	Model         string    `json:"model"`
	StartedAt     time.Time `json:"started_at"`
	CreatedAt     time.Time `json:"created_at"`
	StandardFiles []string  `json:"standard_files"`
	Outputs       []string  `json:"outputs"`
	Archive       string    `json:"archive,omitempty"`
}

type Writer struct {
	root   string
	logger *logger_i.Logger
}

func NewWriter(root string) *Writer {
	return &Writer{root: root, logger: logger_i.NewLogger("loader_writer")}
}

func (w *Writer) Root() string {
	return w.root
}

// Session stages loader files in a hidden directory under the writer root.
// Nothing is visible under the final name until Commit.
type Session struct {
	mu      sync.Mutex
	writer  *Writer
	base    string
	meta    Meta
	staging string
	planned []string
	staged  map[int]string
	closed  bool
}

// Begin plans file names for the batch (in batch order) and creates the staging dir.
func (w *Writer) Begin(base string, meta Meta, standardNames []string) (*Session, error) {
	if err := os.MkdirAll(w.root, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}
	staging, err := os.MkdirTemp(w.root, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}
	meta.StandardFiles = standardNames
	return &Session{
		writer:  w,
		base:    base,
		meta:    meta,
		staging: staging,
		planned: PlanFileNames(standardNames),
		staged:  make(map[int]string),
	}, nil
}

// Pending is a rendered loader written next to the staging dir. Stage moves
// it into the session; Discard drops it.
type Pending struct {
	session *Session
	index   int
	path    string
}

// Prepare renders the loader of the standard at index and writes it to a
// pending file. It does not touch the staged set and is safe for concurrent use.
func (s *Session) Prepare(index int, result documentModel.LoaderResult) (*Pending, error) {
	if index < 0 || index >= len(s.planned) {
		return nil, fmt.Errorf("%w: %d", ErrUnknownIndex, index)
	}
	buf, err := RenderWorkbook(result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}

	f, err := os.CreateTemp(s.writer.root, ".pending-*.xlsx")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}
	_, err = f.Write(buf.Bytes())
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(f.Name())
		return nil, fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}
	return &Pending{session: s, index: index, path: f.Name()}, nil
}

// Stage moves the pending file under its planned name.
func (p *Pending) Stage() (string, error) {
	s := p.session
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		_ = os.Remove(p.path)
		return "", ErrSessionClosed
	}
	name := s.planned[p.index]
	if err := os.Rename(p.path, filepath.Join(s.staging, name)); err != nil {
		_ = os.Remove(p.path)
		return "", fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}
	s.staged[p.index] = name
	return name, nil
}

func (p *Pending) Discard() {
	_ = os.Remove(p.path)
}

// WriteLoader prepares and stages in one step.
func (s *Session) WriteLoader(index int, result documentModel.LoaderResult) (string, error) {
	p, err := s.Prepare(index, result)
	if err != nil {
		return "", err
	}
	return p.Stage()
}

// Staged reports how many loaders are waiting for Commit.
func (s *Session) Staged() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.staged)
}

// Commit reserves the versioned directory and moves the staged set onto it.
// Further writes are refused once Commit or Abort has run.
func (s *Session) Commit() (Written, error) {
	start := time.Now()
	defer func() {
		metrics.CaptureExecutionMetrics("output_commit", time.Since(start))
	}()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return Written{}, ErrSessionClosed
	}
	s.closed = true

	if len(s.staged) == 0 {
		_ = os.RemoveAll(s.staging)
		return Written{}, ErrNothingStaged
	}

	indexes := make([]int, 0, len(s.staged))
	for i := range s.staged {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)
	files := make([]string, 0, len(indexes))
	for _, i := range indexes {
		files = append(files, s.staged[i])
	}

	written, err := s.commitLocked(files)
	if err != nil {
		_ = os.RemoveAll(s.staging)
		return Written{}, fmt.Errorf("%w: %v", jobModel.ErrOutputWriteFailure, err)
	}
	s.writer.logger.Info("loader output committed", "dir", written.Dir, "files", len(written.Files), "archive", written.Archive)
	return written, nil
}

func (s *Session) commitLocked(files []string) (Written, error) {
	meta := s.meta
	meta.CreatedAt = time.Now().UTC()
	meta.Outputs = files

	if len(files) > 1 {
		meta.Archive = ArchiveName(meta.AgreementId, meta.BatchId)
		if err := writeArchive(filepath.Join(s.staging, meta.Archive), s.staging, files); err != nil {
			return Written{}, err
		}
	}

	raw, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Written{}, err
	}
	if err := os.WriteFile(filepath.Join(s.staging, MetaFileName), append(raw, '\n'), 0o644); err != nil {
		return Written{}, err
	}

	dir, err := ReserveDir(s.writer.root, s.base)
	if err != nil {
		return Written{}, err
	}
	if err := moveOnto(s.staging, dir); err != nil {
		_ = os.Remove(dir)
		return Written{}, err
	}

	written := Written{Dir: dir}
	for _, f := range files {
		written.Files = append(written.Files, filepath.Join(dir, f))
	}
	if meta.Archive != "" {
		written.Archive = filepath.Join(dir, meta.Archive)
	}
	return written, nil
}

// moveOnto renames src over the reserved, still empty, dst.
func moveOnto(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.Remove(dst); err != nil {
		return err
	}
	return os.Rename(src, dst)
}

// Abort drops everything staged. It is a no-op after Commit.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	if err := os.RemoveAll(s.staging); err != nil {
		s.writer.logger.Warn("could not remove staging dir", "dir", s.staging, "error", err)
	}
}

// Write stages and commits a complete set of results in one call.
func (w *Writer) Write(ctx context.Context, results []documentModel.LoaderResult, base string) (Written, error) {
	if err := ctx.Err(); err != nil {
		return Written{}, err
	}
	if len(results) == 0 {
		return Written{}, ErrNothingStaged
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Provenance.StandardFilename
	}
	first := results[0].Provenance
	session, err := w.Begin(base, Meta{
		AgreementId:   first.AgreementId,
		AgreementName: first.AgreementName,
		BatchId:       first.BatchId,
		Model:         first.Model,
		StartedAt:     first.GeneratedAt,
	}, names)
	if err != nil {
		return Written{}, err
	}

	for i, r := range results {
		if _, err := session.WriteLoader(i, r); err != nil {
			session.Abort()
			return Written{}, err
		}
	}
	return session.Commit()
}
