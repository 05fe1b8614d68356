package loader

import (
	"context"
	"errors"
	"sync"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/jobModel"
	"github.com/Riturajvaishnav2/chat-gpt-online/internal/loader/output"
)

var errFinalized = errors.New("batch already finalized")

// tracker is the shared view of a batch's jobs. Once finalized, late updates
// from still-running jobs are dropped.
type tracker struct {
	mu        sync.Mutex
	jobs      []jobModel.Job
	staged    map[int]bool
	finalized bool
}

func newTracker(docs []documentModel.UploadedDocument) *tracker {
	jobs := make([]jobModel.Job, len(docs))
	for i, d := range docs {
		jobs[i] = jobModel.NewJob(i, d)
	}
	return &tracker{jobs: jobs, staged: make(map[int]bool)}
}

func (t *tracker) get(index int) jobModel.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs[index]
}

// set records a job snapshot and reports whether the batch is still open.
func (t *tracker) set(job jobModel.Job) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		return false
	}
	t.jobs[job.Index] = job
	return true
}

// stage records a prepared loader unless the batch was finalized first. Only
// the rename into the session happens under the lock.
func (t *tracker) stage(job jobModel.Job, pending *output.Pending) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finalized {
		pending.Discard()
		return errFinalized
	}
	name, err := pending.Stage()
	if err != nil {
		return err
	}
	job.ArtifactPath = name
	t.jobs[job.Index] = job
	t.staged[job.Index] = true
	return nil
}

func (t *tracker) failAll(at jobModel.JobState, cause error) []jobModel.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.jobs {
		_ = t.jobs[i].Advance(at)
		_ = t.jobs[i].Fail(cause)
	}
	t.finalized = true
	return append([]jobModel.Job(nil), t.jobs...)
}

// finalize closes the batch. Jobs that are neither terminal nor staged are
// failed: at timeout when the deadline passed, with the cancellation otherwise.
func (t *tracker) finalize(ctxErr error) []jobModel.Job {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.finalized = true
	for i := range t.jobs {
		j := &t.jobs[i]
		if j.State.Terminal() || t.staged[i] {
			continue
		}
		if ctxErr == nil || errors.Is(ctxErr, context.DeadlineExceeded) {
			_ = j.TimeOut()
		} else {
			_ = j.Fail(ctxErr)
		}
	}
	return append([]jobModel.Job(nil), t.jobs...)
}
