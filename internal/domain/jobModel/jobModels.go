package jobModel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Riturajvaishnav2/chat-gpt-online/internal/domain/documentModel"
)

// JobState is the per-document pipeline state.
type JobState string

const (
	StateQueued     JobState = "queued"
	StateExtracting JobState = "extracting"
	StatePrompting  JobState = "prompting"
	StateCompleting JobState = "completing"
	StateParsing    JobState = "parsing"
	StateWriting    JobState = "writing"
	StateDone       JobState = "done"
	StateFailed     JobState = "failed"

	// StateTimeout only ever appears as FailedAt.
	StateTimeout JobState = "timeout"
)

var ErrInvalidTransition = errors.New("invalid job state transition")

var transitions = map[JobState][]JobState{
	StateQueued:     {StateExtracting},
	StateExtracting: {StatePrompting},
	StatePrompting:  {StateCompleting},
	StateCompleting: {StateParsing},
	StateParsing:    {StateWriting, StateCompleting}, //completing again for the repair prompt
	StateWriting:    {StateDone},
}

func (s JobState) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// Transition reports whether a job may move from one state to another.
// Any non-terminal state may fail.
func Transition(from, to JobState) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}
	if to == StateFailed {
		return nil
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

type Job struct {
	Index        int                            `json:"index"`
	Document     documentModel.UploadedDocument `json:"document"`
	State        JobState                       `json:"state"`
	FailedAt     JobState                       `json:"failed_at,omitempty"`
	Error        *JobError                      `json:"error,omitempty"`
	ArtifactPath string                         `json:"artifact_path,omitempty"`
	RowCount     int                            `json:"row_count"`
	Confidence   documentModel.Confidence       `json:"confidence,omitempty"`
	Warnings     []string                       `json:"warnings,omitempty"`
	StartTime    time.Time                      `json:"start_time"`
	EndTime      time.Time                      `json:"end_time,omitempty"`
}

func NewJob(index int, doc documentModel.UploadedDocument) Job {
	return Job{Index: index, Document: doc, State: StateQueued}
}

func (j *Job) Advance(to JobState) error {
	if err := Transition(j.State, to); err != nil {
		return err
	}
	if j.State == StateQueued {
		j.StartTime = time.Now()
	}
	j.State = to
	if to == StateDone {
		j.EndTime = time.Now()
	}
	return nil
}

// Fail records the cause against the state the job was in.
func (j *Job) Fail(cause error) error {
	if err := Transition(j.State, StateFailed); err != nil {
		return err
	}
	j.FailedAt = j.State
	j.State = StateFailed
	jobErr := NewJobError(cause)
	j.Error = &jobErr
	j.EndTime = time.Now()
	return nil
}

func (j *Job) TimeOut() error {
	if err := j.Fail(ErrTimeout); err != nil {
		return err
	}
	j.FailedAt = StateTimeout
	return nil
}

// Status renders the state as reported to callers, e.g. "failed@extracting".
func (j Job) Status() string {
	if j.State == StateFailed {
		return string(StateFailed) + "@" + string(j.FailedAt)
	}
	return string(j.State)
}

// ReportStatus tracks an asynchronous batch from the queue to completion.
type ReportStatus string

const (
	ReportStatusQueued   ReportStatus = "QUEUED"
	ReportStatusRunning  ReportStatus = "RUNNING"
	ReportStatusComplete ReportStatus = "COMPLETE"
	ReportStatusError    ReportStatus = "Error"
)

type BatchReport struct {
	Id          string       `json:"id"`
	TraceId     string       `json:"trace_id"`
	AgreementId string       `json:"agreement_id"`
	BatchId     string       `json:"batch_id"`
	Model       string       `json:"model"`
	Status      ReportStatus `json:"status"`
	OutputDir   string       `json:"output_dir,omitempty"`
	ArchivePath string       `json:"archive_path,omitempty"`
	Jobs        []Job        `json:"jobs"`
	Error       *JobError    `json:"error,omitempty"`
	StartTime   time.Time    `json:"start_time"`
	EndTime     time.Time    `json:"end_time,omitempty"`
}

func (r BatchReport) Done() []Job {
	var done []Job
	for _, j := range r.Jobs {
		if j.State == StateDone {
			done = append(done, j)
		}
	}
	return done
}

func (r BatchReport) Failed() []Job {
	var failed []Job
	for _, j := range r.Jobs {
		if j.State == StateFailed {
			failed = append(failed, j)
		}
	}
	return failed
}

// Artifacts lists written loader files in batch order.
func (r BatchReport) Artifacts() []string {
	var paths []string
	for _, j := range r.Done() {
		if j.ArtifactPath != "" {
			paths = append(paths, j.ArtifactPath)
		}
	}
	return paths
}

// DownloadPath is the single file a caller should receive: the archive for
// multi-file batches, the lone loader otherwise.
func (r BatchReport) DownloadPath() string {
	if r.ArchivePath != "" {
		return r.ArchivePath
	}
	if a := r.Artifacts(); len(a) == 1 {
		return a[0]
	}
	return ""
}

// BatchRequest is queued for asynchronous generation.
type BatchRequest struct {
	ReportId    string    `json:"report_id"`
	TraceId     string    `json:"trace_id"`
	AgreementId string    `json:"agreement_id"`
	BatchId     string    `json:"batch_id"`
	Model       string    `json:"model"`
	CreatedTime time.Time `json:"created_time"`
}

type ReportStore interface {
	GetReport(ctx context.Context, id string) (BatchReport, bool)
	SaveReport(ctx context.Context, report BatchReport) error
	DeleteReport(ctx context.Context, id string)
}
