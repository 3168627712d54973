package pipeline

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/codetransmute/internal/codetree"
)

// ErrQueueFull is returned by Submit when no queue slot is free.
var ErrQueueFull = errors.New("job queue is full")

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusScanning   JobStatus = "scanning"
	StatusExtracting JobStatus = "extracting"
	StatusCompleted  JobStatus = "completed"
	StatusPartial    JobStatus = "partial"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the structural analysis of a workspace, or of one directory
// inside it.
type Job struct {
	mu sync.Mutex

	ID     string `json:"job_id"`
	Prefix string `json:"prefix"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	files  []FileSummary
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	FilesTotal     int                   `json:"files_total"`
	FilesProcessed int                   `json:"files_processed"`
	Sources        int                   `json:"sources"`
	Kinds          map[codetree.Kind]int `json:"kinds"`
	Errors         []string              `json:"errors"`
}

// FileSummary is the structural census of one file.
type FileSummary struct {
	Path    string                `json:"path"`
	Sources int                   `json:"sources"`
	Kinds   map[codetree.Kind]int `json:"kinds"`
}

// NewJob returns a queued job covering files under prefix ("" for all).
func NewJob(prefix string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Prefix:    prefix,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetFilesTotal records how many files the scan found.
func (j *Job) SetFilesTotal(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesTotal = n
	j.UpdatedAt = time.Now()
}

// IncrFilesProcessed counts a file as handled, whether or not it succeeded.
func (j *Job) IncrFilesProcessed() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.FilesProcessed++
	j.UpdatedAt = time.Now()
}

// AddFile merges one file's census into the job totals.
func (j *Job) AddFile(f FileSummary) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.Progress.Kinds == nil {
		j.Progress.Kinds = make(map[codetree.Kind]int)
	}
	for k, n := range f.Kinds {
		j.Progress.Kinds[k] += n
	}
	j.Progress.Sources += f.Sources
	j.files = append(j.files, f)
	j.UpdatedAt = time.Now()
}

// Files returns the per-file summaries recorded so far.
func (j *Job) Files() []FileSummary {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]FileSummary, len(j.files))
	copy(out, j.files)
	return out
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID       string        `json:"job_id"`
	Prefix   string        `json:"prefix"`
	Status   JobStatus     `json:"status"`
	Phase    string        `json:"phase"`
	Progress Progress      `json:"progress"`
	Files    []FileSummary `json:"files,omitempty"`
}

// Snapshot returns a JSON-safe copy of the job state. Per-file summaries
// are included once the job has finished.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := j.Progress.Errors
	if errs == nil {
		errs = []string{}
	}
	kinds := maps.Clone(j.Progress.Kinds)
	if kinds == nil {
		kinds = map[codetree.Kind]int{}
	}
	snap := JobSnapshot{
		ID:     j.ID,
		Prefix: j.Prefix,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			FilesTotal:     j.Progress.FilesTotal,
			FilesProcessed: j.Progress.FilesProcessed,
			Sources:        j.Progress.Sources,
			Kinds:          kinds,
			Errors:         errs,
		},
	}
	if j.Status.Done() {
		snap.Files = make([]FileSummary, len(j.files))
		copy(snap.Files, j.files)
	}
	return snap
}

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusPartial || s == StatusFailed
}
