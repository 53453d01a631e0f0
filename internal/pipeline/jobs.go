package pipeline

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/dgallion1/docsift/internal/collection"
	"github.com/google/uuid"
)

// JobStatus represents the state of a collection job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusHarvesting JobStatus = "harvesting"
	StatusRanking    JobStatus = "ranking"
	StatusExtracting JobStatus = "extracting"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
)

// Job tracks the state of a single collection run.
type Job struct {
	mu sync.Mutex

	ID   string `json:"job_id"`
	Path string `json:"path"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	Progress Progress `json:"progress"`

	InputHash string    `json:"input_hash,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	input  *collection.Input
	result *collection.Result
	errors []string
}

// Progress tracks processing progress.
type Progress struct {
	Documents         int      `json:"documents"`
	SectionsSelected  int      `json:"sections_selected"`
	ExcerptsExtracted int      `json:"excerpts_extracted"`
	Errors            []string `json:"errors"`
}

// NewJob returns a queued job for the collection at path.
func NewJob(path string, in *collection.Input, rawInput []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Path:      path,
		Status:    StatusQueued,
		Phase:     "queued",
		Progress:  Progress{Documents: len(in.Documents)},
		InputHash: ContentHashHex(append([]byte(path+"\x00"), rawInput...)),
		CreatedAt: now,
		UpdatedAt: now,
		input:     in,
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

// FindActive returns a job with the same input hash that has not failed.
func (s *JobStore) FindActive(hash string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, job := range s.jobs {
		if job.InputHash == hash && job.CurrentStatus() != StatusFailed {
			return job
		}
	}
	return nil
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

func (j *Job) CurrentStatus() JobStatus {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.Status
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetResult stores the finished result and its counts.
func (j *Job) SetResult(res *collection.Result) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.result = res
	j.Progress.SectionsSelected = len(res.ExtractedSections)
	j.Progress.ExcerptsExtracted = len(res.SubsectionAnalysis)
	j.UpdatedAt = time.Now()
}

// Result returns the finished result, or nil while the job is running.
func (j *Job) Result() *collection.Result {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.result
}

// Input returns the validated collection input.
func (j *Job) Input() *collection.Input {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.input
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID        string    `json:"job_id"`
	Path      string    `json:"path"`
	Status    JobStatus `json:"status"`
	Phase     string    `json:"phase"`
	Progress  Progress  `json:"progress"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:     j.ID,
		Path:   j.Path,
		Status: j.Status,
		Phase:  j.Phase,
		Progress: Progress{
			Documents:         j.Progress.Documents,
			SectionsSelected:  j.Progress.SectionsSelected,
			ExcerptsExtracted: j.Progress.ExcerptsExtracted,
			Errors:            errs,
		},
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
