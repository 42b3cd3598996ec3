// Package jobs tracks dubbing jobs through the service pipeline and
// buffers progress events for polling and push subscribers.
package jobs

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/imosed/vodub/internal/domain"
)

// ErrUnknownJob is returned for operations on a job ID never created.
var ErrUnknownJob = errors.New("unknown job")

var validTransitions = map[domain.JobStatus][]domain.JobStatus{
	domain.JobQueued:       {domain.JobFetching, domain.JobFailed},
	domain.JobFetching:     {domain.JobTranscribing, domain.JobFailed},
	domain.JobTranscribing: {domain.JobTranslating, domain.JobFailed},
	domain.JobTranslating:  {domain.JobDubbing, domain.JobFailed},
	domain.JobDubbing:      {domain.JobUploading, domain.JobFailed},
	domain.JobUploading:    {domain.JobDone, domain.JobFailed},
}

// Manager holds in-flight job state. Persistence of finished jobs is
// the store's concern; the manager is the live view.
type Manager struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
}

func NewManager() *Manager {
	return &Manager{jobs: make(map[string]*domain.Job)}
}

// Create registers a new queued job and returns a snapshot of it.
func (m *Manager) Create(videoID, targetLang string) domain.Job {
	now := time.Now().UTC()
	job := &domain.Job{
		ID:         uuid.NewString(),
		VideoID:    videoID,
		TargetLang: targetLang,
		Status:     domain.JobQueued,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	return *job
}

// Transition validates and applies a status change.
func (m *Manager) Transition(id string, status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	if job.Status == status {
		return nil
	}
	if !allowed(job.Status, status) {
		return fmt.Errorf("invalid transition: %s -> %s", job.Status, status)
	}

	job.Status = status
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Fail moves the job to failed with a reason, from any state.
func (m *Manager) Fail(id, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	job.Status = domain.JobFailed
	job.Error = reason
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Complete records the finished job's asset and degradation summary.
func (m *Manager) Complete(id, audioObject, message string, skipped int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[id]
	if !ok {
		return ErrUnknownJob
	}
	if job.Status != domain.JobUploading {
		return fmt.Errorf("invalid transition: %s -> %s", job.Status, domain.JobDone)
	}

	job.Status = domain.JobDone
	job.AudioObject = audioObject
	job.Message = message
	job.Skipped = skipped
	job.UpdatedAt = time.Now().UTC()
	return nil
}

// Get returns a snapshot of the job.
func (m *Manager) Get(id string) (domain.Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	job, ok := m.jobs[id]
	if !ok {
		return domain.Job{}, false
	}
	return *job, true
}

func allowed(from, to domain.JobStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
