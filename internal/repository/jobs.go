package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cinemacal/cinemacal-back/internal/domain"
)

var ErrNotFound = errors.New("resource not found")

// JobsRepository abstracts scrape job persistence.
type JobsRepository interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	UpdateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
}

// MemoryJobsRepository stores jobs in memory. It is the fallback when no
// database is configured; terminal jobs older than the TTL are swept so the
// map does not grow without bound.
type MemoryJobsRepository struct {
	mu   sync.RWMutex
	jobs map[string]*domain.Job
	ttl  time.Duration
}

func NewMemoryJobsRepository(ttl time.Duration) *MemoryJobsRepository {
	return &MemoryJobsRepository{
		jobs: make(map[string]*domain.Job),
		ttl:  ttl,
	}
}

func (r *MemoryJobsRepository) CreateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sweepLocked(time.Now())
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) UpdateJob(_ context.Context, job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[job.ID]; !ok {
		return ErrNotFound
	}
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *MemoryJobsRepository) GetJob(_ context.Context, jobID string) (*domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneJob(job), nil
}

func (r *MemoryJobsRepository) sweepLocked(now time.Time) {
	if r.ttl <= 0 {
		return
	}
	for id, job := range r.jobs {
		if job.Status.Terminal() && now.Sub(job.UpdatedAt) > r.ttl {
			delete(r.jobs, id)
		}
	}
}

func cloneJob(job *domain.Job) *domain.Job {
	if job == nil {
		return nil
	}
	clone := *job
	clone.Screenings = append([]domain.Screening(nil), job.Screenings...)
	return &clone
}
