package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// MemoryRegistry keeps job records in process memory. A server restart loses
// every in-flight job; clients then time out.
type MemoryRegistry struct {
	mu          sync.RWMutex
	jobs        map[string]*models.JobRecord
	expireAfter time.Duration
	now         func() time.Time
}

func NewMemoryRegistry(expireAfter time.Duration) *MemoryRegistry {
	if expireAfter <= 0 {
		expireAfter = DefaultExpireAfter
	}
	return &MemoryRegistry{
		jobs:        make(map[string]*models.JobRecord),
		expireAfter: expireAfter,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *MemoryRegistry) Create(_ context.Context, ownerID uuid.UUID) (models.JobRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := newRecord(ownerID, r.now())
	r.jobs[rec.JobID] = &rec
	return rec, nil
}

func (r *MemoryRegistry) Advance(_ context.Context, jobID string, progress int, step string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if !advance(j, progress, step) {
		slog.Warn("ignored job progress update", "job_id", jobID, "progress", progress, "current", j.Progress, "status", j.Status)
	}
	return nil
}

func (r *MemoryRegistry) Complete(_ context.Context, jobID string) error {
	return r.finish(jobID, func(j *models.JobRecord) bool { return complete(j, r.now()) })
}

func (r *MemoryRegistry) Fail(_ context.Context, jobID string, msg string) error {
	return r.finish(jobID, func(j *models.JobRecord) bool { return fail(j, msg, r.now()) })
}

func (r *MemoryRegistry) finish(jobID string, apply func(*models.JobRecord) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return ErrJobNotFound
	}
	if apply(j) {
		time.AfterFunc(r.expireAfter, func() { r.expire(jobID) })
	}
	return nil
}

func (r *MemoryRegistry) expire(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, jobID)
}

// Get returns a copy of the record so callers never observe later updates.
func (r *MemoryRegistry) Get(_ context.Context, jobID string, callerID uuid.UUID) (*models.JobRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	j, ok := r.jobs[jobID]
	if !ok {
		return nil, ErrJobNotFound
	}
	if err := authorize(j, callerID); err != nil {
		return nil, err
	}
	c := *j
	return &c, nil
}

var _ Registry = (*MemoryRegistry)(nil)
