package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// processingTTL bounds how long an abandoned job (its server died) stays visible.
const processingTTL = time.Hour

// RedisRegistry stores job records as JSON in the shared cache so any server
// instance can answer status requests. Each job has a single writer, so
// read-modify-write without locking is sufficient.
type RedisRegistry struct {
	cache       cache.Cache
	expireAfter time.Duration
	now         func() time.Time
}

func NewRedisRegistry(c cache.Cache, expireAfter time.Duration) *RedisRegistry {
	if expireAfter <= 0 {
		expireAfter = DefaultExpireAfter
	}
	return &RedisRegistry{
		cache:       c,
		expireAfter: expireAfter,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisRegistry) Create(ctx context.Context, ownerID uuid.UUID) (models.JobRecord, error) {
	rec := newRecord(ownerID, r.now())
	if err := r.put(ctx, &rec); err != nil {
		return models.JobRecord{}, err
	}
	return rec, nil
}

func (r *RedisRegistry) Advance(ctx context.Context, jobID string, progress int, step string) error {
	j, err := r.load(ctx, jobID)
	if err != nil {
		return err
	}
	if !advance(j, progress, step) {
		slog.Warn("ignored job progress update", "job_id", jobID, "progress", progress, "current", j.Progress, "status", j.Status)
		return nil
	}
	return r.put(ctx, j)
}

func (r *RedisRegistry) Complete(ctx context.Context, jobID string) error {
	j, err := r.load(ctx, jobID)
	if err != nil {
		return err
	}
	if !complete(j, r.now()) {
		return nil
	}
	return r.put(ctx, j)
}

func (r *RedisRegistry) Fail(ctx context.Context, jobID string, msg string) error {
	j, err := r.load(ctx, jobID)
	if err != nil {
		return err
	}
	if !fail(j, msg, r.now()) {
		return nil
	}
	return r.put(ctx, j)
}

func (r *RedisRegistry) Get(ctx context.Context, jobID string, callerID uuid.UUID) (*models.JobRecord, error) {
	j, err := r.load(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if err := authorize(j, callerID); err != nil {
		return nil, err
	}
	return j, nil
}

func (r *RedisRegistry) load(ctx context.Context, jobID string) (*models.JobRecord, error) {
	b, found, err := r.cache.Get(ctx, cache.JobKey(jobID))
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	if !found {
		return nil, ErrJobNotFound
	}
	var j models.JobRecord
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("decode job %s: %w", jobID, err)
	}
	return &j, nil
}

func (r *RedisRegistry) put(ctx context.Context, j *models.JobRecord) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", j.JobID, err)
	}
	ttl := processingTTL
	if j.Terminal() {
		ttl = r.expireAfter
	}
	if err := r.cache.Set(ctx, cache.JobKey(j.JobID), b, ttl); err != nil {
		return fmt.Errorf("store job %s: %w", j.JobID, err)
	}
	return nil
}

var _ Registry = (*RedisRegistry)(nil)
