package jobs_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/kiranshivaraju/farmdesk/internal/jobs"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

func registries(expireAfter time.Duration) map[string]jobs.Registry {
	return map[string]jobs.Registry{
		"memory": jobs.NewMemoryRegistry(expireAfter),
		"redis":  jobs.NewRedisRegistry(cache.NewMemoryCache(), expireAfter),
	}
}

func TestNewJobID(t *testing.T) {
	owner := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	now := time.UnixMilli(1700000000123)

	id := jobs.NewJobID(owner, now)
	assert.Regexp(t, `^init_11111111-2222-3333-4444-555555555555_1700000000123_[0-9a-f]{8}$`, id)
	assert.NotEqual(t, id, jobs.NewJobID(owner, now))
}

func TestRegistry_SameOwnerStartsAreDistinct(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(time.Minute) {
		t.Run(name, func(t *testing.T) {
			owner := uuid.New()
			first, err := reg.Create(ctx, owner)
			require.NoError(t, err)
			second, err := reg.Create(ctx, owner)
			require.NoError(t, err)
			require.NotEqual(t, first.JobID, second.JobID)

			require.NoError(t, reg.Fail(ctx, first.JobID, "weather service down"))

			got, err := reg.Get(ctx, second.JobID, owner)
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusProcessing, got.Status)

			got, err = reg.Get(ctx, first.JobID, owner)
			require.NoError(t, err)
			assert.Equal(t, models.JobStatusFailed, got.Status)
		})
	}
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(time.Minute) {
		t.Run(name, func(t *testing.T) {
			owner := uuid.New()

			t.Run("create starts processing at zero", func(t *testing.T) {
				rec, err := reg.Create(ctx, owner)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(rec.JobID, "init_"+owner.String()+"_"))
				assert.Equal(t, models.JobStatusProcessing, rec.Status)
				assert.Equal(t, 0, rec.Progress)
				assert.Equal(t, models.StepAnalyzing, rec.CurrentStep)

				got, err := reg.Get(ctx, rec.JobID, owner)
				require.NoError(t, err)
				assert.Equal(t, rec.JobID, got.JobID)
			})

			t.Run("progress never decreases", func(t *testing.T) {
				rec, err := reg.Create(ctx, uuid.New())
				require.NoError(t, err)

				require.NoError(t, reg.Advance(ctx, rec.JobID, 45, models.StepAnalyzing))
				require.NoError(t, reg.Advance(ctx, rec.JobID, 20, models.StepRecommendations))

				got, err := reg.Get(ctx, rec.JobID, rec.OwnerID)
				require.NoError(t, err)
				assert.Equal(t, 45, got.Progress)
				assert.Equal(t, models.StepAnalyzing, got.CurrentStep)

				require.NoError(t, reg.Advance(ctx, rec.JobID, 70, models.StepRecommendations))
				got, err = reg.Get(ctx, rec.JobID, rec.OwnerID)
				require.NoError(t, err)
				assert.Equal(t, 70, got.Progress)
				assert.Equal(t, models.StepRecommendations, got.CurrentStep)
			})

			t.Run("complete is terminal", func(t *testing.T) {
				rec, err := reg.Create(ctx, uuid.New())
				require.NoError(t, err)
				require.NoError(t, reg.Advance(ctx, rec.JobID, 95, models.StepAlerts))
				require.NoError(t, reg.Complete(ctx, rec.JobID))

				require.NoError(t, reg.Advance(ctx, rec.JobID, 96, models.StepTasks))
				require.NoError(t, reg.Fail(ctx, rec.JobID, "late failure"))

				got, err := reg.Get(ctx, rec.JobID, rec.OwnerID)
				require.NoError(t, err)
				assert.Equal(t, models.JobStatusCompleted, got.Status)
				assert.Equal(t, 100, got.Progress)
				assert.Equal(t, models.StepCompleted, got.CurrentStep)
				assert.Empty(t, got.Error)
				assert.NotNil(t, got.CompletedAt)
			})

			t.Run("fail keeps progress", func(t *testing.T) {
				rec, err := reg.Create(ctx, uuid.New())
				require.NoError(t, err)
				require.NoError(t, reg.Advance(ctx, rec.JobID, 45, models.StepAnalyzing))
				require.NoError(t, reg.Fail(ctx, rec.JobID, "store unavailable"))

				got, err := reg.Get(ctx, rec.JobID, rec.OwnerID)
				require.NoError(t, err)
				assert.Equal(t, models.JobStatusFailed, got.Status)
				assert.Equal(t, 45, got.Progress)
				assert.Equal(t, "store unavailable", got.Error)
			})

			t.Run("other users are forbidden", func(t *testing.T) {
				rec, err := reg.Create(ctx, uuid.New())
				require.NoError(t, err)

				_, err = reg.Get(ctx, rec.JobID, uuid.New())
				assert.ErrorIs(t, err, jobs.ErrJobForbidden)
			})

			t.Run("unknown job", func(t *testing.T) {
				_, err := reg.Get(ctx, "init_missing_1", owner)
				assert.ErrorIs(t, err, jobs.ErrJobNotFound)
				assert.ErrorIs(t, reg.Advance(ctx, "init_missing_1", 10, models.StepAnalyzing), jobs.ErrJobNotFound)
				assert.ErrorIs(t, reg.Complete(ctx, "init_missing_1"), jobs.ErrJobNotFound)
			})
		})
	}
}

func TestRegistry_ExpiresFinishedJobs(t *testing.T) {
	ctx := context.Background()

	for name, reg := range registries(50 * time.Millisecond) {
		t.Run(name, func(t *testing.T) {
			rec, err := reg.Create(ctx, uuid.New())
			require.NoError(t, err)
			require.NoError(t, reg.Complete(ctx, rec.JobID))

			_, err = reg.Get(ctx, rec.JobID, rec.OwnerID)
			require.NoError(t, err)

			assert.Eventually(t, func() bool {
				_, err := reg.Get(ctx, rec.JobID, rec.OwnerID)
				return err == jobs.ErrJobNotFound
			}, 2*time.Second, 20*time.Millisecond)
		})
	}
}

func TestMemoryRegistry_GetReturnsCopy(t *testing.T) {
	ctx := context.Background()
	reg := jobs.NewMemoryRegistry(time.Minute)

	rec, err := reg.Create(ctx, uuid.New())
	require.NoError(t, err)

	got, err := reg.Get(ctx, rec.JobID, rec.OwnerID)
	require.NoError(t, err)
	got.Progress = 99

	again, err := reg.Get(ctx, rec.JobID, rec.OwnerID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Progress)
}
