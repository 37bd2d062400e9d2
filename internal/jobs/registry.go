// Package jobs tracks the progress of farm initialization runs. Job records are
// transient: they expire a few minutes after reaching a terminal status.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var (
	ErrJobNotFound  = errors.New("job not found")
	ErrJobForbidden = errors.New("job belongs to another user")
)

// DefaultExpireAfter is how long a finished job stays readable.
const DefaultExpireAfter = 5 * time.Minute

// Registry stores job records. Writes for one job come from a single
// orchestrator; reads come from any number of status requests.
//
// Progress is monotonic: Advance ignores values lower than the current progress
// and any call on a terminal job.
type Registry interface {
	Create(ctx context.Context, ownerID uuid.UUID) (models.JobRecord, error)
	Advance(ctx context.Context, jobID string, progress int, step string) error
	Complete(ctx context.Context, jobID string) error
	Fail(ctx context.Context, jobID string, msg string) error
	Get(ctx context.Context, jobID string, callerID uuid.UUID) (*models.JobRecord, error)
}

// NewJobID returns an identifier of the form init_<userID>_<unixMillis>_<nonce>.
// The nonce keeps two starts in the same millisecond apart.
func NewJobID(ownerID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("init_%s_%d_%s", ownerID, now.UnixMilli(), uuid.NewString()[:8])
}

func newRecord(ownerID uuid.UUID, now time.Time) models.JobRecord {
	return models.JobRecord{
		JobID:       NewJobID(ownerID, now),
		OwnerID:     ownerID,
		Status:      models.JobStatusProcessing,
		Progress:    0,
		CurrentStep: models.StepAnalyzing,
		StartedAt:   now,
	}
}

// advance applies a progress update in place and reports whether it changed anything.
func advance(j *models.JobRecord, progress int, step string) bool {
	if j.Terminal() || progress < j.Progress {
		return false
	}
	if progress > 100 {
		progress = 100
	}
	j.Progress = progress
	if step != "" {
		j.CurrentStep = step
	}
	return true
}

func complete(j *models.JobRecord, now time.Time) bool {
	if j.Terminal() {
		return false
	}
	j.Status = models.JobStatusCompleted
	j.Progress = 100
	j.CurrentStep = models.StepCompleted
	j.CompletedAt = &now
	return true
}

// fail keeps the progress reached so far so the client can show where it stopped.
func fail(j *models.JobRecord, msg string, now time.Time) bool {
	if j.Terminal() {
		return false
	}
	j.Status = models.JobStatusFailed
	j.Error = msg
	j.CompletedAt = &now
	return true
}

func authorize(j *models.JobRecord, callerID uuid.UUID) error {
	if j.OwnerID != callerID {
		return ErrJobForbidden
	}
	return nil
}
