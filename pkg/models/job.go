package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Initialization steps, in order.
const (
	StepAnalyzing       = "analyzing"
	StepRecommendations = "recommendations"
	StepTasks           = "tasks"
	StepAlerts          = "alerts"
	StepCompleted       = "completed"
)

// JobRecord tracks a farm initialization run. It lives in the job registry only;
// the persisted tasks, alerts and predictions are the source of truth for end state.
// The client polls GET /api/v1/initialization-status/{jobID} until status is terminal.
type JobRecord struct {
	JobID       string     `json:"job_id"`
	OwnerID     uuid.UUID  `json:"owner_id"`
	Status      string     `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"current_step"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the job has finished.
func (j *JobRecord) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
