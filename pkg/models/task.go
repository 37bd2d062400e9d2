package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in-progress"
	TaskStatusCompleted  = "completed"
	TaskStatusSkipped    = "skipped"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

var validTaskStatuses = map[string]bool{
	TaskStatusPending:    true,
	TaskStatusInProgress: true,
	TaskStatusCompleted:  true,
	TaskStatusSkipped:    true,
}

// ValidTaskStatus reports whether s is a known task status.
func ValidTaskStatus(s string) bool { return validTaskStatuses[s] }

// Task is a standalone farm task, created by initialization or the user.
type Task struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	FieldID      uuid.UUID `json:"field_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Type         string    `json:"type"`
	Priority     string    `json:"priority"`
	Status       string    `json:"status"`
	DueDate      time.Time `json:"due_date"`
	AIGenerated  bool      `json:"ai_generated"`
	InitialSetup bool      `json:"initial_setup"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
