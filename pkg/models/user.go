package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InitStatusPending    = "pending"
	InitStatusInProgress = "in_progress"
	InitStatusCompleted  = "completed"
	InitStatusFailed     = "failed"
)

// Location is where a farm is, used for weather lookups.
type Location struct {
	City    string  `json:"city"`
	Country string  `json:"country"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// User is a farmer account. InitializationStatus drives whether the UI may leave
// onboarding; it is updated by the initialization job, not by the job record itself.
type User struct {
	ID                   uuid.UUID   `json:"id"`
	Email                string      `json:"email"`
	Name                 string      `json:"name"`
	PasswordHash         string      `json:"-"`
	Location             Location    `json:"location"`
	FarmingMethod        string      `json:"farming_method"`
	InitializationStatus string      `json:"initialization_status"`
	InitializedAt        *time.Time  `json:"initialized_at,omitempty"`
	FarmAdvice           *FarmAdvice `json:"farm_advice,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}
