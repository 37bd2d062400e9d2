package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertTypeWeather    = "weather"
	AlertTypePest       = "pest"
	AlertTypeSoil       = "soil"
	AlertTypeIrrigation = "irrigation"
	AlertTypeGeneral    = "general"
)

const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a notice shown on the farmer's dashboard.
type Alert struct {
	ID           uuid.UUID `json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	FieldID      uuid.UUID `json:"field_id"`
	Type         string    `json:"type"`
	Severity     string    `json:"severity"`
	Title        string    `json:"title"`
	Message      string    `json:"message"`
	Read         bool      `json:"read"`
	AIGenerated  bool      `json:"ai_generated"`
	InitialSetup bool      `json:"initial_setup"`
	CreatedAt    time.Time `json:"created_at"`
}
