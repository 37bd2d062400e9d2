package models

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

const (
	PlanStatusDraft      = "draft"
	PlanStatusProcessing = "processing"
	PlanStatusActive     = "active"
	PlanStatusPaused     = "paused"
	PlanStatusCompleted  = "completed"
	PlanStatusCancelled  = "cancelled"
)

const (
	PlanTypeIrrigation     = "irrigation"
	PlanTypeFertilizer     = "fertilizer"
	PlanTypePestControl    = "pest-control"
	PlanTypeCompleteSeason = "complete-season"
	PlanTypeCustom         = "custom"
)

// ErrInvalidTransition is returned when a status change is not in the transition table.
var ErrInvalidTransition = errors.New("invalid status transition")

var planTransitions = map[string][]string{
	PlanStatusDraft:      {PlanStatusProcessing, PlanStatusActive, PlanStatusCancelled},
	PlanStatusProcessing: {PlanStatusActive, PlanStatusDraft},
	PlanStatusActive:     {PlanStatusPaused, PlanStatusCompleted, PlanStatusCancelled},
	PlanStatusPaused:     {PlanStatusActive, PlanStatusCancelled},
}

// PlanTask is a task embedded in a plan.
type PlanTask struct {
	ID            uuid.UUID  `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Type          string     `json:"type"`
	Priority      string     `json:"priority"`
	Status        string     `json:"status"`
	ScheduledDate time.Time  `json:"scheduled_date"`
	Resources     []string   `json:"resources,omitempty"`
	Instructions  string     `json:"instructions,omitempty"`
	AIGenerated   bool       `json:"ai_generated"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// Recommendation is a single piece of advice, used by plans and predictions.
type Recommendation struct {
	Category string `json:"category"`
	Action   string `json:"action"`
	Priority string `json:"priority"`
	Impact   string `json:"impact,omitempty"`
}

// ResourceRequirement is an input a plan needs (water, fertilizer, labour...).
type ResourceRequirement struct {
	Resource string `json:"resource"`
	Quantity string `json:"quantity"`
	Timing   string `json:"timing,omitempty"`
}

// PlanProgress is derived from the task list; never set it by hand.
type PlanProgress struct {
	CompletedTasks int `json:"completed_tasks"`
	TotalTasks     int `json:"total_tasks"`
	Percentage     int `json:"percentage"`
}

// Plan is a farming plan for one field.
type Plan struct {
	ID                   uuid.UUID             `json:"id"`
	UserID               uuid.UUID             `json:"user_id"`
	FieldID              uuid.UUID             `json:"field_id"`
	Title                string                `json:"title"`
	PlanType             string                `json:"plan_type"`
	Status               string                `json:"status"`
	Priority             string                `json:"priority"`
	Objectives           []string              `json:"objectives,omitempty"`
	StartDate            time.Time             `json:"start_date"`
	Duration             int                   `json:"duration"`
	EndDate              time.Time             `json:"end_date"`
	Tasks                []PlanTask            `json:"tasks"`
	AIRecommendations    []Recommendation      `json:"ai_recommendations"`
	ResourceRequirements []ResourceRequirement `json:"resource_requirements"`
	Progress             PlanProgress          `json:"progress"`
	Notes                string                `json:"notes,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
	UpdatedAt            time.Time             `json:"updated_at"`
}

// RecomputeProgress derives Progress from Tasks.
func (p *Plan) RecomputeProgress() {
	completed := 0
	for _, t := range p.Tasks {
		if t.Status == TaskStatusCompleted {
			completed++
		}
	}
	p.Progress = ComputeProgress(completed, len(p.Tasks))
}

// ComputeProgress returns round(100*completed/total), 0 when total is 0.
func ComputeProgress(completed, total int) PlanProgress {
	pct := 0
	if total > 0 {
		pct = int(math.Round(100 * float64(completed) / float64(total)))
	}
	return PlanProgress{CompletedTasks: completed, TotalTasks: total, Percentage: pct}
}

// CanTransition reports whether the plan may move from its current status to next.
func (p *Plan) CanTransition(next string) bool {
	for _, s := range planTransitions[p.Status] {
		if s == next {
			return true
		}
	}
	return false
}

// TransitionTo moves the plan to next or returns ErrInvalidTransition.
func (p *Plan) TransitionTo(next string) error {
	if !p.CanTransition(next) {
		return fmt.Errorf("%w: plan %s -> %s", ErrInvalidTransition, p.Status, next)
	}
	p.Status = next
	return nil
}

// AppendNote adds a line to the plan's notes.
func (p *Plan) AppendNote(note string) {
	if p.Notes == "" {
		p.Notes = note
		return
	}
	p.Notes += "\n\n" + note
}

// IsReady reports whether generation has finished and the plan can be shown.
func (p *Plan) IsReady() bool {
	return p.Status != PlanStatusProcessing && p.Status != PlanStatusDraft
}

// AllTasksDone reports whether every task is completed or skipped.
func (p *Plan) AllTasksDone() bool {
	if len(p.Tasks) == 0 {
		return false
	}
	for _, t := range p.Tasks {
		if t.Status != TaskStatusCompleted && t.Status != TaskStatusSkipped {
			return false
		}
	}
	return true
}
