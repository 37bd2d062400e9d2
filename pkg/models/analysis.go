package models

import "github.com/google/uuid"

// FieldAnalysis is the per-field assessment produced during initialization.
type FieldAnalysis struct {
	FieldID         uuid.UUID        `json:"field_id"`
	FieldName       string           `json:"field_name"`
	Summary         string           `json:"summary"`
	SoilAssessment  string           `json:"soilAssessment"`
	CropSuitability string           `json:"cropSuitability"`
	Risks           []string         `json:"risks"`
	Recommendations []Recommendation `json:"recommendations"`
	AIGenerated     bool             `json:"ai_generated"`
}

// FarmAdvice is farm-wide advice combining every field analysis.
type FarmAdvice struct {
	Summary         string           `json:"summary"`
	Priorities      []string         `json:"priorities"`
	Recommendations []Recommendation `json:"recommendations"`
	AIGenerated     bool             `json:"ai_generated"`
}

// GeneratedPlan is the content an AI or template produces for a plan.
type GeneratedPlan struct {
	Tasks                []PlanTask            `json:"tasks"`
	Recommendations      []Recommendation      `json:"recommendations"`
	ResourceRequirements []ResourceRequirement `json:"resourceRequirements"`
}
