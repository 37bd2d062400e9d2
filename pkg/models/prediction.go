package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	PredictionStatusPending    = "pending"
	PredictionStatusProcessing = "processing"
	PredictionStatusCompleted  = "completed"
	PredictionStatusFailed     = "failed"
)

var predictionTransitions = map[string][]string{
	PredictionStatusPending:    {PredictionStatusProcessing, PredictionStatusCompleted, PredictionStatusFailed},
	PredictionStatusProcessing: {PredictionStatusCompleted, PredictionStatusFailed},
}

// YieldInput is what a yield prediction is computed from.
type YieldInput struct {
	FieldID        *uuid.UUID `json:"fieldId,omitempty"`
	CropType       string     `json:"cropType" validate:"required"`
	Area           float64    `json:"area"     validate:"gte=0"`
	AreaUnit       string     `json:"areaUnit"`
	GrowthStage    string     `json:"growthStage"`
	SoilType       string     `json:"soilType"`
	SoilHealth     SoilHealth `json:"soilHealth"`
	IrrigationType string     `json:"irrigationType"`
	PlantingDate   string     `json:"plantingDate,omitempty"`
	Weather        *Weather   `json:"weather,omitempty"`
}

// YieldFactors lists what pushes the yield up or down.
type YieldFactors struct {
	Positive []string `json:"positive"`
	Negative []string `json:"negative"`
}

// RiskAssessment rates risk per category as low, medium or high.
type RiskAssessment struct {
	Weather string `json:"weather"`
	Pest    string `json:"pest"`
	Market  string `json:"market"`
}

// YieldPrediction is the normalized prediction object. Every field is always present.
type YieldPrediction struct {
	PredictedYield  float64          `json:"predictedYield"`
	Unit            string           `json:"unit"`
	Confidence      float64          `json:"confidence"`
	Variance        float64          `json:"variance"`
	Factors         YieldFactors     `json:"factors"`
	Recommendations []Recommendation `json:"recommendations"`
	RiskAssessment  RiskAssessment   `json:"riskAssessment"`
	SeasonalAdvice  string           `json:"seasonalAdvice"`
	Sustainability  string           `json:"sustainability"`
}

// Prediction is a persisted yield prediction.
type Prediction struct {
	ID           uuid.UUID        `json:"id"`
	UserID       uuid.UUID        `json:"user_id"`
	FieldID      *uuid.UUID       `json:"field_id,omitempty"`
	Input        YieldInput       `json:"input"`
	RawResponse  string           `json:"raw_response,omitempty"`
	Prediction   *YieldPrediction `json:"prediction,omitempty"`
	Status       string           `json:"status"`
	AIGenerated  bool             `json:"ai_generated"`
	InitialSetup bool             `json:"initial_setup"`
	Error        string           `json:"error,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Terminal reports whether the prediction can no longer change.
func (p *Prediction) Terminal() bool {
	return p.Status == PredictionStatusCompleted || p.Status == PredictionStatusFailed
}

// TransitionTo moves the prediction to next or returns ErrInvalidTransition.
func (p *Prediction) TransitionTo(next string) error {
	for _, s := range predictionTransitions[p.Status] {
		if s == next {
			p.Status = next
			return nil
		}
	}
	return fmt.Errorf("%w: prediction %s -> %s", ErrInvalidTransition, p.Status, next)
}
