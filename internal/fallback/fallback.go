// Package fallback builds structurally complete results without calling any
// external service. It backs every AI-dependent operation.
package fallback

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

const (
	predictionConfidence = 65.0
	predictionVariance   = 15.0
)

// Prediction returns a yield prediction from the crop base-yield table.
func Prediction(in models.YieldInput) models.YieldPrediction {
	base, _ := BaseYield(in.CropType)
	crop := strings.TrimSpace(in.CropType)
	if crop == "" {
		crop = "the crop"
	}

	return models.YieldPrediction{
		PredictedYield: math.Round(base*100) / 100,
		Unit:           YieldUnit(),
		Confidence:     predictionConfidence,
		Variance:       predictionVariance,
		Factors: models.YieldFactors{
			Positive: []string{
				"Established field management practices",
				"Crop suited to the declared soil type",
			},
			Negative: []string{
				"Weather variability over the season",
				"Limited soil test history",
			},
		},
		Recommendations: []models.Recommendation{
			{Category: "soil", Action: "Run a soil nutrient test before the next fertilizer application", Priority: models.PriorityHigh, Impact: "Targets fertilizer to actual deficits"},
			{Category: "irrigation", Action: "Irrigate early in the morning to reduce evaporation losses", Priority: models.PriorityMedium, Impact: "Improves water use efficiency"},
			{Category: "pest", Action: "Scout the field weekly for pests and disease", Priority: models.PriorityMedium, Impact: "Catches outbreaks before yield loss"},
		},
		RiskAssessment: models.RiskAssessment{
			Weather: models.PriorityMedium,
			Pest:    models.PriorityMedium,
			Market:  models.PriorityLow,
		},
		SeasonalAdvice: fmt.Sprintf("Monitor %s closely through the critical growth stages and adjust irrigation to rainfall.", crop),
		Sustainability: "Use crop rotation and organic matter additions to maintain long-term soil health.",
	}
}

// FieldAnalysis returns a basic templated analysis for one field.
func FieldAnalysis(f models.Field) models.FieldAnalysis {
	crop := f.CropType
	if crop == "" {
		crop = "no crop yet"
	}
	soil := "Soil test values were not provided; schedule a soil test."
	if ph, ok := f.SoilHealth.ParsePH(); ok {
		soil = fmt.Sprintf("Soil pH is %.1f.", ph)
		if ph < 5.5 || ph > 8.0 {
			soil += " This is outside the range most crops tolerate; consider amendment."
		}
	}

	return models.FieldAnalysis{
		FieldID:         f.ID,
		FieldName:       f.Name,
		Summary:         fmt.Sprintf("Field %s (%s, stage %s) has been registered for monitoring.", f.Name, crop, stageOrUnknown(f.GrowthStage)),
		SoilAssessment:  soil,
		CropSuitability: "Assess crop suitability once soil and weather data have been collected for a season.",
		Risks:           []string{"Weather variability", "Pest pressure during flowering"},
		Recommendations: []models.Recommendation{
			{Category: "monitoring", Action: "Inspect the field at least once a week", Priority: models.PriorityMedium},
		},
	}
}

// FarmRecommendations returns basic farm-wide advice.
func FarmRecommendations(fields []models.Field) models.FarmAdvice {
	return models.FarmAdvice{
		Summary: fmt.Sprintf("Your farm has %d registered field(s). Start with regular monitoring and soil testing.", len(fields)),
		Priorities: []string{
			"Establish a weekly field inspection routine",
			"Test soil on every field before the next season",
			"Keep records of irrigation and inputs",
		},
		Recommendations: []models.Recommendation{
			{Category: "planning", Action: "Create a farming plan for each planted field", Priority: models.PriorityHigh},
			{Category: "soil", Action: "Schedule soil tests for fields without recent results", Priority: models.PriorityMedium},
			{Category: "water", Action: "Review water availability before the dry season", Priority: models.PriorityMedium},
		},
	}
}

// BasicSetup returns exactly one task and one alert for a field. It is the last
// resort when farm initialization fails.
func BasicSetup(f models.Field, now time.Time) (models.Task, models.Alert) {
	task := models.Task{
		ID:           uuid.New(),
		UserID:       f.UserID,
		FieldID:      f.ID,
		Title:        fmt.Sprintf("Inspect %s", f.Name),
		Description:  "Walk the field, note crop condition and any pest or water issues.",
		Type:         "monitoring",
		Priority:     models.PriorityMedium,
		Status:       models.TaskStatusPending,
		DueDate:      now.AddDate(0, 0, 1),
		InitialSetup: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	alert := models.Alert{
		ID:           uuid.New(),
		UserID:       f.UserID,
		FieldID:      f.ID,
		Type:         models.AlertTypeGeneral,
		Severity:     models.SeverityLow,
		Title:        fmt.Sprintf("%s is ready for monitoring", f.Name),
		Message:      "Automated analysis was unavailable. Basic monitoring has been set up for this field.",
		InitialSetup: true,
		CreatedAt:    now,
	}
	return task, alert
}

func stageOrUnknown(stage string) string {
	if stage == "" {
		return "unknown"
	}
	return strings.ReplaceAll(stage, "_", " ")
}
