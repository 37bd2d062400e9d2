package advisor

import (
	"github.com/kiranshivaraju/farmdesk/internal/coerce"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var levels = []string{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}

func recommendationFields() []coerce.FieldSpec {
	return []coerce.FieldSpec{
		{Name: "category", Kind: coerce.String, Default: "general"},
		{Name: "action", Kind: coerce.String, Required: true},
		{Name: "priority", Kind: coerce.Enum, Enum: levels, Default: models.PriorityMedium},
		{Name: "impact", Kind: coerce.String},
	}
}

func recommendationMaps(recs []models.Recommendation) []map[string]any {
	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, map[string]any{
			"category": r.Category,
			"action":   r.Action,
			"priority": r.Priority,
			"impact":   r.Impact,
		})
	}
	return out
}

// fieldAnalysisSchema uses the templated analysis for defaults so a partial
// answer is completed with the same text the fallback would show.
func fieldAnalysisSchema(fb models.FieldAnalysis) coerce.Schema {
	return coerce.Schema{
		{Name: "summary", Kind: coerce.String, Default: fb.Summary, Required: true},
		{Name: "soilAssessment", Kind: coerce.String, Default: fb.SoilAssessment},
		{Name: "cropSuitability", Kind: coerce.String, Default: fb.CropSuitability},
		{Name: "risks", Kind: coerce.StringArray, Default: fb.Risks},
		{Name: "recommendations", Kind: coerce.ObjectArray, Fields: recommendationFields(), Default: recommendationMaps(fb.Recommendations)},
	}
}

func farmAdviceSchema(fb models.FarmAdvice) coerce.Schema {
	return coerce.Schema{
		{Name: "summary", Kind: coerce.String, Default: fb.Summary, Required: true},
		{Name: "priorities", Kind: coerce.StringArray, Default: fb.Priorities},
		{Name: "recommendations", Kind: coerce.ObjectArray, Fields: recommendationFields(), Default: recommendationMaps(fb.Recommendations)},
	}
}

func yieldSchema(fb models.YieldPrediction) coerce.Schema {
	return coerce.Schema{
		{Name: "predictedYield", Kind: coerce.Number, Default: fb.PredictedYield, Min: coerce.Float(0), Required: true},
		{Name: "unit", Kind: coerce.String, Default: fb.Unit},
		{Name: "confidence", Kind: coerce.Number, Default: fb.Confidence, Min: coerce.Float(0), Max: coerce.Float(100)},
		{Name: "variance", Kind: coerce.Number, Default: fb.Variance, Min: coerce.Float(0)},
		{Name: "factors", Kind: coerce.Object, Fields: []coerce.FieldSpec{
			{Name: "positive", Kind: coerce.StringArray, Default: fb.Factors.Positive},
			{Name: "negative", Kind: coerce.StringArray, Default: fb.Factors.Negative},
		}},
		{Name: "recommendations", Kind: coerce.ObjectArray, Fields: recommendationFields(), Default: recommendationMaps(fb.Recommendations)},
		{Name: "riskAssessment", Kind: coerce.Object, Fields: []coerce.FieldSpec{
			{Name: "weather", Kind: coerce.Enum, Enum: levels, Default: fb.RiskAssessment.Weather},
			{Name: "pest", Kind: coerce.Enum, Enum: levels, Default: fb.RiskAssessment.Pest},
			{Name: "market", Kind: coerce.Enum, Enum: levels, Default: fb.RiskAssessment.Market},
		}},
		{Name: "seasonalAdvice", Kind: coerce.String, Default: fb.SeasonalAdvice},
		{Name: "sustainability", Kind: coerce.String, Default: fb.Sustainability},
	}
}

func planSchema(planType string, duration int) coerce.Schema {
	return coerce.Schema{
		{Name: "tasks", Kind: coerce.ObjectArray, Required: true, Fields: []coerce.FieldSpec{
			{Name: "title", Kind: coerce.String, Required: true},
			{Name: "description", Kind: coerce.String},
			{Name: "type", Kind: coerce.String, Default: planType},
			{Name: "priority", Kind: coerce.Enum, Enum: levels, Default: models.PriorityMedium},
			{Name: "dayOffset", Kind: coerce.Number, Min: coerce.Float(0), Max: coerce.Float(float64(duration))},
			{Name: "resources", Kind: coerce.StringArray},
			{Name: "instructions", Kind: coerce.String},
		}},
		{Name: "recommendations", Kind: coerce.ObjectArray, Fields: recommendationFields()},
		{Name: "resourceRequirements", Kind: coerce.ObjectArray, Fields: []coerce.FieldSpec{
			{Name: "resource", Kind: coerce.String, Required: true},
			{Name: "quantity", Kind: coerce.String, Default: "as needed"},
			{Name: "timing", Kind: coerce.String},
		}},
	}
}
