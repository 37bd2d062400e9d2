package advisor

import (
	"fmt"
	"strings"
	"time"

	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

func describeField(f models.Field) string {
	var b strings.Builder
	fmt.Fprintf(&b, "- Name: %s\n", f.Name)
	fmt.Fprintf(&b, "- Area: %.2f %s\n", f.Area, f.AreaUnit)
	fmt.Fprintf(&b, "- Crop: %s (growth stage: %s)\n", orUnknown(f.CropType), orUnknown(f.GrowthStage))
	fmt.Fprintf(&b, "- Soil type: %s\n", orUnknown(f.SoilType))
	fmt.Fprintf(&b, "- Soil health: pH %s, N %s, P %s, K %s, organic matter %s\n",
		orUnknown(f.SoilHealth.PH), orUnknown(f.SoilHealth.Nitrogen), orUnknown(f.SoilHealth.Phosphorus),
		orUnknown(f.SoilHealth.Potassium), orUnknown(f.SoilHealth.OrganicMatter))
	fmt.Fprintf(&b, "- Irrigation: %s, water availability %s\n", orUnknown(f.IrrigationType), orUnknown(f.WaterAvailability))
	return b.String()
}

func describeWeather(w *models.Weather) string {
	if w == nil {
		return "Current weather: unavailable\n"
	}
	return fmt.Sprintf("Current weather: %.1f°C, humidity %.0f%%, rainfall %.1f mm, wind %.1f m/s, %s\n",
		w.Temperature, w.Humidity, w.Rainfall, w.WindSpeed, w.Conditions)
}

func fieldAnalysisPrompt(f models.Field, w *models.Weather) string {
	return "Analyze this farm field for a smallholder farmer.\n\n" +
		"Field:\n" + describeField(f) + "\n" + describeWeather(w) + `
Respond with a single JSON object:
{
  "summary": "two or three sentences",
  "soilAssessment": "assessment of the soil values",
  "cropSuitability": "how well the crop suits this field",
  "risks": ["risk", "..."],
  "recommendations": [{"category": "soil|water|pest|crop|general", "action": "what to do", "priority": "low|medium|high", "impact": "expected effect"}]
}`
}

func farmAdvicePrompt(user models.User, analyses []models.FieldAnalysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Give farm-wide advice to a farmer in %s, %s using %s farming.\n\n",
		orUnknown(user.Location.City), orUnknown(user.Location.Country), orUnknown(user.FarmingMethod))
	b.WriteString("Field analyses:\n")
	for _, a := range analyses {
		fmt.Fprintf(&b, "- %s: %s\n", a.FieldName, a.Summary)
	}
	b.WriteString(`
Respond with a single JSON object:
{
  "summary": "overall assessment",
  "priorities": ["top priority", "..."],
  "recommendations": [{"category": "...", "action": "...", "priority": "low|medium|high", "impact": "..."}]
}`)
	return b.String()
}

func yieldPrompt(in models.YieldInput) string {
	var b strings.Builder
	b.WriteString("Predict the crop yield for these conditions.\n\n")
	fmt.Fprintf(&b, "- Crop: %s (growth stage: %s)\n", in.CropType, orUnknown(in.GrowthStage))
	fmt.Fprintf(&b, "- Area: %.2f %s\n", in.Area, orUnknown(in.AreaUnit))
	fmt.Fprintf(&b, "- Soil type: %s, pH %s, N %s, P %s, K %s\n", orUnknown(in.SoilType),
		orUnknown(in.SoilHealth.PH), orUnknown(in.SoilHealth.Nitrogen), orUnknown(in.SoilHealth.Phosphorus), orUnknown(in.SoilHealth.Potassium))
	fmt.Fprintf(&b, "- Irrigation: %s\n", orUnknown(in.IrrigationType))
	if in.PlantingDate != "" {
		fmt.Fprintf(&b, "- Planted: %s\n", in.PlantingDate)
	}
	b.WriteString(describeWeather(in.Weather))
	b.WriteString(`
Respond with a single JSON object:
{
  "predictedYield": number (tons per hectare),
  "unit": "tons/hectare",
  "confidence": number 0-100,
  "variance": number (percent),
  "factors": {"positive": ["..."], "negative": ["..."]},
  "recommendations": [{"category": "...", "action": "...", "priority": "low|medium|high", "impact": "..."}],
  "riskAssessment": {"weather": "low|medium|high", "pest": "low|medium|high", "market": "low|medium|high"},
  "seasonalAdvice": "...",
  "sustainability": "..."
}`)
	return b.String()
}

func planPrompt(req PlanRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s farming plan titled %q.\n\n", req.PlanType, req.Title)
	b.WriteString("Field:\n")
	b.WriteString(describeField(req.Field))
	fmt.Fprintf(&b, "\nThe plan starts on %s and lasts %d days. Priority: %s.\n",
		req.Start.Format(time.DateOnly), req.Duration, orUnknown(req.Priority))
	if len(req.Objectives) > 0 {
		fmt.Fprintf(&b, "Objectives: %s\n", strings.Join(req.Objectives, "; "))
	}
	fmt.Fprintf(&b, `
Respond with a single JSON object:
{
  "tasks": [{"title": "...", "description": "...", "type": "%s", "priority": "low|medium|high", "dayOffset": days after start (0-%d), "resources": ["..."], "instructions": "..."}],
  "recommendations": [{"category": "...", "action": "...", "priority": "low|medium|high", "impact": "..."}],
  "resourceRequirements": [{"resource": "...", "quantity": "...", "timing": "..."}]
}`, req.PlanType, req.Duration)
	return b.String()
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.ReplaceAll(s, "_", " ")
}
