package fallback_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/internal/fallback"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestPrediction_AlwaysComplete(t *testing.T) {
	required := []string{
		"predictedYield", "unit", "confidence", "variance", "factors",
		"recommendations", "riskAssessment", "seasonalAdvice", "sustainability",
	}

	for _, crop := range []string{"wheat", "Maize", "rice", "dragonfruit", "", "  TOMATO "} {
		t.Run(crop, func(t *testing.T) {
			p := fallback.Prediction(models.YieldInput{CropType: crop})

			b, err := json.Marshal(p)
			require.NoError(t, err)
			var m map[string]any
			require.NoError(t, json.Unmarshal(b, &m))
			for _, key := range required {
				assert.Contains(t, m, key)
			}

			assert.Greater(t, p.PredictedYield, 0.0)
			assert.NotEmpty(t, p.Unit)
			assert.NotEmpty(t, p.Factors.Positive)
			assert.NotEmpty(t, p.Factors.Negative)
			assert.NotEmpty(t, p.Recommendations)
			assert.NotEmpty(t, p.RiskAssessment.Weather)
			assert.NotEmpty(t, p.SeasonalAdvice)
			assert.NotEmpty(t, p.Sustainability)
		})
	}
}

func TestBaseYield(t *testing.T) {
	y, ok := fallback.BaseYield("Wheat")
	assert.True(t, ok)
	assert.Equal(t, 3.5, y)

	y, ok = fallback.BaseYield("unobtainium")
	assert.False(t, ok)
	assert.Equal(t, 3.0, y)
	assert.Equal(t, "tons/hectare", fallback.YieldUnit())
}

func TestPlanTasks_Irrigation(t *testing.T) {
	tasks := fallback.PlanTasks(models.PlanTypeIrrigation, date("2024-04-01"), 21)

	require.Len(t, tasks, 4)
	assert.Equal(t, "Irrigation system check", tasks[0].Title)
	assert.Equal(t, date("2024-04-01"), tasks[0].ScheduledDate)

	want := []time.Time{date("2024-04-08"), date("2024-04-15"), date("2024-04-22")}
	for i, d := range want {
		assert.Equal(t, d, tasks[i+1].ScheduledDate)
		assert.Equal(t, "irrigation", tasks[i+1].Type)
	}
	for _, task := range tasks {
		assert.Equal(t, models.TaskStatusPending, task.Status)
		assert.False(t, task.AIGenerated)
		assert.NotEqual(t, uuid.Nil, task.ID)
	}
}

func TestPlanTasks_CompleteSeason(t *testing.T) {
	start := date("2024-03-01")
	tasks := fallback.PlanTasks(models.PlanTypeCompleteSeason, start, 120)

	// 120 days = 17 weeks: prep, planting, monitoring weeks 2..14, harvest prep.
	require.Len(t, tasks, 2+13+1)
	assert.Equal(t, "Field preparation", tasks[0].Title)
	assert.Equal(t, "Planting", tasks[1].Title)
	assert.Equal(t, start.AddDate(0, 0, 14), tasks[2].ScheduledDate)
	assert.Equal(t, start.AddDate(0, 0, 14*7), tasks[14].ScheduledDate)
	last := tasks[len(tasks)-1]
	assert.Equal(t, "Harvest preparation", last.Title)
	assert.Equal(t, start.AddDate(0, 0, 113), last.ScheduledDate)
}

func TestPlanTasks_CompleteSeasonShort(t *testing.T) {
	tasks := fallback.PlanTasks(models.PlanTypeCompleteSeason, date("2024-03-01"), 60)
	for _, task := range tasks {
		assert.NotEqual(t, "Harvest preparation", task.Title)
	}
	// 60 days = 8 weeks: monitoring weeks 2..5.
	assert.Len(t, tasks, 2+4)
}

func TestPlanTasks_AllTypesNonEmpty(t *testing.T) {
	types := []string{
		models.PlanTypeIrrigation, models.PlanTypeFertilizer, models.PlanTypePestControl,
		models.PlanTypeCompleteSeason, models.PlanTypeCustom, "something-else",
	}
	for _, pt := range types {
		for _, d := range []int{0, 1, 7, 30, 365} {
			tasks := fallback.PlanTasks(pt, date("2024-01-01"), d)
			assert.NotEmpty(t, tasks, "type %s duration %d", pt, d)
		}
		assert.NotEmpty(t, fallback.PlanRecommendations(pt))
		assert.NotEmpty(t, fallback.PlanResources(pt))
	}
}

func TestPlanTasks_Fertilizer(t *testing.T) {
	tasks := fallback.PlanTasks(models.PlanTypeFertilizer, date("2024-05-01"), 30)
	require.Len(t, tasks, 3)
	assert.Equal(t, date("2024-05-15"), tasks[1].ScheduledDate)
	assert.Equal(t, date("2024-05-29"), tasks[2].ScheduledDate)
}

func TestBasicSetup(t *testing.T) {
	now := time.Now().UTC()
	f := models.Field{ID: uuid.New(), UserID: uuid.New(), Name: "North plot"}

	task, alert := fallback.BasicSetup(f, now)
	assert.Equal(t, f.ID, task.FieldID)
	assert.Equal(t, f.UserID, task.UserID)
	assert.True(t, task.InitialSetup)
	assert.False(t, task.AIGenerated)
	assert.Equal(t, f.ID, alert.FieldID)
	assert.Equal(t, models.SeverityLow, alert.Severity)
	assert.False(t, alert.AIGenerated)
}

func TestFieldAnalysis_FlagsBadPH(t *testing.T) {
	a := fallback.FieldAnalysis(models.Field{Name: "East", SoilHealth: models.SoilHealth{PH: "4.9"}})
	assert.Contains(t, a.SoilAssessment, "outside the range")
	assert.False(t, a.AIGenerated)
	assert.NotEmpty(t, a.Recommendations)
}
