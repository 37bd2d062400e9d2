package farm

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// pH outside this range raises a soil alert.
const (
	minHealthyPH = 5.5
	maxHealthyPH = 8.0
)

type stageTask struct {
	title       string
	description string
	taskType    string
	priority    string
	dueInDays   int
}

var stageTasks = map[string]stageTask{
	models.StageNotPlanted: {
		title:       "Prepare land for planting",
		description: "Clear weeds, till the soil and work in compost before sowing.",
		taskType:    "preparation",
		priority:    models.PriorityHigh,
		dueInDays:   2,
	},
	models.StageGermination: {
		title:       "Check germination",
		description: "Count emerged seedlings and note gaps that need re-sowing.",
		taskType:    "monitoring",
		priority:    models.PriorityMedium,
		dueInDays:   3,
	},
	models.StageSeedling: {
		title:       "Check seedling growth",
		description: "Look for weak or yellowing seedlings and thin overcrowded rows.",
		taskType:    "monitoring",
		priority:    models.PriorityMedium,
		dueInDays:   3,
	},
	models.StageVegetative: {
		title:       "Apply fertilizer",
		description: "Top-dress with nitrogen to support leaf and stem growth.",
		taskType:    "fertilization",
		priority:    models.PriorityMedium,
		dueInDays:   5,
	},
	models.StageFlowering: {
		title:       "Monitor for pests",
		description: "Inspect flowers and leaf undersides for insects and damage.",
		taskType:    "pest-control",
		priority:    models.PriorityHigh,
		dueInDays:   1,
	},
	models.StageFruiting: {
		title:       "Check fruit development",
		description: "Sample fruits or grain heads for size, fill and signs of disease.",
		taskType:    "monitoring",
		priority:    models.PriorityMedium,
		dueInDays:   2,
	},
	models.StageMature: {
		title:       "Plan harvest",
		description: "Arrange labour, tools and storage for the coming harvest.",
		taskType:    "harvest",
		priority:    models.PriorityMedium,
		dueInDays:   3,
	},
	models.StageHarvested: {
		title:       "Manage crop residue",
		description: "Mulch or incorporate residue and plan the next rotation.",
		taskType:    "maintenance",
		priority:    models.PriorityLow,
		dueInDays:   7,
	},
}

// FieldTasks returns the setup tasks for a field: one keyed by growth stage, plus
// an irrigation check when water is limited or scarce.
func FieldTasks(f models.Field, now time.Time) []models.Task {
	var out []models.Task
	if st, ok := stageTasks[f.GrowthStage]; ok {
		out = append(out, newTask(f, now, st))
	}
	if f.WaterAvailability == models.WaterLimited || f.WaterAvailability == models.WaterScarce {
		out = append(out, newTask(f, now, stageTask{
			title:       "Check irrigation system",
			description: fmt.Sprintf("Water is %s. Inspect pipes, channels and emitters for leaks and blockages.", f.WaterAvailability),
			taskType:    "irrigation",
			priority:    models.PriorityHigh,
			dueInDays:   1,
		}))
	}
	return out
}

func newTask(f models.Field, now time.Time, st stageTask) models.Task {
	return models.Task{
		ID:           uuid.New(),
		UserID:       f.UserID,
		FieldID:      f.ID,
		Title:        fmt.Sprintf("%s: %s", f.Name, st.title),
		Description:  st.description,
		Type:         st.taskType,
		Priority:     st.priority,
		Status:       models.TaskStatusPending,
		DueDate:      now.AddDate(0, 0, st.dueInDays),
		AIGenerated:  true,
		InitialSetup: true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// FieldAlerts returns the setup alerts for a field. Every field gets a weather
// alert; flowering and fruiting fields get a pest alert; a parseable pH outside
// the healthy range gets a soil alert.
func FieldAlerts(f models.Field, w models.Weather, now time.Time) []models.Alert {
	out := []models.Alert{newAlert(f, now,
		models.AlertTypeWeather, models.SeverityLow,
		fmt.Sprintf("Weather update for %s", f.Name),
		fmt.Sprintf("Current conditions are %s at %.0f°C with %.0f%% humidity. Plan field work around the forecast.",
			w.Conditions, w.Temperature, w.Humidity),
	)}

	if f.GrowthStage == models.StageFlowering || f.GrowthStage == models.StageFruiting {
		out = append(out, newAlert(f, now,
			models.AlertTypePest, models.SeverityMedium,
			fmt.Sprintf("Pest watch for %s", f.Name),
			"Crops at this stage are most vulnerable to pests. Scout the field every few days.",
		))
	}

	if ph, ok := f.SoilHealth.ParsePH(); ok && (ph < minHealthyPH || ph > maxHealthyPH) {
		out = append(out, newAlert(f, now,
			models.AlertTypeSoil, models.SeverityMedium,
			fmt.Sprintf("Soil pH needs attention in %s", f.Name),
			fmt.Sprintf("Measured pH %.1f is outside the %.1f to %.1f range most crops need. Consider liming or sulphur after a soil test.",
				ph, minHealthyPH, maxHealthyPH),
		))
	}
	return out
}

func newAlert(f models.Field, now time.Time, alertType, severity, title, message string) models.Alert {
	return models.Alert{
		ID:           uuid.New(),
		UserID:       f.UserID,
		FieldID:      f.ID,
		Type:         alertType,
		Severity:     severity,
		Title:        title,
		Message:      message,
		AIGenerated:  true,
		InitialSetup: true,
		CreatedAt:    now,
	}
}
