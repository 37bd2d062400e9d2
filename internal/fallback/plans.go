package fallback

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

const week = 7

// TemplateNote is appended to plans whose tasks came from a template.
const TemplateNote = "Tasks were generated from a basic template because AI plan generation was unavailable. You can edit them or regenerate the plan."

// Plan returns template tasks, recommendations and resources for a plan type.
func Plan(planType string, start time.Time, durationDays int) models.GeneratedPlan {
	return models.GeneratedPlan{
		Tasks:                PlanTasks(planType, start, durationDays),
		Recommendations:      PlanRecommendations(planType),
		ResourceRequirements: PlanResources(planType),
	}
}

// PlanTasks returns the template task list for a plan type and date range.
// Unknown plan types get the generic template.
func PlanTasks(planType string, start time.Time, durationDays int) []models.PlanTask {
	if durationDays < 1 {
		durationDays = 1
	}
	switch planType {
	case models.PlanTypeIrrigation:
		return irrigationTasks(start, durationDays)
	case models.PlanTypeFertilizer:
		return fertilizerTasks(start, durationDays)
	case models.PlanTypePestControl:
		return pestControlTasks(start, durationDays)
	case models.PlanTypeCompleteSeason:
		return completeSeasonTasks(start, durationDays)
	default:
		return genericTasks(start, durationDays)
	}
}

func irrigationTasks(start time.Time, duration int) []models.PlanTask {
	tasks := []models.PlanTask{
		newTask("Irrigation system check", "Inspect pumps, pipes and emitters for leaks or blockages.", "irrigation", models.PriorityHigh, start),
	}
	for day, n := week, 1; day <= duration; day, n = day+week, n+1 {
		tasks = append(tasks, newTask(
			fmt.Sprintf("Scheduled irrigation (week %d)", n),
			"Irrigate according to soil moisture and recent rainfall.",
			"irrigation", models.PriorityMedium, start.AddDate(0, 0, day)))
	}
	return tasks
}

func fertilizerTasks(start time.Time, duration int) []models.PlanTask {
	tasks := []models.PlanTask{
		newTask("Soil nutrient test", "Collect soil samples to determine nutrient requirements.", "soil-testing", models.PriorityHigh, start),
	}
	for day, n := 2*week, 1; day <= duration; day, n = day+2*week, n+1 {
		tasks = append(tasks, newTask(
			fmt.Sprintf("Fertilizer application %d", n),
			"Apply fertilizer at the rate indicated by the soil test.",
			"fertilizing", models.PriorityMedium, start.AddDate(0, 0, day)))
	}
	return tasks
}

func pestControlTasks(start time.Time, duration int) []models.PlanTask {
	tasks := []models.PlanTask{
		newTask("Initial pest scouting", "Walk the field in a zig-zag pattern and record pest and disease signs.", "pest-control", models.PriorityHigh, start),
	}
	for day, n := week, 1; day <= duration; day, n = day+week, n+1 {
		tasks = append(tasks, newTask(
			fmt.Sprintf("Pest inspection (week %d)", n),
			"Check traps and leaves; treat only where thresholds are exceeded.",
			"pest-control", models.PriorityMedium, start.AddDate(0, 0, day)))
	}
	if duration >= 2*week {
		tasks = append(tasks, newTask("Treatment effectiveness review",
			"Compare pest counts with the initial scouting and adjust the control strategy.",
			"pest-control", models.PriorityMedium, start.AddDate(0, 0, duration/2)))
	}
	return tasks
}

// completeSeasonTasks: preparation, planting one week later, weekly monitoring
// from week 2 up to (but excluding) the last two weeks, and harvest preparation
// in the final week of seasons longer than 90 days.
func completeSeasonTasks(start time.Time, duration int) []models.PlanTask {
	tasks := []models.PlanTask{
		newTask("Field preparation", "Clear residue, till and level the field.", "land-preparation", models.PriorityHigh, start),
		newTask("Planting", "Sow or transplant at the recommended spacing and depth.", "planting", models.PriorityHigh, start.AddDate(0, 0, week)),
	}
	weeks := duration / week
	for w := 2; w < weeks-2; w++ {
		tasks = append(tasks, newTask(
			fmt.Sprintf("Crop monitoring (week %d)", w),
			"Check crop growth, soil moisture, pests and nutrient deficiency signs.",
			"monitoring", models.PriorityMedium, start.AddDate(0, 0, w*week)))
	}
	if duration > 90 {
		tasks = append(tasks, newTask("Harvest preparation",
			"Prepare tools, storage and labour for harvest.",
			"harvesting", models.PriorityHigh, start.AddDate(0, 0, duration-week)))
	}
	return tasks
}

func genericTasks(start time.Time, duration int) []models.PlanTask {
	tasks := []models.PlanTask{
		newTask("Plan kickoff", "Review the plan objectives and gather the required inputs.", "planning", models.PriorityMedium, start),
	}
	for day, n := week, 1; day < duration; day, n = day+week, n+1 {
		tasks = append(tasks, newTask(
			fmt.Sprintf("Weekly review (week %d)", n),
			"Review progress against the plan objectives.",
			"monitoring", models.PriorityLow, start.AddDate(0, 0, day)))
	}
	tasks = append(tasks, newTask("Plan wrap-up", "Record results and lessons for the next season.", "planning", models.PriorityLow, start.AddDate(0, 0, duration)))
	return tasks
}

// PlanRecommendations returns fixed advice for a plan type.
func PlanRecommendations(planType string) []models.Recommendation {
	switch planType {
	case models.PlanTypeIrrigation:
		return []models.Recommendation{
			{Category: "irrigation", Action: "Irrigate in the early morning to reduce evaporation", Priority: models.PriorityMedium},
			{Category: "irrigation", Action: "Check soil moisture before each irrigation", Priority: models.PriorityHigh},
		}
	case models.PlanTypeFertilizer:
		return []models.Recommendation{
			{Category: "fertilizer", Action: "Split nitrogen applications to reduce losses", Priority: models.PriorityMedium},
			{Category: "soil", Action: "Base application rates on a recent soil test", Priority: models.PriorityHigh},
		}
	case models.PlanTypePestControl:
		return []models.Recommendation{
			{Category: "pest", Action: "Use economic thresholds before spraying", Priority: models.PriorityHigh},
			{Category: "pest", Action: "Rotate pesticide modes of action to slow resistance", Priority: models.PriorityMedium},
		}
	default:
		return []models.Recommendation{
			{Category: "general", Action: "Keep a field diary of operations and observations", Priority: models.PriorityMedium},
		}
	}
}

// PlanResources returns fixed resource requirements for a plan type.
func PlanResources(planType string) []models.ResourceRequirement {
	switch planType {
	case models.PlanTypeIrrigation:
		return []models.ResourceRequirement{{Resource: "Water", Quantity: "As required by soil moisture", Timing: "Weekly"}}
	case models.PlanTypeFertilizer:
		return []models.ResourceRequirement{{Resource: "Fertilizer", Quantity: "Per soil test", Timing: "Every two weeks"}}
	case models.PlanTypePestControl:
		return []models.ResourceRequirement{{Resource: "Pest traps and protective equipment", Quantity: "1 set", Timing: "Start of plan"}}
	case models.PlanTypeCompleteSeason:
		return []models.ResourceRequirement{
			{Resource: "Seed", Quantity: "Per planting density", Timing: "Planting"},
			{Resource: "Labour", Quantity: "2-3 workers", Timing: "Preparation and harvest"},
		}
	default:
		return []models.ResourceRequirement{{Resource: "Labour", Quantity: "1 worker", Timing: "Weekly"}}
	}
}

func newTask(title, description, taskType, priority string, date time.Time) models.PlanTask {
	return models.PlanTask{
		ID:            uuid.New(),
		Title:         title,
		Description:   description,
		Type:          taskType,
		Priority:      priority,
		Status:        models.TaskStatusPending,
		ScheduledDate: date,
	}
}
