// Package planning creates farming plans and generates their tasks in the
// background. The plan's own status is the only progress signal: it stays
// processing until generation settles, then becomes active (AI or template
// tasks) or draft (nothing could be generated).
package planning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/internal/advisor"
	"github.com/kiranshivaraju/farmdesk/internal/fallback"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var (
	ErrInvalidInput  = errors.New("invalid plan input")
	ErrFieldNotFound = errors.New("field not found")
	ErrPlanNotFound  = errors.New("plan not found")
	ErrTaskNotFound  = errors.New("plan task not found")
	ErrPlanNotReady  = errors.New("plan is not ready")
)

// DefaultGenerationTimeout bounds one AI plan generation.
const DefaultGenerationTimeout = 30 * time.Second

const dateLayout = "2006-01-02"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Submitter schedules detached work. *worker.Pool satisfies it.
type Submitter interface {
	Submit(name string, fn worker.Task) error
}

// CreatePlanInput is the body of a create-plan request.
type CreatePlanInput struct {
	Title      string    `json:"title"      validate:"required,max=200"`
	PlanType   string    `json:"planType"   validate:"required,oneof=irrigation fertilizer pest-control complete-season custom"`
	FieldID    uuid.UUID `json:"fieldId"    validate:"required"`
	StartDate  string    `json:"startDate"  validate:"required,datetime=2006-01-02"`
	Duration   int       `json:"duration"   validate:"required,min=1,max=365"`
	Priority   string    `json:"priority"   validate:"omitempty,oneof=low medium high"`
	Objectives []string  `json:"objectives" validate:"max=20,dive,max=300"`
	Notes      string    `json:"notes"      validate:"max=2000"`
}

// PlanStatus is the lightweight view clients poll while a plan is generating.
type PlanStatus struct {
	ID        uuid.UUID           `json:"id"`
	Status    string              `json:"status"`
	TaskCount int                 `json:"taskCount"`
	Progress  models.PlanProgress `json:"progress"`
	IsReady   bool                `json:"isReady"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type templateFunc func(planType string, start time.Time, durationDays int) models.GeneratedPlan

// Service manages plans.
type Service struct {
	store    store.Store
	advisor  *advisor.Advisor
	pool     Submitter
	timeout  time.Duration
	now      func() time.Time
	template templateFunc
}

func NewService(s store.Store, adv *advisor.Advisor, pool Submitter, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultGenerationTimeout
	}
	return &Service{
		store:    s,
		advisor:  adv,
		pool:     pool,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
		template: fallback.Plan,
	}
}

// Create persists a processing plan with no tasks and schedules generation.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreatePlanInput) (*models.Plan, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	start, err := time.Parse(dateLayout, in.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate: %v", ErrInvalidInput, err)
	}

	if _, err := s.store.GetField(ctx, in.FieldID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("load field: %w", err)
	}

	priority := in.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	now := s.now()
	plan := &models.Plan{
		ID:                   uuid.New(),
		UserID:               userID,
		FieldID:              in.FieldID,
		Title:                in.Title,
		PlanType:             in.PlanType,
		Status:               models.PlanStatusProcessing,
		Priority:             priority,
		Objectives:           in.Objectives,
		StartDate:            start,
		Duration:             in.Duration,
		EndDate:              start.AddDate(0, 0, in.Duration),
		Tasks:                []models.PlanTask{},
		AIRecommendations:    []models.Recommendation{},
		ResourceRequirements: []models.ResourceRequirement{},
		Notes:                in.Notes,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.store.CreatePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("create plan: %w", err)
	}

	if err := s.schedule(plan); err != nil {
		s.abandon(ctx, plan, err)
		return nil, err
	}

	slog.Info("plan generation scheduled", "plan_id", plan.ID, "user_id", userID, "plan_type", plan.PlanType)
	return plan, nil
}

func validateInput(in CreatePlanInput) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return fmt.Errorf("%w: %s failed %q", ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

func (s *Service) schedule(plan *models.Plan) error {
	planID, userID := plan.ID, plan.UserID
	if err := s.pool.Submit("plan-generation", func(ctx context.Context) error {
		return s.generate(ctx, planID, userID)
	}); err != nil {
		return fmt.Errorf("schedule plan generation: %w", err)
	}
	return nil
}

// abandon moves a plan that could not be scheduled back to draft.
func (s *Service) abandon(ctx context.Context, plan *models.Plan, cause error) {
	if err := plan.TransitionTo(models.PlanStatusDraft); err != nil {
		slog.Error("failed to revert unscheduled plan", "plan_id", plan.ID, "error", err)
		return
	}
	plan.AppendNote("Plan generation could not be started: " + cause.Error())
	plan.UpdatedAt = s.now()
	if err := s.store.SavePlan(ctx, plan); err != nil {
		slog.Error("failed to save unscheduled plan", "plan_id", plan.ID, "error", err)
	}
}

type buildResult struct {
	plan models.GeneratedPlan
	err  error
}

// build races the AI plan against the generation timeout.
func (s *Service) build(ctx context.Context, req advisor.PlanRequest) (models.GeneratedPlan, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ch := make(chan buildResult, 1)
	go func() {
		gp, err := s.advisor.BuildPlan(ctx, req)
		ch <- buildResult{plan: gp, err: err}
	}()

	select {
	case r := <-ch:
		return r.plan, r.err
	case <-ctx.Done():
		return models.GeneratedPlan{}, fmt.Errorf("plan generation timed out after %s: %w", s.timeout, ctx.Err())
	}
}

// fromTemplate returns the template plan, turning a panic or an empty task list
// into an error.
func (s *Service) fromTemplate(plan *models.Plan) (gp models.GeneratedPlan, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("template generation panicked: %v", r)
		}
	}()
	gp = s.template(plan.PlanType, plan.StartDate, plan.Duration)
	if len(gp.Tasks) == 0 {
		return gp, errors.New("template produced no tasks")
	}
	return gp, nil
}

func (s *Service) generate(ctx context.Context, planID, userID uuid.UUID) error {
	log := slog.With("plan_id", planID, "user_id", userID)

	plan, err := s.store.GetPlan(ctx, planID, userID)
	if err != nil {
		return fmt.Errorf("load plan: %w", err)
	}
	if plan.Status != models.PlanStatusProcessing {
		log.Warn("skipping generation for plan that is not processing", "status", plan.Status)
		return nil
	}

	req := advisor.PlanRequest{
		PlanType:   plan.PlanType,
		Title:      plan.Title,
		Start:      plan.StartDate,
		Duration:   plan.Duration,
		Priority:   plan.Priority,
		Objectives: plan.Objectives,
	}
	if f, err := s.store.GetField(ctx, plan.FieldID, userID); err == nil {
		req.Field = *f
	} else {
		log.Warn("plan field unavailable, generating without field details", "error", err)
	}

	gp, err := s.build(ctx, req)
	if err != nil {
		log.Warn("AI plan generation failed, using template", "error", err)
		var terr error
		gp, terr = s.fromTemplate(plan)
		if terr != nil {
			log.Error("template plan generation failed", "error", terr)
			if err := plan.TransitionTo(models.PlanStatusDraft); err != nil {
				return err
			}
			plan.AppendNote("Plan generation failed: " + terr.Error() + ". Edit the plan or regenerate it.")
			plan.UpdatedAt = s.now()
			if err := s.store.SavePlan(ctx, plan); err != nil {
				return fmt.Errorf("save draft plan: %w", err)
			}
			return terr
		}
		plan.AppendNote(fallback.TemplateNote)
	}

	plan.Tasks = gp.Tasks
	plan.AIRecommendations = gp.Recommendations
	plan.ResourceRequirements = gp.ResourceRequirements
	if err := plan.TransitionTo(models.PlanStatusActive); err != nil {
		return err
	}
	plan.UpdatedAt = s.now()
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return fmt.Errorf("save generated plan: %w", err)
	}

	log.Info("plan generated", "tasks", len(plan.Tasks), "template", err != nil)
	return nil
}

// Status returns the lightweight status view.
func (s *Service) Status(ctx context.Context, userID, planID uuid.UUID) (*PlanStatus, error) {
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return &PlanStatus{
		ID:        plan.ID,
		Status:    plan.Status,
		TaskCount: len(plan.Tasks),
		Progress:  plan.Progress,
		IsReady:   plan.IsReady(),
		CreatedAt: plan.CreatedAt,
		UpdatedAt: plan.UpdatedAt,
	}, nil
}

func (s *Service) Get(ctx context.Context, userID, planID uuid.UUID) (*models.Plan, error) {
	plan, err := s.store.GetPlan(ctx, planID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("get plan: %w", err)
	}
	return plan, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error) {
	plans, err := s.store.ListPlans(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	return plans, nil
}

// UpdateTaskStatus changes one task's status. An active plan whose tasks are
// all completed or skipped becomes completed.
func (s *Service) UpdateTaskStatus(ctx context.Context, userID, planID, taskID uuid.UUID, status string) (*models.Plan, error) {
	if !models.ValidTaskStatus(status) {
		return nil, fmt.Errorf("%w: unknown task status %q", ErrInvalidInput, status)
	}
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if plan.Status != models.PlanStatusActive && plan.Status != models.PlanStatusPaused {
		return nil, fmt.Errorf("%w: plan is %s", ErrPlanNotReady, plan.Status)
	}

	idx := -1
	for i := range plan.Tasks {
		if plan.Tasks[i].ID == taskID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, ErrTaskNotFound
	}

	now := s.now()
	task := &plan.Tasks[idx]
	task.Status = status
	if status == models.TaskStatusCompleted {
		task.CompletedAt = &now
	} else {
		task.CompletedAt = nil
	}

	if plan.Status == models.PlanStatusActive && plan.AllTasksDone() {
		if err := plan.TransitionTo(models.PlanStatusCompleted); err != nil {
			return nil, err
		}
	}
	plan.UpdatedAt = now
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// manualTargets are the statuses a user may move a plan to directly.
var manualTargets = map[string]bool{
	models.PlanStatusActive:    true,
	models.PlanStatusPaused:    true,
	models.PlanStatusCompleted: true,
	models.PlanStatusCancelled: true,
}

// UpdateStatus pauses, resumes, completes or cancels a plan.
func (s *Service) UpdateStatus(ctx context.Context, userID, planID uuid.UUID, next string) (*models.Plan, error) {
	if !manualTargets[next] {
		return nil, fmt.Errorf("%w: cannot set plan status to %q", models.ErrInvalidTransition, next)
	}
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	// Generation owns a processing plan; a draft only becomes active by regenerating.
	if plan.Status == models.PlanStatusProcessing || (next == models.PlanStatusActive && !plan.IsReady()) {
		return nil, fmt.Errorf("%w: plan is %s", ErrPlanNotReady, plan.Status)
	}
	if err := plan.TransitionTo(next); err != nil {
		return nil, err
	}
	plan.UpdatedAt = s.now()
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}
	return plan, nil
}

// Regenerate clears a draft plan's tasks and schedules generation again.
func (s *Service) Regenerate(ctx context.Context, userID, planID uuid.UUID) (*models.Plan, error) {
	plan, err := s.Get(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	if err := plan.TransitionTo(models.PlanStatusProcessing); err != nil {
		return nil, err
	}
	plan.Tasks = []models.PlanTask{}
	plan.AIRecommendations = []models.Recommendation{}
	plan.ResourceRequirements = []models.ResourceRequirement{}
	plan.UpdatedAt = s.now()
	if err := s.store.SavePlan(ctx, plan); err != nil {
		return nil, fmt.Errorf("save plan: %w", err)
	}

	if err := s.schedule(plan); err != nil {
		s.abandon(ctx, plan, err)
		return nil, err
	}
	return plan, nil
}
