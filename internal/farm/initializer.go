// Package farm runs farm initialization: after onboarding it analyzes each
// field, builds farm-wide advice, and seeds tasks, alerts and baseline yield
// predictions while reporting progress through the job registry.
package farm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/farmdesk/internal/advisor"
	"github.com/kiranshivaraju/farmdesk/internal/fallback"
	"github.com/kiranshivaraju/farmdesk/internal/jobs"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/weather"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// Submitter schedules detached work. *worker.Pool satisfies it.
type Submitter interface {
	Submit(name string, fn worker.Task) error
}

// maxFieldConcurrency bounds parallel AI calls during the analyzing stage.
const maxFieldConcurrency = 4

// Initializer orchestrates farm initialization runs.
type Initializer struct {
	store   store.Store
	jobs    jobs.Registry
	advisor *advisor.Advisor
	weather weather.Provider
	pool    Submitter
	now     func() time.Time
}

func NewInitializer(s store.Store, reg jobs.Registry, adv *advisor.Advisor, wp weather.Provider, pool Submitter) *Initializer {
	return &Initializer{
		store:   s,
		jobs:    reg,
		advisor: adv,
		weather: wp,
		pool:    pool,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start validates the input, persists the fields, marks the user in progress
// and schedules the run. It returns the job ID without waiting for the run.
func (i *Initializer) Start(ctx context.Context, userID uuid.UUID, in OnboardingInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	user, err := i.store.GetUser(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}

	now := i.now()
	fields := make([]models.Field, 0, len(in.Fields))
	for _, fi := range in.Fields {
		f := fi.toField(user.ID, now)
		if err := i.store.CreateField(ctx, &f); err != nil {
			return "", fmt.Errorf("create field %q: %w", f.Name, err)
		}
		fields = append(fields, f)
	}

	prevStatus := user.InitializationStatus
	if in.Location != (models.Location{}) {
		user.Location = in.Location
	}
	if in.FarmingMethod != "" {
		user.FarmingMethod = in.FarmingMethod
	}
	user.InitializationStatus = models.InitStatusInProgress
	user.UpdatedAt = now
	if err := i.store.UpdateUser(ctx, user); err != nil {
		return "", fmt.Errorf("mark user initializing: %w", err)
	}

	rec, err := i.jobs.Create(ctx, user.ID)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	u := *user
	if err := i.pool.Submit("farm-init", func(ctx context.Context) error {
		return i.run(ctx, rec.JobID, u, fields)
	}); err != nil {
		i.rollback(ctx, rec.JobID, user, prevStatus, fields, err)
		return "", fmt.Errorf("schedule initialization: %w", err)
	}

	slog.Info("farm initialization started", "job_id", rec.JobID, "user_id", user.ID, "fields", len(fields))
	return rec.JobID, nil
}

// rollback undoes Start when the run could not be scheduled: the job is
// failed, the new fields are removed and the user's status is restored.
func (i *Initializer) rollback(ctx context.Context, jobID string, user *models.User, prevStatus string, fields []models.Field, cause error) {
	log := slog.With("job_id", jobID, "user_id", user.ID)
	log.Error("failed to schedule farm initialization", "error", cause)
	if err := i.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		log.Error("failed to mark job failed", "error", err)
	}
	for _, f := range fields {
		if err := i.store.DeleteField(ctx, f.ID, user.ID); err != nil {
			log.Error("failed to remove field", "field_id", f.ID, "error", err)
		}
	}
	user.InitializationStatus = prevStatus
	if err := i.store.UpdateUser(ctx, user); err != nil {
		log.Error("failed to restore user initialization status", "error", err)
	}
}

// run executes every stage in order. Any error or panic fails the job and
// triggers one basic setup pass.
func (i *Initializer) run(ctx context.Context, jobID string, user models.User, fields []models.Field) (err error) {
	start := time.Now()
	log := slog.With("job_id", jobID, "user_id", user.ID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during initialization: %v", r)
		}
		if err != nil {
			i.fail(ctx, log, jobID, user.ID, fields, err)
		}
	}()

	if err := i.stages(ctx, log, jobID, user, fields); err != nil {
		return err
	}

	u, err := i.store.GetUser(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	now := i.now()
	u.InitializationStatus = models.InitStatusCompleted
	u.InitializedAt = &now
	u.UpdatedAt = now
	if err := i.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("mark user initialized: %w", err)
	}

	if err := i.jobs.Complete(ctx, jobID); err != nil {
		log.Error("failed to complete job", "error", err)
	}
	log.Info("farm initialization completed", "duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (i *Initializer) stages(ctx context.Context, log *slog.Logger, jobID string, user models.User, fields []models.Field) error {
	now := i.now()

	i.advance(ctx, log, jobID, 10, models.StepAnalyzing)
	analyses, snapshot := i.analyzeFields(ctx, user, fields)
	for idx := range fields {
		fields[idx].Analysis = &analyses[idx]
		if err := i.store.UpdateField(ctx, &fields[idx]); err != nil {
			return fmt.Errorf("save analysis for field %s: %w", fields[idx].ID, err)
		}
	}
	i.advance(ctx, log, jobID, 20, models.StepAnalyzing)

	i.advance(ctx, log, jobID, 25, models.StepRecommendations)
	advice := i.advisor.RecommendFarm(ctx, user, fields, analyses)
	if err := i.saveAdvice(ctx, user.ID, advice); err != nil {
		return err
	}
	log.Info("farm advice ready", "stage", models.StepRecommendations,
		"ai_generated", advice.AIGenerated, "recommendations", len(advice.Recommendations))
	i.advance(ctx, log, jobID, 45, models.StepRecommendations)

	i.advance(ctx, log, jobID, 50, models.StepTasks)
	for _, f := range fields {
		for _, t := range FieldTasks(f, now) {
			if err := i.store.CreateTask(ctx, &t); err != nil {
				return fmt.Errorf("create task for field %s: %w", f.ID, err)
			}
		}
	}
	i.advance(ctx, log, jobID, 70, models.StepTasks)

	i.advance(ctx, log, jobID, 75, models.StepAlerts)
	for _, f := range fields {
		for _, a := range FieldAlerts(f, snapshot, now) {
			if err := i.store.CreateAlert(ctx, &a); err != nil {
				return fmt.Errorf("create alert for field %s: %w", f.ID, err)
			}
		}
	}
	i.advance(ctx, log, jobID, 90, models.StepAlerts)

	if err := i.baselinePredictions(ctx, log, user, fields, snapshot); err != nil {
		return err
	}
	i.advance(ctx, log, jobID, 95, models.StepAlerts)
	return nil
}

func (i *Initializer) saveAdvice(ctx context.Context, userID uuid.UUID, advice models.FarmAdvice) error {
	u, err := i.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	u.FarmAdvice = &advice
	if err := i.store.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("save farm advice: %w", err)
	}
	return nil
}

// analyzeFields analyzes every field concurrently. A failed AI call only
// affects its own field, which gets the templated analysis. Fields share the
// user's location, so weather is looked up once and reused.
func (i *Initializer) analyzeFields(ctx context.Context, user models.User, fields []models.Field) ([]models.FieldAnalysis, models.Weather) {
	out := make([]models.FieldAnalysis, len(fields))
	snapshot := i.weather.Current(ctx, user.Location)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxFieldConcurrency)
	for idx, f := range fields {
		g.Go(func() error {
			w := snapshot
			out[idx] = i.advisor.AnalyzeField(gctx, f, &w)
			return nil
		})
	}
	// Analysis never returns an error; per-field failures are already templated.
	_ = g.Wait()
	return out, snapshot
}

func (i *Initializer) baselinePredictions(ctx context.Context, log *slog.Logger, user models.User, fields []models.Field, w models.Weather) error {
	for _, f := range fields {
		if !f.Planted() {
			continue
		}
		fieldID := f.ID
		in := models.YieldInput{
			FieldID:        &fieldID,
			CropType:       f.CropType,
			Area:           f.Area,
			AreaUnit:       f.AreaUnit,
			GrowthStage:    f.GrowthStage,
			SoilType:       f.SoilType,
			SoilHealth:     f.SoilHealth,
			IrrigationType: f.IrrigationType,
			Weather:        &w,
		}
		result, raw, aiGenerated := i.advisor.PredictYield(ctx, in)

		now := i.now()
		p := models.Prediction{
			ID:           uuid.New(),
			UserID:       user.ID,
			FieldID:      &fieldID,
			Input:        in,
			RawResponse:  raw,
			Prediction:   &result,
			Status:       models.PredictionStatusCompleted,
			AIGenerated:  aiGenerated,
			InitialSetup: true,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := i.store.CreatePrediction(ctx, &p); err != nil {
			return fmt.Errorf("create baseline prediction for field %s: %w", f.ID, err)
		}
		log.Debug("baseline prediction stored", "field_id", f.ID, "ai_generated", aiGenerated)
	}
	return nil
}

func (i *Initializer) advance(ctx context.Context, log *slog.Logger, jobID string, progress int, step string) {
	if err := i.jobs.Advance(ctx, jobID, progress, step); err != nil {
		log.Warn("failed to record job progress", "progress", progress, "stage", step, "error", err)
	}
}

// fail marks the job failed, then writes one templated task and alert per
// field. Errors here are logged only; the failed job status is what the
// client sees.
func (i *Initializer) fail(ctx context.Context, log *slog.Logger, jobID string, userID uuid.UUID, fields []models.Field, cause error) {
	log.Error("farm initialization failed", "error", cause)
	if err := i.jobs.Fail(ctx, jobID, cause.Error()); err != nil {
		log.Error("failed to mark job failed", "error", err)
	}

	now := i.now()
	for _, f := range fields {
		task, alert := fallback.BasicSetup(f, now)
		if err := i.store.CreateTask(ctx, &task); err != nil {
			log.Error("basic setup task failed", "field_id", f.ID, "error", err)
		}
		if err := i.store.CreateAlert(ctx, &alert); err != nil {
			log.Error("basic setup alert failed", "field_id", f.ID, "error", err)
		}
	}

	u, err := i.store.GetUser(ctx, userID)
	if err != nil {
		log.Error("failed to load user after initialization failure", "error", err)
		return
	}
	u.InitializationStatus = models.InitStatusFailed
	u.UpdatedAt = now
	if err := i.store.UpdateUser(ctx, u); err != nil {
		log.Error("failed to mark user initialization failed", "error", err)
	}
}
