// Package prediction runs yield predictions in the background. A prediction
// always completes with a usable result; it fails only when the result cannot
// be stored.
package prediction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/internal/advisor"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

var (
	ErrInvalidInput       = errors.New("invalid prediction input")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrFieldNotFound      = errors.New("field not found")
)

var validate = validator.New()

// Submitter schedules detached work. *worker.Pool satisfies it.
type Submitter interface {
	Submit(name string, fn worker.Task) error
}

type Service struct {
	store   store.Store
	advisor *advisor.Advisor
	pool    Submitter
	now     func() time.Time
}

func NewService(s store.Store, adv *advisor.Advisor, pool Submitter) *Service {
	return &Service{
		store:   s,
		advisor: adv,
		pool:    pool,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Request stores a pending prediction and schedules it. When FieldID is set the
// field must belong to the user; its attributes fill any blank inputs.
func (s *Service) Request(ctx context.Context, userID uuid.UUID, in models.YieldInput) (*models.Prediction, error) {
	if in.FieldID != nil {
		f, err := s.store.GetField(ctx, *in.FieldID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrFieldNotFound
			}
			return nil, fmt.Errorf("load field: %w", err)
		}
		in = withFieldDefaults(in, *f)
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, fmt.Errorf("%w: %s failed %q", ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	p := &models.Prediction{
		ID:        uuid.New(),
		UserID:    userID,
		FieldID:   in.FieldID,
		Input:     in,
		Status:    models.PredictionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePrediction(ctx, p); err != nil {
		return nil, fmt.Errorf("create prediction: %w", err)
	}

	id := p.ID
	if err := s.pool.Submit("yield-prediction", func(ctx context.Context) error {
		return s.process(ctx, id, userID)
	}); err != nil {
		s.markFailed(ctx, p, err.Error())
		return nil, fmt.Errorf("schedule prediction: %w", err)
	}
	return p, nil
}

func withFieldDefaults(in models.YieldInput, f models.Field) models.YieldInput {
	if in.CropType == "" {
		in.CropType = f.CropType
	}
	if in.Area == 0 {
		in.Area = f.Area
	}
	if in.AreaUnit == "" {
		in.AreaUnit = f.AreaUnit
	}
	if in.GrowthStage == "" {
		in.GrowthStage = f.GrowthStage
	}
	if in.SoilType == "" {
		in.SoilType = f.SoilType
	}
	if in.SoilHealth == (models.SoilHealth{}) {
		in.SoilHealth = f.SoilHealth
	}
	if in.IrrigationType == "" {
		in.IrrigationType = f.IrrigationType
	}
	return in
}

func (s *Service) process(ctx context.Context, id, userID uuid.UUID) error {
	log := slog.With("prediction_id", id, "user_id", userID)

	p, err := s.store.GetPrediction(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("load prediction: %w", err)
	}
	if err := p.TransitionTo(models.PredictionStatusProcessing); err != nil {
		log.Warn("skipping prediction", "status", p.Status)
		return nil
	}
	p.UpdatedAt = s.now()
	if err := s.store.SavePrediction(ctx, p); err != nil {
		return fmt.Errorf("mark prediction processing: %w", err)
	}

	result, raw, aiGenerated := s.advisor.PredictYield(ctx, p.Input)

	p.Prediction = &result
	p.RawResponse = raw
	p.AIGenerated = aiGenerated
	if err := p.TransitionTo(models.PredictionStatusCompleted); err != nil {
		return err
	}
	p.UpdatedAt = s.now()
	if err := s.store.SavePrediction(ctx, p); err != nil {
		log.Error("failed to store prediction result", "error", err)
		s.markFailed(ctx, p, "could not store prediction result")
		return fmt.Errorf("save prediction: %w", err)
	}

	log.Info("yield prediction completed", "ai_generated", aiGenerated, "predicted_yield", result.PredictedYield)
	return nil
}

// markFailed records a failure. It reloads the prediction so a partially
// applied result is not written.
func (s *Service) markFailed(ctx context.Context, p *models.Prediction, msg string) {
	cur, err := s.store.GetPrediction(ctx, p.ID, p.UserID)
	if err != nil {
		slog.Error("failed to load prediction for failure", "prediction_id", p.ID, "error", err)
		return
	}
	if err := cur.TransitionTo(models.PredictionStatusFailed); err != nil {
		return
	}
	cur.Error = msg
	cur.UpdatedAt = s.now()
	if err := s.store.SavePrediction(ctx, cur); err != nil {
		slog.Error("failed to mark prediction failed", "prediction_id", p.ID, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Prediction, error) {
	p, err := s.store.GetPrediction(ctx, id, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPredictionNotFound
		}
		return nil, fmt.Errorf("get prediction: %w", err)
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error) {
	ps, err := s.store.ListPredictions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list predictions: %w", err)
	}
	return ps, nil
}
