// Package advisor asks the configured AI provider for farm analyses, yield
// predictions and plans, and turns whatever text comes back into complete
// typed values. Every operation has a deterministic fallback.
package advisor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/farmdesk/internal/ai"
	"github.com/kiranshivaraju/farmdesk/internal/coerce"
	"github.com/kiranshivaraju/farmdesk/internal/fallback"
	"github.com/kiranshivaraju/farmdesk/internal/metrics"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// Advisor wraps an AI provider. A nil provider is valid: every call then uses
// the fallback directly.
type Advisor struct {
	provider models.AIProvider
	timeout  time.Duration
}

// New creates an Advisor. timeout bounds each provider call; zero means no bound
// beyond the caller's context.
func New(provider models.AIProvider, timeout time.Duration) *Advisor {
	return &Advisor{provider: provider, timeout: timeout}
}

// Enabled reports whether an AI provider is configured.
func (a *Advisor) Enabled() bool { return a.provider != nil }

// ProviderName returns the provider name, or "template" when none is configured.
func (a *Advisor) ProviderName() string {
	if a.provider == nil {
		return "template"
	}
	return a.provider.Name()
}

// PlanRequest describes the plan to generate.
type PlanRequest struct {
	Field      models.Field
	PlanType   string
	Title      string
	Start      time.Time
	Duration   int
	Priority   string
	Objectives []string
}

// complete calls the provider and classifies failures into ai sentinel errors.
func (a *Advisor) complete(ctx context.Context, prompt string) (string, error) {
	if a.provider == nil {
		return "", ai.ErrProviderUnavailable
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	out, err := a.provider.Generate(ctx, prompt)
	if err != nil {
		metrics.AIRequests.WithLabelValues(a.provider.Name(), "error").Inc()
		if ctx.Err() != nil || errors.Is(err, ai.ErrInferenceTimeout) {
			return "", fmt.Errorf("%w: %v", ai.ErrInferenceTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", ai.ErrProviderUnavailable, err)
	}
	if strings.TrimSpace(out) == "" {
		metrics.AIRequests.WithLabelValues(a.provider.Name(), "empty").Inc()
		return "", fmt.Errorf("%w: empty response", ai.ErrInvalidResponse)
	}
	metrics.AIRequests.WithLabelValues(a.provider.Name(), "ok").Inc()
	return out, nil
}

// AnalyzeField returns an analysis of one field. It never fails; AIGenerated is
// false when the templated analysis was used.
func (a *Advisor) AnalyzeField(ctx context.Context, f models.Field, w *models.Weather) models.FieldAnalysis {
	fb := fallback.FieldAnalysis(f)

	raw, err := a.complete(ctx, fieldAnalysisPrompt(f, w))
	if err != nil {
		slog.Warn("field analysis fell back to template", "field_id", f.ID, "error", err)
		return fb
	}

	out, ok := coerce.Into(raw, fieldAnalysisSchema(fb), func() models.FieldAnalysis { return fb })
	out.FieldID = f.ID
	out.FieldName = f.Name
	out.AIGenerated = ok
	return out
}

// RecommendFarm returns farm-wide advice built from the per-field analyses.
func (a *Advisor) RecommendFarm(ctx context.Context, user models.User, fields []models.Field, analyses []models.FieldAnalysis) models.FarmAdvice {
	fb := fallback.FarmRecommendations(fields)

	raw, err := a.complete(ctx, farmAdvicePrompt(user, analyses))
	if err != nil {
		slog.Warn("farm recommendations fell back to template", "user_id", user.ID, "error", err)
		return fb
	}

	out, ok := coerce.Into(raw, farmAdviceSchema(fb), func() models.FarmAdvice { return fb })
	out.AIGenerated = ok
	return out
}

// PredictYield returns a complete prediction, the raw provider text (empty when
// the provider was not reached) and whether the prediction came from the AI.
func (a *Advisor) PredictYield(ctx context.Context, in models.YieldInput) (models.YieldPrediction, string, bool) {
	fb := fallback.Prediction(in)

	raw, err := a.complete(ctx, yieldPrompt(in))
	if err != nil {
		slog.Warn("yield prediction fell back to template", "crop", in.CropType, "error", err)
		return fb, "", false
	}

	out, ok := coerce.Into(raw, yieldSchema(fb), func() models.YieldPrediction { return fb })
	if !ok {
		slog.Warn("yield prediction response could not be coerced", "crop", in.CropType)
	}
	return out, raw, ok
}

type aiPlanTask struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Type         string   `json:"type"`
	Priority     string   `json:"priority"`
	DayOffset    float64  `json:"dayOffset"`
	Resources    []string `json:"resources"`
	Instructions string   `json:"instructions"`
}

type aiPlan struct {
	Tasks                []aiPlanTask                 `json:"tasks"`
	Recommendations      []models.Recommendation      `json:"recommendations"`
	ResourceRequirements []models.ResourceRequirement `json:"resourceRequirements"`
}

// BuildPlan asks the provider for a plan. Unlike the other operations it returns
// an error instead of falling back, so the caller can record that the template
// was used.
func (a *Advisor) BuildPlan(ctx context.Context, req PlanRequest) (models.GeneratedPlan, error) {
	raw, err := a.complete(ctx, planPrompt(req))
	if err != nil {
		return models.GeneratedPlan{}, err
	}

	m, ok := coerce.Coerce(raw, planSchema(req.PlanType, req.Duration))
	if !ok {
		return models.GeneratedPlan{}, fmt.Errorf("%w: plan is not a JSON object", ai.ErrInvalidResponse)
	}

	var p aiPlan
	if err := coerce.Decode(m, &p); err != nil {
		return models.GeneratedPlan{}, fmt.Errorf("%w: %v", ai.ErrInvalidResponse, err)
	}
	if len(p.Tasks) == 0 {
		return models.GeneratedPlan{}, fmt.Errorf("%w: plan has no usable tasks", ai.ErrInvalidResponse)
	}

	tasks := make([]models.PlanTask, 0, len(p.Tasks))
	for _, t := range p.Tasks {
		tasks = append(tasks, models.PlanTask{
			ID:            uuid.New(),
			Title:         t.Title,
			Description:   t.Description,
			Type:          t.Type,
			Priority:      t.Priority,
			Status:        models.TaskStatusPending,
			ScheduledDate: req.Start.AddDate(0, 0, int(t.DayOffset)),
			Resources:     t.Resources,
			Instructions:  t.Instructions,
			AIGenerated:   true,
		})
	}

	recs := p.Recommendations
	if len(recs) == 0 {
		recs = fallback.PlanRecommendations(req.PlanType)
	}
	resources := p.ResourceRequirements
	if len(resources) == 0 {
		resources = fallback.PlanResources(req.PlanType)
	}

	return models.GeneratedPlan{
		Tasks:                tasks,
		Recommendations:      recs,
		ResourceRequirements: resources,
	}, nil
}
