package client

import (
	"context"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// WaitForInitialization polls an initialization job with the initialization
// policy. The last status seen is returned with the outcome.
func (c *Client) WaitForInitialization(ctx context.Context, jobID string, onUpdate func(Observation)) (Outcome, *InitStatus, error) {
	var last *InitStatus
	p := c.newPoller(InitializationPolicy())
	p.OnUpdate = onUpdate
	out, err := p.Poll(ctx, func(ctx context.Context) (Observation, error) {
		st, err := c.InitializationStatus(ctx, jobID)
		if err != nil {
			return Observation{}, err
		}
		last = st
		return Observation{
			Status:   st.Status,
			Terminal: st.Status == models.JobStatusCompleted || st.Status == models.JobStatusFailed,
			Failed:   st.Status == models.JobStatusFailed,
			Progress: st.Progress,
			Step:     st.CurrentStep,
		}, nil
	})
	return out, last, err
}

// WaitForPlan polls a plan until generation ends, then loads the full plan.
// A plan that falls back to draft is reported as Failed.
func (c *Client) WaitForPlan(ctx context.Context, planID uuid.UUID, onUpdate func(Observation)) (Outcome, *models.Plan, error) {
	p := c.newPoller(PlanPolicy())
	p.OnUpdate = onUpdate
	out, err := p.Poll(ctx, func(ctx context.Context) (Observation, error) {
		st, err := c.PlanStatus(ctx, planID)
		if err != nil {
			return Observation{}, err
		}
		return Observation{
			Status:   st.Status,
			Terminal: st.Status != models.PlanStatusProcessing,
			Failed:   !st.IsReady,
			Progress: st.Progress.Percentage,
		}, nil
	})
	if err != nil || out != Succeeded {
		return out, nil, err
	}
	plan, err := c.GetPlan(ctx, planID)
	return out, plan, err
}

// WaitForPrediction polls a yield prediction until it completes or fails.
func (c *Client) WaitForPrediction(ctx context.Context, id uuid.UUID, onUpdate func(Observation)) (Outcome, *models.Prediction, error) {
	var last *models.Prediction
	p := c.newPoller(PlanPolicy())
	p.OnUpdate = onUpdate
	out, err := p.Poll(ctx, func(ctx context.Context) (Observation, error) {
		pr, err := c.GetPrediction(ctx, id)
		if err != nil {
			return Observation{}, err
		}
		last = pr
		return Observation{
			Status:   pr.Status,
			Terminal: pr.Terminal(),
			Failed:   pr.Status == models.PredictionStatusFailed,
		}, nil
	})
	return out, last, err
}
