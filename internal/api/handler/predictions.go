package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/internal/api/response"
	"github.com/kiranshivaraju/farmdesk/internal/prediction"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// PredictionService defines the yield prediction operations the handlers depend on.
type PredictionService interface {
	Request(ctx context.Context, userID uuid.UUID, in models.YieldInput) (*models.Prediction, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Prediction, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error)
}

func writePredictionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, prediction.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, prediction.ErrFieldNotFound):
		response.Error(w, http.StatusNotFound, "FIELD_NOT_FOUND", "Field not found", nil)
	case errors.Is(err, prediction.ErrPredictionNotFound):
		response.Error(w, http.StatusNotFound, "PREDICTION_NOT_FOUND", "Prediction not found", nil)
	case errors.Is(err, worker.ErrPoolClosed):
		response.Error(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Server is shutting down", nil)
	default:
		internalError(w, r, err)
	}
}

// NewRequestYieldHandler returns an http.HandlerFunc for POST /api/v1/predictions/yield.
func NewRequestYieldHandler(svc PredictionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var in models.YieldInput
		if !decodeJSON(w, r, &in) {
			return
		}
		p, err := svc.Request(r.Context(), userID, in)
		if err != nil {
			writePredictionError(w, r, err)
			return
		}
		response.Started(w, "predictionId", p.ID)
	}
}

func NewGetPredictionHandler(svc PredictionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		id, ok := uuidParam(w, r, "predictionID")
		if !ok {
			return
		}
		p, err := svc.Get(r.Context(), userID, id)
		if err != nil {
			writePredictionError(w, r, err)
			return
		}
		response.JSON(w, p)
	}
}

func NewListPredictionsHandler(svc PredictionService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		ps, err := svc.List(r.Context(), userID)
		if err != nil {
			writePredictionError(w, r, err)
			return
		}
		items, meta := page(r, ps)
		response.Collection(w, items, meta)
	}
}
