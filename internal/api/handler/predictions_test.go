package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/farmdesk/internal/prediction"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

type mockPredictionService struct {
	RequestFunc func(ctx context.Context, userID uuid.UUID, in models.YieldInput) (*models.Prediction, error)
	GetFunc     func(ctx context.Context, userID, id uuid.UUID) (*models.Prediction, error)
	ListFunc    func(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error)
}

func (m *mockPredictionService) Request(ctx context.Context, userID uuid.UUID, in models.YieldInput) (*models.Prediction, error) {
	return m.RequestFunc(ctx, userID, in)
}

func (m *mockPredictionService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Prediction, error) {
	return m.GetFunc(ctx, userID, id)
}

func (m *mockPredictionService) List(ctx context.Context, userID uuid.UUID) ([]*models.Prediction, error) {
	return m.ListFunc(ctx, userID)
}

func TestRequestYield_ReturnsPredictionID(t *testing.T) {
	id := uuid.New()
	svc := &mockPredictionService{RequestFunc: func(_ context.Context, _ uuid.UUID, in models.YieldInput) (*models.Prediction, error) {
		assert.Equal(t, "maize", in.CropType)
		return &models.Prediction{ID: id, Status: models.PredictionStatusPending}, nil
	}}

	rec := httptest.NewRecorder()
	NewRequestYieldHandler(svc)(rec, newRequest(t, http.MethodPost, "/api/v1/predictions/yield",
		map[string]any{"cropType": "maize", "area": 2}, uuid.New()))

	require.Equal(t, http.StatusOK, rec.Code)
	body := map[string]any{}
	require.NoError(t, jsonDecode(rec, &body))
	assert.Equal(t, id.String(), body["predictionId"])
}

func TestRequestYield_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"invalid", prediction.ErrInvalidInput, http.StatusBadRequest},
		{"field missing", prediction.ErrFieldNotFound, http.StatusNotFound},
		{"shutting down", worker.ErrPoolClosed, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockPredictionService{RequestFunc: func(context.Context, uuid.UUID, models.YieldInput) (*models.Prediction, error) {
				return nil, tt.err
			}}
			rec := httptest.NewRecorder()
			NewRequestYieldHandler(svc)(rec, newRequest(t, http.MethodPost, "/", map[string]any{}, uuid.New()))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestGetPrediction(t *testing.T) {
	id := uuid.New()
	svc := &mockPredictionService{GetFunc: func(_ context.Context, _, got uuid.UUID) (*models.Prediction, error) {
		if got != id {
			return nil, prediction.ErrPredictionNotFound
		}
		return &models.Prediction{ID: id, Status: models.PredictionStatusCompleted,
			Prediction: &models.YieldPrediction{PredictedYield: 4.2, Unit: "tonnes/hectare"}}, nil
	}}

	rec := httptest.NewRecorder()
	NewGetPredictionHandler(svc)(rec, newRequest(t, http.MethodGet, "/", nil, uuid.New(), "predictionID", id.String()))
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeData[models.Prediction](t, rec)
	assert.Equal(t, models.PredictionStatusCompleted, got.Status)
	assert.InDelta(t, 4.2, got.Prediction.PredictedYield, 0.001)

	rec = httptest.NewRecorder()
	NewGetPredictionHandler(svc)(rec, newRequest(t, http.MethodGet, "/", nil, uuid.New(), "predictionID", uuid.NewString()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "PREDICTION_NOT_FOUND", decodeError(t, rec).Error.Code)
}
