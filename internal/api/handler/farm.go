package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/internal/api/response"
	"github.com/kiranshivaraju/farmdesk/internal/farm"
	"github.com/kiranshivaraju/farmdesk/internal/jobs"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// Initializer starts farm initialization runs.
type Initializer interface {
	Start(ctx context.Context, userID uuid.UUID, in farm.OnboardingInput) (string, error)
}

// JobReader reads initialization job records.
type JobReader interface {
	Get(ctx context.Context, jobID string, callerID uuid.UUID) (*models.JobRecord, error)
}

type jobStatusResponse struct {
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
	CurrentStep string `json:"currentStep"`
	Error       string `json:"error,omitempty"`
}

// NewInitializeFarmHandler returns an http.HandlerFunc for POST /api/v1/initialize-farm.
func NewInitializeFarmHandler(starter Initializer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var in farm.OnboardingInput
		if !decodeJSON(w, r, &in) {
			return
		}

		jobID, err := starter.Start(r.Context(), userID, in)
		if err != nil {
			switch {
			case errors.Is(err, farm.ErrInvalidInput):
				response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
			case errors.Is(err, worker.ErrPoolClosed):
				response.Error(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Server is shutting down", nil)
			default:
				internalError(w, r, err)
			}
			return
		}
		response.Started(w, "jobId", jobID)
	}
}

// NewInitializationStatusHandler returns an http.HandlerFunc for
// GET /api/v1/initialization-status/{jobID}.
func NewInitializationStatusHandler(reg JobReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}

		job, err := reg.Get(r.Context(), chi.URLParam(r, "jobID"), userID)
		if err != nil {
			switch {
			case errors.Is(err, jobs.ErrJobNotFound):
				response.Error(w, http.StatusNotFound, "JOB_NOT_FOUND", "Job not found or expired", nil)
			case errors.Is(err, jobs.ErrJobForbidden):
				response.Error(w, http.StatusForbidden, "FORBIDDEN", "Job belongs to another user", nil)
			default:
				internalError(w, r, err)
			}
			return
		}

		response.JSON(w, jobStatusResponse{
			Status:      job.Status,
			Progress:    job.Progress,
			CurrentStep: job.CurrentStep,
			Error:       job.Error,
		})
	}
}
