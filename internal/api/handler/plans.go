package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/internal/api/response"
	"github.com/kiranshivaraju/farmdesk/internal/planning"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// PlanService defines the plan operations the handlers depend on.
type PlanService interface {
	Create(ctx context.Context, userID uuid.UUID, in planning.CreatePlanInput) (*models.Plan, error)
	Status(ctx context.Context, userID, planID uuid.UUID) (*planning.PlanStatus, error)
	Get(ctx context.Context, userID, planID uuid.UUID) (*models.Plan, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Plan, error)
	UpdateTaskStatus(ctx context.Context, userID, planID, taskID uuid.UUID, status string) (*models.Plan, error)
	UpdateStatus(ctx context.Context, userID, planID uuid.UUID, next string) (*models.Plan, error)
	Regenerate(ctx context.Context, userID, planID uuid.UUID) (*models.Plan, error)
}

type planCreatedResponse struct {
	ID     uuid.UUID `json:"id"`
	Title  string    `json:"title"`
	Status string    `json:"status"`
}

func writePlanError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, planning.ErrInvalidInput):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), nil)
	case errors.Is(err, planning.ErrFieldNotFound):
		response.Error(w, http.StatusNotFound, "FIELD_NOT_FOUND", "Field not found", nil)
	case errors.Is(err, planning.ErrPlanNotFound):
		response.Error(w, http.StatusNotFound, "PLAN_NOT_FOUND", "Plan not found", nil)
	case errors.Is(err, planning.ErrTaskNotFound):
		response.Error(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found in plan", nil)
	case errors.Is(err, planning.ErrPlanNotReady):
		response.Error(w, http.StatusConflict, "PLAN_NOT_READY", err.Error(), nil)
	case errors.Is(err, models.ErrInvalidTransition):
		response.Error(w, http.StatusConflict, "INVALID_TRANSITION", err.Error(), nil)
	case errors.Is(err, worker.ErrPoolClosed):
		response.Error(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Server is shutting down", nil)
	default:
		internalError(w, r, err)
	}
}

// NewCreatePlanHandler returns an http.HandlerFunc for POST /api/v1/plans. The
// plan is returned in processing status; tasks are generated in the background.
func NewCreatePlanHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		var in planning.CreatePlanInput
		if !decodeJSON(w, r, &in) {
			return
		}
		plan, err := svc.Create(r.Context(), userID, in)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		response.JSON(w, planCreatedResponse{ID: plan.ID, Title: plan.Title, Status: plan.Status})
	}
}

func NewListPlansHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		plans, err := svc.List(r.Context(), userID)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		items, meta := page(r, plans)
		response.Collection(w, items, meta)
	}
}

func NewGetPlanHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		planID, ok := uuidParam(w, r, "planID")
		if !ok {
			return
		}
		plan, err := svc.Get(r.Context(), userID, planID)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		response.JSON(w, plan)
	}
}

// NewPlanStatusHandler returns the lightweight status view clients poll.
func NewPlanStatusHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		planID, ok := uuidParam(w, r, "planID")
		if !ok {
			return
		}
		st, err := svc.Status(r.Context(), userID, planID)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		response.JSON(w, st)
	}
}

func NewUpdatePlanStatusHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		planID, ok := uuidParam(w, r, "planID")
		if !ok {
			return
		}
		var req statusRequest
		if !decodeJSON(w, r, &req) || !validateBody(w, req) {
			return
		}
		plan, err := svc.UpdateStatus(r.Context(), userID, planID, req.Status)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		response.JSON(w, plan)
	}
}

func NewUpdatePlanTaskHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		planID, ok := uuidParam(w, r, "planID")
		if !ok {
			return
		}
		taskID, ok := uuidParam(w, r, "taskID")
		if !ok {
			return
		}
		var req statusRequest
		if !decodeJSON(w, r, &req) || !validateBody(w, req) {
			return
		}
		plan, err := svc.UpdateTaskStatus(r.Context(), userID, planID, taskID, req.Status)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		response.JSON(w, plan)
	}
}

func NewRegeneratePlanHandler(svc PlanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		planID, ok := uuidParam(w, r, "planID")
		if !ok {
			return
		}
		plan, err := svc.Regenerate(r.Context(), userID, planID)
		if err != nil {
			writePlanError(w, r, err)
			return
		}
		response.JSON(w, planCreatedResponse{ID: plan.ID, Title: plan.Title, Status: plan.Status})
	}
}
