package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kiranshivaraju/farmdesk/internal/api/response"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// RecordStore is the subset of the store used for fields, tasks and alerts.
type RecordStore interface {
	ListFields(ctx context.Context, userID uuid.UUID) ([]*models.Field, error)
	ListTasks(ctx context.Context, userID uuid.UUID) ([]*models.Task, error)
	GetTask(ctx context.Context, id uuid.UUID, userID uuid.UUID) (*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	ListAlerts(ctx context.Context, userID uuid.UUID) ([]*models.Alert, error)
	MarkAlertRead(ctx context.Context, id uuid.UUID, userID uuid.UUID) error
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

func NewListFieldsHandler(s RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		fields, err := s.ListFields(r.Context(), userID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		items, meta := page(r, fields)
		response.Collection(w, items, meta)
	}
}

// NewListTasksHandler lists tasks, optionally filtered by ?status=.
func NewListTasksHandler(s RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		tasks, err := s.ListTasks(r.Context(), userID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if status := r.URL.Query().Get("status"); status != "" {
			filtered := tasks[:0]
			for _, t := range tasks {
				if t.Status == status {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		items, meta := page(r, tasks)
		response.Collection(w, items, meta)
	}
}

// NewUpdateTaskHandler returns an http.HandlerFunc for PATCH /api/v1/tasks/{taskID}.
func NewUpdateTaskHandler(s RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
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
		if !models.ValidTaskStatus(req.Status) {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown task status", nil)
			return
		}

		task, err := s.GetTask(r.Context(), taskID, userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "TASK_NOT_FOUND", "Task not found", nil)
				return
			}
			internalError(w, r, err)
			return
		}
		task.Status = req.Status
		task.UpdatedAt = time.Now().UTC()
		if err := s.UpdateTask(r.Context(), task); err != nil {
			internalError(w, r, err)
			return
		}
		response.JSON(w, task)
	}
}

// NewListAlertsHandler lists alerts; ?unread=true returns only unread ones.
func NewListAlertsHandler(s RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		alerts, err := s.ListAlerts(r.Context(), userID)
		if err != nil {
			internalError(w, r, err)
			return
		}
		if r.URL.Query().Get("unread") == "true" {
			filtered := alerts[:0]
			for _, a := range alerts {
				if !a.Read {
					filtered = append(filtered, a)
				}
			}
			alerts = filtered
		}
		items, meta := page(r, alerts)
		response.Collection(w, items, meta)
	}
}

// NewMarkAlertReadHandler returns an http.HandlerFunc for PATCH /api/v1/alerts/{alertID}/read.
func NewMarkAlertReadHandler(s RecordStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r)
		if !ok {
			return
		}
		alertID, ok := uuidParam(w, r, "alertID")
		if !ok {
			return
		}
		if err := s.MarkAlertRead(r.Context(), alertID, userID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				response.Error(w, http.StatusNotFound, "ALERT_NOT_FOUND", "Alert not found", nil)
				return
			}
			internalError(w, r, err)
			return
		}
		response.JSON(w, map[string]any{"id": alertID, "read": true})
	}
}
