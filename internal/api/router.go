package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	mw "github.com/kiranshivaraju/farmdesk/internal/api/middleware"
	"github.com/kiranshivaraju/farmdesk/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler  http.HandlerFunc
	MetricsHandler http.Handler

	RegisterHandler http.HandlerFunc
	LoginHandler    http.HandlerFunc
	MeHandler       http.HandlerFunc

	InitializeFarmHandler       http.HandlerFunc
	InitializationStatusHandler http.HandlerFunc

	ListFieldsHandler    http.HandlerFunc
	ListTasksHandler     http.HandlerFunc
	UpdateTaskHandler    http.HandlerFunc
	ListAlertsHandler    http.HandlerFunc
	MarkAlertReadHandler http.HandlerFunc

	CreatePlanHandler       http.HandlerFunc
	ListPlansHandler        http.HandlerFunc
	GetPlanHandler          http.HandlerFunc
	PlanStatusHandler       http.HandlerFunc
	UpdatePlanStatusHandler http.HandlerFunc
	UpdatePlanTaskHandler   http.HandlerFunc
	RegeneratePlanHandler   http.HandlerFunc

	RequestYieldHandler    http.HandlerFunc
	GetPredictionHandler   http.HandlerFunc
	ListPredictionsHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)
	r.Use(mw.Metrics)

	// Public routes
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}
	r.Post("/api/v1/auth/register", orNotImplemented(deps.RegisterHandler))
	r.Post("/api/v1/auth/login", orNotImplemented(deps.LoginHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Get("/api/v1/me", orNotImplemented(deps.MeHandler))

		r.Post("/api/v1/initialize-farm", orNotImplemented(deps.InitializeFarmHandler))
		r.Get("/api/v1/initialization-status/{jobID}", orNotImplemented(deps.InitializationStatusHandler))

		r.Get("/api/v1/fields", orNotImplemented(deps.ListFieldsHandler))
		r.Get("/api/v1/tasks", orNotImplemented(deps.ListTasksHandler))
		r.Patch("/api/v1/tasks/{taskID}", orNotImplemented(deps.UpdateTaskHandler))
		r.Get("/api/v1/alerts", orNotImplemented(deps.ListAlertsHandler))
		r.Patch("/api/v1/alerts/{alertID}/read", orNotImplemented(deps.MarkAlertReadHandler))

		r.Route("/api/v1/plans", func(r chi.Router) {
			r.Post("/", orNotImplemented(deps.CreatePlanHandler))
			r.Get("/", orNotImplemented(deps.ListPlansHandler))
			r.Get("/{planID}", orNotImplemented(deps.GetPlanHandler))
			r.Get("/{planID}/status", orNotImplemented(deps.PlanStatusHandler))
			r.Patch("/{planID}/status", orNotImplemented(deps.UpdatePlanStatusHandler))
			r.Patch("/{planID}/tasks/{taskID}", orNotImplemented(deps.UpdatePlanTaskHandler))
			r.Post("/{planID}/regenerate", orNotImplemented(deps.RegeneratePlanHandler))
		})

		r.Post("/api/v1/predictions/yield", orNotImplemented(deps.RequestYieldHandler))
		r.Get("/api/v1/predictions/yield/{predictionID}", orNotImplemented(deps.GetPredictionHandler))
		r.Get("/api/v1/predictions", orNotImplemented(deps.ListPredictionsHandler))
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
