package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiranshivaraju/farmdesk/internal/advisor"
	"github.com/kiranshivaraju/farmdesk/internal/api"
	"github.com/kiranshivaraju/farmdesk/internal/api/handler"
	mw "github.com/kiranshivaraju/farmdesk/internal/api/middleware"
	"github.com/kiranshivaraju/farmdesk/internal/cache"
	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/internal/farm"
	"github.com/kiranshivaraju/farmdesk/internal/jobs"
	"github.com/kiranshivaraju/farmdesk/internal/planning"
	"github.com/kiranshivaraju/farmdesk/internal/prediction"
	"github.com/kiranshivaraju/farmdesk/internal/store"
	"github.com/kiranshivaraju/farmdesk/internal/weather"
	"github.com/kiranshivaraju/farmdesk/internal/worker"
)

const testSecret = "test-secret-at-least-32-bytes-long!!"

func newTestRouter() http.Handler {
	return api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(testSecret, time.Hour),
		RateLimit: mw.NewRateLimit(cache.NewMemoryCache(), 60),
		HealthHandler: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		},
	})
}

// newAppRouter wires the real services over in-memory backends with no AI
// provider, so every generation path uses templates.
func newAppRouter(t *testing.T) http.Handler {
	t.Helper()
	s := store.NewMemoryStore()
	c := cache.NewMemoryCache()
	reg := jobs.NewMemoryRegistry(jobs.DefaultExpireAfter)
	pool := worker.NewPool(4)
	t.Cleanup(func() { _ = pool.Shutdown(context.Background()) })

	adv := advisor.New(nil, time.Second)
	wp := weather.NewCached(weather.NewHTTPClient(config.WeatherConfig{}), c, time.Minute)
	auth := mw.NewAuth(testSecret, time.Hour)
	plans := planning.NewService(s, adv, pool, planning.DefaultGenerationTimeout)
	preds := prediction.NewService(s, adv, pool)

	return api.NewRouter(api.Dependencies{
		Auth:      auth,
		RateLimit: mw.NewRateLimit(c, 1000),

		HealthHandler: handler.NewHealthHandler(map[string]handler.Pinger{"database": s, "cache": c}, "template"),

		RegisterHandler: handler.NewRegisterHandler(s, auth),
		LoginHandler:    handler.NewLoginHandler(s, auth),
		MeHandler:       handler.NewMeHandler(s),

		InitializeFarmHandler:       handler.NewInitializeFarmHandler(farm.NewInitializer(s, reg, adv, wp, pool)),
		InitializationStatusHandler: handler.NewInitializationStatusHandler(reg),

		ListFieldsHandler: handler.NewListFieldsHandler(s),
		ListTasksHandler:  handler.NewListTasksHandler(s),
		ListAlertsHandler: handler.NewListAlertsHandler(s),

		CreatePlanHandler: handler.NewCreatePlanHandler(plans),
		PlanStatusHandler: handler.NewPlanStatusHandler(plans),
		GetPlanHandler:    handler.NewGetPlanHandler(plans),

		RequestYieldHandler:  handler.NewRequestYieldHandler(preds),
		GetPredictionHandler: handler.NewGetPredictionHandler(preds),
	})
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	out := map[string]any{}
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w, out
}

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	router := newTestRouter()

	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/api/v1/me"},
		{"POST", "/api/v1/initialize-farm"},
		{"GET", "/api/v1/initialization-status/init_x_1"},
		{"GET", "/api/v1/fields"},
		{"GET", "/api/v1/tasks"},
		{"GET", "/api/v1/alerts"},
		{"POST", "/api/v1/plans"},
		{"GET", "/api/v1/plans/" + uuid.NewString() + "/status"},
		{"POST", "/api/v1/predictions/yield"},
		{"GET", "/api/v1/predictions"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			req := httptest.NewRequest(ep.method, ep.path, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			errObj := body["error"].(map[string]any)
			assert.Equal(t, "INVALID_TOKEN", errObj["code"])
		})
	}
}

func TestRouter_UnwiredHandlerIsNotImplemented(t *testing.T) {
	router := newTestRouter()
	auth := mw.NewAuth(testSecret, time.Hour)
	token, _, err := auth.Issue(uuid.New())
	require.NoError(t, err)

	w, _ := do(t, router, http.MethodGet, "/api/v1/fields", token, nil)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_OnboardingFlow(t *testing.T) {
	router := newAppRouter(t)

	w, body := do(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email":    "asha@example.com",
		"password": "correct-horse",
		"name":     "Asha",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	token := body["data"].(map[string]any)["token"].(string)

	w, body = do(t, router, http.MethodPost, "/api/v1/initialize-farm", token, map[string]any{
		"location":      map[string]any{"city": "Pune", "country": "IN"},
		"farmingMethod": "organic",
		"fields": []map[string]any{
			{"name": "North", "area": 2, "cropType": "maize", "growthStage": "flowering", "soilHealth": map[string]any{"pH": "5.1"}},
			{"name": "South", "area": 1, "growthStage": "not_planted"},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, body["success"])
	jobID := body["jobId"].(string)
	assert.Regexp(t, `^init_[0-9a-f-]{36}_\d+_[0-9a-f]{8}$`, jobID)

	assert.Eventually(t, func() bool {
		w, body := do(t, router, http.MethodGet, "/api/v1/initialization-status/"+jobID, token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		data := body["data"].(map[string]any)
		return data["status"] == "completed" && data["progress"] == float64(100)
	}, 5*time.Second, 20*time.Millisecond)

	w, body = do(t, router, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "completed", body["data"].(map[string]any)["initialization_status"])

	w, body = do(t, router, http.MethodGet, "/api/v1/fields", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 2)

	w, body = do(t, router, http.MethodGet, "/api/v1/tasks", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["data"])

	// A second user cannot read the first user's job.
	w, body = do(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "ravi@example.com", "password": "correct-horse", "name": "Ravi",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	other := body["data"].(map[string]any)["token"].(string)
	w, _ = do(t, router, http.MethodGet, "/api/v1/initialization-status/"+jobID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_PlanBecomesReady(t *testing.T) {
	router := newAppRouter(t)

	_, body := do(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "asha@example.com", "password": "correct-horse", "name": "Asha",
	})
	token := body["data"].(map[string]any)["token"].(string)

	w, _ := do(t, router, http.MethodPost, "/api/v1/initialize-farm", token, map[string]any{
		"location": map[string]any{"city": "Pune"},
		"fields":   []map[string]any{{"name": "North", "area": 2, "cropType": "maize", "growthStage": "vegetative"}},
	})
	require.Equal(t, http.StatusOK, w.Code)

	_, body = do(t, router, http.MethodGet, "/api/v1/fields", token, nil)
	fieldID := body["data"].([]any)[0].(map[string]any)["id"].(string)

	w, body = do(t, router, http.MethodPost, "/api/v1/plans", token, map[string]any{
		"title":     "Watering",
		"planType":  "irrigation",
		"fieldId":   fieldID,
		"startDate": "2026-04-01",
		"duration":  21,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	planID := body["data"].(map[string]any)["id"].(string)

	assert.Eventually(t, func() bool {
		w, body := do(t, router, http.MethodGet, "/api/v1/plans/"+planID+"/status", token, nil)
		if w.Code != http.StatusOK {
			return false
		}
		data := body["data"].(map[string]any)
		return data["isReady"] == true && data["status"] == "active"
	}, 5*time.Second, 20*time.Millisecond)

	w, body = do(t, router, http.MethodPost, "/api/v1/predictions/yield", token, map[string]any{
		"fieldId": fieldID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	predID := body["predictionId"].(string)

	assert.Eventually(t, func() bool {
		w, body := do(t, router, http.MethodGet, "/api/v1/predictions/yield/"+predID, token, nil)
		return w.Code == http.StatusOK && body["data"].(map[string]any)["status"] == "completed"
	}, 5*time.Second, 20*time.Millisecond)
}
