package middleware_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mw "github.com/kiranshivaraju/farmdesk/internal/api/middleware"
	"github.com/kiranshivaraju/farmdesk/internal/metrics"
)

const testSecret = "test-secret-that-is-at-least-32-bytes-long"

// --- Mock Cache ---

type mockCache struct {
	counter int64
	err     error
	lastKey string
}

func (m *mockCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error { return nil }
func (m *mockCache) Get(_ context.Context, _ string) ([]byte, bool, error)            { return nil, false, nil }
func (m *mockCache) Delete(_ context.Context, _ string) error                          { return nil }
func (m *mockCache) Ping(_ context.Context) error                                      { return nil }
func (m *mockCache) Close() error                                                      { return nil }
func (m *mockCache) IncrWithExpiry(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.lastKey = key
	m.counter++
	return m.counter, m.err
}

// --- helpers ---

func okHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

func errBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	return body["error"].(map[string]any)
}

func withUser(r *http.Request, id uuid.UUID) *http.Request {
	return r.WithContext(mw.SetUserID(r.Context(), id))
}

// ========================================
// Auth Middleware Tests
// ========================================

func TestAuth_MissingAuthHeader(t *testing.T) {
	auth := mw.NewAuth(testSecret, time.Hour)
	handler := auth.Authenticate(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_TOKEN", errBody(t, w)["code"])
}

func TestAuth_InvalidBearerFormat(t *testing.T) {
	auth := mw.NewAuth(testSecret, time.Hour)
	handler := auth.Authenticate(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Basic abc123")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuth_ValidToken(t *testing.T) {
	auth := mw.NewAuth(testSecret, time.Hour)
	userID := uuid.New()
	token, exp, err := auth.Issue(userID)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	var gotID uuid.UUID
	var gotOK bool
	handler := auth.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, gotOK = mw.GetUserID(r)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, gotOK)
	assert.Equal(t, userID, gotID)
}

func TestAuth_WrongSecret(t *testing.T) {
	other := mw.NewAuth("another-secret-that-is-at-least-32-bytes", time.Hour)
	token, _, err := other.Issue(uuid.New())
	require.NoError(t, err)

	handler := mw.NewAuth(testSecret, time.Hour).Authenticate(okHandler())
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token", errBody(t, w)["message"])
}

func TestAuth_ExpiredToken(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "farmdesk",
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	handler := mw.NewAuth(testSecret, time.Hour).Authenticate(okHandler())
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token has expired", errBody(t, w)["message"])
}

func TestAuth_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "farmdesk",
		Subject:   uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = mw.NewAuth(testSecret, time.Hour).Parse(token)
	assert.Error(t, err)
}

func TestAuth_RejectsNonUUIDSubject(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    "farmdesk",
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = mw.NewAuth(testSecret, time.Hour).Parse(token)
	assert.Error(t, err)
}

// ========================================
// Rate Limit Middleware Tests
// ========================================

func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	mc := &mockCache{counter: 0}
	rl := mw.NewRateLimit(mc, 60)
	handler := rl.Limit(okHandler())
	userID := uuid.New()

	req := withUser(httptest.NewRequest("GET", "/test", nil), userID)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "60", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "59", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	assert.Equal(t, "ratelimit:"+userID.String(), mc.lastKey)
}

func TestRateLimit_RejectsOverLimit(t *testing.T) {
	mc := &mockCache{counter: 60} // next IncrWithExpiry will return 61
	rl := mw.NewRateLimit(mc, 60)
	handler := rl.Limit(okHandler())

	req := withUser(httptest.NewRequest("GET", "/test", nil), uuid.New())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", errBody(t, w)["code"])
}

func TestRateLimit_FailsOpen(t *testing.T) {
	mc := &mockCache{err: errors.New("connection refused")}
	handler := mw.NewRateLimit(mc, 1).Limit(okHandler())

	req := withUser(httptest.NewRequest("GET", "/test", nil), uuid.New())
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimit_NoUser_PassThrough(t *testing.T) {
	mc := &mockCache{}
	handler := mw.NewRateLimit(mc, 60).Limit(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, mc.lastKey)
}

// ========================================
// Recovery Middleware Tests
// ========================================

func TestRecovery_CatchesPanic(t *testing.T) {
	panicking := http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("something went wrong")
	})

	handler := mw.Recovery(panicking)

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "INTERNAL_ERROR", errBody(t, w)["code"])
}

func TestRecovery_NoPanic(t *testing.T) {
	handler := mw.Recovery(okHandler())

	req := httptest.NewRequest("GET", "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ========================================
// Logging Middleware Tests
// ========================================

func TestLogger_IncludesAuthenticatedUser(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	auth := mw.NewAuth(testSecret, time.Hour)
	userID := uuid.New()
	token, _, err := auth.Issue(userID)
	require.NoError(t, err)

	handler := mw.Logger(auth.Authenticate(okHandler()))
	req := httptest.NewRequest("GET", "/test", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "request", entry["msg"])
	assert.Equal(t, float64(200), entry["status"])
	assert.Equal(t, userID.String(), entry["user_id"])
}

// ========================================
// Metrics Middleware Tests
// ========================================

func TestMetrics_UsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(mw.Metrics)
	r.Get("/api/v1/plans/{planID}", okHandler())

	c := metrics.HTTPRequests.WithLabelValues("/api/v1/plans/{planID}", "GET", "200")
	before := testutil.ToFloat64(c)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest("GET", "/api/v1/plans/"+uuid.NewString(), nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, before+2, testutil.ToFloat64(c))
}
