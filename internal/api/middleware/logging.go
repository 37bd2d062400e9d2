package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// userHolder lets the authenticated user ID flow back out to the logger,
// which runs before auth has set it on the request.
type userHolder struct {
	id string
}

func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		holder := &userHolder{}

		next.ServeHTTP(rec, r.WithContext(withUserHolder(r.Context(), holder)))

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
		}
		if holder.id != "" {
			attrs = append(attrs, "user_id", holder.id)
		}
		slog.Info("request", attrs...)
	})
}
