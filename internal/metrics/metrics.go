// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "farmdesk"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route pattern, method and status code.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route pattern and method.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method"})

	BackgroundQueued = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "background_tasks_queued",
		Help:      "Background tasks waiting for a worker slot.",
	}, []string{"task"})

	BackgroundDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "background_task_duration_seconds",
		Help:      "Background task run time by task name and outcome.",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
	}, []string{"task", "outcome"})

	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ai_requests_total",
		Help:      "AI completions by provider and outcome.",
	}, []string{"provider", "outcome"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// BackgroundTimer measures one background task run.
type BackgroundTimer struct {
	task  string
	start time.Time
}

func NewBackgroundTimer(task string) BackgroundTimer {
	return BackgroundTimer{task: task, start: time.Now()}
}

// Observe records the elapsed time under "ok" or "error".
func (t BackgroundTimer) Observe(err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	BackgroundDuration.WithLabelValues(t.task, outcome).Observe(time.Since(t.start).Seconds())
}
