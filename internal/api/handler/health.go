package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/kiranshivaraju/farmdesk/internal/api/response"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler reports each dependency as ok or degraded. A nil Pinger is
// skipped so optional backends can be left out.
func NewHealthHandler(deps map[string]Pinger, aiProvider string) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string, len(names))
		degraded := false
		for _, name := range names {
			p := deps[name]
			if p == nil {
				continue
			}
			checks[name] = "ok"
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":      "ok",
			"services":    checks,
			"ai_provider": aiProvider,
		})
	}
}
