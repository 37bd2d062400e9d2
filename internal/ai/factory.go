package ai

import (
	"context"
	"fmt"

	"github.com/kiranshivaraju/farmdesk/internal/ai/gemini"
	"github.com/kiranshivaraju/farmdesk/internal/ai/ollama"
	"github.com/kiranshivaraju/farmdesk/internal/ai/vertex"
	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// NewProvider constructs the appropriate AI provider based on config.
// Called once at server startup. The "template" provider returns a nil provider:
// every AI call then goes straight to the deterministic fallback.
func NewProvider(ctx context.Context, cfg config.AIConfig) (models.AIProvider, error) {
	switch cfg.Provider {
	case "gemini":
		return gemini.NewProvider(ctx, cfg.Gemini)
	case "vertex":
		return vertex.NewProvider(ctx, cfg.Vertex)
	case "ollama":
		return ollama.NewProvider(cfg.Ollama, cfg.InferenceTimeout), nil
	case "template":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q: must be one of gemini, vertex, ollama, template", cfg.Provider)
	}
}
