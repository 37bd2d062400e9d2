package vertex

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

const systemPrompt = "You are an agricultural advisor for smallholder farmers. Answer only with a single valid JSON object matching the requested shape."

// Provider implements models.AIProvider using Gemini models hosted on Vertex AI.
// Credentials come from the environment (Application Default Credentials).
type Provider struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewProvider creates a Vertex AI client for the configured project and region.
func NewProvider(ctx context.Context, cfg config.VertexConfig) (*Provider, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: project and region cannot be empty")
	}

	client, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.4),
	}

	return &Provider{client: client, model: model}, nil
}

func (p *Provider) Name() string { return "vertex" }

func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("vertex: empty response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("vertex: no text parts in response")
	}
	return sb.String(), nil
}

func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

var _ models.AIProvider = (*Provider)(nil)
