package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
	"google.golang.org/api/option"
)

// Provider implements models.AIProvider using the Gemini API.
type Provider struct {
	client *genai.Client
	model  string
}

// NewProvider creates a Gemini client authenticated with an API key.
func NewProvider(ctx context.Context, cfg config.GeminiConfig) (*Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini: API key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	return &Provider{client: client, model: cfg.Model}, nil
}

func (p *Provider) Name() string { return "gemini" }

// Generate asks the model for a JSON answer. The text is returned as-is; callers coerce it.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(0.4)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	return responseText(resp)
}

// Close releases the underlying gRPC connection.
func (p *Provider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("gemini: no content in response")
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini: no text parts in response")
	}
	return sb.String(), nil
}

var _ models.AIProvider = (*Provider)(nil)
