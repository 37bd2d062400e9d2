package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/farmdesk/internal/config"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// Sentinel errors for Ollama failures.
var (
	ErrOllamaUnreachable = errors.New("ollama unreachable")
	ErrOllamaTimeout     = errors.New("ollama request timeout")
	ErrOllamaBadStatus   = errors.New("ollama returned an error status")
)

// Provider implements models.AIProvider using Ollama's HTTP API.
type Provider struct {
	baseURL string
	model   string
	client  *http.Client
}

func NewProvider(cfg config.OllamaConfig, timeout time.Duration) *Provider {
	return &Provider{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *Provider) Name() string { return "ollama" }

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Format string `json:"format,omitempty"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Model:  p.model,
		Prompt: prompt,
		Format: "json",
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", ErrOllamaBadStatus, resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding ollama response: %w", err)
	}
	return out.Response, nil
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrOllamaTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrOllamaTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrOllamaUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrOllamaUnreachable, err)
}

var _ models.AIProvider = (*Provider)(nil)
