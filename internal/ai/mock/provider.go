package mock

import (
	"context"
	"sync/atomic"

	"github.com/kiranshivaraju/farmdesk/internal/ai"
	"github.com/kiranshivaraju/farmdesk/pkg/models"
)

// MockProvider satisfies models.AIProvider for testing.
type MockProvider struct {
	Name_        string
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	calls atomic.Int64
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Generate(ctx context.Context, prompt string) (string, error) {
	m.calls.Add(1)
	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	return "", nil
}

// Calls returns how many times Generate was invoked.
func (m *MockProvider) Calls() int { return int(m.calls.Load()) }

// NewMockProvider returns a MockProvider that always answers with response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		GenerateFunc: func(_ context.Context, _ string) (string, error) {
			return response, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		GenerateFunc: func(_ context.Context, _ string) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		GenerateFunc: func(ctx context.Context, _ string) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// Compile-time check that MockProvider implements AIProvider.
var _ models.AIProvider = (*MockProvider)(nil)
