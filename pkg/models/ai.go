// Package models contains shared data models used across the Farmer's Desk codebase.
package models

import "context"

// AIProvider is the core interface that all generative-AI integrations must implement.
// Providers are opaque text-completion functions: the returned text is usually JSON
// but callers must never trust it without coercion.
type AIProvider interface {
	// Generate returns free text for the given prompt.
	Generate(ctx context.Context, prompt string) (string, error)
	// Name returns the provider identifier (e.g., "gemini", "ollama").
	Name() string
}
