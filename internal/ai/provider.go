// Package ai talks to the external text-generation services used for
// title rewriting and content generation.
package ai

import (
	"context"
	"fmt"

	"github.com/danibustillo97/rpa-news/internal/config"
)

// TextGenerator is the contract both backends implement. Errors are soft:
// the orchestrator falls back or drops the candidate, never the run.
type TextGenerator interface {
	// RewriteTitle asks for a short rewritten headline (at most 12 words).
	RewriteTitle(ctx context.Context, title string) (string, error)
	// GenerateContent asks for article body text for the given title,
	// instructed to close with a citation of the source URL.
	GenerateContent(ctx context.Context, title, sourceURL string) (string, error)
}

// NewFromConfig picks the configured backend.
func NewFromConfig(cfg *config.Config) (TextGenerator, error) {
	switch cfg.AIProvider {
	case "openrouter":
		return NewOpenRouter(cfg.OpenRouterAPIKey, cfg.OpenRouterURL, cfg.Model, cfg.RequestTimeout)
	case "gemini":
		return NewGemini(cfg.GeminiAPIKey, cfg.Model, cfg.RequestTimeout)
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.AIProvider)
	}
}
