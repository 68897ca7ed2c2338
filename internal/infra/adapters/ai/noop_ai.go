package ai

import (
	"context"

	"telegram-fleet/internal/domain/ports/adapter"
)

var _ adapter.AIServiceAdapter = (*NoopAIAdapter)(nil)

// NoopAIAdapter stands in when no LLM key is configured. Generate returns
// empty so callers fall back to their static templates; Rewrite echoes.
type NoopAIAdapter struct{}

func NewNoopAIAdapter() *NoopAIAdapter { return &NoopAIAdapter{} }

func (a *NoopAIAdapter) Generate(_ context.Context, _ adapter.GenerateParams) (string, error) {
	return "", nil
}

func (a *NoopAIAdapter) Rewrite(_ context.Context, text string) (string, error) {
	return text, nil
}
