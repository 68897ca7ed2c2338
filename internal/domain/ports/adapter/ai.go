package adapter

import "context"

// GenerateParams bound one LLM text generation call.
type GenerateParams struct {
	Prompt      string
	Task        string // short instruction label: comment, personalize, rewrite
	MaxTokens   int
	Temperature float64
}

// AIServiceAdapter is the optional LLM port. Workers must degrade gracefully
// when it is absent or failing: a failed AI call never blocks a send.
type AIServiceAdapter interface {
	Generate(ctx context.Context, p GenerateParams) (string, error)
	Rewrite(ctx context.Context, text string) (string, error)
}
