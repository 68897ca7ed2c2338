package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"telegram-fleet/internal/domain/ports/adapter"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.AIServiceAdapter = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.AIServiceAdapter using Chat Completions API.
type OpenAIAdapter struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewOpenAIAdapter(apiKey, baseURL, model string) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIAdapter{
		apiKey: apiKey,
		base:   baseURL,
		model:  model,
		client: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (o *OpenAIAdapter) Generate(ctx context.Context, p adapter.GenerateParams) (string, error) {
	system := "You write short, natural-sounding Russian Telegram messages. Task: " + p.Task
	maxTokens := p.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}
	temperature := p.Temperature
	if temperature <= 0 {
		temperature = 0.8
	}
	return o.chat(ctx, []chatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: p.Prompt},
	}, maxTokens, temperature)
}

func (o *OpenAIAdapter) Rewrite(ctx context.Context, text string) (string, error) {
	return o.chat(ctx, []chatMessage{
		{Role: "system", Content: "Rewrite the following message keeping its meaning and language, varying the wording. Reply with the rewritten text only."},
		{Role: "user", Content: text},
	}, 400, 0.9)
}

func (o *OpenAIAdapter) chat(ctx context.Context, messages []chatMessage, maxTokens int, temperature float64) (string, error) {
	reqBody := struct {
		Model       string        `json:"model"`
		Messages    []chatMessage `json:"messages"`
		MaxTokens   int           `json:"max_tokens"`
		Temperature float64       `json:"temperature"`
	}{Model: o.model, Messages: messages, MaxTokens: maxTokens, Temperature: temperature}

	b, _ := json.Marshal(reqBody)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, o.base+"/chat/completions", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var payload struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	for _, c := range payload.Choices {
		if c.Message.Content != "" {
			return c.Message.Content, nil
		}
	}
	return "", errors.New("no choice content")
}
