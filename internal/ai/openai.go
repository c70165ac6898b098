package ai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/spec-kit/devreview-service/internal/config"
)

// ErrNotConfigured is returned when no provider API key is set.
var ErrNotConfigured = errors.New("ai provider not configured")

// Reviewer produces a code review for a snippet in a given language.
type Reviewer interface {
	Review(ctx context.Context, code, language string) (string, error)
	Model() string
}

const systemPrompt = `You are an expert software engineer conducting a code review.
Analyze the provided code and give structured, actionable feedback covering:

1. **Bugs & Issues** — anything that could cause errors or unexpected behavior
2. **Security** — potential vulnerabilities (SQL injection, XSS, secrets in code, etc.)
3. **Performance** — inefficiencies, unnecessary complexity, better algorithms
4. **Best Practices** — naming, structure, type hints, error handling
5. **Quick Wins** — the 1-2 most impactful improvements to make first

Be specific. Reference line patterns or function names where possible.
Format your response in clean markdown. Keep it under 400 words — be concise and actionable.`

// OpenAIReviewer calls an OpenAI-compatible chat-completion endpoint.
type OpenAIReviewer struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAIReviewer builds a reviewer from config. BaseURL allows pointing at
// any OpenAI-compatible provider.
func NewOpenAIReviewer(cfg config.AIConfig) (*OpenAIReviewer, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIReviewer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}, nil
}

// Review submits the snippet and returns the generated review text.
func (r *OpenAIReviewer) Review(ctx context.Context, code, language string) (string, error) {
	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: r.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Please review this %s code:\n\n```%s\n%s\n```", language, language, code),
			},
		},
		MaxTokens:   r.maxTokens,
		Temperature: 0.3,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("provider returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// Model reports the configured model name.
func (r *OpenAIReviewer) Model() string {
	return r.model
}
