package adapter

import (
	"context"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"callqa/pkg/errors"
	"callqa/pkg/logger"
)

const maxRetries = 3

// LLMAdapter handles communication with an OpenAI-compatible endpoint.
// Both fact extraction and answer synthesis go through Complete.
type LLMAdapter struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter. baseURL may be empty, in which
// case the default OpenAI endpoint is used.
func NewLLMAdapter(apiKey, baseURL, modelID string) *LLMAdapter {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}

	return &LLMAdapter{
		client: openai.NewClientWithConfig(config),
		model:  modelID,
		logger: logger.Get(),
	}
}

// Model returns the configured model id.
func (a *LLMAdapter) Model() string {
	return a.model
}

// Complete sends a system+user prompt pair and returns the model's text.
// Transient failures are retried with incremental backoff.
func (a *LLMAdapter) Complete(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		// Low temperature: extraction and grounded answers should not wander.
		Temperature: 0.2,
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			a.logger.Warn("retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", errors.NewContextCancelled("llm_complete", ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", a.model),
		)
	}

	if err != nil {
		return "", errors.NewLLMRequestFailed(a.model, maxRetries, err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.NewLLMBadResponse("no choices in completion", nil)
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM response generated",
		zap.String("model", a.model),
		zap.Int("content_length", len(content)),
	)

	return content, nil
}
