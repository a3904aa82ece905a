package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sashabaranov/go-openai"

	"github.com/sghtao/companion-camp-backend/internal/ai"
)

const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	DeepSeekModel   = "deepseek-chat"
)

// Generator implements ai.Generator on top of the chat completions API.
// Any OpenAI-compatible endpoint (DeepSeek included) works via baseURL.
type Generator struct {
	client *openai.Client
	model  string
	name   string
}

// NewGenerator creates a new chat completion generator
func NewGenerator(apiKey, model, baseURL string) *Generator {
	cfg := openai.DefaultConfig(apiKey)
	name := "openai"
	if baseURL != "" {
		cfg.BaseURL = baseURL
		if baseURL == DeepSeekBaseURL {
			name = "deepseek"
		}
	}
	if model == "" {
		model = openai.GPT4oMini // 默认使用较便宜的模型
	}
	return &Generator{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   name,
	}
}

// NewDeepSeekGenerator points the generator at DeepSeek's compatible API.
func NewDeepSeekGenerator(apiKey, model string) *Generator {
	if model == "" {
		model = DeepSeekModel
	}
	return NewGenerator(apiKey, model, DeepSeekBaseURL)
}

func (g *Generator) Name() string {
	return g.name
}

// Generate implements ai.Generator
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: system,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			Temperature: 0.3, // 使用较低的temperature以获得更稳定的输出
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("%s api error: %w: %v", g.name, ai.ErrRateLimited, err)
		}
		return "", fmt.Errorf("%s api error: %w", g.name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from %s", g.name)
	}

	return resp.Choices[0].Message.Content, nil
}

func isRateLimited(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}
