package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/sghtao/companion-camp-backend/internal/ai"
)

const defaultModel = "gemini-2.0-flash-lite"

// Generator implements ai.Generator using the Gemini API.
type Generator struct {
	client *genai.Client
	model  string
}

// NewGenerator creates a Gemini generator. baseURL is optional.
func NewGenerator(ctx context.Context, apiKey, model, baseURL string) (*Generator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Generator{
		client: client,
		model:  model,
	}, nil
}

func (g *Generator) Name() string {
	return "gemini"
}

// Generate implements ai.Generator
func (g *Generator) Generate(ctx context.Context, system, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx,
		g.model,
		genai.Text(prompt),
		&genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
			Temperature:       genai.Ptr[float32](0.3),
			ResponseMIMEType:  "application/json",
		},
	)
	if err != nil {
		if isRateLimited(err) {
			return "", fmt.Errorf("gemini generate failed: %w: %v", ai.ErrRateLimited, err)
		}
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response from gemini")
	}
	return text, nil
}

// quota errors surface as HTTP 429 / RESOURCE_EXHAUSTED in the message
func isRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}
