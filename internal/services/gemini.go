package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/bobarin/podcastgen/internal/script"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// ---------------------------------------------------------------------------
// Gemini script writer
// Uses the Google Gen AI SDK against the Gemini API with a JSON response type.
// ---------------------------------------------------------------------------

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiService struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

var _ script.LLM = (*GeminiService)(nil)

// NewGeminiService creates a Gemini-backed LLM. baseURL overrides the API
// endpoint and is empty in production.
func NewGeminiService(ctx context.Context, apiKey, baseURL, model string, logger *zap.Logger) (*GeminiService, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiService{
		client: client,
		model:  model,
		logger: logger.Named("gemini"),
	}, nil
}

func (s *GeminiService) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.Models.GenerateContent(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(openAISystemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr[float32](openAITemperature),
		MaxOutputTokens:   openAIMaxTokens,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("no response from gemini")
	}

	s.logger.Debug("content generated",
		zap.String("model", s.model),
		zap.String("content", truncateString(text, maxLoggedResponseLen)),
	)
	return text, nil
}
