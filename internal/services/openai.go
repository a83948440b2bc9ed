package services

import (
	"context"
	"fmt"
	"io"

	"github.com/bobarin/podcastgen/internal/audio"
	"github.com/bobarin/podcastgen/internal/script"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const (
	defaultOpenAIModel   = "gpt-4o-mini"
	openAITemperature    = 0.7
	openAIMaxTokens      = 4000
	openAISystemPrompt   = "You are an expert podcast script writer who creates engaging, natural conversations between two hosts. Always respond with valid JSON."
	maxLoggedResponseLen = 2000

	openAISpeechSampleRate = 24000
	openAISpeechLimit      = 4000
	openAIVoiceSpeaker1    = "nova"
	openAIVoiceSpeaker2    = "onyx"
)

func newOpenAIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// ---------------------------------------------------------------------------
// OpenAI chat completions (script writer)
// ---------------------------------------------------------------------------

type OpenAIService struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

var _ script.LLM = (*OpenAIService)(nil)

// NewOpenAIService creates a chat-completion backed LLM. Empty model and
// baseURL use gpt-4o-mini on the public endpoint.
func NewOpenAIService(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIService {
	if model == "" {
		model = defaultOpenAIModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIService{
		client: newOpenAIClient(apiKey, baseURL),
		model:  model,
		logger: logger.Named("openai"),
	}
}

// Complete sends prompt as the user turn in JSON response mode and returns
// the raw message content.
func (s *OpenAIService) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: openAISystemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: openAITemperature,
		MaxTokens:   openAIMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from openai")
	}

	content := resp.Choices[0].Message.Content
	s.logger.Debug("chat completion received",
		zap.String("model", s.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("content", truncateString(content, maxLoggedResponseLen)),
	)
	return content, nil
}

// ---------------------------------------------------------------------------
// OpenAI text-to-speech
// Requests raw PCM (24 kHz signed 16-bit little-endian mono).
// ---------------------------------------------------------------------------

type OpenAISpeechService struct {
	client *openai.Client
	model  openai.SpeechModel
	logger *zap.Logger
}

func NewOpenAISpeechService(apiKey, baseURL, model string, logger *zap.Logger) *OpenAISpeechService {
	m := openai.TTSModel1
	if model != "" {
		m = openai.SpeechModel(model)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAISpeechService{
		client: newOpenAIClient(apiKey, baseURL),
		model:  m,
		logger: logger.Named("openai_tts"),
	}
}

func (s *OpenAISpeechService) Synthesize(ctx context.Context, text, voiceID string) ([][]float32, error) {
	return renderChunks(ctx, text, openAISpeechLimit, func(ctx context.Context, chunk string) ([]float32, error) {
		s.logger.Debug("generating speech",
			zap.String("voice", voiceID),
			zap.String("model", string(s.model)),
			zap.Int("text_len", len(chunk)),
		)

		resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
			Model:          s.model,
			Input:          chunk,
			Voice:          openai.SpeechVoice(voiceID),
			ResponseFormat: openai.SpeechResponseFormatPcm,
			Speed:          1.0,
		})
		if err != nil {
			return nil, fmt.Errorf("openai speech request failed: %w", err)
		}
		defer resp.Close()

		data, err := io.ReadAll(resp)
		if err != nil {
			return nil, fmt.Errorf("failed to read openai speech response: %w", err)
		}
		if len(data) < 2 {
			return nil, fmt.Errorf("openai returned empty audio")
		}
		return audio.DecodePCM16LE(data), nil
	})
}

// truncateString truncates s to maxLen bytes and appends "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
