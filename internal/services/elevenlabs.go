package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bobarin/podcastgen/internal/audio"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// ElevenLabs Text-to-Speech Service
// Uses the ElevenLabs REST API and asks for raw signed 16-bit PCM at the
// working sample rate (pcm_16000, pcm_22050, pcm_24000 or pcm_44100).
// ---------------------------------------------------------------------------

const (
	elevenLabsBaseURL      = "https://api.elevenlabs.io"
	elevenLabsDefaultModel = "eleven_flash_v2_5"
	elevenLabsTextLimit    = 5000

	elevenLabsVoiceSpeaker1 = "21m00Tcm4TlvDq8ikWAM"
	elevenLabsVoiceSpeaker2 = "pNInz6obpgDQGcFmaJgB"
)

// ElevenLabsService handles text-to-speech via ElevenLabs API.
type ElevenLabsService struct {
	apiKey     string
	baseURL    string
	modelID    string
	sampleRate int
	client     *http.Client
	logger     *zap.Logger
}

// NewElevenLabsService creates an ElevenLabs engine. Empty baseURL and
// modelID use the public endpoint and eleven_flash_v2_5.
func NewElevenLabsService(apiKey, baseURL, modelID string, sampleRate int, logger *zap.Logger) *ElevenLabsService {
	if baseURL == "" {
		baseURL = elevenLabsBaseURL
	}
	if modelID == "" {
		modelID = elevenLabsDefaultModel
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ElevenLabsService{
		apiKey:     apiKey,
		baseURL:    baseURL,
		modelID:    modelID,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 90 * time.Second},
		logger:     logger.Named("elevenlabs"),
	}
}

type elevenLabsRequest struct {
	Text          string                   `json:"text"`
	ModelID       string                   `json:"model_id"`
	VoiceSettings *elevenLabsVoiceSettings `json:"voice_settings,omitempty"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

func (s *ElevenLabsService) Synthesize(ctx context.Context, text, voiceID string) ([][]float32, error) {
	return renderChunks(ctx, text, elevenLabsTextLimit, func(ctx context.Context, chunk string) ([]float32, error) {
		return s.generate(ctx, chunk, voiceID)
	})
}

func (s *ElevenLabsService) generate(ctx context.Context, text, voiceID string) ([]float32, error) {
	reqBody := elevenLabsRequest{
		Text:    text,
		ModelID: s.modelID,
		VoiceSettings: &elevenLabsVoiceSettings{
			Stability:       0.50,
			SimilarityBoost: 0.80,
			Style:           0.30,
			UseSpeakerBoost: true,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal ElevenLabs request: %w", err)
	}

	// POST /v1/text-to-speech/{voice_id}?output_format=pcm_24000
	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_%d", s.baseURL, voiceID, s.sampleRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create ElevenLabs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.apiKey)

	s.logger.Debug("generating speech",
		zap.String("voice", voiceID),
		zap.String("model", s.modelID),
		zap.Int("text_len", len(text)),
	)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ElevenLabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ElevenLabs returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read ElevenLabs audio response: %w", err)
	}
	if len(data) < 2 {
		return nil, fmt.Errorf("ElevenLabs returned empty audio")
	}

	return audio.DecodePCM16LE(data), nil
}
