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

const (
	CartesiaAPIVersion     = "2024-06-10"
	cartesiaBaseURL        = "https://api.cartesia.ai"
	cartesiaDefaultModel   = "sonic-english"
	cartesiaTranscriptSize = 2000

	cartesiaVoiceSpeaker1 = "a0e99841-438c-4a64-b679-ae501e7d6091"
	cartesiaVoiceSpeaker2 = "694f9389-aac1-45b6-b726-9d9369183238"
)

type CartesiaService struct {
	apiKey     string
	apiURL     string
	apiVersion string
	modelID    string
	sampleRate int
	client     *http.Client
	logger     *zap.Logger
}

func NewCartesiaService(apiKey, apiURL, modelID string, sampleRate int, logger *zap.Logger) *CartesiaService {
	if apiURL == "" {
		apiURL = cartesiaBaseURL
	}
	if modelID == "" {
		modelID = cartesiaDefaultModel
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartesiaService{
		apiKey:     apiKey,
		apiURL:     apiURL,
		apiVersion: CartesiaAPIVersion,
		modelID:    modelID,
		sampleRate: sampleRate,
		client:     &http.Client{Timeout: 60 * time.Second},
		logger:     logger.Named("cartesia"),
	}
}

// CartesiaRequest matches the /tts/bytes request body.
type CartesiaRequest struct {
	ModelID      string                 `json:"model_id"`
	Transcript   string                 `json:"transcript"`
	Voice        CartesiaVoiceSpecifier `json:"voice"`
	Language     string                 `json:"language,omitempty"`
	OutputFormat CartesiaOutputFormat   `json:"output_format"`
}

type CartesiaVoiceSpecifier struct {
	Mode string `json:"mode"`
	ID   string `json:"id"`
}

type CartesiaOutputFormat struct {
	Container  string `json:"container"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate"`
}

// Synthesize renders text as raw 32-bit float PCM at the working sample rate.
func (s *CartesiaService) Synthesize(ctx context.Context, text, voiceID string) ([][]float32, error) {
	return renderChunks(ctx, text, cartesiaTranscriptSize, func(ctx context.Context, chunk string) ([]float32, error) {
		return s.generate(ctx, chunk, voiceID)
	})
}

func (s *CartesiaService) generate(ctx context.Context, text, voiceID string) ([]float32, error) {
	reqBody := CartesiaRequest{
		ModelID:    s.modelID,
		Transcript: text,
		Voice: CartesiaVoiceSpecifier{
			Mode: "id",
			ID:   voiceID,
		},
		Language: "en",
		OutputFormat: CartesiaOutputFormat{
			Container:  "raw",
			Encoding:   "pcm_f32le",
			SampleRate: s.sampleRate,
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/tts/bytes", s.apiURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cartesia-Version", s.apiVersion)

	s.logger.Debug("generating speech", zap.String("voice", voiceID), zap.Int("text_len", len(text)))

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cartesia returned status %d: %s", resp.StatusCode, string(body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}
	if len(data) < 4 {
		return nil, fmt.Errorf("cartesia returned empty audio")
	}

	return audio.DecodePCMF32LE(data), nil
}
