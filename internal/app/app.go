// Package app builds the podcast pipeline and its collaborators from
// configuration. Both the API server and the CLI start here.
package app

import (
	"context"
	"fmt"

	"github.com/bobarin/podcastgen/internal/audio"
	"github.com/bobarin/podcastgen/internal/config"
	"github.com/bobarin/podcastgen/internal/pipeline"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/bobarin/podcastgen/internal/services"
	"github.com/bobarin/podcastgen/internal/worker"
	"go.uber.org/zap"
)

// NewLLM returns the script writer selected by cfg.LLMProvider.
func NewLLM(ctx context.Context, cfg *config.Config, logger *zap.Logger) (script.LLM, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		return services.NewOpenAIService(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.LLMModel, logger), nil
	case config.LLMProviderGemini:
		gemini, err := services.NewGeminiService(ctx, cfg.GeminiKey, "", cfg.LLMModel, logger)
		if err != nil {
			return nil, err
		}
		return gemini, nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

// NewAudioGenerator returns nil, nil when no speech provider is configured.
func NewAudioGenerator(cfg *config.Config, logger *zap.Logger) (*audio.Generator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	provider := cfg.ResolvedTTSProvider()
	if provider == "" {
		return nil, nil
	}

	engine, err := services.NewSpeechEngine(services.SpeechConfig{
		Provider:   provider,
		APIKey:     cfg.TTSKey(),
		BaseURL:    cfg.TTSBaseURL(),
		Model:      cfg.TTSModel,
		SampleRate: cfg.SampleRate,
	}, logger)
	if err != nil {
		return nil, err
	}

	voice1, voice2 := services.DefaultVoices(provider)
	if cfg.Speaker1Voice != "" {
		voice1 = cfg.Speaker1Voice
	}
	if cfg.Speaker2Voice != "" {
		voice2 = cfg.Speaker2Voice
	}

	synth := audio.NewSynthesizer(engine, audio.NewVoiceMap(voice1, voice2), audio.SynthesizerConfig{
		SampleRate:   cfg.SampleRate,
		CacheDir:     cfg.CacheDir,
		DisableCache: cfg.DisableCache,
	}, logger)

	logger.Info("speech engine ready",
		zap.String("provider", provider),
		zap.String("speaker1_voice", voice1),
		zap.String("speaker2_voice", voice2),
		zap.Int("sample_rate", synth.SampleRate()),
		zap.String("cache_dir", synth.CacheDir()),
	)
	return audio.NewGenerator(synth, logger), nil
}

// NewPipeline wires the content source, script writer and audio stage.
// URL input needs FIRECRAWL_API_KEY; without it only text input works.
func NewPipeline(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*pipeline.Pipeline, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	llm, err := NewLLM(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	audioGen, err := NewAudioGenerator(cfg, logger)
	if err != nil {
		return nil, err
	}

	var source pipeline.ContentSource
	if cfg.FirecrawlKey != "" {
		source = services.NewScraperService(cfg.FirecrawlKey, "", logger)
	}

	return pipeline.New(source, script.NewGenerator(llm, logger), audioGen, logger), nil
}

// NewMP3Encoder returns nil when MP3 export is off or ffmpeg is missing.
func NewMP3Encoder(cfg *config.Config, logger *zap.Logger) worker.MP3Encoder {
	if !cfg.ExportMP3 {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ff, err := services.NewFFmpegService(cfg.TempDir, logger)
	if err != nil {
		logger.Warn("mp3 export disabled", zap.Error(err))
		return nil
	}
	if !ff.Available() {
		logger.Warn("mp3 export disabled, ffmpeg not found on PATH")
		return nil
	}
	return ff
}
