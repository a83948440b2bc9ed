package audio

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/bobarin/podcastgen/internal/metrics"
	"github.com/bobarin/podcastgen/internal/script"
	"go.uber.org/zap"
)

// ErrSynthesisFailure wraps any engine failure for a single line.
var ErrSynthesisFailure = errors.New("speech synthesis failed")

const (
	DefaultSampleRate = 24000
	cacheDirName      = ".podcastgen_cache"
)

// Engine turns text into one or more chunks of mono float samples at the
// synthesizer's sample rate.
type Engine interface {
	Synthesize(ctx context.Context, text, voiceID string) ([][]float32, error)
}

type SynthesizerConfig struct {
	SampleRate int
	// CacheDir holds previously synthesized clips. Defaults to ~/.podcastgen_cache.
	CacheDir     string
	DisableCache bool
}

func (c SynthesizerConfig) withDefaults() SynthesizerConfig {
	if c.SampleRate <= 0 {
		c.SampleRate = DefaultSampleRate
	}
	if c.CacheDir == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			home = os.TempDir()
		}
		c.CacheDir = filepath.Join(home, cacheDirName)
	}
	return c
}

// Synthesizer renders a single speaker line to audio.
type Synthesizer struct {
	engine Engine
	voices VoiceMap
	cfg    SynthesizerConfig
	logger *zap.Logger
}

func NewSynthesizer(engine Engine, voices VoiceMap, cfg SynthesizerConfig, logger *zap.Logger) *Synthesizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		engine: engine,
		voices: voices,
		cfg:    cfg.withDefaults(),
		logger: logger.Named("synthesizer"),
	}
}

func (s *Synthesizer) SampleRate() int {
	return s.cfg.SampleRate
}

func (s *Synthesizer) CacheDir() string {
	return s.cfg.CacheDir
}

// Synthesize cleans text, renders it with the speaker's voice and returns
// the engine's chunks concatenated in the order they were produced.
func (s *Synthesizer) Synthesize(ctx context.Context, speaker script.Speaker, text string) ([]float32, error) {
	voice := s.voices.Voice(speaker)
	cleaned := CleanText(text)
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty text", ErrSynthesisFailure)
	}

	key := s.cacheKey(voice, cleaned)
	if samples, ok := s.loadCached(key); ok {
		metrics.SynthesisCache.WithLabelValues("hit").Inc()
		return samples, nil
	}

	chunks, err := s.engine.Synthesize(ctx, cleaned, voice)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSynthesisFailure, err)
	}

	var samples []float32
	for _, c := range chunks {
		samples = append(samples, c...)
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: engine returned no audio", ErrSynthesisFailure)
	}

	s.storeCached(key, samples)
	return samples, nil
}

// CleanText collapses repeated punctuation, trims and makes sure the text
// ends in terminal punctuation.
func CleanText(text string) string {
	for {
		next := strings.ReplaceAll(text, "...", ".")
		next = strings.ReplaceAll(next, "!!", "!")
		next = strings.ReplaceAll(next, "??", "?")
		if next == text {
			break
		}
		text = next
	}

	text = strings.TrimSpace(text)
	if text != "" && !script.HasTerminalPunctuation(text) {
		text += "."
	}
	return text
}

func (s *Synthesizer) cacheKey(voice, text string) string {
	h := sha256.New()
	h.Write([]byte(voice))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(s.cfg.SampleRate)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

func (s *Synthesizer) cachePath(key string) string {
	return filepath.Join(s.cfg.CacheDir, key+".wav")
}

func (s *Synthesizer) loadCached(key string) ([]float32, bool) {
	if s.cfg.DisableCache {
		return nil, false
	}

	path := s.cachePath(key)
	if _, err := os.Stat(path); err != nil {
		metrics.SynthesisCache.WithLabelValues("miss").Inc()
		return nil, false
	}

	samples, rate, err := ReadWAV(path)
	if err != nil || rate != s.cfg.SampleRate || len(samples) == 0 {
		s.logger.Warn("ignoring unreadable cached clip", zap.String("path", path), zap.Error(err))
		metrics.SynthesisCache.WithLabelValues("miss").Inc()
		return nil, false
	}
	return samples, true
}

func (s *Synthesizer) storeCached(key string, samples []float32) {
	if s.cfg.DisableCache {
		return
	}

	if err := os.MkdirAll(s.cfg.CacheDir, 0o755); err != nil {
		s.logger.Warn("could not create cache dir", zap.String("dir", s.cfg.CacheDir), zap.Error(err))
		return
	}

	tmp := s.cachePath(key) + ".tmp"
	if err := WriteWAV(tmp, samples, s.cfg.SampleRate); err != nil {
		s.logger.Warn("could not cache clip", zap.Error(err))
		os.Remove(tmp)
		return
	}
	if err := os.Rename(tmp, s.cachePath(key)); err != nil {
		s.logger.Warn("could not cache clip", zap.Error(err))
		os.Remove(tmp)
	}
}
