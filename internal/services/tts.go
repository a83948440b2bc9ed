package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/bobarin/podcastgen/internal/audio"
	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// Speech engines
// Every provider implements audio.Engine so the synthesizer can use whichever
// is configured without knowing the underlying API. Long lines are split into
// sentence-packed chunks under the provider's input limit and each chunk is
// rendered with its own request.
// ---------------------------------------------------------------------------

const (
	ProviderOpenAI     = "openai"
	ProviderElevenLabs = "elevenlabs"
	ProviderCartesia   = "cartesia"
)

var (
	_ audio.Engine = (*OpenAISpeechService)(nil)
	_ audio.Engine = (*ElevenLabsService)(nil)
	_ audio.Engine = (*CartesiaService)(nil)
)

// SpeechConfig selects and configures a speech provider.
type SpeechConfig struct {
	Provider   string
	APIKey     string
	BaseURL    string // empty means the provider's public endpoint
	Model      string
	SampleRate int
}

// NewSpeechEngine builds the engine for cfg.Provider.
func NewSpeechEngine(cfg SpeechConfig, logger *zap.Logger) (audio.Engine, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s speech engine requires an API key", cfg.Provider)
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = audio.DefaultSampleRate
	}

	switch cfg.Provider {
	case ProviderOpenAI:
		if cfg.SampleRate != openAISpeechSampleRate {
			return nil, fmt.Errorf("openai speech is fixed at %d Hz, got %d", openAISpeechSampleRate, cfg.SampleRate)
		}
		return NewOpenAISpeechService(cfg.APIKey, cfg.BaseURL, cfg.Model, logger), nil
	case ProviderElevenLabs:
		return NewElevenLabsService(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.SampleRate, logger), nil
	case ProviderCartesia:
		return NewCartesiaService(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.SampleRate, logger), nil
	default:
		return nil, fmt.Errorf("unknown speech provider %q", cfg.Provider)
	}
}

// DefaultVoices returns the stock voices for the two hosts of a provider.
func DefaultVoices(provider string) (speaker1, speaker2 string) {
	switch provider {
	case ProviderElevenLabs:
		return elevenLabsVoiceSpeaker1, elevenLabsVoiceSpeaker2
	case ProviderCartesia:
		return cartesiaVoiceSpeaker1, cartesiaVoiceSpeaker2
	default:
		return openAIVoiceSpeaker1, openAIVoiceSpeaker2
	}
}

// renderChunks splits text under limit and renders each piece in order.
func renderChunks(ctx context.Context, text string, limit int, render func(ctx context.Context, chunk string) ([]float32, error)) ([][]float32, error) {
	pieces := splitText(text, limit)
	if len(pieces) == 0 {
		return nil, fmt.Errorf("nothing to synthesize")
	}

	out := make([][]float32, 0, len(pieces))
	for i, p := range pieces {
		samples, err := render(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("chunk %d/%d: %w", i+1, len(pieces), err)
		}
		out = append(out, samples)
	}
	return out, nil
}

// splitText packs whole sentences into chunks of at most limit runes.
// Sentences longer than limit are split on word boundaries, and words
// longer than limit are cut.
func splitText(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0

	for _, sentence := range splitSentences(text) {
		for _, piece := range fitPieces(sentence, limit) {
			n := utf8.RuneCountInString(piece)
			if curLen > 0 && curLen+1+n > limit {
				chunks = append(chunks, cur.String())
				cur.Reset()
				curLen = 0
			}
			if curLen > 0 {
				cur.WriteByte(' ')
				curLen++
			}
			cur.WriteString(piece)
			curLen += n
		}
	}
	if curLen > 0 {
		chunks = append(chunks, cur.String())
	}
	return chunks
}

func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', '!', '?':
			if i+1 == len(text) || text[i+1] == ' ' || text[i+1] == '\n' {
				if s := strings.TrimSpace(text[start : i+1]); s != "" {
					out = append(out, s)
				}
				start = i + 1
			}
		}
	}
	if rest := strings.TrimSpace(text[start:]); rest != "" {
		out = append(out, rest)
	}
	return out
}

func fitPieces(sentence string, limit int) []string {
	if utf8.RuneCountInString(sentence) <= limit {
		return []string{sentence}
	}

	var pieces []string
	var cur []string
	curLen := 0
	for _, word := range strings.Fields(sentence) {
		for utf8.RuneCountInString(word) > limit {
			r := []rune(word)
			if curLen > 0 {
				pieces = append(pieces, strings.Join(cur, " "))
				cur, curLen = nil, 0
			}
			pieces = append(pieces, string(r[:limit]))
			word = string(r[limit:])
		}
		if word == "" {
			continue
		}

		n := utf8.RuneCountInString(word)
		if curLen > 0 && curLen+1+n > limit {
			pieces = append(pieces, strings.Join(cur, " "))
			cur, curLen = nil, 0
		}
		if curLen > 0 {
			curLen++
		}
		cur = append(cur, word)
		curLen += n
	}
	if curLen > 0 {
		pieces = append(pieces, strings.Join(cur, " "))
	}
	return pieces
}
