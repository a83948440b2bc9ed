package script

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

const defaultSourceName = "Text Input"

// LLM is a single-prompt, single-response language model.
type LLM interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request describes one script generation.
type Request struct {
	Content    string
	SourceName string
	Style      string
	Duration   string
}

// Generator prompts an LLM for a dialogue and validates what comes back.
type Generator struct {
	llm    LLM
	logger *zap.Logger
}

func NewGenerator(llm LLM, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		llm:    llm,
		logger: logger.Named("script"),
	}
}

// Generate runs one LLM round trip and returns a validated script.
// Parse and validation failures wrap ErrMalformedResponse or ErrScriptTooShort.
func (g *Generator) Generate(ctx context.Context, req Request) (*Script, error) {
	sourceName := req.SourceName
	if sourceName == "" {
		sourceName = defaultSourceName
	}
	duration := ResolveDuration(req.Duration).Name
	style := ResolveStyle(req.Style).Name

	g.logger.Info("generating podcast script",
		zap.String("source", sourceName),
		zap.String("style", style),
		zap.String("duration", duration),
		zap.Int("content_len", len(req.Content)),
	)

	prompt := BuildPrompt(req.Content, style, duration)

	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("llm request failed: %w", err)
	}

	candidates, err := Parse(raw)
	if err != nil {
		g.logger.Error("could not parse llm response", zap.Error(err), zap.String("raw", truncateRunes(raw, 2000)))
		return nil, err
	}

	turns, err := Normalize(candidates)
	if err != nil {
		g.logger.Error("llm script failed validation",
			zap.Error(err),
			zap.Int("candidates", len(candidates)),
		)
		return nil, err
	}

	sc, err := NewScript(turns, sourceName, duration)
	if err != nil {
		return nil, err
	}

	g.logger.Info("generated script",
		zap.Int("total_lines", sc.TotalLines()),
		zap.Int("dropped", len(candidates)-sc.TotalLines()),
	)

	return sc, nil
}
