// Package pipeline wires content sources, script generation and audio
// rendering into one podcast run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bobarin/podcastgen/internal/audio"
	"github.com/bobarin/podcastgen/internal/metrics"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/bobarin/podcastgen/internal/services"
	"go.uber.org/zap"
)

var (
	// ErrAudioUnavailable means no speech engine is configured.
	ErrAudioUnavailable = errors.New("audio generation is not available")
	// ErrSourceFailed means the content source could not produce usable text.
	ErrSourceFailed = errors.New("content source failed")
)

// ContentSource fetches a document for a URL.
type ContentSource interface {
	Scrape(ctx context.Context, url string) services.ScrapeResult
}

// Request is one podcast run.
type Request struct {
	// Exactly one of Text or URL is set.
	Text       string
	URL        string
	SourceName string
	Style      string
	Duration   string
	// SkipAudio stops after the script stage.
	SkipAudio bool
	OutputDir string
}

type Result struct {
	Script *script.Script
	Source *services.ScrapeResult
	Audio  *audio.Output
}

type Pipeline struct {
	source  ContentSource
	scripts *script.Generator
	audio   *audio.Generator
	logger  *zap.Logger
}

// New builds a pipeline. source may be nil when only text input is used and
// audioGen is nil when no speech engine is configured.
func New(source ContentSource, scripts *script.Generator, audioGen *audio.Generator, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		source:  source,
		scripts: scripts,
		audio:   audioGen,
		logger:  logger.Named("pipeline"),
	}
}

// AudioAvailable reports whether Synthesize can be used.
func (p *Pipeline) AudioAvailable() bool {
	return p.audio != nil
}

// ScriptFromText generates a script from raw text.
func (p *Pipeline) ScriptFromText(ctx context.Context, text, sourceName, style, duration string) (*script.Script, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text is empty", ErrSourceFailed)
	}

	sc, err := p.scripts.Generate(ctx, script.Request{
		Content:    text,
		SourceName: sourceName,
		Style:      style,
		Duration:   duration,
	})
	metrics.ScriptsGenerated.WithLabelValues(metrics.Result(err)).Inc()
	return sc, err
}

// ScriptFromURL scrapes url and generates a script from the page. The page
// title becomes the source name.
func (p *Pipeline) ScriptFromURL(ctx context.Context, url, style, duration string) (*script.Script, *services.ScrapeResult, error) {
	if p.source == nil {
		return nil, nil, fmt.Errorf("%w: no web scraper configured", ErrSourceFailed)
	}

	res := p.source.Scrape(ctx, url)
	if !res.Success {
		return nil, &res, fmt.Errorf("%w: %s", ErrSourceFailed, res.Error)
	}
	if strings.TrimSpace(res.Content) == "" {
		return nil, &res, fmt.Errorf("%w: no content found at %s", ErrSourceFailed, url)
	}

	p.logger.Info("scraped source",
		zap.String("url", url),
		zap.String("title", res.Title),
		zap.Int("word_count", res.WordCount),
	)

	sc, err := p.ScriptFromText(ctx, res.Content, res.Title, style, duration)
	return sc, &res, err
}

// Synthesize renders sc into dir. dir should be fresh for every run.
func (p *Pipeline) Synthesize(ctx context.Context, sc *script.Script, dir string) (*audio.Output, error) {
	if p.audio == nil {
		return nil, ErrAudioUnavailable
	}
	return p.audio.Generate(ctx, sc, dir)
}

// Run produces a script and, unless skipped or unavailable, its audio.
// A script failure returns before any synthesis is attempted.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	var (
		res = &Result{}
		err error
	)

	switch {
	case req.URL != "":
		res.Script, res.Source, err = p.ScriptFromURL(ctx, req.URL, req.Style, req.Duration)
	default:
		res.Script, err = p.ScriptFromText(ctx, req.Text, req.SourceName, req.Style, req.Duration)
	}
	if err != nil {
		return res, err
	}

	if req.SkipAudio {
		return res, nil
	}
	if p.audio == nil {
		p.logger.Warn("no speech engine configured, returning script only")
		return res, nil
	}

	dir := req.OutputDir
	if dir == "" {
		if dir, err = NewRunDir(""); err != nil {
			return res, err
		}
	}

	res.Audio, err = p.Synthesize(ctx, res.Script, dir)
	return res, err
}

// NewRunDir creates a unique directory for one run under parent, or under
// the system temp dir when parent is empty.
func NewRunDir(parent string) (string, error) {
	if parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return "", fmt.Errorf("failed to create output root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(parent, "podcast_")
	if err != nil {
		return "", fmt.Errorf("failed to create run dir: %w", err)
	}
	return dir, nil
}
