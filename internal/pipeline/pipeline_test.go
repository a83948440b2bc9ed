package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobarin/podcastgen/internal/audio"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/bobarin/podcastgen/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const goodResponse = `{"script":[{"Speaker 1":"Welcome to the show"},{"Speaker 2":"Happy to be here!"}]}`

type stubLLM struct {
	response string
	prompts  []string
}

func (s *stubLLM) Complete(_ context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	return s.response, nil
}

type stubSource struct {
	result services.ScrapeResult
	calls  int
}

func (s *stubSource) Scrape(_ context.Context, url string) services.ScrapeResult {
	s.calls++
	r := s.result
	r.URL = url
	return r
}

type countingEngine struct {
	calls int
}

func (e *countingEngine) Synthesize(_ context.Context, text, _ string) ([][]float32, error) {
	e.calls++
	return [][]float32{make([]float32, len(text))}, nil
}

func newPipeline(t *testing.T, llm script.LLM, src ContentSource, engine audio.Engine) *Pipeline {
	logger := zaptest.NewLogger(t)
	var gen *audio.Generator
	if engine != nil {
		synth := audio.NewSynthesizer(engine, audio.NewVoiceMap("a", "b"),
			audio.SynthesizerConfig{SampleRate: 1000, DisableCache: true}, logger)
		gen = audio.NewGenerator(synth, logger)
	}
	return New(src, script.NewGenerator(llm, logger), gen, logger)
}

func TestScriptFromText(t *testing.T) {
	llm := &stubLLM{response: goodResponse}
	p := newPipeline(t, llm, nil, nil)

	sc, err := p.ScriptFromText(context.Background(), "Some article.", "notes", "debate", "5 minutes")
	require.NoError(t, err)
	assert.Equal(t, 2, sc.TotalLines())
	assert.Equal(t, "notes", sc.SourceName())

	_, err = p.ScriptFromText(context.Background(), "   ", "notes", "", "")
	assert.ErrorIs(t, err, ErrSourceFailed)
	assert.Len(t, llm.prompts, 1)
}

func TestScriptFromURL(t *testing.T) {
	llm := &stubLLM{response: goodResponse}
	src := &stubSource{result: services.ScrapeResult{Success: true, Title: "Great Post", Content: "Body of the post."}}
	p := newPipeline(t, llm, src, nil)

	sc, res, err := p.ScriptFromURL(context.Background(), "https://example.com", "", "")
	require.NoError(t, err)
	assert.Equal(t, "Great Post", sc.SourceName())
	assert.Equal(t, "https://example.com", res.URL)
	assert.Contains(t, llm.prompts[0], "Body of the post.")
}

func TestScriptFromURLFailures(t *testing.T) {
	tests := []struct {
		name   string
		result services.ScrapeResult
	}{
		{"scrape failed", services.ScrapeResult{Success: false, Error: "timeout"}},
		{"empty content", services.ScrapeResult{Success: true, Content: "  \n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{response: goodResponse}
			p := newPipeline(t, llm, &stubSource{result: tt.result}, nil)

			_, res, err := p.ScriptFromURL(context.Background(), "https://example.com", "", "")
			assert.ErrorIs(t, err, ErrSourceFailed)
			assert.NotNil(t, res)
			assert.Empty(t, llm.prompts, "llm must not be called")
		})
	}

	_, _, err := newPipeline(t, &stubLLM{}, nil, nil).ScriptFromURL(context.Background(), "https://x.y", "", "")
	assert.ErrorIs(t, err, ErrSourceFailed)
}

func TestSynthesizeWithoutEngine(t *testing.T) {
	p := newPipeline(t, &stubLLM{response: goodResponse}, nil, nil)
	assert.False(t, p.AudioAvailable())

	sc, err := p.ScriptFromText(context.Background(), "text", "", "", "")
	require.NoError(t, err)

	_, err = p.Synthesize(context.Background(), sc, t.TempDir())
	assert.ErrorIs(t, err, ErrAudioUnavailable)
}

func TestRunEndToEnd(t *testing.T) {
	engine := &countingEngine{}
	p := newPipeline(t, &stubLLM{response: goodResponse}, nil, engine)
	dir := filepath.Join(t.TempDir(), "run")

	res, err := p.Run(context.Background(), Request{Text: "Article text.", OutputDir: dir})
	require.NoError(t, err)
	require.NotNil(t, res.Audio)
	assert.Equal(t, 2, engine.calls)
	assert.Equal(t, "generated 2 of 2 segments", res.Audio.Summary())
	assert.FileExists(t, filepath.Join(dir, audio.CombinedFileName))
}

func TestRunScriptFailureSkipsSynthesis(t *testing.T) {
	engine := &countingEngine{}
	p := newPipeline(t, &stubLLM{response: "not json"}, nil, engine)

	res, err := p.Run(context.Background(), Request{Text: "Article text.", OutputDir: t.TempDir()})
	assert.ErrorIs(t, err, script.ErrMalformedResponse)
	assert.Nil(t, res.Audio)
	assert.Zero(t, engine.calls)
}

func TestRunScriptOnly(t *testing.T) {
	engine := &countingEngine{}
	p := newPipeline(t, &stubLLM{response: goodResponse}, nil, engine)

	res, err := p.Run(context.Background(), Request{Text: "Article text.", SkipAudio: true})
	require.NoError(t, err)
	assert.NotNil(t, res.Script)
	assert.Nil(t, res.Audio)
	assert.Zero(t, engine.calls)
}

func TestNewRunDirIsUnique(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "out")
	a, err := NewRunDir(parent)
	require.NoError(t, err)
	b, err := NewRunDir(parent)
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(filepath.Base(a), "podcast_"))
	info, err := os.Stat(a)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
