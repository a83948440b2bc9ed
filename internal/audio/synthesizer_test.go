package audio

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/bobarin/podcastgen/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeEngine returns two chunks per call, sized from the text, and fails
// for any text containing "FAIL".
type fakeEngine struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeEngine) Synthesize(_ context.Context, text, voiceID string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, voiceID+"|"+text)
	f.mu.Unlock()

	if strings.Contains(text, "FAIL") {
		return nil, errors.New("engine exploded")
	}
	first := make([]float32, len(text))
	second := make([]float32, 5)
	for i := range first {
		first[i] = 0.25
	}
	for i := range second {
		second[i] = -0.5
	}
	return [][]float32{first, second}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func newTestSynth(t *testing.T, engine Engine, cfg SynthesizerConfig) *Synthesizer {
	t.Helper()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1000
	}
	return NewSynthesizer(engine, NewVoiceMap("voice-a", "voice-b"), cfg, zaptest.NewLogger(t))
}

func TestCleanText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello there", "Hello there."},
		{"Wait... what", "Wait. what."},
		{"Really!!", "Really!"},
		{"Really!!!!", "Really!"},
		{"Huh???", "Huh?"},
		{"  spaced out?  ", "spaced out?"},
		{"Done.", "Done."},
		{"   ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanText(tt.in), "input %q", tt.in)
	}
}

func TestVoiceMap(t *testing.T) {
	m := NewVoiceMap("af_heart", "am_liam")
	assert.Equal(t, "af_heart", m.Voice(script.Speaker1))
	assert.Equal(t, "am_liam", m.Voice(script.Speaker2))
	assert.Equal(t, "af_heart", m.Voice(script.Speaker("Narrator")))
}

func TestSynthesizeConcatenatesChunks(t *testing.T) {
	engine := &fakeEngine{}
	synth := newTestSynth(t, engine, SynthesizerConfig{DisableCache: true})

	samples, err := synth.Synthesize(context.Background(), script.Speaker2, "Hi there")
	require.NoError(t, err)

	// "Hi there." is 9 runes plus the 5-sample trailing chunk.
	require.Len(t, samples, 14)
	assert.Equal(t, float32(0.25), samples[0])
	assert.Equal(t, float32(0.25), samples[8])
	assert.Equal(t, float32(-0.5), samples[9])
	assert.Equal(t, []string{"voice-b|Hi there."}, engine.calls)
}

func TestSynthesizeWrapsEngineErrors(t *testing.T) {
	synth := newTestSynth(t, &fakeEngine{}, SynthesizerConfig{DisableCache: true})

	_, err := synth.Synthesize(context.Background(), script.Speaker1, "please FAIL")
	assert.ErrorIs(t, err, ErrSynthesisFailure)

	_, err = synth.Synthesize(context.Background(), script.Speaker1, "   ")
	assert.ErrorIs(t, err, ErrSynthesisFailure)
}

type silentEngine struct{}

func (silentEngine) Synthesize(context.Context, string, string) ([][]float32, error) {
	return [][]float32{{}, nil}, nil
}

func TestSynthesizeRejectsEmptyAudio(t *testing.T) {
	synth := newTestSynth(t, silentEngine{}, SynthesizerConfig{DisableCache: true})
	_, err := synth.Synthesize(context.Background(), script.Speaker1, "hello")
	assert.ErrorIs(t, err, ErrSynthesisFailure)
}

func TestSynthesizeUsesCache(t *testing.T) {
	engine := &fakeEngine{}
	synth := newTestSynth(t, engine, SynthesizerConfig{CacheDir: t.TempDir()})

	first, err := synth.Synthesize(context.Background(), script.Speaker1, "Cache me")
	require.NoError(t, err)
	second, err := synth.Synthesize(context.Background(), script.Speaker1, "Cache me")
	require.NoError(t, err)

	assert.Equal(t, 1, engine.callCount())
	require.Len(t, second, len(first))
	for i := range first {
		assert.InDelta(t, first[i], second[i], 1e-4)
	}

	// A different voice is a different clip.
	_, err = synth.Synthesize(context.Background(), script.Speaker2, "Cache me")
	require.NoError(t, err)
	assert.Equal(t, 2, engine.callCount())
}

func TestSynthesizeCacheDisabled(t *testing.T) {
	engine := &fakeEngine{}
	synth := newTestSynth(t, engine, SynthesizerConfig{CacheDir: t.TempDir(), DisableCache: true})

	for i := 0; i < 2; i++ {
		_, err := synth.Synthesize(context.Background(), script.Speaker1, "No cache")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, engine.callCount())
}

func TestSynthesizerDefaults(t *testing.T) {
	synth := NewSynthesizer(&fakeEngine{}, NewVoiceMap("a", "b"), SynthesizerConfig{}, nil)
	assert.Equal(t, DefaultSampleRate, synth.SampleRate())
	assert.Contains(t, synth.CacheDir(), cacheDirName)
}
