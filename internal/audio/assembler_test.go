package audio

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bobarin/podcastgen/internal/script"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"pgregory.net/rapid"
)

const testRate = 1000

func mustScript(t testing.TB, turns ...script.Turn) *script.Script {
	sc, err := script.NewScript(turns, "test", "5 minutes")
	require.NoError(t, err)
	return sc
}

func newTestGenerator(t *testing.T) (*Generator, *fakeEngine) {
	engine := &fakeEngine{}
	synth := NewSynthesizer(engine, NewVoiceMap("voice-a", "voice-b"),
		SynthesizerConfig{SampleRate: testRate, DisableCache: true}, zaptest.NewLogger(t))
	return NewGenerator(synth, zaptest.NewLogger(t)), engine
}

func TestAssemble(t *testing.T) {
	pause := int(PauseSeconds * testRate)

	assert.Empty(t, Assemble(nil, testRate))
	assert.Equal(t, []float32{1, 2}, Assemble([][]float32{{1, 2}}, testRate))

	out := Assemble([][]float32{{1}, {2, 3}}, testRate)
	require.Len(t, out, 3+pause)
	assert.Equal(t, float32(1), out[0])
	assert.Equal(t, float32(0), out[1])
	assert.Equal(t, float32(0), out[pause])
	assert.Equal(t, float32(2), out[pause+1])
	assert.Equal(t, float32(3), out[pause+2])
}

func TestProperty_AssembleOrderAndLength(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rate := rapid.IntRange(100, 48000).Draw(rt, "rate")
		n := rapid.IntRange(1, 8).Draw(rt, "segments")

		segments := make([][]float32, n)
		for i := range segments {
			length := rapid.IntRange(1, 50).Draw(rt, "length")
			seg := make([]float32, length)
			for j := range seg {
				seg[j] = float32(i + 1)
			}
			segments[i] = seg
		}

		out := Assemble(segments, rate)
		pause := int(PauseSeconds * float64(rate))

		total := pause * (n - 1)
		for _, s := range segments {
			total += len(s)
		}
		require.Len(rt, out, total)

		pos := 0
		for i, s := range segments {
			if i > 0 {
				for k := 0; k < pause; k++ {
					require.Zero(rt, out[pos+k], "pause before segment %d", i)
				}
				pos += pause
			}
			require.Equal(rt, s, out[pos:pos+len(s)], "segment %d out of place", i)
			pos += len(s)
		}
	})
}

func TestGenerateWritesSegmentsAndCombined(t *testing.T) {
	gen, _ := newTestGenerator(t)
	dir := t.TempDir()

	sc := mustScript(t,
		script.Turn{Speaker: script.Speaker1, Dialogue: "Hello and welcome."},
		script.Turn{Speaker: script.Speaker2, Dialogue: "Thanks for having me."},
		script.Turn{Speaker: script.Speaker1, Dialogue: "Let's start."},
	)

	out, err := gen.Generate(context.Background(), sc, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(dir, "segment_001_speaker_1.wav"),
		filepath.Join(dir, "segment_002_speaker_2.wav"),
		filepath.Join(dir, "segment_003_speaker_1.wav"),
	}, out.SegmentFiles)
	assert.Equal(t, filepath.Join(dir, CombinedFileName), out.CombinedFile)
	assert.Equal(t, "generated 3 of 3 segments", out.Summary())

	combined, rate, err := ReadWAV(out.CombinedFile)
	require.NoError(t, err)
	assert.Equal(t, testRate, rate)

	// Each line is len(text) + 5 samples; two 200-sample pauses between three lines.
	want := (18 + 5) + (21 + 5) + (12 + 5) + 2*int(PauseSeconds*testRate)
	assert.Len(t, combined, want)
	assert.InDelta(t, float64(want)/testRate, out.DurationSeconds, 1e-9)

	assert.InDelta(t, 0.0, out.Segments[0].Offset, 1e-9)
	assert.InDelta(t, 0.023+PauseSeconds, out.Segments[1].Offset, 1e-9)

	srt, err := os.ReadFile(out.TranscriptFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(srt), "1\n00:00:00,000 --> 00:00:00,023\nSpeaker 1: Hello and welcome.\n"))
	assert.Contains(t, string(srt), "2\n00:00:00,223 --> 00:00:00,249\nSpeaker 2: Thanks for having me.\n")
}

func TestGenerateSkipsFailedSegments(t *testing.T) {
	gen, _ := newTestGenerator(t)
	dir := t.TempDir()

	sc := mustScript(t,
		script.Turn{Speaker: script.Speaker1, Dialogue: "One."},
		script.Turn{Speaker: script.Speaker2, Dialogue: "This will FAIL."},
		script.Turn{Speaker: script.Speaker1, Dialogue: "Three."},
	)

	out, err := gen.Generate(context.Background(), sc, dir)
	require.NoError(t, err)

	assert.Equal(t, 2, out.Succeeded)
	assert.Equal(t, 3, out.TotalTurns)
	assert.Equal(t, "generated 2 of 3 segments", out.Summary())
	assert.Equal(t, []string{
		filepath.Join(dir, "segment_001_speaker_1.wav"),
		filepath.Join(dir, "segment_003_speaker_1.wav"),
	}, out.SegmentFiles)
	assert.NoFileExists(t, filepath.Join(dir, "segment_002_speaker_2.wav"))
	assert.FileExists(t, out.CombinedFile)
}

func TestGenerateAllFailedWritesNoCombinedFile(t *testing.T) {
	gen, _ := newTestGenerator(t)
	dir := t.TempDir()

	sc := mustScript(t,
		script.Turn{Speaker: script.Speaker1, Dialogue: "FAIL one."},
		script.Turn{Speaker: script.Speaker2, Dialogue: "FAIL two."},
	)

	out, err := gen.Generate(context.Background(), sc, dir)
	require.NoError(t, err)
	assert.Zero(t, out.Succeeded)
	assert.Empty(t, out.CombinedFile)
	assert.Equal(t, "generated 0 of 2 segments", out.Summary())
	assert.NoFileExists(t, filepath.Join(dir, CombinedFileName))
}

func TestGenerateCombinedWriteFailure(t *testing.T) {
	gen, _ := newTestGenerator(t)
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, CombinedFileName), 0o755))

	sc := mustScript(t,
		script.Turn{Speaker: script.Speaker1, Dialogue: "A."},
		script.Turn{Speaker: script.Speaker2, Dialogue: "B."},
	)

	_, err := gen.Generate(context.Background(), sc, dir)
	assert.ErrorIs(t, err, ErrAssemblyFailure)
	assert.FileExists(t, filepath.Join(dir, "segment_001_speaker_1.wav"))
	assert.FileExists(t, filepath.Join(dir, "segment_002_speaker_2.wav"))
}

func TestGenerateStopsOnCancel(t *testing.T) {
	gen, engine := newTestGenerator(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sc := mustScript(t,
		script.Turn{Speaker: script.Speaker1, Dialogue: "A."},
		script.Turn{Speaker: script.Speaker2, Dialogue: "B."},
	)

	_, err := gen.Generate(ctx, sc, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, engine.callCount())
}

func TestProperty_PartialFailure(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		fails := rapid.SliceOfN(rapid.Bool(), 2, 10).Draw(rt, "fails")

		turns := make([]script.Turn, len(fails))
		speaker := script.Speaker1
		for i, f := range fails {
			text := "Line number " + strings.Repeat("x", i+1) + "."
			if f {
				text = "FAIL " + text
			}
			turns[i] = script.Turn{Speaker: speaker, Dialogue: text}
			speaker = speaker.Other()
		}
		sc, err := script.NewScript(turns, "prop", "5 minutes")
		require.NoError(rt, err)

		dir, err := os.MkdirTemp("", "podcastgen-prop-")
		require.NoError(rt, err)
		defer os.RemoveAll(dir)

		synth := NewSynthesizer(&fakeEngine{}, NewVoiceMap("a", "b"),
			SynthesizerConfig{SampleRate: testRate, DisableCache: true}, nil)
		out, err := NewGenerator(synth, nil).Generate(context.Background(), sc, dir)
		require.NoError(rt, err)

		var want []string
		for i, f := range fails {
			if !f {
				want = append(want, filepath.Join(dir, SegmentFileName(i+1, turns[i].Speaker)))
			}
		}
		require.Equal(rt, want, out.SegmentFiles)
		require.Equal(rt, len(want), out.Succeeded)
		require.Equal(rt, len(fails), out.TotalTurns)

		_, statErr := os.Stat(filepath.Join(dir, CombinedFileName))
		if len(want) == 0 {
			require.True(rt, os.IsNotExist(statErr))
		} else {
			require.NoError(rt, statErr)
		}
	})
}
