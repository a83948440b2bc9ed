package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bobarin/podcastgen/internal/metrics"
	"github.com/bobarin/podcastgen/internal/script"
	"go.uber.org/zap"
)

// ErrAssemblyFailure means the combined podcast file could not be written.
// Segment files already on disk are left in place.
var ErrAssemblyFailure = errors.New("audio assembly failed")

const (
	// PauseSeconds is the silence inserted between consecutive segments.
	PauseSeconds = 0.2

	CombinedFileName   = "complete_podcast.wav"
	TranscriptFileName = "complete_podcast.srt"
)

// SegmentFileName is the on-disk name for the line at 1-based index n.
func SegmentFileName(n int, speaker script.Speaker) string {
	return fmt.Sprintf("segment_%03d_%s.wav", n, speaker.Slug())
}

// Assemble concatenates segments in order with PauseSeconds of silence
// between consecutive segments. There is no leading or trailing silence.
func Assemble(segments [][]float32, sampleRate int) []float32 {
	if len(segments) == 0 {
		return nil
	}

	pause := int(PauseSeconds * float64(sampleRate))
	total := pause * (len(segments) - 1)
	for _, s := range segments {
		total += len(s)
	}

	out := make([]float32, 0, total)
	for i, s := range segments {
		if i > 0 {
			out = append(out, make([]float32, pause)...)
		}
		out = append(out, s...)
	}
	return out
}

// Segment describes one successfully rendered line.
type Segment struct {
	Index    int            `json:"index"`
	Speaker  script.Speaker `json:"speaker"`
	Dialogue string         `json:"dialogue"`
	File     string         `json:"file"`
	// Offset is where the segment starts in the combined file, in seconds.
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

type Output struct {
	SegmentFiles    []string
	CombinedFile    string
	TranscriptFile  string
	Segments        []Segment
	TotalTurns      int
	Succeeded       int
	DurationSeconds float64
}

// Summary reports how many of the script's turns made it into audio.
func (o *Output) Summary() string {
	return fmt.Sprintf("generated %d of %d segments", o.Succeeded, o.TotalTurns)
}

// Generator renders a whole script, one line at a time, into a directory.
type Generator struct {
	synth  *Synthesizer
	logger *zap.Logger
}

func NewGenerator(synth *Synthesizer, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		synth:  synth,
		logger: logger.Named("assembler"),
	}
}

func (g *Generator) SampleRate() int {
	return g.synth.SampleRate()
}

// Generate synthesizes every turn of sc in order. A line that fails to
// synthesize or write is logged and skipped. When at least one line
// succeeds the combined file and its transcript are written to outputDir.
// outputDir should be fresh for every run.
func (g *Generator) Generate(ctx context.Context, sc *script.Script, outputDir string) (*Output, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output dir: %v", ErrAssemblyFailure, err)
	}

	rate := g.synth.SampleRate()
	turns := sc.Turns()
	out := &Output{TotalTurns: len(turns)}

	var buffers [][]float32
	for i, turn := range turns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := i + 1
		log := g.logger.With(zap.Int("segment", n), zap.String("speaker", string(turn.Speaker)))

		samples, err := g.synth.Synthesize(ctx, turn.Speaker, turn.Dialogue)
		if err != nil {
			log.Warn("skipping segment", zap.Error(err))
			metrics.SegmentsSynthesized.WithLabelValues(metrics.ResultFailed).Inc()
			continue
		}

		path := filepath.Join(outputDir, SegmentFileName(n, turn.Speaker))
		if err := WriteWAV(path, samples, rate); err != nil {
			log.Warn("could not write segment, skipping", zap.Error(err))
			metrics.SegmentsSynthesized.WithLabelValues(metrics.ResultFailed).Inc()
			continue
		}
		metrics.SegmentsSynthesized.WithLabelValues(metrics.ResultOK).Inc()

		var offset float64
		if len(out.Segments) > 0 {
			last := out.Segments[len(out.Segments)-1]
			offset = last.Offset + last.Duration + PauseSeconds
		}

		buffers = append(buffers, samples)
		out.SegmentFiles = append(out.SegmentFiles, path)
		out.Segments = append(out.Segments, Segment{
			Index:    n,
			Speaker:  turn.Speaker,
			Dialogue: turn.Dialogue,
			File:     path,
			Offset:   offset,
			Duration: float64(len(samples)) / float64(rate),
		})
		log.Debug("segment written", zap.String("path", path), zap.Int("samples", len(samples)))
	}
	out.Succeeded = len(buffers)

	if out.Succeeded == 0 {
		g.logger.Warn("no segments were generated", zap.Int("turns", out.TotalTurns))
		return out, nil
	}

	combined := Assemble(buffers, rate)
	combinedPath := filepath.Join(outputDir, CombinedFileName)
	if err := WriteWAV(combinedPath, combined, rate); err != nil {
		metrics.Assemblies.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, fmt.Errorf("%w: %v", ErrAssemblyFailure, err)
	}
	out.CombinedFile = combinedPath
	out.DurationSeconds = float64(len(combined)) / float64(rate)
	metrics.Assemblies.WithLabelValues(metrics.ResultOK).Inc()
	metrics.AudioSeconds.Add(out.DurationSeconds)

	transcriptPath := filepath.Join(outputDir, TranscriptFileName)
	if err := WriteSRT(transcriptPath, out.Segments); err != nil {
		g.logger.Warn("could not write transcript", zap.Error(err))
	} else {
		out.TranscriptFile = transcriptPath
	}

	g.logger.Info(out.Summary(),
		zap.String("file", combinedPath),
		zap.Float64("duration_sec", out.DurationSeconds),
	)
	return out, nil
}
