package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ---------------------------------------------------------------------------
// FFmpegService
// Optional post-processing of the combined podcast. Requires ffmpeg and
// ffprobe on PATH; callers treat every failure here as non-critical.
// ---------------------------------------------------------------------------

type FFmpegService struct {
	tempDir string
	ffmpeg  string
	ffprobe string
	logger  *zap.Logger
}

func NewFFmpegService(tempDir string, logger *zap.Logger) (*FFmpegService, error) {
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FFmpegService{
		tempDir: tempDir,
		ffmpeg:  "ffmpeg",
		ffprobe: "ffprobe",
		logger:  logger.Named("ffmpeg"),
	}, nil
}

// Available reports whether both binaries can be found.
func (s *FFmpegService) Available() bool {
	if _, err := exec.LookPath(s.ffmpeg); err != nil {
		return false
	}
	_, err := exec.LookPath(s.ffprobe)
	return err == nil
}

// ConvertToMP3 encodes a WAV file as 192 kbps MP3 next to it and returns the new path.
// ffmpeg runs inside the service's temp dir, so wavPath is made absolute first.
func (s *FFmpegService) ConvertToMP3(ctx context.Context, wavPath string) (string, error) {
	wavPath, err := filepath.Abs(wavPath)
	if err != nil {
		return "", err
	}
	outputPath := strings.TrimSuffix(wavPath, filepath.Ext(wavPath)) + ".mp3"

	args := []string{
		"-i", wavPath,
		"-codec:a", "libmp3lame",
		"-b:a", "192k",
		"-y",
		outputPath,
	}

	cmd := exec.CommandContext(ctx, s.ffmpeg, args...)
	cmd.Dir = s.tempDir
	if out, err := cmd.CombinedOutput(); err != nil {
		s.logger.Warn("mp3 conversion failed", zap.String("output", truncateString(string(out), 1000)))
		return "", fmt.Errorf("ffmpeg mp3 conversion failed: %w", err)
	}

	return outputPath, nil
}

// GetAudioDuration returns the duration of an audio file in milliseconds.
func (s *FFmpegService) GetAudioDuration(ctx context.Context, audioPath string) (int, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioPath,
	}

	cmd := exec.CommandContext(ctx, s.ffprobe, args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseDurationMs(string(output))
}

func parseDurationMs(output string) (int, error) {
	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(output), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}
	return int(durationSec * 1000), nil
}
