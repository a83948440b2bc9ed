package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/bobarin/podcastgen/internal/app"
	"github.com/bobarin/podcastgen/internal/pipeline"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const scriptFileName = "podcast_script.json"

type durationProber interface {
	GetAudioDuration(ctx context.Context, path string) (int, error)
}

func newTextCmd(opts *options) *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "text [file]",
		Short: "Generate a podcast from a text file or stdin",
		Long: `Generate a podcast from a text document. Reads the file given as the
argument, or standard input when the argument is "-" or missing.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(path, cmd.InOrStdin())
			if err != nil {
				return err
			}
			if name == "" && path != "-" {
				name = filepath.Base(path)
			}
			return run(cmd, opts, pipeline.Request{Text: text, SourceName: name})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", `source name recorded in the script (default: file name, or "Text Input")`)
	return cmd
}

func newURLCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "url <url>",
		Short: "Generate a podcast from a web page",
		Long:  "Scrape a web page through Firecrawl (FIRECRAWL_API_KEY) and generate a podcast from it.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, pipeline.Request{URL: args[0]})
		},
	}
}

func newPresetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List podcast styles and durations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printPresets(cmd.OutOrStdout())
			return nil
		},
	}
}

func run(cmd *cobra.Command, opts *options, req pipeline.Request) error {
	cfg, logger, err := opts.setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	pipe, err := app.NewPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}

	dir, err := pipeline.NewRunDir(opts.outputDir)
	if err != nil {
		return err
	}

	req.Style = opts.style
	req.Duration = opts.duration
	req.SkipAudio = opts.scriptOnly
	req.OutputDir = dir

	out := cmd.OutOrStdout()
	res, err := pipe.Run(ctx, req)
	if res != nil && res.Script != nil {
		if werr := writeScript(out, dir, res.Script); werr != nil {
			logger.Warn("could not save script", zap.Error(werr))
		}
	}
	if err != nil {
		return err
	}

	if res.Audio == nil {
		if !opts.scriptOnly {
			fmt.Fprintln(out, "No speech provider configured, audio skipped.")
		}
		return nil
	}

	fmt.Fprintf(out, "Audio: %s\n", res.Audio.Summary())
	if res.Audio.CombinedFile == "" {
		return errors.New("no segments could be synthesized")
	}
	fmt.Fprintf(out, "Podcast: %s (%.1fs)\n", res.Audio.CombinedFile, res.Audio.DurationSeconds)
	if res.Audio.TranscriptFile != "" {
		fmt.Fprintf(out, "Transcript: %s\n", res.Audio.TranscriptFile)
	}

	if enc := app.NewMP3Encoder(cfg, logger); enc != nil {
		mp3Path, err := enc.ConvertToMP3(ctx, res.Audio.CombinedFile)
		if err != nil {
			logger.Warn("mp3 export failed", zap.Error(err))
			return nil
		}
		if p, ok := enc.(durationProber); ok {
			if ms, err := p.GetAudioDuration(ctx, mp3Path); err == nil {
				fmt.Fprintf(out, "MP3: %s (%.1fs)\n", mp3Path, float64(ms)/1000)
				return nil
			}
		}
		fmt.Fprintf(out, "MP3: %s\n", mp3Path)
	}
	return nil
}

// readInput reads path, or r when path is "-".
func readInput(path string, r io.Reader) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(r)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", errors.New("input is empty")
	}
	return text, nil
}

// writeScript saves the transport JSON into dir and prints the dialogue.
func writeScript(w io.Writer, dir string, sc *script.Script) error {
	data, err := sc.ToJSON()
	if err != nil {
		return err
	}
	path := filepath.Join(dir, scriptFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d lines, about %s\n\n", sc.SourceName(), sc.TotalLines(), sc.EstimatedDuration())
	for _, t := range sc.Turns() {
		fmt.Fprintf(w, "%s: %s\n", t.Speaker, t.Dialogue)
	}
	fmt.Fprintf(w, "\nScript: %s\n", path)
	return nil
}

func printPresets(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STYLE\tDESCRIPTION")
	for _, p := range script.Styles() {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Instruction)
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "DURATION\tGUIDELINE")
	for _, p := range script.Durations() {
		fmt.Fprintf(tw, "%s\t%s\n", p.Name, p.Instruction)
	}
	tw.Flush()
}
