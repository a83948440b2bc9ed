package main

import (
	"github.com/bobarin/podcastgen/internal/config"
	"github.com/bobarin/podcastgen/internal/logging"
	"github.com/bobarin/podcastgen/internal/script"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type options struct {
	configFile string
	style      string
	duration   string
	outputDir  string
	scriptOnly bool
	mp3        bool
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "podcastgen",
		Short: "Turn a document into a two-host podcast",
		Long: `podcastgen writes a two-speaker dialogue script from a text document or
web page and, when a speech provider is configured, renders every line to
audio and joins them into complete_podcast.wav.

Configuration comes from the environment, a .env file, or --config.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML config file")
	flags.StringVarP(&opts.style, "style", "s", script.DefaultStyle, "podcast style (conversational, educational, interview, debate)")
	flags.StringVarP(&opts.duration, "duration", "d", script.DefaultDuration, "target duration (5 minutes, 10 minutes, 15 minutes, 20 minutes)")
	flags.StringVarP(&opts.outputDir, "output", "o", "podcast_output", "directory that receives one folder per run")
	flags.BoolVar(&opts.scriptOnly, "script-only", false, "stop after writing the script")
	flags.BoolVar(&opts.mp3, "mp3", false, "also export complete_podcast.mp3 (needs ffmpeg)")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	root.AddCommand(
		newTextCmd(opts),
		newURLCmd(opts),
		newPresetsCmd(),
	)
	return root
}

// setup loads and validates configuration and builds a console logger.
func (o *options) setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return nil, nil, err
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.mp3 {
		cfg.ExportMP3 = true
	}
	if err := cfg.ValidateCLI(); err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(cfg.LogLevel, "console"), nil
}
