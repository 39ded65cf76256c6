package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"exegesis/internal/config"
)

var (
	cfgFile    string
	corpusPath string
	logLevel   string

	rootCmd = &cobra.Command{
		Use:   "exegesis",
		Short: "Grounded search over verses and their commentaries",
		Long: `exegesis answers free-text questions against a corpus of verses annotated by
commentaries from several interpretive schools. It ranks verses with provenance and can ask
an OpenAI-compatible model for a synthesis that cites only the excerpts it was given.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to YAML config file (default ./config.yaml, then ~/.config/exegesis/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&corpusPath, "corpus", "", "Corpus JSON file (overrides corpus.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides log.level")
}

func loadConfig() (*config.AppConfig, error) {
	var (
		cfg *config.AppConfig
		err error
	)
	if cfgFile == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if corpusPath != "" {
		cfg.Corpus.Path = corpusPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

// newLogger writes to stderr so command output on stdout stays parseable.
func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
