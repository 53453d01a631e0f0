// Package cli wires configuration, logging and the docsift subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"strings"

	"github.com/dgallion1/docsift/internal/classifier"
	"github.com/dgallion1/docsift/internal/config"
	"github.com/dgallion1/docsift/internal/embed"
	"github.com/dgallion1/docsift/internal/outline"
	"github.com/dgallion1/docsift/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string

	// Set by PersistentPreRunE for the running command.
	v   *viper.Viper
	cfg config.Config
	log *slog.Logger
)

// flagKeys maps command-line flags to config keys. Flags override
// env, file and defaults when set.
var flagKeys = map[string]string{
	"log-level":          "log_level",
	"log-format":         "log_format",
	"port":               "port",
	"api-key":            "api_key",
	"workers":            "worker_count",
	"classifier":         "classifier.type",
	"artifact":           "classifier.artifact_path",
	"embedding-provider": "embedding.provider",
	"embedding-model":    "embedding.model",
	"embedding-cache":    "embedding.cache_path",
	"top-k":              "ranking.top_k",
}

var rootCmd = &cobra.Command{
	Use:           "docsift",
	Short:         "docsift extracts PDF outlines and persona-ranked sections",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		v, err = config.New(cfgFile)
		if err != nil {
			return err
		}
		for flag, key := range flagKeys {
			if f := cmd.Flags().Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		log = newLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
		slog.SetDefault(log)
		return nil
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return err
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (json, yaml or toml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "json", "log format: json or text")
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parserOptions() parser.Options {
	return parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext}
}

func openEmbedder(ctx context.Context) (*embed.Service, error) {
	return embed.Open(ctx, embed.Options{
		Provider:          cfg.Embedding.Provider,
		Model:             cfg.Embedding.Model,
		URL:               cfg.Embedding.URL,
		APIKey:            cfg.Embedding.APIKey,
		Dimension:         cfg.Embedding.Dimension,
		Timeout:           cfg.Embedding.Timeout,
		RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
		CachePath:         cfg.Embedding.CachePath,
	}, log)
}

func openOutliner() (*outline.Extractor, error) {
	clf, err := classifier.Open(classifier.Kind(cfg.Classifier.Type), cfg.Classifier.ArtifactPath, cfg.Classifier.BodyFontSize)
	if err != nil {
		return nil, err
	}
	return outline.NewExtractor(&parser.PDFLayoutReader{Log: log}, clf, log, runtime.GOMAXPROCS(0)), nil
}
