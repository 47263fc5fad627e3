package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/FranksOps/newsburr/internal/config"
	"github.com/FranksOps/newsburr/internal/fingerprint"
	"github.com/FranksOps/newsburr/internal/history"
	"github.com/FranksOps/newsburr/internal/linkcheck"
	"github.com/FranksOps/newsburr/internal/llm"
	"github.com/FranksOps/newsburr/internal/logger"
	"github.com/FranksOps/newsburr/internal/metrics"
	"github.com/FranksOps/newsburr/internal/output"
	"github.com/FranksOps/newsburr/internal/pipeline"
	"github.com/FranksOps/newsburr/internal/search"
	"github.com/FranksOps/newsburr/internal/storage"
)

const userAgent = "newsburr/1.0"

var (
	v        = config.New()
	settings *config.Config
)

var rootCMD = &cobra.Command{
	Use:   "newsburr",
	Short: "Ask a web-search enabled model for today's news URLs",
	Long: `newsburr asks the OpenAI Responses API, with web search enabled, for
today's news article URLs and writes them to news_results_<timestamp>.json
and news_results_latest.json. Meant to be run hourly from cron.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSearch(cmd.Context(), settings)
	},
}

func init() {
	// Assigned here rather than in the literal: setup refers to rootCMD.
	rootCMD.PersistentPreRunE = setup

	pf := rootCMD.PersistentFlags()
	pf.String(config.KeyOutputDir, config.DefaultOutputDir, "directory for result files")
	pf.String(config.KeyLogLevel, "info", "`debug/info/warn/error`")
	pf.String(config.KeyLogFormat, "text", "`text/json`")
	pf.String(config.KeyHistoryBackend, "none", "run history backend `none/jsonl/csv/sqlite/postgres`")
	pf.String(config.KeyHistoryDSN, "", "history file path or postgres DSN")

	f := rootCMD.Flags()
	f.String(config.KeyVariant, string(search.VariantPositive), "prompt variant `positive/headlines`")
	f.String(config.KeyModel, "", "override the variant's model")
	f.String(config.KeyBaseURL, config.DefaultBaseURL, "Responses API base URL, with or without a trailing /v1")
	f.Int(config.KeyMaxRetries, config.DefaultMaxRetries, "maximum search attempts")
	f.String(config.KeyTimeout, config.DefaultTimeout.String(), "per-request timeout, like `60s`")
	f.Bool(config.KeyVerify, false, "fetch each returned URL and record its title and status")
	f.String(config.KeyFingerprint, string(fingerprint.ProfileGo), "TLS fingerprint for link checks")
	f.String(config.KeyMetricsFile, "", "write Prometheus metrics to this file at exit")
}

// Execute runs the root command with ctx.
func Execute(ctx context.Context) error {
	return rootCMD.ExecuteContext(ctx)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("bind flags: %w", err)
	}

	cfg, err := loadSettings()
	if err != nil {
		if cmd == rootCMD {
			return recordFailure(cmd.Context(), err)
		}
		return err
	}

	settings = cfg
	return nil
}

func loadSettings() (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	cfg, err := config.Load(v)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(log)

	return cfg, nil
}

// recordFailure writes the error record for a search that failed before its
// settings could be loaded. The output dir and model are read raw from viper.
func recordFailure(ctx context.Context, err error) error {
	dir := v.GetString(config.KeyOutputDir)
	if dir == "" {
		dir = config.DefaultOutputDir
	}

	writer, werr := output.NewWriter(dir)
	if werr != nil {
		return errors.Join(err, werr)
	}

	p := &pipeline.Pipeline{Writer: writer}
	_, err = p.Fail(ctx, fallbackModel(v.GetString(config.KeyVariant), v.GetString(config.KeyModel)), err)
	return err
}

// fallbackModel names the model an error record is attributed to when the
// preset could not be resolved.
func fallbackModel(variant, model string) string {
	if model != "" {
		return model
	}
	if preset, err := search.PresetFor(search.Variant(variant)); err == nil {
		return preset.Model
	}
	preset, _ := search.PresetFor(search.VariantPositive)
	return preset.Model
}

func runSearch(ctx context.Context, cfg *config.Config) error {
	log := slog.Default()

	writer, err := output.NewWriter(cfg.OutputDir)
	if err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteFile(cfg.MetricsFile); err != nil {
				log.Warn("failed to write metrics file", "path", cfg.MetricsFile, "err", err)
			}
		}()
	}

	p := &pipeline.Pipeline{
		Writer:  writer,
		History: openHistory(ctx, cfg),
		Logger:  log,
	}
	if p.History != nil {
		defer p.History.Close()
	}

	preset, err := search.PresetFor(search.Variant(cfg.Variant))
	if err != nil {
		_, err = p.Fail(ctx, fallbackModel(cfg.Variant, cfg.Model), err)
		return err
	}
	if cfg.Model != "" {
		preset.Model = cfg.Model
	}

	if err := cfg.Validate(); err != nil {
		_, err = p.Fail(ctx, preset.Model, err)
		return err
	}

	client, err := llm.New(llm.Config{
		BaseURL:   cfg.BaseURL,
		APIKey:    cfg.APIKey,
		Timeout:   cfg.Timeout,
		UserAgent: userAgent,
	})
	if err != nil {
		_, err = p.Fail(ctx, preset.Model, err)
		return err
	}

	p.Searcher = search.NewFetcher(search.FetchConfig{
		Preset:     preset,
		MaxRetries: cfg.MaxRetries,
	}, client, log)

	if cfg.Verify {
		if checker := newChecker(cfg, log); checker != nil {
			p.Verifier = checker
		}
	}

	_, err = p.Run(ctx)
	return err
}

// openHistory returns nil when history is disabled or unavailable. History
// never blocks a search.
func openHistory(ctx context.Context, cfg *config.Config) storage.Backend {
	backend, err := history.Open(ctx, cfg.HistoryBackend, cfg.HistoryDSN, cfg.OutputDir)
	if errors.Is(err, history.ErrDisabled) {
		return nil
	}
	if err != nil {
		slog.Warn("run history unavailable", "backend", cfg.HistoryBackend, "err", err)
		return nil
	}
	return backend
}

func newChecker(cfg *config.Config, log *slog.Logger) *linkcheck.Checker {
	profile, err := fingerprint.ParseProfile(cfg.Fingerprint)
	if err != nil {
		log.Warn("link verification disabled", "err", err)
		return nil
	}
	checker, err := linkcheck.New(linkcheck.Config{
		Fingerprint: profile,
		Timeout:     cfg.Timeout,
	}, log)
	if err != nil {
		log.Warn("link verification disabled", "err", err)
		return nil
	}
	return checker
}
