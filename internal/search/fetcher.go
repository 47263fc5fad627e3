package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/newsburr/internal/extract"
	"github.com/FranksOps/newsburr/internal/llm"
	"github.com/FranksOps/newsburr/internal/metrics"
	"github.com/FranksOps/newsburr/pkg/backoff"
)

// DefaultMaxRetries is the number of attempts when none is configured.
const DefaultMaxRetries = 3

// previewLen bounds how much of the raw model output is logged.
const previewLen = 200

// ErrNoValidURLs is returned when the model output holds no usable URL.
var ErrNoValidURLs = errors.New("no valid URLs found in web search results")

// Responder is the model API. *llm.Client satisfies it.
type Responder interface {
	Create(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// FetchConfig configures a Fetcher.
type FetchConfig struct {
	Preset     Preset
	MaxRetries int
	Backoff    backoff.Policy
	// Sleep waits between attempts. Tests replace it to avoid real waits.
	Sleep backoff.SleepFunc
}

// Found is the outcome of a successful search.
type Found struct {
	URLs        []string
	RawResponse string
	Usage       *llm.Usage
	Model       string
	Attempts    int
}

// Fetcher asks the model for news URLs, retrying with exponential backoff.
type Fetcher struct {
	config FetchConfig
	client Responder
	logger *slog.Logger
}

// NewFetcher creates a Fetcher. Zero config values fall back to three
// attempts and a 1s, 2s, 4s... backoff.
func NewFetcher(cfg FetchConfig, client Responder, logger *slog.Logger) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.Backoff.Base <= 0 {
		cfg.Backoff = backoff.Exponential()
	}
	if cfg.Sleep == nil {
		cfg.Sleep = backoff.Sleep
	}
	if cfg.Preset.MaxURLs <= 0 {
		cfg.Preset.MaxURLs = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		config: cfg,
		client: client,
		logger: logger,
	}
}

// Model returns the model identifier requests are sent to.
func (f *Fetcher) Model() string {
	return f.config.Preset.Model
}

// Search makes up to MaxRetries attempts. After failed attempt k (zero-based)
// it waits Backoff.Delay(k) before trying again; there is no wait after the
// last attempt. When every attempt fails the last error is returned as is.
func (f *Fetcher) Search(ctx context.Context) (*Found, error) {
	maxRetries := f.config.MaxRetries
	model := f.config.Preset.Model

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		f.logger.Info("attempting news search", "attempt", attempt+1, "max_attempts", maxRetries, "model", model)

		start := time.Now()
		found, err := f.attempt(ctx)
		metrics.RecordAttempt(model, time.Since(start), outcome(err))
		if err == nil {
			found.Attempts = attempt + 1
			return found, nil
		}

		lastErr = err
		f.logger.Warn("attempt failed", "attempt", attempt+1, "err", err)

		if ctx.Err() != nil {
			return nil, err
		}

		if attempt < maxRetries-1 {
			wait := f.config.Backoff.Delay(attempt)
			f.logger.Info("waiting before retry", "wait", wait)
			metrics.BackoffSeconds.WithLabelValues(model).Add(wait.Seconds())
			if err := f.config.Sleep(ctx, wait); err != nil {
				return nil, fmt.Errorf("backoff interrupted: %w", err)
			}
		}
	}

	f.logger.Error("all attempts to search for news failed", "attempts", maxRetries)
	return nil, lastErr
}

func (f *Fetcher) attempt(ctx context.Context) (*Found, error) {
	resp, err := f.client.Create(ctx, f.config.Preset.Request())
	if err != nil {
		return nil, err
	}

	content := resp.Text()
	f.logger.Info("response received", "preview", preview(content))

	urls := extract.URLs(content)
	if len(urls) == 0 {
		return nil, ErrNoValidURLs
	}
	if len(urls) > f.config.Preset.MaxURLs {
		urls = urls[:f.config.Preset.MaxURLs]
	}

	return &Found{
		URLs:        urls,
		RawResponse: content,
		Usage:       resp.Usage,
		Model:       f.config.Preset.Model,
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, ErrNoValidURLs):
		return metrics.OutcomeNoURLs
	case errors.Is(err, llm.ErrEmptyOutput):
		return metrics.OutcomeEmptyOutput
	default:
		return metrics.OutcomeError
	}
}

func preview(s string) string {
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen]) + "..."
}
