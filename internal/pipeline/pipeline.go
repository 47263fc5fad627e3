// Package pipeline runs one news search from model request to result files.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/FranksOps/newsburr/internal/llm"
	"github.com/FranksOps/newsburr/internal/metrics"
	"github.com/FranksOps/newsburr/internal/output"
	"github.com/FranksOps/newsburr/internal/search"
	"github.com/FranksOps/newsburr/internal/storage"
)

// Searcher finds news URLs. *search.Fetcher satisfies it.
type Searcher interface {
	Search(ctx context.Context) (*search.Found, error)
	Model() string
}

// Verifier checks returned URLs. *linkcheck.Checker satisfies it.
type Verifier interface {
	Check(ctx context.Context, urls []string) []storage.Article
}

// Pipeline wires the search, the optional link check, the result writer and
// the optional history backend together.
type Pipeline struct {
	Searcher Searcher
	Verifier Verifier
	Writer   *output.Writer
	History  storage.Backend
	Logger   *slog.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// Run performs one search. On success both result files are written and the
// record is returned. On failure an error record replaces the latest file and
// the search error is returned unchanged.
func (p *Pipeline) Run(ctx context.Context) (*storage.SearchResult, error) {
	if p.Writer == nil {
		return nil, errors.New("pipeline: writer is nil")
	}
	if p.Searcher == nil {
		return nil, errors.New("pipeline: searcher is nil")
	}
	log := p.logger()
	model := p.Searcher.Model()

	log.Info("starting news search", "model", model)

	found, err := p.Searcher.Search(ctx)
	if err != nil {
		return p.Fail(ctx, model, err)
	}

	res := storage.NewSuccess(p.now(), found.Model, found.URLs, usageFrom(found.Usage))

	if p.Verifier != nil {
		res.Articles = p.Verifier.Check(ctx, found.URLs)
	}

	path, err := p.Writer.WriteSuccess(res)
	if err != nil {
		return p.Fail(ctx, model, fmt.Errorf("write results: %w", err))
	}

	log.Info("results saved",
		"file", path,
		"latest", p.Writer.LatestPath(),
		"urls", res.URLCount,
		"attempts", found.Attempts,
	)
	for i, u := range res.NewsURLs {
		log.Info("news url", "n", i+1, "url", u)
	}

	p.save(ctx, res)
	metrics.RecordRun(res)
	return res, nil
}

// Fail records err as an error run: the latest file is overwritten with an
// error record, which is also saved to history. err is returned as is, joined
// with any failure to write the record.
func (p *Pipeline) Fail(ctx context.Context, model string, err error) (*storage.SearchResult, error) {
	log := p.logger()
	log.Error("news search failed", "err", err)

	res := storage.NewError(p.now(), model, err)

	if p.Writer != nil {
		if werr := p.Writer.WriteError(res); werr != nil {
			log.Error("failed to write error record", "path", p.Writer.LatestPath(), "err", werr)
			err = errors.Join(err, werr)
		}
	}

	p.save(ctx, res)
	metrics.RecordRun(res)
	return res, err
}

func (p *Pipeline) save(ctx context.Context, res *storage.SearchResult) {
	if p.History == nil {
		return
	}
	// A cancelled run is still recorded.
	if err := p.History.Save(context.WithoutCancel(ctx), res); err != nil {
		p.logger().Warn("failed to save run history", "id", res.ID, "err", err)
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func usageFrom(u *llm.Usage) *storage.Usage {
	if u == nil {
		return nil
	}
	return &storage.Usage{
		InputTokens:         u.InputTokens,
		InputTokensDetails:  &storage.InputTokensDetails{CachedTokens: u.InputTokensDetails.CachedTokens},
		OutputTokens:        u.OutputTokens,
		OutputTokensDetails: &storage.OutputTokensDetails{ReasoningTokens: u.OutputTokensDetails.ReasoningTokens},
		TotalTokens:         u.TotalTokens,
	}
}
