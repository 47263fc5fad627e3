package linkcheck

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"

	"github.com/FranksOps/newsburr/pkg/httpclient"
)

// robotsMaxBytes bounds how much of a robots.txt is read.
const robotsMaxBytes = 512 << 10

// Robots fetches and caches robots.txt per origin.
type Robots struct {
	client *httpclient.Client
	logger *slog.Logger
	mu     sync.Mutex
	cache  map[string]*robotstxt.RobotsData
}

// NewRobots creates a Robots using client for fetches.
func NewRobots(client *httpclient.Client, logger *slog.Logger) *Robots {
	if logger == nil {
		logger = slog.Default()
	}
	return &Robots{
		client: client,
		logger: logger,
		cache:  make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether userAgent may fetch targetURL. An unreachable or
// unparsable robots.txt allows everything.
func (r *Robots) Allowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	origin := u.Scheme + "://" + u.Host
	data := r.lookup(ctx, origin)
	if data == nil {
		return true, nil
	}

	return data.TestAgent(u.EscapedPath(), userAgent), nil
}

func (r *Robots) lookup(ctx context.Context, origin string) *robotstxt.RobotsData {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data, ok := r.cache[origin]; ok {
		return data
	}

	data, err := r.fetch(ctx, origin)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", "origin", origin, "err", err)
	}
	r.cache[origin] = data
	return data
}

func (r *Robots) fetch(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, robotsMaxBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// FromStatusAndBytes treats 4xx as allow-all and 5xx as disallow-all.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}
	return data, nil
}
