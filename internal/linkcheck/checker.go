// Package linkcheck verifies the news URLs returned by a search: it fetches
// each page, honors robots.txt, reads the title and flags bot walls.
package linkcheck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/FranksOps/newsburr/internal/fingerprint"
	"github.com/FranksOps/newsburr/internal/metrics"
	"github.com/FranksOps/newsburr/internal/storage"
	"github.com/FranksOps/newsburr/pkg/httpclient"
)

const (
	DefaultUserAgent   = "newsburr/1.0 (+https://github.com/FranksOps/newsburr)"
	DefaultConcurrency = 4
	DefaultTimeout     = 15 * time.Second
	DefaultMaxBody     = 2 << 20
)

// Config configures a Checker.
type Config struct {
	Fingerprint  fingerprint.Profile
	Timeout      time.Duration
	Concurrency  int
	UserAgent    string
	MaxBodyBytes int64
	IgnoreRobots bool
	// Transport replaces the fingerprinted transport.
	Transport http.RoundTripper
}

// Checker fetches article pages.
type Checker struct {
	config Config
	client *httpclient.Client
	robots *Robots
	logger *slog.Logger
}

// New creates a Checker.
func New(cfg Config, logger *slog.Logger) (*Checker, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBody
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := cfg.Transport
	if transport == nil {
		tr, err := fingerprint.NewTransport(cfg.Fingerprint, fingerprint.Options{})
		if err != nil {
			return nil, fmt.Errorf("setup transport: %w", err)
		}
		transport = tr
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 10,
		UseCookieJar: true,
		UserAgent:    cfg.UserAgent,
		Header: http.Header{
			"Accept":          {"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"},
			"Accept-Language": {"en-US,en;q=0.5"},
		},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	return &Checker{
		config: cfg,
		client: client,
		robots: NewRobots(client, logger),
		logger: logger,
	}, nil
}

// Check verifies every URL with bounded concurrency. The returned slice is
// in the same order as urls. Per-URL failures are recorded on the Article;
// Check itself never fails.
func (c *Checker) Check(ctx context.Context, urls []string) []storage.Article {
	articles := make([]storage.Article, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.Concurrency)
	for i, u := range urls {
		g.Go(func() error {
			articles[i] = c.checkOne(gctx, u)
			metrics.RecordLinkCheck(articles[i])
			return nil
		})
	}
	_ = g.Wait()

	return articles
}

func (c *Checker) checkOne(ctx context.Context, targetURL string) storage.Article {
	article := storage.Article{URL: targetURL}
	start := time.Now()

	if !c.config.IgnoreRobots {
		allowed, err := c.robots.Allowed(ctx, targetURL, c.config.UserAgent)
		if err != nil {
			article.Error = err.Error()
			return article
		}
		if !allowed {
			article.BlockedByRobots = true
			c.logger.Info("link disallowed by robots.txt", "url", targetURL)
			return article
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		article.Error = fmt.Sprintf("build request: %v", err)
		return article
	}

	resp, err := c.client.Do(ctx, req)
	if err != nil {
		article.Error = err.Error()
		c.logger.Warn("link check failed", "url", targetURL, "err", err)
		return article
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodyBytes))
	if err != nil {
		article.Error = fmt.Sprintf("read body: %v", err)
	}

	article.StatusCode = resp.StatusCode
	if resp.Request != nil && resp.Request.URL != nil {
		article.FinalURL = resp.Request.URL.String()
	}

	if src, detected := Detect(Page{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}); detected {
		article.DetectedBot = true
		article.DetectionSrc = src
	}

	if isHTML(resp.Header.Get("Content-Type")) {
		article.Title = pageTitle(body)
	}

	c.logger.Debug("link checked",
		"url", targetURL,
		"status", article.StatusCode,
		"title", article.Title,
		"detected_bot", article.DetectedBot,
		"duration", time.Since(start),
	)
	return article
}

func isHTML(contentType string) bool {
	return contentType == "" || strings.Contains(strings.ToLower(contentType), "html")
}

// pageTitle returns the document title, falling back to og:title.
func pageTitle(body []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}
	title := strings.TrimSpace(doc.Find("head title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if title == "" {
		title, _ = doc.Find(`meta[property="og:title"]`).Attr("content")
		title = strings.TrimSpace(title)
	}
	return strings.Join(strings.Fields(title), " ")
}
