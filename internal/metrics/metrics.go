package metrics

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/FranksOps/newsburr/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Attempt outcomes used as label values.
const (
	OutcomeSuccess     = "success"
	OutcomeNoURLs      = "no_urls"
	OutcomeEmptyOutput = "empty_output"
	OutcomeError       = "error"
)

var (
	SearchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsburr_search_attempts_total",
			Help: "Total number of model search attempts",
		},
		[]string{"model", "outcome"},
	)

	SearchAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newsburr_search_attempt_duration_seconds",
			Help:    "Duration of model search attempts in seconds",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"model"},
	)

	BackoffSeconds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsburr_backoff_seconds_total",
			Help: "Total seconds spent waiting between search attempts",
		},
		[]string{"model"},
	)

	URLsFoundTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsburr_urls_found_total",
			Help: "Total number of news URLs returned by successful runs",
		},
		[]string{"model"},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsburr_runs_total",
			Help: "Total number of completed runs by terminal status",
		},
		[]string{"model", "status"},
	)

	LastRunTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "newsburr_last_run_timestamp_seconds",
			Help: "Unix time of the last run by terminal status",
		},
		[]string{"status"},
	)

	LinkChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newsburr_link_checks_total",
			Help: "Total number of returned URLs verified over HTTP",
		},
		[]string{"domain", "status", "detected", "detection_src"},
	)
)

// RecordAttempt updates the attempt metrics for one model call.
func RecordAttempt(model string, d time.Duration, outcome string) {
	SearchAttemptsTotal.WithLabelValues(model, outcome).Inc()
	SearchAttemptDuration.WithLabelValues(model).Observe(d.Seconds())
}

// RecordRun updates the run metrics given the final SearchResult.
func RecordRun(res *storage.SearchResult) {
	if res == nil {
		return
	}

	RunsTotal.WithLabelValues(res.ModelUsed, string(res.Status)).Inc()
	LastRunTimestamp.WithLabelValues(string(res.Status)).Set(float64(res.CreatedAt.Unix()))
	if res.Status == storage.StatusSuccess {
		URLsFoundTotal.WithLabelValues(res.ModelUsed).Add(float64(len(res.NewsURLs)))
	}
}

// RecordLinkCheck updates the verification metrics for one article.
func RecordLinkCheck(a storage.Article) {
	domain := ""
	if u, err := url.Parse(a.URL); err == nil {
		domain = u.Hostname()
	}

	statusStr := strconv.Itoa(a.StatusCode)
	switch {
	case a.BlockedByRobots:
		statusStr = "robots"
	case a.Error != "":
		statusStr = "error"
	}

	LinkChecksTotal.WithLabelValues(domain, statusStr, strconv.FormatBool(a.DetectedBot), a.DetectionSrc).Inc()
}

// WriteFile writes every registered metric to path in the Prometheus text
// format, for pickup by the node_exporter textfile collector.
func WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics file: %w", err)
	}
	return nil
}
