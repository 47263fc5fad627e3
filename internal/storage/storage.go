package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is the ISO-8601 layout used for the timestamp field of a
// SearchResult. It matches local time with microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Status is the terminal state of a search run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Usage holds the token accounting reported by the model API.
type Usage struct {
	InputTokens         int                  `json:"input_tokens"`
	InputTokensDetails  *InputTokensDetails  `json:"input_tokens_details,omitempty"`
	OutputTokens        int                  `json:"output_tokens"`
	OutputTokensDetails *OutputTokensDetails `json:"output_tokens_details,omitempty"`
	TotalTokens         int                  `json:"total_tokens"`
}

type InputTokensDetails struct {
	CachedTokens int `json:"cached_tokens"`
}

type OutputTokensDetails struct {
	ReasoningTokens int `json:"reasoning_tokens"`
}

// Article is the outcome of verifying one returned news URL.
type Article struct {
	URL             string `json:"url"`
	FinalURL        string `json:"final_url,omitempty"`
	Title           string `json:"title,omitempty"`
	StatusCode      int    `json:"status_code,omitempty"`
	DetectedBot     bool   `json:"detected_bot,omitempty"`
	DetectionSrc    string `json:"detection_src,omitempty"` // e.g. "Cloudflare", "Akamai"
	BlockedByRobots bool   `json:"blocked_by_robots,omitempty"`
	Error           string `json:"error,omitempty"`
}

// SearchResult is the record produced by one run. It is written once and
// never mutated afterwards.
type SearchResult struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	NewsURLs  []string  `json:"news_urls,omitempty"`
	URLCount  int       `json:"url_count,omitempty"`
	ModelUsed string    `json:"model_used"`
	Status    Status    `json:"status"`
	Usage     *Usage    `json:"usage,omitempty"`
	Error     string    `json:"error,omitempty"`
	Articles  []Article `json:"articles,omitempty"`

	// CreatedAt mirrors Timestamp for backends that index on time.
	CreatedAt time.Time `json:"-"`
}

// NewSuccess builds a success record for the given URLs.
func NewSuccess(now time.Time, model string, urls []string, usage *Usage) *SearchResult {
	return &SearchResult{
		ID:        uuid.New().String(),
		Timestamp: now.Format(TimestampLayout),
		NewsURLs:  urls,
		URLCount:  len(urls),
		ModelUsed: model,
		Status:    StatusSuccess,
		Usage:     usage,
		CreatedAt: now,
	}
}

// NewError builds an error record. The message of err is kept verbatim.
func NewError(now time.Time, model string, err error) *SearchResult {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &SearchResult{
		ID:        uuid.New().String(),
		Timestamp: now.Format(TimestampLayout),
		ModelUsed: model,
		Status:    StatusError,
		Error:     msg,
		CreatedAt: now,
	}
}

// Filter allows querying for specific SearchResults.
type Filter struct {
	Status Status
	Model  string
	Since  *time.Time
	Limit  int
	Offset int
}

// Match reports whether r passes the filter's predicates. Limit and Offset
// are not considered.
func (f Filter) Match(r *SearchResult) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.Model != "" && r.ModelUsed != f.Model {
		return false
	}
	if f.Since != nil && r.CreatedAt.Before(*f.Since) {
		return false
	}
	return true
}

// Backend defines the interface for storing and querying run history.
type Backend interface {
	Save(ctx context.Context, result *SearchResult) error
	Query(ctx context.Context, filter Filter) ([]*SearchResult, error)
	Close() error
}

// Page orders results newest first and applies Offset and Limit. It is used
// by file backends that have no query engine.
func Page(results []*SearchResult, filter Filter) []*SearchResult {
	for i, j := 0, len(results)-1; i < j; i, j = i+1, j-1 {
		results[i], results[j] = results[j], results[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(results) {
			return []*SearchResult{}
		}
		results = results[filter.Offset:]
	}

	if filter.Limit > 0 && filter.Limit < len(results) {
		results = results[:filter.Limit]
	}

	return results
}
