package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/newsburr/internal/storage"
)

func TestSQLiteBackend(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "history.db")
	b, err := New(dsn)
	if err != nil {
		t.Fatalf("Failed to create SQLite backend: %v", err)
	}
	defer b.Close()

	ctx := context.Background()
	now := time.Now().UTC()

	res := storage.NewSuccess(now, "gpt-5-nano", []string{"https://example.com/news/today"},
		&storage.Usage{InputTokens: 100, OutputTokens: 20, TotalTokens: 120,
			OutputTokensDetails: &storage.OutputTokensDetails{ReasoningTokens: 8}})
	res.Articles = []storage.Article{{URL: "https://example.com/news/today", Title: "Today", StatusCode: 200}}
	failed := storage.NewError(now.Add(-2*time.Hour), "gpt-5-nano", errors.New("connection refused"))

	if err := b.Save(ctx, res); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}
	if err := b.Save(ctx, failed); err != nil {
		t.Fatalf("Failed to save error result: %v", err)
	}

	results, err := b.Query(ctx, storage.Filter{Status: storage.StatusSuccess})
	if err != nil {
		t.Fatalf("Failed to query results: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(results))
	}

	got := results[0]
	if got.ID != res.ID {
		t.Errorf("Expected ID %s, got %s", res.ID, got.ID)
	}
	if got.Timestamp != res.Timestamp {
		t.Errorf("Expected Timestamp %s, got %s", res.Timestamp, got.Timestamp)
	}
	if got.ModelUsed != res.ModelUsed {
		t.Errorf("Expected ModelUsed %s, got %s", res.ModelUsed, got.ModelUsed)
	}
	if len(got.NewsURLs) != 1 || got.NewsURLs[0] != res.NewsURLs[0] {
		t.Errorf("Expected NewsURLs %v, got %v", res.NewsURLs, got.NewsURLs)
	}
	if got.Usage == nil || got.Usage.OutputTokensDetails == nil || got.Usage.OutputTokensDetails.ReasoningTokens != 8 {
		t.Errorf("Expected usage to round-trip, got %+v", got.Usage)
	}
	if len(got.Articles) != 1 || got.Articles[0].Title != "Today" {
		t.Errorf("Expected articles to round-trip, got %+v", got.Articles)
	}
	if got.CreatedAt.Unix() != res.CreatedAt.Unix() {
		t.Errorf("Expected CreatedAt %v, got %v", res.CreatedAt, got.CreatedAt)
	}

	// Since filter
	past := now.Add(-1 * time.Hour)
	resultsSince, err := b.Query(ctx, storage.Filter{Since: &past})
	if err != nil {
		t.Fatalf("Failed to query results with Since: %v", err)
	}
	if len(resultsSince) != 1 {
		t.Fatalf("Expected 1 result, got %d", len(resultsSince))
	}

	// Ordering, offset without limit
	all, err := b.Query(ctx, storage.Filter{})
	if err != nil {
		t.Fatalf("Failed to query all: %v", err)
	}
	if len(all) != 2 || all[0].ID != res.ID {
		t.Fatalf("Expected newest first, got %v", all)
	}
	if all[1].Error != "connection refused" || all[1].NewsURLs != nil {
		t.Errorf("Expected error record to round-trip, got %+v", all[1])
	}

	offset, err := b.Query(ctx, storage.Filter{Offset: 1})
	if err != nil {
		t.Fatalf("Failed to query with offset: %v", err)
	}
	if len(offset) != 1 || offset[0].ID != failed.ID {
		t.Errorf("Expected %s at offset 1, got %v", failed.ID, offset)
	}
}
