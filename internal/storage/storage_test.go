package storage

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNewSuccess(t *testing.T) {
	now := time.Date(2025, 3, 4, 5, 6, 7, 123456000, time.Local)
	res := NewSuccess(now, "gpt-5-nano", []string{"https://example.com/news/today"}, &Usage{TotalTokens: 42})

	if res.ID == "" {
		t.Errorf("expected non-empty ID")
	}
	if res.Timestamp != "2025-03-04T05:06:07.123456" {
		t.Errorf("unexpected timestamp %s", res.Timestamp)
	}
	if res.Status != StatusSuccess {
		t.Errorf("expected success, got %s", res.Status)
	}
	if res.URLCount != 1 {
		t.Errorf("expected url_count 1, got %d", res.URLCount)
	}
	if !res.CreatedAt.Equal(now) {
		t.Errorf("expected CreatedAt %v, got %v", now, res.CreatedAt)
	}
}

func TestNewError_KeepsMessageVerbatim(t *testing.T) {
	msg := "No valid URLs found: \"quoted\" & <odd> chars"
	res := NewError(time.Now(), "gpt-5-nano", errors.New(msg))

	if res.Status != StatusError {
		t.Fatalf("expected error status, got %s", res.Status)
	}
	if res.Error != msg {
		t.Errorf("expected %q, got %q", msg, res.Error)
	}

	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["error"] != msg {
		t.Errorf("expected error %q in JSON, got %v", msg, decoded["error"])
	}
	if _, ok := decoded["news_urls"]; ok {
		t.Errorf("error records should not carry news_urls")
	}
}

func TestSearchResult_JSONKeys(t *testing.T) {
	res := NewSuccess(time.Now(), "gpt-5-nano", []string{"https://example.com/a"}, nil)
	data, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	out := string(data)
	for _, key := range []string{`"timestamp"`, `"news_urls"`, `"model_used"`, `"status":"success"`, `"url_count":1`} {
		if !strings.Contains(out, key) {
			t.Errorf("expected %s in %s", key, out)
		}
	}
	if strings.Contains(out, "CreatedAt") {
		t.Errorf("CreatedAt must not be serialized: %s", out)
	}
}

func TestFilter_Match(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	ok := NewSuccess(now, "m1", []string{"https://example.com/a"}, nil)
	bad := NewError(now.Add(-2*time.Hour), "m2", errors.New("boom"))

	if !(Filter{}).Match(ok) {
		t.Errorf("empty filter should match everything")
	}
	if (Filter{Status: StatusError}).Match(ok) {
		t.Errorf("status filter should exclude success")
	}
	if (Filter{Model: "m1"}).Match(bad) {
		t.Errorf("model filter should exclude m2")
	}
	if (Filter{Since: &past}).Match(bad) {
		t.Errorf("since filter should exclude older records")
	}
}

func TestPage(t *testing.T) {
	mk := func(id string) *SearchResult { return &SearchResult{ID: id} }
	results := []*SearchResult{mk("1"), mk("2"), mk("3")}

	got := Page(results, Filter{Offset: 1, Limit: 1})
	if len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("expected [2], got %v", got)
	}

	if got := Page([]*SearchResult{mk("1")}, Filter{Offset: 5}); len(got) != 0 {
		t.Errorf("expected empty page, got %d", len(got))
	}
}
