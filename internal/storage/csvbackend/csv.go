package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/newsburr/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// headers defines the CSV column order
var headers = []string{
	"id",
	"timestamp",
	"status",
	"model_used",
	"url_count",
	"news_urls_json",
	"usage_json",
	"articles_json",
	"error",
	"created_at",
}

// New creates a new CSV-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat history file: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(headers); err != nil {
			f.Close()
			return nil, fmt.Errorf("write csv header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("flush csv header: %w", err)
		}
	}

	return &csvBackend{
		file: f,
	}, nil
}

func marshalColumn(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (b *csvBackend) Save(ctx context.Context, result *storage.SearchResult) error {
	urlsJSON, err := marshalColumn(result.NewsURLs)
	if err != nil {
		return fmt.Errorf("marshal news urls: %w", err)
	}
	usageJSON, err := marshalColumn(result.Usage)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}
	articlesJSON, err := marshalColumn(result.Articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}

	record := []string{
		result.ID,
		result.Timestamp,
		string(result.Status),
		result.ModelUsed,
		strconv.Itoa(result.URLCount),
		urlsJSON,
		usageJSON,
		articlesJSON,
		result.Error,
		result.CreatedAt.Format(time.RFC3339Nano),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("seek history file: %w", err)
	}

	w := csv.NewWriter(b.file)
	if err := w.Write(record); err != nil {
		return fmt.Errorf("write csv record: %w", err)
	}
	w.Flush()

	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv record: %w", err)
	}

	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek history file: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return []*storage.SearchResult{}, nil
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	var matched []*storage.SearchResult

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}

		if len(record) != len(headers) {
			continue // skip malformed rows
		}

		urlCount, _ := strconv.Atoi(record[4])
		createdAt, _ := time.Parse(time.RFC3339Nano, record[9])

		res := &storage.SearchResult{
			ID:        record[0],
			Timestamp: record[1],
			Status:    storage.Status(record[2]),
			ModelUsed: record[3],
			URLCount:  urlCount,
			Error:     record[8],
			CreatedAt: createdAt,
		}
		// Fall back to empty values if a JSON column fails to parse.
		_ = json.Unmarshal([]byte(record[5]), &res.NewsURLs)
		_ = json.Unmarshal([]byte(record[6]), &res.Usage)
		_ = json.Unmarshal([]byte(record[7]), &res.Articles)

		if !filter.Match(res) {
			continue
		}
		matched = append(matched, res)
	}

	return storage.Page(matched, filter), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
