package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/FranksOps/newsburr/internal/storage"
)

// ensure jsonBackend implements storage.Backend
var _ storage.Backend = (*jsonBackend)(nil)

type jsonBackend struct {
	mu   sync.Mutex
	file *os.File
}

// line is one NDJSON history entry. CreatedAt is carried explicitly because
// SearchResult does not serialize it.
type line struct {
	*storage.SearchResult
	CreatedAt time.Time `json:"created_at"`
}

// New creates a new NDJSON-backed storage.Backend.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}

	return &jsonBackend{
		file: f,
	}, nil
}

func (b *jsonBackend) Save(ctx context.Context, result *storage.SearchResult) error {
	data, err := json.Marshal(line{SearchResult: result, CreatedAt: result.CreatedAt})
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("append result: %w", err)
	}

	return nil
}

func (b *jsonBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek history file: %w", err)
	}
	defer func() {
		// Restore pointer to end for writing
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	scanner := bufio.NewScanner(b.file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// No query engine: read everything, filter in memory, then page.
	var matched []*storage.SearchResult

	for scanner.Scan() {
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		entry := line{SearchResult: &storage.SearchResult{}}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("decode history line: %w", err)
		}
		entry.SearchResult.CreatedAt = entry.CreatedAt

		if !filter.Match(entry.SearchResult) {
			continue
		}
		matched = append(matched, entry.SearchResult)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan history file: %w", err)
	}

	return storage.Page(matched, filter), nil
}

func (b *jsonBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
