// Package output writes run records to the result files consumed by
// downstream schedulers: one timestamped file per successful run and a
// fixed-name latest file that always holds the most recent outcome.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/FranksOps/newsburr/internal/storage"
)

const (
	// LatestFile is overwritten on every run, success or error.
	LatestFile = "news_results_latest.json"

	filePrefix  = "news_results_"
	stampLayout = "20060102_150405"
)

// Writer serializes SearchResults into a directory.
type Writer struct {
	dir string
}

// NewWriter creates dir if needed and returns a Writer for it.
func NewWriter(dir string) (*Writer, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// LatestPath returns the path of the latest file.
func (w *Writer) LatestPath() string {
	return filepath.Join(w.dir, LatestFile)
}

// TimestampedPath returns the per-run file path for res.
func (w *Writer) TimestampedPath(res *storage.SearchResult) string {
	return filepath.Join(w.dir, filePrefix+res.CreatedAt.Format(stampLayout)+".json")
}

// WriteSuccess writes res to its timestamped file and to the latest file.
// It returns the timestamped path.
func (w *Writer) WriteSuccess(res *storage.SearchResult) (string, error) {
	data, err := encode(res)
	if err != nil {
		return "", err
	}

	path := w.TimestampedPath(res)
	if err := writeFile(path, data); err != nil {
		return "", err
	}
	if err := writeFile(w.LatestPath(), data); err != nil {
		return "", err
	}
	return path, nil
}

// WriteError writes an error record to the latest file only.
func (w *Writer) WriteError(res *storage.SearchResult) error {
	data, err := encode(res)
	if err != nil {
		return err
	}
	return writeFile(w.LatestPath(), data)
}

func encode(res *storage.SearchResult) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	// Query strings in news URLs would otherwise be written as \u0026.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return buf.Bytes(), nil
}

// writeFile replaces path atomically so readers never see a partial file.
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".news_results_*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
