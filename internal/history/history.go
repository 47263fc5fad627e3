// Package history opens the run history backend selected by configuration.
package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/FranksOps/newsburr/internal/storage"
	"github.com/FranksOps/newsburr/internal/storage/csvbackend"
	"github.com/FranksOps/newsburr/internal/storage/jsonbackend"
	"github.com/FranksOps/newsburr/internal/storage/postgres"
	"github.com/FranksOps/newsburr/internal/storage/sqlite"
)

// ErrDisabled is returned by Open for the "none" backend.
var ErrDisabled = errors.New("history is disabled")

// DefaultPath returns the history file used by file backends when no DSN is
// configured.
func DefaultPath(kind, dir string) string {
	switch kind {
	case "jsonl":
		return filepath.Join(dir, "news_history.jsonl")
	case "csv":
		return filepath.Join(dir, "news_history.csv")
	case "sqlite":
		return filepath.Join(dir, "news_history.db")
	}
	return ""
}

// Open returns the backend named kind. dsn overrides the default location
// and is required for postgres.
func Open(ctx context.Context, kind, dsn, dir string) (storage.Backend, error) {
	if dsn == "" {
		dsn = DefaultPath(kind, dir)
	}

	switch kind {
	case "", "none":
		return nil, ErrDisabled
	case "jsonl":
		return jsonbackend.New(dsn)
	case "csv":
		return csvbackend.New(dsn)
	case "sqlite":
		return sqlite.New(dsn)
	case "postgres":
		if dsn == "" {
			return nil, errors.New("postgres history requires a DSN")
		}
		return postgres.New(ctx, dsn)
	}
	return nil, fmt.Errorf("unknown history backend %q", kind)
}
