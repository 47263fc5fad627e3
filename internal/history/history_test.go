package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/FranksOps/newsburr/internal/storage"
)

func TestOpen_FileBackends(t *testing.T) {
	for _, kind := range []string{"jsonl", "csv", "sqlite"} {
		t.Run(kind, func(t *testing.T) {
			dir := t.TempDir()
			ctx := context.Background()

			b, err := Open(ctx, kind, "", dir)
			if err != nil {
				t.Fatalf("Failed to open %s: %v", kind, err)
			}
			defer b.Close()

			res := storage.NewSuccess(time.Now(), "gpt-5-nano", []string{"https://example.com/news/1"}, nil)
			if err := b.Save(ctx, res); err != nil {
				t.Fatalf("Failed to save: %v", err)
			}

			got, err := b.Query(ctx, storage.Filter{})
			if err != nil {
				t.Fatalf("Failed to query: %v", err)
			}
			if len(got) != 1 || got[0].ID != res.ID {
				t.Errorf("expected saved record back, got %v", got)
			}

			if want := DefaultPath(kind, dir); filepath.Dir(want) != dir {
				t.Errorf("default path %s outside %s", want, dir)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, "none", "", t.TempDir()); !errors.Is(err, ErrDisabled) {
		t.Errorf("expected ErrDisabled, got %v", err)
	}
	if _, err := Open(ctx, "postgres", "", t.TempDir()); err == nil {
		t.Errorf("expected error for postgres without DSN")
	}
	if _, err := Open(ctx, "mongodb", "", t.TempDir()); err == nil {
		t.Errorf("expected error for unknown backend")
	}
}
