package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/newsburr/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS search_results (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	status TEXT NOT NULL,
	model_used TEXT NOT NULL,
	url_count INTEGER NOT NULL,
	news_urls TEXT NOT NULL,
	usage TEXT,
	articles TEXT,
	error TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_results_created_at ON search_results (created_at);
`

// New creates a new SQLite-backed storage.Backend.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, result *storage.SearchResult) error {
	urlsJSON, err := json.Marshal(result.NewsURLs)
	if err != nil {
		return fmt.Errorf("marshal news urls: %w", err)
	}
	usageJSON, err := json.Marshal(result.Usage)
	if err != nil {
		return fmt.Errorf("marshal usage: %w", err)
	}
	articlesJSON, err := json.Marshal(result.Articles)
	if err != nil {
		return fmt.Errorf("marshal articles: %w", err)
	}

	query := `
	INSERT INTO search_results (
		id, timestamp, status, model_used, url_count, news_urls, usage, articles, error, created_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = b.db.ExecContext(ctx, query,
		result.ID,
		result.Timestamp,
		string(result.Status),
		result.ModelUsed,
		result.URLCount,
		string(urlsJSON),
		string(usageJSON),
		string(articlesJSON),
		result.Error,
		result.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchResult, error) {
	query := `SELECT id, timestamp, status, model_used, url_count, news_urls, usage, articles, error, created_at FROM search_results WHERE 1=1`
	args := []any{}

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Model != "" {
		query += ` AND model_used = ?`
		args = append(args, filter.Model)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT before OFFSET.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []*storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		var status, urlsJSON string
		var usageJSON, articlesJSON, errMsg sql.NullString

		err := rows.Scan(
			&r.ID, &r.Timestamp, &status, &r.ModelUsed, &r.URLCount,
			&urlsJSON, &usageJSON, &articlesJSON, &errMsg, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		r.Status = storage.Status(status)
		r.Error = errMsg.String
		if err := json.Unmarshal([]byte(urlsJSON), &r.NewsURLs); err != nil {
			return nil, fmt.Errorf("decode news urls: %w", err)
		}
		if usageJSON.Valid {
			if err := json.Unmarshal([]byte(usageJSON.String), &r.Usage); err != nil {
				return nil, fmt.Errorf("decode usage: %w", err)
			}
		}
		if articlesJSON.Valid {
			if err := json.Unmarshal([]byte(articlesJSON.String), &r.Articles); err != nil {
				return nil, fmt.Errorf("decode articles: %w", err)
			}
		}

		results = append(results, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
