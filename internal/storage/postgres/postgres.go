package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/newsburr/internal/storage"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS search_results (
	id TEXT PRIMARY KEY,
	timestamp TEXT NOT NULL,
	status TEXT NOT NULL,
	model_used TEXT NOT NULL,
	url_count INTEGER NOT NULL,
	news_urls JSONB NOT NULL,
	usage JSONB,
	articles JSONB,
	error TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_search_results_created_at ON search_results (created_at DESC);
`

// New creates a new Postgres-backed storage.Backend.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, result *storage.SearchResult) error {
	urls := result.NewsURLs
	if urls == nil {
		urls = []string{}
	}
	urlsJSON, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("marshal news urls: %w", err)
	}

	var usageJSON, articlesJSON []byte
	if result.Usage != nil {
		if usageJSON, err = json.Marshal(result.Usage); err != nil {
			return fmt.Errorf("marshal usage: %w", err)
		}
	}
	if len(result.Articles) > 0 {
		if articlesJSON, err = json.Marshal(result.Articles); err != nil {
			return fmt.Errorf("marshal articles: %w", err)
		}
	}

	query := `
	INSERT INTO search_results (
		id, timestamp, status, model_used, url_count, news_urls, usage, articles, error, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = b.pool.Exec(ctx, query,
		result.ID,
		result.Timestamp,
		string(result.Status),
		result.ModelUsed,
		result.URLCount,
		urlsJSON,
		usageJSON,
		articlesJSON,
		result.Error,
		result.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.SearchResult, error) {
	query := `SELECT id, timestamp, status, model_used, url_count, news_urls, usage, articles, error, created_at FROM search_results WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, paramCount)
		args = append(args, string(filter.Status))
		paramCount++
	}
	if filter.Model != "" {
		query += fmt.Sprintf(` AND model_used = $%d`, paramCount)
		args = append(args, filter.Model)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND created_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY created_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var results []*storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		var status string
		var urlsJSON, usageJSON, articlesJSON []byte
		var errMsg *string

		err := rows.Scan(
			&r.ID, &r.Timestamp, &status, &r.ModelUsed, &r.URLCount,
			&urlsJSON, &usageJSON, &articlesJSON, &errMsg, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}

		r.Status = storage.Status(status)
		if errMsg != nil {
			r.Error = *errMsg
		}
		if err := json.Unmarshal(urlsJSON, &r.NewsURLs); err != nil {
			return nil, fmt.Errorf("decode news urls: %w", err)
		}
		if len(r.NewsURLs) == 0 {
			r.NewsURLs = nil
		}
		if len(usageJSON) > 0 {
			if err := json.Unmarshal(usageJSON, &r.Usage); err != nil {
				return nil, fmt.Errorf("decode usage: %w", err)
			}
		}
		if len(articlesJSON) > 0 {
			if err := json.Unmarshal(articlesJSON, &r.Articles); err != nil {
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

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
