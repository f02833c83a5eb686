package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/satriojati/storymap/internal/common"
	"github.com/satriojati/storymap/internal/dbx"
)

// SQLiteStore is the default cache backend: a single table keyed by
// (bucket, key), oldest-first eviction per bucket.
type SQLiteStore struct {
	db dbx.DBTX
}

func NewSQLiteStore(db dbx.DBTX) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) Get(ctx context.Context, bucket, key string) (*Entry, error) {
	e := &Entry{}
	var storedAt string
	err := s.db.QueryRowContext(ctx,
		`select status, content_type, body, stored_at from cache_entries where bucket=? and key=?`,
		bucket, key).Scan(&e.Status, &e.ContentType, &e.Body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select cache entry: %w", err)
	}
	e.StoredAt, err = time.Parse(time.RFC3339Nano, storedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored_at: %w", err)
	}
	return e, nil
}

func (s *SQLiteStore) Put(ctx context.Context, bucket, key string, e *Entry) error {
	query := `insert into cache_entries (bucket, key, status, content_type, body, stored_at)
		values (?, ?, ?, ?, ?, ?)
		on conflict(bucket, key) do update set
			status = excluded.status,
			content_type = excluded.content_type,
			body = excluded.body,
			stored_at = excluded.stored_at`
	_, err := s.db.ExecContext(ctx, query,
		bucket, key, e.Status, e.ContentType, e.Body, e.StoredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, bucket, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`delete from cache_entries where bucket=? and key=?`, bucket, key); err != nil {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Trim(ctx context.Context, bucket string, maxEntries int) error {
	if maxEntries <= 0 {
		return nil
	}
	query := `delete from cache_entries where bucket=? and key not in (
		select key from cache_entries where bucket=? order by stored_at desc limit ?)`
	if _, err := s.db.ExecContext(ctx, query, bucket, bucket, maxEntries); err != nil {
		return fmt.Errorf("failed to trim bucket %s: %w", bucket, err)
	}
	return nil
}

func (s *SQLiteStore) Buckets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `select distinct bucket from cache_entries`)
	if err != nil {
		return nil, fmt.Errorf("failed to list buckets: %w", err)
	}
	defer rows.Close()

	var buckets []string
	for rows.Next() {
		var b string
		if err := rows.Scan(&b); err != nil {
			return nil, fmt.Errorf("failed to scan bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buckets: %w", err)
	}
	return buckets, nil
}

func (s *SQLiteStore) DropBucket(ctx context.Context, bucket string) error {
	if _, err := s.db.ExecContext(ctx, `delete from cache_entries where bucket=?`, bucket); err != nil {
		return fmt.Errorf("failed to drop bucket %s: %w", bucket, err)
	}
	return nil
}
