package blobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/satriojati/storymap/internal/common"
	"github.com/satriojati/storymap/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Put(ctx context.Context, b *Blob) error {
	query := ` INSERT INTO blobs (story_id, content_type, data, created_at)
			values (?, ?, ?, ?)
			ON CONFLICT(story_id) DO UPDATE SET content_type = excluded.content_type,
				data = excluded.data,
				created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query, b.StoryID, b.ContentType, b.Data, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to upsert blob: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, storyID string) (*Blob, error) {
	b := &Blob{StoryID: storyID}
	err := r.db.QueryRowContext(ctx,
		`select content_type, data from blobs where story_id=?`, storyID).
		Scan(&b.ContentType, &b.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select blob: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, storyID string) error {
	if _, err := r.db.ExecContext(ctx, `delete from blobs where story_id=?`, storyID); err != nil {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}
