package stories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/common"
	"github.com/satriojati/storymap/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const storyColumns = `id, name, description, photo_url, lat, lon, created_at, user_id`

func scanStory(row interface{ Scan(...any) error }) (*models.Story, error) {
	var s models.Story
	var lat, lon sql.NullFloat64
	var createdAt string
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &s.PhotoURL, &lat, &lon, &createdAt, &s.UserID); err != nil {
		return nil, err
	}
	if lat.Valid && lon.Valid {
		s.Lat = &lat.Float64
		s.Lon = &lon.Float64
	}
	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	s.CreatedAt = ts
	return &s, nil
}

// Put upserts a story by id. On conflict, all mutable columns are replaced.
func (r *SQLiteRepository) Put(ctx context.Context, s *models.Story) error {
	query := ` INSERT INTO stories (id, name, description, photo_url, lat, lon, created_at, user_id)
			values (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET name = excluded.name,
				description = excluded.description,
				photo_url = excluded.photo_url,
				lat = excluded.lat,
				lon = excluded.lon,
				created_at = excluded.created_at,
				user_id = excluded.user_id
	`
	var lat, lon any
	if s.HasLocation() {
		lat, lon = *s.Lat, *s.Lon
	}
	_, err := r.db.ExecContext(ctx, query,
		s.ID, s.Name, s.Description, s.PhotoURL, lat, lon, s.CreatedAt.Format(time.RFC3339Nano), s.UserID)
	if err != nil {
		return fmt.Errorf("failed to upsert story: %w", err)
	}
	return nil
}

// GetAll lists all stored stories.
func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Story, error) {
	rows, err := r.db.QueryContext(ctx, `select `+storyColumns+` from stories`)
	if err != nil {
		return nil, fmt.Errorf("failed to select stories: %w", err)
	}
	defer rows.Close()

	var result []models.Story
	for rows.Next() {
		item, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Get returns one story by id, or common.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Story, error) {
	row := r.db.QueryRowContext(ctx, `select `+storyColumns+` from stories where id=?`, id)
	s, err := scanStory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select story: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `delete from stories where id=?`, id); err != nil {
		return fmt.Errorf("failed to delete story: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `delete from stories`); err != nil {
		return fmt.Errorf("failed to clear stories: %w", err)
	}
	return nil
}

// Search matches the query against description and name, case-insensitively.
// SQLite LIKE is already case-insensitive for ASCII; lower() keeps behavior
// consistent for mixed-case data.
func (r *SQLiteRepository) Search(ctx context.Context, query string) ([]models.Story, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx,
		`select `+storyColumns+` from stories
		 where (description <> '' and lower(description) like lower(?) escape '\')
		    or (name <> '' and lower(name) like lower(?) escape '\')`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search stories: %w", err)
	}
	defer rows.Close()

	var result []models.Story
	for rows.Next() {
		item, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
