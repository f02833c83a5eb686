package stories

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/common"

	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE stories (
  id          TEXT PRIMARY KEY,
  name        TEXT NOT NULL,
  description TEXT NOT NULL,
  photo_url   TEXT NOT NULL,
  lat         REAL,
  lon         REAL,
  created_at  TEXT NOT NULL,
  user_id     TEXT NOT NULL DEFAULT ''
);
`)
	require.NoError(t, err)

	return db
}

func testStory(id string) *models.Story {
	return &models.Story{
		ID:          id,
		Name:        "Ana",
		Description: "a story about " + id,
		PhotoURL:    "https://img.example/" + id + ".jpg",
		CreatedAt:   time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPut_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	lat, lon := -6.2, 106.816666
	s := testStory("s1")
	s.Lat, s.Lon = &lat, &lon
	require.NoError(t, r.Put(ctx, s))

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, s.Description, got.Description)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
	require.True(t, got.HasLocation())
	assert.InDelta(t, lat, *got.Lat, 1e-9)
	assert.InDelta(t, lon, *got.Lon, 1e-9)
}

func TestPut_UpsertOverwrites(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, testStory("s1")))

	updated := testStory("s1")
	updated.PhotoURL = "blob:s1"
	require.NoError(t, r.Put(ctx, updated))

	got, err := r.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "blob:s1", got.PhotoURL)

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGet_NotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_ThenGetReturnsNotFound(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, testStory("s1")))
	require.NoError(t, r.Delete(ctx, "s1"))

	_, err := r.Get(ctx, "s1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// deleting an absent id is not an error
	require.NoError(t, r.Delete(ctx, "s1"))
}

func TestClear(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.Put(ctx, testStory("s1")))
	require.NoError(t, r.Put(ctx, testStory("s2")))
	require.NoError(t, r.Clear(ctx))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSearch(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	s1 := testStory("s1")
	s1.Description = "Sunset over the harbour"
	s2 := testStory("s2")
	s2.Name = "Budi"
	s2.Description = "Mountain trail"
	require.NoError(t, r.Put(ctx, s1))
	require.NoError(t, r.Put(ctx, s2))

	got, err := r.Search(ctx, "HARBOUR")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].ID)

	got, err = r.Search(ctx, "budi")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s2", got[0].ID)

	got, err = r.Search(ctx, "nothing here")
	require.NoError(t, err)
	assert.Empty(t, got)

	// LIKE metacharacters are literals, not wildcards
	got, err = r.Search(ctx, "100%")
	require.NoError(t, err)
	assert.Empty(t, got)
}
