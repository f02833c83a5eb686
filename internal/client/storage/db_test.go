package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/client/repositories/blobs"
)

func tableExists(t *testing.T, db *sql.DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	if err != nil {
		t.Fatalf("tableExists query failed: %v", err)
	}
	return n > 0
}

func TestInitDatabase_CreatesSchema(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, repos, err := InitDatabase(ctx, dsn)
	if err != nil {
		t.Fatalf("InitDatabase error: %v", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("db.PingContext failed: %v", err)
	}

	for _, table := range []string{"goose_db_version", "stories", "metadata", "blobs"} {
		if !tableExists(t, db, table) {
			t.Fatalf("expected %s table to exist after migrations", table)
		}
	}

	if repos.Metadata == nil || repos.Stories == nil || repos.Blobs == nil {
		t.Fatalf("expected all repositories to be wired")
	}
}

func TestRemoveStory_DeletesRowAndBlobTogether(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, repos, err := InitDatabase(ctx, dsn)
	if err != nil {
		t.Fatalf("InitDatabase error: %v", err)
	}
	defer db.Close()

	if err := repos.Stories.Put(ctx, &models.Story{ID: "s1", Name: "Ana", Description: "d"}); err != nil {
		t.Fatalf("Stories.Put error: %v", err)
	}
	if err := repos.Blobs.Put(ctx, &blobs.Blob{StoryID: "s1", ContentType: "image/jpeg", Data: []byte("jpg")}); err != nil {
		t.Fatalf("Blobs.Put error: %v", err)
	}

	if err := RemoveStory(ctx, db, "s1"); err != nil {
		t.Fatalf("RemoveStory error: %v", err)
	}

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM stories WHERE id = ?`, "s1").Scan(&n); err != nil {
		t.Fatalf("stories count query failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected story row to be deleted, found %d", n)
	}
	if err := db.QueryRow(`SELECT COUNT(*) FROM blobs WHERE story_id = ?`, "s1").Scan(&n); err != nil {
		t.Fatalf("blobs count query failed: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected blob row to be deleted, found %d", n)
	}

	// Absent ids are not an error for either repository, so the transaction
	// commits cleanly.
	if err := RemoveStory(ctx, db, "s1"); err != nil {
		t.Fatalf("RemoveStory (repeat) error: %v", err)
	}
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "app.db")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("sql.Open error: %v", err)
	}
	defer db.Close()

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations (first) error: %v", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		t.Fatalf("RunMigrations (second) should be idempotent, got error: %v", err)
	}

	if !tableExists(t, db, "stories") {
		t.Fatalf("expected stories table to exist after repeated migrations")
	}
}
