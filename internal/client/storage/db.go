// Package storage opens the local sqlite database and wires the repositories
// over it. Schema changes go through embedded goose migrations so any
// database file can be brought up to date on startup.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/satriojati/storymap/internal/client/migrations"
	"github.com/satriojati/storymap/internal/client/repositories/blobs"
	"github.com/satriojati/storymap/internal/client/repositories/metadata"
	"github.com/satriojati/storymap/internal/client/repositories/stories"
	"github.com/satriojati/storymap/internal/dbx"
)

// Repositories bundles every repository backed by the local database.
type Repositories struct {
	Metadata metadata.Repository
	Stories  stories.Repository
	Blobs    blobs.Repository
}

// RunMigrations applies all pending embedded migrations. Running it on an
// up-to-date database is a no-op.
func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	return goose.UpContext(ctx, db, ".")
}

// InitDatabase opens (creating if needed) the database at dsn, migrates it
// and returns the repositories plus the handle for lifecycle management.
// The caller owns closing the handle.
func InitDatabase(ctx context.Context, dsn string) (*sql.DB, *Repositories, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repos := &Repositories{
		Metadata: metadata.NewSQLiteRepository(db),
		Stories:  stories.NewSQLiteRepository(db),
		Blobs:    blobs.NewSQLiteRepository(db),
	}
	return db, repos, nil
}

// RemoveStory deletes a bookmarked story together with its cached photo in
// one transaction, so an interruption cannot leave an orphaned blob behind.
func RemoveStory(ctx context.Context, db *sql.DB, id string) error {
	return dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := stories.NewSQLiteRepository(tx).Delete(ctx, id); err != nil {
			return err
		}
		return blobs.NewSQLiteRepository(tx).Delete(ctx, id)
	})
}
