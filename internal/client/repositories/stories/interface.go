package stories

import (
	"context"

	"github.com/satriojati/storymap/internal/client/models"
)

// Repository describes CRUD and search operations for locally bookmarked
// Story records. Implementations are typically backed by a local SQLite
// database and return errors the usual Go way; the fail-open façade callers
// actually use is Store.
type Repository interface {
	// GetAll lists every stored story. Order is not meaningful; callers sort.
	GetAll(ctx context.Context) ([]models.Story, error)

	// Get returns the story with the given id, or common.ErrNotFound.
	Get(ctx context.Context, id string) (*models.Story, error)

	// Put upserts a story keyed by id, overwriting an existing record.
	Put(ctx context.Context, story *models.Story) error

	// Delete removes the story with the given id. Deleting an absent id is
	// not an error.
	Delete(ctx context.Context, id string) error

	// Clear removes every stored story.
	Clear(ctx context.Context) error

	// Search returns stories whose description or author name contains the
	// query, case-insensitively.
	Search(ctx context.Context, query string) ([]models.Story, error)
}
