package stories

import (
	"context"

	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/logging"
)

// Store is the fail-open façade over a Repository. Storage failures degrade
// to empty/false/nil results instead of propagating, so callers treat
// "storage unavailable" and "no match" uniformly as empty results. This is a
// deliberate policy for an offline-first client: a broken local database must
// never take the list view down with it. Failures are still logged.
type Store struct {
	repo Repository
	log  logging.Logger
}

// NewStore wraps repo. A nil logger falls back to logging.Nop.
func NewStore(repo Repository, log logging.Logger) *Store {
	if log == nil {
		log = logging.Nop()
	}
	return &Store{repo: repo, log: log}
}

// GetAll returns every stored story, or an empty slice on storage failure.
func (s *Store) GetAll(ctx context.Context) []models.Story {
	result, err := s.repo.GetAll(ctx)
	if err != nil {
		s.log.Warn(ctx, "local store: get all failed", "err", err)
		return nil
	}
	return result
}

// Get returns the story with the given id, or nil if absent or the store is
// unavailable.
func (s *Store) Get(ctx context.Context, id string) *models.Story {
	if id == "" {
		return nil
	}
	story, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil
	}
	return story
}

// Put upserts a story and reports success.
func (s *Store) Put(ctx context.Context, story *models.Story) bool {
	if err := s.repo.Put(ctx, story); err != nil {
		s.log.Warn(ctx, "local store: put failed", "id", story.ID, "err", err)
		return false
	}
	return true
}

// Delete removes a story and reports success.
func (s *Store) Delete(ctx context.Context, id string) bool {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "local store: delete failed", "id", id, "err", err)
		return false
	}
	return true
}

// Clear wipes the store and reports success.
func (s *Store) Clear(ctx context.Context) bool {
	if err := s.repo.Clear(ctx); err != nil {
		s.log.Warn(ctx, "local store: clear failed", "err", err)
		return false
	}
	return true
}

// Search returns matching stories, or an empty slice on failure.
func (s *Store) Search(ctx context.Context, query string) []models.Story {
	result, err := s.repo.Search(ctx, query)
	if err != nil {
		s.log.Warn(ctx, "local store: search failed", "query", query, "err", err)
		return nil
	}
	return result
}

// SavedIDs returns the set of ids currently stored, for isSaved reconciling.
func (s *Store) SavedIDs(ctx context.Context) map[string]struct{} {
	all := s.GetAll(ctx)
	ids := make(map[string]struct{}, len(all))
	for _, st := range all {
		ids[st.ID] = struct{}{}
	}
	return ids
}
