// Package syncer coordinates the story list between the backend, the local
// store and whoever is displaying it. It owns all refresh triggers (startup,
// periodic timer, connectivity flips, visibility changes, new-story events),
// collapses overlapping refreshes into one and publishes immutable snapshots
// to subscribers.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/satriojati/storymap/internal/client/config"
	"github.com/satriojati/storymap/internal/client/gateway"
	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/client/repositories/blobs"
	"github.com/satriojati/storymap/internal/client/repositories/stories"
	"github.com/satriojati/storymap/internal/events"
	"github.com/satriojati/storymap/internal/logging"
	"github.com/satriojati/storymap/internal/netmon"
)

// Snapshot is one published state of the story list. Subscribers must treat
// it as read-only.
type Snapshot struct {
	Stories []models.Story
	Source  gateway.Source
	Message string
	Err     bool
	Online  bool
}

// NetStatus is the part of the network monitor the syncer needs.
type NetStatus interface {
	Register(cb netmon.Callback) (unregister func())
	IsOnline() bool
}

// PhotoFetcher downloads a photo by URL. Satisfied by the API client.
type PhotoFetcher interface {
	FetchRaw(ctx context.Context, url string) (data []byte, contentType string, err error)
}

// Syncer is the sync coordinator. Construct with New, then Start; Stop tears
// down every trigger it registered.
type Syncer struct {
	gw     *gateway.Gateway
	store  *stories.Store
	blobs  blobs.Repository
	photos PhotoFetcher
	net    NetStatus
	bus    *events.Bus
	cfg    *config.Config
	log    logging.Logger

	mu        sync.Mutex
	fetching  bool
	visible   bool
	online    bool
	snapshot  Snapshot
	listeners map[int]func(Snapshot)
	nextID    int

	// removeFn deletes the bookmark row and its photo blob. The default
	// deletes them one after the other; UseRemover swaps in a transactional
	// variant when the caller owns the database handle.
	removeFn func(ctx context.Context, id string) error

	unregNet func()
	unsubBus func()
	stop     chan struct{}
	wg       sync.WaitGroup
}

func New(gw *gateway.Gateway, store *stories.Store, blobRepo blobs.Repository,
	photos PhotoFetcher, net NetStatus, bus *events.Bus,
	cfg *config.Config, log logging.Logger) *Syncer {
	if log == nil {
		log = logging.Nop()
	}
	s := &Syncer{
		gw:        gw,
		store:     store,
		blobs:     blobRepo,
		photos:    photos,
		net:       net,
		bus:       bus,
		cfg:       cfg,
		log:       log,
		visible:   true,
		listeners: make(map[int]func(Snapshot)),
		stop:      make(chan struct{}),
	}
	s.removeFn = s.defaultRemove
	return s
}

// UseRemover replaces how RemoveSavedStory deletes the local copy, letting
// the composition root supply a single-transaction delete of story and blob.
func (s *Syncer) UseRemover(fn func(ctx context.Context, id string) error) {
	s.removeFn = fn
}

// Subscribe registers a snapshot listener and immediately replays the current
// snapshot so the subscriber does not start blank. Returns an unsubscribe
// function.
func (s *Syncer) Subscribe(cb func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = cb
	current := s.snapshot
	s.mu.Unlock()

	cb(current)
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Start wires all refresh triggers and performs the initial fetch. ctx bounds
// the periodic loop; cancelling it is equivalent to Stop for the timer but
// does not unregister the event callbacks.
func (s *Syncer) Start(ctx context.Context) {
	// The monitor replays the current status on register, which seeds
	// s.online before the initial fetch below.
	s.unregNet = s.net.Register(func(online bool) { s.onStatusChange(ctx, online) })
	s.unsubBus = s.bus.SubscribeStoryAdded(func(story models.Story) { s.onStoryAdded(ctx, story) })

	s.wg.Add(1)
	go s.loop(ctx)

	s.Refresh(ctx)
}

// Stop tears down every trigger Start registered and waits for the periodic
// loop to exit. Safe to call once.
func (s *Syncer) Stop() {
	if s.unregNet != nil {
		s.unregNet()
	}
	if s.unsubBus != nil {
		s.unsubBus()
	}
	close(s.stop)
	s.wg.Wait()
}

func (s *Syncer) loop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.mu.Lock()
			active := s.online && s.visible
			s.mu.Unlock()
			if active {
				s.Refresh(ctx)
			}
		case <-s.stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SetVisible tells the syncer whether the story list is currently being
// looked at. The periodic refresh only runs while visible; becoming visible
// again triggers an immediate refresh to catch up. The syncer starts
// visible, so frontends that have no notion of leaving the list never need
// to call this.
func (s *Syncer) SetVisible(ctx context.Context, visible bool) {
	s.mu.Lock()
	was := s.visible
	s.visible = visible
	online := s.online
	s.mu.Unlock()

	if visible && !was && online {
		s.Refresh(ctx)
	}
}

func (s *Syncer) onStatusChange(ctx context.Context, online bool) {
	s.mu.Lock()
	s.online = online
	s.mu.Unlock()

	if online {
		s.log.Info(ctx, "connection restored, refreshing stories")
		s.Refresh(ctx)
		return
	}

	s.log.Info(ctx, "connection lost")
	s.mu.Lock()
	snap := s.snapshot
	snap.Online = false
	snap.Message = "You are offline"
	if !s.cfg.KeepStaleWhenOffline {
		snap.Stories = nil
	}
	s.snapshot = snap
	s.mu.Unlock()
	s.notify(snap)
}

// onStoryAdded prepends the new story optimistically so it shows up without
// waiting for the backend, then refetches in the background to converge on
// the authoritative list.
func (s *Syncer) onStoryAdded(ctx context.Context, story models.Story) {
	s.mu.Lock()
	snap := s.snapshot
	snap.Stories = append([]models.Story{story}, snap.Stories...)
	s.snapshot = snap
	s.mu.Unlock()
	s.notify(snap)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Refresh(ctx)
	}()
}

// Refresh fetches the story list once. A refresh that arrives while another
// is in flight is dropped, not queued.
func (s *Syncer) Refresh(ctx context.Context) {
	s.mu.Lock()
	if s.fetching {
		s.mu.Unlock()
		return
	}
	s.fetching = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.fetching = false
		s.mu.Unlock()
	}()

	res := s.gw.GetAllStories(ctx)
	if res.Error {
		s.applyFailure(res.Message)
		return
	}

	list := res.Stories
	saved := s.store.SavedIDs(ctx)
	for i := range list {
		if _, ok := saved[list[i].ID]; ok {
			list[i].IsSaved = true
		}
	}
	models.SortByCreatedAtDesc(list)

	s.mu.Lock()
	snap := Snapshot{
		Stories: list,
		Source:  res.Source,
		Message: res.Message,
		Online:  s.online,
	}
	s.snapshot = snap
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Syncer) applyFailure(message string) {
	s.mu.Lock()
	snap := s.snapshot
	snap.Err = true
	snap.Message = message
	snap.Online = s.online
	if !s.cfg.KeepStaleWhenOffline {
		snap.Stories = nil
	}
	s.snapshot = snap
	s.mu.Unlock()
	s.notify(snap)
}

func (s *Syncer) notify(snap Snapshot) {
	s.mu.Lock()
	cbs := make([]func(Snapshot), 0, len(s.listeners))
	for _, cb := range s.listeners {
		cbs = append(cbs, cb)
	}
	s.mu.Unlock()
	for _, cb := range cbs {
		cb(snap)
	}
}

// Snapshot returns the current published state.
func (s *Syncer) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// SaveStory bookmarks a story for offline reading. The photo is downloaded
// and stored as a blob, and the saved copy's PhotoURL is rewritten to the
// blob reference. A failed photo download does not fail the save; the copy
// gets the placeholder reference instead.
func (s *Syncer) SaveStory(ctx context.Context, story models.Story) (string, bool) {
	if existing := s.store.Get(ctx, story.ID); existing != nil {
		return "Story is already saved", true
	}

	saved := story
	saved.PhotoURL = blobs.PlaceholderRef
	if story.PhotoURL != "" {
		data, contentType, err := s.photos.FetchRaw(ctx, story.PhotoURL)
		if err != nil {
			s.log.Warn(ctx, "photo download failed, saving story with placeholder",
				"story_id", story.ID, "err", err)
		} else if err := s.blobs.Put(ctx, &blobs.Blob{
			StoryID:     story.ID,
			ContentType: contentType,
			Data:        data,
		}); err != nil {
			s.log.Warn(ctx, "photo blob store failed, saving story with placeholder",
				"story_id", story.ID, "err", err)
		} else {
			saved.PhotoURL = blobs.Ref(story.ID)
		}
	}

	if !s.store.Put(ctx, &saved) {
		return "Failed to save story", false
	}
	s.markSaved(story.ID, true)
	return "Story saved for offline reading", true
}

// RemoveSavedStory deletes the local bookmark copy and its photo blob.
func (s *Syncer) RemoveSavedStory(ctx context.Context, id string) (string, bool) {
	if err := s.removeFn(ctx, id); err != nil {
		s.log.Warn(ctx, "saved story delete failed", "story_id", id, "err", err)
		return "Failed to delete story from local storage", false
	}
	s.markSaved(id, false)
	return "Story deleted from local storage", true
}

func (s *Syncer) defaultRemove(ctx context.Context, id string) error {
	if res := s.gw.DeleteStory(ctx, id); res.Error {
		return errors.New(res.Message)
	}
	if err := s.blobs.Delete(ctx, id); err != nil {
		s.log.Warn(ctx, "photo blob delete failed", "story_id", id, "err", err)
	}
	return nil
}

func (s *Syncer) markSaved(id string, saved bool) {
	s.mu.Lock()
	snap := s.snapshot
	snap.Stories = append([]models.Story(nil), snap.Stories...)
	for i := range snap.Stories {
		if snap.Stories[i].ID == id {
			snap.Stories[i].IsSaved = saved
		}
	}
	s.snapshot = snap
	s.mu.Unlock()
	s.notify(snap)
}
