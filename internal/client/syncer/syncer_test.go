package syncer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriojati/storymap/internal/client/api"
	"github.com/satriojati/storymap/internal/client/config"
	"github.com/satriojati/storymap/internal/client/gateway"
	"github.com/satriojati/storymap/internal/client/models"
	"github.com/satriojati/storymap/internal/client/repositories/blobs"
	"github.com/satriojati/storymap/internal/client/repositories/stories"
	"github.com/satriojati/storymap/internal/events"
	"github.com/satriojati/storymap/internal/netmon"

	_ "modernc.org/sqlite"
)

type staticTokens struct{}

func (staticTokens) Token() string { return "tok" }

type fakeNet struct {
	mu     sync.Mutex
	online bool
	cbs    []netmon.Callback
}

func (f *fakeNet) Register(cb netmon.Callback) func() {
	f.mu.Lock()
	f.cbs = append(f.cbs, cb)
	online := f.online
	f.mu.Unlock()
	cb(online)
	return func() {}
}

func (f *fakeNet) IsOnline() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeNet) flip(online bool) {
	f.mu.Lock()
	f.online = online
	cbs := append([]netmon.Callback(nil), f.cbs...)
	f.mu.Unlock()
	for _, cb := range cbs {
		cb(online)
	}
}

type fakePhotos struct {
	data []byte
	err  error
}

func (f *fakePhotos) FetchRaw(ctx context.Context, url string) ([]byte, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	return f.data, "image/jpeg", nil
}

type fixture struct {
	syncer *Syncer
	net    *fakeNet
	store  *stories.Store
	blobs  blobs.Repository
	photos *fakePhotos
	cfg    *config.Config
}

func listBody(ids ...string) []byte {
	items := make([]map[string]any, 0, len(ids))
	for i, id := range ids {
		items = append(items, map[string]any{
			"id":          id,
			"name":        "Author",
			"description": "d",
			"photoUrl":    "https://cdn.example.com/" + id + ".jpg",
			"createdAt":   time.Date(2025, 5, 1, 10, i, 0, 0, time.UTC).Format(time.RFC3339),
		})
	}
	raw, _ := json.Marshal(map[string]any{"error": false, "listStory": items})
	return raw
}

func newFixture(t *testing.T, handler http.Handler) *fixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = db.Exec(`
CREATE TABLE stories (
  id TEXT PRIMARY KEY, name TEXT NOT NULL, description TEXT NOT NULL,
  photo_url TEXT NOT NULL, lat REAL, lon REAL,
  created_at TEXT NOT NULL, user_id TEXT NOT NULL DEFAULT ''
);
CREATE TABLE blobs (
  story_id TEXT PRIMARY KEY, content_type TEXT NOT NULL,
  data BLOB NOT NULL, created_at TEXT NOT NULL
);`)
	require.NoError(t, err)

	store := stories.NewStore(stories.NewSQLiteRepository(db), nil)
	blobRepo := blobs.NewSQLiteRepository(db)
	bus := events.NewBus()
	apiClient := api.New(srv.URL, staticTokens{}, nil)
	gw := gateway.New(apiClient, store, bus, nil)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.RefreshInterval = 25 * time.Millisecond

	net := &fakeNet{online: true}
	photos := &fakePhotos{data: []byte{0xFF, 0xD8}}
	return &fixture{
		syncer: New(gw, store, blobRepo, photos, net, bus, cfg, nil),
		net:    net,
		store:  store,
		blobs:  blobRepo,
		photos: photos,
		cfg:    cfg,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestStart_InitialFetchSortedAndReconciled(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("old", "new"))
	}))
	require.True(t, f.store.Put(context.Background(), &models.Story{
		ID: "old", CreatedAt: time.Now(),
	}))

	f.syncer.Start(context.Background())
	defer f.syncer.Stop()

	waitFor(t, func() bool { return len(f.syncer.Current().Stories) == 2 })
	snap := f.syncer.Current()
	assert.Equal(t, "new", snap.Stories[0].ID, "newest first")
	assert.Equal(t, "old", snap.Stories[1].ID)
	assert.True(t, snap.Stories[1].IsSaved, "locally bookmarked stories must be flagged")
	assert.False(t, snap.Stories[0].IsSaved)
	assert.Equal(t, gateway.SourceRemote, snap.Source)
}

func TestRefresh_OverlappingCallIsDropped(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		<-release
		_, _ = w.Write(listBody("s1"))
	}))

	done := make(chan struct{})
	go func() {
		f.syncer.Refresh(context.Background())
		close(done)
	}()
	waitFor(t, func() bool { return calls.Load() == 1 })

	f.syncer.Refresh(context.Background()) // must return immediately, not queue
	close(release)
	<-done

	assert.Equal(t, int32(1), calls.Load())
}

func TestOfflineFlip_ClearsListByDefault(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))

	f.syncer.Start(context.Background())
	defer f.syncer.Stop()
	waitFor(t, func() bool { return len(f.syncer.Current().Stories) == 1 })

	f.net.flip(false)

	snap := f.syncer.Current()
	assert.Empty(t, snap.Stories)
	assert.False(t, snap.Online)
	assert.Equal(t, "You are offline", snap.Message)
}

func TestOfflineFlip_KeepsListWhenConfigured(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))
	f.cfg.KeepStaleWhenOffline = true

	f.syncer.Start(context.Background())
	defer f.syncer.Stop()
	waitFor(t, func() bool { return len(f.syncer.Current().Stories) == 1 })

	f.net.flip(false)

	assert.Len(t, f.syncer.Current().Stories, 1)
}

func TestOnlineFlip_TriggersRefresh(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(listBody("s1"))
	}))
	f.net.online = false
	f.cfg.KeepStaleWhenOffline = true

	f.syncer.Start(context.Background())
	defer f.syncer.Stop()

	before := calls.Load()
	f.net.flip(true)
	waitFor(t, func() bool { return calls.Load() > before })
}

func TestStoryAdded_OptimisticPrependThenRefetch(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(listBody("s1"))
	}))

	f.syncer.Start(context.Background())
	waitFor(t, func() bool { return len(f.syncer.Current().Stories) == 1 })

	var snaps []Snapshot
	var mu sync.Mutex
	unsub := f.syncer.Subscribe(func(s Snapshot) {
		mu.Lock()
		snaps = append(snaps, s)
		mu.Unlock()
	})
	defer unsub()

	before := calls.Load()
	f.syncer.onStoryAdded(context.Background(), models.Story{ID: "fresh", CreatedAt: time.Now()})

	mu.Lock()
	require.GreaterOrEqual(t, len(snaps), 2) // replay + optimistic prepend
	optimistic := snaps[1]
	mu.Unlock()
	assert.Equal(t, "fresh", optimistic.Stories[0].ID)

	waitFor(t, func() bool { return calls.Load() > before })
	f.syncer.Stop()
}

func TestTicker_GatedOnVisibility(t *testing.T) {
	var calls atomic.Int32
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write(listBody("s1"))
	}))

	f.syncer.Start(context.Background())
	defer f.syncer.Stop()
	waitFor(t, func() bool { return calls.Load() >= 1 })

	f.syncer.SetVisible(context.Background(), false)
	settled := calls.Load()
	time.Sleep(5 * f.cfg.RefreshInterval)
	assert.LessOrEqual(t, calls.Load(), settled+1, "ticker must not refresh while hidden")

	f.syncer.SetVisible(context.Background(), true)
	waitFor(t, func() bool { return calls.Load() > settled })
}

func TestSaveStory_DownloadsPhotoAndRewritesURL(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))

	story := models.Story{
		ID: "s1", Name: "Author", Description: "d",
		PhotoURL:  "https://cdn.example.com/s1.jpg",
		CreatedAt: time.Now(),
	}
	msg, ok := f.syncer.SaveStory(context.Background(), story)
	require.True(t, ok, msg)

	saved := f.store.Get(context.Background(), "s1")
	require.NotNil(t, saved)
	assert.Equal(t, blobs.Ref("s1"), saved.PhotoURL)

	blob, err := f.blobs.Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xD8}, blob.Data)

	// saving again is a no-op
	msg, ok = f.syncer.SaveStory(context.Background(), story)
	assert.True(t, ok)
	assert.Equal(t, "Story is already saved", msg)
}

func TestSaveStory_PhotoFailureFallsBackToPlaceholder(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))
	f.photos.err = errors.New("cdn unreachable")

	_, ok := f.syncer.SaveStory(context.Background(), models.Story{
		ID: "s1", PhotoURL: "https://cdn.example.com/s1.jpg", CreatedAt: time.Now(),
	})
	require.True(t, ok, "photo failure must not fail the save")

	saved := f.store.Get(context.Background(), "s1")
	require.NotNil(t, saved)
	assert.Equal(t, blobs.PlaceholderRef, saved.PhotoURL)
}

func TestRemoveSavedStory_DeletesCopyAndBlob(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))

	_, ok := f.syncer.SaveStory(context.Background(), models.Story{
		ID: "s1", PhotoURL: "https://cdn.example.com/s1.jpg", CreatedAt: time.Now(),
	})
	require.True(t, ok)

	_, ok = f.syncer.RemoveSavedStory(context.Background(), "s1")
	require.True(t, ok)

	assert.Nil(t, f.store.Get(context.Background(), "s1"))
	_, err := f.blobs.Get(context.Background(), "s1")
	assert.Error(t, err)
}

func TestRemoveSavedStory_UsesInjectedRemover(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))

	var removed []string
	f.syncer.UseRemover(func(ctx context.Context, id string) error {
		removed = append(removed, id)
		return nil
	})

	msg, ok := f.syncer.RemoveSavedStory(context.Background(), "s1")
	require.True(t, ok)
	assert.Equal(t, "Story deleted from local storage", msg)
	assert.Equal(t, []string{"s1"}, removed)
}

func TestRemoveSavedStory_RemoverFailureKeepsStorySaved(t *testing.T) {
	f := newFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(listBody("s1"))
	}))

	_, ok := f.syncer.SaveStory(context.Background(), models.Story{
		ID: "s1", PhotoURL: "https://cdn.example.com/s1.jpg", CreatedAt: time.Now(),
	})
	require.True(t, ok)

	f.syncer.UseRemover(func(ctx context.Context, id string) error {
		return errors.New("locked")
	})

	msg, ok := f.syncer.RemoveSavedStory(context.Background(), "s1")
	require.False(t, ok)
	assert.Equal(t, "Failed to delete story from local storage", msg)
	assert.NotNil(t, f.store.Get(context.Background(), "s1"))
}
