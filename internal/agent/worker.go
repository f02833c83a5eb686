package agent

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/satriojati/storymap/internal/agent/cache"
	"github.com/satriojati/storymap/internal/logging"
	"github.com/satriojati/storymap/internal/push"
)

// Message is a control message from the client.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Control message types.
const (
	MsgSkipWaiting      = "SKIP_WAITING"
	MsgPushNotification = push.MsgTypePushNotification
)

// KeySource loads the push key material the client generated at subscribe
// time. Returning nil keys means no subscription is active.
type KeySource interface {
	Load(ctx context.Context) (*push.Keys, error)
}

// Worker is the agent's event loop. It owns the notification pipeline
// (payload -> decrypt -> normalize -> show) and the cache generation
// lifecycle: a freshly started worker waits until Activate, which drops
// every cache bucket from older generations.
type Worker struct {
	store    cache.Store
	notifier push.Notifier
	keys     KeySource
	log      logging.Logger

	version   string
	appOrigin string

	inbox    chan Message
	payloads chan []byte

	mu     sync.Mutex
	active bool

	nowFn func() time.Time
}

func NewWorker(store cache.Store, notifier push.Notifier, keys KeySource,
	version, appOrigin string, log logging.Logger) *Worker {
	if log == nil {
		log = logging.Nop()
	}
	return &Worker{
		store:     store,
		notifier:  notifier,
		keys:      keys,
		log:       log,
		version:   version,
		appOrigin: appOrigin,
		inbox:     make(chan Message, 16),
		payloads:  make(chan []byte, 16),
		nowFn:     time.Now,
	}
}

// Post queues a control message from the client. It never blocks; when the
// inbox is full the message is dropped, matching the fire-and-forget nature
// of the channel.
func (w *Worker) Post(m Message) {
	select {
	case w.inbox <- m:
	default:
		w.log.Warn(context.Background(), "inbox full, dropping message", "type", m.Type)
	}
}

// Deliver queues an incoming push payload.
func (w *Worker) Deliver(raw []byte) {
	select {
	case w.payloads <- raw:
	default:
		w.log.Warn(context.Background(), "payload queue full, dropping push message")
	}
}

// Active reports whether this worker generation owns the cache.
func (w *Worker) Active() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Activate claims the cache: every bucket belonging to another generation is
// dropped. Activating twice is harmless.
func (w *Worker) Activate(ctx context.Context) {
	w.mu.Lock()
	if w.active {
		w.mu.Unlock()
		return
	}
	w.active = true
	w.mu.Unlock()

	buckets, err := w.store.Buckets(ctx)
	if err != nil {
		w.log.Warn(ctx, "bucket listing failed, skipping cleanup", "err", err)
		return
	}
	prefix := w.version + ":"
	for _, b := range buckets {
		if strings.HasPrefix(b, prefix) {
			continue
		}
		if err := w.store.DropBucket(ctx, b); err != nil {
			w.log.Warn(ctx, "failed to drop stale bucket", "bucket", b, "err", err)
			continue
		}
		w.log.Info(ctx, "dropped stale cache bucket", "bucket", b)
	}
}

// Run processes control messages and push payloads until ctx is done.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case m := <-w.inbox:
			w.handleMessage(ctx, m)
		case raw := <-w.payloads:
			w.handlePayload(ctx, raw)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, m Message) {
	switch m.Type {
	case MsgSkipWaiting:
		w.log.Info(ctx, "skip waiting requested")
		w.Activate(ctx)

	case MsgPushNotification:
		// The client asked to display a notification locally. Re-wrap the
		// message so normalization applies the client-envelope rules.
		raw, err := json.Marshal(m)
		if err != nil {
			w.log.Warn(ctx, "failed to encode display request", "err", err)
			return
		}
		w.show(ctx, push.Normalize(raw, w.appOrigin, w.nowFn()))

	default:
		w.log.Debug(ctx, "ignoring unknown message", "type", m.Type)
	}
}

// handlePayload turns one wire payload into a shown notification. Decryption
// failures fall through to normalizing the raw bytes, which yields the
// generic fallback notification rather than silence.
func (w *Worker) handlePayload(ctx context.Context, raw []byte) {
	plain := raw
	keys, err := w.keys.Load(ctx)
	if err != nil {
		w.log.Warn(ctx, "failed to load push keys", "err", err)
	} else if keys != nil {
		if dec, err := keys.Decrypt(raw); err == nil {
			plain = dec
		} else {
			w.log.Warn(ctx, "payload decryption failed", "err", err)
		}
	}

	w.show(ctx, push.Normalize(plain, w.appOrigin, w.nowFn()))
}

func (w *Worker) show(ctx context.Context, n push.Notification) {
	w.notifier.Show(n)
	w.log.Info(ctx, "notification shown",
		"title", n.Title, "tag", n.Tag, "story_id", n.StoryID, "source", n.Source)
}
