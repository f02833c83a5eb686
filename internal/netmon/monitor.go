// Package netmon decides whether the app can currently reach the backend.
// It reconciles three independent signals: the OS link state, a lightweight
// external-reachability probe, and an authenticated backend probe, and fans
// out status flips to registered callbacks.
package netmon

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/satriojati/storymap/internal/logging"
)

// LinkReporter exposes the platform's own online/offline flag. It is the
// cheapest and least reliable of the three signals: "link up" does not imply
// the backend is reachable, but "link down" is authoritative.
type LinkReporter interface {
	Online() bool
}

// AlwaysUp is the default LinkReporter for platforms without a link signal.
type AlwaysUp struct{}

func (AlwaysUp) Online() bool { return true }

// TokenSource yields the current session token, or "" when logged out.
type TokenSource interface {
	Token() string
}

// Callback receives the new online status on every flip.
type Callback func(online bool)

// Options configures a Monitor.
type Options struct {
	// ProbeURL is an external cache-busting resource (reachability check).
	ProbeURL string
	// APIBaseURL is the backend root; the authenticated probe requests
	// APIBaseURL+"/stories?size=1".
	APIBaseURL string
	// ProbeTimeout bounds each probe request. Defaults to 5s.
	ProbeTimeout time.Duration
	// CheckInterval is the periodic re-check cadence. Defaults to 30s.
	CheckInterval time.Duration

	Link   LinkReporter
	Tokens TokenSource
	Client *http.Client
	Logger logging.Logger
}

// Monitor is the single source of truth for "is the app online". Status
// flips are idempotent; callbacks fire synchronously in registration order
// and are insulated from each other's panics.
type Monitor struct {
	opts Options
	log  logging.Logger

	mu        sync.Mutex
	online    bool
	checking  bool
	nextID    int
	order     []int
	callbacks map[int]Callback
}

func New(opts Options) *Monitor {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = 5 * time.Second
	}
	if opts.CheckInterval <= 0 {
		opts.CheckInterval = 30 * time.Second
	}
	if opts.Link == nil {
		opts.Link = AlwaysUp{}
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	log := opts.Logger
	if log == nil {
		log = logging.Nop()
	}
	return &Monitor{
		opts:      opts,
		log:       log,
		online:    opts.Link.Online(),
		callbacks: make(map[int]Callback),
	}
}

// IsOnline returns the last decided status.
func (m *Monitor) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Register adds cb, immediately replays the current status to it, and
// returns an unsubscribe function.
func (m *Monitor) Register(cb Callback) (unregister func()) {
	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.callbacks[id] = cb
	m.order = append(m.order, id)
	current := m.online
	m.mu.Unlock()

	invoke(cb, current)

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.callbacks, id)
	}
}

// Start runs the initial check and then re-checks every CheckInterval until
// ctx is cancelled. Event-driven triggers (e.g. an OS link-change signal)
// should call CheckConnection directly.
func (m *Monitor) Start(ctx context.Context) {
	m.CheckConnection(ctx)

	ticker := time.NewTicker(m.opts.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.CheckConnection(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// CheckConnection runs one full connectivity decision. If a check is already
// in flight the call is dropped, not queued.
func (m *Monitor) CheckConnection(ctx context.Context) {
	m.mu.Lock()
	if m.checking {
		m.mu.Unlock()
		return
	}
	m.checking = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.checking = false
		m.mu.Unlock()
	}()

	// Link down is authoritative.
	if !m.opts.Link.Online() {
		m.updateStatus(false)
		return
	}

	// External reachability: any response counts, status code is irrelevant.
	if err := m.probe(ctx, m.opts.ProbeURL, ""); err != nil {
		m.log.Debug(ctx, "external probe failed", "err", err)
		m.updateStatus(false)
		return
	}

	// Without a token we cannot (and need not) probe the API: reachable but
	// unauthenticated still counts as online.
	var token string
	if m.opts.Tokens != nil {
		token = m.opts.Tokens.Token()
	}
	if token == "" {
		m.updateStatus(true)
		return
	}

	if err := m.probe(ctx, m.opts.APIBaseURL+"/stories?size=1", token); err != nil {
		if _, ok := err.(*probeStatusError); ok {
			// The backend answered with a failure status: offline for our purposes.
			m.updateStatus(false)
			return
		}
		// Transient transport error on the API probe only; trust the link
		// flag instead of forcing a false negative.
		m.log.Debug(ctx, "api probe errored, falling back to link state", "err", err)
		m.updateStatus(m.opts.Link.Online())
		return
	}
	m.updateStatus(true)
}

type probeStatusError struct {
	status int
}

func (e *probeStatusError) Error() string { return http.StatusText(e.status) }

func (m *Monitor) probe(ctx context.Context, url, token string) error {
	ctx, cancel := context.WithTimeout(ctx, m.opts.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Cache-Control", "no-store")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := m.opts.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if token != "" && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return &probeStatusError{status: resp.StatusCode}
	}
	return nil
}

// updateStatus records the new status and, only when it changed, notifies
// every callback in registration order.
func (m *Monitor) updateStatus(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	cbs := make([]Callback, 0, len(m.callbacks))
	for _, id := range m.order {
		if cb, ok := m.callbacks[id]; ok {
			cbs = append(cbs, cb)
		}
	}
	m.mu.Unlock()

	m.log.Info(context.Background(), "network status changed", "online", online)
	for _, cb := range cbs {
		invoke(cb, online)
	}
}

// invoke shields the monitor from a misbehaving callback.
func invoke(cb Callback, online bool) {
	defer func() { _ = recover() }()
	cb(online)
}
