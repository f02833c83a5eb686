package cache

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/satriojati/storymap/internal/logging"
)

// Handler is the caching proxy. Requests carry the target URL in the "url"
// query parameter and an optional "kind" classifying the request; the
// handler picks the matching rule and applies its strategy. Unmatched
// requests pass straight through to the network.
type Handler struct {
	rules   []Rule
	store   Store
	client  *http.Client
	log     logging.Logger
	version string

	nowFn func() time.Time

	// revalidations tracks in-flight background refreshes so a hot entry is
	// not refetched once per hit.
	mu            sync.Mutex
	revalidations map[string]struct{}
	wg            sync.WaitGroup
}

func NewHandler(rules []Rule, store Store, version string, client *http.Client, log logging.Logger) *Handler {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{
		rules:         rules,
		store:         store,
		client:        client,
		log:           log,
		version:       version,
		nowFn:         time.Now,
		revalidations: make(map[string]struct{}),
	}
}

// Wait blocks until all background revalidations have settled. Used on
// shutdown and by tests.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) bucketName(rule *Rule) string {
	return h.version + ":" + rule.Bucket
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	target, err := url.Parse(rawURL)
	if err != nil || target.Scheme == "" || target.Host == "" {
		http.Error(w, "missing or invalid url parameter", http.StatusBadRequest)
		return
	}
	kind := Kind(r.URL.Query().Get("kind"))

	rule := Match(h.rules, target, kind)
	if rule == nil {
		h.passThrough(w, r, target)
		return
	}

	switch rule.Strategy {
	case CacheFirst:
		h.cacheFirst(w, r, target, rule)
	case StaleWhileRevalidate:
		h.staleWhileRevalidate(w, r, target, rule)
	default:
		h.networkFirst(w, r, target, rule)
	}
}

func (h *Handler) cacheFirst(w http.ResponseWriter, r *http.Request, target *url.URL, rule *Rule) {
	bucket := h.bucketName(rule)
	if e, err := h.store.Get(r.Context(), bucket, target.String()); err == nil &&
		e.Fresh(rule.MaxAge, h.nowFn()) {
		writeEntry(w, e, "HIT")
		return
	}

	e, err := h.fetch(r.Context(), r, target, rule)
	if err != nil {
		h.log.Warn(r.Context(), "fetch failed", "url", target.String(), "err", err)
		http.Error(w, "upstream unreachable", http.StatusGatewayTimeout)
		return
	}
	h.maybeCache(r.Context(), rule, target, e)
	writeEntry(w, e, "MISS")
}

func (h *Handler) staleWhileRevalidate(w http.ResponseWriter, r *http.Request, target *url.URL, rule *Rule) {
	bucket := h.bucketName(rule)
	if e, err := h.store.Get(r.Context(), bucket, target.String()); err == nil {
		h.revalidate(r, target, rule)
		writeEntry(w, e, "HIT")
		return
	}

	e, err := h.fetch(r.Context(), r, target, rule)
	if err != nil {
		h.log.Warn(r.Context(), "fetch failed", "url", target.String(), "err", err)
		http.Error(w, "upstream unreachable", http.StatusGatewayTimeout)
		return
	}
	h.maybeCache(r.Context(), rule, target, e)
	writeEntry(w, e, "MISS")
}

func (h *Handler) networkFirst(w http.ResponseWriter, r *http.Request, target *url.URL, rule *Rule) {
	e, err := h.fetch(r.Context(), r, target, rule)
	if err == nil {
		h.maybeCache(r.Context(), rule, target, e)
		writeEntry(w, e, "MISS")
		return
	}

	h.log.Info(r.Context(), "network failed, trying cache", "url", target.String(), "err", err)
	if cached, cerr := h.store.Get(r.Context(), h.bucketName(rule), target.String()); cerr == nil &&
		cached.Fresh(rule.MaxAge, h.nowFn()) {
		writeEntry(w, cached, "STALE")
		return
	}
	http.Error(w, "upstream unreachable", http.StatusGatewayTimeout)
}

// revalidate refreshes a cache entry in the background, at most once at a
// time per URL.
func (h *Handler) revalidate(r *http.Request, target *url.URL, rule *Rule) {
	key := h.bucketName(rule) + "|" + target.String()
	h.mu.Lock()
	if _, busy := h.revalidations[key]; busy {
		h.mu.Unlock()
		return
	}
	h.revalidations[key] = struct{}{}
	h.mu.Unlock()

	headers := r.Header.Clone()
	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		defer func() {
			h.mu.Lock()
			delete(h.revalidations, key)
			h.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		e, err := h.doFetch(ctx, headers, target, rule)
		if err != nil {
			h.log.Debug(ctx, "revalidation failed", "url", target.String(), "err", err)
			return
		}
		h.maybeCache(ctx, rule, target, e)
	}()
}

func (h *Handler) fetch(ctx context.Context, r *http.Request, target *url.URL, rule *Rule) (*Entry, error) {
	return h.doFetch(ctx, r.Header, target, rule)
}

func (h *Handler) doFetch(ctx context.Context, headers http.Header, target *url.URL, rule *Rule) (*Entry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range headers {
		if k == "Host" {
			continue
		}
		if rule.OmitCredentials && (k == "Authorization" || k == "Cookie") {
			continue
		}
		req.Header[k] = vs
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upstream body: %w", err)
	}
	return &Entry{
		Status:      resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
		StoredAt:    h.nowFn(),
	}, nil
}

func (h *Handler) maybeCache(ctx context.Context, rule *Rule, target *url.URL, e *Entry) {
	if !rule.CacheableStatus(e.Status) {
		return
	}
	bucket := h.bucketName(rule)
	if err := h.store.Put(ctx, bucket, target.String(), e); err != nil {
		h.log.Warn(ctx, "cache write failed", "url", target.String(), "err", err)
		return
	}
	if err := h.store.Trim(ctx, bucket, rule.MaxEntries); err != nil {
		h.log.Warn(ctx, "cache trim failed", "bucket", bucket, "err", err)
	}
}

func (h *Handler) passThrough(w http.ResponseWriter, r *http.Request, target *url.URL) {
	e, err := h.doFetch(r.Context(), r.Header, target, &Rule{})
	if err != nil {
		http.Error(w, "upstream unreachable", http.StatusGatewayTimeout)
		return
	}
	writeEntry(w, e, "BYPASS")
}

func writeEntry(w http.ResponseWriter, e *Entry, result string) {
	if e.ContentType != "" {
		w.Header().Set("Content-Type", e.ContentType)
	}
	w.Header().Set("X-Cache", result)
	w.WriteHeader(e.Status)
	_, _ = w.Write(e.Body)
}
