// Package cache implements the agent's response cache: a routing table that
// assigns each outgoing request a named bucket and a strategy, a pluggable
// store, and an HTTP proxy handler that applies the strategies.
package cache

import (
	"net/url"
	"strings"
	"time"
)

// Strategy decides how the proxy combines the network and the cache.
type Strategy int

const (
	// StaleWhileRevalidate serves the cached copy immediately and refreshes
	// it in the background.
	StaleWhileRevalidate Strategy = iota
	// CacheFirst serves the cached copy while it is fresh and only then goes
	// to the network.
	CacheFirst
	// NetworkFirst tries the network and falls back to the cached copy.
	NetworkFirst
)

func (s Strategy) String() string {
	switch s {
	case StaleWhileRevalidate:
		return "stale-while-revalidate"
	case CacheFirst:
		return "cache-first"
	case NetworkFirst:
		return "network-first"
	default:
		return "unknown"
	}
}

// Kind classifies what a request is for, the way a browser tags destinations.
type Kind string

const (
	KindDocument Kind = "document"
	KindScript   Kind = "script"
	KindStyle    Kind = "style"
	KindImage    Kind = "image"
	KindFont     Kind = "font"
	KindAPI      Kind = "api"
)

// Rule is one row of the routing table.
type Rule struct {
	Bucket   string
	Strategy Strategy

	// MaxEntries and MaxAge bound the bucket; zero means unbounded.
	MaxEntries int
	MaxAge     time.Duration

	// Statuses lists the response codes worth caching. Empty means any 2xx.
	Statuses []int

	// OmitCredentials strips cookies and authorization when fetching.
	OmitCredentials bool

	match func(u *url.URL, kind Kind) bool
}

// Matches reports whether the rule covers the request.
func (r *Rule) Matches(u *url.URL, kind Kind) bool {
	return r.match(u, kind)
}

// CacheableStatus reports whether a response code may enter the bucket.
func (r *Rule) CacheableStatus(status int) bool {
	if len(r.Statuses) == 0 {
		return status >= 200 && status <= 299
	}
	for _, s := range r.Statuses {
		if s == status {
			return true
		}
	}
	return false
}

const day = 24 * time.Hour

// Routes builds the routing table. apiOrigin is the backend API origin; API
// and navigation requests are network-first so fresh data wins whenever the
// network is there, while static assets lean on the cache.
func Routes(apiOrigin string) []Rule {
	return []Rule{
		{
			Bucket:   "google-fonts-stylesheets",
			Strategy: StaleWhileRevalidate,
			match: func(u *url.URL, _ Kind) bool {
				return origin(u) == "https://fonts.googleapis.com"
			},
		},
		{
			Bucket:     "google-fonts-webfonts",
			Strategy:   CacheFirst,
			MaxAge:     365 * day,
			MaxEntries: 30,
			match: func(u *url.URL, _ Kind) bool {
				return origin(u) == "https://fonts.gstatic.com"
			},
		},
		{
			Bucket:   "static-resources",
			Strategy: StaleWhileRevalidate,
			match: func(_ *url.URL, kind Kind) bool {
				return kind == KindScript || kind == KindStyle
			},
		},
		{
			Bucket:     "images",
			Strategy:   CacheFirst,
			MaxEntries: 60,
			MaxAge:     30 * day,
			match: func(_ *url.URL, kind Kind) bool {
				return kind == KindImage
			},
		},
		{
			Bucket:          "leaflet-resources",
			Strategy:        StaleWhileRevalidate,
			OmitCredentials: true,
			match: func(u *url.URL, _ Kind) bool {
				return origin(u) == "https://unpkg.com" && strings.Contains(u.Path, "leaflet")
			},
		},
		{
			Bucket:     "api-responses",
			Strategy:   NetworkFirst,
			MaxEntries: 100,
			MaxAge:     30 * day,
			match: func(u *url.URL, _ Kind) bool {
				return origin(u) == apiOrigin
			},
		},
		{
			Bucket:   "pages",
			Strategy: NetworkFirst,
			Statuses: []int{200},
			match: func(_ *url.URL, kind Kind) bool {
				return kind == KindDocument
			},
		},
	}
}

// Match returns the first rule covering the request, or nil.
func Match(rules []Rule, u *url.URL, kind Kind) *Rule {
	for i := range rules {
		if rules[i].Matches(u, kind) {
			return &rules[i]
		}
	}
	return nil
}

func origin(u *url.URL) string {
	return u.Scheme + "://" + u.Host
}
