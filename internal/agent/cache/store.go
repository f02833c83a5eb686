package cache

import (
	"context"
	"time"
)

// Entry is one cached response.
type Entry struct {
	Status      int
	ContentType string
	Body        []byte
	StoredAt    time.Time
}

// Fresh reports whether the entry is still within maxAge. A zero maxAge
// never expires.
func (e *Entry) Fresh(maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return true
	}
	return now.Sub(e.StoredAt) < maxAge
}

// Store persists cached responses grouped into named buckets. The agent
// prefixes bucket names with the active cache version; DropBucket based
// cleanup removes whole stale generations at activation.
type Store interface {
	Get(ctx context.Context, bucket, key string) (*Entry, error)
	Put(ctx context.Context, bucket, key string, e *Entry) error
	Delete(ctx context.Context, bucket, key string) error
	// Trim evicts the oldest entries beyond maxEntries. Zero disables.
	Trim(ctx context.Context, bucket string, maxEntries int) error
	// Buckets lists every bucket that currently holds entries.
	Buckets(ctx context.Context) ([]string, error)
	DropBucket(ctx context.Context, bucket string) error
}
