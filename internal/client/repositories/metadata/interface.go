// Package metadata is a small key/value area in the local database. The
// client keeps session state (token, user) and the active push subscription
// here, so they survive restarts without a second storage mechanism.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyToken        = "token"
	KeyUser         = "user"
	KeySubscription = "subscription"
	KeyPushKeys     = "push_keys"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
