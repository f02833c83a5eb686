package agent

import (
	"context"

	"github.com/satriojati/storymap/internal/client/repositories/metadata"
	"github.com/satriojati/storymap/internal/push"
)

// MetadataKeySource reads the push key material the client persisted when
// the user subscribed. The agent opens the client database read-only for
// this single key.
type MetadataKeySource struct {
	meta metadata.Repository
}

func NewMetadataKeySource(meta metadata.Repository) *MetadataKeySource {
	return &MetadataKeySource{meta: meta}
}

func (s *MetadataKeySource) Load(ctx context.Context) (*push.Keys, error) {
	raw, err := s.meta.Get(ctx, metadata.KeyPushKeys)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, nil
	}
	return push.ImportKeys(raw)
}
