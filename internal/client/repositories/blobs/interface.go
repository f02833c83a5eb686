// Package blobs caches story photos locally so bookmarked stories render
// offline. A cached photo is addressed by its story id; callers rewrite the
// story's PhotoURL to the blob reference returned by Ref.
package blobs

import (
	"context"
)

// Blob is one cached photo.
type Blob struct {
	StoryID     string
	ContentType string
	Data        []byte
}

// Repository describes storage operations for cached photo blobs.
type Repository interface {
	// Put stores (or replaces) the photo for a story.
	Put(ctx context.Context, b *Blob) error

	// Get returns the cached photo for a story, or common.ErrNotFound.
	Get(ctx context.Context, storyID string) (*Blob, error)

	// Delete removes the cached photo for a story. Absent ids are not an error.
	Delete(ctx context.Context, storyID string) error
}

// Ref returns the local reference stored in a Story's PhotoURL once its
// photo has been cached.
func Ref(storyID string) string {
	return "blob:" + storyID
}

// PlaceholderRef is the reference used when fetching the photo failed and no
// cached copy exists.
const PlaceholderRef = "blob:placeholder"
