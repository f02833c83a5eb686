// Package events is a small in-process observer registry with typed
// payloads. It replaces the ambient DOM-style event channel: components that
// need to react to a new story subscribe here instead of polling the gateway.
package events

import (
	"sync"

	"github.com/satriojati/storymap/internal/client/models"
)

// Bus fans out application events to subscribers. Callbacks run synchronously
// on the publishing goroutine, in subscription order. A panicking subscriber
// does not prevent the remaining subscribers from running.
type Bus struct {
	mu         sync.Mutex
	nextID     int
	storyAdded map[int]func(models.Story)
	order      []int
}

func NewBus() *Bus {
	return &Bus{storyAdded: make(map[int]func(models.Story))}
}

// SubscribeStoryAdded registers cb for story-added events and returns an
// unsubscribe function. Unsubscribing twice is harmless.
func (b *Bus) SubscribeStoryAdded(cb func(models.Story)) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	b.storyAdded[id] = cb
	b.order = append(b.order, id)

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.storyAdded, id)
	}
}

// PublishStoryAdded notifies every subscriber about a newly created story.
func (b *Bus) PublishStoryAdded(story models.Story) {
	b.mu.Lock()
	cbs := make([]func(models.Story), 0, len(b.storyAdded))
	for _, id := range b.order {
		if cb, ok := b.storyAdded[id]; ok {
			cbs = append(cbs, cb)
		}
	}
	b.mu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() { _ = recover() }()
			cb(story)
		}()
	}
}
