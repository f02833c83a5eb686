package push

import (
	"sync"
)

// Notifier displays notifications. Implementations must apply the supersede
// rule: showing a notification closes any visible one with the same tag or,
// when both carry a story id, the same story.
type Notifier interface {
	Show(n Notification)
	Close(tag string)
	Active() []Notification
}

// MemoryNotifier keeps the visible set in memory. It backs the agent's
// delivery log and the tests; a desktop integration would wrap it.
type MemoryNotifier struct {
	mu     sync.Mutex
	active []Notification
}

func NewMemoryNotifier() *MemoryNotifier {
	return &MemoryNotifier{}
}

func (m *MemoryNotifier) Show(n Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.active[:0]
	for _, cur := range m.active {
		if supersedes(n, cur) {
			continue
		}
		kept = append(kept, cur)
	}
	m.active = append(kept, n)
}

func supersedes(incoming, current Notification) bool {
	if current.Tag == incoming.Tag {
		return true
	}
	return current.StoryID != "" && current.StoryID == incoming.StoryID
}

func (m *MemoryNotifier) Close(tag string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.active[:0]
	for _, cur := range m.active {
		if cur.Tag == tag {
			continue
		}
		kept = append(kept, cur)
	}
	m.active = kept
}

// Active returns a copy of the currently visible notifications.
func (m *MemoryNotifier) Active() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.active...)
}
