package notify

import (
	"context"
	"sync"

	"github.com/river-app/river/pkg/protocol"
)

// Feed keeps the most recent notifications in a fixed-size ring.
type Feed struct {
	mu    sync.RWMutex
	items []protocol.Notification
	pos   int
	full  bool
}

// NewFeed creates a Feed holding up to size notifications.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 100
	}
	return &Feed{items: make([]protocol.Notification, size)}
}

// Notify records n, evicting the oldest entry when full.
func (f *Feed) Notify(_ context.Context, n protocol.Notification) error {
	f.mu.Lock()
	f.items[f.pos] = n
	f.pos = (f.pos + 1) % len(f.items)
	if f.pos == 0 {
		f.full = true
	}
	f.mu.Unlock()
	return nil
}

// Recent returns up to limit notifications, newest first. limit <= 0 returns all.
func (f *Feed) Recent(limit int) []protocol.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.pos
	if f.full {
		n = len(f.items)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]protocol.Notification, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (f.pos - 1 - i + len(f.items)) % len(f.items)
		out = append(out, f.items[idx])
	}
	return out
}
