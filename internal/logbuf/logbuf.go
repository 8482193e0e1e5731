// Package logbuf keeps recent daemon log records in memory so the API can
// serve them without a log file.
package logbuf

import (
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Entry is a single log entry captured from slog.
type Entry struct {
	Time    time.Time      `json:"time"`
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Attrs   map[string]any `json:"attrs,omitempty"`
}

// Component returns the "component" attribute, if any.
func (e Entry) Component() string {
	c, _ := e.Attrs["component"].(string)
	return c
}

// Filter selects entries from a Buffer. Zero fields match everything except
// MinLevel, whose zero value is slog.LevelInfo.
type Filter struct {
	Since     time.Time
	MinLevel  slog.Level
	Component string // exact match on the "component" attribute
	Contains  string // case-insensitive substring of the message
	Limit     int    // keep only the newest Limit matches
}

// Buffer is a thread-safe ring of log entries.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	pos     int
	count   int
}

// New creates a ring buffer that holds up to size entries.
func New(size int) *Buffer {
	if size <= 0 {
		size = 1000
	}
	return &Buffer{entries: make([]Entry, size)}
}

// Write appends an entry, overwriting the oldest when full.
func (b *Buffer) Write(e Entry) {
	b.mu.Lock()
	b.entries[b.pos] = e
	b.pos = (b.pos + 1) % len(b.entries)
	if b.count < len(b.entries) {
		b.count++
	}
	b.mu.Unlock()
}

// Len returns the number of entries held.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Query returns entries matching f, oldest first.
func (b *Buffer) Query(f Filter) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	contains := strings.ToLower(f.Contains)
	start := (b.pos - b.count + len(b.entries)) % len(b.entries)

	var result []Entry
	for i := 0; i < b.count; i++ {
		e := b.entries[(start+i)%len(b.entries)]
		switch {
		case !f.Since.IsZero() && e.Time.Before(f.Since):
		case ParseLevel(e.Level) < f.MinLevel:
		case f.Component != "" && e.Component() != f.Component:
		case contains != "" && !strings.Contains(strings.ToLower(e.Message), contains):
		default:
			result = append(result, e)
		}
	}

	if f.Limit > 0 && len(result) > f.Limit {
		result = result[len(result)-f.Limit:]
	}
	return result
}

// ParseLevel converts a level name to slog.Level. Unknown names are Info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
