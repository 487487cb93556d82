// Package activity keeps a bounded in-memory feed of recent server events.
package activity

import (
	"sync"
	"time"
)

// Entry is one recorded event.
type Entry struct {
	At      time.Time
	Kind    string
	Message string
}

// Feed is a fixed-size ring of entries. Once full, new entries
// overwrite the oldest.
type Feed struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	count   int
}

// NewFeed returns a feed holding at most size entries.
func NewFeed(size int) *Feed {
	if size <= 0 {
		size = 200
	}
	return &Feed{entries: make([]Entry, size)}
}

// Record appends an event to the feed.
func (f *Feed) Record(kind, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.entries[f.next] = Entry{At: time.Now().UTC(), Kind: kind, Message: message}
	f.next = (f.next + 1) % len(f.entries)
	if f.count < len(f.entries) {
		f.count++
	}
}

// Tail returns up to n most recent entries, oldest first.
func (f *Feed) Tail(n int) []Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if n <= 0 || f.count == 0 {
		return nil
	}

	if n > f.count {
		n = f.count
	}

	start := (f.next - n + len(f.entries)) % len(f.entries)
	out := make([]Entry, n)
	for i := 0; i < n; i++ {
		out[i] = f.entries[(start+i)%len(f.entries)]
	}

	return out
}
