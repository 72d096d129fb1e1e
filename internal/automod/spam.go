package automod

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/modbot/internal/domain"
)

type windowEntry struct {
	at        time.Time
	messageID string
	channelID string
}

// SpamFilter counts recent messages per author in a sliding window. The
// window is private to the filter and lost on restart.
type SpamFilter struct {
	window time.Duration
	limit  int

	mu        sync.Mutex
	authors   map[string][]windowEntry
	lastSweep time.Time
}

// NewSpamFilter creates a filter that triggers once an author posts limit
// messages within window.
func NewSpamFilter(window time.Duration, limit int) *SpamFilter {
	return &SpamFilter{
		window:  window,
		limit:   limit,
		authors: make(map[string][]windowEntry),
	}
}

func (f *SpamFilter) Name() string { return FilterSpam }

func (f *SpamFilter) Inspect(_ context.Context, msg domain.Message) *Finding {
	at := msg.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	cutoff := at.Add(-f.window)

	f.mu.Lock()
	defer f.mu.Unlock()

	f.sweep(at, cutoff)

	kept := prune(f.authors[msg.AuthorID], cutoff)
	kept = append(kept, windowEntry{at: at, messageID: msg.ID, channelID: msg.ChannelID})
	if len(kept) < f.limit {
		f.authors[msg.AuthorID] = kept
		return nil
	}

	delete(f.authors, msg.AuthorID)
	byChannel := make(map[string][]string)
	for _, e := range kept {
		byChannel[e.channelID] = append(byChannel[e.channelID], e.messageID)
	}
	return &Finding{Filter: FilterSpam, Reason: "Spam detected", Messages: byChannel}
}

// Tracked reports how many messages are in the author's window.
func (f *SpamFilter) Tracked(authorID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.authors[authorID])
}

// sweep drops idle authors at most once per window.
func (f *SpamFilter) sweep(now, cutoff time.Time) {
	if now.Sub(f.lastSweep) < f.window {
		return
	}
	f.lastSweep = now
	for id, entries := range f.authors {
		if kept := prune(entries, cutoff); len(kept) == 0 {
			delete(f.authors, id)
		} else {
			f.authors[id] = kept
		}
	}
}

// prune keeps entries newer than cutoff. Gateway events are handled
// concurrently, so entries are not necessarily in timestamp order.
func prune(entries []windowEntry, cutoff time.Time) []windowEntry {
	kept := entries[:0]
	for _, e := range entries {
		if e.at.After(cutoff) {
			kept = append(kept, e)
		}
	}
	return kept
}
