package kafka

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// SeenSet remembers processed event IDs for a bounded time. Redelivered
// catalog events inside the window are skipped.
type SeenSet struct {
	mu      sync.Mutex
	entries map[string]time.Time
	ttl     time.Duration
	now     func() time.Time
}

// NewSeenSet creates a SeenSet whose entries expire after ttl.
func NewSeenSet(ttl time.Duration) *SeenSet {
	return &SeenSet{
		entries: make(map[string]time.Time),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Seen reports whether id was marked within the TTL.
func (s *SeenSet) Seen(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.entries[id]
	if !ok {
		return false
	}
	if s.now().Sub(ts) > s.ttl {
		delete(s.entries, id)
		return false
	}
	return true
}

// Mark records id as processed and drops expired entries.
func (s *SeenSet) Mark(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, ts := range s.entries {
		if now.Sub(ts) > s.ttl {
			delete(s.entries, k)
		}
	}
	s.entries[id] = now
}

// Len returns the number of tracked IDs.
func (s *SeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Deduplicate wraps inner so an event ID is handled at most once per TTL.
// An event is marked only after inner succeeds.
func Deduplicate(seen *SeenSet, inner Handler, logger *slog.Logger) Handler {
	return func(ctx context.Context, event *Event) error {
		if event.EventID == "" {
			return inner(ctx, event)
		}
		if seen.Seen(event.EventID) {
			consumerMessagesDuplicate.Inc()
			logger.DebugContext(ctx, "skipping duplicate event",
				slog.String("event_id", event.EventID),
				slog.String("event_type", event.EventType),
			)
			return nil
		}
		if err := inner(ctx, event); err != nil {
			return err
		}
		seen.Mark(event.EventID)
		return nil
	}
}
