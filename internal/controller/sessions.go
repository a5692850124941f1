package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTooManySessions is returned by Create when the registry is full.
var ErrTooManySessions = errors.New("too many query sessions")

// Sessions is an in-memory registry of views keyed by session ID. Views idle
// for longer than the TTL are closed by Sweep.
type Sessions struct {
	newView func() *View
	ttl     time.Duration
	max     int
	logger  *slog.Logger

	mu    sync.Mutex
	views map[string]*View
}

// NewSessions creates a registry. limit caps the number of live sessions;
// 0 means no cap.
func NewSessions(newView func() *View, ttl time.Duration, limit int, logger *slog.Logger) *Sessions {
	return &Sessions{
		newView: newView,
		ttl:     ttl,
		max:     limit,
		logger:  logger,
		views:   make(map[string]*View),
	}
}

// Create opens a new session with a default query.
func (s *Sessions) Create() (string, *View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.max > 0 && len(s.views) >= s.max {
		return "", nil, ErrTooManySessions
	}

	id := uuid.New().String()
	v := s.newView()
	s.views[id] = v
	activeSessions.Set(float64(len(s.views)))
	return id, v, nil
}

// Get returns the view of a live session.
func (s *Sessions) Get(id string) (*View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.views[id]
	return v, ok
}

// Delete closes and removes a session. It reports whether it existed.
func (s *Sessions) Delete(id string) bool {
	s.mu.Lock()
	v, ok := s.views[id]
	delete(s.views, id)
	activeSessions.Set(float64(len(s.views)))
	s.mu.Unlock()

	if ok {
		v.Close()
	}
	return ok
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.views)
}

// Sweep closes sessions idle since before now minus the TTL and returns
// how many were removed.
func (s *Sessions) Sweep(now time.Time) int {
	cutoff := now.Add(-s.ttl)

	s.mu.Lock()
	var expired []*View
	for id, v := range s.views {
		if v.idleSince().Before(cutoff) {
			expired = append(expired, v)
			delete(s.views, id)
		}
	}
	activeSessions.Set(float64(len(s.views)))
	s.mu.Unlock()

	for _, v := range expired {
		v.Close()
	}
	if len(expired) > 0 {
		s.logger.Debug("expired idle query sessions", slog.Int("count", len(expired)))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then closes every session.
func (s *Sessions) Run(ctx context.Context) {
	interval := s.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.closeAll()
			return
		case now := <-ticker.C:
			s.Sweep(now)
		}
	}
}

func (s *Sessions) closeAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*View)
	activeSessions.Set(0)
	s.mu.Unlock()

	for _, v := range views {
		v.Close()
	}
}
