package catalog

import (
	"sync"
	"sync/atomic"

	"github.com/DylanCerv/sublimacion/internal/domain"
)

// Store holds the current snapshot. Readers always see a whole snapshot;
// Publish replaces it with a single atomic swap.
type Store struct {
	current atomic.Pointer[Snapshot]
	version atomic.Uint64

	mu          sync.Mutex
	subscribers map[chan *Snapshot]struct{}
}

// NewStore creates an empty store. Current returns nil until the first Publish.
func NewStore() *Store {
	return &Store{subscribers: make(map[chan *Snapshot]struct{})}
}

// Current returns the published snapshot, or nil if none was published yet.
func (s *Store) Current() *Snapshot {
	return s.current.Load()
}

// Products returns the current products, or nil when nothing is published.
func (s *Store) Products() []domain.Product {
	snap := s.Current()
	if snap == nil {
		return nil
	}
	return snap.Products()
}

// Publish assigns snap the next version, makes it current and notifies
// subscribers. A snapshot must not be published twice.
func (s *Store) Publish(snap *Snapshot) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.version = s.version.Add(1)
	s.current.Store(snap)
	snapshotVersion.Set(float64(snap.version))

	for ch := range s.subscribers {
		notify(ch, snap)
	}
	return snap.version
}

// Subscribe returns a channel that receives each newly published snapshot.
// Slow subscribers only see the latest one. Call cancel to unsubscribe.
func (s *Store) Subscribe() (updates <-chan *Snapshot, cancel func()) {
	ch := make(chan *Snapshot, 1)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, ch)
			s.mu.Unlock()
		})
	}
}

// notify replaces any unread snapshot in ch with snap. Callers hold s.mu,
// so ch has a single sender.
func notify(ch chan *Snapshot, snap *Snapshot) {
	select {
	case <-ch:
	default:
	}
	ch <- snap
}
