package memorystore

import (
	"sync"

	"ammclob/internal/market"
)

// PoolStore holds the current pool listing. A load streams pools into a
// channel; the listing is swapped wholesale when the stream closes so readers
// never see a half-loaded directory.
type PoolStore struct {
	mu    sync.RWMutex
	pools []market.Pool
	loads int
}

func NewPoolStore() *PoolStore {
	return &PoolStore{
		pools: make([]market.Pool, 0),
	}
}

// Replace swaps the listing.
func (s *PoolStore) Replace(pools []market.Pool) {
	cp := make([]market.Pool, len(pools))
	copy(cp, pools)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = cp
	s.loads++
}

// StartWorker drains ch into a pending listing and swaps it in when ch closes.
// An empty stream keeps the previous listing. The returned channel is closed
// after the swap.
func (s *PoolStore) StartWorker(ch <-chan market.Pool) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		var pending []market.Pool
		for pool := range ch {
			pending = append(pending, pool)
		}
		if len(pending) > 0 {
			s.Replace(pending)
		}
	}()
	return done
}

// All returns a copy of the listing.
func (s *PoolStore) All() []market.Pool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]market.Pool, len(s.pools))
	copy(out, s.pools)
	return out
}

// Get returns the pool at a listing index.
func (s *PoolStore) Get(index int) (market.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if index < 0 || index >= len(s.pools) {
		return market.Pool{}, false
	}
	return s.pools[index], true
}

// Find returns the first listed pool trading pair.
func (s *PoolStore) Find(pair market.Pair) (market.Pool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.pools {
		if p.Pair == pair {
			return p, true
		}
	}
	return market.Pool{}, false
}

func (s *PoolStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pools)
}

// Loads returns how many listings have been swapped in.
func (s *PoolStore) Loads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loads
}
