// Package cache remembers which listings already have a ledger row, so a
// refresh does not hit the database for each of them.
package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// SeenCache maps a listing key to its ledger id.
type SeenCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// New creates a cache holding up to maxItems keys for ttl each.
func New(maxItems int64, ttl time.Duration) (*SeenCache, error) {
	if maxItems <= 0 {
		maxItems = 100_000
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		// cost counts entries, not bytes
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	return &SeenCache{c: c, ttl: ttl}, nil
}

// Lookup returns the ledger id recorded for key.
func (s *SeenCache) Lookup(key string) (string, bool) {
	v, ok := s.c.Get(key)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// Remember records the ledger id for key. Writes are applied before it returns.
func (s *SeenCache) Remember(key, id string) {
	s.c.SetWithTTL(key, id, 1, s.ttl)
	s.c.Wait()
}

// Close stops the cache's background goroutines.
func (s *SeenCache) Close() {
	s.c.Close()
}
