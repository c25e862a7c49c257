package service

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/navid-fn/dupe-radar/internal/dedup"
	"github.com/navid-fn/dupe-radar/internal/matcher"
	"github.com/navid-fn/dupe-radar/internal/models"
)

// Snapshot is one published view of the market. It is never modified after
// NewSnapshot returns; readers share it freely.
type Snapshot struct {
	Generation uint64
	CreatedAt  time.Time

	// Demands and Offers hold the listings as loaded, with full counts.
	Demands []*models.Trade
	Offers  []*models.Trade

	// Dupes is the match set over the whole snapshot.
	Dupes []models.Dupe
}

// NewSnapshot matches demands against offers. The matcher works on copies so
// the stored listings keep their counts.
func NewSnapshot(generation uint64, createdAt time.Time, demands, offers []*models.Trade) *Snapshot {
	return &Snapshot{
		Generation: generation,
		CreatedAt:  createdAt,
		Demands:    demands,
		Offers:     offers,
		Dupes:      matcher.FindDupes(models.CloneTrades(demands), models.CloneTrades(offers)),
	}
}

// Match re-runs matching without the listings whose content hash is in
// ignore. It returns the dupes and the hashes that were actually dropped.
func (s *Snapshot) Match(ignore dedup.HashSet) ([]models.Dupe, []string) {
	if len(ignore) == 0 {
		return s.Dupes, nil
	}

	demands, ignoredDemands := dedup.FilterIgnored(models.CloneTrades(s.Demands), ignore)
	offers, ignoredOffers := dedup.FilterIgnored(models.CloneTrades(s.Offers), ignore)

	return matcher.FindDupes(demands, offers), append(ignoredDemands, ignoredOffers...)
}

// SnapshotStore holds the current snapshot and notifies subscribers of new ones.
type SnapshotStore struct {
	current atomic.Pointer[Snapshot]

	mu     sync.Mutex
	subs   map[int]chan *Snapshot
	nextID int
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{subs: make(map[int]chan *Snapshot)}
}

// Load returns the current snapshot, nil before the first publish.
func (s *SnapshotStore) Load() *Snapshot {
	return s.current.Load()
}

// Publish swaps in snap and hands it to every subscriber. A slow subscriber
// only ever sees the newest snapshot it has not read yet.
func (s *SnapshotStore) Publish(snap *Snapshot) {
	s.current.Store(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}

// Subscribe returns a channel of published snapshots and a cancel func that
// must be called once the caller stops reading.
func (s *SnapshotStore) Subscribe() (<-chan *Snapshot, func()) {
	ch := make(chan *Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}
