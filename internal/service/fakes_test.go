package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/navid-fn/dupe-radar/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ledgerRow struct {
	trade  *models.Trade
	latest bool
}

// memLedger keeps rows in memory and matches them the way the ClickHouse
// repository does.
type memLedger struct {
	mu      sync.Mutex
	rows    []*ledgerRow
	nextID  int
	lookups int
	marks   [][]string
	err     error
}

func (l *memLedger) FindExisting(_ context.Context, t *models.Trade) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lookups++
	if l.err != nil {
		return "", false, l.err
	}
	for _, r := range l.rows {
		if sameListing(r.trade, t) {
			return r.trade.ID, true, nil
		}
	}
	return "", false, nil
}

func sameListing(a, b *models.Trade) bool {
	if a.Modifier != b.Modifier || a.OwnerName != b.OwnerName || a.Cost != b.Cost {
		return false
	}
	if (a.Date == nil) != (b.Date == nil) || (a.Date != nil && !a.Date.Equal(*b.Date)) {
		return false
	}
	if a.ItemID != nil || b.ItemID != nil {
		return a.ItemID != nil && b.ItemID != nil && *a.ItemID == *b.ItemID
	}
	return a.ItemKey() == b.ItemKey()
}

func (l *memLedger) MarkLatest(_ context.Context, keep []string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	l.marks = append(l.marks, keep)
	kept := make(map[string]bool, len(keep))
	for _, id := range keep {
		kept[id] = true
	}
	for _, r := range l.rows {
		r.latest = kept[r.trade.ID]
	}
	return nil
}

func (l *memLedger) InsertTrades(_ context.Context, trades []*models.Trade, latest bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return l.err
	}
	for _, t := range trades {
		if t.ID == "" {
			l.nextID++
			t.ID = fmt.Sprintf("id-%d", l.nextID)
		}
		l.rows = append(l.rows, &ledgerRow{trade: t.Clone(), latest: latest})
	}
	return nil
}

func (l *memLedger) LatestTrades(_ context.Context) ([]*models.Trade, []*models.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return nil, nil, l.err
	}
	var demands, offers []*models.Trade
	for _, r := range l.rows {
		if !r.latest {
			continue
		}
		if r.trade.Kind == models.Demand {
			demands = append(demands, r.trade.Clone())
		} else {
			offers = append(offers, r.trade.Clone())
		}
	}
	return demands, offers, nil
}

func (l *memLedger) latestIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var ids []string
	for _, r := range l.rows {
		if r.latest {
			ids = append(ids, r.trade.ID)
		}
	}
	return ids
}

type memCache struct {
	entries map[string]string
}

func newMemCache() *memCache { return &memCache{entries: make(map[string]string)} }

func (c *memCache) Lookup(key string) (string, bool) {
	id, ok := c.entries[key]
	return id, ok
}

func (c *memCache) Remember(key, id string) { c.entries[key] = id }

// fakeSource returns a fresh copy of its book on every fetch.
type fakeSource struct {
	mu      sync.Mutex
	demands []*models.Trade
	offers  []*models.Trade
	err     error
	panics  bool
	calls   int
}

func (s *fakeSource) Fetch(context.Context) ([]*models.Trade, []*models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.panics {
		panic("market exploded")
	}
	if s.err != nil {
		return nil, nil, s.err
	}
	return models.CloneTrades(s.demands), models.CloneTrades(s.offers), nil
}

func (s *fakeSource) set(demands, offers []*models.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.demands, s.offers, s.err = demands, offers, nil
}

func (s *fakeSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type published struct {
	generation uint64
	dupes      []models.Dupe
}

type fakePublisher struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (p *fakePublisher) PublishDupes(_ context.Context, generation uint64, _ time.Time, dupes []models.Dupe) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{generation: generation, dupes: dupes})
	return p.err
}

var listingDate = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func listing(kind models.Kind, owner, item string, cost, count int64) *models.Trade {
	d := listingDate
	return &models.Trade{
		Date:         &d,
		OwnerName:    owner,
		City:         "Giran",
		ItemBaseName: item,
		Cost:         cost,
		Count:        count,
		Kind:         kind,
	}
}
