// Package service ties the scraper, the ledger and the matcher together.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/navid-fn/dupe-radar/internal/models"
)

// Ledger is the persisted trade history the recorder and refresher work on.
type Ledger interface {
	FindExisting(ctx context.Context, trade *models.Trade) (string, bool, error)
	MarkLatest(ctx context.Context, keep []string) error
	InsertTrades(ctx context.Context, trades []*models.Trade, latest bool) error
	LatestTrades(ctx context.Context) (demands, offers []*models.Trade, err error)
}

// SeenCache short-circuits ledger lookups for listings recorded before.
type SeenCache interface {
	Lookup(key string) (string, bool)
	Remember(key, id string)
}

// Recorder writes a market snapshot into the ledger.
type Recorder struct {
	ledger Ledger
	seen   SeenCache
	logger *slog.Logger

	mu sync.Mutex
	// marked is the id set last flagged latest by this process, nil until
	// the first write.
	marked map[string]struct{}
}

// NewRecorder creates a Recorder. seen may be nil.
func NewRecorder(ledger Ledger, seen SeenCache, logger *slog.Logger) *Recorder {
	return &Recorder{
		ledger: ledger,
		seen:   seen,
		logger: logger.With("component", "recorder"),
	}
}

// Record stores the listings not yet in the ledger and makes the observed set
// the latest generation. It reports false, leaving the ledger untouched, when
// the observed set is the one already marked latest.
func (r *Recorder) Record(ctx context.Context, demands, offers []*models.Trade) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var keep []string
	var fresh []*models.Trade

	for _, side := range [][]*models.Trade{demands, offers} {
		for _, t := range side {
			id, ok, err := r.resolve(ctx, t)
			if err != nil {
				return false, err
			}
			if ok {
				t.ID = id
				keep = append(keep, id)
				continue
			}
			fresh = append(fresh, t)
		}
	}

	if len(fresh) == 0 {
		if len(keep) == 0 {
			r.logger.Warn("market returned no listings, ledger left as is")
			return false, nil
		}
		if r.isMarked(keep) {
			r.logger.Debug("no new listings", "known", len(keep))
			return false, nil
		}
	}

	if err := r.ledger.MarkLatest(ctx, keep); err != nil {
		return false, err
	}
	if err := r.ledger.InsertTrades(ctx, fresh, true); err != nil {
		// the flags no longer describe any known set
		r.marked = nil
		return false, err
	}

	r.marked = make(map[string]struct{}, len(keep)+len(fresh))
	for _, id := range keep {
		r.marked[id] = struct{}{}
	}
	for _, t := range fresh {
		r.marked[t.ID] = struct{}{}
		if r.seen != nil {
			r.seen.Remember(seenKey(t), t.ID)
		}
	}

	r.logger.Info("recorded listings", "new", len(fresh), "known", len(keep))
	return true, nil
}

// isMarked reports whether ids is exactly the set flagged latest last time.
func (r *Recorder) isMarked(ids []string) bool {
	if r.marked == nil {
		return false
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := r.marked[id]; !ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(r.marked)
}

func (r *Recorder) resolve(ctx context.Context, t *models.Trade) (string, bool, error) {
	key := seenKey(t)
	if r.seen != nil {
		if id, ok := r.seen.Lookup(key); ok {
			return id, true, nil
		}
	}

	id, ok, err := r.ledger.FindExisting(ctx, t)
	if err != nil {
		return "", false, fmt.Errorf("resolve %s: %w", t, err)
	}
	if ok && r.seen != nil {
		r.seen.Remember(key, id)
	}
	return id, ok, nil
}

// seenKey is the content hash plus the unit price: a relisting at a new
// price is a new ledger row.
func seenKey(t *models.Trade) string {
	return t.ContentHash() + ":" + strconv.FormatInt(t.Cost, 10)
}
