package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/navid-fn/dupe-radar/internal/dedup"
	"github.com/navid-fn/dupe-radar/internal/models"
)

// Source produces one fresh read of both market sides.
type Source interface {
	Fetch(ctx context.Context) (demands, offers []*models.Trade, err error)
}

// DupePublisher announces the dupes of a new generation.
type DupePublisher interface {
	PublishDupes(ctx context.Context, generation uint64, detectedAt time.Time, dupes []models.Dupe) error
}

// RefresherConfig controls the refresh schedule.
type RefresherConfig struct {
	// Interval between two refresh cycles.
	Interval time.Duration
	// Timeout bounds one cycle, fetch included.
	Timeout time.Duration
	// Cooldown is slept after a failed cycle.
	Cooldown time.Duration
}

// DefaultRefresherConfig returns the schedule used when nothing is configured.
func DefaultRefresherConfig() RefresherConfig {
	return RefresherConfig{
		Interval: 120 * time.Second,
		Timeout:  5 * time.Minute,
		Cooldown: 30 * time.Second,
	}
}

// Refresher periodically scrapes the market, records it and publishes a new
// snapshot whenever the ledger changed.
type Refresher struct {
	source    Source
	recorder  *Recorder
	ledger    Ledger
	store     *SnapshotStore
	publisher DupePublisher
	cfg       RefresherConfig
	logger    *slog.Logger
	now       func() time.Time

	mu         sync.Mutex
	generation uint64
}

// NewRefresher wires a Refresher. publisher may be nil.
func NewRefresher(
	source Source,
	recorder *Recorder,
	ledger Ledger,
	store *SnapshotStore,
	publisher DupePublisher,
	cfg RefresherConfig,
	logger *slog.Logger,
) *Refresher {
	def := DefaultRefresherConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}

	return &Refresher{
		source:    source,
		recorder:  recorder,
		ledger:    ledger,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With("component", "refresher"),
		now:       time.Now,
	}
}

// Run refreshes immediately and then on every interval until ctx is done.
// A failing cycle is logged and never stops the loop.
func (r *Refresher) Run(ctx context.Context) error {
	r.logger.Info("Starting refresher", "interval", r.cfg.Interval)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.cycle(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Refresher stopped")
			return nil
		case <-ticker.C:
			r.cycle(ctx)
		}
	}
}

func (r *Refresher) cycle(ctx context.Context) {
	err := r.safeRefresh(ctx)
	if err == nil || ctx.Err() != nil {
		return
	}

	r.logger.Error("Refresh failed", "error", err, "cooldown", r.cfg.Cooldown)
	select {
	case <-ctx.Done():
	case <-time.After(r.cfg.Cooldown):
	}
}

func (r *Refresher) safeRefresh(ctx context.Context) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("refresh panicked: %v", rec)
		}
	}()

	cycleCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	return r.RefreshOnce(cycleCtx)
}

// RefreshOnce runs one scrape, record and publish cycle. The current snapshot
// is only replaced once every step succeeded.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	demands, offers, err := r.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	changed, err := r.recorder.Record(ctx, demands, offers)
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if !changed && r.store.Load() != nil {
		r.logger.Debug("Market unchanged", "generation", r.generation)
		return nil
	}

	latestDemands, latestOffers, err := r.ledger.LatestTrades(ctx)
	if err != nil {
		return fmt.Errorf("load latest: %w", err)
	}

	snap := NewSnapshot(r.generation+1, r.now(), dedup.Merge(latestDemands), dedup.Merge(latestOffers))
	r.generation = snap.Generation
	r.store.Publish(snap)

	r.logger.Info("Published snapshot",
		"generation", snap.Generation,
		"demands", len(snap.Demands),
		"offers", len(snap.Offers),
		"dupes", len(snap.Dupes),
	)

	if r.publisher != nil && len(snap.Dupes) > 0 {
		if err := r.publisher.PublishDupes(ctx, snap.Generation, snap.CreatedAt, snap.Dupes); err != nil {
			r.logger.Warn("Failed to publish dupe events", "generation", snap.Generation, "error", err)
		}
	}
	return nil
}
