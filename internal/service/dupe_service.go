package service

import (
	"errors"
	"time"

	"github.com/navid-fn/dupe-radar/internal/dedup"
	"github.com/navid-fn/dupe-radar/internal/models"
)

// ErrNoSnapshot is returned before the first refresh has completed.
var ErrNoSnapshot = errors.New("no market snapshot yet")

// DupeResult is the match set served to clients.
type DupeResult struct {
	Generation uint64            `json:"generation"`
	CreatedAt  time.Time         `json:"created_at"`
	Found      bool              `json:"found"`
	Dupes      []models.DupeView `json:"dupes"`
	Ignored    []string          `json:"ignored"`
}

// Health describes the snapshot being served.
type Health struct {
	Ready      bool      `json:"ready"`
	Generation uint64    `json:"generation"`
	CreatedAt  time.Time `json:"created_at,omitempty"`
	AgeSeconds float64   `json:"age_seconds"`
}

type DupeService struct {
	store    *SnapshotStore
	imageURL string
	now      func() time.Time
}

func NewDupeService(store *SnapshotStore, imageURL string) *DupeService {
	return &DupeService{
		store:    store,
		imageURL: imageURL,
		now:      time.Now,
	}
}

// DupeQuery narrows the served match set.
type DupeQuery struct {
	// Ignore lists content hashes of listings to leave out before matching.
	Ignore []string
	// MinEquity hides dupes earning less. Zero disables the filter.
	MinEquity int64
	// MaxRequired hides dupes needing more money up front. Zero disables the filter.
	MaxRequired int64
}

// Dupes returns the current match set for q.
func (s *DupeService) Dupes(q DupeQuery) (DupeResult, error) {
	snap := s.store.Load()
	if snap == nil {
		return DupeResult{}, ErrNoSnapshot
	}
	return s.Result(snap, q), nil
}

// Result renders the match set of snap for q.
func (s *DupeService) Result(snap *Snapshot, q DupeQuery) DupeResult {
	dupes, ignored := snap.Match(dedup.NewHashSet(q.Ignore...))
	if ignored == nil {
		ignored = []string{}
	}

	views := make([]models.DupeView, 0, len(dupes))
	for _, d := range dupes {
		if q.MinEquity > 0 && d.Equity < q.MinEquity {
			continue
		}
		if q.MaxRequired > 0 && d.RequiredCost() > q.MaxRequired {
			continue
		}
		views = append(views, models.NewDupeView(d, s.imageURL))
	}

	return DupeResult{
		Generation: snap.Generation,
		CreatedAt:  snap.CreatedAt,
		Found:      len(views) > 0,
		Dupes:      views,
		Ignored:    ignored,
	}
}

// Subscribe streams every snapshot published from now on.
func (s *DupeService) Subscribe() (<-chan *Snapshot, func()) {
	return s.store.Subscribe()
}

// Current returns the snapshot being served, nil before the first refresh.
func (s *DupeService) Current() *Snapshot {
	return s.store.Load()
}

func (s *DupeService) Health() Health {
	snap := s.store.Load()
	if snap == nil {
		return Health{}
	}
	return Health{
		Ready:      true,
		Generation: snap.Generation,
		CreatedAt:  snap.CreatedAt,
		AgeSeconds: s.now().Sub(snap.CreatedAt).Seconds(),
	}
}
