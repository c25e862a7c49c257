// Package scraper reads the market's demand and offer pages and turns their
// listing rows into canonical trades.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/navid-fn/dupe-radar/configs"
	"github.com/navid-fn/dupe-radar/internal/dedup"
	"github.com/navid-fn/dupe-radar/internal/faulttolerance"
	"github.com/navid-fn/dupe-radar/internal/models"
)

// PageFetcher downloads one market page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// MarketConfig points the scraper at the two listing pages.
type MarketConfig struct {
	// DemandsURL lists buy orders, most expensive first.
	DemandsURL string
	// OffersURL lists sell orders, cheapest first.
	OffersURL string
}

// MarketScraper produces one snapshot of both market sides per call.
type MarketScraper struct {
	cfg        MarketConfig
	fetcher    PageFetcher
	normalizer *Normalizer
	logger     *slog.Logger
}

// NewMarketScraper wires a scraper from its collaborators.
func NewMarketScraper(cfg MarketConfig, fetcher PageFetcher, normalizer *Normalizer, logger *slog.Logger) *MarketScraper {
	return &MarketScraper{
		cfg:        cfg,
		fetcher:    fetcher,
		normalizer: normalizer,
		logger:     logger.With("scraper", "market"),
	}
}

// NewFromConfig builds the market scraper with an HTTP fetcher sized by cfg.
func NewFromConfig(cfg *configs.AppConfig, logger *slog.Logger) *MarketScraper {
	httpCfg := DefaultHTTPConfig()
	httpCfg.RequestTimeout = cfg.Fetch.Timeout
	httpCfg.RequestsPerSecond = cfg.Fetch.RequestsPerSecond
	httpCfg.MaxAttempts = cfg.Fetch.Retries

	return NewMarketScraper(
		MarketConfig{DemandsURL: cfg.Market.DemandsURL, OffersURL: cfg.Market.OffersURL},
		NewFetcher(httpCfg, logger, faulttolerance.NewLogger()),
		NewNormalizer(cfg.Market.Location),
		logger,
	)
}

func (s *MarketScraper) Name() string { return "market" }

// Fetch downloads both pages and returns merged, non-bulk demands and offers.
func (s *MarketScraper) Fetch(ctx context.Context) ([]*models.Trade, []*models.Trade, error) {
	demandsPage, err := s.fetcher.Fetch(ctx, s.cfg.DemandsURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch demands: %w", err)
	}
	offersPage, err := s.fetcher.Fetch(ctx, s.cfg.OffersURL)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch offers: %w", err)
	}

	demands := s.ReadTrades(demandsPage, models.Demand)
	offers := s.ReadTrades(offersPage, models.Offer)
	return demands, offers, nil
}

// ReadTrades normalizes every listing row of a page and merges the result.
// Broken rows are logged and skipped; they never fail the page.
func (s *MarketScraper) ReadTrades(page string, kind models.Kind) []*models.Trade {
	rows, malformed := ParseRows(page)
	for _, payload := range malformed {
		s.logger.Warn("unreadable listing row", "kind", kind, "data", payload)
	}

	trades := make([]*models.Trade, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		trade, err := s.normalizer.Normalize(row.Record, kind)
		if err != nil {
			skipped++
			if isExpectedRowError(err) {
				s.logger.Debug("skipping listing row", "kind", kind, "error", err)
			} else {
				s.logger.Warn("bad listing row", "kind", kind, "error", err, "data", row.Payload)
			}
			continue
		}
		if trade == nil {
			skipped++
			continue
		}
		trades = append(trades, trade)
	}

	merged := dedup.Merge(trades)
	s.logger.Info("read listings",
		"kind", kind,
		"rows", len(rows),
		"skipped", skipped+len(malformed),
		"trades", len(merged),
	)
	return merged
}

func isExpectedRowError(err error) bool {
	return errors.Is(err, ErrOwnerCitySplit) ||
		errors.Is(err, ErrItemNameSplit) ||
		errors.Is(err, ErrEmptyAmount)
}
