// Package repository is the trade ledger: lookups and flag updates through gorm,
// bulk inserts through the native ClickHouse storage.
package repository

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/navid-fn/dupe-radar/internal/models"
	"github.com/navid-fn/dupe-radar/internal/storage"
	"github.com/navid-fn/dupe-radar/internal/storage/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TradeRepository interface {
	// FindExisting returns the ledger id of a row describing the same listing.
	FindExisting(ctx context.Context, trade *domain.Trade) (string, bool, error)

	// MarkLatest makes keep the latest set: other rows lose the flag, rows in
	// keep get it back if an earlier refresh cleared it.
	MarkLatest(ctx context.Context, keep []string) error

	// InsertTrades stores trades, assigning ids to those without one.
	InsertTrades(ctx context.Context, trades []*domain.Trade, latest bool) error

	// LatestTrades loads the generation currently marked latest.
	LatestTrades(ctx context.Context) (demands, offers []*domain.Trade, err error)
}

type gormTradeRepository struct {
	db    *gorm.DB
	store storage.Storage
}

func NewGormTradeRepository(db *gorm.DB, store storage.Storage) TradeRepository {
	return &gormTradeRepository{db: db, store: store}
}

func (r *gormTradeRepository) FindExisting(ctx context.Context, trade *domain.Trade) (string, bool, error) {
	var ids []string
	err := existingQuery(r.db.WithContext(ctx), trade).
		Limit(1).
		Pluck("trade_id", &ids).Error
	if err != nil {
		return "", false, fmt.Errorf("find existing trade: %w", err)
	}
	if len(ids) == 0 {
		return "", false, nil
	}
	return ids[0], true, nil
}

// existingQuery matches on (date, mod, owner, cost) plus the catalog id, or
// the item name when the listing has no id.
func existingQuery(tx *gorm.DB, trade *domain.Trade) *gorm.DB {
	q := tx.Model(&models.Trade{}).
		Where("mod = ? AND owner_name = ? AND cost = ?", trade.Modifier, trade.OwnerName, trade.Cost)

	if trade.Date != nil {
		q = q.Where("date = ?", trade.Date.UTC())
	} else {
		q = q.Where("date IS NULL")
	}

	if trade.ItemID != nil {
		q = q.Where("item_id = ?", *trade.ItemID)
	} else {
		q = q.Where("item_id IS NULL AND lower(item_name) = ?", strings.ToLower(trade.ItemBaseName))
	}
	return q
}

func (r *gormTradeRepository) MarkLatest(ctx context.Context, keep []string) error {
	tx := r.db.WithContext(ctx)

	sql, args := demoteStatement(keep)
	if err := tx.Exec(sql, args...).Error; err != nil {
		return fmt.Errorf("demote latest trades: %w", err)
	}
	if len(keep) == 0 {
		return nil
	}
	sql, args = promoteStatement(keep)
	if err := tx.Exec(sql, args...).Error; err != nil {
		return fmt.Errorf("promote %d kept trades: %w", len(keep), err)
	}
	return nil
}

// demoteStatement builds a synchronous mutation; ClickHouse has no plain UPDATE.
func demoteStatement(keep []string) (string, []any) {
	if len(keep) == 0 {
		return "ALTER TABLE trade UPDATE latest = false WHERE latest = true SETTINGS mutations_sync = 1", nil
	}
	return "ALTER TABLE trade UPDATE latest = false WHERE latest = true AND trade_id NOT IN ? SETTINGS mutations_sync = 1",
		[]any{keep}
}

// promoteStatement re-flags listings that went away and came back.
func promoteStatement(keep []string) (string, []any) {
	return "ALTER TABLE trade UPDATE latest = true WHERE latest = false AND trade_id IN ? SETTINGS mutations_sync = 1",
		[]any{keep}
}

func (r *gormTradeRepository) InsertTrades(ctx context.Context, trades []*domain.Trade, latest bool) error {
	if len(trades) == 0 {
		return nil
	}

	rows := make([]*models.Trade, 0, len(trades))
	for _, t := range trades {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		rows = append(rows, models.FromDomain(t, latest))
	}

	if err := r.store.CreateTrades(ctx, rows); err != nil {
		return fmt.Errorf("insert %d trades: %w", len(rows), err)
	}
	return nil
}

func (r *gormTradeRepository) LatestTrades(ctx context.Context) ([]*domain.Trade, []*domain.Trade, error) {
	var rows []models.Trade
	err := latestQuery(r.db.WithContext(ctx)).Find(&rows).Error
	if err != nil {
		return nil, nil, fmt.Errorf("load latest trades: %w", err)
	}

	var demands, offers []*domain.Trade
	for i := range rows {
		trade := rows[i].ToDomain()
		switch trade.Kind {
		case domain.Demand:
			demands = append(demands, trade)
		case domain.Offer:
			offers = append(offers, trade)
		}
	}
	return demands, offers, nil
}

func latestQuery(tx *gorm.DB) *gorm.DB {
	return tx.Model(&models.Trade{}).
		Where("latest = ?", true).
		Order("inserted_at, trade_id")
}
