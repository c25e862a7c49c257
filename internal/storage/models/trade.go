// Package models defines the ledger row models stored in ClickHouse.
package models

import (
	"time"

	domain "github.com/navid-fn/dupe-radar/internal/models"
)

// Trade is one ledger row. Rows are never deleted; the Latest flag marks the
// generation of listings that is currently on the market.
type Trade struct {
	// TradeID is the ledger id, a random UUID assigned on insert.
	TradeID string `gorm:"column:trade_id;primaryKey" json:"trade_id"`

	// Kind is 1 for demands and 2 for offers.
	Kind uint8 `gorm:"column:kind;type:UInt8" json:"kind"`

	// ItemName is the base item name, without modifier.
	ItemName string `gorm:"column:item_name" json:"item_name"`

	// Modifier is the enchant suffix, empty when the item has none.
	Modifier string `gorm:"column:mod" json:"mod"`

	ItemID    *int64 `gorm:"column:item_id;type:Nullable(Int64)" json:"item_id"`
	OwnerName string `gorm:"column:owner_name" json:"owner_name"`
	City      string `gorm:"column:city" json:"city"`
	Count     int64  `gorm:"column:count;type:Int64" json:"count"`
	Cost      int64  `gorm:"column:cost;type:Int64" json:"cost"`
	Bulk      bool   `gorm:"column:bulk" json:"bulk"`

	// Date is when the listing was placed, in UTC. Nil when unknown.
	Date *time.Time `gorm:"column:date;type:Nullable(DateTime('UTC'))" json:"date"`

	// ContentHash is the listing identity used to recognise it across refreshes.
	ContentHash string `gorm:"column:content_hash" json:"content_hash"`

	Latest     bool      `gorm:"column:latest" json:"latest"`
	InsertedAt time.Time `gorm:"column:inserted_at;type:DateTime('UTC');default:now()" json:"inserted_at"`
}

func (Trade) TableName() string {
	return "trade"
}

// FromDomain converts a normalized trade into a ledger row.
func FromDomain(t *domain.Trade, latest bool) *Trade {
	var date *time.Time
	if t.Date != nil {
		d := t.Date.UTC()
		date = &d
	}
	var itemID *int64
	if t.ItemID != nil {
		id := *t.ItemID
		itemID = &id
	}

	return &Trade{
		TradeID:     t.ID,
		Kind:        uint8(t.Kind),
		ItemName:    t.ItemBaseName,
		Modifier:    t.Modifier,
		ItemID:      itemID,
		OwnerName:   t.OwnerName,
		City:        t.City,
		Count:       t.Count,
		Cost:        t.Cost,
		Bulk:        t.Bulk,
		Date:        date,
		ContentHash: t.ContentHash(),
		Latest:      latest,
	}
}

// ToDomain converts a ledger row back into a trade.
func (r *Trade) ToDomain() *domain.Trade {
	var date *time.Time
	if r.Date != nil {
		d := r.Date.UTC()
		date = &d
	}
	var itemID *int64
	if r.ItemID != nil {
		id := *r.ItemID
		itemID = &id
	}

	return &domain.Trade{
		ID:           r.TradeID,
		Date:         date,
		OwnerName:    r.OwnerName,
		City:         r.City,
		ItemBaseName: r.ItemName,
		Modifier:     r.Modifier,
		Count:        r.Count,
		Cost:         r.Cost,
		ItemID:       itemID,
		Bulk:         r.Bulk,
		Kind:         domain.Kind(r.Kind),
	}
}
