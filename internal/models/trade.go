// Package models defines the domain models shared across the application.
package models

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind tells which side of the market a trade sits on.
type Kind uint8

const (
	// Demand is an open buy order.
	Demand Kind = 1
	// Offer is an open sell order.
	Offer Kind = 2
)

func (k Kind) String() string {
	switch k {
	case Demand:
		return "demand"
	case Offer:
		return "offer"
	default:
		return "unknown"
	}
}

// Trade is the canonical representation of one market listing.
// It is produced by the scraper normalizer and loaded back from the ledger.
type Trade struct {
	// ID is the ledger row id. Empty until the trade has been recorded.
	ID string `json:"id,omitempty"`

	// Date is the listing creation time. Nil when the market did not print one.
	Date *time.Time `json:"date,omitempty"`

	// OwnerName is the name of the character who placed the listing.
	OwnerName string `json:"owner_name"`

	// City is the trading post location.
	City string `json:"city"`

	// ItemBaseName is the canonical (primary language) item name.
	ItemBaseName string `json:"item_base_name"`

	// Modifier is the enchant level suffix, e.g. "+16". May be empty.
	Modifier string `json:"modifier,omitempty"`

	// Count is the quantity offered or wanted. Always > 0 after normalization.
	Count int64 `json:"count"`

	// Cost is the unit price. Always > 0 after normalization.
	Cost int64 `json:"cost"`

	// ItemID is the external catalog identifier, when the listing carries one.
	ItemID *int64 `json:"item_id,omitempty"`

	// Bulk marks lot listings whose unit price is not comparable.
	Bulk bool `json:"bulk"`

	// Kind is Demand or Offer.
	Kind Kind `json:"kind"`
}

// ItemName is the tradable item name: base name plus modifier.
// "Sword" and "Sword+1" are different items.
func (t *Trade) ItemName() string {
	return t.ItemBaseName + t.Modifier
}

// ItemKey is the case-folded ItemName used to join demands with offers.
func (t *Trade) ItemKey() string {
	return strings.ToLower(t.ItemName())
}

// Key is the intra-snapshot identity of a trade. Count is deliberately
// absent: rows sharing a key are one order split across the table.
type Key struct {
	Date      int64
	HasDate   bool
	OwnerName string
	City      string
	ItemName  string
	Cost      int64
	ItemID    int64
	HasItemID bool
	Bulk      bool
}

// Key returns the equality tuple (date, owner, city, item name, cost, item id, bulk).
func (t *Trade) Key() Key {
	k := Key{
		OwnerName: t.OwnerName,
		City:      t.City,
		ItemName:  t.ItemKey(),
		Cost:      t.Cost,
		Bulk:      t.Bulk,
	}
	if t.Date != nil {
		k.Date = t.Date.UnixNano()
		k.HasDate = true
	}
	if t.ItemID != nil {
		k.ItemID = *t.ItemID
		k.HasItemID = true
	}
	return k
}

// ContentHash is a sha1 over (date, city, owner, item name, item id).
// It is coarser than Key and only answers "has this listing been seen".
func (t *Trade) ContentHash() string {
	var date, itemID string
	if t.Date != nil {
		date = t.Date.UTC().Format(time.RFC3339)
	}
	if t.ItemID != nil {
		itemID = strconv.FormatInt(*t.ItemID, 10)
	}

	unique := fmt.Sprintf("%s|%s|%s|%s|%s", date, t.City, t.OwnerName, t.ItemKey(), itemID)
	hash := sha1.Sum([]byte(unique))
	return hex.EncodeToString(hash[:])
}

// Clone returns a copy that shares nothing mutable with t.
func (t *Trade) Clone() *Trade {
	c := *t
	if t.Date != nil {
		d := *t.Date
		c.Date = &d
	}
	if t.ItemID != nil {
		id := *t.ItemID
		c.ItemID = &id
	}
	return &c
}

// CloneTrades deep-copies a slice of trades.
func CloneTrades(trades []*Trade) []*Trade {
	out := make([]*Trade, len(trades))
	for i, t := range trades {
		out[i] = t.Clone()
	}
	return out
}

func (t *Trade) String() string {
	date := "none"
	if t.Date != nil {
		date = t.Date.Format(time.DateTime)
	}
	itemID := "none"
	if t.ItemID != nil {
		itemID = strconv.FormatInt(*t.ItemID, 10)
	}
	return fmt.Sprintf("Item: %s, Owner: %s, City: %s, Date: %s, Count: %d, Cost: %d, ID: %s",
		t.ItemName(), t.OwnerName, t.City, date, t.Count, t.Cost, itemID)
}
