package dedup

import (
	"testing"
	"time"

	"github.com/navid-fn/dupe-radar/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTrade(owner string, cost, count int64) *models.Trade {
	date := time.Date(2016, 5, 1, 10, 0, 0, 0, time.UTC)
	id := int64(1375)
	return &models.Trade{
		Date:         &date,
		OwnerName:    owner,
		City:         "Giran",
		ItemBaseName: "Soul Crystal",
		Modifier:     "",
		Count:        count,
		Cost:         cost,
		ItemID:       &id,
		Kind:         models.Offer,
	}
}

func TestMergeSumsEqualTrades(t *testing.T) {
	a := newTrade("Gremlin", 100, 2)
	b := newTrade("Gremlin", 100, 5)

	merged := Merge([]*models.Trade{a, b})

	require.Len(t, merged, 1)
	assert.Equal(t, int64(7), merged[0].Count)
	assert.Equal(t, a.Key(), merged[0].Key())
	assert.Equal(t, int64(2), a.Count, "inputs are left untouched")
}

func TestMergeKeepsDistinctTrades(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*models.Trade)
	}{
		{"cost", func(tr *models.Trade) { tr.Cost = 101 }},
		{"owner", func(tr *models.Trade) { tr.OwnerName = "Goblin" }},
		{"modifier", func(tr *models.Trade) { tr.Modifier = "+3" }},
		{"date", func(tr *models.Trade) { tr.Date = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTrade("Gremlin", 100, 2)
			b := newTrade("Gremlin", 100, 5)
			tt.mutate(b)

			assert.Len(t, Merge([]*models.Trade{a, b}), 2)
		})
	}
}

func TestMergeDropsBulk(t *testing.T) {
	lot := newTrade("Gremlin", 100, 2)
	lot.Bulk = true
	unit := newTrade("Gremlin", 100, 3)

	merged := Merge([]*models.Trade{lot, unit, lot.Clone()})

	require.Len(t, merged, 1)
	assert.False(t, merged[0].Bulk)
	assert.Equal(t, int64(3), merged[0].Count)
}

func TestMergeCaseInsensitiveItemName(t *testing.T) {
	a := newTrade("Gremlin", 100, 1)
	b := newTrade("Gremlin", 100, 1)
	b.ItemBaseName = "soul crystal"

	merged := Merge([]*models.Trade{a, b})
	require.Len(t, merged, 1)
	assert.Equal(t, int64(2), merged[0].Count)
}

func TestFilterIgnored(t *testing.T) {
	a := newTrade("Gremlin", 100, 1)
	b := newTrade("Goblin", 100, 1)
	c := newTrade("Gremlin", 150, 4) // same content hash as a

	kept, ignored := FilterIgnored([]*models.Trade{a, b, c}, NewHashSet(a.ContentHash(), "unknown"))

	assert.Equal(t, []*models.Trade{b}, kept)
	assert.Equal(t, []string{a.ContentHash()}, ignored)
}

func TestFilterIgnoredEmptySet(t *testing.T) {
	trades := []*models.Trade{newTrade("Gremlin", 100, 1)}

	kept, ignored := FilterIgnored(trades, nil)
	assert.Equal(t, trades, kept)
	assert.Empty(t, ignored)
}
