package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDupesBeforeFirstSnapshot(t *testing.T) {
	svc := NewDupeService(NewSnapshotStore(), "")

	_, err := svc.Dupes(DupeQuery{})
	assert.ErrorIs(t, err, ErrNoSnapshot)
	assert.False(t, svc.Health().Ready)
	assert.Nil(t, svc.Current())
}

func TestDupesRendersViews(t *testing.T) {
	store := NewSnapshotStore()
	demands, offers := swordBook()
	id := int64(7)
	offers[0].ItemID = &id
	store.Publish(NewSnapshot(3, time.Now(), demands, offers))

	svc := NewDupeService(store, "http://img/%d.png")
	res, err := svc.Dupes(DupeQuery{})
	require.NoError(t, err)

	assert.Equal(t, uint64(3), res.Generation)
	assert.True(t, res.Found)
	assert.Empty(t, res.Ignored)
	require.Len(t, res.Dupes, 2)

	first := res.Dupes[0]
	assert.Equal(t, "Sword", first.ItemName)
	assert.Equal(t, int64(40), first.Equity)
	assert.Equal(t, int64(160), first.RequiredCost)
	require.NotNil(t, first.ImageURL)
	assert.Equal(t, "http://img/7.png", *first.ImageURL)
	assert.Equal(t, "Orc", first.Seller.Name)
	assert.Equal(t, "Elf", first.Buyer.Name)
	assert.Nil(t, res.Dupes[1].ImageURL)
}

func TestDupesWithIgnoreList(t *testing.T) {
	store := NewSnapshotStore()
	demands, offers := swordBook()
	store.Publish(NewSnapshot(1, time.Now(), demands, offers))
	svc := NewDupeService(store, "")

	res, err := svc.Dupes(DupeQuery{Ignore: []string{demands[0].ContentHash()}})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.Empty(t, res.Dupes)
	assert.Equal(t, []string{demands[0].ContentHash()}, res.Ignored)
}

func TestDupesFilters(t *testing.T) {
	store := NewSnapshotStore()
	demands, offers := swordBook()
	store.Publish(NewSnapshot(1, time.Now(), demands, offers))
	svc := NewDupeService(store, "")

	// equities 40 and 30, required 160 and 270
	res, err := svc.Dupes(DupeQuery{MinEquity: 35})
	require.NoError(t, err)
	require.Len(t, res.Dupes, 1)
	assert.Equal(t, int64(40), res.Dupes[0].Equity)

	res, err = svc.Dupes(DupeQuery{MaxRequired: 200})
	require.NoError(t, err)
	require.Len(t, res.Dupes, 1)
	assert.Equal(t, int64(160), res.Dupes[0].RequiredCost)

	res, err = svc.Dupes(DupeQuery{MinEquity: 1000})
	require.NoError(t, err)
	assert.False(t, res.Found)
	assert.NotNil(t, res.Dupes)
}

func TestHealthReportsAge(t *testing.T) {
	store := NewSnapshotStore()
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store.Publish(NewSnapshot(5, created, nil, nil))

	svc := NewDupeService(store, "")
	svc.now = func() time.Time { return created.Add(90 * time.Second) }

	h := svc.Health()
	assert.True(t, h.Ready)
	assert.Equal(t, uint64(5), h.Generation)
	assert.InDelta(t, 90, h.AgeSeconds, 0.001)
}
