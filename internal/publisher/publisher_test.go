package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/navid-fn/dupe-radar/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func testDupes() []models.Dupe {
	id := int64(9)
	demand := &models.Trade{OwnerName: "Elf", City: "Aden", ItemBaseName: "Sword", Cost: 100, Count: 5, Kind: models.Demand}
	cheap := &models.Trade{OwnerName: "Orc", City: "Giran", ItemBaseName: "Sword", Cost: 80, Count: 2, ItemID: &id, Kind: models.Offer}
	dear := &models.Trade{OwnerName: "Troll", City: "Giran", ItemBaseName: "Sword", Cost: 90, Count: 10, Kind: models.Offer}
	return []models.Dupe{
		{Demand: demand, Offer: cheap, BuyCount: 2, Equity: 40},
		{Demand: demand, Offer: dear, BuyCount: 3, Equity: 30},
	}
}

func newTestSender(w MessageWriter) *Sender {
	return NewSender(w, "http://img/%d.png", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishDupes(t *testing.T) {
	w := &fakeWriter{}
	detected := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	dupes := testDupes()

	require.NoError(t, newTestSender(w).PublishDupes(context.Background(), 7, detected, dupes))
	require.Len(t, w.msgs, 2)

	first := w.msgs[0]
	assert.Equal(t, dupes[0].Offer.ContentHash()+dupes[0].Demand.ContentHash(), string(first.Key))

	var event DupeEvent
	require.NoError(t, json.Unmarshal(first.Value, &event))
	assert.Equal(t, uint64(7), event.Generation)
	assert.True(t, detected.Equal(event.DetectedAt))
	assert.Equal(t, "Sword", event.Dupe.ItemName)
	assert.Equal(t, int64(40), event.Dupe.Equity)
	assert.Equal(t, int64(160), event.Dupe.RequiredCost)
	assert.Equal(t, "Orc", event.Dupe.Seller.Name)
	assert.Equal(t, "Elf", event.Dupe.Buyer.Name)
	require.NotNil(t, event.Dupe.ImageURL)
	assert.Equal(t, "http://img/9.png", *event.Dupe.ImageURL)

	assert.Equal(t, "Troll", mustEvent(t, w.msgs[1]).Dupe.Seller.Name)
}

func mustEvent(t *testing.T, msg kafka.Message) DupeEvent {
	t.Helper()
	var event DupeEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	return event
}

func TestPublishDupesNothingToSend(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestSender(w).PublishDupes(context.Background(), 1, time.Now(), nil))
	assert.Empty(t, w.msgs)
}

func TestPublishDupesWriteError(t *testing.T) {
	boom := errors.New("broker down")
	err := newTestSender(&fakeWriter{err: boom}).PublishDupes(context.Background(), 1, time.Now(), testDupes())
	assert.ErrorIs(t, err, boom)
}

func TestSendSwallowsErrorsAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := newTestSender(&fakeWriter{err: context.Canceled}).Send(ctx, kafka.Message{Value: []byte("x")})
	assert.NoError(t, err)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter("localhost:9092", "dupes")
	defer w.Close()

	assert.Equal(t, "dupes", w.Topic)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
