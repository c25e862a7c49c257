package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/navid-fn/dupe-radar/internal/models"
	"github.com/navid-fn/dupe-radar/internal/publisher"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDupes() []models.Dupe {
	at := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	mk := func(kind models.Kind, owner, item string, cost int64) *models.Trade {
		return &models.Trade{Date: &at, OwnerName: owner, City: "Aden", ItemBaseName: item, Cost: cost, Count: 3, Kind: kind}
	}
	return []models.Dupe{
		models.NewDupe(mk(models.Demand, "Elf", "Sword", 100), mk(models.Offer, "Orc", "Sword", 80)),
		models.NewDupe(mk(models.Demand, "Elf", "Shield", 50), mk(models.Offer, "Orc", "Shield", 20)),
	}
}

func TestEventWriterPrintsMatchingItems(t *testing.T) {
	var out bytes.Buffer
	writer := newEventWriter(&out, "sword")
	sender := publisher.NewSender(writer, "", slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, sender.PublishDupes(context.Background(), 1, time.Now(), sampleDupes()))

	assert.Equal(t, int64(2), writer.total.Load())
	assert.Equal(t, int64(1), writer.shown.Load())
	assert.Contains(t, out.String(), `"item_name":"Sword"`)
	assert.NotContains(t, out.String(), "Shield")
}

func TestEventWriterRejectsGarbage(t *testing.T) {
	writer := newEventWriter(io.Discard, "")
	err := writer.WriteMessages(context.Background(), kafka.Message{Key: []byte("k"), Value: []byte("{")})
	assert.Error(t, err)
}

func TestPrintDupes(t *testing.T) {
	var out bytes.Buffer

	assert.Equal(t, 2, printDupes(&out, sampleDupes(), ""))
	assert.Contains(t, out.String(), "Dupe 'Sword', equity 60 aden")

	out.Reset()
	assert.Equal(t, 1, printDupes(&out, sampleDupes(), "SHIELD"))
	assert.Contains(t, out.String(), `buy 3 from "Orc" (Aden)`)
}
