// Package publisher streams detected dupes to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/navid-fn/dupe-radar/internal/models"

	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DupeEvent is the value of one Kafka message.
type DupeEvent struct {
	Generation uint64          `json:"generation"`
	DetectedAt time.Time       `json:"detected_at"`
	Dupe       models.DupeView `json:"dupe"`
}

// NewWriter returns a Kafka writer for the dupe topic. Messages with the same
// key, i.e. the same seller and buyer, land on the same partition.
func NewWriter(broker, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(broker),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Compression:  kafka.Zstd,
	}
}

// Sender publishes dupe events.
type Sender struct {
	writer   MessageWriter
	imageURL string
	logger   *slog.Logger
}

// NewSender creates a Sender. imageURL is the item image template used in
// the event payload.
func NewSender(writer MessageWriter, imageURL string, logger *slog.Logger) *Sender {
	return &Sender{
		writer:   writer,
		imageURL: imageURL,
		logger:   logger.With("component", "publisher"),
	}
}

// Send writes raw messages with a bounded wait.
func (s *Sender) Send(ctx context.Context, msgs ...kafka.Message) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := s.writer.WriteMessages(writeCtx, msgs...)
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// PublishDupes sends one message per dupe, in match order.
func (s *Sender) PublishDupes(ctx context.Context, generation uint64, detectedAt time.Time, dupes []models.Dupe) error {
	if len(dupes) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(dupes))
	for _, d := range dupes {
		value, err := json.Marshal(DupeEvent{
			Generation: generation,
			DetectedAt: detectedAt.UTC(),
			Dupe:       models.NewDupeView(d, s.imageURL),
		})
		if err != nil {
			return fmt.Errorf("serialize dupe: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(d.ID()),
			Value: value,
			Time:  detectedAt,
		})
	}

	if err := s.Send(ctx, msgs...); err != nil {
		return err
	}
	s.logger.Debug("published dupe events", "generation", generation, "count", len(msgs))
	return nil
}
