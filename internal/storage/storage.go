// Package storage persists ledger rows to ClickHouse.
package storage

import (
	"context"
	"time"

	"github.com/navid-fn/dupe-radar/internal/storage/models"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

// Storage defines the write side of the trade ledger.
// Implementations must be safe for concurrent use.
type Storage interface {
	// CreateTrades inserts a batch of ledger rows.
	CreateTrades(ctx context.Context, trades []*models.Trade) error

	// Close releases database connection resources.
	Close() error
}

// clickhouseStorage implements Storage using the native ClickHouse driver.
type clickhouseStorage struct {
	conn driver.Conn
}

// NewClickHouseStorage parses the DSN, opens a connection and pings it.
// Returns an error if the connection cannot be established within 5 seconds.
func NewClickHouseStorage(dsn string) (Storage, error) {
	opts, err := clickhouse.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	conn, err := clickhouse.Open(opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return &clickhouseStorage{conn: conn}, nil
}

// CreateTrades inserts rows with one ClickHouse batch.
// All rows in the batch share the same inserted_at timestamp.
func (s *clickhouseStorage) CreateTrades(ctx context.Context, trades []*models.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO trade (
			trade_id, kind, item_name, mod, item_id,
			owner_name, city, count, cost, bulk,
			date, content_hash, latest, inserted_at
		)
	`)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, t := range trades {
		err := batch.Append(
			t.TradeID,
			t.Kind,
			t.ItemName,
			t.Modifier,
			t.ItemID,
			t.OwnerName,
			t.City,
			t.Count,
			t.Cost,
			t.Bulk,
			t.Date,
			t.ContentHash,
			t.Latest,
			now,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Close closes the ClickHouse connection.
func (s *clickhouseStorage) Close() error {
	return s.conn.Close()
}
