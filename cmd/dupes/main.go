package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/navid-fn/dupe-radar/configs"
	"github.com/navid-fn/dupe-radar/internal/dedup"
	"github.com/navid-fn/dupe-radar/internal/models"
	"github.com/navid-fn/dupe-radar/internal/publisher"
	"github.com/navid-fn/dupe-radar/internal/repository"
	"github.com/navid-fn/dupe-radar/internal/scraper"
	"github.com/navid-fn/dupe-radar/internal/service"

	"github.com/segmentio/kafka-go"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// EventWriter implements publisher.MessageWriter.
// It prints dupe events to out instead of sending them to Kafka.
type EventWriter struct {
	out   io.Writer
	item  string // case-folded item name to keep, empty keeps all
	total atomic.Int64
	shown atomic.Int64
}

func newEventWriter(out io.Writer, item string) *EventWriter {
	return &EventWriter{out: out, item: strings.ToLower(item)}
}

// WriteMessages satisfies publisher.MessageWriter.
func (w *EventWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		var event publisher.DupeEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return fmt.Errorf("decode event %s: %w", msg.Key, err)
		}
		w.total.Add(1)
		if w.item != "" && strings.ToLower(event.Dupe.ItemName) != w.item {
			continue
		}
		w.shown.Add(1)
		fmt.Fprintf(w.out, "[EVENT] key=%s %s\n", msg.Key, msg.Value)
	}
	return nil
}

func loadBook(ctx context.Context, cfg *configs.AppConfig, remote bool, logger *slog.Logger) ([]*models.Trade, []*models.Trade, error) {
	if remote {
		return scraper.NewFromConfig(cfg, logger).Fetch(ctx)
	}

	db, err := gorm.Open(clickhouse.Open(cfg.DBDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// read only: no batch storage needed
	demands, offers, err := repository.NewGormTradeRepository(db, nil).LatestTrades(ctx)
	if err != nil {
		return nil, nil, err
	}
	return dedup.Merge(demands), dedup.Merge(offers), nil
}

func printDupes(out io.Writer, dupes []models.Dupe, item string) int {
	shown := 0
	for _, d := range dupes {
		if item != "" && !strings.EqualFold(d.Offer.ItemName(), item) {
			continue
		}
		fmt.Fprintln(out, d.Message())
		shown++
	}
	return shown
}

func main() {
	remoteFlag := flag.Bool("remote", false, "scrape the market instead of reading the ledger")
	ignoreFlag := flag.String("ignore", "", "listing hashes to leave out (comma-separated)")
	itemFlag := flag.String("item", "", "only show dupes of this item")
	minEquityFlag := flag.Int64("min-equity", 0, "hide dupes earning less")
	eventsFlag := flag.Bool("events", false, "print the Kafka events the server would publish")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Refresh.Timeout)
	defer cancel()

	demands, offers, err := loadBook(ctx, cfg, *remoteFlag, logger)
	if err != nil {
		logger.Error("Failed to load market", "error", err)
		os.Exit(1)
	}

	snap := service.NewSnapshot(1, time.Now(), demands, offers)
	var ignore []string
	if *ignoreFlag != "" {
		ignore = strings.Split(*ignoreFlag, ",")
	}
	dupes, ignored := snap.Match(dedup.NewHashSet(ignore...))
	kept := dupes[:0:0]
	for _, d := range dupes {
		if d.Equity >= *minEquityFlag {
			kept = append(kept, d)
		}
	}

	if *eventsFlag {
		writer := newEventWriter(os.Stdout, *itemFlag)
		sender := publisher.NewSender(writer, cfg.Market.ImageURL, logger)
		if err := sender.PublishDupes(ctx, snap.Generation, snap.CreatedAt, kept); err != nil {
			logger.Error("Failed to render events", "error", err)
			os.Exit(1)
		}
		fmt.Printf("\nEvents: total=%d shown=%d\n", writer.total.Load(), writer.shown.Load())
		return
	}

	shown := printDupes(os.Stdout, kept, *itemFlag)
	if shown == 0 {
		fmt.Println("No dupes found")
	}
	fmt.Printf("\nDemands=%d offers=%d dupes=%d ignored=%d\n", len(demands), len(offers), shown, len(ignored))
}
