package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/navid-fn/dupe-radar/configs"
	"github.com/navid-fn/dupe-radar/internal/cache"
	"github.com/navid-fn/dupe-radar/internal/publisher"
	"github.com/navid-fn/dupe-radar/internal/repository"
	"github.com/navid-fn/dupe-radar/internal/scraper"
	"github.com/navid-fn/dupe-radar/internal/service"
	"github.com/navid-fn/dupe-radar/internal/storage"
	"github.com/navid-fn/dupe-radar/server/internal/handler"
	"github.com/navid-fn/dupe-radar/server/internal/router"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before serving")
	flag.Parse()

	cfg := configs.AppLoad()
	logger := cfg.NewLogger()

	if !cfg.Server.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := gorm.Open(clickhouse.Open(cfg.DBDSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if *migrateFlag {
		sqlDB, err := db.DB()
		if err != nil {
			logger.Error("Failed to get sql.DB", "error", err)
			os.Exit(1)
		}
		logger.Info("Running database migrations...")
		if err := storage.Migrate(sqlDB); err != nil {
			logger.Error("Goose migration failed", "error", err)
			os.Exit(1)
		}
	}

	store, err := storage.NewClickHouseStorage(cfg.DBDSN)
	if err != nil {
		logger.Error("Failed to open ClickHouse batch connection", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	seen, err := cache.New(cfg.SeenCache.MaxItems, cfg.SeenCache.TTL)
	if err != nil {
		logger.Error("Failed to create seen cache", "error", err)
		os.Exit(1)
	}

	tradeRepo := repository.NewGormTradeRepository(db, store)
	recorder := service.NewRecorder(tradeRepo, seen, logger)
	snapshots := service.NewSnapshotStore()

	var dupePublisher service.DupePublisher
	if cfg.KafkaDupes.Enabled() {
		writer := publisher.NewWriter(cfg.KafkaDupes.Broker, cfg.KafkaDupes.Topic)
		defer writer.Close()
		dupePublisher = publisher.NewSender(writer, cfg.Market.ImageURL, logger)
		logger.Info("Publishing dupes to Kafka", "broker", cfg.KafkaDupes.Broker, "topic", cfg.KafkaDupes.Topic)
	}

	refresher := service.NewRefresher(
		scraper.NewFromConfig(cfg, logger),
		recorder,
		tradeRepo,
		snapshots,
		dupePublisher,
		service.RefresherConfig{
			Interval: cfg.Refresh.Interval,
			Timeout:  cfg.Refresh.Timeout,
			Cooldown: cfg.Refresh.Cooldown,
		},
		logger,
	)

	dupeService := service.NewDupeService(snapshots, cfg.Market.ImageURL)
	dupeHandler := handler.NewDupeHandler(dupeService, logger)

	routerConfig := &router.Config{
		DupeHandler: dupeHandler,
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router.NewRouter(routerConfig),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return refresher.Run(ctx)
	})
	g.Go(func() error {
		logger.Info("Serving dupes", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
