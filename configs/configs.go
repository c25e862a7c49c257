// Package configs provides application configuration loaded from environment variables.
// All configuration is externalized via environment variables for 12-factor app compliance.
package configs

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // market zone must resolve in minimal images

	"github.com/joho/godotenv"
)

// AppConfig holds all application configuration.
// Load it once at startup using AppLoad().
type AppConfig struct {
	// DBDSN is the ClickHouse connection string.
	DBDSN string

	// Market points at the listing pages.
	Market MarketConfig

	// Fetch controls how market pages are downloaded.
	Fetch FetchConfig

	// Refresh controls the background refresh loop.
	Refresh RefreshConfig

	// Server contains HTTP API settings.
	Server ServerConfig

	// KafkaDupes contains Kafka settings for dupe events.
	KafkaDupes KafkaConfig

	// SeenCache sizes the in-memory cache of recorded listings.
	SeenCache CacheConfig

	// LogLevel is the minimum level written by the slog handler.
	LogLevel slog.Level
}

// MarketConfig holds the market page addresses.
type MarketConfig struct {
	DemandsURL string
	OffersURL  string

	// ImageURL is a printf template taking the item id. Empty disables images.
	ImageURL string

	// Location is the zone listing dates are printed in.
	Location *time.Location
}

// FetchConfig holds page download settings.
type FetchConfig struct {
	Timeout           time.Duration
	Retries           int
	RequestsPerSecond float64
}

// RefreshConfig holds the refresh schedule.
type RefreshConfig struct {
	Interval time.Duration
	Timeout  time.Duration
	Cooldown time.Duration
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port      string
	DebugMode bool
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	// Broker is the Kafka broker address (e.g., "localhost:9092").
	// Empty disables publishing.
	Broker string

	// Topic is the Kafka topic for dupe events.
	Topic string
}

// Enabled reports whether a broker is configured.
func (k KafkaConfig) Enabled() bool {
	return k.Broker != ""
}

// CacheConfig holds seen-listing cache settings.
type CacheConfig struct {
	MaxItems int64
	TTL      time.Duration
}

// getDatabaseDSN constructs the ClickHouse DSN from environment variables.
func getDatabaseDSN() string {
	dbUser := getEnv("CLICKHOUSE_USER", "default")
	dbPassword := getEnv("CLICKHOUSE_PASSWORD", "")
	dbHost := getEnv("CLICKHOUSE_HOST", "localhost")
	dbPort := getEnv("CLICKHOUSE_TCP_PORT", "9000")
	dbName := getEnv("CLICKHOUSE_DB", "default")

	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%s/%s?dial_timeout=10s&read_timeout=20s",
		dbUser, dbPassword, dbHost, dbPort, dbName,
	)
}

// getMarketLocation loads MARKET_TIMEZONE, falling back to UTC.
func getMarketLocation() *time.Location {
	name := getEnv("MARKET_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// AppLoad loads all application configuration from environment variables.
// It attempts to load a .env file first (for local development).
// Call this once at application startup.
func AppLoad() *AppConfig {
	_ = godotenv.Load() // Ignore error - .env is optional

	return &AppConfig{
		DBDSN: getDatabaseDSN(),
		Market: MarketConfig{
			DemandsURL: getEnv("MARKET_DEMANDS_URL", "http://market.bot.rpg-club.com/motherland/buy/price/desc"),
			OffersURL:  getEnv("MARKET_OFFERS_URL", "http://market.bot.rpg-club.com/motherland/sell/price/asc"),
			ImageURL:   getEnv("MARKET_IMAGE_URL", "http://market.bot.rpg-club.com/img/%d.png"),
			Location:   getMarketLocation(),
		},
		Fetch: FetchConfig{
			Timeout:           getEnvDuration("FETCH_TIMEOUT", 60*time.Second),
			Retries:           getEnvInt("FETCH_RETRIES", 3),
			RequestsPerSecond: getEnvFloat("FETCH_REQUESTS_PER_SECOND", 1),
		},
		Refresh: RefreshConfig{
			Interval: getEnvDuration("REFRESH_INTERVAL", 120*time.Second),
			Timeout:  getEnvDuration("REFRESH_TIMEOUT", 5*time.Minute),
			Cooldown: getEnvDuration("REFRESH_COOLDOWN", 30*time.Second),
		},
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			DebugMode: getEnvBool("DEBUGMODE", false),
		},
		KafkaDupes: KafkaConfig{
			Broker: getEnv("KAFKA_BROKER", ""),
			Topic:  getEnv("KAFKA_DUPE_TOPIC", "radar_dupes"),
		},
		SeenCache: CacheConfig{
			MaxItems: int64(getEnvInt("SEEN_CACHE_MAX_ITEMS", 100_000)),
			TTL:      getEnvDuration("SEEN_CACHE_TTL", 6*time.Hour),
		},
		LogLevel: parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}
}

// NewLogger builds the process logger at the configured level.
func (c *AppConfig) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: c.LogLevel,
	}))
}

func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// getEnv returns the environment variable value or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvDuration accepts Go durations ("90s", "2m") or plain seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
