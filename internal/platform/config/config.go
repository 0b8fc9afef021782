package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures everything the binaries need from the environment so main
// stays lean.
type Config struct {
	Addr      string
	LogLevel  string
	LogFormat string

	DatabaseURL   string
	MigrationsDir string

	Redis RedisConfig
	Kafka KafkaConfig

	CountriesAPIURL    string
	ExchangeRateAPIURL string
	ProviderTimeout    time.Duration

	// RefreshInterval enables the background refresh worker; zero disables it.
	RefreshInterval time.Duration
	SummaryCacheTTL time.Duration
}

// RedisConfig holds connection settings for the optional Redis cache.
// An empty URL means Redis is not configured.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds broker addresses for refresh event publishing.
// An empty broker list means events are not published.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

const (
	defaultCountriesAPIURL = "https://restcountries.com/v2/all?fields=name,capital,region,population,flag,currencies"
	defaultRatesAPIURL     = "https://open.er-api.com/v6/latest/USD"
)

// Load builds a Config from environment variables. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Addr:               getenv("GLOBALDATA_ADDR", ":8080"),
		LogLevel:           getenv("LOG_LEVEL", "info"),
		LogFormat:          getenv("LOG_FORMAT", "text"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		MigrationsDir:      getenv("MIGRATIONS_DIR", "migrations"),
		CountriesAPIURL:    getenv("COUNTRIES_API_URL", defaultCountriesAPIURL),
		ExchangeRateAPIURL: getenv("EXCHANGE_RATE_API_URL", defaultRatesAPIURL),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   getenv("KAFKA_TOPIC", "globaldata.refresh"),
		},
	}

	var err error
	if cfg.ProviderTimeout, err = getduration("PROVIDER_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.RefreshInterval, err = getduration("REFRESH_INTERVAL", 0); err != nil {
		return Config{}, err
	}
	if cfg.SummaryCacheTTL, err = getduration("SUMMARY_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.Redis.PoolSize, err = getint("REDIS_POOL_SIZE", cfg.Redis.PoolSize); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getduration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func getint(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
