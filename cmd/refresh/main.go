// Command refresh performs a single fetch → transform → upsert pass and
// exits. It is the scriptable counterpart of POST /countries/refresh.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	countrystore "globaldata/internal/country/store"
	"globaldata/internal/events"
	"globaldata/internal/platform/config"
	"globaldata/internal/platform/logger"
	"globaldata/internal/platform/postgres"
	"globaldata/internal/provider"
	"globaldata/internal/refresh"
	"globaldata/internal/status"
	txcontext "globaldata/pkg/platform/tx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("postgres connection failed", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db, cfg.MigrationsDir); err != nil {
		log.Error("migrations failed", "error", err.Error())
		os.Exit(1)
	}

	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("kafka connection failed", "error", err.Error())
		os.Exit(1)
	}
	defer publisher.Close()

	opts := []refresh.Option{}
	if publisher != nil {
		opts = append(opts, refresh.WithEventPublisher(publisher))
	}
	refresher := refresh.NewService(
		provider.NewHTTPCountriesClient(cfg.CountriesAPIURL, cfg.ProviderTimeout),
		provider.NewHTTPRatesClient(cfg.ExchangeRateAPIURL, cfg.ProviderTimeout),
		countrystore.NewPostgres(db),
		status.NewPostgresStore(db),
		txcontext.SQLRunner{DB: db},
		log,
		opts...,
	)

	result, err := refresher.Run(ctx)
	if err != nil {
		log.Error("refresh failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("refresh finished", "summary", result.String())
}
