// Command server runs the Global Data API: the country and status read
// endpoints plus the optional background refresh worker. Business logic
// lives in the internal service packages.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	countrycache "globaldata/internal/country/cache"
	countryhandler "globaldata/internal/country/handler"
	countrymetrics "globaldata/internal/country/metrics"
	countryservice "globaldata/internal/country/service"
	countrystore "globaldata/internal/country/store"
	"globaldata/internal/events"
	"globaldata/internal/platform/config"
	"globaldata/internal/platform/httpserver"
	"globaldata/internal/platform/logger"
	"globaldata/internal/platform/metrics"
	"globaldata/internal/platform/postgres"
	platformredis "globaldata/internal/platform/redis"
	"globaldata/internal/provider"
	"globaldata/internal/refresh"
	"globaldata/internal/status"
	statushandler "globaldata/internal/status/handler"
	httptransport "globaldata/internal/transport/http"
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

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	if err != nil {
		log.Error("kafka connection failed", "error", err.Error())
		os.Exit(1)
	}
	defer publisher.Close()

	countries := countrystore.NewPostgres(db)
	statusStore := status.NewPostgresStore(db)
	summaryCache := countrycache.NewSummaryCache(redisClient, cfg.SummaryCacheTTL)

	refreshOpts := []refresh.Option{refresh.WithMetrics(refresh.NewMetrics())}
	if publisher != nil {
		refreshOpts = append(refreshOpts, refresh.WithEventPublisher(publisher))
	}
	if summaryCache != nil {
		refreshOpts = append(refreshOpts, refresh.WithCacheInvalidator(summaryCache))
	}
	refresher := refresh.NewService(
		provider.NewHTTPCountriesClient(cfg.CountriesAPIURL, cfg.ProviderTimeout),
		provider.NewHTTPRatesClient(cfg.ExchangeRateAPIURL, cfg.ProviderTimeout),
		countries,
		statusStore,
		txcontext.SQLRunner{DB: db},
		log,
		refreshOpts...,
	)

	readOpts := []countryservice.Option{countryservice.WithMetrics(countrymetrics.New())}
	if summaryCache != nil {
		readOpts = append(readOpts, countryservice.WithSummaryCache(summaryCache))
	}
	countrySvc := countryservice.New(countries, statusStore, log, readOpts...)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:  log,
		Metrics: metrics.New(),
		Country: countryhandler.New(countrySvc, refresher, log),
		Status:  statushandler.New(statusStore, log),
		DB:      db,
		Redis:   redisClient,
	})

	srv := httpserver.New(cfg.Addr, router)

	if cfg.RefreshInterval > 0 {
		worker := refresh.NewWorker(refresher, cfg.RefreshInterval, log)
		go func() {
			if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("refresh worker stopped", "error", err.Error())
			}
		}()
		log.Info("refresh worker started", "interval", cfg.RefreshInterval.String())
	}

	go func() {
		log.Info("starting globaldata API", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("server stopped")
}
