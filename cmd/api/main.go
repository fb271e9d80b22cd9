package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentmarket/internal/api"
	"rentmarket/internal/availability"
	"rentmarket/internal/config"
	"rentmarket/internal/database"
	"rentmarket/internal/events"
	"rentmarket/internal/export"
	"rentmarket/internal/inventory"
	"rentmarket/internal/logging"
	"rentmarket/internal/metrics"
	"rentmarket/internal/records"
	"rentmarket/internal/service"
	"rentmarket/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	db, err := initDatabase(cfg, &logger)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := initRedis(cfg, &logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var sinks []events.Sink
	if redisClient != nil {
		sinks = append(sinks, events.NewRedisSink(redisClient, ""))
	}
	if cfg.Kafka.Enabled {
		kafkaSink := events.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}

	eventsLogger := logging.Component(&logger, "events")
	notifier := events.NewNotifier(&eventsLogger, sinks...)

	ledgerLogger := logging.Component(&logger, "ledger")
	svc := service.NewReservationService(
		db,
		availability.NewCalculator(db),
		inventory.NewLedger(db, &ledgerLogger),
		records.NewFactory(db),
		notifier,
		&logger,
		service.Options{
			LateFeeMultiplier: cfg.Pricing.LateFeeMultiplier,
			MaxRentalDays:     cfg.Pricing.MaxRentalDays,
		},
	)

	if cfg.Worker.OverdueScanEnabled {
		scanLogger := logging.Component(&logger, "overdue-scanner")
		scanner := worker.NewOverdueScanner(
			db, svc,
			time.Duration(cfg.Worker.ScanIntervalSeconds)*time.Second,
			worker.RetryPolicy{},
			&scanLogger,
		)
		go scanner.Run(ctx)
	}

	startMetrics(ctx, cfg, &logger)

	exportLogger := logging.Component(&logger, "export")
	exporter := export.NewExporter(db, cfg.Exports.Path, &exportLogger)

	httpServer := api.NewHTTPServer(cfg.API, svc, exporter, &logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func loadConfigAndLogger() (*config.Config, zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, zerolog.Logger{}, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "api-main").Logger()

	return cfg, logger, closer, nil
}

func initDatabase(cfg *config.Config, logger *zerolog.Logger) (*database.DB, error) {
	db, err := database.NewDB(cfg.Database.Path, logger)
	if err != nil {
		logger.Error().Err(err).Str("db_path", cfg.Database.Path).Msg("init database")
		return nil, err
	}

	// seed the catalog; existing live counters are preserved
	for i := range cfg.Products {
		if err := db.UpsertProduct(context.Background(), &cfg.Products[i]); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("seed product %s: %w", cfg.Products[i].ID, err)
		}
	}
	logger.Info().Int("products", len(cfg.Products)).Msg("catalog seeded")

	return db, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, continuing without redis")
		return nil
	}

	logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	return redisClient
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Monitoring.PrometheusPort),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("metrics listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("metrics server error")
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()
}
