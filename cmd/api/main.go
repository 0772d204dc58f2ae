package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nadi/reservation-engine/internal/app"
	"github.com/nadi/reservation-engine/internal/clock"
	"github.com/nadi/reservation-engine/internal/config"
	"github.com/nadi/reservation-engine/internal/events"
	"github.com/nadi/reservation-engine/internal/events/kafka"
	"github.com/nadi/reservation-engine/internal/events/rabbitmq"
	"github.com/nadi/reservation-engine/internal/obs"
	"github.com/nadi/reservation-engine/internal/redisx"
	"github.com/nadi/reservation-engine/internal/slots"
	"github.com/nadi/reservation-engine/internal/storage/memory"
	"github.com/nadi/reservation-engine/internal/storage/postgres"
	transporthttp "github.com/nadi/reservation-engine/internal/transport/http"
	"github.com/nadi/reservation-engine/migrations"
)

// set with -ldflags "-X main.version=..."
var version = "dev"

const redisKeyPrefix = "nadi:"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := obs.NewLogger(os.Stderr, "info", "reservation-engine", false)
		bootLogger.Fatal().Err(err).Msg("load config")
	}
	logger := obs.NewLogger(os.Stdout, cfg.LogLevel, cfg.ServiceName, cfg.LogPretty)
	zerolog.DefaultContextLogger = &logger

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownTracer, err := obs.InitTracer(startupCtx, cfg.ServiceName, version, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal().Err(err).Msg("init tracer")
	}
	if cfg.OTLPEndpoint == "" {
		logger.Warn().Msg("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
	}

	var (
		store   app.ReservationStore
		catalog app.CatalogRepository
		ready   []transporthttp.ReadinessCheck
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		logger.Warn().Msg("STORE_DRIVER=memory, reservations are lost on restart")
		store = memory.NewReservationStore()
		catalog = memory.NewCatalogStore()
	default:
		pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to db")
		}
		defer pool.Close()

		if err := pool.Ping(startupCtx); err != nil {
			logger.Fatal().Err(err).Msg("db ping")
		}
		if err := migrations.Apply(startupCtx, pool); err != nil {
			logger.Fatal().Err(err).Msg("apply migrations")
		}
		store = postgres.NewReservationRepository(pool)
		catalog = postgres.NewCatalogRepository(pool)
		ready = append(ready, transporthttp.ReadinessCheck{Name: "postgres", Check: pool.Ping})
	}

	index := slots.New()
	n, err := app.RebuildIndex(startupCtx, store, index)
	if err != nil {
		logger.Fatal().Err(err).Msg("rebuild slot index")
	}
	logger.Info().Int("active", n).Msg("slot index loaded")

	opts := []app.Option{
		app.WithLogger(logger),
		app.WithHoldTTL(cfg.HoldTTL),
		app.WithAllowPastStart(cfg.AllowPastStart),
		app.WithSweepInterval(cfg.SweepInterval),
		app.WithSweepBatchSize(cfg.SweepBatchSize),
	}

	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr)
		defer rdb.Close()
		if err := redisx.Ping(startupCtx, rdb); err != nil {
			logger.Fatal().Err(err).Msg("connect to redis")
		}
		opts = append(opts,
			app.WithAvailabilityCache(redisx.NewAvailabilityCache(rdb, redisKeyPrefix, cfg.AvailabilityCacheTTL)),
			app.WithSweepLock(redisx.NewLease(rdb, redisKeyPrefix)),
		)
		ready = append(ready, transporthttp.ReadinessCheck{Name: "redis", Check: redisCheck(rdb)})
	} else {
		logger.Warn().Msg("REDIS_ADDR not set, availability cache and sweeper lease disabled")
	}

	publisher, closePublisher := newPublisher(cfg, logger)
	defer closePublisher()
	opts = append(opts, app.WithEvents(publisher, cfg.ServiceName))

	clk := clock.NewSystem()
	admin := app.NewAdminService(catalog)
	holdSvc := app.NewHoldService(store, index, admin, admin, clk, opts...)
	reservationSvc := app.NewReservationService(store, index, clk, opts...)
	availabilitySvc := app.NewAvailabilityService(index, opts...)
	sweeper := app.NewSweeper(store, index, clk, opts...)

	if len(cfg.CORSOrigins) == 0 {
		logger.Warn().Msg("CORS_ORIGINS empty, cross-origin requests will be refused")
	}
	router := transporthttp.NewRouter(transporthttp.Services{
		Holds:        holdSvc,
		Reservations: reservationSvc,
		Availability: availabilitySvc,
		Admin:        admin,
		Ready:        ready,
	}, transporthttp.RouterConfig{
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		sweeper.Run(sweepCtx)
	}()

	logger.Info().Str("addr", server.Addr).Str("store", cfg.StoreDriver).Str("events", cfg.EventsDriver).Msg("api listening")

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	case <-stopCtx.Done():
		logger.Info().Msg("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	stopSweeper()
	<-sweepDone
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown")
	}
	logger.Info().Msg("server stopped")
}

func newPublisher(cfg config.Config, logger zerolog.Logger) (app.EventPublisher, func()) {
	switch cfg.EventsDriver {
	case config.EventsDriverKafka:
		p := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, 256, logger)
		p.Start()
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing events to kafka")
		return p, p.Close
	case config.EventsDriverRabbitMQ:
		p, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange)
		if err != nil {
			logger.Fatal().Err(err).Msg("connect to rabbitmq")
		}
		logger.Info().Str("exchange", cfg.RabbitExchange).Msg("publishing events to rabbitmq")
		return p, func() {
			if err := p.Close(); err != nil {
				logger.Warn().Err(err).Msg("close rabbitmq publisher")
			}
		}
	default:
		return events.Noop{}, func() {}
	}
}

func redisCheck(rdb *redis.Client) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
