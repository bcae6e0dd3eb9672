package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salonbook/internal/api"
	"salonbook/internal/booking"
	"salonbook/internal/cache"
	"salonbook/internal/config"
	"salonbook/internal/conflict"
	"salonbook/internal/db"
	"salonbook/internal/events"
	"salonbook/internal/metrics"
	"salonbook/internal/slots"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	cfg, err := config.Load(config.PathFromEnv())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger = newLogger(cfg)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Scheduling.Timezone).Msg("unknown timezone")
	}

	database, err := db.NewDB(cfg.Database.Path, loc, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open db error")
	}
	defer database.Close()

	var rdb *redis.Client
	if cfg.Redis.Address != "" && cfg.Redis.CacheTTLSeconds > 0 {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
	}
	cacheLogger := logger.With().Str("component", "cache").Logger()
	catalog := cache.NewCatalog(database, rdb, cfg.CacheTTL(), &cacheLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initial load + hot reload of the salon roster
	if err := config.WatchRoster(ctx, cfg.RosterPath, cfg.RosterReloadInterval(), func(roster *config.RosterConfig) {
		if err := database.SyncRoster(ctx, roster); err != nil {
			logger.Error().Err(err).Msg("failed to apply roster")
			return
		}
		if err := catalog.Invalidate(ctx); err != nil {
			logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
		}
		logger.Info().Time("reloaded_at", time.Now()).Msg("roster applied")
	}, func(err error) {
		logger.Error().Err(err).Msg("failed to reload roster, keeping previous one")
	}); err != nil {
		logger.Error().Err(err).Str("path", cfg.RosterPath).Msg("failed to start roster watcher")
	}

	backupLogger := logger.With().Str("component", "backup").Logger()
	backups := db.NewBackupService(database, db.BackupConfig{
		Enabled:       cfg.Backup.Enabled,
		Interval:      cfg.BackupInterval(),
		StoragePath:   cfg.Backup.Path,
		RetentionDays: cfg.Backup.RetentionDays,
	}, &backupLogger)
	go backups.Start(ctx)

	opts := slots.Options{
		IntervalMinutes:  cfg.Scheduling.SlotIntervalMinutes,
		BufferMinutes:    cfg.Scheduling.BufferMinutes,
		LookaheadMinutes: cfg.Scheduling.LookaheadMinutes,
		Location:         loc,
		Now:              time.Now,
		Role:             cfg.Scheduling.SchedulableRole,
	}
	slotLogger := logger.With().Str("component", "slots").Logger()
	validatorLogger := logger.With().Str("component", "conflict").Logger()
	bookingLogger := logger.With().Str("component", "booking").Logger()

	validator := conflict.NewValidator(database, &validatorLogger)
	bus := events.NewEventBus(&bookingLogger)
	bus.Subscribe(events.AppointmentCreated, logEvent(&bookingLogger))
	bus.Subscribe(events.AppointmentRescheduled, logEvent(&bookingLogger))
	bus.Subscribe(events.AppointmentCancelled, logEvent(&bookingLogger))

	readiness := []api.ReadinessCheck{{Name: "db", Check: database.Ready}}
	if rdb != nil {
		readiness = append(readiness, api.ReadinessCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	server := api.NewHTTPServer(api.Config{
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.ReadTimeout(),
		WriteTimeout: cfg.WriteTimeout(),
		RateLimit: api.RateLimitConfig{
			PerSecond: cfg.Server.RateLimitPerSecond,
			Burst:     cfg.Server.RateLimitBurst,
		},
	}, api.Deps{
		Catalog:    catalog,
		Resolver:   slots.NewResolver(database, opts, &slotLogger),
		Aggregator: slots.NewAggregator(database, opts, &slotLogger),
		Validator:  validator,
		Booking:    booking.NewService(validator, database, bus, &bookingLogger),
		Ready:      readiness,
	}, &logger)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, readiness, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	logger.Info().Str("timezone", loc.String()).Msg("salonbook started")
	if err := server.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("http server error")
	}
	logger.Info().Msg("salonbook stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	if cfg.Logging.Format == "json" {
		out = os.Stdout
	}
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

func logEvent(logger *zerolog.Logger) events.EventHandler {
	return func(e events.Event) error {
		logger.Debug().
			Str("event_id", e.ID).
			Str("event_type", e.Type).
			RawJSON("payload", e.Payload).
			Msg("event")
		return nil
	}
}

func startHealthServer(ctx context.Context, port int, checks []api.ReadinessCheck, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", api.HealthHandler())
	mux.Handle("/readyz", api.ReadyHandler(checks))
	serve(ctx, port, mux, "health", logger)
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	serve(ctx, port, mux, "metrics", logger)
}

func serve(ctx context.Context, port int, handler http.Handler, name string, logger *zerolog.Logger) {
	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: handler, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msgf("%s server error", name)
	}
}
