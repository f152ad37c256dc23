// Package main provides the entrypoint for the QA broadcast worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/roomcast/qabroadcast/internal/api"
	"github.com/roomcast/qabroadcast/internal/api/handler"
	"github.com/roomcast/qabroadcast/internal/config"
	"github.com/roomcast/qabroadcast/internal/content"
	"github.com/roomcast/qabroadcast/internal/database"
	"github.com/roomcast/qabroadcast/internal/device"
	"github.com/roomcast/qabroadcast/internal/message"
	"github.com/roomcast/qabroadcast/internal/telemetry"
	"github.com/roomcast/qabroadcast/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load() //nolint:errcheck // optional file

	log := newLogger()
	log.Info().
		Str("build_time", BuildTime).
		Msg("starting QA broadcast worker")

	if err := run(log); err != nil {
		log.Fatal().Err(err).Msg("worker failed")
	}
	log.Info().Msg("worker stopped")
}

func newLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", telemetry.DefaultServiceName).
		Str("version", Version).
		Logger()
}

func run(log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfgPath := config.PathFromEnv()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	log.Info().
		Str("path", cfgPath).
		Int("devices", len(cfg.Devices)).
		Int("min_battery_lvl", cfg.MinBatteryLevel).
		Str("schedule", cfg.SendMessage).
		Str("timezone", loc.String()).
		Msg("configuration loaded")

	telCfg := telemetry.ConfigFromEnv(Version)
	tp, err := telemetry.Init(ctx, telCfg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()
	if telCfg.Enabled {
		log.Info().Str("otlp_endpoint", telCfg.OTLPEndpoint).Msg("OpenTelemetry initialized")
	}

	dbConfig := database.ConfigFromEnv()
	pool, err := database.Connect(ctx, dbConfig, loc)
	if err != nil {
		return err
	}
	defer pool.Close()
	log.Info().
		Str("host", dbConfig.Host).
		Int("port", dbConfig.Port).
		Str("database", dbConfig.Database).
		Msg("database connected")

	job := worker.NewSendJob(worker.SendJobConfig{
		Config: worker.SendConfig{
			Barcodes:        cfg.Barcodes(),
			MinBatteryLevel: cfg.MinBatteryLevel,
			MessageContent:  cfg.MessageContent,
			Location:        loc,
		},
		Logger:   log.With().Str("component", "send").Logger(),
		Selector: device.NewSelector(device.NewPostgresRepository(pool), log),
		Renderer: content.NewRenderer(cfg.DefaultLocale),
		Writer: message.NewWriter(message.WriterConfig{
			Repository: message.NewPostgresRepository(pool),
			Logger:     log,
			UserID:     cfg.MessageUser,
			Category:   cfg.Category,
			Expiry:     cfg.Expiry,
			ZoneID:     cfg.ZoneID,
		}),
		Tracer: tp.Tracer,
		Meter:  tp.Meter,
	})

	scheduler, err := worker.NewScheduler(worker.SchedulerConfig{
		Spec:       cfg.SendMessage,
		Location:   loc,
		RunOnStart: cfg.ShouldRunOnStart(),
		Job:        job,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr: ":" + port,
		Handler: api.NewRouter(api.RouterConfig{
			Logger:         log,
			TracerProvider: tp.Tracing(),
			Ops: handler.OpsConfig{
				Version:   Version,
				BuildTime: BuildTime,
				Sends:     job,
				Ping:      pool.Ping,
				NextRun:   scheduler.Next,
			},
		}),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("ops server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var pubsubHandler *worker.PubSubHandler
	receiveCtx, stopReceive := context.WithCancel(ctx)
	defer stopReceive()
	receiveDone := make(chan struct{})
	if projectID := os.Getenv("PUBSUB_PROJECT_ID"); projectID != "" {
		subscription := os.Getenv("PUBSUB_SUBSCRIPTION")
		if subscription == "" {
			subscription = "qabroadcast-jobs"
		}

		pubsubHandler, err = worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        projectID,
			SubscriptionName: subscription,
			Dispatcher:       worker.NewJobDispatcher(job, pool.Ping, log),
			Logger:           log,
		})
		if err != nil {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			scheduler.Stop(stopCtx)
			return err
		}
		go func() {
			defer close(receiveDone)
			if err := pubsubHandler.Start(receiveCtx); err != nil && receiveCtx.Err() == nil {
				log.Error().Err(err).Msg("pubsub handler stopped")
			}
		}()
	}

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down worker")
	case runErr = <-serverErr:
		runErr = fmt.Errorf("ops server: %w", runErr)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop(shutdownCtx)
	if pubsubHandler != nil {
		stopReceive()
		select {
		case <-receiveDone:
		case <-shutdownCtx.Done():
			log.Warn().Msg("pubsub receive did not drain before shutdown deadline")
		}
		if err := pubsubHandler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server forced to shutdown")
	}
	return runErr
}
