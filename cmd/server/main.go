// Command server runs the image generation backend: HTTP API, queue
// dispatcher, and SQLite persistence.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/aibalabs/aiba-backend/internal/artifact"
	"github.com/aibalabs/aiba-backend/internal/config"
	"github.com/aibalabs/aiba-backend/internal/dispatch"
	httpapi "github.com/aibalabs/aiba-backend/internal/http"
	"github.com/aibalabs/aiba-backend/internal/notify"
	"github.com/aibalabs/aiba-backend/internal/observability"
	"github.com/aibalabs/aiba-backend/internal/queue"
	"github.com/aibalabs/aiba-backend/internal/repo"
	"github.com/aibalabs/aiba-backend/internal/sd"
	"github.com/aibalabs/aiba-backend/internal/sysutil"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	gin.SetMode(cfg.GinMode)

	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), "dev")
	log.Info().Str("version", version).Str("port", cfg.Port).Msg("starting aiba-backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Tracing
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	// Persistence
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database failed")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}
	if cfg.OTEL.Enabled {
		if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
			log.Warn().Err(err).Msg("gorm tracing plugin failed")
		}
	}

	// Queue, rebuilt from rows that were pending when the process last exited.
	q := queue.New(repo.RequestStatusWriter{DB: db})
	pending, err := repo.ListPendingRequests(ctx, db)
	if err != nil {
		log.Fatal().Err(err).Msg("load pending requests failed")
	}
	for _, r := range pending {
		e := queue.Entry{
			RequestID:        r.ID,
			GuildID:          r.GuildID,
			RequestorID:      r.RequestorID,
			ChannelID:        r.ChannelID,
			ReplyTo:          r.ReplyTo,
			OriginalAuthorID: r.OriginalAuthorID,
		}
		if err := q.Add(ctx, e); err != nil {
			log.Warn().Err(err).Str("request_id", r.ID).Msg("requeue on startup failed")
		}
	}
	if len(pending) > 0 {
		log.Info().Int("count", len(pending)).Msg("requeued pending requests")
	}

	// Image backend, artifacts, delivery
	generator := sd.NewClient(cfg.SD.BaseURL, cfg.SD.Timeout)
	store, err := artifact.NewDirStore(cfg.Dispatch.OutputDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Dispatch.OutputDir).Msg("output dir failed")
	}
	var notifier notify.Notifier
	if cfg.Dispatch.WebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.Dispatch.WebhookURL, 15*time.Second)
	} else {
		notifier = notify.NewLogNotifier(log.Logger)
	}

	d := &dispatch.Dispatcher{
		DB:         db,
		Queue:      q,
		Generator:  generator,
		Artifacts:  store,
		Notifier:   notifier,
		Interval:   cfg.Dispatch.Interval,
		GenTimeout: cfg.Dispatch.GenTimeout,
		Log:        log.Logger,
	}
	d.SetPaused(sysutil.IsTruthy(os.Getenv("DISPATCH_PAUSED")))
	go d.Run(ctx)

	// HTTP
	r := gin.New()
	httpapi.RegisterRoutes(r, db, q, d, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("http server failed")
	}

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("stopped")
}
