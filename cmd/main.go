package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"outreach-engine/internal/adapter/events"
	"outreach-engine/internal/adapter/external"
	httpadapter "outreach-engine/internal/adapter/http"
	"outreach-engine/internal/adapter/postgres"
	"outreach-engine/internal/adapter/usecase"
	"outreach-engine/internal/config"
	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
	"outreach-engine/internal/db"
)

// main is the entry point of the outreach engine. It loads configuration,
// optionally runs database migrations, initializes the database pool and
// adapters, starts the check-in scheduler and the HTTP server. On
// receiving a termination signal it gracefully shuts both down.
func main() {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			panic(r)
		} else {
			os.Exit(exitCode)
		}
	}()

	// Load configuration from environment variables.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	var logger *slog.Logger
	{
		// Initialise structured logger based on configuration.
		var handler slog.Handler
		level := cfg.Log.SlogLevel()
		switch cfg.Log.SlogFormat() {
		case "json":
			handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		default:
			handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
		}
		logger = slog.New(handler)
	}

	// Optionally run migrations if configured.
	if cfg.Psql.RunMigrations {
		if err = db.Migrate(cfg.Psql.Addr.String()); err != nil {
			logger.Error("migration error", slog.Any("error", err))
		} else {
			logger.Info("migrations applied successfully")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, cfg.Psql)
	if err != nil {
		logger.Error("database connection error", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	// Assemble the engine: store and registry over postgres, external
	// discovery and channel providers over HTTP, engine components on top.
	store := postgres.NewCampaignStore(pool)
	registry := postgres.NewRegistry(pool)
	discovery := external.NewDiscoveryClient(cfg.Discovery)
	senders := map[domain.Channel]port.ChannelSender{
		domain.ChannelEmail:   external.NewWebhookSender(domain.ChannelEmail, cfg.Discovery.BaseURL+"/v1/send/email", cfg.Dispatch),
		domain.ChannelSMS:     external.NewWebhookSender(domain.ChannelSMS, cfg.Discovery.BaseURL+"/v1/send/sms", cfg.Dispatch),
		domain.ChannelWebForm: external.NewWebhookSender(domain.ChannelWebForm, cfg.Discovery.BaseURL+"/v1/send/web_form", cfg.Dispatch),
	}
	// Lifecycle events fan out to every subscriber; the slog publisher is
	// the scrape surface, additional sinks append here.
	publisher := events.NewFanout(events.NewSlogPublisher(logger))

	tuning := usecase.TuningFromConfig(cfg.Plan)
	scorer := usecase.NewScorer(usecase.DefaultScoreWeights())
	sourcer := usecase.NewSourcer(registry, discovery, scorer, tuning.CacheTTL, logger)
	planner := usecase.NewPlanner(tuning)
	dispatcher := usecase.NewDispatcher(store, senders, cfg.Dispatch, logger)
	escalator := usecase.NewEscalator(store, sourcer, dispatcher, tuning, logger)
	checkin := usecase.NewCheckIn(store, tuning, escalator, publisher, logger)
	scheduler := usecase.NewScheduler(store, checkin, cfg.Plan.PollInterval, logger)
	svc := usecase.NewOrchestrator(store, sourcer, planner, dispatcher, publisher, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		scheduler.Run(ctx)
	}()

	handler := httpadapter.NewHandler(svc, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("server listening", slog.Int("port", int(cfg.HTTP.Port)))
		if err = srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	value := <-quit
	exitCode = 128 + int(value.(syscall.Signal))

	cancel()
	wg.Wait()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
	} else {
		logger.Info("server gracefully stopped")
	}
}
