// Package main is the entry point for the traffic slot reservation service.
// Its sole responsibility is wiring dependencies together and starting the
// AMQP consumer and the operational HTTP server. No business logic belongs here.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"

	"github.com/transitlab/traffic-service/internal/config"
	"github.com/transitlab/traffic-service/internal/geo"
	"github.com/transitlab/traffic-service/internal/handler"
	"github.com/transitlab/traffic-service/internal/messaging"
	"github.com/transitlab/traffic-service/internal/planner"
	"github.com/transitlab/traffic-service/internal/repo"
	"github.com/transitlab/traffic-service/internal/service"
	"github.com/transitlab/traffic-service/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	// JSON handler writes machine-readable output suitable for log aggregators.
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// --- Database ---------------------------------------------------------
	// pgxpool manages a pool of Postgres connections.
	// New() does not open connections immediately — the first query does.
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify the DB is reachable before accepting traffic.
	if err := pool.Ping(context.Background()); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Migrations -------------------------------------------------------
	// goose needs database/sql, not the pgx pool, so open a throwaway
	// connection just for schema setup.
	if err := runMigrations(cfg.DatabaseURL); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("database schema up to date")

	// --- Domain services --------------------------------------------------
	gazetteer := geo.Default()
	routePlanner := planner.NewRandom(gazetteer, cfg.MaxRouteStops)
	capacity := service.NewBandedProvider(
		service.CapacityBand{Min: cfg.CityCapacityMin, Max: cfg.CityCapacityMax},
		service.CapacityBand{Min: cfg.CountryCapacityMin, Max: cfg.CountryCapacityMax},
	)

	slots := repo.NewSlotStore(pool, capacity.Provision, logger)
	journeys := repo.NewJourneyRepo(pool)
	routes := repo.NewRouteRepo(pool)

	reservation := service.NewReservation(slots, service.RetryPolicy{
		MaxAttempts: cfg.LockRetryAttempts,
		Base:        cfg.LockRetryBase,
		Cap:         cfg.LockRetryCap,
	}, logger)
	saga := service.NewSaga(reservation, slots, journeys, routes, gazetteer, logger)

	// --- Messaging --------------------------------------------------------
	broker, err := messaging.Connect(cfg.AMQPURL, cfg.ExchangeName, cfg.QueueName, cfg.RoutingKey, cfg.Prefetch)
	if err != nil {
		slog.Error("failed to connect to message broker", "error", err)
		os.Exit(1)
	}
	defer broker.Close()
	slog.Info("message broker connection established",
		"exchange", cfg.ExchangeName, "queue", cfg.QueueName)

	publisher := messaging.NewAMQPPublisher(broker, cfg.PublishRetryAttempts, logger)
	events := messaging.NewEventHandler(saga, journeys, routePlanner, gazetteer, publisher, logger)
	consumer := messaging.NewConsumer(broker, events, logger)

	consumeCtx, stopConsumer := context.WithCancel(context.Background())
	defer stopConsumer()

	consumerDone := make(chan error, 1)
	go func() {
		consumerDone <- consumer.Start(consumeCtx)
	}()

	// --- HTTP Server ------------------------------------------------------
	// Explicit timeouts prevent slowloris and resource exhaustion attacks.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.NewRouter(handler.NewServer(pool), logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown: wait for OS signal, then stop consuming, let
	// in-flight sagas finish, and give HTTP up to 15 seconds to drain.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("ops server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("ops server error", "error", err)
			os.Exit(1)
		}
	}()

	select {
	case <-stop:
		slog.Info("shutting down")
	case err := <-consumerDone:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("consumer stopped", "error", err)
		}
	}

	stopConsumer()
	consumer.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// runMigrations applies all pending goose migrations from the embedded FS.
func runMigrations(dsn string) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return err
	}
	_, err = provider.Up(context.Background())
	return err
}
