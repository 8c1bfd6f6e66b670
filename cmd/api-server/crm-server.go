package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crm/db"
	"crm/db/memory"
	"crm/db/migrations"
	"crm/internal/config"
	"crm/internal/domain"
	"crm/internal/handlers"
	"crm/internal/services"
	"crm/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}
	logger, err := cfg.NewLogger(os.Stdout)
	if err != nil {
		log.Fatalf("Cannot build logger: %v", err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opps, orgs, closeStore, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Error("cannot open storage", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := []services.Option{
		services.WithEventLog(domain.NewEventLog()),
		services.WithLogger(logger),
		services.WithMetrics(services.NewMetrics(reg)),
		services.WithAddressRequired(cfg.RequireAddress),
	}
	if len(cfg.KeySegments) > 0 {
		opts = append(opts, services.WithKeySegments(cfg.KeySegments))
	}

	h := handlers.NewHandler(
		services.NewOpportunityService(opps, opts...),
		services.NewOrganizationService(orgs, opps, opts...),
	)
	h.MaxBodyBytes = cfg.MaxBodyBytes
	h.Logger = logger

	srv := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           handlers.NewRouter(h, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("starting server", "address", cfg.ServerAddress, "driver", cfg.DBDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// openRepositories выбирает хранилище по DB_DRIVER и при необходимости применяет миграции
func openRepositories(ctx context.Context, cfg config.Config, logger *slog.Logger) (
	domain.Repository[models.Opportunity], domain.Repository[models.Organization], func(), error,
) {
	if cfg.DBDriver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.NewOpportunities(), memory.NewOrganizations(), func() {}, nil
	}

	conn, err := db.Open(ctx, cfg.DBDriver, cfg.DSN())
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.RunMigrations {
		if err := migrations.Run(conn.DB, db.Dialect(cfg.DBDriver)); err != nil {
			conn.Close()
			return nil, nil, nil, err
		}
		logger.Info("migrations applied")
	}

	store := db.NewStorage(conn)
	return store.Opportunities(), store.Organizations(), func() { conn.Close() }, nil
}
