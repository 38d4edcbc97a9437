package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Stephi-25/Odjassa/internal/config"
	"github.com/Stephi-25/Odjassa/internal/database"
	"github.com/Stephi-25/Odjassa/internal/delivery"
	"github.com/Stephi-25/Odjassa/internal/httpapi"
	"github.com/Stephi-25/Odjassa/internal/identity"
	"github.com/Stephi-25/Odjassa/internal/inventory"
	"github.com/Stephi-25/Odjassa/internal/jobs"
	"github.com/Stephi-25/Odjassa/internal/logging"
	"github.com/Stephi-25/Odjassa/internal/metrics"
	"github.com/Stephi-25/Odjassa/internal/orders"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("Build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database)
	if err != nil {
		logger.Fatal("database_connect_failed", zap.Error(err))
	}
	defer db.Close()
	logger.Info("database_connected", zap.Int("max_open_conns", cfg.Database.MaxOpenConns))

	m := metrics.New(prometheus.DefaultRegisterer)

	guard := inventory.NewGuard(cfg.Inventory.LockNoWait, m)
	orderService := orders.NewService(db, guard, database.TxOptionsFromConfig(cfg.Tx), cfg.Orders, logger, m)
	coordinator := delivery.NewCoordinator(db, orderService, cfg.Tx.Timeout, cfg.Orders, logger, m)
	stockService := inventory.NewStockService(db, logger)

	server := httpapi.NewServer(httpapi.Deps{
		Orders:   orderService,
		Delivery: coordinator,
		Stock:    stockService,
		Auth:     identity.NewResolver(db),
		DB:       db,
		Metrics:  metrics.Handler(prometheus.DefaultGatherer),
		Logger:   logger,
	})

	jobManager := jobs.NewJobManager()
	if cfg.Jobs.Enabled {
		jobManager = jobs.NewJobManager(jobs.NewCompletionJob(orderService,
			cfg.Jobs.CompletionSchedule, cfg.Jobs.CompletionGrace, cfg.Jobs.CompletionBatch,
			cfg.Tx.Timeout, logger, m))
	}
	if err := jobManager.StartAll(); err != nil {
		logger.Fatal("jobs_start_failed", zap.Error(err))
	}
	defer jobManager.StopAll()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      server.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}
