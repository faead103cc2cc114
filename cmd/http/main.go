package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fsanano/marketplace/internal/config"
	"fsanano/marketplace/internal/db"
	"fsanano/marketplace/internal/handler"
	"fsanano/marketplace/internal/metrics"
	"fsanano/marketplace/internal/repository"
	"fsanano/marketplace/internal/service"
)

const serviceName = "marketplace"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel, serviceName)
	slog.SetDefault(logger)

	// 2. Setup Database
	ctx := context.Background()
	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(cfg.Database.URL, logger); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
	}

	dbPool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbPool.Close()
	logger.Info("connected to database", slog.Int("max_conns", int(cfg.Database.MaxConns)))

	// 3. Setup Logic
	repo := repository.NewRepository(dbPool)
	cartService := service.NewCartService(repo, logger)
	checkoutService := service.NewCheckoutService(repo, logger)

	srvMetrics := metrics.NewServerMetrics("http")
	cartHandler := handler.NewCartHandler(cartService, checkoutService, srvMetrics, logger)

	h := handler.NewHandler(cartHandler, srvMetrics)

	// 4. Setup Server
	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 5. Run Server with Graceful Shutdown
	go func() {
		logger.Info("starting server", slog.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", slog.Any("error", err))
		return
	}

	logger.Info("server exiting")
}

func newLogger(level, service string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})).
		With(slog.String("service", service))
}
