package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/rl1809/pos-sync/internal/adapter/connectivity"
	"github.com/rl1809/pos-sync/internal/adapter/handler"
	"github.com/rl1809/pos-sync/internal/adapter/storage"
	"github.com/rl1809/pos-sync/internal/config"
	"github.com/rl1809/pos-sync/internal/core/service"
	"github.com/rl1809/pos-sync/internal/port"
)

func main() {
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load config")
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Remote system of record. Startup must not require connectivity: an
	// unreachable remote just means the device boots offline.
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.WithError(err).Fatal("invalid mysql dsn")
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		log.WithError(err).Warn("remote store unreachable, starting offline")
	} else {
		log.Info("connected to remote store")
	}

	remote := storage.NewMySQLStore(db)

	// Local durable queue.
	var queue port.LocalQueue
	var rdb *redis.Client
	switch cfg.QueueBackend {
	case config.QueueBackendRedis:
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("failed to connect redis")
		}
		defer rdb.Close()
		queue = storage.NewRedisQueue(rdb)
		log.WithField("addr", cfg.RedisAddr).Info("using redis queue backend")
	default:
		fq, err := storage.NewFileQueue(cfg.QueuePath)
		if err != nil {
			log.WithError(err).Fatal("failed to open queue file")
		}
		queue = fq
		log.WithField("path", cfg.QueuePath).Info("using file queue backend")
	}

	// Connectivity monitor.
	probe := connectivity.NewProbe(
		connectivity.TCPDialer(cfg.ProbeTarget, cfg.ProbeInterval),
		cfg.ProbeInterval,
		cfg.OnlineDebounce,
		log,
	)
	probe.Start(ctx)

	// Core services.
	submitter := service.NewSubmitter(remote, cfg.SubmitTimeout, log)
	projection := service.NewStockProjection(remote, queue, cfg.SnapshotTTL, log)
	capture := service.NewCaptureService(probe, queue, submitter, projection, log)
	reconciler := service.NewReconciler(queue, submitter, probe, projection, log)
	reconciler.Start(ctx)

	// HTTP surface.
	httpHandler := handler.NewHTTPHandler(capture, reconciler, projection, queue, probe, cfg.BranchID, log)
	mux := http.NewServeMux()
	mux.HandleFunc("/health", httpHandler.HealthCheck)
	mux.HandleFunc("/api/checkout", httpHandler.Checkout)
	mux.HandleFunc("/api/stock/", httpHandler.Stock)
	mux.HandleFunc("/api/sync/status", httpHandler.SyncStatus)
	mux.HandleFunc("/api/sync/drain", httpHandler.TriggerDrain)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: mux,
	}

	go func() {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			log.WithError(err).Error("HTTP server error")
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	log.Info("HTTP server stopped")

	reconciler.Stop()
	log.Info("reconciler stopped")

	probe.Stop()
	log.Info("connectivity monitor stopped")
}
