package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bobarin/podcastgen/internal/api"
	"github.com/bobarin/podcastgen/internal/app"
	"github.com/bobarin/podcastgen/internal/config"
	"github.com/bobarin/podcastgen/internal/db"
	"github.com/bobarin/podcastgen/internal/logging"
	"github.com/bobarin/podcastgen/internal/queue"
	"github.com/bobarin/podcastgen/internal/storage"
	"github.com/bobarin/podcastgen/internal/worker"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	defer logger.Sync()

	logger.Info("starting podcastgen api")

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer database.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	cancelMigrate()
	logger.Info("connected to database")

	q, err := queue.New(cfg.RedisURL)
	if err != nil {
		logger.Fatal("failed to connect to queue", zap.Error(err))
	}
	defer q.Close()
	logger.Info("connected to redis queue")

	stor := storage.New(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.SupabaseStorageBucket, logger)

	handler := api.NewHandler(database, q, stor, cfg.AudioEnabled(), logger)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	}, logger)

	if cfg.BackendAPIKey == "" {
		logger.Warn("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	if cfg.WorkerEnabled {
		pipe, err := app.NewPipeline(workerCtx, cfg, logger)
		if err != nil {
			logger.Fatal("failed to build pipeline", zap.Error(err))
		}
		if !pipe.AudioAvailable() {
			logger.Warn("no speech provider configured, episodes will be script only")
		}

		w := worker.New(database, q, stor, pipe, worker.Options{
			Bucket:  stor.Bucket,
			TempDir: cfg.TempDir,
			MP3:     app.NewMP3Encoder(cfg, logger),
		}, logger)

		go func() {
			w.Start(workerCtx, cfg.MaxConcurrentJobs)
			close(workerDone)
		}()
	} else {
		close(workerDone)
	}

	go func() {
		logger.Info("api server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	workerCancel()
	select {
	case <-workerDone:
	case <-ctx.Done():
		logger.Warn("worker did not stop in time")
	}

	logger.Info("server exited")
}
