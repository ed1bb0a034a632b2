// Command worker removes canonical files orphaned by failed uploads.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/VidVault/internal/app"
	"github.com/dharsanguruparan/VidVault/internal/config"
	"github.com/dharsanguruparan/VidVault/internal/logger"
	"github.com/dharsanguruparan/VidVault/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)
	if cfg.Queue.RedisAddr == "" {
		log.Error("queue.redis_addr is not set; nothing to consume")
		os.Exit(1)
	}

	store, closeStore, err := app.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		log.Error("open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	blobs, err := app.OpenBlobs(ctx, cfg)
	if err != nil {
		log.Error("open canonical store", slog.Any("error", err))
		os.Exit(1)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{
		Addr:     cfg.Queue.RedisAddr,
		Password: cfg.Queue.RedisPassword,
		DB:       cfg.Queue.RedisDB,
	}, asynq.Config{
		Concurrency: cfg.Queue.Concurrency,
		Logger:      &asynqLogger{log: log.With(slog.String("component", "asynq"))},
	})
	processor := worker.NewProcessor(store, blobs, log)
	mux := processor.Handler()

	go func() {
		<-ctx.Done()
		server.Shutdown()
	}()

	log.Info("worker started", slog.String("redis", cfg.Queue.RedisAddr), slog.Int("concurrency", cfg.Queue.Concurrency))
	if err := server.Run(mux); err != nil {
		log.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// asynqLogger routes asynq's internal logging through slog.
type asynqLogger struct {
	log *slog.Logger
}

func (l *asynqLogger) Debug(args ...interface{}) { l.log.Debug(sprint(args)) }
func (l *asynqLogger) Info(args ...interface{})  { l.log.Info(sprint(args)) }
func (l *asynqLogger) Warn(args ...interface{})  { l.log.Warn(sprint(args)) }
func (l *asynqLogger) Error(args ...interface{}) { l.log.Error(sprint(args)) }
func (l *asynqLogger) Fatal(args ...interface{}) {
	l.log.Error(sprint(args))
	os.Exit(1)
}

func sprint(args []interface{}) string {
	return fmt.Sprint(args...)
}
