// Command server runs the VidVault HTTP API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	"github.com/dharsanguruparan/VidVault/internal/api"
	"github.com/dharsanguruparan/VidVault/internal/app"
	"github.com/dharsanguruparan/VidVault/internal/config"
	"github.com/dharsanguruparan/VidVault/internal/ingest"
	"github.com/dharsanguruparan/VidVault/internal/logger"
	"github.com/dharsanguruparan/VidVault/internal/queue"
	"github.com/dharsanguruparan/VidVault/internal/retrieval"
	"github.com/dharsanguruparan/VidVault/internal/search"
	"github.com/dharsanguruparan/VidVault/internal/transcode"
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	log := logger.Init(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	store, closeStore, err := app.OpenStore(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer closeStore()

	blobs, err := app.OpenBlobs(ctx, cfg)
	if err != nil {
		return err
	}

	transcoder := transcode.NewPool(transcode.NewFFmpeg(cfg.Transcode.FFmpegPath), cfg.Transcode.Workers, cfg.Transcode.Timeout)

	opts := ingest.Options{
		WorkDir:  cfg.Storage.WorkDir,
		MaxBytes: cfg.Server.MaxUploadBytes,
		Logger:   log,
	}
	if cfg.Queue.RedisAddr != "" {
		client := asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.Queue.RedisAddr,
			Password: cfg.Queue.RedisPassword,
			DB:       cfg.Queue.RedisDB,
		})
		defer client.Close()
		opts.Orphans = queue.NewOrphanReporter(client)
	}
	pipeline, err := ingest.New(store, blobs, transcoder, opts)
	if err != nil {
		return err
	}

	fetcher := retrieval.NewService(store, blobs, retrieval.NewAccessCache(cfg.Cache.Capacity, cfg.Cache.TTL), log)
	videos := api.NewVideoHandler(pipeline, search.NewService(store), fetcher, cfg.Server.MaxUploadBytes)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.NewServer(log, cfg.Server.Address, videos).Run(ctx)
	})
	if cfg.Server.AdminAddress != "" {
		g.Go(func() error {
			return api.NewServer(log.With(slog.String("listener", "admin")), cfg.Server.AdminAddress, api.NewAdminHandler(fetcher)).Run(ctx)
		})
	}
	return g.Wait()
}
