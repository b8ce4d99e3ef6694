package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/medium-stack/mstack/cmd/ingestd/worker"
	"github.com/medium-stack/mstack/common/bootstrap"
	"github.com/medium-stack/mstack/common/db"
	"github.com/medium-stack/mstack/common/models"
	"github.com/medium-stack/mstack/common/probe"
	"github.com/medium-stack/mstack/common/repository"
	"github.com/medium-stack/mstack/common/storage"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// The ingest daemon only needs the database and local storage.
	components, err := bootstrap.Setup(ctx, "ingestd",
		bootstrap.WithoutRedis(),
		bootstrap.WithoutCache(),
		bootstrap.WithDBInitHook(func(database *db.DB) error {
			return database.EnsureIndexes(ctx, models.ContentCollections)
		}),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap ingestd: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	cfg := components.Config
	log := components.Logger

	files, err := storage.NewLocal(cfg.Storage.Root, log)
	if err != nil {
		log.Error("storage init failed", "error", err)
		os.Exit(1)
	}

	store := repository.NewStore(components.DB, log)
	uploads := repository.NewUploadRepository(components.DB, log)
	prober := probe.New(cfg.Probe, log)

	ingest := worker.NewIngestWorker(uploads, store, files, prober, cfg.Upload.IngestInterval, log)
	cleanup := worker.NewCleanupJob(uploads, files, cfg.Upload.Retention, cfg.Upload.Timeout, log)

	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.Upload.CleanupSchedule, func() {
		cleanup.Run(ctx)
	})
	if err != nil {
		log.Error("invalid cleanup schedule", "schedule", cfg.Upload.CleanupSchedule, "error", err)
		os.Exit(1)
	}
	scheduler.Start()

	go ingest.Run(ctx)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	log.Info("shutdown signal received", "signal", sig.String())

	cancel()
	<-scheduler.Stop().Done()
}
