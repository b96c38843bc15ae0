package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/db"
	"github.com/ComputerScienceHouse/packet/internal/importer"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/internal/queue"
	"github.com/ComputerScienceHouse/packet/internal/storage"
	"github.com/ComputerScienceHouse/packet/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting ingestion worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer database.Close()

	redisClient, err := queue.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisClient.Close()

	s3Storage, err := storage.NewS3Storage(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize S3 storage")
	}

	imp := importer.NewImporter(packetapi.NewClient(cfg.PacketAPI), cfg.PacketAPI.Timeout)
	ingestionWorker := worker.NewIngestionWorker(
		cfg,
		db.NewRepository(database),
		s3Storage,
		imp,
		queue.NewConsumer(redisClient, cfg),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer ingestionWorker.Stop()
		return ingestionWorker.Start(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down ingestion worker...")
		return nil
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Error().Err(err).Msg("Ingestion worker failed")
	}

	log.Info().Msg("Ingestion worker exited")
}
