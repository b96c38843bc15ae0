package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.Get()

	log.Info().Str("version", cfg.App.Version).Msg("Starting LDAP sync worker")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	syncWorker := worker.NewLDAPSyncWorker(cfg, packetapi.NewClient(cfg.PacketAPI))
	if err := syncWorker.Start(ctx); err != nil && !stderrors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("LDAP sync worker failed")
	}

	log.Info().Msg("LDAP sync worker exited")
}
