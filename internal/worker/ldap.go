package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"

	"github.com/rs/zerolog"
)

// LDAPSyncer asks the packet server to resync its LDAP view; *packetapi.Client satisfies it.
type LDAPSyncer interface {
	SyncLDAP(ctx context.Context) (*packetapi.Response, error)
}

type LDAPSyncWorker struct {
	cfg    config.LDAPSyncWorkerConfig
	client LDAPSyncer
	timer  *time.Timer
	log    zerolog.Logger
}

func NewLDAPSyncWorker(cfg *config.Config, client LDAPSyncer) *LDAPSyncWorker {
	return &LDAPSyncWorker{
		cfg:    cfg.Workers.LDAPSync,
		client: client,
		log:    logger.Component("ldap_sync_worker"),
	}
}

func (w *LDAPSyncWorker) Start(ctx context.Context) error {
	w.log.Info().Dur("interval", w.cfg.Interval).Msg("Starting LDAP sync worker")

	if w.cfg.RunOnStart {
		w.log.Info().Msg("Running initial LDAP sync on startup")
		if err := w.syncOnce(ctx); err != nil {
			w.log.Error().Err(err).Msg("Initial LDAP sync failed")
		}
	}

	w.timer = time.NewTimer(w.cfg.Interval)
	defer w.timer.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("LDAP sync worker context cancelled")
			return ctx.Err()
		case <-w.timer.C:
			if err := w.syncOnce(ctx); err != nil {
				w.log.Error().Err(err).Msg("Scheduled LDAP sync failed")
			}
			w.log.Info().Time("next_run", time.Now().Add(w.cfg.Interval)).Msg("Scheduled next LDAP sync")
			w.timer.Reset(w.cfg.Interval)
		}
	}
}

func (w *LDAPSyncWorker) syncOnce(ctx context.Context) error {
	start := time.Now()
	resp, err := w.client.SyncLDAP(ctx)
	if err != nil {
		return err
	}
	if !resp.OK() {
		return fmt.Errorf("ldap sync returned status %d", resp.StatusCode)
	}
	w.log.Info().
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("LDAP sync completed")
	return nil
}
