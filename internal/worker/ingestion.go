package worker

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/config"
	"github.com/ComputerScienceHouse/packet/internal/db"
	"github.com/ComputerScienceHouse/packet/internal/importer"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/queue"
	"github.com/ComputerScienceHouse/packet/internal/storage"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/rs/zerolog"
)

const (
	inFlightRetryDelay = time.Second
	statusWriteTimeout = 5 * time.Second
)

// RosterImporter runs one import; *importer.Importer satisfies it.
type RosterImporter interface {
	Import(ctx context.Context, req importer.Request, ctrl importer.Control) (*importer.Result, error)
}

// MessageSource delivers raw queue messages; *queue.Consumer satisfies it.
type MessageSource interface {
	ConsumeIngestionQueue(ctx context.Context, handler queue.MessageHandler) error
}

type IngestionWorker struct {
	cfg        *config.Config
	repo       db.Repository
	storage    storage.Storage
	importer   RosterImporter
	consumer   MessageSource
	workerPool *WorkerPool
	log        zerolog.Logger
}

func NewIngestionWorker(
	cfg *config.Config,
	repo db.Repository,
	storage storage.Storage,
	importer RosterImporter,
	consumer MessageSource,
) *IngestionWorker {
	return &IngestionWorker{
		cfg:        cfg,
		repo:       repo,
		storage:    storage,
		importer:   importer,
		consumer:   consumer,
		workerPool: NewWorkerPool(cfg.Workers.Ingestion.Count),
		log:        logger.Component("ingestion_worker"),
	}
}

func (w *IngestionWorker) Start(ctx context.Context) error {
	w.log.Info().Msg("Starting ingestion worker")

	w.workerPool.Start(ctx)

	return w.consumer.ConsumeIngestionQueue(ctx, w.handleMessage)
}

func (w *IngestionWorker) Stop() {
	w.log.Info().Msg("Stopping ingestion worker")
	w.workerPool.Stop()
}

func (w *IngestionWorker) handleMessage(ctx context.Context, data []byte) error {
	var job model.IngestionJob
	if err := json.Unmarshal(data, &job); err != nil {
		w.log.Error().Err(err).Msg("Failed to unmarshal ingestion job")
		return err
	}

	w.log.Info().
		Int64("import_id", job.ImportID).
		Str("s3_path", job.S3Path).
		Str("mode", string(job.Mode)).
		Msg("Received ingestion job")

	return w.workerPool.Submit(ctx, func(ctx context.Context) error {
		if ctx.Err() != nil {
			return w.abandon(ctx, job)
		}
		return w.processImport(ctx, job)
	})
}

func (w *IngestionWorker) processImport(ctx context.Context, job model.IngestionJob) error {
	log := w.log.With().
		Int64("import_id", job.ImportID).
		Str("mode", string(job.Mode)).
		Logger()

	imp, err := w.repo.GetImport(ctx, job.ImportID)
	if err != nil {
		return w.fail(ctx, log, job.ImportID, fmt.Errorf("failed to load import: %w", err))
	}
	if imp.Status.Terminal() {
		log.Info().Str("status", string(imp.Status)).Msg("Import already finished, skipping redelivered job")
		return nil
	}

	exists, err := w.storage.Exists(ctx, job.S3Path)
	if err != nil {
		return w.fail(ctx, log, job.ImportID, fmt.Errorf("failed to check roster in storage: %w", err))
	}
	if !exists {
		return w.fail(ctx, log, job.ImportID, fmt.Errorf("roster file %s is no longer in storage", job.S3Path))
	}

	log.Debug().Msg("Downloading roster from S3")
	reader, err := w.storage.Download(ctx, job.S3Path)
	if err != nil {
		return w.fail(ctx, log, job.ImportID, fmt.Errorf("failed to download roster: %w", err))
	}
	defer reader.Close()

	ctrl := &statusControl{ctx: ctx, repo: w.repo, importID: job.ImportID, log: log}
	req := importer.Request{
		Mode:      job.Mode,
		FileName:  job.FileName,
		Content:   reader,
		StartDate: job.StartDate,
	}

	res, err := w.importWhenFree(ctx, req, ctrl)
	if res != nil {
		progress := model.ImportProgress{
			RecordCount:  len(res.Roster.Records),
			SkippedCount: len(res.Roster.Skipped),
			HTTPStatus:   res.StatusCode,
		}
		if perr := w.repo.UpdateImportProgress(ctx, job.ImportID, progress); perr != nil {
			log.Error().Err(perr).Msg("Failed to record import progress")
		}
	}

	switch {
	case res != nil && res.Outcome == importer.OutcomeRejected:
		// The control already stored the alert.
		log.Warn().Int("status", res.StatusCode).Msg("Roster rejected by packet server")
		return err
	case res != nil && res.Outcome == importer.OutcomeSubmitted && err != nil:
		log.Error().Err(err).Msg("Roster submitted but status was not recorded")
		return err
	case err != nil:
		return w.fail(ctx, log, job.ImportID, err)
	}

	switch res.Outcome {
	case importer.OutcomeIgnored:
		return w.setStatus(ctx, job.ImportID, model.ImportStatusIgnored)
	case importer.OutcomeEmpty:
		return w.setStatus(ctx, job.ImportID, model.ImportStatusEmpty)
	}

	log.Info().Int("records", len(res.Roster.Records)).Msg("Roster imported")
	return nil
}

// importWhenFree waits out imports of the same mode already running in
// another worker instead of dropping the queued job.
func (w *IngestionWorker) importWhenFree(ctx context.Context, req importer.Request, ctrl importer.Control) (*importer.Result, error) {
	for {
		res, err := w.importer.Import(ctx, req, ctrl)
		if !stderrors.Is(err, errors.ErrImportInFlight) {
			return res, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(inFlightRetryDelay):
		}
	}
}

func (w *IngestionWorker) setStatus(ctx context.Context, importID int64, status model.ImportStatus) error {
	return w.repo.UpdateImportStatus(ctx, importID, status, nil)
}

// abandon marks a job that was still queued when the worker shut down.
func (w *IngestionWorker) abandon(ctx context.Context, job model.IngestionJob) error {
	log := w.log.With().Int64("import_id", job.ImportID).Logger()
	return w.fail(ctx, log, job.ImportID, stderrors.New("ingestion worker stopped before the import ran"))
}

// fail records FAILED even when ctx is already cancelled.
func (w *IngestionWorker) fail(ctx context.Context, log zerolog.Logger, importID int64, err error) error {
	log.Error().Err(err).Msg("Import failed")
	msg := err.Error()

	statusCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), statusWriteTimeout)
	defer cancel()
	if uerr := w.repo.UpdateImportStatus(statusCtx, importID, model.ImportStatusFailed, &msg); uerr != nil {
		log.Error().Err(uerr).Msg("Failed to update import status")
	}
	return err
}
