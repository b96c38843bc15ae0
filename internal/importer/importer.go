package importer

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/internal/roster"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/rs/zerolog"
)

// Submitter is the part of the packet API client an import needs.
type Submitter interface {
	SubmitPackets(ctx context.Context, startDate string, records []model.PersonRecord) (*packetapi.Response, error)
	SubmitFreshmen(ctx context.Context, records []model.PersonRecord) (*packetapi.Response, error)
}

var alertMessages = map[model.Mode]string{
	model.ModeCreatePackets: "There was an error creating packets",
	model.ModeSyncFreshmen:  "There was an error syncing freshmen",
}

// AlertMessage returns the fixed message shown when the server rejects an import.
func AlertMessage(mode model.Mode) string {
	return alertMessages[mode]
}

type Outcome string

const (
	// OutcomeIgnored: the file name failed the pattern or there was nothing to read.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeEmpty: the file parsed to zero records, nothing was sent.
	OutcomeEmpty     Outcome = "empty"
	OutcomeSubmitted Outcome = "submitted"
	OutcomeRejected  Outcome = "rejected"
	// OutcomeFailed: the request never produced a response.
	OutcomeFailed Outcome = "failed"
)

type Request struct {
	Mode     model.Mode
	FileName string
	// Content is read once. A nil Content is treated like a runtime that
	// cannot read files: the import is ignored.
	Content   io.Reader
	StartDate string
}

type Result struct {
	Outcome    Outcome
	Roster     roster.Result
	StatusCode int
}

type Importer struct {
	submitter Submitter
	strategy  roster.ParsingStrategy
	timeout   time.Duration
	log       zerolog.Logger

	mu       sync.Mutex
	inFlight map[model.Mode]bool
}

func NewImporter(submitter Submitter, timeout time.Duration) *Importer {
	return &Importer{
		submitter: submitter,
		strategy:  roster.NewDelimitedStrategy(),
		timeout:   timeout,
		log:       logger.Component("importer"),
		inFlight:  make(map[model.Mode]bool),
	}
}

// Import reads, parses and submits one roster file. A bad file name, missing
// content or an empty roster end quietly with a nil error. A rejected
// submission alerts through ctrl and returns ErrSubmissionRejected; a request
// that never completes returns its transport error without alerting. In both
// failure cases ctrl is left disabled.
//
// Only one import per mode runs at a time; a concurrent call for the same mode
// returns ErrImportInFlight without sending anything.
func (im *Importer) Import(ctx context.Context, req Request, ctrl Control) (*Result, error) {
	alert, ok := alertMessages[req.Mode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errors.ErrInvalidMode, req.Mode)
	}
	if ctrl == nil {
		ctrl = NopControl{}
	}

	log := im.log.With().
		Str("mode", string(req.Mode)).
		Str("file", req.FileName).
		Logger()

	if !roster.ValidFileName(req.FileName) {
		log.Debug().Msg("Ignoring roster with invalid file name")
		return &Result{Outcome: OutcomeIgnored}, nil
	}
	if req.Content == nil {
		log.Debug().Msg("Ignoring roster without readable content")
		return &Result{Outcome: OutcomeIgnored}, nil
	}

	if !im.acquire(req.Mode) {
		log.Warn().Msg("Import already in progress")
		return nil, errors.ErrImportInFlight
	}
	defer im.release(req.Mode)

	data, err := io.ReadAll(req.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster file: %w", err)
	}

	parsed, err := im.strategy.Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster file: %w", err)
	}
	res := &Result{Roster: parsed}

	if err := im.strategy.Validate(ctx, parsed); err != nil {
		if stderrors.Is(err, errors.ErrEmptyRoster) {
			log.Debug().Int("skipped", len(parsed.Skipped)).Msg("Roster has no records, nothing to submit")
			res.Outcome = OutcomeEmpty
			return res, nil
		}
		return nil, err
	}

	log.Info().
		Int("records", len(parsed.Records)).
		Int("skipped", len(parsed.Skipped)).
		Int("short", len(parsed.Short)).
		Msg("Submitting roster")

	ctrl.Busy()

	resp, err := im.submit(ctx, req, parsed.Records)
	if err != nil {
		log.Error().Err(err).Msg("Roster submission did not complete")
		res.Outcome = OutcomeFailed
		return res, fmt.Errorf("failed to submit roster: %w", err)
	}
	res.StatusCode = resp.StatusCode

	if !resp.OK() {
		log.Warn().Int("status", resp.StatusCode).Str("body", resp.Body).Msg("Packet server rejected roster")
		ctrl.Alert(alert)
		res.Outcome = OutcomeRejected
		return res, fmt.Errorf("%w: status %d", errors.ErrSubmissionRejected, resp.StatusCode)
	}

	ctrl.Dismiss()
	res.Outcome = OutcomeSubmitted
	if err := ctrl.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Refresh after import failed")
		return res, fmt.Errorf("roster submitted but refresh failed: %w", err)
	}

	log.Info().Int("status", resp.StatusCode).Msg("Roster submitted")
	return res, nil
}

func (im *Importer) submit(ctx context.Context, req Request, records []model.PersonRecord) (*packetapi.Response, error) {
	if im.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, im.timeout)
		defer cancel()
	}

	switch req.Mode {
	case model.ModeCreatePackets:
		return im.submitter.SubmitPackets(ctx, req.StartDate, records)
	default:
		return im.submitter.SubmitFreshmen(ctx, records)
	}
}

func (im *Importer) acquire(mode model.Mode) bool {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.inFlight[mode] {
		return false
	}
	im.inFlight[mode] = true
	return true
}

func (im *Importer) release(mode model.Mode) {
	im.mu.Lock()
	delete(im.inFlight, mode)
	im.mu.Unlock()
}
