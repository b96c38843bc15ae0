package worker

import (
	"context"

	"github.com/ComputerScienceHouse/packet/internal/db"
	"github.com/ComputerScienceHouse/packet/internal/model"

	"github.com/rs/zerolog"
)

// statusControl records import feedback on the imports row instead of a screen.
type statusControl struct {
	ctx      context.Context
	repo     db.Repository
	importID int64
	log      zerolog.Logger
}

func (c *statusControl) Busy() {
	c.set(model.ImportStatusSubmitting, nil)
}

func (c *statusControl) Dismiss() {}

func (c *statusControl) Refresh(ctx context.Context) error {
	return c.repo.UpdateImportStatus(ctx, c.importID, model.ImportStatusSubmitted, nil)
}

func (c *statusControl) Alert(message string) {
	c.set(model.ImportStatusRejected, &message)
}

func (c *statusControl) set(status model.ImportStatus, message *string) {
	if err := c.repo.UpdateImportStatus(c.ctx, c.importID, status, message); err != nil {
		c.log.Error().Err(err).Str("status", string(status)).Msg("Failed to update import status")
	}
}
