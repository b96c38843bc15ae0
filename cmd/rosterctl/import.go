package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ComputerScienceHouse/packet/internal/importer"
	"github.com/ComputerScienceHouse/packet/internal/logger"
	"github.com/ComputerScienceHouse/packet/internal/model"
	"github.com/ComputerScienceHouse/packet/internal/packetapi"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

const startDateLayout = "2006-01-02"

var (
	startDate string

	summaryStyle = lipgloss.NewStyle().Bold(true)
)

var importCmd = &cobra.Command{
	Use:   "import <create-packets|sync-freshmen> <file>",
	Short: "Submit one roster file to the packet server",
	Args:  cobra.ExactArgs(2),
	RunE:  runImport,
}

func runImport(cmd *cobra.Command, args []string) error {
	mode, err := parseImportArgs(args[0])
	if err != nil {
		return err
	}

	imp := importer.NewImporter(packetapi.NewClient(cfg.PacketAPI), cfg.PacketAPI.Timeout)
	_, err = importFile(cmd.Context(), cmd.OutOrStdout(), imp, mode, args[1])
	return err
}

func parseImportArgs(rawMode string) (model.Mode, error) {
	mode, err := model.ParseMode(rawMode)
	if err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidMode, err)
	}
	if startDate != "" {
		if _, err := time.Parse(startDateLayout, startDate); err != nil {
			return "", errors.ValidationError{Field: "start-date", Value: startDate, Message: "must be YYYY-MM-DD"}
		}
	}
	return mode, nil
}

// importFile runs one import of the file at path. Ignored and empty rosters
// are not errors.
func importFile(ctx context.Context, out io.Writer, imp *importer.Importer, mode model.Mode, path string) (*importer.Result, error) {
	log := logger.Get().With().Str("file", path).Str("mode", string(mode)).Logger()

	req := importer.Request{Mode: mode, FileName: path, StartDate: startDate}
	f, err := os.Open(path)
	if err != nil {
		// An unreadable file is treated like a missing selection.
		log.Debug().Err(err).Msg("Roster file not readable")
	} else {
		defer f.Close()
		req.Content = f
	}

	ctrl := importer.NewTerminalControl(out, "Uploading")
	res, err := imp.Import(ctx, req, ctrl)
	if err != nil {
		return res, err
	}

	switch res.Outcome {
	case importer.OutcomeIgnored:
		log.Debug().Msg("Roster ignored")
	case importer.OutcomeEmpty:
		log.Debug().Int("skipped", len(res.Roster.Skipped)).Msg("Roster has no records")
	case importer.OutcomeSubmitted:
		fmt.Fprintln(out, summaryStyle.Render(fmt.Sprintf("%d records submitted", len(res.Roster.Records))))
	}
	return res, nil
}
