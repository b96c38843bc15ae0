package main

import (
	"fmt"
	"os"

	"github.com/ComputerScienceHouse/packet/internal/roster"
	"github.com/ComputerScienceHouse/packet/pkg/errors"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	xlsxOut string

	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

var previewCmd = &cobra.Command{
	Use:   "preview <file>",
	Short: "Parse a roster file and show what would be submitted",
	Args:  cobra.ExactArgs(1),
	RunE:  runPreview,
}

func runPreview(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !roster.ValidFileName(path) {
		return fmt.Errorf("%w: %s", errors.ErrInvalidFileName, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read roster file: %w", err)
	}
	res, err := roster.NewParser().Parse(cmd.Context(), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("%-30s %-8s %s", "name", "onfloor", "rit_username")))
	for _, rec := range res.Records {
		fmt.Fprintf(out, "%-30s %-8s %s\n", rec.Name, rec.Onfloor, rec.RitUsername)
	}
	fmt.Fprintf(out, "\n%d records, %d skipped lines\n", len(res.Records), len(res.Skipped))
	if len(res.Short) > 0 {
		fmt.Fprintln(out, warnStyle.Render(fmt.Sprintf("%d records have no rit_username", len(res.Short))))
	}

	if xlsxOut == "" {
		return nil
	}
	f, err := os.Create(xlsxOut)
	if err != nil {
		return fmt.Errorf("failed to create spreadsheet: %w", err)
	}
	defer f.Close()
	if err := roster.WriteWorkbook(f, res); err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s\n", xlsxOut)
	return nil
}
