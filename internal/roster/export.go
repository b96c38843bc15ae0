package roster

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	rosterSheet  = "Roster"
	skippedSheet = "Skipped"
)

// WriteWorkbook renders a parse result as an .xlsx workbook so an operator can
// review it before submitting. Skipped and short lines are reported 1-based.
func WriteWorkbook(w io.Writer, res Result) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rosterSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	header := []interface{}{"name", "onfloor", "rit_username"}
	if err := f.SetSheetRow(rosterSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i, rec := range res.Records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{rec.Name, rec.Onfloor, rec.RitUsername}
		if err := f.SetSheetRow(rosterSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(skippedSheet); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	skippedHeader := []interface{}{"line", "reason"}
	if err := f.SetSheetRow(skippedSheet, "A1", &skippedHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	row := 2
	for _, line := range res.Skipped {
		if err := writeSkipped(f, row, line, "fewer than two fields"); err != nil {
			return err
		}
		row++
	}
	for _, line := range res.Short {
		if err := writeSkipped(f, row, line, "missing username field"); err != nil {
			return err
		}
		row++
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSkipped(f *excelize.File, row, line int, reason string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	values := []interface{}{line + 1, reason}
	return f.SetSheetRow(skippedSheet, cell, &values)
}
