package export

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/khorolets/near-rewards/internal/domain"
)

const (
	rewardsSheet  = "REWARDS"
	failuresSheet = "FAILURES"
	historySheet  = "HISTORY"
)

// XLSXWriter writes the report into a local spreadsheet file, replacing it.
type XLSXWriter struct {
	path string
}

// NewXLSXWriter creates an XLSXWriter for path.
func NewXLSXWriter(path string) *XLSXWriter {
	return &XLSXWriter{path: path}
}

// Name implements Writer.
func (w *XLSXWriter) Name() string { return "xlsx" }

// Write implements Writer.
func (w *XLSXWriter) Write(_ context.Context, report domain.Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", rewardsSheet); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	if err := writeSheet(f, rewardsSheet, buildRewardRows(report)); err != nil {
		return err
	}

	if len(report.Failures) > 0 {
		if _, err := f.NewSheet(failuresSheet); err != nil {
			return fmt.Errorf("creating %s sheet: %w", failuresSheet, err)
		}
		if err := writeSheet(f, failuresSheet, buildFailureRows(report)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(rewardsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("saving %s: %w", w.path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("addressing %s row %d: %w", sheet, i+1, err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
