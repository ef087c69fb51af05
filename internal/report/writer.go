// Package report writes the accumulated records to a spreadsheet.
package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/Adda-Baaj/khobor-report/internal/domain"
	"github.com/Adda-Baaj/khobor-report/internal/logger"
)

const (
	// FileName is the report file written under the output directory.
	FileName = "news_data.xlsx"
	// SheetName holds the records.
	SheetName = "News"

	defaultSheet = "Sheet1"
)

// Writer serializes records into an xlsx workbook.
type Writer struct {
	log logger.Logger
}

// NewWriter builds a report writer.
func NewWriter(log logger.Logger) *Writer {
	return &Writer{log: logger.Ensure(log)}
}

// Write replaces any file at outputPath with a workbook holding a header row followed by
// one row per record, in order.
func (w *Writer) Write(records []domain.Record, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(domain.ReportColumns))
	for i, col := range domain.ReportColumns {
		header[i] = col
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, rec := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row %d: %w", i+2, err)
		}
		row := rec.Values()
		if err := f.SetSheetRow(SheetName, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save report %s: %w", outputPath, err)
	}

	w.log.InfoObj("saved news data to excel file", "report_written", map[string]any{
		"path":    outputPath,
		"records": len(records),
	})
	return nil
}

// ReadRows returns every row of the report sheet at path as text, header included.
func ReadRows(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open report %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		return nil, fmt.Errorf("read report rows: %w", err)
	}
	return rows, nil
}
