package export

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

const xlsxSheet = "Fields"

// XLSXSink renders the same table as a single-sheet workbook, an optional
// second output next to the CSV.
type XLSXSink struct {
	logger *slog.Logger
}

func NewXLSXSink(logger *slog.Logger) *XLSXSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXSink{logger: logger}
}

func (s *XLSXSink) Write(table document.Table, path string) error {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return common.SinkFault("name worksheet", err)
	}

	for i, h := range table.Header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(xlsxSheet, cell, h)
	}

	row := 2
	for _, r := range table.Rows {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(xlsxSheet, cell, v)
		}
		for col, v := range r {
			write(col+1, v)
		}
		row++
	}

	// Widen the columns holding free-form text
	_ = f.SetColWidth(xlsxSheet, "A", "A", 12) // page number
	_ = f.SetColWidth(xlsxSheet, "B", "B", 30) // field name
	_ = f.SetColWidth(xlsxSheet, "C", "C", 50) // field value

	if err := f.SaveAs(path); err != nil {
		return common.SinkFault(fmt.Sprintf("write %s", path), err)
	}

	s.logger.Info("export.xlsx.ok",
		"path", path,
		"rows", len(table.Rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
