package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/document"
)

// CSVSink persists tables as UTF-8 comma-separated files: header row first,
// one row per record, "\n" line endings. Field values are free-form
// extracted text, so quoting matters; encoding/csv escapes embedded commas,
// quotes, and newlines such that any standard reader round-trips them.
type CSVSink struct {
	logger *slog.Logger
}

func NewCSVSink(logger *slog.Logger) *CSVSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &CSVSink{logger: logger}
}

func (s *CSVSink) Write(table document.Table, path string) error {
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return common.SinkFault(fmt.Sprintf("create %s", path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	rows := append([][]string{table.Header}, table.Rows...)
	if err := w.WriteAll(rows); err != nil {
		return common.SinkFault(fmt.Sprintf("write %s", path), err)
	}
	if err := f.Close(); err != nil {
		return common.SinkFault(fmt.Sprintf("close %s", path), err)
	}

	s.logger.Info("export.csv.ok",
		"path", path,
		"rows", len(table.Rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}
