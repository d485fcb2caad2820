// Package pipeline wires source, extraction, and sinks into one run. It
// returns classified faults and never terminates the process; entry points
// decide what a fault means for them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/formintake/formintake/constants"
	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/export"
	"github.com/formintake/formintake/internal/extract"
	"github.com/formintake/formintake/internal/history"
	"github.com/formintake/formintake/internal/source"
)

// Request identifies one document to process and where its table goes.
type Request struct {
	FilePath string
	// MimeType overrides extension-based detection when set.
	MimeType string
	CSVPath  string
	// XLSXPath adds a workbook output when set and a sink is configured.
	XLSXPath string
}

// Result summarizes one completed run.
type Result struct {
	RunID    string
	FilePath string
	Pages    int
	Fields   int
	CSVPath  string
	XLSXPath string
	Duration time.Duration
}

// Runner executes the one-shot pipeline: read file, fetch the extraction
// result, resolve fields, serialize, write sinks.
type Runner struct {
	src       source.DocumentSource
	extractor *extract.Extractor
	csv       *export.CSVSink
	xlsx      *export.XLSXSink
	store     *history.Store
	fallback  string
	logger    *slog.Logger
}

type RunnerOption func(*Runner)

// WithXLSX enables workbook output for requests carrying an XLSXPath.
func WithXLSX(sink *export.XLSXSink) RunnerOption {
	return func(r *Runner) { r.xlsx = sink }
}

// WithHistory records finished runs. Store failures are logged, never
// fatal: bookkeeping must not fail a completed run.
func WithHistory(store *history.Store) RunnerOption {
	return func(r *Runner) { r.store = store }
}

// WithFallbackMimeType replaces the default fallback for unrecognized
// extensions.
func WithFallbackMimeType(mime string) RunnerOption {
	return func(r *Runner) {
		if mime != "" {
			r.fallback = mime
		}
	}
}

func NewRunner(src source.DocumentSource, extractor *extract.Extractor, csv *export.CSVSink, logger *slog.Logger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Runner{
		src:       src,
		extractor: extractor,
		csv:       csv,
		fallback:  constants.DefaultFallbackMimeType,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes one document end to end. The run ID comes from the context
// when a caller (the batch queue) already assigned one.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	runID := common.RunIDFromContext(ctx)
	if runID == "" {
		runID = uuid.NewString()
		ctx = common.WithRunID(ctx, runID)
	}
	logger := r.logger.With("run_id", runID, "file", req.FilePath)
	started := time.Now()

	res, err := r.run(ctx, logger, req)
	if err != nil {
		logger.Error("pipeline.run.failed", "err", err)
		r.record(ctx, history.Run{
			ID:           runID,
			SourcePath:   req.FilePath,
			Status:       constants.RunStatusFailed,
			ErrorMessage: err.Error(),
			StartedAt:    started,
			FinishedAt:   time.Now(),
		})
		return nil, err
	}

	res.RunID = runID
	res.FilePath = req.FilePath
	res.Duration = time.Since(started)

	r.record(ctx, history.Run{
		ID:         runID,
		SourcePath: req.FilePath,
		Status:     constants.RunStatusSucceeded,
		Pages:      res.Pages,
		Fields:     res.Fields,
		OutputPath: res.CSVPath,
		StartedAt:  started,
		FinishedAt: time.Now(),
	})

	logger.Info("pipeline.run.ok",
		"pages", res.Pages,
		"fields", res.Fields,
		"csv", res.CSVPath,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, logger *slog.Logger, req Request) (*Result, error) {
	data, err := os.ReadFile(req.FilePath)
	if err != nil {
		return nil, common.SourceFault(fmt.Sprintf("read input %s", req.FilePath), err)
	}

	mime := req.MimeType
	if mime == "" {
		var ok bool
		if mime, ok = constants.MimeTypeForFile(req.FilePath); !ok {
			mime = r.fallback
			logger.Warn("unrecognized file extension, using fallback mime type",
				"ext", filepath.Ext(req.FilePath), "mime_type", mime)
		}
	}

	doc, err := r.src.Fetch(ctx, source.Request{Content: data, MimeType: mime})
	if err != nil {
		return nil, err
	}
	logger.Debug("pipeline fetch stage success", "pages", len(doc.Pages), "text_chars", len(doc.Text))

	records, err := r.extractor.Extract(doc)
	if err != nil {
		return nil, err
	}
	logger.Debug("pipeline extract stage success", "fields", len(records))

	table := export.Serialize(records)
	if err := r.csv.Write(table, req.CSVPath); err != nil {
		return nil, err
	}

	xlsxPath := ""
	if r.xlsx != nil && req.XLSXPath != "" {
		if err := r.xlsx.Write(table, req.XLSXPath); err != nil {
			return nil, err
		}
		xlsxPath = req.XLSXPath
	}

	return &Result{
		Pages:    len(doc.Pages),
		Fields:   len(records),
		CSVPath:  req.CSVPath,
		XLSXPath: xlsxPath,
	}, nil
}

func (r *Runner) record(ctx context.Context, run history.Run) {
	if r.store == nil {
		return
	}
	if err := r.store.RecordRun(ctx, run); err != nil {
		r.logger.Warn("pipeline.history.failed", "run_id", run.ID, "err", err)
	}
}
