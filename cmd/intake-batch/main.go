package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/formintake/formintake/internal/async"
	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/config"
	"github.com/formintake/formintake/internal/export"
	"github.com/formintake/formintake/internal/extract"
	"github.com/formintake/formintake/internal/history"
	"github.com/formintake/formintake/internal/ingest"
	"github.com/formintake/formintake/internal/logging"
	"github.com/formintake/formintake/internal/pipeline"
	"github.com/formintake/formintake/internal/source"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, common.ErrConfiguration):
		return 1
	case errors.Is(err, common.ErrRemoteService):
		return 3
	case errors.Is(err, common.ErrSource):
		return 2
	default:
		return 1
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	// .env is optional; deployed environments set variables directly.
	_ = godotenv.Load()

	var (
		cfgPath   = flag.String("config", "config.json", "config file, JSON or YAML")
		dir       = flag.String("dir", "", "directory to process documents from (required)")
		outDir    = flag.String("out-dir", "", "directory for per-document CSV output (defaults next to --dir)")
		workers   = flag.Int("workers", 4, "concurrent pipeline workers")
		queueCap  = flag.Int("queue", 256, "queued job capacity before backpressure")
		timeout   = flag.Duration("timeout", 3*time.Minute, "per-document processing timeout")
		watch     = flag.Bool("watch", false, "keep running and process documents as they arrive")
		xlsx      = flag.Bool("xlsx", false, "also write an XLSX workbook per document")
		logLevel  = flag.String("log-level", "", "debug, info, warn, or error")
		logFormat = flag.String("log-format", "", "text or json")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		return 1
	}
	if *outDir == "" {
		*outDir = filepath.Join(filepath.Dir(*dir), "intake-output")
	}

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}
	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		printError("Error: %v\n", err)
		return 1
	}
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		logger.Error("failed to create output directory", "dir", *outDir, "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	docai, err := source.NewDocAI(ctx, source.DocAIConfig{
		ProjectID:       cfg.ProjectID,
		Location:        cfg.Location,
		ProcessorID:     cfg.ProcessorID,
		CredentialsFile: cfg.CredentialsPath,
		Timeout:         cfg.Timeout(),
	}, logger)
	if err != nil {
		logger.Error("failed to connect to document processor", "error", err)
		return exitCode(err)
	}
	defer func() {
		if cerr := docai.Close(); cerr != nil {
			logger.Error("close document client", "error", cerr)
		}
	}()

	opts := []pipeline.RunnerOption{pipeline.WithFallbackMimeType(cfg.FallbackMimeType)}
	if *xlsx {
		opts = append(opts, pipeline.WithXLSX(export.NewXLSXSink(logger)))
	}
	var store *history.Store
	if cfg.HistoryDSN != "" {
		store, err = history.Open(ctx, cfg.HistoryDSN, logger)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
			store = nil
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, pipeline.WithHistory(store))
		}
	}

	runner := pipeline.NewRunner(docai, extract.NewExtractor(logger), export.NewCSVSink(logger), logger, opts...)
	queue := async.NewRunnerQueue(runner, logger,
		async.WithWorkers(*workers),
		async.WithQueueSize(*queueCap),
		async.WithJobTimeout(*timeout),
	)

	enqueued := 0
	enqueue := func(path string) {
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		job := async.Job{
			Path:        path,
			CSVPath:     filepath.Join(*outDir, base+".csv"),
			SubmittedAt: time.Now(),
		}
		if *xlsx {
			job.XLSXPath = filepath.Join(*outDir, base+".xlsx")
		}
		if err := queue.Enqueue(ctx, job); err == nil {
			enqueued++
		}
	}

	if *watch {
		evCh, errCh, err := ingest.StartWatcher(ctx, ingest.WatchConfig{
			Roots:       []string{*dir},
			InitialScan: true,
			Debounce:    500 * time.Millisecond,
		})
		if err != nil {
			logger.Error("failed to start watcher", "dir", *dir, "error", err)
			return exitCode(err)
		}
		logger.Info("watching for documents", "dir", *dir, "out_dir", *outDir)

		for evCh != nil || errCh != nil {
			select {
			case path, ok := <-evCh:
				if !ok {
					evCh = nil
					continue
				}
				enqueue(path)
			case werr, ok := <-errCh:
				if !ok {
					errCh = nil
					continue
				}
				logger.Error("watch error", "error", werr)
			}
		}
		logger.Info("watch stopped, draining queue")
	} else {
		paths, stats, err := ingest.Discover(*dir)
		if err != nil {
			logger.Error("failed to discover documents", "dir", *dir, "error", err)
			return exitCode(err)
		}
		logger.Info("discovery complete",
			"scanned", stats.Scanned,
			"matched", stats.Matched,
			"failed", stats.Failed)
		for _, p := range paths {
			enqueue(p)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	queue.Shutdown(shutdownCtx)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Documents queued: %d\n", enqueued)
	fmt.Printf("- Output directory: %s\n", *outDir)

	if store != nil && enqueued > 0 {
		limit := enqueued
		if limit > 50 {
			limit = 50
		}
		runs, err := store.RecentRuns(context.Background(), limit)
		if err != nil {
			logger.Warn("failed to read run history", "error", err)
		} else {
			for _, r := range runs {
				fmt.Printf("- %s %s (%d fields)\n", r.Status, filepath.Base(r.SourcePath), r.Fields)
			}
		}
	}
	return 0
}

// loadConfig reads the config file, or falls back to environment-only
// config when the default file is absent and -config was not given.
func loadConfig(path string) (*config.Config, error) {
	explicit := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})
	if !explicit {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.New(), nil
		}
	}
	return config.Load(path)
}
