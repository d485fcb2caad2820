package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/formintake/formintake/internal/common"
	"github.com/formintake/formintake/internal/config"
	"github.com/formintake/formintake/internal/export"
	"github.com/formintake/formintake/internal/extract"
	"github.com/formintake/formintake/internal/history"
	"github.com/formintake/formintake/internal/logging"
	"github.com/formintake/formintake/internal/pipeline"
	"github.com/formintake/formintake/internal/source"
)

// Exit codes, one per fault class, so shell callers can branch on the
// failure kind.
const (
	exitOK            = 0
	exitConfiguration = 1
	exitSource        = 2
	exitRemote        = 3
	exitExtraction    = 4
	exitSink          = 5
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
		return exitConfiguration
	case errors.Is(err, common.ErrMalformedAnchor):
		return exitExtraction
	case errors.Is(err, common.ErrRemoteService):
		return exitRemote
	case errors.Is(err, common.ErrSource):
		return exitSource
	case errors.Is(err, common.ErrSink):
		return exitSink
	default:
		return exitConfiguration
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
		file      = flag.String("file", "", "document to process (overrides file_path)")
		out       = flag.String("out", "", "output CSV path (overrides output_csv_path)")
		xlsx      = flag.String("xlsx", "", "also write an XLSX workbook to this path")
		mime      = flag.String("mime", "", "MIME type override for the input file")
		raw       = flag.String("raw", "", "dump the raw processor response to this path")
		replay    = flag.String("replay", "", "process a saved raw document instead of calling the processor")
		logLevel  = flag.String("log-level", "", "debug, info, warn, or error")
		logFormat = flag.String("log-format", "", "text or json")
	)
	flag.Parse()

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		printError("Error: %v\n", err)
		return exitConfiguration
	}
	if *file != "" {
		cfg.FilePath = *file
	}
	if *out != "" {
		cfg.OutputCSVPath = *out
	}
	if *xlsx != "" {
		cfg.OutputXLSXPath = *xlsx
	}
	if *mime != "" {
		cfg.MimeType = *mime
	}
	if *raw != "" {
		cfg.RawDocumentPath = *raw
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *logFormat != "" {
		cfg.LogFormat = *logFormat
	}

	logger := logging.Init(cfg.LogLevel, cfg.LogFormat)

	// Replay substitutes the saved raw document for the remote call, so the
	// processor triple and credentials are not needed.
	replayMode := *replay != ""
	if replayMode {
		if cfg.FilePath == "" {
			cfg.FilePath = *replay
		}
		if cfg.MimeType == "" {
			cfg.MimeType = "application/json"
		}
		if cfg.OutputCSVPath == "" {
			printError("Error: -out or output_csv_path is required\n")
			return exitConfiguration
		}
	} else if err := cfg.ValidateForDocument(); err != nil {
		printError("Error: %v\n", err)
		return exitConfiguration
	}

	ctx := context.Background()

	var src source.DocumentSource
	if replayMode {
		src = source.NewReplay(*replay, logger)
	} else {
		docai, err := source.NewDocAI(ctx, source.DocAIConfig{
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			ProcessorID:     cfg.ProcessorID,
			CredentialsFile: cfg.CredentialsPath,
			Timeout:         cfg.Timeout(),
			RawDocumentPath: cfg.RawDocumentPath,
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
		src = docai
	}

	opts := []pipeline.RunnerOption{pipeline.WithFallbackMimeType(cfg.FallbackMimeType)}
	if cfg.OutputXLSXPath != "" {
		opts = append(opts, pipeline.WithXLSX(export.NewXLSXSink(logger)))
	}
	if cfg.HistoryDSN != "" {
		store, err := history.Open(ctx, cfg.HistoryDSN, logger)
		if err != nil {
			logger.Warn("run history disabled", "error", err)
		} else {
			defer func() { _ = store.Close() }()
			opts = append(opts, pipeline.WithHistory(store))
		}
	}

	runner := pipeline.NewRunner(src, extract.NewExtractor(logger), export.NewCSVSink(logger), logger, opts...)

	res, err := runner.Run(ctx, pipeline.Request{
		FilePath: cfg.FilePath,
		MimeType: cfg.MimeType,
		CSVPath:  cfg.OutputCSVPath,
		XLSXPath: cfg.OutputXLSXPath,
	})
	if err != nil {
		printError("Error: %v\n", err)
		return exitCode(err)
	}

	fmt.Printf("Intake complete!\n")
	fmt.Printf("- Pages: %d\n", res.Pages)
	fmt.Printf("- Fields: %d\n", res.Fields)
	fmt.Printf("- Output: %s\n", res.CSVPath)
	if res.XLSXPath != "" {
		fmt.Printf("- Workbook: %s\n", res.XLSXPath)
	}
	return exitOK
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
