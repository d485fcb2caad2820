// Package config loads the explicit per-run configuration. A Config is
// always passed by parameter into the pipeline; nothing reads it from
// package state.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/formintake/formintake/constants"
	"github.com/formintake/formintake/internal/common"
)

// Config holds everything one intake run needs. The processor triple
// (project, location, processor) is always required; file_path and
// output_csv_path are required for single-document runs, while the batch
// CLI derives per-file paths itself.
type Config struct {
	ProjectID   string `json:"project_id"`
	Location    string `json:"location"`
	ProcessorID string `json:"processor_id"`

	FilePath      string `json:"file_path,omitempty"`
	OutputCSVPath string `json:"output_csv_path,omitempty"`

	// CredentialsPath is a service-account JSON file; empty means ambient
	// application-default credentials.
	CredentialsPath string `json:"credentials_path,omitempty"`

	OutputXLSXPath   string `json:"output_xlsx_path,omitempty"`
	MimeType         string `json:"mime_type,omitempty"`
	FallbackMimeType string `json:"fallback_mime_type,omitempty"`
	RequestTimeout   string `json:"request_timeout,omitempty"`
	HistoryDSN       string `json:"history_dsn,omitempty"`
	RawDocumentPath  string `json:"raw_document_path,omitempty"`
	LogLevel         string `json:"log_level,omitempty"`
	LogFormat        string `json:"log_format,omitempty"`
}

// New builds a Config from environment variables and defaults alone, for
// callers that run without a config file.
func New() *Config {
	cfg := &Config{}
	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg
}

// Load reads a JSON (default) or YAML (.yaml/.yml) config file, checks it
// against the embedded schema, then applies environment overrides and
// defaults. Required-key enforcement is a separate step (Validate /
// ValidateForDocument) so overrides can fill gaps first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ConfigurationFault(fmt.Sprintf("read config %s", path), err)
	}

	var raw map[string]any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &raw)
	default:
		err = json.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, common.ConfigurationFault(fmt.Sprintf("parse config %s", path), err)
	}

	cfg, err := decodeConfig(raw)
	if err != nil {
		return nil, common.ConfigurationFault(fmt.Sprintf("config %s", path), err)
	}

	cfg.applyEnvOverrides()
	cfg.applyDefaults()
	return cfg, nil
}

// Validate checks the keys every entry point needs.
func (c *Config) Validate() error {
	for _, key := range []struct{ name, value string }{
		{"project_id", c.ProjectID},
		{"location", c.Location},
		{"processor_id", c.ProcessorID},
	} {
		if key.value == "" {
			return common.ConfigurationFault(fmt.Sprintf("missing required config key %q", key.name), nil)
		}
	}
	if c.RequestTimeout != "" {
		if _, err := time.ParseDuration(c.RequestTimeout); err != nil {
			return common.ConfigurationFault(fmt.Sprintf("invalid request_timeout %q", c.RequestTimeout), err)
		}
	}
	if c.CredentialsPath != "" {
		if _, err := os.Stat(c.CredentialsPath); err != nil {
			return common.ConfigurationFault(fmt.Sprintf("credentials file %s", c.CredentialsPath), err)
		}
	}
	return nil
}

// ValidateForDocument additionally requires the single-document keys.
func (c *Config) ValidateForDocument() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.FilePath == "" {
		return common.ConfigurationFault(`missing required config key "file_path"`, nil)
	}
	if c.OutputCSVPath == "" {
		return common.ConfigurationFault(`missing required config key "output_csv_path"`, nil)
	}
	return nil
}

// Timeout is the parsed request_timeout. Validate rejects unparseable
// values, so this only falls back for unvalidated zero configs.
func (c *Config) Timeout() time.Duration {
	d, err := time.ParseDuration(c.RequestTimeout)
	if err != nil || d <= 0 {
		return 120 * time.Second
	}
	return d
}

func (c *Config) applyEnvOverrides() {
	c.ProjectID = getEnv("FORMINTAKE_PROJECT_ID", c.ProjectID)
	c.Location = getEnv("FORMINTAKE_LOCATION", c.Location)
	c.ProcessorID = getEnv("FORMINTAKE_PROCESSOR_ID", c.ProcessorID)
	c.CredentialsPath = getEnv("FORMINTAKE_CREDENTIALS", c.CredentialsPath)
	c.HistoryDSN = getEnv("FORMINTAKE_HISTORY_DSN", c.HistoryDSN)
}

func (c *Config) applyDefaults() {
	if c.FallbackMimeType == "" {
		c.FallbackMimeType = constants.DefaultFallbackMimeType
	}
	if c.RequestTimeout == "" {
		c.RequestTimeout = "120s"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
