package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// buildSchema returns the JSON-Schema (draft 2020-12 subset) every raw
// config file must satisfy before decoding. Unknown keys are rejected so
// typos surface as faults instead of silently ignored settings. Required
// keys are not enforced here: environment overrides may fill them after
// load, and the entry points differ in what they need.
func buildSchema() map[string]any {
	str := map[string]any{"type": "string", "minLength": 1}
	props := map[string]any{
		"project_id":         str,
		"location":           str,
		"processor_id":       str,
		"file_path":          str,
		"output_csv_path":    str,
		"credentials_path":   str,
		"output_xlsx_path":   str,
		"mime_type":          str,
		"fallback_mime_type": str,
		"request_timeout": map[string]any{
			"type":    "string",
			"pattern": `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		},
		"history_dsn":       str,
		"raw_document_path": str,
		"log_level": map[string]any{
			"type": "string",
			"enum": []string{"debug", "info", "warn", "error"},
		},
		"log_format": map[string]any{
			"type": "string",
			"enum": []string{"text", "json"},
		},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

// decodeConfig validates raw against the schema and decodes it into a
// Config. Going through a JSON re-marshal keeps YAML and JSON inputs on one
// code path and hands the validator plain JSON value types.
func decodeConfig(raw map[string]any) (*Config, error) {
	b, err := json.Marshal(buildSchema())
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config-schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("config-schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("normalize config: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return nil, fmt.Errorf("config does not match schema: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}
