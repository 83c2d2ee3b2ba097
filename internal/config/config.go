// Package config loads the pipeline's run configuration: input file,
// SuspectFinder parameters, parser parallelism, and output/publish
// targets. Layering mirrors the teacher service's config precedence
// (environment defaults, overridden by a YAML snapshot): compiled
// defaults < YAML file < environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Config is the fully resolved pipeline run configuration.
type Config struct {
	Input       string  `yaml:"input" json:"input"`
	OutputDir   string  `yaml:"output_dir" json:"output_dir"`
	Attempts    int     `yaml:"attempts" json:"attempts"`
	Seconds     float64 `yaml:"seconds" json:"seconds"`
	Parallelism int     `yaml:"parallelism" json:"parallelism"`
	NATSURL     string  `yaml:"nats_url" json:"nats_url"`
	MetricsAddr string  `yaml:"metrics_addr" json:"metrics_addr"`
	// LogYear is stamped onto every parsed timestamp, since syslog
	// lines carry no year field. spec.md §9 flags the source's
	// hard-coded 2011 as "an acknowledged sample-data artifact" and
	// suggests deriving it "from file metadata or a configuration
	// parameter" — this field is that parameter.
	LogYear int `yaml:"log_year" json:"log_year"`
}

// Defaults returns the compiled defaults named in spec.md §6.
func Defaults() Config {
	return Config{
		OutputDir:   ".",
		Attempts:    5,
		Seconds:     60.0,
		Parallelism: 8,
		MetricsAddr: ":9110",
		LogYear:     2011,
	}
}

// Load resolves a Config from compiled defaults, an optional YAML file
// at path, and environment variable overrides, in that precedence
// order, then validates the result against schemas/config.schema.json.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid: %w", err)
	}
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Input = getEnv("SSHBREAKIN_INPUT", cfg.Input)
	cfg.OutputDir = getEnv("SSHBREAKIN_OUTPUT_DIR", cfg.OutputDir)
	cfg.Attempts = getEnvInt("SSHBREAKIN_ATTEMPTS", cfg.Attempts)
	cfg.Seconds = getEnvFloat("SSHBREAKIN_SECONDS", cfg.Seconds)
	cfg.Parallelism = getEnvInt("SSHBREAKIN_PARALLELISM", cfg.Parallelism)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.MetricsAddr = getEnv("SSHBREAKIN_METRICS_ADDR", cfg.MetricsAddr)
	cfg.LogYear = getEnvInt("SSHBREAKIN_LOG_YEAR", cfg.LogYear)
}

// validate reads and compiles the JSON Schema at schemaPath() and
// checks cfg against it,
// mirroring the ingest service's SchemaValidator (see
// internal/validate/schema.go in the retrieved ingest package).
func validate(cfg *Config) error {
	schemaData, err := os.ReadFile(schemaPath())
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource("config.json", strings.NewReader(string(schemaData))); err != nil {
		return fmt.Errorf("loading schema: %w", err)
	}
	schema, err := compiler.Compile("config.json")
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	asMap, err := toMap(cfg)
	if err != nil {
		return fmt.Errorf("encoding config for validation: %w", err)
	}
	if err := schema.Validate(asMap); err != nil {
		return err
	}
	return nil
}

func toMap(cfg *Config) (map[string]any, error) {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// schemaPath locates the schema relative to this source file so
// validation works the same whether invoked from the repo root binary
// or from `go test` running inside this package's directory.
func schemaPath() string {
	if p := os.Getenv("SSHBREAKIN_SCHEMA_PATH"); p != "" {
		return p
	}
	_, thisFile, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(thisFile), "..", "..", "schemas", "config.schema.json")
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if iv, err := strconv.Atoi(v); err == nil {
			return iv
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if fv, err := strconv.ParseFloat(v, 64); err == nil {
			return fv
		}
	}
	return defaultValue
}
