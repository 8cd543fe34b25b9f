package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file at the root of a workspace.
const FileName = "pdfimport.yaml"

// Config represents the top-level pdfimport.yaml configuration.
type Config struct {
	Catalogs   []string         `yaml:"catalogs"`
	Import     ImportConfig     `yaml:"import"`
	Securities SecuritiesConfig `yaml:"securities"`
	Output     OutputConfig     `yaml:"output"`
	Log        LogConfig        `yaml:"log"`
	Server     ServerConfig     `yaml:"server"`
	Git        GitConfig        `yaml:"git"`
}

// ImportConfig locates the inbox of statements waiting to be extracted.
type ImportConfig struct {
	Dir          string `yaml:"dir"`
	ProcessedDir string `yaml:"processed_dir"`
	Workers      int    `yaml:"workers"`
}

// SecuritiesConfig locates the security master file.
type SecuritiesConfig struct {
	File string `yaml:"file"`
}

// OutputConfig controls where CSV exports are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // console or json
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr        string `yaml:"addr"`
	BodyLimitMB int    `yaml:"body_limit_mb"`
}

// GitConfig controls committing extraction results to the workspace repo.
type GitConfig struct {
	AutoCommit  bool   `yaml:"auto_commit"`
	AuthorName  string `yaml:"author_name"`
	AuthorEmail string `yaml:"author_email"`
}

// Load reads a pdfimport.yaml file from disk. Missing values fall back to
// the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Default returns a Config with sensible defaults for a new workspace.
func Default() *Config {
	return &Config{
		Catalogs: []string{"sbroker"},
		Import: ImportConfig{
			Dir:          "import",
			ProcessedDir: "import/processed",
			Workers:      4,
		},
		Securities: SecuritiesConfig{
			File: "securities.csv",
		},
		Output: OutputConfig{
			Dir: "exports",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			BodyLimitMB: 32,
		},
		Git: GitConfig{
			AutoCommit:  true,
			AuthorName:  "pdfimport",
			AuthorEmail: "pdfimport@localhost",
		},
	}
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"console", "json"}
)

// Validate checks the configuration against the known catalog names and
// returns every problem found.
func (c *Config) Validate(knownCatalogs []string) error {
	var errs []error
	if len(c.Catalogs) == 0 {
		errs = append(errs, errors.New("catalogs: at least one catalog is required"))
	}
	for _, name := range c.Catalogs {
		if !slices.Contains(knownCatalogs, strings.ToLower(name)) {
			errs = append(errs, fmt.Errorf("catalogs: unknown catalog %q", name))
		}
	}
	if c.Import.Dir == "" {
		errs = append(errs, errors.New("import.dir is required"))
	}
	if c.Import.Workers < 1 {
		errs = append(errs, fmt.Errorf("import.workers must be at least 1, got %d", c.Import.Workers))
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level %q is not one of %s", c.Log.Level, strings.Join(logLevels, ", ")))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format %q is not one of %s", c.Log.Format, strings.Join(logFormats, ", ")))
	}
	if c.Server.BodyLimitMB < 1 {
		errs = append(errs, fmt.Errorf("server.body_limit_mb must be at least 1, got %d", c.Server.BodyLimitMB))
	}
	return errors.Join(errs...)
}
