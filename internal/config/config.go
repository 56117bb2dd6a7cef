package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Search backend names.
const (
	BackendTypesense = "typesense"
	BackendBleve     = "bleve"
	BackendSQLite    = "sqlite"
)

// Config represents the complete gutenindex configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	DataDir   string          `yaml:"data_dir" json:"data_dir"`
	Catalog   CatalogConfig   `yaml:"catalog" json:"catalog"`
	Retriever RetrieverConfig `yaml:"retriever" json:"retriever"`
	Processor ProcessorConfig `yaml:"processor" json:"processor"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Log       LogConfig       `yaml:"log" json:"log"`
}

// CatalogConfig configures catalog acquisition.
type CatalogConfig struct {
	// BaseURL is the first page of the Gutendex-compatible listing.
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Target is the number of accepted entries to collect.
	Target int `yaml:"target" json:"target"`
	// Language is the only language accepted (also the processed book language).
	Language string `yaml:"language" json:"language"`
	// RequestDelay is the pause between successful page requests (e.g. "1s").
	RequestDelay string `yaml:"request_delay" json:"request_delay"`
	// MaxAttempts bounds the attempts per page, including the first.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
	// RetryBaseDelay is the first backoff wait; it doubles per attempt.
	RetryBaseDelay string `yaml:"retry_base_delay" json:"retry_base_delay"`
	// Timeout bounds each HTTP request.
	Timeout string `yaml:"timeout" json:"timeout"`
}

// RetrieverConfig configures raw-text downloads.
type RetrieverConfig struct {
	Workers        int    `yaml:"workers" json:"workers"`
	MaxAttempts    int    `yaml:"max_attempts" json:"max_attempts"`
	RetryBaseDelay string `yaml:"retry_base_delay" json:"retry_base_delay"`
	Timeout        string `yaml:"timeout" json:"timeout"`
	ProgressEvery  int    `yaml:"progress_every" json:"progress_every"`
	// RequestsPerSecond caps downloads across workers; 0 means no cap.
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
}

// ProcessorConfig configures segmentation.
type ProcessorConfig struct {
	// MinTextLength is the minimum stripped length (characters) for a book to be kept.
	MinTextLength int `yaml:"min_text_length" json:"min_text_length"`
	// ChunkWords is the fixed chunk size used when no headings are detected.
	ChunkWords int `yaml:"chunk_words" json:"chunk_words"`
	// MaxSlugLength truncates base slugs.
	MaxSlugLength int `yaml:"max_slug_length" json:"max_slug_length"`
}

// SearchConfig configures the search engine and import batching.
type SearchConfig struct {
	// Backend selects the engine: "typesense" (default), "bleve", or "sqlite".
	Backend          string          `yaml:"backend" json:"backend"`
	BookBatchSize    int             `yaml:"book_batch_size" json:"book_batch_size"`
	ChapterBatchSize int             `yaml:"chapter_batch_size" json:"chapter_batch_size"`
	PerPage          int             `yaml:"per_page" json:"per_page"`
	Typesense        TypesenseConfig `yaml:"typesense" json:"typesense"`
	// CacheSize bounds the corpus reader's LRU cache (entries).
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// TypesenseConfig locates a Typesense node.
type TypesenseConfig struct {
	Host     string `yaml:"host" json:"host"`
	Port     int    `yaml:"port" json:"port"`
	Protocol string `yaml:"protocol" json:"protocol"`
	// APIKey is normally supplied through TYPESENSE_API_KEY rather than a file.
	APIKey  string `yaml:"api_key" json:"-"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// LogConfig configures file logging.
type LogConfig struct {
	Level     string `yaml:"level" json:"level"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		DataDir: "data",
		Catalog: CatalogConfig{
			BaseURL:        "https://gutendex.com/books/",
			Target:         3000,
			Language:       "en",
			RequestDelay:   "1s",
			MaxAttempts:    5,
			RetryBaseDelay: "2s",
			Timeout:        "30s",
		},
		Retriever: RetrieverConfig{
			Workers:        5,
			MaxAttempts:    3,
			RetryBaseDelay: "2s",
			Timeout:        "60s",
			ProgressEvery:  50,
		},
		Processor: ProcessorConfig{
			MinTextLength: 100,
			ChunkWords:    2000,
			MaxSlugLength: 80,
		},
		Search: SearchConfig{
			Backend:          BackendTypesense,
			BookBatchSize:    100,
			ChapterBatchSize: 200,
			PerPage:          20,
			CacheSize:        256,
			Typesense: TypesenseConfig{
				Host:     "localhost",
				Port:     8108,
				Protocol: "http",
				Timeout:  "10s",
			},
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// GetUserConfigPath returns the path to the user configuration file:
//   - $XDG_CONFIG_HOME/gutenindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/gutenindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gutenindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "gutenindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "gutenindex", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// loadUserConfig returns nil config and nil error if the file doesn't exist.
func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	var cfg Config
	if err := readYAML(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return &cfg, nil
}

// Load loads configuration for the working directory dir.
// Precedence, lowest first:
//  1. Hardcoded defaults
//  2. User config (~/.config/gutenindex/config.yaml)
//  3. Project config (.gutenindex.yaml in dir)
//  4. Environment variables (GUTENINDEX_*, TYPESENSE_*)
//
// A relative data_dir is resolved against dir.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, err
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(dir, cfg.DataDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if none exists.
// .gutenindex.yaml takes precedence over .gutenindex.yml.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{".gutenindex.yaml", ".gutenindex.yml"} {
		p := filepath.Join(dir, name)
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func (c *Config) loadFromFile(dir string) error {
	path := ProjectConfigPath(dir)
	if path == "" {
		return nil
	}
	var parsed Config
	if err := readYAML(path, &parsed); err != nil {
		return err
	}
	c.mergeWith(&parsed)
	return nil
}

func readYAML(path string, out *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	mergeString(&c.DataDir, other.DataDir)

	// Catalog
	mergeString(&c.Catalog.BaseURL, other.Catalog.BaseURL)
	mergeInt(&c.Catalog.Target, other.Catalog.Target)
	mergeString(&c.Catalog.Language, other.Catalog.Language)
	mergeString(&c.Catalog.RequestDelay, other.Catalog.RequestDelay)
	mergeInt(&c.Catalog.MaxAttempts, other.Catalog.MaxAttempts)
	mergeString(&c.Catalog.RetryBaseDelay, other.Catalog.RetryBaseDelay)
	mergeString(&c.Catalog.Timeout, other.Catalog.Timeout)

	// Retriever
	mergeInt(&c.Retriever.Workers, other.Retriever.Workers)
	mergeInt(&c.Retriever.MaxAttempts, other.Retriever.MaxAttempts)
	mergeString(&c.Retriever.RetryBaseDelay, other.Retriever.RetryBaseDelay)
	mergeString(&c.Retriever.Timeout, other.Retriever.Timeout)
	mergeInt(&c.Retriever.ProgressEvery, other.Retriever.ProgressEvery)
	mergeFloat(&c.Retriever.RequestsPerSecond, other.Retriever.RequestsPerSecond)

	// Processor
	mergeInt(&c.Processor.MinTextLength, other.Processor.MinTextLength)
	mergeInt(&c.Processor.ChunkWords, other.Processor.ChunkWords)
	mergeInt(&c.Processor.MaxSlugLength, other.Processor.MaxSlugLength)

	// Search
	mergeString(&c.Search.Backend, other.Search.Backend)
	mergeInt(&c.Search.BookBatchSize, other.Search.BookBatchSize)
	mergeInt(&c.Search.ChapterBatchSize, other.Search.ChapterBatchSize)
	mergeInt(&c.Search.PerPage, other.Search.PerPage)
	mergeInt(&c.Search.CacheSize, other.Search.CacheSize)
	mergeString(&c.Search.Typesense.Host, other.Search.Typesense.Host)
	mergeInt(&c.Search.Typesense.Port, other.Search.Typesense.Port)
	mergeString(&c.Search.Typesense.Protocol, other.Search.Typesense.Protocol)
	mergeString(&c.Search.Typesense.APIKey, other.Search.Typesense.APIKey)
	mergeString(&c.Search.Typesense.Timeout, other.Search.Typesense.Timeout)

	// Log
	mergeString(&c.Log.Level, other.Log.Level)
	mergeInt(&c.Log.MaxSizeMB, other.Log.MaxSizeMB)
	mergeInt(&c.Log.MaxFiles, other.Log.MaxFiles)
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func mergeFloat(dst *float64, v float64) {
	if v != 0 {
		*dst = v
	}
}

// applyEnvOverrides applies GUTENINDEX_* and TYPESENSE_* environment overrides.
// Unparseable numeric values are ignored.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("GUTENINDEX_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("GUTENINDEX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("GUTENINDEX_CATALOG_URL"); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv("GUTENINDEX_CATALOG_TARGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Catalog.Target = n
		}
	}
	if v := os.Getenv("GUTENINDEX_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Retriever.Workers = n
		}
	}
	if v := os.Getenv("GUTENINDEX_SEARCH_BACKEND"); v != "" {
		c.Search.Backend = strings.ToLower(v)
	}

	// Typesense connection uses the conventional unprefixed names.
	if v := os.Getenv("TYPESENSE_HOST"); v != "" {
		c.Search.Typesense.Host = v
	}
	if v := os.Getenv("TYPESENSE_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Search.Typesense.Port = n
		}
	}
	if v := os.Getenv("TYPESENSE_PROTOCOL"); v != "" {
		c.Search.Typesense.Protocol = v
	}
	if v := os.Getenv("TYPESENSE_API_KEY"); v != "" {
		c.Search.Typesense.APIKey = v
	}
}

// Validate validates the configuration and returns an error if invalid.
// The Typesense API key is checked by RequireSearchCredentials, since only
// the index and search commands need it.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url must not be empty")
	}
	if c.Catalog.Target <= 0 {
		return fmt.Errorf("catalog.target must be positive, got %d", c.Catalog.Target)
	}
	if c.Catalog.Language == "" {
		return fmt.Errorf("catalog.language must not be empty")
	}
	if c.Catalog.MaxAttempts < 1 {
		return fmt.Errorf("catalog.max_attempts must be at least 1, got %d", c.Catalog.MaxAttempts)
	}
	if c.Retriever.Workers < 1 {
		return fmt.Errorf("retriever.workers must be at least 1, got %d", c.Retriever.Workers)
	}
	if c.Retriever.MaxAttempts < 1 {
		return fmt.Errorf("retriever.max_attempts must be at least 1, got %d", c.Retriever.MaxAttempts)
	}
	if c.Retriever.RequestsPerSecond < 0 {
		return fmt.Errorf("retriever.requests_per_second must not be negative, got %g", c.Retriever.RequestsPerSecond)
	}
	if c.Processor.ChunkWords < 1 {
		return fmt.Errorf("processor.chunk_words must be at least 1, got %d", c.Processor.ChunkWords)
	}
	if c.Processor.MaxSlugLength < 1 {
		return fmt.Errorf("processor.max_slug_length must be at least 1, got %d", c.Processor.MaxSlugLength)
	}
	if c.Processor.MinTextLength < 0 {
		return fmt.Errorf("processor.min_text_length must be non-negative, got %d", c.Processor.MinTextLength)
	}
	if c.Search.BookBatchSize < 1 || c.Search.ChapterBatchSize < 1 {
		return fmt.Errorf("search batch sizes must be at least 1, got %d/%d", c.Search.BookBatchSize, c.Search.ChapterBatchSize)
	}
	if c.Search.PerPage < 1 {
		return fmt.Errorf("search.per_page must be at least 1, got %d", c.Search.PerPage)
	}

	switch c.Search.Backend {
	case BackendTypesense, BackendBleve, BackendSQLite:
	default:
		return fmt.Errorf("search.backend must be 'typesense', 'bleve', or 'sqlite', got %s", c.Search.Backend)
	}

	durations := map[string]string{
		"catalog.request_delay":      c.Catalog.RequestDelay,
		"catalog.retry_base_delay":   c.Catalog.RetryBaseDelay,
		"catalog.timeout":            c.Catalog.Timeout,
		"retriever.retry_base_delay": c.Retriever.RetryBaseDelay,
		"retriever.timeout":          c.Retriever.Timeout,
		"search.typesense.timeout":   c.Search.Typesense.Timeout,
	}
	for name, v := range durations {
		if _, err := ParseDuration(v); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("log.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Log.Level)
	}

	return nil
}

// RequireSearchCredentials reports a missing API key for the typesense backend.
func (c *Config) RequireSearchCredentials() error {
	if c.Search.Backend == BackendTypesense && c.Search.Typesense.APIKey == "" {
		return fmt.Errorf("TYPESENSE_API_KEY is required for the typesense backend")
	}
	return nil
}

// ParseDuration parses a config duration; "" and "0" mean zero.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration must be non-negative, got %s", s)
	}
	return d, nil
}

// MustDuration parses a duration already checked by Validate.
func MustDuration(s string) time.Duration {
	d, err := ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// YAML renders the configuration for display, with the API key redacted.
func (c *Config) YAML() ([]byte, error) {
	redacted := *c
	if redacted.Search.Typesense.APIKey != "" {
		redacted.Search.Typesense.APIKey = "********"
	}
	data, err := yaml.Marshal(&redacted)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
