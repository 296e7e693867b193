// Package config loads and persists the cogsync configuration.
// Configuration is stored in a TOML file within the cogsync config
// directory, with shipped defaults merged under any file the user edits.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/meridian-labs/cogsync-cli/internal/core/domain"
)

// Config is the effective cogsync configuration.
type Config struct {
	// Database is the SQLite metadata store path.
	Database string `toml:"database"`

	// OutputDir is where converted COGs are written before upload.
	OutputDir string `toml:"output_dir"`

	COG        COGConfig        `toml:"cog"`
	Formats    map[string][]string `toml:"formats"`
	Processing ProcessingConfig `toml:"processing"`
	Retry      RetryConfig      `toml:"retry"`
	Storage    StorageConfig    `toml:"storage"`
	Hash       HashConfig       `toml:"hash"`
}

// COGConfig holds the GDAL creation options applied to every conversion.
type COGConfig struct {
	Compression        string `toml:"compression"`
	BlockSize          int    `toml:"blocksize"`
	OverviewResampling string `toml:"overview_resampling"`
}

// ProcessingConfig holds the incremental and deduplication switches.
type ProcessingConfig struct {
	SkipProcessed     bool   `toml:"skip_processed"`
	DetectDuplicates  bool   `toml:"detect_duplicates"`
	DuplicateStrategy string `toml:"duplicate_strategy"`
	TrackFileChanges  bool   `toml:"track_file_changes"`
	PreserveLocalCOGs bool   `toml:"preserve_local_cogs"`
}

// RetryConfig bounds re-attempts after transient conversion errors.
type RetryConfig struct {
	MaxRetries int `toml:"max_retries"`

	// RetryDelaySeconds is the fixed pause between attempts.
	RetryDelaySeconds int `toml:"retry_delay_seconds"`
}

// StorageConfig configures the remote artifact bucket.
type StorageConfig struct {
	Enabled bool   `toml:"enabled"`
	Bucket  string `toml:"bucket"`

	// Prefix is prepended to every object name.
	Prefix string `toml:"prefix"`

	// RequestsPerSecond rate-limits uploads. 0 disables limiting.
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// HashConfig selects the content fingerprint algorithm.
type HashConfig struct {
	Algorithm string `toml:"algorithm"`
}

// Default returns the shipped configuration.
func Default() *Config {
	return &Config{
		Database:  "", // resolved against the config dir in Load
		OutputDir: "cog_output",
		COG: COGConfig{
			Compression:        "LZW",
			BlockSize:          512,
			OverviewResampling: "average",
		},
		Formats: map[string][]string{
			"geotiff":    {".tif", ".tiff"},
			"worldimage": {".jpg", ".jpeg", ".png"},
			"grid":       {".adf", ".bil", ".bip", ".bsq"},
			"ecw":        {".ecw"},
		},
		Processing: ProcessingConfig{
			SkipProcessed:     true,
			DetectDuplicates:  true,
			DuplicateStrategy: string(domain.StrategyReference),
			TrackFileChanges:  true,
		},
		Retry: RetryConfig{
			MaxRetries:        3,
			RetryDelaySeconds: 5,
		},
		Storage: StorageConfig{
			RequestsPerSecond: 4,
		},
		Hash: HashConfig{
			Algorithm: "md5",
		},
	}
}

// Dir returns the cogsync config directory, creating it if needed.
// Defaults to ~/.cogsync.
func Dir(override string) (string, error) {
	dir := override
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".cogsync")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads config.toml from the config directory, merging it over the
// defaults. A missing file yields the defaults unchanged.
func Load(configDir string) (*Config, error) {
	dir, err := Dir(configDir)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	data, err := os.ReadFile(filepath.Join(dir, "config.toml"))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyDir(dir)
			return cfg, nil
		}
		return nil, err
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.applyDir(dir)
	return cfg, nil
}

// applyDir resolves paths left empty by the file against the config dir.
func (c *Config) applyDir(dir string) {
	if c.Database == "" {
		c.Database = filepath.Join(dir, "cogsync.db")
	}
}

// Save persists the configuration to config.toml in the config directory.
func (c *Config) Save(configDir string) error {
	dir, err := Dir(configDir)
	if err != nil {
		return err
	}
	data, err := toml.Marshal(c)
	if err != nil {
		return err
	}
	// Write with restricted permissions
	return os.WriteFile(filepath.Join(dir, "config.toml"), data, 0600)
}

// Options converts the configuration into pipeline options.
// The strategy string has already been validated by Validate.
func (c *Config) Options() domain.ProcessOptions {
	return domain.ProcessOptions{
		SkipProcessed:     c.Processing.SkipProcessed,
		DetectDuplicates:  c.Processing.DetectDuplicates,
		DuplicateStrategy: domain.DuplicateStrategy(c.Processing.DuplicateStrategy),
		TrackFileChanges:  c.Processing.TrackFileChanges,
		PreserveLocalCOGs: c.Processing.PreserveLocalCOGs,
		UploadEnabled:     c.Storage.Enabled,
		MaxRetries:        c.Retry.MaxRetries,
		RetryDelay:        time.Duration(c.Retry.RetryDelaySeconds) * time.Second,
	}
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if _, err := domain.ParseDuplicateStrategy(c.Processing.DuplicateStrategy); err != nil {
		return err
	}
	if c.Storage.Enabled && c.Storage.Bucket == "" {
		return domain.ErrBucketNotConfigured
	}
	return nil
}

// Snapshot serialises the configuration to JSON for the run record.
func (c *Config) Snapshot() string {
	data, err := json.Marshal(c)
	if err != nil {
		return "{}"
	}
	return string(data)
}
