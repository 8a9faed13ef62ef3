package internal

import (
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/sowilo/internal/namespace"
)

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Data      DataConfig        `yaml:"data"`
	SiteIndex SiteIndexConfig   `yaml:"site_index"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Data.Validate(); err != nil {
		return err
	}
	return c.SiteIndex.Validate(c.Data.Mode)
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
}

// DataConfig holds the data and output directories and the tenancy mode.
//
// Mode controls how note batches map onto the filesystem:
//   - "single" (default): one vault, site built at the output root.
//   - "multi": per-tenant vaults under users/, sites under per-tenant
//     output directories, plus an aggregated listing at the root.
type DataConfig struct {
	Dir    string `yaml:"dir"`
	OutDir string `yaml:"out_dir"`
	Mode   string `yaml:"mode"`
}

// Validate validates the data configuration.
func (c *DataConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = namespace.ModeSingle
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
		validation.Field(&c.OutDir, validation.Required),
		validation.Field(&c.Mode, validation.Required, validation.In(namespace.ModeSingle, namespace.ModeMulti)),
	)
}

// SiteIndexConfig holds the rendered-note index database location. The
// index backs the cross-tenant root listing and is only opened in multi
// mode.
type SiteIndexConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the site index configuration for the given mode.
func (c *SiteIndexConfig) Validate(mode string) error {
	if mode != namespace.ModeMulti {
		return nil
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
		},
		Data: DataConfig{
			Dir:    "./data",
			OutDir: "./dist",
			Mode:   namespace.ModeSingle,
		},
		SiteIndex: SiteIndexConfig{
			Path: "./sowilo.db",
		},
	}
}
