package site

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/starford/sowilo/internal/models"
)

// Preset is one selectable theme.
type Preset struct {
	Name string
	CSS  string
}

// Theme presets. Unknown keys normalize to "default".
var presets = map[string]Preset{
	"default": {Name: "Default", CSS: ""},
	"glass": {
		Name: "Glass",
		CSS: `
  body { background: radial-gradient(circle at 10% 20%, rgba(96,165,250,0.12), transparent 40%), linear-gradient(180deg, rgba(255,255,255,0.82), rgba(248,250,252,0.86)); }
  .card, article, .toc { backdrop-filter: blur(12px); background: rgba(255,255,255,0.82); border-color: rgba(148,163,184,0.5); }
  header.site-header, footer { backdrop-filter: blur(10px); background: rgba(255,255,255,0.85); }
`,
	},
}

// Themes lists the available preset keys and display names.
func Themes() map[string]string {
	out := make(map[string]string, len(presets))
	for key, p := range presets {
		out[key] = p.Name
	}
	return out
}

// NormalizeTheme maps any key onto a known preset key.
func NormalizeTheme(key string) string {
	if _, ok := presets[key]; ok {
		return key
	}
	return "default"
}

type themeFile struct {
	Theme string `yaml:"theme"`
}

// LoadTheme reads the persisted theme key for a tenant, defaulting on any
// problem.
func LoadTheme(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "default"
	}
	var tf themeFile
	if err := yaml.Unmarshal(data, &tf); err != nil {
		return "default"
	}
	return NormalizeTheme(tf.Theme)
}

// SaveTheme persists a theme key, normalizing unknown values.
func SaveTheme(path, key string) (string, error) {
	safe := NormalizeTheme(key)
	data, err := yaml.Marshal(themeFile{Theme: safe})
	if err != nil {
		return "", fmt.Errorf("site: encode theme: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("site: write theme: %w", err)
	}
	return safe, nil
}

// DefaultSiteConfig is the fallback used when a tenant has no config yet.
func DefaultSiteConfig() models.SiteConfig {
	return models.SiteConfig{
		SiteTitle: "sowilo",
		Footer:    "Powered by sowilo",
		Theme:     "default",
	}
}

// LoadSiteConfig reads a tenant's site config, falling back to defaults on a
// missing or malformed file. The pipeline never fails a build over config.
func LoadSiteConfig(path string) models.SiteConfig {
	cfg := DefaultSiteConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultSiteConfig()
	}
	if cfg.SiteTitle == "" {
		cfg.SiteTitle = "sowilo"
	}
	cfg.Theme = NormalizeTheme(cfg.Theme)
	return cfg
}

// SaveSiteConfig persists raw config text for a tenant when a publish
// request carries one; empty text writes the default only if nothing exists.
func SaveSiteConfig(path, text string) error {
	if text != "" {
		if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
			return fmt.Errorf("site: write config: %w", err)
		}
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		data, err := yaml.Marshal(DefaultSiteConfig())
		if err != nil {
			return fmt.Errorf("site: encode default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("site: write default config: %w", err)
		}
	}
	return nil
}
