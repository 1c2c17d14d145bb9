// Package config handles configuration loading for the watplot viewer.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config represents the viewer configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Memory MemoryConfig `yaml:"memory"`
	Data   DataConfig   `yaml:"data"`
	Cache  CacheConfig  `yaml:"cache"`
	Render RenderConfig `yaml:"render"`
}

// ServerConfig contains HTTP preview server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// MemoryConfig bounds read buffers and cached views.
type MemoryConfig struct {
	// Fraction of total system memory available to read buffers.
	Fraction float64 `yaml:"fraction"`
}

// DataConfig lists the files served by the preview server, in config order.
//
// Two layouts are accepted:
//
//	data:
//	  path: /data/obs.fil        # single file, registered as "default"
//
//	data:
//	  voyager: /data/voyager.h5  # named files; the first is the default
//	  gbt:
//	    path: /data/gbt.fil
type DataConfig struct {
	Files       map[string]string
	DefaultFile string
	order       []string
}

// FileIDs returns the configured file ids in config order.
func (d *DataConfig) FileIDs() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Add registers a file. The first file added becomes the default.
func (d *DataConfig) Add(id, path string) {
	if d.Files == nil {
		d.Files = make(map[string]string)
	}
	if _, ok := d.Files[id]; !ok {
		d.order = append(d.order, id)
	}
	d.Files[id] = path
	if d.DefaultFile == "" {
		d.DefaultFile = id
	}
}

// UnmarshalYAML accepts both the single-path and named-file layouts while
// keeping the order of named files.
func (d *DataConfig) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("data: expected a mapping, got %v", node.Tag)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i].Value, node.Content[i+1]
		switch val.Kind {
		case yaml.ScalarNode:
			id := key
			if key == "path" {
				id = "default"
			}
			d.Add(id, val.Value)
		case yaml.MappingNode:
			var entry struct {
				Path string `yaml:"path"`
			}
			if err := val.Decode(&entry); err != nil {
				return fmt.Errorf("data.%s: %w", key, err)
			}
			if entry.Path == "" {
				return fmt.Errorf("data.%s: missing path", key)
			}
			d.Add(key, entry.Path)
		default:
			return fmt.Errorf("data.%s: expected a path", key)
		}
	}
	return nil
}

// FileID derives a URL-safe id from a file path.
func FileID(path string) string {
	base := filepath.Base(path)
	id := strings.TrimSuffix(base, filepath.Ext(base))
	id = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
	if id == "" {
		return "default"
	}
	return id
}

// CacheConfig contains caching settings.
type CacheConfig struct {
	ImageSizeMB     int `yaml:"image_size_mb"`
	ImageTTLMinutes int `yaml:"image_ttl_minutes"`
	Views           int `yaml:"views"`
}

// RenderConfig contains plot rendering settings.
type RenderConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	DefaultColormap string `yaml:"default_colormap"`
	LogScale        bool   `yaml:"log_scale"`
	Axes            *bool  `yaml:"axes"`
}

// ShowAxes reports whether axes and the colorbar are drawn.
func (r RenderConfig) ShowAxes() bool { return r.Axes == nil || *r.Axes }

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		// Return default config if file doesn't exist
		return DefaultConfig(), nil
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Memory: MemoryConfig{
			Fraction: 0.1,
		},
		Cache: CacheConfig{
			ImageSizeMB:     128,
			ImageTTLMinutes: 10,
			Views:           16,
		},
		Render: RenderConfig{
			Width:           1024,
			Height:          768,
			DefaultColormap: "viridis",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Memory.Fraction <= 0 || cfg.Memory.Fraction > 1 {
		cfg.Memory.Fraction = defaults.Memory.Fraction
	}
	if cfg.Cache.ImageSizeMB == 0 {
		cfg.Cache.ImageSizeMB = defaults.Cache.ImageSizeMB
	}
	if cfg.Cache.ImageTTLMinutes == 0 {
		cfg.Cache.ImageTTLMinutes = defaults.Cache.ImageTTLMinutes
	}
	if cfg.Cache.Views == 0 {
		cfg.Cache.Views = defaults.Cache.Views
	}
	if cfg.Render.Width == 0 {
		cfg.Render.Width = defaults.Render.Width
	}
	if cfg.Render.Height == 0 {
		cfg.Render.Height = defaults.Render.Height
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
}
