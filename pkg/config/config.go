// Package config loads server configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hed1ad/crossguard/pkg/store"
)

// Config is the top-level server configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Database configures the SQLite store.
	Database Database `yaml:"database"`

	// Ingest configures CSV loading for init-db.
	Ingest Ingest `yaml:"ingest"`
}

// Database groups storage settings.
type Database struct {
	// Path is the SQLite database file.
	Path string `yaml:"path"`
}

// Ingest groups data-loading settings.
type Ingest struct {
	// CSVPath is the Border Crossing Entry dataset file.
	CSVPath string `yaml:"csv_path"`
}

// Default returns the standard configuration.
func Default() Config {
	return Config{
		Listen: ":8080",
		Database: Database{
			Path: "crossguard.db",
		},
		Ingest: Ingest{
			CSVPath: "Border_Crossing_Entry_Data.csv",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing path
// returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// StoreConfig derives the store configuration.
func (c Config) StoreConfig() store.Config {
	sc := store.DefaultConfig()
	if c.Database.Path != "" {
		sc.Path = c.Database.Path
	}
	return sc
}
