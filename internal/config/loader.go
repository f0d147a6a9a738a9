package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins).
	Load() (*Config, error)
}

type loader struct {
	rootDir string
	file    string
}

// NewLoader creates a loader for the repository at rootDir.
func NewLoader(rootDir string) Loader {
	return &loader{rootDir: rootDir}
}

// NewLoaderWithFile creates a loader that reads an explicit config file
// instead of searching the repository's .queryfs directory. An empty file
// falls back to the default search.
func NewLoaderWithFile(rootDir, file string) Loader {
	return &loader{rootDir: rootDir, file: file}
}

// Load loads configuration with the following priority (highest first):
//  1. Environment variables (QUERYFS_*)
//  2. Config file (.queryfs/config.yml under the repository root)
//  3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	if l.file != "" {
		v.SetConfigFile(l.file)
	} else {
		configDir := filepath.Join(l.rootDir, ".queryfs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix("QUERYFS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.BindEnv("cache.capacity")
	v.BindEnv("logging.verbose")

	defaults := Default()
	v.SetDefault("cache.capacity", defaults.Cache.Capacity)
	v.SetDefault("logging.verbose", defaults.Logging.Verbose)

	// A missing config file is fine; anything else is surfaced.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
