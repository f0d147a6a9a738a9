// Package config loads optional tunables for the queryfs binary. The core
// consumes none of this; it exists for the CLI surface (cache sizing,
// verbosity) and can be left entirely absent.
package config

// Config is the complete queryfs configuration, loadable from
// .queryfs/config.yml under the repository root with environment overrides.
type Config struct {
	Cache   CacheConfig   `yaml:"cache" mapstructure:"cache"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// CacheConfig sizes the attribute cache in front of the lookup operations.
type CacheConfig struct {
	Capacity int `yaml:"capacity" mapstructure:"capacity"` // entries per cache
}

// LoggingConfig holds the logging.verbose setting. It is loaded with the
// rest of the configuration; no command reads it.
type LoggingConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Capacity: 16384,
		},
		Logging: LoggingConfig{
			Verbose: false,
		},
	}
}
