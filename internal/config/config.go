// Package config loads areum configuration from .areum.yml with
// environment variable overrides under the AREUM_ prefix.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// File is the config file name looked up in the site root.
const File = ".areum.yml"

type Config struct {
	// Root is the site source directory. Set from the command line, not
	// the config file.
	Root string `mapstructure:"-"`

	Server ServerConfig `mapstructure:"server"`
	Build  BuildConfig  `mapstructure:"build"`
	Watch  WatchConfig  `mapstructure:"watch"`
	Log    LogConfig    `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type BuildConfig struct {
	// Out is the output directory of a static build, relative to the
	// working directory unless absolute.
	Out string `mapstructure:"out"`
}

type WatchConfig struct {
	// Debounce is the quiet period before a change batch triggers a
	// rebuild.
	Debounce time.Duration `mapstructure:"debounce"`
	// Ignore holds extra gitignore-style patterns excluded from watching,
	// on top of .areumignore.
	Ignore []string `mapstructure:"ignore"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SlogLevel maps the configured level name onto a slog level. Unknown
// names fall back to info; Validate rejects them earlier.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default returns the configuration used when no file or overrides are
// present.
func Default() *Config {
	return &Config{
		Root: ".",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8000,
		},
		Build: BuildConfig{
			Out: "dist",
		},
		Watch: WatchConfig{
			Debounce: 100 * time.Millisecond,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads .areum.yml from root, applies AREUM_ environment overrides,
// and validates the result. A missing config file is not an error.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(strings.TrimSuffix(File, ".yml"))
	v.SetConfigType("yaml")
	v.AddConfigPath(root)

	v.SetEnvPrefix("AREUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := Default()
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("build.out", def.Build.Out)
	v.SetDefault("watch.debounce", def.Watch.Debounce)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading %s: %w", File, err)
		}
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", File, err)
	}
	cfg.Root = root

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", c.Server.Port)
	}
	if c.Build.Out == "" {
		return errors.New("build output directory must not be empty")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	if c.Watch.Debounce < 0 {
		return errors.New("watch debounce must not be negative")
	}
	return nil
}
