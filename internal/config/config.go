// Package config resolves jobweave's injected configuration: the data
// directory root, the profile-filename format, and the queue worker
// count (spec.md §6, DESIGN NOTES §9 "Global configuration state →
// injected config"). A single Config value is threaded through the
// submission controller; there is no process-wide singleton.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

const (
	// EnvDataDir overrides the data-directory root.
	EnvDataDir = "JOBWEAVE_DATA_DIR"

	defaultProfileFormat = "%s.profile.yaml"
)

// Config carries the ambient settings the submission controller and
// store need, loaded once at process start and passed explicitly
// (never read from globals) to every component that needs it.
type Config struct {
	// DataDir is the root directory holding the store file, emitted
	// jobscripts, variable files, and per-task subdirectories.
	DataDir string

	// ProfileNameFormat is an fmt verb applied to a profile name to
	// derive its on-disk filename, e.g. "%s.profile.yaml".
	ProfileNameFormat string

	// LogFormat is "text" or "json".
	LogFormat string

	// Debug enables debug-level logging.
	Debug bool

	// QueueWorkers bounds the number of concurrent store-writer
	// goroutines used to absorb bulk task start/end updates
	// (spec.md §4.5, §5).
	QueueWorkers int
}

// Load builds a Config from (in increasing precedence) built-in
// defaults, a config file under dataDir named "config.yaml", and
// environment variables prefixed JOBWEAVE_.
func Load() (*Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dataDir)
	v.SetEnvPrefix("JOBWEAVE")
	v.AutomaticEnv()

	v.SetDefault("profile_name_format", defaultProfileFormat)
	v.SetDefault("log_format", "text")
	v.SetDefault("debug", false)
	v.SetDefault("queue_workers", 8)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return &Config{
		DataDir:           dataDir,
		ProfileNameFormat: v.GetString("profile_name_format"),
		LogFormat:         v.GetString("log_format"),
		Debug:             v.GetBool("debug"),
		QueueWorkers:      v.GetInt("queue_workers"),
	}, nil
}

func resolveDataDir() (string, error) {
	if d := os.Getenv(EnvDataDir); d != "" {
		return d, nil
	}
	dir, err := xdg.DataFile(filepath.Join("jobweave", ".keep"))
	if err != nil {
		return "", err
	}
	return filepath.Dir(dir), nil
}

// StorePath returns the path to the workflow store's database file.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "jobweave.db")
}

// ProfileFilename derives the on-disk filename for a named profile.
func (c *Config) ProfileFilename(name string) string {
	format := c.ProfileNameFormat
	if format == "" {
		format = defaultProfileFormat
	}
	return fmt.Sprintf(format, name)
}
