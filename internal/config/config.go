// Package config loads optional YAML tuning for the CLI demo, falling back
// to flag defaults when no config file is given — generalizing the
// teacher's own yaml.v3-based server configuration down to the handful of
// knobs this much smaller program needs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the tunables a deployment may want to override.
type Config struct {
	// DBPath is the path to the index file.
	DBPath string `yaml:"db_path"`
	// PageSize is the page size for a newly created file; ignored when
	// opening an existing one (the persisted page size always wins).
	PageSize uint64 `yaml:"page_size"`
	// CompactionSchedule is a standard 5-field cron expression for the
	// optional background compaction daemon. Empty disables it.
	CompactionSchedule string `yaml:"compaction_schedule"`
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		DBPath:             "index.db",
		PageSize:           4096,
		CompactionSchedule: "",
	}
}

// Load reads a YAML config file at path, overlaying it on top of Default.
// A missing file is not an error — it simply yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
