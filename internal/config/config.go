package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BusinessHours bounds the hour slots synthesized for the day view.
// Values are 24h "HH:MM" strings, e.g. "09:00" / "17:00".
type BusinessHours struct {
	Start string `yaml:"start" json:"start"`
	End   string `yaml:"end" json:"end"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the web facade.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the read-only facade.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warning, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// View is the default calendar view: month, week, day or list.
	View string `yaml:"view" json:"view"`

	// WeekStart controls which weekday is treated as the first day of
	// the week in calendar views. Supported values:
	//   - "monday" (default)
	//   - "sunday"
	WeekStart string `yaml:"week_start" json:"week_start"`

	// BusinessHours bounds the day view's hourly breakdown.
	BusinessHours BusinessHours `yaml:"business_hours" json:"business_hours"`

	// HorizonDays is the number of days covered by the list view.
	HorizonDays int `yaml:"horizon_days" json:"horizon_days"`

	// CacheCapacity bounds the event store's range-query cache.
	CacheCapacity int `yaml:"cache_capacity" json:"cache_capacity"`

	// OnDuplicate selects the store's duplicate-id policy:
	//   - "reject" (default): adding an existing id fails
	//   - "overwrite": the new event replaces the stored one
	OnDuplicate string `yaml:"on_duplicate" json:"on_duplicate"`

	// OnMissingRemove selects the behavior of removing an unknown id:
	//   - "ignore" (default): silent no-op
	//   - "error": the removal reports not-found
	OnMissingRemove string `yaml:"on_missing_remove" json:"on_missing_remove"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// facade endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:          "127.0.0.1:8080",
		LogLevel:        "info",
		View:            "month",
		WeekStart:       "monday",
		BusinessHours:   BusinessHours{Start: "09:00", End: "17:00"},
		HorizonDays:     7,
		CacheCapacity:   128,
		OnDuplicate:     "reject",
		OnMissingRemove: "ignore",
		BasicAuth:       nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	switch c.View {
	case "month", "week", "day", "list":
		// ok
	default:
		c.View = "month"
	}
	switch c.WeekStart {
	case "monday", "sunday":
		// ok
	case "":
		c.WeekStart = "monday"
	default:
		// Unknown value; fall back to monday to avoid surprising layouts.
		c.WeekStart = "monday"
	}
	if c.BusinessHours.Start == "" {
		c.BusinessHours.Start = "09:00"
	}
	if c.BusinessHours.End == "" {
		c.BusinessHours.End = "17:00"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 7
	}
	if c.CacheCapacity <= 0 {
		c.CacheCapacity = 128
	}
	switch c.OnDuplicate {
	case "reject", "overwrite":
	default:
		c.OnDuplicate = "reject"
	}
	switch c.OnMissingRemove {
	case "ignore", "error":
	default:
		c.OnMissingRemove = "ignore"
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".calcore-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Set permissions to 0600 on temp file before rename.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	// Rename over the target path.
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	return nil
}

// Save is a convenience method on Config that delegates to the
// package-level Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
