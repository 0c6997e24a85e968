package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config is the process configuration. Notification settings (token,
// recipients, templates) live in the settings store, not here.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`
	HTTP     HTTPConfig     `json:"http"`
	Telegram TelegramConfig `json:"telegram"`
	Updates  UpdatesConfig  `json:"updates"`
	Geo      GeoConfig      `json:"geo"`
	Queue    QueueConfig    `json:"queue"`

	// SettingsSeed holds TELEGRAMNOTIFY_* values written by --install.
	// Values are raw strings as stored ("1"/"0" for booleans).
	SettingsSeed map[string]string `json:"settings_seed,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled    bool   `json:"enabled"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
	MaxAgeDays int    `json:"max_age_days,omitempty"`
}

// StorageConfig selects the settings store.
//
// Example:
//
//	"storage": { "driver": "mysql", "dsn": "shop:pw@tcp(db:3306)/prestashop", "prefix": "ps_" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	DSN         string `json:"dsn,omitempty"` // do not log
	Prefix      string `json:"prefix,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite
}

type HTTPConfig struct {
	Enabled           bool   `json:"enabled"`
	Addr              string `json:"addr,omitempty"` // default: "127.0.0.1:8089"
	APIKey            string `json:"api_key,omitempty"`
	ReadHeaderTimeout string `json:"read_header_timeout,omitempty"`
	WriteTimeout      string `json:"write_timeout,omitempty"`
	ShutdownTimeout   string `json:"shutdown_timeout,omitempty"`
}

type TelegramConfig struct {
	APIBase        string `json:"api_base,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"` // default 10s
	// Pacing is the pause after each sent message; "-1s" disables it.
	Pacing         string `json:"pacing,omitempty"`
	MaxConcurrency int    `json:"max_concurrency,omitempty"`
	HistorySize    int    `json:"history_size,omitempty"`
}

type UpdatesConfig struct {
	APIBase        string `json:"api_base,omitempty"`
	Owner          string `json:"owner,omitempty"`
	Repo           string `json:"repo,omitempty"`
	CurrentVersion string `json:"current_version,omitempty"`
	// ProbeCron enables a background check ("@every 6h", "0 */6 * * *").
	ProbeCron string `json:"probe_cron,omitempty"`
}

type GeoConfig struct {
	BaseURL       string `json:"base_url,omitempty"`
	Timeout       string `json:"timeout,omitempty"`
	RatePerMinute int    `json:"rate_per_minute,omitempty"`
}

type QueueConfig struct {
	Enabled  bool   `json:"enabled"`
	URL      string `json:"url,omitempty"` // do not log
	Queue    string `json:"queue,omitempty"`
	Prefetch int    `json:"prefetch,omitempty"`
}

var knownDrivers = map[string]bool{
	"memory": true, "mem": true, "file": true,
	"sqlite": true, "sqlite3": true,
	"mysql":    true,
	"postgres": true, "postgresql": true, "pg": true,
	"redis": true,
}

// Validate reports every structural problem at once.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	drv := strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if drv != "" && !knownDrivers[drv] {
		add(fmt.Errorf("storage.driver: unknown driver %q", c.Storage.Driver))
	}
	_, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	add(err)

	for path, raw := range map[string]string{
		"http.read_header_timeout": c.HTTP.ReadHeaderTimeout,
		"http.write_timeout":       c.HTTP.WriteTimeout,
		"http.shutdown_timeout":    c.HTTP.ShutdownTimeout,
		"telegram.request_timeout": c.Telegram.RequestTimeout,
		"geo.timeout":              c.Geo.Timeout,
	} {
		_, err := ParseDurationField(path, raw)
		add(err)
	}
	if s := strings.TrimSpace(c.Telegram.Pacing); s != "" {
		if _, err := time.ParseDuration(s); err != nil {
			add(fmt.Errorf("telegram.pacing: invalid duration %q: %w", s, err))
		}
	}
	if c.Telegram.MaxConcurrency < 0 {
		add(errors.New("telegram.max_concurrency must be >= 0"))
	}
	if c.Geo.RatePerMinute < 0 {
		add(errors.New("geo.rate_per_minute must be >= 0"))
	}
	if c.Queue.Enabled && strings.TrimSpace(c.Queue.URL) == "" {
		add(errors.New("queue.url is required when queue.enabled"))
	}
	return errors.Join(errs...)
}

// PacingDuration returns the configured pacing. Zero means "use the default";
// negative disables pacing.
func (t TelegramConfig) PacingDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(t.Pacing))
	if err != nil {
		return 0
	}
	return d
}

// Duration parses raw, falling back to def when empty or invalid. Validate
// has already rejected invalid values for a committed config.
func Duration(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationOrDefault("", raw, def)
	if err != nil {
		return def
	}
	return d
}
