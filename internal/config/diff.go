package config

import (
	"reflect"
	"strings"

	logx "tgnotifier/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe log
// fields describing them. Secrets (DSN, queue URL, API key) are never
// included; only whether they are set.
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	var (
		changed []string
		attrs   []logx.Field
	)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", newCfg.Storage.Driver),
			logx.Bool("storage.dsn_set", strings.TrimSpace(newCfg.Storage.DSN) != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.HTTP, newCfg.HTTP) {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.Bool("http.enabled", newCfg.HTTP.Enabled),
			logx.String("http.addr", newCfg.HTTP.Addr),
			logx.Bool("http.api_key_set", newCfg.HTTP.APIKey != ""),
		)
	}
	if !reflect.DeepEqual(oldCfg.Telegram, newCfg.Telegram) {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.pacing", newCfg.Telegram.Pacing),
			logx.Int("telegram.max_concurrency", newCfg.Telegram.MaxConcurrency),
		)
	}
	if !reflect.DeepEqual(oldCfg.Updates, newCfg.Updates) {
		changed = append(changed, "updates")
		attrs = append(attrs, logx.String("updates.probe_cron", newCfg.Updates.ProbeCron))
	}
	if !reflect.DeepEqual(oldCfg.Geo, newCfg.Geo) {
		changed = append(changed, "geo")
		attrs = append(attrs, logx.Int("geo.rate_per_minute", newCfg.Geo.RatePerMinute))
	}
	if !reflect.DeepEqual(oldCfg.Queue, newCfg.Queue) {
		changed = append(changed, "queue")
		attrs = append(attrs,
			logx.Bool("queue.enabled", newCfg.Queue.Enabled),
			logx.String("queue.name", newCfg.Queue.Queue),
		)
	}
	if !reflect.DeepEqual(oldCfg.SettingsSeed, newCfg.SettingsSeed) {
		changed = append(changed, "settings_seed")
		attrs = append(attrs, logx.Int("settings_seed.keys", len(newCfg.SettingsSeed)))
	}
	return changed, attrs
}

// RestartRequired lists changed sections that only take effect after a
// restart (listeners and connections are built once).
func RestartRequired(changed []string) []string {
	var out []string
	for _, s := range changed {
		switch s {
		case "storage", "http", "queue", "geo", "updates":
			out = append(out, s)
		}
	}
	return out
}
