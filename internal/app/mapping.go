package app

import (
	"strings"
	"time"

	"tgnotifier/internal/config"
	"tgnotifier/internal/geo"
	"tgnotifier/internal/httpapi"
	"tgnotifier/internal/notifier"
	"tgnotifier/internal/queue"
	"tgnotifier/internal/storage"
	"tgnotifier/internal/telegram"
	"tgnotifier/internal/updates"
	logx "tgnotifier/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled:    cfg.Logging.File.Enabled,
			Path:       cfg.Logging.File.Path,
			MaxSizeMB:  cfg.Logging.File.MaxSizeMB,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAgeDays: cfg.Logging.File.MaxAgeDays,
		},
	}
}

// mapStorage defaults to a sqlite file next to the working directory.
func mapStorage(cfg *config.Config) storage.Config {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	if driver == "" {
		driver = "sqlite"
	}
	if path == "" {
		switch driver {
		case "sqlite", "sqlite3":
			path = "./tgnotifier.db"
		case "file":
			path = "./tgnotifier_store"
		}
	}
	return storage.Config{
		Driver:      driver,
		Path:        path,
		DSN:         strings.TrimSpace(sc.DSN),
		Prefix:      sc.Prefix,
		BusyTimeout: config.Duration(sc.BusyTimeout, time.Second),
	}
}

func mapTelegram(cfg *config.Config) telegram.Config {
	return telegram.Config{
		BaseURL:        cfg.Telegram.APIBase,
		Timeout:        config.Duration(cfg.Telegram.RequestTimeout, telegram.DefaultTimeout),
		MaxConcurrency: cfg.Telegram.MaxConcurrency,
	}
}

func mapNotifier(cfg *config.Config) notifier.Config {
	return notifier.Config{
		Pacing:      cfg.Telegram.PacingDuration(),
		HistorySize: cfg.Telegram.HistorySize,
	}
}

func mapUpdates(cfg *config.Config) updates.Config {
	return updates.Config{
		APIBase:        cfg.Updates.APIBase,
		Owner:          cfg.Updates.Owner,
		Repo:           cfg.Updates.Repo,
		CurrentVersion: cfg.Updates.CurrentVersion,
	}
}

func mapGeo(cfg *config.Config) geo.Config {
	return geo.Config{
		BaseURL:       cfg.Geo.BaseURL,
		Timeout:       config.Duration(cfg.Geo.Timeout, 10*time.Second),
		RatePerMinute: cfg.Geo.RatePerMinute,
	}
}

func mapHTTP(cfg *config.Config) httpapi.Config {
	return httpapi.Config{
		Addr:              cfg.HTTP.Addr,
		APIKey:            cfg.HTTP.APIKey,
		ReadHeaderTimeout: config.Duration(cfg.HTTP.ReadHeaderTimeout, 5*time.Second),
		WriteTimeout:      config.Duration(cfg.HTTP.WriteTimeout, 0),
		ShutdownTimeout:   config.Duration(cfg.HTTP.ShutdownTimeout, 10*time.Second),
	}
}

func mapQueue(cfg *config.Config) queue.Config {
	return queue.Config{
		URL:      cfg.Queue.URL,
		Queue:    cfg.Queue.Queue,
		Prefetch: cfg.Queue.Prefetch,
	}
}
