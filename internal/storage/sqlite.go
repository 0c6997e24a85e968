package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	logx "tgnotifier/pkg/logx"
)

func sqliteDialect(table string) dialect {
	return dialect{
		name: "sqlite",
		migrate: `CREATE TABLE IF NOT EXISTS ` + table + ` (
	name     TEXT PRIMARY KEY,
	value    TEXT,
	date_upd TIMESTAMP NOT NULL
)`,
		get: `SELECT value FROM ` + table + ` WHERE name = ?`,
		upsert: `INSERT INTO ` + table + `(name, value, date_upd) VALUES(?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET value = excluded.value, date_upd = excluded.date_upd`,
		del: `DELETE FROM ` + table + ` WHERE name = ?`,
	}
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, ErrNoPath
	}
	if !validPrefix(cfg.Prefix) {
		return nil, errBadPrefix
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if cfg.BusyTimeout > 0 {
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", cfg.BusyTimeout.Milliseconds()))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	st, err := newSQLStore(context.Background(), db, sqliteDialect(cfg.Prefix+"configuration"), log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}
