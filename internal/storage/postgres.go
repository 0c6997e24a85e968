package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	logx "tgnotifier/pkg/logx"
)

func postgresDialect(prefix string) dialect {
	table := pq.QuoteIdentifier(prefix + "configuration")
	return dialect{
		name: "postgres",
		migrate: `CREATE TABLE IF NOT EXISTS ` + table + ` (
	name     TEXT PRIMARY KEY,
	value    TEXT,
	date_upd TIMESTAMPTZ NOT NULL
)`,
		get: `SELECT value FROM ` + table + ` WHERE name = $1`,
		upsert: `INSERT INTO ` + table + ` (name, value, date_upd) VALUES ($1, $2, $3)
	ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, date_upd = EXCLUDED.date_upd`,
		del: `DELETE FROM ` + table + ` WHERE name = $1`,
	}
}

func openPostgres(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrNoDSN
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	st, err := newSQLStore(ctx, db, postgresDialect(cfg.Prefix), log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}
