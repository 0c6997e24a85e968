package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	logx "tgnotifier/pkg/logx"
)

// DefaultMySQLPrefix is the shop's default table prefix.
const DefaultMySQLPrefix = "ps_"

// mysqlDialect targets the shop's configuration table. Only global rows
// (no shop / shop group) are read and written; deletes are global.
func mysqlDialect(prefix string) dialect {
	table := "`" + prefix + "configuration`"
	global := ` AND id_shop IS NULL AND id_shop_group IS NULL`
	return dialect{
		name:   "mysql",
		get:    `SELECT value FROM ` + table + ` WHERE name = ?` + global + ` LIMIT 1`,
		update: `UPDATE ` + table + ` SET value = ?, date_upd = ? WHERE name = ?` + global,
		insert: `INSERT INTO ` + table + ` (name, value, date_add, date_upd) VALUES (?, ?, ?, ?)`,
		del:    `DELETE FROM ` + table + ` WHERE name = ?`,
	}
}

func openMySQL(cfg Config, log logx.Logger) (Store, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, ErrNoDSN
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultMySQLPrefix
	}
	if !validPrefix(prefix) {
		return nil, errBadPrefix
	}

	mc, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	// Update-then-insert relies on matched rather than changed rows.
	mc.ClientFoundRows = true
	mc.ParseTime = true
	conn, err := mysql.NewConnector(mc)
	if err != nil {
		return nil, err
	}
	db := sql.OpenDB(conn)
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	st, err := newSQLStore(ctx, db, mysqlDialect(prefix), log)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}
