package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	logx "tgnotifier/pkg/logx"
)

// dialect holds the per-database SQL for sqlStore.
type dialect struct {
	name    string
	migrate string // empty: table is owned by someone else

	get    string // args: name
	upsert string // args: name, value, now; empty: use update + insert
	update string // args: value, now, name
	insert string // args: name, value, now (date_add), now (date_upd)
	del    string // args: name
}

// sqlStore is shared by the sqlite, postgres and mysql drivers.
type sqlStore struct {
	db  *sql.DB
	d   dialect
	log logx.Logger

	now func() time.Time
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, log logx.Logger) (*sqlStore, error) {
	s := &sqlStore{db: db, d: d, log: log, now: time.Now}
	if d.migrate != "" {
		if _, err := db.ExecContext(ctx, d.migrate); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *sqlStore) Get(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var v sql.NullString
	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v.String, true, nil
}

func (s *sqlStore) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyKey
	}
	now := s.now().UTC()
	if s.d.upsert != "" {
		_, err := s.db.ExecContext(ctx, s.d.upsert, key, value, now)
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.d.update, value, now, key)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		if _, err := tx.ExecContext(ctx, s.d.insert, key, value, now, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, s.d.del, k); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
