package storage

import (
	"context"
	"errors"
	"time"
)

var (
	ErrClosed    = errors.New("storage closed")
	ErrEmptyKey  = errors.New("storage: empty key")
	ErrNoDriver  = errors.New("storage: driver is required")
	ErrNoDSN     = errors.New("storage: dsn is required")
	ErrNoPath    = errors.New("storage: path is required")
	errBadPrefix = errors.New("storage: table prefix may only contain letters, digits and underscores")
)

// Store is a string key/value store.
//
// Get reports ok=false for a missing key. Delete of a missing key is not an
// error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Config configures storage.
//
// Driver values:
//   - "memory"
//   - "file": Path is the snapshot file (journal lives next to it)
//   - "sqlite": Path is the database file
//   - "mysql", "postgres": DSN in the driver's native format
//   - "redis": DSN is a redis:// URL
//
// Prefix is the table prefix for SQL drivers ("ps_" for mysql, none
// otherwise) and the key prefix for redis ("tgnotifier:").
type Config struct {
	Driver      string
	Path        string
	DSN         string
	Prefix      string
	BusyTimeout time.Duration // sqlite only; 0 means default
}
