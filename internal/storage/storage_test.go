package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"

	logx "tgnotifier/pkg/logx"
)

// exerciseStore runs the behaviour every driver must share.
func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := st.Get(ctx, "MISSING"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := st.Set(ctx, "A", "1"); err != nil {
		t.Fatalf("Set A: %v", err)
	}
	if err := st.Set(ctx, "A", "2"); err != nil {
		t.Fatalf("Set A again: %v", err)
	}
	if err := st.Set(ctx, "EMPTY", ""); err != nil {
		t.Fatalf("Set EMPTY: %v", err)
	}
	if v, ok, err := st.Get(ctx, "A"); err != nil || !ok || v != "2" {
		t.Fatalf("Get A = %q ok=%v err=%v", v, ok, err)
	}
	if v, ok, err := st.Get(ctx, "EMPTY"); err != nil || !ok || v != "" {
		t.Fatalf("Get EMPTY = %q ok=%v err=%v (empty values must exist)", v, ok, err)
	}
	if err := st.Delete(ctx, "A", "NOPE"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := st.Get(ctx, "A"); ok {
		t.Fatal("A still present after Delete")
	}
	if err := st.Set(ctx, " ", "x"); !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("Set(blank key) err = %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	st := NewMemory()
	exerciseStore(t, st)
	_ = st.Close()
	if err := st.Set(context.Background(), "A", "1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Set after Close err = %v", err)
	}
}

func TestFileStorePersists(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := Config{Driver: "file", Path: filepath.Join(t.TempDir(), "state", "settings.json")}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	exerciseStore(t, st)
	if err := st.Set(ctx, "KEEP", "yes"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	if v, ok, _ := st2.Get(ctx, "KEEP"); !ok || v != "yes" {
		t.Fatalf("KEEP after reopen = %q ok=%v", v, ok)
	}
	if _, ok, _ := st2.Get(ctx, "A"); ok {
		t.Fatal("deleted key came back after reopen")
	}
}

func TestFileStoreReplaysJournalAndCompacts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	cfg := Config{Driver: "file", Path: filepath.Join(t.TempDir(), "settings.json")}

	st, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	st.(*fileStore).compactEvery = 2
	for _, kv := range [][2]string{{"A", "1"}, {"B", "2"}, {"C", "3"}} {
		if err := st.Set(ctx, kv[0], kv[1]); err != nil {
			t.Fatalf("Set %s: %v", kv[0], err)
		}
	}

	// Not closed: A and B come from the snapshot, C from the journal.
	st2, err := Open(cfg, logx.Nop())
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	for k, want := range map[string]string{"A": "1", "B": "2", "C": "3"} {
		if v, ok, _ := st2.Get(ctx, k); !ok || v != want {
			t.Fatalf("%s = %q ok=%v, want %q", k, v, ok, want)
		}
	}
	_ = st2.Close()
	_ = st.Close()
}

func TestSQLiteStore(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tg.db")
	st, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	exerciseStore(t, st)
	if err := st.Set(context.Background(), "KEEP", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st2, err := Open(Config{Driver: "sqlite", Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st2.Close()
	if v, ok, _ := st2.Get(context.Background(), "KEEP"); !ok || v != "1" {
		t.Fatalf("KEEP after reopen = %q ok=%v", v, ok)
	}
}

func TestRedisStore(t *testing.T) {
	t.Parallel()
	mr := miniredis.RunT(t)

	st, err := Open(Config{Driver: "redis", DSN: "redis://" + mr.Addr() + "/0"}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer st.Close()
	exerciseStore(t, st)

	if err := st.Set(context.Background(), "TOKEN", "abc"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if got := mr.HGet(DefaultRedisPrefix+"settings", "TOKEN"); got != "abc" {
		t.Fatalf("hash field = %q", got)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		cfg  Config
		want error
	}{
		{"no driver", Config{}, ErrNoDriver},
		{"file without path", Config{Driver: "file"}, ErrNoPath},
		{"sqlite without path", Config{Driver: "sqlite"}, ErrNoPath},
		{"mysql without dsn", Config{Driver: "mysql"}, ErrNoDSN},
		{"postgres without dsn", Config{Driver: "postgres"}, ErrNoDSN},
		{"redis without dsn", Config{Driver: "redis"}, ErrNoDSN},
		{"bad prefix", Config{Driver: "mysql", DSN: "u:p@tcp(127.0.0.1:3306)/shop", Prefix: "ps;drop"}, errBadPrefix},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Open(tc.cfg, logx.Nop()); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
	if _, err := Open(Config{Driver: "etcd"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver accepted")
	}
}
