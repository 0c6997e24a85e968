package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tgnotifier/internal/config"
	"tgnotifier/internal/dispatch"
	"tgnotifier/internal/settings"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

func TestInstallAndSendTest(t *testing.T) {
	t.Parallel()

	var sent atomic.Int32
	tg := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendMessage") {
			http.NotFound(w, r)
			return
		}
		sent.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	t.Cleanup(tg.Close)

	p := writeConfig(t, `
logging:
  level: error
storage:
  driver: memory
telegram:
  api_base: `+tg.URL+`
  pacing: -1s
settings_seed:
  TELEGRAMNOTIFY_BOT_TOKEN: "1:abc"
  TELEGRAMNOTIFY_NEW_ORDERS_CHAT_ID: "123456789"
  TELEGRAMNOTIFY_UPDATE_NOTIFICATIONS: "0"
`)
	a, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := a.Install(ctx); err != nil {
		t.Fatalf("Install: %v", err)
	}
	if got := a.SendTest(ctx); got != dispatch.Sent {
		t.Fatalf("SendTest = %s", got)
	}
	if sent.Load() != 1 {
		t.Fatalf("sent = %d", sent.Load())
	}

	if err := a.Uninstall(ctx); err != nil {
		t.Fatalf("Uninstall: %v", err)
	}
	if _, ok, _ := a.store.Get(ctx, settings.KeyBotToken); ok {
		t.Fatal("token still stored after uninstall")
	}
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStartServesHTTPAndStops(t *testing.T) {
	t.Parallel()

	p := writeConfig(t, `
logging:
  level: error
storage:
  driver: memory
http:
  enabled: true
  addr: 127.0.0.1:0
`)
	a, err := New(p)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := a.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}

	sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer scancel()
	if err := a.Stop(sctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-a.Done():
	default:
		t.Fatal("Done not closed after Stop")
	}
}

func TestMapStorageDefaults(t *testing.T) {
	t.Parallel()

	sc := mapStorage(&config.Config{})
	if sc.Driver != "sqlite" || sc.Path != "./tgnotifier.db" || sc.BusyTimeout != time.Second {
		t.Fatalf("storage = %+v", sc)
	}
	sc = mapStorage(&config.Config{Storage: config.StorageConfig{Driver: "MySQL", DSN: " u:p@/db "}})
	if sc.Driver != "mysql" || sc.DSN != "u:p@/db" || sc.Path != "" {
		t.Fatalf("storage = %+v", sc)
	}
}
