package updates

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"tgnotifier/internal/settings"
	"tgnotifier/internal/storage"
	logx "tgnotifier/pkg/logx"
)

func fakeGitHub(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/repos/acme/notifier/releases/latest" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.Header.Get("User-Agent") == "" {
			t.Error("missing User-Agent")
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newChecker(base string, st storage.Store, clock *time.Time) *Checker {
	c := New(Config{APIBase: base, Owner: "acme", Repo: "notifier", CurrentVersion: "1.0.9"}, st, logx.Nop(), nil)
	c.now = func() time.Time { return *clock }
	return c
}

func TestCheckHonoursInterval(t *testing.T) {
	t.Parallel()
	srv, calls := fakeGitHub(t, http.StatusOK, `{"tag_name":"v1.1.0"}`)
	st := storage.NewMemory()
	clock := time.Unix(1_700_000_000, 0)
	c := newChecker(srv.URL, st, &clock)
	ctx := context.Background()

	if v := c.Check(ctx, 12); v != "v1.1.0" {
		t.Fatalf("first Check = %q", v)
	}
	clock = clock.Add(11 * time.Hour)
	if v := c.Check(ctx, 12); v != "v1.1.0" {
		t.Fatalf("cached Check = %q", v)
	}
	if n := calls.Load(); n != 1 {
		t.Fatalf("network calls within interval = %d, want 1", n)
	}

	clock = clock.Add(2 * time.Hour)
	c.Check(ctx, 12)
	if n := calls.Load(); n != 2 {
		t.Fatalf("network calls after interval = %d, want 2", n)
	}

	snap, _ := settings.Load(ctx, st)
	if snap.LastUpdateCheck != clock.Unix() || snap.CachedVersion != "v1.1.0" {
		t.Fatalf("cache = %d %q", snap.LastUpdateCheck, snap.CachedVersion)
	}
}

func TestCheckFailureStillRecordsTime(t *testing.T) {
	t.Parallel()
	srv, calls := fakeGitHub(t, http.StatusForbidden, `{"message":"rate limited"}`)
	st := storage.NewMemory()
	clock := time.Unix(1_700_000_000, 0)
	c := newChecker(srv.URL, st, &clock)
	ctx := context.Background()

	if v := c.Check(ctx, 1); v != "" {
		t.Fatalf("Check = %q", v)
	}
	snap, _ := settings.Load(ctx, st)
	if snap.LastUpdateCheck != clock.Unix() {
		t.Fatalf("last check = %d", snap.LastUpdateCheck)
	}
	c.Check(ctx, 1)
	if calls.Load() != 1 {
		t.Fatalf("calls = %d, want 1 (failure must not cause hammering)", calls.Load())
	}
}

func TestCheckNotNewerCachesEmpty(t *testing.T) {
	t.Parallel()
	for _, body := range []string{`{"tag_name":"1.0.9"}`, `{"tag_name":"v1.0.1"}`, `not json`, `{}`} {
		srv, _ := fakeGitHub(t, http.StatusOK, body)
		st := storage.NewMemory()
		_ = settings.SaveUpdateCache(context.Background(), st, 0, "v9.9.9")
		clock := time.Unix(1_700_000_000, 0)
		c := newChecker(srv.URL, st, &clock)
		if v := c.Check(context.Background(), 12); v != "" {
			t.Fatalf("body %s: Check = %q", body, v)
		}
		snap, _ := settings.Load(context.Background(), st)
		if snap.CachedVersion != "" {
			t.Fatalf("body %s: cached = %q", body, snap.CachedVersion)
		}
	}
}

func TestCheckHTTPErrorKeepsCachedTag(t *testing.T) {
	t.Parallel()
	for _, status := range []int{http.StatusInternalServerError, http.StatusNotFound} {
		srv, _ := fakeGitHub(t, status, `{}`)
		st := storage.NewMemory()
		_ = settings.SaveUpdateCache(context.Background(), st, 0, "v1.2.0")
		clock := time.Unix(1_700_000_000, 0)
		c := newChecker(srv.URL, st, &clock)
		if v := c.Check(context.Background(), 12); v != "" {
			t.Fatalf("status %d: Check = %q", status, v)
		}
		snap, _ := settings.Load(context.Background(), st)
		if snap.CachedVersion != "v1.2.0" || snap.LastUpdateCheck != clock.Unix() {
			t.Fatalf("status %d: cache = %d %q", status, snap.LastUpdateCheck, snap.CachedVersion)
		}
	}
}

func TestNewer(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tag, cur string
		want     bool
	}{
		{"v1.1.0", "1.0.9", true},
		{"1.0.10", "1.0.9", true},
		{"v1.0.9", "1.0.9", false},
		{"1.0.8", "1.0.9", false},
		{"2", "1.9.9", true},
		{"1.0.9.1", "1.0.9", true},
		{"v1.1.0-rc1", "1.0.9", true},
	}
	for _, tc := range cases {
		if got := Newer(tc.tag, tc.cur); got != tc.want {
			t.Fatalf("Newer(%q, %q) = %v", tc.tag, tc.cur, got)
		}
	}
}

func TestBanner(t *testing.T) {
	t.Parallel()
	c := New(Config{}, storage.NewMemory(), logx.Nop(), nil)
	if c.Banner("") != "" {
		t.Fatal("banner for no update")
	}
	b := c.Banner("v1.1.0")
	want := "🎉 A new version of TelegramNotifier is available! Update to v1.1.0 to get the latest features and bug fixes.\n" +
		"Download: https://github.com/alex2276564/TelegramNotifier/releases/latest\n\n"
	if b != want {
		t.Fatalf("Banner = %q", b)
	}
	if !strings.HasSuffix(b, "\n\n") {
		t.Fatal("banner must end with a blank line")
	}
}

func TestProbeSkipsWhenDisabled(t *testing.T) {
	t.Parallel()
	srv, calls := fakeGitHub(t, http.StatusOK, `{"tag_name":"v2.0.0"}`)
	st := storage.NewMemory()
	ctx := context.Background()
	_ = st.Set(ctx, settings.KeyUpdateNotifications, "0")
	clock := time.Now()
	c := newChecker(srv.URL, st, &clock)

	c.probeOnce(ctx)
	if calls.Load() != 0 {
		t.Fatal("probe checked with notifications off")
	}
	_ = st.Set(ctx, settings.KeyUpdateNotifications, "1")
	c.probeOnce(ctx)
	if calls.Load() != 1 {
		t.Fatalf("calls = %d", calls.Load())
	}

	if err := c.RunProbe(ctx, "not a schedule"); err == nil {
		t.Fatal("bad schedule accepted")
	}
}
