// Package updates checks GitHub for a newer release and caches the answer in
// the settings store so restarts do not re-query.
package updates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/mod/semver"

	"tgnotifier/internal/settings"
	"tgnotifier/internal/storage"
	logx "tgnotifier/pkg/logx"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultOwner   = "alex2276564"
	DefaultRepo    = "TelegramNotifier"
	DefaultProduct = "TelegramNotifier"
)

// Version is the running build's version.
var Version = "1.0.9"

type Config struct {
	APIBase        string
	Owner          string
	Repo           string
	Product        string // name shown in the banner
	CurrentVersion string // overrides Version
	UserAgent      string
	Timeout        time.Duration
}

// Checker is safe for concurrent use; checks are serialized so concurrent
// dispatches cannot both pass the interval gate.
type Checker struct {
	cfg   Config
	store storage.Store
	http  *http.Client
	log   logx.Logger

	now     func() time.Time
	onCheck func(result string)

	mu sync.Mutex
}

func New(cfg Config, store storage.Store, log logx.Logger, onCheck func(result string)) *Checker {
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.Owner == "" {
		cfg.Owner = DefaultOwner
	}
	if cfg.Repo == "" {
		cfg.Repo = DefaultRepo
	}
	if cfg.Product == "" {
		cfg.Product = DefaultProduct
	}
	if cfg.CurrentVersion == "" {
		cfg.CurrentVersion = Version
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "tgnotifier/" + cfg.CurrentVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Checker{
		cfg:     cfg,
		store:   store,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     log.With(logx.String("comp", "updates")),
		now:     time.Now,
		onCheck: onCheck,
	}
}

// ReleasesURL is where users download the latest release.
func (c *Checker) ReleasesURL() string {
	return "https://github.com/" + c.cfg.Owner + "/" + c.cfg.Repo + "/releases/latest"
}

// Banner returns the text prepended to notifications, or "" for no update.
func (c *Checker) Banner(version string) string {
	if version == "" {
		return ""
	}
	return "🎉 A new version of " + c.cfg.Product + " is available! Update to " + version +
		" to get the latest features and bug fixes.\n" +
		"Download: " + c.ReleasesURL() + "\n\n"
}

// Check returns the newer release tag, or "".
//
// Within intervalHours of the last check the cached answer is returned
// without a request. Otherwise the latest release is fetched and the check
// time is recorded whatever the outcome.
func (c *Checker) Check(ctx context.Context, intervalHours int) string {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := settings.Load(ctx, c.store)
	if err != nil {
		c.log.Warn("update cache unreadable", logx.Err(err))
	}
	now := c.now().Unix()
	if snap.LastUpdateCheck != 0 && now-snap.LastUpdateCheck < int64(intervalHours)*3600 {
		c.report("cached")
		return snap.CachedVersion
	}

	latest, err := c.fetchLatest(ctx)
	version, cached := "", ""
	switch {
	case err != nil:
		// Only the check time moves; the cached tag is kept.
		cached = snap.CachedVersion
		c.log.Warn("update check failed", logx.Err(err))
		c.report("error")
	case Newer(latest, c.cfg.CurrentVersion):
		version, cached = latest, latest
		c.log.Info("new version available", logx.String("version", latest), logx.String("current", c.cfg.CurrentVersion))
		c.report("update")
	default:
		c.report("current")
	}

	if err := settings.SaveUpdateCache(ctx, c.store, now, cached); err != nil {
		c.log.Warn("update cache not saved", logx.Err(err))
	}
	return version
}

func (c *Checker) report(result string) {
	if c.onCheck != nil {
		c.onCheck(result)
	}
}

func (c *Checker) fetchLatest(ctx context.Context) (string, error) {
	url := c.cfg.APIBase + "/repos/" + c.cfg.Owner + "/" + c.cfg.Repo + "/releases/latest"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return "", fmt.Errorf("github releases: http %d", resp.StatusCode)
	}

	var body struct {
		TagName string `json:"tag_name"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		// Treated like a release without a tag: nothing newer.
		c.log.Debug("undecodable release response", logx.Err(err))
	}
	return strings.TrimSpace(body.TagName), nil
}

// Newer reports whether tag is a strictly higher version than current.
// A leading "v" is ignored on both.
func Newer(tag, current string) bool {
	a := "v" + strings.TrimPrefix(tag, "v")
	b := "v" + strings.TrimPrefix(current, "v")
	if semver.IsValid(a) && semver.IsValid(b) {
		return semver.Compare(a, b) > 0
	}
	return compareNumeric(a[1:], b[1:]) > 0
}

// compareNumeric compares dot-separated numeric segments; missing segments
// count as 0 and non-numeric ones as 0.
func compareNumeric(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < max(len(as), len(bs)); i++ {
		var x, y int
		if i < len(as) {
			x, _ = strconv.Atoi(as[i])
		}
		if i < len(bs) {
			y, _ = strconv.Atoi(bs[i])
		}
		if x != y {
			if x > y {
				return 1
			}
			return -1
		}
	}
	return 0
}
