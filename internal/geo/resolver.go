// Package geo resolves a client IP to a country name via ip-api.com.
//
// Lookups never fail: any problem yields Unknown.
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	logx "tgnotifier/pkg/logx"
)

const (
	Unknown = "Unknown"

	DefaultBaseURL = "http://ip-api.com"
	// ip-api's free tier allows 45 requests per minute.
	DefaultRatePerMinute = 45
)

type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerMinute int
}

type Resolver struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker
	log     logx.Logger

	onLookup func(result string)
}

func New(cfg Config, log logx.Logger, onLookup func(result string)) *Resolver {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rpm := cfg.RatePerMinute
	if rpm <= 0 {
		rpm = DefaultRatePerMinute
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	log = log.With(logx.String("comp", "geo"))

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "ip-api",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit state changed", logx.String("from", from.String()), logx.String("to", to.String()))
		},
	})

	return &Resolver{
		base:     base,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm),
		cb:       cb,
		log:      log,
		onLookup: onLookup,
	}
}

type ipAPIResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Country string `json:"country"`
}

// Country returns the country for ip, or Unknown.
func (r *Resolver) Country(ctx context.Context, ip string) string {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		r.report("skipped")
		return Unknown
	}
	if !r.limiter.Allow() {
		r.report("limited")
		return Unknown
	}

	v, err := r.cb.Execute(func() (interface{}, error) {
		return r.lookup(ctx, ip)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			r.report("open")
		} else {
			r.report("error")
			r.log.Debug("lookup failed", logx.String("ip", ip), logx.Err(err))
		}
		return Unknown
	}
	country, _ := v.(string)
	if country == "" {
		r.report("unknown")
		return Unknown
	}
	r.report("ok")
	return country
}

func (r *Resolver) lookup(ctx context.Context, ip string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.base+"/json/"+url.PathEscape(ip), nil)
	if err != nil {
		return "", err
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ip-api: http %d", resp.StatusCode)
	}
	var body ipAPIResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body); err != nil {
		return "", fmt.Errorf("ip-api: %w", err)
	}
	// A "fail" status (private range, bad query) is a valid answer, not an
	// outage; it must not trip the breaker.
	return body.Country, nil
}

func (r *Resolver) report(result string) {
	if r.onLookup != nil {
		r.onLookup(result)
	}
}
