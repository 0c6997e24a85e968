// Package telegram delivers text messages through the Bot API sendMessage
// method.
package telegram

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	logx "tgnotifier/pkg/logx"
)

const (
	DefaultBaseURL = "https://api.telegram.org"
	DefaultTimeout = 10 * time.Second

	maxResponseBytes = 1 << 20
)

var ErrNoToken = errors.New("telegram: bot token is empty")

type Config struct {
	BaseURL        string
	Timeout        time.Duration // per request
	MaxConcurrency int           // 0 = NumCPU*4
}

// Request is one (chat, text) pair. HTML selects parse_mode=HTML.
type Request struct {
	ChatID string
	Text   string
	HTML   bool
}

// Kind classifies a failed delivery.
type Kind uint8

const (
	KindNone      Kind = iota
	KindTransport      // request never got a usable HTTP response
	KindRemote         // the API answered ok=false
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRemote:
		return "remote"
	default:
		return "none"
	}
}

// Result is the outcome of one Request.
type Result struct {
	ChatID      string
	OK          bool
	Kind        Kind
	Description string // transport error text or API description
	Code        int    // API error_code, if any
	RetryAfter  int    // seconds, from 429 responses
}

// Err returns nil for a successful result.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if r.Code != 0 {
		return fmt.Errorf("telegram %s error %d: %s", r.Kind, r.Code, r.Description)
	}
	return fmt.Errorf("telegram %s error: %s", r.Kind, r.Description)
}

type Client struct {
	base    string
	http    *http.Client
	maxConc int
	log     logx.Logger
}

func New(cfg Config, log logx.Logger) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = runtime.NumCPU() * 4
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	// Peer verification stays on; only the floor is raised.
	tr.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}

	return &Client{
		base:    base,
		http:    &http.Client{Timeout: timeout, Transport: tr},
		maxConc: maxConc,
		log:     log.With(logx.String("comp", "telegram")),
	}
}

// SendBatch sends every request and returns results in request order.
// More than one request runs concurrently, bounded by MaxConcurrency.
func (c *Client) SendBatch(ctx context.Context, token string, reqs []Request) []Result {
	out := make([]Result, len(reqs))
	if len(reqs) == 0 {
		return out
	}
	if strings.TrimSpace(token) == "" {
		for i, r := range reqs {
			out[i] = Result{ChatID: r.ChatID, Kind: KindTransport, Description: ErrNoToken.Error()}
		}
		return out
	}
	if len(reqs) == 1 {
		out[0] = c.send(ctx, token, reqs[0])
		return out
	}

	var g errgroup.Group
	g.SetLimit(min(len(reqs), c.maxConc))
	for i, r := range reqs {
		g.Go(func() error {
			out[i] = c.send(ctx, token, r)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Client) send(ctx context.Context, token string, r Request) Result {
	res := Result{ChatID: r.ChatID}

	form := url.Values{}
	form.Set("chat_id", r.ChatID)
	form.Set("text", r.Text)
	form.Set("disable_web_page_preview", "true")
	if r.HTML {
		form.Set("parse_mode", "HTML")
	}

	endpoint := c.base + "/bot" + url.PathEscape(token) + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		res.Kind, res.Description = KindTransport, redact(err, token)
		return res
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		res.Kind, res.Description = KindTransport, redact(err, token)
		return res
	}
	defer resp.Body.Close()

	var body struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code"`
		Description string `json:"description"`
		Parameters  struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		res.Kind, res.Description = KindTransport, redact(err, token)
		return res
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		c.log.Debug("undecodable sendMessage response", logx.Int("status", resp.StatusCode), logx.Err(err))
	}

	if body.OK {
		res.OK = true
		return res
	}
	res.Kind = KindRemote
	res.Code = body.ErrorCode
	res.RetryAfter = body.Parameters.RetryAfter
	res.Description = body.Description
	if res.Description == "" {
		res.Description = "Unknown error"
		if resp.StatusCode/100 != 2 {
			res.Description += " (http " + strconv.Itoa(resp.StatusCode) + ")"
		}
	}
	return res
}

// redact drops the request URL (which embeds the bot token) from err.
func redact(err error, token string) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		err = ue.Err
	}
	msg := err.Error()
	if token != "" {
		msg = strings.ReplaceAll(msg, token, "<token>")
		msg = strings.ReplaceAll(msg, url.PathEscape(token), "<token>")
	}
	return msg
}
