// Package dispatch turns a shop event into delivered Telegram messages.
//
// One Dispatch call reads a settings snapshot, renders the template for the
// event kind, optionally prepends the update banner, splits the text and
// delivers every chunk to every recipient with retry.
package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"tgnotifier/internal/notifier"
	"tgnotifier/internal/render"
	"tgnotifier/internal/settings"
	"tgnotifier/internal/shop"
	"tgnotifier/internal/storage"
	"tgnotifier/internal/telegram"
	logx "tgnotifier/pkg/logx"
	"tgnotifier/pkg/tgui"
)

var (
	ErrConfig   = errors.New("invalid notifier configuration")
	ErrRender   = errors.New("template rendering failed")
	ErrDelivery = errors.New("delivery failed")
)

type Outcome string

const (
	Skipped      Outcome = "skipped"
	Invalid      Outcome = "invalid"
	RenderFailed Outcome = "render_failed"
	Sent         Outcome = "sent"
	Failed       Outcome = "failed"
)

// Err maps failure outcomes to a sentinel error; nil for Sent and Skipped.
func (o Outcome) Err() error {
	switch o {
	case Invalid:
		return ErrConfig
	case RenderFailed:
		return ErrRender
	case Failed:
		return ErrDelivery
	}
	return nil
}

type Deliverer interface {
	Deliver(ctx context.Context, label, token string, reqs []telegram.Request, maxRetries int) notifier.Report
}

type UpdateChecker interface {
	Check(ctx context.Context, intervalHours int) string
	Banner(version string) string
}

// FieldBuilder supplies the placeholder providers for ev; shop.Fields by default.
type FieldBuilder func(ctx context.Context, ev shop.Event, geo shop.Locator, at time.Time) render.Fields

// Observer receives one call per finished dispatch (metrics).
type Observer func(kind shop.Kind, outcome Outcome, took time.Duration)

type Dispatcher struct {
	store    storage.Store
	deliver  Deliverer
	updates  UpdateChecker
	geo      shop.Locator
	log      logx.Logger
	observe  Observer
	fields   FieldBuilder
	maxChunk int

	now func() time.Time
}

type Options struct {
	Store    storage.Store
	Deliver  Deliverer
	Updates  UpdateChecker // optional
	Geo      shop.Locator  // optional; countries render as "Unknown"
	Observe  Observer      // optional
	Fields   FieldBuilder  // optional
	MaxChunk int           // 0 = tgui.MaxMessageLen
}

func New(opts Options, log logx.Logger) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	fields := opts.Fields
	if fields == nil {
		fields = shop.Fields
	}
	return &Dispatcher{
		store:    opts.Store,
		deliver:  opts.Deliver,
		updates:  opts.Updates,
		geo:      opts.Geo,
		observe:  opts.Observe,
		fields:   fields,
		maxChunk: opts.MaxChunk,
		log:      log.With(logx.String("comp", "dispatch")),
		now:      time.Now,
	}
}

type ctxKey struct{}

// WithID tags ctx with a dispatch id that is added to every log line.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func idFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// Dispatch runs the whole pipeline for ev. It never panics on bad input and
// never returns an error: failures are logged and reported as an Outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, ev shop.Event) Outcome {
	start := d.now()
	log := d.log.With(logx.String("kind", string(ev.Kind)))
	if id := idFrom(ctx); id != "" {
		log = log.With(logx.String("dispatch_id", id))
	}

	out := d.run(ctx, ev, log)
	took := d.now().Sub(start)
	if d.observe != nil {
		d.observe(ev.Kind, out, took)
	}
	log.Debug("dispatch finished", logx.String("outcome", string(out)), logx.Duration("took", took))
	return out
}

func (d *Dispatcher) run(ctx context.Context, ev shop.Event, log logx.Logger) Outcome {
	snap, err := settings.Load(ctx, d.store)
	if err != nil {
		log.Error("settings load failed", logx.Err(err))
		return Invalid
	}

	chatIDs, tpl, ok := route(snap, ev.Kind)
	if !ok {
		log.Error("unknown event kind")
		return Invalid
	}
	if len(chatIDs) == 0 {
		return Skipped
	}

	if err := settings.Validate(snap); err != nil {
		var ve *settings.ValidationError
		if errors.As(err, &ve) {
			log.Error("invalid configuration", logx.Strings("problems", ve.Problems))
		} else {
			log.Error("invalid configuration", logx.Err(err))
		}
		return Invalid
	}

	var msg string
	if ev.Kind == shop.KindTest {
		msg = shop.TestMessage
	} else {
		at := ev.At
		if at.IsZero() {
			at = d.now()
		}
		msg, err = render.Render(tpl, d.fields(ctx, ev, d.geo, at))
		if err != nil {
			log.Error("render failed", logx.Err(err))
			return RenderFailed
		}
	}

	if snap.UpdateNotifications && d.updates != nil {
		if banner := d.updates.Banner(d.updates.Check(ctx, snap.UpdateCheckInterval)); banner != "" {
			msg = banner + msg
		}
	}

	parts := tgui.Split(msg, d.maxChunk)
	if snap.MaxMessages > 0 && len(parts) > snap.MaxMessages {
		log.Warn("message truncated", logx.Int("parts", len(parts)), logx.Int("max_messages", snap.MaxMessages))
		parts = parts[:snap.MaxMessages]
	}

	reqs := make([]telegram.Request, 0, len(chatIDs)*len(parts))
	for _, id := range chatIDs {
		for _, p := range parts {
			reqs = append(reqs, telegram.Request{ChatID: id, Text: p, HTML: true})
		}
	}

	rep := d.deliver.Deliver(ctx, string(ev.Kind), snap.BotToken, reqs, snap.MaxRetries)
	if !rep.OK {
		return Failed
	}
	log.Info("notification sent", logx.Int("recipients", len(chatIDs)), logx.Int("parts", len(parts)), logx.Int("attempts", rep.Attempts))
	return Sent
}

// route picks the recipients and template for kind. Test events go to the
// order recipients.
func route(s settings.Snapshot, kind shop.Kind) ([]string, string, bool) {
	var ids []string
	var tpl string
	switch kind {
	case shop.KindOrderPlaced:
		ids, tpl = s.OrderChatIDs, s.OrderTemplate
	case shop.KindAdminLogin:
		ids, tpl = s.AdminLoginChatIDs, s.AdminLoginTemplate
	case shop.KindNewCustomer:
		ids, tpl = s.NewCustomerChatIDs, s.NewCustomerTemplate
	case shop.KindTest:
		ids = s.OrderChatIDs
	default:
		return nil, "", false
	}
	return nonBlank(ids), tpl, true
}

func nonBlank(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			out = append(out, id)
		}
	}
	return out
}
