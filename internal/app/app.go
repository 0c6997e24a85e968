// Package app wires the notifier components from the process config and
// runs their background loops.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tgnotifier/internal/config"
	"tgnotifier/internal/dispatch"
	"tgnotifier/internal/geo"
	"tgnotifier/internal/httpapi"
	"tgnotifier/internal/metrics"
	"tgnotifier/internal/notifier"
	"tgnotifier/internal/queue"
	"tgnotifier/internal/runtime/supervisor"
	"tgnotifier/internal/settings"
	"tgnotifier/internal/shop"
	"tgnotifier/internal/storage"
	"tgnotifier/internal/telegram"
	"tgnotifier/internal/updates"
	logx "tgnotifier/pkg/logx"
)

type App struct {
	cfgm *config.ConfigManager
	cfg  *config.Config

	logs *logx.Service
	log  logx.Logger

	store   storage.Store
	metrics *metrics.Metrics
	tg      *telegram.Client
	notif   *notifier.Service
	updates *updates.Checker
	geo     *geo.Resolver
	disp    *dispatch.Dispatcher

	sup *supervisor.Supervisor
}

// New loads the config at cfgPath and builds every component. Nothing runs
// until Start.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewConfigManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}
	return newFromConfig(cfgm, cfg)
}

func newFromConfig(cfgm *config.ConfigManager, cfg *config.Config) (*App, error) {
	logSvc, log := logx.New(mapLogging(cfg))
	cfgm.SetLogger(log)

	store, err := storage.Open(mapStorage(cfg), log)
	if err != nil {
		_ = logSvc.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	m := metrics.New()
	tg := telegram.New(mapTelegram(cfg), log)
	notif := notifier.New(mapNotifier(cfg), tg, log, notifier.Hooks{
		OnAttempt: m.ObserveAttempt,
		OnResult:  func(r telegram.Result) { m.ObserveDelivery(deliveryLabel(r)) },
	})
	upd := updates.New(mapUpdates(cfg), store, log, m.ObserveUpdateCheck)
	geoRes := geo.New(mapGeo(cfg), log, m.ObserveGeoLookup)

	disp := dispatch.New(dispatch.Options{
		Store:   store,
		Deliver: notif,
		Updates: upd,
		Geo:     geoRes,
		Observe: func(kind shop.Kind, out dispatch.Outcome, took time.Duration) {
			m.ObserveDispatch(string(kind), string(out), took)
		},
	}, log)

	return &App{
		cfgm:    cfgm,
		cfg:     cfg,
		logs:    logSvc,
		log:     log.With(logx.String("comp", "app")),
		store:   store,
		metrics: m,
		tg:      tg,
		notif:   notif,
		updates: upd,
		geo:     geoRes,
		disp:    disp,
	}, nil
}

func deliveryLabel(r telegram.Result) string {
	if r.OK {
		return "ok"
	}
	return r.Kind.String()
}

func (a *App) Dispatcher() *dispatch.Dispatcher { return a.disp }

// Done is closed when the supervisor stops (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Install seeds the settings store from settings_seed.
func (a *App) Install(ctx context.Context) error {
	if err := settings.Install(ctx, a.store, a.cfg.SettingsSeed); err != nil {
		return err
	}
	snap, err := settings.Load(ctx, a.store)
	if err != nil {
		return err
	}
	if err := settings.Validate(snap); err != nil {
		// installed anyway; dispatch stays disabled until fixed
		a.log.Warn("settings installed but incomplete", logx.Err(err))
		return nil
	}
	a.log.Info("settings installed")
	return nil
}

func (a *App) Uninstall(ctx context.Context) error {
	if err := settings.Uninstall(ctx, a.store); err != nil {
		return err
	}
	a.log.Info("settings removed")
	return nil
}

// SendTest dispatches the test message synchronously.
func (a *App) SendTest(ctx context.Context) dispatch.Outcome {
	return a.disp.Dispatch(ctx, shop.Event{Kind: shop.KindTest})
}

// Start launches the HTTP server, queue consumer, update probe and config
// watcher, each as configured.
func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.New(ctx, supervisor.WithLogger(a.log), supervisor.WithCancelOnError(true))
	cfg := a.cfg

	if cfg.HTTP.Enabled {
		srv := httpapi.New(mapHTTP(cfg), httpapi.Deps{
			Dispatcher: a.disp,
			Store:      a.store,
			Verifier:   a.tg,
			History:    a.notif.Snapshot,
			Metrics:    a.metrics.Handler(),
			Version:    updates.Version,
		}, a.log)
		a.sup.GoRestart("http", srv.Run, supervisor.WithMaxRestarts(5))
	}
	if cfg.Queue.Enabled {
		c := queue.New(mapQueue(cfg), a.disp, a.log)
		a.sup.GoRestart("queue", c.Run, supervisor.WithRestartBackoff(time.Second, time.Minute))
	}
	if sched := strings.TrimSpace(cfg.Updates.ProbeCron); sched != "" {
		a.sup.Go("updates.probe", func(ctx context.Context) error {
			return a.updates.RunProbe(ctx, sched)
		})
	}

	a.sup.Go("config.watch", a.cfgm.Watch)
	sub := a.cfgm.Subscribe(4)
	a.sup.Go("config.apply", func(ctx context.Context) error {
		defer a.cfgm.Unsubscribe(sub)
		a.applyLoop(ctx, sub)
		return nil
	})

	a.log.Info("tgnotifier started",
		logx.String("version", updates.Version),
		logx.String("storage", mapStorage(cfg).Driver),
		logx.Bool("http", cfg.HTTP.Enabled),
		logx.Bool("queue", cfg.Queue.Enabled),
	)
	return nil
}

// applyLoop hot-applies logging and delivery pacing. Other sections need a
// restart.
func (a *App) applyLoop(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfg
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			changed, attrs := config.SummarizeChange(last, next)
			if len(changed) == 0 {
				continue
			}
			a.log.Info("config changed", append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)...)
			a.logs.Apply(mapLogging(next))
			a.notif.Apply(mapNotifier(next))
			if rs := config.RestartRequired(changed); len(rs) > 0 {
				a.log.Warn("restart required for config changes", logx.Strings("sections", rs))
			}
			last = next
		}
	}
}

// Stop stops every loop, then closes storage and the log sinks.
func (a *App) Stop(ctx context.Context) error {
	var errs []error
	if a.sup != nil {
		if err := a.sup.Stop(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	a.log.Info("tgnotifier stopped")
	if err := a.logs.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
