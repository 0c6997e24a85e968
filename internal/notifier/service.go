package notifier

import (
	"context"
	"sync"
	"time"

	"tgnotifier/internal/telegram"
	logx "tgnotifier/pkg/logx"
	"tgnotifier/pkg/tgui"
)

// Sender sends one batch; *telegram.Client implements it.
type Sender interface {
	SendBatch(ctx context.Context, token string, reqs []telegram.Request) []telegram.Result
}

// Service is safe for concurrent use; each Deliver call is independent.
type Service struct {
	mu  sync.Mutex
	cfg Config

	log    logx.Logger
	sender Sender
	hooks  Hooks

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration)

	hmu     sync.Mutex
	history []HistoryItem
}

func New(cfg Config, sender Sender, log logx.Logger, hooks Hooks) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Service{
		log:    log.With(logx.String("comp", "notifier")),
		sender: sender,
		hooks:  hooks,
		sleep:  sleepCtx,
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Pacing == 0 {
		cfg.Pacing = DefaultPacing
	}
	if cfg.Pacing < 0 {
		cfg.Pacing = 0
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 300
	}
	s.cfg = cfg
}

// Deliver sends reqs, retrying the whole batch up to maxRetries times.
// label only tags logs and history.
func (s *Service) Deliver(ctx context.Context, label, token string, reqs []telegram.Request, maxRetries int) Report {
	s.mu.Lock()
	pacing := s.cfg.Pacing
	s.mu.Unlock()

	if maxRetries < 0 {
		maxRetries = 0
	}
	start := time.Now()
	rep := Report{Pairs: len(reqs)}
	log := s.log.With(logx.String("event", label), logx.Int("pairs", len(reqs)))

	if len(reqs) == 0 {
		rep.OK = true
		rep.Took = time.Since(start)
		return rep
	}

	maxAttempts := maxRetries + 1
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		rep.Attempts = attempt
		if s.hooks.OnAttempt != nil {
			s.hooks.OnAttempt(attempt)
		}

		results := s.sender.SendBatch(ctx, token, reqs)
		rep.Failures = rep.Failures[:0]
		for _, r := range results {
			if s.hooks.OnResult != nil {
				s.hooks.OnResult(r)
			}
			if !r.OK {
				rep.Failures = append(rep.Failures, r)
				log.Warn("telegram send failed",
					logx.String("chat_id", r.ChatID),
					logx.String("kind", r.Kind.String()),
					logx.Int("code", r.Code),
					logx.Int("retry_after", r.RetryAfter),
					logx.String("desc", r.Description),
					logx.Int("attempt", attempt),
					logx.Int("max", maxAttempts),
				)
			}
			if pacing > 0 {
				s.sleep(ctx, pacing)
			}
		}

		if len(rep.Failures) == 0 {
			rep.OK = true
			break
		}
		if wait := retryAfter(rep.Failures); wait > 0 && attempt < maxAttempts {
			log.Info("flood limited, waiting before retry", logx.Duration("wait", wait), logx.Int("attempt", attempt))
			s.sleep(ctx, wait)
		}
	}

	rep.Took = time.Since(start)
	if rep.OK {
		log.Debug("batch delivered", logx.Int("attempts", rep.Attempts), logx.Duration("took", rep.Took))
	} else {
		log.Error("batch failed", logx.Int("attempts", rep.Attempts), logx.Int("failed", len(rep.Failures)))
	}
	s.appendHistory(label, rep)
	return rep
}

func (s *Service) Snapshot() []HistoryItem {
	s.hmu.Lock()
	out := append([]HistoryItem(nil), s.history...)
	s.hmu.Unlock()
	return out
}

func (s *Service) appendHistory(label string, rep Report) {
	s.mu.Lock()
	max := s.cfg.HistorySize
	s.mu.Unlock()

	it := HistoryItem{
		At:       time.Now(),
		Label:    label,
		OK:       rep.OK,
		Attempts: rep.Attempts,
		Pairs:    rep.Pairs,
		Failed:   len(rep.Failures),
	}
	if len(rep.Failures) > 0 {
		it.Error = tgui.TruncRunes(rep.Failures[0].Description, 200)
	}

	s.hmu.Lock()
	s.history = append(s.history, it)
	if len(s.history) > max {
		s.history = s.history[len(s.history)-max:]
	}
	s.hmu.Unlock()
}

// MaxRetryAfter caps how long a 429 retry_after can hold a retry back.
const MaxRetryAfter = 30 * time.Second

// retryAfter is the longest retry_after among failures, capped.
func retryAfter(failures []telegram.Result) time.Duration {
	var longest int
	for _, f := range failures {
		longest = max(longest, f.RetryAfter)
	}
	return min(time.Duration(longest)*time.Second, MaxRetryAfter)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
