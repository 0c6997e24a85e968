package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tgnotifier/internal/settings"
	logx "tgnotifier/pkg/logx"
)

// RunProbe runs Check on schedule (standard 5-field cron or a descriptor
// like "@every 1h") until ctx is done. Checks are skipped while update
// notifications are off; the interval gate in Check still applies.
func (c *Checker) RunProbe(ctx context.Context, schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	cr := cron.New(cron.WithParser(parser), cron.WithLocation(time.UTC))
	if _, err := cr.AddFunc(schedule, func() { c.probeOnce(ctx) }); err != nil {
		return fmt.Errorf("update probe schedule %q: %w", schedule, err)
	}
	cr.Start()
	c.log.Info("update probe started", logx.String("schedule", schedule))

	<-ctx.Done()
	<-cr.Stop().Done()
	return nil
}

func (c *Checker) probeOnce(ctx context.Context) {
	snap, err := settings.Load(ctx, c.store)
	if err != nil {
		c.log.Warn("probe: settings unreadable", logx.Err(err))
		return
	}
	if !snap.UpdateNotifications || snap.UpdateCheckInterval < 1 {
		return
	}
	if v := c.Check(ctx, snap.UpdateCheckInterval); v != "" {
		c.log.Debug("probe: update pending", logx.String("version", v))
	}
}
