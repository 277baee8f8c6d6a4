package composition

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"
)

// maintenanceSweeper periodically scans for deferred-port subscriptions
// (C7) that have outlived EngineConfig.DeferredPortTimeout. It never
// force-cancels a subscription purely on timeout — only logs — since a
// clip may legitimately take a long time to finalise its ports.
//
// Grounded on internal/scheduler/scheduler.go's use of robfig/cron for
// periodic maintenance work.
type maintenanceSweeper struct {
	c    *Composition
	cfg  EngineConfig
	cron *cron.Cron
}

func newMaintenanceSweeper(c *Composition, cfg EngineConfig) *maintenanceSweeper {
	s := &maintenanceSweeper{c: c, cfg: cfg}
	if cfg.DeferredPortSweepInterval <= 0 {
		return s
	}

	s.cron = cron.New()
	spec := fmt.Sprintf("@every %s", cfg.DeferredPortSweepInterval)
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		c.logger.Warn("failed to schedule deferred-port sweep", "error", err)
		s.cron = nil
		return s
	}
	s.cron.Start()
	return s
}

// Stop halts the sweeper. Safe to call even if sweeping was never
// started.
func (s *maintenanceSweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

func (s *maintenanceSweeper) sweep() {
	c := s.c
	now := time.Now()

	var stale int64
	c.mu.Lock()
	for _, e := range c.byID {
		if e.deferred != nil && now.Sub(e.deferred.installed) > s.cfg.DeferredPortTimeout {
			stale++
		}
	}
	c.mu.Unlock()

	if stale > 0 {
		c.logger.Warn("deferred-port subscriptions exceeding timeout",
			"count", humanize.Comma(stale),
			"timeout", s.cfg.DeferredPortTimeout,
		)
	}
}
