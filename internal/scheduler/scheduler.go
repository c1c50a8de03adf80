// Package scheduler drives the perpetual monitoring cycle: every pass it
// re-reads the fleet, collects each host in turn with a pacing delay,
// publishes the result, and flushes the registry. Nothing a single host
// does can stop the loop.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/hostscout/hostscout/internal/collector"
	"github.com/hostscout/hostscout/internal/errors"
	"github.com/hostscout/hostscout/internal/events"
	"github.com/hostscout/hostscout/internal/logger"
	"github.com/hostscout/hostscout/internal/registry"
)

// Scheduler owns the background monitoring loop.
type Scheduler struct {
	reg       *registry.Registry
	collector *collector.Collector
	pub       events.Publisher
	log       logger.Logger

	hostDelay     time.Duration // pacing between hosts within a pass
	cycleInterval time.Duration // sleep between passes
}

// New creates a scheduler. hostDelay bounds concurrent outbound
// connections by pacing the pass; cycleInterval spaces full passes.
func New(reg *registry.Registry, col *collector.Collector, pub events.Publisher,
	hostDelay, cycleInterval time.Duration, log logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Noop()
	}
	return &Scheduler{
		reg:           reg,
		collector:     col,
		pub:           pub,
		log:           log,
		hostDelay:     hostDelay,
		cycleInterval: cycleInterval,
	}
}

// Run loops until ctx is cancelled. It never returns early: a failure
// anywhere in a pass is logged and the next pass proceeds.
func (s *Scheduler) Run(ctx context.Context) {
	s.log.Info("starting monitoring loop")
	for {
		s.runPass(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("monitoring loop stopped")
			return
		case <-time.After(s.cycleInterval):
		}
	}
}

// runPass collects every registered host once. The host list is
// re-read at the top so additions and removals since the previous pass
// are picked up. A panic in a pass is the only thing a recover guards
// against; per-host errors never escape checkHost.
func (s *Scheduler) runPass(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("monitoring pass panicked: %v", r)
		}
	}()

	hosts := s.reg.List()
	s.log.Debug("monitoring %d hosts", len(hosts))

	for i, host := range hosts {
		if ctx.Err() != nil {
			return
		}
		s.checkHost(ctx, host)

		if i < len(hosts)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.hostDelay):
			}
		}
	}

	s.reg.Flush()
}

// checkHost collects one host, stores the snapshot, and publishes the
// update. The collector never returns an error; a vanished host makes
// the upsert a no-op and the event is suppressed.
func (s *Scheduler) checkHost(ctx context.Context, host registry.HostRecord) registry.MetricsSnapshot {
	snap := s.collector.Collect(ctx, host)
	checkedAt := time.Now()

	if !s.reg.UpsertMetrics(host.ID, snap, checkedAt) {
		s.log.Debug("host %s removed mid-check, dropping result", host.ID)
		return snap
	}

	s.pub.PublishHostUpdate(events.HostUpdate{
		HostID:    host.ID,
		Metrics:   snap,
		LastCheck: checkedAt,
	})
	return snap
}

// CheckNow collects one host on demand, outside the cycle. Safe to run
// concurrently with a pass; a race on the same host is benign (last
// write wins). The registry is flushed so force-checks are durable.
func (s *Scheduler) CheckNow(ctx context.Context, hostID string) (registry.MetricsSnapshot, error) {
	host, ok := s.reg.Get(hostID)
	if !ok {
		return registry.MetricsSnapshot{}, errors.New(errors.ErrHost,
			fmt.Sprintf("Host %q not found", hostID), "")
	}

	snap := s.checkHost(ctx, host)
	s.reg.Flush()
	return snap, nil
}

// CheckSoon schedules a one-off check shortly after a host is added or
// edited, so its first snapshot lands before the next full pass.
func (s *Scheduler) CheckSoon(ctx context.Context, hostID string) {
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.hostDelay):
		}
		if _, err := s.CheckNow(ctx, hostID); err != nil {
			s.log.Debug("initial check for %s: %v", hostID, err)
		}
	}()
}
