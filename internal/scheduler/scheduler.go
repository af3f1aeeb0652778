// Package scheduler runs batch sweeps on a wall-clock-aligned cadence so
// evaluations land just after upstream metrics windows close.
package scheduler

import (
	"context"
	"time"

	"adpilot/internal/logger"
)

// AlignedScheduler fires task at every interval boundary (UTC) plus offset.
type AlignedScheduler struct {
	Interval       time.Duration
	Offset         time.Duration
	RunImmediately bool

	ctx   context.Context
	nowFn func() time.Time
}

func NewAlignedScheduler(ctx context.Context, interval, offset time.Duration) *AlignedScheduler {
	if ctx == nil {
		ctx = context.Background()
	}
	return &AlignedScheduler{
		Interval: interval,
		Offset:   offset,
		ctx:      ctx,
		nowFn:    time.Now,
	}
}

// Start blocks, invoking task on each aligned tick until the context is done.
func (s *AlignedScheduler) Start(task func()) {
	if s == nil || task == nil {
		return
	}
	if s.Interval <= 0 {
		logger.Warnf("scheduler: invalid interval %s, not starting", s.Interval)
		return
	}
	if s.Offset < 0 {
		s.Offset = 0
	}
	if s.nowFn == nil {
		s.nowFn = time.Now
	}

	logger.Infof("scheduler: started interval=%s offset=%s run_immediately=%v",
		s.Interval, s.Offset, s.RunImmediately)
	if s.RunImmediately {
		task()
	}

	for {
		now := s.nowFn().UTC()
		wakeAt := now.Truncate(s.Interval).Add(s.Interval).Add(s.Offset)
		wait := wakeAt.Sub(now)
		if wait <= 0 {
			task()
			continue
		}
		logger.Debugf("scheduler: next sweep at %s (in %s)",
			wakeAt.Format(time.RFC3339), wait.Truncate(time.Second))

		timer := time.NewTimer(wait)
		select {
		case <-s.ctx.Done():
			timer.Stop()
			logger.Infof("scheduler: context done, stopping")
			return
		case <-timer.C:
		}
		task()
	}
}
