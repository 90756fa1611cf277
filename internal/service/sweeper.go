package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/table-reservation/internal/clock"
	"github.com/iliyamo/table-reservation/internal/queue"
)

// OverdueMarker performs the bulk overdue transition.
type OverdueMarker interface {
	MarkOverdue(ctx context.Context, threshold, now time.Time) (int64, error)
}

// Sweeper periodically moves lapsed PENDING and APPROVED reservations to
// OVERDUE with a single conditional update.
type Sweeper struct {
	repo     OverdueMarker
	clock    clock.Clock
	interval time.Duration
	grace    time.Duration
	events   *Events
}

func NewSweeper(repo OverdueMarker, clk clock.Clock, interval, grace time.Duration, events *Events) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{repo: repo, clock: clk, interval: interval, grace: grace, events: events}
}

// SweepOnce marks every active reservation scheduled before now+grace as
// OVERDUE and returns how many rows changed.  Re-running at the same
// instant changes nothing.
func (s *Sweeper) SweepOnce(ctx context.Context) (int64, error) {
	sweepRuns.Inc()
	now := s.clock.Now()
	n, err := s.repo.MarkOverdue(ctx, now.Add(s.grace), now)
	if err != nil {
		sweepFailures.Inc()
		return 0, fmt.Errorf("sweep overdue: %w", err)
	}
	if n > 0 {
		sweepMarked.Add(float64(n))
		s.events.reservation(ctx, queue.NewOverdueEvent(n, now))
	}
	return n, nil
}

// Run sweeps once immediately and then on every tick until ctx ends.  A
// failed sweep is logged and retried on the next tick.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	n, err := s.SweepOnce(ctx)
	if err != nil {
		if ctx.Err() == nil {
			slog.Error("overdue sweep failed", "err", err)
		}
		return
	}
	if n > 0 {
		slog.Info("overdue sweep", "marked", n)
	}
}
