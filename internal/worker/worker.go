// Package worker runs the ledger retention sweeper.
package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kaushiksai711/Karma-AI/internal/domain"
	"github.com/kaushiksai711/Karma-AI/internal/metrics"
)

// Sweeper deletes ledger rows older than the retention window on a
// fixed interval. Awards are per-day rows, so the ledger grows without
// bound unless something trims it.
type Sweeper struct {
	ledger domain.Ledger
	bus    domain.EventBus

	interval  time.Duration
	retention int // days
	timeout   time.Duration

	sweeps  atomic.Int64
	deleted atomic.Int64

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewSweeper creates a sweeper from the ledger retention settings.
func NewSweeper(led domain.Ledger, bus domain.EventBus, cfg domain.LedgerConfig) *Sweeper {
	ctx, cancel := context.WithCancel(context.Background())

	timeout := time.Duration(cfg.SweepTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Sweeper{
		ledger:    led,
		bus:       bus,
		interval:  time.Duration(cfg.SweepInterval) * time.Second,
		retention: cfg.RetentionDays,
		timeout:   timeout,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins the sweep loop. A non-positive interval or retention
// disables sweeping entirely.
func (s *Sweeper) Start() {
	if s.interval <= 0 || s.retention <= 0 {
		slog.Info("retention sweeper disabled",
			"sweep_interval", s.interval,
			"retention_days", s.retention,
		)
		return
	}

	s.wg.Add(1)
	go s.run()

	slog.Info("retention sweeper started",
		"sweep_interval", s.interval,
		"retention_days", s.retention,
	)
}

func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.RunOnce(s.ctx); err != nil {
				slog.Error("retention sweep failed", "error", err)
			}
		}
	}
}

// sweepEvent is the payload published after each sweep.
type sweepEvent struct {
	Cutoff  string `json:"cutoff"`
	Deleted int64  `json:"deleted"`
	SweptAt string `json:"swept_at"`
}

// RunOnce performs a single time-boxed sweep: delete every award
// dated strictly before today minus the retention window.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cutoff := time.Now().UTC().AddDate(0, 0, -s.retention).Format("2006-01-02")

	deleted, err := s.ledger.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	s.sweeps.Add(1)
	s.deleted.Add(deleted)
	metrics.LedgerSweepDeleted.Add(float64(deleted))

	slog.Info("retention sweep complete",
		"cutoff", cutoff,
		"deleted", deleted,
	)

	if s.bus != nil {
		payload, _ := json.Marshal(sweepEvent{
			Cutoff:  cutoff,
			Deleted: deleted,
			SweptAt: time.Now().UTC().Format(time.RFC3339),
		})
		if err := s.bus.Publish(ctx, domain.TopicLedgerSwept, payload); err != nil {
			slog.Warn("failed to publish sweep event", "error", err)
		}
	}

	return deleted, nil
}

// Stop halts the sweep loop and waits for an in-flight sweep.
func (s *Sweeper) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("retention sweeper stopped")
}

// Stats reports sweeper counters.
type Stats struct {
	Sweeps  int64 `json:"sweeps"`
	Deleted int64 `json:"deleted"`
}

// GetStats returns current sweeper statistics.
func (s *Sweeper) GetStats() Stats {
	return Stats{
		Sweeps:  s.sweeps.Load(),
		Deleted: s.deleted.Load(),
	}
}
