// Package expirer sweeps pending proposals past their response window and
// drives them through the same conditional transition as user responses, so
// a racing accept or reject always wins over the sweep.
package expirer

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"dwello.app/dealroom/common/logger"
	"dwello.app/dealroom/core/config"
	"dwello.app/dealroom/internal/service"
	"dwello.app/dealroom/internal/store"
)

type Expirer struct {
	proposals store.ProposalStore
	service   service.ProposalService
	cfg       config.ExpirerConfig

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(proposals store.ProposalStore, svc service.ProposalService, cfg config.ExpirerConfig) *Expirer {
	return &Expirer{
		proposals: proposals,
		service:   svc,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

func (e *Expirer) Run(ctx context.Context) error {
	defer close(e.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "dealroom.expirer"})
	slog.InfoContext(ctx, "expirer started", "ttl", e.cfg.TTL, "interval", e.cfg.Interval)

	ticker := time.NewTicker(e.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.stopCh:
			slog.InfoContext(ctx, "expirer stopping")
			return nil
		case <-ticker.C:
			if err := e.sweep(ctx); err != nil {
				slog.ErrorContext(ctx, "sweep error", "error", err)
			}
		}
	}
}

func (e *Expirer) Stop() {
	close(e.stopCh)
	<-e.stoppedCh
}

// sweep expires one batch of overdue proposals. Anything resolved between
// the listing and the transition is skipped; the next tick picks up the
// remainder when the batch was full.
func (e *Expirer) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-e.cfg.TTL)

	overdue, err := e.proposals.ListExpiredPending(ctx, cutoff, e.cfg.BatchSize)
	if err != nil {
		return err
	}
	if len(overdue) == 0 {
		return nil
	}

	expired := 0
	for _, p := range overdue {
		if _, err := e.service.Expire(ctx, p.ID); err != nil {
			if errors.Is(err, service.ErrAlreadyResolved) || errors.Is(err, store.ErrNotFound) {
				continue
			}
			slog.ErrorContext(ctx, "expiring proposal failed", "error", err, "proposal_id", p.ID)
			continue
		}
		expired++
	}

	slog.InfoContext(ctx, "sweep complete", "overdue", len(overdue), "expired", expired)
	return nil
}
