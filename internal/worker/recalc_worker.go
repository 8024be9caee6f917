// Package worker runs the background recalculation loop: it drains the
// recalc queue and keeps the daily net-worth series recorded even when
// nobody opens the dashboard.
package worker

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"kosh/internal/amqp"
	"kosh/internal/services"
)

type RecalcWorker struct {
	recalc          *services.RecalcService
	client          *amqp.Client
	interval        time.Duration
	recordAfterHour int
}

func NewRecalcWorker(recalc *services.RecalcService, client *amqp.Client, interval time.Duration, recordAfterHour int) *RecalcWorker {
	return &RecalcWorker{
		recalc:          recalc,
		client:          client,
		interval:        interval,
		recordAfterHour: recordAfterHour,
	}
}

// Run blocks until ctx is cancelled. The consumer loop and the periodic
// ticker run concurrently; either failing stops the worker.
func (w *RecalcWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if w.client != nil {
		g.Go(func() error {
			return w.client.ConsumeRecalcRequests(ctx, func(msg *amqp.RecalcRequestMessage) error {
				return w.HandleRecalcRequest(ctx, msg)
			})
		})
	} else {
		slog.InfoContext(ctx, "AMQP not configured, running on the periodic ticker only")
	}

	g.Go(func() error {
		return w.runTicker(ctx)
	})

	err := g.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}

// HandleRecalcRequest replays the ledger for one queued request.
func (w *RecalcWorker) HandleRecalcRequest(ctx context.Context, msg *amqp.RecalcRequestMessage) error {
	slog.InfoContext(ctx, "Processing recalc request",
		"reason", msg.Reason,
		"transaction_id", msg.TransactionID)

	if _, err := w.recalc.Recalculate(ctx); err != nil {
		return err
	}

	// Scheduled requests also pin the day's net-worth sample.
	if msg.Reason == amqp.ReasonScheduled {
		if _, _, err := w.recalc.RecordNetWorth(ctx, time.Now(), w.recordAfterHour, false); err != nil {
			return err
		}
	}
	return nil
}

func (w *RecalcWorker) runTicker(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.recalc.Recalculate(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic recalculation failed", "error", err)
				continue
			}
			_, recorded, err := w.recalc.RecordNetWorth(ctx, time.Now(), w.recordAfterHour, false)
			if err != nil {
				slog.ErrorContext(ctx, "Periodic net worth record failed", "error", err)
				continue
			}
			if recorded {
				slog.InfoContext(ctx, "Recorded daily net worth sample")
			}
		}
	}
}
