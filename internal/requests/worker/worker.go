package worker

import (
	"context"
	"log/slog"
	"time"

	"civicledger/internal/requests/service"
)

// Refresher is the engine operation the worker drives.
type Refresher interface {
	Refresh(ctx context.Context) (*service.RefreshResult, error)
}

// Worker re-reads the ledger on a fixed interval so the view catches changes
// made by other wallets. A failed refresh is logged and retried next tick.
type Worker struct {
	engine   Refresher
	interval time.Duration
	logger   *slog.Logger
}

func NewWorker(engine Refresher, interval time.Duration, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{engine: engine, interval: interval, logger: logger}
}

// Run blocks until ctx is cancelled. A non-positive interval disables the
// worker and Run returns immediately.
func (w *Worker) Run(ctx context.Context) error {
	if w.interval <= 0 {
		return nil
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	res, err := w.engine.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.WarnContext(ctx, "background sync failed", "error", err)
		}
		return
	}
	if res.Skipped {
		w.logger.DebugContext(ctx, "background sync skipped, wallet offline")
		return
	}
	w.logger.DebugContext(ctx, "background sync complete",
		"fetched", res.Fetched,
		"requests", res.Requests,
		"call_requests", res.CallRequests,
	)
}
