package refresh

import (
	"context"
	"log/slog"
	"time"
)

// Worker runs the refresh service on a fixed interval. It keeps background
// scheduling out of the service so one-shot runs and HTTP triggers share the
// same code path.
type Worker struct {
	service  *Service
	interval time.Duration
	logger   *slog.Logger
}

// NewWorker builds an interval worker. Interval must be positive.
func NewWorker(service *Service, interval time.Duration, logger *slog.Logger) *Worker {
	return &Worker{service: service, interval: interval, logger: logger}
}

// Run performs an immediate refresh, then one per interval until the context
// is canceled. Failed runs are logged and the loop continues; the next tick
// retries naturally.
func (w *Worker) Run(ctx context.Context) error {
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *Worker) runOnce(ctx context.Context) {
	if _, err := w.service.Run(ctx); err != nil {
		w.logger.ErrorContext(ctx, "scheduled refresh failed", "error", err.Error())
	}
}
