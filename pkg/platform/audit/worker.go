package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Worker drains the outbox to the sink. One instance runs per process;
// at-least-once delivery, consumers must tolerate duplicates.
type Worker struct {
	store    Store
	sink     Sink
	logger   *slog.Logger
	interval time.Duration
	batch    int
}

// NewWorker creates an outbox drain worker.
func NewWorker(store Store, sink Sink, logger *slog.Logger) *Worker {
	return &Worker{
		store:    store,
		sink:     sink,
		logger:   logger,
		interval: time.Second,
		batch:    100,
	}
}

// Run drains until ctx is cancelled. Publish failures are logged and retried
// on the next tick; the outbox keeps the events until they go through.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.drainOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "audit outbox drain failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainOnce(ctx context.Context) error {
	events, err := w.store.Pending(ctx, w.batch)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	published := make([]uuid.UUID, 0, len(events))
	for _, e := range events {
		if err := w.sink.Publish(ctx, e); err != nil {
			// Stop at the first failure to preserve append order.
			w.logger.WarnContext(ctx, "audit publish failed, will retry",
				"event_id", e.ID, "action", e.Action, "error", err)
			break
		}
		published = append(published, e.ID)
	}
	return w.store.MarkPublished(ctx, published)
}
