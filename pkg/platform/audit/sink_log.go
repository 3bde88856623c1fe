package audit

import (
	"context"
	"log/slog"
)

// LogSink writes audit events to the structured log. Development fallback
// when Kafka is not configured; the outbox still provides the durable record.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Publish(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "audit event",
		"action", event.Action,
		"asset_id", event.AssetID,
		"issuance_id", event.IssuanceID,
		"instance_id", event.InstanceID,
		"actor_id", event.ActorID,
		"reason", event.Reason,
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
