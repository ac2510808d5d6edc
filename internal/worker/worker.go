// Package worker consumes import-completed events and refreshes the derived
// aggregates out of process from the importer.
package worker

import (
	"context"
	"log/slog"
	"time"

	"ledgersync/internal/amqp"
	"ledgersync/internal/services"
)

type AnalyticsWorker struct {
	engine services.AnalyticsRunner
}

func NewAnalyticsWorker(engine services.AnalyticsRunner) *AnalyticsWorker {
	return &AnalyticsWorker{engine: engine}
}

// Handler adapts the worker to the consumer callback. Errors propagate so the
// delivery is nacked and requeued; re-running analytics is always safe.
func (w *AnalyticsWorker) Handler(ctx context.Context) func(*amqp.ImportCompletedMessage) error {
	return func(msg *amqp.ImportCompletedMessage) error {
		started := time.Now()
		counts, err := w.engine.Run(ctx, msg.Owner, time.Now())
		if err != nil {
			return err
		}
		slog.InfoContext(ctx, "Analytics refreshed from import event",
			"owner", msg.Owner,
			"file", msg.FileName,
			"anomalies", counts["anomalies"],
			"duration", time.Since(started))
		return nil
	}
}
