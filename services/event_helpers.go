package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ttiimmothy/expense-splitter/metrics"
	"github.com/ttiimmothy/expense-splitter/notify"
)

// publishEvent announces a committed change. Delivery is best effort: the
// write already succeeded, so a failed publish is only logged.
func publishEvent(ctx context.Context, n notify.Notifier, event notify.Event) {
	if n == nil {
		return
	}
	err := n.Publish(ctx, event)
	metrics.EventsPublished.WithLabelValues(string(event.Type), metrics.Outcome(err)).Inc()
	if err != nil {
		zap.L().Warn("Failed to publish event",
			zap.String("type", string(event.Type)),
			zap.String("group_id", event.GroupID),
			zap.Error(err))
	}
}
