// internal/ledger/events/log.go
package events

import (
	"context"
	"time"

	"subscription-ledger/internal/common/logger"
	"subscription-ledger/internal/common/metrics"

	"github.com/google/uuid"
)

// logEmitter writes events to the structured log. Used in tests and in
// deployments without a Kafka cluster.
type logEmitter struct {
	log logger.Logger
}

func NewLogEmitter(log logger.Logger) Emitter {
	return &logEmitter{log: log}
}

func (e *logEmitter) Emit(_ context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	metrics.LedgerEventsEmitted.WithLabelValues(string(event.Type)).Inc()
	e.log.Info("ledger event", map[string]interface{}{
		"id":         event.ID,
		"type":       event.Type,
		"planId":     event.PlanID,
		"creator":    event.Creator,
		"subscriber": event.Subscriber,
		"contentCid": event.ContentCID,
	})
	return nil
}

func (e *logEmitter) Close() error {
	return nil
}
