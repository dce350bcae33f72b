// internal/ledger/events/events_test.go
package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"subscription-ledger/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Payload Schema Tests
// ==========================

func TestValidatePayload(t *testing.T) {
	event := Event{
		ID:         "evt-1",
		Type:       TypeSubscribed,
		PlanID:     "p1",
		Subscriber: "0xalice",
		Timestamp:  time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	assert.NoError(t, validatePayload(payload))
}

func TestValidatePayload_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"unknown type", `{"id":"evt-1","type":"Minted","timestamp":"2026-08-28T00:00:00Z"}`},
		{"missing id", `{"type":"Subscribed","timestamp":"2026-08-28T00:00:00Z"}`},
		{"extra field", `{"id":"evt-1","type":"Paused","timestamp":"2026-08-28T00:00:00Z","amount":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, validatePayload([]byte(tt.payload)))
		})
	}
}

// ==========================
// Log Emitter Tests
// ==========================

func TestLogEmitter(t *testing.T) {
	emitter := NewLogEmitter(logger.NewTestLogger(t))

	err := emitter.Emit(context.Background(), Event{
		Type:    TypePlanCreated,
		PlanID:  "p1",
		Creator: "0xcreator",
	})
	assert.NoError(t, err)
	assert.NoError(t, emitter.Close())
}
