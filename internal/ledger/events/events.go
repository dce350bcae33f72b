// Package events publishes ledger side-effect notifications. Emission is
// best effort: a failed publish is logged, never surfaced as a call
// fault, because events are notifications rather than effects.
package events

import (
	"context"
	"time"
)

// Type identifies a ledger event.
type Type string

const (
	TypePlanCreated    Type = "PlanCreated"
	TypeSubscribed     Type = "Subscribed"
	TypePaused         Type = "Paused"
	TypeCanceled       Type = "Canceled"
	TypeProfileCreated Type = "ProfileCreated"
	TypeProfileUpdated Type = "ProfileUpdated"
	TypeContentAdded   Type = "ContentAdded"
)

// Event is one ledger notification.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	PlanID     string    `json:"planId,omitempty"`
	Creator    string    `json:"creator,omitempty"`
	Subscriber string    `json:"subscriber,omitempty"`
	ContentCID string    `json:"contentCid,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Emitter publishes ledger events.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
	Close() error
}
