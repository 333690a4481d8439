// Package notify announces ledger changes to interested listeners. Only
// write paths publish; balance and suggestion reads never do.
package notify

import (
	"context"
	"errors"
	"time"
)

type EventType string

const (
	EventExpenseCreated    EventType = "expense-created"
	EventSettlementCreated EventType = "settlement-created"
	EventMemberAdded       EventType = "member-added"
	EventMemberRemoved     EventType = "member-removed"
)

type Event struct {
	Type    EventType `json:"type"`
	GroupID string    `json:"group_id"`
	ActorID string    `json:"actor_id"`
	// SubjectID is the record the event is about: an expense, a settlement
	// or the member that joined or left.
	SubjectID  string    `json:"subject_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewEvent(t EventType, groupID, actorID, subjectID string) Event {
	return Event{
		Type:       t,
		GroupID:    groupID,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
	}
}

type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi fans an event out to several notifiers. Every notifier is tried even
// when an earlier one fails.
type Multi []Notifier

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
