// Package events publishes ledger changes for downstream consumers
// (notifications, sync jobs). Delivery is best effort: a committed ledger
// write never fails because the broker is unavailable.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	ExpenseCreated     Type = "expense.created"
	ExpenseUpdated     Type = "expense.updated"
	ExpenseDeleted     Type = "expense.deleted"
	ExpenseReversed    Type = "expense.reversed"
	SettlementRecorded Type = "settlement.recorded"
	RecurringProcessed Type = "recurring.processed"
)

// Event is a lightweight notification: consumers fetch the entity by id.
type Event struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	HouseholdID string         `json:"household_id"`
	EntityID    string         `json:"entity_id"`
	Version     int64          `json:"version,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

func New(t Type, householdID, entityID string) Event {
	return Event{
		ID:          uuid.NewString(),
		Type:        t,
		HouseholdID: householdID,
		EntityID:    entityID,
		OccurredAt:  time.Now().UTC(),
	}
}

func (e Event) ToJSON() ([]byte, error) { return json.Marshal(e) }

func FromJSON(data []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(data, &e)
	return e, err
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event; used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
