package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/household-ledger/internal/money"
	"github.com/baharkarakas/household-ledger/internal/recurrence"
)

type RecurringState string

const (
	RecurringPending   RecurringState = "pending"
	RecurringDue       RecurringState = "due"
	RecurringProcessed RecurringState = "processed"
)

type RecurringTemplate struct {
	ID            string                     `json:"id"`
	HouseholdID   string                     `json:"household_id"`
	Description   string                     `json:"description"`
	Amount        money.Cents                `json:"amount"`
	PayerID       string                     `json:"payer_id"`
	Participants  []string                   `json:"participants"`
	SplitMode     string                     `json:"split_mode"`
	CustomAmounts map[string]money.Cents     `json:"custom_amounts,omitempty"`
	Percentages   map[string]decimal.Decimal `json:"percentages,omitempty"`
	Frequency     recurrence.Frequency       `json:"frequency"`
	AnchorDay     int                        `json:"anchor_day"`
	StartDate     time.Time                  `json:"start_date"`
	EndDate       *time.Time                 `json:"end_date,omitempty"`
	NextDueDate   time.Time                  `json:"next_due_date"`
	IsActive      bool                       `json:"is_active"`
	LastDueDate   *time.Time                 `json:"last_due_date,omitempty"`
	CreatedAt     time.Time                  `json:"created_at"`
}

// StateAt reports where the template stands on the given day: due when its
// next occurrence has arrived, processed when it already produced expenses
// and waits for the next one, pending otherwise.
func (t RecurringTemplate) StateAt(today time.Time) RecurringState {
	if t.IsActive && !t.NextDueDate.After(recurrence.Day(today)) {
		return RecurringDue
	}
	if t.LastDueDate != nil {
		return RecurringProcessed
	}
	return RecurringPending
}
