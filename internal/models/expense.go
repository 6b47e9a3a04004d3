package models

import (
	"time"

	"github.com/baharkarakas/household-ledger/internal/money"
)

type AdjustmentReason string

const (
	ReasonExpenseUpdated  AdjustmentReason = "expense_updated"
	ReasonExpenseReversed AdjustmentReason = "expense_reversed"
)

type Expense struct {
	ID                  string      `json:"id"`
	HouseholdID         string      `json:"household_id"`
	Description         string      `json:"description"`
	Amount              money.Cents `json:"amount"`
	Date                time.Time   `json:"date"`
	Version             int64       `json:"version"`
	ClientUUID          string      `json:"client_uuid"`
	RecurringTemplateID *string     `json:"recurring_template_id,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
	DeletedAt           *time.Time  `json:"deleted_at,omitempty"`

	Payments    []Payment    `json:"payments"`
	Splits      []Split      `json:"splits"`
	Adjustments []Adjustment `json:"adjustments,omitempty"`
}

type Payment struct {
	ExpenseID string      `json:"-"`
	PayerID   string      `json:"payer_id"`
	Amount    money.Cents `json:"amount"`
}

type Split struct {
	ID        string      `json:"id,omitempty"`
	ExpenseID string      `json:"-"`
	UserID    string      `json:"user_id"`
	Amount    money.Cents `json:"amount"`
	Settled   bool        `json:"settled"`
	SettledAt *time.Time  `json:"settled_at,omitempty"`
}

// Adjustment records a change to what a user owes on an already settled split.
// AmountDelta is an owed-delta: positive means the user owes more.
type Adjustment struct {
	ID          string           `json:"id"`
	SplitID     string           `json:"split_id"`
	UserID      string           `json:"user_id"`
	AmountDelta money.Cents      `json:"amount_delta"`
	Reason      AdjustmentReason `json:"reason"`
	CreatedAt   time.Time        `json:"created_at"`
}

func (e Expense) Deleted() bool { return e.DeletedAt != nil }

func (e Expense) HasSettledSplits() bool {
	for _, s := range e.Splits {
		if s.Settled {
			return true
		}
	}
	return false
}

// EffectiveSplitAmounts returns split id -> amount owed once adjustments are applied.
func (e Expense) EffectiveSplitAmounts() map[string]money.Cents {
	out := make(map[string]money.Cents, len(e.Splits))
	for _, s := range e.Splits {
		out[s.ID] = s.Amount
	}
	for _, a := range e.Adjustments {
		out[a.SplitID] += a.AmountDelta
	}
	return out
}
