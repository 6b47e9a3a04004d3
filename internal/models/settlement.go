package models

import (
	"time"

	"github.com/baharkarakas/household-ledger/internal/money"
)

// Settlement is a real payment between two members. It nets against the
// aggregate balance, not against individual splits.
type Settlement struct {
	ID          string      `json:"id"`
	HouseholdID string      `json:"household_id"`
	PayerID     string      `json:"payer_id"`
	PayeeID     string      `json:"payee_id"`
	Amount      money.Cents `json:"amount"`
	Description string      `json:"description,omitempty"`
	ClientUUID  *string     `json:"client_uuid,omitempty"`
	SplitIDs    []string    `json:"split_ids,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
