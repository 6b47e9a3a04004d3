package models

import "github.com/baharkarakas/household-ledger/internal/money"

// Balance is derived per member from a single snapshot:
// Paid - Owed + SettlementsPaid - SettlementsReceived. Positive = is owed.
type Balance struct {
	UserID              string      `json:"user_id"`
	Balance             money.Cents `json:"balance"`
	Paid                money.Cents `json:"paid"`
	Owed                money.Cents `json:"owed"`
	SettlementsPaid     money.Cents `json:"settlements_paid"`
	SettlementsReceived money.Cents `json:"settlements_received"`
}

func (b *Balance) Compute() {
	b.Balance = b.Paid - b.Owed + b.SettlementsPaid - b.SettlementsReceived
}
