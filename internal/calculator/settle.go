package calculator

import (
	"sort"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/money"
)

// MemberBalance is one member's signed position: positive = is owed, negative = owes.
type MemberBalance struct {
	UserID string      `json:"user_id"`
	Amount money.Cents `json:"balance"`
}

// Transfer is a suggested payment from a debtor to a creditor.
type Transfer struct {
	From   string      `json:"from"`
	To     string      `json:"to"`
	Amount money.Cents `json:"amount"`
}

type position struct {
	userID    string
	remaining money.Cents
}

// OptimizeSettlements matches the largest creditor with the largest debtor
// until both sides are exhausted. The result has at most n-1 transfers for n
// members with a non-zero balance. Balances within money.Epsilon of zero are
// ignored. Any cent left on the creditor side is folded into the last
// transfer so the transfers add up to the total credit.
func OptimizeSettlements(balances []MemberBalance) ([]Transfer, error) {
	var (
		creditors, debtors []*position
		total, credit      money.Cents
		seen               = make(map[string]bool, len(balances))
	)
	for _, b := range balances {
		if b.UserID == "" {
			return nil, apperr.Validation("balances", "user id cannot be empty")
		}
		if seen[b.UserID] {
			return nil, apperr.Validationf("balances", "duplicate balance for %s", b.UserID)
		}
		seen[b.UserID] = true
		total += b.Amount

		switch {
		case b.Amount > money.Epsilon:
			creditors = append(creditors, &position{userID: b.UserID, remaining: b.Amount})
			credit += b.Amount
		case b.Amount < -money.Epsilon:
			debtors = append(debtors, &position{userID: b.UserID, remaining: -b.Amount})
		}
	}
	if tolerance := money.Epsilon * money.Cents(len(balances)); total.Abs() > tolerance {
		return nil, apperr.Validationf("balances", "balances sum to %s instead of zero", total)
	}

	var transfers []Transfer
	for len(creditors) > 0 && len(debtors) > 0 {
		sortPositions(creditors)
		sortPositions(debtors)
		c, d := creditors[0], debtors[0]

		amount := min(c.remaining, d.remaining)
		transfers = append(transfers, Transfer{From: d.userID, To: c.userID, Amount: amount})
		c.remaining -= amount
		d.remaining -= amount

		if c.remaining == 0 {
			creditors = creditors[1:]
		}
		if d.remaining == 0 {
			debtors = debtors[1:]
		}
	}

	if len(transfers) > 0 {
		var paid money.Cents
		for _, t := range transfers {
			paid += t.Amount
		}
		transfers[len(transfers)-1].Amount += credit - paid
	}
	return transfers, nil
}

func sortPositions(ps []*position) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].remaining != ps[j].remaining {
			return ps[i].remaining > ps[j].remaining
		}
		return ps[i].userID < ps[j].userID
	})
}
