// Package calculator holds the pure arithmetic of the ledger: turning an
// expense amount into per-member splits and a balance vector into payments.
package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/money"
)

type Mode string

const (
	ModeEqual      Mode = "equal"
	ModeCustom     Mode = "custom"
	ModePercentage Mode = "percentage"
)

var (
	hundred          = decimal.NewFromInt(100)
	percentTolerance = decimal.New(1, -2)
)

func (m Mode) Valid() bool {
	switch m {
	case ModeEqual, ModeCustom, ModePercentage:
		return true
	}
	return false
}

// SplitRequest describes how an amount is shared among participants.
type SplitRequest struct {
	Amount       money.Cents
	Participants []string
	Mode         Mode
	// PayerID receives leftover cents first; the rest follow input order.
	PayerID       string
	CustomAmounts map[string]money.Cents
	Percentages   map[string]decimal.Decimal
}

// Share is one participant's portion of the amount.
type Share struct {
	UserID string      `json:"user_id"`
	Amount money.Cents `json:"amount"`
}

// Compute returns one share per participant, in input order, summing exactly
// to req.Amount. Invalid input yields an *apperr.Error of kind validation.
func Compute(req SplitRequest) ([]Share, error) {
	if req.Amount <= 0 {
		return nil, apperr.Validation("amount", "must be positive")
	}
	if len(req.Participants) == 0 {
		return nil, apperr.Validation("participants", "at least one participant is required")
	}
	seen := make(map[string]bool, len(req.Participants))
	for _, p := range req.Participants {
		if p == "" {
			return nil, apperr.Validation("participants", "participant id cannot be empty")
		}
		if seen[p] {
			return nil, apperr.Validationf("participants", "duplicate participant %s", p)
		}
		seen[p] = true
	}

	var (
		amounts []money.Cents
		err     error
	)
	switch req.Mode {
	case ModeEqual, "":
		amounts = equalAmounts(req.Amount, len(req.Participants))
	case ModeCustom:
		amounts, err = customAmounts(req, seen)
	case ModePercentage:
		amounts, err = percentageAmounts(req, seen)
	default:
		return nil, apperr.Validationf("mode", "unknown split mode %q", req.Mode)
	}
	if err != nil {
		return nil, err
	}

	distribute(amounts, residualOrder(req.Participants, req.PayerID), req.Amount-money.Sum(amounts...))

	shares := make([]Share, len(req.Participants))
	for i, p := range req.Participants {
		shares[i] = Share{UserID: p, Amount: amounts[i]}
	}
	return shares, nil
}

func equalAmounts(amount money.Cents, n int) []money.Cents {
	base := amount / money.Cents(n)
	out := make([]money.Cents, n)
	for i := range out {
		out[i] = base
	}
	return out
}

func customAmounts(req SplitRequest, participants map[string]bool) ([]money.Cents, error) {
	for id := range req.CustomAmounts {
		if !participants[id] {
			return nil, apperr.Validationf("custom_amounts", "%s is not a participant", id)
		}
	}
	out := make([]money.Cents, len(req.Participants))
	for i, p := range req.Participants {
		v, ok := req.CustomAmounts[p]
		if !ok {
			return nil, apperr.Validationf("custom_amounts", "missing amount for %s", p)
		}
		if v < 0 {
			return nil, apperr.Validationf("custom_amounts", "amount for %s cannot be negative", p)
		}
		out[i] = v
	}
	if sum := money.Sum(out...); !sum.Within(req.Amount) {
		return nil, apperr.Validation("custom_amounts",
			fmt.Sprintf("sum %s does not match amount %s", sum, req.Amount))
	}
	return out, nil
}

func percentageAmounts(req SplitRequest, participants map[string]bool) ([]money.Cents, error) {
	for id := range req.Percentages {
		if !participants[id] {
			return nil, apperr.Validationf("percentages", "%s is not a participant", id)
		}
	}
	total := decimal.Zero
	pcts := make([]decimal.Decimal, len(req.Participants))
	for i, p := range req.Participants {
		v, ok := req.Percentages[p]
		if !ok {
			return nil, apperr.Validationf("percentages", "missing percentage for %s", p)
		}
		if v.IsNegative() {
			return nil, apperr.Validationf("percentages", "percentage for %s cannot be negative", p)
		}
		pcts[i] = v
		total = total.Add(v)
	}
	if total.Sub(hundred).Abs().GreaterThan(percentTolerance) {
		return nil, apperr.Validation("percentages",
			fmt.Sprintf("percentages sum to %s, expected 100", total.String()))
	}

	base := decimal.NewFromInt(int64(req.Amount))
	out := make([]money.Cents, len(pcts))
	for i, pct := range pcts {
		out[i] = money.Cents(base.Mul(pct).Div(hundred).Floor().IntPart())
	}
	return out, nil
}

// residualOrder lists participant indexes with the payer first.
func residualOrder(participants []string, payerID string) []int {
	order := make([]int, 0, len(participants))
	for i, p := range participants {
		if p == payerID {
			order = append(order, i)
		}
	}
	for i, p := range participants {
		if p != payerID {
			order = append(order, i)
		}
	}
	return order
}

// distribute spreads residual one cent at a time over amounts, cycling through order.
// Negative residuals take cents back, never pushing an amount below zero.
func distribute(amounts []money.Cents, order []int, residual money.Cents) {
	for residual > 0 {
		for _, i := range order {
			if residual == 0 {
				break
			}
			amounts[i]++
			residual--
		}
	}
	for residual < 0 {
		progressed := false
		for _, i := range order {
			if residual == 0 {
				break
			}
			if amounts[i] > 0 {
				amounts[i]--
				residual++
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}
