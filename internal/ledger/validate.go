package ledger

import (
	"strings"
	"unicode/utf8"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
)

const maxDescriptionLen = 200

// checkExpense validates an expense against its household and returns
// normalized copies of the payments and splits. Sums that miss the amount by
// one cent are corrected on the first entry so stored rows add up exactly.
func checkExpense(in ExpenseInput, h models.Household) ([]models.Payment, []models.Split, error) {
	desc := strings.TrimSpace(in.Description)
	if desc == "" {
		return nil, nil, apperr.Validation("description", "is required")
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return nil, nil, apperr.Validationf("description", "must be at most %d characters", maxDescriptionLen)
	}
	if in.Amount <= 0 {
		return nil, nil, apperr.Validation("amount", "must be positive")
	}

	if len(in.Payments) == 0 {
		return nil, nil, apperr.Validation("payments", "at least one payment is required")
	}
	payments := make([]models.Payment, len(in.Payments))
	payers := make(map[string]bool, len(in.Payments))
	var paid money.Cents
	for i, p := range in.Payments {
		switch {
		case p.PayerID == "":
			return nil, nil, apperr.Validation("payments", "payer id is required")
		case payers[p.PayerID]:
			return nil, nil, apperr.Validationf("payments", "duplicate payer %s", p.PayerID)
		case p.Amount <= 0:
			return nil, nil, apperr.Validationf("payments", "payment by %s must be positive", p.PayerID)
		case !h.HasMember(p.PayerID):
			return nil, nil, apperr.Reference("payments", "payer "+p.PayerID+" is not a household member")
		}
		payers[p.PayerID] = true
		payments[i] = models.Payment{PayerID: p.PayerID, Amount: p.Amount}
		paid += p.Amount
	}
	if !paid.Within(in.Amount) {
		return nil, nil, apperr.Validationf("payments", "payments sum to %s but amount is %s", paid, in.Amount)
	}
	if diff := in.Amount - paid; diff != 0 {
		for i := range payments {
			if payments[i].Amount+diff > 0 {
				payments[i].Amount += diff
				break
			}
		}
	}

	if len(in.Splits) == 0 {
		return nil, nil, apperr.Validation("splits", "at least one split is required")
	}
	splits := make([]models.Split, len(in.Splits))
	owers := make(map[string]bool, len(in.Splits))
	var owed money.Cents
	for i, s := range in.Splits {
		switch {
		case s.UserID == "":
			return nil, nil, apperr.Validation("splits", "user id is required")
		case owers[s.UserID]:
			return nil, nil, apperr.Validationf("splits", "duplicate split for %s", s.UserID)
		case s.Amount < 0:
			return nil, nil, apperr.Validationf("splits", "split for %s cannot be negative", s.UserID)
		case !h.HasMember(s.UserID):
			return nil, nil, apperr.Reference("splits", "user "+s.UserID+" is not a household member")
		}
		owers[s.UserID] = true
		splits[i] = models.Split{UserID: s.UserID, Amount: s.Amount}
		owed += s.Amount
	}
	if !owed.Within(in.Amount) {
		return nil, nil, apperr.Validationf("splits", "splits sum to %s but amount is %s", owed, in.Amount)
	}
	if diff := in.Amount - owed; diff != 0 {
		for i := range splits {
			if splits[i].Amount+diff >= 0 {
				splits[i].Amount += diff
				break
			}
		}
	}
	return payments, splits, nil
}
