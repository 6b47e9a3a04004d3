package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/calculator"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/recurrence"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

// maxCatchUp bounds how many missed occurrences one claim materializes. A
// template still behind afterwards stays due and is claimed again.
const maxCatchUp = 12

// RecurringKey is the idempotency key of the expense generated for one
// occurrence, so a replayed run never creates it twice.
func RecurringKey(templateID string, due time.Time) string {
	return "recurring:" + templateID + ":" + due.Format("2006-01-02")
}

// Materialized describes what one claimed template produced.
type Materialized struct {
	TemplateID  string
	HouseholdID string
	ExpenseIDs  []string
	Replayed    int
	NextDueDate time.Time
	Active      bool
}

// ----------------- TEMPLATES -----------------

func (s *Store) CreateRecurringTemplate(ctx context.Context, t *models.RecurringTemplate) error {
	t.Description = strings.TrimSpace(t.Description)
	if t.StartDate.IsZero() {
		t.StartDate = s.now()
	}
	t.StartDate = recurrence.Day(t.StartDate)
	if t.AnchorDay == 0 {
		t.AnchorDay = t.StartDate.Day()
	}
	if t.SplitMode == "" {
		t.SplitMode = string(calculator.ModeEqual)
	}
	if err := checkTemplate(*t); err != nil {
		return err
	}
	if t.EndDate != nil {
		end := recurrence.Day(*t.EndDate)
		t.EndDate = &end
	}
	t.NextDueDate = t.StartDate
	t.IsActive = true
	t.LastDueDate = nil

	err := s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		h, err := s.household(ctx, tx, t.HouseholdID)
		if err != nil {
			return err
		}
		if !h.HasMember(t.PayerID) {
			return apperr.Reference("payer_id", t.PayerID+" is not a household member")
		}
		for _, p := range t.Participants {
			if !h.HasMember(p) {
				return apperr.Reference("participants", p+" is not a household member")
			}
		}
		return nil
	})
	if err != nil {
		return apperr.AsStorage("create recurring template", err)
	}
	return apperr.AsStorage("create recurring template", s.r.CreateRecurringTemplate(ctx, t))
}

func checkTemplate(t models.RecurringTemplate) error {
	switch {
	case t.HouseholdID == "":
		return apperr.Validation("household_id", "is required")
	case t.Description == "":
		return apperr.Validation("description", "is required")
	case len([]rune(t.Description)) > maxDescriptionLen:
		return apperr.Validationf("description", "must be at most %d characters", maxDescriptionLen)
	case t.PayerID == "":
		return apperr.Validation("payer_id", "is required")
	case !t.Frequency.Valid():
		return apperr.Validationf("frequency", "unknown frequency %q", t.Frequency)
	case t.AnchorDay < 1 || t.AnchorDay > 31:
		return apperr.Validation("anchor_day", "must be between 1 and 31")
	case t.EndDate != nil && recurrence.Day(*t.EndDate).Before(t.StartDate):
		return apperr.Validation("end_date", "must not be before start_date")
	}
	if !calculator.Mode(t.SplitMode).Valid() {
		return apperr.Validationf("split_mode", "unknown split mode %q", t.SplitMode)
	}
	_, err := templateShares(t)
	return err
}

func templateShares(t models.RecurringTemplate) ([]calculator.Share, error) {
	return calculator.Compute(calculator.SplitRequest{
		Amount:        t.Amount,
		Participants:  t.Participants,
		Mode:          calculator.Mode(t.SplitMode),
		PayerID:       t.PayerID,
		CustomAmounts: t.CustomAmounts,
		Percentages:   t.Percentages,
	})
}

func (s *Store) ListRecurringTemplates(ctx context.Context, householdID string) ([]models.RecurringTemplate, error) {
	out, err := s.r.ListRecurringTemplates(ctx, householdID)
	return out, apperr.AsStorage("list recurring templates", err)
}

func (s *Store) DeactivateRecurringTemplate(ctx context.Context, id string) error {
	err := s.r.SetRecurringTemplateActive(ctx, id, false)
	if errors.Is(err, repo.ErrNotFound) {
		return apperr.NotFound("recurring_template", id)
	}
	return apperr.AsStorage("deactivate recurring template", err)
}

// ----------------- MATERIALIZE -----------------

// MaterializeDueTemplate claims one due template of householdID (any
// household when empty) not listed in skip, creates an expense for every
// occurrence up to today and advances the template, all in one transaction.
// claimed is false when nothing was due. On error the returned
// Materialized still carries the template id so callers can skip it.
func (s *Store) MaterializeDueTemplate(ctx context.Context, householdID string, today time.Time, skip []string) (out Materialized, claimed bool, err error) {
	today = recurrence.Day(today)
	err = s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		t, ok, err := tx.ClaimDueTemplate(ctx, householdID, today, skip)
		if err != nil || !ok {
			return err
		}
		claimed = true
		out = Materialized{TemplateID: t.ID, HouseholdID: t.HouseholdID}

		h, err := tx.Household(ctx, t.HouseholdID)
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.Reference("household_id", "recurring template "+t.ID+" references a missing household")
		}
		if err != nil {
			return err
		}

		due, last, active := t.NextDueDate, t.LastDueDate, true
		for n := 0; n < maxCatchUp && !due.After(today); n++ {
			if t.EndDate != nil && due.After(*t.EndDate) {
				break
			}
			in, err := expenseFromTemplate(t, h, due)
			if err != nil {
				return err
			}
			res, err := s.createExpenseTx(ctx, tx, in, RecurringKey(t.ID, due))
			if err != nil {
				return err
			}
			if res.Idempotent {
				out.Replayed++
			} else {
				out.ExpenseIDs = append(out.ExpenseIDs, res.ExpenseID)
			}
			occurred := due
			last = &occurred
			if due, err = recurrence.Next(due, t.Frequency, t.AnchorDay); err != nil {
				return apperr.Validation("frequency", err.Error())
			}
		}
		if t.EndDate != nil && due.After(*t.EndDate) {
			active = false
		}
		out.NextDueDate, out.Active = due, active
		return tx.AdvanceTemplate(ctx, t.ID, due, last, active)
	})
	if err != nil {
		return out, claimed, apperr.AsStorage("materialize recurring template", err)
	}
	return out, claimed, nil
}

func expenseFromTemplate(t models.RecurringTemplate, h models.Household, due time.Time) (ExpenseInput, error) {
	shares, err := templateShares(t)
	if err != nil {
		return ExpenseInput{}, err
	}
	splits := make([]models.Split, len(shares))
	for i, sh := range shares {
		splits[i] = models.Split{UserID: sh.UserID, Amount: sh.Amount}
	}
	return ExpenseInput{
		HouseholdID:         h.ID,
		Description:         t.Description,
		Amount:              t.Amount,
		Date:                due,
		Payments:            []models.Payment{{PayerID: t.PayerID, Amount: t.Amount}},
		Splits:              splits,
		RecurringTemplateID: t.ID,
	}, nil
}
