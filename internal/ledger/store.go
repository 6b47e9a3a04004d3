// Package ledger is the transactional core: it validates expense and
// settlement writes against the household and applies them atomically,
// turning changes to settled splits into adjustments instead of rewriting
// history.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	"github.com/baharkarakas/household-ledger/internal/recurrence"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type Store struct {
	r   repo.Ledger
	now func() time.Time
}

func NewStore(r repo.Ledger) *Store { return &Store{r: r, now: time.Now} }

// WithClock replaces the time source; used by tests and the recurring worker.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// ExpenseInput is a fully resolved expense: explicit payments and splits in cents.
type ExpenseInput struct {
	HouseholdID         string
	Description         string
	Amount              money.Cents
	Date                time.Time
	Payments            []models.Payment
	Splits              []models.Split
	RecurringTemplateID string
}

type CreateResult struct {
	ExpenseID  string `json:"expense_id"`
	Idempotent bool   `json:"idempotent"`
}

type UpdateInput struct {
	ExpenseID   string
	Description string
	Amount      money.Cents
	Date        time.Time
	Payments    []models.Payment
	Splits      []models.Split
}

type UpdateResult struct {
	Success            bool   `json:"success"`
	Version            int64  `json:"version"`
	AdjustmentsCreated int    `json:"adjustments_created"`
	HouseholdID        string `json:"-"`
}

type DeleteOutcome string

const (
	OutcomeDeleted  DeleteOutcome = "deleted"
	OutcomeReversed DeleteOutcome = "reversed"
)

type DeleteResult struct {
	ExpenseID          string        `json:"expense_id"`
	Outcome            DeleteOutcome `json:"message"`
	AdjustmentsCreated int           `json:"adjustments_created"`
	HouseholdID        string        `json:"-"`
}

// ----------------- Helpers -----------------

func (s *Store) household(ctx context.Context, tx repo.LedgerTx, id string) (models.Household, error) {
	h, err := tx.Household(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return models.Household{}, apperr.NotFound("household", id)
	}
	return h, err
}

func (s *Store) liveExpense(ctx context.Context, tx repo.LedgerTx, id string) (models.Expense, error) {
	e, err := tx.GetExpense(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && e.Deleted()) {
		return models.Expense{}, apperr.NotFound("expense", id)
	}
	return e, err
}

func (s *Store) audit(ctx context.Context, tx repo.LedgerTx, householdID, entity, entityID, action string, details map[string]any) error {
	return tx.InsertAuditLog(ctx, models.AuditLog{
		HouseholdID: householdID,
		EntityType:  entity,
		EntityID:    entityID,
		Action:      action,
		Details:     details,
		CreatedAt:   s.now().UTC(),
	})
}

func conflict() error {
	return apperr.Conflict("expense was modified by another request; reload it and retry")
}

// ----------------- CREATE -----------------

// CreateExpense stores an expense exactly once per (household, clientUUID).
// Replaying a key returns the original expense id with Idempotent set.
func (s *Store) CreateExpense(ctx context.Context, in ExpenseInput, clientUUID string) (CreateResult, error) {
	clientUUID = strings.TrimSpace(clientUUID)
	if clientUUID == "" {
		return CreateResult{}, apperr.Validation("client_uuid", "is required")
	}
	var res CreateResult
	err := s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		var err error
		res, err = s.createExpenseTx(ctx, tx, in, clientUUID)
		return err
	})
	if errors.Is(err, repo.ErrDuplicateClientUUID) {
		// lost a race with a request carrying the same key
		res, err = s.replayExpense(ctx, in.HouseholdID, clientUUID)
	}
	if err != nil {
		return CreateResult{}, apperr.AsStorage("create expense", err)
	}
	return res, nil
}

func (s *Store) replayExpense(ctx context.Context, householdID, clientUUID string) (CreateResult, error) {
	var res CreateResult
	err := s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		id, ok, err := tx.ExpenseIDByClientUUID(ctx, householdID, clientUUID)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.Storage("create expense", repo.ErrDuplicateClientUUID)
		}
		res = CreateResult{ExpenseID: id, Idempotent: true}
		return nil
	})
	return res, err
}

func (s *Store) createExpenseTx(ctx context.Context, tx repo.LedgerTx, in ExpenseInput, clientUUID string) (CreateResult, error) {
	id, ok, err := tx.ExpenseIDByClientUUID(ctx, in.HouseholdID, clientUUID)
	if err != nil {
		return CreateResult{}, err
	}
	if ok {
		return CreateResult{ExpenseID: id, Idempotent: true}, nil
	}

	h, err := s.household(ctx, tx, in.HouseholdID)
	if err != nil {
		return CreateResult{}, err
	}
	payments, splits, err := checkExpense(in, h)
	if err != nil {
		return CreateResult{}, err
	}

	date := in.Date
	if date.IsZero() {
		date = s.now()
	}
	e := &models.Expense{
		HouseholdID: in.HouseholdID,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Date:        recurrence.Day(date),
		ClientUUID:  clientUUID,
		Payments:    payments,
		Splits:      splits,
	}
	if in.RecurringTemplateID != "" {
		tid := in.RecurringTemplateID
		e.RecurringTemplateID = &tid
	}
	if err := tx.InsertExpense(ctx, e); err != nil {
		return CreateResult{}, err
	}
	if err := s.audit(ctx, tx, e.HouseholdID, "expense", e.ID, "created", map[string]any{
		"amount":      e.Amount.String(),
		"client_uuid": clientUUID,
	}); err != nil {
		return CreateResult{}, err
	}
	return CreateResult{ExpenseID: e.ID}, nil
}

// ----------------- UPDATE -----------------

// UpdateExpense replaces the expense's description, amount, payments and
// splits when expectedVersion still matches. Unsettled splits are rewritten;
// settled splits keep their amount and receive an adjustment for the
// difference.
func (s *Store) UpdateExpense(ctx context.Context, in UpdateInput, expectedVersion int64) (UpdateResult, error) {
	var res UpdateResult
	err := s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		cur, err := s.liveExpense(ctx, tx, in.ExpenseID)
		if err != nil {
			return err
		}
		if cur.Version != expectedVersion {
			return conflict()
		}
		h, err := s.household(ctx, tx, cur.HouseholdID)
		if err != nil {
			return err
		}
		payments, splits, err := checkExpense(ExpenseInput{
			HouseholdID: cur.HouseholdID,
			Description: in.Description,
			Amount:      in.Amount,
			Payments:    in.Payments,
			Splits:      in.Splits,
		}, h)
		if err != nil {
			return err
		}

		next := cur
		next.Description = strings.TrimSpace(in.Description)
		next.Amount = in.Amount
		if !in.Date.IsZero() {
			next.Date = recurrence.Day(in.Date)
		}
		next.UpdatedAt = s.now().UTC()
		v, err := tx.BumpExpense(ctx, next, expectedVersion)
		if errors.Is(err, repo.ErrVersionMismatch) {
			return conflict()
		}
		if err != nil {
			return err
		}
		if err := tx.ReplacePayments(ctx, cur.ID, payments); err != nil {
			return err
		}
		n, err := s.reconcileSplits(ctx, tx, cur, splits)
		if err != nil {
			return err
		}
		res = UpdateResult{Success: true, Version: v, AdjustmentsCreated: n, HouseholdID: cur.HouseholdID}
		return s.audit(ctx, tx, cur.HouseholdID, "expense", cur.ID, "updated", map[string]any{
			"from_version":        expectedVersion,
			"to_version":          v,
			"amount":              next.Amount.String(),
			"adjustments_created": n,
		})
	})
	if err != nil {
		return UpdateResult{}, apperr.AsStorage("update expense", err)
	}
	return res, nil
}

// reconcileSplits moves the stored splits of cur to the wanted set and
// returns the number of adjustments written.
func (s *Store) reconcileSplits(ctx context.Context, tx repo.LedgerTx, cur models.Expense, wanted []models.Split) (int, error) {
	target := make(map[string]money.Cents, len(wanted))
	for _, sp := range wanted {
		target[sp.UserID] = sp.Amount
	}
	effective := cur.EffectiveSplitAmounts()
	now := s.now().UTC()

	existing := make(map[string]bool, len(cur.Splits))
	created := 0
	for _, old := range cur.Splits {
		existing[old.UserID] = true
		amount, keep := target[old.UserID]
		switch {
		case old.Settled:
			delta := amount - effective[old.ID]
			if delta == 0 {
				continue
			}
			if err := tx.InsertAdjustment(ctx, &models.Adjustment{
				SplitID:     old.ID,
				UserID:      old.UserID,
				AmountDelta: delta,
				Reason:      models.ReasonExpenseUpdated,
				CreatedAt:   now,
			}); err != nil {
				return 0, err
			}
			created++
		case !keep:
			if err := tx.DeleteSplit(ctx, old.ID); err != nil {
				return 0, err
			}
		case amount != old.Amount:
			if err := tx.UpdateSplitAmount(ctx, old.ID, amount); err != nil {
				return 0, err
			}
		}
	}
	for _, sp := range wanted {
		if existing[sp.UserID] {
			continue
		}
		if err := tx.InsertSplit(ctx, &models.Split{ExpenseID: cur.ID, UserID: sp.UserID, Amount: sp.Amount}); err != nil {
			return 0, err
		}
	}
	return created, nil
}

// ----------------- DELETE -----------------

// DeleteExpense removes an expense nobody has settled yet. Once any split is
// settled the expense is reversed instead: each settled split gets an
// adjustment cancelling what it still owes and the expense is soft-deleted.
func (s *Store) DeleteExpense(ctx context.Context, expenseID string) (DeleteResult, error) {
	var res DeleteResult
	err := s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		cur, err := s.liveExpense(ctx, tx, expenseID)
		if err != nil {
			return err
		}
		res = DeleteResult{ExpenseID: cur.ID, HouseholdID: cur.HouseholdID}
		if !cur.HasSettledSplits() {
			if err := tx.DeleteExpense(ctx, cur.ID); err != nil {
				return err
			}
			res.Outcome = OutcomeDeleted
			return s.audit(ctx, tx, cur.HouseholdID, "expense", cur.ID, "deleted", map[string]any{
				"amount": cur.Amount.String(),
			})
		}

		now := s.now().UTC()
		effective := cur.EffectiveSplitAmounts()
		for _, sp := range cur.Splits {
			if !sp.Settled || effective[sp.ID] == 0 {
				continue
			}
			if err := tx.InsertAdjustment(ctx, &models.Adjustment{
				SplitID:     sp.ID,
				UserID:      sp.UserID,
				AmountDelta: -effective[sp.ID],
				Reason:      models.ReasonExpenseReversed,
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			res.AdjustmentsCreated++
		}
		if err := tx.MarkExpenseDeleted(ctx, cur.ID, now); err != nil {
			return err
		}
		res.Outcome = OutcomeReversed
		return s.audit(ctx, tx, cur.HouseholdID, "expense", cur.ID, "reversed", map[string]any{
			"amount":              cur.Amount.String(),
			"adjustments_created": res.AdjustmentsCreated,
		})
	})
	if err != nil {
		return DeleteResult{}, apperr.AsStorage("delete expense", err)
	}
	return res, nil
}

// ----------------- READS -----------------

// GetExpense returns a live expense. Reversed expenses read as not found,
// matching ListExpenses.
func (s *Store) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	e, err := s.r.GetExpense(ctx, id)
	if errors.Is(err, repo.ErrNotFound) || (err == nil && e.Deleted()) {
		return models.Expense{}, apperr.NotFound("expense", id)
	}
	return e, apperr.AsStorage("get expense", err)
}

func (s *Store) ListExpenses(ctx context.Context, householdID string, limit, offset int) ([]models.Expense, error) {
	limit, offset = page(limit, offset)
	out, err := s.r.ListExpenses(ctx, householdID, limit, offset)
	return out, apperr.AsStorage("list expenses", err)
}

// Balances returns every member's net position. The amounts always sum to zero.
func (s *Store) Balances(ctx context.Context, householdID string) ([]models.Balance, error) {
	out, err := s.r.Balances(ctx, householdID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, apperr.NotFound("household", householdID)
	}
	return out, apperr.AsStorage("balances", err)
}

func page(limit, offset int) (int, int) {
	switch {
	case limit <= 0:
		limit = 50
	case limit > 200:
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
