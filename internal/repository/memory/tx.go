package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type tx struct {
	st  *state
	now func() time.Time
}

func (t *tx) Household(ctx context.Context, id string) (models.Household, error) {
	h, ok := t.st.households[id]
	if !ok {
		return models.Household{}, repo.ErrNotFound
	}
	h.Members = append([]models.Member(nil), h.Members...)
	return h, nil
}

func (t *tx) ExpenseIDByClientUUID(ctx context.Context, householdID, clientUUID string) (string, bool, error) {
	id, ok := t.st.expenseKeys[key(householdID, clientUUID)]
	return id, ok, nil
}

func (t *tx) InsertExpense(ctx context.Context, e *models.Expense) error {
	k := key(e.HouseholdID, e.ClientUUID)
	if _, dup := t.st.expenseKeys[k]; dup {
		return repo.ErrDuplicateClientUUID
	}
	now := t.now().UTC()
	e.ID = uuid.NewString()
	e.Version = 1
	e.CreatedAt, e.UpdatedAt = now, now
	for i := range e.Payments {
		e.Payments[i].ExpenseID = e.ID
	}
	for i := range e.Splits {
		e.Splits[i].ID = uuid.NewString()
		e.Splits[i].ExpenseID = e.ID
	}
	t.st.expenses[e.ID] = cloneExpense(*e)
	t.st.expenseKeys[k] = e.ID
	t.st.stamp(e.ID)
	return nil
}

func (t *tx) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	e, ok := t.st.expenses[id]
	if !ok {
		return models.Expense{}, repo.ErrNotFound
	}
	return cloneExpense(e), nil
}

func (t *tx) BumpExpense(ctx context.Context, e models.Expense, expectedVersion int64) (int64, error) {
	cur, ok := t.st.expenses[e.ID]
	if !ok || cur.Deleted() {
		return 0, repo.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return 0, repo.ErrVersionMismatch
	}
	cur.Description = e.Description
	cur.Amount = e.Amount
	cur.Date = e.Date
	cur.UpdatedAt = t.now().UTC()
	cur.Version++
	t.st.expenses[e.ID] = cur
	return cur.Version, nil
}

func (t *tx) ReplacePayments(ctx context.Context, expenseID string, payments []models.Payment) error {
	e, ok := t.st.expenses[expenseID]
	if !ok {
		return repo.ErrNotFound
	}
	e.Payments = make([]models.Payment, len(payments))
	for i, p := range payments {
		p.ExpenseID = expenseID
		e.Payments[i] = p
	}
	t.st.expenses[expenseID] = e
	return nil
}

func (t *tx) InsertSplit(ctx context.Context, s *models.Split) error {
	e, ok := t.st.expenses[s.ExpenseID]
	if !ok {
		return repo.ErrNotFound
	}
	s.ID = uuid.NewString()
	e.Splits = append(e.Splits, *s)
	t.st.expenses[s.ExpenseID] = e
	return nil
}

// findSplit returns the expense owning splitID and the split's index in it.
func (t *tx) findSplit(splitID string) (models.Expense, int, bool) {
	for _, e := range t.st.expenses {
		for i, s := range e.Splits {
			if s.ID == splitID {
				return e, i, true
			}
		}
	}
	return models.Expense{}, 0, false
}

func (t *tx) UpdateSplitAmount(ctx context.Context, splitID string, amount money.Cents) error {
	e, i, ok := t.findSplit(splitID)
	if !ok {
		return repo.ErrNotFound
	}
	e.Splits[i].Amount = amount
	t.st.expenses[e.ID] = e
	return nil
}

func (t *tx) DeleteSplit(ctx context.Context, splitID string) error {
	e, i, ok := t.findSplit(splitID)
	if !ok {
		return repo.ErrNotFound
	}
	e.Splits = append(e.Splits[:i], e.Splits[i+1:]...)
	t.st.expenses[e.ID] = e
	return nil
}

func (t *tx) InsertAdjustment(ctx context.Context, a *models.Adjustment) error {
	e, _, ok := t.findSplit(a.SplitID)
	if !ok {
		return repo.ErrNotFound
	}
	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = t.now().UTC()
	}
	e.Adjustments = append(e.Adjustments, *a)
	t.st.expenses[e.ID] = e
	return nil
}

func (t *tx) MarkExpenseDeleted(ctx context.Context, id string, at time.Time) error {
	e, ok := t.st.expenses[id]
	if !ok {
		return repo.ErrNotFound
	}
	e.DeletedAt = &at
	e.UpdatedAt = at
	e.Version++
	t.st.expenses[id] = e
	return nil
}

func (t *tx) DeleteExpense(ctx context.Context, id string) error {
	e, ok := t.st.expenses[id]
	if !ok {
		return repo.ErrNotFound
	}
	delete(t.st.expenseKeys, key(e.HouseholdID, e.ClientUUID))
	delete(t.st.expenses, id)
	return nil
}

func (t *tx) SettlementIDByClientUUID(ctx context.Context, householdID, clientUUID string) (string, bool, error) {
	id, ok := t.st.settlementKeys[key(householdID, clientUUID)]
	return id, ok, nil
}

func (t *tx) InsertSettlement(ctx context.Context, s *models.Settlement) error {
	if s.ClientUUID != nil {
		if _, dup := t.st.settlementKeys[key(s.HouseholdID, *s.ClientUUID)]; dup {
			return repo.ErrDuplicateClientUUID
		}
	}
	s.ID = uuid.NewString()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = t.now().UTC()
	}
	cp := *s
	cp.SplitIDs = append([]string(nil), s.SplitIDs...)
	t.st.settlements[s.ID] = cp
	if s.ClientUUID != nil {
		t.st.settlementKeys[key(s.HouseholdID, *s.ClientUUID)] = s.ID
	}
	t.st.stamp(s.ID)
	return nil
}

func (t *tx) SplitsForSettlement(ctx context.Context, splitIDs []string) ([]repo.SettleableSplit, error) {
	var out []repo.SettleableSplit
	for _, id := range splitIDs {
		e, i, ok := t.findSplit(id)
		if !ok {
			continue
		}
		out = append(out, repo.SettleableSplit{Split: e.Splits[i], HouseholdID: e.HouseholdID, ExpenseDeleted: e.Deleted()})
	}
	return out, nil
}

func (t *tx) MarkSplitsSettled(ctx context.Context, splitIDs []string, at time.Time) error {
	for _, id := range splitIDs {
		e, i, ok := t.findSplit(id)
		if !ok {
			return repo.ErrNotFound
		}
		e.Splits[i].Settled = true
		e.Splits[i].SettledAt = &at
		t.st.expenses[e.ID] = e
	}
	return nil
}

func (t *tx) ClaimDueTemplate(ctx context.Context, householdID string, today time.Time, skip []string) (models.RecurringTemplate, bool, error) {
	skipped := make(map[string]bool, len(skip))
	for _, id := range skip {
		skipped[id] = true
	}
	var due []models.RecurringTemplate
	for _, tpl := range t.st.templates {
		if !tpl.IsActive || tpl.NextDueDate.After(today) || skipped[tpl.ID] {
			continue
		}
		if householdID != "" && tpl.HouseholdID != householdID {
			continue
		}
		due = append(due, tpl)
	}
	if len(due) == 0 {
		return models.RecurringTemplate{}, false, nil
	}
	sort.Slice(due, func(i, j int) bool {
		if !due[i].NextDueDate.Equal(due[j].NextDueDate) {
			return due[i].NextDueDate.Before(due[j].NextDueDate)
		}
		return due[i].ID < due[j].ID
	})
	return cloneTemplate(due[0]), true, nil
}

func (t *tx) AdvanceTemplate(ctx context.Context, id string, nextDue time.Time, lastDue *time.Time, active bool) error {
	tpl, ok := t.st.templates[id]
	if !ok {
		return repo.ErrNotFound
	}
	tpl.NextDueDate = nextDue
	tpl.LastDueDate = lastDue
	tpl.IsActive = active
	t.st.templates[id] = tpl
	return nil
}

func (t *tx) InsertAuditLog(ctx context.Context, l models.AuditLog) error {
	l.ID = uuid.NewString()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = t.now().UTC()
	}
	t.st.audit = append(t.st.audit, l)
	return nil
}
