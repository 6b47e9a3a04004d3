package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type pgTx struct{ tx pgx.Tx }

var _ repo.LedgerTx = (*pgTx)(nil)

func (t *pgTx) Household(ctx context.Context, id string) (models.Household, error) {
	return getHousehold(ctx, t.tx, id)
}

func (t *pgTx) ExpenseIDByClientUUID(ctx context.Context, householdID, clientUUID string) (string, bool, error) {
	if !isUUID(householdID) {
		return "", false, nil
	}
	var id string
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM expenses WHERE household_id = $1 AND client_uuid = $2`,
		householdID, clientUUID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	return id, err == nil, err
}

func (t *pgTx) InsertExpense(ctx context.Context, e *models.Expense) error {
	e.ID = uuid.NewString()
	now := time.Now().UTC()
	e.Version = 1
	e.CreatedAt, e.UpdatedAt = now, now

	tag, err := t.tx.Exec(ctx,
		`INSERT INTO expenses (id, household_id, description, amount_cents, expense_date, version,
		                       client_uuid, recurring_template_id, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,1,$6,$7,$8,$8)
		 ON CONFLICT ON CONSTRAINT expenses_client_uuid_key DO NOTHING`,
		e.ID, e.HouseholdID, e.Description, int64(e.Amount), e.Date, e.ClientUUID, e.RecurringTemplateID, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrDuplicateClientUUID
	}
	if err := t.ReplacePayments(ctx, e.ID, e.Payments); err != nil {
		return err
	}
	for i := range e.Splits {
		e.Splits[i].ExpenseID = e.ID
		if err := t.InsertSplit(ctx, &e.Splits[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	return loadExpense(ctx, t.tx, id, true)
}

func (t *pgTx) BumpExpense(ctx context.Context, e models.Expense, expectedVersion int64) (int64, error) {
	var v int64
	err := t.tx.QueryRow(ctx,
		`UPDATE expenses
		    SET description = $3, amount_cents = $4, expense_date = $5,
		        updated_at = now(), version = version + 1
		  WHERE id = $1 AND version = $2 AND deleted_at IS NULL
		  RETURNING version`,
		e.ID, expectedVersion, e.Description, int64(e.Amount), e.Date,
	).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repo.ErrVersionMismatch
	}
	return v, err
}

func (t *pgTx) ReplacePayments(ctx context.Context, expenseID string, payments []models.Payment) error {
	b := &pgx.Batch{}
	b.Queue(`DELETE FROM expense_payments WHERE expense_id = $1`, expenseID)
	for i, p := range payments {
		b.Queue(`INSERT INTO expense_payments (expense_id, payer_id, amount_cents, position) VALUES ($1,$2,$3,$4)`,
			expenseID, p.PayerID, int64(p.Amount), i)
	}
	return execBatch(ctx, t.tx, b)
}

func (t *pgTx) InsertSplit(ctx context.Context, s *models.Split) error {
	s.ID = uuid.NewString()
	_, err := t.tx.Exec(ctx,
		`INSERT INTO expense_splits (id, expense_id, user_id, amount_cents, position)
		 VALUES ($1, $2, $3, $4,
		         (SELECT COALESCE(MAX(position) + 1, 0) FROM expense_splits WHERE expense_id = $2))`,
		s.ID, s.ExpenseID, s.UserID, int64(s.Amount),
	)
	return err
}

func (t *pgTx) UpdateSplitAmount(ctx context.Context, splitID string, amount money.Cents) error {
	return mustAffect(t.tx.Exec(ctx,
		`UPDATE expense_splits SET amount_cents = $2 WHERE id = $1 AND NOT settled`, splitID, int64(amount)))
}

func (t *pgTx) DeleteSplit(ctx context.Context, splitID string) error {
	return mustAffect(t.tx.Exec(ctx, `DELETE FROM expense_splits WHERE id = $1 AND NOT settled`, splitID))
}

func (t *pgTx) InsertAdjustment(ctx context.Context, a *models.Adjustment) error {
	a.ID = uuid.NewString()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO expense_split_adjustments (id, split_id, user_id, amount_delta_cents, reason, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6)`,
		a.ID, a.SplitID, a.UserID, int64(a.AmountDelta), string(a.Reason), a.CreatedAt,
	)
	if pgCode(err) == codeForeignKeyViolation {
		return repo.ErrNotFound
	}
	return err
}

func (t *pgTx) MarkExpenseDeleted(ctx context.Context, id string, at time.Time) error {
	return mustAffect(t.tx.Exec(ctx,
		`UPDATE expenses SET deleted_at = $2, updated_at = $2, version = version + 1
		  WHERE id = $1 AND deleted_at IS NULL`, id, at))
}

func (t *pgTx) DeleteExpense(ctx context.Context, id string) error {
	return mustAffect(t.tx.Exec(ctx, `DELETE FROM expenses WHERE id = $1`, id))
}
