package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/household-ledger/internal/models"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type ledgerRepo struct{ pool *pgxpool.Pool }

var _ repo.Ledger = (*ledgerRepo)(nil)

// WithTx runs fn in one READ COMMITTED transaction. Writers on the same
// expense are serialized by row locks and the version check, so a stale
// update fails as ErrVersionMismatch instead of a serialization error.
func (r *ledgerRepo) WithTx(ctx context.Context, fn func(repo.LedgerTx) error) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return err
	}
	if err := fn(&pgTx{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

const expenseCols = `id, household_id, description, amount_cents, expense_date, version,
       client_uuid, recurring_template_id, created_at, updated_at, deleted_at`

func scanExpense(row pgx.Row, e *models.Expense) error {
	return row.Scan(
		&e.ID, &e.HouseholdID, &e.Description, (*int64)(&e.Amount), &e.Date, &e.Version,
		&e.ClientUUID, &e.RecurringTemplateID, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
}

// loadExpense reads one expense with its payments, splits and adjustments.
// lock takes a row lock on the expense for the rest of the transaction.
func loadExpense(ctx context.Context, q querier, id string, lock bool) (models.Expense, error) {
	if !isUUID(id) {
		return models.Expense{}, repo.ErrNotFound
	}
	sql := `SELECT ` + expenseCols + ` FROM expenses WHERE id = $1`
	if lock {
		sql += ` FOR UPDATE`
	}
	var e models.Expense
	if err := scanExpense(q.QueryRow(ctx, sql, id), &e); err != nil {
		return models.Expense{}, notFound(err)
	}
	out := []models.Expense{e}
	if err := attachChildren(ctx, q, out); err != nil {
		return models.Expense{}, err
	}
	return out[0], nil
}

// attachChildren fills payments, splits and adjustments of exps in three queries.
func attachChildren(ctx context.Context, q querier, exps []models.Expense) error {
	if len(exps) == 0 {
		return nil
	}
	ids := make([]string, len(exps))
	idx := make(map[string]*models.Expense, len(exps))
	for i := range exps {
		ids[i] = exps[i].ID
		exps[i].Payments = []models.Payment{}
		exps[i].Splits = []models.Split{}
		idx[exps[i].ID] = &exps[i]
	}

	rows, err := q.Query(ctx,
		`SELECT expense_id, payer_id, amount_cents
		   FROM expense_payments
		  WHERE expense_id::text = ANY($1::text[])
		  ORDER BY expense_id, position`, ids)
	if err != nil {
		return err
	}
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ExpenseID, &p.PayerID, (*int64)(&p.Amount)); err != nil {
			rows.Close()
			return err
		}
		idx[p.ExpenseID].Payments = append(idx[p.ExpenseID].Payments, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx,
		`SELECT id, expense_id, user_id, amount_cents, settled, settled_at
		   FROM expense_splits
		  WHERE expense_id::text = ANY($1::text[])
		  ORDER BY expense_id, position`, ids)
	if err != nil {
		return err
	}
	splitOwner := map[string]string{}
	for rows.Next() {
		var s models.Split
		if err := rows.Scan(&s.ID, &s.ExpenseID, &s.UserID, (*int64)(&s.Amount), &s.Settled, &s.SettledAt); err != nil {
			rows.Close()
			return err
		}
		splitOwner[s.ID] = s.ExpenseID
		idx[s.ExpenseID].Splits = append(idx[s.ExpenseID].Splits, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q.Query(ctx,
		`SELECT a.id, a.split_id, a.user_id, a.amount_delta_cents, a.reason, a.created_at
		   FROM expense_split_adjustments a
		   JOIN expense_splits s ON s.id = a.split_id
		  WHERE s.expense_id::text = ANY($1::text[])
		  ORDER BY a.seq`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var a models.Adjustment
		if err := rows.Scan(&a.ID, &a.SplitID, &a.UserID, (*int64)(&a.AmountDelta), (*string)(&a.Reason), &a.CreatedAt); err != nil {
			return err
		}
		e := idx[splitOwner[a.SplitID]]
		e.Adjustments = append(e.Adjustments, a)
	}
	return rows.Err()
}

func (r *ledgerRepo) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	return loadExpense(ctx, r.pool, id, false)
}

func (r *ledgerRepo) ListExpenses(ctx context.Context, householdID string, limit, offset int) ([]models.Expense, error) {
	if !isUUID(householdID) {
		return []models.Expense{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+expenseCols+`
		   FROM expenses
		  WHERE household_id = $1 AND deleted_at IS NULL
		  ORDER BY expense_date DESC, created_at DESC
		  LIMIT $2 OFFSET $3`,
		householdID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	out := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := scanExpense(rows, &e); err != nil {
			rows.Close()
			return nil, err
		}
		out = append(out, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := attachChildren(ctx, r.pool, out); err != nil {
		return nil, err
	}
	return out, nil
}
