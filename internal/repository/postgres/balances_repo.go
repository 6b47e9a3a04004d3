package postgres

import (
	"context"

	"github.com/baharkarakas/household-ledger/internal/models"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

// balancesQuery aggregates every member's position in one statement, so all
// sums come from the same snapshot. Deleted expenses contribute nothing
// except their settled splits, which the reversal adjustments cancel.
const balancesQuery = `
WITH members AS (
    SELECT user_id, joined_at FROM household_members WHERE household_id = $1
), paid AS (
    SELECT p.payer_id AS user_id, SUM(p.amount_cents)::bigint AS amt
      FROM expense_payments p
      JOIN expenses e ON e.id = p.expense_id
     WHERE e.household_id = $1 AND e.deleted_at IS NULL
     GROUP BY p.payer_id
), owed AS (
    SELECT s.user_id, SUM(s.amount_cents)::bigint AS amt
      FROM expense_splits s
      JOIN expenses e ON e.id = s.expense_id
     WHERE e.household_id = $1 AND (e.deleted_at IS NULL OR s.settled)
     GROUP BY s.user_id
), adjusted AS (
    SELECT a.user_id, SUM(a.amount_delta_cents)::bigint AS amt
      FROM expense_split_adjustments a
      JOIN expense_splits s ON s.id = a.split_id
      JOIN expenses e ON e.id = s.expense_id
     WHERE e.household_id = $1
     GROUP BY a.user_id
), sent AS (
    SELECT payer_id AS user_id, SUM(amount_cents)::bigint AS amt
      FROM settlements WHERE household_id = $1 GROUP BY payer_id
), received AS (
    SELECT payee_id AS user_id, SUM(amount_cents)::bigint AS amt
      FROM settlements WHERE household_id = $1 GROUP BY payee_id
)
SELECT m.user_id,
       COALESCE(paid.amt, 0),
       COALESCE(owed.amt, 0) + COALESCE(adjusted.amt, 0),
       COALESCE(sent.amt, 0),
       COALESCE(received.amt, 0)
  FROM members m
  LEFT JOIN paid     ON paid.user_id = m.user_id
  LEFT JOIN owed     ON owed.user_id = m.user_id
  LEFT JOIN adjusted ON adjusted.user_id = m.user_id
  LEFT JOIN sent     ON sent.user_id = m.user_id
  LEFT JOIN received ON received.user_id = m.user_id
 ORDER BY m.joined_at, m.user_id`

func (r *ledgerRepo) Balances(ctx context.Context, householdID string) ([]models.Balance, error) {
	if !isUUID(householdID) {
		return nil, repo.ErrNotFound
	}
	rows, err := r.pool.Query(ctx, balancesQuery, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Balance{}
	for rows.Next() {
		var b models.Balance
		if err := rows.Scan(&b.UserID, (*int64)(&b.Paid), (*int64)(&b.Owed),
			(*int64)(&b.SettlementsPaid), (*int64)(&b.SettlementsReceived)); err != nil {
			return nil, err
		}
		b.Compute()
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM households WHERE id = $1)`, householdID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, repo.ErrNotFound
		}
	}
	return out, nil
}
