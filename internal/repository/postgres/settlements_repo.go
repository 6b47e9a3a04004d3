package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/baharkarakas/household-ledger/internal/models"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

func (t *pgTx) SettlementIDByClientUUID(ctx context.Context, householdID, clientUUID string) (string, bool, error) {
	if !isUUID(householdID) {
		return "", false, nil
	}
	var id string
	err := t.tx.QueryRow(ctx,
		`SELECT id FROM settlements WHERE household_id = $1 AND client_uuid = $2`,
		householdID, clientUUID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	return id, err == nil, err
}

func (t *pgTx) InsertSettlement(ctx context.Context, s *models.Settlement) error {
	s.ID = uuid.NewString()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	tag, err := t.tx.Exec(ctx,
		`INSERT INTO settlements (id, household_id, payer_id, payee_id, amount_cents, description, client_uuid, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT ON CONSTRAINT settlements_client_uuid_key DO NOTHING`,
		s.ID, s.HouseholdID, s.PayerID, s.PayeeID, int64(s.Amount), s.Description, s.ClientUUID, s.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repo.ErrDuplicateClientUUID
	}
	b := &pgx.Batch{}
	for _, id := range s.SplitIDs {
		b.Queue(`INSERT INTO settlement_splits (settlement_id, split_id) VALUES ($1, $2)`, s.ID, id)
	}
	return execBatch(ctx, t.tx, b)
}

// SplitsForSettlement locks the requested splits so two settlements cannot
// claim the same split.
func (t *pgTx) SplitsForSettlement(ctx context.Context, splitIDs []string) ([]repo.SettleableSplit, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT s.id, s.expense_id, s.user_id, s.amount_cents, s.settled, s.settled_at,
		        e.household_id, e.deleted_at IS NOT NULL
		   FROM expense_splits s
		   JOIN expenses e ON e.id = s.expense_id
		  WHERE s.id::text = ANY($1::text[])
		  FOR UPDATE OF s`, splitIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []repo.SettleableSplit
	for rows.Next() {
		var s repo.SettleableSplit
		if err := rows.Scan(&s.ID, &s.ExpenseID, &s.UserID, (*int64)(&s.Amount), &s.Settled, &s.SettledAt,
			&s.HouseholdID, &s.ExpenseDeleted); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (t *pgTx) MarkSplitsSettled(ctx context.Context, splitIDs []string, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE expense_splits SET settled = true, settled_at = $2
		  WHERE id::text = ANY($1::text[]) AND NOT settled`, splitIDs, at)
	if err != nil {
		return err
	}
	if int(tag.RowsAffected()) != len(splitIDs) {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ledgerRepo) ListSettlements(ctx context.Context, householdID string, limit, offset int) ([]models.Settlement, error) {
	if !isUUID(householdID) {
		return []models.Settlement{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.household_id, s.payer_id, s.payee_id, s.amount_cents, s.description, s.client_uuid, s.created_at,
		        COALESCE(array_agg(ss.split_id::text) FILTER (WHERE ss.split_id IS NOT NULL), '{}')
		   FROM settlements s
		   LEFT JOIN settlement_splits ss ON ss.settlement_id = s.id
		  WHERE s.household_id = $1
		  GROUP BY s.id
		  ORDER BY s.created_at DESC
		  LIMIT $2 OFFSET $3`,
		householdID, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Settlement{}
	for rows.Next() {
		var s models.Settlement
		if err := rows.Scan(&s.ID, &s.HouseholdID, &s.PayerID, &s.PayeeID, (*int64)(&s.Amount),
			&s.Description, &s.ClientUUID, &s.CreatedAt, &s.SplitIDs); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
