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

const templateCols = `id, household_id, description, amount_cents, payer_id, participants, split_mode,
       custom_amounts, percentages, frequency, anchor_day, start_date, end_date,
       next_due_date, is_active, last_due_date, created_at`

func scanTemplate(row pgx.Row, t *models.RecurringTemplate) error {
	var anchor int16
	err := row.Scan(
		&t.ID, &t.HouseholdID, &t.Description, (*int64)(&t.Amount), &t.PayerID, &t.Participants, &t.SplitMode,
		&t.CustomAmounts, &t.Percentages, (*string)(&t.Frequency), &anchor, &t.StartDate, &t.EndDate,
		&t.NextDueDate, &t.IsActive, &t.LastDueDate, &t.CreatedAt,
	)
	t.AnchorDay = int(anchor)
	return err
}

func (r *ledgerRepo) CreateRecurringTemplate(ctx context.Context, t *models.RecurringTemplate) error {
	if !isUUID(t.HouseholdID) {
		return repo.ErrNotFound
	}
	t.ID = uuid.NewString()
	t.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO recurring_expense_templates (`+templateCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`,
		t.ID, t.HouseholdID, t.Description, int64(t.Amount), t.PayerID, t.Participants, t.SplitMode,
		t.CustomAmounts, t.Percentages, string(t.Frequency), int16(t.AnchorDay), t.StartDate, t.EndDate,
		t.NextDueDate, t.IsActive, t.LastDueDate, t.CreatedAt,
	)
	if pgCode(err) == codeForeignKeyViolation {
		return repo.ErrNotFound
	}
	return err
}

func (r *ledgerRepo) ListRecurringTemplates(ctx context.Context, householdID string) ([]models.RecurringTemplate, error) {
	if !isUUID(householdID) {
		return []models.RecurringTemplate{}, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+templateCols+` FROM recurring_expense_templates
		  WHERE household_id = $1 ORDER BY created_at`, householdID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.RecurringTemplate{}
	for rows.Next() {
		var t models.RecurringTemplate
		if err := scanTemplate(rows, &t); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *ledgerRepo) SetRecurringTemplateActive(ctx context.Context, id string, active bool) error {
	if !isUUID(id) {
		return repo.ErrNotFound
	}
	return mustAffect(r.pool.Exec(ctx,
		`UPDATE recurring_expense_templates SET is_active = $2 WHERE id = $1`, id, active))
}

// ClaimDueTemplate locks the oldest due template with SKIP LOCKED, so
// concurrent processors never materialize the same template twice.
func (t *pgTx) ClaimDueTemplate(ctx context.Context, householdID string, today time.Time, skip []string) (models.RecurringTemplate, bool, error) {
	if householdID != "" && !isUUID(householdID) {
		return models.RecurringTemplate{}, false, nil
	}
	if skip == nil {
		skip = []string{}
	}
	var tpl models.RecurringTemplate
	err := scanTemplate(t.tx.QueryRow(ctx,
		`SELECT `+templateCols+`
		   FROM recurring_expense_templates
		  WHERE is_active
		    AND next_due_date <= $1
		    AND ($2::text = '' OR household_id::text = $2::text)
		    AND NOT (id::text = ANY($3::text[]))
		  ORDER BY next_due_date, id
		  LIMIT 1
		  FOR UPDATE SKIP LOCKED`,
		today, householdID, skip,
	), &tpl)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.RecurringTemplate{}, false, nil
	}
	if err != nil {
		return models.RecurringTemplate{}, false, err
	}
	return tpl, true, nil
}

func (t *pgTx) AdvanceTemplate(ctx context.Context, id string, nextDue time.Time, lastDue *time.Time, active bool) error {
	return mustAffect(t.tx.Exec(ctx,
		`UPDATE recurring_expense_templates
		    SET next_due_date = $2, last_due_date = $3, is_active = $4
		  WHERE id = $1`,
		id, nextDue, lastDue, active))
}
