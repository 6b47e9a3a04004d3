package postgres

import (
	"context"

	"github.com/google/uuid"

	"github.com/baharkarakas/household-ledger/internal/models"
)

// InsertAuditLog writes inside the caller's transaction, so an audit entry
// exists exactly when the change it describes was committed.
func (t *pgTx) InsertAuditLog(ctx context.Context, l models.AuditLog) error {
	var household *string
	if isUUID(l.HouseholdID) {
		household = &l.HouseholdID
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO audit_logs (id, household_id, entity_type, entity_id, action, details, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		uuid.NewString(), household, l.EntityType, l.EntityID, l.Action, l.Details, l.CreatedAt,
	)
	return err
}
