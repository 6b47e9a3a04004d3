package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/household-ledger/internal/models"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type householdsRepo struct{ pool *pgxpool.Pool }

func NewHouseholds(pool *pgxpool.Pool) repo.Households {
	return &householdsRepo{pool: pool}
}

func (r *householdsRepo) Create(ctx context.Context, h *models.Household) error {
	if h.ID == "" {
		h.ID = uuid.NewString()
	}
	h.CreatedAt = time.Now().UTC()
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`INSERT INTO households (id, name, currency, created_at) VALUES ($1,$2,$3,$4)`,
		h.ID, h.Name, h.Currency, h.CreatedAt,
	); err != nil {
		if pgCode(err) == codeUniqueViolation {
			return repo.ErrDuplicate
		}
		return err
	}
	for i := range h.Members {
		h.Members[i].JoinedAt = h.CreatedAt
	}
	if err := insertMembers(ctx, tx, h.ID, h.Members); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertMembers(ctx context.Context, q querier, householdID string, members []models.Member) error {
	b := &pgx.Batch{}
	for _, m := range members {
		b.Queue(`INSERT INTO household_members (household_id, user_id, display_name, joined_at)
		         VALUES ($1,$2,$3,$4) ON CONFLICT DO NOTHING`,
			householdID, m.UserID, m.DisplayName, m.JoinedAt)
	}
	return execBatch(ctx, q, b)
}

func getHousehold(ctx context.Context, q querier, id string) (models.Household, error) {
	if !isUUID(id) {
		return models.Household{}, repo.ErrNotFound
	}
	var h models.Household
	err := q.QueryRow(ctx,
		`SELECT id, name, currency, created_at FROM households WHERE id = $1`, id,
	).Scan(&h.ID, &h.Name, &h.Currency, &h.CreatedAt)
	if err != nil {
		return models.Household{}, notFound(err)
	}
	rows, err := q.Query(ctx,
		`SELECT user_id, display_name, joined_at FROM household_members
		  WHERE household_id = $1 ORDER BY joined_at, user_id`, id)
	if err != nil {
		return models.Household{}, err
	}
	defer rows.Close()
	h.Members = []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.UserID, &m.DisplayName, &m.JoinedAt); err != nil {
			return models.Household{}, err
		}
		h.Members = append(h.Members, m)
	}
	return h, rows.Err()
}

func (r *householdsRepo) Get(ctx context.Context, id string) (models.Household, error) {
	return getHousehold(ctx, r.pool, id)
}

func (r *householdsRepo) AddMembers(ctx context.Context, householdID string, members []models.Member) error {
	if !isUUID(householdID) {
		return repo.ErrNotFound
	}
	now := time.Now().UTC()
	for i := range members {
		members[i].JoinedAt = now
	}
	err := insertMembers(ctx, r.pool, householdID, members)
	if pgCode(err) == codeForeignKeyViolation {
		return repo.ErrNotFound
	}
	return err
}
