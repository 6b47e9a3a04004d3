package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type Repositories struct {
	Ledger     repo.Ledger
	Households repo.Households
}

func NewRepositories(pool *pgxpool.Pool) Repositories {
	return Repositories{
		Ledger:     &ledgerRepo{pool: pool},
		Households: NewHouseholds(pool),
	}
}
