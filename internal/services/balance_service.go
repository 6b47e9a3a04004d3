package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/household-ledger/internal/cache"
	"github.com/baharkarakas/household-ledger/internal/calculator"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
)

// BalanceService serves balances and settlement suggestions from a short-lived
// cache that every mutation of the household clears.
type BalanceService struct {
	store    *ledger.Store
	balances *cache.LRU[[]models.Balance]
	plans    *cache.LRU[[]calculator.Transfer]
	log      *slog.Logger
}

func NewBalanceService(store *ledger.Store, size int, ttl time.Duration, log *slog.Logger) *BalanceService {
	return &BalanceService{
		store:    store,
		balances: cache.NewLRU[[]models.Balance]("balances", size, ttl),
		plans:    cache.NewLRU[[]calculator.Transfer]("settlement_plans", size, ttl),
		log:      log,
	}
}

func householdPrefix(householdID string) string { return "household:" + householdID + ":" }
func balancesKey(householdID string) string     { return householdPrefix(householdID) + "balances" }
func plansKey(householdID string) string        { return householdPrefix(householdID) + "plan" }

// Invalidate drops every cached read model of the household.
func (s *BalanceService) Invalidate(householdID string) {
	prefix := householdPrefix(householdID)
	s.balances.DeletePrefix(prefix)
	s.plans.DeletePrefix(prefix)
}

func (s *BalanceService) Balances(ctx context.Context, householdID string) ([]models.Balance, error) {
	return s.balances.GetOrLoad(ctx, balancesKey(householdID), func(ctx context.Context) ([]models.Balance, error) {
		bs, err := s.store.Balances(ctx, householdID)
		if err != nil {
			return nil, err
		}
		var sum money.Cents
		for _, b := range bs {
			sum += b.Balance
		}
		if sum != 0 {
			s.log.WarnContext(ctx, "household balances do not sum to zero", "household_id", householdID, "sum", sum.String())
		}
		return bs, nil
	})
}

// Suggestions returns the payments that settle the household's current balances.
func (s *BalanceService) Suggestions(ctx context.Context, householdID string) ([]calculator.Transfer, error) {
	return s.plans.GetOrLoad(ctx, plansKey(householdID), func(ctx context.Context) ([]calculator.Transfer, error) {
		bs, err := s.Balances(ctx, householdID)
		if err != nil {
			return nil, err
		}
		return calculator.OptimizeSettlements(toMemberBalances(bs))
	})
}

// Optimize plans transfers for an arbitrary balance vector.
func (s *BalanceService) Optimize(balances []calculator.MemberBalance) ([]calculator.Transfer, error) {
	return calculator.OptimizeSettlements(balances)
}

func toMemberBalances(bs []models.Balance) []calculator.MemberBalance {
	out := make([]calculator.MemberBalance, len(bs))
	for i, b := range bs {
		out[i] = calculator.MemberBalance{UserID: b.UserID, Amount: b.Balance}
	}
	return out
}

// Sweep evicts expired entries and reports how many were removed.
func (s *BalanceService) Sweep() int {
	return s.balances.CleanExpired() + s.plans.CleanExpired()
}

// Entries reports how many households have cached balances and plans.
func (s *BalanceService) Entries() (balances, plans int) {
	return s.balances.Size(), s.plans.Size()
}
