package repository

import (
	"context"
	"errors"
	"time"

	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrVersionMismatch     = errors.New("version mismatch")
	ErrDuplicateClientUUID = errors.New("duplicate client uuid")
	ErrDuplicate           = errors.New("already exists")
)

type Households interface {
	Create(ctx context.Context, h *models.Household) error
	Get(ctx context.Context, id string) (models.Household, error)
	AddMembers(ctx context.Context, householdID string, members []models.Member) error
}

// Ledger is the durable record of expenses, payments, splits, adjustments,
// settlements and recurring templates.
type Ledger interface {
	// WithTx runs fn inside one atomic transaction. Any error from fn rolls
	// everything back, so partial writes are never observable.
	WithTx(ctx context.Context, fn func(LedgerTx) error) error

	// Balances aggregates every member's position from one consistent
	// snapshot without blocking writers.
	Balances(ctx context.Context, householdID string) ([]models.Balance, error)

	GetExpense(ctx context.Context, id string) (models.Expense, error)
	ListExpenses(ctx context.Context, householdID string, limit, offset int) ([]models.Expense, error)
	ListSettlements(ctx context.Context, householdID string, limit, offset int) ([]models.Settlement, error)

	CreateRecurringTemplate(ctx context.Context, t *models.RecurringTemplate) error
	ListRecurringTemplates(ctx context.Context, householdID string) ([]models.RecurringTemplate, error)
	SetRecurringTemplateActive(ctx context.Context, id string, active bool) error
}

// LedgerTx exposes the write primitives available inside Ledger.WithTx.
type LedgerTx interface {
	Household(ctx context.Context, id string) (models.Household, error)

	ExpenseIDByClientUUID(ctx context.Context, householdID, clientUUID string) (string, bool, error)
	// InsertExpense stores the expense with its payments and splits and
	// assigns ids, version 1 and timestamps. A clash on (household, client
	// uuid) returns ErrDuplicateClientUUID.
	InsertExpense(ctx context.Context, e *models.Expense) error
	GetExpense(ctx context.Context, id string) (models.Expense, error)
	// BumpExpense overwrites the scalar fields and increments the version
	// when it still equals expectedVersion; otherwise ErrVersionMismatch.
	BumpExpense(ctx context.Context, e models.Expense, expectedVersion int64) (int64, error)
	ReplacePayments(ctx context.Context, expenseID string, payments []models.Payment) error
	InsertSplit(ctx context.Context, s *models.Split) error
	UpdateSplitAmount(ctx context.Context, splitID string, amount money.Cents) error
	DeleteSplit(ctx context.Context, splitID string) error
	InsertAdjustment(ctx context.Context, a *models.Adjustment) error
	MarkExpenseDeleted(ctx context.Context, id string, at time.Time) error
	DeleteExpense(ctx context.Context, id string) error

	SettlementIDByClientUUID(ctx context.Context, householdID, clientUUID string) (string, bool, error)
	InsertSettlement(ctx context.Context, s *models.Settlement) error
	// SplitsForSettlement loads splits together with their expense's household and deletion state.
	SplitsForSettlement(ctx context.Context, splitIDs []string) ([]SettleableSplit, error)
	MarkSplitsSettled(ctx context.Context, splitIDs []string, at time.Time) error

	// ClaimDueTemplate locks one active template due on or before today that
	// no other transaction holds, skipping ids in skip. householdID may be
	// empty to claim across households.
	ClaimDueTemplate(ctx context.Context, householdID string, today time.Time, skip []string) (models.RecurringTemplate, bool, error)
	AdvanceTemplate(ctx context.Context, id string, nextDue time.Time, lastDue *time.Time, active bool) error

	InsertAuditLog(ctx context.Context, l models.AuditLog) error
}

type SettleableSplit struct {
	models.Split
	HouseholdID    string
	ExpenseDeleted bool
}
