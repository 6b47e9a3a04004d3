package services

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/calculator"
	"github.com/baharkarakas/household-ledger/internal/events"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	"github.com/baharkarakas/household-ledger/internal/metrics"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

// SplitSpec asks the calculator to derive splits. An empty participant list
// means every household member.
type SplitSpec struct {
	Mode          calculator.Mode            `json:"mode"`
	Participants  []string                   `json:"participants,omitempty"`
	CustomAmounts map[string]money.Cents     `json:"custom_amounts,omitempty"`
	Percentages   map[string]decimal.Decimal `json:"percentages,omitempty"`
}

// ExpenseRequest accepts a single payer or explicit payments, and explicit
// splits or a SplitSpec.
type ExpenseRequest struct {
	HouseholdID string           `json:"household_id"`
	Description string           `json:"description"`
	Amount      money.Cents      `json:"amount"`
	Date        time.Time        `json:"date"`
	PayerID     string           `json:"payer_id,omitempty"`
	Payments    []models.Payment `json:"payments,omitempty"`
	Splits      []models.Split   `json:"splits,omitempty"`
	Split       *SplitSpec       `json:"split,omitempty"`
}

type ExpenseService struct {
	store      *ledger.Store
	households repo.Households
	inv        Invalidator
	pub        events.Publisher
	log        *slog.Logger
}

func NewExpenseService(store *ledger.Store, households repo.Households, inv Invalidator, pub events.Publisher, log *slog.Logger) *ExpenseService {
	return &ExpenseService{store: store, households: households, inv: inv, pub: pub, log: log}
}

// ----------------- Helpers -----------------

// resolve turns the request into explicit payments and splits.
func (s *ExpenseService) resolve(ctx context.Context, req ExpenseRequest) (ledger.ExpenseInput, error) {
	in := ledger.ExpenseInput{
		HouseholdID: req.HouseholdID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        req.Date,
	}

	switch {
	case len(req.Payments) > 0 && req.PayerID != "":
		return in, apperr.Validation("payments", "use either payer_id or payments, not both")
	case len(req.Payments) > 0:
		in.Payments = req.Payments
	case req.PayerID != "":
		in.Payments = []models.Payment{{PayerID: req.PayerID, Amount: req.Amount}}
	default:
		return in, apperr.Validation("payments", "payer_id or payments is required")
	}

	switch {
	case len(req.Splits) > 0 && req.Split != nil:
		return in, apperr.Validation("splits", "use either splits or split, not both")
	case len(req.Splits) > 0:
		in.Splits = req.Splits
		return in, nil
	}

	spec := SplitSpec{Mode: calculator.ModeEqual}
	if req.Split != nil {
		spec = *req.Split
	}
	participants := spec.Participants
	if len(participants) == 0 {
		h, err := s.households.Get(ctx, req.HouseholdID)
		if err != nil {
			return in, householdErr(req.HouseholdID, err)
		}
		participants = h.MemberIDs()
	}
	shares, err := calculator.Compute(calculator.SplitRequest{
		Amount:        req.Amount,
		Participants:  participants,
		Mode:          spec.Mode,
		PayerID:       mainPayer(in.Payments),
		CustomAmounts: spec.CustomAmounts,
		Percentages:   spec.Percentages,
	})
	if err != nil {
		return in, err
	}
	in.Splits = make([]models.Split, len(shares))
	for i, sh := range shares {
		in.Splits[i] = models.Split{UserID: sh.UserID, Amount: sh.Amount}
	}
	return in, nil
}

// mainPayer is the largest payer; leftover cents of a split go to them first.
func mainPayer(payments []models.Payment) string {
	if len(payments) == 0 {
		return ""
	}
	ps := append([]models.Payment(nil), payments...)
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].Amount > ps[j].Amount })
	return ps[0].PayerID
}

// ----------------- Operations -----------------

func (s *ExpenseService) Create(ctx context.Context, req ExpenseRequest, clientUUID string) (ledger.CreateResult, error) {
	in, err := s.resolve(ctx, req)
	if err != nil {
		record("create_expense", err)
		return ledger.CreateResult{}, err
	}
	res, err := s.store.CreateExpense(ctx, in, clientUUID)
	switch {
	case err != nil:
		record("create_expense", err)
		s.log.WarnContext(ctx, "create expense failed", "household_id", req.HouseholdID, "error", err)
		return res, err
	case res.Idempotent:
		metrics.LedgerOpsTotal.WithLabelValues("create_expense", "idempotent").Inc()
		s.log.InfoContext(ctx, "expense replayed", "expense_id", res.ExpenseID, "client_uuid", clientUUID)
		return res, nil
	}
	record("create_expense", nil)
	s.log.InfoContext(ctx, "expense created", "expense_id", res.ExpenseID, "household_id", req.HouseholdID, "amount", req.Amount.String())
	ev := events.New(events.ExpenseCreated, req.HouseholdID, res.ExpenseID)
	ev.Version = 1
	after(ctx, s.log, s.inv, s.pub, req.HouseholdID, ev)
	return res, nil
}

func (s *ExpenseService) Update(ctx context.Context, expenseID string, req ExpenseRequest, expectedVersion int64) (ledger.UpdateResult, error) {
	cur, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		record("update_expense", err)
		return ledger.UpdateResult{}, err
	}
	req.HouseholdID = cur.HouseholdID
	in, err := s.resolve(ctx, req)
	if err != nil {
		record("update_expense", err)
		return ledger.UpdateResult{}, err
	}
	res, err := s.store.UpdateExpense(ctx, ledger.UpdateInput{
		ExpenseID:   expenseID,
		Description: in.Description,
		Amount:      in.Amount,
		Date:        in.Date,
		Payments:    in.Payments,
		Splits:      in.Splits,
	}, expectedVersion)
	record("update_expense", err)
	if err != nil {
		s.log.WarnContext(ctx, "update expense failed", "expense_id", expenseID, "expected_version", expectedVersion, "error", err)
		return res, err
	}
	metrics.AdjustmentsCreated.Add(float64(res.AdjustmentsCreated))
	s.log.InfoContext(ctx, "expense updated", "expense_id", expenseID, "version", res.Version, "adjustments", res.AdjustmentsCreated)
	ev := events.New(events.ExpenseUpdated, res.HouseholdID, expenseID)
	ev.Version = res.Version
	ev.Data = map[string]any{"adjustments_created": res.AdjustmentsCreated}
	after(ctx, s.log, s.inv, s.pub, res.HouseholdID, ev)
	return res, nil
}

func (s *ExpenseService) Delete(ctx context.Context, expenseID string) (ledger.DeleteResult, error) {
	res, err := s.store.DeleteExpense(ctx, expenseID)
	record("delete_expense", err)
	if err != nil {
		return res, err
	}
	metrics.AdjustmentsCreated.Add(float64(res.AdjustmentsCreated))
	s.log.InfoContext(ctx, "expense removed", "expense_id", expenseID, "outcome", res.Outcome, "adjustments", res.AdjustmentsCreated)
	t := events.ExpenseDeleted
	if res.Outcome == ledger.OutcomeReversed {
		t = events.ExpenseReversed
	}
	after(ctx, s.log, s.inv, s.pub, res.HouseholdID, events.New(t, res.HouseholdID, expenseID))
	return res, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (models.Expense, error) {
	return s.store.GetExpense(ctx, id)
}

func (s *ExpenseService) List(ctx context.Context, householdID string, limit, offset int) ([]models.Expense, error) {
	return s.store.ListExpenses(ctx, householdID, limit, offset)
}

// Preview computes splits without storing anything.
func (s *ExpenseService) Preview(ctx context.Context, householdID string, amount money.Cents, payerID string, spec SplitSpec) ([]calculator.Share, error) {
	if len(spec.Participants) == 0 && householdID != "" {
		h, err := s.households.Get(ctx, householdID)
		if err != nil {
			return nil, householdErr(householdID, err)
		}
		spec.Participants = h.MemberIDs()
	}
	return calculator.Compute(calculator.SplitRequest{
		Amount:        amount,
		Participants:  spec.Participants,
		Mode:          spec.Mode,
		PayerID:       payerID,
		CustomAmounts: spec.CustomAmounts,
		Percentages:   spec.Percentages,
	})
}
