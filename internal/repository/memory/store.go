// Package memory is an in-process repository used by tests and local runs
// without Postgres. Transactions are serialized and applied to a copy of the
// state that replaces the original only when the callback succeeds.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type state struct {
	households     map[string]models.Household
	expenses       map[string]models.Expense
	expenseKeys    map[string]string
	settlements    map[string]models.Settlement
	settlementKeys map[string]string
	templates      map[string]models.RecurringTemplate
	audit          []models.AuditLog
	order          map[string]int
	seq            int
}

func newState() *state {
	return &state{
		households:     map[string]models.Household{},
		expenses:       map[string]models.Expense{},
		expenseKeys:    map[string]string{},
		settlements:    map[string]models.Settlement{},
		settlementKeys: map[string]string{},
		templates:      map[string]models.RecurringTemplate{},
		order:          map[string]int{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.households {
		v.Members = append([]models.Member(nil), v.Members...)
		c.households[k] = v
	}
	for k, v := range s.expenses {
		c.expenses[k] = cloneExpense(v)
	}
	for k, v := range s.expenseKeys {
		c.expenseKeys[k] = v
	}
	for k, v := range s.settlements {
		v.SplitIDs = append([]string(nil), v.SplitIDs...)
		c.settlements[k] = v
	}
	for k, v := range s.settlementKeys {
		c.settlementKeys[k] = v
	}
	for k, v := range s.templates {
		c.templates[k] = cloneTemplate(v)
	}
	for k, v := range s.order {
		c.order[k] = v
	}
	c.audit = append([]models.AuditLog(nil), s.audit...)
	c.seq = s.seq
	return c
}

func (s *state) stamp(id string) {
	s.seq++
	s.order[id] = s.seq
}

func cloneExpense(e models.Expense) models.Expense {
	e.Payments = append([]models.Payment(nil), e.Payments...)
	e.Splits = append([]models.Split(nil), e.Splits...)
	e.Adjustments = append([]models.Adjustment(nil), e.Adjustments...)
	return e
}

func cloneTemplate(t models.RecurringTemplate) models.RecurringTemplate {
	t.Participants = append([]string(nil), t.Participants...)
	if t.CustomAmounts != nil {
		m := make(map[string]money.Cents, len(t.CustomAmounts))
		for k, v := range t.CustomAmounts {
			m[k] = v
		}
		t.CustomAmounts = m
	}
	return t
}

func key(householdID, clientUUID string) string { return householdID + "/" + clientUUID }

// Store implements repository.Ledger; Households() exposes repository.Households
// over the same state.
type Store struct {
	mu  sync.RWMutex
	st  *state
	now func() time.Time
}

func New() *Store { return &Store{st: newState(), now: time.Now} }

var (
	_ repo.Ledger     = (*Store)(nil)
	_ repo.Households = (*Households)(nil)
)

func (s *Store) WithTx(ctx context.Context, fn func(repo.LedgerTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.clone()
	if err := fn(&tx{st: work, now: s.now}); err != nil {
		return err
	}
	s.st = work
	return nil
}

// AuditLogs returns a copy of every audit entry written so far.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.AuditLog(nil), s.st.audit...)
}

func (s *Store) Balances(ctx context.Context, householdID string) ([]models.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.st.households[householdID]
	if !ok {
		return nil, repo.ErrNotFound
	}
	idx := make(map[string]*models.Balance, len(h.Members))
	ids := h.MemberIDs()
	for _, id := range ids {
		idx[id] = &models.Balance{UserID: id}
	}
	get := func(id string) *models.Balance {
		b, ok := idx[id]
		if !ok {
			b = &models.Balance{UserID: id}
			idx[id] = b
			ids = append(ids, id)
		}
		return b
	}
	for _, e := range s.st.expenses {
		if e.HouseholdID != householdID {
			continue
		}
		if !e.Deleted() {
			for _, p := range e.Payments {
				get(p.PayerID).Paid += p.Amount
			}
		}
		for _, sp := range e.Splits {
			if e.Deleted() && !sp.Settled {
				continue
			}
			get(sp.UserID).Owed += sp.Amount
		}
		for _, a := range e.Adjustments {
			get(a.UserID).Owed += a.AmountDelta
		}
	}
	for _, st := range s.st.settlements {
		if st.HouseholdID != householdID {
			continue
		}
		get(st.PayerID).SettlementsPaid += st.Amount
		get(st.PayeeID).SettlementsReceived += st.Amount
	}
	out := make([]models.Balance, len(ids))
	for i, id := range ids {
		idx[id].Compute()
		out[i] = *idx[id]
	}
	return out, nil
}

func (s *Store) GetExpense(ctx context.Context, id string) (models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.st.expenses[id]
	if !ok {
		return models.Expense{}, repo.ErrNotFound
	}
	return cloneExpense(e), nil
}

func (s *Store) ListExpenses(ctx context.Context, householdID string, limit, offset int) ([]models.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []models.Expense
	for _, e := range s.st.expenses {
		if e.HouseholdID == householdID && !e.Deleted() {
			all = append(all, cloneExpense(e))
		}
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].Date.Equal(all[j].Date) {
			return all[i].Date.After(all[j].Date)
		}
		return s.st.order[all[i].ID] > s.st.order[all[j].ID]
	})
	return window(all, limit, offset), nil
}

func (s *Store) ListSettlements(ctx context.Context, householdID string, limit, offset int) ([]models.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []models.Settlement
	for _, st := range s.st.settlements {
		if st.HouseholdID == householdID {
			all = append(all, st)
		}
	}
	sort.Slice(all, func(i, j int) bool { return s.st.order[all[i].ID] > s.st.order[all[j].ID] })
	return window(all, limit, offset), nil
}

func (s *Store) CreateRecurringTemplate(ctx context.Context, t *models.RecurringTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.st.households[t.HouseholdID]; !ok {
		return repo.ErrNotFound
	}
	t.ID = uuid.NewString()
	t.CreatedAt = s.now().UTC()
	s.st.templates[t.ID] = cloneTemplate(*t)
	s.st.stamp(t.ID)
	return nil
}

func (s *Store) ListRecurringTemplates(ctx context.Context, householdID string) ([]models.RecurringTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecurringTemplate
	for _, t := range s.st.templates {
		if t.HouseholdID == householdID {
			out = append(out, cloneTemplate(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.st.order[out[i].ID] < s.st.order[out[j].ID] })
	return out, nil
}

func (s *Store) SetRecurringTemplateActive(ctx context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.st.templates[id]
	if !ok {
		return repo.ErrNotFound
	}
	t.IsActive = active
	s.st.templates[id] = t
	return nil
}

func window[T any](all []T, limit, offset int) []T {
	if offset >= len(all) {
		return []T{}
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all
}

// ----------------- Households -----------------

type Households struct{ s *Store }

func (s *Store) Households() *Households { return &Households{s: s} }

func (h *Households) Create(ctx context.Context, hh *models.Household) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	now := h.s.now().UTC()
	if hh.ID == "" {
		hh.ID = uuid.NewString()
	}
	if _, exists := h.s.st.households[hh.ID]; exists {
		return repo.ErrDuplicate
	}
	hh.CreatedAt = now
	for i := range hh.Members {
		hh.Members[i].JoinedAt = now
	}
	cp := *hh
	cp.Members = append([]models.Member(nil), hh.Members...)
	h.s.st.households[hh.ID] = cp
	return nil
}

func (h *Households) Get(ctx context.Context, id string) (models.Household, error) {
	h.s.mu.RLock()
	defer h.s.mu.RUnlock()
	hh, ok := h.s.st.households[id]
	if !ok {
		return models.Household{}, repo.ErrNotFound
	}
	hh.Members = append([]models.Member(nil), hh.Members...)
	return hh, nil
}

func (h *Households) AddMembers(ctx context.Context, householdID string, members []models.Member) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	hh, ok := h.s.st.households[householdID]
	if !ok {
		return repo.ErrNotFound
	}
	now := h.s.now().UTC()
	for _, m := range members {
		if hh.HasMember(m.UserID) {
			continue
		}
		m.JoinedAt = now
		hh.Members = append(hh.Members, m)
	}
	h.s.st.households[householdID] = hh
	return nil
}
