package calculator

import (
	"testing"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/money"
)

// applyTransfers returns every member's balance after the transfers are paid.
func applyTransfers(balances []MemberBalance, transfers []Transfer) map[string]money.Cents {
	out := make(map[string]money.Cents, len(balances))
	for _, b := range balances {
		out[b.UserID] = b.Amount
	}
	for _, t := range transfers {
		out[t.From] += t.Amount
		out[t.To] -= t.Amount
	}
	return out
}

func nonZero(balances []MemberBalance) int {
	n := 0
	for _, b := range balances {
		if b.Amount.Abs() > money.Epsilon {
			n++
		}
	}
	return n
}

func TestOptimizeSettlements(t *testing.T) {
	tests := []struct {
		name      string
		balances  []MemberBalance
		wantCount int
		want      []Transfer
	}{
		{
			name: "two debtors one creditor",
			balances: []MemberBalance{
				{UserID: "A", Amount: -6000},
				{UserID: "B", Amount: -3000},
				{UserID: "C", Amount: 9000},
			},
			wantCount: 2,
			want: []Transfer{
				{From: "A", To: "C", Amount: 6000},
				{From: "B", To: "C", Amount: 3000},
			},
		},
		{
			name: "one creditor five debtors",
			balances: []MemberBalance{
				{UserID: "A", Amount: 250000},
				{UserID: "B", Amount: -50000},
				{UserID: "C", Amount: -50000},
				{UserID: "D", Amount: -50000},
				{UserID: "E", Amount: -50000},
				{UserID: "F", Amount: -50000},
			},
			wantCount: 5,
		},
		{
			name: "chain collapses",
			balances: []MemberBalance{
				{UserID: "A", Amount: -1000},
				{UserID: "B", Amount: 0},
				{UserID: "C", Amount: 1000},
			},
			wantCount: 1,
			want:      []Transfer{{From: "A", To: "C", Amount: 1000}},
		},
		{
			name:      "all settled",
			balances:  []MemberBalance{{UserID: "A"}, {UserID: "B"}},
			wantCount: 0,
		},
		{
			name: "mixed",
			balances: []MemberBalance{
				{UserID: "A", Amount: 4000},
				{UserID: "B", Amount: 2500},
				{UserID: "C", Amount: -3000},
				{UserID: "D", Amount: -2000},
				{UserID: "E", Amount: -1500},
			},
			wantCount: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transfers, err := OptimizeSettlements(tt.balances)
			if err != nil {
				t.Fatalf("OptimizeSettlements() error = %v", err)
			}
			if tt.wantCount >= 0 && len(transfers) != tt.wantCount {
				t.Fatalf("got %d transfers, want %d: %v", len(transfers), tt.wantCount, transfers)
			}
			if n := nonZero(tt.balances); n > 0 && len(transfers) > n-1 {
				t.Errorf("got %d transfers for %d members, bound is n-1", len(transfers), n)
			}
			for i, w := range tt.want {
				if transfers[i] != w {
					t.Errorf("transfer %d = %+v, want %+v", i, transfers[i], w)
				}
			}
			for user, rest := range applyTransfers(tt.balances, transfers) {
				if rest.Abs() > money.Epsilon {
					t.Errorf("%s left with %s after settling", user, rest)
				}
			}
			for _, tr := range transfers {
				if tr.Amount <= 0 {
					t.Errorf("non-positive transfer %+v", tr)
				}
				if tr.From == tr.To {
					t.Errorf("self transfer %+v", tr)
				}
			}
		})
	}
}

func TestOptimizeSettlementsOneCreditorFiveDebtors(t *testing.T) {
	balances := []MemberBalance{{UserID: "A", Amount: 250000}}
	for _, u := range []string{"B", "C", "D", "E", "F"} {
		balances = append(balances, MemberBalance{UserID: u, Amount: -50000})
	}
	transfers, err := OptimizeSettlements(balances)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, tr := range transfers {
		if tr.To != "A" || tr.Amount != 50000 {
			t.Errorf("unexpected transfer %+v", tr)
		}
		seen[tr.From] = true
	}
	if len(seen) != 5 {
		t.Errorf("expected each debtor to pay once, got %v", seen)
	}
}

func TestOptimizeSettlementsNeverPairsSameSide(t *testing.T) {
	balances := []MemberBalance{
		{UserID: "a", Amount: 1234}, {UserID: "b", Amount: 5678}, {UserID: "c", Amount: 91},
		{UserID: "d", Amount: -3000}, {UserID: "e", Amount: -4003}, {UserID: "f", Amount: -0},
	}
	transfers, err := OptimizeSettlements(balances)
	if err != nil {
		t.Fatal(err)
	}
	sign := map[string]money.Cents{}
	for _, b := range balances {
		sign[b.UserID] = b.Amount
	}
	for _, tr := range transfers {
		if sign[tr.From] >= 0 || sign[tr.To] <= 0 {
			t.Errorf("transfer %+v does not go from a debtor to a creditor", tr)
		}
	}
}

func TestOptimizeSettlementsResidue(t *testing.T) {
	// Rounded inputs that miss zero by a cent.
	balances := []MemberBalance{
		{UserID: "a", Amount: 3334},
		{UserID: "b", Amount: -1667},
		{UserID: "c", Amount: -1666},
	}
	transfers, err := OptimizeSettlements(balances)
	if err != nil {
		t.Fatal(err)
	}
	var paid money.Cents
	for _, tr := range transfers {
		paid += tr.Amount
	}
	if paid != 3334 {
		t.Errorf("transfers sum to %s, want total credit 33.34", paid)
	}
}

func TestOptimizeSettlementsRejectsBadInput(t *testing.T) {
	cases := map[string][]MemberBalance{
		"unbalanced": {{UserID: "a", Amount: 1000}, {UserID: "b", Amount: -10}},
		"duplicate":  {{UserID: "a", Amount: 10}, {UserID: "a", Amount: -10}},
		"empty id":   {{UserID: "", Amount: 10}, {UserID: "b", Amount: -10}},
	}
	for name, balances := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := OptimizeSettlements(balances)
			if !apperr.Is(err, apperr.KindValidation) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}
