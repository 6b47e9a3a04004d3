package calculator

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/money"
)

func sharesByUser(shares []Share) map[string]money.Cents {
	out := make(map[string]money.Cents, len(shares))
	for _, s := range shares {
		out[s.UserID] = s.Amount
	}
	return out
}

func sumShares(shares []Share) money.Cents {
	var total money.Cents
	for _, s := range shares {
		total += s.Amount
	}
	return total
}

func pct(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	tests := []struct {
		name      string
		req       SplitRequest
		wantErr   string
		wantField string
		want      map[string]money.Cents
	}{
		{
			name: "equal split even",
			req:  SplitRequest{Amount: 10000, Participants: []string{"alice", "bob"}, Mode: ModeEqual},
			want: map[string]money.Cents{"alice": 5000, "bob": 5000},
		},
		{
			name: "equal split 100 by 3 gives residual to first in input order",
			req:  SplitRequest{Amount: 10000, Participants: []string{"alice", "bob", "carol"}, Mode: ModeEqual},
			want: map[string]money.Cents{"alice": 3334, "bob": 3333, "carol": 3333},
		},
		{
			name: "equal split residual goes to payer first",
			req: SplitRequest{Amount: 10000, Participants: []string{"alice", "bob", "carol"},
				Mode: ModeEqual, PayerID: "carol"},
			want: map[string]money.Cents{"alice": 3333, "bob": 3333, "carol": 3334},
		},
		{
			name: "equal split two leftover cents",
			req:  SplitRequest{Amount: 1001, Participants: []string{"a", "b", "c"}, PayerID: "b"},
			want: map[string]money.Cents{"a": 334, "b": 334, "c": 333},
		},
		{
			name: "custom exact",
			req: SplitRequest{Amount: 9000, Participants: []string{"alice", "bob"}, Mode: ModeCustom,
				CustomAmounts: map[string]money.Cents{"alice": 6000, "bob": 3000}},
			want: map[string]money.Cents{"alice": 6000, "bob": 3000},
		},
		{
			name: "custom one cent short is absorbed by payer",
			req: SplitRequest{Amount: 9000, Participants: []string{"alice", "bob"}, Mode: ModeCustom, PayerID: "bob",
				CustomAmounts: map[string]money.Cents{"alice": 6000, "bob": 2999}},
			want: map[string]money.Cents{"alice": 6000, "bob": 3000},
		},
		{
			name: "custom sum mismatch",
			req: SplitRequest{Amount: 9000, Participants: []string{"alice", "bob"}, Mode: ModeCustom,
				CustomAmounts: map[string]money.Cents{"alice": 6000, "bob": 2000}},
			wantErr: "validation", wantField: "custom_amounts",
		},
		{
			name: "custom missing participant amount",
			req: SplitRequest{Amount: 9000, Participants: []string{"alice", "bob"}, Mode: ModeCustom,
				CustomAmounts: map[string]money.Cents{"alice": 9000}},
			wantErr: "validation", wantField: "custom_amounts",
		},
		{
			name: "custom negative amount",
			req: SplitRequest{Amount: 1000, Participants: []string{"alice", "bob"}, Mode: ModeCustom,
				CustomAmounts: map[string]money.Cents{"alice": 1500, "bob": -500}},
			wantErr: "validation", wantField: "custom_amounts",
		},
		{
			name: "percentage thirds",
			req: SplitRequest{Amount: 10000, Participants: []string{"alice", "bob", "carol"}, Mode: ModePercentage,
				Percentages: map[string]decimal.Decimal{"alice": pct("33.34"), "bob": pct("33.33"), "carol": pct("33.33")}},
			want: map[string]money.Cents{"alice": 3334, "bob": 3333, "carol": 3333},
		},
		{
			name: "percentage with rounding residue",
			req: SplitRequest{Amount: 999, Participants: []string{"alice", "bob"}, Mode: ModePercentage, PayerID: "bob",
				Percentages: map[string]decimal.Decimal{"alice": pct("50"), "bob": pct("50")}},
			want: map[string]money.Cents{"alice": 499, "bob": 500},
		},
		{
			name: "percentage sum off",
			req: SplitRequest{Amount: 10000, Participants: []string{"alice", "bob"}, Mode: ModePercentage,
				Percentages: map[string]decimal.Decimal{"alice": pct("60"), "bob": pct("30")}},
			wantErr: "validation", wantField: "percentages",
		},
		{
			name:    "empty participants",
			req:     SplitRequest{Amount: 100, Mode: ModeEqual},
			wantErr: "validation", wantField: "participants",
		},
		{
			name:    "duplicate participants",
			req:     SplitRequest{Amount: 100, Participants: []string{"a", "a"}},
			wantErr: "validation", wantField: "participants",
		},
		{
			name:    "negative amount",
			req:     SplitRequest{Amount: -100, Participants: []string{"a"}},
			wantErr: "validation", wantField: "amount",
		},
		{
			name:    "unknown mode",
			req:     SplitRequest{Amount: 100, Participants: []string{"a"}, Mode: "shares"},
			wantErr: "validation", wantField: "mode",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shares, err := Compute(tt.req)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("expected %s error, got shares %v", tt.wantErr, shares)
				}
				var e *apperr.Error
				if !errors.As(err, &e) || string(e.Kind) != tt.wantErr || e.Field != tt.wantField {
					t.Fatalf("got error %v, want kind %s field %s", err, tt.wantErr, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("Compute() error = %v", err)
			}
			if got := sumShares(shares); got != tt.req.Amount {
				t.Errorf("shares sum to %s, want %s", got, tt.req.Amount)
			}
			got := sharesByUser(shares)
			for user, want := range tt.want {
				if got[user] != want {
					t.Errorf("%s = %s, want %s", user, got[user], want)
				}
			}
			for i, s := range shares {
				if s.UserID != tt.req.Participants[i] {
					t.Errorf("share %d is for %s, want input order %s", i, s.UserID, tt.req.Participants[i])
				}
			}
		})
	}
}

func TestComputeSumInvariant(t *testing.T) {
	people := []string{"a", "b", "c", "d", "e", "f", "g"}
	for amount := money.Cents(1); amount <= 2000; amount += 7 {
		for n := 1; n <= len(people); n++ {
			shares, err := Compute(SplitRequest{Amount: amount, Participants: people[:n], PayerID: people[n-1]})
			if err != nil {
				t.Fatalf("amount %d n %d: %v", amount, n, err)
			}
			if got := sumShares(shares); got != amount {
				t.Fatalf("amount %d n %d: sum %d", amount, n, got)
			}
			var lo, hi money.Cents = shares[0].Amount, shares[0].Amount
			for _, s := range shares {
				lo, hi = min(lo, s.Amount), max(hi, s.Amount)
			}
			if hi-lo > 1 {
				t.Fatalf("amount %d n %d: shares differ by more than a cent: %v", amount, n, shares)
			}
		}
	}
}

func TestComputeIsDeterministic(t *testing.T) {
	req := SplitRequest{Amount: 10001, Participants: []string{"x", "y", "z"}, PayerID: "y"}
	first, err := Compute(req)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, _ := Compute(req)
		for j := range first {
			if first[j] != again[j] {
				t.Fatalf("run %d differs: %v vs %v", i, first, again)
			}
		}
	}
}
