package validate

import (
	"testing"
	"time"

	"github.com/baharkarakas/household-ledger/internal/apperr"
)

func TestCollect(t *testing.T) {
	if err := Collect(Required("name", "x"), MinInt("n", 3, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := Collect(Required("name", "  "), nil, MinInt("n", 0, 1))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("kind = %q", apperr.KindOf(err))
	}
	var e *apperr.Error
	e, _ = err.(*apperr.Error)
	if e.Field != "name" || e.Message != "name: required; n: must be >= 1" {
		t.Fatalf("got field=%q msg=%q", e.Field, e.Message)
	}
}

func TestDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), true},
		{"2024-02-29T10:00:00Z", time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC), true},
		{"29/02/2024", time.Time{}, false},
		{"", time.Time{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var got time.Time
			ef := Date("date", tt.in, &got)
			if (ef == nil) != tt.ok {
				t.Fatalf("ok = %v, want %v", ef == nil, tt.ok)
			}
			if !got.Equal(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}
