package apperr

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"validation", Validation("amount", "must be positive"), KindValidation},
		{"wrapped conflict", fmt.Errorf("update: %w", Conflict("modified by another user")), KindConflict},
		{"storage", Storage("insert expense", context.DeadlineExceeded), KindStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAsStorage(t *testing.T) {
	if AsStorage("op", nil) != nil {
		t.Fatal("nil error should stay nil")
	}

	v := Validation("splits", "sum mismatch")
	if got := AsStorage("op", v); got != error(v) {
		t.Errorf("domain error was rewrapped: %v", got)
	}

	raw := errors.New("connection reset")
	got := AsStorage("insert", raw)
	if !Is(got, KindStorage) {
		t.Fatalf("expected storage kind, got %v", got)
	}
	if !errors.Is(got, raw) {
		t.Error("storage error should unwrap to the cause")
	}
	var e *Error
	if errors.As(got, &e) && !e.Retryable() {
		t.Error("storage errors are retryable")
	}
}

func TestErrorMessage(t *testing.T) {
	err := Validation("percentages", "must sum to 100")
	if err.Error() != "validation: percentages: must sum to 100" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
