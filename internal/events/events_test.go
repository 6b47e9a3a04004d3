package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"github.com/baharkarakas/household-ledger/internal/worker"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{12, 30 * time.Second},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil", nil, false},
		{"closed sentinel", amqp091.ErrClosed, true},
		{"wrapped closed", fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"other", errors.New("invalid input"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestEventJSONRoundTrip(t *testing.T) {
	e := New(ExpenseReversed, "h1", "e1")
	e.Version = 3
	b, err := e.ToJSON()
	if err != nil {
		t.Fatal(err)
	}
	got, err := FromJSON(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != ExpenseReversed || got.EntityID != "e1" || got.Version != 3 {
		t.Fatalf("decoded %+v", got)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func TestAsyncPublishesThroughPool(t *testing.T) {
	pool := worker.NewPool(2, 8)
	rec := &recorder{}
	a := NewAsync(rec, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	for i := 0; i < 5; i++ {
		_ = a.Publish(ctx, New(ExpenseCreated, "h", fmt.Sprint(i)))
	}
	// request contexts end before the events go out
	cancel()
	pool.Stop()

	if len(rec.events) != 5 {
		t.Fatalf("published %d events, want 5", len(rec.events))
	}
}

func TestAsyncReportsDroppedEvents(t *testing.T) {
	pool := worker.NewPool(1, 1)
	pool.Stop()
	a := NewAsync(&recorder{}, pool, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := a.Publish(context.Background(), New(ExpenseCreated, "h", "e1")); !errors.Is(err, ErrDropped) {
		t.Fatalf("err = %v, want ErrDropped", err)
	}
}
