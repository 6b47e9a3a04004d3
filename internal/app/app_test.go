package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/baharkarakas/household-ledger/internal/config"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/services"
)

func TestNew_MemoryBackend(t *testing.T) {
	ctx := context.Background()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.Config{DataBackend: "memory", WorkerCount: 2, CacheSize: 8, CacheTTL: time.Minute}

	a, err := New(ctx, cfg, log)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	if err := a.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	h := &models.Household{Name: "flat", Members: []models.Member{{UserID: "a"}, {UserID: "b"}}}
	if err := a.Households.Create(ctx, h); err != nil {
		t.Fatal(err)
	}
	_, err = a.Expenses.Create(ctx, services.ExpenseRequest{
		HouseholdID: h.ID,
		Description: "bread",
		Amount:      500,
		PayerID:     "a",
	}, "bread-1")
	if err != nil {
		t.Fatal(err)
	}
	bs, err := a.Balances.Balances(ctx, h.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(bs) != 2 || bs[0].Balance+bs[1].Balance != 0 {
		t.Fatalf("balances = %+v", bs)
	}
}
