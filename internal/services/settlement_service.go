package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/household-ledger/internal/events"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	"github.com/baharkarakas/household-ledger/internal/metrics"
	"github.com/baharkarakas/household-ledger/internal/models"
)

type SettlementService struct {
	store *ledger.Store
	inv   Invalidator
	pub   events.Publisher
	log   *slog.Logger
}

func NewSettlementService(store *ledger.Store, inv Invalidator, pub events.Publisher, log *slog.Logger) *SettlementService {
	return &SettlementService{store: store, inv: inv, pub: pub, log: log}
}

func (s *SettlementService) Record(ctx context.Context, in ledger.SettlementInput) (ledger.SettlementResult, error) {
	res, err := s.store.RecordSettlement(ctx, in)
	if err != nil {
		record("record_settlement", err)
		return res, err
	}
	if res.Idempotent {
		metrics.LedgerOpsTotal.WithLabelValues("record_settlement", "idempotent").Inc()
		return res, nil
	}
	record("record_settlement", nil)
	s.log.InfoContext(ctx, "settlement recorded",
		"settlement_id", res.SettlementID,
		"household_id", in.HouseholdID,
		"payer_id", in.PayerID,
		"payee_id", in.PayeeID,
		"amount", in.Amount.String())
	ev := events.New(events.SettlementRecorded, in.HouseholdID, res.SettlementID)
	ev.Data = map[string]any{"payer_id": in.PayerID, "payee_id": in.PayeeID, "amount": in.Amount.String()}
	after(ctx, s.log, s.inv, s.pub, in.HouseholdID, ev)
	return res, nil
}

func (s *SettlementService) List(ctx context.Context, householdID string, limit, offset int) ([]models.Settlement, error) {
	return s.store.ListSettlements(ctx, householdID, limit, offset)
}
