package ledger

import (
	"context"
	"errors"
	"strings"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
)

type SettlementInput struct {
	HouseholdID string
	PayerID     string
	PayeeID     string
	Amount      money.Cents
	Description string
	ClientUUID  string
	// SplitIDs optionally names splits owed by the payer that this payment covers.
	SplitIDs []string
}

type SettlementResult struct {
	SettlementID string `json:"settlement_id"`
	Idempotent   bool   `json:"idempotent"`
}

// RecordSettlement stores a real payment from PayerID to PayeeID and marks
// the referenced splits as settled.
func (s *Store) RecordSettlement(ctx context.Context, in SettlementInput) (SettlementResult, error) {
	in.ClientUUID = strings.TrimSpace(in.ClientUUID)
	if err := checkSettlement(in); err != nil {
		return SettlementResult{}, err
	}
	var res SettlementResult
	err := s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
		var err error
		res, err = s.recordSettlementTx(ctx, tx, in)
		return err
	})
	if errors.Is(err, repo.ErrDuplicateClientUUID) && in.ClientUUID != "" {
		err = s.r.WithTx(ctx, func(tx repo.LedgerTx) error {
			id, ok, err := tx.SettlementIDByClientUUID(ctx, in.HouseholdID, in.ClientUUID)
			if err != nil {
				return err
			}
			if !ok {
				return repo.ErrDuplicateClientUUID
			}
			res = SettlementResult{SettlementID: id, Idempotent: true}
			return nil
		})
	}
	if err != nil {
		return SettlementResult{}, apperr.AsStorage("record settlement", err)
	}
	return res, nil
}

func checkSettlement(in SettlementInput) error {
	switch {
	case in.PayerID == "":
		return apperr.Validation("payer_id", "is required")
	case in.PayeeID == "":
		return apperr.Validation("payee_id", "is required")
	case in.PayerID == in.PayeeID:
		return apperr.Validation("payee_id", "must differ from payer_id")
	case in.Amount <= 0:
		return apperr.Validation("amount", "must be positive")
	case len(strings.TrimSpace(in.Description)) > maxDescriptionLen:
		return apperr.Validationf("description", "must be at most %d characters", maxDescriptionLen)
	}
	return nil
}

func (s *Store) recordSettlementTx(ctx context.Context, tx repo.LedgerTx, in SettlementInput) (SettlementResult, error) {
	if in.ClientUUID != "" {
		id, ok, err := tx.SettlementIDByClientUUID(ctx, in.HouseholdID, in.ClientUUID)
		if err != nil {
			return SettlementResult{}, err
		}
		if ok {
			return SettlementResult{SettlementID: id, Idempotent: true}, nil
		}
	}
	h, err := s.household(ctx, tx, in.HouseholdID)
	if err != nil {
		return SettlementResult{}, err
	}
	if !h.HasMember(in.PayerID) {
		return SettlementResult{}, apperr.Reference("payer_id", in.PayerID+" is not a household member")
	}
	if !h.HasMember(in.PayeeID) {
		return SettlementResult{}, apperr.Reference("payee_id", in.PayeeID+" is not a household member")
	}

	splitIDs := dedupe(in.SplitIDs)
	if err := s.checkSettleable(ctx, tx, in, splitIDs); err != nil {
		return SettlementResult{}, err
	}

	st := &models.Settlement{
		HouseholdID: in.HouseholdID,
		PayerID:     in.PayerID,
		PayeeID:     in.PayeeID,
		Amount:      in.Amount,
		Description: strings.TrimSpace(in.Description),
		SplitIDs:    splitIDs,
		CreatedAt:   s.now().UTC(),
	}
	if in.ClientUUID != "" {
		key := in.ClientUUID
		st.ClientUUID = &key
	}
	if err := tx.InsertSettlement(ctx, st); err != nil {
		return SettlementResult{}, err
	}
	if len(splitIDs) > 0 {
		if err := tx.MarkSplitsSettled(ctx, splitIDs, st.CreatedAt); err != nil {
			return SettlementResult{}, err
		}
	}
	if err := s.audit(ctx, tx, in.HouseholdID, "settlement", st.ID, "recorded", map[string]any{
		"payer_id": in.PayerID,
		"payee_id": in.PayeeID,
		"amount":   in.Amount.String(),
		"splits":   len(splitIDs),
	}); err != nil {
		return SettlementResult{}, err
	}
	return SettlementResult{SettlementID: st.ID}, nil
}

func (s *Store) checkSettleable(ctx context.Context, tx repo.LedgerTx, in SettlementInput, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := tx.SplitsForSettlement(ctx, ids)
	if err != nil {
		return err
	}
	byID := make(map[string]repo.SettleableSplit, len(found))
	for _, sp := range found {
		byID[sp.ID] = sp
	}
	for _, id := range ids {
		sp, ok := byID[id]
		switch {
		case !ok || sp.ExpenseDeleted:
			return apperr.NotFound("split", id)
		case sp.HouseholdID != in.HouseholdID:
			return apperr.Reference("split_ids", "split "+id+" belongs to another household")
		case sp.UserID != in.PayerID:
			return apperr.Validation("split_ids", "split "+id+" is not owed by the payer")
		case sp.Settled:
			return apperr.Validation("split_ids", "split "+id+" is already settled")
		}
	}
	return nil
}

func (s *Store) ListSettlements(ctx context.Context, householdID string, limit, offset int) ([]models.Settlement, error) {
	limit, offset = page(limit, offset)
	out, err := s.r.ListSettlements(ctx, householdID, limit, offset)
	return out, apperr.AsStorage("list settlements", err)
}

func dedupe(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
