package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	"github.com/baharkarakas/household-ledger/internal/money"
	"github.com/baharkarakas/household-ledger/internal/services"
)

type SettlementHandler struct {
	Svc *services.SettlementService
	Log *slog.Logger
}

func NewSettlementHandler(svc *services.SettlementService, log *slog.Logger) *SettlementHandler {
	return &SettlementHandler{Svc: svc, Log: log}
}

type settlementReq struct {
	PayerID     string      `json:"payer_id"`
	PayeeID     string      `json:"payee_id"`
	Amount      money.Cents `json:"amount"`
	Description string      `json:"description,omitempty"`
	ClientUUID  string      `json:"client_uuid,omitempty"`
	SplitIDs    []string    `json:"split_ids,omitempty"`
}

func (h *SettlementHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req settlementReq
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = req.ClientUUID
	}
	res, err := h.Svc.Record(r.Context(), ledger.SettlementInput{
		HouseholdID: chi.URLParam(r, "householdID"),
		PayerID:     req.PayerID,
		PayeeID:     req.PayeeID,
		Amount:      req.Amount,
		Description: req.Description,
		ClientUUID:  key,
		SplitIDs:    req.SplitIDs,
	})
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	status := http.StatusCreated
	if res.Idempotent {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, res)
}

func (h *SettlementHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	ss, err := h.Svc.List(r.Context(), chi.URLParam(r, "householdID"), limit, offset)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"settlements": ss})
}
