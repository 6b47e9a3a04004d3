package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/calculator"
	"github.com/baharkarakas/household-ledger/internal/services"
)

type BalanceHandler struct {
	Svc *services.BalanceService
	Log *slog.Logger
}

func NewBalanceHandler(svc *services.BalanceService, log *slog.Logger) *BalanceHandler {
	return &BalanceHandler{Svc: svc, Log: log}
}

func (h *BalanceHandler) Balances(w http.ResponseWriter, r *http.Request) {
	hid := chi.URLParam(r, "householdID")
	bs, err := h.Svc.Balances(r.Context(), hid)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"household_id": hid, "balances": bs})
}

func (h *BalanceHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	hid := chi.URLParam(r, "householdID")
	ts, err := h.Svc.Suggestions(r.Context(), hid)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"household_id": hid, "transfers": ts})
}

// Optimize plans transfers for a caller-supplied balance vector.
func (h *BalanceHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Balances []calculator.MemberBalance `json:"balances"`
	}
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	if len(req.Balances) == 0 {
		httpx.WriteAppError(w, r, h.Log, apperr.Validation("balances", "at least one balance is required"))
		return
	}
	ts, err := h.Svc.Optimize(req.Balances)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"transfers": ts})
}
