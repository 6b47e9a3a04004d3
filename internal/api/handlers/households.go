package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
	"github.com/baharkarakas/household-ledger/internal/api/validate"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/services"
)

type HouseholdHandler struct {
	Svc *services.HouseholdService
	Log *slog.Logger
}

func NewHouseholdHandler(svc *services.HouseholdService, log *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{Svc: svc, Log: log}
}

type memberReq struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name,omitempty"`
}

type createHouseholdReq struct {
	Name     string      `json:"name"`
	Currency string      `json:"currency,omitempty"`
	Members  []memberReq `json:"members"`
}

func toMembers(in []memberReq) []models.Member {
	out := make([]models.Member, len(in))
	for i, m := range in {
		out[i] = models.Member{UserID: m.UserID, DisplayName: m.DisplayName}
	}
	return out
}

func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createHouseholdReq
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	if err := validate.Collect(validate.Required("name", req.Name)); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	hh := &models.Household{Name: req.Name, Currency: req.Currency, Members: toMembers(req.Members)}
	if err := h.Svc.Create(r.Context(), hh); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, hh)
}

func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	hh, err := h.Svc.Get(r.Context(), chi.URLParam(r, "householdID"))
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, hh)
}

func (h *HouseholdHandler) AddMembers(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Members []memberReq `json:"members"`
	}
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	hh, err := h.Svc.AddMembers(r.Context(), chi.URLParam(r, "householdID"), toMembers(req.Members))
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, hh)
}
