package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
	"github.com/baharkarakas/household-ledger/internal/api/validate"
	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	"github.com/baharkarakas/household-ledger/internal/recurrence"
	"github.com/baharkarakas/household-ledger/internal/services"
)

type RecurringHandler struct {
	Svc          *services.RecurringProcessor
	DefaultBatch int
	Log          *slog.Logger
}

func NewRecurringHandler(svc *services.RecurringProcessor, defaultBatch int, log *slog.Logger) *RecurringHandler {
	return &RecurringHandler{Svc: svc, DefaultBatch: defaultBatch, Log: log}
}

type templateReq struct {
	Description   string                     `json:"description"`
	Amount        money.Cents                `json:"amount"`
	PayerID       string                     `json:"payer_id"`
	Participants  []string                   `json:"participants"`
	SplitMode     string                     `json:"split_mode,omitempty"`
	CustomAmounts map[string]money.Cents     `json:"custom_amounts,omitempty"`
	Percentages   map[string]decimal.Decimal `json:"percentages,omitempty"`
	Frequency     recurrence.Frequency       `json:"frequency"`
	AnchorDay     int                        `json:"anchor_day,omitempty"`
	StartDate     string                     `json:"start_date,omitempty"`
	EndDate       string                     `json:"end_date,omitempty"`
}

func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req templateReq
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	var start, end time.Time
	if err := validate.Collect(
		validate.Required("payer_id", req.PayerID),
		validate.Date("start_date", req.StartDate, &start),
		validate.Date("end_date", req.EndDate, &end),
	); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	t := &models.RecurringTemplate{
		HouseholdID:   chi.URLParam(r, "householdID"),
		Description:   req.Description,
		Amount:        req.Amount,
		PayerID:       req.PayerID,
		Participants:  req.Participants,
		SplitMode:     req.SplitMode,
		CustomAmounts: req.CustomAmounts,
		Percentages:   req.Percentages,
		Frequency:     req.Frequency,
		AnchorDay:     req.AnchorDay,
		StartDate:     start,
	}
	if !end.IsZero() {
		t.EndDate = &end
	}
	if err := h.Svc.CreateTemplate(r.Context(), t); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, t)
}

func (h *RecurringHandler) List(w http.ResponseWriter, r *http.Request) {
	ts, err := h.Svc.ListTemplates(r.Context(), chi.URLParam(r, "householdID"))
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"templates": ts})
}

func (h *RecurringHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Deactivate(r.Context(), chi.URLParam(r, "templateID")); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Process runs one processor pass over the household's due templates.
func (h *RecurringHandler) Process(w http.ResponseWriter, r *http.Request) {
	batch := h.DefaultBatch
	if v := r.URL.Query().Get("batch_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.WriteAppError(w, r, h.Log, apperr.Validation("batch_size", "must be a positive integer"))
			return
		}
		batch = n
	}
	res, err := h.Svc.ProcessDue(r.Context(), chi.URLParam(r, "householdID"), batch)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, apperr.AsStorage("process recurring", err))
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
