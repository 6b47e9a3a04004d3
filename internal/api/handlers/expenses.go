package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
	"github.com/baharkarakas/household-ledger/internal/api/validate"
	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/models"
	"github.com/baharkarakas/household-ledger/internal/money"
	"github.com/baharkarakas/household-ledger/internal/services"
)

type ExpenseHandler struct {
	Svc *services.ExpenseService
	Log *slog.Logger
}

func NewExpenseHandler(svc *services.ExpenseService, log *slog.Logger) *ExpenseHandler {
	return &ExpenseHandler{Svc: svc, Log: log}
}

type expenseReq struct {
	Description string              `json:"description"`
	Amount      money.Cents         `json:"amount"`
	Date        string              `json:"date,omitempty"`
	PayerID     string              `json:"payer_id,omitempty"`
	Payments    []models.Payment    `json:"payments,omitempty"`
	Splits      []models.Split      `json:"splits,omitempty"`
	Split       *services.SplitSpec `json:"split,omitempty"`

	ClientUUID      string `json:"client_uuid,omitempty"`
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

func (req expenseReq) toRequest(householdID string) (services.ExpenseRequest, error) {
	var date time.Time
	if err := validate.Collect(validate.Date("date", req.Date, &date)); err != nil {
		return services.ExpenseRequest{}, err
	}
	return services.ExpenseRequest{
		HouseholdID: householdID,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		PayerID:     req.PayerID,
		Payments:    req.Payments,
		Splits:      req.Splits,
		Split:       req.Split,
	}, nil
}

// Create accepts the idempotency key as an Idempotency-Key header or as
// client_uuid in the body. A replay answers 200 instead of 201.
func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req expenseReq
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	in, err := req.toRequest(chi.URLParam(r, "householdID"))
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = req.ClientUUID
	}
	res, err := h.Svc.Create(r.Context(), in, key)
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

// expectedVersion reads expected_version from the body, falling back to If-Match.
func expectedVersion(r *http.Request, body *int64) (int64, error) {
	if body != nil {
		return *body, nil
	}
	if v := strings.Trim(r.Header.Get("If-Match"), `" `); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, apperr.Validation("expected_version", "If-Match must be a version number")
		}
		return n, nil
	}
	return 0, apperr.Validation("expected_version", "required")
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req expenseReq
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	version, err := expectedVersion(r, req.ExpectedVersion)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	in, err := req.toRequest("")
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	res, err := h.Svc.Update(r.Context(), chi.URLParam(r, "expenseID"), in, version)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	res, err := h.Svc.Delete(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	e, err := h.Svc.Get(r.Context(), chi.URLParam(r, "expenseID"))
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := httpx.Page(r)
	es, err := h.Svc.List(r.Context(), chi.URLParam(r, "householdID"), limit, offset)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"expenses": es})
}

type previewReq struct {
	HouseholdID string      `json:"household_id,omitempty"`
	Amount      money.Cents `json:"amount"`
	PayerID     string      `json:"payer_id,omitempty"`
	services.SplitSpec
}

// Preview computes splits without writing anything.
func (h *ExpenseHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req previewReq
	if err := httpx.ReadJSON(w, r, &req); err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	if req.HouseholdID == "" && len(req.Participants) == 0 {
		httpx.WriteAppError(w, r, h.Log, apperr.Validation("participants", "participants or household_id is required"))
		return
	}
	shares, err := h.Svc.Preview(r.Context(), req.HouseholdID, req.Amount, req.PayerID, req.SplitSpec)
	if err != nil {
		httpx.WriteAppError(w, r, h.Log, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"splits": shares})
}
