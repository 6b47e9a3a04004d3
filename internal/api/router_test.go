package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baharkarakas/household-ledger/internal/calculator"
	"github.com/baharkarakas/household-ledger/internal/config"
	"github.com/baharkarakas/household-ledger/internal/events"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	"github.com/baharkarakas/household-ledger/internal/money"
	"github.com/baharkarakas/household-ledger/internal/repository/memory"
	"github.com/baharkarakas/household-ledger/internal/services"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := memory.New()
	store := ledger.NewStore(mem)
	pub := events.Nop{}
	bal := services.NewBalanceService(store, 16, time.Minute, log)
	h := NewRouter(RouterDeps{
		Cfg:         config.Config{RateRPS: 10000, RecurringBatchSize: 10},
		Log:         log,
		Households:  services.NewHouseholdService(mem.Households(), bal),
		Expenses:    services.NewExpenseService(store, mem.Households(), bal, pub, log),
		Balances:    bal,
		Settlements: services.NewSettlementService(store, bal, pub, log),
		Recurring:   services.NewRecurringProcessor(store, bal, pub, log),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, headers map[string]string) (int, []byte) {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = bytes.NewBufferString(b)
		default:
			buf, err := json.Marshal(b)
			if err != nil {
				t.Fatal(err)
			}
			rd = bytes.NewReader(buf)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, b []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return v
}

func createHousehold(t *testing.T, srv *httptest.Server, members ...string) string {
	t.Helper()
	ms := make([]map[string]string, len(members))
	for i, m := range members {
		ms[i] = map[string]string{"user_id": m}
	}
	code, body := do(t, srv, http.MethodPost, "/api/v1/households", map[string]any{"name": "flat", "members": ms}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create household: %d %s", code, body)
	}
	return decode[struct {
		ID string `json:"id"`
	}](t, body).ID
}

type balancesResp struct {
	Balances []struct {
		UserID  string      `json:"user_id"`
		Balance money.Cents `json:"balance"`
	} `json:"balances"`
}

func balances(t *testing.T, srv *httptest.Server, hid string) map[string]money.Cents {
	t.Helper()
	code, body := do(t, srv, http.MethodGet, "/api/v1/households/"+hid+"/balances", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("balances: %d %s", code, body)
	}
	out := map[string]money.Cents{}
	for _, b := range decode[balancesResp](t, body).Balances {
		out[b.UserID] = b.Balance
	}
	return out
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/health", nil, nil)
	if code != http.StatusOK || string(body) != "ok" {
		t.Fatalf("health: %d %s", code, body)
	}
}

func TestExpenseLifecycle(t *testing.T) {
	srv := newTestServer(t)
	hid := createHousehold(t, srv, "a", "b", "c")
	expenses := "/api/v1/households/" + hid + "/expenses"

	req := map[string]any{"description": "groceries", "amount": "90.00", "date": "2024-03-01", "payer_id": "a"}
	key := map[string]string{"Idempotency-Key": "7d1c7a8e-1111-4c3b-9a52-000000000001"}

	code, body := do(t, srv, http.MethodPost, expenses, req, key)
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, body)
	}
	created := decode[ledger.CreateResult](t, body)

	code, body = do(t, srv, http.MethodPost, expenses, req, key)
	replay := decode[ledger.CreateResult](t, body)
	if code != http.StatusOK || !replay.Idempotent || replay.ExpenseID != created.ExpenseID {
		t.Fatalf("replay: %d %+v", code, replay)
	}

	got := balances(t, srv, hid)
	want := map[string]money.Cents{"a": 6000, "b": -3000, "c": -3000}
	for u, w := range want {
		if got[u] != w {
			t.Errorf("balance[%s] = %s, want %s", u, got[u], w)
		}
	}

	code, body = do(t, srv, http.MethodGet, "/api/v1/households/"+hid+"/settlements/suggestions", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("suggestions: %d %s", code, body)
	}
	plan := decode[struct {
		Transfers []calculator.Transfer `json:"transfers"`
	}](t, body).Transfers
	if len(plan) != 2 {
		t.Fatalf("transfers = %+v", plan)
	}
	for _, tr := range plan {
		if tr.To != "a" || tr.Amount != 3000 {
			t.Errorf("unexpected transfer %+v", tr)
		}
	}

	path := "/api/v1/expenses/" + created.ExpenseID
	update := map[string]any{"description": "groceries", "amount": "60.00", "payer_id": "a", "split": map[string]any{"mode": "equal", "participants": []string{"a", "b"}}}

	code, _ = do(t, srv, http.MethodPut, path, update, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("update without version = %d, want 400", code)
	}
	update["expected_version"] = 1
	code, body = do(t, srv, http.MethodPut, path, update, nil)
	if code != http.StatusOK {
		t.Fatalf("update: %d %s", code, body)
	}
	if res := decode[ledger.UpdateResult](t, body); !res.Success || res.Version != 2 {
		t.Fatalf("update result = %+v", res)
	}
	code, body = do(t, srv, http.MethodPut, path, update, nil)
	if code != http.StatusConflict {
		t.Fatalf("stale update = %d %s, want 409", code, body)
	}

	got = balances(t, srv, hid)
	if got["a"] != 3000 || got["b"] != -3000 || got["c"] != 0 {
		t.Fatalf("balances after update = %v", got)
	}

	code, body = do(t, srv, http.MethodDelete, path, nil, nil)
	if code != http.StatusOK {
		t.Fatalf("delete: %d %s", code, body)
	}
	if res := decode[ledger.DeleteResult](t, body); res.Outcome != ledger.OutcomeDeleted {
		t.Fatalf("delete outcome = %q", res.Outcome)
	}
	code, _ = do(t, srv, http.MethodGet, path, nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("get deleted = %d, want 404", code)
	}
}

func TestErrorMapping(t *testing.T) {
	srv := newTestServer(t)
	hid := createHousehold(t, srv, "a", "b")
	expenses := "/api/v1/households/" + hid + "/expenses"
	key := map[string]string{"Idempotency-Key": "k-1"}

	tests := []struct {
		name    string
		method  string
		path    string
		body    any
		headers map[string]string
		want    int
		code    string
	}{
		{"empty body", http.MethodPost, expenses, "", key, http.StatusBadRequest, "validation"},
		{"unknown field", http.MethodPost, expenses, `{"amount":"1.00","bogus":1}`, key, http.StatusBadRequest, "validation"},
		{"missing key", http.MethodPost, expenses, map[string]any{"description": "x", "amount": "10.00", "payer_id": "a"}, nil, http.StatusBadRequest, "validation"},
		{"bad date", http.MethodPost, expenses, map[string]any{"description": "x", "amount": "10.00", "payer_id": "a", "date": "03/01/2024"}, key, http.StatusBadRequest, "validation"},
		{"non-member payer", http.MethodPost, expenses, map[string]any{"description": "x", "amount": "10.00", "payer_id": "z", "splits": []map[string]any{{"user_id": "a", "amount": "10.00"}}}, key, http.StatusUnprocessableEntity, "reference"},
		{"unknown expense", http.MethodGet, "/api/v1/expenses/2d9cf1a4-0000-4000-8000-000000000000", nil, nil, http.StatusNotFound, "not_found"},
		{"unknown household", http.MethodGet, "/api/v1/households/2d9cf1a4-0000-4000-8000-000000000000/balances", nil, nil, http.StatusNotFound, "not_found"},
		{"self settlement", http.MethodPost, "/api/v1/households/" + hid + "/settlements", map[string]any{"payer_id": "a", "payee_id": "a", "amount": "5.00"}, nil, http.StatusBadRequest, "validation"},
		{"bad batch size", http.MethodPost, "/api/v1/households/" + hid + "/recurring/process?batch_size=x", nil, nil, http.StatusBadRequest, "validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := do(t, srv, tt.method, tt.path, tt.body, tt.headers)
			if code != tt.want {
				t.Fatalf("status = %d (%s), want %d", code, body, tt.want)
			}
			if got := decode[struct {
				Code string `json:"code"`
			}](t, body).Code; got != tt.code {
				t.Fatalf("code = %q, want %q", got, tt.code)
			}
		})
	}
}

func TestSettlementClearsBalances(t *testing.T) {
	srv := newTestServer(t)
	hid := createHousehold(t, srv, "a", "b")

	code, body := do(t, srv, http.MethodPost, "/api/v1/households/"+hid+"/expenses",
		map[string]any{"description": "dinner", "amount": "40.00", "payer_id": "a"},
		map[string]string{"Idempotency-Key": "dinner-1"})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %s", code, body)
	}

	settle := map[string]any{"payer_id": "b", "payee_id": "a", "amount": "20.00", "client_uuid": "s-1"}
	code, body = do(t, srv, http.MethodPost, "/api/v1/households/"+hid+"/settlements", settle, nil)
	if code != http.StatusCreated {
		t.Fatalf("settle: %d %s", code, body)
	}
	code, _ = do(t, srv, http.MethodPost, "/api/v1/households/"+hid+"/settlements", settle, nil)
	if code != http.StatusOK {
		t.Fatalf("settlement replay = %d, want 200", code)
	}

	got := balances(t, srv, hid)
	if got["a"] != 0 || got["b"] != 0 {
		t.Fatalf("balances = %v", got)
	}
	code, body = do(t, srv, http.MethodGet, "/api/v1/households/"+hid+"/settlements", nil, nil)
	if code != http.StatusOK || len(decode[struct {
		Settlements []json.RawMessage `json:"settlements"`
	}](t, body).Settlements) != 1 {
		t.Fatalf("list settlements: %d %s", code, body)
	}
}

func TestCalculatorEndpoints(t *testing.T) {
	srv := newTestServer(t)

	code, body := do(t, srv, http.MethodPost, "/api/v1/splits/preview",
		map[string]any{"amount": "100.00", "mode": "equal", "participants": []string{"a", "b", "c"}}, nil)
	if code != http.StatusOK {
		t.Fatalf("preview: %d %s", code, body)
	}
	shares := decode[struct {
		Splits []calculator.Share `json:"splits"`
	}](t, body).Splits
	want := []money.Cents{3334, 3333, 3333}
	for i, s := range shares {
		if s.Amount != want[i] {
			t.Errorf("share[%d] = %s, want %s", i, s.Amount, want[i])
		}
	}

	code, body = do(t, srv, http.MethodPost, "/api/v1/settlements/optimize", map[string]any{"balances": []map[string]any{
		{"user_id": "a", "balance": "50.00"},
		{"user_id": "b", "balance": "-20.00"},
		{"user_id": "c", "balance": "-30.00"},
	}}, nil)
	if code != http.StatusOK {
		t.Fatalf("optimize: %d %s", code, body)
	}
	if ts := decode[struct {
		Transfers []calculator.Transfer `json:"transfers"`
	}](t, body).Transfers; len(ts) != 2 {
		t.Fatalf("transfers = %+v", ts)
	}
}

func TestRecurringEndpoints(t *testing.T) {
	srv := newTestServer(t)
	hid := createHousehold(t, srv, "a", "b")
	today := time.Now().UTC().Format("2006-01-02")

	code, body := do(t, srv, http.MethodPost, "/api/v1/households/"+hid+"/recurring", map[string]any{
		"description":  "rent",
		"amount":       "1000.00",
		"payer_id":     "a",
		"participants": []string{"a", "b"},
		"frequency":    "monthly",
		"start_date":   today,
	}, nil)
	if code != http.StatusCreated {
		t.Fatalf("create template: %d %s", code, body)
	}
	tmpl := decode[struct {
		ID string `json:"id"`
	}](t, body)

	code, body = do(t, srv, http.MethodPost, "/api/v1/households/"+hid+"/recurring/process", nil, nil)
	if code != http.StatusOK {
		t.Fatalf("process: %d %s", code, body)
	}
	res := decode[services.ProcessResult](t, body)
	if res.Processed != 1 || res.ExpensesCreated != 1 || res.Errors != 0 {
		t.Fatalf("process result = %+v", res)
	}
	if got := balances(t, srv, hid); got["b"] != -50000 {
		t.Fatalf("balances = %v", got)
	}

	code, body = do(t, srv, http.MethodPost, "/api/v1/households/"+hid+"/recurring/process", nil, nil)
	if res := decode[services.ProcessResult](t, body); code != http.StatusOK || res.ExpensesCreated != 0 {
		t.Fatalf("second pass: %d %+v", code, res)
	}

	code, _ = do(t, srv, http.MethodDelete, "/api/v1/recurring/"+tmpl.ID, nil, nil)
	if code != http.StatusNoContent {
		t.Fatalf("deactivate = %d", code)
	}
	code, _ = do(t, srv, http.MethodDelete, "/api/v1/recurring/2d9cf1a4-0000-4000-8000-000000000000", nil, nil)
	if code != http.StatusNotFound {
		t.Fatalf("deactivate unknown = %d, want 404", code)
	}
}
