package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/baharkarakas/household-ledger/internal/apperr"
)

func TestWriteAppError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantRetry  string
		wantMsg    string
	}{
		{"storage", apperr.Storage("balances", errors.New("conn reset")), http.StatusServiceUnavailable, "1", "storage temporarily unavailable"},
		{"validation", apperr.Validation("amount", "must be positive"), http.StatusBadRequest, "", "must be positive"},
		{"conflict", apperr.Conflict("version mismatch"), http.StatusConflict, "", "version mismatch"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "", "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			WriteAppError(rec, req, log, tt.err)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Retry-After"); got != tt.wantRetry {
				t.Fatalf("Retry-After = %q, want %q", got, tt.wantRetry)
			}
			var body APIError
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body.Error != tt.wantMsg {
				t.Fatalf("error = %q, want %q", body.Error, tt.wantMsg)
			}
		})
	}
}
