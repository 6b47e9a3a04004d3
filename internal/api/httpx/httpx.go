package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/baharkarakas/household-ledger/internal/apperr"
)

// maxBody caps request bodies.
const maxBody = 1 << 20

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Field   string      `json:"field,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(k apperr.Kind) int {
	switch k {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindReference:
		return http.StatusUnprocessableEntity
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindStorage:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// WriteAppError renders err; storage and unknown errors hide their cause.
func WriteAppError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		log.ErrorContext(r.Context(), "unhandled error", "path", r.URL.Path, "error", err)
		WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", nil)
		return
	}
	status := StatusFor(e.Kind)
	msg := e.Message
	if e.Retryable() {
		log.ErrorContext(r.Context(), "storage error", "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		msg = "storage temporarily unavailable"
	}
	WriteJSON(w, status, APIError{Error: msg, Code: string(e.Kind), Field: e.Field})
}

// ReadJSON decodes a single JSON object from the body into v.
func ReadJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("body", "request body is empty")
		}
		return apperr.Validation("body", err.Error())
	}
	if dec.More() {
		return apperr.Validation("body", "unexpected data after JSON object")
	}
	return nil
}

// Page reads limit and offset; zero means the store default.
func Page(r *http.Request) (limit, offset int) {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
