package validate

import (
	"strconv"
	"strings"
	"time"

	"github.com/baharkarakas/household-ledger/internal/apperr"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string { // error interface
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Collect gathers the non-nil checks. The first failing field becomes the
// validation error's field.
func Collect(checks ...*ErrField) error {
	var errs Errs
	for _, c := range checks {
		if c != nil {
			errs = append(errs, *c)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return &apperr.Error{Kind: apperr.KindValidation, Field: errs[0].Field, Message: errs.Error(), Err: errs}
}

// Helpers
func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

// Date accepts YYYY-MM-DD or RFC 3339; empty leaves *out untouched.
func Date(field, value string, out *time.Time) *ErrField {
	if value == "" {
		return nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			*out = t
			return nil
		}
	}
	return &ErrField{Field: field, Msg: "must be a date (YYYY-MM-DD)"}
}
