package services

import (
	"context"
	"log/slog"

	"github.com/baharkarakas/household-ledger/internal/apperr"
	"github.com/baharkarakas/household-ledger/internal/events"
	"github.com/baharkarakas/household-ledger/internal/metrics"
)

// Invalidator drops cached read models of a household after a mutation.
type Invalidator interface {
	Invalidate(householdID string)
}

// outcome labels a ledger operation result for metrics.
func outcome(err error) string {
	switch apperr.KindOf(err) {
	case "":
		if err == nil {
			return "ok"
		}
		return "error"
	case apperr.KindConflict:
		return "conflict"
	case apperr.KindValidation, apperr.KindReference:
		return "invalid"
	case apperr.KindNotFound:
		return "not_found"
	default:
		return "error"
	}
}

func record(op string, err error) {
	metrics.LedgerOpsTotal.WithLabelValues(op, outcome(err)).Inc()
}

// after runs the shared post-commit steps: cache invalidation, then the event.
func after(ctx context.Context, log *slog.Logger, inv Invalidator, pub events.Publisher, householdID string, e events.Event) {
	inv.Invalidate(householdID)
	publish(ctx, log, pub, e)
}

// publish hands e to pub. The ledger write already committed, so a dropped
// event is logged and not returned.
func publish(ctx context.Context, log *slog.Logger, pub events.Publisher, e events.Event) {
	if err := pub.Publish(ctx, e); err != nil {
		log.WarnContext(ctx, "event not published",
			"household_id", e.HouseholdID,
			"event_type", string(e.Type),
			"event_id", e.ID,
			"error", err)
	}
}
