package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/household-ledger/internal/events"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	"github.com/baharkarakas/household-ledger/internal/metrics"
	"github.com/baharkarakas/household-ledger/internal/models"
)

// Failure names a template that could not be materialized in a run.
type Failure struct {
	TemplateID string `json:"template_id"`
	Error      string `json:"error"`
}

// ProcessResult summarizes one run. Processed counts templates, not expenses.
type ProcessResult struct {
	Processed       int       `json:"processed"`
	ExpensesCreated int       `json:"expenses_created"`
	Errors          int       `json:"errors"`
	Failures        []Failure `json:"failures,omitempty"`
}

// RecurringProcessor turns due recurring templates into expenses. Each
// template is handled in its own transaction, so one failing template never
// blocks the others.
type RecurringProcessor struct {
	store *ledger.Store
	inv   Invalidator
	pub   events.Publisher
	log   *slog.Logger
	now   func() time.Time
}

func NewRecurringProcessor(store *ledger.Store, inv Invalidator, pub events.Publisher, log *slog.Logger) *RecurringProcessor {
	return &RecurringProcessor{store: store, inv: inv, pub: pub, log: log, now: time.Now}
}

// ProcessDue materializes up to batchSize due templates of householdID, or
// of every household when householdID is empty.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, householdID string, batchSize int) (ProcessResult, error) {
	if batchSize <= 0 {
		batchSize = 50
	}
	today := p.now()
	var (
		res  ProcessResult
		skip []string
	)
	for res.Processed+res.Errors < batchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		out, claimed, err := p.store.MaterializeDueTemplate(ctx, householdID, today, skip)
		if err != nil && out.TemplateID == "" {
			// the claim itself failed; nothing to isolate
			p.log.ErrorContext(ctx, "claiming recurring template failed", "error", err)
			return res, err
		}
		if err != nil {
			res.Errors++
			res.Failures = append(res.Failures, Failure{TemplateID: out.TemplateID, Error: err.Error()})
			skip = append(skip, out.TemplateID)
			metrics.RecurringFailures.Inc()
			p.log.ErrorContext(ctx, "recurring template failed",
				"template_id", out.TemplateID,
				"household_id", out.HouseholdID,
				"error", err)
			continue
		}
		if !claimed {
			break
		}

		res.Processed++
		res.ExpensesCreated += len(out.ExpenseIDs)
		metrics.RecurringExpensesCreated.Add(float64(len(out.ExpenseIDs)))
		p.log.InfoContext(ctx, "recurring template processed",
			"template_id", out.TemplateID,
			"household_id", out.HouseholdID,
			"created", len(out.ExpenseIDs),
			"replayed", out.Replayed,
			"next_due_date", out.NextDueDate.Format("2006-01-02"),
			"active", out.Active)

		if len(out.ExpenseIDs) == 0 {
			continue
		}
		p.inv.Invalidate(out.HouseholdID)
		for _, id := range out.ExpenseIDs {
			ev := events.New(events.ExpenseCreated, out.HouseholdID, id)
			ev.Version = 1
			ev.Data = map[string]any{"recurring_template_id": out.TemplateID}
			publish(ctx, p.log, p.pub, ev)
		}
	}

	p.log.InfoContext(ctx, "recurring processing complete",
		"processed", res.Processed,
		"expenses_created", res.ExpensesCreated,
		"errors", res.Errors)
	if res.Processed > 0 {
		ev := events.New(events.RecurringProcessed, householdID, "")
		ev.Data = map[string]any{"processed": res.Processed, "expenses_created": res.ExpensesCreated}
		publish(ctx, p.log, p.pub, ev)
	}
	return res, nil
}

func (p *RecurringProcessor) CreateTemplate(ctx context.Context, t *models.RecurringTemplate) error {
	if err := p.store.CreateRecurringTemplate(ctx, t); err != nil {
		return err
	}
	p.log.InfoContext(ctx, "recurring template created", "template_id", t.ID, "household_id", t.HouseholdID, "frequency", t.Frequency)
	return nil
}

func (p *RecurringProcessor) ListTemplates(ctx context.Context, householdID string) ([]models.RecurringTemplate, error) {
	return p.store.ListRecurringTemplates(ctx, householdID)
}

func (p *RecurringProcessor) Deactivate(ctx context.Context, id string) error {
	return p.store.DeactivateRecurringTemplate(ctx, id)
}
