package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/baharkarakas/household-ledger/internal/api/handlers"
	"github.com/baharkarakas/household-ledger/internal/config"
	"github.com/baharkarakas/household-ledger/internal/metrics"
	"github.com/baharkarakas/household-ledger/internal/middleware"
	"github.com/baharkarakas/household-ledger/internal/services"
)

type RouterDeps struct {
	Cfg         config.Config
	Log         *slog.Logger
	Households  *services.HouseholdService
	Expenses    *services.ExpenseService
	Balances    *services.BalanceService
	Settlements *services.SettlementService
	Recurring   *services.RecurringProcessor
	// Ready reports storage health for /health; nil means always ready.
	Ready func(r *http.Request) error
}

func NewRouter(d RouterDeps) http.Handler {
	hh := handlers.NewHouseholdHandler(d.Households, d.Log)
	eh := handlers.NewExpenseHandler(d.Expenses, d.Log)
	bh := handlers.NewBalanceHandler(d.Balances, d.Log)
	sh := handlers.NewSettlementHandler(d.Settlements, d.Log)
	rh := handlers.NewRecurringHandler(d.Recurring, d.Cfg.RecurringBatchSize, d.Log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover(d.Log), middleware.Logging(d.Log), middleware.HTTPMetrics)
	r.Use(middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"X-Request-Id"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r); err != nil {
				d.Log.WarnContext(r.Context(), "health check failed", "error", err)
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- households ----------
		r.Post("/households", hh.Create)
		r.Route("/households/{householdID}", func(r chi.Router) {
			r.Get("/", hh.Get)
			r.Post("/members", hh.AddMembers)

			r.Get("/balances", bh.Balances)
			r.Get("/settlements/suggestions", bh.Suggestions)

			r.Post("/expenses", eh.Create)
			r.Get("/expenses", eh.List)

			r.Post("/settlements", sh.Record)
			r.Get("/settlements", sh.List)

			r.Post("/recurring", rh.Create)
			r.Get("/recurring", rh.List)
			r.Post("/recurring/process", rh.Process)
		})

		// ---------- expenses ----------
		r.Get("/expenses/{expenseID}", eh.Get)
		r.Put("/expenses/{expenseID}", eh.Update)
		r.Delete("/expenses/{expenseID}", eh.Delete)

		// ---------- recurring ----------
		r.Delete("/recurring/{templateID}", rh.Deactivate)

		// ---------- calculators ----------
		r.Post("/splits/preview", eh.Preview)
		r.Post("/settlements/optimize", bh.Optimize)
	})

	return r
}
