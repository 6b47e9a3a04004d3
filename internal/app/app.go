// Package app wires storage, events and services from a Config. Both the
// API process and the recurring worker build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/household-ledger/internal/config"
	"github.com/baharkarakas/household-ledger/internal/db"
	"github.com/baharkarakas/household-ledger/internal/events"
	"github.com/baharkarakas/household-ledger/internal/ledger"
	repo "github.com/baharkarakas/household-ledger/internal/repository"
	"github.com/baharkarakas/household-ledger/internal/repository/memory"
	"github.com/baharkarakas/household-ledger/internal/repository/postgres"
	"github.com/baharkarakas/household-ledger/internal/services"
	"github.com/baharkarakas/household-ledger/internal/worker"
)

type App struct {
	Households  *services.HouseholdService
	Expenses    *services.ExpenseService
	Balances    *services.BalanceService
	Settlements *services.SettlementService
	Recurring   *services.RecurringProcessor

	pool    *pgxpool.Pool
	workers *worker.Pool
	pub     events.Publisher
	log     *slog.Logger
}

// New opens the configured backend, runs migrations when asked, and builds
// the services. Callers must Close the App.
func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	a := &App{log: log}

	var (
		ledgerRepo repo.Ledger
		households repo.Households
	)
	switch cfg.DataBackend {
	case "memory":
		mem := memory.New()
		ledgerRepo, households = mem, mem.Households()
		log.Warn("using in-memory storage; data is lost on exit")
	default:
		if cfg.Migrate {
			if err := db.RunMigrations(cfg.DatabaseURL); err != nil {
				return nil, fmt.Errorf("migrations: %w", err)
			}
			log.Info("migrations applied")
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		a.pool = pool
		repos := postgres.NewRepositories(pool)
		ledgerRepo, households = repos.Ledger, repos.Households
	}

	a.workers = worker.NewPool(cfg.WorkerCount, cfg.WorkerCount*64)
	var pub events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingPrefix, log)
		if err != nil {
			// the ledger works without a broker
			log.Warn("amqp unavailable, events disabled", "error", err)
		} else {
			pub = p
			log.Info("amqp publisher ready", "exchange", cfg.AMQPExchange)
		}
	}
	a.pub = events.NewAsync(pub, a.workers, log)

	store := ledger.NewStore(ledgerRepo)
	a.Balances = services.NewBalanceService(store, cfg.CacheSize, cfg.CacheTTL, log)
	a.Households = services.NewHouseholdService(households, a.Balances)
	a.Expenses = services.NewExpenseService(store, households, a.Balances, a.pub, log)
	a.Settlements = services.NewSettlementService(store, a.Balances, a.pub, log)
	a.Recurring = services.NewRecurringProcessor(store, a.Balances, a.pub, log)
	return a, nil
}

// Ping checks the database; the memory backend is always ready.
func (a *App) Ping(ctx context.Context) error {
	if a.pool == nil {
		return nil
	}
	return a.pool.Ping(ctx)
}

// Close drains queued events, then closes the broker and the pool.
func (a *App) Close() error {
	a.workers.Stop()
	err := a.pub.Close()
	if a.pool != nil {
		a.pool.Close()
	}
	if err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
