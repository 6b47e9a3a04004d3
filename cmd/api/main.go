package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/household-ledger/internal/api"
	"github.com/baharkarakas/household-ledger/internal/app"
	"github.com/baharkarakas/household-ledger/internal/config"
	"github.com/baharkarakas/household-ledger/internal/logger"
	"github.com/baharkarakas/household-ledger/internal/metrics"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Env, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("close", "err", err)
		}
	}()

	r := api.NewRouter(api.RouterDeps{
		Cfg:         cfg,
		Log:         log,
		Households:  a.Households,
		Expenses:    a.Expenses,
		Balances:    a.Balances,
		Settlements: a.Settlements,
		Recurring:   a.Recurring,
		Ready:       func(r *http.Request) error { return a.Ping(r.Context()) },
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server starting", "port", cfg.HTTPPort, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.CacheTTL)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := a.Balances.Sweep(); n > 0 {
					balances, plans := a.Balances.Entries()
					log.Debug("cache sweep", "evicted", n, "balances_cached", balances, "plans_cached", plans)
				}
			}
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server", "err", err)
	}
}
