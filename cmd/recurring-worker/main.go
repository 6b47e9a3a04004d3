package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/baharkarakas/household-ledger/internal/api/httpx"
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
	if cfg.DataBackend == "memory" {
		log.Error("recurring-worker needs a shared database; DATA_BACKEND=memory is not supported")
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

	g, gctx := errgroup.WithContext(ctx)

	if cfg.MetricsPort != "" {
		r := chi.NewRouter()
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := a.Ping(r.Context()); err != nil {
				httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
			httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Handle("/metrics", metrics.Handler())
		srv := &http.Server{
			Addr:              ":" + cfg.MetricsPort,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("metrics server starting", "port", cfg.MetricsPort)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		log.Info("recurring worker started", "interval", cfg.RecurringInterval, "batch_size", cfg.RecurringBatchSize)

		run := func() {
			// drain: keep going while a pass fills its batch
			for {
				res, err := a.Recurring.ProcessDue(gctx, "", cfg.RecurringBatchSize)
				if err != nil {
					log.Error("recurring pass failed", "err", err)
					return
				}
				if res.Processed+res.Errors < cfg.RecurringBatchSize || res.Processed == 0 {
					return
				}
			}
		}

		run()
		ticker := time.NewTicker(cfg.RecurringInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				log.Info("recurring worker stopping")
				return nil
			case <-ticker.C:
				run()
			}
		}
	})

	if err := g.Wait(); err != nil {
		log.Error("recurring worker", "err", err)
	}
}
