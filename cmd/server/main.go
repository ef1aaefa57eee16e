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

	"civicledger/internal/app"
	"civicledger/internal/platform/config"
	"civicledger/internal/platform/httpserver"
	"civicledger/internal/platform/logger"
	"civicledger/internal/requests/worker"
)

const shutdownTimeout = 10 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	if err := config.LoadEnv(".env", ".env.local"); err != nil {
		os.Stderr.WriteString("load env files: " + err.Error() + "\n")
		os.Exit(1)
	}
	cfg, err := config.FromEnv()
	if err != nil {
		os.Stderr.WriteString("invalid configuration: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Error("failed to build application", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	if cfg.Role.AutoRegisterDepartment {
		registered, err := a.Engine.EnsureDepartment(ctx)
		if err != nil {
			log.Warn("automatic department registration failed", "error", err)
		} else if registered {
			log.Info("wallet registered as department")
		}
	}
	if cfg.Sync.OnStartup {
		if res, err := a.Engine.Refresh(ctx); err != nil {
			log.Warn("initial sync failed", "error", err)
		} else {
			log.Info("initial sync complete", "skipped", res.Skipped, "fetched", res.Fetched)
		}
	}

	srv := httpserver.New(cfg.Server, a.Router())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting civicledger", "addr", cfg.Server.Addr, "ledger", cfg.Ledger.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := worker.NewWorker(a.Engine, cfg.Sync.Interval, log).Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("server stopped")
}
