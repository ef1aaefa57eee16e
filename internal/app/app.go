// Package app assembles the reconciliation engine and its collaborators from
// configuration. Both the server and the CLI build through here.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/prometheus/client_golang/prometheus"

	enrichmentClient "civicledger/internal/enrichment/client"
	enrichmentMetrics "civicledger/internal/enrichment/metrics"
	enrichmentService "civicledger/internal/enrichment/service"
	"civicledger/internal/enrichment/sink"
	enrichmentStore "civicledger/internal/enrichment/store"
	"civicledger/internal/identity"
	"civicledger/internal/ledger/eth"
	"civicledger/internal/ledger/memory"
	"civicledger/internal/platform/config"
	"civicledger/internal/platform/postgres"
	platformRedis "civicledger/internal/platform/redis"
	"civicledger/internal/requests/adapters"
	requestsMetrics "civicledger/internal/requests/metrics"
	"civicledger/internal/requests/service"
	"civicledger/internal/requests/view"
	"civicledger/pkg/platform/audit"
	"civicledger/pkg/platform/audit/publisher"
	kafkaStore "civicledger/pkg/platform/audit/store/kafka"
	auditPostgres "civicledger/pkg/platform/audit/store/postgres"
	auditMemory "civicledger/pkg/platform/audit/store/memory"
)

// App holds the assembled engine. Close releases every connection it opened.
type App struct {
	Config     *config.Config
	Logger     *slog.Logger
	Registry   *prometheus.Registry
	Engine     *service.Service
	Enrichment *enrichmentService.Service
	Audit      *publisher.Publisher

	// health checks contributed by optional backends
	checks  map[string]func(context.Context) error
	closers []func()
}

// Build wires every backend selected in cfg. On error, anything already
// opened is closed before returning.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
		checks:   map[string]func(context.Context) error{},
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	ledgerClient, ident, err := a.buildLedger(ctx)
	if err != nil {
		return nil, err
	}
	a.Enrichment, err = a.buildEnrichmentService(ctx)
	if err != nil {
		return nil, err
	}
	enrichment, err := a.buildEnrichmentPort()
	if err != nil {
		return nil, err
	}
	views, err := a.buildViews(ctx)
	if err != nil {
		return nil, err
	}
	a.Audit, err = a.buildAudit(ctx)
	if err != nil {
		return nil, err
	}

	a.Engine = service.New(ledgerClient, enrichment, ident, views,
		service.WithLogger(logger),
		service.WithMetrics(requestsMetrics.New(a.Registry)),
		service.WithAuditPublisher(a.Audit),
		service.WithFetchConcurrency(cfg.Sync.Concurrency),
	)
	return a, nil
}

func (a *App) buildLedger(ctx context.Context) (service.LedgerClient, identity.Provider, error) {
	lc := a.Config.Ledger
	switch lc.Backend {
	case "eth":
		client, err := ethclient.DialContext(ctx, lc.RPCURL)
		if err != nil {
			return nil, nil, fmt.Errorf("dial ledger node: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		ident, err := identity.NewEthProvider(client, lc.PrivateKey, lc.ExpectedChainID, identity.WithLogger(a.Logger))
		if err != nil {
			return nil, nil, err
		}
		l, err := eth.New(client, lc.ContractAddress, ident.PrivateKey(), lc.ExpectedChainID, eth.WithLogger(a.Logger))
		if err != nil {
			return nil, nil, err
		}
		a.Logger.InfoContext(ctx, "ledger backend ready", "backend", "eth", "contract", lc.ContractAddress, "wallet", ident.Address())
		return l, ident, nil
	default:
		wallet := firstNonEmpty(lc.WalletAddress, lc.AdminAddress, memory.DefaultAdmin)
		chain := memory.NewChain(firstNonEmpty(lc.AdminAddress, wallet))
		ident := identity.NewStatic(identity.Snapshot{
			Address:         wallet,
			Connected:       true,
			ChainID:         lc.ExpectedChainID,
			ExpectedChainID: lc.ExpectedChainID,
		})
		a.Logger.InfoContext(ctx, "ledger backend ready", "backend", "memory", "wallet", wallet)
		return chain.ClientFor(wallet), ident, nil
	}
}

func (a *App) buildEnrichmentService(ctx context.Context) (*enrichmentService.Service, error) {
	ec := a.Config.Enrichment
	docs, err := sink.NewLocalDir(ec.UploadDir)
	if err != nil {
		return nil, err
	}
	var store enrichmentService.Store
	switch ec.Store {
	case "postgres":
		db, err := postgres.Open(ctx, ec.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.checks["postgres"] = db.PingContext
		pg := enrichmentStore.NewPostgres(db)
		if err := pg.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("enrichment schema: %w", err)
		}
		store = pg
	default:
		store = enrichmentStore.NewInMemoryStore()
	}
	return enrichmentService.New(store, docs,
		enrichmentService.WithLogger(a.Logger),
		enrichmentService.WithMetrics(enrichmentMetrics.New(a.Registry)),
	), nil
}

func (a *App) buildEnrichmentPort() (service.EnrichmentStore, error) {
	if a.Config.Enrichment.Client == "http" {
		return enrichmentClient.New(a.Config.Enrichment.BaseURL)
	}
	return adapters.NewEnrichmentAdapter(a.Enrichment), nil
}

func (a *App) buildViews(ctx context.Context) (service.ViewStore, error) {
	vc := a.Config.View
	if vc.Backend != "redis" {
		return view.NewInMemoryStore(), nil
	}
	client, err := platformRedis.New(ctx, vc.Redis)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() { _ = client.Close() })
	a.checks["redis"] = client.Health
	return view.NewRedisStore(client.Client, view.WithKey(vc.Key)), nil
}

func (a *App) buildAudit(ctx context.Context) (*publisher.Publisher, error) {
	ac := a.Config.Audit
	var store audit.Store
	switch ac.Backend {
	case "kafka":
		ks, err := kafkaStore.New(ctx, ac.KafkaBrokers, ac.Topic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, ks.Close)
		store = ks
	case "postgres":
		db, err := postgres.Open(ctx, ac.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.checks["audit_postgres"] = db.PingContext
		ps := auditPostgres.New(db)
		if err := ps.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		store = ps
	default:
		store = auditMemory.NewInMemoryStore()
	}
	p := publisher.NewPublisher(store,
		publisher.WithAsyncBuffer(ac.BufferSize),
		publisher.WithLogger(a.Logger),
	)
	// the publisher drains before the store underneath it closes
	a.closers = append(a.closers, p.Close)
	return p, nil
}

// Health runs every backend check and joins the failures.
func (a *App) Health(ctx context.Context) error {
	var errs []error
	for name, check := range a.checks {
		if err := check(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}
