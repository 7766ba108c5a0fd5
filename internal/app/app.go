// Package app wires the configured store into the rental services shared by
// every binary.
package app

import (
	"context"
	"log/slog"

	"github.com/segyhp/movie-rental/internal/config"
	"github.com/segyhp/movie-rental/internal/service"
	"github.com/segyhp/movie-rental/internal/storage"
)

type App struct {
	Config   *config.Config
	Log      *slog.Logger
	Storage  *storage.Storage
	Policies service.PolicyProvider
	Ledger   *service.Ledger
	Catalog  *service.CatalogService
	Reports  *service.ReportService
}

// New opens the store and builds the services on top of it.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a, err := Build(cfg, store, log)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// Build wires the services over an already opened store.
func Build(cfg *config.Config, store *storage.Storage, log *slog.Logger) (*App, error) {
	policies, err := service.NewPolicyProvider(cfg.Business.LateFeePolicy, cfg.GetLateFeeAmount(), store.LateFees)
	if err != nil {
		return nil, err
	}

	ledger := service.NewLedger(store.Movies, store.Users, store.Rentals, store.Tx,
		policies, cfg.GetLoanPeriod(), log)
	catalog := service.NewCatalogService(store.Movies, store.Users, store.Rentals, store.LateFees, store.Tx)
	reports := service.NewReportService(store.Movies, store.Users, store.Rentals, policies,
		store.Cache, cfg.GetCacheTTL(), cfg.Business.RecentRentalsLimit, log)
	reports.Attach(ledger)
	reports.AttachCatalog(catalog)

	return &App{
		Config:   cfg,
		Log:      log,
		Storage:  store,
		Policies: policies,
		Ledger:   ledger,
		Catalog:  catalog,
		Reports:  reports,
	}, nil
}

func (a *App) Close() error {
	return a.Storage.Close()
}
