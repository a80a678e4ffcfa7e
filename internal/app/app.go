// Package app wires the import service components from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/crmimport/internal/auth"
	"github.com/JonMunkholm/crmimport/internal/campaign"
	"github.com/JonMunkholm/crmimport/internal/catalog"
	_ "github.com/JonMunkholm/crmimport/internal/catalog/objects" // Register company and lead fields
	"github.com/JonMunkholm/crmimport/internal/config"
	"github.com/JonMunkholm/crmimport/internal/core"
	"github.com/JonMunkholm/crmimport/internal/dashboard"
	"github.com/JonMunkholm/crmimport/internal/importer"
	"github.com/JonMunkholm/crmimport/internal/store"
	"github.com/JonMunkholm/crmimport/internal/web"
)

// App holds the wired components. Close releases the database pool.
type App struct {
	Config   *config.Config
	Store    *store.Store
	Catalog  *catalog.Catalog
	Imports  *core.Service
	Monitor  *campaign.Monitor
	Summary  *dashboard.ImportSummary
	Verifier *auth.Verifier
}

// New migrates the database when configured, connects to it and builds the
// import pipeline on top.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	if cfg.Database.Migrate {
		if err := store.Migrate(cfg.Database.URL); err != nil {
			return nil, err
		}
	}

	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	cat := catalog.New()
	if cfg.Catalog.FieldsFile != "" {
		if err := cat.LoadFile(cfg.Catalog.FieldsFile); err != nil {
			st.Close()
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	logger := slog.Default()
	o, err := importer.New(importer.DefaultHandlers(importer.Deps{
		Permissions: auth.Gate{},
		Catalog:     cat,
		Owners:      st,
		Lists:       st,
		Tags:        st,
		Companies:   st.Companies(cat),
		Contacts:    st.Contacts(cat),
	}), importer.WithLogger(logger))
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("build import pipeline: %w", err)
	}

	return &App{
		Config:   cfg,
		Store:    st,
		Catalog:  cat,
		Imports:  core.NewService(o, st, cfg.Import),
		Monitor:  campaign.NewMonitor(st, campaign.NewStoreNotifier(st), cfg.Campaign.DisableThreshold, logger),
		Summary:  dashboard.NewImportSummary(dashboard.NewFactory(cfg.Dashboard.CacheSize, cfg.Dashboard.CacheTTL), st),
		Verifier: auth.NewVerifier(cfg.Security.JWTSecret, cfg.Security.JWTIssuer),
	}, nil
}

// WebDeps returns the dependencies of the HTTP server.
func (a *App) WebDeps() web.Deps {
	return web.Deps{
		Imports:   a.Imports,
		History:   a.Store,
		Campaigns: a.Monitor,
		Summary:   a.Summary,
		Verifier:  a.Verifier,
		Health:    a.Store,
	}
}

// Close releases the database pool.
func (a *App) Close() {
	a.Store.Close()
}
