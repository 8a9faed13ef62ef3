// Package internal provides the main application initialization and runtime
// logic.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/starford/sowilo/internal/namespace"
	"github.com/starford/sowilo/internal/publisher"
	"github.com/starford/sowilo/internal/site"
	"github.com/starford/sowilo/internal/siteindex"
	"github.com/starford/sowilo/internal/watch"
)

// App is the wired application: resolver, builder, and publisher sharing
// one configuration.
type App struct {
	Config   *Config
	Log      *slog.Logger
	Resolver *namespace.Resolver
	Service  *publisher.Service

	idx *siteindex.DB
}

// Bootstrap wires the application from cfg. Close must be called when the
// App is no longer needed.
func Bootstrap(cfg *Config) (*App, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(cfg.Data.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	resolver := namespace.NewResolver(cfg.Data.Mode, cfg.Data.Dir, cfg.Data.OutDir)

	var idx *siteindex.DB
	if resolver.Multi() {
		db, err := siteindex.Open(cfg.SiteIndex.Path)
		if err != nil {
			return nil, fmt.Errorf("open site index: %w", err)
		}
		idx = db
	}

	builder := site.NewBuilder(logger, idx, cfg.Data.OutDir)
	svc := publisher.NewService(logger, resolver, builder)

	return &App{
		Config:   cfg,
		Log:      logger,
		Resolver: resolver,
		Service:  svc,
		idx:      idx,
	}, nil
}

// Close releases the rendered-note index, if open.
func (a *App) Close() error {
	if a.idx != nil {
		return a.idx.Close()
	}
	return nil
}

// Tenants lists the tenants that have data on disk. Single mode always has
// exactly one anonymous tenant.
func (a *App) Tenants() ([]string, error) {
	if !a.Resolver.Multi() {
		return []string{""}, nil
	}
	entries, err := os.ReadDir(filepath.Join(a.Config.Data.Dir, "users"))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	var tenants []string
	for _, e := range entries {
		if e.IsDir() {
			tenants = append(tenants, e.Name())
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

// Run starts the application with the given options: it rebuilds every
// tenant's site from stored notes, then watches the raw note directories
// and rebuilds on change until a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	a, err := Bootstrap(app.config)
	if err != nil {
		return err
	}
	defer a.Close()

	logger := a.Log
	cfg := a.Config
	logger.Info("Configuration loaded",
		slog.String("data_dir", cfg.Data.Dir),
		slog.String("out_dir", cfg.Data.OutDir),
		slog.String("mode", cfg.Data.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	tenants, err := a.Tenants()
	if err != nil {
		return err
	}
	if app.tenant != "" {
		tenants = []string{app.tenant}
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	for _, tenant := range tenants {
		tenant := tenant
		ns, err := a.Resolver.Resolve(tenant)
		if err != nil {
			return err
		}
		if err := namespace.Ensure(ns); err != nil {
			return err
		}
		if _, err := a.Service.BuildStored(gCtx, tenant); err != nil {
			logger.Warn("initial build failed",
				slog.String("tenant", tenant), slog.Any("error", err))
		}
		g.Go(func() error {
			return watch.Watch(gCtx, a.Service, tenant, ns.RawDir, logger, app.onRebuild)
		})
	}

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
			stop()
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.Any("error", err))
		return err
	}

	logger.Info("Stopped successfully")
	return nil
}
