// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/mcpserver"
	"github.com/starford/quire/internal/metrics"
	"github.com/starford/quire/internal/models"
	"github.com/starford/quire/internal/render"
	"github.com/starford/quire/internal/server"
	"github.com/starford/quire/internal/site"
	"github.com/starford/quire/internal/sse"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/watch"
)

const shutdownTimeout = 10 * time.Second

func newApplication(opts []Option) (*application, error) {
	app := &application{logOutput: os.Stdout}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	return app, nil
}

// logger installs the structured JSON logger as the process default.
func (a *application) logger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(a.logOutput, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

func (a *application) themes() site.Themes {
	return site.Themes{Dir: a.config.Build.ThemesDir, Default: a.config.Build.DefaultTheme}
}

func (a *application) classifyOptions() site.ClassifyOptions {
	return site.ClassifyOptions{
		HiddenPrefix:    a.config.Vault.HiddenPrefix,
		ExcludeDir:      a.config.Vault.ExcludeDir,
		PreserveUnicode: a.config.Vault.PreserveUnicode,
	}
}

// openVault checks the vault directory and opens its storage. The build
// output is never read back as vault content.
func (a *application) openVault(dev bool) (*storage.FS, error) {
	cfg := a.config.Vault
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: no vault path given", apperr.ErrVaultNotFound)
	}
	info, err := os.Stat(cfg.Path)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", apperr.ErrVaultNotFound, cfg.Path)
	}
	root, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve vault: %w", err)
	}
	return storage.NewFS(root, storage.Options{
		ExcludeDir: cfg.ExcludeDir,
		IgnoreFile: cfg.IgnoreFile,
		SkipDirs:   []string{a.config.OutputDir(filepath.Base(root), dev)},
	})
}

// newBuilder wires storage, renderer and themes into a site builder.
func (a *application) newBuilder(store *storage.FS, dev bool, logger *slog.Logger) (*site.Builder, error) {
	renderer, err := render.New(a.config.Render.Extensions)
	if err != nil {
		return nil, fmt.Errorf("init renderer: %w", err)
	}

	cfg := a.config.Build
	opts := site.BuildOptions{
		OutputDir:       a.config.OutputDir(store.Name(), dev),
		Theme:           cfg.Theme,
		HiddenPrefix:    a.config.Vault.HiddenPrefix,
		ExcludeDir:      a.config.Vault.ExcludeDir,
		PreserveUnicode: a.config.Vault.PreserveUnicode,
		Concurrency:     cfg.Concurrency,
	}
	if dev && cfg.LiveReload {
		opts.LiveReload = server.EventsPath
	}
	return site.NewBuilder(store, renderer, a.themes(), opts, logger), nil
}

// Build runs a single build pass.
func Build(ctx context.Context, opts ...Option) (*models.Snapshot, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	logger := app.logger()

	store, err := app.openVault(false)
	if err != nil {
		return nil, err
	}
	builder, err := app.newBuilder(store, false, logger)
	if err != nil {
		return nil, err
	}
	return builder.Build(ctx)
}

// Themes lists the available theme names.
func Themes(opts ...Option) ([]string, error) {
	app, err := newApplication(opts)
	if err != nil {
		return nil, err
	}
	return app.themes().List()
}

// ServeMCP exposes the vault tools over MCP on stdio. Logs go to the
// configured log output, which must not be stdout.
func ServeMCP(_ context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	logger := app.logger()

	store, err := app.openVault(false)
	if err != nil {
		return err
	}
	builder, err := app.newBuilder(store, false, logger)
	if err != nil {
		return err
	}

	logger.Info("mcp: serving on stdio", slog.String("vault", store.Root()))
	return mcpserver.New(store, builder, app.classifyOptions()).ServeStdio()
}

// Serve builds the site, serves it over HTTP and rebuilds it whenever the
// vault, the themes or the config file change. It returns when ctx is
// cancelled or SIGINT/SIGTERM is received.
func Serve(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	store, err := app.openVault(true)
	if err != nil {
		return err
	}

	available, err := app.themes().List()
	if err != nil {
		return err
	}
	if !slices.Contains(available, cfg.Build.Theme) {
		return fmt.Errorf("%w: %q (available: %s)", apperr.ErrThemeNotFound, cfg.Build.Theme, strings.Join(available, ", "))
	}

	builder, err := app.newBuilder(store, true, logger)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.App.HTTP.Address())
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return fmt.Errorf("%w: %s, try --port %d", apperr.ErrAddressInUse, cfg.App.HTTP.Address(), cfg.App.HTTP.Port+1)
		}
		return fmt.Errorf("listen: %w", err)
	}

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	snap, err := builder.Build(ctx)
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("initial build: %w", err)
	}
	recorder.RebuildFinished(snap.Duration, nil)
	recorder.SetSite(len(snap.Pages), snap.Assets)

	broker := sse.NewBroker()
	defer broker.Close()

	srvOpts := server.Options{Metrics: metrics.HTTPHandler(reg), Logger: logger}
	if cfg.Build.LiveReload {
		srvOpts.Events = broker
	}
	httpServer := &http.Server{
		Handler:           server.New(snap.OutputDir, srvOpts),
		ReadHeaderTimeout: 10 * time.Second,
	}

	watcher, err := watch.NewWatcher(app.watchFilter(store.Root()), logger)
	if err != nil {
		_ = ln.Close()
		return err
	}

	rebuild := func(ctx context.Context) error {
		snap, err := builder.Build(ctx)
		if err != nil {
			return err
		}
		recorder.SetSite(len(snap.Pages), snap.Assets)
		return nil
	}
	scheduler := watch.NewScheduler(rebuild, watch.SchedulerOptions{
		QuietPeriod: cfg.Watch.QuietPeriod,
		Throttle:    cfg.Watch.Throttle,
	}, watch.Observers(recorder, broker), logger)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gCtx := errgroup.WithContext(ctx)

	events := make(chan watch.ChangeEvent, cfg.Watch.Buffer)
	g.Go(func() error {
		return watcher.Run(gCtx, events)
	})
	g.Go(func() error {
		return scheduler.Run(gCtx, events)
	})

	g.Go(func() error {
		logger.Info("serve: listening",
			slog.String("url", "http://"+cfg.App.HTTP.Address()+"/"),
			slog.String("output", snap.OutputDir))
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("serve: received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
		}

		// Event streams never go idle on their own.
		broker.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("serve: shutdown error", slog.String("error", err.Error()))
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("serve: stopped with error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("serve: stopped")
	return nil
}

// watchFilter watches the vault, the themes directory and the config file.
func (a *application) watchFilter(vaultRoot string) watch.Filter {
	f := watch.Filter{VaultRoot: vaultRoot}
	if dir, err := filepath.Abs(a.config.Build.ThemesDir); err == nil {
		f.ThemesDir = dir
	}
	if a.configFile != "" {
		if p, err := filepath.Abs(a.configFile); err == nil {
			f.ToolDir = filepath.Dir(p)
			f.ToolFiles = []string{filepath.Base(p)}
		}
	}
	return f
}
