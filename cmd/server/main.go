package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/codetransmute/internal/api"
	"github.com/dgallion1/codetransmute/internal/blocks"
	"github.com/dgallion1/codetransmute/internal/config"
	"github.com/dgallion1/codetransmute/internal/metrics"
	"github.com/dgallion1/codetransmute/internal/pipeline"
	"github.com/dgallion1/codetransmute/internal/session"
	"github.com/dgallion1/codetransmute/internal/workspace"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	catalog, err := blocks.LoadCatalog()
	if err != nil {
		log.Error("load block catalog", "error", err)
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(catalog.LocaleNames()); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize workspace.
	wsCfg := workspace.Config{
		Include:      cfg.IncludePatterns,
		Exclude:      cfg.ExcludePatterns,
		MaxFileBytes: cfg.MaxFileBytes,
	}
	var ws *workspace.Workspace
	if cfg.WorkspaceRoot == "" {
		ws, err = workspace.Demo(wsCfg)
		log.Info("no WORKSPACE_ROOT set, serving demo project")
	} else {
		ws, err = workspace.Open(cfg.WorkspaceRoot, wsCfg)
	}
	if err != nil {
		log.Error("open workspace", "error", err)
		os.Exit(1)
	}

	cache, err := workspace.NewTreeCache(cfg.TreeCacheSize)
	if err != nil {
		log.Error("create tree cache", "error", err)
		os.Exit(1)
	}

	projections := metrics.NewProjectionStats(metrics.DefaultProjectionWindow)
	renderer := session.NewRenderer(projections)
	hub := session.NewHub(ws, cache, catalog, renderer, cfg.SessionTTL, log)
	go hub.Run(ctx, time.Minute)

	// Push disk changes to the sessions viewing them.
	var watcher *workspace.Watcher
	if cfg.Watch && ws.Root() != "" {
		watcher, err = workspace.NewWatcher(ws, log)
		if err != nil {
			log.Error("create watcher", "error", err)
			os.Exit(1)
		}
		changes, err := watcher.Start(ctx)
		if err != nil {
			log.Error("start watcher", "error", err)
			os.Exit(1)
		}
		go func() {
			for c := range changes {
				n := hub.Refresh(c.Path)
				log.Info("file changed", "path", c.Path, "op", c.Op, "sessions", n)
			}
		}()
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, ws, cache, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(api.Deps{
		Orchestrator: orch,
		Hub:          hub,
		Renderer:     renderer,
		Workspace:    ws,
		Cache:        cache,
		Catalog:      catalog,
		Projections:  projections,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()
		if watcher != nil {
			watcher.Close()
		}
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	log.Info("starting codetransmute", "port", cfg.Port, "workspace", ws.Name(), "level", cfg.DefaultLevel, "locale", cfg.DefaultLocale)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
