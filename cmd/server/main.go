// Dashforge - Indicator Query Pipeline for DHIS2 Dashboards
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/dashforge

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/dashforge/internal/api"
	"github.com/tomtom215/dashforge/internal/cache"
	"github.com/tomtom215/dashforge/internal/config"
	"github.com/tomtom215/dashforge/internal/datastore"
	"github.com/tomtom215/dashforge/internal/executor"
	"github.com/tomtom215/dashforge/internal/logging"
	"github.com/tomtom215/dashforge/internal/models"
	"github.com/tomtom215/dashforge/internal/pipeline"
	"github.com/tomtom215/dashforge/internal/query"
	"github.com/tomtom215/dashforge/internal/scheduler"
	"github.com/tomtom215/dashforge/internal/store"
	"github.com/tomtom215/dashforge/internal/supervisor"
	"github.com/tomtom215/dashforge/internal/supervisor/services"
	"github.com/tomtom215/dashforge/internal/transport"
	ws "github.com/tomtom215/dashforge/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("current_instance", cfg.CurrentInstance.URL).
		Str("datastore", cfg.Datastore.Backend).
		Bool("cache", cfg.Cache.Enabled).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Dashforge")

	var enc *config.CredentialEncryptor
	if cfg.Security.EncryptionKey != "" {
		enc, err = config.NewCredentialEncryptor(cfg.Security.EncryptionKey)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize credential encryptor")
		}
	}

	current, err := transport.NewCurrentInstance(cfg.CurrentInstance, cfg.Transport, enc)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize current instance client")
	}
	pool := transport.NewPool(cfg.Transport, enc)

	payloads := cache.NewCacher(cfg.Cache.Enabled, cfg.Cache.TTL, cfg.Cache.MaxEntries)
	exec := executor.New(current, current, pool, payloads)

	var globals models.GlobalDimensions
	if len(cfg.Globals.Dimensions) > 0 {
		globals = models.GlobalDimensions(cfg.Globals.Dimensions)
	}
	generator := query.NewGenerator(globals)

	visualizations := store.New()
	pipe := pipeline.New(generator, exec, visualizations)
	sched := scheduler.New(pipe, cfg.Scheduler)
	hub := ws.NewHub(visualizations)

	docs, err := datastore.Open(cfg.Datastore, current)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open datastore")
	}

	handler := api.NewHandler(api.Deps{
		Generator: generator,
		Resolver:  pipe,
		Watcher:   sched,
		Store:     visualizations,
		Hub:       hub,
		Datastore: docs,
		Search:    current,
		Current:   current,
		Cache:     payloads,
	}, api.NewChiMiddleware(api.ChiMiddlewareConfigFromServer(cfg.Server)))

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	resources := []services.NamedCloser{{Name: "datastore", Closer: docs}}
	if c, ok := payloads.(*cache.Cache); ok {
		resources = append(resources, services.NamedCloser{Name: "payload-cache", Closer: services.CloserFunc(c.Close)})
	}

	tree := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddDataService(sched)
	tree.AddDataService(services.NewResourceService(resources...))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, server.Addr, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}
	logging.Info().Msg("Dashforge stopped")
}
