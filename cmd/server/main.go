// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/airpulse/internal/aggregator"
	"github.com/tomtom215/airpulse/internal/api"
	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/devicestore"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/stream"
	"github.com/tomtom215/airpulse/internal/supervisor"
	"github.com/tomtom215/airpulse/internal/supervisor/services"
	"github.com/tomtom215/airpulse/internal/upstream"
	ws "github.com/tomtom215/airpulse/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("version", version).
		Str("upstream_mode", cfg.Upstream.Mode).
		Str("device_store", cfg.DeviceStore.Backend).
		Bool("nats_enabled", cfg.NATS.Enabled).
		Msg("Starting AirPulse with supervisor tree")

	if cfg.HasWildcardCORS() && cfg.IsProduction() {
		logging.Warn().Msg("CORS_ORIGINS=* in production: any website can open dashboard sessions")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	tokens := upstream.NewTokenSource(cfg.Upstream.Token)
	client := upstream.NewClient(cfg, tokens)
	defer upstream.Close(client)

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := client.Ping(pingCtx); err != nil {
		logging.Warn().Err(err).Msg("Upstream not reachable at startup (will retry per request)")
	} else {
		logging.Info().Msg("Upstream reachable")
	}
	pingCancel()

	var streamer stream.Streamer
	if cfg.Upstream.IsMock() {
		streamer = stream.NewMockStreamer(cfg.Stream.MockInterval)
		logging.Info().Dur("interval", cfg.Stream.MockInterval).Msg("Using mock device streams")
	} else {
		streamer = stream.NewWebSocketStreamer(&cfg.Stream, tokens)
		logging.Info().Str("base_url", cfg.Stream.BaseURL).Msg("Using WebSocket device streams")
	}

	store, err := devicestore.New(&cfg.DeviceStore)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open device store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing device store")
		}
	}()

	natsComponents, err := InitNATS(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		natsComponents.Shutdown(shutdownCtx)
	}()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	wsHub := ws.NewHub()

	sessions := aggregator.NewManager(
		aggregator.ManagerConfig{
			MaxSessions:  cfg.Aggregator.MaxSessions,
			IdleTimeout:  cfg.Aggregator.SessionIdleTimeout,
			ReapInterval: cfg.Aggregator.SessionReapInterval,
		},
		aggregator.NewConfig(cfg),
		aggregator.Deps{
			Upstream: client,
			Streamer: streamer,
			Store:    store,
			Notifier: wsHub,
			Sink:     natsComponents.Sink(),
		},
	)

	handler := api.NewHandler(sessions, client, wsHub, cfg)
	handler.SetVersion(version)
	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(cfg.Security))

	server := &http.Server{
		Addr:              cfg.Server.Address(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	natsComponents.AddToSupervisor(tree, cfg.Server.ShutdownTimeout)
	tree.AddMessagingService(wsHub)
	tree.AddMessagingService(sessions)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// errCh yields exactly once and is never closed.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		treeErr = <-errCh
	case treeErr = <-errCh:
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	tree.LogUnstopped()
	logging.Info().Msg("AirPulse stopped")
}
