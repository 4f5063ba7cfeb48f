// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/eventbus"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/supervisor"
	"github.com/tomtom215/airpulse/internal/supervisor/services"
)

// NATSComponents holds the optional reading fan-out.
type NATSComponents struct {
	server    *eventbus.EmbeddedServer
	publisher *eventbus.Publisher
}

// InitNATS starts the embedded server (when configured) and connects the
// reading publisher. It returns nil when NATS_ENABLED=false.
func InitNATS(cfg *config.Config) (*NATSComponents, error) {
	if !cfg.NATS.Enabled {
		logging.Info().Msg("NATS disabled (NATS_ENABLED=false)")
		return nil, nil
	}

	c := &NATSComponents{}
	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		srv, err := eventbus.NewEmbeddedServerFromURL(cfg.NATS.URL, cfg.NATS.StoreDir)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", cfg.NATS.StoreDir).Msg("Embedded NATS server started")
	}

	logger := watermill.NewSlogLogger(logging.NewSlogLoggerForComponent("eventbus"))
	pub, err := eventbus.NewPublisher(&cfg.NATS, url, logger)
	if err != nil {
		c.Shutdown(context.Background())
		return nil, fmt.Errorf("connect reading publisher: %w", err)
	}
	c.publisher = pub
	logging.Info().Str("subject_prefix", cfg.NATS.SubjectPrefix).Msg("Reading publisher connected")
	return c, nil
}

// Sink returns the publisher as a reading sink, or nil when NATS is
// disabled. The nil check keeps a typed nil out of the interface.
func (c *NATSComponents) Sink() eventbus.ReadingSink {
	if c == nil || c.publisher == nil {
		return nil
	}
	return c.publisher
}

// AddToSupervisor registers the embedded server in the data layer and the
// publisher in the messaging layer. It is a no-op for nil components.
func (c *NATSComponents) AddToSupervisor(tree *supervisor.SupervisorTree, shutdownTimeout time.Duration) {
	if c == nil {
		return
	}
	if c.server != nil {
		tree.AddDataService(services.NewNATSServerService(c.server, shutdownTimeout))
	}
	if c.publisher != nil {
		tree.AddMessagingService(c.publisher)
	}
	logging.Info().Bool("embedded", c.server != nil).Msg("NATS components added to supervisor tree")
}

// Shutdown closes the publisher and stops the embedded server.
func (c *NATSComponents) Shutdown(ctx context.Context) {
	if c == nil {
		return
	}
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Warn().Err(err).Msg("Error closing reading publisher")
		}
	}
	if c.server != nil && c.server.IsRunning() {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Warn().Err(err).Msg("Error stopping embedded NATS server")
		}
	}
}
