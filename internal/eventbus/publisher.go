// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package eventbus

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/metrics"
	"github.com/tomtom215/airpulse/internal/models"
)

// ReadingSink receives accepted readings. Publish must not block.
type ReadingSink interface {
	Publish(groupID string, state models.LiveDeviceState)
}

type reading struct {
	groupID string
	state   models.LiveDeviceState
}

// Publisher queues readings and publishes them to NATS.
type Publisher struct {
	publisher message.Publisher
	prefix    string
	queue     chan reading

	mu     sync.RWMutex
	closed bool
}

// NewPublisher connects a Watermill NATS publisher to url.
func NewPublisher(cfg *config.NATSConfig, url string, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewSlogLogger(logging.NewSlogLoggerForComponent("eventbus"))
	}

	natsOpts := []natsgo.Option{
		natsgo.Name("airpulse"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return newPublisher(pub, cfg.SubjectPrefix, cfg.BufferSize), nil
}

func newPublisher(pub message.Publisher, prefix string, bufferSize int) *Publisher {
	if bufferSize < 1 {
		bufferSize = 1
	}
	return &Publisher{
		publisher: pub,
		prefix:    prefix,
		queue:     make(chan reading, bufferSize),
	}
}

// Publish queues a reading. It never blocks: a full queue drops the reading.
func (p *Publisher) Publish(groupID string, state models.LiveDeviceState) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.RecordNATSDrop("closed")
		return
	}
	select {
	case p.queue <- reading{groupID: groupID, state: state}:
	default:
		metrics.RecordNATSDrop("queue_full")
	}
}

// Serve publishes queued readings until ctx is canceled.
func (p *Publisher) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-p.queue:
			if err := p.send(r); err != nil {
				metrics.RecordNATSDrop("publish_error")
				logging.Debug().Err(err).Str("device_id", r.state.DeviceID).Msg("failed to publish reading")
			}
		}
	}
}

// String implements fmt.Stringer for the supervisor.
func (p *Publisher) String() string {
	return "reading-publisher"
}

func (p *Publisher) send(r reading) error {
	payload, err := json.Marshal(r.state)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("group_id", r.groupID)
	msg.Metadata.Set("device_id", r.state.DeviceID)

	if err := p.publisher.Publish(Subject(p.prefix, r.groupID, r.state.DeviceID), msg); err != nil {
		return err
	}
	metrics.RecordNATSPublish()
	return nil
}

// Close stops accepting readings and closes the NATS publisher. Readings
// still queued are discarded.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// Subject builds <prefix>.<group>.<device>, replacing characters that have
// meaning in NATS subjects.
func Subject(prefix, groupID, deviceID string) string {
	return prefix + "." + subjectToken(groupID) + "." + subjectToken(deviceID)
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_", "\t", "_")

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return subjectReplacer.Replace(s)
}
