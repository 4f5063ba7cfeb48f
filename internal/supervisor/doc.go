// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package supervisor runs AirPulse's long-lived components under suture v4.

# Overview

Services are grouped into three child supervisors so a crash restarts only
its own layer:

	RootSupervisor ("airpulse")
	├── DataSupervisor ("data-layer")
	│   └── NATSServerService (if NATS_ENABLED and NATS_EMBEDDED)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── websocket.Hub
	│   ├── aggregator.Manager
	│   └── eventbus.Publisher (if NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

The hub, manager and publisher implement suture.Service themselves. The
wrappers in the services subpackage adapt components with other
lifecycles.

# Usage

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(hub)
	tree.AddMessagingService(sessions)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
	    return err
	}

# Failure Handling

Each failure increments a counter that decays over FailureDecay seconds.
Once the counter passes FailureThreshold the supervisor waits
FailureBackoff before the next restart. A service returning
suture.ErrDoNotRestart is removed instead of restarted.

Supervisor events are logged through sutureslog.

# Shutdown

Canceling the context stops every layer. Services that miss
ShutdownTimeout are listed by UnstoppedServiceReport and LogUnstopped.
*/
package supervisor
