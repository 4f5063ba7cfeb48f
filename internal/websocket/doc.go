// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package websocket pushes aggregator events to dashboard clients.

It uses gorilla/websocket with a hub-client architecture. Every client is
attached to one aggregator session, and the hub routes each message only
to the clients of the session that produced it.

Key Components:

  - Hub: owns the client set, routes messages per session, implements the
    aggregator's Notifier and session observer contracts
  - Client: one websocket connection with read and write goroutines
  - Message: typed push envelope

Message Types:

  - device_update: a device's latest reading changed
  - focus: the focused device changed
  - aggregate: the group PM2.5 mean changed
  - status: the session status changed
  - ping / pong: application keepalive initiated by the dashboard

Usage Example:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	client := websocket.NewClient(hub, conn, sessionID)
	hub.Register <- client
	client.Start()

	hub.Notify(sessionID, websocket.MessageTypeFocus, focusState)

Thread Safety:

Notify, SessionClientCount, CloseSession and GetClientCount are safe for
concurrent use. Notify never blocks; when the hub queue is full the message
is dropped and counted. Clients that cannot keep up are disconnected.
*/
package websocket
