// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

/*
Package stream provides the per-device telemetry transport.

Each selected device gets its own stream addressed by a topic derived from
the group's topic template, with the single '+' wildcard replaced by the
device ID:

	prod/gur/+/sen  ->  prod/gur/SG98/sen

Two Streamer implementations exist:

  - WebSocketStreamer dials <stream.base_url>/<topic> with gorilla/websocket.
    Dials are rate limited with a token bucket, the read deadline is pushed
    forward by pongs, and a ping loop keeps idle connections open.
  - MockStreamer generates random-walk frames locally for demo deployments.

Frames are JSON documents of the form:

	{"data":[{"value":{"sPM2":12.5,"sPM10":20,"temp":31.2,"rh":48,"lat":28.4,"lon":77.0},"srvtime":1760000000000}]}

ParseFrame converts one frame into a models.LiveDeviceState. Numbers may be
JSON numbers or numeric strings, and longitude may be named lon or long.
A frame without a numeric sPM2 or srvtime is rejected with ErrMalformedFrame.
*/
package stream
