// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/stream"
	"github.com/tomtom215/airpulse/internal/upstream"
)

// fakeConn is a stream connection fed by the test.
type fakeConn struct {
	msgs   chan []byte
	closed chan struct{}
	once   sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{msgs: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case <-c.closed:
		return nil, stream.ErrClosed
	case m := <-c.msgs:
		return m, nil
	}
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *fakeConn) send(raw string) {
	c.msgs <- []byte(raw)
}

// fakeStreamer hands out fakeConns and counts opens per device.
type fakeStreamer struct {
	mu      sync.Mutex
	conns   map[string][]*fakeConn
	topics  map[string]string
	failFor map[string]error
}

func newFakeStreamer() *fakeStreamer {
	return &fakeStreamer{
		conns:   make(map[string][]*fakeConn),
		topics:  make(map[string]string),
		failFor: make(map[string]error),
	}
}

func (s *fakeStreamer) Open(_ context.Context, deviceID, topic string) (stream.Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics[deviceID] = topic
	if err := s.failFor[deviceID]; err != nil {
		return nil, err
	}
	c := newFakeConn()
	s.conns[deviceID] = append(s.conns[deviceID], c)
	return c, nil
}

func (s *fakeStreamer) opens(deviceID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns[deviceID])
}

func (s *fakeStreamer) topic(deviceID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.topics[deviceID]
}

// conn waits for the n-th (1-based) connection of deviceID.
func (s *fakeStreamer) conn(t *testing.T, deviceID string, n int) *fakeConn {
	t.Helper()
	var c *fakeConn
	eventually(t, fmt.Sprintf("connection %d of %s", n, deviceID), func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(s.conns[deviceID]) < n {
			return false
		}
		c = s.conns[deviceID][n-1]
		return true
	})
	return c
}

// fakeClient serves groups, positions and history from memory.
type fakeClient struct {
	mu        sync.Mutex
	groups    map[string]*models.DeviceGroup
	positions map[string]models.Position
	history   []string

	// gated blocks ResolveGroup for one group until release is closed.
	gated   string
	started chan struct{}
	release chan struct{}
}

func (c *fakeClient) gate(groupID string) {
	c.gated = groupID
	c.started = make(chan struct{})
	c.release = make(chan struct{})
}

func newFakeClient(groups ...*models.DeviceGroup) *fakeClient {
	c := &fakeClient{
		groups:    make(map[string]*models.DeviceGroup),
		positions: make(map[string]models.Position),
	}
	for _, g := range groups {
		c.groups[g.ID] = g
	}
	return c
}

func (c *fakeClient) ResolveGroup(_ context.Context, groupID string) (*models.DeviceGroup, error) {
	if c.gated != "" && groupID == c.gated {
		close(c.started)
		<-c.release
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", groupID, upstream.ErrNotFound)
	}
	return cloneGroup(g), nil
}

func (c *fakeClient) ListGroups(context.Context) ([]models.GroupSummary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.GroupSummary, 0, len(c.groups))
	for _, g := range c.groups {
		out = append(out, models.GroupSummary{ID: g.ID, Name: g.Name, DeviceCount: len(g.DeviceIDs)})
	}
	return out, nil
}

func (c *fakeClient) DeviceLocation(_ context.Context, deviceID string) (*models.Position, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.positions[deviceID]
	if !ok {
		return nil, upstream.ErrNotFound
	}
	return &p, nil
}

func (c *fakeClient) History(_ context.Context, deviceID string, window models.HistoryWindow) (*models.HistorySeries, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, deviceID)
	return &models.HistorySeries{DeviceID: deviceID, Window: window}, nil
}

func (c *fakeClient) Ping(context.Context) error { return nil }

type notification struct {
	sessionID string
	eventType string
	data      interface{}
}

// recordingNotifier records notifications and tracks push clients.
type recordingNotifier struct {
	mu      sync.Mutex
	events  []notification
	clients map[string]int
	closed  []string
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{clients: make(map[string]int)}
}

func (n *recordingNotifier) Notify(sessionID, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, notification{sessionID, eventType, data})
}

func (n *recordingNotifier) SessionClientCount(sessionID string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clients[sessionID]
}

func (n *recordingNotifier) CloseSession(sessionID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

func (n *recordingNotifier) count(eventType string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, e := range n.events {
		if e.eventType == eventType {
			c++
		}
	}
	return c
}

type recordingSink struct {
	mu       sync.Mutex
	readings []string
}

func (s *recordingSink) Publish(groupID string, state models.LiveDeviceState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readings = append(s.readings, groupID+"/"+state.DeviceID)
}

func (s *recordingSink) published() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.readings...)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func frame(pm25 float64) string {
	return fmt.Sprintf(`{"data":[{"value":{"sPM2":%v},"srvtime":1760000000000}]}`, pm25)
}

func frameAt(pm25, lat, lon float64) string {
	return fmt.Sprintf(`{"data":[{"value":{"sPM2":%v,"lat":%v,"lon":%v},"srvtime":1760000000000}]}`, pm25, lat, lon)
}

type harness struct {
	agg      *Aggregator
	streamer *fakeStreamer
	client   *fakeClient
	notifier *recordingNotifier
	sink     *recordingSink
	clock    *fakeClock
}

func testConfig() Config {
	return Config{
		RotationInterval:   time.Hour,
		RotationEnabled:    true,
		StaleAfter:         time.Minute,
		StaleCheckInterval: time.Hour,
		NoDataTimeout:      30 * time.Second,
		FrameBuffer:        16,
	}
}

func newHarness(t *testing.T, cfg Config, groups ...*models.DeviceGroup) *harness {
	t.Helper()
	h := &harness{
		streamer: newFakeStreamer(),
		client:   newFakeClient(groups...),
		notifier: newRecordingNotifier(),
		sink:     &recordingSink{},
		clock:    newFakeClock(),
	}
	h.agg = New("session-1", cfg, Deps{
		Upstream: h.client,
		Streamer: h.streamer,
		Notifier: h.notifier,
		Sink:     h.sink,
	})
	h.agg.now = h.clock.Now
	h.agg.status.Since = h.clock.Now()

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = h.agg.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-h.agg.Done()
	})
	return h
}

func (h *harness) selectGroup(t *testing.T, groupID string) {
	t.Helper()
	if _, err := h.agg.SelectGroup(context.Background(), groupID); err != nil {
		t.Fatalf("SelectGroup(%s) error = %v", groupID, err)
	}
}

func (h *harness) live(t *testing.T) map[string]models.DeviceView {
	t.Helper()
	live, err := h.agg.Live(context.Background())
	if err != nil {
		t.Fatalf("Live() error = %v", err)
	}
	return live
}

// waitPM25 waits until deviceID reports pm25.
func (h *harness) waitPM25(t *testing.T, deviceID string, pm25 float64) {
	t.Helper()
	eventually(t, fmt.Sprintf("%s pm25=%v", deviceID, pm25), func() bool {
		v, ok := h.live(t)[deviceID]
		return ok && v.PM25 == pm25
	})
}

// run executes fn on the aggregator loop.
func (h *harness) run(t *testing.T, fn func()) {
	t.Helper()
	if err := h.agg.do(context.Background(), fn); err != nil {
		t.Fatalf("do() error = %v", err)
	}
}

func group(id string, devices ...string) *models.DeviceGroup {
	return &models.DeviceGroup{ID: id, Name: "Group " + id, DeviceIDs: devices}
}
