// AirPulse - Realtime Environmental Sensor Aggregation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/airpulse

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/airpulse/internal/config"
	"github.com/tomtom215/airpulse/internal/devicestore"
	"github.com/tomtom215/airpulse/internal/eventbus"
	"github.com/tomtom215/airpulse/internal/logging"
	"github.com/tomtom215/airpulse/internal/metrics"
	"github.com/tomtom215/airpulse/internal/models"
	"github.com/tomtom215/airpulse/internal/stream"
	"github.com/tomtom215/airpulse/internal/upstream"
)

// Event types pushed to the Notifier.
const (
	EventDeviceUpdate = "device_update"
	EventFocus        = "focus"
	EventAggregate    = "aggregate"
	EventStatus       = "status"
)

// Notifier receives change notifications for a session. Notify is called
// from the aggregator loop and must not block.
type Notifier interface {
	Notify(sessionID, eventType string, data interface{})
}

// Config holds the tunables of one aggregator.
type Config struct {
	DefaultTopicTemplate string
	RotationInterval     time.Duration
	RotationEnabled      bool
	StaleAfter           time.Duration
	StaleCheckInterval   time.Duration
	NoDataTimeout        time.Duration
	FrameBuffer          int

	Reconnect        bool
	ReconnectInitial time.Duration
	ReconnectMax     time.Duration
}

// NewConfig extracts the aggregator settings from the application config.
func NewConfig(cfg *config.Config) Config {
	return Config{
		DefaultTopicTemplate: cfg.Aggregator.DefaultTopicTemplate,
		RotationInterval:     cfg.Aggregator.RotationInterval,
		RotationEnabled:      cfg.Aggregator.RotationEnabled,
		StaleAfter:           cfg.Aggregator.StaleAfter,
		StaleCheckInterval:   cfg.Aggregator.StaleCheckInterval,
		NoDataTimeout:        cfg.Aggregator.NoDataTimeout,
		FrameBuffer:          cfg.Aggregator.FrameBuffer,
		Reconnect:            cfg.Stream.ReconnectEnabled,
		ReconnectInitial:     cfg.Stream.ReconnectInitial,
		ReconnectMax:         cfg.Stream.ReconnectMax,
	}
}

func (c Config) withDefaults() Config {
	if c.DefaultTopicTemplate == "" {
		c.DefaultTopicTemplate = config.DefaultTopicTemplate
	}
	if c.RotationInterval <= 0 {
		c.RotationInterval = 5 * time.Second
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 60 * time.Second
	}
	if c.StaleCheckInterval <= 0 {
		c.StaleCheckInterval = 5 * time.Second
	}
	if c.NoDataTimeout <= 0 {
		c.NoDataTimeout = 30 * time.Second
	}
	if c.FrameBuffer < 1 {
		c.FrameBuffer = 256
	}
	if c.ReconnectInitial <= 0 {
		c.ReconnectInitial = time.Second
	}
	if c.ReconnectMax < c.ReconnectInitial {
		c.ReconnectMax = 30 * time.Second
	}
	return c
}

// Deps are the collaborators of an aggregator. Store, Notifier and Sink
// are optional.
type Deps struct {
	Upstream upstream.Client
	Streamer stream.Streamer
	Store    devicestore.Store
	Notifier Notifier
	Sink     eventbus.ReadingSink
}

type command struct {
	fn   func()
	done chan struct{}
}

// Aggregator owns the live view of one session. All fields below the
// channels are confined to the Run goroutine.
type Aggregator struct {
	id   string
	cfg  Config
	deps Deps
	loc  locator
	now  func() time.Time
	log  zerolog.Logger

	cmds       chan command
	frames     chan frameEvent
	done       chan struct{}
	generation atomic.Uint64

	group        *models.DeviceGroup
	selected     []string
	subs         *registry
	live         map[string]models.LiveDeviceState
	stale        map[string]bool
	static       map[string]models.Position
	focus        *focus
	lastFocus    models.FocusState
	status       models.ScopeStatus
	lastErr      error
	failedGroup  string
	scopeStarted time.Time
	rotation     *time.Ticker
}

// New creates an aggregator for session id. Call Run to start it.
func New(id string, cfg Config, deps Deps) *Aggregator {
	cfg = cfg.withDefaults()
	a := &Aggregator{
		id:     id,
		cfg:    cfg,
		deps:   deps,
		loc:    locator{store: deps.Store, upstream: deps.Upstream},
		now:    time.Now,
		log:    logging.With().Str("component", "aggregator").Str("session_id", id).Logger(),
		cmds:   make(chan command),
		frames: make(chan frameEvent, cfg.FrameBuffer),
		done:   make(chan struct{}),
		subs:   newRegistry(),
		live:   make(map[string]models.LiveDeviceState),
		stale:  make(map[string]bool),
		focus:  newFocus(cfg.RotationEnabled),
	}
	a.lastFocus = a.focus.resolve(nil)
	a.status = models.ScopeStatus{State: models.ScopeIdle, Since: a.now()}
	return a
}

// ID returns the session ID.
func (a *Aggregator) ID() string {
	return a.id
}

// Done is closed once Run has returned and every subscription is closed.
func (a *Aggregator) Done() <-chan struct{} {
	return a.done
}

// Run processes commands, frames and timers until ctx is canceled. It must
// be called exactly once. On return every subscription has been closed.
func (a *Aggregator) Run(ctx context.Context) error {
	a.rotation = time.NewTicker(a.cfg.RotationInterval)
	staleness := time.NewTicker(a.cfg.StaleCheckInterval)
	defer func() {
		a.rotation.Stop()
		staleness.Stop()
		a.teardown()
		close(a.done)
		a.log.Debug().Msg("aggregator stopped")
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case cmd := <-a.cmds:
			cmd.fn()
			close(cmd.done)
		case ev := <-a.frames:
			a.applyFrame(ev)
		case <-a.rotation.C:
			a.rotate()
		case <-staleness.C:
			a.checkStaleness()
		}
	}
}

// do runs fn on the loop goroutine and waits for it to finish.
func (a *Aggregator) do(ctx context.Context, fn func()) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case a.cmds <- cmd:
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	// Once accepted, the loop always runs the command to completion.
	<-cmd.done
	return nil
}

// SelectGroup resolves groupID and makes it the scope of the session: old
// subscriptions are closed, live state is cleared and every member of the
// group is selected. On failure the previous scope is kept and the error is
// recorded in the scope status.
func (a *Aggregator) SelectGroup(ctx context.Context, groupID string) (*models.DeviceGroup, error) {
	gen := a.generation.Add(1)

	group, fetchErr := a.resolveGroup(ctx, groupID)
	var positions map[string]models.Position
	if fetchErr == nil {
		positions = a.loc.resolveAll(ctx, group.DeviceIDs)
	}

	var result error
	err := a.do(ctx, func() {
		if a.generation.Load() != gen {
			result = ErrSuperseded
			return
		}
		if fetchErr != nil {
			a.failScope(groupID, fetchErr)
			result = fetchErr
			return
		}
		a.installScope(group, positions)
	})
	switch {
	case err != nil:
		return nil, err
	case errors.Is(result, ErrSuperseded):
		metrics.RecordGroupResolution("superseded")
		return nil, result
	case result != nil:
		metrics.RecordGroupResolution("failure")
		return nil, result
	}
	metrics.RecordGroupResolution("success")
	return cloneGroup(group), nil
}

func (a *Aggregator) resolveGroup(ctx context.Context, groupID string) (*models.DeviceGroup, error) {
	group, err := a.deps.Upstream.ResolveGroup(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("resolve group %q: %w", groupID, err)
	}
	g := cloneGroup(group)
	if g.ID == "" {
		g.ID = groupID
	}
	if g.TopicTemplate == "" {
		g.TopicTemplate = a.cfg.DefaultTopicTemplate
	}
	if err := stream.ValidateTemplate(g.TopicTemplate); err != nil {
		return nil, fmt.Errorf("group %q: %w", groupID, err)
	}
	return g, nil
}

func (a *Aggregator) failScope(groupID string, err error) {
	a.log.Warn().Err(err).Str("group_id", groupID).Msg("group resolution failed, keeping previous scope")
	a.failedGroup = groupID
	a.lastErr = err
	a.refreshStatus()
}

// installScope replaces the scope: close all, clear, then open.
func (a *Aggregator) installScope(group *models.DeviceGroup, positions map[string]models.Position) {
	a.teardown()

	a.group = group
	a.static = positions
	a.failedGroup, a.lastErr = "", nil
	a.focus.reset()
	a.scopeStarted = a.now()
	a.applySelection(group.DeviceIDs)

	a.log.Info().
		Str("group_id", group.ID).
		Int("devices", len(group.DeviceIDs)).
		Int("static_positions", len(positions)).
		Msg("group scope installed")

	a.publishDerived()
}

// teardown closes every subscription synchronously and clears live state.
func (a *Aggregator) teardown() {
	a.subs.closeAll()
	for id := range a.live {
		a.dropLive(id)
	}
	a.selected = nil
	a.static = nil
}

func (a *Aggregator) dropLive(id string) {
	if _, ok := a.live[id]; !ok {
		return
	}
	if a.stale[id] {
		metrics.AddLiveDevices(-1, -1)
	} else {
		metrics.AddLiveDevices(-1, 0)
	}
	delete(a.live, id)
	delete(a.stale, id)
}

// SetSelection replaces the selected subset of the current group and
// returns the new selection in group order. Devices selected before and
// after keep their subscription and live state.
func (a *Aggregator) SetSelection(ctx context.Context, deviceIDs []string) ([]string, error) {
	var result error
	var selected []string
	err := a.do(ctx, func() {
		if a.group == nil {
			result = ErrNoGroup
			return
		}
		for _, id := range deviceIDs {
			if !a.group.HasDevice(id) {
				result = fmt.Errorf("%w: %s", ErrUnknownDevice, id)
				return
			}
		}
		a.applySelection(deviceIDs)
		a.publishDerived()
		selected = append([]string(nil), a.selected...)
	})
	if err != nil {
		return nil, err
	}
	return selected, result
}

// applySelection diffs the selection: deselected devices are closed and
// forgotten, newly selected ones are subscribed.
func (a *Aggregator) applySelection(deviceIDs []string) {
	want := make(map[string]bool, len(deviceIDs))
	for _, id := range deviceIDs {
		want[id] = true
	}

	var removed []string
	for _, id := range a.selected {
		if !want[id] {
			removed = append(removed, id)
		}
	}
	a.subs.remove(removed...)
	for _, id := range removed {
		a.dropLive(id)
	}

	wasEmpty := len(a.selected) == 0
	selected := make([]string, 0, len(want))
	for _, id := range a.group.DeviceIDs {
		if want[id] {
			selected = append(selected, id)
		}
	}
	a.selected = selected
	if wasEmpty && len(selected) > 0 {
		a.scopeStarted = a.now()
	}

	for _, id := range selected {
		a.subscribe(id)
	}
}

// subscribe opens a subscription for deviceID unless one exists.
func (a *Aggregator) subscribe(deviceID string) {
	if a.subs.has(deviceID) {
		return
	}
	topic, err := stream.Topic(a.group.TopicTemplate, deviceID)
	if err != nil {
		a.log.Warn().Err(err).Str("device_id", deviceID).Msg("cannot build device topic")
		return
	}
	sub := newSubscription(deviceID, topic, a.deps.Streamer, a.frames, reconnectPolicy{
		enabled: a.cfg.Reconnect,
		initial: a.cfg.ReconnectInitial,
		max:     a.cfg.ReconnectMax,
	}, a.now, a.log)
	a.subs.add(deviceID, sub)
	sub.start()
}

// applyFrame replaces the device state with an accepted frame. Frames from
// subscriptions that are no longer registered are discarded.
func (a *Aggregator) applyFrame(ev frameEvent) {
	id := ev.state.DeviceID
	if !a.subs.owns(id, ev.sub) {
		metrics.RecordFrame("discarded")
		return
	}

	st := ev.state
	if !st.Position.Usable() {
		st.Position = nil
		if pos, ok := a.static[id]; ok {
			p := pos
			st.Position = &p
		}
	}

	if _, ok := a.live[id]; !ok {
		metrics.AddLiveDevices(1, 0)
	} else if a.stale[id] {
		metrics.AddLiveDevices(0, -1)
	}
	delete(a.stale, id)
	a.live[id] = st
	metrics.RecordFrame("accepted")

	if a.deps.Sink != nil {
		a.deps.Sink.Publish(a.group.ID, st)
	}
	a.notify(EventDeviceUpdate, a.view(id))
	a.publishDerived()
}

// checkStaleness marks devices without a recent frame unavailable. They
// stay in the live map but leave the aggregate.
func (a *Aggregator) checkStaleness() {
	now := a.now()
	changed := false
	for _, id := range a.liveIDs() {
		isStale := now.Sub(a.live[id].ReceivedAt) > a.cfg.StaleAfter
		if isStale == a.stale[id] {
			continue
		}
		if isStale {
			a.stale[id] = true
			metrics.AddLiveDevices(0, 1)
		} else {
			delete(a.stale, id)
			metrics.AddLiveDevices(0, -1)
		}
		changed = true
		a.notify(EventDeviceUpdate, a.view(id))
	}
	if changed {
		a.notify(EventAggregate, a.aggregate())
	}
	a.refreshStatus()
}

func (a *Aggregator) rotate() {
	a.focus.advance(len(a.live))
	a.refreshFocus()
}

// publishDerived pushes the aggregate and refreshes focus and status.
func (a *Aggregator) publishDerived() {
	a.notify(EventAggregate, a.aggregate())
	a.refreshFocus()
	a.refreshStatus()
}

func (a *Aggregator) refreshFocus() {
	fs := a.focus.resolve(a.liveIDs())
	if fs == a.lastFocus {
		return
	}
	if fs.DeviceID != a.lastFocus.DeviceID {
		metrics.RecordFocusChange(string(fs.Reason))
	}
	a.lastFocus = fs
	a.notify(EventFocus, fs)
}

func (a *Aggregator) refreshStatus() {
	st := a.computeStatus()
	if st.State == a.status.State {
		st.Since = a.status.Since
	}
	if st == a.status {
		return
	}
	if st.State != a.status.State {
		a.log.Debug().Str("from", string(a.status.State)).Str("to", string(st.State)).Msg("scope status changed")
	}
	a.status = st
	a.notify(EventStatus, st)
}

func (a *Aggregator) computeStatus() models.ScopeStatus {
	now := a.now()
	fresh := len(a.live) - len(a.stale)
	st := models.ScopeStatus{
		SelectedCount: len(a.selected),
		LiveCount:     fresh,
		StaleCount:    len(a.stale),
		Since:         now,
	}
	if a.group != nil {
		st.GroupID = a.group.ID
	}

	switch {
	case a.lastErr != nil:
		st.State = models.ScopeError
		st.FailedGroupID = a.failedGroup
		st.Error = a.lastErr.Error()
	case a.group == nil || len(a.selected) == 0:
		st.State = models.ScopeIdle
	case fresh > 0:
		st.State = models.ScopeLive
	case now.Sub(a.scopeStarted) >= a.cfg.NoDataTimeout:
		st.State = models.ScopeNoData
	default:
		st.State = models.ScopeLoading
	}
	return st
}

func (a *Aggregator) notify(eventType string, data interface{}) {
	if a.deps.Notifier != nil {
		a.deps.Notifier.Notify(a.id, eventType, data)
	}
}

func (a *Aggregator) liveIDs() []string {
	ids := make([]string, 0, len(a.live))
	for id := range a.live {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (a *Aggregator) view(id string) models.DeviceView {
	st := a.live[id]
	return models.DeviceView{
		LiveDeviceState: st,
		Available:       !a.stale[id],
		PMBand:          models.ClassifyPM25(st.PM25),
	}
}

func (a *Aggregator) views() map[string]models.DeviceView {
	out := make(map[string]models.DeviceView, len(a.live))
	for id := range a.live {
		out[id] = a.view(id)
	}
	return out
}

// aggregate averages over available devices only. A stale device counts
// as absent until its next frame.
func (a *Aggregator) aggregate() models.AggregateSnapshot {
	fresh := make(map[string]models.LiveDeviceState, len(a.live)-len(a.stale))
	for id, st := range a.live {
		if !a.stale[id] {
			fresh[id] = st
		}
	}
	return ComputeAggregate(fresh, a.now())
}

// Live returns the live-state map with per-device availability.
func (a *Aggregator) Live(ctx context.Context) (map[string]models.DeviceView, error) {
	var out map[string]models.DeviceView
	err := a.do(ctx, func() { out = a.views() })
	return out, err
}

// Focus returns the focused device.
func (a *Aggregator) Focus(ctx context.Context) (models.FocusState, error) {
	var out models.FocusState
	err := a.do(ctx, func() {
		a.refreshFocus()
		out = a.lastFocus
	})
	return out, err
}

// Aggregate returns the cross-device aggregate.
func (a *Aggregator) Aggregate(ctx context.Context) (models.AggregateSnapshot, error) {
	var out models.AggregateSnapshot
	err := a.do(ctx, func() { out = a.aggregate() })
	return out, err
}

// Status returns the scope status.
func (a *Aggregator) Status(ctx context.Context) (models.ScopeStatus, error) {
	var out models.ScopeStatus
	err := a.do(ctx, func() {
		a.refreshStatus()
		out = a.status
	})
	return out, err
}

// Group returns the current group, or ErrNoGroup.
func (a *Aggregator) Group(ctx context.Context) (*models.DeviceGroup, error) {
	var out *models.DeviceGroup
	err := a.do(ctx, func() {
		if a.group != nil {
			out = cloneGroup(a.group)
		}
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, ErrNoGroup
	}
	return out, nil
}

// Snapshot returns every derived view in one consistent document.
func (a *Aggregator) Snapshot(ctx context.Context) (models.Snapshot, error) {
	var out models.Snapshot
	err := a.do(ctx, func() {
		a.refreshFocus()
		a.refreshStatus()
		out = models.Snapshot{
			SessionID: a.id,
			Status:    a.status,
			Selected:  append([]string{}, a.selected...),
			Devices:   a.views(),
			Focus:     a.lastFocus,
			Aggregate: a.aggregate(),
		}
		if a.group != nil {
			out.Group = cloneGroup(a.group)
		}
	})
	return out, err
}

// Pin makes deviceID the focus until it is unpinned or leaves the live set.
func (a *Aggregator) Pin(ctx context.Context, deviceID string) (models.FocusState, error) {
	var out models.FocusState
	var result error
	err := a.do(ctx, func() {
		if _, ok := a.live[deviceID]; !ok {
			result = fmt.Errorf("%w: %s", ErrDeviceNotLive, deviceID)
			return
		}
		a.focus.pinned = deviceID
		a.refreshFocus()
		out = a.lastFocus
	})
	if err != nil {
		return out, err
	}
	return out, result
}

// Unpin releases the pin. Rotation resumes from its current position.
func (a *Aggregator) Unpin(ctx context.Context) (models.FocusState, error) {
	var out models.FocusState
	err := a.do(ctx, func() {
		a.focus.pinned = ""
		a.refreshFocus()
		out = a.lastFocus
	})
	return out, err
}

// SetRotation turns rotation on or off. A positive interval also changes
// the rotation period.
func (a *Aggregator) SetRotation(ctx context.Context, enabled bool, interval time.Duration) (models.FocusState, error) {
	var out models.FocusState
	err := a.do(ctx, func() {
		a.focus.rotationEnabled = enabled
		if interval > 0 && interval != a.cfg.RotationInterval {
			a.cfg.RotationInterval = interval
			a.rotation.Reset(interval)
		}
		a.refreshFocus()
		out = a.lastFocus
	})
	return out, err
}

// FocusHistory fetches the history of the focused device.
func (a *Aggregator) FocusHistory(ctx context.Context, window models.HistoryWindow) (*models.HistorySeries, error) {
	fs, err := a.Focus(ctx)
	if err != nil {
		return nil, err
	}
	if !fs.HasFocus() {
		return nil, ErrNoFocus
	}
	return a.deps.Upstream.History(ctx, fs.DeviceID, window)
}

func cloneGroup(g *models.DeviceGroup) *models.DeviceGroup {
	c := *g
	c.DeviceIDs = append([]string(nil), g.DeviceIDs...)
	return &c
}
