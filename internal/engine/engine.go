// Package engine owns the device directory, priority store, reconciler and
// notifier, and runs reconciliation passes for monitor events and UI requests.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/audioanchor/internal/config"
	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/fsm"
	"github.com/rbright/audioanchor/internal/monitor"
	"github.com/rbright/audioanchor/internal/notify"
	"github.com/rbright/audioanchor/internal/reconcile"
	"github.com/rbright/audioanchor/internal/store"
)

var (
	// ErrUnknownDevice is returned when an identity is not among the live
	// eligible devices of a direction.
	ErrUnknownDevice = errors.New("unknown device")
	// ErrNotListed is returned when an identity is not in the priority list.
	ErrNotListed = errors.New("device is not in the priority list")
)

// DefaultCallTimeout bounds one pass when Options.CallTimeout is unset.
const DefaultCallTimeout = 2 * time.Second

// EventPoster queues events for the serialized loop.
type EventPoster interface {
	Post(ctx context.Context, event monitor.Event) error
}

// Options wires an Engine. Platform and KV are required.
type Options struct {
	Platform    device.Platform
	KV          store.KV
	Notifier    *notify.Notifier
	AutoSwitch  config.AutoSwitchConfig
	AutoMerge   bool
	CallTimeout time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Engine is the single owner of enforcement state for both directions.
type Engine struct {
	directory   *device.Directory
	priorities  *store.Priorities
	reconciler  *reconcile.Reconciler
	notifier    *notify.Notifier
	autoSwitch  config.AutoSwitchConfig
	autoMerge   bool
	callTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time

	mu     sync.Mutex
	states map[device.Direction]*directionState
	poster EventPoster
}

type directionState struct {
	state      fsm.State
	lastAction reconcile.Kind
	lastTarget string
	lastPassAt time.Time
	passes     int
	switches   int
}

// Status is the enforcement snapshot for one direction.
type Status struct {
	Direction   device.Direction
	AutoSwitch  bool
	State       fsm.State
	DefaultUID  string
	DefaultName string
	LastAction  reconcile.Kind
	LastTarget  string
	LastPassAt  time.Time
	Passes      int
	Switches    int
}

// LiveDevice is one eligible device with its default and list membership.
type LiveDevice struct {
	device.Descriptor
	Default bool
	Listed  bool
}

// ListedEntry is a priority entry annotated with live availability.
type ListedEntry struct {
	store.Entry
	Available bool
}

// New constructs an engine. A nil Notifier announces nothing.
func New(opts Options) (*Engine, error) {
	if opts.Platform == nil {
		return nil, errors.New("engine: platform is required")
	}
	if opts.KV == nil {
		return nil, errors.New("engine: key-value store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.New(nil, notify.Options{Logger: opts.Logger})
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	e := &Engine{
		directory:   device.NewDirectory(opts.Platform, opts.Logger),
		priorities:  store.NewPriorities(opts.KV, opts.Logger),
		notifier:    opts.Notifier,
		autoSwitch:  opts.AutoSwitch,
		autoMerge:   opts.AutoMerge,
		callTimeout: opts.CallTimeout,
		logger:      opts.Logger,
		now:         opts.Now,
		states:      make(map[device.Direction]*directionState, len(device.Directions)),
	}
	for _, dir := range device.Directions {
		e.states[dir] = &directionState{state: fsm.StateIdle}
	}
	e.reconciler = reconcile.New(e.directory, e.priorities, e, opts.Logger)
	return e, nil
}

// SetPoster routes store-mutation triggers through the serialized loop. With
// no poster, triggered passes run inline.
func (e *Engine) SetPoster(poster EventPoster) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.poster = poster
}

// AutoSwitchEnabled reports the persisted flag for dir, falling back to the
// configured initial value when none was saved.
func (e *Engine) AutoSwitchEnabled(dir device.Direction) bool {
	if enabled, ok := e.priorities.AutoSwitch(dir); ok {
		return enabled
	}
	if dir == device.Output {
		return e.autoSwitch.Output
	}
	return e.autoSwitch.Input
}

// Prime merges the devices present at startup into both lists when
// auto-merge is on.
func (e *Engine) Prime(ctx context.Context) {
	if !e.autoMerge {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, dir := range device.Directions {
		e.autoMergeLocked(ctx, dir)
	}
}

// HandleEvent runs one pass per direction the event fans out to. It is the
// monitor loop callback.
func (e *Engine) HandleEvent(ctx context.Context, event monitor.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, dir := range event.Directions() {
		if event.Kind == monitor.KindDeviceList && e.autoMerge {
			e.autoMergeLocked(ctx, dir)
		}
		e.passLocked(ctx, dir)
	}
}

// Reconcile runs one pass for dir immediately and returns its outcome.
func (e *Engine) Reconcile(ctx context.Context, dir device.Direction) reconcile.Action {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.passLocked(ctx, dir)
}

// SetAutoSwitch persists the flag for dir. Enabling it requests one pass.
func (e *Engine) SetAutoSwitch(ctx context.Context, dir device.Direction, enabled bool) error {
	e.mu.Lock()
	err := e.priorities.SetAutoSwitch(dir, enabled)
	e.mu.Unlock()
	if err != nil {
		return err
	}

	e.logger.Info("auto-switch updated", "direction", string(dir), "enabled", enabled)
	if enabled {
		e.requestPass(ctx, dir)
	}
	return nil
}

// SetDefaultManually makes identity the default for dir without touching the
// priority list.
func (e *Engine) SetDefaultManually(ctx context.Context, dir device.Direction, identity string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.setDefaultLocked(ctx, dir, identity)
}

// UseDevice makes identity the default for dir and turns auto-switch off so
// the next pass keeps the choice. The flag is only changed once the default
// was set.
func (e *Engine) UseDevice(ctx context.Context, dir device.Direction, identity string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.setDefaultLocked(ctx, dir, identity); err != nil {
		return err
	}
	if err := e.priorities.SetAutoSwitch(dir, false); err != nil {
		return fmt.Errorf("disable %s auto-switch: %w", dir, err)
	}
	e.logger.Info("auto-switch updated", "direction", string(dir), "enabled", false)
	return nil
}

func (e *Engine) setDefaultLocked(ctx context.Context, dir device.Direction, identity string) error {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	e.directory.ListDevices(callCtx, dir)
	dev, ok := e.directory.Lookup(dir, identity)
	if !ok {
		return fmt.Errorf("%s device %q: %w", dir, identity, ErrUnknownDevice)
	}
	if err := e.directory.SetDefault(callCtx, dir, dev.Handle); err != nil {
		return fmt.Errorf("set default %s device %q: %w", dir, identity, err)
	}
	e.logger.Info("default set manually", "direction", string(dir), "identity", identity)
	return nil
}

// PriorityList returns the saved order for dir annotated with availability.
func (e *Engine) PriorityList(ctx context.Context, dir device.Direction) []ListedEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	live := make(map[string]struct{})
	for _, dev := range e.directory.ListDevices(callCtx, dir) {
		live[dev.Identity] = struct{}{}
	}

	list := e.priorities.Load(dir)
	out := make([]ListedEntry, 0, len(list))
	for _, entry := range list {
		_, available := live[entry.UID]
		out = append(out, ListedEntry{Entry: entry, Available: available})
	}
	return out
}

// SetPriorityList replaces the saved order for dir and requests a pass.
func (e *Engine) SetPriorityList(ctx context.Context, dir device.Direction, list store.List) (store.List, error) {
	list = store.Normalize(list)

	e.mu.Lock()
	err := e.priorities.Save(dir, list)
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	e.requestPass(ctx, dir)
	return list, nil
}

// MergeNewlyObservedDevices appends live devices missing from the list for
// dir. added reports how many entries were appended.
func (e *Engine) MergeNewlyObservedDevices(ctx context.Context, dir device.Direction) (list store.List, added int, err error) {
	e.mu.Lock()
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	devices := e.directory.ListDevices(callCtx, dir)
	cancel()

	current := e.priorities.Load(dir)
	merged, changed := store.Merge(current, devices)
	if changed {
		err = e.priorities.Save(dir, merged)
	}
	e.mu.Unlock()
	if err != nil {
		return current, 0, err
	}

	added = len(merged) - len(current)
	if changed {
		e.requestPass(ctx, dir)
	}
	return merged, added, nil
}

// Move relocates identity to position in the list for dir.
func (e *Engine) Move(ctx context.Context, dir device.Direction, identity string, position int) (store.List, error) {
	return e.edit(ctx, dir, identity, func(list store.List) (store.List, error) {
		return store.Move(list, identity, position)
	})
}

// Remove deletes identity from the list for dir.
func (e *Engine) Remove(ctx context.Context, dir device.Direction, identity string) (store.List, error) {
	return e.edit(ctx, dir, identity, func(list store.List) (store.List, error) {
		out, _ := store.Remove(list, identity)
		return out, nil
	})
}

func (e *Engine) edit(ctx context.Context, dir device.Direction, identity string, apply func(store.List) (store.List, error)) (store.List, error) {
	e.mu.Lock()
	list := e.priorities.Load(dir)
	if list.Index(identity) < 0 {
		e.mu.Unlock()
		return list, fmt.Errorf("%s device %q: %w", dir, identity, ErrNotListed)
	}
	updated, err := apply(list)
	if err == nil {
		err = e.priorities.Save(dir, updated)
	}
	e.mu.Unlock()
	if err != nil {
		return list, err
	}

	e.requestPass(ctx, dir)
	return updated, nil
}

// Status reports the enforcement snapshot for both directions, input first.
func (e *Engine) Status(ctx context.Context) []Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Status, 0, len(device.Directions))
	for _, dir := range device.Directions {
		st := e.states[dir]
		status := Status{
			Direction:  dir,
			AutoSwitch: e.AutoSwitchEnabled(dir),
			State:      st.state,
			LastAction: st.lastAction,
			LastTarget: st.lastTarget,
			LastPassAt: st.lastPassAt,
			Passes:     st.passes,
			Switches:   st.switches,
		}

		callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
		e.directory.ListDevices(callCtx, dir)
		if uid, ok := e.directory.CurrentDefaultIdentity(callCtx, dir); ok {
			status.DefaultUID = uid
			if dev, ok := e.directory.Lookup(dir, uid); ok {
				status.DefaultName = dev.DisplayName
			}
		}
		cancel()

		out = append(out, status)
	}
	return out
}

// Devices lists live eligible devices for dir.
func (e *Engine) Devices(ctx context.Context, dir device.Direction) []LiveDevice {
	e.mu.Lock()
	defer e.mu.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	defer cancel()

	devices := e.directory.ListDevices(callCtx, dir)
	current, hasCurrent := e.directory.CurrentDefaultIdentity(callCtx, dir)
	list := e.priorities.Load(dir)

	out := make([]LiveDevice, 0, len(devices))
	for _, dev := range devices {
		out = append(out, LiveDevice{
			Descriptor: dev,
			Default:    hasCurrent && dev.Identity == current,
			Listed:     list.Index(dev.Identity) >= 0,
		})
	}
	return out
}

func (e *Engine) passLocked(ctx context.Context, dir device.Direction) reconcile.Action {
	st := e.states[dir]
	e.transitionLocked(dir, st, fsm.EventTrigger)

	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	action := e.reconciler.Reconcile(callCtx, dir)
	cancel()

	st.passes++
	st.lastPassAt = e.now()
	st.lastAction = action.Kind

	if !action.Switched() {
		e.transitionLocked(dir, st, fsm.EventNoAction)
		return action
	}

	st.switches++
	st.lastTarget = action.Identity
	e.logger.Info("default device switched",
		"direction", string(dir),
		"identity", action.Identity,
		"device", action.DisplayName,
		"previous", action.PreviousName,
	)
	e.transitionLocked(dir, st, fsm.EventSwitched)
	e.notifier.Announce(ctx, dir, action.DisplayName, action.PreviousName, action.HasPrevious)
	e.transitionLocked(dir, st, fsm.EventAnnounced)
	return action
}

// transitionLocked applies event and resets to idle when the state machine
// rejects it, so a bad state never wedges a direction.
func (e *Engine) transitionLocked(dir device.Direction, st *directionState, event fsm.Event) {
	next, err := fsm.Transition(st.state, event)
	if err != nil {
		e.logger.Error("enforcement state reset", "direction", string(dir), "error", err.Error())
		st.state = fsm.StateIdle
		if event == fsm.EventTrigger {
			st.state = fsm.StateReconciling
		}
		return
	}
	st.state = next
}

func (e *Engine) autoMergeLocked(ctx context.Context, dir device.Direction) {
	callCtx, cancel := context.WithTimeout(ctx, e.callTimeout)
	devices := e.directory.ListDevices(callCtx, dir)
	cancel()

	list := e.priorities.Load(dir)
	merged, changed := store.Merge(list, devices)
	if !changed {
		return
	}
	if err := e.priorities.Save(dir, merged); err != nil {
		e.logger.Warn("auto-merge save failed", "direction", string(dir), "error", err.Error())
		return
	}
	e.logger.Debug("priority list merged", "direction", string(dir), "entries", len(merged))
}

// requestPass queues a trigger for dir, or runs it inline when no poster is
// attached. Callers must not hold e.mu.
func (e *Engine) requestPass(ctx context.Context, dir device.Direction) {
	e.mu.Lock()
	poster := e.poster
	e.mu.Unlock()

	if poster == nil {
		e.HandleEvent(ctx, monitor.Trigger(dir))
		return
	}
	if err := poster.Post(ctx, monitor.Trigger(dir)); err != nil {
		e.logger.Warn("queue reconcile trigger failed", "direction", string(dir), "error", err.Error())
	}
}
