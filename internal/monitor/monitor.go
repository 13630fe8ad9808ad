// Package monitor serializes change notifications into one processing loop.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rbright/audioanchor/internal/device"
)

// Kind names an event consumed by the loop.
type Kind string

const (
	KindDeviceList Kind = "device-list-changed"
	KindDefault    Kind = "default-changed"
	KindStore      Kind = "store-changed"
	KindTrigger    Kind = "trigger"
)

// Event is one queued notification. Direction is required for KindDefault and
// optional for KindTrigger, where empty means both directions.
type Event struct {
	Kind      Kind
	Direction device.Direction
}

// Trigger builds a synthetic pass request for dir.
func Trigger(dir device.Direction) Event {
	return Event{Kind: KindTrigger, Direction: dir}
}

// Directions lists the directions an event fans out to, input first.
func (e Event) Directions() []device.Direction {
	switch e.Kind {
	case KindDefault:
		return []device.Direction{e.Direction}
	case KindTrigger:
		if e.Direction != "" {
			return []device.Direction{e.Direction}
		}
		return device.Directions
	default:
		return device.Directions
	}
}

// FromChange converts a platform notification into a loop event.
func FromChange(change device.Change) Event {
	if change.Kind == device.ChangeDefault {
		return Event{Kind: KindDefault, Direction: change.Direction}
	}
	return Event{Kind: KindDeviceList}
}

// Handler processes one event. Calls never overlap.
type Handler interface {
	HandleEvent(ctx context.Context, event Event)
}

// HandlerFunc adapts a function into a Handler.
type HandlerFunc func(ctx context.Context, event Event)

func (f HandlerFunc) HandleEvent(ctx context.Context, event Event) {
	f(ctx, event)
}

// ErrStopped is returned by Post after Run has returned.
var ErrStopped = errors.New("monitor stopped")

const defaultQueueSize = 64

// Monitor owns the single event queue and its consumer loop.
type Monitor struct {
	handler Handler
	logger  *slog.Logger
	events  chan Event
	done    chan struct{}
}

// New constructs a monitor. queueSize <= 0 selects the default.
func New(handler Handler, queueSize int, logger *slog.Logger) *Monitor {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Monitor{
		handler: handler,
		logger:  logger,
		events:  make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
}

// Post enqueues event, blocking while the queue is full.
func (m *Monitor) Post(ctx context.Context, event Event) error {
	select {
	case <-m.done:
		return ErrStopped
	default:
	}

	select {
	case m.events <- event:
		return nil
	case <-m.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run consumes events in arrival order until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-m.events:
			m.logger.Debug("monitor event", "kind", string(event.Kind), "direction", string(event.Direction))
			m.handler.HandleEvent(ctx, event)
		}
	}
}

// Forward runs watcher and posts each platform change until ctx is cancelled.
func (m *Monitor) Forward(ctx context.Context, watcher device.Watcher) error {
	changes := make(chan device.Change, defaultQueueSize)
	watchErr := make(chan error, 1)
	go func() {
		watchErr <- watcher.Watch(ctx, changes)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-watchErr:
			if err != nil && ctx.Err() == nil {
				return fmt.Errorf("platform watcher: %w", err)
			}
			return nil
		case change := <-changes:
			if err := m.Post(ctx, FromChange(change)); err != nil {
				if errors.Is(err, ErrStopped) || ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
	}
}
