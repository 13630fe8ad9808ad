// Package reconcile decides which device should be the system default for a
// direction and commits that choice.
package reconcile

import (
	"context"
	"log/slog"

	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/store"
)

// Directory is the live device view needed by a pass.
type Directory interface {
	ListDevices(ctx context.Context, dir device.Direction) []device.Descriptor
	CurrentDefaultIdentity(ctx context.Context, dir device.Direction) (string, bool)
	SetDefault(ctx context.Context, dir device.Direction, handle device.Handle) error
}

// Lists loads the saved priority order.
type Lists interface {
	Load(dir device.Direction) store.List
}

// Switches reports whether automatic enforcement is on for a direction.
type Switches interface {
	AutoSwitchEnabled(dir device.Direction) bool
}

// Kind classifies the outcome of a pass.
type Kind string

const (
	KindNoAction Kind = "no-action"
	KindSwitched Kind = "switched"
)

// Action is the outcome of one pass. Identity, DisplayName, Handle and the
// previous-name fields are set only for KindSwitched.
type Action struct {
	Kind         Kind
	Direction    device.Direction
	Identity     string
	DisplayName  string
	Handle       device.Handle
	PreviousName string
	HasPrevious  bool
}

// Switched reports whether the pass changed the system default.
func (a Action) Switched() bool {
	return a.Kind == KindSwitched
}

// Reconciler runs reconciliation passes.
type Reconciler struct {
	directory Directory
	lists     Lists
	switches  Switches
	logger    *slog.Logger
}

func New(directory Directory, lists Lists, switches Switches, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		directory: directory,
		lists:     lists,
		switches:  switches,
		logger:    logger,
	}
}

// Reconcile forces the first available device of the saved order to be the
// default for dir. Every failure degrades to a no-action result.
func (r *Reconciler) Reconcile(ctx context.Context, dir device.Direction) Action {
	none := Action{Kind: KindNoAction, Direction: dir}

	if !r.switches.AutoSwitchEnabled(dir) {
		return none
	}

	available := r.directory.ListDevices(ctx, dir)
	current, hasCurrent := r.directory.CurrentDefaultIdentity(ctx, dir)
	list := r.lists.Load(dir)

	target, ok := firstAvailable(list, available)
	if !ok {
		r.logger.Debug("no saved device available", "direction", string(dir), "saved", len(list), "available", len(available))
		return none
	}
	if hasCurrent && target.Identity == current {
		return none
	}

	if err := r.directory.SetDefault(ctx, dir, target.Handle); err != nil {
		r.logger.Warn("set default device failed",
			"direction", string(dir),
			"identity", target.Identity,
			"handle", uint32(target.Handle),
			"error", err.Error(),
		)
		return none
	}

	action := Action{
		Kind:        KindSwitched,
		Direction:   dir,
		Identity:    target.Identity,
		DisplayName: target.DisplayName,
		Handle:      target.Handle,
	}
	if hasCurrent {
		for _, dev := range available {
			if dev.Identity == current {
				action.PreviousName = dev.DisplayName
				action.HasPrevious = true
				break
			}
		}
	}
	return action
}

// firstAvailable walks list in priority order and returns the first live
// device with a matching identity.
func firstAvailable(list store.List, available []device.Descriptor) (device.Descriptor, bool) {
	byIdentity := make(map[string]device.Descriptor, len(available))
	for _, dev := range available {
		if _, dup := byIdentity[dev.Identity]; !dup {
			byIdentity[dev.Identity] = dev
		}
	}
	for _, entry := range list {
		if dev, ok := byIdentity[entry.UID]; ok {
			return dev, true
		}
	}
	return device.Descriptor{}, false
}
