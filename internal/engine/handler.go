package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/ipc"
	"github.com/rbright/audioanchor/internal/reconcile"
	"github.com/rbright/audioanchor/internal/store"
)

// Handle implements ipc.Handler for the UI command set.
func (e *Engine) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case ipc.CommandStatus:
		return e.handleStatus(ctx)
	case ipc.CommandDevices:
		return e.handleDevices(ctx, req)
	case ipc.CommandReconcile:
		return e.handleReconcile(ctx, req)
	}

	dir, err := device.ParseDirection(req.Direction)
	if err != nil {
		return failure(err)
	}

	switch req.Command {
	case ipc.CommandList:
		return entriesResponse(e.PriorityList(ctx, dir), "")
	case ipc.CommandSetOrder:
		names := e.knownNames(ctx, dir)
		list := make(store.List, 0, len(req.Entries))
		for _, entry := range req.Entries {
			name := entry.Name
			if name == "" {
				name = names[entry.UID]
			}
			list = append(list, store.Entry{Name: name, UID: entry.UID})
		}
		if _, err := e.SetPriorityList(ctx, dir, list); err != nil {
			return failure(err)
		}
		return entriesResponse(e.PriorityList(ctx, dir), "priority list saved")
	case ipc.CommandMove:
		if _, err := e.Move(ctx, dir, req.UID, req.Position); err != nil {
			return failure(err)
		}
		return entriesResponse(e.PriorityList(ctx, dir), fmt.Sprintf("moved %s to position %d", req.UID, req.Position))
	case ipc.CommandRemove:
		if _, err := e.Remove(ctx, dir, req.UID); err != nil {
			return failure(err)
		}
		return entriesResponse(e.PriorityList(ctx, dir), "removed "+req.UID)
	case ipc.CommandMerge:
		_, added, err := e.MergeNewlyObservedDevices(ctx, dir)
		if err != nil {
			return failure(err)
		}
		return entriesResponse(e.PriorityList(ctx, dir), fmt.Sprintf("added %d device(s)", added))
	case ipc.CommandAuto:
		if req.Enabled == nil {
			return failure(errors.New("auto requires enabled"))
		}
		if err := e.SetAutoSwitch(ctx, dir, *req.Enabled); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: fmt.Sprintf("%s auto-switch %s", dir, onOff(*req.Enabled))}
	case ipc.CommandUse:
		if strings.TrimSpace(req.UID) == "" {
			return failure(errors.New("use requires uid"))
		}
		if err := e.UseDevice(ctx, dir, req.UID); err != nil {
			return failure(err)
		}
		return ipc.Response{OK: true, Message: fmt.Sprintf("%s default set to %s; auto-switch off", dir, req.UID)}
	default:
		return failure(fmt.Errorf("unknown command %q", req.Command))
	}
}

func (e *Engine) handleStatus(ctx context.Context) ipc.Response {
	statuses := e.Status(ctx)
	out := make([]ipc.DirectionStatus, 0, len(statuses))
	for _, st := range statuses {
		item := ipc.DirectionStatus{
			Direction:   string(st.Direction),
			AutoSwitch:  st.AutoSwitch,
			State:       string(st.State),
			DefaultUID:  st.DefaultUID,
			DefaultName: st.DefaultName,
			LastAction:  string(st.LastAction),
			LastTarget:  st.LastTarget,
			Passes:      st.Passes,
			Switches:    st.Switches,
		}
		if !st.LastPassAt.IsZero() {
			item.LastPassAt = st.LastPassAt.UTC().Format(time.RFC3339)
		}
		out = append(out, item)
	}
	return ipc.Response{OK: true, Status: out}
}

func (e *Engine) handleDevices(ctx context.Context, req ipc.Request) ipc.Response {
	dirs := device.Directions
	if strings.TrimSpace(req.Direction) != "" {
		dir, err := device.ParseDirection(req.Direction)
		if err != nil {
			return failure(err)
		}
		dirs = []device.Direction{dir}
	}

	var out []ipc.Device
	for _, dir := range dirs {
		for _, dev := range e.Devices(ctx, dir) {
			out = append(out, ipc.Device{
				Direction:    string(dev.Direction),
				UID:          dev.Identity,
				Name:         dev.DisplayName,
				Manufacturer: dev.Manufacturer,
				Transport:    string(dev.Transport),
				Icon:         device.IconName(dev.Direction, dev.Transport),
				Handle:       uint32(dev.Handle),
				Default:      dev.Default,
				Listed:       dev.Listed,
			})
		}
	}
	return ipc.Response{OK: true, Devices: out}
}

func (e *Engine) handleReconcile(ctx context.Context, req ipc.Request) ipc.Response {
	dirs := device.Directions
	if strings.TrimSpace(req.Direction) != "" {
		dir, err := device.ParseDirection(req.Direction)
		if err != nil {
			return failure(err)
		}
		dirs = []device.Direction{dir}
	}

	messages := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		messages = append(messages, describeAction(e.Reconcile(ctx, dir)))
	}
	return ipc.Response{OK: true, Message: strings.Join(messages, "; ")}
}

// knownNames maps identities to the best known display name: live devices
// first, then the saved list.
func (e *Engine) knownNames(ctx context.Context, dir device.Direction) map[string]string {
	names := make(map[string]string)
	for _, entry := range e.PriorityList(ctx, dir) {
		names[entry.UID] = entry.Name
	}
	for _, dev := range e.Devices(ctx, dir) {
		names[dev.Identity] = dev.DisplayName
	}
	return names
}

func describeAction(action reconcile.Action) string {
	if !action.Switched() {
		return fmt.Sprintf("%s: no action", action.Direction)
	}
	return fmt.Sprintf("%s: switched to %s", action.Direction, action.DisplayName)
}

func entriesResponse(entries []ListedEntry, message string) ipc.Response {
	out := make([]ipc.Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ipc.Entry{Name: entry.Name, UID: entry.UID, Available: entry.Available})
	}
	return ipc.Response{OK: true, Message: message, Entries: out}
}

func failure(err error) ipc.Response {
	return ipc.Response{OK: false, Error: err.Error()}
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}
