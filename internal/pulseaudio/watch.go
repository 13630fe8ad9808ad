package pulseaudio

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rbright/audioanchor/internal/device"
)

// DefaultPollInterval is used when Watch is given a non-positive interval.
const DefaultPollInterval = 500 * time.Millisecond

// serverState is the part of a snapshot that change detection compares.
type serverState struct {
	members  string
	defaults map[device.Direction]string
}

// Poller watches a Platform for device-list and default changes by periodic
// comparison of server snapshots.
type Poller struct {
	platform *Platform
	interval time.Duration
}

// NewPoller returns a watcher polling platform every interval.
func NewPoller(platform *Platform, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{platform: platform, interval: interval}
}

// Watch emits changes until ctx is cancelled. Failed polls are logged and
// skipped; the next successful poll compares against the last good state.
func (w *Poller) Watch(ctx context.Context, changes chan<- device.Change) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	last, haveLast := w.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		current, ok := w.poll(ctx)
		if !ok {
			continue
		}
		if !haveLast {
			last, haveLast = current, true
			continue
		}

		for _, change := range diffStates(last, current) {
			select {
			case changes <- change:
			case <-ctx.Done():
				return nil
			}
		}
		last = current
	}
}

func (w *Poller) poll(ctx context.Context) (serverState, bool) {
	callCtx, cancel := context.WithTimeout(ctx, w.interval*4)
	defer cancel()

	nodes, err := w.platform.refresh(callCtx)
	if err != nil {
		if ctx.Err() == nil {
			w.platform.logger.Debug("pulse poll failed", "error", err.Error())
		}
		return serverState{}, false
	}
	defaults, err := w.platform.fetchDefaults(callCtx)
	if err != nil {
		if ctx.Err() == nil {
			w.platform.logger.Debug("pulse defaults poll failed", "error", err.Error())
		}
		return serverState{}, false
	}
	return serverState{members: membership(nodes), defaults: defaults}, true
}

// membership fingerprints the device set including eligibility, so a port
// becoming unavailable counts as a device-list change.
func membership(nodes map[device.Handle]node) string {
	keys := make([]string, 0, len(nodes))
	for handle, n := range nodes {
		flag := "0"
		if n.eligible {
			flag = "1"
		}
		keys = append(keys, handle.String()+"/"+n.name+"/"+flag)
	}
	sort.Strings(keys)
	return strings.Join(keys, "\n")
}

func diffStates(prev, next serverState) []device.Change {
	var changes []device.Change
	if prev.members != next.members {
		changes = append(changes, device.Change{Kind: device.ChangeDeviceList})
	}
	for _, dir := range device.Directions {
		if prev.defaults[dir] != next.defaults[dir] {
			changes = append(changes, device.Change{Kind: device.ChangeDefault, Direction: dir})
		}
	}
	return changes
}
