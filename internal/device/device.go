// Package device models live audio endpoints and the platform capability used
// to enumerate them and change the system default.
package device

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Direction classifies a device by audio data flow.
type Direction string

const (
	Input  Direction = "input"
	Output Direction = "output"
)

// Directions lists both directions in fan-out order.
var Directions = []Direction{Input, Output}

// ParseDirection accepts "input"/"output" and the short forms "in"/"out".
func ParseDirection(raw string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "input", "in":
		return Input, nil
	case "output", "out":
		return Output, nil
	default:
		return "", fmt.Errorf("unknown direction %q (want input|output)", raw)
	}
}

// Label is the capitalized form used in user-facing messages.
func (d Direction) Label() string {
	switch d {
	case Input:
		return "Input"
	case Output:
		return "Output"
	default:
		return string(d)
	}
}

// Handle addresses a device for the lifetime of the current platform session.
type Handle uint32

func (h Handle) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// UnknownName is reported when the platform cannot name a device.
const UnknownName = "Unknown Device"

// Properties are the per-device attributes reported by the platform. UID is
// empty when no persistent identifier is available.
type Properties struct {
	UID          string
	Name         string
	Manufacturer string
	Transport    Transport
}

// Descriptor is one eligible device as seen by a single directory query.
type Descriptor struct {
	Identity     string
	DisplayName  string
	Manufacturer string
	Direction    Direction
	Transport    Transport
	Handle       Handle
	Eligible     bool
}

// FallbackIdentity builds the identity used when no persistent UID exists.
// It embeds the session handle and does not survive reconnects.
func FallbackIdentity(manufacturer string, transport Transport, handle Handle) string {
	return manufacturer + "|" + string(transport) + "|" + handle.String()
}

// Platform is the audio subsystem capability consumed by the directory and
// reconciler.
type Platform interface {
	Handles(ctx context.Context, dir Direction) ([]Handle, error)
	Describe(ctx context.Context, handle Handle) (Properties, error)
	CanBeDefault(ctx context.Context, handle Handle, dir Direction) (bool, error)
	DefaultHandle(ctx context.Context, dir Direction) (Handle, error)
	SetDefaultHandle(ctx context.Context, dir Direction, handle Handle) error
}

// ChangeKind names a platform notification.
type ChangeKind string

const (
	ChangeDeviceList ChangeKind = "device-list-changed"
	ChangeDefault    ChangeKind = "default-changed"
)

// Change is one platform notification. Direction is set for ChangeDefault only.
type Change struct {
	Kind      ChangeKind
	Direction Direction
}

// Watcher delivers platform notifications until ctx is cancelled.
type Watcher interface {
	Watch(ctx context.Context, changes chan<- Change) error
}
