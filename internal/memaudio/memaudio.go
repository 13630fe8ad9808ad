// Package memaudio is an in-memory audio platform used for dry runs and tests.
package memaudio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rbright/audioanchor/internal/device"
)

// ErrUnknownHandle is returned for handles that are not attached.
var ErrUnknownHandle = errors.New("unknown device handle")

// Device is one simulated endpoint.
type Device struct {
	Handle    device.Handle
	Direction device.Direction
	Props     device.Properties
	Eligible  bool
	// DescribeErr makes Describe fail for this device.
	DescribeErr error
}

// Platform implements device.Platform and device.Watcher in memory.
type Platform struct {
	mu       sync.Mutex
	devices  []Device
	defaults map[device.Direction]device.Handle
	setErr   error
	setCalls []SetCall
	changes  chan device.Change
}

// SetCall records one SetDefaultHandle invocation.
type SetCall struct {
	Direction device.Direction
	Handle    device.Handle
}

// New returns an empty platform.
func New() *Platform {
	return &Platform{
		defaults: make(map[device.Direction]device.Handle, 2),
		changes:  make(chan device.Change, 64),
	}
}

// NewWithBuiltins returns a platform with a built-in microphone and speakers
// attached and selected as defaults.
func NewWithBuiltins() *Platform {
	p := New()
	p.Attach(Device{
		Handle:    1,
		Direction: device.Input,
		Props: device.Properties{
			UID:          "builtin-microphone",
			Name:         "Built-in Microphone",
			Manufacturer: "audioanchor",
			Transport:    device.TransportBuiltIn,
		},
		Eligible: true,
	})
	p.Attach(Device{
		Handle:    2,
		Direction: device.Output,
		Props: device.Properties{
			UID:          "builtin-speakers",
			Name:         "Built-in Speakers",
			Manufacturer: "audioanchor",
			Transport:    device.TransportBuiltIn,
		},
		Eligible: true,
	})
	p.mu.Lock()
	p.defaults[device.Input] = 1
	p.defaults[device.Output] = 2
	p.mu.Unlock()
	return p
}

// Attach adds dev and emits a device-list change.
func (p *Platform) Attach(dev Device) {
	p.mu.Lock()
	p.devices = append(p.devices, dev)
	p.mu.Unlock()
	p.emit(device.Change{Kind: device.ChangeDeviceList})
}

// Detach removes the device with handle and emits a device-list change.
func (p *Platform) Detach(handle device.Handle) {
	p.mu.Lock()
	kept := p.devices[:0]
	for _, dev := range p.devices {
		if dev.Handle != handle {
			kept = append(kept, dev)
		}
	}
	p.devices = kept
	p.mu.Unlock()
	p.emit(device.Change{Kind: device.ChangeDeviceList})
}

// SelectDefault changes the default as if another program had done it.
func (p *Platform) SelectDefault(dir device.Direction, handle device.Handle) {
	p.mu.Lock()
	p.defaults[dir] = handle
	p.mu.Unlock()
	p.emit(device.Change{Kind: device.ChangeDefault, Direction: dir})
}

// FailSetDefault makes every following SetDefaultHandle call return err.
// A nil err restores normal behavior.
func (p *Platform) FailSetDefault(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setErr = err
}

// SetCalls returns a copy of the recorded SetDefaultHandle invocations.
func (p *Platform) SetCalls() []SetCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]SetCall(nil), p.setCalls...)
}

func (p *Platform) Handles(_ context.Context, dir device.Direction) ([]device.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	handles := make([]device.Handle, 0, len(p.devices))
	for _, dev := range p.devices {
		if dev.Direction == dir {
			handles = append(handles, dev.Handle)
		}
	}
	return handles, nil
}

func (p *Platform) Describe(_ context.Context, handle device.Handle) (device.Properties, error) {
	dev, err := p.lookup(handle)
	if err != nil {
		return device.Properties{}, err
	}
	if dev.DescribeErr != nil {
		return device.Properties{}, dev.DescribeErr
	}
	return dev.Props, nil
}

func (p *Platform) CanBeDefault(_ context.Context, handle device.Handle, dir device.Direction) (bool, error) {
	dev, err := p.lookup(handle)
	if err != nil {
		return false, err
	}
	return dev.Eligible && dev.Direction == dir, nil
}

func (p *Platform) DefaultHandle(_ context.Context, dir device.Direction) (device.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	handle, ok := p.defaults[dir]
	if !ok {
		return 0, fmt.Errorf("no default %s device", dir)
	}
	return handle, nil
}

func (p *Platform) SetDefaultHandle(_ context.Context, dir device.Direction, handle device.Handle) error {
	p.mu.Lock()
	p.setCalls = append(p.setCalls, SetCall{Direction: dir, Handle: handle})
	if p.setErr != nil {
		err := p.setErr
		p.mu.Unlock()
		return err
	}
	found := false
	for _, dev := range p.devices {
		if dev.Handle == handle && dev.Direction == dir {
			found = true
			break
		}
	}
	if !found {
		p.mu.Unlock()
		return fmt.Errorf("set default %s %d: %w", dir, handle, ErrUnknownHandle)
	}
	p.defaults[dir] = handle
	p.mu.Unlock()

	p.emit(device.Change{Kind: device.ChangeDefault, Direction: dir})
	return nil
}

// Watch forwards simulated notifications to changes until ctx is done.
func (p *Platform) Watch(ctx context.Context, changes chan<- device.Change) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case change := <-p.changes:
			select {
			case changes <- change:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func (p *Platform) lookup(handle device.Handle) (Device, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, dev := range p.devices {
		if dev.Handle == handle {
			return dev, nil
		}
	}
	return Device{}, fmt.Errorf("device %d: %w", handle, ErrUnknownHandle)
}

// emit drops the change when nobody drains the queue; a later change still
// triggers a full pass.
func (p *Platform) emit(change device.Change) {
	select {
	case p.changes <- change:
	default:
	}
}
