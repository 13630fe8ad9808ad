package device_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/memaudio"
)

func TestListDevicesFiltersIneligibleAndDirection(t *testing.T) {
	platform := memaudio.New()
	platform.Attach(memaudio.Device{Handle: 1, Direction: device.Input, Props: device.Properties{UID: "mic", Name: "Mic"}, Eligible: true})
	platform.Attach(memaudio.Device{Handle: 2, Direction: device.Input, Props: device.Properties{UID: "loop", Name: "Loopback"}, Eligible: false})
	platform.Attach(memaudio.Device{Handle: 3, Direction: device.Output, Props: device.Properties{UID: "spk", Name: "Speakers"}, Eligible: true})

	dir := device.NewDirectory(platform, nil)
	inputs := dir.ListDevices(context.Background(), device.Input)
	require.Len(t, inputs, 1)
	require.Equal(t, "mic", inputs[0].Identity)
	require.Equal(t, device.Handle(1), inputs[0].Handle)
	require.True(t, inputs[0].Eligible)

	outputs := dir.ListDevices(context.Background(), device.Output)
	require.Len(t, outputs, 1)
	require.Equal(t, "spk", outputs[0].Identity)
}

func TestListDevicesDescribeFailureUsesDefaults(t *testing.T) {
	platform := memaudio.New()
	platform.Attach(memaudio.Device{
		Handle:      9,
		Direction:   device.Input,
		Props:       device.Properties{UID: "ignored", Manufacturer: "Acme"},
		Eligible:    true,
		DescribeErr: errors.New("property read failed"),
	})
	platform.Attach(memaudio.Device{Handle: 10, Direction: device.Input, Props: device.Properties{UID: "ok", Name: "OK Mic"}, Eligible: true})

	devices := device.NewDirectory(platform, nil).ListDevices(context.Background(), device.Input)
	require.Len(t, devices, 2)
	require.Equal(t, device.UnknownName, devices[0].DisplayName)
	require.Equal(t, "", devices[0].Manufacturer)
	require.Equal(t, device.TransportUnknown, devices[0].Transport)
	require.Equal(t, "|unknown|9", devices[0].Identity)
	require.Equal(t, "ok", devices[1].Identity)
}

func TestListDevicesFallbackIdentityWithoutUID(t *testing.T) {
	platform := memaudio.New()
	platform.Attach(memaudio.Device{
		Handle:    42,
		Direction: device.Output,
		Props:     device.Properties{Name: "Dock", Manufacturer: "Acme", Transport: device.TransportUSB},
		Eligible:  true,
	})

	devices := device.NewDirectory(platform, nil).ListDevices(context.Background(), device.Output)
	require.Len(t, devices, 1)
	require.Equal(t, "Acme|usb|42", devices[0].Identity)
	require.Equal(t, "Dock", devices[0].DisplayName)
}

func TestCurrentDefaultIdentityResolvesAgainstSnapshot(t *testing.T) {
	platform := memaudio.NewWithBuiltins()
	dir := device.NewDirectory(platform, nil)

	_, ok := dir.CurrentDefaultIdentity(context.Background(), device.Input)
	require.False(t, ok, "no snapshot taken yet")

	dir.ListDevices(context.Background(), device.Input)
	identity, ok := dir.CurrentDefaultIdentity(context.Background(), device.Input)
	require.True(t, ok)
	require.Equal(t, "builtin-microphone", identity)
}

func TestCurrentDefaultIdentityMissingDefault(t *testing.T) {
	platform := memaudio.New()
	platform.Attach(memaudio.Device{Handle: 1, Direction: device.Input, Props: device.Properties{UID: "mic"}, Eligible: true})

	dir := device.NewDirectory(platform, nil)
	dir.ListDevices(context.Background(), device.Input)
	_, ok := dir.CurrentDefaultIdentity(context.Background(), device.Input)
	require.False(t, ok)
}

func TestLookupFindsSnapshotEntry(t *testing.T) {
	dir := device.NewDirectory(memaudio.NewWithBuiltins(), nil)
	dir.ListDevices(context.Background(), device.Output)

	dev, ok := dir.Lookup(device.Output, "builtin-speakers")
	require.True(t, ok)
	require.Equal(t, "Built-in Speakers", dev.DisplayName)

	_, ok = dir.Lookup(device.Output, "missing")
	require.False(t, ok)
}
