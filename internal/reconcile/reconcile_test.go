package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/memaudio"
	"github.com/rbright/audioanchor/internal/store"
)

type fixedSwitches map[device.Direction]bool

func (f fixedSwitches) AutoSwitchEnabled(dir device.Direction) bool { return f[dir] }

type harness struct {
	platform   *memaudio.Platform
	priorities *store.Priorities
	reconciler *Reconciler
}

func newHarness(t *testing.T, enabled bool) harness {
	t.Helper()

	platform := memaudio.New()
	priorities := store.NewPriorities(store.NewMemoryKV(), nil)
	switches := fixedSwitches{device.Input: enabled, device.Output: enabled}
	return harness{
		platform:   platform,
		priorities: priorities,
		reconciler: New(device.NewDirectory(platform, nil), priorities, switches, nil),
	}
}

func (h harness) attach(dir device.Direction, handle device.Handle, uid string, name string, transport device.Transport) {
	h.platform.Attach(memaudio.Device{
		Handle:    handle,
		Direction: dir,
		Props:     device.Properties{UID: uid, Name: name, Transport: transport},
		Eligible:  true,
	})
}

func TestReconcileScenarioSwitchesWithoutPrevious(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Input, store.List{
		{Name: "Studio Mic", UID: "X1"},
		{Name: "Laptop Mic", UID: "X2"},
	}))
	h.attach(device.Input, 7, "X2", "Laptop Mic", device.TransportBuiltIn)

	action := h.reconciler.Reconcile(context.Background(), device.Input)
	require.Equal(t, KindSwitched, action.Kind)
	require.Equal(t, "X2", action.Identity)
	require.Equal(t, "Laptop Mic", action.DisplayName)
	require.False(t, action.HasPrevious)
	require.Empty(t, action.PreviousName)

	require.Equal(t, []memaudio.SetCall{{Direction: device.Input, Handle: 7}}, h.platform.SetCalls())
	handle, err := h.platform.DefaultHandle(context.Background(), device.Input)
	require.NoError(t, err)
	require.Equal(t, device.Handle(7), handle)
}

func TestReconcileScenarioNoDevicesAvailable(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Input, store.List{
		{Name: "Studio Mic", UID: "X1"},
		{Name: "Laptop Mic", UID: "X2"},
	}))

	action := h.reconciler.Reconcile(context.Background(), device.Input)
	require.Equal(t, KindNoAction, action.Kind)
	require.Empty(t, h.platform.SetCalls())
}

func TestReconcileAutoSwitchDisabledIsNoAction(t *testing.T) {
	h := newHarness(t, false)
	require.NoError(t, h.priorities.Save(device.Output, store.List{{Name: "Dock", UID: "dock"}}))
	h.attach(device.Output, 3, "dock", "Dock", device.TransportUSB)

	action := h.reconciler.Reconcile(context.Background(), device.Output)
	require.False(t, action.Switched())
	require.Empty(t, h.platform.SetCalls())
}

func TestReconcileIsIdempotent(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Output, store.List{{UID: "hdmi"}, {UID: "spk"}}))
	h.attach(device.Output, 1, "spk", "Speakers", device.TransportBuiltIn)
	h.attach(device.Output, 2, "hdmi", "Monitor", device.TransportHDMI)
	h.platform.SelectDefault(device.Output, 1)

	first := h.reconciler.Reconcile(context.Background(), device.Output)
	require.True(t, first.Switched())
	require.Equal(t, "hdmi", first.Identity)
	require.True(t, first.HasPrevious)
	require.Equal(t, "Speakers", first.PreviousName)

	second := h.reconciler.Reconcile(context.Background(), device.Output)
	require.Equal(t, KindNoAction, second.Kind)
	require.Len(t, h.platform.SetCalls(), 1)
}

func TestReconcilePositionalTieBreak(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Input, store.List{{UID: "A"}, {UID: "B"}, {UID: "C"}}))
	// C is attached first and has the "better" transport; order still wins.
	h.attach(device.Input, 30, "C", "C Mic", device.TransportBuiltIn)
	h.attach(device.Input, 20, "B", "B Mic", device.TransportBluetooth)

	action := h.reconciler.Reconcile(context.Background(), device.Input)
	require.True(t, action.Switched())
	require.Equal(t, "B", action.Identity)
	require.Equal(t, device.Handle(20), action.Handle)
}

func TestReconcileAlreadyCorrectMakesNoPlatformCall(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Input, store.List{{UID: "A"}, {UID: "B"}}))
	h.attach(device.Input, 1, "A", "A Mic", device.TransportUSB)
	h.attach(device.Input, 2, "B", "B Mic", device.TransportUSB)
	h.platform.SelectDefault(device.Input, 1)

	action := h.reconciler.Reconcile(context.Background(), device.Input)
	require.Equal(t, KindNoAction, action.Kind)
	require.Empty(t, h.platform.SetCalls())
}

func TestReconcileIgnoresDevicesAbsentFromList(t *testing.T) {
	h := newHarness(t, true)
	h.attach(device.Input, 5, "new", "New Mic", device.TransportUSB)

	action := h.reconciler.Reconcile(context.Background(), device.Input)
	require.Equal(t, KindNoAction, action.Kind)
	require.Empty(t, h.platform.SetCalls())

	require.NoError(t, h.priorities.Save(device.Input, store.List{{Name: "New Mic", UID: "new"}}))
	action = h.reconciler.Reconcile(context.Background(), device.Input)
	require.True(t, action.Switched())
}

func TestReconcileSetDefaultFailureIsNoAction(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Input, store.List{{UID: "A"}}))
	h.attach(device.Input, 1, "A", "A Mic", device.TransportUSB)
	h.platform.FailSetDefault(errors.New("device vanished"))

	action := h.reconciler.Reconcile(context.Background(), device.Input)
	require.Equal(t, KindNoAction, action.Kind)
	require.Len(t, h.platform.SetCalls(), 1)
	require.Equal(t, []string{"A"}, h.priorities.Load(device.Input).UIDs())
}

func TestReconcileDirectionsAreIndependent(t *testing.T) {
	h := newHarness(t, true)
	require.NoError(t, h.priorities.Save(device.Input, store.List{{UID: "mic"}}))
	h.attach(device.Input, 1, "mic", "Mic", device.TransportUSB)
	h.attach(device.Output, 2, "spk", "Speakers", device.TransportUSB)

	require.False(t, h.reconciler.Reconcile(context.Background(), device.Output).Switched())
	require.True(t, h.reconciler.Reconcile(context.Background(), device.Input).Switched())
}
