package device

import (
	"context"
	"log/slog"
	"sync"
)

// Directory enumerates eligible devices through a Platform and resolves the
// platform default back to a device identity.
type Directory struct {
	platform Platform
	logger   *slog.Logger

	mu        sync.Mutex
	snapshots map[Direction][]Descriptor
}

// NewDirectory constructs a directory over platform. A nil logger discards.
func NewDirectory(platform Platform, logger *slog.Logger) *Directory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Directory{
		platform:  platform,
		logger:    logger,
		snapshots: make(map[Direction][]Descriptor, len(Directions)),
	}
}

// ListDevices returns a fresh snapshot of the devices that can serve as the
// default for dir. Per-device query failures degrade to defaults and never
// abort the listing.
func (d *Directory) ListDevices(ctx context.Context, dir Direction) []Descriptor {
	handles, err := d.platform.Handles(ctx, dir)
	if err != nil {
		d.logger.Warn("list device handles failed", "direction", string(dir), "error", err.Error())
		d.remember(dir, nil)
		return nil
	}

	devices := make([]Descriptor, 0, len(handles))
	for _, handle := range handles {
		eligible, err := d.platform.CanBeDefault(ctx, handle, dir)
		if err != nil {
			d.logger.Debug("eligibility query failed", "direction", string(dir), "handle", uint32(handle), "error", err.Error())
			continue
		}
		if !eligible {
			continue
		}
		devices = append(devices, d.describe(ctx, dir, handle))
	}

	d.remember(dir, devices)
	return devices
}

// CurrentDefaultIdentity resolves the platform default handle against the
// latest ListDevices snapshot for dir.
func (d *Directory) CurrentDefaultIdentity(ctx context.Context, dir Direction) (string, bool) {
	handle, err := d.platform.DefaultHandle(ctx, dir)
	if err != nil {
		d.logger.Debug("default handle query failed", "direction", string(dir), "error", err.Error())
		return "", false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dev := range d.snapshots[dir] {
		if dev.Handle == handle {
			return dev.Identity, true
		}
	}
	return "", false
}

// Lookup finds identity in the latest snapshot for dir.
func (d *Directory) Lookup(dir Direction, identity string) (Descriptor, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, dev := range d.snapshots[dir] {
		if dev.Identity == identity {
			return dev, true
		}
	}
	return Descriptor{}, false
}

// SetDefault forwards to the platform without consulting any priority order.
func (d *Directory) SetDefault(ctx context.Context, dir Direction, handle Handle) error {
	return d.platform.SetDefaultHandle(ctx, dir, handle)
}

func (d *Directory) describe(ctx context.Context, dir Direction, handle Handle) Descriptor {
	props, err := d.platform.Describe(ctx, handle)
	if err != nil {
		d.logger.Debug("device properties query failed", "direction", string(dir), "handle", uint32(handle), "error", err.Error())
		props = Properties{}
	}
	if props.Name == "" {
		props.Name = UnknownName
	}
	if props.Transport == "" {
		props.Transport = TransportUnknown
	}

	identity := props.UID
	if identity == "" {
		identity = FallbackIdentity(props.Manufacturer, props.Transport, handle)
	}

	return Descriptor{
		Identity:     identity,
		DisplayName:  props.Name,
		Manufacturer: props.Manufacturer,
		Direction:    dir,
		Transport:    props.Transport,
		Handle:       handle,
		Eligible:     true,
	}
}

func (d *Directory) remember(dir Direction, devices []Descriptor) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snapshots[dir] = devices
}
