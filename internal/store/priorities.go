package store

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/rbright/audioanchor/internal/device"
)

// Persisted key names.
const (
	KeyInputOrder    = "DeviceOrder"
	KeyOutputOrder   = "OutputDeviceOrder"
	KeyInputEnabled  = "ForceInputEnabled"
	KeyOutputEnabled = "ForceOutputEnabled"
)

// Entry is one persisted priority record. Index 0 of a List is the highest
// priority.
type Entry struct {
	Name string `json:"name"`
	UID  string `json:"uid"`
}

// List is an ordered priority list for one direction.
type List []Entry

// Index returns the position of uid, or -1.
func (l List) Index(uid string) int {
	for i, entry := range l {
		if entry.UID == uid {
			return i
		}
	}
	return -1
}

// UIDs returns the identities in priority order.
func (l List) UIDs() []string {
	out := make([]string, 0, len(l))
	for _, entry := range l {
		out = append(out, entry.UID)
	}
	return out
}

// Priorities loads and saves priority lists and auto-switch flags.
type Priorities struct {
	kv     KV
	logger *slog.Logger
}

func NewPriorities(kv KV, logger *slog.Logger) *Priorities {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Priorities{kv: kv, logger: logger}
}

// Load returns the saved list for dir. Missing or undecodable data yields an
// empty list. Duplicate uids keep their first occurrence.
func (p *Priorities) Load(dir device.Direction) List {
	raw, ok := p.kv.Get(orderKey(dir))
	if !ok {
		return List{}
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		p.logger.Warn("priority list unreadable; treating as empty", "direction", string(dir), "error", err.Error())
		return List{}
	}
	return Normalize(entries)
}

// Save overwrites the list for dir.
func (p *Priorities) Save(dir device.Direction, list List) error {
	if list == nil {
		list = List{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode %s priority list: %w", dir, err)
	}
	if err := p.kv.Set(orderKey(dir), data); err != nil {
		return fmt.Errorf("save %s priority list: %w", dir, err)
	}
	return nil
}

// AutoSwitch reports the persisted flag for dir and whether one was ever set.
func (p *Priorities) AutoSwitch(dir device.Direction) (enabled bool, set bool) {
	raw, ok := p.kv.Get(enabledKey(dir))
	if !ok {
		return false, false
	}
	if err := json.Unmarshal(raw, &enabled); err != nil {
		p.logger.Warn("auto-switch flag unreadable", "direction", string(dir), "error", err.Error())
		return false, false
	}
	return enabled, true
}

func (p *Priorities) SetAutoSwitch(dir device.Direction, enabled bool) error {
	data, _ := json.Marshal(enabled)
	if err := p.kv.Set(enabledKey(dir), data); err != nil {
		return fmt.Errorf("save %s auto-switch flag: %w", dir, err)
	}
	return nil
}

// Normalize drops entries without a uid and later duplicates of a uid.
func Normalize(entries []Entry) List {
	seen := make(map[string]struct{}, len(entries))
	out := make(List, 0, len(entries))
	for _, entry := range entries {
		if entry.UID == "" {
			continue
		}
		if _, dup := seen[entry.UID]; dup {
			continue
		}
		seen[entry.UID] = struct{}{}
		out = append(out, entry)
	}
	return out
}

// Merge appends every live device missing from list, in enumeration order, and
// refreshes the last known name of entries that are present. It never
// reorders or removes. changed reports whether the result differs from list.
func Merge(list List, devices []device.Descriptor) (merged List, changed bool) {
	merged = append(List{}, list...)
	for _, dev := range devices {
		idx := merged.Index(dev.Identity)
		if idx < 0 {
			merged = append(merged, Entry{Name: dev.DisplayName, UID: dev.Identity})
			changed = true
			continue
		}
		if dev.DisplayName != "" && dev.DisplayName != device.UnknownName && merged[idx].Name != dev.DisplayName {
			merged[idx].Name = dev.DisplayName
			changed = true
		}
	}
	return merged, changed
}

// Move relocates uid to position, clamped to the list bounds.
func Move(list List, uid string, position int) (List, error) {
	idx := list.Index(uid)
	if idx < 0 {
		return list, fmt.Errorf("device %q is not in the priority list", uid)
	}
	if position < 0 {
		position = 0
	}
	if position >= len(list) {
		position = len(list) - 1
	}

	entry := list[idx]
	out := make(List, 0, len(list))
	out = append(out, list[:idx]...)
	out = append(out, list[idx+1:]...)
	out = append(out[:position], append(List{entry}, out[position:]...)...)
	return out, nil
}

// Remove deletes uid from list. removed is false when uid was absent.
func Remove(list List, uid string) (out List, removed bool) {
	out = make(List, 0, len(list))
	for _, entry := range list {
		if entry.UID == uid {
			removed = true
			continue
		}
		out = append(out, entry)
	}
	return out, removed
}

func orderKey(dir device.Direction) string {
	if dir == device.Output {
		return KeyOutputOrder
	}
	return KeyInputOrder
}

func enabledKey(dir device.Direction) string {
	if dir == device.Output {
		return KeyOutputEnabled
	}
	return KeyInputEnabled
}
