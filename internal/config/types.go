// Package config resolves, parses, validates, and defaults audioanchor configuration.
package config

// Config is the fully materialized runtime configuration used by audioanchor.
type Config struct {
	Backend    string
	AutoSwitch AutoSwitchConfig
	Priority   PriorityConfig
	Store      StoreConfig
	Monitor    MonitorConfig
	Notify     NotifyConfig
	Debug      DebugConfig
}

// AutoSwitchConfig holds the initial enforcement flags used until a flag has
// been persisted for a direction.
type AutoSwitchConfig struct {
	Input  bool
	Output bool
}

// PriorityConfig controls automatic maintenance of the saved order.
type PriorityConfig struct {
	AutoMerge bool
}

// StoreConfig locates the persisted priority file. An empty Path resolves to
// the XDG data location.
type StoreConfig struct {
	Path string
}

// MonitorConfig controls change detection and platform call bounds.
type MonitorConfig struct {
	PollIntervalMS int
	CallTimeoutMS  int
	WatchStore     bool
}

// NotifyConfig controls switch announcements.
type NotifyConfig struct {
	Enable     bool
	Backend    string
	AppName    string
	TimeoutMS  int
	ThrottleMS int
	Sound      bool
	Command    CommandConfig
}

// CommandConfig stores a raw command string and its parsed argv form.
type CommandConfig struct {
	Raw  string
	Argv []string
}

// DebugConfig controls verbose logging.
type DebugConfig struct {
	Verbose bool
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
