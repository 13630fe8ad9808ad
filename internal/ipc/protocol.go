package ipc

// Command names accepted by the daemon.
const (
	CommandStatus    = "status"
	CommandDevices   = "devices"
	CommandList      = "list"
	CommandSetOrder  = "set-order"
	CommandMove      = "move"
	CommandRemove    = "remove"
	CommandMerge     = "merge"
	CommandAuto      = "auto"
	CommandUse       = "use"
	CommandReconcile = "reconcile"
)

// Request is one JSON line sent by a client. Fields beyond Command are read
// only by the commands that need them.
type Request struct {
	Command   string  `json:"command"`
	Direction string  `json:"direction,omitempty"`
	UID       string  `json:"uid,omitempty"`
	Position  int     `json:"position,omitempty"`
	Enabled   *bool   `json:"enabled,omitempty"`
	Entries   []Entry `json:"entries,omitempty"`
}

// Response is the single JSON line written back for a Request.
type Response struct {
	OK      bool              `json:"ok"`
	State   string            `json:"state,omitempty"`
	Message string            `json:"message,omitempty"`
	Error   string            `json:"error,omitempty"`
	Devices []Device          `json:"devices,omitempty"`
	Entries []Entry           `json:"entries,omitempty"`
	Status  []DirectionStatus `json:"status,omitempty"`
}

// Device is a live device as reported to clients.
type Device struct {
	Direction    string `json:"direction"`
	UID          string `json:"uid"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Transport    string `json:"transport"`
	Icon         string `json:"icon"`
	Handle       uint32 `json:"handle"`
	Default      bool   `json:"default"`
	Listed       bool   `json:"listed"`
}

// Entry is one priority list element. Available is set in responses only.
type Entry struct {
	Name      string `json:"name"`
	UID       string `json:"uid"`
	Available bool   `json:"available,omitempty"`
}

// DirectionStatus is the enforcement snapshot for one direction.
type DirectionStatus struct {
	Direction   string `json:"direction"`
	AutoSwitch  bool   `json:"auto_switch"`
	State       string `json:"state"`
	DefaultUID  string `json:"default_uid,omitempty"`
	DefaultName string `json:"default_name,omitempty"`
	LastAction  string `json:"last_action,omitempty"`
	LastTarget  string `json:"last_target,omitempty"`
	LastPassAt  string `json:"last_pass_at,omitempty"`
	Passes      int    `json:"passes"`
	Switches    int    `json:"switches"`
}
