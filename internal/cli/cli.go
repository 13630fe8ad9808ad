// Package cli parses the audioanchor command line.
package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rbright/audioanchor/internal/device"
)

type Command string

const (
	CommandRun       Command = "run"
	CommandStatus    Command = "status"
	CommandDevices   Command = "devices"
	CommandList      Command = "list"
	CommandSetOrder  Command = "set-order"
	CommandMove      Command = "move"
	CommandRemove    Command = "remove"
	CommandMerge     Command = "merge"
	CommandAuto      Command = "auto"
	CommandUse       Command = "use"
	CommandReconcile Command = "reconcile"
	CommandDoctor    Command = "doctor"
	CommandVersion   Command = "version"
	CommandHelp      Command = "help"
)

// arity bounds the positional arguments a command accepts. max < 0 means
// unbounded.
type arity struct {
	min, max int
	usage    string
}

var commands = map[Command]arity{
	CommandRun:       {0, 0, "run"},
	CommandStatus:    {0, 0, "status"},
	CommandDevices:   {0, 1, "devices [input|output]"},
	CommandList:      {1, 1, "list <input|output>"},
	CommandSetOrder:  {2, -1, "set-order <input|output> <uid>..."},
	CommandMove:      {3, 3, "move <input|output> <uid> <position>"},
	CommandRemove:    {2, 2, "remove <input|output> <uid>"},
	CommandMerge:     {1, 1, "merge <input|output>"},
	CommandAuto:      {2, 2, "auto <input|output> on|off"},
	CommandUse:       {2, 2, "use <input|output> <uid>"},
	CommandReconcile: {0, 1, "reconcile [input|output]"},
	CommandDoctor:    {0, 0, "doctor"},
	CommandVersion:   {0, 0, "version"},
	CommandHelp:      {0, 0, "help"},
}

// Parsed is one command invocation. Direction is empty when a command allows
// it to be omitted.
type Parsed struct {
	Command    Command
	ConfigPath string
	ShowHelp   bool

	Direction device.Direction
	UID       string
	UIDs      []string
	Position  int
	Enabled   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.ShowHelp = false
			parsed.Command = CommandVersion
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := commands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
			if err := parsed.bind(args[i+1:]); err != nil {
				return Parsed{}, err
			}
			return parsed, nil
		}
	}

	return parsed, nil
}

// bind validates the positional arguments of parsed.Command and stores them.
func (p *Parsed) bind(rest []string) error {
	spec := commands[p.Command]
	if len(rest) < spec.min {
		return fmt.Errorf("missing arguments: usage: %s", spec.usage)
	}
	if spec.max >= 0 && len(rest) > spec.max {
		if spec.max == 0 {
			return fmt.Errorf("unexpected arguments after command %q", p.Command)
		}
		return fmt.Errorf("too many arguments: usage: %s", spec.usage)
	}
	if len(rest) == 0 {
		return nil
	}

	dir, err := device.ParseDirection(rest[0])
	if err != nil {
		return err
	}
	p.Direction = dir

	switch p.Command {
	case CommandSetOrder:
		p.UIDs = append([]string(nil), rest[1:]...)
	case CommandMove:
		p.UID = rest[1]
		position, err := strconv.Atoi(rest[2])
		if err != nil || position < 0 {
			return fmt.Errorf("position must be a non-negative integer, got %q", rest[2])
		}
		p.Position = position
	case CommandRemove, CommandUse:
		p.UID = rest[1]
	case CommandAuto:
		enabled, err := parseOnOff(rest[1])
		if err != nil {
			return err
		}
		p.Enabled = enabled
	}
	return nil
}

func parseOnOff(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	default:
		return false, fmt.Errorf("expected on|off, got %q", raw)
	}
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] <command> [args]

Commands:
  run                                  Run the enforcement daemon
  status                               Print enforcement state per direction
  devices [input|output]               List live devices
  list <input|output>                  Print the priority list
  set-order <input|output> <uid>...    Replace the priority list
  move <input|output> <uid> <pos>      Move a device to a list position (0 = top)
  remove <input|output> <uid>          Remove a device from the priority list
  merge <input|output>                 Append newly observed devices to the list
  auto <input|output> on|off           Toggle automatic switching
  use <input|output> <uid>             Set the default now and turn auto-switch off
  reconcile [input|output]             Run a reconciliation pass now
  doctor                               Run configuration and environment checks
  version                              Print version information
  help                                 Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/audioanchor/config.jsonc)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
