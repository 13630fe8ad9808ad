// Package app dispatches parsed audioanchor commands to the daemon or to the
// local tooling.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/audioanchor/internal/cli"
	"github.com/rbright/audioanchor/internal/config"
	"github.com/rbright/audioanchor/internal/doctor"
	"github.com/rbright/audioanchor/internal/ipc"
	"github.com/rbright/audioanchor/internal/logging"
	"github.com/rbright/audioanchor/internal/version"
)

const (
	binaryName     = "audioanchor"
	forwardTimeout = 5 * time.Second
)

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText(binaryName))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText(binaryName))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}
	logRuntime.SetVerbose(cfgLoaded.Config.Debug.Verbose)

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandRun:
		return r.commandRun(ctx, cfgLoaded.Config, logger)
	case cli.CommandDoctor:
		report := doctor.Run(ctx, cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandStatus:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandStatus}, r.printStatus)
	case cli.CommandDevices:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandDevices, Direction: string(parsed.Direction)}, r.printDevices)
	case cli.CommandList:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandList, Direction: string(parsed.Direction)}, r.printEntries)
	case cli.CommandSetOrder:
		entries := make([]ipc.Entry, 0, len(parsed.UIDs))
		for _, uid := range parsed.UIDs {
			entries = append(entries, ipc.Entry{UID: uid})
		}
		return r.forward(ctx, ipc.Request{Command: ipc.CommandSetOrder, Direction: string(parsed.Direction), Entries: entries}, r.printEntries)
	case cli.CommandMove:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandMove, Direction: string(parsed.Direction), UID: parsed.UID, Position: parsed.Position}, r.printEntries)
	case cli.CommandRemove:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandRemove, Direction: string(parsed.Direction), UID: parsed.UID}, r.printEntries)
	case cli.CommandMerge:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandMerge, Direction: string(parsed.Direction)}, r.printEntries)
	case cli.CommandAuto:
		enabled := parsed.Enabled
		return r.forward(ctx, ipc.Request{Command: ipc.CommandAuto, Direction: string(parsed.Direction), Enabled: &enabled}, r.printMessage)
	case cli.CommandUse:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandUse, Direction: string(parsed.Direction), UID: parsed.UID}, r.printMessage)
	case cli.CommandReconcile:
		return r.forward(ctx, ipc.Request{Command: ipc.CommandReconcile, Direction: string(parsed.Direction)}, r.printMessage)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)
		return 2
	}
}

// forward sends req to the running daemon and renders the response.
func (r Runner) forward(ctx context.Context, req ipc.Request, render func(ipc.Response)) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintf(r.Stderr, "error: %s daemon is not running (start it with `%s run`)\n", binaryName, binaryName)
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	render(resp)
	return 0
}

func (r Runner) printMessage(resp ipc.Response) {
	if resp.Message != "" {
		fmt.Fprintln(r.Stdout, resp.Message)
	}
}

func (r Runner) printStatus(resp ipc.Response) {
	for _, st := range resp.Status {
		def := "none"
		if st.DefaultUID != "" {
			def = fmt.Sprintf("%q (%s)", st.DefaultName, st.DefaultUID)
		}
		last := st.LastAction
		if last == "" {
			last = "none"
		}
		if st.LastTarget != "" {
			last += " -> " + st.LastTarget
		}
		fmt.Fprintf(r.Stdout, "%-6s auto=%s state=%s default=%s last=%s passes=%d switches=%d\n",
			st.Direction,
			onOff(st.AutoSwitch),
			st.State,
			def,
			last,
			st.Passes,
			st.Switches,
		)
	}
}

func (r Runner) printDevices(resp ipc.Response) {
	if len(resp.Devices) == 0 {
		fmt.Fprintln(r.Stdout, "no audio devices found")
		return
	}
	for _, dev := range resp.Devices {
		defaultMark := " "
		if dev.Default {
			defaultMark = "*"
		}
		fmt.Fprintf(r.Stdout, "%s %-6s uid=%s | name=%q | transport=%s | listed=%s\n",
			defaultMark,
			dev.Direction,
			dev.UID,
			dev.Name,
			dev.Transport,
			yesNo(dev.Listed),
		)
	}
}

func (r Runner) printEntries(resp ipc.Response) {
	r.printMessage(resp)
	if len(resp.Entries) == 0 {
		fmt.Fprintln(r.Stdout, "priority list is empty")
		return
	}
	for i, entry := range resp.Entries {
		state := "offline"
		if entry.Available {
			state = "online"
		}
		fmt.Fprintf(r.Stdout, "%d. %s (%s) [%s]\n", i, entry.Name, entry.UID, state)
	}
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if ipc.IsUnavailable(err) || strings.Contains(err.Error(), "no such file or directory") {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func onOff(enabled bool) string {
	if enabled {
		return "on"
	}
	return "off"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
