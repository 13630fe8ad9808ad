// Package doctor runs runtime readiness diagnostics for config, storage, the
// audio server, notification tools, and the daemon.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rbright/audioanchor/internal/config"
	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/health"
	"github.com/rbright/audioanchor/internal/hypr"
	"github.com/rbright/audioanchor/internal/ipc"
	"github.com/rbright/audioanchor/internal/pulseaudio"
)

const probeTimeout = 2 * time.Second

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(ctx context.Context, cfg config.Loaded) Report {
	checks := []Check{}

	configMessage := fmt.Sprintf("loaded %q", cfg.Path)
	if !cfg.Exists {
		configMessage = fmt.Sprintf("not found at %q; using defaults", cfg.Path)
	}
	checks = append(checks, Check{Name: "config", Pass: true, Message: configMessage})

	checks = append(checks, checkEnv("XDG_RUNTIME_DIR", func(v string) bool {
		return strings.TrimSpace(v) != ""
	}, "runtime dir is set", "XDG_RUNTIME_DIR is empty; the daemon cannot bind its socket"))

	checks = append(checks, checkStore(cfg.Config.Store))

	if strings.EqualFold(cfg.Config.Backend, "pulse") {
		checks = append(checks, checkPulse(ctx, cfg.Config.Notify.AppName))
	} else {
		checks = append(checks, Check{Name: "backend", Pass: true, Message: fmt.Sprintf("%s backend needs no audio server", cfg.Config.Backend)})
	}

	if cfg.Config.Notify.Enable {
		switch strings.ToLower(cfg.Config.Notify.Backend) {
		case "desktop":
			checks = append(checks, checkBinary("busctl", "desktop notifications use busctl"))
		case "hypr":
			checks = append(checks, checkHypr(ctx))
		case "command":
			checks = append(checks, checkCommand(cfg.Config.Notify.Command.Argv, "notify.command"))
		}
	}

	checks = append(checks, checkDaemon(ctx))

	return Report{Checks: checks}
}

// checkEnv validates an environment variable through a caller-supplied predicate.
func checkEnv(name string, predicate func(string) bool, okMsg, failMsg string) Check {
	value := os.Getenv(name)
	if predicate(value) {
		return Check{Name: name, Pass: true, Message: okMsg}
	}
	return Check{Name: name, Pass: false, Message: failMsg}
}

// checkCommand validates that argv contains a runnable command.
func checkCommand(argv []string, name string) Check {
	if len(argv) == 0 {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	return checkBinary(argv[0], fmt.Sprintf("%s command is available", name))
}

// checkBinary validates that a binary exists in PATH.
func checkBinary(bin string, okMsg string) Check {
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: bin, Pass: false, Message: fmt.Sprintf("binary not found in PATH: %s", bin)}
	}
	return Check{Name: bin, Pass: true, Message: fmt.Sprintf("found at %s (%s)", path, okMsg)}
}

// checkHypr verifies hyprctl is installed and a compositor answers it.
func checkHypr(ctx context.Context) Check {
	check := checkBinary("hyprctl", "hypr notifications use hyprctl")
	if !check.Pass {
		return check
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	version, err := hypr.QueryVersion(ctx)
	if err != nil {
		return Check{Name: "hyprctl", Pass: false, Message: err.Error()}
	}
	tag := version.Tag
	if tag == "" {
		tag = version.Commit
	}
	return Check{Name: "hyprctl", Pass: true, Message: fmt.Sprintf("Hyprland %s reachable", tag)}
}

// checkStore verifies the priority store directory exists or can be created
// and accepts writes.
func checkStore(cfg config.StoreConfig) Check {
	path, err := config.ResolveStorePath(cfg)
	if err != nil {
		return Check{Name: "store", Pass: false, Message: err.Error()}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("create %s: %v", dir, err)}
	}
	probe, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return Check{Name: "store", Pass: false, Message: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	return Check{Name: "store", Pass: true, Message: fmt.Sprintf("priorities at %s", path)}
}

// checkPulse connects to the pulse server and counts usable devices.
func checkPulse(ctx context.Context, appName string) Check {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	platform := pulseaudio.New(pulseaudio.Options{AppName: appName})
	defer platform.Close()

	if err := platform.Ping(ctx); err != nil {
		return Check{Name: "pulse", Pass: false, Message: err.Error()}
	}

	directory := device.NewDirectory(platform, nil)
	inputs := directory.ListDevices(ctx, device.Input)
	outputs := directory.ListDevices(ctx, device.Output)
	return Check{
		Name:    "pulse",
		Pass:    true,
		Message: fmt.Sprintf("server reachable (%d input, %d output devices)", len(inputs), len(outputs)),
	}
}

// checkDaemon reports daemon liveness through the health socket. A daemon
// that is not running is informational, not a failure.
func checkDaemon(ctx context.Context) Check {
	path, err := ipc.RuntimePath(health.SocketName)
	if err != nil {
		return Check{Name: "daemon", Pass: true, Message: "not running (no runtime dir)"}
	}
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		return Check{Name: "daemon", Pass: true, Message: "not running"}
	}

	status, err := health.Check(ctx, path, probeTimeout)
	if err != nil {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("health probe failed: %v", err)}
	}
	if status != healthpb.HealthCheckResponse_SERVING {
		return Check{Name: "daemon", Pass: false, Message: fmt.Sprintf("health status %s", status)}
	}
	return Check{Name: "daemon", Pass: true, Message: "running and serving"}
}
