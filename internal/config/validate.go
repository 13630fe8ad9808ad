package config

import (
	"fmt"
	"strings"
)

var (
	validBackends       = []string{"pulse", "memory"}
	validNotifyBackends = []string{"desktop", "hypr", "beeep", "command"}
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if !oneOf(backend, validBackends) {
		return nil, fmt.Errorf("backend must be one of: %s", strings.Join(validBackends, ", "))
	}

	if cfg.Monitor.PollIntervalMS < 50 {
		return nil, fmt.Errorf("monitor.poll_interval_ms must be >= 50")
	}
	if cfg.Monitor.CallTimeoutMS <= 0 {
		return nil, fmt.Errorf("monitor.call_timeout_ms must be > 0")
	}
	if cfg.Monitor.PollIntervalMS > 10000 {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("monitor.poll_interval_ms=%d delays reaction to device changes", cfg.Monitor.PollIntervalMS)})
	}

	notifyBackend := strings.ToLower(strings.TrimSpace(cfg.Notify.Backend))
	if notifyBackend == "" {
		return nil, fmt.Errorf("notify.backend must not be empty")
	}
	if !oneOf(notifyBackend, validNotifyBackends) {
		return nil, fmt.Errorf("notify.backend must be one of: %s", strings.Join(validNotifyBackends, ", "))
	}
	if notifyBackend == "desktop" && strings.TrimSpace(cfg.Notify.AppName) == "" {
		return nil, fmt.Errorf("notify.app_name must not be empty when notify.backend=desktop")
	}
	if notifyBackend == "command" && cfg.Notify.Enable && len(cfg.Notify.Command.Argv) == 0 {
		return nil, fmt.Errorf("notify.command must not be empty when notify.backend=command")
	}
	if notifyBackend != "command" && cfg.Notify.Command.Raw != "" {
		warnings = append(warnings, Warning{Message: fmt.Sprintf("notify.command is ignored when notify.backend=%s", notifyBackend)})
	}
	if cfg.Notify.TimeoutMS < 0 {
		return nil, fmt.Errorf("notify.timeout_ms must be >= 0")
	}
	if cfg.Notify.ThrottleMS < 0 {
		return nil, fmt.Errorf("notify.throttle_ms must be >= 0")
	}
	if cfg.Notify.Sound && backend == "memory" {
		warnings = append(warnings, Warning{Message: "notify.sound plays through the pulse server even when backend=memory"})
	}

	if !cfg.AutoSwitch.Input && !cfg.AutoSwitch.Output {
		warnings = append(warnings, Warning{Message: "auto_switch is disabled for both directions; priorities are only enforced after `auto <dir> on`"})
	}

	return warnings, nil
}

func oneOf(value string, allowed []string) bool {
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	return false
}
