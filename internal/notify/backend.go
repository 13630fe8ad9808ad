package notify

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rbright/audioanchor/internal/config"
)

// NewPoster selects the delivery backend named by cfg.Backend. It returns nil
// when notifications are disabled.
func NewPoster(cfg config.NotifyConfig) (Poster, error) {
	if !cfg.Enable {
		return nil, nil
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "desktop":
		return &DesktopPoster{AppName: cfg.AppName, TimeoutMS: cfg.TimeoutMS}, nil
	case "hypr":
		return HyprPoster{TimeoutMS: cfg.TimeoutMS}, nil
	case "beeep":
		return BeeepPoster{}, nil
	case "command":
		return CommandPoster{Argv: cfg.Command.Argv}, nil
	default:
		return nil, fmt.Errorf("unsupported notify backend %q", cfg.Backend)
	}
}

// FromConfig builds a Notifier wired to the configured backend and chime.
func FromConfig(cfg config.NotifyConfig, logger *slog.Logger) (*Notifier, error) {
	poster, err := NewPoster(cfg)
	if err != nil {
		return nil, err
	}

	opts := Options{
		Throttle: time.Duration(cfg.ThrottleMS) * time.Millisecond,
		Logger:   logger,
	}
	if cfg.ThrottleMS == 0 {
		// An explicit zero disables throttling.
		opts.Throttle = time.Nanosecond
	}
	if cfg.Sound {
		opts.Chime = PulseChime{AppName: cfg.AppName}
	}
	return New(poster, opts), nil
}
