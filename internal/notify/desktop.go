package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// DesktopPoster sends freedesktop notifications over DBus via busctl. Each
// notification replaces the previous one so bursts do not stack.
type DesktopPoster struct {
	AppName   string
	TimeoutMS int

	mu        sync.Mutex
	replaceID uint32
}

func (d *DesktopPoster) Post(ctx context.Context, title string, body string) error {
	d.mu.Lock()
	replaceID := d.replaceID
	d.mu.Unlock()

	id, err := desktopNotify(ctx, d.AppName, replaceID, title, body, d.TimeoutMS)
	if err != nil {
		return err
	}

	d.mu.Lock()
	d.replaceID = id
	d.mu.Unlock()
	return nil
}

// desktopNotify calls org.freedesktop.Notifications.Notify and returns the
// notification ID assigned by the server.
func desktopNotify(ctx context.Context, appName string, replaceID uint32, summary string, body string, timeoutMS int) (uint32, error) {
	args := []string{
		"--user",
		"call",
		"org.freedesktop.Notifications",
		"/org/freedesktop/Notifications",
		"org.freedesktop.Notifications",
		"Notify",
		"susssasa{sv}i",
		appName,
		strconv.FormatUint(uint64(replaceID), 10),
		"audio-card",
		summary,
		body,
		"0", // actions array length
		"0", // hints map length
		strconv.Itoa(timeoutMS),
	}

	out, err := exec.CommandContext(ctx, "busctl", args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return 0, fmt.Errorf("desktop notify failed: %w", err)
		}
		return 0, fmt.Errorf("desktop notify failed: %w (%s)", err, trimmed)
	}

	fields := strings.Fields(strings.TrimSpace(string(out)))
	if len(fields) < 2 || fields[0] != "u" {
		return 0, fmt.Errorf("desktop notify invalid response: %q", strings.TrimSpace(string(out)))
	}

	value, parseErr := strconv.ParseUint(fields[1], 10, 32)
	if parseErr != nil {
		return 0, fmt.Errorf("desktop notify parse id %q: %w", fields[1], parseErr)
	}
	return uint32(value), nil
}
