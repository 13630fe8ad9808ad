package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultStoreCooldown coalesces the double writes many editors perform.
const DefaultStoreCooldown = 250 * time.Millisecond

// WatchStore posts a store-changed event after the file at path is written,
// created, or replaced and then stays quiet for cooldown. The parent
// directory is watched so atomic rename-over writes are observed.
func (m *Monitor) WatchStore(ctx context.Context, path string, cooldown time.Duration) error {
	if cooldown <= 0 {
		cooldown = DefaultStoreCooldown
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create store watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch store dir %q: %w", dir, err)
	}
	m.logger.Debug("watching priority store", "path", path)

	target := filepath.Clean(path)
	relevant := fsnotify.Write | fsnotify.Create | fsnotify.Rename

	// Reset and Stop discard stale ticks on go1.23+ timers, so no draining.
	timer := time.NewTimer(cooldown)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || event.Op&relevant == 0 {
				continue
			}
			timer.Reset(cooldown)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("priority store watcher error", "error", err.Error())
		case <-timer.C:
			m.logger.Debug("priority store changed on disk", "path", path)
			if err := m.Post(ctx, Event{Kind: KindStore}); err != nil {
				return nil
			}
		}
	}
}
