package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rbright/audioanchor/internal/config"
	"github.com/rbright/audioanchor/internal/device"
	"github.com/rbright/audioanchor/internal/engine"
	"github.com/rbright/audioanchor/internal/health"
	"github.com/rbright/audioanchor/internal/ipc"
	"github.com/rbright/audioanchor/internal/memaudio"
	"github.com/rbright/audioanchor/internal/monitor"
	"github.com/rbright/audioanchor/internal/notify"
	"github.com/rbright/audioanchor/internal/pulseaudio"
	"github.com/rbright/audioanchor/internal/store"
)

// backend bundles the platform capability with its change source.
type backend struct {
	platform device.Platform
	watcher  device.Watcher
	close    func()
}

func newBackend(cfg config.Config, logger *slog.Logger) (backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "pulse":
		platform := pulseaudio.New(pulseaudio.Options{AppName: cfg.Notify.AppName, Logger: logger})
		poll := time.Duration(cfg.Monitor.PollIntervalMS) * time.Millisecond
		return backend{
			platform: platform,
			watcher:  pulseaudio.NewPoller(platform, poll),
			close:    platform.Close,
		}, nil
	case "memory":
		platform := memaudio.NewWithBuiltins()
		return backend{platform: platform, watcher: platform, close: func() {}}, nil
	default:
		return backend{}, fmt.Errorf("unsupported backend %q", cfg.Backend)
	}
}

// commandRun owns the control socket and runs the event loop until ctx is
// cancelled.
func (r Runner) commandRun(ctx context.Context, cfg config.Config, logger *slog.Logger) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	listener, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintf(r.Stderr, "error: %v (socket=%s)\n", err, socketPath)
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = listener.Close()
		_ = os.Remove(socketPath)
	}()

	storePath, err := config.ResolveStorePath(cfg.Store)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	be, err := newBackend(cfg, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer be.close()

	notifier, err := notify.FromConfig(cfg.Notify, logger)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	eng, err := engine.New(engine.Options{
		Platform:    be.platform,
		KV:          store.NewFileKV(storePath),
		Notifier:    notifier,
		AutoSwitch:  cfg.AutoSwitch,
		AutoMerge:   cfg.Priority.AutoMerge,
		CallTimeout: time.Duration(cfg.Monitor.CallTimeoutMS) * time.Millisecond,
		Logger:      logger,
	})
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	healthPath, err := ipc.RuntimePath(health.SocketName)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	healthSrv, healthListener, err := health.Listen(healthPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	mon := monitor.New(eng, 0, logger)
	eng.SetPoster(mon)

	var (
		wg      sync.WaitGroup
		errMu   sync.Mutex
		runErrs []error
	)
	spawn := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(runCtx); err != nil {
				logger.Error("daemon component failed", "component", name, "error", err.Error())
				errMu.Lock()
				runErrs = append(runErrs, fmt.Errorf("%s: %w", name, err))
				errMu.Unlock()
				cancel()
			}
		}()
	}

	spawn("health", func(ctx context.Context) error { return healthSrv.Serve(ctx, healthListener) })
	spawn("monitor", mon.Run)
	spawn("platform watcher", func(ctx context.Context) error { return mon.Forward(ctx, be.watcher) })
	if cfg.Monitor.WatchStore {
		spawn("store watcher", func(ctx context.Context) error {
			// External edits then only apply on the next device event.
			if err := mon.WatchStore(ctx, storePath, monitor.DefaultStoreCooldown); err != nil {
				logger.Warn("priority store watch disabled", "error", err.Error())
			}
			return nil
		})
	}

	eng.Prime(runCtx)
	if err := mon.Post(runCtx, monitor.Trigger("")); err != nil {
		logger.Warn("queue startup pass failed", "error", err.Error())
	}
	healthSrv.SetServing(true)

	logger.Info("daemon started",
		"backend", cfg.Backend,
		"store", storePath,
		"socket", socketPath,
		"health", healthPath,
	)
	fmt.Fprintf(r.Stdout, "%s daemon running (socket=%s)\n", binaryName, socketPath)

	serveErr := ipc.Serve(runCtx, listener, eng)
	healthSrv.SetServing(false)
	cancel()
	wg.Wait()

	logger.Info("daemon stopped")
	if serveErr != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", serveErr)
		return 1
	}
	if len(runErrs) > 0 {
		fmt.Fprintf(r.Stderr, "error: %v\n", errors.Join(runErrs...))
		return 1
	}
	return 0
}
