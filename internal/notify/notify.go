// Package notify announces default-device switches to the user.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rbright/audioanchor/internal/device"
)

const (
	// DefaultThrottle is the minimum gap between two announcements.
	DefaultThrottle = time.Second

	dispatchTimeout = 2 * time.Second
)

// Poster delivers one user-visible notification.
type Poster interface {
	Post(ctx context.Context, title string, body string) error
}

// PosterFunc adapts a function into a Poster.
type PosterFunc func(ctx context.Context, title string, body string) error

func (f PosterFunc) Post(ctx context.Context, title string, body string) error {
	return f(ctx, title, body)
}

// Chime plays a short audible cue after a switch.
type Chime interface {
	Play(ctx context.Context) error
}

// Options tunes a Notifier. Zero values select defaults.
type Options struct {
	Throttle time.Duration
	Chime    Chime
	Logger   *slog.Logger
	Now      func() time.Time
}

// Notifier rate-limits announcements across both directions.
type Notifier struct {
	poster   Poster
	chime    Chime
	logger   *slog.Logger
	throttle time.Duration
	now      func() time.Time
	messages messages

	mu      sync.Mutex
	last    time.Time
	hasLast bool

	chimeMu sync.Mutex
}

// New constructs a Notifier. A nil poster disables delivery but keeps the
// throttle bookkeeping.
func New(poster Poster, opts Options) *Notifier {
	if opts.Throttle <= 0 {
		opts.Throttle = DefaultThrottle
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	return &Notifier{
		poster:   poster,
		chime:    opts.Chime,
		logger:   opts.Logger,
		throttle: opts.Throttle,
		now:      opts.Now,
		messages: englishMessages(),
	}
}

// Announce reports a switch for dir. It returns false when the announcement
// was suppressed by the throttle. Delivery failures are logged and dropped.
func (n *Notifier) Announce(ctx context.Context, dir device.Direction, newName string, previousName string, hasPrevious bool) bool {
	if !n.admit() {
		n.logger.Debug("announcement throttled", "direction", string(dir), "device", newName)
		return false
	}

	title := n.messages.title(newName)
	body := n.messages.body(dir, newName, previousName, hasPrevious)

	if n.poster != nil {
		runCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
		err := n.poster.Post(runCtx, title, body)
		cancel()
		if err != nil {
			n.logger.Debug("notification dispatch failed", "direction", string(dir), "error", err.Error())
		}
	}

	n.playChime()
	return true
}

// admit records an announcement unless the previous one is within the
// throttle window.
func (n *Notifier) admit() bool {
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	if n.hasLast && now.Sub(n.last) < n.throttle {
		return false
	}
	n.last = now
	n.hasLast = true
	return true
}

// playChime serializes cue playback and runs it off the caller's goroutine.
func (n *Notifier) playChime() {
	if n.chime == nil {
		return
	}
	go func() {
		n.chimeMu.Lock()
		defer n.chimeMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 4*time.Second)
		defer cancel()
		if err := n.chime.Play(ctx); err != nil {
			n.logger.Debug("switch chime failed", "error", err.Error())
		}
	}()
}
