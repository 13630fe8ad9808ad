package notify

import (
	"context"

	"github.com/gen2brain/beeep"
)

// BeeepPoster delivers a cross-platform toast through gen2brain/beeep.
type BeeepPoster struct {
	// notify is swapped in tests.
	notify func(title string, message string, appIcon string) error
}

func (b BeeepPoster) Post(ctx context.Context, title string, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	send := b.notify
	if send == nil {
		send = beeep.Notify
	}
	return send(title, body, "")
}
