package notify

import (
	"context"

	"github.com/rbright/audioanchor/internal/hypr"
)

// HyprPoster shows a Hyprland notification through hyprctl.
type HyprPoster struct {
	TimeoutMS int
}

func (h HyprPoster) Post(ctx context.Context, title string, body string) error {
	timeout := h.TimeoutMS
	if timeout <= 0 {
		timeout = 4000
	}
	text := title
	if body != "" {
		text = title + ". " + body
	}
	return hypr.Notify(ctx, hypr.IconInfo, timeout, hypr.DefaultColor, text)
}
