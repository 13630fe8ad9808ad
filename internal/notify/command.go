package notify

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rbright/audioanchor/internal/config"
)

// CommandPoster runs a user-configured command. Arguments containing
// {title} or {body} are expanded in place; otherwise title and body are
// appended as the last two arguments.
type CommandPoster struct {
	Argv []string
}

func (c CommandPoster) Post(ctx context.Context, title string, body string) error {
	if len(c.Argv) == 0 {
		return errors.New("notify command is empty")
	}

	args := c.args(title, body)
	out, err := exec.CommandContext(ctx, c.Argv[0], args...).CombinedOutput()
	if err != nil {
		trimmed := strings.TrimSpace(string(out))
		if trimmed == "" {
			return fmt.Errorf("notify command %q failed: %w", c.Argv[0], err)
		}
		return fmt.Errorf("notify command %q failed: %w (%s)", c.Argv[0], err, trimmed)
	}
	return nil
}

func (c CommandPoster) args(title string, body string) []string {
	cmd := config.CommandConfig{Argv: c.Argv}
	if !cmd.HasPlaceholders() {
		return append(append([]string{}, c.Argv[1:]...), title, body)
	}

	expand := strings.NewReplacer(config.TitlePlaceholder, title, config.BodyPlaceholder, body)
	args := make([]string, 0, len(c.Argv)-1)
	for _, arg := range c.Argv[1:] {
		args = append(args, expand.Replace(arg))
	}
	return args
}
