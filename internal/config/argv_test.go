package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []string
		wantErr string
	}{
		{name: "empty", input: "   ", want: nil},
		{name: "disabled", input: `# notify-send -u low`, want: nil},
		{name: "plain words", input: "notify-send -u low", want: []string{"notify-send", "-u", "low"}},
		{name: "double quotes", input: `notify-send -a "Audio Anchor"`, want: []string{"notify-send", "-a", "Audio Anchor"}},
		{name: "single quotes keep backslash", input: `logger -t 'a\b'`, want: []string{"logger", "-t", `a\b`}},
		{name: "escaped space", input: `play chime\ low.wav`, want: []string{"play", "chime low.wav"}},
		{name: "empty quoted word", input: `cmd "" tail`, want: []string{"cmd", "", "tail"}},
		{name: "placeholders", input: `notify-send {title} "{body}"`, want: []string{"notify-send", "{title}", "{body}"}},
		{name: "unterminated quote", input: `notify-send "oops`, wantErr: "unterminated quote"},
		{name: "unterminated escape", input: `notify-send oops\`, wantErr: "unterminated escape"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := splitCommand(tc.input)
			if tc.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestCommandConfigHasPlaceholders(t *testing.T) {
	require.False(t, CommandConfig{Argv: []string{"notify-send", "-u", "low"}}.HasPlaceholders())
	require.True(t, CommandConfig{Argv: []string{"notify-send", "{title}"}}.HasPlaceholders())
	require.True(t, CommandConfig{Argv: []string{"logger", "audio: {body}"}}.HasPlaceholders())
}
