package config

import (
	"fmt"
	"strings"
	"unicode"
)

// Placeholders substituted into notify.command arguments.
const (
	TitlePlaceholder = "{title}"
	BodyPlaceholder  = "{body}"
)

// splitCommand tokenizes a shell-like command line. Quotes group words and a
// backslash escapes the next rune outside single quotes. A line starting with '#'
// counts as disabled and yields no argv.
func splitCommand(line string) ([]string, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}

	var (
		words   []string
		word    strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range line {
		if escaped {
			word.WriteRune(r)
			escaped = false
			continue
		}

		switch {
		case r == '\\' && quote != '\'':
			escaped, inWord = true, true
		case quote != 0 && r == quote:
			quote = 0
		case quote != 0:
			word.WriteRune(r)
		case r == '\'' || r == '"':
			quote, inWord = r, true
		case unicode.IsSpace(r):
			if inWord {
				words = append(words, word.String())
				word.Reset()
				inWord = false
			}
		default:
			word.WriteRune(r)
			inWord = true
		}
	}

	switch {
	case escaped:
		return nil, fmt.Errorf("unterminated escape sequence in command: %q", line)
	case quote != 0:
		return nil, fmt.Errorf("unterminated quote in command: %q", line)
	}
	if inWord {
		words = append(words, word.String())
	}
	return words, nil
}

// HasPlaceholders reports whether argv references the announcement title or
// body explicitly.
func (c CommandConfig) HasPlaceholders() bool {
	for _, arg := range c.Argv {
		if strings.Contains(arg, TitlePlaceholder) || strings.Contains(arg, BodyPlaceholder) {
			return true
		}
	}
	return false
}
