package config

import "fmt"

type jsoncState int

const (
	jsoncCode jsoncState = iota
	jsoncString
	jsoncStringEscape
	jsoncLineComment
	jsoncBlockComment
)

// normalizeJSONC blanks out comments and drops trailing commas so the result
// decodes as plain JSON. Comment bytes become spaces and newlines are kept, so
// decoder offsets still map to the original line and column.
func normalizeJSONC(content string) (string, error) {
	out := make([]byte, 0, len(content))
	state := jsoncCode

	for i := 0; i < len(content); i++ {
		ch := content[i]

		switch state {
		case jsoncLineComment:
			if ch == '\n' || ch == '\r' {
				state = jsoncCode
				out = append(out, ch)
				continue
			}
			out = append(out, ' ')
		case jsoncBlockComment:
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				state = jsoncCode
				out = append(out, ' ', ' ')
				i++
				continue
			}
			if isJSONWhitespace(ch) {
				out = append(out, ch)
			} else {
				out = append(out, ' ')
			}
		case jsoncString:
			out = append(out, ch)
			switch ch {
			case '\\':
				state = jsoncStringEscape
			case '"':
				state = jsoncCode
			}
		case jsoncStringEscape:
			out = append(out, ch)
			state = jsoncString
		default:
			switch {
			case ch == '"':
				state = jsoncString
				out = append(out, ch)
			case ch == '/' && i+1 < len(content) && content[i+1] == '/':
				state = jsoncLineComment
				out = append(out, ' ', ' ')
				i++
			case ch == '/' && i+1 < len(content) && content[i+1] == '*':
				state = jsoncBlockComment
				out = append(out, ' ', ' ')
				i++
			case ch == ',' && closesAfterComments(content, i+1):
				out = append(out, ' ')
			default:
				out = append(out, ch)
			}
		}
	}

	if state == jsoncBlockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}
	return string(out), nil
}

// closesAfterComments reports whether the next significant byte after i,
// skipping whitespace and comments, closes an object or array.
func closesAfterComments(content string, i int) bool {
	for i < len(content) {
		ch := content[i]
		switch {
		case isJSONWhitespace(ch):
			i++
		case ch == '/' && i+1 < len(content) && content[i+1] == '/':
			for i < len(content) && content[i] != '\n' {
				i++
			}
		case ch == '/' && i+1 < len(content) && content[i+1] == '*':
			i += 2
			for i+1 < len(content) && !(content[i] == '*' && content[i+1] == '/') {
				i++
			}
			i += 2
		default:
			return ch == '}' || ch == ']'
		}
	}
	return false
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}
