package notify

import (
	"fmt"

	"github.com/rbright/audioanchor/internal/device"
)

type messages struct {
	titleFormat       string
	bodyFromFormat    string
	bodyChangedFormat string
	input             string
	output            string
}

// englishMessages is the only announcement table; other languages are not
// translated.
func englishMessages() messages {
	return messages{
		titleFormat:       "%s is active",
		bodyFromFormat:    "%s changed from %s to %s",
		bodyChangedFormat: "%s changed to %s",
		input:             device.Input.Label(),
		output:            device.Output.Label(),
	}
}

func (m messages) title(newName string) string {
	return fmt.Sprintf(m.titleFormat, newName)
}

func (m messages) body(dir device.Direction, newName string, previousName string, hasPrevious bool) string {
	label := m.input
	if dir == device.Output {
		label = m.output
	}
	if hasPrevious && previousName != "" {
		return fmt.Sprintf(m.bodyFromFormat, label, previousName, newName)
	}
	return fmt.Sprintf(m.bodyChangedFormat, label, newName)
}
