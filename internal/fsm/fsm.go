// Package fsm defines the per-direction enforcement lifecycle.
package fsm

import "fmt"

type State string

type Event string

const (
	StateIdle        State = "idle"
	StateReconciling State = "reconciling"
	StateNotifying   State = "notifying"
)

const (
	EventTrigger   Event = "trigger"
	EventNoAction  Event = "no-action"
	EventSwitched  Event = "switched"
	EventAnnounced Event = "announced"
)

// Transition returns the next state for event, or an error when event is not
// accepted in current.
func Transition(current State, event Event) (State, error) {
	switch current {
	case StateIdle:
		switch event {
		case EventTrigger:
			return StateReconciling, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateReconciling:
		switch event {
		case EventNoAction:
			return StateIdle, nil
		case EventSwitched:
			return StateNotifying, nil
		default:
			return current, invalidTransition(current, event)
		}
	case StateNotifying:
		switch event {
		case EventAnnounced:
			return StateIdle, nil
		default:
			return current, invalidTransition(current, event)
		}
	default:
		return current, fmt.Errorf("unknown state %q", current)
	}
}

func invalidTransition(state State, event Event) error {
	return fmt.Errorf("invalid transition: %s --(%s)--> ?", state, event)
}
