package service

import (
	"errors"
	"fmt"
)

const (
	// StateStopped indicates no generation is live.
	StateStopped State = iota
	// StateStarting indicates Start is binding the listener and building the engine.
	StateStarting
	// StateRunning indicates the gateway is accepting requests.
	StateRunning
	// StateStopping indicates a stop is tearing the generation down.
	StateStopping
	// StateError indicates the last start failed or a supervised task exited
	// unexpectedly. A new Start leaves it for StateStarting; Stop releases
	// what remains and moves it to StateStopped.
	StateError
)

// ErrInvalidState is returned when a State value is not a defined lifecycle state.
var ErrInvalidState = errors.New("invalid state")

type (
	// State is the lifecycle state of a Gateway.
	State int32

	// InvalidStateError wraps ErrInvalidState with the offending value.
	InvalidStateError struct {
		Value State
	}
)

// String returns a human-readable representation of the state.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d (valid: 0=stopped, 1=starting, 2=running, 3=stopping, 4=error)", e.Value)
}

func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// Validate returns nil for a defined state and an *InvalidStateError otherwise.
func (s State) Validate() error {
	switch s {
	case StateStopped, StateStarting, StateRunning, StateStopping, StateError:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// IsLive reports whether a generation may hold resources in this state.
func (s State) IsLive() bool {
	return s == StateStarting || s == StateRunning || s == StateStopping
}
