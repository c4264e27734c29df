package service

import (
	"errors"
	"fmt"
)

var (
	// ErrUnexpectedExit marks a supervised task that returned while its
	// generation was still meant to run.
	ErrUnexpectedExit = errors.New("supervised task exited unexpectedly")
	// ErrNotRunning is returned by Wait when no generation is live.
	ErrNotRunning = errors.New("gateway is not running")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("gateway is closed")
)

// BindError reports a listener that could not be bound.
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
