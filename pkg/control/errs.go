package control

import "errors"

var (
	// ErrRunning is returned by Run when the loop is already active.
	ErrRunning = errors.New("control: loop already running")

	// ErrNoRegisters indicates a Controller built without a register file.
	ErrNoRegisters = errors.New("control: nil register file")

	// ErrUnsafeThreshold indicates a ThrottleAbove past MaxThrottleAbove.
	ErrUnsafeThreshold = errors.New("control: throttle threshold above the safe limit")
)
