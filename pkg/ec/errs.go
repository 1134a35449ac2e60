package ec

import (
	"errors"
	"fmt"
)

var (
	// ErrRegisterIO is wrapped by every failed register access.
	ErrRegisterIO = errors.New("ec: register i/o")

	// ErrShortIO indicates a read or write that moved other than exactly one byte.
	ErrShortIO = errors.New("ec: short i/o")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ec: register file closed")
)

// RegisterError describes a failed access to one register.
type RegisterError struct {
	Op     string // "open", "read" or "write"
	Path   string
	Offset Offset
	Err    error
}

func (e *RegisterError) Error() string {
	if e.Op == "open" {
		return fmt.Sprintf("ec: open %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("ec: %s %s (0x%02X): %v", e.Op, e.Offset, uint8(e.Offset), e.Err)
}

func (e *RegisterError) Unwrap() []error { return []error{ErrRegisterIO, e.Err} }
