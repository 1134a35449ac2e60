package mode

import "errors"

var (
	// ErrUnknownMode indicates a label that names no selectable mode.
	ErrUnknownMode = errors.New("mode: unknown mode")

	// ErrNotSelectable indicates an attempt to request Undefined.
	ErrNotSelectable = errors.New("mode: not a selectable mode")

	// ErrUnknownRevision indicates a code table name that is not registered.
	ErrUnknownRevision = errors.New("mode: unknown hardware revision")
)
