package mode

import (
	"encoding"
	"fmt"
	"strings"
)

// Mode is a thermal policy. Undefined only ever comes back from Decode.
type Mode int

const (
	Undefined Mode = iota
	Default
	Performance
	Cool
	Custom
)

// Selectable lists the modes a front-end may offer, in display order.
func Selectable() []Mode {
	return []Mode{Default, Cool, Performance, Custom}
}

// String returns the human-facing label.
func (m Mode) String() string {
	switch m {
	case Default:
		return "Default Mode"
	case Performance:
		return "Performance Mode"
	case Cool:
		return "Cool Mode"
	case Custom:
		return "Custom Mode"
	default:
		return "Undefined Mode"
	}
}

// Short returns the lower-case single-word name used on the command line.
func (m Mode) Short() string {
	switch m {
	case Default:
		return "default"
	case Performance:
		return "performance"
	case Cool:
		return "cool"
	case Custom:
		return "custom"
	default:
		return "undefined"
	}
}

// Valid reports whether m can be requested.
func (m Mode) Valid() bool {
	return m >= Default && m <= Custom
}

// ParseLabel accepts a label ("Cool Mode") or a short name ("cool"),
// case-insensitively. Undefined is never accepted.
func ParseLabel(s string) (Mode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.TrimSuffix(key, " mode")
	for _, m := range Selectable() {
		if key == m.Short() {
			return m, nil
		}
	}
	return Undefined, fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// MarshalText encodes the label, so JSON and YAML carry "Cool Mode".
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText parses a label or short name. Unlike ParseLabel it accepts
// the Undefined label, so a reported EC state survives a round trip.
func (m *Mode) UnmarshalText(b []byte) error {
	if strings.EqualFold(string(b), Undefined.String()) || strings.EqualFold(string(b), Undefined.Short()) {
		*m = Undefined
		return nil
	}
	v, err := ParseLabel(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

var (
	_ encoding.TextMarshaler   = Default
	_ encoding.TextUnmarshaler = (*Mode)(nil)
)
