package types

import "fmt"

// Celsius is a temperature as reported by the EC: one unsigned byte, whole degrees.
type Celsius uint8

// String returns the temperature with its unit, e.g. "70°C".
func (c Celsius) String() string { return fmt.Sprintf("%d°C", uint8(c)) }

// Percent is a fan duty in [0,100].
type Percent uint8

// String returns the percentage with its unit, e.g. "45%".
func (p Percent) String() string { return fmt.Sprintf("%d%%", uint8(p)) }

// FanSpeedPair holds the raw register values for both fans.
type FanSpeedPair struct {
	Fan1 uint8 `json:"fan1" yaml:"fan1"`
	Fan2 uint8 `json:"fan2" yaml:"fan2"`
}

// String formats the pair as "(fan1,fan2)".
func (p FanSpeedPair) String() string { return fmt.Sprintf("(%d,%d)", p.Fan1, p.Fan2) }

// Max returns the larger of two temperatures.
func Max(a, b Celsius) Celsius {
	if a > b {
		return a
	}
	return b
}
