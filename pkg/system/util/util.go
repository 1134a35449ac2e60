package util

import "fmt"

// ClampPercent bounds x to [0,100].
func ClampPercent(x int) uint8 {
	if x < 0 {
		return 0
	}
	if x > 100 {
		return 100
	}
	return uint8(x)
}

// ScaleFloor returns floor(max * percent / 100), with percent clamped to 100.
// Integer math so the result never rounds up past the fan's ceiling.
func ScaleFloor(max, percent uint8) uint8 {
	if percent > 100 {
		percent = 100
	}
	return uint8(uint16(max) * uint16(percent) / 100)
}

// Hex formats a register byte as 0xNN.
func Hex(b byte) string {
	return fmt.Sprintf("0x%02X", b)
}
