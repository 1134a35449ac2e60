package ec

import "fmt"

// Offset identifies one byte-wide register in the EC address space.
type Offset uint8

// Register layout of the OMEN 16/17 family, measured by hand.
const (
	PerformanceControl Offset = 0x95
	Fan1Speed          Offset = 0x34 // units of 100 RPM
	Fan2Speed          Offset = 0x35 // units of 100 RPM
	CpuTemp            Offset = 0x57 // °C
	GpuTemp            Offset = 0xB7 // °C
	BiosControl        Offset = 0x62
)

// BiosControl register codes.
const (
	BiosEnabled  byte = 0x00
	BiosDisabled byte = 0x06
)

// Offsets lists every known register in a stable order.
func Offsets() []Offset {
	return []Offset{PerformanceControl, Fan1Speed, Fan2Speed, CpuTemp, GpuTemp, BiosControl}
}

func (o Offset) String() string {
	switch o {
	case PerformanceControl:
		return "performance"
	case Fan1Speed:
		return "fan1"
	case Fan2Speed:
		return "fan2"
	case CpuTemp:
		return "cpu_temp"
	case GpuTemp:
		return "gpu_temp"
	case BiosControl:
		return "bios_control"
	default:
		return fmt.Sprintf("0x%02X", uint8(o))
	}
}

// RegisterFile is byte-addressable access to the EC.
// Implementations must serialise accesses on a shared handle.
type RegisterFile interface {
	ReadRegister(off Offset) (byte, error)
	WriteRegister(off Offset, value byte) error
	Close() error
}

// Reader is the read half of RegisterFile.
type Reader interface {
	ReadRegister(off Offset) (byte, error)
}
