package control

import (
	"time"

	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/thermal"
	"github.com/ja7ad/omenfan/pkg/types"
)

// BiosState mirrors the BiosControl register as last written by the loop.
type BiosState string

const (
	BiosUnknown  BiosState = "unknown"
	BiosEnabled  BiosState = "enabled"
	BiosDisabled BiosState = "disabled"
)

// Status is a snapshot of the most recent tick.
type Status struct {
	Reading     thermal.Reading     `json:"reading"`
	Temperature types.Celsius       `json:"temperature"`
	Current     mode.Mode           `json:"current_mode"`
	Requested   mode.Mode           `json:"requested_mode"`
	Throttling  bool                `json:"throttling"`
	Bios        BiosState           `json:"bios_control"`
	Fans        *types.FanSpeedPair `json:"fans,omitempty"`
	Curve       *types.Percent      `json:"curve_percent,omitempty"`
	Ticks       uint64              `json:"ticks"`
	LastError   string              `json:"last_error,omitempty"`
	UpdatedAt   time.Time           `json:"updated_at"`
}
