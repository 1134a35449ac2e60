package control

import (
	"time"

	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/thermal"
	"github.com/ja7ad/omenfan/pkg/types"
)

// Config holds the loop's tunables.
//   - Interval: time between ticks
//   - Table: mode codes for the hardware revision
//   - Curve/Limits: open-loop fan curve used in Custom mode
//   - ThrottleAbove: the safety override engages strictly above this temperature
//   - Emergency: raw fan values forced while the override is active
//   - RestoreOnExit: hand fans back to the firmware when Run returns
type Config struct {
	Interval      time.Duration
	Table         mode.CodeTable
	Curve         thermal.Curve
	Limits        thermal.Limits
	ThrottleAbove types.Celsius
	Emergency     types.FanSpeedPair
	RestoreOnExit bool
}

// MaxThrottleAbove is the highest accepted ThrottleAbove. A larger value
// would let the machine run hot with nothing taking the fans over.
const MaxThrottleAbove types.Celsius = 95

// _defaultConfig returns the values measured on the OMEN 16/17 family.
func _defaultConfig() *Config {
	return &Config{
		Interval:      time.Second,
		Table:         mode.DefaultTable(),
		Curve:         thermal.DefaultCurve(),
		Limits:        thermal.DefaultLimits(),
		ThrottleAbove: MaxThrottleAbove,
		Emergency:     types.FanSpeedPair{Fan1: 46, Fan2: 44},
		RestoreOnExit: true,
	}
}

// DefaultConfig returns a copy of the defaults.
func DefaultConfig() Config { return *_defaultConfig() }

// merge overlays the set fields of cfg onto the defaults.
// Zero values mean "unset"; RestoreOnExit is taken verbatim.
func merge(cfg *Config) *Config {
	base := _defaultConfig()
	if cfg == nil {
		return base
	}

	merged := *base
	if cfg.Interval > 0 {
		merged.Interval = cfg.Interval
	}
	if cfg.Table.Name != "" {
		merged.Table = cfg.Table
	}
	if len(cfg.Curve) > 0 {
		merged.Curve = cfg.Curve
	}
	if cfg.Limits.Fan1Max > 0 {
		merged.Limits.Fan1Max = cfg.Limits.Fan1Max
	}
	if cfg.Limits.Fan2Max > 0 {
		merged.Limits.Fan2Max = cfg.Limits.Fan2Max
	}
	if cfg.ThrottleAbove > 0 {
		merged.ThrottleAbove = cfg.ThrottleAbove
	}
	if cfg.Emergency != (types.FanSpeedPair{}) {
		merged.Emergency = cfg.Emergency
	}
	merged.RestoreOnExit = cfg.RestoreOnExit
	return &merged
}
