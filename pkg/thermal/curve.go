package thermal

import (
	"fmt"

	"github.com/ja7ad/omenfan/pkg/system/util"
	"github.com/ja7ad/omenfan/pkg/types"
)

// Step switches the fan to Percent once the temperature reaches From.
type Step struct {
	From    types.Celsius `yaml:"from" json:"from"`
	Percent types.Percent `yaml:"percent" json:"percent"`
}

// Curve is a step function from temperature to fan percent.
// Temperatures below the first step map to 0%.
type Curve []Step

// DefaultCurve returns the stock open-loop curve.
//
//	 0-45 °C   0%     71-75 °C  50%     86-92 °C  90%
//	46-50 °C  20%     76-80 °C  70%       ≥93 °C 100%
//	51-55 °C  37%     81-85 °C  80%
//	56-70 °C  45%
func DefaultCurve() Curve {
	return Curve{
		{From: 0, Percent: 0},
		{From: 46, Percent: 20},
		{From: 51, Percent: 37},
		{From: 56, Percent: 45},
		{From: 71, Percent: 50},
		{From: 76, Percent: 70},
		{From: 81, Percent: 80},
		{From: 86, Percent: 90},
		{From: 93, Percent: 100},
	}
}

// FullSpeedBy is the highest temperature at which a curve may still run the
// fans below 100%.
const FullSpeedBy types.Celsius = 93

// Validate checks that the curve is a monotone non-decreasing step function
// that reaches 100% at or before FullSpeedBy.
func (c Curve) Validate() error {
	if len(c) == 0 {
		return ErrEmptyCurve
	}
	for i, s := range c {
		if util.ClampPercent(int(s.Percent)) != uint8(s.Percent) {
			return fmt.Errorf("%w: step %d is %s", ErrPercentRange, i, s.Percent)
		}
		if i == 0 {
			continue
		}
		prev := c[i-1]
		if s.From <= prev.From {
			return fmt.Errorf("%w: step %d at %s follows %s", ErrUnorderedCurve, i, s.From, prev.From)
		}
		if s.Percent < prev.Percent {
			return fmt.Errorf("%w: %s at %s is below %s at %s", ErrDecreasingCurve, s.Percent, s.From, prev.Percent, prev.From)
		}
	}
	if pct := c.SpeedPercent(FullSpeedBy); pct != 100 {
		return fmt.Errorf("%w: %s at %s", ErrUnsafeCurve, pct, FullSpeedBy)
	}
	return nil
}

// SpeedPercent returns the percent of the highest step whose From is <= temp.
func (c Curve) SpeedPercent(temp types.Celsius) types.Percent {
	var pct types.Percent
	for _, s := range c {
		if temp < s.From {
			break
		}
		pct = s.Percent
	}
	return pct
}

// Limits are the raw register values that correspond to 100% on each fan.
type Limits struct {
	Fan1Max uint8 `yaml:"fan1_max" json:"fan1_max"`
	Fan2Max uint8 `yaml:"fan2_max" json:"fan2_max"`
}

// DefaultLimits are the measured maxima of the two OMEN fans (x100 RPM).
func DefaultLimits() Limits {
	return Limits{Fan1Max: 55, Fan2Max: 57}
}

// ToRawPair scales percent to each fan's maximum, rounding down.
func (l Limits) ToRawPair(percent types.Percent) types.FanSpeedPair {
	return types.FanSpeedPair{
		Fan1: util.ScaleFloor(l.Fan1Max, uint8(percent)),
		Fan2: util.ScaleFloor(l.Fan2Max, uint8(percent)),
	}
}

// Performance codes written while the open-loop curve runs.
const (
	HintThreshold types.Celsius = 86
	HintHot       byte          = 0x30
	HintNormal    byte          = 0x31
)

// PerformanceHint returns the PerformanceControl code to write alongside the
// curve: HintHot at or above HintThreshold, HintNormal below it.
func PerformanceHint(temp types.Celsius) byte {
	if temp >= HintThreshold {
		return HintHot
	}
	return HintNormal
}
