package thermal

import "errors"

var (
	// ErrEmptyCurve indicates a curve with no steps.
	ErrEmptyCurve = errors.New("thermal: curve has no steps")

	// ErrUnorderedCurve indicates step temperatures that are not strictly increasing.
	ErrUnorderedCurve = errors.New("thermal: step temperatures must be strictly increasing")

	// ErrDecreasingCurve indicates a step whose percent is lower than the previous one.
	ErrDecreasingCurve = errors.New("thermal: fan percent must not decrease")

	// ErrPercentRange indicates a step above 100%.
	ErrPercentRange = errors.New("thermal: fan percent must be within [0,100]")

	// ErrUnsafeCurve indicates a curve that is not at full speed by FullSpeedBy.
	// Custom mode runs without the safety override, so the curve itself must
	// cool the machine.
	ErrUnsafeCurve = errors.New("thermal: curve must reach 100% by 93°C")
)
