// Package control runs the fan-control loop.
//
// Each tick has two steps.
//
// Mode step. The requested mode is copied out of a mode.Cell and compared with
// the mode the EC reports in PerformanceControl:
//
//   - Custom: BiosControl is set to disabled and the open-loop curve from
//     package thermal drives the fans. The curve also writes a performance
//     hint (0x30 at or above 86 °C, 0x31 below). Fan registers are only written
//     when the computed pair differs from the last pair written.
//   - Anything else: if the EC already reports the requested mode nothing is
//     written; otherwise the encoded mode is written once.
//
// Safety step (skipped in Custom). Above ThrottleAbove (95 °C) the loop
// disables BiosControl and forces the Emergency pair (46,44). Otherwise it
// enables BiosControl so the firmware owns the fans again. The override does
// not look at the curve or the mode and wins over anything the mode step did.
// Custom ticks clear the throttle flag, since the override is not running.
// ThrottleAbove can only be lowered: New rejects values above MaxThrottleAbove.
//
// Errors from either step are joined and returned by Tick; Run logs them and
// carries on at the next interval. A failure in the mode step never prevents
// the safety step from running, and inside the override the fan write is
// attempted even when the BiosControl write fails.
package control
