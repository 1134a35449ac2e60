package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/thermal"
	"github.com/ja7ad/omenfan/pkg/types"
)

// Controller reconciles the EC with the requested mode once per tick.
type Controller struct {
	cfg       *Config
	regs      ec.RegisterFile
	sampler   *thermal.Sampler
	requested *mode.Cell
	log       *slog.Logger

	running atomic.Bool

	// tickMu makes Tick non-re-entrant; the fields below belong to it.
	tickMu     sync.Mutex
	lastPair   types.FanSpeedPair
	pairValid  bool
	bios       BiosState
	throttling bool
	ticks      uint64

	statusMu sync.RWMutex
	status   Status
}

// New builds a controller. Set fields of cfg override the defaults; a nil cfg
// uses them as-is. A nil logger falls back to slog.Default().
func New(regs ec.RegisterFile, requested *mode.Cell, cfg *Config, logger *slog.Logger) (*Controller, error) {
	if regs == nil {
		return nil, ErrNoRegisters
	}
	merged := merge(cfg)
	if err := merged.Curve.Validate(); err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if merged.ThrottleAbove > MaxThrottleAbove {
		return nil, fmt.Errorf("%w: %s > %s", ErrUnsafeThreshold, merged.ThrottleAbove, MaxThrottleAbove)
	}
	if requested == nil {
		requested = mode.NewCell()
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Controller{
		cfg:       merged,
		regs:      regs,
		sampler:   thermal.NewSampler(regs),
		requested: requested,
		log:       logger,
		bios:      BiosUnknown,
	}
	c.status = Status{Requested: requested.Get(), Bios: BiosUnknown}
	return c, nil
}

// Config returns the effective configuration.
func (c *Controller) Config() Config { return *c.cfg }

// Status returns the snapshot published by the last tick.
func (c *Controller) Status() Status {
	c.statusMu.RLock()
	defer c.statusMu.RUnlock()
	return c.status
}

// Run ticks immediately and then every Interval until ctx is done.
// Tick errors are logged and never stop the loop.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer c.running.Store(false)

	c.log.Info("fan control started",
		"interval", c.cfg.Interval,
		"revision", c.cfg.Table.Name,
		"requested", c.requested.Get().String())

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.runTick()
	for {
		select {
		case <-ctx.Done():
			if c.cfg.RestoreOnExit {
				c.restore()
			}
			c.log.Info("fan control stopped")
			return nil
		case <-ticker.C:
			c.runTick()
		}
	}
}

func (c *Controller) runTick() {
	if err := c.Tick(); err != nil {
		c.log.Warn("tick incomplete, retrying next interval", "err", err)
	}
}

// Tick runs one reconciliation: the mode step, then the safety override.
// A failing step is reported but does not prevent the other from running.
func (c *Controller) Tick() error {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	c.ticks++
	requested := c.requested.Get()
	st := Status{Requested: requested}

	var errs []error
	if err := c.applyMode(requested, &st); err != nil {
		errs = append(errs, fmt.Errorf("mode step: %w", err))
	}
	if requested != mode.Custom {
		if err := c.applySafety(&st); err != nil {
			errs = append(errs, fmt.Errorf("safety step: %w", err))
		}
	} else {
		// the override is skipped in Custom, so it cannot stay active
		c.releaseThrottle(st.Temperature)
	}
	err := errors.Join(errs...)

	st.Throttling = c.throttling
	st.Bios = c.bios
	st.Ticks = c.ticks
	st.UpdatedAt = time.Now()
	if c.pairValid {
		p := c.lastPair
		st.Fans = &p
	}
	if err != nil {
		st.LastError = err.Error()
	}
	c.statusMu.Lock()
	c.status = st
	c.statusMu.Unlock()

	return err
}

// applyMode reads the EC's mode and moves it towards requested.
// Custom runs the curve every tick; other modes are written once, only when
// the EC reports something different.
func (c *Controller) applyMode(requested mode.Mode, st *Status) error {
	raw, readErr := c.regs.ReadRegister(ec.PerformanceControl)
	if readErr == nil {
		st.Current = c.cfg.Table.Decode(raw)
	}

	if requested == mode.Custom {
		// the curve does not depend on the current mode
		return errors.Join(readErr, c.runCurve(st))
	}
	if readErr != nil {
		return readErr
	}
	if requested == st.Current {
		return nil
	}

	code, err := c.cfg.Table.Encode(requested)
	if err != nil {
		return err
	}
	c.log.Info("applying mode", "from", st.Current.String(), "to", requested.String(), "code", fmt.Sprintf("0x%02X", code))
	return c.regs.WriteRegister(ec.PerformanceControl, code)
}

// runCurve drives the fans from the open-loop curve with the firmware locked out.
func (c *Controller) runCurve(st *Status) error {
	biosErr := c.setBios(ec.BiosDisabled)

	r, err := c.sampler.Read()
	if err != nil {
		return errors.Join(biosErr, err)
	}
	temp := r.Max()
	st.Reading, st.Temperature = r, temp
	c.log.Debug("current temperature", "temp", temp.String())

	hintErr := c.regs.WriteRegister(ec.PerformanceControl, thermal.PerformanceHint(temp))

	pct := c.cfg.Curve.SpeedPercent(temp)
	st.Curve = &pct
	fanErr := c.setFans(c.cfg.Limits.ToRawPair(pct))

	return errors.Join(biosErr, hintErr, fanErr)
}

// applySafety takes the fans over when the machine is too hot and otherwise
// leaves them to the firmware.
func (c *Controller) applySafety(st *Status) error {
	r, err := c.sampler.Read()
	if err != nil {
		// without a temperature the firmware is the safer owner
		return errors.Join(err, c.setBios(ec.BiosEnabled))
	}
	temp := r.Max()
	st.Reading, st.Temperature = r, temp

	if temp > c.cfg.ThrottleAbove {
		if !c.throttling {
			c.log.Warn("thermal throttling, taking over the fans", "temp", temp.String(), "fans", c.cfg.Emergency.String())
		}
		c.throttling = true
		// the fan write is attempted even if the bios write failed
		biosErr := c.setBios(ec.BiosDisabled)
		fanErr := c.setFans(c.cfg.Emergency)
		return errors.Join(biosErr, fanErr)
	}

	c.releaseThrottle(temp)
	return c.setBios(ec.BiosEnabled)
}

// releaseThrottle clears the override flag, logging the falling edge.
func (c *Controller) releaseThrottle(temp types.Celsius) {
	if c.throttling {
		c.log.Info("thermal override released", "temp", temp.String())
	}
	c.throttling = false
}

// setFans writes pair unless it equals the last pair written.
func (c *Controller) setFans(pair types.FanSpeedPair) error {
	if c.pairValid && pair == c.lastPair {
		return nil
	}
	c.pairValid = false
	if err := c.regs.WriteRegister(ec.Fan1Speed, pair.Fan1); err != nil {
		return err
	}
	if err := c.regs.WriteRegister(ec.Fan2Speed, pair.Fan2); err != nil {
		return err
	}
	c.lastPair, c.pairValid = pair, true
	return nil
}

// setBios writes the BiosControl register. Once the firmware owns the fans
// the last written pair no longer describes them.
func (c *Controller) setBios(code byte) error {
	if code == ec.BiosEnabled {
		c.pairValid = false
	}
	if err := c.regs.WriteRegister(ec.BiosControl, code); err != nil {
		c.bios = BiosUnknown
		return err
	}
	if code == ec.BiosEnabled {
		c.bios = BiosEnabled
	} else {
		c.bios = BiosDisabled
	}
	return nil
}

func (c *Controller) restore() {
	c.tickMu.Lock()
	defer c.tickMu.Unlock()

	if err := c.setBios(ec.BiosEnabled); err != nil {
		c.log.Error("could not return fans to firmware", "err", err)
		return
	}
	c.throttling = false
	c.log.Info("fans returned to firmware")
}
