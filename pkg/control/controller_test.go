package control

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/thermal"
	"github.com/ja7ad/omenfan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errEIO = errors.New("input/output error")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRig returns a controller over an EC that reports Default mode at temp.
func newRig(t *testing.T, temp byte, cfg *Config) (*Controller, *ec.Memory, *mode.Cell) {
	t.Helper()
	m := ec.NewMemory()
	m.Set(ec.PerformanceControl, 0x30)
	m.Set(ec.CpuTemp, temp)
	m.Set(ec.GpuTemp, temp-10)

	cell := mode.NewCell()
	if cfg == nil {
		cfg = &Config{RestoreOnExit: true}
	}
	c, err := New(m, cell, cfg, quietLogger())
	require.NoError(t, err)
	return c, m, cell
}

func fanWrites(m *ec.Memory) (fan1, fan2 []byte) {
	return m.WritesTo(ec.Fan1Speed), m.WritesTo(ec.Fan2Speed)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, nil, nil)
	assert.True(t, errors.Is(err, ErrNoRegisters))

	_, err = New(ec.NewMemory(), nil, &Config{Curve: nil}, nil)
	assert.NoError(t, err, "empty curve falls back to the default one")

	c, err := New(ec.NewMemory(), nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Interval, c.Config().Interval)
}

func TestNew_RejectsUnsafeSettings(t *testing.T) {
	_, err := New(ec.NewMemory(), nil, &Config{ThrottleAbove: 250}, nil)
	assert.ErrorIs(t, err, ErrUnsafeThreshold)

	_, err = New(ec.NewMemory(), nil, &Config{Curve: thermal.Curve{{From: 0, Percent: 0}}}, nil)
	assert.ErrorIs(t, err, thermal.ErrUnsafeCurve)

	_, err = New(ec.NewMemory(), nil, &Config{ThrottleAbove: MaxThrottleAbove}, nil)
	assert.NoError(t, err)
}

func TestCustom_CurveScenario70(t *testing.T) {
	c, m, cell := newRig(t, 70, nil)
	require.NoError(t, cell.Set(mode.Custom))

	require.NoError(t, c.Tick())

	fan1, fan2 := fanWrites(m)
	assert.Equal(t, []byte{24}, fan1)
	assert.Equal(t, []byte{25}, fan2)
	assert.Equal(t, []byte{ec.BiosDisabled}, m.WritesTo(ec.BiosControl))
	assert.Equal(t, []byte{0x31}, m.WritesTo(ec.PerformanceControl), "hint below 86°C")

	st := c.Status()
	assert.Equal(t, types.Celsius(70), st.Temperature)
	require.NotNil(t, st.Fans)
	assert.Equal(t, types.FanSpeedPair{Fan1: 24, Fan2: 25}, *st.Fans)
	require.NotNil(t, st.Curve)
	assert.Equal(t, types.Percent(45), *st.Curve)
	assert.Equal(t, BiosDisabled, st.Bios)
}

func TestCustom_NoRedundantFanWrites(t *testing.T) {
	c, m, cell := newRig(t, 70, nil)
	require.NoError(t, cell.Set(mode.Custom))

	for i := 0; i < 5; i++ {
		require.NoError(t, c.Tick())
	}
	fan1, fan2 := fanWrites(m)
	assert.Len(t, fan1, 1, "identical ticks must not rewrite fans")
	assert.Len(t, fan2, 1)

	// same bracket, same pair
	m.Set(ec.CpuTemp, 65)
	require.NoError(t, c.Tick())
	fan1, _ = fanWrites(m)
	assert.Len(t, fan1, 1)

	// next bracket: 70% -> (38,39)
	m.Set(ec.CpuTemp, 77)
	require.NoError(t, c.Tick())
	fan1, fan2 = fanWrites(m)
	assert.Equal(t, []byte{24, 38}, fan1)
	assert.Equal(t, []byte{25, 39}, fan2)
}

func TestCustom_BiosStaysDisabledAtAnyTemperature(t *testing.T) {
	c, m, cell := newRig(t, 40, nil)
	require.NoError(t, cell.Set(mode.Custom))

	for _, temp := range []byte{40, 60, 86, 96, 120, 50} {
		m.Set(ec.CpuTemp, temp)
		require.NoError(t, c.Tick(), "temp=%d", temp)
	}
	for _, v := range m.WritesTo(ec.BiosControl) {
		assert.Equal(t, ec.BiosDisabled, v)
	}
	assert.False(t, c.Status().Throttling, "custom is exempt from the override")
}

func TestCustom_PerformanceHint(t *testing.T) {
	c, m, cell := newRig(t, 86, nil)
	require.NoError(t, cell.Set(mode.Custom))

	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x30}, m.WritesTo(ec.PerformanceControl))

	m.Set(ec.CpuTemp, 85)
	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x30, 0x31}, m.WritesTo(ec.PerformanceControl))
}

func TestCustom_HotUsesCurveNotEmergency(t *testing.T) {
	c, m, cell := newRig(t, 97, nil)
	require.NoError(t, cell.Set(mode.Custom))

	require.NoError(t, c.Tick())
	fan1, fan2 := fanWrites(m)
	assert.Equal(t, []byte{55}, fan1)
	assert.Equal(t, []byte{57}, fan2)
}

func TestModeTransition_WrittenOnce(t *testing.T) {
	c, m, cell := newRig(t, 50, nil)
	require.NoError(t, cell.Set(mode.Performance))

	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x31}, m.WritesTo(ec.PerformanceControl))

	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x31}, m.WritesTo(ec.PerformanceControl), "no rewrite once converged")
	assert.Equal(t, mode.Performance, c.Status().Current)
}

func TestModeTransition_ConvergedDefault(t *testing.T) {
	c, m, _ := newRig(t, 50, nil)

	require.NoError(t, c.Tick())
	assert.Empty(t, m.WritesTo(ec.PerformanceControl))
	assert.Equal(t, []byte{ec.BiosEnabled}, m.WritesTo(ec.BiosControl))
	assert.Empty(t, m.WritesTo(ec.Fan1Speed), "modes other than custom leave fans alone")
}

func TestModeTransition_FromUndefined(t *testing.T) {
	c, m, _ := newRig(t, 50, nil)
	m.Set(ec.PerformanceControl, 0x77)

	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x30}, m.WritesTo(ec.PerformanceControl))
}

func TestModeTransition_LeavingCustom(t *testing.T) {
	c, m, cell := newRig(t, 60, nil)
	require.NoError(t, cell.Set(mode.Custom))
	require.NoError(t, c.Tick())
	require.Equal(t, []byte{ec.BiosDisabled}, m.WritesTo(ec.BiosControl))

	require.NoError(t, cell.Set(mode.Cool))
	m.ResetJournal()
	require.NoError(t, c.Tick())

	assert.Equal(t, []byte{0x50}, m.WritesTo(ec.PerformanceControl))
	assert.Equal(t, []byte{ec.BiosEnabled}, m.WritesTo(ec.BiosControl), "firmware gets the fans back")
	assert.Nil(t, c.Status().Fans)
}

func TestModeTransition_Cool40Revision(t *testing.T) {
	tbl, err := mode.Lookup(mode.RevisionCool40)
	require.NoError(t, err)
	c, m, cell := newRig(t, 50, &Config{Table: tbl})
	require.NoError(t, cell.Set(mode.Cool))

	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x50}, m.WritesTo(ec.PerformanceControl))

	// firmware reports cool with its own code
	m.Set(ec.PerformanceControl, 0x40)
	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{0x50}, m.WritesTo(ec.PerformanceControl))
	assert.Equal(t, mode.Cool, c.Status().Current)
}

func TestSafety_OverrideScenario96(t *testing.T) {
	c, m, cell := newRig(t, 96, nil)
	require.NoError(t, cell.Set(mode.Performance))
	m.Set(ec.PerformanceControl, 0x31)

	require.NoError(t, c.Tick())

	fan1, fan2 := fanWrites(m)
	assert.Equal(t, []byte{46}, fan1)
	assert.Equal(t, []byte{44}, fan2)
	assert.Equal(t, []byte{ec.BiosDisabled}, m.WritesTo(ec.BiosControl))
	assert.Empty(t, m.WritesTo(ec.PerformanceControl))

	st := c.Status()
	assert.True(t, st.Throttling)
	assert.Equal(t, BiosDisabled, st.Bios)
}

func TestSafety_ThresholdIsStrict(t *testing.T) {
	c, m, _ := newRig(t, 95, nil)
	require.NoError(t, c.Tick())
	assert.Empty(t, m.WritesTo(ec.Fan1Speed))
	assert.Equal(t, []byte{ec.BiosEnabled}, m.WritesTo(ec.BiosControl))
	assert.False(t, c.Status().Throttling)
}

func TestSafety_GpuCanTrigger(t *testing.T) {
	c, m, _ := newRig(t, 60, nil)
	m.Set(ec.GpuTemp, 99)
	require.NoError(t, c.Tick())
	assert.True(t, c.Status().Throttling)
	assert.Equal(t, types.Celsius(99), c.Status().Temperature)
}

func TestSafety_ReleaseAfterCooling(t *testing.T) {
	c, m, _ := newRig(t, 98, nil)

	require.NoError(t, c.Tick())
	require.NoError(t, c.Tick())
	fan1, _ := fanWrites(m)
	assert.Equal(t, []byte{46}, fan1, "emergency pair written once while throttling")

	m.Set(ec.CpuTemp, 90)
	require.NoError(t, c.Tick())
	assert.Equal(t, []byte{ec.BiosDisabled, ec.BiosDisabled, ec.BiosEnabled}, m.WritesTo(ec.BiosControl))
	assert.False(t, c.Status().Throttling)

	// a second spike must write the emergency pair again: the firmware moved the fans meanwhile
	m.Set(ec.CpuTemp, 99)
	require.NoError(t, c.Tick())
	fan1, _ = fanWrites(m)
	assert.Equal(t, []byte{46, 46}, fan1)
}

func TestSafety_FlagClearedInCustom(t *testing.T) {
	c, m, cell := newRig(t, 97, nil)
	require.NoError(t, c.Tick())
	require.True(t, c.Status().Throttling)

	require.NoError(t, cell.Set(mode.Custom))
	m.Set(ec.CpuTemp, 50)
	m.Set(ec.GpuTemp, 40)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Tick())
	}
	st := c.Status()
	assert.False(t, st.Throttling)
	assert.Equal(t, BiosDisabled, st.Bios)

	// back out of Custom while hot: the override engages again
	require.NoError(t, cell.Set(mode.Default))
	m.Set(ec.CpuTemp, 97)
	require.NoError(t, c.Tick())
	assert.True(t, c.Status().Throttling)
	fan1, fan2 := fanWrites(m)
	require.NotEmpty(t, fan1)
	assert.Equal(t, byte(46), fan1[len(fan1)-1])
	assert.Equal(t, byte(44), fan2[len(fan2)-1])
}

func TestSafety_RunsWhenModeStepFails(t *testing.T) {
	c, m, cell := newRig(t, 97, nil)
	require.NoError(t, cell.Set(mode.Performance))
	m.FailRead(ec.PerformanceControl, errEIO)

	err := c.Tick()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ec.ErrRegisterIO))
	assert.Contains(t, err.Error(), "mode step")

	fan1, fan2 := fanWrites(m)
	assert.Equal(t, []byte{46}, fan1)
	assert.Equal(t, []byte{44}, fan2)
	assert.NotEmpty(t, c.Status().LastError)
}

func TestSafety_FanWriteDespiteBiosFailure(t *testing.T) {
	c, m, _ := newRig(t, 97, nil)
	m.FailWrite(ec.BiosControl, errEIO)

	err := c.Tick()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safety step")

	fan1, fan2 := fanWrites(m)
	assert.Equal(t, []byte{46}, fan1)
	assert.Equal(t, []byte{44}, fan2)
	assert.Equal(t, BiosUnknown, c.Status().Bios)
}

func TestSafety_SensorFailureHandsBackToFirmware(t *testing.T) {
	c, m, _ := newRig(t, 60, nil)
	m.FailRead(ec.CpuTemp, errEIO)

	err := c.Tick()
	require.Error(t, err)
	assert.Equal(t, []byte{ec.BiosEnabled}, m.WritesTo(ec.BiosControl))
	assert.Empty(t, m.WritesTo(ec.Fan1Speed))
}

func TestTransientFailure_Recovers(t *testing.T) {
	c, m, cell := newRig(t, 60, nil)
	require.NoError(t, cell.Set(mode.Custom))
	m.FailWrite(ec.Fan2Speed, errEIO)

	require.Error(t, c.Tick())
	assert.Nil(t, c.Status().Fans, "half-written pair is not remembered")

	m.FailWrite(ec.Fan2Speed, nil)
	require.NoError(t, c.Tick())
	fan1, fan2 := fanWrites(m)
	assert.Equal(t, []byte{24, 24}, fan1, "pair rewritten after the failure")
	assert.Equal(t, []byte{25}, fan2)
	assert.Empty(t, c.Status().LastError)
}

func TestCustom_ModeReadFailureStillRunsCurve(t *testing.T) {
	c, m, cell := newRig(t, 70, nil)
	require.NoError(t, cell.Set(mode.Custom))
	m.FailRead(ec.PerformanceControl, errEIO)

	require.Error(t, c.Tick())
	fan1, _ := fanWrites(m)
	assert.Equal(t, []byte{24}, fan1)
}

func TestStatus_Ticks(t *testing.T) {
	c, _, _ := newRig(t, 50, nil)
	for i := 0; i < 3; i++ {
		require.NoError(t, c.Tick())
	}
	st := c.Status()
	assert.Equal(t, uint64(3), st.Ticks)
	assert.Equal(t, mode.Default, st.Requested)
	assert.Equal(t, mode.Default, st.Current)
	assert.False(t, st.UpdatedAt.IsZero())
}

func TestRun_TicksAndRestores(t *testing.T) {
	c, m, cell := newRig(t, 60, &Config{Interval: 5 * time.Millisecond, RestoreOnExit: true})
	require.NoError(t, cell.Set(mode.Custom))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Status().Ticks >= 3 }, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, c.Run(ctx), ErrRunning)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}

	bios := m.WritesTo(ec.BiosControl)
	require.NotEmpty(t, bios)
	assert.Equal(t, ec.BiosEnabled, bios[len(bios)-1], "fans handed back on exit")
}

func TestRun_NoRestore(t *testing.T) {
	c, m, cell := newRig(t, 60, &Config{Interval: 5 * time.Millisecond, RestoreOnExit: false})
	require.NoError(t, cell.Set(mode.Custom))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	require.Eventually(t, func() bool { return c.Status().Ticks >= 1 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	for _, v := range m.WritesTo(ec.BiosControl) {
		assert.Equal(t, ec.BiosDisabled, v)
	}
}

func TestRun_PicksUpNewRequest(t *testing.T) {
	c, m, cell := newRig(t, 50, &Config{Interval: 5 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = c.Run(ctx) }()

	require.Eventually(t, func() bool { return c.Status().Ticks >= 1 }, time.Second, time.Millisecond)
	require.NoError(t, cell.Set(mode.Performance))
	require.Eventually(t, func() bool { return m.Get(ec.PerformanceControl) == 0x31 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return c.Status().Current == mode.Performance }, time.Second, time.Millisecond)
	assert.Equal(t, []byte{0x31}, m.WritesTo(ec.PerformanceControl))
}

func TestMerge(t *testing.T) {
	d := merge(nil)
	assert.Equal(t, time.Second, d.Interval)
	assert.Equal(t, types.Celsius(95), d.ThrottleAbove)
	assert.Equal(t, types.FanSpeedPair{Fan1: 46, Fan2: 44}, d.Emergency)
	assert.Equal(t, mode.RevisionDefault, d.Table.Name)
	assert.True(t, d.RestoreOnExit)

	got := merge(&Config{Interval: 2 * time.Second, ThrottleAbove: 90})
	assert.Equal(t, 2*time.Second, got.Interval)
	assert.Equal(t, types.Celsius(90), got.ThrottleAbove)
	assert.Equal(t, uint8(55), got.Limits.Fan1Max)
	assert.False(t, got.RestoreOnExit, "RestoreOnExit is taken verbatim")
}
