package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/thermal"
	"github.com/ja7ad/omenfan/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ec.DefaultPath, cfg.Device)
	assert.Equal(t, time.Second, cfg.Interval)
	assert.Equal(t, mode.RevisionDefault, cfg.Revision)
	assert.True(t, cfg.RestoreOnExit)
	assert.Equal(t, types.Celsius(95), cfg.ThrottleAbove)
}

func TestLoad_Missing(t *testing.T) {
	p := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(p, false)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = Load(p, true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestLoad_EmptyFile(t *testing.T) {
	cfg, err := Load(writeConfig(t, "\n"), true)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_Overrides(t *testing.T) {
	p := writeConfig(t, `
device: /dev/ec
interval: 500ms
revision: cool-0x40
restore_on_exit: false
throttle_above: 92
log_level: debug
log_format: json
curve:
  - {from: 0, percent: 10}
  - {from: 60, percent: 50}
  - {from: 85, percent: 100}
`)
	cfg, err := Load(p, true)
	require.NoError(t, err)

	assert.Equal(t, "/dev/ec", cfg.Device)
	assert.Equal(t, 500*time.Millisecond, cfg.Interval)
	assert.Equal(t, mode.RevisionCool40, cfg.Revision)
	assert.False(t, cfg.RestoreOnExit)
	assert.Equal(t, types.Celsius(92), cfg.ThrottleAbove)
	assert.Equal(t, "/run/omenfan.sock", cfg.Socket, "untouched keys keep defaults")
	require.Len(t, cfg.Curve, 3)
	assert.Equal(t, thermal.Step{From: 60, Percent: 50}, cfg.Curve[1])

	cc, err := cfg.Control()
	require.NoError(t, err)
	assert.Equal(t, mode.RevisionCool40, cc.Table.Name)
	assert.Equal(t, 500*time.Millisecond, cc.Interval)
	assert.Equal(t, types.Celsius(92), cc.ThrottleAbove)
	assert.False(t, cc.RestoreOnExit)
	assert.Equal(t, types.Percent(50), cc.Curve.SpeedPercent(70))
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "fan_count: 3\n",
		"bad interval":  "interval: 0s\n",
		"bad revision":  "revision: omen-9000\n",
		"bad level":     "log_level: loud\n",
		"bad format":    "log_format: xml\n",
		"bad curve":     "curve:\n  - {from: 50, percent: 60}\n  - {from: 40, percent: 70}\n",
		"not yaml":      "interval: [\n",
		"empty device":  "device: \"\"\n",
		"hot throttle":  "throttle_above: 250\n",
		"zero throttle": "throttle_above: 0\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body), true)
			require.Error(t, err)
		})
	}
}

func TestLoad_RejectsUnsafeCurve(t *testing.T) {
	_, err := Load(writeConfig(t, "curve:\n  - {from: 0, percent: 0}\n"), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, thermal.ErrUnsafeCurve)

	_, err = Load(writeConfig(t, "throttle_above: 96\n"), true)
	assert.ErrorIs(t, err, ErrInvalid)

	cfg, err := Load(writeConfig(t, "throttle_above: 95\n"), true)
	require.NoError(t, err)
	assert.Equal(t, types.Celsius(95), cfg.ThrottleAbove)
}

func TestMarshal_LoadsBack(t *testing.T) {
	cfg := Default()
	cfg.Interval = 2 * time.Second
	cfg.Revision = mode.RevisionCool40

	b, err := cfg.Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(b), "interval: 2s")

	got, err := Load(writeConfig(t, string(b)), true)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	log, err := cfg.Logger(&buf)
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "temp", 96)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "WARN", rec["level"])
	assert.EqualValues(t, 96, rec["temp"])
}
