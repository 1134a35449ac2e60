//go:build linux

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ja7ad/omenfan/pkg/api"
	"github.com/ja7ad/omenfan/pkg/config"
	"github.com/ja7ad/omenfan/pkg/control"
	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/system/ecsys"
	"github.com/ja7ad/omenfan/pkg/system/host"
	"github.com/ja7ad/omenfan/pkg/thermal"
)

type runOpts struct {
	device    string
	interval  time.Duration
	revision  string
	pidfile   string
	logLevel  string
	logFormat string
	noRestore bool

	simulate bool
	simCPU   uint8
	simGPU   uint8
}

func newRunCmd(g *globalOpts) *cobra.Command {
	var o runOpts
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the fan control daemon (needs root)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return fatal(err, "check the configuration file")
			}
			applyRunFlags(cmd.Flags(), &o, cfg)
			if err := cfg.Validate(); err != nil {
				return fatal(err, "check the command-line flags")
			}
			return runDaemon(cmd.Context(), cfg, &o)
		},
	}

	o.bind(cmd.Flags())
	return cmd
}

func (o *runOpts) bind(f *pflag.FlagSet) {
	f.StringVarP(&o.device, "device", "d", "", `EC io file, or "auto" (default `+ec.DefaultPath+`)`)
	f.DurationVarP(&o.interval, "interval", "i", time.Second, "polling interval")
	f.StringVar(&o.revision, "revision", mode.RevisionDefault, "mode code table for the hardware revision")
	f.StringVar(&o.pidfile, "pidfile", "", "pidfile path (default from config, empty string in config disables)")
	f.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	f.StringVar(&o.logFormat, "log-format", "text", "text or json")
	f.BoolVar(&o.noRestore, "no-restore", false, "leave the EC as-is on exit instead of re-enabling BIOS fan control")
	f.BoolVar(&o.simulate, "simulate", false, "run against an in-memory EC (no root, no hardware)")
	f.Uint8Var(&o.simCPU, "sim-cpu", 60, "simulated CPU temperature")
	f.Uint8Var(&o.simGPU, "sim-gpu", 50, "simulated GPU temperature")
}

// applyRunFlags overlays only the flags the user actually set.
func applyRunFlags(f *pflag.FlagSet, o *runOpts, cfg *config.Config) {
	if f.Changed("device") {
		cfg.Device = o.device
	}
	if f.Changed("interval") {
		cfg.Interval = o.interval
	}
	if f.Changed("revision") {
		cfg.Revision = o.revision
	}
	if f.Changed("pidfile") {
		cfg.PidFile = o.pidfile
	}
	if f.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = o.logFormat
	}
	if f.Changed("no-restore") {
		cfg.RestoreOnExit = !o.noRestore
	}
}

func runDaemon(ctx context.Context, cfg *config.Config, o *runOpts) error {
	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		return fatal(err, "")
	}
	slog.SetDefault(logger)

	regs, err := openRegisters(cfg, o)
	if err != nil {
		return err
	}
	defer regs.Close()

	ccfg, err := cfg.Control()
	if err != nil {
		return fatal(err, "")
	}
	for _, mm := range ccfg.Table.Mismatches() {
		slog.Warn("mode code mismatch in hardware revision table; verify on real hardware",
			"revision", ccfg.Table.Name, "detail", mm.String())
	}

	if cfg.PidFile != "" && !o.simulate {
		release, err := host.CheckAndCreatePidfile(cfg.PidFile)
		if err != nil {
			return fatal(err, "stop the other omenfan instance first")
		}
		defer release()
	}

	cell := mode.NewCell()
	ctl, err := control.New(regs, cell, ccfg, logger)
	if err != nil {
		return fatal(err, "check the curve in the configuration file")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var g run.Group
	{
		loopCtx, cancel := context.WithCancel(ctx)
		g.Add(func() error {
			return ctl.Run(loopCtx)
		}, func(error) {
			cancel()
		})
	}
	if cfg.Socket != "" {
		srv := api.NewServer(cfg.Socket, cell, ctl, logger)
		if err := srv.Listen(); err != nil {
			return fatal(err, "is another omenfan running? remove the socket or pick another with --socket")
		}
		g.Add(srv.Serve, func(error) {
			_ = srv.Close()
		})
	}
	return g.Run()
}

// openRegisters performs the startup checks and returns a verified register file.
func openRegisters(cfg *config.Config, o *runOpts) (ec.RegisterFile, error) {
	if o.simulate {
		m := ec.NewMemory()
		m.Set(ec.PerformanceControl, 0x30)
		m.Set(ec.CpuTemp, o.simCPU)
		m.Set(ec.GpuTemp, o.simGPU)
		slog.Warn("simulation mode: no hardware is touched")
		return m, nil
	}

	if err := host.RequireRoot(); err != nil {
		return nil, fatal(err, "run omenfan with sudo or as a root service")
	}

	if model := host.ReadModel("/"); !model.IsOmen() {
		slog.Warn("this does not look like an HP OMEN; the register layout may not match", "model", model.String())
	} else {
		slog.Info("hardware", "model", model.String())
	}

	path, err := resolveDevice(cfg.Device)
	if err != nil {
		return nil, err
	}

	f, err := ec.Open(path)
	if err != nil {
		return nil, fatal(err, ecsys.Hint(path))
	}
	// one read before the loop so a broken setup fails here, not mid-loop
	temp, err := thermal.NewSampler(f).Sample()
	if err != nil {
		_ = f.Close()
		return nil, fatal(err, ecsys.Hint(path))
	}
	slog.Info("embedded controller opened", "path", path, "temp", temp.String())
	return f, nil
}

func resolveDevice(device string) (string, error) {
	if device != config.DeviceAuto {
		return device, nil
	}
	res, err := ecsys.Detect()
	if err != nil {
		return "", fatal(err, "")
	}
	if res.Interface == ecsys.Unsupported {
		return "", fatal(fmt.Errorf("no embedded controller interface: %s", res.Detail), ecsys.Hint(ec.DefaultPath))
	}
	if !res.Writable {
		slog.Warn("EC io file does not look writable", "detail", res.Detail)
	}
	slog.Info("detected EC interface", "detail", res.Detail)
	return res.Path, nil
}
