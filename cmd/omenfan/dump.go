//go:build linux

package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ja7ad/omenfan/pkg/ec"
	"github.com/ja7ad/omenfan/pkg/mode"
	"github.com/ja7ad/omenfan/pkg/system/ecsys"
	"github.com/ja7ad/omenfan/pkg/system/util"
)

func newDumpCmd(g *globalOpts) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the fan-control registers (read-only, needs root)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("device") {
				cfg.Device = device
			}
			path, err := resolveDevice(cfg.Device)
			if err != nil {
				return err
			}
			tbl, err := mode.Lookup(cfg.Revision)
			if err != nil {
				return err
			}
			f, err := ec.OpenReadOnly(path)
			if err != nil {
				return fatal(err, ecsys.Hint(path))
			}
			defer f.Close()
			return dumpRegisters(cmd.OutOrStdout(), f, tbl)
		},
	}
	cmd.Flags().StringVarP(&device, "device", "d", "", `EC io file, or "auto"`)
	return cmd
}

func dumpRegisters(out io.Writer, r ec.Reader, tbl mode.CodeTable) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REGISTER\tOFFSET\tVALUE\tMEANING")
	for _, off := range ec.Offsets() {
		v, err := r.ReadRegister(off)
		if err != nil {
			_ = w.Flush()
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", off, util.Hex(byte(off)), util.Hex(v), describe(off, v, tbl))
	}
	return w.Flush()
}

func describe(off ec.Offset, v byte, tbl mode.CodeTable) string {
	switch off {
	case ec.PerformanceControl:
		return tbl.Decode(v).String()
	case ec.CpuTemp, ec.GpuTemp:
		return fmt.Sprintf("%d°C", v)
	case ec.BiosControl:
		switch v {
		case ec.BiosEnabled:
			return "firmware owns the fans"
		case ec.BiosDisabled:
			return "fans under manual control"
		}
		return "unknown"
	case ec.Fan1Speed, ec.Fan2Speed:
		return fmt.Sprintf("~%d rpm", int(v)*100)
	}
	return ""
}
