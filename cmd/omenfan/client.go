//go:build linux

package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ja7ad/omenfan/pkg/api"
	"github.com/ja7ad/omenfan/pkg/control"
	"github.com/ja7ad/omenfan/pkg/mode"
)

func dial(cmd *cobra.Command, g *globalOpts) (*api.Client, error) {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return nil, err
	}
	return api.NewClient(cfg.Socket), nil
}

func newSetCmd(g *globalOpts) *cobra.Command {
	var valid []string
	for _, m := range mode.Selectable() {
		valid = append(valid, m.Short())
	}
	return &cobra.Command{
		Use:       "set <mode>",
		Short:     "Request a thermal mode from the running daemon",
		Long:      "Request a thermal mode. Accepted: " + strings.Join(valid, ", ") + ` or the full label ("Cool Mode").`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: valid,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := mode.ParseLabel(args[0])
			if err != nil {
				return err
			}
			c, err := dial(cmd, g)
			if err != nil {
				return err
			}
			if err := c.Commit(cmd.Context(), m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requested %s\n", m)
			return nil
		},
	}
}

func newModesCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List the selectable modes and mark the requested one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := dial(cmd, g)
			if err != nil {
				return err
			}
			modes, err := c.Modes(cmd.Context())
			if err != nil {
				return err
			}
			cur, err := c.Requested(cmd.Context())
			if err != nil {
				return err
			}
			for _, m := range modes {
				mark := " "
				if m == cur {
					mark = "*"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %-12s %s\n", mark, m.Short(), m)
			}
			return nil
		},
	}
}

func newStatusCmd(g *globalOpts) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the daemon's last reading and fan state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := dial(cmd, g)
			if err != nil {
				return err
			}
			st, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(st)
			}
			printStatus(cmd, st)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw JSON snapshot")
	return cmd
}

func printStatus(cmd *cobra.Command, st control.Status) {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fans := "firmware"
	if st.Fans != nil {
		fans = st.Fans.String()
	}
	curve := "-"
	if st.Curve != nil {
		curve = st.Curve.String()
	}
	fmt.Fprintf(w, "REQUESTED\t%s\n", st.Requested)
	fmt.Fprintf(w, "CURRENT\t%s\n", st.Current)
	fmt.Fprintf(w, "TEMPERATURE\t%s\t(cpu %s, gpu %s)\n", st.Temperature, st.Reading.CPU, st.Reading.GPU)
	fmt.Fprintf(w, "THROTTLING\t%t\n", st.Throttling)
	fmt.Fprintf(w, "BIOS CONTROL\t%s\n", st.Bios)
	fmt.Fprintf(w, "FANS\t%s\n", fans)
	fmt.Fprintf(w, "CURVE\t%s\n", curve)
	fmt.Fprintf(w, "TICKS\t%d\n", st.Ticks)
	if !st.UpdatedAt.IsZero() {
		fmt.Fprintf(w, "UPDATED\t%s\n", st.UpdatedAt.Format("15:04:05"))
	}
	if st.LastError != "" {
		fmt.Fprintf(w, "LAST ERROR\t%s\n", st.LastError)
	}
}
