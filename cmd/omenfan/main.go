//go:build linux

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ja7ad/omenfan/pkg/config"
)

// startupError is fatal before the loop starts; hint tells the user what to fix.
type startupError struct {
	err  error
	hint string
}

func (e *startupError) Error() string { return e.err.Error() }
func (e *startupError) Unwrap() error { return e.err }

func fatal(err error, hint string) error {
	return &startupError{err: err, hint: hint}
}

type globalOpts struct {
	configPath string
	socket     string
}

func main() {
	var g globalOpts

	root := &cobra.Command{
		Use:   "omenfan",
		Short: "Fan and thermal-mode control for HP OMEN laptops",
		Long: `omenfan drives the embedded controller of HP OMEN laptops. The daemon
("omenfan run") keeps the firmware thermal profile in line with the requested
mode, runs an open-loop fan curve in Custom mode, and takes the fans over
whenever the CPU or GPU goes above 95°C.

The other commands talk to a running daemon over its control socket.

Examples:
  sudo omenfan run
  omenfan set performance
  omenfan status
  sudo omenfan dump
  omenfan config > /etc/omenfan/config.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", config.DefaultPath, "configuration file (YAML)")
	root.PersistentFlags().StringVar(&g.socket, "socket", "", "control socket (default from config)")

	root.AddCommand(
		newRunCmd(&g),
		newSetCmd(&g),
		newStatusCmd(&g),
		newModesCmd(&g),
		newDumpCmd(&g),
		newConfigCmd(&g),
	)

	if err := root.Execute(); err != nil {
		slog.Error(err.Error())
		var se *startupError
		if errors.As(err, &se) && se.hint != "" {
			fmt.Fprintln(os.Stderr, "hint:", se.hint)
		}
		os.Exit(1)
	}
}

func newConfigCmd(g *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			b, err := cfg.Marshal()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}

// loadConfig reads the config file; an explicit --config must exist.
func loadConfig(cmd *cobra.Command, g *globalOpts) (*config.Config, error) {
	cfg, err := config.Load(g.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	if g.socket != "" {
		cfg.Socket = g.socket
	}
	return cfg, nil
}
