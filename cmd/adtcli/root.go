// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type app struct {
	cfgFile string
	v       *viper.Viper
	cfg     *config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "adtcli",
		Short: "Command line client for ABAP Development Tools services",
		Long: `adtcli sends requests to the ABAP Development Tools (ADT) services of an
SAP application server.

Configuration:
  Config is loaded from adtcli.yaml in the current directory or $HOME/.adtcli/.
  Environment variables with the ADT_ prefix override config values.
  Example: ADT_SERVER=https://vhcala4hci:50001 ADT_TLS_SERVER_NAME=vhcala4hci`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.v = config.NewViper(a.cfgFile, config.SearchPaths()...)
			if err := a.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./adtcli.yaml)")
	cmd.PersistentFlags().String("server", "", "server url, e.g. https://vhcala4hci:50001")
	cmd.PersistentFlags().String("user", "", "logon user")
	cmd.PersistentFlags().String("client", "", "SAP client")
	cmd.PersistentFlags().String("language", "", "logon language")
	cmd.PersistentFlags().String("log_level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newDiscoveryCmd(a),
		newLockProbeCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return cmd
}

// dispatcher returns a new dispatcher for the loaded configuration.
func (a *app) dispatcher(cmd *cobra.Command) (*adt.Dispatcher, error) {
	c, err := a.cfg.Connector()
	if err != nil {
		return nil, err
	}
	c.SetLogger(a.cfg.Logger(cmd.ErrOrStderr()))
	return c.NewDispatcher()
}

// logoff ends the security session of d. A failure is reported but does not fail the command.
func logoff(cmd *cobra.Command, d *adt.Dispatcher) {
	if err := d.Logoff(context.WithoutCancel(cmd.Context())); err != nil && !errors.Is(err, adt.ErrNoSession) {
		fmt.Fprintf(cmd.ErrOrStderr(), "logoff failed: %s\n", err)
	}
}
