// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.cfg.YAML()
			if err != nil {
				return err
			}
			if file := a.v.ConfigFileUsed(); file != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", file)
			}
			_, err = cmd.OutOrStdout().Write(b)
			return err
		},
	}
}
