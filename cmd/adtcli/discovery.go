// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/adt/api/core"
	"github.com/spf13/cobra"
)

func newDiscoveryCmd(a *app) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "discovery",
		Short: "Print the collections of the discovery document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dispatcher(cmd)
			if err != nil {
				return err
			}
			defer d.CloseIdleConnections()
			defer logoff(cmd, d)

			result, err := adt.Query(cmd.Context(), d, &core.Discovery{})
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "WORKSPACE\tCOLLECTION\tHREF")
			for _, ws := range result.Service.Workspaces {
				for _, c := range ws.Collections {
					fmt.Fprintf(w, "%s\t%s\t%s\n", ws.Title, c.Title, c.Href)
				}
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if stats {
				fmt.Fprintln(cmd.OutOrStdout(), d.Stats())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print dispatcher statistics")
	return cmd
}
