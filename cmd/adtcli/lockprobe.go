// SPDX-FileCopyrightText: 2025 SAP SE
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"

	"github.com/SAP/go-adt/adt"
	"github.com/SAP/go-adt/adt/api/object"
	"github.com/spf13/cobra"
)

func newLockProbeCmd(a *app) *cobra.Command {
	var show bool
	cmd := &cobra.Command{
		Use:   "lockprobe <uri>",
		Short: "Lock and unlock an object within a stateful context",
		Long: `lockprobe reserves a stateful context, locks the object at uri, prints the lock
handle and releases the lock again. The command fails if the object is locked
by another user or context.`,
		Example: "  adtcli lockprobe /sap/bc/adt/programs/programs/zhello",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := a.dispatcher(cmd)
			if err != nil {
				return err
			}
			defer d.CloseIdleConnections()
			defer logoff(cmd, d)
			ctx := cmd.Context()

			mode := object.AccessModify
			if show {
				mode = object.AccessShow
			}
			id := d.Reserve()
			defer d.Drop(id)

			lock, err := adt.Query(ctx, d, &object.Lock{URI: args[0], AccessMode: mode, Context: id})
			if err != nil {
				return err
			}
			if !lock.Locked {
				return errors.New("object is locked by another user or context")
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "lock handle:          %s\n", lock.Handle)
			fmt.Fprintf(out, "transport request:    %s\n", lock.TransportRequest)
			fmt.Fprintf(out, "local object:         %t\n", lock.IsLocal)
			fmt.Fprintf(out, "modification support: %s\n", lock.ModificationSupport)

			if _, err := adt.Query(ctx, d, &object.Unlock{URI: args[0], Handle: lock.Handle, Context: id}); err != nil {
				return fmt.Errorf("unlock failed: %w", err)
			}
			fmt.Fprintln(out, "unlocked")
			return nil
		},
	}
	cmd.Flags().BoolVar(&show, "show", false, "lock in access mode SHOW instead of MODIFY")
	return cmd
}
