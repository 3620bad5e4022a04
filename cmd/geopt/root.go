/*
 * root.go, part of gochem.
 *
 *
 * Copyright 2024 Raul Mera <rmera{at}usachDOTcl>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 */

package main

import (
	"github.com/rmera/geopt/ff"
	"github.com/rmera/geopt/opt"
	"github.com/rmera/geopt/traj/stf"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var verbose bool
	var logger *zap.Logger
	root := &cobra.Command{
		Use:   "geopt",
		Short: "Molecular geometry optimization with line searches on a force field",
		Long: `geopt minimizes the energy of a molecule, given by a force field, with respect
to the positions of its atoms, and prints the optimized coordinates.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if verbose {
				logger, err = zap.NewDevelopment()
			} else {
				logger, err = zap.NewProduction()
			}
			if err != nil {
				return err
			}
			zap.ReplaceGlobals(logger)
			opt.SetLogger(logger)
			ff.SetLogger(logger)
			stf.SetLogger(logger)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log each optimization step")
	root.AddCommand(newOptimizeCmd(), newForceFieldsCmd())
	return root
}
