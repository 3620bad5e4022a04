/*
 * optimize.go, part of gochem.
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
	"fmt"
	"path/filepath"
	"strings"
	"time"

	chem "github.com/rmera/geopt"
	"github.com/rmera/geopt/chemplot"
	"github.com/rmera/geopt/opt"
	"github.com/rmera/geopt/traj/dcd"
	"github.com/rmera/geopt/traj/stf"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const envPrefix = "GEOPT"

// newViper returns a viper instance that reads GEOPT_* environment variables,
// with dashes in the keys replaced by underscores (max-steps is GEOPT_MAX_STEPS).
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

func newOptimizeCmd() *cobra.Command {
	v := newViper()
	cmd := &cobra.Command{
		Use:   "optimize <molecule.toml>",
		Short: "Optimize the geometry of a molecule",
		Long: `Optimizes the geometry of the molecule in the given TOML file, and prints
the final energy, the number of steps taken and the optimized coordinates in XYZ format.
Every flag can also be given as a GEOPT_* environment variable, for instance GEOPT_FORCEFIELD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOptimize(cmd, v, args[0])
		},
	}
	f := cmd.Flags()
	f.String("forcefield", "", "Force field to use (default: the one in the options, or uff)")
	f.String("config", "", "TOML file with the optimization options")
	f.String("traj", "", "Write the geometry after each step to this trajectory (.dcd, or stf otherwise)")
	f.String("plot", "", "Plot the energy and gradient after each step to this file (png, svg, pdf)")
	f.Bool("async", false, "Run the optimization in the background and report while waiting")
	f.Int64("seed", 0, "Seed for the random displacements (0: a different one each run)")
	f.Int("max-steps", 0, "Give up after this many steps (0: no limit)")
	_ = v.BindPFlags(f)
	return cmd
}

type trajWriter interface {
	opt.FrameWriter
	Close() error
}

// newTrajectory opens a DCD trajectory if name ends in .dcd, and an stf one otherwise.
func newTrajectory(name string, natoms int, title, forcefield string) (trajWriter, error) {
	if strings.EqualFold(filepath.Ext(name), ".dcd") {
		return dcd.NewWriter(name, natoms, title)
	}
	return stf.NewWriter(name, natoms, map[string]string{"title": title, "forcefield": forcefield})
}

// loadOptions builds the options from the config file, if any, and then
// applies the flags and environment variables that were set.
func loadOptions(v *viper.Viper) (*opt.Options, error) {
	o := opt.DefaultOptions()
	if cfg := v.GetString("config"); cfg != "" {
		var err error
		o, err = opt.LoadOptions(cfg)
		if err != nil {
			return nil, err
		}
	}
	if v.IsSet("forcefield") {
		o.ForceField = v.GetString("forcefield")
	}
	if v.IsSet("seed") {
		o.Seed = v.GetInt64("seed")
	}
	if v.IsSet("max-steps") {
		o.MaxSteps = v.GetInt("max-steps")
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

func runOptimize(cmd *cobra.Command, v *viper.Viper, filename string) error {
	mol, title, err := readMolecule(filename)
	if err != nil {
		return err
	}
	o, err := loadOptions(v)
	if err != nil {
		return err
	}
	if title == "" {
		title = filename
	}
	if v.GetBool("async") {
		if v.GetString("traj") != "" || v.GetString("plot") != "" {
			return fmt.Errorf("--traj and --plot can't be used with --async")
		}
		return optimizeAsync(cmd, mol, o, title)
	}
	O := opt.NewOptimizer(mol, o)
	if name := v.GetString("traj"); name != "" {
		w, err := newTrajectory(name, mol.Len(), title, o.ForceField)
		if err != nil {
			return err
		}
		defer func() {
			if err := w.Close(); err != nil {
				zap.L().Warn("can't close trajectory", zap.Error(err))
			}
		}()
		O.SetFrameWriter(w)
	}
	input := mol.Coords[mol.Current()].Clone()
	ok := O.Optimize()
	if name := v.GetString("plot"); name != "" && O.Trace().Len() > 0 {
		tr := O.Trace()
		if err := chemplot.TracePlot(tr.Energies(), tr.RMSGradients(), o.Convergence, title, name); err != nil {
			return err
		}
	}
	if !ok {
		return fmt.Errorf("%s: %w", O.ErrorString(), O.Err())
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Converged in %d steps\n", O.Trace().Len())
	fmt.Fprintf(out, "Energy: %.6f\n", O.Energy())
	rmsd, err := chem.SuperRMSD(mol.Coords[mol.Current()], input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "RMSD to input: %.4f\n", rmsd)
	return writeXYZ(out, mol, fmt.Sprintf("%s, optimized with %s", title, o.ForceField))
}

func optimizeAsync(cmd *cobra.Command, mol *chem.Molecule, o *opt.Options, title string) error {
	fut := opt.OptimizeCoordinatesAsync(mol, o)
	start := time.Now()
	tick := time.NewTicker(2 * time.Second)
	defer tick.Stop()
wait:
	for {
		select {
		case <-fut.Done():
			break wait
		case <-tick.C:
			fmt.Fprintf(cmd.ErrOrStderr(), "optimization %s running for %s\n", fut.ID(), time.Since(start).Round(time.Second))
		}
	}
	ok, err := fut.Result()
	if !ok {
		return fmt.Errorf("optimization %s failed: %w", fut.ID(), err)
	}
	last, _ := fut.Last()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Converged (optimization %s)\n", fut.ID())
	fmt.Fprintf(out, "Energy: %.6f\n", last.Energy)
	return writeXYZ(out, mol, fmt.Sprintf("%s, optimized with %s", title, o.ForceField))
}
