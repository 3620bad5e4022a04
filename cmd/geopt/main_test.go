/*
 * main_test.go, part of gochem.
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
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rmera/geopt/traj/stf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waterTOML = `
title = "water"

[[atoms]]
symbol = "O"
x = 0.0
y = 0.0
z = 0.0

[[atoms]]
symbol = "H"
x = 0.99
y = 0.0
z = 0.0

[[atoms]]
symbol = "H"
x = -0.25
y = 0.93
z = 0.0
`

func writeFile(Te *testing.T, name, cont string) string {
	path := filepath.Join(Te.TempDir(), name)
	require.NoError(Te, os.WriteFile(path, []byte(cont), 0o644))
	return path
}

func execute(args ...string) (string, error) {
	cmd := newRootCmd()
	var out, errout bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errout)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestOptimizeCommand(Te *testing.T) {
	mol := writeFile(Te, "water.toml", waterTOML)
	dir := Te.TempDir()
	traj := filepath.Join(dir, "water.stf")
	plot := filepath.Join(dir, "water.png")
	out, err := execute("optimize", mol, "--seed", "42", "--traj", traj, "--plot", plot)
	require.NoError(Te, err)
	assert.Contains(Te, out, "Converged in")
	assert.Contains(Te, out, "Energy:")
	assert.Contains(Te, out, "water, optimized with uff")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(Te, lines, 8)
	assert.True(Te, strings.HasPrefix(lines[2], "RMSD to input:"))
	assert.Equal(Te, "3", lines[3])
	assert.True(Te, strings.HasPrefix(lines[5], "O "))

	frames, header, err := stf.ReadAll(traj)
	require.NoError(Te, err)
	assert.NotEmpty(Te, frames)
	assert.Equal(Te, "uff", header["forcefield"])
	assert.Equal(Te, "water", header["title"])
	_, err = os.Stat(plot)
	assert.NoError(Te, err)
}

func TestOptimizeDCD(Te *testing.T) {
	mol := writeFile(Te, "water.toml", waterTOML)
	traj := filepath.Join(Te.TempDir(), "water.dcd")
	_, err := execute("optimize", mol, "--seed", "42", "--traj", traj)
	require.NoError(Te, err)
	st, err := os.Stat(traj)
	require.NoError(Te, err)
	//header records, plus at least one frame.
	assert.GreaterOrEqual(Te, st.Size(), int64(196+60))
}

func TestOptimizeOptions(Te *testing.T) {
	mol := writeFile(Te, "water.toml", waterTOML)
	_, err := execute("optimize", mol, "--forcefield", "nonexistent")
	require.Error(Te, err)
	assert.Contains(Te, err.Error(), "Force field 'nonexistent' is not supported.")

	Te.Setenv("GEOPT_FORCEFIELD", "nonexistent")
	_, err = execute("optimize", mol)
	assert.Error(Te, err)
	Te.Setenv("GEOPT_FORCEFIELD", "uff")

	cfg := writeFile(Te, "opts.toml", "seed = 3\nmax_steps = 1\nconvergence = 1e-12\n")
	_, err = execute("optimize", mol, "--config", cfg)
	require.Error(Te, err)
	assert.Contains(Te, err.Error(), "No convergence after 1 steps")
	//flags win over the file
	_, err = execute("optimize", mol, "--config", cfg, "--max-steps", "2")
	require.Error(Te, err)
	assert.Contains(Te, err.Error(), "No convergence after 2 steps")

	bad := writeFile(Te, "bad.toml", "step = -1\n")
	_, err = execute("optimize", mol, "--config", bad)
	assert.Error(Te, err)
	_, err = execute("optimize", mol, "--async", "--plot", "x.png")
	assert.Error(Te, err)
	_, err = execute("optimize")
	assert.Error(Te, err)
}

func TestOptimizeAsync(Te *testing.T) {
	mol := writeFile(Te, "water.toml", waterTOML)
	out, err := execute("optimize", mol, "--async", "--seed", "42")
	require.NoError(Te, err)
	assert.Contains(Te, out, "Converged (optimization ")
	assert.Contains(Te, out, "Energy:")

	//same seed, same result as the synchronous run.
	sync, err := execute("optimize", mol, "--seed", "42")
	require.NoError(Te, err)
	assert.Equal(Te, energyLine(Te, sync), energyLine(Te, out))
}

func energyLine(Te *testing.T, out string) string {
	for _, l := range strings.Split(out, "\n") {
		if strings.HasPrefix(l, "Energy:") {
			return l
		}
	}
	Te.Fatalf("No energy in output: %s", out)
	return ""
}

func TestForceFieldsCommand(Te *testing.T) {
	out, err := execute("forcefields")
	require.NoError(Te, err)
	assert.Contains(Te, strings.Fields(out), "uff")
}
