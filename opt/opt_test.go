/*
 * opt_test.go, part of gochem.
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

package opt

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	chem "github.com/rmera/geopt"
	"github.com/rmera/geopt/ff"
	v3 "github.com/rmera/geopt/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r3"
)

func options(forcefield string) *Options {
	o := DefaultOptions()
	o.ForceField = forcefield
	o.Seed = 42
	o.MaxSteps = 10000 //so a broken test doesn't hang
	return o
}

func TestDiatomicMinimum(Te *testing.T) {
	SetLogger(zaptest.NewLogger(Te))
	defer SetLogger(nil)
	mol := diatomic(Te, 2.0)
	O := NewOptimizer(mol, options("test-spring"))
	require.True(Te, O.Optimize(), O.ErrorString())
	assert.Equal(Te, Converged, O.State())
	r := chem.Distance(mol.Coords[0], 0, 1)
	fmt.Println("Final bond length:", r, "steps:", O.Trace().Len())
	//rmsg = k|r-r0| for this force field.
	assert.InDelta(Te, springR0, r, 0.1/springK)
	f := spring("check", springK, 0)
	assert.Less(Te, f.RMSGradient(mol.Coords[0]), 0.1)
	assert.InDelta(Te, 0, O.Energy(), 1e-3)
}

func TestUFFWater(Te *testing.T) {
	mol := water(Te)
	require.True(Te, OptimizeCoordinates(mol))
	u := ff.NewUFF()
	u.SetMolecule(mol)
	require.NoError(Te, u.Setup())
	assert.Less(Te, u.RMSGradient(mol.Coords[0]), 0.1)
	c := mol.Coords[0]
	angle := chem.BondAngle(c, 1, 0, 2) * chem.Rad2Deg
	fmt.Println("O-H distances:", chem.Distance(c, 0, 1), chem.Distance(c, 0, 2), "angle:", angle)
	assert.InDelta(Te, 1.06, chem.Distance(c, 0, 1), 0.01)
	assert.InDelta(Te, 1.06, chem.Distance(c, 0, 2), 0.01)
	assert.InDelta(Te, 104.5, angle, 2)

	//Idempotence
	before := c.Clone()
	O := NewOptimizer(mol, options("uff"))
	require.True(Te, O.Optimize())
	assert.Less(Te, O.Trace().Len(), 50)
	rmsd, err := chem.RMSD(before, mol.Coords[0])
	require.NoError(Te, err)
	assert.Less(Te, rmsd, 0.1)

	//unknown force field
	mol2 := water(Te)
	O = NewOptimizer(mol2)
	O.SetForceField("nonexistent")
	assert.False(Te, O.Optimize())
	assert.Equal(Te, Failed, O.State())
	assert.Equal(Te, "Force field 'nonexistent' is not supported.", O.ErrorString())
	assert.Equal(Te, water(Te).Coords[0].RawMatrix().Data, mol2.Coords[0].RawMatrix().Data)
}

func TestNaNRecovery(Te *testing.T) {
	mol := diatomic(Te, 2.0)
	O := NewOptimizer(mol, options("test-nan"))
	require.True(Te, O.Setup())
	//The first move puts both atoms on top of each other.
	O.Step()
	rep, ok := O.Trace().Last()
	require.True(Te, ok)
	fmt.Printf("First step: %+v\n", rep)
	assert.GreaterOrEqual(Te, rep.Divergences, 1)
	assert.False(Te, O.Coords().HasNaN())
	for i := 0; i < 20; i++ {
		O.Step()
		assert.False(Te, O.Coords().HasNaN())
	}
	require.True(Te, O.Optimize(), O.ErrorString())
	assert.False(Te, mol.Coords[0].HasNaN())
	assert.InDelta(Te, springR0, chem.Distance(mol.Coords[0], 0, 1), 0.1/20)
}

func TestWiggle(Te *testing.T) {
	from, _ := v3.NewMatrix([]float64{0, 0, 0, 1, 1, 1, 5, -2, 3})
	coords := v3.Zeros(3)
	rnd := rand.New(rand.NewSource(1))
	wiggle(coords, from, 1.0, rnd)
	for i := 0; i < 3; i++ {
		dist := r3.Norm(r3.Sub(coords.Vec(i), from.Vec(i)))
		assert.InDelta(Te, 1.0, dist, 1e-12)
	}
	//same seed, same displacements
	coords2 := v3.Zeros(3)
	wiggle(coords2, from, 1.0, rand.New(rand.NewSource(1)))
	assert.Equal(Te, coords.RawMatrix().Data, coords2.RawMatrix().Data)
}

func TestStepGrowth(Te *testing.T) {
	mol := molecule(Te, []string{"C"}, []float64{0, 0, 0})
	O := NewOptimizer(mol, options("test-slope"))
	require.True(Te, O.Setup())
	assert.Equal(Te, Ready, O.State())
	assert.False(Te, O.Step(), "the gradient of a slope never vanishes")
	rep, _ := O.Trace().Last()
	assert.Equal(Te, 10, rep.Accepted)
	assert.Equal(Te, 0, rep.Rejected)
	assert.Equal(Te, 1.0, rep.StepSize)
	//0.05+0.1+0.2+0.4+0.8 and then 5 moves of 1
	assert.InDelta(Te, 6.55, O.Coords().At(0, 0), 1e-9)
	assert.Equal(Te, 0.0, mol.Coords[0].At(0, 0), "the molecule should not change before WriteCoordinates")
	//the step size starts over on each step
	O.Step()
	assert.InDelta(Te, 13.1, O.Coords().At(0, 0), 1e-9)
	O.WriteCoordinates()
	assert.InDelta(Te, 13.1, mol.Coords[0].At(0, 0), 1e-9)
	assert.InDelta(Te, -13.1, O.Energy(), 1e-9)
}

func TestStepRejection(Te *testing.T) {
	f := spring("stiff", 1000, 0)
	f.SetMolecule(diatomic(Te, 2))
	coords, _ := v3.NewMatrix([]float64{0, 0, 0, 2, 0, 0})
	before := coords.Clone()
	opts := DefaultOptions()
	opts.StepCount = 1
	rep := lineSearch(f, coords, opts, rand.New(rand.NewSource(1)))
	assert.Equal(Te, 1, rep.Rejected)
	assert.Equal(Te, before.RawMatrix().Data, coords.RawMatrix().Data, "a rejected move should be undone exactly")
	assert.InDelta(Te, 0.005, rep.StepSize, 1e-15)
	//with more moves, it eventually finds a lower energy.
	opts.StepCount = 10
	initial := f.Energy(coords)
	rep = lineSearch(f, coords, opts, rand.New(rand.NewSource(1)))
	assert.Greater(Te, rep.Accepted, 0)
	assert.Less(Te, rep.Energy, initial)
}

func TestFlatAndEarlyStop(Te *testing.T) {
	mol := molecule(Te, []string{"C"}, []float64{0, 0, 0})
	flat := &testFF{name: "flat", energy: func(*v3.Matrix) float64 { return 1 }}
	flat.gradient = func(c *v3.Matrix) *v3.Matrix {
		g := v3.Zeros(1)
		g.Set(0, 0, 1)
		return g
	}
	flat.SetMolecule(mol)
	coords := v3.Zeros(1)
	rep := lineSearch(flat, coords, DefaultOptions(), nil)
	//equal energies keep the move, without changing the step
	assert.Equal(Te, 0, rep.Accepted+rep.Rejected)
	assert.Equal(Te, 0.05, rep.StepSize)
	assert.InDelta(Te, -0.5, coords.At(0, 0), 1e-12)

	gentle := &testFF{name: "gentle", energy: func(c *v3.Matrix) float64 { return -1e-6 * c.At(0, 0) }}
	gentle.gradient = func(c *v3.Matrix) *v3.Matrix {
		g := v3.Zeros(1)
		g.Set(0, 0, -1e-6)
		return g
	}
	coords = v3.Zeros(1)
	rep = lineSearch(gentle, coords, DefaultOptions(), nil)
	assert.Equal(Te, 1, rep.Iterations)
	assert.Equal(Te, 1, rep.Accepted)
	assert.True(Te, rep.Converged)
	assert.Equal(Te, 3, gentle.calls)
	assert.InDelta(Te, 0.05e-6, coords.At(0, 0), 1e-15)
}

func TestSetupFailures(Te *testing.T) {
	O := NewOptimizer(nil)
	assert.False(Te, O.Setup())
	assert.Equal(Te, "No molecule specified", O.ErrorString())
	assert.True(Te, errors.Is(O.Err(), ErrNoMolecule))
	assert.Equal(Te, Unconfigured, O.State())
	assert.False(Te, O.Step())
	assert.Equal(Te, 0.0, O.Energy())
	assert.Nil(Te, O.Coords())

	//a typed nil is no molecule either
	var nilmol *chem.Molecule
	O = NewOptimizer(nilmol)
	assert.NotPanics(Te, func() { assert.False(Te, O.Setup()) })
	assert.True(Te, errors.Is(O.Err(), ErrNoMolecule))
	assert.Nil(Te, O.Molecule())
	O.SetMolecule(diatomic(Te, 1.5))
	O.SetMolecule(nilmol)
	assert.Nil(Te, O.Molecule())
	assert.False(Te, O.Setup())
	assert.Equal(Te, "No molecule specified", O.ErrorString())
	assert.False(Te, O.Step())

	mol := diatomic(Te, 1.5)
	O.SetMolecule(mol)
	assert.Same(Te, mol, O.Molecule())
	assert.Equal(Te, "uff", O.ForceField())
	assert.True(Te, O.SetForceField("nonexistent"))
	assert.False(Te, O.Setup())
	assert.Equal(Te, "Force field 'nonexistent' is not supported.", O.ErrorString())
	assert.True(Te, errors.Is(O.Err(), ff.ErrUnsupported))

	O.SetForceField("test-failing")
	assert.False(Te, O.Setup())
	assert.Equal(Te, "Failed to setup force field.", O.ErrorString())
	assert.True(Te, errors.Is(O.Err(), ff.ErrSetup))
	var perr paramError
	require.True(Te, errors.As(O.Err(), &perr), "the force field's own error should be reachable")
	assert.Equal(Te, "C", perr.symbol)
	fmt.Println(O.Err())
	assert.False(Te, O.Optimize())
	assert.Equal(Te, Failed, O.State())

	//Setup can be retried
	O.SetForceField("test-spring")
	assert.True(Te, O.Setup())
	assert.Empty(Te, O.ErrorString())
	assert.NoError(Te, O.Err())
	assert.Equal(Te, Ready, O.State())

	bad := options("test-spring")
	bad.Shrink = 0
	O = NewOptimizer(mol, bad)
	assert.False(Te, O.Setup())
	assert.True(Te, errors.Is(O.Err(), ErrOptions))

	O = NewOptimizer(molecule(Te, []string{"C", "Xx"}, []float64{0, 0, 0, 1.5, 0, 0}))
	assert.False(Te, O.Setup())
	assert.True(Te, errors.Is(O.Err(), ff.ErrSetup))
}

func TestMaxSteps(Te *testing.T) {
	mol := molecule(Te, []string{"C"}, []float64{0, 0, 0})
	opts := options("test-slope")
	opts.MaxSteps = 3
	O := NewOptimizer(mol, opts)
	assert.False(Te, O.Optimize())
	assert.True(Te, errors.Is(O.Err(), ErrNotConverged))
	assert.Equal(Te, Failed, O.State())
	assert.Equal(Te, 3, O.Trace().Len())
	assert.Equal(Te, 0.0, mol.Coords[0].At(0, 0))
	assert.Len(Te, O.Trace().Energies(), 3)
	assert.Len(Te, O.Trace().RMSGradients(), 3)
}

func TestFrameWriter(Te *testing.T) {
	mol := molecule(Te, []string{"C"}, []float64{0, 0, 0})
	opts := options("test-slope")
	opts.MaxSteps = 5
	O := NewOptimizer(mol, opts)
	w := &frameCounter{}
	O.SetFrameWriter(w)
	O.Optimize()
	assert.Equal(Te, 5, w.frames)
	failing := &frameCounter{failAfter: 2}
	O.SetFrameWriter(failing)
	O.Optimize()
	assert.Equal(Te, 2, failing.frames)
	assert.Equal(Te, 5, O.Trace().Len(), "a failing frame writer should not stop the optimization")
}

func TestAsync(Te *testing.T) {
	mol := water(Te)
	before := mol.Coords[0].Clone()
	F := OptimizeCoordinatesAsync(mol, options("uff"))
	_, err := uuid.Parse(F.ID())
	assert.NoError(Te, err)
	assert.True(Te, F.Wait())
	<-F.Done()
	assert.True(Te, F.Ready())
	ok, err := F.Result()
	assert.True(Te, ok)
	assert.NoError(Te, err)
	rmsd, _ := chem.RMSD(before, mol.Coords[0])
	assert.Greater(Te, rmsd, 0.0, "the optimized coordinates should be in the molecule after Wait")
	last, ok := F.Last()
	require.True(Te, ok)
	assert.True(Te, last.Converged)
	assert.Less(Te, last.RMSGradient, DefaultOptions().Convergence)

	var nilmol *chem.Molecule
	ok, err = OptimizeCoordinatesAsync(nilmol).Result()
	assert.False(Te, ok)
	assert.True(Te, errors.Is(err, ErrNoMolecule))

	F = OptimizeCoordinatesAsync(nil)
	ok, err = F.Result()
	assert.False(Te, ok)
	assert.True(Te, errors.Is(err, ErrNoMolecule))
	_, ok = F.Last()
	assert.False(Te, ok)
	assert.NotEqual(Te, F.ID(), OptimizeCoordinatesAsync(nil).ID())
}

func TestOptions(Te *testing.T) {
	o, err := ParseOptions("step = 0.1\nmax_steps = 50\nforcefield = \"test-spring\"")
	require.NoError(Te, err)
	assert.Equal(Te, 0.1, o.Step)
	assert.Equal(Te, 50, o.MaxSteps)
	assert.Equal(Te, "test-spring", o.ForceField)
	assert.Equal(Te, DefaultOptions().Convergence, o.Convergence)
	_, err = ParseOptions("step = -1")
	assert.True(Te, errors.Is(err, ErrOptions))
	_, err = ParseOptions("stepp = 1")
	assert.True(Te, errors.Is(err, ErrOptions))
	fmt.Println(err)
	_, err = ParseOptions("step = ")
	assert.Error(Te, err)

	name := filepath.Join(Te.TempDir(), "opt.toml")
	require.NoError(Te, os.WriteFile(name, []byte("seed = 3\nwiggle = 0.5\n"), 0644))
	o, err = LoadOptions(name)
	require.NoError(Te, err)
	assert.Equal(Te, int64(3), o.Seed)
	assert.Equal(Te, 0.5, o.Wiggle)
	_, err = LoadOptions(filepath.Join(Te.TempDir(), "nothere.toml"))
	assert.Error(Te, err)

	O := NewOptimizer(diatomic(Te, 2), o)
	assert.Equal(Te, *o, O.Options())
	assert.Equal(Te, "ready", Ready.String())
}
