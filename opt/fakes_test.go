/*
 * fakes_test.go, part of gochem.
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
	"math"
	"testing"

	chem "github.com/rmera/geopt"
	"github.com/rmera/geopt/ff"
	v3 "github.com/rmera/geopt/v3"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

// testFF is a force field made of functions, for testing.
type testFF struct {
	name     string
	mol      chem.Positioner
	energy   func(*v3.Matrix) float64
	gradient func(*v3.Matrix) *v3.Matrix
	setupErr error
	calls    int //number of energy evaluations
}

func (T *testFF) Name() string { return T.name }

func (T *testFF) SetMolecule(mol chem.Positioner) { T.mol = mol }

func (T *testFF) Setup() error {
	if T.mol == nil {
		return errors.New("no molecule")
	}
	return T.setupErr
}

func (T *testFF) Energy(c *v3.Matrix) float64 {
	T.calls++
	return T.energy(c)
}

func (T *testFF) Gradient(c *v3.Matrix) *v3.Matrix { return T.gradient(c) }

func (T *testFF) RMSGradient(c *v3.Matrix) float64 { return ff.RMSGradient(T.gradient(c)) }

func (T *testFF) Len() int { return T.mol.Len() }

const (
	springK  = 10.0
	springR0 = 1.0
)

// spring is a harmonic bond between the atoms 0 and 1, with the minimum at springR0.
// nanUnder is the distance under which the energy is NaN.
func spring(name string, k, nanUnder float64) *testFF {
	T := &testFF{name: name}
	T.energy = func(c *v3.Matrix) float64 {
		r := r3.Norm(r3.Sub(c.Vec(0), c.Vec(1)))
		if r < nanUnder {
			return math.NaN()
		}
		return 0.5 * k * (r - springR0) * (r - springR0)
	}
	T.gradient = func(c *v3.Matrix) *v3.Matrix {
		g := v3.Zeros(c.NVecs())
		diff := r3.Sub(c.Vec(0), c.Vec(1))
		r := r3.Norm(diff)
		g0 := r3.Scale(k*(r-springR0)/r, diff)
		g.SetVec(0, g0)
		g.SetVec(1, r3.Scale(-1, g0))
		return g
	}
	return T
}

// slope has an energy that decreases linearly with the x coordinate of the first atom.
func slope() *testFF {
	T := &testFF{name: "test-slope"}
	T.energy = func(c *v3.Matrix) float64 { return -c.At(0, 0) }
	T.gradient = func(c *v3.Matrix) *v3.Matrix {
		g := v3.Zeros(c.NVecs())
		g.Set(0, 0, -1)
		return g
	}
	return T
}

func init() {
	ff.Register("test-spring", func() ff.ForceField { return spring("test-spring", springK, 0) })
	ff.Register("test-nan", func() ff.ForceField { return spring("test-nan", 20, 0.9) })
	ff.Register("test-slope", func() ff.ForceField { return slope() })
	ff.Register("test-failing", func() ff.ForceField {
		T := slope()
		T.name = "test-failing"
		T.setupErr = paramError{symbol: "C"}
		return T
	})
}

// paramError is returned by the test-failing force field.
type paramError struct {
	symbol string
}

func (e paramError) Error() string { return "no parameters for " + e.symbol }

func molecule(Te *testing.T, symbols []string, data []float64) *chem.Molecule {
	ats := make([]*chem.Atom, len(symbols))
	for i, v := range symbols {
		ats[i] = &chem.Atom{Symbol: v}
	}
	top, err := chem.NewTopology(ats, 0, 1)
	require.NoError(Te, err)
	coords, err := v3.NewMatrix(data)
	require.NoError(Te, err)
	mol, err := chem.NewMolecule(top, []*v3.Matrix{coords})
	require.NoError(Te, err)
	return mol
}

func diatomic(Te *testing.T, r float64) *chem.Molecule {
	return molecule(Te, []string{"H", "H"}, []float64{0, 0, 0, r, 0, 0})
}

func water(Te *testing.T) *chem.Molecule {
	return molecule(Te, []string{"O", "H", "H"}, []float64{
		0, 0, 0,
		0.99, 0, 0,
		-0.25, 0.93, 0,
	})
}

// frameCounter counts the frames written to it, and fails after failAfter frames, if
// failAfter is positive.
type frameCounter struct {
	frames    int
	failAfter int
}

func (F *frameCounter) WNext(coords *v3.Matrix, box ...[]float64) error {
	if F.failAfter > 0 && F.frames >= F.failAfter {
		return errors.New("disk full")
	}
	F.frames++
	return nil
}
