/*
 * numgrad.go, part of gochem.
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

package ff

import (
	"math"

	chem "github.com/rmera/geopt"
	v3 "github.com/rmera/geopt/v3"
	"gonum.org/v1/gonum/floats"
)

// DefaultH is the displacement, in A, used for numerical gradients when none is given.
const DefaultH = 1e-4

// RMSGradient returns the square root of the mean, over atoms, of the squared
// norm of each gradient vector. It returns 0 for an empty gradient.
func RMSGradient(grad *v3.Matrix) float64 {
	if grad == nil {
		return 0
	}
	n := grad.NVecs()
	if n == 0 {
		return 0
	}
	var sum float64
	row := make([]float64, 3)
	for i := 0; i < n; i++ {
		row[0], row[1], row[2] = grad.At(i, 0), grad.At(i, 1), grad.At(i, 2)
		sum += floats.Dot(row, row)
	}
	return math.Sqrt(sum / float64(n))
}

// NumericalGradient returns the central-difference gradient of energy at coords,
// with displacement h. coords is not modified.
func NumericalGradient(energy func(*v3.Matrix) float64, coords *v3.Matrix, h float64) *v3.Matrix {
	if h <= 0 {
		h = DefaultH
	}
	work := coords.Clone()
	grad := v3.Zeros(coords.NVecs())
	for i := 0; i < coords.NVecs(); i++ {
		for j := 0; j < 3; j++ {
			orig := work.At(i, j)
			work.Set(i, j, orig+h)
			plus := energy(work)
			work.Set(i, j, orig-h)
			minus := energy(work)
			work.Set(i, j, orig)
			grad.Set(i, j, (plus-minus)/(2*h)) //central difference
		}
	}
	return grad
}

// MaxGradientError returns the largest absolute difference between the gradient
// given by f and the numerical gradient of f's energy at coords.
// Useful to check analytic gradients.
func MaxGradientError(f ForceField, coords *v3.Matrix, h float64) float64 {
	analytic := f.Gradient(coords)
	numerical := NumericalGradient(f.Energy, coords, h)
	analytic.AddScaled(analytic, -1, numerical)
	return maxAbs(analytic)
}

func maxAbs(A *v3.Matrix) float64 {
	var max float64
	for i := 0; i < A.NVecs(); i++ {
		for j := 0; j < 3; j++ {
			if v := math.Abs(A.At(i, j)); v > max {
				max = v
			}
		}
	}
	return max
}

// Numerical is a force field defined only by an energy function. Its gradient is
// obtained by central differences.
type Numerical struct {
	name   string
	energy func(*v3.Matrix) float64
	H      float64 //displacement for the numerical gradient.
	mol    chem.Positioner
}

// EnergyOnly returns a force field named name with the given energy function.
func EnergyOnly(name string, energy func(coords *v3.Matrix) float64) *Numerical {
	return &Numerical{name: name, energy: energy, H: DefaultH}
}

// Name returns the name of the force field.
func (N *Numerical) Name() string { return N.name }

// SetMolecule binds the force field to mol.
func (N *Numerical) SetMolecule(mol chem.Positioner) { N.mol = mol }

// Setup only checks that a molecule has been bound.
func (N *Numerical) Setup() error {
	if N.mol == nil || N.mol.Len() == 0 {
		return setupError("No atoms to set up", "Numerical.Setup")
	}
	if N.energy == nil {
		return setupError("No energy function", "Numerical.Setup")
	}
	return nil
}

// Energy returns the energy for coords.
func (N *Numerical) Energy(coords *v3.Matrix) float64 { return N.energy(coords) }

// Gradient returns the numerical gradient at coords.
func (N *Numerical) Gradient(coords *v3.Matrix) *v3.Matrix {
	return NumericalGradient(N.energy, coords, N.H)
}

// RMSGradient returns the RMS of the gradient at coords.
func (N *Numerical) RMSGradient(coords *v3.Matrix) float64 {
	return RMSGradient(N.Gradient(coords))
}

// Len returns the number of atoms in the bound molecule.
func (N *Numerical) Len() int {
	if N.mol == nil {
		return 0
	}
	return N.mol.Len()
}
