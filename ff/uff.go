/*
 * uff.go, part of gochem.
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
	"fmt"
	"math"

	chem "github.com/rmera/geopt"
	v3 "github.com/rmera/geopt/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Default parameters for the UFF force field. Energies are in kcal/mol, distances in A.
const (
	UFFKBond   = 500.0 //kcal/mol/A^2
	UFFKAngle  = 100.0 //kcal/mol/rad^2
	UFFEpsilon = 0.1   //kcal/mol
)

// distances under this are considered coincident atoms.
const coincident = 1e-8

func init() {
	Register("uff", func() ForceField { return NewUFF() })
}

type bondTerm struct {
	i, j int
	r0   float64
}

type angleTerm struct {
	i, j, k int //j is the vertex
	cos0    float64
	sin2    float64
	linear  bool
}

type vdwTerm struct {
	i, j int
	rmin float64
}

// UFF is a simple universal force field which only needs the element of each atom.
// Bonds are guessed from the initial geometry. The energy is the sum of
// harmonic bond-stretch terms, with equilibrium distances equal to the sum
// of covalent radii, cosine-harmonic angle-bend terms, with the equilibrium
// angle chosen from the number of neighbours of the vertex atom, and 12-6 Lennard-Jones
// terms between atoms not separated by 1 or 2 bonds.
// This is not the full parametrization of Rappe et al. (DOI:10.1021/ja00051a040).
type UFF struct {
	KBond   float64
	KAngle  float64
	Epsilon float64
	mol     chem.Positioner
	natoms  int
	bonds   []bondTerm
	angles  []angleTerm
	vdw     []vdwTerm
}

// NewUFF returns an unbound UFF force field with the default parameters.
func NewUFF() *UFF {
	return &UFF{KBond: UFFKBond, KAngle: UFFKAngle, Epsilon: UFFEpsilon}
}

// Name returns "uff"
func (U *UFF) Name() string { return "uff" }

// SetMolecule binds the force field to mol.
func (U *UFF) SetMolecule(mol chem.Positioner) {
	U.mol = mol
	U.natoms = 0
	U.bonds, U.angles, U.vdw = nil, nil, nil
}

// Len returns the number of atoms in the force field. 0 before a successful Setup.
func (U *UFF) Len() int { return U.natoms }

// Setup guesses the bonds of the bound molecule from its current geometry and builds the
// energy terms. It fails if there is no molecule, or if some element has no known radii.
func (U *UFF) Setup() error {
	U.natoms = 0
	if U.mol == nil || U.mol.Len() == 0 {
		return setupError("No atoms to set up", "UFF.Setup")
	}
	n := U.mol.Len()
	ats := make([]*chem.Atom, n)
	coords := v3.Zeros(n)
	vdwrad := make([]float64, n)
	for i := 0; i < n; i++ {
		at := U.mol.Atom(i)
		if _, ok := chem.CovalentRadius(at.Symbol); !ok {
			return setupError(fmt.Sprintf("No covalent radius for atom %d, element '%s'", i, at.Symbol), "UFF.Setup")
		}
		r, ok := chem.VdwRadius(at.Symbol)
		if !ok {
			return setupError(fmt.Sprintf("No van der Waals radius for atom %d, element '%s'", i, at.Symbol), "UFF.Setup")
		}
		vdwrad[i] = r
		ats[i] = at.Copy() //AssignBonds would overwrite the bonds of the molecule's atoms otherwise.
		coords.SetVec(i, U.mol.Position(i))
	}
	top, err := chem.NewTopology(ats, 0, 1)
	if err != nil {
		return setupError(err.Error(), "UFF.Setup")
	}
	bonds, err := chem.AssignBonds(coords, top)
	if err != nil {
		return setupError(err.Error(), "UFF.Setup")
	}
	U.bonds = make([]bondTerm, 0, len(bonds))
	excluded := make(map[[2]int]bool)
	for _, b := range bonds {
		c1, _ := chem.CovalentRadius(b.At1.Symbol)
		c2, _ := chem.CovalentRadius(b.At2.Symbol)
		U.bonds = append(U.bonds, bondTerm{i: b.At1.Index, j: b.At2.Index, r0: c1 + c2})
		excluded[pair(b.At1.Index, b.At2.Index)] = true
	}
	U.angles = U.angles[:0]
	for _, vertex := range top.Atoms {
		nb := len(vertex.Bonds)
		if nb < 2 {
			continue
		}
		theta0 := equilibriumAngle(vertex.Symbol, nb)
		for a := 0; a < nb; a++ {
			for c := a + 1; c < nb; c++ {
				i := vertex.Bonds[a].Cross(vertex).Index
				k := vertex.Bonds[c].Cross(vertex).Index
				t := angleTerm{i: i, j: vertex.Index, k: k, cos0: math.Cos(theta0), linear: theta0 == math.Pi}
				t.sin2 = math.Pow(math.Sin(theta0), 2)
				U.angles = append(U.angles, t)
				excluded[pair(i, k)] = true
			}
		}
	}
	U.vdw = U.vdw[:0]
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if excluded[pair(i, j)] {
				continue
			}
			U.vdw = append(U.vdw, vdwTerm{i: i, j: j, rmin: vdwrad[i] + vdwrad[j]})
		}
	}
	U.natoms = n
	log().Debug("uff set up", zap.Int("atoms", n), zap.Int("bonds", len(U.bonds)), zap.Int("angles", len(U.angles)), zap.Int("vdw", len(U.vdw)))
	return nil
}

func pair(i, j int) [2]int {
	if i > j {
		return [2]int{j, i}
	}
	return [2]int{i, j}
}

// equilibriumAngle returns the equilibrium angle, in radians, for a vertex atom
// of element symbol with nb neighbours.
func equilibriumAngle(symbol string, nb int) float64 {
	switch {
	case nb >= 4:
		return 109.47 * chem.Deg2Rad
	case nb == 3:
		return 120 * chem.Deg2Rad
	case symbol == "O" || symbol == "S" || symbol == "Se":
		return 104.5 * chem.Deg2Rad
	default:
		return math.Pi
	}
}

// Energy returns the potential energy for coords, in kcal/mol.
// It is NaN if two bonded atoms, or the atoms in an angle, coincide.
func (U *UFF) Energy(coords *v3.Matrix) float64 {
	var e float64
	for _, b := range U.bonds {
		r := chem.Distance(coords, b.i, b.j)
		if r < coincident {
			return math.NaN()
		}
		d := r - b.r0
		e += 0.5 * U.KBond * d * d
	}
	for _, a := range U.angles {
		cos, _, _, _, _ := cosAngle(coords, a)
		if a.linear {
			e += U.KAngle * (1 + cos)
			continue
		}
		d := cos - a.cos0
		e += 0.5 * U.KAngle * d * d / a.sin2
	}
	for _, v := range U.vdw {
		r := chem.Distance(coords, v.i, v.j)
		x6 := math.Pow(v.rmin/r, 6)
		e += U.Epsilon * (x6*x6 - 2*x6) //NaN for r=0, as Inf-Inf.
	}
	return e
}

// cosAngle returns the cosine of the angle in a, the two vectors from the vertex
// and their norms.
func cosAngle(coords *v3.Matrix, a angleTerm) (cos float64, u, v r3.Vec, nu, nv float64) {
	vertex := coords.Vec(a.j)
	u = r3.Sub(coords.Vec(a.i), vertex)
	v = r3.Sub(coords.Vec(a.k), vertex)
	nu = r3.Norm(u)
	nv = r3.Norm(v)
	cos = r3.Dot(u, v) / (nu * nv)
	return cos, u, v, nu, nv
}

func addToVec(A *v3.Matrix, i int, p r3.Vec) {
	A.SetVec(i, r3.Add(A.Vec(i), p))
}

// Gradient returns the analytic gradient of the energy at coords, in kcal/mol/A.
func (U *UFF) Gradient(coords *v3.Matrix) *v3.Matrix {
	grad := v3.Zeros(coords.NVecs())
	for _, b := range U.bonds {
		diff := r3.Sub(coords.Vec(b.i), coords.Vec(b.j))
		r := r3.Norm(diff)
		g := r3.Scale(U.KBond*(r-b.r0)/r, diff)
		addToVec(grad, b.i, g)
		addToVec(grad, b.j, r3.Scale(-1, g))
	}
	for _, a := range U.angles {
		cos, u, v, nu, nv := cosAngle(coords, a)
		dEdcos := U.KAngle
		if !a.linear {
			dEdcos = U.KAngle * (cos - a.cos0) / a.sin2
		}
		di := r3.Sub(r3.Scale(1/(nu*nv), v), r3.Scale(cos/(nu*nu), u))
		dk := r3.Sub(r3.Scale(1/(nu*nv), u), r3.Scale(cos/(nv*nv), v))
		addToVec(grad, a.i, r3.Scale(dEdcos, di))
		addToVec(grad, a.k, r3.Scale(dEdcos, dk))
		addToVec(grad, a.j, r3.Scale(-dEdcos, r3.Add(di, dk)))
	}
	for _, w := range U.vdw {
		diff := r3.Sub(coords.Vec(w.i), coords.Vec(w.j))
		r := r3.Norm(diff)
		x6 := math.Pow(w.rmin/r, 6)
		dEdr := 12 * U.Epsilon / r * (x6 - x6*x6)
		g := r3.Scale(dEdr/r, diff)
		addToVec(grad, w.i, g)
		addToVec(grad, w.j, r3.Scale(-1, g))
	}
	return grad
}

// RMSGradient returns the RMS of the gradient at coords.
func (U *UFF) RMSGradient(coords *v3.Matrix) float64 {
	return RMSGradient(U.Gradient(coords))
}
