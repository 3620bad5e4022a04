/*
 * chem.go, part of gochem.
 *
 *
 * Copyright 2012 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
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
 * Gochem is developed at the laboratory for instruction in Swedish, Department of Chemistry,
 * University of Helsinki, Finland.
 *
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package chem

import (
	"fmt"

	v3 "github.com/rmera/geopt/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

/**Note: Many funcitons here panic instead of returning errors. This is because they are "fundamental"
 * functions. I considered that if something goes wrong here, the program is way-most likely wrong and should
 * crash. Most panics are related to using the funciton on a nil object or trying to access out-of bounds
 * fields**/

// Atom contains the information of an atom, except for the coordinates, which will be in a matrix.
type Atom struct {
	Name   string
	ID     int //The ID of the atom, as it would appear in an input file. It can be anything.
	Index  int //The position of the atom in its molecule. Filled by FillIndexes
	Symbol string
	Mass   float64
	Charge float64
	Vdw    float64
	Bonds  []*Bond //The bonds connecting the atom to others.
}

//Atom methods

// Copy returns a copy of the Atom object. Bonds are not copied.
func (N *Atom) Copy() *Atom {
	if N == nil {
		panic("Attempted to copy a nil atom")
	}
	Newat := new(Atom)
	Newat.Name = N.Name
	Newat.ID = N.ID
	Newat.Index = N.Index
	Newat.Symbol = N.Symbol
	Newat.Mass = N.Mass
	Newat.Charge = N.Charge
	Newat.Vdw = N.Vdw
	return Newat
}

/*****Topology type***/

// Topology contains information about a molecule which is not expected to change in time (i.e. everything except for coordinates)
type Topology struct {
	Atoms  []*Atom
	charge int
	multi  int
}

// NewTopology returns a topology with ats atoms, charge charge and multiplicity multi.
// It doesnt check for consitency between charge and multiplicity.
// The atoms are not copied.
func NewTopology(ats []*Atom, charge, multi int) (*Topology, error) {
	if ats == nil {
		return nil, CError{msg: "Supplied a nil atom slice", deco: []string{"NewTopology"}, critical: true}
	}
	top := new(Topology)
	top.Atoms = ats
	top.charge = charge
	top.multi = multi
	if top.multi == 0 {
		top.multi = 1 //a multiplicity of 0 makes no sense, so we assume a singlet.
	}
	top.FillIndexes()
	return top, nil
}

/*Topology methods*/

// Charge gets the total charge of the topology
func (T *Topology) Charge() int {
	return T.charge
}

// Multi gets the multiplicity of the topology
func (T *Topology) Multi() int {
	return T.multi
}

// FillIndexes sets the Index field of each atom to its position in the topology.
func (T *Topology) FillIndexes() {
	for i, v := range T.Atoms {
		v.Index = i
	}
}

// FillMasses fills the Mass field of all atoms from their symbols.
// returns an error if the mass for some symbol is not known.
func (T *Topology) FillMasses() error {
	for i, v := range T.Atoms {
		m, ok := symbolMass[v.Symbol]
		if !ok {
			return CError{msg: fmt.Sprintf("No mass for atom %d, symbol %s", i, v.Symbol), deco: []string{"FillMasses"}, critical: true}
		}
		v.Mass = m
	}
	return nil
}

// CopyAtoms returns a copy of the topology, with copies of all atoms.
func (T *Topology) CopyAtoms() *Topology {
	Top := new(Topology)
	Top.Atoms = make([]*Atom, T.Len())
	for key, val := range T.Atoms {
		Top.Atoms[key] = val.Copy()
	}
	Top.charge = T.charge
	Top.multi = T.multi
	return Top
}

// Atom returns the Atom corresponding to the index i
// of the Atom slice in the Topology. Panics if
// out of range.
func (T *Topology) Atom(i int) *Atom {
	if i >= T.Len() || i < 0 {
		panic("Topology: Requested Atom out of bounds")
	}
	return T.Atoms[i]
}

// Len returns the number of atoms in the topology.
func (T *Topology) Len() int {
	return len(T.Atoms)
}

/**Type Molecule**/

// Molecule contains all the info for a molecule in many states. The info that is expected to change between states,
// the coordinates, is stored separately from other atomic info.
type Molecule struct {
	*Topology
	Coords  []*v3.Matrix
	current int
}

// NewMolecule makes a molecule with topology top and coordinates coords. Each element of coords
// is a frame, which must have as many vectors as there are atoms in top.
func NewMolecule(top *Topology, coords []*v3.Matrix) (*Molecule, error) {
	if top == nil {
		return nil, CError{msg: "Supplied a nil topology", deco: []string{"NewMolecule"}, critical: true}
	}
	if len(coords) == 0 {
		return nil, CError{msg: "Supplied no coordinates", deco: []string{"NewMolecule"}, critical: true}
	}
	for i, v := range coords {
		if v == nil || v.NVecs() != top.Len() {
			return nil, CError{msg: fmt.Sprintf("Frame %d doesn't have %d coordinates", i, top.Len()), deco: []string{"NewMolecule"}, critical: true}
		}
	}
	mol := new(Molecule)
	mol.Topology = top
	mol.Coords = coords
	return mol, nil
}

//The molecule methods:

// Current returns the index of the frame whose positions are returned by Position.
func (M *Molecule) Current() int {
	return M.current
}

// Position returns the position of the atom i in the current frame.
func (M *Molecule) Position(i int) r3.Vec {
	return M.Coords[M.current].Vec(i)
}

// SetPosition sets the position of the atom i in the current frame to p.
func (M *Molecule) SetPosition(i int, p r3.Vec) {
	M.Coords[M.current].SetVec(i, p)
}

// Copy returns a deep copy of the molecule. Bonds are not copied.
func (M *Molecule) Copy() *Molecule {
	coords := make([]*v3.Matrix, len(M.Coords))
	for i, v := range M.Coords {
		coords[i] = v.Clone()
	}
	r, _ := NewMolecule(M.Topology.CopyAtoms(), coords) //can't fail, M was a valid Molecule.
	r.current = M.current
	return r
}
