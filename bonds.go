/*
 * bonds.go, part of gochem.
 *
 *
 * Copyright 2020 Raul Mera <rmera{at}usachDOTcl>
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

package chem

import (
	"fmt"
	"sort"

	v3 "github.com/rmera/geopt/v3"
	"gonum.org/v1/gonum/spatial/r3"
)

// constants from DOI:10.1186/1758-2946-3-33
const (
	tooclose = 0.63
	bondtol  = 0.45
)

// Bond represents a chemical bond between At1 and At2.
type Bond struct {
	Index int
	At1   *Atom
	At2   *Atom
	Dist  float64
	Order float64 //Order 0 means undetermined
}

// Cross returns the atom bonded to origin by the bond B.
func (B *Bond) Cross(origin *Atom) *Atom {
	if origin.Index == B.At1.Index {
		return B.At2
	}
	if origin.Index == B.At2.Index {
		return B.At1
	}
	panic("Trying to cross a bond: The origin atom given is not present in the bond!") //I think this got to be a programming error, so a panic is warranted.

}

// return a new *Bond slice with the element id removed
func takefromslice(bonds []*Bond, id int) []*Bond {
	newb := make([]*Bond, 0, len(bonds))
	for _, v := range bonds {
		if v.Index != id {
			newb = append(newb, v)
		}
	}
	return newb
}

// RemoveBond removes the bond b from both of its atoms.
func RemoveBond(b *Bond) error {
	lenb1 := len(b.At1.Bonds)
	lenb2 := len(b.At2.Bonds)
	b.At1.Bonds = takefromslice(b.At1.Bonds, b.Index)
	b.At2.Bonds = takefromslice(b.At2.Bonds, b.Index)
	msg := fmt.Sprintf("Failed to remove bond Index:%d", b.Index)
	errs := 0
	if len(b.At1.Bonds) == lenb1 {
		msg = msg + fmt.Sprintf(" from atom. Index:%d", b.At1.Index)
		errs++
	}
	if len(b.At2.Bonds) == lenb2 {
		if errs > 0 {
			msg = msg + " and"
		}
		msg = msg + fmt.Sprintf(" from atom. Index:%d", b.At2.Index)
		errs++
	}
	if errs > 0 {
		return CError{msg: msg, deco: []string{"RemoveBond"}, critical: true}
	}
	return nil
}

// AssignBonds assigns bonds to a molecule based on a simple distance
// criterium, similar to that described in DOI:10.1186/1758-2946-3-33
// Previous bonds in the atoms are discarded. The bonds are returned.
func AssignBonds(coord *v3.Matrix, mol *Topology) ([]*Bond, error) {
	// might get slow for
	//large systems. It's really not thought
	//for proteins or macromolecules.
	var at1, at2 *Atom
	mol.FillIndexes()
	tot := mol.Len()
	if coord.NVecs() != tot {
		return nil, CError{msg: fmt.Sprintf("%d coordinates for %d atoms", coord.NVecs(), tot), deco: []string{"AssignBonds"}, critical: true}
	}
	for _, v := range mol.Atoms {
		v.Bonds = nil
	}
	bonds := make([]*Bond, 0, tot)
	var nextIndex int
	for i := 0; i < tot; i++ {
		at1 = mol.Atom(i)
		cov1 := symbolCovrad[at1.Symbol]
		if cov1 == 0 {
			return nil, CError{msg: fmt.Sprintf("Couldn't find the covalent radii  for %s %d", at1.Symbol, i), deco: []string{"AssignBonds"}, critical: true}
		}
		for j := i + 1; j < tot; j++ {
			at2 = mol.Atom(j)
			cov2 := symbolCovrad[at2.Symbol]
			if cov2 == 0 {
				return nil, CError{msg: fmt.Sprintf("Couldn't find the covalent radii  for %s %d", at2.Symbol, j), deco: []string{"AssignBonds"}, critical: true}
			}
			d := r3.Norm(r3.Sub(coord.Vec(j), coord.Vec(i)))
			if d < cov1+cov2+bondtol && d > tooclose {
				b := &Bond{Index: nextIndex, Dist: d, At1: at1, At2: at2}
				at1.Bonds = append(at1.Bonds, b)
				at2.Bonds = append(at2.Bonds, b)
				bonds = append(bonds, b) //just to easily keep track of them.
				nextIndex++
			}

		}
	}

	//Now we check that no atom has too many bonds.
	for i := 0; i < tot; i++ {
		at := mol.Atom(i)
		max := symbolMaxBonds[at.Symbol]
		if max == 0 { //means there is not a specified number of bonds for this atom.
			continue
		}
		sort.Slice(at.Bonds, func(i, j int) bool { return at.Bonds[i].Dist < at.Bonds[j].Dist })
		//This removes bonds until len(at.Bonds) is not
		//greater than max.
		for len(at.Bonds) > max {
			removed := at.Bonds[len(at.Bonds)-1] //we remove the longest bond
			err := RemoveBond(removed)
			if err != nil {
				return nil, errDecorate(err, "AssignBonds")
			}
			bonds = takefromslice(bonds, removed.Index)
		}

	}

	return bonds, nil
}
