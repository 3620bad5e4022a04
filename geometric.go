/*
 * geometric.go, part of gochem
 *
 * Copyright 2012 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
    This program is free software: you can redistribute it and/or modify
    it under the terms of the GNU Lesser General Public License as published by
    the Free Software Foundation, either version 2.1 of the License, or
    (at your option) any later version.

    This program is distributed in the hope that it will be useful,
    but WITHOUT ANY WARRANTY; without even the implied warranty of
    MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
    GNU General Public License for more details.

    You should have received a copy of the GNU Lesser General Public License
    along with this program.  If not, see <http://www.gnu.org/licenses/>.
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
	"math"

	v3 "github.com/rmera/geopt/v3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Angle takes 2 vectors and calculate the angle in radians between them
// It does not check for correctness or return errors!
func Angle(v1, v2 r3.Vec) float64 {
	normproduct := r3.Norm(v1) * r3.Norm(v2)
	dotprod := r3.Dot(v1, v2)
	argument := dotprod / normproduct
	//Take care of floating point math errors
	if math.Abs(argument-1) <= appzero {
		argument = 1
	} else if math.Abs(argument+1) <= appzero {
		argument = -1
	}
	angle := math.Acos(argument)
	if math.Abs(angle) <= appzero {
		return 0.00
	}
	return angle
}

// Distance returns the distance, in the units of coords, between the atoms i and j.
func Distance(coords *v3.Matrix, i, j int) float64 {
	return r3.Norm(r3.Sub(coords.Vec(i), coords.Vec(j)))
}

// BondAngle returns the angle in radians formed by the atoms i, j and k, j being
// the vertex.
func BondAngle(coords *v3.Matrix, i, j, k int) float64 {
	vertex := coords.Vec(j)
	return Angle(r3.Sub(coords.Vec(i), vertex), r3.Sub(coords.Vec(k), vertex))
}

// RMSD returns the RSMD (root of the mean square deviation) for the sets of cartesian
// coordinates in test and template. No superposition is performed.
func RMSD(test, template *v3.Matrix) (float64, error) {
	//This is a VERY naive implementation.
	if test.NVecs() != template.NVecs() {
		return 0, CError{msg: fmt.Sprintf("Ill formed matrices for RMSD calculation: %d and %d vectors", test.NVecs(), template.NVecs()), deco: []string{"RMSD"}, critical: true}
	}
	var RMSD float64
	for i := 0; i < template.NVecs(); i++ {
		d := r3.Sub(template.Vec(i), test.Vec(i))
		RMSD += r3.Dot(d, d)
	}
	RMSD = RMSD / float64(template.NVecs())
	return math.Sqrt(RMSD), nil
}

// CenterOfMass returns the center of mass of the atoms in coords. If mass is nil,
// all atoms are given the same weight.
func CenterOfMass(coords *v3.Matrix, mass []float64) (r3.Vec, error) {
	if mass != nil && len(mass) != coords.NVecs() {
		return r3.Vec{}, CError{msg: fmt.Sprintf("%d masses for %d atoms", len(mass), coords.NVecs()), deco: []string{"CenterOfMass"}, critical: true}
	}
	var com r3.Vec
	var total float64
	for i := 0; i < coords.NVecs(); i++ {
		w := 1.0
		if mass != nil {
			w = mass[i]
		}
		com = r3.Add(com, r3.Scale(w, coords.Vec(i)))
		total += w
	}
	if total == 0 {
		return r3.Vec{}, CError{msg: "Total mass is zero", deco: []string{"CenterOfMass"}, critical: true}
	}
	return r3.Scale(1/total, com), nil
}

// Super returns a copy of test, rotated and translated to best fit template
// in the least squares sense (Kabsch). Reflections are not allowed.
func Super(test, template *v3.Matrix) (*v3.Matrix, error) {
	n := test.NVecs()
	if n != template.NVecs() {
		return nil, CError{msg: fmt.Sprintf("Can't superimpose %d on %d vectors", n, template.NVecs()), deco: []string{"Super"}, critical: true}
	}
	ctest, err := CenterOfMass(test, nil)
	if err != nil {
		return nil, errDecorate(err, "Super")
	}
	ctempla, err := CenterOfMass(template, nil)
	if err != nil {
		return nil, errDecorate(err, "Super")
	}
	p := v3.Zeros(n)
	p.SubVec(test, ctest)
	q := v3.Zeros(n)
	q.SubVec(template, ctempla)
	var h mat.Dense
	h.Mul(p.Dense.T(), q.Dense)
	var svd mat.SVD
	if !svd.Factorize(&h, mat.SVDFull) {
		return nil, CError{msg: "SVD failed", deco: []string{"Super"}, critical: true}
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	d := mat.NewDiagDense(3, []float64{1, 1, 1})
	if mat.Det(&u)*mat.Det(&v) < 0 {
		d.SetDiag(2, -1)
	}
	//rows are vectors, so this is the transpose of the rotation.
	var rot mat.Dense
	rot.Product(&u, d, v.T())
	ret := v3.Zeros(n)
	ret.Dense.Mul(p.Dense, &rot)
	ret.AddVec(ret, ctempla)
	return ret, nil
}

// SuperRMSD returns the RMSD between test and template after superimposing test on template.
// Neither is modified.
func SuperRMSD(test, template *v3.Matrix) (float64, error) {
	s, err := Super(test, template)
	if err != nil {
		return 0, errDecorate(err, "SuperRMSD")
	}
	return RMSD(s, template)
}
