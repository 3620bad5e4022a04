/*
 * gocoords.go, part of gochem.
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
 * Gochem is developed at the laboratory for instruction in Swedish, Department of Chemistry,
 * University of Helsinki, Finland.
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package v3

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Zeros returns a zero-filled Matrix with vecs vectors and 3 in the other dimension.
func Zeros(vecs int) *Matrix {
	const cols int = 3
	f := make([]float64, cols*vecs)
	return &Matrix{mat.NewDense(vecs, cols, f)}
}

//METHODS

// NVecs returns the number of vecs in F.
func (F *Matrix) NVecs() int {
	r, c := F.Dims()
	if c != 3 {
		panic(ErrNotXx3Matrix)
	}
	return r
}

// Len is the same as NVecs, so a Matrix can be used where a Len() is expected.
func (F *Matrix) Len() int {
	return F.NVecs()
}

// Vec returns the ith vector of F as a r3.Vec.
func (F *Matrix) Vec(i int) r3.Vec {
	if i >= F.NVecs() || i < 0 {
		panic(ErrIndexOutOfRange)
	}
	return r3.Vec{X: F.At(i, 0), Y: F.At(i, 1), Z: F.At(i, 2)}
}

// SetVec sets the ith vector of F to p.
func (F *Matrix) SetVec(i int, p r3.Vec) {
	if i >= F.NVecs() || i < 0 {
		panic(ErrIndexOutOfRange)
	}
	F.Set(i, 0, p.X)
	F.Set(i, 1, p.Y)
	F.Set(i, 2, p.Z)
}

// AddScaled puts in the receiver A+alpha*B. The three matrices
// must have the same number of vectors. The receiver can be A.
func (F *Matrix) AddScaled(A *Matrix, alpha float64, B *Matrix) {
	if A.NVecs() != B.NVecs() || F.NVecs() != A.NVecs() {
		panic(ErrShape)
	}
	if F != A {
		F.Copy(A)
	}
	//The coordinates created in this package are never views, so the
	//raw data is contiguous. For views we go the long way.
	f := F.RawMatrix()
	b := B.RawMatrix()
	if f.Stride == 3 && b.Stride == 3 {
		floats.AddScaled(f.Data[:3*f.Rows], alpha, b.Data[:3*b.Rows])
		return
	}
	for i := 0; i < F.NVecs(); i++ {
		for j := 0; j < 3; j++ {
			F.Set(i, j, F.At(i, j)+alpha*B.At(i, j))
		}
	}
}

// SubVec subtracts the vector vec to each vector of the matrix A, putting
// the result on the receiver.
func (F *Matrix) SubVec(A *Matrix, vec r3.Vec) {
	F.AddVec(A, r3.Scale(-1, vec))
}

// AddVec adds the vector vec to each vector of A, putting the result in the receiver.
func (F *Matrix) AddVec(A *Matrix, vec r3.Vec) {
	if F.NVecs() != A.NVecs() {
		panic(ErrShape)
	}
	for i := 0; i < A.NVecs(); i++ {
		F.SetVec(i, r3.Add(A.Vec(i), vec))
	}
}

// HasNaN returns true if any element of F is a NaN.
func (F *Matrix) HasNaN() bool {
	f := F.RawMatrix()
	if f.Stride == 3 {
		return floats.HasNaN(f.Data[:3*f.Rows])
	}
	for i := 0; i < F.NVecs(); i++ {
		if floats.HasNaN(F.RawRowView(i)[:3]) {
			return true
		}
	}
	return false
}

// String returns a neat string representation of a Matrix
func (F *Matrix) String() string {
	r, _ := F.Dims()
	v := make([]string, r+2)
	v[0] = "\n["
	v[len(v)-1] = " ]"
	row := make([]float64, 3)
	for i := 0; i < r; i++ {
		mat.Row(row, i, F.Dense)
		if i == 0 {
			v[i+1] = fmt.Sprintf("%6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
			continue
		} else if i == r-1 {
			v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f", row[0], row[1], row[2])
			continue
		} else {
			v[i+1] = fmt.Sprintf(" %6.2f %6.2f %6.2f\n", row[0], row[1], row[2])
		}
	}
	v[len(v)-2] = strings.Replace(v[len(v)-2], "\n", "", 1)
	return strings.Join(v, "")
}
