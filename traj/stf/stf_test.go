/*
 * stf_test.go
 *
 * Copyright 2021 Raul Mera Adasme <rmera_changeforat_chem-dot-helsinki-dot-fi>
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
 */

package stf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/rmera/geopt/opt"
	v3 "github.com/rmera/geopt/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ opt.FrameWriter = (*StfW)(nil)

func frames(Te *testing.T) []*v3.Matrix {
	ret := make([]*v3.Matrix, 3)
	for i := range ret {
		c, err := v3.NewMatrix([]float64{
			0, 0, 0,
			0.96 + 0.01*float64(i), 0, 0,
			-0.24, 0.93, -1.2345,
		})
		require.NoError(Te, err)
		ret[i] = c
	}
	return ret
}

func TestSTFRoundTrip(Te *testing.T) {
	dir := Te.TempDir()
	for _, ext := range []string{"stf", "stz", "str", "stl"} {
		name := filepath.Join(dir, "traj."+ext)
		fmt.Println("STF roundtrip test:", name)
		w, err := NewWriter(name, 3, map[string]string{"title": "water", "forcefield": "uff"})
		require.NoError(Te, err)
		orig := frames(Te)
		box := []float64{10, 0, 0, 0, 10, 0, 0, 0, 10.5}
		for i, c := range orig {
			if i == 0 {
				require.NoError(Te, w.WNext(c, box))
			} else {
				require.NoError(Te, w.WNext(c))
			}
		}
		assert.Equal(Te, 3, w.Frames())
		require.NoError(Te, w.Close())
		require.NoError(Te, w.Close()) //closing twice is harmless

		r, m, err := New(name)
		require.NoError(Te, err)
		assert.Equal(Te, 3, r.Len())
		assert.Equal(Te, "water", m["title"])
		assert.Equal(Te, "uff", m["forcefield"])
		assert.Equal(Te, "2", m["prec"])
		c := v3.Zeros(3)
		rbox := make([]float64, 9)
		for i, o := range orig {
			require.NoError(Te, r.Next(c, rbox))
			for j := 0; j < 3; j++ {
				for k := 0; k < 3; k++ {
					assert.InDelta(Te, o.At(j, k), c.At(j, k), 0.005, "frame %d atom %d", i, j)
				}
			}
			if i == 0 {
				assert.Equal(Te, box, rbox)
			}
		}
		err = r.Next(c)
		assert.True(Te, errors.Is(err, ErrLastFrame), "%v", err)
		assert.False(Te, err.(Error).Critical())
		assert.False(Te, r.Readable())
	}
}

func TestSTFPrecision(Te *testing.T) {
	name := filepath.Join(Te.TempDir(), "prec.stf")
	w, err := NewWriter(name, 3, map[string]string{"prec": "4"})
	require.NoError(Te, err)
	for _, c := range frames(Te) {
		require.NoError(Te, w.WNext(c))
	}
	require.NoError(Te, w.Close())
	all, m, err := ReadAll(name)
	require.NoError(Te, err)
	assert.Equal(Te, "4", m["prec"])
	require.Len(Te, all, 3)
	assert.InDelta(Te, -1.2345, all[2].At(2, 2), 1e-9)
	assert.InDelta(Te, 0.98, all[2].At(1, 0), 1e-9)

	_, err = NewWriter(filepath.Join(Te.TempDir(), "bad.stf"), 3, map[string]string{"prec": "two"})
	assert.Error(Te, err)
}

func TestSTFErrors(Te *testing.T) {
	dir := Te.TempDir()
	name := filepath.Join(dir, "err.stz")
	w, err := NewWriter(name, 3, nil)
	require.NoError(Te, err)
	wrong, err := v3.NewMatrix([]float64{0, 0, 0})
	require.NoError(Te, err)
	err = w.WNext(wrong)
	require.Error(Te, err)
	e := err.(Error)
	assert.True(Te, e.Critical())
	assert.Equal(Te, []string{"WNext", "caller"}, e.Decorate("caller"))
	assert.Error(Te, w.WNext(nil))
	require.NoError(Te, w.Close())
	assert.Error(Te, w.WNext(frames(Te)[0]))

	//empty trajectory
	r, _, err := New(name)
	require.NoError(Te, err)
	assert.True(Te, errors.Is(r.Next(nil), ErrLastFrame))

	_, _, err = New(filepath.Join(dir, "nonexistent.stf"))
	assert.Error(Te, err)

	//not an stf file
	plain := filepath.Join(dir, "plain.stz")
	require.NoError(Te, os.WriteFile(plain, []byte("not compressed"), 0o644))
	_, _, err = New(plain)
	assert.Error(Te, err)

	_, err = NewWriter(filepath.Join(dir, "zero.stf"), 0, nil)
	assert.Error(Te, err)
}
