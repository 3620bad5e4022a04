/*
 * linesearch.go, part of gochem.
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
	"math"
	"math/rand"

	"github.com/rmera/geopt/ff"
	v3 "github.com/rmera/geopt/v3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// lineSearch moves coords against the gradient of f, adapting the step size.
// The step size always starts from opts.Step. A move that raises the energy is undone
// and the step shrinks. A move that lowers it is kept and the step grows, while the
// same gradient is used for the next move. A move that gives a NaN energy is replaced
// by a random displacement of each atom from its previous position, and the
// gradient is recomputed there.
func lineSearch(f ff.ForceField, coords *v3.Matrix, opts *Options, rnd *rand.Rand) StepReport {
	var rep StepReport
	step := opts.Step
	initial := f.Energy(coords)
	grad := f.Gradient(coords)
	snapshot := v3.Zeros(coords.NVecs())
	for i := 0; i < opts.StepCount; i++ {
		rep.Iterations++
		snapshot.Copy(coords)
		coords.AddScaled(coords, -step, grad)
		final := f.Energy(coords)
		if math.IsNaN(final) {
			rep.Divergences++
			wiggle(coords, snapshot, opts.Wiggle, rnd)
			grad = f.Gradient(coords)
			log().Debug("NaN energy, atoms displaced", zap.Int("iteration", i), zap.Float64("step", step))
			continue
		}
		if final < initial && math.Abs(final-initial) < opts.StepConv {
			rep.Accepted++
			break
		}
		if final < initial {
			rep.Accepted++
			step *= opts.Grow
			if step > opts.MaxStep {
				step = opts.MaxStep
			}
			initial = final
		} else if final > initial {
			rep.Rejected++
			coords.Copy(snapshot)
			step *= opts.Shrink
		}
		//equal energies: the move is kept, the step stays.
	}
	rep.StepSize = step
	rep.Energy = f.Energy(coords)
	rep.RMSGradient = f.RMSGradient(coords)
	rep.Converged = rep.RMSGradient < opts.Convergence
	return rep
}

// wiggle puts in coords the positions in from, each displaced by length
// in a random direction.
func wiggle(coords, from *v3.Matrix, length float64, rnd *rand.Rand) {
	for i := 0; i < from.NVecs(); i++ {
		coords.SetVec(i, r3.Add(from.Vec(i), r3.Scale(length, randomUnit(rnd))))
	}
}

// randomUnit returns a unit vector with a direction uniformly distributed over the sphere.
func randomUnit(rnd *rand.Rand) r3.Vec {
	for {
		v := r3.Vec{X: rnd.NormFloat64(), Y: rnd.NormFloat64(), Z: rnd.NormFloat64()}
		if n := r3.Norm(v); n > 1e-8 {
			return r3.Scale(1/n, v)
		}
	}
}
