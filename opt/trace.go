/*
 * trace.go, part of gochem.
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
	v3 "github.com/rmera/geopt/v3"
)

// StepReport summarizes one call to Optimizer.Step
type StepReport struct {
	Energy      float64 //energy after the step
	RMSGradient float64 //RMS gradient after the step
	StepSize    float64 //step size at the end of the line search
	Accepted    int     //moves that lowered the energy
	Rejected    int     //moves that raised the energy, and were undone
	Divergences int     //moves that gave a NaN energy
	Iterations  int
	Converged   bool
}

// Trace is the list of reports for the steps taken since the last Setup.
type Trace struct {
	steps []StepReport
}

func (T *Trace) add(r StepReport) {
	T.steps = append(T.steps, r)
}

// Len returns the number of steps in the trace.
func (T *Trace) Len() int {
	return len(T.steps)
}

// Step returns the report for the step i. It panics if i is out of range.
func (T *Trace) Step(i int) StepReport {
	return T.steps[i]
}

// Last returns the last report in the trace, and false if the trace is empty.
func (T *Trace) Last() (StepReport, bool) {
	if len(T.steps) == 0 {
		return StepReport{}, false
	}
	return T.steps[len(T.steps)-1], true
}

// Energies returns the energy after each step.
func (T *Trace) Energies() []float64 {
	r := make([]float64, len(T.steps))
	for i, v := range T.steps {
		r[i] = v.Energy
	}
	return r
}

// RMSGradients returns the RMS gradient after each step.
func (T *Trace) RMSGradients() []float64 {
	r := make([]float64, len(T.steps))
	for i, v := range T.steps {
		r[i] = v.RMSGradient
	}
	return r
}

// FrameWriter is something that can write a set of coordinates, such as
// a trajectory file. stf.StfW and dcd.Writer implement it.
type FrameWriter interface {
	WNext(coords *v3.Matrix, box ...[]float64) error
}
