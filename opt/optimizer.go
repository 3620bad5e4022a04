/*
 * optimizer.go, part of gochem.
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
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package opt

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"time"

	chem "github.com/rmera/geopt"
	"github.com/rmera/geopt/ff"
	v3 "github.com/rmera/geopt/v3"
	"go.uber.org/zap"
)

// State is the state of an Optimizer.
type State int

const (
	Unconfigured State = iota //no successful Setup yet, or the last one failed.
	Ready                     //set up, steps can be taken.
	Converged                 //Optimize succeeded and the coordinates were written to the molecule.
	Failed                    //Optimize failed.
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Ready:
		return "ready"
	case Converged:
		return "converged"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Optimizer minimizes the energy of a molecule, given by a force field, with respect
// to the positions of its atoms. The molecule is only read in Setup and only
// written in WriteCoordinates. All the moves are done on a private copy of the coordinates.
// An Optimizer is not safe for concurrent use.
type Optimizer struct {
	mol    chem.Positioner
	ffname string
	ff     ff.ForceField
	coords *v3.Matrix
	opts   Options
	rnd    *rand.Rand
	trace  *Trace
	frames FrameWriter
	state  State
	errstr string
	err    error
}

// NewOptimizer returns an optimizer for mol. If opts is given, the first element
// is used instead of DefaultOptions(). The options are copied.
func NewOptimizer(mol chem.Positioner, opts ...*Options) *Optimizer {
	O := new(Optimizer)
	if !isNil(mol) {
		O.mol = mol
	}
	O.opts = *DefaultOptions()
	if len(opts) > 0 && opts[0] != nil {
		O.opts = *opts[0]
	}
	if O.opts.ForceField == "" {
		O.opts.ForceField = "uff"
	}
	O.ffname = O.opts.ForceField
	O.trace = new(Trace)
	return O
}

// isNil returns true if mol is nil, or an interface holding a nil pointer.
func isNil(mol chem.Positioner) bool {
	if mol == nil {
		return true
	}
	v := reflect.ValueOf(mol)
	return v.Kind() == reflect.Ptr && v.IsNil()
}

// SetMolecule sets the molecule to be optimized. If mol is not the current molecule,
// the optimizer goes back to the Unconfigured state, and Setup needs to be called again.
func (O *Optimizer) SetMolecule(mol chem.Positioner) {
	if isNil(mol) {
		mol = nil
	}
	if mol == O.mol {
		return
	}
	O.mol = mol
	O.ff = nil
	O.coords = nil
	O.state = Unconfigured
}

// Molecule returns the molecule to be optimized.
func (O *Optimizer) Molecule() chem.Positioner {
	return O.mol
}

// SetForceField sets the name of the force field to be used. The name is
// not checked until Setup is called, so it always returns true.
func (O *Optimizer) SetForceField(name string) bool {
	O.ffname = name
	O.opts.ForceField = name
	return true
}

// ForceField returns the name of the force field to be used.
func (O *Optimizer) ForceField() string {
	return O.ffname
}

// SetFrameWriter sets w to receive the coordinates after each step. If w returns an
// error, it is logged and no more frames are written to it. A nil w
// stops the writing.
func (O *Optimizer) SetFrameWriter(w FrameWriter) {
	O.frames = w
}

// Options returns a copy of the options used by the optimizer.
func (O *Optimizer) Options() Options {
	return O.opts
}

// Setup creates a new instance of the force field, binds it to the molecule, and copies
// the current positions of the molecule's atoms. It returns false on failure,
// in which case ErrorString and Err give the reason. Setup can be called again
// after a failure, or to start over from the current positions of the molecule.
func (O *Optimizer) Setup() bool {
	O.state = Unconfigured
	O.ff = nil
	O.coords = nil
	O.trace = new(Trace)
	if isNil(O.mol) {
		O.mol = nil
		O.setError("No molecule specified", Error{message: "No molecule specified", deco: []string{"Optimizer.Setup"}, critical: true, kind: ErrNoMolecule})
		return false
	}
	if err := O.opts.Validate(); err != nil {
		O.setError(err.Error(), errDecorate(err, "Optimizer.Setup"))
		return false
	}
	f, err := ff.New(O.ffname)
	if err != nil {
		O.setError(fmt.Sprintf("Force field '%s' is not supported.", O.ffname), errDecorate(err, "Optimizer.Setup"))
		return false
	}
	f.SetMolecule(O.mol)
	n := O.mol.Len()
	err = f.Setup()
	if err == nil && (n == 0 || f.Len() != n) {
		err = Error{message: fmt.Sprintf("Force field has %d atoms, the molecule %d", f.Len(), n), critical: true, kind: ff.ErrSetup}
	}
	if err != nil && !errors.Is(err, ff.ErrSetup) {
		err = Error{message: err.Error(), critical: true, kind: ff.ErrSetup, cause: err}
	}
	if err != nil {
		O.setError("Failed to setup force field.", errDecorate(err, "Optimizer.Setup"))
		return false
	}
	O.ff = f
	O.coords = v3.Zeros(n)
	for i := 0; i < n; i++ {
		O.coords.SetVec(i, O.mol.Position(i))
	}
	seed := O.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	O.rnd = rand.New(rand.NewSource(seed))
	O.errstr = ""
	O.err = nil
	O.state = Ready
	log().Debug("optimizer set up", zap.String("forcefield", O.ffname), zap.Int("atoms", n), zap.Float64("energy", O.Energy()))
	return true
}

func (O *Optimizer) setError(msg string, err error) {
	O.errstr = msg
	O.err = err
	log().Warn("optimizer setup failed", zap.String("forcefield", O.ffname), zap.Error(err))
}

// Step performs one line search on the working coordinates. It returns true
// if, after it, the RMS gradient is under the convergence threshold. It
// returns false without doing anything if the optimizer is not set up.
func (O *Optimizer) Step() bool {
	if O.mol == nil || O.ff == nil {
		return false
	}
	rep := lineSearch(O.ff, O.coords, &O.opts, O.rnd)
	O.trace.add(rep)
	log().Debug("step", zap.Int("n", O.trace.Len()), zap.Float64("energy", rep.Energy),
		zap.Float64("rmsg", rep.RMSGradient), zap.Float64("stepsize", rep.StepSize),
		zap.Int("accepted", rep.Accepted), zap.Int("rejected", rep.Rejected), zap.Int("divergences", rep.Divergences))
	if O.frames != nil {
		if err := O.frames.WNext(O.coords); err != nil {
			log().Warn("frame writer failed, detached", zap.Error(err))
			O.frames = nil
		}
	}
	return rep.Converged
}

// Optimize sets up the optimizer and takes steps until convergence.
// The final coordinates are then written to the molecule.
// Unless Options.MaxSteps is set, there is no limit to the number of steps.
// If the limit is reached, Optimize returns false, Err returns an error satisfying
// errors.Is(err, ErrNotConverged) and the molecule is not modified.
func (O *Optimizer) Optimize() bool {
	if !O.Setup() {
		O.state = Failed
		return false
	}
	for steps := 1; !O.Step(); steps++ {
		if O.opts.MaxSteps > 0 && steps >= O.opts.MaxSteps {
			msg := fmt.Sprintf("No convergence after %d steps", steps)
			O.errstr = msg
			O.err = Error{message: msg, deco: []string{"Optimizer.Optimize"}, critical: false, kind: ErrNotConverged}
			O.state = Failed
			log().Warn("optimization did not converge", zap.Int("steps", steps))
			return false
		}
	}
	O.WriteCoordinates()
	O.state = Converged
	last, _ := O.trace.Last()
	log().Info("optimization converged", zap.Int("steps", O.trace.Len()), zap.Float64("energy", last.Energy), zap.Float64("rmsg", last.RMSGradient))
	return true
}

// WriteCoordinates sets the positions of the molecule's atoms to the working coordinates.
// It does nothing if the optimizer is not set up.
func (O *Optimizer) WriteCoordinates() {
	if O.mol == nil || O.ff == nil {
		return
	}
	for i := 0; i < O.mol.Len(); i++ {
		O.mol.SetPosition(i, O.coords.Vec(i))
	}
}

// Energy returns the energy of the working coordinates, or 0 if
// the optimizer is not set up.
func (O *Optimizer) Energy() float64 {
	if O.ff == nil {
		return 0
	}
	return O.ff.Energy(O.coords)
}

// Coords returns a copy of the working coordinates, or nil if the optimizer is
// not set up.
func (O *Optimizer) Coords() *v3.Matrix {
	if O.coords == nil {
		return nil
	}
	return O.coords.Clone()
}

// ErrorString returns the message for the last error, or an empty string.
func (O *Optimizer) ErrorString() string {
	return O.errstr
}

// Err returns the last error, or nil.
func (O *Optimizer) Err() error {
	return O.err
}

// State returns the state of the optimizer.
func (O *Optimizer) State() State {
	return O.state
}

// Trace returns the reports of the steps taken since the last Setup.
func (O *Optimizer) Trace() *Trace {
	return O.trace
}

// OptimizeCoordinates optimizes the geometry of mol with the default options.
// It returns true on success.
func OptimizeCoordinates(mol chem.Positioner) bool {
	return NewOptimizer(mol).Optimize()
}
