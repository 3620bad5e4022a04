/*
 * ff.go, part of gochem.
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

package ff

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	chem "github.com/rmera/geopt"
	v3 "github.com/rmera/geopt/v3"
	"go.uber.org/zap"
)

// ForceField is a model that gives the potential energy of a molecule, and its gradient,
// for any set of coordinates. A ForceField never reads the positions of the molecule
// it is bound to except in Setup. Energy and gradients are always obtained for the
// coordinates given.
type ForceField interface {

	//Name returns the name under which the force field is registered.
	Name() string

	//SetMolecule binds the force field to mol. Setup must be called after it.
	SetMolecule(mol chem.Positioner)

	//Setup obtains the parameters for the bound molecule. The returned error
	//satisfies errors.Is(err, ErrSetup) if the molecule is not supported.
	Setup() error

	//Energy returns the potential energy for coords. It may be NaN
	//for degenerate geometries (say, overlapping atoms).
	Energy(coords *v3.Matrix) float64

	//Gradient returns the gradient of the energy at coords, one vector per atom.
	Gradient(coords *v3.Matrix) *v3.Matrix

	//RMSGradient returns the root of the mean square of the norms of the gradient vectors.
	RMSGradient(coords *v3.Matrix) float64

	//Len returns the number of atoms in the bound molecule.
	Len() int
}

// Errors returned by this package can be compared with these values using errors.Is
var (
	ErrUnsupported = errors.New("force field not supported")
	ErrSetup       = errors.New("force field setup failed")
)

// Error is the error type for the ff package.
type Error struct {
	message  string
	deco     []string
	critical bool
	kind     error
}

// Error returns a string with an error message.
func (err Error) Error() string {
	if len(err.deco) == 0 {
		return err.message
	}
	return fmt.Sprintf("%s (%s)", err.message, strings.Join(err.deco, " <- "))
}

// Decorate will add the dec string to the decoration slice of strings of the error,
// and return the resulting slice.
func (err *Error) Decorate(dec string) []string {
	if dec != "" {
		err.deco = append(err.deco, dec)
	}
	return err.deco
}

// Critical return whether the error is critical or it can be ignored
func (err Error) Critical() bool { return err.critical }

// Unwrap returns the sentinel error (ErrUnsupported, ErrSetup) this error corresponds to.
func (err Error) Unwrap() error { return err.kind }

func setupError(msg string, caller string) Error {
	return Error{message: msg, deco: []string{caller}, critical: true, kind: ErrSetup}
}

var logger atomic.Pointer[zap.Logger]

// SetLogger sets the logger used by the package. A nil l disables logging.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

func log() *zap.Logger {
	if l := logger.Load(); l != nil {
		return l
	}
	return zap.NewNop()
}
