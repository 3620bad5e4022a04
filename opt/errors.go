/*
 * errors.go, part of gochem.
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
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rmera/geopt/ff"
	"go.uber.org/zap"
)

// Errors returned by this package can be compared with these values using errors.Is.
// Errors from a force field are ff.ErrUnsupported or ff.ErrSetup.
var (
	ErrNoMolecule   = errors.New("no molecule")
	ErrNotConverged = errors.New("not converged")
	ErrOptions      = errors.New("invalid options")
)

// Error is the error type for the opt package.
type Error struct {
	message  string
	deco     []string
	critical bool
	kind     error
	cause    error //the error that caused this one, if any.
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

// Unwrap returns the sentinel value for the error and the error that caused it,
// when present.
func (err Error) Unwrap() []error {
	var r []error
	for _, e := range []error{err.kind, err.cause} {
		if e != nil {
			r = append(r, e)
		}
	}
	return r
}

// errDecorate decorates errors from this package and from ff with the caller's name.
// Other errors are returned unchanged.
func errDecorate(err error, caller string) error {
	switch e := err.(type) {
	case Error:
		e.Decorate(caller)
		return e
	case ff.Error:
		e.Decorate(caller)
		return e
	}
	return err
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
