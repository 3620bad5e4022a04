/*
 * async.go, part of gochem.
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
	"github.com/google/uuid"
	chem "github.com/rmera/geopt"
	"go.uber.org/zap"
)

// Future is the pending result of an optimization running in its own goroutine.
type Future struct {
	id      string
	done    chan struct{}
	ok      bool
	err     error
	last    StepReport
	hasLast bool
}

// OptimizeCoordinatesAsync starts the optimization of mol in a new goroutine and
// returns immediately. The positions of mol should not be read or modified until the
// returned Future is ready. They are written once, before that.
// There is no way of stopping the optimization.
func OptimizeCoordinatesAsync(mol chem.Positioner, opts ...*Options) *Future {
	F := &Future{id: uuid.New().String(), done: make(chan struct{})}
	go func() {
		defer close(F.done)
		O := NewOptimizer(mol, opts...)
		F.ok = O.Optimize()
		F.err = O.Err()
		F.last, F.hasLast = O.Trace().Last()
		log().Debug("asynchronous optimization finished", zap.String("id", F.id), zap.Bool("ok", F.ok))
	}()
	return F
}

// ID returns an unique identifier for the optimization.
func (F *Future) ID() string {
	return F.id
}

// Done returns a channel that is closed when the optimization ends.
func (F *Future) Done() <-chan struct{} {
	return F.done
}

// Ready returns true if the optimization has ended.
func (F *Future) Ready() bool {
	select {
	case <-F.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the optimization ends, and returns whether it succeeded.
func (F *Future) Wait() bool {
	<-F.done
	return F.ok
}

// Result blocks until the optimization ends, and returns whether it succeeded
// and the error, if any.
func (F *Future) Result() (bool, error) {
	<-F.done
	return F.ok, F.err
}

// Last blocks until the optimization ends, and returns the report of its last step.
// The second value is false if no step was taken.
func (F *Future) Last() (StepReport, bool) {
	<-F.done
	return F.last, F.hasLast
}
