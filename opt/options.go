/*
 * options.go, part of gochem.
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
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Options contains the parameters of the line search and of the optimization.
// Lengths are in the units of the coordinates (normally A).
type Options struct {
	ForceField  string  `toml:"forcefield"`  //name of the force field to use.
	Step        float64 `toml:"step"`        //initial step size for each line search.
	StepConv    float64 `toml:"step_conv"`   //an energy improvement smaller than this ends the line search.
	StepCount   int     `toml:"step_count"`  //maximum number of moves in a line search.
	Convergence float64 `toml:"convergence"` //RMS gradient threshold for convergence.
	MaxStep     float64 `toml:"max_step"`
	Grow        float64 `toml:"grow"`   //factor applied to the step after an accepted move.
	Shrink      float64 `toml:"shrink"` //factor applied to the step after a rejected move.
	Wiggle      float64 `toml:"wiggle"` //length of the random displacement after a NaN energy.
	Seed        int64   `toml:"seed"`   //seed for the random displacements. 0 means a different seed each time.
	MaxSteps    int     `toml:"max_steps"`
}

// DefaultOptions returns the options used when none are given.
// There is no limit to the number of steps in an optimization.
func DefaultOptions() *Options {
	r := new(Options)
	r.ForceField = "uff"
	r.Step = 0.05
	r.StepConv = 1e-5
	r.StepCount = 10
	r.Convergence = 0.1
	r.MaxStep = 1
	r.Grow = 2
	r.Shrink = 0.1
	r.Wiggle = 1
	return r
}

// Validate returns an error satisfying errors.Is(err, ErrOptions) if some
// option doesn't make sense.
func (O *Options) Validate() error {
	bad := func(name string, v interface{}) error {
		return Error{message: fmt.Sprintf("Invalid value for %s: %v", name, v), deco: []string{"Options.Validate"}, critical: true, kind: ErrOptions}
	}
	switch {
	case O.Step <= 0:
		return bad("step", O.Step)
	case O.StepConv <= 0:
		return bad("step_conv", O.StepConv)
	case O.StepCount <= 0:
		return bad("step_count", O.StepCount)
	case O.Convergence <= 0:
		return bad("convergence", O.Convergence)
	case O.MaxStep <= 0:
		return bad("max_step", O.MaxStep)
	case O.Grow <= 0:
		return bad("grow", O.Grow)
	case O.Shrink <= 0:
		return bad("shrink", O.Shrink)
	case O.Wiggle <= 0:
		return bad("wiggle", O.Wiggle)
	case O.MaxSteps < 0:
		return bad("max_steps", O.MaxSteps)
	}
	return nil
}

// ParseOptions reads options from a TOML document. Options not present in
// the document keep their default values.
func ParseOptions(doc string) (*Options, error) {
	o := DefaultOptions()
	md, err := toml.Decode(doc, o)
	if err != nil {
		return nil, Error{message: err.Error(), deco: []string{"ParseOptions"}, critical: true, kind: ErrOptions}
	}
	if undec := md.Undecoded(); len(undec) > 0 {
		return nil, Error{message: fmt.Sprintf("Unknown option %s", undec[0].String()), deco: []string{"ParseOptions"}, critical: true, kind: ErrOptions}
	}
	if err := o.Validate(); err != nil {
		return nil, errDecorate(err, "ParseOptions")
	}
	return o, nil
}

// LoadOptions reads options from the TOML file filename.
func LoadOptions(filename string) (*Options, error) {
	cont, err := os.ReadFile(filename)
	if err != nil {
		return nil, Error{message: err.Error(), deco: []string{"LoadOptions"}, critical: true}
	}
	o, err := ParseOptions(string(cont))
	if err != nil {
		return nil, errDecorate(err, "LoadOptions")
	}
	return o, nil
}
