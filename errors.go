/*
Copyright © 2025 the RDSim authors.
This file is part of RDSim.

RDSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RDSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RDSim.  If not, see <http://www.gnu.org/licenses/>.
*/

package rdsim

import (
	"errors"
	"fmt"
)

// Error kinds. Errors returned by this package wrap one of these, so
// callers can test for them with errors.Is.
var (
	// ErrPrecondition indicates invalid input: a shape mismatch,
	// a non-positive timestep, a non-finite or negative value, or
	// an out-of-range setting.
	ErrPrecondition = errors.New("precondition violated")

	// ErrDegenerate indicates that every diffusion coefficient is zero
	// and no timestep cap was given, so no stable timestep exists.
	ErrDegenerate = errors.New("numerically degenerate")

	// ErrUnknownSpecies indicates a lookup of a name that is not in the
	// species register.
	ErrUnknownSpecies = errors.New("unknown species")
)

// ComponentError reports a failure together with the component that
// detected it and the offending quantity.
type ComponentError struct {
	Component string      // e.g. "stencil", "reactor", "integrator"
	Quantity  string      // what was wrong, e.g. "block size"
	Value     interface{} // the offending value, if any
	Err       error       // one of the error kinds above
}

func (e *ComponentError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("rdsim: %s: %s: %v", e.Component, e.Quantity, e.Err)
	}
	return fmt.Sprintf("rdsim: %s: %s = %v: %v", e.Component, e.Quantity, e.Value, e.Err)
}

// Unwrap returns the error kind.
func (e *ComponentError) Unwrap() error { return e.Err }

func precondition(component, quantity string, value interface{}) error {
	return &ComponentError{Component: component, Quantity: quantity, Value: value, Err: ErrPrecondition}
}
