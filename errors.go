/*
Copyright © 2017 the SPHERLS authors.
This file is part of SPHERLS.

SPHERLS is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

SPHERLS is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with SPHERLS.  If not, see <http://www.gnu.org/licenses/>.
*/

package spherls

import "fmt"

// ErrorKind classifies engine failures.
type ErrorKind int

const (
	// CalculationError marks a broken numerical invariant (negative
	// density, energy or temperature) or an ill-posed operator binding.
	CalculationError ErrorKind = iota
	// InputError marks a non-physical input-derived condition, such as a
	// non-positive CFL timestep.
	InputError
)

func (k ErrorKind) String() string {
	switch k {
	case CalculationError:
		return "CALCULATION"
	case InputError:
		return "INPUT"
	}
	return "UNKNOWN"
}

// Error is a structured engine failure carrying the rank and the grid
// indices where the failure was detected. Indices that do not apply are -1.
type Error struct {
	Kind    ErrorKind
	Rank    int
	I, J, K int
	Msg     string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		// Non-root ranks re-throw with an empty message so the
		// orchestrator terminates through the error path on every rank
		// while only rank 0 prints.
		return fmt.Sprintf("%s error", e.Kind)
	}
	if e.I >= 0 {
		return fmt.Sprintf("%s error (rank %d, cell %d,%d,%d): %s",
			e.Kind, e.Rank, e.I, e.J, e.K, e.Msg)
	}
	return fmt.Sprintf("%s error (rank %d): %s", e.Kind, e.Rank, e.Msg)
}

// calcErrf returns a CalculationError located at cell (i,j,k). Only rank 0
// formats the human-readable message.
func calcErrf(rank, i, j, k int, format string, args ...interface{}) *Error {
	e := &Error{Kind: CalculationError, Rank: rank, I: i, J: j, K: k}
	if rank == 0 {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}

// inputErrf returns an InputError located at cell (i,j,k).
func inputErrf(rank, i, j, k int, format string, args ...interface{}) *Error {
	e := &Error{Kind: InputError, Rank: rank, I: i, J: j, K: k}
	if rank == 0 {
		e.Msg = fmt.Sprintf(format, args...)
	}
	return e
}
