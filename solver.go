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

import (
	"fmt"

	"github.com/cpmech/gosl/la"
	"gonum.org/v1/gonum/mat"
)

// SparseSolver is the abstract distributed sparse-matrix + solver service
// the implicit energy correction assembles into. Implementations wrap a
// real sparse backend or a dense factorization for small systems.
type SparseSolver interface {
	// Init sizes the system once; the matrix and vectors are reused
	// across steps.
	Init(n, nnz int) error
	// Start resets the assembly for a new Newton iteration.
	Start()
	// Put accumulates a matrix entry.
	Put(row, col int, v float64)
	// PutRHS accumulates a right-hand-side entry.
	PutRHS(row int, v float64)
	// Solve factors and solves into x.
	Solve(x []float64) error
	// Clean releases backend resources.
	Clean()
}

// KrylovSolver assembles into a gosl triplet and solves with one of the
// gosl sparse backends.
type KrylovSolver struct {
	name string
	kb   *la.Triplet
	rhs  []float64
	lin  la.LinSol
	done bool
}

// NewKrylovSolver returns a sparse solver using the named gosl backend
// (for example "umfpack").
func NewKrylovSolver(name string) *KrylovSolver {
	return &KrylovSolver{name: name}
}

// Init implements SparseSolver.
func (o *KrylovSolver) Init(n, nnz int) error {
	o.kb = new(la.Triplet)
	o.kb.Init(n, n, nnz)
	o.rhs = make([]float64, n)
	o.lin = la.GetSolver(o.name)
	o.done = false
	return nil
}

// Start implements SparseSolver.
func (o *KrylovSolver) Start() {
	o.kb.Start()
	la.VecFill(o.rhs, 0)
}

// Put implements SparseSolver.
func (o *KrylovSolver) Put(row, col int, v float64) {
	o.kb.Put(row, col, v)
}

// PutRHS implements SparseSolver.
func (o *KrylovSolver) PutRHS(row int, v float64) {
	o.rhs[row] += v
}

// Solve implements SparseSolver.
func (o *KrylovSolver) Solve(x []float64) error {
	if !o.done {
		o.lin.InitR(o.kb, false, false, false)
		o.done = true
	}
	if err := o.lin.Fact(); err != nil {
		return fmt.Errorf("sparse factorisation: %v", err)
	}
	if err := o.lin.SolveR(x, o.rhs, false); err != nil {
		return fmt.Errorf("sparse solve: %v", err)
	}
	return nil
}

// Clean implements SparseSolver.
func (o *KrylovSolver) Clean() {
	if o.lin != nil {
		o.lin.Clean()
	}
}

// DenseSolver is the serial fallback: a dense LU over gonum, fine for the
// small systems of single-rank runs and tests.
type DenseSolver struct {
	n   int
	a   *mat.Dense
	rhs []float64
}

// Init implements SparseSolver.
func (o *DenseSolver) Init(n, nnz int) error {
	o.n = n
	o.a = mat.NewDense(n, n, nil)
	o.rhs = make([]float64, n)
	return nil
}

// Start implements SparseSolver.
func (o *DenseSolver) Start() {
	o.a.Zero()
	for i := range o.rhs {
		o.rhs[i] = 0
	}
}

// Put implements SparseSolver.
func (o *DenseSolver) Put(row, col int, v float64) {
	o.a.Set(row, col, o.a.At(row, col)+v)
}

// PutRHS implements SparseSolver.
func (o *DenseSolver) PutRHS(row int, v float64) {
	o.rhs[row] += v
}

// Solve implements SparseSolver.
func (o *DenseSolver) Solve(x []float64) error {
	var xv mat.VecDense
	if err := xv.SolveVec(o.a, mat.NewVecDense(o.n, o.rhs)); err != nil {
		return fmt.Errorf("dense solve: %v", err)
	}
	for i := 0; i < o.n; i++ {
		x[i] = xv.AtVec(i)
	}
	return nil
}

// Clean implements SparseSolver.
func (o *DenseSolver) Clean() {}
