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
	"math"
	"testing"
)

func implicitConfig() *Config {
	cfg := DefaultConfig()
	cfg.G = 0
	cfg.GammaLawEOS = false
	cfg.Adiabatic = false
	cfg.NumImplicitZones = 5
	cfg.Tolerance = 1e-10
	return cfg
}

// runToImplicit advances the stages the implicit solve depends on.
func runToImplicit(t *testing.T, m *SPHERLS) {
	t.Helper()
	ops := m.Ops
	for _, f := range []DomainManipulator{ops.Density, ops.AveDensity, ops.EOSVars} {
		if err := f(m); err != nil {
			t.Fatal(err)
		}
	}
}

// TestImplicitIdentityWithoutRadiation: with radiation switched off and a
// static medium the residual is already zero, so the Newton iteration
// returns the explicit temperatures untouched in a single pass.
func TestImplicitIdentityWithoutRadiation(t *testing.T) {
	tb := idealTable{cv: 1.5, rg: 1., kappa: 0.4, gamma: 5. / 3.}
	cfg := implicitConfig()
	cfg.SigmaSB = 0
	temps := make([]float64, 20)
	for i := range temps {
		temps[i] = 3. + 0.1*float64(i)
	}
	m := newTableModel(t, tableModel(20, tb, temps), cfg, tb, testTimeState(1e-4))
	runToImplicit(t, m)
	g := m.Grid

	before := make([]float64, g.T.New.Shape[0])
	for i := range before {
		before[i] = g.T.New.Get(i, 0, 0)
	}
	if err := implicitSolve(m); err != nil {
		t.Fatal(err)
	}
	if m.Diag.ImplicitIterations > 2 {
		t.Errorf("expected immediate convergence, took %d iterations", m.Diag.ImplicitIterations)
	}
	for i := g.IRMin; i <= g.IRMax; i++ {
		if absDifferent(g.T.New.Get(i, 0, 0), before[i], 1e-10) {
			t.Errorf("temperature moved without a residual at %d: %g -> %g",
				i-g.IRMin, before[i], g.T.New.Get(i, 0, 0))
		}
	}
	if m.Diag.ImplicitNewtonWarned {
		t.Error("unexpected implicit-solve warning")
	}
}

// TestImplicitSurfaceCooling: the blackbody surface flux must pull the
// outermost implicit zone's temperature down, with Newton converging
// well inside the iteration bound.
func TestImplicitSurfaceCooling(t *testing.T) {
	tb := idealTable{cv: 1.5, rg: 1., kappa: 0.4, gamma: 5. / 3.}
	cfg := implicitConfig()
	cfg.SigmaSB = 1e-4
	temps := make([]float64, 20)
	for i := range temps {
		temps[i] = 2.
	}
	m := newTableModel(t, tableModel(20, tb, temps), cfg, tb, testTimeState(1e-4))
	runToImplicit(t, m)
	g := m.Grid

	tSurfBefore := g.T.New.Get(g.IRMax, 0, 0)
	if err := implicitSolve(m); err != nil {
		t.Fatal(err)
	}
	if g.T.New.Get(g.IRMax, 0, 0) >= tSurfBefore {
		t.Errorf("surface zone did not cool: %g -> %g", tSurfBefore, g.T.New.Get(g.IRMax, 0, 0))
	}
	if m.Diag.ImplicitIterations >= cfg.MaxIterations {
		t.Errorf("Newton failed to converge in %d iterations", m.Diag.ImplicitIterations)
	}
	for i := g.IRMin; i <= g.IRMax; i++ {
		if g.T.New.Get(i, 0, 0) <= 0 {
			t.Fatalf("temperature went non-positive at %d", i-g.IRMin)
		}
	}
	// The converged temperatures must be closed back through the table.
	i := g.IRMax
	wantP := tb.rg * g.D.New.Get(i, 0, 0) * g.T.New.Get(i, 0, 0)
	if absDifferent(g.P.New.Get(i, 0, 0), wantP, 1e-12) {
		t.Errorf("pressure not recomputed from converged T: %g, want %g",
			g.P.New.Get(i, 0, 0), wantP)
	}
}

// TestImplicitHeatFlowsDownGradient: a hot zone inside the implicit
// region loses heat to its cooler neighbour.
func TestImplicitHeatFlowsDownGradient(t *testing.T) {
	tb := idealTable{cv: 1.5, rg: 1., kappa: 0.4, gamma: 5. / 3.}
	cfg := implicitConfig()
	cfg.SigmaSB = 1e-5
	temps := make([]float64, 20)
	for i := range temps {
		temps[i] = 2.
	}
	temps[16] = 3. // hot zone two shells under the surface
	m := newTableModel(t, tableModel(20, tb, temps), cfg, tb, testTimeState(1e-4))
	runToImplicit(t, m)
	g := m.Grid

	hot := g.IRMin + 16
	hotBefore := g.T.New.Get(hot, 0, 0)
	coldBefore := g.T.New.Get(hot+1, 0, 0)
	if err := implicitSolve(m); err != nil {
		t.Fatal(err)
	}
	if g.T.New.Get(hot, 0, 0) >= hotBefore {
		t.Errorf("hot zone did not cool: %g -> %g", hotBefore, g.T.New.Get(hot, 0, 0))
	}
	if g.T.New.Get(hot+1, 0, 0) <= coldBefore {
		t.Errorf("cold neighbour did not warm: %g -> %g", coldBefore, g.T.New.Get(hot+1, 0, 0))
	}
	if m.Diag.ImplicitIterations >= cfg.MaxIterations {
		t.Errorf("Newton failed to converge in %d iterations", m.Diag.ImplicitIterations)
	}
}

// TestImplicitPlanShape: the derivative slots follow the stencil: a
// 1D row carries the diagonal and its radial neighbours only.
func TestImplicitPlanShape(t *testing.T) {
	tb := idealTable{cv: 1.5, rg: 1., kappa: 0.4, gamma: 5. / 3.}
	cfg := implicitConfig()
	temps := make([]float64, 20)
	for i := range temps {
		temps[i] = 2.
	}
	m := newTableModel(t, tableModel(20, tb, temps), cfg, tb, testTimeState(1e-4))
	p := m.Ops.plan
	if p == nil || p.n != cfg.NumImplicitZones {
		t.Fatalf("plan should carry %d rows, got %+v", cfg.NumImplicitZones, p)
	}
	first := p.rows[0]
	if first.surface {
		t.Error("innermost implicit row wrongly marked as surface")
	}
	last := p.rows[p.n-1]
	if !last.surface {
		t.Error("outermost implicit row must use the surface residual")
	}
	wantFirst := []int{derivDiag, derivIPlus}
	if len(first.derivs) != 2 || first.derivs[0] != wantFirst[0] || first.derivs[1] != wantFirst[1] {
		t.Errorf("innermost row derivs %v, want %v", first.derivs, wantFirst)
	}
	wantLast := []int{derivDiag, derivIMinus}
	if len(last.derivs) != 2 || last.derivs[0] != wantLast[0] || last.derivs[1] != wantLast[1] {
		t.Errorf("outermost row derivs %v, want %v", last.derivs, wantLast)
	}
}

// TestDenseSolverSolvesLinearSystem: the serial backend inverts a small
// assembled system correctly.
func TestDenseSolverSolvesLinearSystem(t *testing.T) {
	s := new(DenseSolver)
	if err := s.Init(2, 4); err != nil {
		t.Fatal(err)
	}
	s.Start()
	s.Put(0, 0, 2.)
	s.Put(0, 1, 1.)
	s.Put(1, 0, 1.)
	s.Put(1, 1, 3.)
	s.PutRHS(0, 5.)
	s.PutRHS(1, 10.)
	x := make([]float64, 2)
	if err := s.Solve(x); err != nil {
		t.Fatal(err)
	}
	if math.Abs(x[0]-1.) > 1e-12 || math.Abs(x[1]-3.) > 1e-12 {
		t.Errorf("solve gave %v, want [1 3]", x)
	}
}
