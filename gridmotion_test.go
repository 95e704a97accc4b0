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

// wavyModel carries a smooth non-trivial velocity and density profile.
func wavyModel(nR int) *InitialModel {
	im := uniformModel(nR)
	im.Velocity = make([]float64, nR+1)
	for i := 0; i <= nR; i++ {
		x := float64(i) / float64(nR)
		im.Velocity[i] = 0.05 * math.Sin(2.*math.Pi*x)
	}
	for i := 0; i < nR; i++ {
		x := (float64(i) + 0.5) / float64(nR)
		im.Density[i] = 1. + 0.1*math.Cos(2.*math.Pi*x)
	}
	return im
}

// TestGridVelocityMassBalance: after the U0 solve, the relative mass flux
// through each 1D cell's faces must cancel to round-off, and the surface
// interface must move with the fluid.
func TestGridVelocityMassBalance(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, wavyModel(50), cfg, testTimeState(1e-4))
	g := m.Grid

	// Run the stages leading up to the grid-velocity solve by hand.
	ops := m.Ops
	for _, f := range []DomainManipulator{
		ops.EddyViscosity, ops.Density, ops.AveDensity,
		ops.ArtificialViscosity, ops.EOSVars, ops.Velocities,
		ops.GridVelocity,
	} {
		if err := f(m); err != nil {
			t.Fatal(err)
		}
	}

	frac := m.Diag.DonorFrac
	for i := g.IRMin; i <= g.IRMax; i++ {
		fluxIn := m.faceDensity(g.DenAve.New, frac, i-1, g.U.New, g.U0.Old) *
			(g.U.New.Get(i-1, 0, 0) - g.U0.New.Get(i-1, 0, 0)) *
			g.faceAreaR(g.R.Old, i-1, 0, 0)
		fluxOut := m.faceDensity(g.DenAve.New, frac, i, g.U.New, g.U0.Old) *
			(g.U.New.Get(i, 0, 0) - g.U0.New.Get(i, 0, 0)) *
			g.faceAreaR(g.R.Old, i, 0, 0)
		scale := math.Abs(g.D.New.Get(i, 0, 0)) * g.faceAreaR(g.R.Old, i, 0, 0)
		if math.Abs(fluxIn-fluxOut)/scale > 1e-12 {
			t.Errorf("mass flux imbalance at cell %d: in=%g out=%g", i-g.IRMin, fluxIn, fluxOut)
		}
	}

	if absDifferent(g.U0.New.Get(g.IRMax, 0, 0), g.U.New.Get(g.IRMax, 0, 0), 1e-14) {
		t.Errorf("surface grid velocity %g must equal surface fluid velocity %g",
			g.U0.New.Get(g.IRMax, 0, 0), g.U.New.Get(g.IRMax, 0, 0))
	}
}

// TestRadiiAdvanceExact: R_new = R_old + Δt·U0_new exactly.
func TestRadiiAdvanceExact(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, wavyModel(40), cfg, testTimeState(3e-4))
	g := m.Grid
	ops := m.Ops
	for _, f := range []DomainManipulator{
		ops.EddyViscosity, ops.Density, ops.AveDensity,
		ops.ArtificialViscosity, ops.EOSVars, ops.Velocities,
		ops.GridVelocity,
	} {
		if err := f(m); err != nil {
			t.Fatal(err)
		}
	}

	rBefore := make([]float64, g.R.Old.Shape[0])
	for i := range rBefore {
		rBefore[i] = g.R.Old.Get(i, 0, 0)
	}
	if err := ops.GridRadii(m); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < g.R.New.Shape[0]; i++ {
		want := rBefore[i] + m.Time.DtNPHalf*g.U0.New.Get(i, 0, 0)
		if g.R.New.Get(i, 0, 0) != want {
			t.Errorf("interface %d: R_new=%g, want exactly %g", i, g.R.New.Get(i, 0, 0), want)
		}
	}
}

// TestReflectingInnerBoundary: the blast-wave boundary selector pins the
// innermost interface and mirrors the ghost velocities.
func TestReflectingInnerBoundary(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	cfg.InnerBoundary = InnerReflecting
	m := newTestModel(t, wavyModel(30), cfg, testTimeState(1e-4))
	if err := m.Step(); err != nil {
		t.Fatal(err)
	}
	g := m.Grid
	if g.U.Old.Get(g.IRMin-1, 0, 0) != 0 {
		t.Errorf("inner interface velocity must stay zero, got %g", g.U.Old.Get(g.IRMin-1, 0, 0))
	}
	if g.U.Old.Get(g.IRMin-2, 0, 0) != -g.U.Old.Get(g.IRMin, 0, 0) {
		t.Errorf("inner ghost must mirror the main grid: %g vs %g",
			g.U.Old.Get(g.IRMin-2, 0, 0), g.U.Old.Get(g.IRMin, 0, 0))
	}
}

// TestOuterGhostNoInflux: the surface ghost density update must not
// create mass from outside the model.
func TestOuterGhostNoInflux(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, uniformModel(20), cfg, testTimeState(1e-4))
	g := m.Grid
	if err := m.Ops.Density(m); err != nil {
		t.Fatal(err)
	}
	// Quiescent state: the ghost cell outside the model stays empty.
	if g.D.New.Get(g.IRMax+1, 0, 0) != 0 {
		t.Errorf("outer ghost gained mass with no outgoing flux: %g", g.D.New.Get(g.IRMax+1, 0, 0))
	}
}
