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

// uniformModel builds a quiescent 1D model with nR zones of unit density
// and energy on [0.1, 1.1].
func uniformModel(nR int) *InitialModel {
	im := &InitialModel{
		NDim:        1,
		RInterfaces: make([]float64, nR+1),
		Density:     make([]float64, nR),
		Energy:      make([]float64, nR),
	}
	for i := 0; i <= nR; i++ {
		im.RInterfaces[i] = 0.1 + float64(i)/float64(nR)
	}
	for i := 0; i < nR; i++ {
		im.Density[i] = 1.
		im.Energy[i] = 1.
	}
	return im
}

func testTimeState(dt float64) *TimeState {
	return &TimeState{
		DtNMHalf:      dt,
		DtNPHalf:      dt,
		DtN:           dt,
		CourantFactor: 0.5,
		PerChange:     0.05,
		VariableDt:    true,
	}
}

// newTestModel builds a gamma-law adiabatic single-rank model.
func newTestModel(t *testing.T, im *InitialModel, cfg *Config, ts *TimeState) *SPHERLS {
	t.Helper()
	m, err := New(im, cfg, nil, Solo{}, ts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := m.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return m
}

func absDifferent(a, b, tolerance float64) bool {
	return math.Abs(a-b) > tolerance
}

func TestBindRejectsNonAdiabaticGammaLaw(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	cfg.Adiabatic = false
	cfg.GammaLawEOS = true
	_, err := New(uniformModel(10), cfg, nil, Solo{}, testTimeState(1e-3))
	if err == nil {
		t.Fatal("expected bind-time error for non-adiabatic gamma-law run")
	}
	se, ok := err.(*Error)
	if !ok || se.Kind != CalculationError {
		t.Fatalf("expected CALCULATION error, got %v", err)
	}
}

func TestConstantTimestepOverride(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	ts := testTimeState(1e-3)
	ts.VariableDt = false
	ts.ConstDt = 2.5e-4
	m := newTestModel(t, uniformModel(20), cfg, ts)
	if err := m.Step(); err != nil {
		t.Fatal(err)
	}
	if m.Time.DtNPHalf != 2.5e-4 {
		t.Errorf("constant-Δt mode: got Δt=%g, want 2.5e-4", m.Time.DtNPHalf)
	}
}

func TestRankZeroCollapsesTo1D(t *testing.T) {
	im := uniformModel(10)
	im.NDim = 3
	im.NTheta = 4
	im.NPhi = 4
	g, err := NewGrid(im, 0)
	if err != nil {
		t.Fatal(err)
	}
	if g.NDim != 1 {
		t.Errorf("rank 0 must run as the 1D core, got NDim=%d", g.NDim)
	}
	if g.V != nil || g.W != nil {
		t.Error("angular velocities must be absent at rank 0")
	}
	if g.D.Desc.Theta != NoDim || g.D.Desc.Phi != NoDim {
		t.Errorf("angular centering must collapse to NoDim, got %v", g.D.Desc)
	}
}

func TestVariableDescriptors(t *testing.T) {
	im := uniformModel(10)
	im.NDim = 2
	im.NTheta = 6
	g, err := NewGrid(im, 1)
	if err != nil {
		t.Fatal(err)
	}
	cases := []struct {
		f    *Field
		desc VarDesc
	}{
		{g.R, VarDesc{FaceCentered, NoDim, NoDim, true}},
		{g.U, VarDesc{FaceCentered, CellCentered, NoDim, true}},
		{g.V, VarDesc{CellCentered, FaceCentered, NoDim, true}},
		{g.D, VarDesc{CellCentered, CellCentered, NoDim, true}},
		{g.DM, VarDesc{CellCentered, NoDim, NoDim, false}},
	}
	for _, c := range cases {
		if c.f.Desc != c.desc {
			t.Errorf("%s: descriptor %+v, want %+v", c.f.Name, c.f.Desc, c.desc)
		}
	}
}

func TestZeroTimestepIsIdempotent(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, uniformModel(30), cfg, testTimeState(0))

	before := make(map[string][]float64)
	for _, f := range m.Grid.evolvedFields() {
		cp := make([]float64, len(f.Old.Elements))
		copy(cp, f.Old.Elements)
		before[f.Name] = cp
	}
	if err := m.Step(); err != nil {
		t.Fatal(err)
	}
	for _, f := range m.Grid.evolvedFields() {
		for i, v := range f.Old.Elements {
			if v != before[f.Name][i] {
				t.Fatalf("field %s changed at element %d under Δt=0: %g -> %g",
					f.Name, i, before[f.Name][i], v)
			}
		}
	}
}

// TestUniformInterior: a uniform gravity-free sphere has a free outer
// boundary, so a rarefaction enters from the surface at finite speed; the
// interior outside its domain of dependence must stay exactly uniform,
// and the total mass must not drift at all.
func TestUniformInterior(t *testing.T) {
	const nR = 100
	const nSteps = 10
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, uniformModel(nR), cfg, testTimeState(1e-4))

	g := m.Grid
	massBefore := 0.
	for i := g.IRMin; i <= g.IRMax; i++ {
		massBefore += g.D.Old.Get(i, 0, 0) * g.cellVolume(g.R.Old, i, 0, 0)
	}

	for s := 0; s < nSteps; s++ {
		if err := m.Step(); err != nil {
			t.Fatal(err)
		}
	}

	// Domain of dependence: one zone per step per kernel pass; stay well
	// clear of the surface.
	for i := g.IRMin; i <= g.IRMax-3*nSteps; i++ {
		if absDifferent(g.D.Old.Get(i, 0, 0), 1.0, 1e-10) {
			t.Errorf("interior density drifted at zone %d: %g", i-g.IRMin, g.D.Old.Get(i, 0, 0))
		}
		if absDifferent(g.E.Old.Get(i, 0, 0), 1.0, 1e-10) {
			t.Errorf("interior energy drifted at zone %d: %g", i-g.IRMin, g.E.Old.Get(i, 0, 0))
		}
	}

	massAfter := 0.
	for i := g.IRMin; i <= g.IRMax; i++ {
		massAfter += g.D.Old.Get(i, 0, 0) * g.cellVolume(g.R.Old, i, 0, 0)
	}
	if math.Abs(massAfter-massBefore)/massBefore > 1e-11 {
		t.Errorf("total mass drifted: %g -> %g", massBefore, massAfter)
	}
}

// TestPositivityThroughShock drives the Sod-type setup and checks the
// §8 positivity invariants and outward shock propagation.
func TestPositivityThroughShock(t *testing.T) {
	const nR = 100
	im := uniformModel(nR)
	gam := 1.4
	for i := 0; i < nR; i++ {
		if i < nR/2 {
			im.Density[i] = 1.
			im.Energy[i] = 1. / ((gam - 1.) * 1.)
		} else {
			im.Density[i] = 0.125
			im.Energy[i] = 0.1 / ((gam - 1.) * 0.125)
		}
	}
	cfg := DefaultConfig()
	cfg.G = 0
	cfg.Gamma = gam
	m := newTestModel(t, im, cfg, testTimeState(2e-4))

	g := m.Grid
	probe := g.IRMin + nR/2 + 8 // ahead of the initial discontinuity
	d0 := g.D.Old.Get(probe, 0, 0)

	for s := 0; s < 120; s++ {
		if err := m.Step(); err != nil {
			t.Fatal(err)
		}
	}
	for i := g.IRMin; i <= g.IRMax; i++ {
		if g.D.Old.Get(i, 0, 0) <= 0 || g.E.Old.Get(i, 0, 0) <= 0 {
			t.Fatalf("positivity violated at zone %d", i-g.IRMin)
		}
	}
	if g.D.Old.Get(probe, 0, 0) <= d0 {
		t.Errorf("shock has not reached probe zone: density still %g", g.D.Old.Get(probe, 0, 0))
	}
	if m.Diag.DonorFrac < 0.1 || m.Diag.DonorFrac > 1.0 {
		t.Errorf("donor fraction %g outside [0.1,1]", m.Diag.DonorFrac)
	}
}
