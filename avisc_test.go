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

// TestArtificialViscosityTriggersOnCompression: Q0 appears only where
// the radial velocity jump compresses faster than the threshold.
func TestArtificialViscosityTriggersOnCompression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	im := uniformModel(20)
	im.Velocity = make([]float64, 21)
	// Converging flow across a single interior cell; its neighbours see
	// expansion and must stay inviscid.
	comp := 10 // compressed cell index
	im.Velocity[comp] = 0.3
	im.Velocity[comp+1] = -0.3
	m := newTestModel(t, im, cfg, testTimeState(1e-5))
	g := m.Grid

	// The initial grid velocity follows the fluid; zero it so the jumps
	// above are seen as compression relative to the mesh.
	for i := 0; i < g.U0.Old.Shape[0]; i++ {
		g.U0.Old.Set(0, i, 0, 0)
	}
	if err := m.Ops.ArtificialViscosity(m); err != nil {
		t.Fatal(err)
	}

	iComp := g.IRMin + comp
	du := -0.6
	cs := math.Sqrt(cfg.Gamma * (cfg.Gamma - 1.))
	want := cfg.AVCoefficient * cfg.AVCoefficient * 1. *
		(du + cfg.AVThreshold*cs) * (du + cfg.AVThreshold*cs)
	if absDifferent(g.Q0.New.Get(iComp, 0, 0), want, 1e-12) {
		t.Errorf("compressed cell: Q0=%g, want %g", g.Q0.New.Get(iComp, 0, 0), want)
	}
	for i := g.IRMin; i <= g.IRMax; i++ {
		if i != iComp && g.Q0.New.Get(i, 0, 0) != 0 {
			t.Errorf("cell %d: spurious Q0=%g", i-g.IRMin, g.Q0.New.Get(i, 0, 0))
		}
	}
}

// TestEddyViscosityModels: the constant model scales with the filter
// length squared and the Smagorinsky model vanishes in rigid flow.
func TestEddyViscosityModels(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	cfg.Turbulence = TurbConstant
	m := newTestModel(t, uniformModel(20), cfg, testTimeState(1e-5))
	m.Diag.MaxConvectiveVelocity = 2.
	if err := m.Ops.EddyViscosity(m); err != nil {
		t.Fatal(err)
	}
	g := m.Grid
	i := g.IRMin + 5
	l := g.R.Old.Get(i, 0, 0) - g.R.Old.Get(i-1, 0, 0)
	want := cfg.EddyViscosity * l * l * 2. * 1e-6
	if absDifferent(g.EddyVisc.New.Get(i, 0, 0), want, 1e-18) {
		t.Errorf("constant model: μ_t=%g, want %g", g.EddyVisc.New.Get(i, 0, 0), want)
	}

	cfg2 := DefaultConfig()
	cfg2.G = 0
	cfg2.Turbulence = TurbSmagorinsky
	m2 := newTestModel(t, uniformModel(20), cfg2, testTimeState(1e-5))
	if err := m2.Ops.EddyViscosity(m2); err != nil {
		t.Fatal(err)
	}
	for i := m2.Grid.IRMin; i <= m2.Grid.IRMax; i++ {
		if m2.Grid.EddyVisc.New.Get(i, 0, 0) != 0 {
			t.Errorf("Smagorinsky viscosity must vanish in a static medium, got %g at %d",
				m2.Grid.EddyVisc.New.Get(i, 0, 0), i)
		}
	}
}
