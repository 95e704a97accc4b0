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
	"sync"
	"testing"
)

// Multi-dimensional integration tests: a two-rank in-process cluster with
// the mandatory 1D core at rank 0 and a 2D or 3D wedge at rank 1, stepped
// end-to-end through the full per-step schedule.

// slabModels splits a smooth envelope between the 1D core and an outer
// multi-dimensional slab.
func slabModels(nInner, nOuter, ndim, ntheta, nphi int) (*InitialModel, *InitialModel) {
	inner := &InitialModel{
		NDim:        1,
		RInterfaces: make([]float64, nInner+1),
		Density:     make([]float64, nInner),
		Energy:      make([]float64, nInner),
		Velocity:    make([]float64, nInner+1),
	}
	outer := &InitialModel{
		NDim:        ndim,
		NTheta:      ntheta,
		NPhi:        nphi,
		RInterfaces: make([]float64, nOuter+1),
		Density:     make([]float64, nOuter),
		Energy:      make([]float64, nOuter),
		Velocity:    make([]float64, nOuter+1),
	}
	for i := 0; i <= nInner; i++ {
		x := float64(i) / float64(nInner)
		inner.RInterfaces[i] = 0.1 + 0.5*x
		inner.Velocity[i] = 0.02 * math.Sin(math.Pi*x)
	}
	for i := 0; i < nInner; i++ {
		inner.Density[i] = 1.
		inner.Energy[i] = 1.
	}
	for i := 0; i <= nOuter; i++ {
		x := float64(i) / float64(nOuter)
		outer.RInterfaces[i] = 0.6 + 0.5*x
		outer.Velocity[i] = 0.02 * math.Sin(math.Pi*(1.+x))
	}
	for i := 0; i < nOuter; i++ {
		outer.Density[i] = 1.
		outer.Energy[i] = 1.
	}
	return inner, outer
}

// stepTwoRanks builds both models on an in-process cluster and advances
// them in lockstep.
func stepTwoRanks(t *testing.T, inner, outer *InitialModel, cfgs [2]*Config,
	tables [2]EOSTable, steps int, seed func(*SPHERLS)) (*SPHERLS, *SPHERLS) {
	t.Helper()
	msgs := NewLocalCluster(2)
	models := make([]*SPHERLS, 2)
	for r, im := range []*InitialModel{inner, outer} {
		ts := testTimeState(1e-5)
		m, err := New(im, cfgs[r], tables[r], msgs[r], ts)
		if err != nil {
			t.Fatalf("rank %d: New: %v", r, err)
		}
		if err := m.Init(); err != nil {
			t.Fatalf("rank %d: Init: %v", r, err)
		}
		if seed != nil {
			seed(m)
		}
		models[r] = m
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for r, m := range models {
		wg.Add(1)
		go func(r int, m *SPHERLS) {
			defer wg.Done()
			for s := 0; s < steps; s++ {
				if err := m.Step(); err != nil {
					errs[r] = err
					return
				}
			}
		}(r, m)
	}
	wg.Wait()
	for r, err := range errs {
		if err != nil {
			t.Fatalf("rank %d: Step: %v", r, err)
		}
	}
	return models[0], models[1]
}

// perturbAngular makes the wedge's radial velocity angle-dependent while
// the grid velocity stays angle-independent, so the flow has a nonzero
// velocity relative to the mesh and the strain-rate terms switch on.
func perturbAngular(m *SPHERLS) {
	g := m.Grid
	if g.NDim < 2 {
		return
	}
	for i := 0; i < g.U.Old.Shape[0]; i++ {
		for j := 0; j < g.U.Old.Shape[1]; j++ {
			for k := 0; k < g.U.Old.Shape[2]; k++ {
				pert := 1. + 0.2*math.Sin(float64(j)) + 0.1*math.Cos(float64(k))
				g.U.Old.Set(g.U.Old.Get(i, j, k)*pert, i, j, k)
			}
		}
	}
}

// checkStateHealthy asserts the post-step invariants on a rank's owned
// region: positive density and energy, finite velocities.
func checkStateHealthy(t *testing.T, m *SPHERLS, label string) {
	t.Helper()
	g := m.Grid
	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				if d := g.D.Old.Get(i, j, k); d <= 0 || math.IsNaN(d) {
					t.Fatalf("%s: bad density %g at %d,%d,%d", label, d, i, j, k)
				}
				if e := g.E.Old.Get(i, j, k); e <= 0 || math.IsNaN(e) {
					t.Fatalf("%s: bad energy %g at %d,%d,%d", label, e, i, j, k)
				}
				for _, f := range []*Field{g.U, g.V, g.W} {
					if f == nil {
						continue
					}
					v := f.Old.Get(i, j, k)
					if math.IsNaN(v) || math.IsInf(v, 0) {
						t.Fatalf("%s: non-finite %s=%g at %d,%d,%d", label, f.Name, v, i, j, k)
					}
				}
			}
		}
	}
	if m.Diag.DonorFrac < 0.1 || m.Diag.DonorFrac > 1.0 {
		t.Errorf("%s: donor fraction %g outside [0.1,1]", label, m.Diag.DonorFrac)
	}
}

// TestTwoRank2DSmagorinskyStep drives the full schedule with a 2D outer
// wedge and the Smagorinsky closure: the polar momentum kernel, the 2D
// artificial viscosity, the 2D energy update and the stress-tensor
// divergence all run with live eddy viscosity.
func TestTwoRank2DSmagorinskyStep(t *testing.T) {
	inner, outer := slabModels(10, 10, 2, 4, 0)
	var cfgs [2]*Config
	for r := range cfgs {
		cfgs[r] = DefaultConfig()
		cfgs[r].G = 0
		cfgs[r].Turbulence = TurbSmagorinsky
	}
	m0, m1 := stepTwoRanks(t, inner, outer, cfgs, [2]EOSTable{nil, nil}, 5, perturbAngular)

	checkStateHealthy(t, m0, "1D core")
	checkStateHealthy(t, m1, "2D wedge")
	if m1.Grid.NDim != 2 || m1.Grid.V == nil {
		t.Fatal("outer rank did not run in 2D")
	}
	if m0.Time.T != m1.Time.T {
		t.Errorf("ranks drifted in time: %g vs %g", m0.Time.T, m1.Time.T)
	}
	// The radial motion must have produced strain and so eddy viscosity.
	var muMax float64
	g := m1.Grid
	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			muMax = maxFloat(muMax, g.EddyVisc.Old.Get(i, j, g.KMin))
		}
	}
	if muMax <= 0 {
		t.Error("Smagorinsky viscosity never switched on despite radial shear")
	}
}

// TestTwoRank3DConstantEddyStep drives the full schedule with a 3D outer
// wedge and the constant-coefficient closure seeded with a convective
// velocity, exercising the azimuthal momentum kernel, the 3D artificial
// viscosity and the r-φ and θ-φ stress components.
func TestTwoRank3DConstantEddyStep(t *testing.T) {
	inner, outer := slabModels(8, 8, 3, 4, 4)
	var cfgs [2]*Config
	for r := range cfgs {
		cfgs[r] = DefaultConfig()
		cfgs[r].G = 0
		cfgs[r].Turbulence = TurbConstant
	}
	seed := func(m *SPHERLS) {
		m.Diag.MaxConvectiveVelocity = 1.
		perturbAngular(m)
	}
	m0, m1 := stepTwoRanks(t, inner, outer, cfgs, [2]EOSTable{nil, nil}, 3, seed)

	checkStateHealthy(t, m0, "1D core")
	checkStateHealthy(t, m1, "3D wedge")
	if m1.Grid.NDim != 3 || m1.Grid.W == nil {
		t.Fatal("outer rank did not run in 3D")
	}
	// The seeded convective velocity must have produced eddy viscosity.
	g := m1.Grid
	if g.EddyVisc.Old.Get(g.IRMin+2, g.JMin+1, g.KMin+1) <= 0 {
		t.Error("constant-coefficient viscosity never switched on")
	}
	if m0.Time.Step != m1.Time.Step {
		t.Errorf("ranks drifted in step count: %d vs %d", m0.Time.Step, m1.Time.Step)
	}
}

// TestTwoRank2DNonAdiabaticStep runs the tabulated-EOS radiative branch
// in 2D: the angular radiative diffusion terms and the per-cell Newton
// closure run on the wedge while the 1D core radiates radially.
func TestTwoRank2DNonAdiabaticStep(t *testing.T) {
	tb := idealTable{cv: 1.5, rg: 1., kappa: 0.4, gamma: 5. / 3.}
	inner, outer := slabModels(10, 10, 2, 4, 0)
	for _, im := range []*InitialModel{inner, outer} {
		im.Temperature = make([]float64, len(im.Density))
		for i := range im.Temperature {
			im.Temperature[i] = 2.
			im.Energy[i] = tb.cv * 2.
		}
	}
	var cfgs [2]*Config
	for r := range cfgs {
		cfgs[r] = DefaultConfig()
		cfgs[r].G = 0
		cfgs[r].GammaLawEOS = false
		cfgs[r].Adiabatic = false
		cfgs[r].SigmaSB = 1e-6
	}
	m0, m1 := stepTwoRanks(t, inner, outer, cfgs, [2]EOSTable{tb, tb}, 3, nil)

	checkStateHealthy(t, m0, "1D core")
	checkStateHealthy(t, m1, "2D wedge")
	g := m1.Grid
	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			if tv := g.T.Old.Get(i, j, g.KMin); tv <= 0 || math.IsNaN(tv) {
				t.Fatalf("bad temperature %g at %d,%d", tv, i, j)
			}
		}
	}
	if m0.Diag.EOSNewtonWarned || m1.Diag.EOSNewtonWarned {
		t.Error("unexpected EOS Newton warning on the analytic table")
	}
}
