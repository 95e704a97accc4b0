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

// The density update is the finite-volume balance
//
//	V_new·D_new = V_old·D_old + Δt·Σ_faces ρ_face (u−u0) A_face
//
// over the interval the grid just moved through: R.New still holds the
// pre-advance radii until the grid stage of the current step overwrites
// them, so the old volume and the face areas come from R.New and the new
// volume from R.Old. The face densities and relative velocities are the
// same ones the grid-velocity solve balanced, which is what makes the
// per-cell mass flux cancel.

func newDensity1D(m *SPHERLS) error {
	g := m.Grid
	dt := m.Time.DtNMHalf
	frac := m.Diag.DonorFrac
	uo, u0o := g.U.Old, g.U0.Old

	flux := func(i int) float64 {
		urel := uo.Get(i, 0, 0) - u0o.Get(i, 0, 0)
		rho := donorBlend(frac, urel, g.DenAve.Old.Get(i, 0, 0), g.DenAve.Old.Get(i+1, 0, 0))
		return rho * urel * g.faceAreaR(g.R.New, i, 0, 0)
	}

	for i := g.IRMin; i <= g.IRMax; i++ {
		vOld := g.cellVolume(g.R.New, i, 0, 0)
		vNew := g.cellVolume(g.R.Old, i, 0, 0)
		d := g.D.Old.Get(i, 0, 0)*(vOld/vNew) + dt*(flux(i-1)-flux(i))/vNew
		if d <= 0 {
			return m.negativeState("density", d, i, 0, 0)
		}
		g.D.New.Set(d, i, 0, 0)
	}
	m.updateSurfaceGhostDensity(flux)
	m.updateInnerGhostDensity()
	return nil
}

func newDensity2D(m *SPHERLS) error { return newDensityMulti(m, false) }
func newDensity3D(m *SPHERLS) error { return newDensityMulti(m, true) }

func newDensityMulti(m *SPHERLS, withPhi bool) error {
	g := m.Grid
	dt := m.Time.DtNMHalf
	frac := m.Diag.DonorFrac
	uo, u0o := g.U.Old, g.U0.Old

	rFlux := func(i, j, k int) float64 {
		urel := uo.Get(i, j, k) - u0o.Get(i, 0, 0)
		rho := donorBlend(frac, urel, g.D.Old.Get(i, j, k), g.D.Old.Get(i+1, j, k))
		return rho * urel * g.faceAreaR(g.R.New, i, j, k)
	}
	tFlux := func(i, j, k int) float64 {
		v := g.V.Old.Get(i, j, k)
		rho := donorBlend(frac, v, g.D.Old.Get(i, j, k), g.D.Old.Get(i, j+1, k))
		return rho * v * g.faceAreaTheta(g.R.New, i, j, k)
	}
	pFlux := func(i, j, k int) float64 {
		if !withPhi {
			return 0
		}
		w := g.W.Old.Get(i, j, k)
		rho := donorBlend(frac, w, g.D.Old.Get(i, j, k), g.D.Old.Get(i, j, k+1))
		return rho * w * g.faceAreaPhi(g.R.New, i, j, k)
	}

	g.fillAngularGhosts(g.D.Old)
	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				vOld := g.cellVolume(g.R.New, i, j, k)
				vNew := g.cellVolume(g.R.Old, i, j, k)
				sum := rFlux(i-1, j, k) - rFlux(i, j, k)
				sum += tFlux(i, j-1, k) - tFlux(i, j, k)
				sum += pFlux(i, j, k-1) - pFlux(i, j, k)
				d := g.D.Old.Get(i, j, k)*(vOld/vNew) + dt*sum/vNew
				if d <= 0 {
					return m.negativeState("density", d, i, j, k)
				}
				g.D.New.Set(d, i, j, k)
			}
		}
	}
	m.updateSurfaceGhostDensityMulti(rFlux, tFlux, pFlux, withPhi)
	m.updateInnerGhostDensity()
	g.fillAngularGhosts(g.D.New)
	return nil
}

// updateSurfaceGhostDensity advances the first outer ghost cell with the
// inner-face flux only: the free boundary admits no incoming mass.
func (m *SPHERLS) updateSurfaceGhostDensity(flux func(i int) float64) {
	g := m.Grid
	if !g.Outermost {
		return
	}
	dt := m.Time.DtNMHalf
	i := g.IRMax + 1
	vOld := g.cellVolume(g.R.New, i, 0, 0)
	vNew := g.cellVolume(g.R.Old, i, 0, 0)
	d := g.D.Old.Get(i, 0, 0)*(vOld/vNew) + dt*flux(i-1)/vNew
	if d < 0 {
		d = 0
	}
	g.D.New.Set(d, i, 0, 0)
	g.D.New.Set(d, i+1, 0, 0)
}

func (m *SPHERLS) updateSurfaceGhostDensityMulti(rFlux, tFlux, pFlux func(i, j, k int) float64, withPhi bool) {
	g := m.Grid
	if !g.Outermost {
		return
	}
	dt := m.Time.DtNMHalf
	i := g.IRMax + 1
	for j := g.JMin; j <= g.JMax; j++ {
		for k := g.KMin; k <= g.KMax; k++ {
			vOld := g.cellVolume(g.R.New, i, j, k)
			vNew := g.cellVolume(g.R.Old, i, j, k)
			sum := rFlux(i-1, j, k)
			sum += tFlux(i, j-1, k) - tFlux(i, j, k)
			if withPhi {
				sum += pFlux(i, j, k-1) - pFlux(i, j, k)
			}
			d := g.D.Old.Get(i, j, k)*(vOld/vNew) + dt*sum/vNew
			if d < 0 {
				d = 0
			}
			g.D.New.Set(d, i, j, k)
			g.D.New.Set(d, i+1, j, k)
		}
	}
}

// updateInnerGhostDensity extends the innermost owned value inward at the
// physical center; interior slabs receive these cells from the exchange.
func (m *SPHERLS) updateInnerGhostDensity() {
	g := m.Grid
	if !g.Innermost {
		return
	}
	for l := 1; l <= nGhost; l++ {
		for j := 0; j < g.D.New.Shape[1]; j++ {
			for k := 0; k < g.D.New.Shape[2]; k++ {
				g.D.New.Set(g.D.New.Get(g.IRMin+l-1, j, k), g.IRMin-l, j, k)
			}
		}
	}
}

// aveDensity1D copies the density into the ring average directly.
func aveDensity1D(m *SPHERLS) error {
	g := m.Grid
	for i := 0; i < g.D.New.Shape[0]; i++ {
		g.DenAve.New.Set(g.D.New.Get(i, 0, 0), i, 0, 0)
	}
	return nil
}

// aveDensityMulti averages the density over each angular ring weighted by
// solid angle; it is the effective density for mass flux and pressure
// gradients crossing the 1D/3D rank boundary.
func aveDensityMulti(m *SPHERLS) error {
	g := m.Grid
	for i := 0; i < g.D.New.Shape[0]; i++ {
		var sum, wsum float64
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				w := g.solidAngle(j, k)
				sum += g.D.New.Get(i, j, k) * w
				wsum += w
			}
		}
		g.DenAve.New.Set(sum/wsum, i, 0, 0)
	}
	return nil
}

// donorBlend mixes the two sides of an interface with the hybrid
// central/upwind weight: frac=0 is a centered average, frac=1 pure donor
// cell, the donor side chosen by the sign of the advecting velocity.
func donorBlend(frac, vel, lower, upper float64) float64 {
	central := 0.5 * (lower + upper)
	donor := upper
	if vel > 0 {
		donor = lower
	}
	return (1.-frac)*central + frac*donor
}

// donorGradient mixes centered and one-sided differences of q around
// position i spaced by the x coordinates, upwinding on the sign of vel.
func donorGradient(frac, vel, qm, q0, qp, xm, x0, xp float64) float64 {
	central := (qp - qm) / (xp - xm)
	var oneSided float64
	if vel > 0 {
		oneSided = (q0 - qm) / (x0 - xm)
	} else {
		oneSided = (qp - q0) / (xp - x0)
	}
	return (1.-frac)*central + frac*oneSided
}

func maxFloat(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func minFloat(v1, v2 float64) float64 {
	if v1 < v2 {
		return v1
	}
	return v2
}
