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

import "math"

// Energy equation
//
//	E_new − E_old = −Δt_n·[advection + (P/ρ)∇·(u−u0) + ∇·F_rad + LES]
//
// with radiation treated as grey Rosseland diffusion against the mass
// coordinate. The face opacity is the T⁴-weighted harmonic mean, which
// keeps the flux right across optically thin/thick transitions; the
// surface face radiates the blackbody outflow.

func newEnergy1DAdiabatic(m *SPHERLS) error    { return newEnergy(m, false) }
func newEnergy2DAdiabatic(m *SPHERLS) error    { return newEnergy(m, false) }
func newEnergy3DAdiabatic(m *SPHERLS) error    { return newEnergy(m, false) }
func newEnergy1DNonAdiabatic(m *SPHERLS) error { return newEnergy(m, true) }
func newEnergy2DNonAdiabatic(m *SPHERLS) error { return newEnergy(m, true) }
func newEnergy3DNonAdiabatic(m *SPHERLS) error { return newEnergy(m, true) }

func newEnergy(m *SPHERLS, radiative bool) error {
	g := m.Grid
	dt := m.Time.DtN
	frac := m.Diag.DonorFrac
	les := m.Config.Turbulence != TurbNone

	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				adv := m.energyAdvection(i, j, k, frac)
				work := m.pressureWork(i, j, k)

				var rad float64
				if radiative {
					rad = (m.radialLuminosity(i, j, k) - m.radialLuminosity(i-1, j, k)) /
						g.DM.Old.Get(i, 0, 0)
					if g.NDim >= 2 {
						rad += m.angularRadDiffusion(i, j, k)
					}
				}

				var eddy float64
				if les {
					eddy = (m.eddyEnergyFlux(i, j, k) - m.eddyEnergyFlux(i-1, j, k)) /
						g.DM.Old.Get(i, 0, 0)
				}

				e := g.E.Old.Get(i, j, k) - dt*(adv+work+rad+eddy)
				if e <= 0 {
					return m.negativeState("energy", e, i, j, k)
				}
				g.E.New.Set(e, i, j, k)
			}
		}
	}

	m.extendEnergyGhosts()
	if g.NDim >= 2 {
		g.fillAngularGhosts(g.E.New)
	}
	return nil
}

// energyAdvection is the donor-blended advection of E by the relative
// flow at the cell center.
func (m *SPHERLS) energyAdvection(i, j, k int, frac float64) float64 {
	g := m.Grid
	urelc := 0.5*(g.U.New.Get(i-1, j, k)+g.U.New.Get(i, j, k)) -
		0.5*(g.U0.New.Get(i-1, 0, 0)+g.U0.New.Get(i, 0, 0))
	adv := urelc * donorGradient(frac, urelc,
		g.E.Old.Get(i-1, j, k), g.E.Old.Get(i, j, k), g.E.Old.Get(i+1, j, k),
		g.rCenter(g.R.Old, i-1), g.rCenter(g.R.Old, i), g.rCenter(g.R.Old, i+1))
	if g.NDim >= 2 {
		rc := g.rCenter(g.R.Old, i)
		vc := 0.5 * (g.V.New.Get(i, j-1, k) + g.V.New.Get(i, j, k))
		adv += vc / rc * donorGradient(frac, vc,
			g.E.Old.Get(i, j-1, k), g.E.Old.Get(i, j, k), g.E.Old.Get(i, j+1, k),
			-g.DTheta[j], 0, g.DTheta[j])
	}
	if g.NDim >= 3 {
		rc := g.rCenter(g.R.Old, i)
		wc := 0.5 * (g.W.New.Get(i, j, k-1) + g.W.New.Get(i, j, k))
		adv += wc / (rc * g.SinThetaC[j]) * donorGradient(frac, wc,
			g.E.Old.Get(i, j, k-1), g.E.Old.Get(i, j, k), g.E.Old.Get(i, j, k+1),
			-g.DPhi[g.phiIndex(k)], 0, g.DPhi[g.phiIndex(k)])
	}
	return adv
}

// pressureWork is (P/ρ)∇·u, with the directional artificial viscosities
// folded into their own compression components when the viscous energy
// equation is enabled. The full fluid velocity appears here: advection
// carries the relative part, and the work of expansion must survive the
// Lagrangian limit where u−u0 vanishes.
func (m *SPHERLS) pressureWork(i, j, k int) float64 {
	g := m.Grid
	rho := g.D.New.Get(i, j, k)
	if rho <= 0 {
		return 0
	}
	vol := g.cellVolume(g.R.Old, i, j, k)

	divR := (g.U.New.Get(i, j, k)*g.faceAreaR(g.R.Old, i, j, k) -
		g.U.New.Get(i-1, j, k)*g.faceAreaR(g.R.Old, i-1, j, k)) / vol
	var divT, divP float64
	if g.NDim >= 2 {
		divT = (g.V.New.Get(i, j, k)*g.faceAreaTheta(g.R.Old, i, j, k) -
			g.V.New.Get(i, j-1, k)*g.faceAreaTheta(g.R.Old, i, j-1, k)) / vol
	}
	if g.NDim >= 3 {
		divP = (g.W.New.Get(i, j, k) - g.W.New.Get(i, j, k-1)) *
			g.faceAreaPhi(g.R.Old, i, j, k) / vol
	}

	p := g.P.New.Get(i, j, k)
	work := p * (divR + divT + divP)
	if m.Config.ViscousEnergy {
		work += g.Q0.New.Get(i, j, k) * divR
		if g.Q1 != nil {
			work += g.Q1.New.Get(i, j, k) * divT
		}
		if g.Q2 != nil {
			work += g.Q2.New.Get(i, j, k) * divP
		}
	}
	return work / rho
}

// radialLuminosity is the radiative luminosity through the interface at i
// for the angular column (j,k), per full shell.
func (m *SPHERLS) radialLuminosity(i, j, k int) float64 {
	g := m.Grid
	cfg := m.Config
	ri := g.R.Old.Get(i, 0, 0)

	if i == g.IRMax && g.Outermost {
		// Blackbody outflow through the free surface.
		t := g.T.New.Get(i, j, k)
		return 4. * pi * ri * ri * cfg.SigmaSB * t * t * t * t
	}
	if i < g.IRMin-1 {
		return 0
	}

	t4In := pow4(g.T.New.Get(i, j, k))
	t4Out := pow4(g.T.New.Get(i+1, j, k))
	kapIn := g.Kappa.New.Get(i, j, k)
	kapOut := g.Kappa.New.Get(i+1, j, k)
	if kapIn <= 0 || kapOut <= 0 {
		return 0
	}
	kapFace := (t4Out + t4In) / (t4In/kapIn + t4Out/kapOut)

	var dmHalf float64
	if i == g.IRMax {
		dmHalf = g.DM.Old.Get(i, 0, 0) * (0.5 + cfg.Alpha + cfg.AlphaExtra)
	} else {
		dmHalf = 0.5 * (g.DM.Old.Get(i, 0, 0) + g.DM.Old.Get(i+1, 0, 0))
	}
	coeff := 64. * pi * pi * cfg.SigmaSB * ri * ri * ri * ri / (3. * kapFace)
	return -coeff * (t4Out - t4In) / dmHalf
}

// angularRadDiffusion adds the polar (and azimuthal) diffusion terms of
// the radiative flux divergence for cell (i,j,k).
func (m *SPHERLS) angularRadDiffusion(i, j, k int) float64 {
	g := m.Grid
	cfg := m.Config
	rho := g.D.New.Get(i, j, k)
	vol := g.cellVolume(g.R.Old, i, j, k)
	rc := g.rCenter(g.R.Old, i)

	faceFlux := func(t4a, t4b, kapA, kapB, dx, area float64) float64 {
		if kapA <= 0 || kapB <= 0 {
			return 0
		}
		kapF := (t4a + t4b) / (t4a/kapA + t4b/kapB)
		rhoF := rho // the ring shares the radial density scale
		return -4. * cfg.SigmaSB / (3. * kapF * rhoF) * (t4b - t4a) / dx * area
	}

	sum := faceFlux(pow4(g.T.New.Get(i, j, k)), pow4(g.T.New.Get(i, j+1, k)),
		g.Kappa.New.Get(i, j, k), g.Kappa.New.Get(i, j+1, k),
		rc*g.DTheta[j], g.faceAreaTheta(g.R.Old, i, j, k))
	sum -= faceFlux(pow4(g.T.New.Get(i, j-1, k)), pow4(g.T.New.Get(i, j, k)),
		g.Kappa.New.Get(i, j-1, k), g.Kappa.New.Get(i, j, k),
		rc*g.DTheta[j], g.faceAreaTheta(g.R.Old, i, j-1, k))
	if g.NDim >= 3 {
		dx := rc * g.SinThetaC[j] * g.DPhi[g.phiIndex(k)]
		sum += faceFlux(pow4(g.T.New.Get(i, j, k)), pow4(g.T.New.Get(i, j, k+1)),
			g.Kappa.New.Get(i, j, k), g.Kappa.New.Get(i, j, k+1),
			dx, g.faceAreaPhi(g.R.Old, i, j, k))
		sum -= faceFlux(pow4(g.T.New.Get(i, j, k-1)), pow4(g.T.New.Get(i, j, k)),
			g.Kappa.New.Get(i, j, k-1), g.Kappa.New.Get(i, j, k),
			dx, g.faceAreaPhi(g.R.Old, i, j, k))
	}
	return sum / (rho * vol)
}

// eddyEnergyFlux is the turbulent energy transport through interface i
// with turbulent Prandtl scaling, per full shell.
func (m *SPHERLS) eddyEnergyFlux(i, j, k int) float64 {
	g := m.Grid
	if i < g.IRMin-1 || (i == g.IRMax && g.Outermost) {
		return 0
	}
	mu := 0.5 * (g.EddyVisc.New.Get(i, j, k) + g.EddyVisc.New.Get(i+1, j, k))
	if mu <= 0 {
		return 0
	}
	drc := g.rCenter(g.R.Old, i+1) - g.rCenter(g.R.Old, i)
	area := 4. * pi * g.R.Old.Get(i, 0, 0) * g.R.Old.Get(i, 0, 0)
	return -mu / m.Config.PrandtlTurb * area *
		(g.E.Old.Get(i+1, j, k) - g.E.Old.Get(i, j, k)) / drc
}

// extendEnergyGhosts fills the radial ghost regions at the physical
// boundaries by extension.
func (m *SPHERLS) extendEnergyGhosts() {
	g := m.Grid
	for j := 0; j < g.E.New.Shape[1]; j++ {
		for k := 0; k < g.E.New.Shape[2]; k++ {
			if g.Innermost {
				for l := 1; l <= nGhost; l++ {
					g.E.New.Set(g.E.New.Get(g.IRMin+l-1, j, k), g.IRMin-l, j, k)
				}
			}
			if g.Outermost {
				for l := 1; l <= nGhost; l++ {
					g.E.New.Set(g.E.New.Get(g.IRMax, j, k), g.IRMax+l, j, k)
				}
			}
		}
	}
}

func pow4(x float64) float64 {
	x2 := x * x
	return x2 * x2
}

const pi = math.Pi
