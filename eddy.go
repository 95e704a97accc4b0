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

// Subgrid turbulence closure: the eddy viscosity is either a constant
// coefficient scaled by the global convective velocity, or the
// Smagorinsky strain-rate form. Runs before the velocity and energy
// updates of every step.

// eddyViscosityConstant sets μ_t = C·L²·v_conv·1e−6 with L the filter
// length from the local cell volume.
func eddyViscosityConstant(m *SPHERLS) error {
	g := m.Grid
	c := m.Config.EddyViscosity
	vmax := m.Diag.MaxConvectiveVelocity
	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				l := filterLength(g, i, j, k)
				g.EddyVisc.New.Set(c*l*l*vmax*1e-6, i, j, k)
			}
		}
	}
	m.extendEddyGhosts()
	return nil
}

// eddyViscositySmagorinsky sets μ_t = C²/√2·L²·ρ·|S| with |S|² summed
// over the strain-rate components present at this dimensionality.
func eddyViscositySmagorinsky(m *SPHERLS) error {
	g := m.Grid
	c := m.Config.EddyViscosity
	coeff := c * c / math.Sqrt2
	for i := g.IRMin; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				l := filterLength(g, i, j, k)
				s := strainMagnitude(g, i, j, k)
				rho := g.D.Old.Get(i, j, k)
				g.EddyVisc.New.Set(coeff*l*l*rho*s, i, j, k)
			}
		}
	}
	m.extendEddyGhosts()
	return nil
}

// eddyViscosityNone zeroes the field so LES terms drop out downstream.
func eddyViscosityNone(m *SPHERLS) error {
	for i := range m.Grid.EddyVisc.New.Elements {
		m.Grid.EddyVisc.New.Elements[i] = 0
	}
	return nil
}

// filterLength is the cube root of the local cell volume in 3D and the
// corresponding per-dimension simplification otherwise.
func filterLength(g *Grid, i, j, k int) float64 {
	dr := g.R.Old.Get(i, 0, 0) - g.R.Old.Get(i-1, 0, 0)
	switch g.NDim {
	case 1:
		return dr
	case 2:
		rc := g.rCenter(g.R.Old, i)
		return math.Sqrt(dr * rc * g.DTheta[j])
	default:
		rc := g.rCenter(g.R.Old, i)
		return math.Cbrt(dr * rc * g.DTheta[j] * rc * g.SinThetaC[j] * g.DPhi[g.phiIndex(k)])
	}
}

// strainMagnitude sums the squared strain-rate components: one radial term
// in 1D, four terms in 2D, nine in 3D.
func strainMagnitude(g *Grid, i, j, k int) float64 {
	rc := g.rCenter(g.R.Old, i)
	dr := g.R.Old.Get(i, 0, 0) - g.R.Old.Get(i-1, 0, 0)
	uOut := g.U.Old.Get(i, j, k) - g.U0.Old.Get(i, 0, 0)
	uIn := g.U.Old.Get(i-1, j, k) - g.U0.Old.Get(i-1, 0, 0)
	srr := (uOut - uIn) / dr
	sum := srr * srr
	if g.NDim < 2 {
		return math.Sqrt(2. * sum)
	}

	uc := 0.5 * (uOut + uIn)
	vOut := g.V.Old.Get(i, j, k)
	vIn := g.V.Old.Get(i, j-1, k)
	vc := 0.5 * (vOut + vIn)
	stt := (vOut-vIn)/(rc*g.DTheta[j]) + uc/rc
	srt := 0.5 * ((g.U.Old.Get(i, j+1, k)-g.U.Old.Get(i, j-1, k))/(2.*rc*g.DTheta[j]) +
		(g.V.Old.Get(i+1, j, k)-g.V.Old.Get(i-1, j, k))/(2.*dr) - vc/rc)
	sum += stt*stt + 2.*srt*srt
	if g.NDim < 3 {
		return math.Sqrt(2. * sum)
	}

	sinT := g.SinThetaC[j]
	dphi := g.DPhi[g.phiIndex(k)]
	wOut := g.W.Old.Get(i, j, k)
	wIn := g.W.Old.Get(i, j, k-1)
	wc := 0.5 * (wOut + wIn)
	spp := (wOut-wIn)/(rc*sinT*dphi) + uc/rc + vc*g.CotThetaC[j]/rc
	srp := 0.5 * ((g.U.Old.Get(i, j, k+1)-g.U.Old.Get(i, j, k-1))/(2.*rc*sinT*dphi) +
		(g.W.Old.Get(i+1, j, k)-g.W.Old.Get(i-1, j, k))/(2.*dr) - wc/rc)
	stp := 0.5 * ((g.V.Old.Get(i, j, k+1)-g.V.Old.Get(i, j, k-1))/(2.*rc*sinT*dphi) +
		(g.W.Old.Get(i, j+1, k)-g.W.Old.Get(i, j-1, k))/(2.*rc*g.DTheta[j]) -
		wc*g.CotThetaC[j]/rc)
	sum += spp*spp + 2.*srp*srp + 2.*stp*stp
	return math.Sqrt(2. * sum)
}

// extendEddyGhosts pushes the boundary-adjacent values into the radial
// ghost regions at the physical boundaries.
func (m *SPHERLS) extendEddyGhosts() {
	g := m.Grid
	for j := 0; j < g.EddyVisc.New.Shape[1]; j++ {
		for k := 0; k < g.EddyVisc.New.Shape[2]; k++ {
			if g.Innermost {
				for l := 1; l <= nGhost; l++ {
					g.EddyVisc.New.Set(g.EddyVisc.New.Get(g.IRMin, j, k), g.IRMin-l, j, k)
				}
			}
			if g.Outermost {
				for l := 1; l <= nGhost; l++ {
					g.EddyVisc.New.Set(g.EddyVisc.New.Get(g.IRMax, j, k), g.IRMax+l, j, k)
				}
			}
		}
	}
	g.fillAngularGhosts(g.EddyVisc.New)
}
