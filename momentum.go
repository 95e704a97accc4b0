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

// Momentum updates in semi-conservative form. Each component gains
// donor-blended advection, a pressure gradient carrying its directional
// artificial viscosity, monopole gravity on the radial component, and, in
// LES runs, the divergence of the subgrid stress tensor
//
//	τ_ij = μ_t·(∂u_i/∂x_j + ∂u_j/∂x_i − ⅔δ_ij ∇·u)
//
// expressed in spherical coordinates on the staggered mesh: the normal
// stresses live at cell centers, the shear stresses at the edge midpoints
// their index pairs stagger to, and each momentum equation takes the
// conservative divergence of its own row of τ.
//
// Pressure gradients are taken against the Lagrangian mass coordinate:
// 4πR²·ΔP/ΔM is (1/ρ)∂P/∂r for the full shell and, because both the face
// area and the column mass scale with the column's solid angle, for every
// angular column as well. Outside the surface the pressure mirror
// −P_surface makes the interpolated face pressure vanish, and the last
// gradient denominator stretches to ΔM·(½+α+α_extra).

func newVelocities1D(m *SPHERLS) error {
	return m.updateURadial(0, 0)
}

func newVelocities2D(m *SPHERLS) error {
	g := m.Grid
	for j := g.JMin; j <= g.JMax; j++ {
		if err := m.updateURadial(j, 0); err != nil {
			return err
		}
	}
	if err := m.updateVPolar(false); err != nil {
		return err
	}
	g.fillAngularGhosts(g.U.New)
	g.fillAngularGhosts(g.V.New)
	return nil
}

func newVelocities3D(m *SPHERLS) error {
	g := m.Grid
	for j := g.JMin; j <= g.JMax; j++ {
		for k := g.KMin; k <= g.KMax; k++ {
			if err := m.updateURadial(j, k); err != nil {
				return err
			}
		}
	}
	if err := m.updateVPolar(true); err != nil {
		return err
	}
	if err := m.updateWAzimuthal(); err != nil {
		return err
	}
	for _, f := range []*Field{g.U, g.V, g.W} {
		g.fillAngularGhosts(f.New)
	}
	return nil
}

// updateURadial advances the radial velocity along one angular column.
func (m *SPHERLS) updateURadial(j, k int) error {
	g := m.Grid
	cfg := m.Config
	dt := m.Time.DtN
	frac := m.Diag.DonorFrac
	les := cfg.Turbulence != TurbNone

	for i := g.IRMin; i <= g.IRMax; i++ {
		ri := g.R.Old.Get(i, 0, 0)
		urel := g.U.Old.Get(i, j, k) - g.U0.Old.Get(i, 0, 0)

		// A1: radial advection of U by the relative flow.
		a1 := urel * donorGradient(frac, urel,
			g.U.Old.Get(i-1, j, k), g.U.Old.Get(i, j, k), g.U.Old.Get(i+1, j, k),
			g.R.Old.Get(i-1, 0, 0), ri, g.R.Old.Get(i+1, 0, 0))

		// A2/A3: angular advection of U, present past 1D.
		var a2, a3 float64
		if g.NDim >= 2 {
			vc := 0.25 * (g.V.Old.Get(i, j-1, k) + g.V.Old.Get(i, j, k) +
				g.V.Old.Get(i+1, j-1, k) + g.V.Old.Get(i+1, j, k))
			rc := 0.5 * (ri + g.rCenter(g.R.Old, i))
			a2 = vc / rc * donorGradient(frac, vc,
				g.U.Old.Get(i, j-1, k), g.U.Old.Get(i, j, k), g.U.Old.Get(i, j+1, k),
				-g.DTheta[j], 0, g.DTheta[j])
			// Centrifugal support from the polar flow.
			a2 -= vc * vc / rc
		}
		if g.NDim >= 3 {
			wc := 0.25 * (g.W.Old.Get(i, j, k-1) + g.W.Old.Get(i, j, k) +
				g.W.Old.Get(i+1, j, k-1) + g.W.Old.Get(i+1, j, k))
			rc := 0.5 * (ri + g.rCenter(g.R.Old, i))
			sinT := g.SinThetaC[j]
			dphi := g.DPhi[g.phiIndex(k)]
			a3 = wc / (rc * sinT) * donorGradient(frac, wc,
				g.U.Old.Get(i, j, k-1), g.U.Old.Get(i, j, k), g.U.Old.Get(i, j, k+1),
				-dphi, 0, dphi)
			a3 -= wc * wc / rc
		}

		// S1: pressure + radial artificial viscosity against the mass
		// coordinate.
		ptIn := g.P.New.Get(i, j, k) + g.Q0.New.Get(i, j, k)
		var ptOut, dmHalf float64
		if i == g.IRMax && g.Outermost {
			ptOut = -ptIn
			dmHalf = g.DM.Old.Get(i, 0, 0) * (0.5 + cfg.Alpha + cfg.AlphaExtra)
		} else {
			ptOut = g.P.New.Get(i+1, j, k) + g.Q0.New.Get(i+1, j, k)
			dmHalf = 0.5 * (g.DM.Old.Get(i, 0, 0) + g.DM.Old.Get(i+1, 0, 0))
		}
		s1 := 4. * pi * ri * ri * (ptOut - ptIn) / dmHalf

		// S4: monopole gravity from the fixed enclosed mass.
		s4 := cfg.G * g.M.Old.Get(i, 0, 0) / (ri * ri)

		var ta float64
		if les {
			ta = m.radialStressDivergence(i, j, k)
		}

		g.U.New.Set(g.U.Old.Get(i, j, k)-dt*(a1+a2+a3+s1+s4-ta), i, j, k)
	}

	if g.Innermost {
		if m.Config.InnerBoundary == InnerReflecting {
			g.U.New.Set(0, g.IRMin-1, j, k)
		} else {
			g.U.New.Set(g.U.New.Get(g.IRMin, j, k), g.IRMin-1, j, k)
		}
	}
	return nil
}

// velocityDivergence is ∇·u of cell (i,j,k) from the old velocities.
func (g *Grid) velocityDivergence(i, j, k int) float64 {
	vol := g.cellVolume(g.R.Old, i, j, k)
	sum := g.U.Old.Get(i, j, k)*g.faceAreaR(g.R.Old, i, j, k) -
		g.U.Old.Get(i-1, j, k)*g.faceAreaR(g.R.Old, i-1, j, k)
	if g.NDim >= 2 {
		sum += g.V.Old.Get(i, j, k)*g.faceAreaTheta(g.R.Old, i, j, k) -
			g.V.Old.Get(i, j-1, k)*g.faceAreaTheta(g.R.Old, i, j-1, k)
	}
	if g.NDim >= 3 {
		sum += (g.W.Old.Get(i, j, k) - g.W.Old.Get(i, j, k-1)) *
			g.faceAreaPhi(g.R.Old, i, j, k)
	}
	return sum / vol
}

// Deviatoric stress components. Normal stresses live at cell centers;
// missing velocity components contribute zero so the same expressions
// collapse correctly at lower dimensionality.

// tauRR is μ_t·(2∂u/∂r − ⅔∇·u) at the center of cell (i,j,k).
func (m *SPHERLS) tauRR(i, j, k int) float64 {
	g := m.Grid
	mu := g.EddyVisc.New.Get(i, j, k)
	if mu == 0 {
		return 0
	}
	dr := g.R.Old.Get(i, 0, 0) - g.R.Old.Get(i-1, 0, 0)
	dudr := (g.U.Old.Get(i, j, k) - g.U.Old.Get(i-1, j, k)) / dr
	return mu * (2.*dudr - 2./3.*g.velocityDivergence(i, j, k))
}

// tauTT is μ_t·(2((∂v/∂θ)/r + u/r) − ⅔∇·u) at the cell center.
func (m *SPHERLS) tauTT(i, j, k int) float64 {
	g := m.Grid
	mu := g.EddyVisc.New.Get(i, j, k)
	if mu == 0 {
		return 0
	}
	rc := g.rCenter(g.R.Old, i)
	uc := 0.5 * (g.U.Old.Get(i-1, j, k) + g.U.Old.Get(i, j, k))
	var dvdt float64
	if g.V != nil {
		dvdt = (g.V.Old.Get(i, j, k) - g.V.Old.Get(i, j-1, k)) / g.DTheta[j]
	}
	return mu * (2.*(dvdt+uc)/rc - 2./3.*g.velocityDivergence(i, j, k))
}

// tauPP is μ_t·(2((∂w/∂φ)/(r sinθ) + u/r + v cotθ/r) − ⅔∇·u) at the cell
// center.
func (m *SPHERLS) tauPP(i, j, k int) float64 {
	g := m.Grid
	mu := g.EddyVisc.New.Get(i, j, k)
	if mu == 0 {
		return 0
	}
	rc := g.rCenter(g.R.Old, i)
	uc := 0.5 * (g.U.Old.Get(i-1, j, k) + g.U.Old.Get(i, j, k))
	var dwdp, vc float64
	if g.W != nil {
		dwdp = (g.W.Old.Get(i, j, k) - g.W.Old.Get(i, j, k-1)) /
			(g.SinThetaC[j] * g.DPhi[g.phiIndex(k)])
	}
	if g.V != nil {
		vc = 0.5 * (g.V.Old.Get(i, j-1, k) + g.V.Old.Get(i, j, k))
	}
	return mu * (2.*(dwdp+uc+vc*g.CotThetaC[j])/rc - 2./3.*g.velocityDivergence(i, j, k))
}

// tauRT is the r-θ shear stress at the edge shared by the radial
// interface i and the polar interface j+½.
func (m *SPHERLS) tauRT(i, j, k int) float64 {
	g := m.Grid
	if g.V == nil {
		return 0
	}
	mu := 0.25 * (g.EddyVisc.New.Get(i, j, k) + g.EddyVisc.New.Get(i+1, j, k) +
		g.EddyVisc.New.Get(i, j+1, k) + g.EddyVisc.New.Get(i+1, j+1, k))
	if mu == 0 {
		return 0
	}
	ri := g.R.Old.Get(i, 0, 0)
	if ri <= 0 {
		return 0
	}
	dudt := (g.U.Old.Get(i, j+1, k) - g.U.Old.Get(i, j, k)) / g.DTheta[j]
	drc := g.rCenter(g.R.Old, i+1) - g.rCenter(g.R.Old, i)
	dvdr := (g.V.Old.Get(i+1, j, k) - g.V.Old.Get(i, j, k)) / drc
	vEdge := 0.5 * (g.V.Old.Get(i, j, k) + g.V.Old.Get(i+1, j, k))
	return mu * (dudt/ri + dvdr - vEdge/ri)
}

// tauRP is the r-φ shear stress at the edge shared by the radial
// interface i and the azimuthal interface k+½.
func (m *SPHERLS) tauRP(i, j, k int) float64 {
	g := m.Grid
	if g.W == nil {
		return 0
	}
	mu := 0.25 * (g.EddyVisc.New.Get(i, j, k) + g.EddyVisc.New.Get(i+1, j, k) +
		g.EddyVisc.New.Get(i, j, k+1) + g.EddyVisc.New.Get(i+1, j, k+1))
	if mu == 0 {
		return 0
	}
	ri := g.R.Old.Get(i, 0, 0)
	if ri <= 0 {
		return 0
	}
	dudp := (g.U.Old.Get(i, j, k+1) - g.U.Old.Get(i, j, k)) /
		(g.SinThetaC[j] * g.DPhi[g.phiIndex(k)])
	drc := g.rCenter(g.R.Old, i+1) - g.rCenter(g.R.Old, i)
	dwdr := (g.W.Old.Get(i+1, j, k) - g.W.Old.Get(i, j, k)) / drc
	wEdge := 0.5 * (g.W.Old.Get(i, j, k) + g.W.Old.Get(i+1, j, k))
	return mu * (dudp/ri + dwdr - wEdge/ri)
}

// tauTP is the θ-φ shear stress at the edge shared by the polar interface
// j+½ and the azimuthal interface k+½, at the radial center of cell i.
func (m *SPHERLS) tauTP(i, j, k int) float64 {
	g := m.Grid
	if g.V == nil || g.W == nil {
		return 0
	}
	sinI := g.SinThetaI[j]
	if sinI < 1e-12 {
		return 0 // polar axis
	}
	mu := 0.25 * (g.EddyVisc.New.Get(i, j, k) + g.EddyVisc.New.Get(i, j+1, k) +
		g.EddyVisc.New.Get(i, j, k+1) + g.EddyVisc.New.Get(i, j+1, k+1))
	if mu == 0 {
		return 0
	}
	rc := g.rCenter(g.R.Old, i)
	dvdp := (g.V.Old.Get(i, j, k+1) - g.V.Old.Get(i, j, k)) / g.DPhi[g.phiIndex(k)]
	dwdt := (g.W.Old.Get(i, j+1, k) - g.W.Old.Get(i, j, k)) / g.DTheta[j]
	wEdge := 0.5 * (g.W.Old.Get(i, j, k) + g.W.Old.Get(i, j+1, k))
	return mu * (dvdp/(rc*sinI) + dwdt/rc - wEdge*g.CotThetaI[j]/rc)
}

// radialStressDivergence is the r-row of ∇·τ over ρ at the radial
// interface i: the conservative r²τ_rr transport, the τ_rθ and τ_rφ
// shear divergences, and the −(τ_θθ+τ_φφ)/r curvature sink.
func (m *SPHERLS) radialStressDivergence(i, j, k int) float64 {
	g := m.Grid
	rhoF := 0.5 * (g.DenAve.New.Get(i, 0, 0) + g.DenAve.New.Get(i+1, 0, 0))
	if rhoF <= 0 {
		return 0
	}
	ri := g.R.Old.Get(i, 0, 0)
	rcIn := g.rCenter(g.R.Old, i)
	rcOut := g.rCenter(g.R.Old, minInt(i+1, g.IRMax+1))
	drc := rcOut - rcIn

	term := (rcOut*rcOut*m.tauRR(minInt(i+1, g.IRMax+1), j, k) -
		rcIn*rcIn*m.tauRR(i, j, k)) / (drc * ri * ri)
	term -= (0.5*(m.tauTT(i, j, k)+m.tauTT(i+1, j, k)) +
		0.5*(m.tauPP(i, j, k)+m.tauPP(i+1, j, k))) / ri
	if g.NDim >= 2 {
		term += (g.SinThetaI[j]*m.tauRT(i, j, k) -
			g.SinThetaI[j-1]*m.tauRT(i, j-1, k)) /
			(ri * g.SinThetaC[j] * g.DTheta[j])
	}
	if g.NDim >= 3 {
		term += (m.tauRP(i, j, k) - m.tauRP(i, j, k-1)) /
			(ri * g.SinThetaC[j] * g.DPhi[g.phiIndex(k)])
	}
	return term / rhoF
}

// polarStressDivergence is the θ-row of ∇·τ over ρ at the polar interface
// (i, j+½): r³τ_rθ transport, the sinθ·τ_θθ divergence, the −cotθ·τ_φφ
// curvature sink, and the τ_θφ divergence in 3D.
func (m *SPHERLS) polarStressDivergence(i, j, k int) float64 {
	g := m.Grid
	rhoF := 0.5 * (g.D.New.Get(i, j, k) + g.D.New.Get(i, j+1, k))
	if rhoF <= 0 {
		return 0
	}
	rc := g.rCenter(g.R.Old, i)
	rIn := g.R.Old.Get(i-1, 0, 0)
	rOut := g.R.Old.Get(i, 0, 0)
	dr := rOut - rIn

	term := (rOut*rOut*rOut*m.tauRT(i, j, k) -
		rIn*rIn*rIn*m.tauRT(i-1, j, k)) / (rc * rc * rc * dr)
	term += (m.tauTT(i, j+1, k)*g.SinThetaC[j+1] -
		m.tauTT(i, j, k)*g.SinThetaC[j]) /
		(rc * g.SinThetaI[j] * g.DTheta[j])
	term -= g.CotThetaI[j] * 0.5 * (m.tauPP(i, j, k) + m.tauPP(i, j+1, k)) / rc
	if g.NDim >= 3 {
		term += (m.tauTP(i, j, k) - m.tauTP(i, j, k-1)) /
			(rc * g.SinThetaI[j] * g.DPhi[g.phiIndex(k)])
	}
	return term / rhoF
}

// azimuthalStressDivergence is the φ-row of ∇·τ over ρ at the azimuthal
// interface (i, j, k+½): r³τ_rφ transport, the sin²θ·τ_θφ divergence
// (which folds the 2cotθ·τ_θφ/r curvature term), and the τ_φφ divergence.
func (m *SPHERLS) azimuthalStressDivergence(i, j, k int) float64 {
	g := m.Grid
	rhoF := 0.5 * (g.D.New.Get(i, j, k) + g.D.New.Get(i, j, k+1))
	if rhoF <= 0 {
		return 0
	}
	rc := g.rCenter(g.R.Old, i)
	rIn := g.R.Old.Get(i-1, 0, 0)
	rOut := g.R.Old.Get(i, 0, 0)
	dr := rOut - rIn
	sinC := g.SinThetaC[j]

	term := (rOut*rOut*rOut*m.tauRP(i, j, k) -
		rIn*rIn*rIn*m.tauRP(i-1, j, k)) / (rc * rc * rc * dr)
	term += (g.SinThetaI[j]*g.SinThetaI[j]*m.tauTP(i, j, k) -
		g.SinThetaI[j-1]*g.SinThetaI[j-1]*m.tauTP(i, j-1, k)) /
		(rc * sinC * sinC * g.DTheta[j])
	term += (m.tauPP(i, j, k+1) - m.tauPP(i, j, k)) /
		(rc * sinC * g.DPhi[g.phiIndex(k)])
	return term / rhoF
}

// updateVPolar advances the polar velocity at the θ-interfaces.
func (m *SPHERLS) updateVPolar(withPhi bool) error {
	g := m.Grid
	dt := m.Time.DtN
	frac := m.Diag.DonorFrac
	les := m.Config.Turbulence != TurbNone

	for i := g.IRMin; i <= g.IRMax; i++ {
		rc := g.rCenter(g.R.Old, i)
		for j := g.JMin - 1; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				if g.SinThetaI[j] < 1e-12 {
					g.V.New.Set(0, i, j, k) // polar axis
					continue
				}
				v := g.V.Old.Get(i, j, k)
				uc := 0.25 * (g.U.Old.Get(i-1, j, k) + g.U.Old.Get(i, j, k) +
					g.U.Old.Get(i-1, j+1, k) + g.U.Old.Get(i, j+1, k))
				u0c := 0.5 * (g.U0.Old.Get(i-1, 0, 0) + g.U0.Old.Get(i, 0, 0))
				urelc := uc - u0c

				a1 := urelc * donorGradient(frac, urelc,
					g.V.Old.Get(i-1, j, k), v, g.V.Old.Get(i+1, j, k),
					g.rCenter(g.R.Old, i-1), rc, g.rCenter(g.R.Old, i+1))

				a2 := v / rc * donorGradient(frac, v,
					g.V.Old.Get(i, j-1, k), v, g.V.Old.Get(i, j+1, k),
					-g.DTheta[j], 0, g.DTheta[j])

				var a3 float64
				if withPhi {
					wc := 0.25 * (g.W.Old.Get(i, j, k-1) + g.W.Old.Get(i, j, k) +
						g.W.Old.Get(i, j+1, k-1) + g.W.Old.Get(i, j+1, k))
					a3 = wc / (rc * g.SinThetaI[j]) * donorGradient(frac, wc,
						g.V.Old.Get(i, j, k-1), v, g.V.Old.Get(i, j, k+1),
						-g.DPhi[g.phiIndex(k)], 0, g.DPhi[g.phiIndex(k)])
					a3 -= wc * wc * g.CotThetaI[j] / rc
				}

				// Advection of V by the radial flow curves it: uv/r.
				curv := uc * v / rc

				rhoF := 0.5 * (g.D.New.Get(i, j, k) + g.D.New.Get(i, j+1, k))
				ptLow := g.P.New.Get(i, j, k) + g.Q1.New.Get(i, j, k)
				ptHigh := g.P.New.Get(i, j+1, k) + g.Q1.New.Get(i, j+1, k)
				s2 := (ptHigh - ptLow) / (rhoF * rc * g.DTheta[j])

				var ta float64
				if les {
					ta = m.polarStressDivergence(i, j, k)
				}

				g.V.New.Set(v-dt*(a1+a2+a3+s2+curv-ta), i, j, k)
			}
		}
	}
	return nil
}

// updateWAzimuthal advances the azimuthal velocity at the φ-interfaces.
func (m *SPHERLS) updateWAzimuthal() error {
	g := m.Grid
	dt := m.Time.DtN
	frac := m.Diag.DonorFrac
	les := m.Config.Turbulence != TurbNone

	for i := g.IRMin; i <= g.IRMax; i++ {
		rc := g.rCenter(g.R.Old, i)
		for j := g.JMin; j <= g.JMax; j++ {
			sinT := g.SinThetaC[j]
			for k := g.KMin - 1; k <= g.KMax; k++ {
				w := g.W.Old.Get(i, j, k)
				uc := 0.25 * (g.U.Old.Get(i-1, j, k) + g.U.Old.Get(i, j, k) +
					g.U.Old.Get(i-1, j, k+1) + g.U.Old.Get(i, j, k+1))
				u0c := 0.5 * (g.U0.Old.Get(i-1, 0, 0) + g.U0.Old.Get(i, 0, 0))
				urelc := uc - u0c
				vc := 0.25 * (g.V.Old.Get(i, j-1, k) + g.V.Old.Get(i, j, k) +
					g.V.Old.Get(i, j-1, k+1) + g.V.Old.Get(i, j, k+1))

				a1 := urelc * donorGradient(frac, urelc,
					g.W.Old.Get(i-1, j, k), w, g.W.Old.Get(i+1, j, k),
					g.rCenter(g.R.Old, i-1), rc, g.rCenter(g.R.Old, i+1))

				a2 := vc / rc * donorGradient(frac, vc,
					g.W.Old.Get(i, j-1, k), w, g.W.Old.Get(i, j+1, k),
					-g.DTheta[j], 0, g.DTheta[j])

				a3 := w / (rc * sinT) * donorGradient(frac, w,
					g.W.Old.Get(i, j, k-1), w, g.W.Old.Get(i, j, k+1),
					-g.DPhi[g.phiIndex(k)], 0, g.DPhi[g.phiIndex(k)])

				curv := uc*w/rc + vc*w*g.CotThetaC[j]/rc

				rhoF := 0.5 * (g.D.New.Get(i, j, k) + g.D.New.Get(i, j, k+1))
				ptLow := g.P.New.Get(i, j, k) + g.Q2.New.Get(i, j, k)
				ptHigh := g.P.New.Get(i, j, k+1) + g.Q2.New.Get(i, j, k+1)
				s3 := (ptHigh - ptLow) / (rhoF * rc * sinT * g.DPhi[g.phiIndex(k)])

				var ta float64
				if les {
					ta = m.azimuthalStressDivergence(i, j, k)
				}

				g.W.New.Set(w-dt*(a1+a2+a3+s3+curv-ta), i, j, k)
			}
		}
	}
	return nil
}
