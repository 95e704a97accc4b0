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

// The grid velocity U0 is chosen so the mass flux through each cell's
// inner face balances what the new fluid velocity implies at its outer
// face. The sweep is sequential in radius: each rank receives U0 at its
// inner boundary from the inward neighbour, sweeps outward, and sends its
// outer boundary value onward.

// gridVelocity1D applies the pure area-ratio recurrence of the 1D core.
func gridVelocity1D(m *SPHERLS) error {
	g := m.Grid
	un, u0 := g.U.New, g.U0.New
	u0prev := g.U0.Old // upwind sign source: the last known grid velocity
	frac := m.Diag.DonorFrac

	if g.Innermost {
		// The inner boundary moves with the fluid: zero relative mass
		// flux seeds the recurrence.
		u0.Set(un.Get(g.IRMin-1, 0, 0), g.IRMin-1, 0, 0)
	} else {
		vals, err := m.Msg.RecvInner(1)
		if err != nil {
			return err
		}
		u0.Set(vals[0], g.IRMin-1, 0, 0)
	}

	for i := g.IRMin; i <= g.IRMax; i++ {
		rIn := g.R.Old.Get(i-1, 0, 0)
		rOut := g.R.Old.Get(i, 0, 0)
		areaRatio := 0.
		if rOut > 0 {
			areaRatio = rIn * rIn / (rOut * rOut)
		}
		rhoIn := m.faceDensity(g.DenAve.New, frac, i-1, un, u0prev)
		rhoOut := m.faceDensity(g.DenAve.New, frac, i, un, u0prev)
		densRatio := 1.
		if rhoOut > 0 {
			densRatio = rhoIn / rhoOut
		}
		v := (u0.Get(i-1, 0, 0)-un.Get(i-1, 0, 0))*areaRatio*densRatio +
			un.Get(i, 0, 0)
		u0.Set(v, i, 0, 0)
	}
	return m.finishGridVelocity()
}

// gridVelocity2D and gridVelocity3D balance the full ring: the outer-face
// flux sum, the carried-in inner flux and the wedge-boundary polar fluxes
// determine one angle-independent U0 per radius. Azimuthal face fluxes
// cancel around the periodic ring and never enter the sum.
func gridVelocity2D(m *SPHERLS) error { return gridVelocityRing(m) }
func gridVelocity3D(m *SPHERLS) error { return gridVelocityRing(m) }

func gridVelocityRing(m *SPHERLS) error {
	g := m.Grid
	un, u0 := g.U.New, g.U0.New
	u0prev := g.U0.Old
	frac := m.Diag.DonorFrac

	if g.Innermost {
		var sumUA, sumA float64
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				a := g.faceAreaR(g.R.Old, g.IRMin-1, j, k)
				sumUA += un.Get(g.IRMin-1, j, k) * a
				sumA += a
			}
		}
		u0.Set(sumUA/sumA, g.IRMin-1, 0, 0)
	} else {
		vals, err := m.Msg.RecvInner(1)
		if err != nil {
			return err
		}
		u0.Set(vals[0], g.IRMin-1, 0, 0)
	}

	for i := g.IRMin; i <= g.IRMax; i++ {
		var inFlux, outUA, outRhoA float64
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				rhoIn := m.faceDensityAt(g.D.New, frac, i-1, j, k, un, u0prev)
				aIn := g.faceAreaR(g.R.Old, i-1, j, k)
				inFlux += rhoIn * (un.Get(i-1, j, k) - u0.Get(i-1, 0, 0)) * aIn

				rhoOut := m.faceDensityAt(g.D.New, frac, i, j, k, un, u0prev)
				aOut := g.faceAreaR(g.R.Old, i, j, k)
				outUA += rhoOut * un.Get(i, j, k) * aOut
				outRhoA += rhoOut * aOut
			}
		}
		// Net outflow through the wedge's polar boundaries; zero on a
		// full sphere where sinθ vanishes at both poles.
		var polarFlux float64
		for k := g.KMin; k <= g.KMax; k++ {
			polarFlux += m.thetaFaceMassFlux(i, g.JMax, k)
			polarFlux -= m.thetaFaceMassFlux(i, g.JMin-1, k)
		}
		u0.Set((outUA-inFlux-polarFlux)/outRhoA, i, 0, 0)
	}
	return m.finishGridVelocity()
}

// thetaFaceMassFlux is the mass flux through the θ-interface at j+½ of the
// radial ring i, using the new polar velocity.
func (m *SPHERLS) thetaFaceMassFlux(i, j, k int) float64 {
	g := m.Grid
	if g.V == nil {
		return 0
	}
	v := g.V.New.Get(i, j, k)
	rho := donorBlend(m.Diag.DonorFrac, v,
		g.D.New.Get(i, j, k), g.D.New.Get(i, j+1, k))
	return rho * v * g.faceAreaTheta(g.R.Old, i, j, k)
}

// finishGridVelocity propagates the swept boundary value, fills the U0
// ghosts, and on the outermost rank pins the fluid velocities of the outer
// ghost layers to the surface grid velocity. U at the outermost interface
// itself is left as the momentum update produced it: in 1D the recurrence
// makes U0 equal to it, while in 2D/3D U0 there is the ring's mass-flux
// balance and an angle-dependent U can differ from it.
func (m *SPHERLS) finishGridVelocity() error {
	g := m.Grid
	u0 := g.U0.New

	if !g.Outermost {
		if err := m.Msg.SendOuter([]float64{u0.Get(g.IRMax, 0, 0)}); err != nil {
			return err
		}
	}
	// Inner ghosts continue the inner boundary value; outer ghosts carry
	// the surface value.
	for l := 2; l <= nGhost; l++ {
		u0.Set(u0.Get(g.IRMin-1, 0, 0), g.IRMin-l, 0, 0)
	}
	for i := g.IRMax + 1; i < u0.Shape[0]; i++ {
		u0.Set(u0.Get(g.IRMax, 0, 0), i, 0, 0)
	}

	if g.Outermost {
		// The surface moves with the fluid: pin the ghost fluid
		// velocities to the grid velocity.
		surf := u0.Get(g.IRMax, 0, 0)
		for i := g.IRMax + 1; i < g.U.New.Shape[0]; i++ {
			for j := 0; j < g.U.New.Shape[1]; j++ {
				for k := 0; k < g.U.New.Shape[2]; k++ {
					g.U.New.Set(surf, i, j, k)
				}
			}
		}
	}
	return nil
}

// gridRadii advances every interface radius, ghosts included, with the
// freshly computed grid velocity.
func gridRadii(m *SPHERLS) error {
	g := m.Grid
	dt := m.Time.DtNPHalf
	for i := 0; i < g.R.New.Shape[0]; i++ {
		g.R.New.Set(g.R.Old.Get(i, 0, 0)+dt*g.U0.New.Get(i, 0, 0), i, 0, 0)
	}
	return nil
}

// boundaryVelocities applies the inner velocity boundary policy to the new
// fluid velocities after the grid stage.
func boundaryVelocities(m *SPHERLS) error {
	g := m.Grid
	if !g.Innermost {
		return nil
	}
	u := g.U.New
	// Interface variables carry one fewer ghost layer inside the
	// boundary interface itself.
	for l := 1; l <= nGhost-1; l++ {
		for j := 0; j < u.Shape[1]; j++ {
			for k := 0; k < u.Shape[2]; k++ {
				switch m.Config.InnerBoundary {
				case InnerReflecting:
					// Mirror the main-grid stencil across the fixed core.
					u.Set(-u.Get(g.IRMin+l-1, j, k), g.IRMin-1-l, j, k)
				default:
					u.Set(u.Get(g.IRMin-1, j, k), g.IRMin-1-l, j, k)
				}
			}
		}
	}
	if m.Config.InnerBoundary == InnerReflecting {
		for j := 0; j < u.Shape[1]; j++ {
			for k := 0; k < u.Shape[2]; k++ {
				u.Set(0, g.IRMin-1, j, k)
			}
		}
		g.U0.New.Set(0, g.IRMin-1, 0, 0)
	}
	return nil
}

// faceDensity interpolates the ring-averaged density to the radial
// interface i with the donor-fraction blend; the upwind side follows the
// sign of the relative velocity there.
func (m *SPHERLS) faceDensity(den *sparseArray, frac float64, i int, un, u0 *sparseArray) float64 {
	urel := un.Get(i, 0, 0) - u0.Get(i, 0, 0)
	return donorBlend(frac, urel, den.Get(i, 0, 0), den.Get(i+1, 0, 0))
}

// faceDensityAt is faceDensity for an angle-resolved density array.
func (m *SPHERLS) faceDensityAt(d *sparseArray, frac float64, i, j, k int, un, u0 *sparseArray) float64 {
	urel := un.Get(i, j, k) - u0.Get(i, 0, 0)
	return donorBlend(frac, urel, d.Get(i, j, k), d.Get(i+1, j, k))
}
