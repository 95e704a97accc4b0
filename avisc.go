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

// Artificial viscosity broadens shocks over a few zones. Each direction
// carries its own Q, triggered only where the directional velocity jump
// compresses the cell faster than the threshold fraction of the local
// sound speed:
//
//	Q_d = A²·ρ·(Δu_d + τ·c_s)²   when Δu_d < −τ·c_s, else 0.

func artificialViscosity1D(m *SPHERLS) error {
	return artificialViscosity(m, false, false)
}

func artificialViscosity2D(m *SPHERLS) error {
	return artificialViscosity(m, true, false)
}

func artificialViscosity3D(m *SPHERLS) error {
	return artificialViscosity(m, true, true)
}

func artificialViscosity(m *SPHERLS, withTheta, withPhi bool) error {
	g := m.Grid
	a2 := m.Config.AVCoefficient * m.Config.AVCoefficient
	tau := m.Config.AVThreshold

	iEnd := g.IRMax
	if g.Outermost {
		iEnd = g.IRMax + 1 // surface ghost region included
	}
	for i := g.IRMin; i <= iEnd; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				rho := g.D.Old.Get(i, j, k)
				cs := g.soundSpeed(i, j, k)
				thresh := tau * cs

				du := (g.U.Old.Get(i, j, k) - g.U0.Old.Get(i, 0, 0)) -
					(g.U.Old.Get(i-1, j, k) - g.U0.Old.Get(i-1, 0, 0))
				g.Q0.New.Set(qValue(a2, rho, du, thresh), i, j, k)

				if withTheta {
					dv := g.V.Old.Get(i, j, k) - g.V.Old.Get(i, j-1, k)
					g.Q1.New.Set(qValue(a2, rho, dv, thresh), i, j, k)
				}
				if withPhi {
					dw := g.W.Old.Get(i, j, k) - g.W.Old.Get(i, j, k-1)
					g.Q2.New.Set(qValue(a2, rho, dw, thresh), i, j, k)
				}
			}
		}
	}

	if withTheta {
		g.fillAngularGhosts(g.Q0.New)
		g.fillAngularGhosts(g.Q1.New)
	}
	if withPhi {
		g.fillAngularGhosts(g.Q2.New)
	}
	return nil
}

func qValue(a2, rho, du, thresh float64) float64 {
	if du >= -thresh {
		return 0
	}
	d := du + thresh
	return a2 * rho * d * d
}
