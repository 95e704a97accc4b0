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

	"gonum.org/v1/gonum/floats"
)

// velFloor keeps the fractional-change denominator away from zero
// crossings of the velocity.
const velFloor = 1e4

// dtGrowthCap limits timestep growth to 2% per step.
const dtGrowthCap = 1.02

// setTimestepCFL combines the per-direction CFL bound with the
// per-variable fractional-change limit and publishes the donor fraction
// and convective-velocity maxima for the next step's kernels.
func setTimestepCFL(m *SPHERLS) error {
	g := m.Grid
	t := m.Time

	dtShell := make([]float64, 0, g.IRMax-g.IRMin+1)
	maxFrac := 0.
	maxConv := 0.
	maxConvC := 0.

	for i := g.IRMin; i <= g.IRMax; i++ {
		dtCell := math.Inf(1)
		dr := g.R.New.Get(i, 0, 0) - g.R.New.Get(i-1, 0, 0)
		rc := g.rCenter(g.R.New, i)
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				d := g.D.New.Get(i, j, k)
				gam := g.GammaAd.New.Get(i, j, k)
				cs2 := 0.
				if d > 0 {
					cs2 = gam * g.P.New.Get(i, j, k) / d
				}
				cs := math.Sqrt(cs2)

				urel := 0.5*(g.U.New.Get(i-1, j, k)+g.U.New.Get(i, j, k)) -
					0.5*(g.U0.New.Get(i-1, 0, 0)+g.U0.New.Get(i, 0, 0))
				dtCell = minFloat(dtCell, dr/math.Sqrt(cs2+urel*urel))
				speed := math.Abs(urel)

				if g.NDim >= 2 {
					vc := 0.5 * (g.V.New.Get(i, j-1, k) + g.V.New.Get(i, j, k))
					dtCell = minFloat(dtCell, rc*g.DTheta[j]/math.Sqrt(cs2+vc*vc))
					speed = maxFloat(speed, math.Abs(vc))
				}
				if g.NDim >= 3 {
					wc := 0.5 * (g.W.New.Get(i, j, k-1) + g.W.New.Get(i, j, k))
					dx := rc * g.SinThetaC[j] * g.DPhi[g.phiIndex(k)]
					dtCell = minFloat(dtCell, dx/math.Sqrt(cs2+wc*wc))
					speed = maxFloat(speed, math.Abs(wc))
				}

				maxConv = maxFloat(maxConv, speed)
				if cs > 0 {
					maxConvC = maxFloat(maxConvC, speed/cs)
				}

				maxFrac = maxFloat(maxFrac,
					fracChange(g.D.New.Get(i, j, k), g.D.Old.Get(i, j, k), 0),
					fracChange(g.E.New.Get(i, j, k), g.E.Old.Get(i, j, k), 0),
					fracChange(g.U.New.Get(i, j, k)-g.U0.New.Get(i, 0, 0),
						g.U.Old.Get(i, j, k)-g.U0.Old.Get(i, 0, 0), velFloor))
				if g.NDim >= 2 {
					maxFrac = maxFloat(maxFrac,
						fracChange(g.V.New.Get(i, j, k), g.V.Old.Get(i, j, k), velFloor))
				}
				if g.NDim >= 3 {
					maxFrac = maxFloat(maxFrac,
						fracChange(g.W.New.Get(i, j, k), g.W.Old.Get(i, j, k), velFloor))
				}
			}
		}
		if dtCell <= 0 || math.IsNaN(dtCell) {
			return inputErrf(m.Top.Rank, i, -1, -1,
				"non-positive CFL timestep %g at shell %d", dtCell, i-g.IRMin)
		}
		dtShell = append(dtShell, dtCell)
	}

	dtCFL := floats.Min(dtShell)
	dtCFLGlobal, err := m.Msg.AllReduceMin(dtCFL)
	if err != nil {
		return err
	}
	maxFrac, err = m.Msg.AllReduceMax(maxFrac)
	if err != nil {
		return err
	}
	maxConv, err = m.Msg.AllReduceMax(maxConv)
	if err != nil {
		return err
	}
	maxConvC, err = m.Msg.AllReduceMax(maxConvC)
	if err != nil {
		return err
	}

	dtNext := dtCFLGlobal * t.CourantFactor
	if maxFrac > 0 {
		dtNext = minFloat(dtNext, t.DtNPHalf*(t.PerChange/maxFrac))
	}
	dtNext = minFloat(dtNext, t.DtNPHalf*dtGrowthCap)
	t.next = dtNext

	m.Diag.MaxConvectiveVelocity = maxConv
	m.Diag.MaxConvectiveVelocityC = maxConvC
	m.Diag.DonorFrac = clampFloat(maxConvC, 0.1, 1.0)
	return nil
}

// constantTimestep advances time by the configured constant and leaves
// the diagnostics untouched.
func constantTimestep(m *SPHERLS) error {
	m.Time.next = m.Time.ConstDt
	return nil
}

// fracChange is |Δv|/|v| with the denominator floored to keep it finite
// near zero crossings.
func fracChange(vNew, vOld, floor float64) float64 {
	den := math.Abs(vNew)
	if den < floor {
		den = floor
	}
	if den == 0 {
		return 0
	}
	return math.Abs(vNew-vOld) / den
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
