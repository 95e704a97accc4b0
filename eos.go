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

	"github.com/sirupsen/logrus"
)

// EOSTable is the tabulated equation-of-state service. The engine treats
// it as a black box; the bicubic interpolation behind it belongs to the
// orchestration layer.
type EOSTable interface {
	// EAndDTDE returns the specific internal energy and ∂T/∂E at constant
	// density.
	EAndDTDE(temp, rho float64) (energy, dTdE float64, err error)
	// PKappaGamma returns pressure, Rosseland opacity and adiabatic index.
	PKappaGamma(temp, rho float64) (p, kappa, gamma float64, err error)
	// PEKappaGamma returns pressure, energy, opacity and adiabatic index
	// in one lookup.
	PEKappaGamma(temp, rho float64) (p, energy, kappa, gamma float64, err error)
	E(temp, rho float64) (float64, error)
	P(temp, rho float64) (float64, error)
	Opacity(temp, rho float64) (float64, error)
}

// initEOSState seeds the derived thermodynamic state from the initial
// model before the first step.
func initEOSState(m *SPHERLS) error {
	g := m.Grid
	nr, nt, np := g.D.Old.Shape[0], g.D.Old.Shape[1], g.D.Old.Shape[2]
	for i := 0; i < nr; i++ {
		for j := 0; j < nt; j++ {
			for k := 0; k < np; k++ {
				d := g.D.Old.Get(i, j, k)
				if m.Config.GammaLawEOS {
					e := g.E.Old.Get(i, j, k)
					g.P.Old.Set((m.Config.Gamma-1.)*d*e, i, j, k)
					g.P.New.Set((m.Config.Gamma-1.)*d*e, i, j, k)
					g.GammaAd.Old.Set(m.Config.Gamma, i, j, k)
					g.GammaAd.New.Set(m.Config.Gamma, i, j, k)
					continue
				}
				temp := g.T.Old.Get(i, j, k)
				if d <= 0 || temp <= 0 {
					continue
				}
				p, kap, gam, err := m.EOS.PKappaGamma(temp, d)
				if err != nil {
					return err
				}
				g.P.Old.Set(p, i, j, k)
				g.P.New.Set(p, i, j, k)
				g.Kappa.Old.Set(kap, i, j, k)
				g.Kappa.New.Set(kap, i, j, k)
				g.GammaAd.Old.Set(gam, i, j, k)
				g.GammaAd.New.Set(gam, i, j, k)
				g.T.New.Set(temp, i, j, k)
			}
		}
	}
	return nil
}

// eosVarsGammaLaw closes the state with P = (γ−1)ρE. Temperature is not
// used on this branch.
func eosVarsGammaLaw(m *SPHERLS) error {
	g := m.Grid
	gam := m.Config.Gamma
	nr, nt, np := g.D.New.Shape[0], g.D.New.Shape[1], g.D.New.Shape[2]
	for i := 0; i < nr; i++ {
		for j := 0; j < nt; j++ {
			for k := 0; k < np; k++ {
				d := g.D.New.Get(i, j, k)
				e := g.E.Old.Get(i, j, k)
				if i >= g.IRMin && i <= g.IRMax {
					if d <= 0 {
						return m.negativeState("density", d, i, j, k)
					}
					if e <= 0 {
						return m.negativeState("energy", e, i, j, k)
					}
				}
				g.P.New.Set((gam-1.)*d*e, i, j, k)
				g.GammaAd.New.Set(gam, i, j, k)
			}
		}
	}
	return nil
}

// eosVarsTable solves T from the new density and the energy target by
// Newton iteration on the energy table, then looks up P, κ and γ at the
// converged temperature. Running past the iteration bound is a warning,
// not a fault.
func eosVarsTable(m *SPHERLS) error {
	g := m.Grid
	nr, nt, np := g.D.New.Shape[0], g.D.New.Shape[1], g.D.New.Shape[2]
	for i := 0; i < nr; i++ {
		for j := 0; j < nt; j++ {
			for k := 0; k < np; k++ {
				d := g.D.New.Get(i, j, k)
				eTarget := g.E.Old.Get(i, j, k)
				if d <= 0 || eTarget <= 0 {
					if i >= g.IRMin && i <= g.IRMax {
						if d <= 0 {
							return m.negativeState("density", d, i, j, k)
						}
						return m.negativeState("energy", eTarget, i, j, k)
					}
					// Ghost cells outside the model carry no material.
					g.P.New.Set(0, i, j, k)
					g.T.New.Set(g.T.Old.Get(i, j, k), i, j, k)
					g.Kappa.New.Set(g.Kappa.Old.Get(i, j, k), i, j, k)
					g.GammaAd.New.Set(g.GammaAd.Old.Get(i, j, k), i, j, k)
					continue
				}
				temp, err := m.solveTemperature(g.T.Old.Get(i, j, k), d, eTarget, i, j, k)
				if err != nil {
					return err
				}
				p, kap, gam, err := m.EOS.PKappaGamma(temp, d)
				if err != nil {
					return err
				}
				g.T.New.Set(temp, i, j, k)
				g.P.New.Set(p, i, j, k)
				g.Kappa.New.Set(kap, i, j, k)
				g.GammaAd.New.Set(gam, i, j, k)
				e, err := m.EOS.E(temp, d)
				if err != nil {
					return err
				}
				g.E.New.Set(e, i, j, k) // re-seeded; the energy kernel overwrites
			}
		}
	}
	return nil
}

// solveTemperature iterates T ← T + (E_target − E(T,ρ))·∂T/∂E until the
// relative energy residual drops under the configured tolerance.
func (m *SPHERLS) solveTemperature(tGuess, rho, eTarget float64, i, j, k int) (float64, error) {
	cfg := m.Config
	temp := tGuess
	if temp <= 0 {
		temp = 1.
	}
	var resid float64
	for it := 0; it < cfg.MaxIterations; it++ {
		e, dTdE, err := m.EOS.EAndDTDE(temp, rho)
		if err != nil {
			return 0, err
		}
		resid = math.Abs(eTarget-e) / eTarget
		if resid < cfg.Tolerance {
			return temp, nil
		}
		temp += (eTarget - e) * dTdE
		if temp <= 0 {
			return 0, m.negativeState("temperature", temp, i, j, k)
		}
	}
	m.Diag.EOSNewtonWarned = true
	m.Diag.LastEOSResidual = resid
	if m.Top.Rank == 0 {
		logrus.Warnf("EOS temperature iteration hit the bound of %d at cell %d,%d,%d; relative residual %.3e",
			cfg.MaxIterations, i, j, k, resid)
	}
	return temp, nil
}

// negativeState reports a sign violation as a CALCULATION error, or panics
// at the site when the halt-on-negative debugging aid is armed.
func (m *SPHERLS) negativeState(what string, v float64, i, j, k int) error {
	err := calcErrf(m.Top.Rank, i, j, k, "non-positive %s %g", what, v)
	if m.Config.HaltOnNegative {
		panic(err)
	}
	return err
}
