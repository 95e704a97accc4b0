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

// Implicit radiation–energy correction. Where radiation diffusion is
// stiff, the marked outermost radial zones get a global Newton iteration
// on temperature: the residual is the discretised energy equation with
// the iterate's new-step T, the Jacobian rows are one-sided finite
// differences, and each iteration solves the assembled sparse system.
//
// Derivative slots are tagged with the neighbour they perturb. The
// combined tags fold the two columns of a symmetric neighbour pair into
// one matrix column, which is what the assembled pattern needs where the
// azimuthal wrap makes k+1 and k−1 the same cell.
const (
	derivDiag   = 0
	derivIPlus  = 1
	derivIMinus = 2
	derivJPlus  = 3
	derivJMinus = 4
	// derivJBoth completes the tag set symmetrically with derivKBoth but
	// is never emitted by the plan builder: θ is a bounded wedge with
	// pole or reflecting boundaries, so j+1 and j−1 cannot wrap onto the
	// same cell the way the periodic φ direction does at NPhi==2.
	derivJBoth  = 34
	derivKPlus  = 5
	derivKMinus = 6
	derivKBoth  = 56
)

// implicitRow is one Newton unknown: the temperature of cell (i,j,k).
type implicitRow struct {
	i, j, k int
	row     int   // row index in the assembled system
	surface bool  // outermost cell: surface-boundary residual
	derivs  []int // derivative type codes for this row
}

// ImplicitPlan is the assembled description of the implicit subsystem on
// this rank, built once at bind time and reused every step.
type ImplicitPlan struct {
	rows   []implicitRow
	rowOf  map[[3]int]int
	solver SparseSolver
	dT     []float64
	n      int
	nnz    int
}

// buildImplicitPlan marks the outermost NumImplicitZones radial shells of
// this rank's slab.
func buildImplicitPlan(m *SPHERLS, solver SparseSolver) (*ImplicitPlan, error) {
	g := m.Grid
	nz := m.Config.NumImplicitZones
	iStart := g.IRMax - nz + 1
	if iStart < g.IRMin {
		iStart = g.IRMin
	}
	p := &ImplicitPlan{rowOf: make(map[[3]int]int), solver: solver}
	for i := iStart; i <= g.IRMax; i++ {
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				r := implicitRow{i: i, j: j, k: k, row: len(p.rows),
					surface: i == g.IRMax && g.Outermost}
				r.derivs = append(r.derivs, derivDiag)
				if i < g.IRMax {
					r.derivs = append(r.derivs, derivIPlus)
				}
				if i > iStart {
					r.derivs = append(r.derivs, derivIMinus)
				}
				if g.NDim >= 2 && g.NTheta > 1 {
					if j < g.JMax {
						r.derivs = append(r.derivs, derivJPlus)
					}
					if j > g.JMin {
						r.derivs = append(r.derivs, derivJMinus)
					}
				}
				if g.NDim >= 3 && g.NPhi > 1 {
					if g.NPhi == 2 {
						// k+1 and k−1 wrap onto the same cell.
						r.derivs = append(r.derivs, derivKBoth)
					} else {
						r.derivs = append(r.derivs, derivKPlus, derivKMinus)
					}
				}
				p.rowOf[[3]int{i, j, k}] = r.row
				p.rows = append(p.rows, r)
			}
		}
	}
	p.n = len(p.rows)
	for _, r := range p.rows {
		p.nnz += len(r.derivs) + 1
	}
	p.dT = make([]float64, p.n)
	if p.n > 0 {
		if err := solver.Init(p.n, p.nnz); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// neighborCells resolves a derivative tag to the perturbed cell; for the
// combined tags it returns the pair.
func (p *ImplicitPlan) neighborCells(g *Grid, r implicitRow, tag int) [][3]int {
	switch tag {
	case derivDiag:
		return [][3]int{{r.i, r.j, r.k}}
	case derivIPlus:
		return [][3]int{{r.i + 1, r.j, r.k}}
	case derivIMinus:
		return [][3]int{{r.i - 1, r.j, r.k}}
	case derivJPlus:
		return [][3]int{{r.i, r.j + 1, r.k}}
	case derivJMinus:
		return [][3]int{{r.i, r.j - 1, r.k}}
	case derivJBoth:
		return [][3]int{{r.i, r.j + 1, r.k}, {r.i, r.j - 1, r.k}}
	case derivKPlus:
		return [][3]int{{r.i, r.j, r.k + 1}}
	case derivKMinus:
		return [][3]int{{r.i, r.j, r.k - 1}}
	case derivKBoth:
		return [][3]int{{r.i, r.j, r.k + 1}, {r.i, r.j, r.k - 1}}
	}
	return nil
}

// residualFor routes a row to the interior or surface residual.
func (m *SPHERLS) residualFor(r implicitRow) (float64, error) {
	if r.surface {
		return m.energyResidualSurface(r)
	}
	return m.energyResidual(r)
}

// energyResidualSurface is the residual of the outermost implicit cell,
// whose outer face radiates the blackbody outflow instead of diffusing.
func (m *SPHERLS) energyResidualSurface(r implicitRow) (float64, error) {
	return m.energyResidualAt(r, true)
}

// energyResidual is the discretised energy equation at the iterate: all
// EOS quantities come from the trial temperatures in T.New.
func (m *SPHERLS) energyResidual(r implicitRow) (float64, error) {
	return m.energyResidualAt(r, false)
}

func (m *SPHERLS) energyResidualAt(r implicitRow, surface bool) (float64, error) {
	g := m.Grid
	i, j, k := r.i, r.j, r.k
	rho := g.D.New.Get(i, j, k)
	tTrial := g.T.New.Get(i, j, k)

	eTrial, err := m.EOS.E(tTrial, rho)
	if err != nil {
		return 0, err
	}
	pTrial, _, _, err := m.EOS.PKappaGamma(tTrial, rho)
	if err != nil {
		return 0, err
	}

	f := (eTrial - g.E.Old.Get(i, j, k)) / m.Time.DtN

	// Compression work at the trial pressure.
	vol := g.cellVolume(g.R.Old, i, j, k)
	div := (g.U.New.Get(i, j, k)*g.faceAreaR(g.R.Old, i, j, k) -
		g.U.New.Get(i-1, j, k)*g.faceAreaR(g.R.Old, i-1, j, k)) / vol
	f += pTrial / rho * div

	// Radiative diffusion at the trial temperatures.
	lum := func(iFace int) (float64, error) {
		ri := g.R.Old.Get(iFace, 0, 0)
		if iFace == r.i && surface {
			t := g.T.New.Get(iFace, j, k)
			return 4. * pi * ri * ri * m.Config.SigmaSB * pow4(t), nil
		}
		tIn := g.T.New.Get(iFace, j, k)
		tOut := g.T.New.Get(iFace+1, j, k)
		rhoIn := g.D.New.Get(iFace, j, k)
		rhoOut := g.D.New.Get(iFace+1, j, k)
		kIn, err := m.EOS.Opacity(tIn, rhoIn)
		if err != nil {
			return 0, err
		}
		kOut, err := m.EOS.Opacity(tOut, rhoOut)
		if err != nil {
			return 0, err
		}
		t4In, t4Out := pow4(tIn), pow4(tOut)
		kapFace := (t4Out + t4In) / (t4In/kIn + t4Out/kOut)
		var dmHalf float64
		if iFace == g.IRMax && g.Outermost {
			dmHalf = g.DM.Old.Get(iFace, 0, 0) * (0.5 + m.Config.Alpha + m.Config.AlphaExtra)
		} else {
			dmHalf = 0.5 * (g.DM.Old.Get(iFace, 0, 0) + g.DM.Old.Get(iFace+1, 0, 0))
		}
		coeff := 64. * pi * pi * m.Config.SigmaSB * ri * ri * ri * ri / (3. * kapFace)
		return -coeff * (t4Out - t4In) / dmHalf, nil
	}
	lOut, err := lum(i)
	if err != nil {
		return 0, err
	}
	lIn, err := lum(i - 1)
	if err != nil {
		return 0, err
	}
	f += (lOut - lIn) / g.DM.Old.Get(i, 0, 0)

	if g.NDim >= 2 {
		f += m.angularRadDiffusion(i, j, k)
	}
	return f, nil
}

// implicitSolve runs the Newton iteration over the marked zones,
// assembling finite-difference Jacobian rows and solving each iterate
// through the sparse service, then recomputes the EOS state from the
// converged temperatures.
func implicitSolve(m *SPHERLS) error {
	p := m.Ops.plan
	if p == nil || p.n == 0 {
		return nil
	}
	g := m.Grid
	cfg := m.Config
	eps := cfg.DerivStepFrac

	maxCorr := math.Inf(1)
	iter := 0
	for ; iter < cfg.MaxIterations && maxCorr > cfg.Tolerance; iter++ {
		p.solver.Start()
		for _, r := range p.rows {
			f0, err := m.residualFor(r)
			if err != nil {
				return err
			}
			p.solver.PutRHS(r.row, -f0)
			for _, tag := range r.derivs {
				var dfdt float64
				col := r.row // off-slab neighbour folded to the diagonal
				for _, nb := range p.neighborCells(g, r, tag) {
					tSave := g.T.New.Get(nb[0], nb[1], nb[2])
					g.T.New.Set(tSave*(1.+eps), nb[0], nb[1], nb[2])
					fp, err := m.residualFor(r)
					if err != nil {
						return err
					}
					g.T.New.Set(tSave, nb[0], nb[1], nb[2])
					dfdt += (fp - f0) / (eps * tSave)
					if c, ok := p.rowOf[nb]; ok {
						col = c
					}
				}
				p.solver.Put(r.row, col, dfdt)
			}
		}

		if err := p.solver.Solve(p.dT); err != nil {
			return err
		}

		localMax := 0.
		for _, r := range p.rows {
			t := g.T.New.Get(r.i, r.j, r.k) + p.dT[r.row]
			if t <= 0 {
				return m.negativeState("temperature", t, r.i, r.j, r.k)
			}
			g.T.New.Set(t, r.i, r.j, r.k)
			localMax = maxFloat(localMax, math.Abs(p.dT[r.row]/t))
		}
		if err := m.Msg.ExchangeNew(g, g.T); err != nil {
			return err
		}
		var err error
		maxCorr, err = m.Msg.AllReduceMax(localMax)
		if err != nil {
			return err
		}
	}

	m.Diag.ImplicitIterations = iter
	m.Diag.ImplicitRelCorrection = maxCorr
	if iter > m.Diag.ImplicitIterationsMax {
		m.Diag.ImplicitIterationsMax = iter
	}
	if maxCorr > m.Diag.ImplicitCorrectionMax && !math.IsInf(maxCorr, 1) {
		m.Diag.ImplicitCorrectionMax = maxCorr
	}
	if iter == cfg.MaxIterations && maxCorr > cfg.Tolerance {
		m.Diag.ImplicitNewtonWarned = true
		m.Diag.LastImplicitCorrection = maxCorr
		if m.Top.Rank == 0 {
			logrus.Warnf("implicit energy solve hit the iteration bound of %d; largest relative correction %.3e",
				cfg.MaxIterations, maxCorr)
		}
	}

	if cfg.TrackSolverError {
		localRes := 0.
		for _, r := range p.rows {
			f, err := m.residualFor(r)
			if err != nil {
				return err
			}
			localRes = maxFloat(localRes, math.Abs(f))
		}
		res, err := m.Msg.AllReduceMax(localRes)
		if err != nil {
			return err
		}
		if res > m.Diag.ImplicitSolverErrorMax {
			m.Diag.ImplicitSolverErrorMax = res
		}
	}

	// Close the state on the converged temperatures.
	for _, r := range p.rows {
		rho := g.D.New.Get(r.i, r.j, r.k)
		pr, e, kap, gam, err := m.EOS.PEKappaGamma(g.T.New.Get(r.i, r.j, r.k), rho)
		if err != nil {
			return err
		}
		g.P.New.Set(pr, r.i, r.j, r.k)
		g.E.New.Set(e, r.i, r.j, r.k)
		g.Kappa.New.Set(kap, r.i, r.j, r.k)
		g.GammaAd.New.Set(gam, r.i, r.j, r.k)
	}
	if err := m.Msg.ExchangeNew(g, g.E); err != nil {
		return err
	}
	return m.Msg.ExchangeNew(g, g.P)
}
