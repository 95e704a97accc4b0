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

// Operators is the operator table: one bound implementation per physics
// role, selected at startup from dimensionality, equation of state,
// turbulence model, adiabaticity and the implicit plan. The step driver
// never branches on configuration again after binding.
type Operators struct {
	EddyViscosity       DomainManipulator
	Density             DomainManipulator
	AveDensity          DomainManipulator
	ArtificialViscosity DomainManipulator
	EOSVars             DomainManipulator
	Velocities          DomainManipulator
	GridVelocity        DomainManipulator
	GridRadii           DomainManipulator
	BoundaryVelocities  DomainManipulator
	Energy              DomainManipulator
	Implicit            DomainManipulator
	TimeStep            DomainManipulator

	plan *ImplicitPlan
}

// BindOperators validates the configuration and selects one operator per
// role. Ill-posed combinations fail here, before the first step.
func BindOperators(m *SPHERLS) (*Operators, error) {
	cfg := m.Config
	g := m.Grid

	if !cfg.Adiabatic && cfg.GammaLawEOS {
		return nil, calcErrf(m.Top.Rank, -1, -1, -1,
			"non-adiabatic run requires a tabulated equation of state: "+
				"radiative diffusion needs T and κ, which the gamma law does not supply")
	}
	if !cfg.GammaLawEOS && m.EOS == nil {
		return nil, calcErrf(m.Top.Rank, -1, -1, -1,
			"tabulated equation of state selected but no table service bound")
	}

	ops := &Operators{
		GridRadii:          gridRadii,
		BoundaryVelocities: boundaryVelocities,
	}

	switch cfg.Turbulence {
	case TurbConstant:
		ops.EddyViscosity = eddyViscosityConstant
	case TurbSmagorinsky:
		ops.EddyViscosity = eddyViscositySmagorinsky
	default:
		ops.EddyViscosity = eddyViscosityNone
	}

	switch g.NDim {
	case 1:
		ops.Density = newDensity1D
		ops.AveDensity = aveDensity1D
		ops.ArtificialViscosity = artificialViscosity1D
		ops.Velocities = newVelocities1D
		ops.GridVelocity = gridVelocity1D
	case 2:
		ops.Density = newDensity2D
		ops.AveDensity = aveDensityMulti
		ops.ArtificialViscosity = artificialViscosity2D
		ops.Velocities = newVelocities2D
		ops.GridVelocity = gridVelocity2D
	default:
		ops.Density = newDensity3D
		ops.AveDensity = aveDensityMulti
		ops.ArtificialViscosity = artificialViscosity3D
		ops.Velocities = newVelocities3D
		ops.GridVelocity = gridVelocity3D
	}

	if cfg.GammaLawEOS {
		ops.EOSVars = eosVarsGammaLaw
	} else {
		ops.EOSVars = eosVarsTable
	}

	switch {
	case cfg.Adiabatic && g.NDim == 1:
		ops.Energy = newEnergy1DAdiabatic
	case cfg.Adiabatic && g.NDim == 2:
		ops.Energy = newEnergy2DAdiabatic
	case cfg.Adiabatic:
		ops.Energy = newEnergy3DAdiabatic
	case g.NDim == 1:
		ops.Energy = newEnergy1DNonAdiabatic
	case g.NDim == 2:
		ops.Energy = newEnergy2DNonAdiabatic
	default:
		ops.Energy = newEnergy3DNonAdiabatic
	}

	if cfg.NumImplicitZones > 0 && !cfg.Adiabatic {
		var solver SparseSolver
		if m.Msg.Size() > 1 {
			solver = NewKrylovSolver("mumps")
		} else {
			solver = new(DenseSolver)
		}
		plan, err := buildImplicitPlan(m, solver)
		if err != nil {
			return nil, err
		}
		ops.plan = plan
		ops.Implicit = implicitSolve
	} else {
		ops.Implicit = func(*SPHERLS) error { return nil }
	}

	if m.Time.VariableDt {
		ops.TimeStep = setTimestepCFL
	} else {
		ops.TimeStep = constantTimestep
	}
	return ops, nil
}

// StepFuncs assembles the per-step run order: turbulence closure, density
// and artificial viscosity, EOS closure, velocities, grid motion, energy,
// implicit correction, timestep controller, then the old/new swap. Every
// exchange lives here, in a schedule that is identical on every rank —
// ranks whose dimensionality lacks a role's field still join the stage —
// so the fixed sender/receiver pattern can never go out of step.
func (ops *Operators) StepFuncs() []DomainManipulator {
	return []DomainManipulator{
		ops.EddyViscosity,
		exchange(func(g *Grid) []*Field { return []*Field{g.EddyVisc} }),
		ops.Density,
		exchange(func(g *Grid) []*Field { return []*Field{g.D} }),
		ops.AveDensity,
		exchange(func(g *Grid) []*Field { return []*Field{g.DenAve} }),
		ops.ArtificialViscosity,
		exchange(func(g *Grid) []*Field { return []*Field{g.Q0, g.Q1, g.Q2} }),
		ops.EOSVars,
		exchange(func(g *Grid) []*Field {
			return []*Field{g.P, g.T, g.Kappa, g.GammaAd}
		}),
		ops.Velocities,
		exchange(func(g *Grid) []*Field { return []*Field{g.U, g.V, g.W} }),
		ops.GridVelocity,
		exchange(func(g *Grid) []*Field { return []*Field{g.U0} }),
		ops.GridRadii,
		ops.BoundaryVelocities,
		ops.Energy,
		exchange(func(g *Grid) []*Field { return []*Field{g.E} }),
		ops.Implicit,
		ops.TimeStep,
		swapState,
	}
}
