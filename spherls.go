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

// Package spherls implements the physics-update engine of a spherical
// stellar-envelope hydrodynamics solver: the explicit finite-difference
// kernels that advance the conserved state one timestep, the adaptive
// timestep controller, and the implicit radiation–energy correction.
package spherls

import (
	"fmt"
	"io"
	"time"
)

// SPHERLS holds the state of one rank of the model.
type SPHERLS struct {

	// InitFuncs are functions to be called in the given order at the
	// beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until Done is true.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be run in the given order after the
	// simulation has completed.
	CleanupFuncs []DomainManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	Grid   *Grid
	Config *Config
	Time   *TimeState
	Diag   *Diagnostics
	Top    ProcTop

	EOS EOSTable
	Msg Messenger
	Ops *Operators
}

// DomainManipulator is a class of functions that operate on the entire
// rank-local domain.
type DomainManipulator func(m *SPHERLS) error

// New assembles a model from an initial state, binding one operator per
// physics role and wiring the per-step run functions in stage order.
func New(im *InitialModel, cfg *Config, eos EOSTable, msg Messenger, t *TimeState) (*SPHERLS, error) {
	if msg == nil {
		msg = Solo{}
	}
	g, err := NewGrid(im, msg.Rank())
	if err != nil {
		return nil, err
	}
	m := &SPHERLS{
		Grid:   g,
		Config: cfg,
		Time:   t,
		Diag:   &Diagnostics{DonorFrac: 0.1},
		Top:    topologyOf(msg),
		EOS:    eos,
		Msg:    msg,
	}
	if m.Top.OuterNeighbor >= 0 {
		g.Outermost = false
	}
	if m.Top.InnerNeighbor >= 0 {
		g.Innermost = false
	}
	ops, err := BindOperators(m)
	if err != nil {
		return nil, err
	}
	m.Ops = ops
	m.InitFuncs = []DomainManipulator{initEOSState}
	m.RunFuncs = ops.StepFuncs()
	return m, nil
}

// Init initializes the simulation by running m.InitFuncs.
func (m *SPHERLS) Init() error {
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running m.RunFuncs until m.Done is
// true.
func (m *SPHERLS) Run() error {
	for !m.Done {
		for _, f := range m.RunFuncs {
			if err := f(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running m.CleanupFuncs.
func (m *SPHERLS) Cleanup() error {
	for _, f := range m.CleanupFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Step advances the model a single timestep regardless of Done.
func (m *SPHERLS) Step() error {
	for _, f := range m.RunFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// swapState promotes the new buffers to old and advances the time state
// with the controller's chosen half step.
func swapState(m *SPHERLS) error {
	m.Grid.swapState()
	dt := m.Time.next
	if dt == 0 {
		dt = m.Time.DtNPHalf
	}
	m.Time.advance(dt)
	return nil
}

// exchange returns a manipulator that refreshes the radial halos of the
// given fields after the preceding kernel stage. Nil fields (roles absent
// at this rank's dimensionality) are still passed through: on a cluster
// every rank must join every exchange collective, and the messenger
// decides what a rank without the field contributes.
func exchange(fields func(g *Grid) []*Field) DomainManipulator {
	return func(m *SPHERLS) error {
		for _, f := range fields(m.Grid) {
			if err := m.Msg.ExchangeNew(m.Grid, f); err != nil {
				return err
			}
		}
		return nil
	}
}

// MaxSteps ends the run after n steps.
func MaxSteps(n int) DomainManipulator {
	return func(m *SPHERLS) error {
		if m.Time.Step >= n {
			m.Done = true
		}
		return nil
	}
}

// EndTime ends the run once simulated time reaches tEnd.
func EndTime(tEnd float64) DomainManipulator {
	return func(m *SPHERLS) error {
		if m.Time.T >= tEnd {
			m.Done = true
		}
		return nil
	}
}

// Log writes simulation status messages to w.
func Log(w io.Writer) DomainManipulator {
	startTime := time.Now()
	stepTime := time.Now()
	return func(m *SPHERLS) error {
		if m.Top.Rank != 0 {
			return nil
		}
		fmt.Fprintf(w, "Step %-6d walltime=%6.3gh Δwalltime=%4.2gs t=%.6e Δt=%.3e donor=%4.2f implicit=%d\n",
			m.Time.Step, time.Since(startTime).Hours(),
			time.Since(stepTime).Seconds(), m.Time.T, m.Time.DtNPHalf,
			m.Diag.DonorFrac, m.Diag.ImplicitIterations)
		stepTime = time.Now()
		return nil
	}
}
