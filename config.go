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

// TurbulenceModel selects the subgrid closure.
type TurbulenceModel int

const (
	// TurbNone runs without a subgrid model.
	TurbNone TurbulenceModel = iota
	// TurbConstant uses the constant-coefficient eddy viscosity.
	TurbConstant
	// TurbSmagorinsky sets the eddy viscosity from the local strain-rate
	// magnitude.
	TurbSmagorinsky
)

// InnerBC selects the inner radial boundary treatment at rank 0.
type InnerBC int

const (
	// InnerCoMoving moves the inner boundary with the fluid (zero
	// relative mass flux).
	InnerCoMoving InnerBC = iota
	// InnerReflecting holds the inner boundary fixed and mirrors the
	// main-grid stencil into the inner ghost region. Used by the blast
	// wave setup.
	InnerReflecting
)

// Config holds the engine parameters. It is read-only within the kernels;
// per-step derived quantities live in Diagnostics instead.
type Config struct {
	Gamma         float64 `toml:"gamma"`           // gamma-law adiabatic index
	G             float64 `toml:"gravity"`         // gravitational constant
	SigmaSB       float64 `toml:"sigma_sb"`        // Stefan–Boltzmann constant
	Alpha         float64 `toml:"alpha"`           // surface shell-width extension
	AlphaExtra    float64 `toml:"alpha_extra"`     // additional surface extension
	EddyViscosity float64 `toml:"eddy_viscosity"`  // turbulence model coefficient
	AVThreshold   float64 `toml:"av_threshold"`    // compression trigger, in sound speeds
	AVCoefficient float64 `toml:"av_coefficient"`  // artificial viscosity amplitude
	PrandtlTurb   float64 `toml:"prandtl_turb"`    // turbulent Prandtl number
	Tolerance     float64 `toml:"tolerance"`       // EOS and implicit Newton tolerance
	MaxIterations int     `toml:"max_iterations"`  // Newton iteration bound
	DerivStepFrac float64 `toml:"deriv_step_frac"` // Jacobian finite-difference step fraction

	GammaLawEOS bool            `toml:"gamma_law_eos"`
	Adiabatic   bool            `toml:"adiabatic"`
	Turbulence  TurbulenceModel `toml:"turbulence"`

	// NumImplicitZones marks that many outermost radial zones of each
	// rank's slab for the implicit radiation–energy correction. Zero
	// disables the solve.
	NumImplicitZones int `toml:"num_implicit_zones"`

	InnerBoundary InnerBC `toml:"inner_boundary"`

	// ViscousEnergy includes the directional artificial viscosities in the
	// pressure terms of the energy equation.
	ViscousEnergy bool `toml:"viscous_energy"`
	// TrackSolverError retains post-solve absolute residual statistics.
	TrackSolverError bool `toml:"track_solver_error"`
	// HaltOnNegative panics at the violation site on a sign violation
	// instead of returning an error. Debugging aid only.
	HaltOnNegative bool `toml:"halt_on_negative"`
}

// DefaultConfig returns a configuration with the usual engine constants
// set; the caller fills in the physics selections.
func DefaultConfig() *Config {
	return &Config{
		Gamma:         5. / 3.,
		G:             6.67408e-8,
		SigmaSB:       5.670367e-5,
		Alpha:         1.,
		AlphaExtra:    0.,
		EddyViscosity: 0.17,
		AVThreshold:   0.01,
		AVCoefficient: 1.4,
		PrandtlTurb:   0.9,
		Tolerance:     5e-14,
		MaxIterations: 50,
		DerivStepFrac: 5e-7,
		GammaLawEOS:   true,
		Adiabatic:     true,
	}
}

// TimeState tracks simulation time and the staggered timestep triplet.
type TimeState struct {
	T        float64 // current time
	DtNMHalf float64 // Δt at n−½
	DtNPHalf float64 // Δt at n+½
	DtN      float64 // Δt at n, the average of the half-step pair

	CourantFactor float64
	PerChange     float64 // allowed fractional change per step

	VariableDt bool    // adaptive timestep when true
	ConstDt    float64 // fixed step used when VariableDt is false

	Step int // step index

	// next is the half step chosen by the controller, consumed by the
	// end-of-step swap.
	next float64
}

// advance shifts the staggered timestep triplet after the controller has
// chosen the next half step.
func (t *TimeState) advance(dtNext float64) {
	t.T += t.DtNPHalf
	t.DtNMHalf = t.DtNPHalf
	t.DtNPHalf = dtNext
	t.DtN = 0.5 * (t.DtNMHalf + t.DtNPHalf)
	t.Step++
}

// Diagnostics holds the per-step derived state published by the timestep
// controller and the implicit solver. It is rewritten every step; kernels
// read the previous step's values.
type Diagnostics struct {
	DonorFrac               float64 // upwind blending weight in [0.1,1]
	MaxConvectiveVelocity   float64 // global max of |u−u0|, |v|, |w|
	MaxConvectiveVelocityC  float64 // global max of that speed over c_s
	ImplicitIterations      int     // Newton iterations of the last solve
	ImplicitRelCorrection   float64 // largest |δT/T| of the last solve
	ImplicitIterationsMax   int     // largest iteration count of the run
	ImplicitCorrectionMax   float64 // largest relative correction of the run
	ImplicitSolverErrorMax  float64 // largest absolute solver residual (optional)
	ImplicitSolverItersMax  int     // largest linear-solver iteration count (optional)
	EOSNewtonWarned         bool    // a tabulated-EOS Newton hit its bound
	ImplicitNewtonWarned    bool    // the implicit Newton hit its bound
	LastEOSResidual         float64 // residual reported with the EOS warning
	LastImplicitCorrection  float64 // correction reported with the solve warning
}
