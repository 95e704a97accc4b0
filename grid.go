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
	"fmt"
	"math"

	"github.com/ctessum/sparse"
)

// nGhost is the halo width on every face; two layers cover the five-point
// donor-blended stencils.
const nGhost = 2

// sparseArray shortens the storage type the kernels index everywhere.
type sparseArray = sparse.DenseArray

// Centering describes where a variable lives along one grid direction.
type Centering int8

const (
	// CellCentered variables live at zone centers.
	CellCentered Centering = 0
	// FaceCentered variables live at zone interfaces.
	FaceCentered Centering = 1
	// NoDim marks a direction the variable does not carry.
	NoDim Centering = -1
)

// VarDesc is the four-element variable descriptor: one centering per
// direction plus whether the variable is integrated in time.
type VarDesc struct {
	R, Theta, Phi Centering
	TimeEvolved   bool
}

// Field is one grid variable with double-buffered state. Kernels read Old
// and write New; the buffers are swapped at the end of every step.
type Field struct {
	Name string
	Desc VarDesc
	Old  *sparse.DenseArray
	New  *sparse.DenseArray
}

func (f *Field) swap() {
	f.Old, f.New = f.New, f.Old
}

// copyOldToNew seeds New with Old for variables a kernel only partially
// overwrites.
func (f *Field) copyOldToNew() {
	copy(f.New.Elements, f.Old.Elements)
}

// InitialModel is the startup state handed over by the orchestration layer.
// Radial profiles are indexed from the innermost owned cell outward.
type InitialModel struct {
	NDim   int
	NTheta int
	NPhi   int

	// ThetaMin and ThetaMax bound the polar wedge in 2D/3D. Zero values
	// default to the full sphere.
	ThetaMin, ThetaMax float64

	RInterfaces []float64 // nR+1 interface radii, inner to outer
	Density     []float64 // nR zone densities
	Energy      []float64 // nR zone specific internal energies
	Temperature []float64 // nR zone temperatures (tabulated EOS runs)
	Velocity    []float64 // nR+1 interface radial velocities

	// CentralMass is the mass enclosed inside the innermost interface.
	CentralMass float64
}

// Grid is one rank's slab of the logically-structured spherical mesh with
// its two-layer halos and precomputed geometric factors. Rank 0 always
// collapses the angular directions.
type Grid struct {
	NDim   int
	NR     int // owned radial zones
	NTheta int // owned polar zones (1 when collapsed)
	NPhi   int // owned azimuthal zones (1 when collapsed)

	// Inclusive interior index ranges. Radial interface variables share
	// the radial range; the interface at IRMax is the slab's outer face.
	IRMin, IRMax int
	JMin, JMax   int
	KMin, KMax   int

	// Innermost and Outermost flag whether this slab touches the physical
	// center and surface.
	Innermost, Outermost bool

	R, U, V, W, U0   *Field
	D, DenAve, E     *Field
	P, T, Kappa      *Field
	GammaAd          *Field
	Q0, Q1, Q2       *Field
	EddyVisc         *Field
	DM, M            *Field

	// Angular geometric factors, fixed after initialization. Interface
	// variants hold the value at j+½.
	DTheta, DPhi         []float64
	DCosTheta            []float64
	SinThetaC, SinThetaI []float64
	CotThetaC, CotThetaI []float64

	Fields []*Field
}

func (g *Grid) newField(name string, desc VarDesc, angular bool) *Field {
	nr := g.NR + 2*nGhost
	nt, np := 1, 1
	if angular && g.NDim >= 2 {
		nt = g.NTheta + 2*nGhost
	}
	if angular && g.NDim >= 3 {
		np = g.NPhi + 2*nGhost
	}
	if !angular || g.NDim < 2 {
		desc.Theta = NoDim
	}
	if !angular || g.NDim < 3 {
		desc.Phi = NoDim
	}
	f := &Field{
		Name: name,
		Desc: desc,
		Old:  sparse.ZerosDense(nr, nt, np),
		New:  sparse.ZerosDense(nr, nt, np),
	}
	g.Fields = append(g.Fields, f)
	return f
}

// NewGrid builds a rank's slab from the initial model. A single-rank run
// owns the whole radial extent; multi-rank decomposition slices the model
// before calling this.
func NewGrid(im *InitialModel, rank int) (*Grid, error) {
	nr := len(im.Density)
	if nr == 0 || len(im.RInterfaces) != nr+1 {
		return nil, fmt.Errorf("initial model needs nR zones and nR+1 interfaces, got %d and %d",
			nr, len(im.RInterfaces))
	}
	ndim := im.NDim
	if rank == 0 {
		ndim = 1 // the innermost slab is always the 1D core
	}
	g := &Grid{
		NDim:   ndim,
		NR:     nr,
		NTheta: 1,
		NPhi:   1,
	}
	if ndim >= 2 {
		g.NTheta = im.NTheta
	}
	if ndim >= 3 {
		g.NPhi = im.NPhi
	}
	// A single-rank run touches both physical boundaries; the messenger
	// setup overrides these for interior slabs.
	g.Innermost = rank == 0
	g.Outermost = true
	g.IRMin = nGhost
	g.IRMax = nGhost + nr - 1
	g.JMin, g.JMax = 0, 0
	g.KMin, g.KMax = 0, 0
	if ndim >= 2 {
		g.JMin = nGhost
		g.JMax = nGhost + g.NTheta - 1
	}
	if ndim >= 3 {
		g.KMin = nGhost
		g.KMax = nGhost + g.NPhi - 1
	}

	g.R = g.newField("R", VarDesc{FaceCentered, CellCentered, CellCentered, true}, false)
	g.U = g.newField("U", VarDesc{FaceCentered, CellCentered, CellCentered, true}, true)
	g.U0 = g.newField("U0", VarDesc{FaceCentered, NoDim, NoDim, true}, false)
	g.D = g.newField("D", VarDesc{CellCentered, CellCentered, CellCentered, true}, true)
	g.DenAve = g.newField("DenAve", VarDesc{CellCentered, NoDim, NoDim, true}, false)
	g.E = g.newField("E", VarDesc{CellCentered, CellCentered, CellCentered, true}, true)
	g.P = g.newField("P", VarDesc{CellCentered, CellCentered, CellCentered, false}, true)
	g.T = g.newField("T", VarDesc{CellCentered, CellCentered, CellCentered, false}, true)
	g.Kappa = g.newField("Kappa", VarDesc{CellCentered, CellCentered, CellCentered, false}, true)
	g.GammaAd = g.newField("Gamma", VarDesc{CellCentered, CellCentered, CellCentered, false}, true)
	g.Q0 = g.newField("Q0", VarDesc{CellCentered, CellCentered, CellCentered, true}, true)
	g.EddyVisc = g.newField("EddyVisc", VarDesc{CellCentered, CellCentered, CellCentered, true}, true)
	g.DM = g.newField("DM", VarDesc{CellCentered, NoDim, NoDim, false}, false)
	g.M = g.newField("M", VarDesc{FaceCentered, NoDim, NoDim, false}, false)
	if ndim >= 2 {
		g.V = g.newField("V", VarDesc{CellCentered, FaceCentered, CellCentered, true}, true)
		g.Q1 = g.newField("Q1", VarDesc{CellCentered, CellCentered, CellCentered, true}, true)
	}
	if ndim >= 3 {
		g.W = g.newField("W", VarDesc{CellCentered, CellCentered, FaceCentered, true}, true)
		g.Q2 = g.newField("Q2", VarDesc{CellCentered, CellCentered, CellCentered, true}, true)
	}

	g.setAngularFactors(im)
	if err := g.setInitialState(im); err != nil {
		return nil, err
	}
	return g, nil
}

// setAngularFactors precomputes Δθ, Δφ, Δcosθ and the sine and cotangent
// factors at zone centers and j+½ interfaces.
func (g *Grid) setAngularFactors(im *InitialModel) {
	ntTot := 1
	if g.NDim >= 2 {
		ntTot = g.NTheta + 2*nGhost
	}
	npTot := 1
	if g.NDim >= 3 {
		npTot = g.NPhi + 2*nGhost
	}
	g.DTheta = make([]float64, ntTot)
	g.DCosTheta = make([]float64, ntTot)
	g.SinThetaC = make([]float64, ntTot)
	g.SinThetaI = make([]float64, ntTot)
	g.CotThetaC = make([]float64, ntTot)
	g.CotThetaI = make([]float64, ntTot)
	g.DPhi = make([]float64, npTot)

	if g.NDim < 2 {
		// Angular factors collapse to the full solid angle at the 1D core.
		g.DTheta[0] = math.Pi
		g.DCosTheta[0] = 2.
		g.DPhi[0] = 2. * math.Pi
		g.SinThetaC[0] = 1.
		g.SinThetaI[0] = 1.
		return
	}

	tmin, tmax := im.ThetaMin, im.ThetaMax
	if tmax <= tmin {
		tmin, tmax = 0., math.Pi
	}
	dtheta := (tmax - tmin) / float64(g.NTheta)
	for j := 0; j < ntTot; j++ {
		thetaLow := tmin + float64(j-nGhost)*dtheta
		thetaHigh := thetaLow + dtheta
		thetaMid := 0.5 * (thetaLow + thetaHigh)
		g.DTheta[j] = dtheta
		g.DCosTheta[j] = math.Cos(thetaLow) - math.Cos(thetaHigh)
		g.SinThetaC[j] = math.Sin(thetaMid)
		g.SinThetaI[j] = math.Sin(thetaHigh)
		g.CotThetaC[j] = cotSafe(thetaMid)
		g.CotThetaI[j] = cotSafe(thetaHigh)
	}

	dphi := 2. * math.Pi
	if g.NDim >= 3 {
		dphi = 2. * math.Pi / float64(g.NPhi)
	}
	for k := range g.DPhi {
		g.DPhi[k] = dphi
	}
}

func cotSafe(theta float64) float64 {
	s := math.Sin(theta)
	if math.Abs(s) < 1e-14 {
		return 0.
	}
	return math.Cos(theta) / s
}

// setInitialState loads the model profiles into the old buffers, fills the
// radial ghosts by extension, and freezes DM and M from the initial
// density.
func (g *Grid) setInitialState(im *InitialModel) error {
	// Interface radii; the inner ghost interfaces continue the innermost
	// spacing inward without crossing zero.
	for i := 0; i < g.NR+2*nGhost; i++ {
		var r float64
		switch {
		case i < g.IRMin-1:
			dr := im.RInterfaces[1] - im.RInterfaces[0]
			r = im.RInterfaces[0] - float64(g.IRMin-1-i)*dr
			if r < 0 {
				r = 0
			}
		case i <= g.IRMax:
			r = im.RInterfaces[i-g.IRMin+1]
		default:
			dr := im.RInterfaces[len(im.RInterfaces)-1] -
				im.RInterfaces[len(im.RInterfaces)-2]
			r = im.RInterfaces[len(im.RInterfaces)-1] + float64(i-g.IRMax)*dr
		}
		if i == g.IRMin-1 {
			r = im.RInterfaces[0]
		}
		g.R.Old.Set(r, i, 0, 0)
		g.R.New.Set(r, i, 0, 0)
	}

	for i := 0; i < g.NR+2*nGhost; i++ {
		ii := clampInt(i, g.IRMin, g.IRMax)
		d := im.Density[ii-g.IRMin]
		e := im.Energy[ii-g.IRMin]
		var temp float64
		if len(im.Temperature) > 0 {
			temp = im.Temperature[ii-g.IRMin]
		}
		var u float64
		if len(im.Velocity) > 0 {
			u = im.Velocity[clampInt(i-g.IRMin+1, 0, len(im.Velocity)-1)]
		}
		if i > g.IRMax {
			d = 0 // no material outside the model
		}
		for j := 0; j < g.D.Old.Shape[1]; j++ {
			for k := 0; k < g.D.Old.Shape[2]; k++ {
				g.D.Old.Set(d, i, j, k)
				g.E.Old.Set(e, i, j, k)
				g.T.Old.Set(temp, i, j, k)
			}
		}
		for j := 0; j < g.U.Old.Shape[1]; j++ {
			for k := 0; k < g.U.Old.Shape[2]; k++ {
				g.U.Old.Set(u, i, j, k)
			}
		}
		g.U0.Old.Set(u, i, 0, 0)
		g.DenAve.Old.Set(d, i, 0, 0)
		g.DenAve.New.Set(d, i, 0, 0)
	}

	// Shell masses from the initial density; fixed for the whole run.
	mEnc := im.CentralMass
	g.M.Old.Set(mEnc, g.IRMin-1, 0, 0)
	g.M.New.Set(mEnc, g.IRMin-1, 0, 0)
	for i := g.IRMin; i <= g.IRMax; i++ {
		var dm float64
		for j := g.JMin; j <= g.JMax; j++ {
			for k := g.KMin; k <= g.KMax; k++ {
				dm += g.D.Old.Get(i, j, k) * g.cellVolume(g.R.Old, i, j, k)
			}
		}
		g.DM.Old.Set(dm, i, 0, 0)
		g.DM.New.Set(dm, i, 0, 0)
		mEnc += dm
		g.M.Old.Set(mEnc, i, 0, 0)
		g.M.New.Set(mEnc, i, 0, 0)
	}
	// Extend the shell masses into the ghosts on both sides for the
	// boundary gradient denominators.
	for i := g.IRMax + 1; i < g.NR+2*nGhost; i++ {
		g.DM.Old.Set(g.DM.Old.Get(g.IRMax, 0, 0), i, 0, 0)
		g.DM.New.Set(g.DM.New.Get(g.IRMax, 0, 0), i, 0, 0)
		g.M.Old.Set(mEnc, i, 0, 0)
		g.M.New.Set(mEnc, i, 0, 0)
	}
	for i := 0; i < g.IRMin; i++ {
		g.DM.Old.Set(g.DM.Old.Get(g.IRMin, 0, 0), i, 0, 0)
		g.DM.New.Set(g.DM.New.Get(g.IRMin, 0, 0), i, 0, 0)
		if i < g.IRMin-1 {
			g.M.Old.Set(im.CentralMass, i, 0, 0)
			g.M.New.Set(im.CentralMass, i, 0, 0)
		}
	}
	return nil
}

// solidAngle is the solid angle subtended by the angular cell (j,k).
func (g *Grid) solidAngle(j, k int) float64 {
	if g.NDim < 2 {
		return 4. * math.Pi
	}
	return g.DCosTheta[j] * g.DPhi[g.phiIndex(k)]
}

func (g *Grid) phiIndex(k int) int {
	if g.NDim < 3 {
		return 0
	}
	return k
}

// cellVolume is the geometric volume of cell (i,j,k) with interface radii
// taken from r.
func (g *Grid) cellVolume(r *sparse.DenseArray, i, j, k int) float64 {
	ro := r.Get(i, 0, 0)
	ri := r.Get(i-1, 0, 0)
	return (ro*ro*ro - ri*ri*ri) / 3. * g.solidAngle(j, k)
}

// faceAreaR is the area of the radial face at interface i (the outer face
// of cell i) for the angular cell (j,k).
func (g *Grid) faceAreaR(r *sparse.DenseArray, i, j, k int) float64 {
	ri := r.Get(i, 0, 0)
	return ri * ri * g.solidAngle(j, k)
}

// faceAreaTheta is the area of the constant-θ face at interface j+½ of
// cell (i,j,k).
func (g *Grid) faceAreaTheta(r *sparse.DenseArray, i, j, k int) float64 {
	ro := r.Get(i, 0, 0)
	ri := r.Get(i-1, 0, 0)
	return 0.5 * (ro*ro - ri*ri) * g.SinThetaI[j] * g.DPhi[g.phiIndex(k)]
}

// faceAreaPhi is the area of the constant-φ face of cell (i,j,k).
func (g *Grid) faceAreaPhi(r *sparse.DenseArray, i, j, k int) float64 {
	ro := r.Get(i, 0, 0)
	ri := r.Get(i-1, 0, 0)
	return 0.5 * (ro*ro - ri*ri) * g.DTheta[j]
}

// rCenter is the radius of the center of cell i using interface radii r.
func (g *Grid) rCenter(r *sparse.DenseArray, i int) float64 {
	return 0.5 * (r.Get(i, 0, 0) + r.Get(i-1, 0, 0))
}

// fillAngularGhosts applies the local angular boundary policies to a's
// halo: periodic wrap in φ and reflection at the θ wedge boundaries.
func (g *Grid) fillAngularGhosts(a *sparse.DenseArray) {
	if g.NDim < 2 {
		return
	}
	nrTot := a.Shape[0]
	ntTot := a.Shape[1]
	npTot := a.Shape[2]
	for i := 0; i < nrTot; i++ {
		for k := 0; k < npTot; k++ {
			for l := 1; l <= nGhost; l++ {
				a.Set(a.Get(i, g.JMin+l-1, k), i, g.JMin-l, k)
				a.Set(a.Get(i, g.JMax-l+1, k), i, g.JMax+l, k)
			}
		}
	}
	if g.NDim < 3 {
		return
	}
	for i := 0; i < nrTot; i++ {
		for j := 0; j < ntTot; j++ {
			for l := 1; l <= nGhost; l++ {
				a.Set(a.Get(i, j, g.KMax-l+1), i, j, g.KMin-l)
				a.Set(a.Get(i, j, g.KMin+l-1), i, j, g.KMax+l)
			}
		}
	}
}

// coreAbsent reports whether f is one of the roles the 1D core never
// carries, so a rank-0 inward neighbour cannot supply its halo.
func (g *Grid) coreAbsent(f *Field) bool {
	return f == g.V || f == g.W || f == g.Q1 || f == g.Q2
}

// extendInnerHalo fills the two inner halo layers by extending the
// innermost owned layer. Used for angular fields whose inward neighbour
// is the 1D core and so cannot supply them.
func (g *Grid) extendInnerHalo(f *Field) {
	a := f.New
	for j := 0; j < a.Shape[1]; j++ {
		for k := 0; k < a.Shape[2]; k++ {
			v := a.Get(g.IRMin, j, k)
			a.Set(v, g.IRMin-1, j, k)
			a.Set(v, g.IRMin-2, j, k)
		}
	}
}

// swapState promotes the new buffers to old for every variable rewritten
// during a step. DM and M are fixed Lagrangian data and never swap.
func (g *Grid) swapState() {
	for _, f := range g.Fields {
		if f == g.DM || f == g.M {
			continue
		}
		f.swap()
	}
}

// evolvedFields returns the time-evolved subset of the registry.
func (g *Grid) evolvedFields() []*Field {
	var out []*Field
	for _, f := range g.Fields {
		if f.Desc.TimeEvolved {
			out = append(out, f)
		}
	}
	return out
}

// soundSpeed is the adiabatic sound speed of cell (i,j,k) from the old
// state.
func (g *Grid) soundSpeed(i, j, k int) float64 {
	d := g.D.Old.Get(i, j, k)
	if d <= 0 {
		return 0
	}
	gam := g.GammaAd.Old.Get(i, j, k)
	if gam <= 0 {
		gam = 5. / 3.
	}
	return math.Sqrt(gam * g.P.Old.Get(i, j, k) / d)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
