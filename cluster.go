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

import "github.com/cpmech/gosl/mpi"

// ClusterMessenger runs the exchange contract over MPI. Point-to-point
// legs are phrased as summed gathers so the whole contract rides on the
// collective primitives; the fixed pattern keeps sender/receiver pairs
// matched and deadlock-free.
type ClusterMessenger struct {
	rank, size int
}

// NewClusterMessenger wires this process into the MPI world. Call
// mpi.Start before and mpi.Stop after the run.
func NewClusterMessenger() *ClusterMessenger {
	c := &ClusterMessenger{rank: 0, size: 1}
	if mpi.IsOn() {
		c.rank = mpi.Rank()
		c.size = mpi.Size()
	}
	return c
}

func (c *ClusterMessenger) Rank() int { return c.rank }
func (c *ClusterMessenger) Size() int { return c.size }

// gather sums per-rank segments so each rank sees every contribution.
func (c *ClusterMessenger) gather(local []float64, seg int) []float64 {
	buf := make([]float64, c.size*seg)
	copy(buf[c.rank*seg:], local)
	w := make([]float64, len(buf))
	mpi.AllReduceSum(buf, w)
	return buf
}

// layerMax agrees on the largest halo-layer length among ranks for the
// field being exchanged; neighbouring slabs may differ in angular extent
// where the 1D core abuts a 2D/3D wedge. Ranks exchange fields in
// lockstep, so the collective stays matched.
func (c *ClusterMessenger) layerMax(n int) int {
	sz := []int{n}
	w := []int{0}
	mpi.IntAllReduceMax(sz, w)
	return sz[0]
}

// ExchangeNew implements Messenger over a single gather per field: each
// rank publishes its four boundary layers and reads back its neighbours'.
// A rank whose dimensionality lacks the role (f == nil) still joins the
// collectives with an empty contribution so the schedule stays matched
// fleet-wide; roles the 1D core never carries are not read from a rank-0
// inward neighbour — that halo extends locally instead.
func (c *ClusterMessenger) ExchangeNew(g *Grid, f *Field) error {
	if c.size == 1 {
		return nil
	}
	n := 0
	if f != nil {
		n = f.New.Shape[1] * f.New.Shape[2]
	}
	ml := c.layerMax(n)
	if ml == 0 {
		return nil // no rank carries the field
	}
	seg := 4*ml + 1
	local := make([]float64, seg)
	if f != nil {
		local[0] = float64(n)
		copy(local[1:], layerValues(f.New, g.IRMin))
		copy(local[1+ml:], layerValues(f.New, g.IRMin+1))
		copy(local[1+2*ml:], layerValues(f.New, g.IRMax-1))
		copy(local[1+3*ml:], layerValues(f.New, g.IRMax))
	}
	all := c.gather(local, seg)
	if f == nil {
		return nil
	}

	if c.rank > 0 {
		if g.coreAbsent(f) && c.rank-1 == 0 {
			g.extendInnerHalo(f)
		} else {
			nb := all[(c.rank-1)*seg:]
			nn := int(nb[0])
			setLayerValues(f.New, g.IRMin-2, nb[1+2*ml:1+2*ml+nn])
			setLayerValues(f.New, g.IRMin-1, nb[1+3*ml:1+3*ml+nn])
		}
	}
	if c.rank < c.size-1 {
		nb := all[(c.rank+1)*seg:]
		nn := int(nb[0])
		setLayerValues(f.New, g.IRMax+1, nb[1:1+nn])
		setLayerValues(f.New, g.IRMax+2, nb[1+ml:1+ml+nn])
	}
	return nil
}

// Sweep legs. Hop h carries rank h's outer-boundary values to rank h+1;
// a rank joins every hop exactly once across its receive/send pair, so
// the collectives stay matched while the data dependency remains
// sequential.

func (c *ClusterMessenger) RecvInner(n int) ([]float64, error) {
	var got []float64
	for h := 0; h < c.rank; h++ {
		buf := make([]float64, n)
		w := make([]float64, n)
		mpi.AllReduceSum(buf, w)
		if h == c.rank-1 {
			got = buf
		}
	}
	return got, nil
}

func (c *ClusterMessenger) SendOuter(vals []float64) error {
	for h := c.rank; h < c.size-1; h++ {
		buf := make([]float64, len(vals))
		if h == c.rank {
			copy(buf, vals)
		}
		w := make([]float64, len(vals))
		mpi.AllReduceSum(buf, w)
	}
	return nil
}

// RecvOuter and SendInner form the reverse ring with the same pairing
// rule, hop h carrying rank h+1's inner-boundary values to rank h.

func (c *ClusterMessenger) RecvOuter(n int) ([]float64, error) {
	var got []float64
	for h := c.size - 2; h >= c.rank; h-- {
		buf := make([]float64, n)
		w := make([]float64, n)
		mpi.AllReduceSum(buf, w)
		if h == c.rank {
			got = buf
		}
	}
	return got, nil
}

func (c *ClusterMessenger) SendInner(vals []float64) error {
	for h := c.rank - 1; h >= 0; h-- {
		buf := make([]float64, len(vals))
		if h == c.rank-1 {
			copy(buf, vals)
		}
		w := make([]float64, len(vals))
		mpi.AllReduceSum(buf, w)
	}
	return nil
}

func (c *ClusterMessenger) AllReduceMax(v float64) (float64, error) {
	all := c.gather([]float64{v}, 1)
	out := all[0]
	for _, x := range all[1:] {
		if x > out {
			out = x
		}
	}
	return out, nil
}

func (c *ClusterMessenger) AllReduceMin(v float64) (float64, error) {
	all := c.gather([]float64{v}, 1)
	out := all[0]
	for _, x := range all[1:] {
		if x < out {
			out = x
		}
	}
	return out, nil
}
