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
	"sync"

	"github.com/ctessum/sparse"
)

// Messenger is the message-passing service the kernels suspend on. Ranks
// own contiguous radial slabs; rank r's inward neighbour is r−1 and its
// outward neighbour is r+1. The engine never talks to a transport
// directly.
type Messenger interface {
	Rank() int
	Size() int

	// ExchangeNew overwrites the two-layer radial halos of f.New with the
	// neighbouring ranks' owned values. Physical-boundary halos are left
	// intact.
	ExchangeNew(g *Grid, f *Field) error

	// RecvInner / SendOuter / RecvOuter / SendInner are the blocking
	// point-to-point legs of the sequential radial sweeps.
	RecvInner(n int) ([]float64, error)
	SendOuter(vals []float64) error
	RecvOuter(n int) ([]float64, error)
	SendInner(vals []float64) error

	AllReduceMax(v float64) (float64, error)
	AllReduceMin(v float64) (float64, error)
}

// ProcTop is the process topology visible to the kernels.
type ProcTop struct {
	Rank, Size                   int
	InnerNeighbor, OuterNeighbor int // -1 at a physical boundary
}

func topologyOf(m Messenger) ProcTop {
	t := ProcTop{Rank: m.Rank(), Size: m.Size(), InnerNeighbor: -1, OuterNeighbor: -1}
	if t.Rank > 0 {
		t.InnerNeighbor = t.Rank - 1
	}
	if t.Rank < t.Size-1 {
		t.OuterNeighbor = t.Rank + 1
	}
	return t
}

// layerValues flattens radial layer i of a into a slice ordered (j,k).
func layerValues(a *sparse.DenseArray, i int) []float64 {
	nt, np := a.Shape[1], a.Shape[2]
	out := make([]float64, nt*np)
	for j := 0; j < nt; j++ {
		for k := 0; k < np; k++ {
			out[j*np+k] = a.Get(i, j, k)
		}
	}
	return out
}

// setLayerValues writes vals into radial layer i of a. When the sender's
// angular extent differs (the 1D core abuts a 2D/3D slab) the values are
// angle-averaged or broadcast, which is what the ring-averaged density
// contract requires at that boundary.
func setLayerValues(a *sparse.DenseArray, i int, vals []float64) {
	nt, np := a.Shape[1], a.Shape[2]
	want := nt * np
	switch {
	case len(vals) == want:
		for j := 0; j < nt; j++ {
			for k := 0; k < np; k++ {
				a.Set(vals[j*np+k], i, j, k)
			}
		}
	case len(vals) > want:
		// Collapse: mean over the sender's angular ring.
		var sum float64
		for _, v := range vals {
			sum += v
		}
		mean := sum / float64(len(vals))
		for j := 0; j < nt; j++ {
			for k := 0; k < np; k++ {
				a.Set(mean, i, j, k)
			}
		}
	default:
		// Expand: broadcast the collapsed value over the ring.
		var sum float64
		for _, v := range vals {
			sum += v
		}
		mean := sum / float64(len(vals))
		for j := 0; j < nt; j++ {
			for k := 0; k < np; k++ {
				a.Set(mean, i, j, k)
			}
		}
	}
}

// Solo is the single-rank messenger: every exchange is a no-op and the
// reductions are identities.
type Solo struct{}

func (Solo) Rank() int                                { return 0 }
func (Solo) Size() int                                { return 1 }
func (Solo) ExchangeNew(*Grid, *Field) error          { return nil }
func (Solo) RecvInner(int) ([]float64, error)         { return nil, nil }
func (Solo) SendOuter([]float64) error                { return nil }
func (Solo) RecvOuter(int) ([]float64, error)         { return nil, nil }
func (Solo) SendInner([]float64) error                { return nil }
func (Solo) AllReduceMax(v float64) (float64, error)  { return v, nil }
func (Solo) AllReduceMin(v float64) (float64, error)  { return v, nil }

// localHub wires a set of in-process ranks together with buffered channels
// and a generation-counted reduction barrier. It exists so the full
// exchange contract can be exercised without a cluster.
type localHub struct {
	n   int
	p2p []chan []float64 // indexed dst*n + src

	mu     sync.Mutex
	cond   *sync.Cond
	gen    int
	count  int
	vals   []float64
	maxRes float64
	minRes float64
}

// LocalMessenger is one rank's endpoint of an in-process cluster.
type LocalMessenger struct {
	hub  *localHub
	rank int
}

// NewLocalCluster returns n connected in-process messengers, one per rank.
func NewLocalCluster(n int) []*LocalMessenger {
	h := &localHub{
		n:    n,
		p2p:  make([]chan []float64, n*n),
		vals: make([]float64, 0, n),
	}
	h.cond = sync.NewCond(&h.mu)
	for i := range h.p2p {
		h.p2p[i] = make(chan []float64, 8)
	}
	out := make([]*LocalMessenger, n)
	for r := 0; r < n; r++ {
		out[r] = &LocalMessenger{hub: h, rank: r}
	}
	return out
}

func (m *LocalMessenger) Rank() int { return m.rank }
func (m *LocalMessenger) Size() int { return m.hub.n }

func (m *LocalMessenger) send(dst int, vals []float64) {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	m.hub.p2p[dst*m.hub.n+m.rank] <- cp
}

func (m *LocalMessenger) recv(src int) []float64 {
	return <-m.hub.p2p[m.rank*m.hub.n+src]
}

// ExchangeNew sends this rank's outermost and innermost owned layer pairs
// to its neighbours and overwrites the interior-facing halos with what the
// neighbours computed. Send-before-receive with buffered channels keeps the
// fixed pattern deadlock-free.
//
// A nil field means this rank's dimensionality does not carry the role
// (angular variables at the 1D core); the matching rule on the other side
// is that angular fields are never exchanged across the core boundary —
// their inner halo extends locally instead — so neither side posts a
// message the other will not consume.
func (m *LocalMessenger) ExchangeNew(g *Grid, f *Field) error {
	if f == nil {
		return nil
	}
	a := f.New
	withInner := m.rank > 0 && !(g.coreAbsent(f) && m.rank-1 == 0)
	withOuter := m.rank < m.hub.n-1
	if withOuter {
		m.send(m.rank+1, append(layerValues(a, g.IRMax-1), layerValues(a, g.IRMax)...))
	}
	if withInner {
		m.send(m.rank-1, append(layerValues(a, g.IRMin), layerValues(a, g.IRMin+1)...))
	}
	if withInner {
		vals := m.recv(m.rank - 1)
		half := len(vals) / 2
		setLayerValues(a, g.IRMin-2, vals[:half])
		setLayerValues(a, g.IRMin-1, vals[half:])
	} else if m.rank > 0 {
		g.extendInnerHalo(f)
	}
	if withOuter {
		vals := m.recv(m.rank + 1)
		half := len(vals) / 2
		setLayerValues(a, g.IRMax+1, vals[:half])
		setLayerValues(a, g.IRMax+2, vals[half:])
	}
	return nil
}

func (m *LocalMessenger) RecvInner(n int) ([]float64, error) {
	if m.rank == 0 {
		return nil, nil
	}
	return m.recv(m.rank - 1), nil
}

func (m *LocalMessenger) SendOuter(vals []float64) error {
	if m.rank == m.hub.n-1 {
		return nil
	}
	m.send(m.rank+1, vals)
	return nil
}

func (m *LocalMessenger) RecvOuter(n int) ([]float64, error) {
	if m.rank == m.hub.n-1 {
		return nil, nil
	}
	return m.recv(m.rank + 1), nil
}

func (m *LocalMessenger) SendInner(vals []float64) error {
	if m.rank == 0 {
		return nil
	}
	m.send(m.rank-1, vals)
	return nil
}

// reduce is a generation-counted all-reduce over the hub.
func (m *LocalMessenger) reduce(v float64) (maxV, minV float64) {
	h := m.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	gen := h.gen
	h.vals = append(h.vals, v)
	h.count++
	if h.count == h.n {
		maxV, minV = h.vals[0], h.vals[0]
		for _, x := range h.vals[1:] {
			if x > maxV {
				maxV = x
			}
			if x < minV {
				minV = x
			}
		}
		h.maxRes, h.minRes = maxV, minV
		h.vals = h.vals[:0]
		h.count = 0
		h.gen++
		h.cond.Broadcast()
		return maxV, minV
	}
	for h.gen == gen {
		h.cond.Wait()
	}
	return h.maxRes, h.minRes
}

func (m *LocalMessenger) AllReduceMax(v float64) (float64, error) {
	maxV, _ := m.reduce(v)
	return maxV, nil
}

func (m *LocalMessenger) AllReduceMin(v float64) (float64, error) {
	_, minV := m.reduce(v)
	return minV, nil
}
