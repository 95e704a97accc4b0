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
	"encoding/gob"
	"fmt"
	"io"
)

// fieldSnapshot is the serialized form of one variable's old buffer.
type fieldSnapshot struct {
	Name     string
	Shape    []int
	Elements []float64
}

// ModelSnapshot is a restorable dump of one rank's evolved state.
type ModelSnapshot struct {
	Step   int
	T      float64
	Dt     float64
	Fields []fieldSnapshot
}

// WriteModel returns a manipulator that gob-encodes the current state to
// w, for continuation runs or offline inspection.
func WriteModel(w io.Writer) DomainManipulator {
	return func(m *SPHERLS) error {
		snap := ModelSnapshot{
			Step: m.Time.Step,
			T:    m.Time.T,
			Dt:   m.Time.DtNPHalf,
		}
		for _, f := range m.Grid.Fields {
			snap.Fields = append(snap.Fields, fieldSnapshot{
				Name:     f.Name,
				Shape:    f.Old.Shape,
				Elements: f.Old.Elements,
			})
		}
		return gob.NewEncoder(w).Encode(&snap)
	}
}

// RestoreModel loads a snapshot written by WriteModel into the old
// buffers.
func RestoreModel(rd io.Reader, m *SPHERLS) error {
	var snap ModelSnapshot
	if err := gob.NewDecoder(rd).Decode(&snap); err != nil {
		return err
	}
	byName := make(map[string]*Field, len(m.Grid.Fields))
	for _, f := range m.Grid.Fields {
		byName[f.Name] = f
	}
	for _, fs := range snap.Fields {
		f, ok := byName[fs.Name]
		if !ok {
			continue
		}
		if len(fs.Elements) != len(f.Old.Elements) {
			return fmt.Errorf("snapshot field %s has %d elements, grid expects %d",
				fs.Name, len(fs.Elements), len(f.Old.Elements))
		}
		copy(f.Old.Elements, fs.Elements)
	}
	m.Time.Step = snap.Step
	m.Time.T = snap.T
	m.Time.DtNPHalf = snap.Dt
	return nil
}

// WatchZones returns a manipulator that appends one diagnostic line per
// watched radial shell to w each step.
func WatchZones(w io.Writer, shells []int) DomainManipulator {
	return func(m *SPHERLS) error {
		g := m.Grid
		for _, s := range shells {
			i := clampInt(g.IRMin+s, g.IRMin, g.IRMax)
			j, k := g.JMin, g.KMin
			fmt.Fprintf(w, "%6d %14.7e shell=%-4d R=%13.6e D=%13.6e E=%13.6e T=%13.6e U=%13.6e U0=%13.6e Q0=%13.6e\n",
				m.Time.Step, m.Time.T, s,
				g.R.Old.Get(i, 0, 0), g.D.Old.Get(i, j, k), g.E.Old.Get(i, j, k),
				g.T.Old.Get(i, j, k), g.U.Old.Get(i, j, k), g.U0.Old.Get(i, 0, 0),
				g.Q0.Old.Get(i, j, k))
		}
		return nil
	}
}
