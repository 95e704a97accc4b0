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
	"bytes"
	"strings"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, wavyModel(20), cfg, testTimeState(1e-4))
	for s := 0; s < 3; s++ {
		if err := m.Step(); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	if err := WriteModel(&buf)(m); err != nil {
		t.Fatal(err)
	}

	m2 := newTestModel(t, wavyModel(20), cfg, testTimeState(1e-4))
	if err := RestoreModel(&buf, m2); err != nil {
		t.Fatal(err)
	}
	if m2.Time.Step != m.Time.Step || m2.Time.T != m.Time.T {
		t.Errorf("time state not restored: step %d t %g", m2.Time.Step, m2.Time.T)
	}
	for fi, f := range m.Grid.Fields {
		f2 := m2.Grid.Fields[fi]
		for i, v := range f.Old.Elements {
			if f2.Old.Elements[i] != v {
				t.Fatalf("field %s element %d not restored: %g vs %g",
					f.Name, i, f2.Old.Elements[i], v)
			}
		}
	}
}

func TestWatchZonesWritesDiagnostics(t *testing.T) {
	cfg := DefaultConfig()
	cfg.G = 0
	m := newTestModel(t, uniformModel(10), cfg, testTimeState(1e-4))
	var buf bytes.Buffer
	if err := WatchZones(&buf, []int{0, 5, 9})(m); err != nil {
		t.Fatal(err)
	}
	lines := strings.Count(buf.String(), "\n")
	if lines != 3 {
		t.Errorf("expected one line per watched zone, got %d", lines)
	}
	if !strings.Contains(buf.String(), "shell=5") {
		t.Error("watched shell index missing from the dump")
	}
}
