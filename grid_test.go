/*
Copyright © 2025 the RDSim authors.
This file is part of RDSim.

RDSim is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

RDSim is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with RDSim.  If not, see <http://www.gnu.org/licenses/>.
*/

package rdsim

import (
	"errors"
	"testing"

	"github.com/ctessum/sparse"
	"github.com/kr/pretty"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestGrid(t *testing.T) {
	g := Grid{
		Mins: r3.Vec{X: -1, Y: 0, Z: 10},
		Maxs: r3.Vec{X: 1, Y: 3, Z: 14},
		Res:  [3]int{4, 3, 2},
	}
	if err := g.Check(); err != nil {
		t.Fatal(err)
	}
	if d := g.VoxelSize(); d != (r3.Vec{X: 0.5, Y: 1, Z: 2}) {
		t.Errorf("voxel size: %v", d)
	}
	if n := g.Len(); n != 24 {
		t.Errorf("len: have %d, want 24", n)
	}
	if v := g.MinVoxelSize(); v != 0.5 {
		t.Errorf("min voxel size: %g", v)
	}

	for _, test := range []struct {
		p       r3.Vec
		i, j, k int
		ok      bool
	}{
		{p: r3.Vec{X: -1, Y: 0, Z: 10}, i: 0, j: 0, k: 0, ok: true},
		{p: r3.Vec{X: 0.99, Y: 2.5, Z: 13.9}, i: 3, j: 2, k: 1, ok: true},
		{p: r3.Vec{X: 0, Y: 1, Z: 12}, i: 2, j: 1, k: 1, ok: true},
		{p: r3.Vec{X: 1, Y: 1, Z: 12}, ok: false}, // upper bound is open
		{p: r3.Vec{X: 0, Y: -0.1, Z: 12}, ok: false},
		{p: r3.Vec{X: 0, Y: 1, Z: 20}, ok: false},
	} {
		i, j, k, ok := g.IndexOf(test.p)
		if ok != test.ok || (ok && (i != test.i || j != test.j || k != test.k)) {
			t.Errorf("IndexOf(%v) = (%d, %d, %d, %v), want (%d, %d, %d, %v)",
				test.p, i, j, k, ok, test.i, test.j, test.k, test.ok)
		}
	}

	b := g.VoxelOf(2, 1, 1)
	want := r3.Box{Min: r3.Vec{X: 0, Y: 1, Z: 12}, Max: r3.Vec{X: 0.5, Y: 2, Z: 14}}
	if b != want {
		t.Errorf("VoxelOf: %v", pretty.Diff(b, want))
	}

	for v := 0; v < g.Len(); v++ {
		i, j, k := g.Unlinear(v)
		if g.Linear(i, j, k) != v {
			t.Errorf("linear index round trip failed for %d", v)
		}
	}
	if g.Linear(1, 0, 0) != 1 || g.Linear(0, 1, 0) != 4 || g.Linear(0, 0, 1) != 12 {
		t.Error("x should vary fastest, then y, then z")
	}
}

func TestGridCheck(t *testing.T) {
	for _, g := range []Grid{
		{Maxs: r3.Vec{X: 1, Y: 1, Z: 1}, Res: [3]int{0, 1, 1}},
		{Maxs: r3.Vec{X: 0, Y: 1, Z: 1}, Res: [3]int{1, 1, 1}},
		{Mins: r3.Vec{Y: 2}, Maxs: r3.Vec{X: 1, Y: 1, Z: 1}, Res: [3]int{1, 1, 1}},
	} {
		if err := g.Check(); !errors.Is(err, ErrPrecondition) {
			t.Errorf("%+v: have %v, want precondition error", g, err)
		}
	}
}

func TestField(t *testing.T) {
	g := unitGrid(3, 2, 2)
	reg := mustRegister(t, "A", "B")
	a := sparse.ZerosDense(2, 2, 3)
	a.Set(5, 1, 0, 2) // k=1, j=0, i=2
	f, err := Compose(&g, reg, map[string]*sparse.DenseArray{"B": a})
	if err != nil {
		t.Fatal(err)
	}
	if v := f.At(1, 2, 0, 1); v != 5 {
		t.Errorf("At: have %g, want 5", v)
	}
	if v := f.Total(0); v != 0 {
		t.Errorf("species A should be zero, total %g", v)
	}
	if v := f.Total(1); v != 5 {
		t.Errorf("total: have %g, want 5", v)
	}
	col := make([]float64, 2)
	f.Column(g.Linear(2, 0, 1), col)
	if col[0] != 0 || col[1] != 5 {
		t.Errorf("column: %v", col)
	}
	s := f.Slice(1)
	if diff := pretty.Diff(s.Elements, a.Elements); len(diff) != 0 {
		t.Errorf("slice: %v", diff)
	}
	c := f.Clone()
	c.Set(1, 0, 0, 0, 0)
	if f.At(0, 0, 0, 0) != 0 {
		t.Error("clone shares storage")
	}

	if _, err = Compose(&g, reg, map[string]*sparse.DenseArray{"C": a}); !errors.Is(err, ErrUnknownSpecies) {
		t.Errorf("have %v, want unknown species", err)
	}
	if _, err = Compose(&g, reg, map[string]*sparse.DenseArray{"A": sparse.ZerosDense(2, 2, 2)}); !errors.Is(err, ErrPrecondition) {
		t.Errorf("have %v, want precondition", err)
	}
}

func TestSpeciesRegister(t *testing.T) {
	r, err := NewRegisterBuilder().Add("O3", "NO", "O3").Add("NO2").Build()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"O3", "NO", "NO2"}
	if diff := pretty.Diff(r.Names(), want); len(diff) != 0 {
		t.Error(diff)
	}
	for i, n := range want {
		j, err := r.Index(n)
		if err != nil || j != i || r.Name(i) != n {
			t.Errorf("%s: index %d, %v", n, j, err)
		}
	}
	if _, err = r.Index("CO"); !errors.Is(err, ErrUnknownSpecies) {
		t.Errorf("have %v, want unknown species", err)
	}
	if _, err = NewRegisterBuilder().Add("").Build(); err == nil {
		t.Error("empty name should be an error")
	}
	if _, err = NewRegisterBuilder().Build(); err == nil {
		t.Error("empty register should be an error")
	}
}
