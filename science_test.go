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

	"gonum.org/v1/gonum/spatial/r3"
)

func TestBoundary(t *testing.T) {
	for _, b := range []Boundary{ZeroFlux, Mirror, Dirichlet} {
		p, err := ParseBoundary(b.String())
		if err != nil || p != b {
			t.Errorf("%v: parsed as %v, %v", b, p, err)
		}
	}
	if b, err := ParseBoundary("Mirror"); err != nil || b != Mirror {
		t.Errorf("parsing should ignore case: %v, %v", b, err)
	}
	if _, err := ParseBoundary("periodic"); !errors.Is(err, ErrPrecondition) {
		t.Errorf("have %v, want precondition error", err)
	}
	if s := Boundary(9).String(); s != "Boundary(9)" {
		t.Error(s)
	}
}

// lineField returns a single-species field on a 3×1×1 grid with voxels
// 2 m long in x.
func lineField() (*Grid, *Field) {
	g := &Grid{Maxs: r3.Vec{X: 6, Y: 1, Z: 1}, Res: [3]int{3, 1, 1}}
	f := NewField(1, g)
	copy(f.Elements, []float64{1, 4, 9})
	return g, f
}

func TestStencil(t *testing.T) {
	g, f := lineField()
	d := NewUniformField(g, 0.5)
	for _, test := range []struct {
		b    Boundary
		want []float64
	}{
		{ZeroFlux, []float64{0.375, 0.25, -0.625}},
		{Mirror, []float64{0, 0.25, 0}},
		// y and z each contribute -2c.
		{Dirichlet, []float64{0.25 - 2, 0.25 - 8, (4-18)*0.125 - 18}},
	} {
		t.Run(test.b.String(), func(t *testing.T) {
			st := NewStencil(g, test.b)
			for i, want := range test.want {
				if have := st.Rate(f, d, nil, 0, i, 0, 0); absDifferent(have, want, 1e-14) {
					t.Errorf("voxel %d: have %g, want %g", i, have, want)
				}
			}
		})
	}

	q := NewField(1, g)
	q.Set(3, 0, 1, 0, 0)
	st := NewStencil(g, ZeroFlux)
	if have := st.Rate(f, d, q, 0, 1, 0, 0); absDifferent(have, 3.25, 1e-14) {
		t.Errorf("with source: have %g, want 3.25", have)
	}
}

// Zero-flux rates sum to zero so that mass is conserved.
func TestStencilConservation(t *testing.T) {
	g := &Grid{Maxs: r3.Vec{X: 5, Y: 8, Z: 3}, Res: [3]int{5, 4, 3}}
	f := NewField(1, g)
	for i := range f.Elements {
		f.Elements[i] = float64((i * 7919) % 13)
	}
	d := NewUniformField(g, 0.7)
	st := NewStencil(g, ZeroFlux)
	var sum float64
	for k := 0; k < 3; k++ {
		for j := 0; j < 4; j++ {
			for i := 0; i < 5; i++ {
				sum += st.Rate(f, d, nil, 0, i, j, k)
			}
		}
	}
	if absDifferent(sum, 0, 1e-12) {
		t.Errorf("rates sum to %g", sum)
	}
}

func TestDiffusionTimestep(t *testing.T) {
	g, _ := lineField() // minimum voxel size 1
	for _, test := range []struct {
		name                 string
		maxD, quality, maxDt float64
		want                 float64
		err                  error
	}{
		{name: "stable", maxD: 1, quality: 0.5, want: 0.0625},
		{name: "capped", maxD: 1, quality: 0.5, maxDt: 0.01, want: 0.01},
		{name: "cap above stable", maxD: 1, quality: 0.5, maxDt: 1, want: 0.0625},
		{name: "quality", maxD: 2, quality: 0.2, want: 0.05},
		{name: "no diffusion", maxD: 0, quality: 0.5, maxDt: 3, want: 3},
		{name: "degenerate", maxD: 0, quality: 0.5, err: ErrDegenerate},
		{name: "negative", maxD: -1, quality: 0.5, err: ErrPrecondition},
		{name: "negative cap", maxD: 1, quality: 0.5, maxDt: -1, err: ErrPrecondition},
	} {
		t.Run(test.name, func(t *testing.T) {
			dt, err := DiffusionTimestep(g, test.maxD, test.quality, test.maxDt)
			if test.err != nil {
				if !errors.Is(err, test.err) {
					t.Errorf("have %v, want %v", err, test.err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if different(dt, test.want, 1e-14) {
				t.Errorf("have %g, want %g", dt, test.want)
			}
		})
	}
}
