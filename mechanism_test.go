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
	"math"
	"testing"

	"github.com/kr/pretty"
	"gonum.org/v1/gonum/mat"
)

func TestRateLaw(t *testing.T) {
	c := []float64{2, 3, -1}
	for _, test := range []struct {
		name string
		r    RateLaw
		want float64
	}{
		{"zero order", RateLaw{K: 0.5, Orders: []Order{{0, 0}}}, 0.5},
		{"first order", RateLaw{K: 0.5, Orders: []Order{{1, 1}}}, 1.5},
		{"second order", RateLaw{K: 0.5, Orders: []Order{{0, 2}}}, 2},
		{"mixed", RateLaw{K: 2, Orders: []Order{{0, 1}, {1, 2}}}, 36},
		{"fractional", RateLaw{K: 1, Orders: []Order{{0, 0.5}}}, math.Sqrt2},
		{"fractional negative", RateLaw{K: 1, Orders: []Order{{2, 1.5}}}, 0},
		{"first order negative", RateLaw{K: 1, Orders: []Order{{2, 1}}}, 0},
		{"near first order negative", RateLaw{K: 1, Orders: []Order{{2, 1 + 1e-9}}}, 0},
		{"second order negative", RateLaw{K: 1, Orders: []Order{{2, 2}}}, 0},
		{"near second order negative", RateLaw{K: 1, Orders: []Order{{2, 2 + 1e-9}}}, 0},
	} {
		t.Run(test.name, func(t *testing.T) {
			if v := test.r.Rate(c); different(v, test.want, 1e-14) && v != test.want {
				t.Errorf("have %g, want %g", v, test.want)
			}
		})
	}

	for _, r := range []RateLaw{
		{K: 0, Orders: []Order{{0, 1}}},
		{K: math.Inf(1), Orders: []Order{{0, 1}}},
		{K: 1},
		{K: 1, Orders: []Order{{3, 1}}},
	} {
		if err := r.Check(3); !errors.Is(err, ErrPrecondition) {
			t.Errorf("%+v: have %v, want precondition error", r, err)
		}
	}
}

func TestLink(t *testing.T) {
	reg := mustRegister(t, "O3", "NO", "NO2")
	descs := []ReactionDesc{{
		Name:      "titration",
		Rate:      RateDesc{K: 0.1, Orders: []OrderDesc{{"O3", 1}, {"NO", 1}}},
		Reactants: []StoichDesc{{"O3", 1}, {"NO", 1}},
		Products:  []StoichDesc{{"NO2", 1}},
	}, {
		Name:      "photolysis",
		Rate:      RateDesc{K: 0.5, Orders: []OrderDesc{{"NO2", 1}}},
		Reactants: []StoichDesc{{"NO2", 1}},
		Products:  []StoichDesc{{"NO", 1}, {"O3", 1}},
	}}
	r, err := Link(descs, reg)
	if err != nil {
		t.Fatal(err)
	}
	want := mat.NewDense(2, 3, []float64{
		-1, -1, 1,
		1, 1, -1,
	})
	if !mat.Equal(r.Stoich, want) {
		t.Errorf("stoichiometry:\n%v", mat.Formatted(r.Stoich))
	}
	if r.IsIdentity() {
		t.Error("reactor should not be the identity")
	}

	out := make([]float64, 3)
	r.Deltas([]float64{1, 2, 4}, out)
	// titration 0.2, photolysis 2
	wantOut := []float64{1.8, 1.8, -1.8}
	for i := range out {
		if absDifferent(out[i], wantOut[i], 1e-14) {
			t.Errorf("deltas: %v", pretty.Diff(out, wantOut))
			break
		}
	}

	if _, err = Link([]ReactionDesc{{Rate: RateDesc{K: 1, Orders: []OrderDesc{{"CO", 1}}}}}, reg); !errors.Is(err, ErrUnknownSpecies) {
		t.Errorf("have %v, want unknown species", err)
	}
	if _, err = Link([]ReactionDesc{{Rate: RateDesc{K: -1, Orders: []OrderDesc{{"O3", 1}}}}}, reg); !errors.Is(err, ErrPrecondition) {
		t.Errorf("have %v, want precondition", err)
	}

	names := ReferencedSpecies(descs)
	if diff := pretty.Diff(names, []string{"O3", "NO", "NO2"}); len(diff) != 0 {
		t.Error(diff)
	}
}

func TestEmptyReactor(t *testing.T) {
	r, err := Link(nil, mustRegister(t, "A", "B"))
	if err != nil {
		t.Fatal(err)
	}
	if !r.IsIdentity() || r.NumSpecies() != 2 {
		t.Errorf("reactor: %+v", r)
	}
	out := []float64{5, 5}
	r.Deltas([]float64{1, 1}, out)
	if out[0] != 0 || out[1] != 0 {
		t.Errorf("deltas: %v", out)
	}
}

func TestNewReactorShape(t *testing.T) {
	rates := []RateLaw{{K: 1, Orders: []Order{{0, 1}}}}
	if _, err := NewReactor(2, rates, mat.NewDense(1, 3, nil)); !errors.Is(err, ErrPrecondition) {
		t.Errorf("have %v, want precondition", err)
	}
	if _, err := NewReactor(2, rates, nil); !errors.Is(err, ErrPrecondition) {
		t.Errorf("have %v, want precondition", err)
	}
}

func TestDeltasPanic(t *testing.T) {
	r, err := Link(nil, mustRegister(t, "A", "B"))
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected a panic")
		}
	}()
	r.Deltas([]float64{1}, make([]float64, 2))
}
