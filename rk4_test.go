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
	"math"
	"testing"
)

func decayReactor(t testing.TB, k float64) *Reactor {
	r, err := Link([]ReactionDesc{decay("A", k)}, mustRegister(t, "A"))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRK4Decay(t *testing.T) {
	rk := NewRK4(decayReactor(t, 2), 0.1, 1e-9)
	c := []float64{3}
	steps := rk.Integrate(c, 1.5, nil)
	want := 3 * math.Exp(-3)
	if different(c[0], want, 1e-5) {
		t.Errorf("have %g, want %g", c[0], want)
	}
	// Each step is a tenth of the e-folding time.
	if steps < 25 || steps > 35 {
		t.Errorf("took %d steps", steps)
	}
}

func TestRK4LastStep(t *testing.T) {
	// The proposed step is far longer than the interval.
	rk := NewRK4(decayReactor(t, 1e-3), 0.5, 1e-9)
	c := []float64{1}
	if steps := rk.Integrate(c, 0.25, nil); steps != 1 {
		t.Errorf("took %d steps, want 1", steps)
	}
	// MinTime exceeds the interval, which is used instead.
	rk = NewRK4(decayReactor(t, 1), 0.5, 10)
	c = []float64{1}
	if steps := rk.Integrate(c, 0.01, nil); steps != 1 {
		t.Errorf("took %d steps, want 1", steps)
	}
	if different(c[0], math.Exp(-0.01), 1e-10) {
		t.Errorf("have %g, want %g", c[0], math.Exp(-0.01))
	}
}

func TestRK4Source(t *testing.T) {
	r, err := Link(nil, mustRegister(t, "A"))
	if err != nil {
		t.Fatal(err)
	}
	rk := NewRK4(r, 0.5, 1e-9)
	c := []float64{1}
	rk.Integrate(c, 2, []float64{0.25})
	if absDifferent(c[0], 1.5, 1e-14) {
		t.Errorf("have %g, want 1.5", c[0])
	}
	c = []float64{1}
	rk.Integrate(c, 2, []float64{-1})
	if c[0] != 0 {
		t.Errorf("sink should clamp at zero, have %g", c[0])
	}
}

func TestRK4MinTime(t *testing.T) {
	// A zero-order sink much faster than MinTime allows.
	r, err := Link([]ReactionDesc{{
		Rate:      RateDesc{K: 1e3, Orders: []OrderDesc{{"A", 0}}},
		Reactants: []StoichDesc{{"A", 1}},
	}}, mustRegister(t, "A"))
	if err != nil {
		t.Fatal(err)
	}
	rk := NewRK4(r, 0.5, 0.1)
	c := []float64{1}
	steps := rk.Integrate(c, 1, nil)
	if steps > 11 {
		t.Errorf("took %d steps, want at most 11", steps)
	}
	if c[0] != 0 {
		t.Errorf("have %g, want 0", c[0])
	}
}

func TestRK4Stall(t *testing.T) {
	// The sink empties A at t = 0.5, after which the proposed step is
	// zero and MinTime is below the float spacing near t.
	r, err := Link([]ReactionDesc{{
		Rate:      RateDesc{K: 1, Orders: []OrderDesc{{"A", 0}}},
		Reactants: []StoichDesc{{"A", 1}},
	}}, mustRegister(t, "A"))
	if err != nil {
		t.Fatal(err)
	}
	rk := NewRK4(r, 0.5, 1e-17)
	c := []float64{0.5}
	steps := rk.Integrate(c, 1, nil)
	if steps > 200 {
		t.Errorf("took %d steps", steps)
	}
	if c[0] != 0 {
		t.Errorf("have %g, want 0", c[0])
	}
}

func TestRK4Convergence(t *testing.T) {
	// A tiny quality makes MinTime the step size.
	const T = 2
	want := math.Exp(-T)
	var errs []float64
	for _, h := range []float64{0.2, 0.1, 0.05} {
		rk := NewRK4(decayReactor(t, 1), 1e-9, h)
		c := []float64{1}
		rk.Integrate(c, T, nil)
		errs = append(errs, math.Abs(c[0]-want))
	}
	for i := 1; i < len(errs); i++ {
		// Fourth order: halving the step divides the error by 16.
		if ratio := errs[i-1] / errs[i]; ratio < 14 || ratio > 19 {
			t.Errorf("error ratio %d: have %.2f, want about 16 (errors %v)", i, ratio, errs)
		}
	}
}
