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
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Integrator advances a concentration field with Strang splitting:
// each micro-step is a reaction half-step, a diffusion step and a
// second reaction half-step.
//
// Reactor, Grid and the coefficient, source and multiplier fields are
// read-only while Advance runs.
type Integrator struct {
	Grid    *Grid
	Reactor *Reactor

	// Coef holds the diffusion coefficients [m²/s].
	Coef *Field

	// Source is added to the diffusion rate. It may be nil.
	Source *Field

	// ReactionSource is added inside the reaction integration.
	// It may be nil.
	ReactionSource *Field

	// Multiplier scales the reaction time in each voxel. It has a
	// single species and may be nil, which is equivalent to all ones.
	Multiplier *Field

	Quality     float64 // in (0, 1)
	MinTime     float64 // smallest RK4 step [s]
	MaxTimestep float64 // upper limit on the micro-step, ignored if 0 [s]
	BlockSize   int
	Boundary    Boundary
	Pool        *Pool

	stencil *Stencil
	rates   *Field
}

// StepInfo describes the work done by one call to Advance.
type StepInfo struct {
	Steps    int     // number of micro-steps
	Timestep float64 // micro-step size [s]
	RK4Steps int     // total RK4 sub-steps over all voxels
}

// Check returns an error if the integrator settings or the field cur
// are invalid.
func (in *Integrator) Check(cur *Field) error {
	if in.Grid == nil {
		return precondition("integrator", "grid", "nil")
	}
	if err := in.Grid.Check(); err != nil {
		return err
	}
	if in.Reactor == nil {
		return precondition("integrator", "reactor", "nil")
	}
	if !(in.Quality > 0 && in.Quality < 1) {
		return precondition("integrator", "quality", in.Quality)
	}
	if !(in.MinTime > 0) || math.IsInf(in.MinTime, 0) {
		return precondition("integrator", "min time", in.MinTime)
	}
	if !(in.MaxTimestep >= 0) || math.IsInf(in.MaxTimestep, 0) {
		return precondition("integrator", "max timestep", in.MaxTimestep)
	}
	if in.BlockSize < 1 {
		return precondition("integrator", "block size", in.BlockSize)
	}
	if in.Boundary < ZeroFlux || in.Boundary > Dirichlet {
		return precondition("integrator", "boundary", in.Boundary)
	}
	if in.Coef == nil {
		return precondition("integrator", "diffusion coefficients", "nil")
	}
	want := []int{in.Reactor.NumSpecies(), in.Grid.Res[2], in.Grid.Res[1], in.Grid.Res[0]}
	for _, f := range []struct {
		name string
		f    *Field
	}{{"concentrations", cur}, {"diffusion coefficients", in.Coef},
		{"sources", in.Source}, {"reaction sources", in.ReactionSource}} {
		if f.f == nil {
			if f.name == "concentrations" {
				return precondition("integrator", f.name, "nil")
			}
			continue
		}
		if !shapeIs(f.f, want) {
			return precondition("integrator", f.name+" shape", fmt.Sprintf("%v, want %v", f.f.Shape, want))
		}
	}
	if in.Multiplier != nil && !shapeIs(in.Multiplier, []int{1, want[1], want[2], want[3]}) {
		return precondition("integrator", "multiplier shape",
			fmt.Sprintf("%v, want %v", in.Multiplier.Shape, []int{1, want[1], want[2], want[3]}))
	}
	if err := cur.check("integrator", "concentration", true); err != nil {
		return err
	}
	if err := in.Coef.check("integrator", "diffusion coefficient", true); err != nil {
		return err
	}
	if in.Source != nil {
		if err := in.Source.check("integrator", "source", false); err != nil {
			return err
		}
	}
	if in.ReactionSource != nil {
		if err := in.ReactionSource.check("integrator", "reaction source", false); err != nil {
			return err
		}
	}
	if in.Multiplier != nil {
		if err := in.Multiplier.check("integrator", "multiplier", true); err != nil {
			return err
		}
	}
	return nil
}

func shapeIs(f *Field, shape []int) bool {
	if len(f.Shape) != len(shape) {
		return false
	}
	for i, n := range shape {
		if f.Shape[i] != n {
			return false
		}
	}
	return true
}

// Timestep returns the target diffusion micro-step.
func (in *Integrator) Timestep() (float64, error) {
	return DiffusionTimestep(in.Grid, floats.Max(in.Coef.Elements), in.Quality, in.MaxTimestep)
}

// Advance integrates cur forward by τ, using next as scratch. The two
// fields swap roles after every kernel, so the result is returned
// together with the field that is now free. cur and next must be
// distinct.
func (in *Integrator) Advance(cur, next *Field, τ float64) (*Field, *Field, StepInfo, error) {
	var info StepInfo
	if !(τ > 0) || math.IsInf(τ, 0) {
		return cur, next, info, precondition("integrator", "macro-step", τ)
	}
	if err := in.Check(cur); err != nil {
		return cur, next, info, err
	}
	if next == nil || next == cur || !next.SameShape(cur) {
		return cur, next, info, precondition("integrator", "scratch field", "nil, aliased or wrong shape")
	}
	dt, err := in.Timestep()
	if err != nil {
		return cur, next, info, err
	}
	n := int(math.Ceil(τ / dt))
	if n < 1 {
		n = 1
	}
	dtp := τ / float64(n)
	info.Steps = n
	info.Timestep = dtp

	if in.Pool == nil {
		in.Pool = NewPool(0)
	}
	if in.stencil == nil || in.stencil.Grid != in.Grid || in.stencil.Boundary != in.Boundary {
		in.stencil = NewStencil(in.Grid, in.Boundary)
	}
	if in.rates == nil || !in.rates.SameShape(cur) {
		in.rates = NewField(cur.NumSpecies(), in.Grid)
	}

	for i := 0; i < n; i++ {
		info.RK4Steps += in.react(cur, next, dtp/2)
		cur, next = next, cur
		in.diffuse(cur, next, dtp)
		cur, next = next, cur
		info.RK4Steps += in.react(cur, next, dtp/2)
		cur, next = next, cur
	}
	return cur, next, info, nil
}

// react writes the result of integrating the reactor for time t in
// every voxel of cur into next and returns the number of RK4 steps.
func (in *Integrator) react(cur, next *Field, t float64) int {
	if in.Reactor.IsIdentity() && in.ReactionSource == nil {
		copy(next.Elements, cur.Elements)
		return 0
	}
	ns := cur.NumSpecies()
	workers := in.Pool.Calculations(cur.NumVoxels(), in.BlockSize, func() BlockWorker {
		return &reactionWorker{
			rk:     NewRK4(in.Reactor, in.Quality, in.MinTime),
			cur:    cur,
			next:   next,
			mult:   in.Multiplier,
			src:    in.ReactionSource,
			t:      t,
			buf:    make([]float64, ns*in.BlockSize),
			srcBuf: make([]float64, ns),
		}
	})
	steps := 0
	for _, w := range workers {
		steps += w.(*reactionWorker).steps
	}
	return steps
}

// diffuse computes diffusion rates from cur and writes
// max(cur + rates·Δt, 0) into next.
func (in *Integrator) diffuse(cur, next *Field, Δt float64) {
	ns := cur.NumSpecies()
	in.Pool.Calculations(cur.NumVoxels(), in.BlockSize, func() BlockWorker {
		return &diffusionWorker{
			st:    in.stencil,
			cur:   cur,
			d:     in.Coef,
			q:     in.Source,
			rate:  in.rates,
			stage: make([]float64, ns*in.BlockSize),
			block: in.BlockSize,
		}
	})
	in.Pool.Calculations(cur.NumVoxels(), in.BlockSize, func() BlockWorker {
		return &eulerWorker{cur: cur, next: next, rate: in.rates, Δt: Δt}
	})
}
