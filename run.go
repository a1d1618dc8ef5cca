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
	"runtime"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

// A BlockWorker processes the voxels in [start, end). Each worker
// belongs to a single goroutine and may keep scratch space between
// blocks.
type BlockWorker interface {
	Block(start, end int)
}

// Pool runs block workers concurrently.
type Pool struct {
	// Workers is the number of goroutines used per kernel invocation.
	Workers int
}

// NewPool returns a pool with one worker per logical CPU, or
// numThreads workers if 0 < numThreads < runtime.GOMAXPROCS(0).
func NewPool(numThreads int) *Pool {
	nprocs := runtime.GOMAXPROCS(0) // number of processors
	if numThreads > 0 && numThreads < nprocs {
		nprocs = numThreads
	}
	return &Pool{Workers: nprocs}
}

// Calculations partitions [0, total) into blocks of at most block
// voxels and processes them concurrently. Each goroutine creates its
// own worker with newWorker and then claims blocks from a shared
// BlockTicket until none remain. Calculations returns after every
// goroutine has finished; the workers are returned for inspection.
func (p *Pool) Calculations(total, block int, newWorker func() BlockWorker) []BlockWorker {
	n := p.Workers
	if n < 1 {
		n = 1
	}
	if nblocks := (total + block - 1) / block; nblocks < n {
		n = nblocks
	}
	workers := make([]BlockWorker, n)
	ticket := NewBlockTicket(total, block)
	var g errgroup.Group
	for pp := 0; pp < n; pp++ {
		pp := pp
		g.Go(func() error {
			w := newWorker()
			workers[pp] = w
			for {
				start, end, ok := ticket.Next()
				if !ok {
					return nil
				}
				w.Block(start, end)
			}
		})
	}
	g.Wait() // workers do not return errors.
	return workers
}

// diffusionWorker computes diffusion rates for a block into a staging
// buffer and then copies them into the shared rates field.
type diffusionWorker struct {
	st              *Stencil
	cur, d, q, rate *Field
	stage           []float64 // species-major, len S*block
	block           int
}

func (w *diffusionWorker) Block(start, end int) {
	g := w.st.Grid
	ns, nvox := w.cur.NumSpecies(), w.cur.NumVoxels()
	n := end - start
	for s := 0; s < ns; s++ {
		stage := w.stage[s*w.block : s*w.block+n]
		for v := start; v < end; v++ {
			i, j, k := g.Unlinear(v)
			stage[v-start] = w.st.Rate(w.cur, w.d, w.q, s, i, j, k)
		}
	}
	for s := 0; s < ns; s++ {
		copy(w.rate.Elements[s*nvox+start:s*nvox+end], w.stage[s*w.block:s*w.block+n])
	}
}

// eulerWorker applies next = max(cur + rate·Δt, 0).
type eulerWorker struct {
	cur, next, rate *Field
	Δt              float64
}

func (w *eulerWorker) Block(start, end int) {
	ns, nvox := w.cur.NumSpecies(), w.cur.NumVoxels()
	for s := 0; s < ns; s++ {
		o := s * nvox
		c := w.cur.Elements[o+start : o+end]
		r := w.rate.Elements[o+start : o+end]
		nx := w.next.Elements[o+start : o+end]
		for i := range c {
			v := c[i] + r[i]*w.Δt
			if v < 0 {
				v = 0
			}
			nx[i] = v
		}
	}
}

// reactionWorker integrates the reactor ODE in every voxel of a block.
type reactionWorker struct {
	rk        *RK4
	cur, next *Field
	mult      *Field // may be nil
	src       *Field // may be nil
	t         float64
	buf       []float64 // voxel-major, len S*block
	srcBuf    []float64
	steps     int
}

func (w *reactionWorker) Block(start, end int) {
	ns, nvox := w.cur.NumSpecies(), w.cur.NumVoxels()
	cur, next := w.cur.Elements, w.next.Elements
	for v := start; v < end; v++ {
		col := w.buf[(v-start)*ns : (v-start+1)*ns]
		for s := range col {
			col[s] = cur[s*nvox+v] + epsilon
		}
	}
	for v := start; v < end; v++ {
		T := w.t
		if w.mult != nil {
			T *= w.mult.Elements[v]
		}
		if !(T > 0) {
			for s := 0; s < ns; s++ {
				next[s*nvox+v] = cur[s*nvox+v]
			}
			continue
		}
		col := w.buf[(v-start)*ns : (v-start+1)*ns]
		var src []float64
		if w.src != nil {
			w.src.Column(v, w.srcBuf)
			src = w.srcBuf
		}
		w.steps += w.rk.Integrate(col, T, src)
		for s, c := range col {
			c -= epsilon
			if c < 0 {
				c = 0
			}
			next[s*nvox+v] = c
		}
	}
}

// SimulationStatus holds information about the progress of a simulation.
type SimulationStatus struct {
	Dump, Dumps  int
	Time         float64       // simulated time [s]
	Steps        int           // micro-steps in the last macro-step
	Timestep     float64       // micro-step size [s]
	RK4Steps     int           // RK4 sub-steps in the last macro-step
	Walltime     time.Duration // since the simulation started
	StepWalltime time.Duration // spent on the last macro-step
	Species      []string
	Totals       []float64 // total of each species over the domain
}

func (s *SimulationStatus) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Dump %d/%d  time=%.4gs  walltime=%6.3gh  Δwalltime=%4.2gs  "+
		"steps=%d  timestep=%.3gs  rk4 steps=%d",
		s.Dump, s.Dumps, s.Time, s.Walltime.Hours(), s.StepWalltime.Seconds(),
		s.Steps, s.Timestep, s.RK4Steps)
	for i, n := range s.Species {
		fmt.Fprintf(&b, "  %s=%.6g", n, s.Totals[i])
	}
	return b.String()
}

// Log sends status information about the simulation to c after each
// macro-step. Nothing is sent if c is nil.
func Log(c chan *SimulationStatus, dumps int) DomainManipulator {
	startTime := time.Now()
	stepTime := time.Now()

	return func(d *Simulation) error {
		if c == nil {
			return nil
		}
		st := &SimulationStatus{
			Dump:         d.Dump,
			Dumps:        dumps,
			Time:         d.Time,
			Steps:        d.LastStep.Steps,
			Timestep:     d.LastStep.Timestep,
			RK4Steps:     d.LastStep.RK4Steps,
			Walltime:     time.Since(startTime),
			StepWalltime: time.Since(stepTime),
			Species:      d.Species.Names(),
			Totals:       make([]float64, d.Species.Len()),
		}
		for i := range st.Totals {
			st.Totals[i] = d.Conc.Total(i)
		}
		stepTime = time.Now()
		c <- st
		return nil
	}
}

// DumpCheck sets the Done flag once numDumps macro-steps have been
// completed.
func DumpCheck(numDumps int) DomainManipulator {
	return func(d *Simulation) error {
		if d.Dump >= numDumps {
			d.Done = true
		}
		return nil
	}
}
