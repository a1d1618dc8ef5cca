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

import "math"

// epsilon is added to concentrations before reaction and removed
// afterwards so that the step size estimate never divides zero by zero.
// It is the smallest positive normal float64.
const epsilon = 0x1p-1022

// RK4 integrates the reactor ODE dc/dt = Reactor.Deltas(c) for a single
// voxel with classical fourth-order Runge-Kutta and an adaptive step.
// An RK4 holds scratch space and must not be shared between goroutines.
type RK4 struct {
	Reactor *Reactor

	// Quality is the fraction of the shortest characteristic time
	// |c/ċ| used as the step size.
	Quality float64

	// MinTime is the smallest step the driver takes, except that the
	// final step is shortened to land exactly on the target time.
	MinTime float64

	k1, k2, k3, k4, tmp []float64
}

// NewRK4 returns a driver with scratch sized for r.
func NewRK4(r *Reactor, quality, minTime float64) *RK4 {
	n := r.NumSpecies()
	buf := make([]float64, 5*n)
	return &RK4{
		Reactor: r,
		Quality: quality,
		MinTime: minTime,
		k1:      buf[0:n],
		k2:      buf[n : 2*n],
		k3:      buf[2*n : 3*n],
		k4:      buf[3*n : 4*n],
		tmp:     buf[4*n : 5*n],
	}
}

// Integrate advances c in place by time T and returns the number of
// steps taken. If src is not nil, src·dt is added after each step.
// Concentrations are clamped at zero after each step. If a step is too
// small to advance the clock, the rest of the interval is taken at once.
func (rk *RK4) Integrate(c []float64, T float64, src []float64) int {
	k1, k2, k3, k4, tmp := rk.k1, rk.k2, rk.k3, rk.k4, rk.tmp
	f := rk.Reactor.Deltas
	var t float64
	steps := 0
	for t < T {
		f(c, k1)

		dt := T - t
		for i, ci := range c {
			if k1[i] == 0 {
				continue
			}
			if h := rk.Quality * math.Abs(ci/k1[i]); h < dt {
				dt = h
			}
		}
		dt = math.Max(rk.MinTime, dt)
		if !(dt > 0) {
			// A zero floor with a zero concentration would stall.
			dt = T - t
		}
		// A step too small to change t would never finish.
		last := dt >= T-t || t+dt <= t
		if last {
			dt = T - t
		}

		half := dt / 2
		for i := range c {
			tmp[i] = c[i] + k1[i]*half
		}
		f(tmp, k2)
		for i := range c {
			tmp[i] = c[i] + k2[i]*half
		}
		f(tmp, k3)
		for i := range c {
			tmp[i] = c[i] + k3[i]*dt
		}
		f(tmp, k4)

		for i := range c {
			c[i] += (k1[i] + 2*k2[i] + 2*k3[i] + k4[i]) * dt / 6
			if src != nil {
				c[i] += src[i] * dt
			}
			if c[i] < 0 {
				c[i] = 0
			}
		}
		steps++
		if last {
			break
		}
		t += dt
	}
	return steps
}
