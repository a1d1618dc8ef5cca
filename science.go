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
	"strings"
)

// Boundary selects the value assumed just outside the domain when
// computing the Laplacian of a boundary voxel.
type Boundary int

const (
	// ZeroFlux takes the ghost value equal to the boundary voxel itself,
	// so nothing crosses the boundary face and total mass is conserved.
	ZeroFlux Boundary = iota

	// Mirror reflects the inner neighbour through the boundary voxel:
	// ghost = 2c - inner.
	Mirror

	// Dirichlet holds the ghost value at zero.
	Dirichlet
)

var boundaryNames = []string{"zeroflux", "mirror", "dirichlet"}

func (b Boundary) String() string {
	if b < 0 || int(b) >= len(boundaryNames) {
		return fmt.Sprintf("Boundary(%d)", int(b))
	}
	return boundaryNames[b]
}

// ParseBoundary returns the boundary treatment with the given name.
// Matching is case insensitive.
func ParseBoundary(name string) (Boundary, error) {
	for i, n := range boundaryNames {
		if strings.EqualFold(n, name) {
			return Boundary(i), nil
		}
	}
	return 0, precondition("stencil", "boundary", name)
}

func (b Boundary) ghost(c, inner float64) float64 {
	switch b {
	case Mirror:
		return 2*c - inner
	case Dirichlet:
		return 0
	default:
		return c
	}
}

// Stencil evaluates the seven-point Laplacian diffusion rate on a Grid.
type Stencil struct {
	Grid     *Grid
	Boundary Boundary

	d2 [3]float64 // squared voxel sizes
}

// NewStencil returns a stencil for g.
func NewStencil(g *Grid, b Boundary) *Stencil {
	d := g.VoxelSize()
	return &Stencil{Grid: g, Boundary: b, d2: [3]float64{d.X * d.X, d.Y * d.Y, d.Z * d.Z}}
}

// Rate returns D·∇²F + Q for species s at voxel (i, j, k). q may be nil.
func (st *Stencil) Rate(f, d, q *Field, s, i, j, k int) float64 {
	g := st.Grid
	idx := s*f.NumVoxels() + g.Linear(i, j, k)
	e := f.Elements
	c := e[idx]
	l := st.axis(e, idx, c, i, g.Res[0], 1, st.d2[0]) +
		st.axis(e, idx, c, j, g.Res[1], g.Res[0], st.d2[1]) +
		st.axis(e, idx, c, k, g.Res[2], g.Res[0]*g.Res[1], st.d2[2])
	r := d.Elements[idx] * l
	if q != nil {
		r += q.Elements[idx]
	}
	return r
}

// axis returns the second difference along one axis. pos is the
// position along the axis, n its length and stride the distance
// between neighbours in e.
func (st *Stencil) axis(e []float64, idx int, c float64, pos, n, stride int, d2 float64) float64 {
	var prev, next float64
	if pos > 0 {
		prev = e[idx-stride]
	} else if n > 1 {
		prev = st.Boundary.ghost(c, e[idx+stride])
	} else {
		prev = st.Boundary.ghost(c, c)
	}
	if pos < n-1 {
		next = e[idx+stride]
	} else if n > 1 {
		next = st.Boundary.ghost(c, e[idx-stride])
	} else {
		next = st.Boundary.ghost(c, c)
	}
	// prev and next are summed first so that the result does not depend
	// on the direction of the axis.
	return ((prev + next) - 2*c) / d2
}

// DiffusionTimestep returns the explicit diffusion micro-step
// (1-quality)·minΔ²/(8·maxD) for grid g, capped at maxDt when maxDt > 0.
// If maxD is zero, maxDt is returned, or ErrDegenerate if there is no cap.
func DiffusionTimestep(g *Grid, maxD, quality, maxDt float64) (float64, error) {
	if math.IsNaN(maxD) || math.IsInf(maxD, 0) || maxD < 0 {
		return 0, precondition("stencil", "max diffusion coefficient", maxD)
	}
	if maxDt < 0 || math.IsNaN(maxDt) {
		return 0, precondition("stencil", "max timestep", maxDt)
	}
	if maxD == 0 {
		if maxDt > 0 && !math.IsInf(maxDt, 1) {
			return maxDt, nil
		}
		return 0, &ComponentError{Component: "stencil", Quantity: "max diffusion coefficient", Value: maxD, Err: ErrDegenerate}
	}
	dx := g.MinVoxelSize()
	Δt := (1 - quality) * dx * dx / (8 * maxD)
	if maxDt > 0 && Δt > maxDt {
		Δt = maxDt
	}
	if !(Δt > 0) || math.IsInf(Δt, 0) {
		return 0, precondition("stencil", "timestep", Δt)
	}
	return Δt, nil
}
