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

	"gonum.org/v1/gonum/spatial/r3"
)

// Grid is an axis-aligned lattice of voxels spanning the box [Mins, Maxs).
// Res holds the number of voxels along x, y and z.
type Grid struct {
	Mins, Maxs r3.Vec
	Res        [3]int
}

// Check returns an error if the grid is malformed.
func (g *Grid) Check() error {
	lo := [3]float64{g.Mins.X, g.Mins.Y, g.Mins.Z}
	hi := [3]float64{g.Maxs.X, g.Maxs.Y, g.Maxs.Z}
	for a, axis := range []string{"x", "y", "z"} {
		if g.Res[a] < 1 {
			return precondition("grid", axis+" resolution", g.Res[a])
		}
		if math.IsNaN(lo[a]) || math.IsInf(lo[a], 0) || math.IsNaN(hi[a]) || math.IsInf(hi[a], 0) {
			return precondition("grid", axis+" bounds", fmt.Sprintf("[%g, %g)", lo[a], hi[a]))
		}
		if !(lo[a] < hi[a]) {
			return precondition("grid", axis+" bounds", fmt.Sprintf("[%g, %g)", lo[a], hi[a]))
		}
	}
	return nil
}

// Len returns the number of voxels in the grid.
func (g *Grid) Len() int { return g.Res[0] * g.Res[1] * g.Res[2] }

// VoxelSize returns the voxel edge lengths.
func (g *Grid) VoxelSize() r3.Vec {
	return r3.Vec{
		X: (g.Maxs.X - g.Mins.X) / float64(g.Res[0]),
		Y: (g.Maxs.Y - g.Mins.Y) / float64(g.Res[1]),
		Z: (g.Maxs.Z - g.Mins.Z) / float64(g.Res[2]),
	}
}

// MinVoxelSize returns the shortest voxel edge.
func (g *Grid) MinVoxelSize() float64 {
	d := g.VoxelSize()
	return math.Min(d.X, math.Min(d.Y, d.Z))
}

// Linear returns the linear index of voxel (i, j, k). x varies fastest.
func (g *Grid) Linear(i, j, k int) int {
	return i + g.Res[0]*(j+g.Res[1]*k)
}

// Unlinear is the inverse of Linear.
func (g *Grid) Unlinear(v int) (i, j, k int) {
	i = v % g.Res[0]
	v /= g.Res[0]
	j = v % g.Res[1]
	k = v / g.Res[1]
	return
}

// IndexOf returns the index of the voxel containing p. ok is false
// if p falls outside the grid.
func (g *Grid) IndexOf(p r3.Vec) (i, j, k int, ok bool) {
	if !(p.X >= g.Mins.X && p.X < g.Maxs.X &&
		p.Y >= g.Mins.Y && p.Y < g.Maxs.Y &&
		p.Z >= g.Mins.Z && p.Z < g.Maxs.Z) {
		return 0, 0, 0, false
	}
	d := g.VoxelSize()
	i = clampIndex(int(math.Floor((p.X-g.Mins.X)/d.X)), g.Res[0])
	j = clampIndex(int(math.Floor((p.Y-g.Mins.Y)/d.Y)), g.Res[1])
	k = clampIndex(int(math.Floor((p.Z-g.Mins.Z)/d.Z)), g.Res[2])
	return i, j, k, true
}

// clampIndex keeps floor rounding near the upper bound inside the grid.
func clampIndex(i, n int) int {
	if i >= n {
		return n - 1
	}
	return i
}

// VoxelOf returns the half-open box covered by voxel (i, j, k).
func (g *Grid) VoxelOf(i, j, k int) r3.Box {
	d := g.VoxelSize()
	return r3.Box{
		Min: r3.Vec{
			X: g.Mins.X + float64(i)*d.X,
			Y: g.Mins.Y + float64(j)*d.Y,
			Z: g.Mins.Z + float64(k)*d.Z,
		},
		Max: r3.Vec{
			X: g.Mins.X + float64(i+1)*d.X,
			Y: g.Mins.Y + float64(j+1)*d.Y,
			Z: g.Mins.Z + float64(k+1)*d.Z,
		},
	}
}
