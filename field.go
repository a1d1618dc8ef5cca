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

	"github.com/ctessum/sparse"
	"gonum.org/v1/gonum/floats"
)

// Field is a dense species × voxel array. The underlying array has
// shape (S, Z, Y, X), so each species occupies a contiguous run of
// Grid.Len() elements in linear voxel order, and element (s, v) lives
// at s*Grid.Len() + v.
//
// Spatial arrays exchanged with loaders and savers have shape (Z, Y, X)
// in the same linear voxel order.
type Field struct {
	*sparse.DenseArray
	nvox int
}

// NewField returns a zeroed field holding ns species on grid g.
func NewField(ns int, g *Grid) *Field {
	return &Field{
		DenseArray: sparse.ZerosDense(ns, g.Res[2], g.Res[1], g.Res[0]),
		nvox:       g.Len(),
	}
}

// NewUniformField returns a field on grid g where every element of
// species s is set to vals[s].
func NewUniformField(g *Grid, vals ...float64) *Field {
	f := NewField(len(vals), g)
	for s, v := range vals {
		sp := f.Species(s)
		for i := range sp {
			sp[i] = v
		}
	}
	return f
}

// Compose assembles a field from per-species spatial arrays, in register
// order. Species missing from arrays are left at zero. Each array must
// have shape (Z, Y, X).
func Compose(g *Grid, reg *SpeciesRegister, arrays map[string]*sparse.DenseArray) (*Field, error) {
	f := NewField(reg.Len(), g)
	for name, a := range arrays {
		s, err := reg.Index(name)
		if err != nil {
			return nil, err
		}
		if err := f.SetSpecies(s, a); err != nil {
			return nil, fmt.Errorf("rdsim: composing species %s: %w", name, err)
		}
	}
	return f, nil
}

// NumSpecies returns the number of species in the field.
func (f *Field) NumSpecies() int { return f.Shape[0] }

// NumVoxels returns the number of voxels per species.
func (f *Field) NumVoxels() int { return f.nvox }

// At returns the value of species s at voxel (i, j, k).
func (f *Field) At(s, i, j, k int) float64 {
	return f.Elements[f.index(s, i, j, k)]
}

// Set sets the value of species s at voxel (i, j, k).
func (f *Field) Set(val float64, s, i, j, k int) {
	f.Elements[f.index(s, i, j, k)] = val
}

func (f *Field) index(s, i, j, k int) int {
	return s*f.nvox + i + f.Shape[3]*(j+f.Shape[2]*k)
}

// Species returns the storage of species s. Changes to the returned
// slice change the field.
func (f *Field) Species(s int) []float64 {
	return f.Elements[s*f.nvox : (s+1)*f.nvox]
}

// Column copies the values of all species at linear voxel v into dst.
func (f *Field) Column(v int, dst []float64) {
	for s := range dst {
		dst[s] = f.Elements[s*f.nvox+v]
	}
}

// SetSpecies copies the (Z, Y, X) array a into species s.
func (f *Field) SetSpecies(s int, a *sparse.DenseArray) error {
	if len(a.Shape) != 3 || a.Shape[0] != f.Shape[1] || a.Shape[1] != f.Shape[2] || a.Shape[2] != f.Shape[3] {
		return precondition("field", "array shape", fmt.Sprintf("%v, want %v", a.Shape, f.Shape[1:]))
	}
	copy(f.Species(s), a.Elements)
	return nil
}

// Slice returns a copy of species s as a (Z, Y, X) array.
func (f *Field) Slice(s int) *sparse.DenseArray {
	o := sparse.ZerosDense(f.Shape[1], f.Shape[2], f.Shape[3])
	copy(o.Elements, f.Species(s))
	return o
}

// Total returns the sum of species s over all voxels.
func (f *Field) Total(s int) float64 { return floats.Sum(f.Species(s)) }

// Max returns the largest element of the field.
func (f *Field) Max() float64 { return floats.Max(f.Elements) }

// SameShape reports whether f and o have identical dimensions.
func (f *Field) SameShape(o *Field) bool {
	if len(f.Shape) != len(o.Shape) {
		return false
	}
	for i, n := range f.Shape {
		if o.Shape[i] != n {
			return false
		}
	}
	return true
}

// Clone returns a deep copy of f.
func (f *Field) Clone() *Field {
	return &Field{DenseArray: f.DenseArray.Copy(), nvox: f.nvox}
}

// check returns an error naming component and quantity if any element
// of f is not finite, or if nonNegative is set and an element is negative.
func (f *Field) check(component, quantity string, nonNegative bool) error {
	for i, v := range f.Elements {
		if math.IsNaN(v) || math.IsInf(v, 0) || (nonNegative && v < 0) {
			s := i / f.nvox
			x, y, z := f.unlinear(i % f.nvox)
			return precondition(component,
				fmt.Sprintf("%s[%d,%d,%d,%d]", quantity, s, x, y, z), v)
		}
	}
	return nil
}

func (f *Field) unlinear(v int) (i, j, k int) {
	i = v % f.Shape[3]
	v /= f.Shape[3]
	return i, v % f.Shape[2], v / f.Shape[2]
}
