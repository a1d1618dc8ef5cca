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

import "fmt"

// SpeciesRegister is an ordered, duplicate-free list of species names.
// Species indices are contiguous starting at zero. A register is
// immutable once built.
type SpeciesRegister struct {
	names []string
	index map[string]int
}

// RegisterBuilder accumulates species names for a SpeciesRegister.
type RegisterBuilder struct {
	names []string
	seen  map[string]struct{}
	err   error
}

// NewRegisterBuilder returns an empty builder.
func NewRegisterBuilder() *RegisterBuilder {
	return &RegisterBuilder{seen: make(map[string]struct{})}
}

// Add appends names that have not been added before, keeping the
// order of first appearance.
func (b *RegisterBuilder) Add(names ...string) *RegisterBuilder {
	for _, n := range names {
		if n == "" {
			if b.err == nil {
				b.err = precondition("species register", "species name", `""`)
			}
			continue
		}
		if _, ok := b.seen[n]; ok {
			continue
		}
		b.seen[n] = struct{}{}
		b.names = append(b.names, n)
	}
	return b
}

// Build returns the register. The builder may be reused afterwards
// without affecting the result.
func (b *RegisterBuilder) Build() (*SpeciesRegister, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.names) == 0 {
		return nil, precondition("species register", "number of species", 0)
	}
	r := &SpeciesRegister{
		names: append([]string(nil), b.names...),
		index: make(map[string]int, len(b.names)),
	}
	for i, n := range r.names {
		r.index[n] = i
	}
	return r, nil
}

// Index returns the index of the named species.
func (r *SpeciesRegister) Index(name string) (int, error) {
	i, ok := r.index[name]
	if !ok {
		return -1, fmt.Errorf("rdsim: species register: %q: %w", name, ErrUnknownSpecies)
	}
	return i, nil
}

// Name returns the name of species i.
func (r *SpeciesRegister) Name(i int) string { return r.names[i] }

// Names returns a copy of the species names in index order.
func (r *SpeciesRegister) Names() []string { return append([]string(nil), r.names...) }

// Len returns the number of species.
func (r *SpeciesRegister) Len() int { return len(r.names) }
