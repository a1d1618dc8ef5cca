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
	"gonum.org/v1/gonum/mat"
)

// Mechanism is an interface for chemical mechanisms that can be linked
// into a Reactor.
type Mechanism interface {
	// Species returns the names of the species used by the mechanism.
	Species() []string

	// Reactions returns the elementary reactions in the mechanism.
	Reactions() []ReactionDesc
}

// ReactionDesc describes an elementary mass-action reaction by species name.
type ReactionDesc struct {
	Name      string `toml:",omitempty" yaml:",omitempty" json:",omitempty"`
	Rate      RateDesc
	Reactants []StoichDesc
	Products  []StoichDesc
}

// RateDesc holds a rate constant and the partial orders of the species
// it depends on.
type RateDesc struct {
	K      float64
	Orders []OrderDesc
}

// OrderDesc is the partial order of a named species in a rate law.
type OrderDesc struct {
	Species string
	Order   float64
}

// StoichDesc is the stoichiometric coefficient of a named species.
type StoichDesc struct {
	Species     string
	Coefficient float64
}

// Order is the partial order of species index Species in a rate law.
type Order struct {
	Species int
	Order   float64
}

// RateLaw evaluates the rate of one elementary reaction as
// K · Π c[o.Species]^o.Order.
type RateLaw struct {
	K      float64
	Orders []Order
}

// Rate returns the instantaneous rate for concentrations c. Orders are
// real; a zero order contributes a factor of one even when the
// concentration is zero. Negative concentrations count as zero.
func (r *RateLaw) Rate(c []float64) float64 {
	rate := r.K
	for _, o := range r.Orders {
		// Intermediate RK4 stages may dip below zero.
		v := math.Max(c[o.Species], 0)
		switch o.Order {
		case 0:
		case 1:
			rate *= v
		case 2:
			rate *= v * v
		default:
			rate *= math.Pow(v, o.Order)
		}
	}
	return rate
}

// Check returns an error if r is not a valid rate law for ns species.
func (r *RateLaw) Check(ns int) error {
	if !(r.K > 0) || math.IsInf(r.K, 0) {
		return precondition("rate law", "k", r.K)
	}
	if len(r.Orders) == 0 {
		return precondition("rate law", "number of orders", 0)
	}
	for _, o := range r.Orders {
		if o.Species < 0 || o.Species >= ns {
			return precondition("rate law", "species index", o.Species)
		}
		if math.IsNaN(o.Order) || math.IsInf(o.Order, 0) {
			return precondition("rate law", "order", o.Order)
		}
	}
	return nil
}

// Reactor combines a set of rate laws with their stoichiometry.
// Row j of Stoich holds the signed change in each species per unit
// of reaction j. Stoich is nil for a reactor without reactions.
type Reactor struct {
	Rates  []RateLaw
	Stoich *mat.Dense
	ns     int
}

// NewReactor returns a reactor for ns species. stoich must have one row
// per rate law and ns columns.
func NewReactor(ns int, rates []RateLaw, stoich *mat.Dense) (*Reactor, error) {
	if len(rates) == 0 {
		return &Reactor{ns: ns}, nil
	}
	if stoich == nil {
		return nil, precondition("reactor", "stoichiometry", "nil")
	}
	if r, c := stoich.Dims(); r != len(rates) || c != ns {
		return nil, precondition("reactor", "stoichiometry shape",
			fmt.Sprintf("%d×%d, want %d×%d", r, c, len(rates), ns))
	}
	for j := range rates {
		if err := rates[j].Check(ns); err != nil {
			return nil, fmt.Errorf("reaction %d: %w", j, err)
		}
	}
	return &Reactor{Rates: rates, Stoich: stoich, ns: ns}, nil
}

// Link resolves the species names in descs against reg and returns
// the resulting Reactor.
func Link(descs []ReactionDesc, reg *SpeciesRegister) (*Reactor, error) {
	ns := reg.Len()
	if len(descs) == 0 {
		return NewReactor(ns, nil, nil)
	}
	rates := make([]RateLaw, len(descs))
	stoich := mat.NewDense(len(descs), ns, nil)
	for j, d := range descs {
		rates[j].K = d.Rate.K
		for _, o := range d.Rate.Orders {
			s, err := reg.Index(o.Species)
			if err != nil {
				return nil, fmt.Errorf("linking reaction %s: %w", d.label(j), err)
			}
			rates[j].Orders = append(rates[j].Orders, Order{Species: s, Order: o.Order})
		}
		for _, t := range d.Reactants {
			s, err := reg.Index(t.Species)
			if err != nil {
				return nil, fmt.Errorf("linking reaction %s: %w", d.label(j), err)
			}
			stoich.Set(j, s, stoich.At(j, s)-t.Coefficient)
		}
		for _, t := range d.Products {
			s, err := reg.Index(t.Species)
			if err != nil {
				return nil, fmt.Errorf("linking reaction %s: %w", d.label(j), err)
			}
			stoich.Set(j, s, stoich.At(j, s)+t.Coefficient)
		}
	}
	return NewReactor(ns, rates, stoich)
}

func (d *ReactionDesc) label(j int) string {
	if d.Name != "" {
		return fmt.Sprintf("%d (%s)", j, d.Name)
	}
	return fmt.Sprint(j)
}

// ReferencedSpecies returns the species named by descs in order of
// first appearance.
func ReferencedSpecies(descs []ReactionDesc) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(n string) {
		if !seen[n] {
			seen[n] = true
			names = append(names, n)
		}
	}
	for _, d := range descs {
		for _, o := range d.Rate.Orders {
			add(o.Species)
		}
		for _, t := range d.Reactants {
			add(t.Species)
		}
		for _, t := range d.Products {
			add(t.Species)
		}
	}
	return names
}

// NumSpecies returns the length of the concentration vectors r accepts.
func (r *Reactor) NumSpecies() int { return r.ns }

// IsIdentity reports whether r never changes any concentration.
func (r *Reactor) IsIdentity() bool {
	if r == nil || len(r.Rates) == 0 {
		return true
	}
	raw := r.Stoich.RawMatrix()
	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Deltas writes the rate of change of each species at concentrations
// c into out. c and out must both have length NumSpecies.
func (r *Reactor) Deltas(c, out []float64) {
	if len(c) != r.ns || len(out) != r.ns {
		panic(fmt.Errorf("rdsim: reactor: vector lengths %d and %d, want %d", len(c), len(out), r.ns))
	}
	for i := range out {
		out[i] = 0
	}
	for j := range r.Rates {
		rate := r.Rates[j].Rate(c)
		if rate == 0 {
			continue
		}
		floats.AddScaled(out, rate, r.Stoich.RawRowView(j))
	}
}
