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

// Package simplechem contains small mass-action chemical mechanisms
// that can be linked into an rdsim.Reactor.
package simplechem

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spatialmodel/rdsim"
)

func first(species string, order float64) []rdsim.OrderDesc {
	return []rdsim.OrderDesc{{Species: species, Order: order}}
}

func terms(species ...string) []rdsim.StoichDesc {
	o := make([]rdsim.StoichDesc, 0, len(species))
	for _, s := range species {
		o = append(o, rdsim.StoichDesc{Species: s, Coefficient: 1})
	}
	return o
}

// Decay is the first-order irreversible loss A → ∅ with rate K [1/s].
type Decay struct {
	A string
	K float64
}

// Species returns the names of the species used by m.
func (m Decay) Species() []string { return []string{m.A} }

// Reactions returns the elementary reactions in m.
func (m Decay) Reactions() []rdsim.ReactionDesc {
	return []rdsim.ReactionDesc{{
		Name:      "decay",
		Rate:      rdsim.RateDesc{K: m.K, Orders: first(m.A, 1)},
		Reactants: terms(m.A),
	}}
}

// Reversible is the first-order isomerisation A ⇌ B with forward rate
// KF and backward rate KB [1/s]. At equilibrium B/A = KF/KB.
type Reversible struct {
	A, B   string
	KF, KB float64
}

// Species returns the names of the species used by m.
func (m Reversible) Species() []string { return []string{m.A, m.B} }

// Reactions returns the elementary reactions in m.
func (m Reversible) Reactions() []rdsim.ReactionDesc {
	return []rdsim.ReactionDesc{
		{
			Name:      "forward",
			Rate:      rdsim.RateDesc{K: m.KF, Orders: first(m.A, 1)},
			Reactants: terms(m.A),
			Products:  terms(m.B),
		},
		{
			Name:      "backward",
			Rate:      rdsim.RateDesc{K: m.KB, Orders: first(m.B, 1)},
			Reactants: terms(m.B),
			Products:  terms(m.A),
		},
	}
}

// Dimerization is the second-order reaction 2A → A2 with rate K.
type Dimerization struct {
	A, A2 string
	K     float64
}

// Species returns the names of the species used by m.
func (m Dimerization) Species() []string { return []string{m.A, m.A2} }

// Reactions returns the elementary reactions in m.
func (m Dimerization) Reactions() []rdsim.ReactionDesc {
	return []rdsim.ReactionDesc{{
		Name:      "dimerization",
		Rate:      rdsim.RateDesc{K: m.K, Orders: first(m.A, 2)},
		Reactants: []rdsim.StoichDesc{{Species: m.A, Coefficient: 2}},
		Products:  terms(m.A2),
	}}
}

// LotkaVolterra is the predator-prey system
//
//	Prey → 2 Prey            (rate Birth)
//	Prey + Predator → 2 Predator  (rate Predation)
//	Predator → ∅             (rate Death)
type LotkaVolterra struct {
	Prey, Predator          string
	Birth, Predation, Death float64
}

// Species returns the names of the species used by m.
func (m LotkaVolterra) Species() []string { return []string{m.Prey, m.Predator} }

// Reactions returns the elementary reactions in m.
func (m LotkaVolterra) Reactions() []rdsim.ReactionDesc {
	return []rdsim.ReactionDesc{
		{
			Name:      "birth",
			Rate:      rdsim.RateDesc{K: m.Birth, Orders: first(m.Prey, 1)},
			Reactants: terms(m.Prey),
			Products:  []rdsim.StoichDesc{{Species: m.Prey, Coefficient: 2}},
		},
		{
			Name: "predation",
			Rate: rdsim.RateDesc{K: m.Predation, Orders: []rdsim.OrderDesc{
				{Species: m.Prey, Order: 1}, {Species: m.Predator, Order: 1}}},
			Reactants: terms(m.Prey, m.Predator),
			Products:  []rdsim.StoichDesc{{Species: m.Predator, Coefficient: 2}},
		},
		{
			Name:      "death",
			Rate:      rdsim.RateDesc{K: m.Death, Orders: first(m.Predator, 1)},
			Reactants: terms(m.Predator),
		},
	}
}

// Brusselator is the autocatalytic part of the Brusselator:
//
//	2X + Y → 3X  (rate 1)
//	X → Y        (rate B)
//	X → ∅        (rate 1)
//
// The constant feed A of X is supplied as a reaction source.
type Brusselator struct {
	X, Y string
	B    float64
}

// Species returns the names of the species used by m.
func (m Brusselator) Species() []string { return []string{m.X, m.Y} }

// Reactions returns the elementary reactions in m.
func (m Brusselator) Reactions() []rdsim.ReactionDesc {
	return []rdsim.ReactionDesc{
		{
			Name: "autocatalysis",
			Rate: rdsim.RateDesc{K: 1, Orders: []rdsim.OrderDesc{
				{Species: m.X, Order: 2}, {Species: m.Y, Order: 1}}},
			Reactants: []rdsim.StoichDesc{{Species: m.X, Coefficient: 2}, {Species: m.Y, Coefficient: 1}},
			Products:  []rdsim.StoichDesc{{Species: m.X, Coefficient: 3}},
		},
		{
			Name:      "conversion",
			Rate:      rdsim.RateDesc{K: m.B, Orders: first(m.X, 1)},
			Reactants: terms(m.X),
			Products:  terms(m.Y),
		},
		{
			Name:      "loss",
			Rate:      rdsim.RateDesc{K: 1, Orders: first(m.X, 1)},
			Reactants: terms(m.X),
		},
	}
}

type builder struct {
	species []string
	params  []string
	build   func(s []string, p []float64) rdsim.Mechanism
}

var mechanisms = map[string]builder{
	"decay": {[]string{"A"}, []string{"k"}, func(s []string, p []float64) rdsim.Mechanism {
		return Decay{A: s[0], K: p[0]}
	}},
	"reversible": {[]string{"A", "B"}, []string{"kf", "kb"}, func(s []string, p []float64) rdsim.Mechanism {
		return Reversible{A: s[0], B: s[1], KF: p[0], KB: p[1]}
	}},
	"dimerization": {[]string{"A", "A2"}, []string{"k"}, func(s []string, p []float64) rdsim.Mechanism {
		return Dimerization{A: s[0], A2: s[1], K: p[0]}
	}},
	"lotkavolterra": {[]string{"Prey", "Predator"}, []string{"birth", "predation", "death"}, func(s []string, p []float64) rdsim.Mechanism {
		return LotkaVolterra{Prey: s[0], Predator: s[1], Birth: p[0], Predation: p[1], Death: p[2]}
	}},
	"brusselator": {[]string{"X", "Y"}, []string{"b"}, func(s []string, p []float64) rdsim.Mechanism {
		return Brusselator{X: s[0], Y: s[1], B: p[0]}
	}},
}

// Names returns the names of the mechanisms available from New.
func Names() []string {
	o := make([]string, 0, len(mechanisms))
	for n := range mechanisms {
		o = append(o, n)
	}
	sort.Strings(o)
	return o
}

// New returns the named mechanism. species renames the mechanism's
// species in order; if it is empty the default names are used.
// params holds the rate constants by name, all of which are required.
func New(name string, species []string, params map[string]float64) (rdsim.Mechanism, error) {
	b, ok := mechanisms[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("simplechem: unknown mechanism %q; valid options are %v", name, Names())
	}
	if len(species) == 0 {
		species = b.species
	}
	if len(species) != len(b.species) {
		return nil, fmt.Errorf("simplechem: mechanism %s needs %d species (%v) but got %d",
			name, len(b.species), b.species, len(species))
	}
	p := make([]float64, len(b.params))
	for i, pn := range b.params {
		v, ok := lookup(params, pn)
		if !ok {
			return nil, fmt.Errorf("simplechem: mechanism %s: missing parameter %q", name, pn)
		}
		p[i] = v
	}
	return b.build(species, p), nil
}

// lookup finds key in m ignoring case, because configuration
// loaders may change the case of map keys.
func lookup(m map[string]float64, key string) (float64, bool) {
	if v, ok := m[key]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return 0, false
}
