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
	"encoding/gob"
	"fmt"
	"io"

	"github.com/ctessum/sparse"
)

// checkpoint is the serialized form of a simulation state.
type checkpoint struct {
	Version     string
	Fingerprint string
	Time        float64
	Dump        int
	Species     []string
	Shape       []int
	Elements    []float64
}

// Save returns a function that writes the concentrations and
// progress of a simulation to w so that it can be restarted later
// with Load.
func Save(w io.Writer) DomainManipulator {
	return func(d *Simulation) error {
		if d.Conc == nil {
			return fmt.Errorf("rdsim.Simulation.Save: simulation is not initialized")
		}
		cp := checkpoint{
			Version:     Version,
			Fingerprint: d.Fingerprint,
			Time:        d.Time,
			Dump:        d.Dump,
			Species:     d.Species.Names(),
			Shape:       d.Conc.Shape,
			Elements:    d.Conc.Elements,
		}
		if err := gob.NewEncoder(w).Encode(cp); err != nil {
			return fmt.Errorf("rdsim.Simulation.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that restores the concentrations and
// progress saved by Save. It must run after the simulation has been
// initialized with a model of the same grid and species.
func Load(r io.Reader) DomainManipulator {
	return func(d *Simulation) error {
		var cp checkpoint
		if err := gob.NewDecoder(r).Decode(&cp); err != nil {
			return fmt.Errorf("rdsim.Simulation.Load: %v", err)
		}
		if d.Conc == nil {
			return fmt.Errorf("rdsim.Simulation.Load: simulation is not initialized")
		}
		if cp.Fingerprint != "" && d.Fingerprint != "" && cp.Fingerprint != d.Fingerprint {
			return precondition("checkpoint", "model fingerprint", fmt.Sprintf("%s, want %s", cp.Fingerprint, d.Fingerprint))
		}
		names := d.Species.Names()
		if len(names) != len(cp.Species) {
			return precondition("checkpoint", "species", fmt.Sprintf("%v, want %v", cp.Species, names))
		}
		for i, n := range names {
			if cp.Species[i] != n {
				return precondition("checkpoint", "species", fmt.Sprintf("%v, want %v", cp.Species, names))
			}
		}
		if !shapeIs(d.Conc, cp.Shape) || len(cp.Elements) != len(d.Conc.Elements) {
			return precondition("checkpoint", "shape", fmt.Sprintf("%v, want %v", cp.Shape, d.Conc.Shape))
		}
		saved := &Field{
			DenseArray: sparse.ZerosDense(d.Conc.Shape...),
			nvox:       d.Conc.NumVoxels(),
		}
		copy(saved.Elements, cp.Elements)
		if err := saved.check("checkpoint", "concentration", true); err != nil {
			return err
		}
		copy(d.Conc.Elements, saved.Elements)
		d.Time = cp.Time
		d.Dump = cp.Dump
		return nil
	}
}
