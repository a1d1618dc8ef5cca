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

// Package rdsim simulates three-dimensional reaction-diffusion systems
// on regular Cartesian grids. Fickian diffusion with per-species,
// spatially varying coefficients is combined with mass-action chemistry
// using Strang operator splitting, and the grid is processed in
// parallel blocks.
package rdsim

import (
	"fmt"
	"math"
)

// Version gives the version number.
const Version = "1.0.0"

// Simulation holds the current state of a model run.
type Simulation struct {
	*Integrator

	// Species names the rows of Conc.
	Species *SpeciesRegister

	// Conc holds the current concentrations.
	Conc *Field

	// spare is the second buffer of the ping-pong pair.
	spare *Field

	// Time is the simulated time [s].
	Time float64

	// Dump is the number of macro-steps completed so far.
	Dump int

	// LastStep describes the most recent macro-step.
	LastStep StepInfo

	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, at least one of the functions
	// should set "Done" to true.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// after the simulation has completed.
	CleanupFuncs []DomainManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	// Fingerprint optionally identifies the model being simulated.
	// It is stored in checkpoints, and Load rejects a checkpoint
	// with a different fingerprint.
	Fingerprint string
}

// DomainManipulator is a function that operates on an entire Simulation.
type DomainManipulator func(d *Simulation) error

// Init initializes the simulation by running d.InitFuncs.
func (d *Simulation) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running d.RunFuncs until d.Done is true.
func (d *Simulation) Run() error {
	if len(d.RunFuncs) == 0 {
		return nil
	}
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running d.CleanupFuncs.
func (d *Simulation) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Settings hold the run parameters.
type Settings struct {
	Time        float64  // total simulated time [s]
	Dumps       int      // number of snapshots, evenly spaced in time
	BlockSize   int      // voxels per work block
	Quality     float64  // accuracy knob in (0, 1)
	MinTime     float64  // smallest RK4 step [s]
	NumThreads  int      // worker cap; 0 means one per CPU
	MaxTimestep float64  // micro-step cap [s]; 0 means none
	Boundary    Boundary // boundary treatment for diffusion
}

// Check returns an error if the settings are out of range.
func (s *Settings) Check() error {
	switch {
	case !(s.Time > 0) || math.IsInf(s.Time, 0):
		return precondition("settings", "time", s.Time)
	case s.Dumps < 1:
		return precondition("settings", "dumps", s.Dumps)
	case s.BlockSize < 1:
		return precondition("settings", "block size", s.BlockSize)
	case !(s.Quality > 0 && s.Quality < 1):
		return precondition("settings", "quality", s.Quality)
	case !(s.MinTime > 0) || math.IsInf(s.MinTime, 0):
		return precondition("settings", "min time", s.MinTime)
	case s.NumThreads < 0:
		return precondition("settings", "number of threads", s.NumThreads)
	case !(s.MaxTimestep >= 0) || math.IsInf(s.MaxTimestep, 0):
		return precondition("settings", "max timestep", s.MaxTimestep)
	case s.Boundary < ZeroFlux || s.Boundary > Dirichlet:
		return precondition("settings", "boundary", s.Boundary)
	}
	return nil
}

// MacroStep returns the simulated time between dumps.
func (s *Settings) MacroStep() float64 { return s.Time / float64(s.Dumps) }

// Model holds the domain objects a run is built from. Source,
// ReactionSource and Multiplier may be nil.
type Model struct {
	Grid      Grid
	Species   *SpeciesRegister
	Reactions []ReactionDesc

	Initial, Coef          *Field
	Source, ReactionSource *Field
	Multiplier             *Field
}

// InitModel returns a function that sets up d to simulate m with the
// given settings. The simulation takes ownership of m.Initial.
func InitModel(m *Model, s Settings) DomainManipulator {
	return func(d *Simulation) error {
		if err := s.Check(); err != nil {
			return err
		}
		if m.Species == nil {
			return precondition("model", "species register", "nil")
		}
		r, err := Link(m.Reactions, m.Species)
		if err != nil {
			return err
		}
		d.Integrator = &Integrator{
			Grid:           &m.Grid,
			Reactor:        r,
			Coef:           m.Coef,
			Source:         m.Source,
			ReactionSource: m.ReactionSource,
			Multiplier:     m.Multiplier,
			Quality:        s.Quality,
			MinTime:        s.MinTime,
			MaxTimestep:    s.MaxTimestep,
			BlockSize:      s.BlockSize,
			Boundary:       s.Boundary,
			Pool:           NewPool(s.NumThreads),
		}
		if err := d.Integrator.Check(m.Initial); err != nil {
			return err
		}
		if _, err := d.Timestep(); err != nil {
			return err
		}
		d.Species = m.Species
		d.Conc = m.Initial
		d.spare = NewField(m.Species.Len(), &m.Grid)
		return nil
	}
}

// StrangStep returns a function that advances the simulation by one
// macro-step of length τ.
func StrangStep(τ float64) DomainManipulator {
	return func(d *Simulation) error {
		if d.Integrator == nil || d.Conc == nil {
			return fmt.Errorf("rdsim: StrangStep: simulation is not initialized")
		}
		cur, next, info, err := d.Advance(d.Conc, d.spare, τ)
		if err != nil {
			return err
		}
		d.Conc, d.spare = cur, next
		d.LastStep = info
		d.Time += τ
		d.Dump++
		return nil
	}
}

// DefaultRunFuncs returns the run functions for a standard simulation:
// a macro-step, a status message on c, output to savers, and a check
// for completion.
func DefaultRunFuncs(s Settings, o *Outputter, c chan *SimulationStatus, savers ...Saver) []DomainManipulator {
	return []DomainManipulator{
		StrangStep(s.MacroStep()),
		Log(c, s.Dumps),
		o.Output(savers...),
		DumpCheck(s.Dumps),
	}
}
