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

package rdsimutil

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/unit"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rdsim"
	"github.com/spatialmodel/rdsim/internal/hash"
	"github.com/spf13/cobra"
)

var diffusivity = unit.Dimensions{unit.LengthDim: 2, unit.TimeDim: -1}

// newLogger returns a logger writing to w.
func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	return &logrus.Logger{
		Out: w,
		Formatter: &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			DisableSorting:  true,
		},
		Hooks: make(logrus.LevelHooks),
		Level: level,
	}
}

// Run runs the simulation described by mc with settings s, reading input
// files from inputDir and writing output as specified by oc.
func Run(cmd *cobra.Command, mc *ModelConfig, inputDir string, s rdsim.Settings, oc *OutputConfig) error {
	startTime := time.Now()

	logfile, err := os.Create(oc.LogFile)
	if err != nil {
		return fmt.Errorf("rdsim: problem creating log file: %v", err)
	}
	defer logfile.Close()
	log := newLogger(io.MultiWriter(cmd.OutOrStderr(), logfile), oc.LogLevel)

	// Start a function to receive and log status messages.
	cLog := make(chan *rdsim.SimulationStatus)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		for st := range cLog {
			f := logrus.Fields{
				"dump":     fmt.Sprintf("%d/%d", st.Dump, st.Dumps),
				"time":     st.Time,
				"steps":    st.Steps,
				"timestep": st.Timestep,
				"rk4steps": st.RK4Steps,
				"walltime": st.Walltime.Round(time.Millisecond),
				"steptime": st.StepWalltime.Round(time.Millisecond),
			}
			for i, n := range st.Species {
				f["total_"+n] = st.Totals[i]
			}
			log.WithFields(f).Info("snapshot")
		}
		wg.Done()
	}()
	defer func() { // Wait for the logging to finish.
		close(cLog)
		wg.Wait()
	}()

	log.WithFields(logrus.Fields{
		"version":  rdsim.Version,
		"time":     s.Time,
		"dumps":    s.Dumps,
		"quality":  s.Quality,
		"boundary": s.Boundary.String(),
	}).Info("starting simulation")

	m, err := mc.Model(inputDir)
	if err != nil {
		return err
	}
	o, err := rdsim.NewOutputter(oc.Variables, nil)
	if err != nil {
		return err
	}

	savers, summary, err := oc.savers(log)
	if err != nil {
		return err
	}
	if summary != nil {
		defer summary.Close()
	}

	initFuncs := []rdsim.DomainManipulator{rdsim.InitModel(m, s)}
	if oc.Restart != "" {
		r, err := os.Open(oc.Restart)
		if err != nil {
			return fmt.Errorf("rdsim: problem opening restart file: %v", err)
		}
		defer r.Close()
		initFuncs = append(initFuncs, rdsim.Load(r), func(d *rdsim.Simulation) error {
			if d.Dump >= s.Dumps {
				return fmt.Errorf("rdsim: restart file %s already holds %d of %d snapshots", oc.Restart, d.Dump, s.Dumps)
			}
			log.WithFields(logrus.Fields{"dump": d.Dump, "time": d.Time}).Info("restarting from checkpoint")
			return nil
		})
	}
	initFuncs = append(initFuncs, o.CheckOutputVars())

	var cleanupFuncs []rdsim.DomainManipulator
	if oc.Checkpoint != "" {
		cleanupFuncs = append(cleanupFuncs, func(d *rdsim.Simulation) error {
			w, err := os.Create(oc.Checkpoint)
			if err != nil {
				return fmt.Errorf("rdsim: problem creating checkpoint file: %v", err)
			}
			if err := rdsim.Save(w)(d); err != nil {
				w.Close()
				return err
			}
			return w.Close()
		})
	}

	d := &rdsim.Simulation{
		InitFuncs:    initFuncs,
		RunFuncs:     rdsim.DefaultRunFuncs(s, o, cLog, savers...),
		CleanupFuncs: cleanupFuncs,
		Fingerprint:  hash.Hash(mc),
	}
	if err = d.Init(); err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"species":     strings.Join(d.Species.Names(), ","),
		"fingerprint": d.Fingerprint,
	}).Info("initialized")
	if err = d.Run(); err != nil {
		return err
	}
	if err = d.Cleanup(); err != nil {
		return err
	}
	log.WithField("walltime", time.Since(startTime).Round(time.Millisecond)).Info("simulation complete")
	return nil
}

// savers returns the savers for the configured output formats, wrapped
// for retrying. The summary saver, if any, is also returned so it can
// be closed.
func (oc *OutputConfig) savers(log logrus.FieldLogger) ([]rdsim.Saver, *rdsim.SummarySaver, error) {
	var savers []rdsim.Saver
	var summary *rdsim.SummarySaver
	for _, f := range oc.Formats {
		var s rdsim.Saver
		switch f {
		case FormatNetCDF:
			s = &rdsim.NetCDFSaver{Dir: oc.Dir, Prefix: oc.Prefix}
		case FormatCSV:
			s = &rdsim.CSVSaver{Dir: oc.Dir, Prefix: oc.Prefix}
		case FormatSummary:
			if summary != nil {
				continue
			}
			var err error
			summary, err = rdsim.NewSummarySaver(filepath.Join(oc.Dir, oc.Prefix+"_summary.csv"))
			if err != nil {
				return nil, nil, err
			}
			s = summary
		default:
			return nil, summary, fmt.Errorf("rdsim: invalid output format %q", f)
		}
		savers = append(savers, &RetrySaver{Saver: s, Retries: oc.Retries, Log: log})
	}
	return savers, summary, nil
}

// Check builds the simulation described by mc with settings s without
// running it, and prints the species register, the diffusion step and the
// number of steps per snapshot.
func Check(cmd *cobra.Command, mc *ModelConfig, inputDir string, s rdsim.Settings, outputVars map[string]string) error {
	m, err := mc.Model(inputDir)
	if err != nil {
		return err
	}
	o, err := rdsim.NewOutputter(outputVars, nil)
	if err != nil {
		return err
	}
	d := &rdsim.Simulation{
		InitFuncs: []rdsim.DomainManipulator{rdsim.InitModel(m, s), o.CheckOutputVars()},
	}
	if err = d.Init(); err != nil {
		return err
	}
	dt, err := d.Timestep()
	if err != nil {
		return err
	}
	τ := s.MacroStep()
	n := int(math.Ceil(τ / dt))
	if n < 1 {
		n = 1
	}
	cmd.Printf("grid: %d×%d×%d voxels of %v\n", m.Grid.Res[0], m.Grid.Res[1], m.Grid.Res[2], m.Grid.VoxelSize())
	cmd.Println("species:")
	for i, name := range d.Species.Names() {
		cmd.Printf("  %d  %s\n", i, name)
	}
	if len(m.Reactions) > 0 {
		cmd.Printf("reactions: %d\n", len(m.Reactions))
	}
	for _, name := range o.Names() {
		cmd.Printf("output: %s = %s\n", name, o.Expression(name))
	}
	cmd.Printf("fingerprint: %s\n", hash.Hash(mc))
	cmd.Printf("max diffusion: %g\n", unit.New(m.Coef.Max(), diffusivity))
	cmd.Printf("diffusion step: %g\n", unit.New(dt, unit.Second))
	cmd.Printf("macro-step: %g (%d steps of %g) × %d snapshots\n",
		unit.New(τ, unit.Second), n, unit.New(τ/float64(n), unit.Second), s.Dumps)
	return nil
}
