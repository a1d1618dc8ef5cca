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
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// VoxelRecord is one row of a CSV snapshot.
type VoxelRecord struct {
	Dump     int     `csv:"dump"`
	Time     float64 `csv:"time"`
	Variable string  `csv:"variable"`
	I        int     `csv:"i"`
	J        int     `csv:"j"`
	K        int     `csv:"k"`
	X        float64 `csv:"x"` // voxel centre
	Y        float64 `csv:"y"`
	Z        float64 `csv:"z"`
	Value    float64 `csv:"value"`
}

// CSVSaver writes each snapshot to its own CSV file named
// Dir/Prefix_NNNN.csv with one row per variable and voxel.
type CSVSaver struct {
	Dir, Prefix string
}

// FileName returns the path of the file for dump index n.
func (s *CSVSaver) FileName(n int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%04d.csv", s.Prefix, n))
}

// Save writes snap to a new CSV file.
func (s *CSVSaver) Save(snap *Snapshot) error {
	g := snap.Grid
	records := make([]VoxelRecord, 0, len(snap.Names)*g.Len())
	for vi, name := range snap.Names {
		for v, val := range snap.Data[vi].Elements {
			i, j, k := g.Unlinear(v)
			b := g.VoxelOf(i, j, k)
			records = append(records, VoxelRecord{
				Dump:     snap.Index,
				Time:     snap.Time,
				Variable: name,
				I:        i,
				J:        j,
				K:        k,
				X:        (b.Min.X + b.Max.X) / 2,
				Y:        (b.Min.Y + b.Max.Y) / 2,
				Z:        (b.Min.Z + b.Max.Z) / 2,
				Value:    val,
			})
		}
	}
	f, err := os.Create(s.FileName(snap.Index))
	if err != nil {
		return fmt.Errorf("rdsim: creating CSV output: %w", err)
	}
	if err := gocsv.Marshal(records, f); err != nil {
		f.Close()
		return fmt.Errorf("rdsim: writing CSV output: %w", err)
	}
	return f.Close()
}

// SummaryRecord holds domain statistics for one variable at one dump.
type SummaryRecord struct {
	Dump     int     `csv:"dump"`
	Time     float64 `csv:"time"`
	Variable string  `csv:"variable"`
	Total    float64 `csv:"total"`
	Min      float64 `csv:"min"`
	Max      float64 `csv:"max"`
	Mean     float64 `csv:"mean"`
	StdDev   float64 `csv:"std_dev"`
}

// Summarize returns statistics for every variable in snap.
func Summarize(snap *Snapshot) []SummaryRecord {
	o := make([]SummaryRecord, len(snap.Names))
	for i, name := range snap.Names {
		x := snap.Data[i].Elements
		mean, std := stat.MeanStdDev(x, nil)
		if len(x) < 2 {
			std = 0
		}
		o[i] = SummaryRecord{
			Dump:     snap.Index,
			Time:     snap.Time,
			Variable: name,
			Total:    floats.Sum(x),
			Min:      floats.Min(x),
			Max:      floats.Max(x),
			Mean:     mean,
			StdDev:   std,
		}
	}
	return o
}

// SummarySaver appends per-variable statistics for every snapshot to a
// single CSV file. Each snapshot is written at the end of the last
// complete one, so retrying a failed Save does not duplicate rows.
type SummarySaver struct {
	mu            sync.Mutex
	w             writerAtCloser
	off           int64
	headerWritten bool
}

type writerAtCloser interface {
	io.WriterAt
	io.Closer
}

// NewSummarySaver creates the summary file at path.
func NewSummarySaver(path string) (*SummarySaver, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("rdsim: creating summary file: %w", err)
	}
	return &SummarySaver{w: f}, nil
}

// Save appends the statistics of snap.
func (s *SummarySaver) Save(snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	records := Summarize(snap)
	buf := new(bytes.Buffer)
	var err error
	if s.headerWritten {
		err = gocsv.MarshalWithoutHeaders(records, buf)
	} else {
		err = gocsv.Marshal(records, buf)
	}
	if err != nil {
		return fmt.Errorf("rdsim: writing summary: %w", err)
	}
	n, err := s.w.WriteAt(buf.Bytes(), s.off)
	if err != nil {
		return fmt.Errorf("rdsim: writing summary: %w", err)
	}
	s.off += int64(n)
	s.headerWritten = true
	return nil
}

// Close closes the summary file.
func (s *SummarySaver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Close()
}
