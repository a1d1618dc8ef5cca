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
	"os"
	"path/filepath"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// NetCDFSaver writes each snapshot to its own NetCDF file named
// Dir/Prefix_NNNN.nc, where NNNN is the dump index.
type NetCDFSaver struct {
	Dir, Prefix string
}

// FileName returns the path of the file for dump index n.
func (s *NetCDFSaver) FileName(n int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s_%04d.nc", s.Prefix, n))
}

// Save writes snap to a new NetCDF file.
func (s *NetCDFSaver) Save(snap *Snapshot) error {
	w, err := os.Create(s.FileName(snap.Index))
	if err != nil {
		return fmt.Errorf("rdsim: creating NetCDF output: %v", err)
	}
	if err := WriteNetCDF(w, snap); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// WriteNetCDF writes snap to w. Each variable has dimensions (z, y, x).
func WriteNetCDF(w *os.File, snap *Snapshot) error {
	g := snap.Grid
	h := cdf.NewHeader([]string{"z", "y", "x"}, []int{g.Res[2], g.Res[1], g.Res[0]})
	h.AddAttribute("", "comment", "RDSim concentration snapshot")
	h.AddAttribute("", "rdsim_version", Version)
	h.AddAttribute("", "time", []float64{snap.Time})
	h.AddAttribute("", "dump", []int32{int32(snap.Index)})
	h.AddAttribute("", "mins", []float64{g.Mins.X, g.Mins.Y, g.Mins.Z})
	h.AddAttribute("", "maxs", []float64{g.Maxs.X, g.Maxs.Y, g.Maxs.Z})
	h.AddAttribute("", "res", []int32{int32(g.Res[0]), int32(g.Res[1]), int32(g.Res[2])})
	for _, name := range snap.Names {
		h.AddVariable(name, []string{"z", "y", "x"}, []float64{0})
	}
	h.Define()

	f, err := cdf.Create(w, h) // writes the header to w
	if err != nil {
		return fmt.Errorf("rdsim: writing NetCDF header: %v", err)
	}
	for i, name := range snap.Names {
		if err = writeNCF(f, name, snap.Data[i]); err != nil {
			return fmt.Errorf("rdsim: writing variable %s to NetCDF file: %v", name, err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

func writeNCF(f *cdf.File, Var string, data *sparse.DenseArray) error {
	// Check that data matches dimensions.
	end := f.Header.Lengths(Var)
	n := 1
	for _, v := range end {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	start := make([]int, len(end))
	_, err := f.Writer(Var, start, end).Write(data.Elements)
	return err
}

// ReadNetCDF reads variable v from a NetCDF file. The result has the
// shape of the variable. Integer and single precision variables are
// converted to float64.
func ReadNetCDF(rw cdf.ReaderWriterAt, v string) (*sparse.DenseArray, error) {
	f, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("rdsim.ReadNetCDF: %v", err)
	}
	dims := f.Header.Lengths(v)
	if dims == nil {
		return nil, fmt.Errorf("rdsim.ReadNetCDF: no variable named %q", v)
	}
	o := sparse.ZerosDense(dims...)
	tmp := f.Header.ZeroValue(v, len(o.Elements))
	if _, err = f.Reader(v, nil, nil).Read(tmp); err != nil {
		return nil, fmt.Errorf("rdsim.ReadNetCDF: reading %s: %v", v, err)
	}
	switch t := tmp.(type) {
	case []float64:
		copy(o.Elements, t)
	case []float32:
		for i, x := range t {
			o.Elements[i] = float64(x)
		}
	case []int32:
		for i, x := range t {
			o.Elements[i] = float64(x)
		}
	case []int16:
		for i, x := range t {
			o.Elements[i] = float64(x)
		}
	case []uint8:
		for i, x := range t {
			o.Elements[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("rdsim.ReadNetCDF: variable %s has unsupported type %T", v, tmp)
	}
	return o, nil
}

// ReadNetCDFFile opens path and reads variable v.
func ReadNetCDFFile(path, v string) (*sparse.DenseArray, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rdsim.ReadNetCDF: %v", err)
	}
	defer f.Close()
	return ReadNetCDF(f, v)
}
