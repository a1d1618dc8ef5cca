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
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/rdsim"
	"github.com/spatialmodel/rdsim/science/chem/simplechem"
	"github.com/spf13/cast"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

// ModelConfig is the model description read from the parameter file.
// The run settings in the same file are read separately through Cfg.
type ModelConfig struct {
	Grid GridConfig

	// Species lists the species in the simulation in register order.
	// Species that only appear in reactions are added after these with
	// zero initial concentration, diffusion and source.
	Species []SpeciesConfig

	// Multiplier scales reaction time in each voxel. It can be a number,
	// a "file.nc:variable" reference, or left empty for one everywhere.
	Multiplier interface{}

	// Mechanism optionally selects a built-in mechanism.
	Mechanism MechanismConfig

	// Reactions are added to those of Mechanism.
	Reactions []rdsim.ReactionDesc
}

// GridConfig describes the simulation domain.
type GridConfig struct {
	Mins, Maxs [3]float64
	Res        [3]int
}

// SpeciesConfig holds the inputs for one species. Each of the array
// fields can be a number, which applies to every voxel, or a
// "file.nc:variable" reference to a NetCDF variable with dimensions
// (z, y, x) in the input directory. Empty fields are zero.
type SpeciesConfig struct {
	Name           string
	Initial        interface{}
	Diffusion      interface{}
	Source         interface{}
	ReactionSource interface{}
}

// MechanismConfig selects one of the mechanisms in package simplechem.
type MechanismConfig struct {
	Name    string
	Species []string
	Params  map[string]float64
}

// LoadModelConfig decodes the model description from the file at path.
// The format is chosen by the file extension: .toml, .yaml, .yml or .json.
func LoadModelConfig(path string) (*ModelConfig, error) {
	c := new(ModelConfig)
	if err := decodeFile(path, c); err != nil {
		return nil, err
	}
	return c, nil
}

// DecodeModelConfig decodes a model description in the format
// indicated by ext.
func DecodeModelConfig(r io.Reader, ext string) (*ModelConfig, error) {
	c := new(ModelConfig)
	if err := decode(r, ext, c); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("rdsimutil: opening parameter file: %v", err)
	}
	defer f.Close()
	return decode(f, filepath.Ext(path), v)
}

func decode(r io.Reader, ext string, v interface{}) error {
	var err error
	switch strings.ToLower(ext) {
	case ".toml":
		_, err = toml.DecodeReader(r, v)
	case ".yaml", ".yml":
		err = yaml.NewDecoder(r).Decode(v)
	case ".json":
		err = json.NewDecoder(r).Decode(v)
	default:
		return fmt.Errorf("rdsimutil: unsupported parameter file type %q; valid options are .toml, .yaml, .yml and .json", ext)
	}
	if err != nil {
		return fmt.Errorf("rdsimutil: decoding parameter file: %v", err)
	}
	return nil
}

// reactions returns the reactions of the built-in mechanism, if any,
// followed by the explicitly listed reactions.
func (c *ModelConfig) reactions() ([]rdsim.ReactionDesc, []string, error) {
	var descs []rdsim.ReactionDesc
	var species []string
	if c.Mechanism.Name != "" {
		m, err := simplechem.New(c.Mechanism.Name, c.Mechanism.Species, c.Mechanism.Params)
		if err != nil {
			return nil, nil, err
		}
		descs = append(descs, m.Reactions()...)
		species = append(species, m.Species()...)
	}
	return append(descs, c.Reactions...), species, nil
}

// Register returns the species register: declared species first, then
// the species of the mechanism, then any other species named in reactions,
// each in order of first appearance.
func (c *ModelConfig) Register() (*rdsim.SpeciesRegister, error) {
	descs, mechSpecies, err := c.reactions()
	if err != nil {
		return nil, err
	}
	b := rdsim.NewRegisterBuilder()
	for _, s := range c.Species {
		b.Add(s.Name)
	}
	return b.Add(mechSpecies...).Add(rdsim.ReferencedSpecies(descs)...).Build()
}

// grid returns the simulation grid.
func (c *ModelConfig) grid() rdsim.Grid {
	return rdsim.Grid{
		Mins: r3.Vec{X: c.Grid.Mins[0], Y: c.Grid.Mins[1], Z: c.Grid.Mins[2]},
		Maxs: r3.Vec{X: c.Grid.Maxs[0], Y: c.Grid.Maxs[1], Z: c.Grid.Maxs[2]},
		Res:  c.Grid.Res,
	}
}

// Model builds the simulation model, reading any referenced NetCDF
// files from inputDir.
func (c *ModelConfig) Model(inputDir string) (*rdsim.Model, error) {
	g := c.grid()
	if err := g.Check(); err != nil {
		return nil, err
	}
	reg, err := c.Register()
	if err != nil {
		return nil, err
	}
	descs, _, err := c.reactions()
	if err != nil {
		return nil, err
	}
	l := &arrayLoader{dir: inputDir, grid: &g, cache: make(map[string]*sparse.DenseArray)}

	initial := make(map[string]*sparse.DenseArray)
	coef := make(map[string]*sparse.DenseArray)
	source := make(map[string]*sparse.DenseArray)
	rxnSource := make(map[string]*sparse.DenseArray)
	var haveSource, haveRxnSource bool
	for _, s := range c.Species {
		for _, a := range []struct {
			field string
			v     interface{}
			dst   map[string]*sparse.DenseArray
			flag  *bool
		}{
			{"Initial", s.Initial, initial, nil},
			{"Diffusion", s.Diffusion, coef, nil},
			{"Source", s.Source, source, &haveSource},
			{"ReactionSource", s.ReactionSource, rxnSource, &haveRxnSource},
		} {
			arr, err := l.load(a.v)
			if err != nil {
				return nil, fmt.Errorf("rdsimutil: species %s %s: %v", s.Name, a.field, err)
			}
			if arr == nil {
				continue
			}
			a.dst[s.Name] = arr
			if a.flag != nil {
				*a.flag = true
			}
		}
	}

	m := &rdsim.Model{
		Grid:      g,
		Species:   reg,
		Reactions: descs,
	}
	if m.Initial, err = rdsim.Compose(&m.Grid, reg, initial); err != nil {
		return nil, err
	}
	if m.Coef, err = rdsim.Compose(&m.Grid, reg, coef); err != nil {
		return nil, err
	}
	if haveSource {
		if m.Source, err = rdsim.Compose(&m.Grid, reg, source); err != nil {
			return nil, err
		}
	}
	if haveRxnSource {
		if m.ReactionSource, err = rdsim.Compose(&m.Grid, reg, rxnSource); err != nil {
			return nil, err
		}
	}
	mult, err := l.load(c.Multiplier)
	if err != nil {
		return nil, fmt.Errorf("rdsimutil: Multiplier: %v", err)
	}
	if mult != nil {
		m.Multiplier = rdsim.NewField(1, &m.Grid)
		if err = m.Multiplier.SetSpecies(0, mult); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// arrayLoader resolves array inputs into (z, y, x) arrays.
type arrayLoader struct {
	dir   string
	grid  *rdsim.Grid
	cache map[string]*sparse.DenseArray
}

// load returns nil for an empty value, a uniform array for a number,
// and the contents of the NetCDF variable for a "file.nc:variable"
// reference.
func (l *arrayLoader) load(v interface{}) (*sparse.DenseArray, error) {
	if v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(os.ExpandEnv(s))
		if s == "" {
			return nil, nil
		}
		if i := strings.LastIndex(s, ":"); i > 0 {
			return l.file(s[:i], s[i+1:])
		}
	}
	val, err := cast.ToFloat64E(v)
	if err != nil {
		return nil, fmt.Errorf("value %v is neither a number nor a 'file.nc:variable' reference", v)
	}
	if math.IsNaN(val) || math.IsInf(val, 0) {
		return nil, fmt.Errorf("value %v is not finite", v)
	}
	a := sparse.ZerosDense(l.grid.Res[2], l.grid.Res[1], l.grid.Res[0])
	for i := range a.Elements {
		a.Elements[i] = val
	}
	return a, nil
}

func (l *arrayLoader) file(name, variable string) (*sparse.DenseArray, error) {
	if !filepath.IsAbs(name) {
		name = filepath.Join(l.dir, name)
	}
	key := name + ":" + variable
	if a, ok := l.cache[key]; ok {
		return a, nil
	}
	a, err := rdsim.ReadNetCDFFile(name, variable)
	if err != nil {
		return nil, err
	}
	want := []int{l.grid.Res[2], l.grid.Res[1], l.grid.Res[0]}
	if len(a.Shape) != 3 || a.Shape[0] != want[0] || a.Shape[1] != want[1] || a.Shape[2] != want[2] {
		return nil, fmt.Errorf("%s has shape %v but the grid needs (z, y, x) = %v", key, a.Shape, want)
	}
	l.cache[key] = a
	return a, nil
}
