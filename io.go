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
	"regexp"
	"sort"

	"github.com/Knetic/govaluate"
	"github.com/ctessum/sparse"
)

// Snapshot is the state of a simulation at the end of a macro-step.
type Snapshot struct {
	// Index is the dump index, starting at zero.
	Index int

	// Time is the simulated time [s].
	Time float64

	Grid Grid

	// Names and Data hold one (Z, Y, X) array per species followed by
	// one per derived output variable.
	Names []string
	Data  []*sparse.DenseArray
}

// Variable returns the data for the named variable, or nil.
func (s *Snapshot) Variable(name string) *sparse.DenseArray {
	for i, n := range s.Names {
		if n == name {
			return s.Data[i]
		}
	}
	return nil
}

// A Saver stores snapshots.
type Saver interface {
	Save(*Snapshot) error
}

// SaverFunc adapts a function to the Saver interface.
type SaverFunc func(*Snapshot) error

// Save calls f(s).
func (f SaverFunc) Save(s *Snapshot) error { return f(s) }

// Snapshot returns a copy of the current state of d.
func (d *Simulation) Snapshot() *Snapshot {
	s := &Snapshot{
		Index: d.Dump - 1,
		Time:  d.Time,
		Grid:  *d.Grid,
		Names: d.Species.Names(),
		Data:  make([]*sparse.DenseArray, d.Species.Len()),
	}
	for i := range s.Data {
		s.Data[i] = d.Conc.Slice(i)
	}
	return s
}

// Outputter computes derived output variables and passes snapshots
// to savers.
//
// outputVariables maps the names of derived variables to expressions
// that define how they are calculated. The expressions can use species
// names, other derived variables, and functions.
//
// modelVariables lists the species the expressions depend on.
type Outputter struct {
	outputVariables map[string]string
	names           []string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
}

// NewOutputter returns an Outputter for the given derived variables.
// outputFunctions are added to the default functions, which are
// exp(x), log(x), sqrt(x), abs(x), min(x, y) and max(x, y).
func NewOutputter(outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	oneArg := func(name string, f func(float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("rdsim: got %d arguments for function '%s', but needs 1", len(arg), name)
			}
			x, ok := arg[0].(float64)
			if !ok {
				return nil, fmt.Errorf("rdsim: invalid argument %v for function '%s'", arg[0], name)
			}
			return f(x), nil
		}
	}
	twoArg := func(name string, f func(float64, float64) float64) govaluate.ExpressionFunction {
		return func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 2 {
				return nil, fmt.Errorf("rdsim: got %d arguments for function '%s', but needs 2", len(arg), name)
			}
			x, ok1 := arg[0].(float64)
			y, ok2 := arg[1].(float64)
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("rdsim: invalid arguments %v for function '%s'", arg, name)
			}
			return f(x, y), nil
		}
	}
	funcs := map[string]govaluate.ExpressionFunction{
		"exp":  oneArg("exp", math.Exp),
		"log":  oneArg("log", math.Log),
		"sqrt": oneArg("sqrt", math.Sqrt),
		"abs":  oneArg("abs", math.Abs),
		"min":  twoArg("min", math.Min),
		"max":  twoArg("max", math.Max),
	}
	for k, v := range outputFunctions {
		funcs[k] = v
	}

	o := &Outputter{
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: funcs,
		expressions:     make(map[string]*govaluate.EvaluableExpression),
	}
	for k, v := range outputVariables {
		o.outputVariables[k] = v
		o.names = append(o.names, k)
	}
	sort.Strings(o.names)
	if err := checkOutputNames(o.names); err != nil {
		return nil, err
	}
	if err := o.checkForDerivatives(); err != nil {
		return nil, err
	}
	return o, nil
}

var outputNameRegexp = regexp.MustCompile(`^[A-Za-z_]\w*$`)

// checkOutputNames checks that derived variable names can be used as
// variable names in NetCDF files and in expressions.
func checkOutputNames(names []string) error {
	for _, n := range names {
		if !outputNameRegexp.MatchString(n) {
			return fmt.Errorf("rdsim: output variable name '%s' includes unsupported characters", n)
		}
	}
	return nil
}

// checkForDerivatives replaces references to other derived variables
// with their defining expressions, so that every expression depends
// only on species, and records the species required.
func (o *Outputter) checkForDerivatives() error {
	// Each pass substitutes one level of references; more passes than
	// variables means a cycle.
	for pass := 0; ; pass++ {
		if pass > len(o.names) {
			return fmt.Errorf("rdsim: output variables have circular definitions")
		}
		changed := false
		for _, key := range o.names {
			expression, err := govaluate.NewEvaluableExpressionWithFunctions(o.outputVariables[key], o.outputFunctions)
			if err != nil {
				return fmt.Errorf("rdsim: output variable %s: %v", key, err)
			}
			for _, v := range removeDuplicates(expression.Vars()) {
				def, ok := o.outputVariables[v]
				if !ok {
					continue
				}
				re := regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\b`)
				o.outputVariables[key] = re.ReplaceAllLiteralString(o.outputVariables[key], "("+def+")")
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	o.modelVariables = o.modelVariables[:0]
	for _, key := range o.names {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(o.outputVariables[key], o.outputFunctions)
		if err != nil {
			return fmt.Errorf("rdsim: output variable %s: %v", key, err)
		}
		o.expressions[key] = expression
		o.modelVariables = append(o.modelVariables, expression.Vars()...)
	}
	o.modelVariables = removeDuplicates(o.modelVariables)
	return nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// Names returns the names of the derived variables in sorted order.
func (o *Outputter) Names() []string { return append([]string(nil), o.names...) }

// Expression returns the resolved expression for a derived variable.
func (o *Outputter) Expression(name string) string { return o.outputVariables[name] }

// CheckOutputVars ensures the output variables can be calculated from
// the species in the simulation and do not shadow them.
func (o *Outputter) CheckOutputVars() DomainManipulator {
	return func(d *Simulation) error {
		for _, v := range o.modelVariables {
			if _, err := d.Species.Index(v); err != nil {
				return fmt.Errorf("rdsim: undefined variable name '%s' in output expressions", v)
			}
		}
		for _, n := range o.names {
			if _, err := d.Species.Index(n); err == nil {
				return fmt.Errorf("rdsim: output variable '%s' has the same name as a species", n)
			}
		}
		return nil
	}
}

// Derive appends the derived variables to s.
func (o *Outputter) Derive(s *Snapshot) error {
	if len(o.names) == 0 {
		return nil
	}
	idx := make(map[string]int, len(o.modelVariables))
	for _, v := range o.modelVariables {
		for i, n := range s.Names {
			if n == v {
				idx[v] = i
				break
			}
		}
		if _, ok := idx[v]; !ok {
			return fmt.Errorf("rdsim: output: variable '%s' not in snapshot", v)
		}
	}
	n := len(s.Data[0].Elements)
	shape := s.Data[0].Shape
	out := make([]*sparse.DenseArray, len(o.names))
	for i := range out {
		out[i] = sparse.ZerosDense(shape...)
	}
	params := make(map[string]interface{}, len(idx))
	for e := 0; e < n; e++ {
		for v, i := range idx {
			params[v] = s.Data[i].Elements[e]
		}
		for i, name := range o.names {
			r, err := o.expressions[name].Evaluate(params)
			if err != nil {
				return fmt.Errorf("rdsim: evaluating output variable %s: %v", name, err)
			}
			f, ok := r.(float64)
			if !ok {
				return fmt.Errorf("rdsim: output variable %s evaluates to %T, not a number", name, r)
			}
			out[i].Elements[e] = f
		}
	}
	s.Names = append(s.Names, o.names...)
	s.Data = append(s.Data, out...)
	return nil
}

// Output returns a function that takes a snapshot of the simulation,
// adds the derived variables, and passes it to each saver in turn.
// o may be nil, in which case only species are output.
func (o *Outputter) Output(savers ...Saver) DomainManipulator {
	return func(d *Simulation) error {
		if len(savers) == 0 {
			return nil
		}
		s := d.Snapshot()
		if o != nil {
			if err := o.Derive(s); err != nil {
				return err
			}
		}
		for _, sv := range savers {
			if err := sv.Save(s); err != nil {
				return fmt.Errorf("rdsim: saving dump %d: %w", s.Index, err)
			}
		}
		return nil
	}
}
