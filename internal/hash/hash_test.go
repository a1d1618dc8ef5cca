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

package hash

import "testing"

type model struct {
	Name   string
	Params map[string]float64
	Next   *model
}

func TestHash(t *testing.T) {
	a := &model{Name: "a", Params: map[string]float64{"k": 1, "kb": 2, "kf": 3}, Next: &model{Name: "b"}}
	b := &model{Name: "a", Params: map[string]float64{"kf": 3, "k": 1, "kb": 2}, Next: &model{Name: "b"}}
	ha, hb := Hash(a), Hash(b)
	if ha != hb {
		t.Errorf("equal contents gave %s and %s", ha, hb)
	}
	if len(ha) != 32 {
		t.Errorf("have %d hex digits, want 32", len(ha))
	}
	b.Next.Name = "c"
	if Hash(b) == ha {
		t.Error("different contents gave the same key")
	}
}
