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

// Command rdsim is a command-line interface for the RDSim
// reaction-diffusion simulator.
package main

import (
	"fmt"
	"os"

	"github.com/spatialmodel/rdsim/rdsimutil"
)

func main() {
	if err := rdsimutil.Root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
