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

// Package rdsimutil contains the command-line interface for RDSim.
package rdsimutil

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/rdsim"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to RDSim.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "Time",
			usage: `
              Time specifies the total simulated time in seconds.`,
			shorthand:  "t",
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "Dumps",
			usage: `
              Dumps specifies the number of snapshots to write. Snapshots
              are evenly spaced in time and the last one is at the end
              of the simulation.`,
			shorthand:  "d",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "BlockSize",
			usage: `
              BlockSize specifies the number of voxels each worker claims
              at a time.`,
			defaultVal: 1024,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "Quality",
			usage: `
              Quality is a number between 0 and 1 that controls the
              step sizes. Larger values give smaller diffusion steps
              and larger reaction steps.`,
			shorthand:  "q",
			defaultVal: 0.5,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "MinTime",
			usage: `
              MinTime specifies the smallest allowed reaction step in seconds.`,
			defaultVal: 1.0e-6,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "NumThreads",
			usage: `
              NumThreads specifies the maximum number of workers. The
              default of 0 uses one worker per processor.`,
			shorthand:  "n",
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "MaxTimestep",
			usage: `
              MaxTimestep caps the diffusion step in seconds. It is
              required when every diffusion coefficient is zero. The
              default of 0 means no cap.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "Boundary",
			usage: `
              Boundary specifies the treatment of the domain edges for
              diffusion. Options are "zeroflux", "mirror" and "dirichlet".`,
			shorthand:  "b",
			defaultVal: "zeroflux",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "OutputFormat",
			usage: `
              OutputFormat specifies the formats to write each snapshot in.
              Options are "netcdf", "csv" and "summary".`,
			defaultVal: []string{"netcdf"},
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputPrefix",
			usage: `
              OutputPrefix specifies the beginning of the output file names.`,
			defaultVal: "rdsim",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies derived variables to write in
              addition to the species, as a map of names to expressions.
              Expressions can refer to species and to other derived
              variables. Environment variables in expressions are expanded.
              When set on the command line, the value should be JSON, for
              example '{"Total":"A+B"}'.`,
			defaultVal: map[string]string{},
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), checkCmd.Flags()},
		},
		{
			name: "SaveRetries",
			usage: `
              SaveRetries specifies how many times writing a snapshot is
              retried before the simulation fails.`,
			defaultVal: 3,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile specifies the path to the desired logfile location. It
              can include environment variables. If LogFile is left blank,
              the logfile will be saved in the output directory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the verbosity of the log. Options are
              "debug", "info", "warning" and "error".`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Restart",
			usage: `
              Restart specifies a checkpoint file to continue a simulation
              from.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Checkpoint",
			usage: `
              Checkpoint specifies a file to write the final state of the
              simulation to, so it can be continued with --Restart.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RDSIM")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(checkCmd)
}

// setConfig reads in the parameter file, which also holds the
// configuration options. Cfg receives the file contents as JSON.
func setConfig(path string) error {
	raw := make(map[string]interface{})
	if err := decodeFile(path, &raw); err != nil {
		return err
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("rdsim: problem reading configuration file: %v", err)
	}
	Cfg.SetConfigType("json")
	if err := Cfg.ReadConfig(bytes.NewReader(b)); err != nil {
		return fmt.Errorf("rdsim: problem reading configuration file: %v", err)
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "rdsim",
	Short: "A three-dimensional reaction-diffusion simulator.",
	Long: `RDSim simulates the diffusion and reaction of chemical species on a
regular three-dimensional grid. Use the subcommands specified below to
access the model functionality.

The first argument of each simulation subcommand is a parameter file in TOML,
YAML or JSON format. It describes the grid, the species and the reactions,
and it can also set any of the configuration options. Options can also be set
with command-line arguments or with environment variables in the format
'RDSIM_var' where 'var' is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return nil
		}
		return setConfig(args[0])
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of RDSim.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("RDSim v%s\n", rdsim.Version)
	},
	DisableAutoGenTag: true,
}

// runCmd is a command that runs a simulation.
var runCmd = &cobra.Command{
	Use:   "run PARAMS INPUT_DIR OUTPUT_DIR",
	Short: "Run a simulation.",
	Long: `run runs a simulation described by the parameter file PARAMS. Files
referred to in PARAMS are read from INPUT_DIR and snapshots are written to
OUTPUT_DIR.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := LoadModelConfig(args[0])
		if err != nil {
			return err
		}
		s, err := SettingsFromConfig(Cfg)
		if err != nil {
			return err
		}
		oc, err := OutputConfigFromConfig(Cfg, args[2])
		if err != nil {
			return err
		}
		return Run(cmd, mc, args[1], s, oc)
	},
	DisableAutoGenTag: true,
}

// checkCmd is a command that checks a simulation setup without running it.
var checkCmd = &cobra.Command{
	Use:   "check PARAMS INPUT_DIR",
	Short: "Check a simulation setup.",
	Long: `check reads the parameter file PARAMS and the files it refers to in
INPUT_DIR, checks them, and prints the species, the diffusion step and the
number of steps per snapshot without running the simulation.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mc, err := LoadModelConfig(args[0])
		if err != nil {
			return err
		}
		s, err := SettingsFromConfig(Cfg)
		if err != nil {
			return err
		}
		outputVars, err := GetStringMapString("OutputVariables", Cfg)
		if err != nil {
			return err
		}
		return Check(cmd, mc, args[1], s, checkOutputVars(outputVars))
	},
	DisableAutoGenTag: true,
}
