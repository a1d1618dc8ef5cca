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
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rdsim"
	"github.com/spf13/cast"
)

// Output formats.
const (
	FormatNetCDF  = "netcdf"
	FormatCSV     = "csv"
	FormatSummary = "summary"
)

// SettingsFromConfig creates the simulation settings from the
// configuration information in cfg.
func SettingsFromConfig(cfg *viper.Viper) (rdsim.Settings, error) {
	b, err := rdsim.ParseBoundary(os.ExpandEnv(cfg.GetString("Boundary")))
	if err != nil {
		return rdsim.Settings{}, err
	}
	s := rdsim.Settings{
		Time:        cfg.GetFloat64("Time"),
		Dumps:       cfg.GetInt("Dumps"),
		BlockSize:   cfg.GetInt("BlockSize"),
		Quality:     cfg.GetFloat64("Quality"),
		MinTime:     cfg.GetFloat64("MinTime"),
		NumThreads:  cfg.GetInt("NumThreads"),
		MaxTimestep: cfg.GetFloat64("MaxTimestep"),
		Boundary:    b,
	}
	if err := s.Check(); err != nil {
		return rdsim.Settings{}, err
	}
	return s, nil
}

// OutputConfig holds the output options of a simulation.
type OutputConfig struct {
	// Dir is the directory output files are written to.
	Dir string

	// Prefix begins the output file names.
	Prefix string

	// Formats lists the formats each snapshot is written in.
	Formats []string

	// Variables are derived output variables.
	Variables map[string]string

	// Retries is the number of times a failed save is retried.
	Retries int

	LogFile  string
	LogLevel logrus.Level

	// Restart and Checkpoint are optional checkpoint file paths to
	// read the initial state from and write the final state to.
	Restart, Checkpoint string
}

// OutputConfigFromConfig creates the output options from the configuration
// information in cfg. outputDir must exist.
func OutputConfigFromConfig(cfg *viper.Viper, outputDir string) (*OutputConfig, error) {
	dir, err := checkOutputDir(outputDir)
	if err != nil {
		return nil, err
	}
	formats, err := checkOutputFormats(expandStringSlice(cfg.GetStringSlice("OutputFormat")))
	if err != nil {
		return nil, err
	}
	vars, err := GetStringMapString("OutputVariables", cfg)
	if err != nil {
		return nil, err
	}
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return nil, fmt.Errorf("rdsim: invalid LogLevel: %v", err)
	}
	retries := cfg.GetInt("SaveRetries")
	if retries < 0 {
		return nil, fmt.Errorf("rdsim: SaveRetries must not be negative; got %d", retries)
	}
	prefix := os.ExpandEnv(cfg.GetString("OutputPrefix"))
	if prefix == "" {
		return nil, fmt.Errorf("rdsim: OutputPrefix must not be empty")
	}
	return &OutputConfig{
		Dir:        dir,
		Prefix:     prefix,
		Formats:    formats,
		Variables:  checkOutputVars(vars),
		Retries:    retries,
		LogFile:    checkLogFile(cfg.GetString("LogFile"), dir, prefix),
		LogLevel:   level,
		Restart:    os.ExpandEnv(cfg.GetString("Restart")),
		Checkpoint: os.ExpandEnv(cfg.GetString("Checkpoint")),
	}, nil
}

// checkOutputVars removes line breaks from the output variable
// expressions and expands any environment variables in them.
func checkOutputVars(vars map[string]string) map[string]string {
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o
}

// expandStringSlice expands environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

func checkOutputDir(dir string) (string, error) {
	dir = os.ExpandEnv(dir)
	fi, err := os.Stat(dir)
	if err != nil {
		return dir, fmt.Errorf("rdsim: the output directory doesn't exist: %v", err)
	}
	if !fi.IsDir() {
		return dir, fmt.Errorf("rdsim: the output location %s is not a directory", dir)
	}
	return dir, nil
}

func checkOutputFormats(formats []string) ([]string, error) {
	if len(formats) == 0 {
		return nil, fmt.Errorf("rdsim: there are no output formats specified")
	}
	for i, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		switch f {
		case FormatNetCDF, FormatCSV, FormatSummary:
			formats[i] = f
		default:
			return nil, fmt.Errorf("rdsim: invalid OutputFormat %q; valid options are %q, %q and %q",
				f, FormatNetCDF, FormatCSV, FormatSummary)
		}
	}
	return formats, nil
}

// checkLogFile returns the log file location, which defaults to the
// output directory.
func checkLogFile(logFile, outputDir, prefix string) string {
	if logFile == "" {
		return filepath.Join(outputDir, prefix+".log")
	}
	return os.ExpandEnv(logFile)
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a JSON string from a command-line
// flag or environment variable.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case nil:
		return map[string]string{}, nil
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return map[string]string{}, nil
		}
		o := make(map[string]string)
		if err := json.NewDecoder(bytes.NewBufferString(v)).Decode(&o); err != nil {
			return nil, fmt.Errorf("rdsim: decoding %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("rdsim: invalid type for %s: %#v", varName, i)
	}
}
