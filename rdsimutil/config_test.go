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
	"errors"
	"path/filepath"
	"testing"

	"github.com/kr/pretty"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rdsim"
)

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	want := map[string]string{"Total": "A + B"}
	for _, v := range []interface{}{
		map[string]string{"Total": "A + B"},
		map[string]interface{}{"Total": "A + B"},
		`{"Total": "A + B"}`,
	} {
		cfg.Set("OutputVariables", v)
		have, err := GetStringMapString("OutputVariables", cfg)
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(have, want); len(diff) != 0 {
			t.Errorf("%T: %v", v, diff)
		}
	}
	cfg.Set("OutputVariables", "{")
	if _, err := GetStringMapString("OutputVariables", cfg); err == nil {
		t.Error("invalid JSON should be an error")
	}
	if m, err := GetStringMapString("unset", cfg); err != nil || len(m) != 0 {
		t.Errorf("unset variable: %v, %v", m, err)
	}
}

func TestCheckOutputVars(t *testing.T) {
	t.Setenv("RDSIM_TEST_SPECIES", "B")
	have := checkOutputVars(map[string]string{"Total": "A +\n$RDSIM_TEST_SPECIES"})
	if diff := pretty.Diff(have, map[string]string{"Total": "A + B"}); len(diff) != 0 {
		t.Error(diff)
	}
}

func TestCheckOutputFormats(t *testing.T) {
	have, err := checkOutputFormats([]string{"NetCDF", " csv", "summary"})
	if err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(have, []string{FormatNetCDF, FormatCSV, FormatSummary}); len(diff) != 0 {
		t.Error(diff)
	}
	if _, err = checkOutputFormats([]string{"shapefile"}); err == nil {
		t.Error("unknown format should be an error")
	}
	if _, err = checkOutputFormats(nil); err == nil {
		t.Error("no formats should be an error")
	}
}

func TestSettingsFromConfig(t *testing.T) {
	cfg := viper.New()
	cfg.Set("Time", 10.0)
	cfg.Set("Dumps", 5)
	cfg.Set("BlockSize", 16)
	cfg.Set("Quality", 0.25)
	cfg.Set("MinTime", 1e-5)
	cfg.Set("NumThreads", 2)
	cfg.Set("MaxTimestep", 0.5)
	cfg.Set("Boundary", "Mirror")
	s, err := SettingsFromConfig(cfg)
	if err != nil {
		t.Fatal(err)
	}
	want := rdsim.Settings{
		Time:        10,
		Dumps:       5,
		BlockSize:   16,
		Quality:     0.25,
		MinTime:     1e-5,
		NumThreads:  2,
		MaxTimestep: 0.5,
		Boundary:    rdsim.Mirror,
	}
	if s != want {
		t.Errorf("settings: %v", pretty.Diff(s, want))
	}

	cfg.Set("Boundary", "periodic")
	if _, err = SettingsFromConfig(cfg); !errors.Is(err, rdsim.ErrPrecondition) {
		t.Errorf("have %v, want precondition error", err)
	}
	cfg.Set("Boundary", "dirichlet")
	cfg.Set("Quality", 1.5)
	if _, err = SettingsFromConfig(cfg); !errors.Is(err, rdsim.ErrPrecondition) {
		t.Errorf("have %v, want precondition error", err)
	}
}

func TestOutputConfigFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := viper.New()
	cfg.Set("OutputFormat", []string{"csv", "summary"})
	cfg.Set("OutputPrefix", "out")
	cfg.Set("OutputVariables", `{"Total": "A + B"}`)
	cfg.Set("SaveRetries", 2)
	cfg.Set("LogLevel", "warning")
	cfg.Set("Checkpoint", filepath.Join(dir, "final.gob"))
	oc, err := OutputConfigFromConfig(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	want := &OutputConfig{
		Dir:        dir,
		Prefix:     "out",
		Formats:    []string{FormatCSV, FormatSummary},
		Variables:  map[string]string{"Total": "A + B"},
		Retries:    2,
		LogFile:    filepath.Join(dir, "out.log"),
		LogLevel:   logrus.WarnLevel,
		Checkpoint: filepath.Join(dir, "final.gob"),
	}
	if diff := pretty.Diff(*oc, *want); len(diff) != 0 {
		t.Error(diff)
	}

	if _, err = OutputConfigFromConfig(cfg, filepath.Join(dir, "missing")); err == nil {
		t.Error("a missing output directory should be an error")
	}
	cfg.Set("LogLevel", "loud")
	if _, err = OutputConfigFromConfig(cfg, dir); err == nil {
		t.Error("an invalid log level should be an error")
	}
	cfg.Set("LogLevel", "info")
	cfg.Set("SaveRetries", -1)
	if _, err = OutputConfigFromConfig(cfg, dir); err == nil {
		t.Error("negative retries should be an error")
	}
}
