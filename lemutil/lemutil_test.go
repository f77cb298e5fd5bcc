/*
Copyright © 2020 the DupuitLEM authors.
This file is part of DupuitLEM.

DupuitLEM is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

DupuitLEM is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with DupuitLEM.  If not, see <http://www.gnu.org/licenses/>.
*/

package lemutil

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dupuitlem/grid"
)

const configExample = "../cmd/dupuitlem/configExample.toml"

func quiet() *logrus.Logger {
	l := logrus.New()
	l.Level = logrus.ErrorLevel
	return l
}

func TestVersion(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Cfg.Set("config", "")
	Root.SetArgs([]string{"version"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "DupuitLEM v") {
		t.Errorf("unexpected version output %q", buf.String())
	}
}

// lookup returns the value of key in m, ignoring case, since the
// configuration may report keys as written or lower-cased.
func lookup(m map[string]interface{}, key string) interface{} {
	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return nil
}

func TestConfig(t *testing.T) {
	var buf bytes.Buffer
	Root.SetOutput(&buf)
	defer Root.SetOutput(nil)
	Cfg.Set("config", configExample)
	Root.SetArgs([]string{"config"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	var settings map[string]interface{}
	if _, err := toml.Decode(buf.String(), &settings); err != nil {
		t.Fatalf("decoding configuration output: %v\n%s", err, buf.String())
	}
	g, ok := lookup(settings, "Grid").(map[string]interface{})
	if !ok {
		t.Fatalf("missing Grid table in %v", settings)
	}
	if nrows := lookup(g, "NRows"); nrows != int64(10) {
		t.Errorf("Grid.NRows = %v; want 10", nrows)
	}
}

func TestClosedEdges(t *testing.T) {
	right, top, left, bottom, err := closedEdges([]string{"right", " Top", "left"})
	if err != nil {
		t.Fatal(err)
	}
	if !right || !top || !left || bottom {
		t.Errorf("edges = %v %v %v %v", right, top, left, bottom)
	}
	if _, _, _, _, err := closedEdges([]interface{}{"bottom", ""}); err != nil {
		t.Error(err)
	}
	if _, _, _, _, err := closedEdges([]string{"north"}); err == nil {
		t.Error("invalid edge should cause an error")
	}
	if _, _, _, _, err := closedEdges([]string{"right", "top", "left", "bottom"}); err == nil {
		t.Error("closing every edge should cause an error")
	}
}

func TestNewGrid(t *testing.T) {
	Cfg.Set("config", configExample)
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	g, err := NewGrid(Cfg)
	if err != nil {
		t.Fatal(err)
	}
	if g.NRows != 10 || g.NCols != 10 {
		t.Fatalf("grid shape %dx%d", g.NRows, g.NCols)
	}
	z, err := g.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		t.Fatal(err)
	}
	wt, err := g.Field(grid.AtNode, grid.WaterTableElevation)
	if err != nil {
		t.Fatal(err)
	}
	for n := range z {
		if wt[n] != z[n] {
			t.Errorf("node %d: water table %g != surface %g", n, wt[n], z[n])
		}
		if g.IsCore(n) {
			if z[n] < 1 || z[n] > 1.01 {
				t.Errorf("core node %d elevation %g out of range", n, z[n])
			}
		} else if z[n] != 0 {
			t.Errorf("boundary node %d elevation %g", n, z[n])
		}
	}
	if len(g.OpenBoundaryNodes()) == 0 {
		t.Error("grid should have an outlet")
	}
}

func TestBuildErrors(t *testing.T) {
	Cfg.Set("config", configExample)
	if err := setConfig(); err != nil {
		t.Fatal(err)
	}
	defer Cfg.Set("Hydrology.Aggregator", "DischargeVolume")
	defer Cfg.Set("Hydrology.RoutingMethod", "D8")
	defer Cfg.Set("TotalTime", 2.6e9)

	Cfg.Set("Hydrology.Aggregator", "Maximum")
	for _, mode := range []Mode{Steady, Stochastic} {
		if _, err := Build(Cfg, mode, quiet()); err == nil {
			t.Errorf("%s: invalid aggregator should cause an error", mode)
		}
	}
	Cfg.Set("Hydrology.Aggregator", "DischargeVolume")
	Cfg.Set("Hydrology.RoutingMethod", "MFD")
	if _, err := Build(Cfg, Stochastic, quiet()); err == nil {
		t.Error("invalid routing method should cause an error")
	}
	Cfg.Set("Hydrology.RoutingMethod", "D8")
	Cfg.Set("TotalTime", 1.0)
	if _, err := Build(Cfg, Steady, quiet()); err == nil {
		t.Error("TotalTime shorter than one step should cause an error")
	}
}

func TestRun(t *testing.T) {
	for _, test := range []struct {
		args       []string
		aggregator string
		vadose     bool
	}{
		{args: []string{"run", "steady"}, aggregator: "DischargeVolume"},
		{args: []string{"run", "steady"}, aggregator: "IntegrateShearStress"},
		{args: []string{"run", "stochastic"}, aggregator: "DischargeVolume"},
		{args: []string{"run", "stochastic"}, aggregator: "DischargeVolume", vadose: true},
		{args: []string{"run", "stochastic"}, aggregator: "IntegrateShearStress"},
		{args: []string{"run", "stochastic"}, aggregator: "EventShearStress"},
	} {
		t.Run(strings.Join(append(test.args[1:], test.aggregator), "_"), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "out.toml")
			Cfg.Set("config", configExample)
			Cfg.Set("LogLevel", "error")
			Cfg.Set("OutputFile", out)
			Cfg.Set("Hydrology.Aggregator", test.aggregator)
			Cfg.Set("Hydrology.VadoseZone", test.vadose)
			Cfg.Set("Vadose.NumBins", 50)
			defer Cfg.Set("Hydrology.VadoseZone", false)
			defer Cfg.Set("Hydrology.Aggregator", "DischargeVolume")
			Root.SetArgs(test.args)
			if err := Root.Execute(); err != nil {
				t.Fatal(err)
			}

			var result struct {
				Time      float64
				Iteration int
				NRows     int
				NCols     int
				Fields    map[string][]float64
			}
			if _, err := toml.DecodeFile(out, &result); err != nil {
				t.Fatal(err)
			}
			if result.Iteration < 1 || result.NRows != 10 || result.NCols != 10 {
				t.Errorf("unexpected output header %+v", result)
			}
			z := result.Fields[grid.TopographicElevation]
			b := result.Fields[grid.AquiferBaseElevation]
			if len(z) != 100 || len(b) != 100 {
				t.Fatalf("output fields have lengths %d and %d", len(z), len(b))
			}
			for i := range z {
				if math.IsNaN(z[i]) || math.IsInf(z[i], 0) {
					t.Fatalf("node %d: invalid elevation %g", i, z[i])
				}
				if z[i] < b[i] {
					t.Errorf("node %d: surface %g below aquifer base %g", i, z[i], b[i])
				}
			}
		})
	}
}
