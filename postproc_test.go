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

package dupuitlem

import (
	"errors"
	"math"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/dupuitlem/flow"
	"github.com/spatialmodel/dupuitlem/grid"
	"gonum.org/v1/gonum/floats"
)

// slopingGrid returns a grid that drains to the south, with a flow
// router whose directions are up to date.
func slopingGrid(t *testing.T, method string) (*grid.Raster, *flow.Router) {
	g, err := grid.NewRaster(5, 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	g.SetClosedBoundaries(true, true, true, false)
	z := g.AddField(grid.AtNode, grid.TopographicElevation)
	for n := range z {
		z[n] = 0.5*float64(n/4) + 0.01*float64(n%4)
	}
	runoff := g.AddField(grid.AtNode, grid.SurfaceWaterSpecificDischarge)
	for i := range runoff {
		runoff[i] = 1e-6
	}
	r, err := flow.NewRouter(g, method)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.UpdateDirections(); err != nil {
		t.Fatal(err)
	}
	return g, r
}

func TestThresholdDischargeZero(t *testing.T) {
	g, r := slopingGrid(t, "D8")
	td, err := NewThresholdDischarge(g, "D8", 0, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if err := td.PrepareStep(r, g); err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(td.CriticalDischarge(), make([]float64, g.NumNodes())) {
		t.Errorf("critical discharge should be zero: %v", td.CriticalDischarge())
	}
	_, q, err := r.Accumulate(false)
	if err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(td.FilterDischarge(q), q) {
		t.Error("discharge changed with no threshold")
	}
}

func TestThresholdDischarge(t *testing.T) {
	const e0, ksp = 1e-4, 1e-3
	for _, method := range []string{"D8", "Steepest"} {
		t.Run(method, func(t *testing.T) {
			g, r := slopingGrid(t, method)
			td, err := NewThresholdDischarge(g, method, e0, ksp)
			if err != nil {
				t.Fatal(err)
			}
			if err := td.PrepareStep(r, g); err != nil {
				t.Fatal(err)
			}
			area, q, err := r.Accumulate(false)
			if err != nil {
				t.Fatal(err)
			}
			slope, _ := g.Field(grid.AtNode, grid.SteepestSlope)
			q0 := td.CriticalDischarge()
			for n := range q0 {
				var want float64
				if slope[n] > 0 {
					want = e0 * math.Sqrt(area[n]) / (ksp * slope[n])
				}
				if math.Abs(q0[n]-want) > 1e-9*math.Max(want, 1) {
					t.Errorf("node %d: Q0 have %g, want %g", n, q0[n], want)
				}
			}
			filtered := td.FilterDischarge(q)
			for n := range q {
				if want := math.Max(q[n]-q0[n], 0); filtered[n] != want {
					t.Errorf("node %d: filtered discharge have %g, want %g", n, filtered[n], want)
				}
			}
			out := make(map[string][]float64)
			if err := td.Finalize(out, area); err != nil {
				t.Fatal(err)
			}
			if !floats.Equal(out[grid.CriticalErosionDischarge], q0) {
				t.Error("critical discharge not reported")
			}
		})
	}
}

func TestNewThresholdDischargeErrors(t *testing.T) {
	g, _ := slopingGrid(t, "D8")
	if _, err := NewThresholdDischarge(g, "MFD", 0, 1); !errors.Is(err, ErrRoutingMethod) {
		t.Errorf("have %v, want %v", err, ErrRoutingMethod)
	}
	if _, err := NewThresholdDischarge(g, "D8", -1, 1); err == nil {
		t.Error("negative threshold should cause an error")
	}
	if _, err := NewThresholdDischarge(g, "D8", 0, 0); err == nil {
		t.Error("zero erodibility should cause an error")
	}
}

func TestThresholdDischargeRouter(t *testing.T) {
	g, r := slopingGrid(t, "D8")
	td, err := NewThresholdDischarge(g, "Steepest", 1e-4, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if err := td.PrepareStep(r, g); err == nil {
		t.Error("mismatched routing method should cause an error")
	}
	if err := td.PrepareStep(&fakeRouter{}, g); err == nil {
		t.Error("a router without receiver links should cause an error")
	}
}

// fakeVadose is a vadose model with a fixed recharge table.
type fakeVadose struct {
	depths, recharge []float64
	events           []float64
	interevents      []float64
}

func (v *fakeVadose) RunEvent(d float64)         { v.events = append(v.events, d) }
func (v *fakeVadose) RunInterevent(t float64)    { v.interevents = append(v.interevents, t) }
func (v *fakeVadose) Depths() []float64          { return v.depths }
func (v *fakeVadose) RechargeAtDepth() []float64 { return v.recharge }

func TestVadoseDelay(t *testing.T) {
	g, err := grid.NewRaster(4, 4, 10)
	if err != nil {
		t.Fatal(err)
	}
	z := g.AddField(grid.AtNode, grid.TopographicElevation)
	wt := g.AddField(grid.AtNode, grid.WaterTableElevation)
	for n := range z {
		z[n] = 10
		wt[n] = 10
	}
	// Core nodes are 5, 6, 9, and 10.
	wt[5] = 9.5 // at a bucket edge
	wt[6] = 9.3 // between buckets
	wt[9] = 8   // at the last bucket
	wt[10] = 5  // deeper than the profile

	m := &fakeVadose{
		depths:   []float64{0.5, 1, 1.5, 2},
		recharge: []float64{0.04, 0.03, 0, 0.01},
	}
	v := NewVadoseDelay(g, m)
	if err := v.PrepareStep(nil, g); err != nil {
		t.Fatal(err)
	}
	gw := &fakeGroundwater{n: g.NumNodes()}
	e := Event{Storm: 100, Interstorm: 0, Intensity: 1e-3}
	if err := v.EventRecharge(gw, e); err != nil {
		t.Fatal(err)
	}
	if len(m.events) != 1 || math.Abs(m.events[0]-0.1) > 1e-15 {
		t.Errorf("event depths: %v", m.events)
	}
	want := make([]float64, g.NumNodes())
	want[5] = 0.04 / 100
	want[6] = 0.03 / 100
	want[9] = 0.01 / 100
	want[10] = 0.01 / 100
	if diff := pretty.Diff(gw.Recharge(), want); len(diff) > 0 {
		t.Errorf("recharge: %v", diff)
	}
	field, _ := g.Field(grid.AtNode, grid.RechargeRate)
	if !floats.Equal(field, want) {
		t.Errorf("recharge_rate field: have %v, want %v", field, want)
	}

	if err := v.IntereventRecharge(gw, e); err != nil {
		t.Fatal(err)
	}
	if !floats.Equal(m.interevents, []float64{0}) {
		t.Errorf("interevent durations: %v", m.interevents)
	}
	if floats.Sum(gw.Recharge()) != 0 {
		t.Error("recharge between storms should be zero")
	}

	if err := v.EventRecharge(gw, e); err != nil {
		t.Fatal(err)
	}
	if !floats.EqualApprox(v.CumulativeRecharge(), []float64{0.08, 0.06, 0, 0.02}, 1e-15) {
		t.Errorf("cumulative recharge: %v", v.CumulativeRecharge())
	}
	if !floats.Equal(v.RechargeCount(), []float64{2, 2, 0, 2}) {
		t.Errorf("recharge count: %v", v.RechargeCount())
	}
	if !floats.EqualApprox(v.MeanRecharge(), []float64{0.04, 0.03, 0, 0.01}, 1e-15) {
		t.Errorf("mean recharge: %v", v.MeanRecharge())
	}
	if !floats.Equal(v.RechargeFrequency(200), []float64{0.01, 0.01, 0, 0.01}) {
		t.Errorf("recharge frequency: %v", v.RechargeFrequency(200))
	}

	if err := v.PrepareStep(nil, g); err != nil {
		t.Fatal(err)
	}
	if floats.Sum(v.RechargeCount()) != 0 {
		t.Error("statistics not reset")
	}
}
