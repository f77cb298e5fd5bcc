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

	"github.com/GaryBoone/GoStats/stats"
	"github.com/kr/pretty"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dupuitlem/grid"
)

var errAdvance = errors.New("groundwater solver failed")

// fakeGroundwater records the calls made to it.
type fakeGroundwater struct {
	n        int
	rate     float64
	rates    []float64
	dts      []float64
	failAt   int // Advance call number that fails, starting at 1
	substeps int
}

func (g *fakeGroundwater) SetUniformRecharge(r float64) { g.rate, g.rates = r, nil }
func (g *fakeGroundwater) SetRecharge(r []float64)      { g.rates = append([]float64(nil), r...) }

func (g *fakeGroundwater) Recharge() []float64 {
	if g.rates != nil {
		return g.rates
	}
	r := make([]float64, g.n)
	for i := range r {
		r[i] = g.rate
	}
	return r
}

func (g *fakeGroundwater) Advance(dt float64) (int, error) {
	g.dts = append(g.dts, dt)
	if len(g.dts) == g.failAt {
		return 0, errAdvance
	}
	g.substeps++
	return g.substeps, nil
}

// fakeRouter returns discharge equal to the current recharge rate
// times a fixed drainage area.
type fakeRouter struct {
	gw      *fakeGroundwater
	area    []float64
	pits    int
	log     []string
	updates int
}

func (r *fakeRouter) UpdateDirections() error {
	r.log = append(r.log, "update")
	r.updates++
	return nil
}

func (r *fakeRouter) Accumulate(update bool) (area, q []float64, err error) {
	if update {
		r.log = append(r.log, "update")
	}
	rch := r.gw.Recharge()
	q = make([]float64, len(r.area))
	for i, a := range r.area {
		q[i] = rch[i] * a
	}
	return r.area, q, nil
}

func (r *fakeRouter) CountPits() (int, error) { return r.pits, nil }

func (r *fakeRouter) Correct() error {
	r.log = append(r.log, "correct")
	r.pits = 0
	return nil
}

// quiet returns a logger that only logs warnings.
func quiet() logrus.FieldLogger {
	l := logrus.New()
	l.Level = logrus.WarnLevel
	return l
}

// fakeModel returns a 3×3 grid with one core node and fake
// groundwater and flow routing components.
func fakeModel(t *testing.T) (*grid.Raster, *fakeGroundwater, *fakeRouter) {
	g, err := grid.NewRaster(3, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{grid.TopographicElevation, grid.WaterTableElevation,
		grid.SurfaceWaterSpecificDischarge} {
		g.AddField(grid.AtNode, name)
	}
	gw := &fakeGroundwater{n: g.NumNodes()}
	area := make([]float64, g.NumNodes())
	for i := range area {
		area[i] = float64(100 * (i % 3))
	}
	return g, gw, &fakeRouter{gw: gw, area: area}
}

var twoEvents = FixedForcing{
	{Storm: 100, Interstorm: 900, Intensity: 1e-6},
	{Storm: 50, Interstorm: 0, Intensity: 2e-6},
}

func TestDischargeVolumeConservation(t *testing.T) {
	g, gw, r := fakeModel(t)
	agg := new(DischargeVolume)
	h, err := NewEventHydrology(g, twoEvents, gw, r, agg,
		WithPostprocessor(AreaNormalize{}), WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RunStep(); err != nil {
		t.Fatal(err)
	}
	qEff, err := g.Field(grid.AtNode, grid.SurfaceWaterEffectiveDischarge)
	if err != nil {
		t.Fatal(err)
	}
	th := twoEvents.Horizon()
	for i, a := range r.area {
		var vol float64
		var q0 float64
		for _, e := range twoEvents {
			q1 := e.Intensity * a
			vol += 0.5 * (q0 + q1) * e.Storm
			q0 = 0
		}
		if want := vol / th; qEff[i] != want {
			t.Errorf("node %d: have %g, want %g", i, qEff[i], want)
		}
	}
	qan, err := g.Field(grid.AtNode, grid.SurfaceWaterAreaNormDischarge)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range r.area {
		if a == 0 && qan[i] != 0 {
			t.Errorf("node %d has no drainage area but q_an = %g", i, qan[i])
		}
		if a > 0 && qan[i] != qEff[i]/math.Sqrt(a) {
			t.Errorf("node %d: q_an = %g, want %g", i, qan[i], qEff[i]/math.Sqrt(a))
		}
	}
}

func TestZeroInterstorm(t *testing.T) {
	g, gw, r := fakeModel(t)
	h, err := NewEventHydrology(g, twoEvents, gw, r, new(DischargeVolume), WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RunStep(); err != nil {
		t.Fatal(err)
	}
	want := []float64{100, 900, 50, MinInterstormDuration}
	if diff := pretty.Diff(gw.dts, want); len(diff) > 0 {
		t.Errorf("groundwater durations: %v", diff)
	}
	qEff, _ := g.Field(grid.AtNode, grid.SurfaceWaterEffectiveDischarge)
	for i, v := range qEff {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("node %d: effective discharge is %g", i, v)
		}
	}
	if h.Diagnostics.NumEvents != 2 || h.Diagnostics.MaxSubstepsStorm != 3 ||
		h.Diagnostics.MaxSubstepsInterstorm != 4 {
		t.Errorf("diagnostics: %+v", h.Diagnostics)
	}
}

func TestStepOrder(t *testing.T) {
	g, gw, r := fakeModel(t)
	r.pits = 2
	h, err := NewEventHydrology(g, twoEvents, gw, r, new(DischargeVolume), WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RunStep(); err != nil {
		t.Fatal(err)
	}
	if diff := pretty.Diff(r.log, []string{"correct", "update"}); len(diff) > 0 {
		t.Errorf("call order: %v", diff)
	}
	if h.Diagnostics.NumPits != 2 {
		t.Errorf("pits: have %d, want 2", h.Diagnostics.NumPits)
	}

	// Diagnostics are reset every step.
	if err := h.RunStep(); err != nil {
		t.Fatal(err)
	}
	if h.Diagnostics.NumPits != 0 || h.Diagnostics.MaxSubstepsInterstorm != 8 {
		t.Errorf("diagnostics not reset: %+v", h.Diagnostics)
	}
}

func TestAllOrNothing(t *testing.T) {
	g, gw, r := fakeModel(t)
	gw.failAt = 3
	before := g.AddField(grid.AtNode, grid.SurfaceWaterEffectiveDischarge)
	for i := range before {
		before[i] = 7
	}
	agg := &IntegrateShearStress{
		ShearStress: func(q []float64) ([]float64, error) { return append([]float64(nil), q...), nil },
		Erosion:     func(tau []float64) []float64 { return tau },
	}
	for _, a := range []Aggregator{new(DischargeVolume), agg} {
		gw.dts = nil
		h, err := NewEventHydrology(g, twoEvents, gw, r, a, WithLogger(quiet()))
		if err != nil {
			t.Fatal(err)
		}
		if err := h.RunStep(); !errors.Is(err, errAdvance) {
			t.Errorf("have error %v, want %v", err, errAdvance)
		}
		qEff, _ := g.Field(grid.AtNode, grid.SurfaceWaterEffectiveDischarge)
		for i, v := range qEff {
			if v != 7 {
				t.Errorf("node %d changed after a failed step: %g", i, v)
			}
		}
		if g.HasField(grid.AtNode, grid.FluvialErosionRate) {
			t.Error("erosion rate was written by a failed step")
		}
	}
}

// A field of the wrong length stops the commit before any field is
// written.
func TestCommitChecksAllFields(t *testing.T) {
	g, _, _ := fakeModel(t)
	out := map[string][]float64{
		grid.FluvialErosionRate:      make([]float64, g.NumNodes()),
		grid.SurfaceWaterShearStress: make([]float64, g.NumNodes()-1),
	}
	if err := commit(g, out); err == nil {
		t.Fatal("expected an error for a field of the wrong length")
	}
	for name := range out {
		if g.HasField(grid.AtNode, name) {
			t.Errorf("%s was written by a failed commit", name)
		}
	}
	out[grid.SurfaceWaterShearStress] = make([]float64, g.NumNodes())
	if err := commit(g, out); err != nil {
		t.Fatal(err)
	}
	if !g.HasField(grid.AtNode, grid.FluvialErosionRate) || !g.HasField(grid.AtNode, grid.SurfaceWaterShearStress) {
		t.Error("fields missing after commit")
	}
}

func TestSteadyForcingIdempotent(t *testing.T) {
	g, gw, r := fakeModel(t)
	forcing := SteadyForcing{TotalTime: 3600, Rate: 1e-6}
	h, err := NewEventHydrology(g, forcing, gw, r, new(DischargeVolume),
		WithPostprocessor(AreaNormalize{}), WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	var results [2][]float64
	for i := range results {
		if err := h.RunStep(); err != nil {
			t.Fatal(err)
		}
		q, _ := g.Field(grid.AtNode, grid.SurfaceWaterAreaNormDischarge)
		results[i] = append([]float64(nil), q...)
	}
	if diff := pretty.Diff(results[0], results[1]); len(diff) > 0 {
		t.Errorf("repeated steady steps differ: %v", diff)
	}
}

// Effective discharge is linear in rainfall intensity when discharge
// is proportional to recharge.
func TestEffectiveDischargeLinearity(t *testing.T) {
	var x, y []float64
	for i := 1; i <= 5; i++ {
		g, gw, r := fakeModel(t)
		intensity := float64(i) * 1e-6
		forcing := FixedForcing{
			{Storm: 200, Interstorm: 800, Intensity: intensity},
			{Storm: 400, Interstorm: 600, Intensity: intensity / 2},
		}
		h, err := NewEventHydrology(g, forcing, gw, r, new(DischargeVolume), WithLogger(quiet()))
		if err != nil {
			t.Fatal(err)
		}
		if err := h.RunStep(); err != nil {
			t.Fatal(err)
		}
		q, _ := g.Field(grid.AtNode, grid.SurfaceWaterEffectiveDischarge)
		x = append(x, intensity)
		y = append(y, q[5])
	}
	slope, intercept, rsquared, _, _, _ := stats.LinearRegression(x, y)
	// 0.5*(200 + 0.5*400)*200 m² / 2000 s
	const wantSlope = 20.
	if math.Abs(slope-wantSlope)/wantSlope > 1e-9 || math.Abs(intercept) > 1e-15 || rsquared < 1-1e-9 {
		t.Errorf("slope %g, intercept %g, r² %g", slope, intercept, rsquared)
	}
}

func TestNewEventHydrologyErrors(t *testing.T) {
	g, gw, r := fakeModel(t)
	if _, err := NewEventHydrology(g, twoEvents, gw, nil, new(DischargeVolume)); err == nil {
		t.Error("missing router should cause an error")
	}
	if _, err := NewEventHydrology(g, FixedForcing{}, gw, r, new(DischargeVolume)); err == nil {
		t.Error("zero horizon should cause an error")
	}
	if _, err := NewGridHydrology(g, "MFD", twoEvents, gw, new(DischargeVolume)); !errors.Is(err, ErrRoutingMethod) {
		t.Errorf("have %v, want %v", err, ErrRoutingMethod)
	}
}

func TestIntegrateShearStressStep(t *testing.T) {
	g, gw, r := fakeModel(t)
	const k = 1e4
	agg := &IntegrateShearStress{
		ShearStress: func(q []float64) ([]float64, error) {
			tau := make([]float64, len(q))
			for i, v := range q {
				tau[i] = k * v
			}
			return tau, nil
		},
		Erosion: func(tau []float64) []float64 {
			e := make([]float64, len(tau))
			for i, v := range tau {
				e[i] = -1e-9 * v
			}
			return e
		},
	}
	forcing := FixedForcing{{Storm: 100, Interstorm: 900, Intensity: 1e-6}}
	h, err := NewEventHydrology(g, forcing, gw, r, agg, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RunStep(); err != nil {
		t.Fatal(err)
	}
	dzdt, err := g.Field(grid.AtNode, grid.FluvialErosionRate)
	if err != nil {
		t.Fatal(err)
	}
	tau, _ := g.Field(grid.AtNode, grid.SurfaceWaterShearStress)
	for i, a := range r.area {
		// tau rises from 0 to k*I*a during the storm and drops to zero
		// at the end of the dry period.
		tau1 := k * 1e-6 * a
		wantTau := (0.5*100*tau1 + 0.5*900*tau1) / 1000
		if math.Abs(tau[i]-wantTau) > 1e-12 {
			t.Errorf("node %d: tau have %g, want %g", i, tau[i], wantTau)
		}
		if want := -1e-9 * wantTau; math.Abs(dzdt[i]-want) > 1e-20 {
			t.Errorf("node %d: erosion rate have %g, want %g", i, dzdt[i], want)
		}
	}
}

func TestEventShearStressStep(t *testing.T) {
	g, gw, r := fakeModel(t)
	agg := &EventShearStress{
		ShearStress: func(q []float64) ([]float64, error) { return append([]float64(nil), q...), nil },
		Erosion: func(tau []float64) []float64 {
			e := make([]float64, len(tau))
			for i, v := range tau {
				e[i] = -v
			}
			return e
		},
	}
	h, err := NewEventHydrology(g, twoEvents, gw, r, agg, WithLogger(quiet()))
	if err != nil {
		t.Fatal(err)
	}
	if err := h.RunStep(); err != nil {
		t.Fatal(err)
	}
	dzdt, _ := g.Field(grid.AtNode, grid.FluvialErosionRate)
	th := twoEvents.Horizon()
	for i, a := range r.area {
		want := 0.5*(0-1e-6*a)*100/th + 0.5*(0-2e-6*a)*50/th
		if math.Abs(dzdt[i]-want) > 1e-20 {
			t.Errorf("node %d: have %g, want %g", i, dzdt[i], want)
		}
	}
}
