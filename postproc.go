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
	"fmt"
	"math"
	"sort"

	"github.com/spatialmodel/dupuitlem/flow"
	"github.com/spatialmodel/dupuitlem/grid"
)

// divideWhere returns a/b where ok is true and zero elsewhere.
func divideWhere(a, b []float64, ok mask) []float64 {
	out := make([]float64, len(a))
	where(out, ok, func(i int) float64 { return a[i] / b[i] })
	return out
}

// AreaNormalize derives surface_water_area_norm__discharge by dividing
// the effective discharge by the square root of drainage area, which
// accounts for channel width scaling with the square root of area.
// Nodes with no drainage area get zero.
type AreaNormalize struct{}

// Finalize implements Finalizer.
func (AreaNormalize) Finalize(out map[string][]float64, area []float64) error {
	qEff, ok := out[grid.SurfaceWaterEffectiveDischarge]
	if !ok {
		return fmt.Errorf("area normalization requires %s", grid.SurfaceWaterEffectiveDischarge)
	}
	if len(area) != len(qEff) {
		return fmt.Errorf("area normalization: drainage area has %d values but discharge has %d",
			len(area), len(qEff))
	}
	sqrtArea := make([]float64, len(area))
	for i, a := range area {
		sqrtArea[i] = math.Sqrt(math.Max(a, 0))
	}
	out[grid.SurfaceWaterAreaNormDischarge] = divideWhere(qEff, sqrtArea, above(area, 0))
	return nil
}

// ThresholdDischarge removes the discharge that is too small to erode,
// so that only discharge in excess of the critical value
//
//	Q0 = E0 √A / (Ksp S)
//
// contributes to effective discharge. S is the topographic slope along
// the link to each node's receiver. Nodes with no downslope receiver
// have Q0 = 0. With E0 = 0 discharge is unchanged. The flow router
// must be a *flow.Router using the same routing method.
type ThresholdDischarge struct {
	E0  float64 // erosion threshold [m/s]
	Ksp float64 // stream power erodibility [1/m]

	g      *grid.Raster
	method flow.Method
	q0     []float64
}

// NewThresholdDischarge returns a threshold correction for grid g using
// the slopes of routing method "D8" or "Steepest".
func NewThresholdDischarge(g *grid.Raster, routingMethod string, e0, ksp float64) (*ThresholdDischarge, error) {
	m, err := flow.ParseMethod(routingMethod)
	if err != nil {
		return nil, fmt.Errorf("dupuitlem: %w", err)
	}
	if e0 < 0 || !(ksp > 0) {
		return nil, fmt.Errorf("dupuitlem: invalid threshold parameters E0=%g, Ksp=%g", e0, ksp)
	}
	g.AddField(grid.AtNode, grid.CriticalErosionDischarge)
	return &ThresholdDischarge{E0: e0, Ksp: ksp, g: g, method: m}, nil
}

// PrepareStep calculates the critical discharge from the drainage area
// and slopes of the current flow directions.
func (t *ThresholdDischarge) PrepareStep(r FlowRouter, f Fields) error {
	router, ok := r.(*flow.Router)
	if !ok {
		return fmt.Errorf("threshold discharge requires a *flow.Router; got %T", r)
	}
	if m := router.Director.Method(); m != t.method {
		return fmt.Errorf("threshold discharge uses %s slopes but flow is routed by %s", t.method, m)
	}
	area, _, err := r.Accumulate(false)
	if err != nil {
		return err
	}
	z, err := f.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return err
	}
	links := router.Director.Links()
	var grad []float64
	if t.method == flow.D8 {
		grad = t.g.CalcGradAtD8(z)
	} else {
		grad = t.g.CalcGradAtLink(z)
	}
	s := make([]float64, len(z))
	for n, l := range links {
		if l >= 0 && l < len(grad) {
			s[n] = math.Abs(grad[l])
		}
	}
	t.q0 = make([]float64, len(z))
	where(t.q0, above(s, 0), func(i int) float64 {
		return t.E0 * math.Sqrt(area[i]) / (t.Ksp * s[i])
	})
	return nil
}

// CriticalDischarge returns the critical discharge [m³/s] of the
// current step.
func (t *ThresholdDischarge) CriticalDischarge() []float64 { return t.q0 }

// FilterDischarge returns max(q - Q0, 0).
func (t *ThresholdDischarge) FilterDischarge(q []float64) []float64 {
	out := make([]float64, len(q))
	for i, v := range q {
		out[i] = math.Max(v-t.q0[i], 0)
	}
	return out
}

// Finalize adds critical_erosion__discharge to the step outputs.
func (t *ThresholdDischarge) Finalize(out map[string][]float64, _ []float64) error {
	out[grid.CriticalErosionDischarge] = append([]float64(nil), t.q0...)
	return nil
}

// VadoseModel is a model of the unsaturated zone that delays and
// attenuates recharge.
type VadoseModel interface {
	// RunEvent infiltrates a storm of depth d [m].
	RunEvent(d float64)
	// RunInterevent dries the profile over duration t [s].
	RunInterevent(t float64)
	// Depths returns the depths [m] at which recharge is reported,
	// increasing from the surface.
	Depths() []float64
	// RechargeAtDepth returns the depth of water [m] reaching each of
	// Depths during the last event.
	RechargeAtDepth() []float64
}

// VadoseDelay sets recharge at each core node from the amount of
// water that reaches the water table through the unsaturated zone
// during each storm. There is no recharge between storms.
type VadoseDelay struct {
	Model VadoseModel

	g        *grid.Raster
	cores    []int
	recharge []float64

	cumRecharge, numRecharge []float64
}

// NewVadoseDelay returns a vadose-zone recharge source for grid g. The
// recharge rate is stored in the recharge_rate field.
func NewVadoseDelay(g *grid.Raster, m VadoseModel) *VadoseDelay {
	return &VadoseDelay{
		Model:       m,
		g:           g,
		cores:       g.CoreNodes(),
		recharge:    g.AddField(grid.AtNode, grid.RechargeRate),
		cumRecharge: make([]float64, len(m.Depths())),
		numRecharge: make([]float64, len(m.Depths())),
	}
}

// PrepareStep resets the recharge profile statistics.
func (v *VadoseDelay) PrepareStep(FlowRouter, Fields) error {
	for i := range v.cumRecharge {
		v.cumRecharge[i] = 0
		v.numRecharge[i] = 0
	}
	return nil
}

// depthIndex returns the index of the first depth that is at least
// d, or the last index if d is deeper than the profile.
func depthIndex(depths []float64, d float64) int {
	i := sort.SearchFloat64s(depths, d)
	if i == len(depths) {
		i = len(depths) - 1
	}
	return i
}

// EventRecharge implements RechargeSource.
func (v *VadoseDelay) EventRecharge(gw Groundwater, e Event) error {
	z, err := v.g.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return err
	}
	wt, err := v.g.Field(grid.AtNode, grid.WaterTableElevation)
	if err != nil {
		return err
	}
	v.Model.RunEvent(e.Intensity * e.Storm)
	depths, rd := v.Model.Depths(), v.Model.RechargeAtDepth()
	for _, n := range v.cores {
		v.recharge[n] = rd[depthIndex(depths, z[n]-wt[n])] / e.Storm
	}
	for i, r := range rd {
		v.cumRecharge[i] += r
		if r > 0 {
			v.numRecharge[i]++
		}
	}
	gw.SetRecharge(v.recharge)
	return nil
}

// IntereventRecharge implements RechargeSource.
func (v *VadoseDelay) IntereventRecharge(gw Groundwater, e Event) error {
	v.Model.RunInterevent(e.Interstorm)
	gw.SetUniformRecharge(0)
	return nil
}

// CumulativeRecharge returns the total depth of recharge [m] reaching
// each profile depth during the current step.
func (v *VadoseDelay) CumulativeRecharge() []float64 { return v.cumRecharge }

// RechargeCount returns the number of storms producing recharge at
// each profile depth during the current step.
func (v *VadoseDelay) RechargeCount() []float64 { return v.numRecharge }

// MeanRecharge returns the mean depth of recharge [m] per recharge
// event at each profile depth, or zero where there was none.
func (v *VadoseDelay) MeanRecharge() []float64 {
	return divideWhere(v.cumRecharge, v.numRecharge, above(v.numRecharge, 0))
}

// RechargeFrequency returns the number of recharge events per second
// at each profile depth over a step of duration th.
func (v *VadoseDelay) RechargeFrequency(th float64) []float64 {
	o := make([]float64, len(v.numRecharge))
	for i, c := range v.numRecharge {
		o[i] = c / th
	}
	return o
}
