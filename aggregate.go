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
	"github.com/spatialmodel/dupuitlem/grid"
	"gonum.org/v1/gonum/floats"
)

// ShearStressFunc calculates the instantaneous shear stress [Pa] at
// each node from the surface water discharge q [m³/s].
type ShearStressFunc func(q []float64) ([]float64, error)

// ErosionFunc calculates the erosion rate [m/s] at each node from the
// shear stress tau [Pa]. Erosion is negative.
type ErosionFunc func(tau []float64) []float64

// mask is a per-node boolean selection.
type mask []bool

func above(x []float64, c float64) mask {
	m := make(mask, len(x))
	for i, v := range x {
		m[i] = v > c
	}
	return m
}

func atOrBelow(x []float64, c float64) mask {
	m := make(mask, len(x))
	for i, v := range x {
		m[i] = v <= c
	}
	return m
}

func (m mask) and(o mask) mask {
	r := make(mask, len(m))
	for i := range m {
		r[i] = m[i] && o[i]
	}
	return r
}

// where sets out[i] = f(i) wherever m[i] is true.
func where(out []float64, m mask, f func(i int) float64) {
	for i, ok := range m {
		if ok {
			out[i] = f(i)
		}
	}
}

// thresholdIntegral returns the integral over a period of duration t
// of the excess of a linearly varying quantity over tauc, where the
// quantity changes from a to b. Where only one endpoint exceeds the
// threshold, the excess is integrated from the interpolated
// crossing time. An endpoint equal to tauc counts as a crossing, which
// gives the same result as the both-above case there.
func thresholdIntegral(a, b []float64, tauc, t float64) []float64 {
	out := make([]float64, len(a))
	aAbove, aBelow := above(a, tauc), atOrBelow(a, tauc)
	bAbove, bBelow := above(b, tauc), atOrBelow(b, tauc)
	where(out, aAbove.and(bAbove), func(i int) float64 {
		return 0.5 * t * (a[i] + b[i] - 2*tauc)
	})
	where(out, aBelow.and(bAbove), func(i int) float64 {
		return 0.5 * t * (b[i] - tauc) * ((b[i] - tauc) / (b[i] - a[i]))
	})
	where(out, aAbove.and(bBelow), func(i int) float64 {
		return 0.5 * t * (a[i] - tauc) * ((a[i] - tauc) / (a[i] - b[i]))
	})
	return out
}

// EffectiveShearStress returns the effective shear stress over an
// event of duration tr followed by an interevent of duration tb, given
// the shear stress tau0 at the start of the event, tau1 at the end of
// the event, and tau2 at the end of the interevent. Shear stress is
// assumed to vary linearly within each period, and only the excess
// over the threshold tauc contributes. Where shear stress falls
// through the threshold during a period the linear interpolation
// overestimates the excess, because the true decay is faster than linear.
// The result is always at least tauc.
func EffectiveShearStress(tau0, tau1, tau2 []float64, tauc, tr, tb float64) []float64 {
	i1 := thresholdIntegral(tau0, tau1, tauc, tr)
	i2 := thresholdIntegral(tau1, tau2, tauc, tb)
	floats.Add(i1, i2)
	floats.Scale(1/(tr+tb), i1)
	floats.AddConst(tauc, i1)
	return i1
}

// Aggregator integrates instantaneous hydraulic quantities over the
// events of a hydrological step. An Aggregator holds step-local state
// and is not safe for concurrent use.
type Aggregator interface {
	// Begin resets the accumulator and returns the snapshot that
	// precedes the first event.
	Begin(f Fields) ([]float64, error)

	// Snapshot converts the surface water discharge at the end of an
	// event or interevent into the quantity being aggregated. The
	// returned slice must not alias q.
	Snapshot(q []float64) ([]float64, error)

	// Add accumulates the contribution of event e, given snapshots at
	// the start of the event (s0), end of the event (s1), and end of
	// the interevent (s2). th is the total duration of the step.
	Add(s0, s1, s2 []float64, e Event, th float64)

	// Finish returns the output fields of the step, by name.
	Finish(th float64) map[string][]float64
}

// shearStresser is implemented by aggregators that calculate shear
// stress, so that it can be recorded.
type shearStresser interface {
	lastShearStress() []float64
}

// IntegrateShearStress aggregates erosion using the effective shear
// stress of each event-interevent pair, weighting the resulting
// erosion rate by the duration of the pair. Erosion during both the
// event and the interevent is included.
type IntegrateShearStress struct {
	ShearStress ShearStressFunc
	Erosion     ErosionFunc
	Tauc        float64 // threshold shear stress [Pa]

	dzdt, tauInst, tauEff []float64
}

// Begin returns the shear stress stored in the surface_water__shear_stress
// field, or zeros if it does not exist yet.
func (a *IntegrateShearStress) Begin(f Fields) ([]float64, error) {
	tau := f.AddField(grid.AtNode, grid.SurfaceWaterShearStress)
	a.dzdt = make([]float64, len(tau))
	a.tauEff = append([]float64(nil), tau...)
	a.tauInst = nil
	return append([]float64(nil), tau...), nil
}

// Snapshot returns the instantaneous shear stress.
func (a *IntegrateShearStress) Snapshot(q []float64) ([]float64, error) {
	tau, err := a.ShearStress(q)
	if err != nil {
		return nil, err
	}
	a.tauInst = tau
	return append([]float64(nil), tau...), nil
}

// Add implements Aggregator.
func (a *IntegrateShearStress) Add(s0, s1, s2 []float64, e Event, th float64) {
	a.tauEff = EffectiveShearStress(s0, s1, s2, a.Tauc, e.Storm, e.Interstorm)
	floats.AddScaled(a.dzdt, (e.Storm+e.Interstorm)/th, a.Erosion(a.tauEff))
}

// Finish returns the effective erosion rate and the effective shear
// stress of the last event.
func (a *IntegrateShearStress) Finish(th float64) map[string][]float64 {
	return map[string][]float64{
		grid.FluvialErosionRate:      a.dzdt,
		grid.SurfaceWaterShearStress: a.tauEff,
	}
}

func (a *IntegrateShearStress) lastShearStress() []float64 { return a.tauInst }

// EventShearStress aggregates the instantaneous erosion rate with the
// trapezoidal rule over each storm only. Erosion during interevents is
// assumed negligible, but the erosion rate at the end of each
// interevent is the starting value for the next storm.
type EventShearStress struct {
	ShearStress ShearStressFunc
	Erosion     ErosionFunc

	dzdt, tau []float64
}

// Begin returns zeros: the erosion rate before the first event is
// assumed to be zero.
func (a *EventShearStress) Begin(f Fields) ([]float64, error) {
	tau := f.AddField(grid.AtNode, grid.SurfaceWaterShearStress)
	a.dzdt = make([]float64, len(tau))
	a.tau = append([]float64(nil), tau...)
	return make([]float64, len(tau)), nil
}

// Snapshot returns the instantaneous erosion rate.
func (a *EventShearStress) Snapshot(q []float64) ([]float64, error) {
	tau, err := a.ShearStress(q)
	if err != nil {
		return nil, err
	}
	a.tau = tau
	return a.Erosion(tau), nil
}

// Add implements Aggregator.
func (a *EventShearStress) Add(s0, s1, _ []float64, e Event, th float64) {
	for i := range a.dzdt {
		a.dzdt[i] += 0.5 * (s0[i] + s1[i]) * e.Storm / th
	}
}

// Finish returns the effective erosion rate and the shear stress at
// the end of the last interevent.
func (a *EventShearStress) Finish(th float64) map[string][]float64 {
	return map[string][]float64{
		grid.FluvialErosionRate:      a.dzdt,
		grid.SurfaceWaterShearStress: a.tau,
	}
}

func (a *EventShearStress) lastShearStress() []float64 { return a.tau }

// DischargeVolume aggregates the volume of surface runoff during storms
// with the trapezoidal rule and reports it as an effective discharge
// averaged over the whole step.
type DischargeVolume struct {
	vol []float64
}

// Begin returns zeros: discharge before the first event is assumed
// to be zero.
func (a *DischargeVolume) Begin(f Fields) ([]float64, error) {
	q, err := f.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return nil, err
	}
	a.vol = make([]float64, len(q))
	return make([]float64, len(q)), nil
}

// Snapshot returns a copy of q.
func (a *DischargeVolume) Snapshot(q []float64) ([]float64, error) {
	return append([]float64(nil), q...), nil
}

// Add implements Aggregator.
func (a *DischargeVolume) Add(s0, s1, _ []float64, e Event, _ float64) {
	for i := range a.vol {
		a.vol[i] += 0.5 * (s0[i] + s1[i]) * e.Storm
	}
}

// Volume returns the runoff volume [m³] accumulated so far in the step.
func (a *DischargeVolume) Volume() []float64 { return a.vol }

// Finish returns the effective discharge.
func (a *DischargeVolume) Finish(th float64) map[string][]float64 {
	qEff := make([]float64, len(a.vol))
	for i, v := range a.vol {
		qEff[i] = v / th
	}
	return map[string][]float64{grid.SurfaceWaterEffectiveDischarge: qEff}
}
