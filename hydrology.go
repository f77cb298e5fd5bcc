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
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dupuitlem/flow"
	"github.com/spatialmodel/dupuitlem/grid"
)

// MinInterstormDuration [s] is the shortest interval the groundwater
// model is advanced over after a storm.
const MinInterstormDuration = 1e-15

// ErrRoutingMethod is returned when a hydrological model is created
// with a routing method other than "D8" or "Steepest".
var ErrRoutingMethod = flow.ErrMethod

// Fields holds named fields on the model grid.
type Fields interface {
	Field(loc grid.Location, name string) ([]float64, error)
	AddField(loc grid.Location, name string) []float64
	SetField(loc grid.Location, name string, vals []float64) error
}

// Groundwater is a groundwater model that produces surface water
// specific discharge.
type Groundwater interface {
	// SetUniformRecharge sets the recharge rate [m/s] everywhere.
	SetUniformRecharge(r float64)
	// SetRecharge sets the recharge rate [m/s] at each node.
	SetRecharge(r []float64)
	// Recharge returns the current recharge rate at each node.
	Recharge() []float64
	// Advance runs the model for dt seconds and returns the number
	// of substeps taken.
	Advance(dt float64) (int, error)
}

// FlowRouter routes surface water across the grid.
type FlowRouter interface {
	// UpdateDirections recalculates flow directions.
	UpdateDirections() error
	// Accumulate returns drainage area [m²] and surface water
	// discharge [m³/s], optionally updating flow directions first.
	Accumulate(updateDirections bool) (area, q []float64, err error)
}

// PitCorrector finds and removes closed depressions.
type PitCorrector interface {
	CountPits() (int, error)
	Correct() error
}

// Diagnostics are reset at the start of every step.
type Diagnostics struct {
	MaxSubstepsStorm      int
	MaxSubstepsInterstorm int
	NumEvents             int
	NumPits               int
}

// StepPreparer runs once per step after flow directions are updated
// and before the first event.
type StepPreparer interface {
	PrepareStep(r FlowRouter, f Fields) error
}

// SnapshotFilter transforms surface water discharge before it is
// aggregated.
type SnapshotFilter interface {
	FilterDischarge(q []float64) []float64
}

// Finalizer derives output fields at the end of a step. area is the
// drainage area from the last flow accumulation.
type Finalizer interface {
	Finalize(out map[string][]float64, area []float64) error
}

// RechargeSource sets the groundwater recharge for each storm and
// each dry period.
type RechargeSource interface {
	EventRecharge(gw Groundwater, e Event) error
	IntereventRecharge(gw Groundwater, e Event) error
}

// UniformRecharge sets recharge equal to rainfall intensity during
// storms and to zero between storms.
type UniformRecharge struct{}

// EventRecharge implements RechargeSource.
func (UniformRecharge) EventRecharge(gw Groundwater, e Event) error {
	gw.SetUniformRecharge(e.Intensity)
	return nil
}

// IntereventRecharge implements RechargeSource.
func (UniformRecharge) IntereventRecharge(gw Groundwater, _ Event) error {
	gw.SetUniformRecharge(0)
	return nil
}

// EventHydrology runs the groundwater and flow routing models over
// the storms and dry periods of a forcing sequence and aggregates the
// resulting hydraulic quantities into time-averaged fields.
type EventHydrology struct {
	Fields      Fields
	Forcing     Forcing
	Groundwater Groundwater
	Router      FlowRouter
	Pits        PitCorrector
	Aggregator  Aggregator
	Recharge    RechargeSource
	Recorder    *Recorder

	Preparers  []StepPreparer
	Filters    []SnapshotFilter
	Finalizers []Finalizer

	Log logrus.FieldLogger

	// Diagnostics from the most recent step.
	Diagnostics Diagnostics
}

// HydrologyOption configures an EventHydrology.
type HydrologyOption func(*EventHydrology)

// WithRechargeSource replaces the default uniform recharge.
func WithRechargeSource(r RechargeSource) HydrologyOption {
	return func(h *EventHydrology) { h.Recharge = r }
}

// WithPostprocessor adds p to every stage of the step it takes
// part in: p may implement any of StepPreparer, SnapshotFilter,
// Finalizer, and RechargeSource.
func WithPostprocessor(p interface{}) HydrologyOption {
	return func(h *EventHydrology) {
		if v, ok := p.(StepPreparer); ok {
			h.Preparers = append(h.Preparers, v)
		}
		if v, ok := p.(SnapshotFilter); ok {
			h.Filters = append(h.Filters, v)
		}
		if v, ok := p.(Finalizer); ok {
			h.Finalizers = append(h.Finalizers, v)
		}
		if v, ok := p.(RechargeSource); ok {
			h.Recharge = v
		}
	}
}

// WithRecorder records the state of the model after every storm and
// dry period.
func WithRecorder(r *Recorder) HydrologyOption {
	return func(h *EventHydrology) { h.Recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) HydrologyOption {
	return func(h *EventHydrology) { h.Log = l }
}

// WithPits replaces the pit corrector of the router.
func WithPits(p PitCorrector) HydrologyOption {
	return func(h *EventHydrology) { h.Pits = p }
}

// NewEventHydrology creates an event-based hydrological model. router
// is also used as the pit corrector if it implements PitCorrector.
func NewEventHydrology(f Fields, forcing Forcing, gw Groundwater, router FlowRouter,
	agg Aggregator, opts ...HydrologyOption) (*EventHydrology, error) {
	h := &EventHydrology{
		Fields:      f,
		Forcing:     forcing,
		Groundwater: gw,
		Router:      router,
		Aggregator:  agg,
		Recharge:    UniformRecharge{},
		Log:         logrus.StandardLogger(),
	}
	if p, ok := router.(PitCorrector); ok {
		h.Pits = p
	}
	for _, o := range opts {
		o(h)
	}
	switch {
	case f == nil || forcing == nil || gw == nil || router == nil || agg == nil:
		return nil, errors.New("dupuitlem: hydrological model is missing a component")
	case h.Pits == nil:
		return nil, errors.New("dupuitlem: hydrological model has no pit corrector")
	case !(forcing.Horizon() > 0):
		return nil, fmt.Errorf("dupuitlem: forcing horizon must be > 0; got %g", forcing.Horizon())
	}
	return h, nil
}

// NewGridHydrology creates an event-based hydrological model on grid g,
// with flow routed by routing method "D8" or "Steepest".
func NewGridHydrology(g *grid.Raster, routingMethod string, forcing Forcing, gw Groundwater,
	agg Aggregator, opts ...HydrologyOption) (*EventHydrology, error) {
	r, err := flow.NewRouter(g, routingMethod)
	if err != nil {
		return nil, fmt.Errorf("dupuitlem: %w", err)
	}
	return NewEventHydrology(g, forcing, gw, r, agg, opts...)
}

// RunStep runs one hydrological step: it generates a forcing sequence,
// removes closed depressions, updates flow directions, runs every
// storm and dry period, and writes the aggregated fields to the grid.
// If any stage fails the error is returned and no output fields are
// changed.
func (h *EventHydrology) RunStep() error {
	seq := h.Forcing.Generate()
	th := h.Forcing.Horizon()
	h.Diagnostics = Diagnostics{NumEvents: len(seq)}

	n, err := h.Pits.CountPits()
	if err != nil {
		return fmt.Errorf("dupuitlem: counting depressions: %w", err)
	}
	if n > 0 {
		h.Diagnostics.NumPits = n
		if err := h.Pits.Correct(); err != nil {
			return fmt.Errorf("dupuitlem: filling depressions: %w", err)
		}
	}
	if err := h.Router.UpdateDirections(); err != nil {
		return fmt.Errorf("dupuitlem: updating flow directions: %w", err)
	}
	for _, p := range h.Preparers {
		if err := p.PrepareStep(h.Router, h.Fields); err != nil {
			return fmt.Errorf("dupuitlem: preparing step: %w", err)
		}
	}
	prev, err := h.Aggregator.Begin(h.Fields)
	if err != nil {
		return fmt.Errorf("dupuitlem: %w", err)
	}
	if h.Recorder != nil {
		if err := h.Recorder.begin(len(seq), h.Fields); err != nil {
			return err
		}
	}

	var area []float64
	if len(seq) == 0 {
		if area, _, err = h.Router.Accumulate(false); err != nil {
			return fmt.Errorf("dupuitlem: flow accumulation: %w", err)
		}
	}
	for i, e := range seq {
		if err := h.Recharge.EventRecharge(h.Groundwater, e); err != nil {
			return fmt.Errorf("dupuitlem: event %d recharge: %w", i, err)
		}
		var s1, s2, q1, q2 []float64
		if area, q1, s1, err = h.advance(e.Storm, &h.Diagnostics.MaxSubstepsStorm); err != nil {
			return fmt.Errorf("dupuitlem: event %d storm: %w", i, err)
		}
		if h.Recorder != nil {
			if err := h.Recorder.recordStorm(i, e, q1, h.Groundwater.Recharge(), h.Aggregator); err != nil {
				return err
			}
		}

		if err := h.Recharge.IntereventRecharge(h.Groundwater, e); err != nil {
			return fmt.Errorf("dupuitlem: event %d interevent recharge: %w", i, err)
		}
		interstorm := math.Max(e.Interstorm, MinInterstormDuration)
		if area, q2, s2, err = h.advance(interstorm, &h.Diagnostics.MaxSubstepsInterstorm); err != nil {
			return fmt.Errorf("dupuitlem: event %d interstorm: %w", i, err)
		}
		if h.Recorder != nil {
			if err := h.Recorder.recordInterstorm(i, e, q2, h.Aggregator); err != nil {
				return err
			}
		}

		h.Aggregator.Add(prev, s1, s2, e, th)
		prev = s2
	}

	out := h.Aggregator.Finish(th)
	for _, f := range h.Finalizers {
		if err := f.Finalize(out, area); err != nil {
			return fmt.Errorf("dupuitlem: finalizing step: %w", err)
		}
	}
	if h.Recorder != nil {
		h.Recorder.finish(th)
	}
	if err := commit(h.Fields, out); err != nil {
		return err
	}
	h.Log.WithFields(logrus.Fields{
		"events":                h.Diagnostics.NumEvents,
		"pits":                  h.Diagnostics.NumPits,
		"substeps_storm":        h.Diagnostics.MaxSubstepsStorm,
		"substeps_interstorm":   h.Diagnostics.MaxSubstepsInterstorm,
		"hydrological_time_sec": th,
	}).Debug("hydrological step complete")
	return nil
}

// advance runs the groundwater model for dt, accumulates flow with the
// existing directions, and returns drainage area, a copy of the
// discharge, and the aggregator snapshot.
func (h *EventHydrology) advance(dt float64, maxSubsteps *int) (area, q, snap []float64, err error) {
	n, err := h.Groundwater.Advance(dt)
	if err != nil {
		return nil, nil, nil, err
	}
	if n > *maxSubsteps {
		*maxSubsteps = n
	}
	area, qLive, err := h.Router.Accumulate(false)
	if err != nil {
		return nil, nil, nil, err
	}
	q = append([]float64(nil), qLive...)
	filtered := q
	for _, f := range h.Filters {
		filtered = f.FilterDischarge(filtered)
	}
	snap, err = h.Aggregator.Snapshot(filtered)
	return area, q, snap, err
}

// commit writes the output fields of a step. Every field is checked
// before any is written.
func commit(f Fields, out map[string][]float64) error {
	z, err := f.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return fmt.Errorf("dupuitlem: committing output: %w", err)
	}
	for name, vals := range out {
		if vals != nil && len(vals) != len(z) {
			return fmt.Errorf("dupuitlem: committing %s: length %d; it should be %d", name, len(vals), len(z))
		}
	}
	for name, vals := range out {
		if vals == nil {
			continue
		}
		if err := f.SetField(grid.AtNode, name, vals); err != nil {
			return fmt.Errorf("dupuitlem: committing %s: %w", name, err)
		}
	}
	return nil
}
