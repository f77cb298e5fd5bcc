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
	"github.com/spatialmodel/dupuitlem/grid"
)

// SteadyHydrology runs the groundwater model under constant recharge for
// a fixed time and reports hydraulic quantities at the end of it.
//
// If ShearStress and Erosion are set, the step yields
// surface_water__shear_stress and fluvial_erosion__rate. Otherwise it
// yields surface_water__discharge, capped at recharge times drainage
// area, and surface_water_area_norm__discharge.
type SteadyHydrology struct {
	Fields      Fields
	Groundwater Groundwater
	Router      FlowRouter
	Pits        PitCorrector

	// Recharge rate [m/s] and duration [s] of each step.
	Recharge, Duration float64

	ShearStress ShearStressFunc
	Erosion     ErosionFunc

	Log logrus.FieldLogger

	// Diagnostics from the most recent step. Steady steps
	// report groundwater substeps as MaxSubstepsStorm.
	Diagnostics Diagnostics
}

// NewSteadyHydrology returns a steady hydrological model. router is
// also used as the pit corrector.
func NewSteadyHydrology(f Fields, gw Groundwater, router interface {
	FlowRouter
	PitCorrector
}, recharge, duration float64) (*SteadyHydrology, error) {
	if f == nil || gw == nil || router == nil {
		return nil, errors.New("dupuitlem: steady hydrological model is missing a component")
	}
	if recharge < 0 || !(duration > 0) {
		return nil, fmt.Errorf("dupuitlem: invalid steady recharge %g or duration %g", recharge, duration)
	}
	return &SteadyHydrology{
		Fields:      f,
		Groundwater: gw,
		Router:      router,
		Pits:        router,
		Recharge:    recharge,
		Duration:    duration,
		Log:         logrus.StandardLogger(),
	}, nil
}

// RunStep runs one steady step. As with EventHydrology, output
// fields are only changed if the whole step succeeds.
func (h *SteadyHydrology) RunStep() error {
	h.Diagnostics = Diagnostics{NumEvents: 1}
	h.Groundwater.SetUniformRecharge(h.Recharge)
	n, err := h.Groundwater.Advance(h.Duration)
	if err != nil {
		return fmt.Errorf("dupuitlem: steady groundwater: %w", err)
	}
	h.Diagnostics.MaxSubstepsStorm = n
	p, err := h.Pits.CountPits()
	if err != nil {
		return fmt.Errorf("dupuitlem: counting depressions: %w", err)
	}
	if p > 0 {
		h.Diagnostics.NumPits = p
		if err := h.Pits.Correct(); err != nil {
			return fmt.Errorf("dupuitlem: filling depressions: %w", err)
		}
	}
	area, qLive, err := h.Router.Accumulate(true)
	if err != nil {
		return fmt.Errorf("dupuitlem: steady flow accumulation: %w", err)
	}
	q := append([]float64(nil), qLive...)

	out := make(map[string][]float64)
	if h.ShearStress != nil && h.Erosion != nil {
		tau, err := h.ShearStress(q)
		if err != nil {
			return fmt.Errorf("dupuitlem: steady shear stress: %w", err)
		}
		out[grid.SurfaceWaterShearStress] = tau
		out[grid.FluvialErosionRate] = h.Erosion(tau)
	} else {
		for i := range q {
			q[i] = math.Min(q[i], h.Recharge*area[i])
		}
		out[grid.SurfaceWaterDischarge] = q
		out[grid.SurfaceWaterEffectiveDischarge] = q
		if err := (AreaNormalize{}).Finalize(out, area); err != nil {
			return err
		}
	}
	if err := commit(h.Fields, out); err != nil {
		return err
	}
	h.Log.WithFields(logrus.Fields{
		"substeps": n,
		"pits":     h.Diagnostics.NumPits,
	}).Debug("steady hydrological step complete")
	return nil
}
