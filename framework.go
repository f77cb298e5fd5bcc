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

// Package dupuitlem is a landscape evolution model in which runoff is
// generated by groundwater seepage. A hydrological model runs a series
// of storms and dry periods through a Dupuit-Forchheimer groundwater
// model and a flow router, and aggregates the resulting shear stress or
// discharge into effective values that drive erosion over much longer
// morphologic time steps.
package dupuitlem

import (
	"github.com/spatialmodel/dupuitlem/grid"
)

// Version gives the version number.
const Version = "0.3.0"

// Hydrology is a hydrological model that updates the fields that
// drive erosion once per morphologic step.
type Hydrology interface {
	RunStep() error
}

// LEM holds the current state of a landscape evolution simulation.
type LEM struct {
	Grid      *grid.Raster
	Hydrology Hydrology

	// Dt is the morphologic time step [s]. It is the hydrological
	// time per step multiplied by the morphologic scaling factor.
	Dt float64

	// Time is the model time elapsed [s].
	Time float64

	// Iteration is the number of completed steps.
	Iteration int

	// InitFuncs are functions to be called in the given order
	// at the beginning of the simulation.
	InitFuncs []DomainManipulator

	// RunFuncs are functions to be called in the given order repeatedly
	// until "Done" is true. Therefore, the simulation will not end until
	// one of the RunFuncs sets "Done" to true.
	RunFuncs []DomainManipulator

	// CleanupFuncs are functions to be called in the given order
	// at the end of the simulation.
	CleanupFuncs []DomainManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	// Stats holds the diagnostics of each completed step.
	Stats []StepStats
}

// StepStats holds diagnostics of one morphologic step.
type StepStats struct {
	MaxSubstepsStorm      int
	MaxSubstepsInterstorm int
	NumPits               int

	// MaxRelativeChange and Percentile90RelativeChange describe the
	// relative change in elevation of core nodes over the step.
	MaxRelativeChange, Percentile90RelativeChange float64
}

// DomainManipulator is a function that changes the state of the
// whole model domain.
type DomainManipulator func(*LEM) error

// SurfaceProcess changes the landscape on grid g over a morphologic
// time step of dt seconds.
type SurfaceProcess func(g *grid.Raster, dt float64) error

// Init initializes the simulation by running d.InitFuncs.
func (d *LEM) Init() error {
	for _, f := range d.InitFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}

// Run carries out the simulation by running d.RunFuncs until d.Done is true.
func (d *LEM) Run() error {
	for !d.Done {
		for _, f := range d.RunFuncs {
			if err := f(d); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running d.CleanupFuncs.
func (d *LEM) Cleanup() error {
	for _, f := range d.CleanupFuncs {
		if err := f(d); err != nil {
			return err
		}
	}
	return nil
}
