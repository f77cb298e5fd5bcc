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
	"github.com/spatialmodel/dupuitlem/precip"
)

// Event is a rainfall event followed by a dry period.
type Event struct {
	Storm      float64 // storm duration [s]
	Interstorm float64 // interstorm duration [s], may be zero
	Intensity  float64 // rainfall rate during the storm [m/s]
}

// Sequence is an ordered series of events. The durations of a
// sequence sum to the horizon of the Forcing that generated it.
type Sequence []Event

// Duration returns the sum of the storm and interstorm durations.
func (s Sequence) Duration() float64 {
	var t float64
	for _, e := range s {
		t += e.Storm + e.Interstorm
	}
	return t
}

// Forcing generates the rainfall sequence for one hydrological step.
type Forcing interface {
	// Generate returns a new sequence. Stochastic forcings return a
	// fresh draw on every call.
	Generate() Sequence

	// Horizon returns the total duration of every generated sequence [s].
	Horizon() float64
}

// StochasticForcing draws a new storm series from Storms on each call.
type StochasticForcing struct {
	Storms *precip.Distribution
}

// Generate implements Forcing.
func (f StochasticForcing) Generate() Sequence {
	storms := f.Storms.Storms()
	o := make(Sequence, len(storms))
	for i, s := range storms {
		o[i] = Event{Storm: s.Duration, Interstorm: s.Interstorm, Intensity: s.Intensity()}
	}
	return o
}

// Horizon implements Forcing.
func (f StochasticForcing) Horizon() float64 { return f.Storms.TotalTime }

// SteadyForcing is a single storm of constant Rate [m/s] lasting
// TotalTime [s] with no dry period.
type SteadyForcing struct {
	TotalTime, Rate float64
}

// Generate implements Forcing.
func (f SteadyForcing) Generate() Sequence {
	return Sequence{{Storm: f.TotalTime, Interstorm: 0, Intensity: f.Rate}}
}

// Horizon implements Forcing.
func (f SteadyForcing) Horizon() float64 { return f.TotalTime }

// FixedForcing replays the same sequence on every call.
type FixedForcing Sequence

// Generate implements Forcing.
func (f FixedForcing) Generate() Sequence { return append(Sequence(nil), f...) }

// Horizon implements Forcing.
func (f FixedForcing) Horizon() float64 { return Sequence(f).Duration() }
