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

// Package precip generates stochastic sequences of storms.
package precip

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Storm is a single rainfall event followed by a dry period.
type Storm struct {
	Duration   float64 // [s]
	Interstorm float64 // [s]
	Depth      float64 // [m]
}

// Intensity returns the mean rainfall rate [m/s] during the storm.
func (s Storm) Intensity() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.Depth / s.Duration
}

// Distribution draws storm durations, interstorm durations, and storm
// depths from independent exponential distributions
// (Eagleson, 1978).
type Distribution struct {
	// TotalTime is the length [s] of each generated sequence.
	TotalTime float64

	duration, interstorm, depth distuv.Exponential
}

// NewDistribution returns a storm distribution with the given means.
// Durations are in seconds and depths in meters. seed initializes the
// random number generator.
func NewDistribution(meanDuration, meanInterstorm, meanDepth, totalTime float64, seed uint64) (*Distribution, error) {
	for _, v := range []struct {
		name string
		val  float64
	}{
		{"mean storm duration", meanDuration},
		{"mean interstorm duration", meanInterstorm},
		{"mean storm depth", meanDepth},
		{"total time", totalTime},
	} {
		if !(v.val > 0) {
			return nil, fmt.Errorf("precip: %s must be > 0; got %g", v.name, v.val)
		}
	}
	src := rand.NewSource(seed)
	return &Distribution{
		TotalTime:  totalTime,
		duration:   distuv.Exponential{Rate: 1 / meanDuration, Src: src},
		interstorm: distuv.Exponential{Rate: 1 / meanInterstorm, Src: src},
		depth:      distuv.Exponential{Rate: 1 / meanDepth, Src: src},
	}, nil
}

// Storms returns a sequence of storms whose durations sum to
// TotalTime. The last storm or dry period is truncated so
// that the sequence ends exactly at TotalTime.
func (d *Distribution) Storms() []Storm {
	var o []Storm
	var t float64
	for {
		s := Storm{
			Duration:   d.duration.Rand(),
			Interstorm: d.interstorm.Rand(),
			Depth:      d.depth.Rand(),
		}
		switch {
		case t+s.Duration >= d.TotalTime:
			// Keep the intensity of the truncated storm.
			i := s.Intensity()
			s.Duration = d.TotalTime - t
			s.Depth = i * s.Duration
			s.Interstorm = 0
			return append(o, s)
		case t+s.Duration+s.Interstorm >= d.TotalTime:
			s.Interstorm = d.TotalTime - t - s.Duration
			return append(o, s)
		}
		o = append(o, s)
		t += s.Duration + s.Interstorm
	}
}
