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

package flow

import (
	"github.com/spatialmodel/dupuitlem/grid"
)

// Router bundles a Director, an Accumulator, and a DepressionFiller
// that share a routing method.
type Router struct {
	Director    *Director
	Accumulator *Accumulator
	Filler      *DepressionFiller
}

// NewRouter creates a Router on grid g. method must be "D8" or
// "Steepest".
func NewRouter(g *grid.Raster, method string) (*Router, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	d, err := NewDirector(g, m)
	if err != nil {
		return nil, err
	}
	f, err := NewDepressionFiller(g, m)
	if err != nil {
		return nil, err
	}
	return &Router{Director: d, Accumulator: NewAccumulator(d), Filler: f}, nil
}

// UpdateDirections recalculates flow directions from the current topography.
func (r *Router) UpdateDirections() error { return r.Director.Run() }

// Accumulate routes runoff down the flow network.
func (r *Router) Accumulate(updateDirections bool) (area, q []float64, err error) {
	return r.Accumulator.Accumulate(updateDirections)
}

// CountPits returns the number of closed depressions.
func (r *Router) CountPits() (int, error) { return r.Filler.CountPits() }

// Correct fills closed depressions.
func (r *Router) Correct() error { return r.Filler.Correct() }
