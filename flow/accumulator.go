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
	"fmt"

	"github.com/spatialmodel/dupuitlem/grid"
)

// Accumulator sums drainage area and discharge down the flow network
// found by a Director. Local runoff at each node is the runoff rate
// field times the cell area.
type Accumulator struct {
	*Director

	// RunoffField is the name of the node field holding the local
	// runoff rate [m/s].
	RunoffField string

	cellArea []float64
}

// NewAccumulator returns an accumulator that routes runoff from the
// average_surface_water__specific_discharge field.
func NewAccumulator(d *Director) *Accumulator {
	a := &Accumulator{
		Director:    d,
		RunoffField: grid.SurfaceWaterSpecificDischarge,
		cellArea:    d.g.CellArea(),
	}
	d.g.AddField(grid.AtNode, grid.DrainageArea)
	d.g.AddField(grid.AtNode, grid.SurfaceWaterDischarge)
	return a
}

// Accumulate updates the drainage_area and surface_water__discharge
// fields and returns them. If updateDirections is true, flow directions
// are recalculated first; otherwise the last directions are reused.
// The returned slices are the grid fields, which are overwritten by
// the next call.
func (a *Accumulator) Accumulate(updateDirections bool) (area, q []float64, err error) {
	if updateDirections || len(a.stack) == 0 {
		if err = a.Run(); err != nil {
			return nil, nil, err
		}
	}
	runoff, err := a.g.Field(grid.AtNode, a.RunoffField)
	if err != nil {
		return nil, nil, fmt.Errorf("flow: accumulating discharge: %w", err)
	}
	area, err = a.g.Field(grid.AtNode, grid.DrainageArea)
	if err != nil {
		return nil, nil, err
	}
	q, err = a.g.Field(grid.AtNode, grid.SurfaceWaterDischarge)
	if err != nil {
		return nil, nil, err
	}
	for i, ca := range a.cellArea {
		area[i] = ca
		q[i] = ca * runoff[i]
	}
	stack, receivers := a.Stack(), a.Receivers()
	for i := len(stack) - 1; i >= 0; i-- {
		n := stack[i]
		if r := receivers[n]; r != n {
			area[r] += area[n]
			q[r] += q[n]
		}
	}
	return area, q, nil
}
