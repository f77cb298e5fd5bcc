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
	"container/heap"

	"github.com/spatialmodel/dupuitlem/grid"
)

// fillIncrement [m] is the elevation step added across filled surfaces.
const fillIncrement = 1e-8

// DepressionFiller finds closed depressions in the topography and
// fills them so that every core node drains to an open boundary.
type DepressionFiller struct {
	g      *grid.Raster
	method Method
}

// NewDepressionFiller returns a depression filler that uses the
// neighborhood of routing method m.
func NewDepressionFiller(g *grid.Raster, m Method) (*DepressionFiller, error) {
	if _, err := ParseMethod(string(m)); err != nil {
		return nil, err
	}
	return &DepressionFiller{g: g, method: m}, nil
}

// CountPits returns the number of core nodes with no neighbor that
// is strictly lower.
func (f *DepressionFiller) CountPits() (int, error) {
	z, err := f.g.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return 0, err
	}
	nk := f.method.neighborhood()
	pits := 0
	for _, n := range f.g.CoreNodes() {
		nbs := f.g.Neighbors(n)
		pit := true
		for k := 0; k < nk; k++ {
			if m := nbs[k]; m >= 0 && f.g.Status(m) != grid.Closed && z[m] < z[n] {
				pit = false
				break
			}
		}
		if pit {
			pits++
		}
	}
	return pits, nil
}

// Correct raises the topographic__elevation of core nodes in closed
// depressions using a priority flood from the open boundaries. Filled
// surfaces are raised by fillIncrement per node toward the outlet
// rather than being left flat.
func (f *DepressionFiller) Correct() error {
	z, err := f.g.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return err
	}
	nk := f.method.neighborhood()
	closed := make([]bool, len(z))
	pq := new(nodeQueue)
	for n := range z {
		switch f.g.Status(n) {
		case grid.FixedValue:
			heap.Push(pq, nodeElev{n, z[n]})
			closed[n] = true
		case grid.Closed:
			closed[n] = true
		}
	}
	for pq.Len() > 0 {
		c := heap.Pop(pq).(nodeElev)
		nbs := f.g.Neighbors(c.node)
		for k := 0; k < nk; k++ {
			m := nbs[k]
			if m < 0 || closed[m] {
				continue
			}
			closed[m] = true
			if z[m] <= c.z {
				z[m] = c.z + fillIncrement
			}
			heap.Push(pq, nodeElev{m, z[m]})
		}
	}
	return nil
}

type nodeElev struct {
	node int
	z    float64
}

// nodeQueue is a min-priority queue on elevation.
type nodeQueue []nodeElev

func (q nodeQueue) Len() int { return len(q) }
func (q nodeQueue) Less(i, j int) bool {
	if q[i].z == q[j].z {
		return q[i].node < q[j].node
	}
	return q[i].z < q[j].z
}
func (q nodeQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x interface{}) { *q = append(*q, x.(nodeElev)) }
func (q *nodeQueue) Pop() interface{} {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
