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

// Package flow routes surface water across a raster grid: it finds
// steepest-descent receivers, accumulates drainage area and discharge
// down the resulting network, and finds and fills closed depressions.
package flow

import (
	"errors"
	"fmt"

	"github.com/spatialmodel/dupuitlem/grid"
)

// Method is a flow routing method.
type Method string

// Routing methods.
const (
	// D8 routes flow to the steepest of all eight neighbors.
	D8 Method = "D8"
	// Steepest routes flow to the steepest of the four orthogonal
	// neighbors.
	Steepest Method = "Steepest"
)

// ErrMethod is returned when a routing method is not recognized.
var ErrMethod = errors.New("routing method must be either D8 or Steepest")

// ParseMethod checks that s names a valid routing method.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case D8, Steepest:
		return Method(s), nil
	default:
		return "", fmt.Errorf("flow: %q: %w", s, ErrMethod)
	}
}

// neighborhood returns the number of D8 neighbor slots that
// method m considers.
func (m Method) neighborhood() int {
	if m == D8 {
		return grid.NumD8
	}
	return 4
}

// Director finds the steepest-descent receiver of every node.
type Director struct {
	g      *grid.Raster
	method Method

	receiver []int
	link     []int
	slope    []float64
	stack    []int
}

// NewDirector returns a flow director for grid g using routing
// method m. The grid must have a topographic__elevation field.
func NewDirector(g *grid.Raster, m Method) (*Director, error) {
	if _, err := ParseMethod(string(m)); err != nil {
		return nil, err
	}
	if !g.HasField(grid.AtNode, grid.TopographicElevation) {
		return nil, fmt.Errorf("flow: grid is missing field %s", grid.TopographicElevation)
	}
	n := g.NumNodes()
	d := &Director{
		g:        g,
		method:   m,
		receiver: make([]int, n),
		link:     make([]int, n),
		slope:    make([]float64, n),
		stack:    make([]int, 0, n),
	}
	for _, name := range []string{grid.FlowReceiverNode, grid.FlowLinkToReceiver,
		grid.SteepestSlope, grid.FlowUpstreamNodeOrder} {
		g.AddField(grid.AtNode, name)
	}
	return d, nil
}

// Method returns the routing method.
func (d *Director) Method() Method { return d.method }

// Receivers returns the receiver of every node as of the last call to
// Run. Nodes without a downslope neighbor are their own receivers.
func (d *Director) Receivers() []int { return d.receiver }

// Links returns the link or diagonal from each node to its receiver,
// or -1.
func (d *Director) Links() []int { return d.link }

// Stack returns node IDs ordered from downstream to upstream.
func (d *Director) Stack() []int { return d.stack }

// Run updates the receivers, the upstream node order, and the
// corresponding grid fields from the current topography.
func (d *Director) Run() error {
	z, err := d.g.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return err
	}
	nk := d.method.neighborhood()
	for n := range d.receiver {
		d.receiver[n] = n
		d.link[n] = -1
		d.slope[n] = 0
		if !d.g.IsCore(n) {
			continue
		}
		nbs, links := d.g.Neighbors(n), d.g.LinksAtNode(n)
		for k := 0; k < nk; k++ {
			m := nbs[k]
			if m < 0 || d.g.Status(m) == grid.Closed {
				continue
			}
			s := (z[n] - z[m]) / d.g.LinkLength(links[k])
			if s > d.slope[n] {
				d.slope[n] = s
				d.receiver[n] = m
				d.link[n] = links[k]
			}
		}
	}
	d.buildStack()
	return d.writeFields()
}

// buildStack orders nodes so every node comes after its receiver.
func (d *Director) buildStack() {
	n := len(d.receiver)
	ndonors := make([]int, n+1)
	for i, r := range d.receiver {
		if r != i {
			ndonors[r+1]++
		}
	}
	for i := 1; i <= n; i++ {
		ndonors[i] += ndonors[i-1]
	}
	donors := make([]int, n)
	fill := append([]int(nil), ndonors[:n]...)
	for i, r := range d.receiver {
		if r != i {
			donors[fill[r]] = i
			fill[r]++
		}
	}
	d.stack = d.stack[:0]
	var queue []int
	for i, r := range d.receiver {
		if r != i {
			continue
		}
		queue = append(queue[:0], i)
		for len(queue) > 0 {
			last := len(queue) - 1
			c := queue[last]
			queue = queue[:last]
			d.stack = append(d.stack, c)
			queue = append(queue, donors[ndonors[c]:ndonors[c+1]]...)
		}
	}
}

func (d *Director) writeFields() error {
	vals := map[string]func(i int) float64{
		grid.FlowReceiverNode:      func(i int) float64 { return float64(d.receiver[i]) },
		grid.FlowLinkToReceiver:    func(i int) float64 { return float64(d.link[i]) },
		grid.SteepestSlope:         func(i int) float64 { return d.slope[i] },
		grid.FlowUpstreamNodeOrder: func(i int) float64 { return float64(d.stack[i]) },
	}
	for name, f := range vals {
		field, err := d.g.Field(grid.AtNode, name)
		if err != nil {
			return err
		}
		for i := range field {
			field[i] = f(i)
		}
	}
	return nil
}
