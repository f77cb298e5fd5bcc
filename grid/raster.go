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

// Package grid holds the regular raster mesh that all DupuitLEM
// components share, along with the named fields stored on it.
package grid

import (
	"fmt"
	"math"
	"sort"
)

// Location specifies where on the mesh a field is defined.
type Location int

// Field locations.
const (
	AtNode Location = iota
	AtLink
)

func (l Location) String() string {
	switch l {
	case AtNode:
		return "node"
	case AtLink:
		return "link"
	default:
		return fmt.Sprintf("Location(%d)", int(l))
	}
}

// NodeStatus is the boundary status of a node.
type NodeStatus uint8

// Node boundary statuses.
const (
	// Core nodes are updated by the model.
	Core NodeStatus = iota
	// FixedValue nodes are open boundaries whose values are
	// held fixed and which act as sinks for water and sediment.
	FixedValue
	// Closed nodes are inactive.
	Closed
)

// Number of neighbors in the D8 neighborhood. Neighbors are
// ordered east, north, west, south, northeast, northwest,
// southwest, southeast.
const NumD8 = 8

var (
	d8dRow = [NumD8]int{0, 1, 0, -1, 1, 1, -1, -1}
	d8dCol = [NumD8]int{1, 0, -1, 0, 1, -1, -1, 1}
)

// Raster is a regular grid of square cells. Node IDs are row-major
// starting at the lower left corner. Links connect orthogonal
// neighbors and point from the lower ID (tail) to the higher ID (head);
// all horizontal links are numbered before vertical links.
// Diagonals are numbered after the links, starting at NumLinks().
type Raster struct {
	NRows, NCols int
	Dx           float64 // node spacing [m]

	status []NodeStatus

	tail, head []int // link endpoints, including diagonals

	// neighbor[n][k] is the kth D8 neighbor of node n, or -1.
	neighbor [][NumD8]int
	// linkAt[n][k] is the link or diagonal connecting node n to
	// neighbor[n][k], or -1.
	linkAt [][NumD8]int

	nLinks int

	fields map[Location]map[string][]float64
}

// NewRaster creates a new grid with nrows rows and ncols columns of
// nodes with spacing dx. All perimeter nodes are set to FixedValue
// and all interior nodes are Core.
func NewRaster(nrows, ncols int, dx float64) (*Raster, error) {
	if nrows < 3 || ncols < 3 {
		return nil, fmt.Errorf("grid: raster must have at least 3 rows and columns; got %d×%d", nrows, ncols)
	}
	if dx <= 0 || math.IsNaN(dx) || math.IsInf(dx, 0) {
		return nil, fmt.Errorf("grid: invalid node spacing %g", dx)
	}
	g := &Raster{
		NRows:  nrows,
		NCols:  ncols,
		Dx:     dx,
		status: make([]NodeStatus, nrows*ncols),
		fields: map[Location]map[string][]float64{
			AtNode: make(map[string][]float64),
			AtLink: make(map[string][]float64),
		},
	}
	for n := range g.status {
		r, c := g.rowCol(n)
		if r == 0 || c == 0 || r == nrows-1 || c == ncols-1 {
			g.status[n] = FixedValue
		}
	}
	g.buildTopology()
	return g, nil
}

func (g *Raster) rowCol(n int) (row, col int) { return n / g.NCols, n % g.NCols }

func (g *Raster) buildTopology() {
	nn := g.NumNodes()
	g.neighbor = make([][NumD8]int, nn)
	g.linkAt = make([][NumD8]int, nn)
	for n := 0; n < nn; n++ {
		r, c := g.rowCol(n)
		for k := 0; k < NumD8; k++ {
			g.linkAt[n][k] = -1
			rr, cc := r+d8dRow[k], c+d8dCol[k]
			if rr < 0 || rr >= g.NRows || cc < 0 || cc >= g.NCols {
				g.neighbor[n][k] = -1
				continue
			}
			g.neighbor[n][k] = rr*g.NCols + cc
		}
	}
	addLink := func(n, k int) {
		m := g.neighbor[n][k]
		id := len(g.tail)
		g.tail = append(g.tail, n)
		g.head = append(g.head, m)
		g.linkAt[n][k] = id
		g.linkAt[m][(k+2)%4+4*(k/4)] = id
	}
	// Horizontal links (east), then vertical links (north).
	for r := 0; r < g.NRows; r++ {
		for c := 0; c < g.NCols-1; c++ {
			addLink(r*g.NCols+c, 0)
		}
	}
	for r := 0; r < g.NRows-1; r++ {
		for c := 0; c < g.NCols; c++ {
			addLink(r*g.NCols+c, 1)
		}
	}
	g.nLinks = len(g.tail)
	// Diagonals (northeast, then northwest).
	for r := 0; r < g.NRows-1; r++ {
		for c := 0; c < g.NCols; c++ {
			n := r*g.NCols + c
			if c < g.NCols-1 {
				addLink(n, 4)
			}
			if c > 0 {
				addLink(n, 5)
			}
		}
	}
}

// NumNodes returns the number of nodes in the grid.
func (g *Raster) NumNodes() int { return g.NRows * g.NCols }

// NumLinks returns the number of orthogonal links in the grid.
func (g *Raster) NumLinks() int { return g.nLinks }

// NumD8Links returns the number of links plus diagonals.
func (g *Raster) NumD8Links() int { return len(g.tail) }

// LinkTail returns the tail node of link or diagonal l.
func (g *Raster) LinkTail(l int) int { return g.tail[l] }

// LinkHead returns the head node of link or diagonal l.
func (g *Raster) LinkHead(l int) int { return g.head[l] }

// LinkLength returns the length of link or diagonal l.
func (g *Raster) LinkLength(l int) float64 {
	if l >= g.nLinks {
		return g.Dx * math.Sqrt2
	}
	return g.Dx
}

// Neighbors returns the D8 neighbors of node n. Missing neighbors are -1.
func (g *Raster) Neighbors(n int) [NumD8]int { return g.neighbor[n] }

// LinksAtNode returns the links and diagonals connecting node n to
// each of its D8 neighbors. Missing links are -1.
func (g *Raster) LinksAtNode(n int) [NumD8]int { return g.linkAt[n] }

// Status returns the boundary status of node n.
func (g *Raster) Status(n int) NodeStatus { return g.status[n] }

// SetStatus sets the boundary status of node n.
func (g *Raster) SetStatus(n int, s NodeStatus) { g.status[n] = s }

// SetClosedBoundaries sets the perimeter nodes on the given edges
// to Closed. Edges are right, top, left, bottom.
func (g *Raster) SetClosedBoundaries(right, top, left, bottom bool) {
	for n := range g.status {
		r, c := g.rowCol(n)
		if (right && c == g.NCols-1) || (top && r == g.NRows-1) ||
			(left && c == 0) || (bottom && r == 0) {
			g.status[n] = Closed
		}
	}
}

// IsCore returns whether node n is a core node.
func (g *Raster) IsCore(n int) bool { return g.status[n] == Core }

// CoreNodes returns the IDs of the core nodes in ascending order.
func (g *Raster) CoreNodes() []int { return g.withStatus(Core) }

// OpenBoundaryNodes returns the IDs of the FixedValue nodes.
func (g *Raster) OpenBoundaryNodes() []int { return g.withStatus(FixedValue) }

func (g *Raster) withStatus(s NodeStatus) []int {
	var o []int
	for n, st := range g.status {
		if st == s {
			o = append(o, n)
		}
	}
	return o
}

// CellArea returns the area of the cell surrounding each node. Only
// interior nodes have cells; perimeter nodes have an area of zero.
func (g *Raster) CellArea() []float64 {
	a := make([]float64, g.NumNodes())
	for n := range a {
		r, c := g.rowCol(n)
		if r > 0 && c > 0 && r < g.NRows-1 && c < g.NCols-1 {
			a[n] = g.Dx * g.Dx
		}
	}
	return a
}

func (g *Raster) size(loc Location) int {
	if loc == AtLink {
		return g.NumLinks()
	}
	return g.NumNodes()
}

// AddField creates a zero-valued field with the given name at loc and
// returns it. If the field already exists, the existing
// field is returned unchanged.
func (g *Raster) AddField(loc Location, name string) []float64 {
	if f, ok := g.fields[loc][name]; ok {
		return f
	}
	f := make([]float64, g.size(loc))
	g.fields[loc][name] = f
	return f
}

// SetField copies vals into the named field, creating it if necessary.
func (g *Raster) SetField(loc Location, name string, vals []float64) error {
	if len(vals) != g.size(loc) {
		return fmt.Errorf("grid: field %s at %s has length %d; it should be %d",
			name, loc, len(vals), g.size(loc))
	}
	copy(g.AddField(loc, name), vals)
	return nil
}

// Field returns the named field at loc. The returned slice is the
// stored field, not a copy.
func (g *Raster) Field(loc Location, name string) ([]float64, error) {
	f, ok := g.fields[loc][name]
	if !ok {
		return nil, fmt.Errorf("grid: no field named %s at %s", name, loc)
	}
	return f, nil
}

// HasField returns whether the named field exists at loc.
func (g *Raster) HasField(loc Location, name string) bool {
	_, ok := g.fields[loc][name]
	return ok
}

// FieldNames returns the sorted names of the fields at loc.
func (g *Raster) FieldNames(loc Location) []string {
	var o []string
	for name := range g.fields[loc] {
		o = append(o, name)
	}
	sort.Strings(o)
	return o
}

// CalcGradAtLink returns the gradient of the node values v along each
// orthogonal link, positive when v increases from tail to head.
func (g *Raster) CalcGradAtLink(v []float64) []float64 {
	o := make([]float64, g.NumLinks())
	for l := range o {
		o[l] = (v[g.head[l]] - v[g.tail[l]]) / g.Dx
	}
	return o
}

// CalcGradAtD8 returns the gradient of the node values v along each
// link and diagonal.
func (g *Raster) CalcGradAtD8(v []float64) []float64 {
	o := make([]float64, g.NumD8Links())
	for l := range o {
		o[l] = (v[g.head[l]] - v[g.tail[l]]) / g.LinkLength(l)
	}
	return o
}

// MapMaxOfLinkNodes returns, at each orthogonal link, the value of w
// at whichever of the link's two nodes has the larger value of v.
func (g *Raster) MapMaxOfLinkNodes(v, w []float64) []float64 {
	o := make([]float64, g.NumLinks())
	for l := range o {
		if v[g.head[l]] > v[g.tail[l]] {
			o[l] = w[g.head[l]]
		} else {
			o[l] = w[g.tail[l]]
		}
	}
	return o
}
