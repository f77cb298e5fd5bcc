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

package streampower

import (
	"math"
	"testing"

	"github.com/spatialmodel/dupuitlem/flow"
	"github.com/spatialmodel/dupuitlem/grid"
)

// channel returns a single-row channel of core nodes that drains to
// the west.
func channel(t *testing.T) *grid.Raster {
	g, err := grid.NewRaster(3, 6, 10)
	if err != nil {
		t.Fatal(err)
	}
	g.SetClosedBoundaries(true, true, false, true)
	z := g.AddField(grid.AtNode, grid.TopographicElevation)
	for n := range z {
		z[n] = float64(n % 6)
	}
	d, err := flow.NewDirector(g, flow.D8)
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Run(); err != nil {
		t.Fatal(err)
	}
	return g
}

func TestEroderSingleNode(t *testing.T) {
	g := channel(t)
	z, _ := g.Field(grid.AtNode, grid.TopographicElevation)
	q := g.AddField(grid.AtNode, grid.SurfaceWaterAreaNormDischarge)
	q[7] = 1

	const ksp, dt = 1e-3, 1000.
	p, err := Eroder(ksp, grid.SurfaceWaterAreaNormDischarge)
	if err != nil {
		t.Fatal(err)
	}
	if err := p(g, dt); err != nil {
		t.Fatal(err)
	}
	// Node 7 drains to the fixed-value node 6 at z = 0.
	alpha := ksp * 1 * dt / 10
	want := 1 / (1 + alpha)
	if math.Abs(z[7]-want) > 1e-12 {
		t.Errorf("have %g, want %g", z[7], want)
	}
	if z[8] != 2 {
		t.Errorf("node without discharge changed: %g", z[8])
	}
}

func TestEroderLargeStep(t *testing.T) {
	g := channel(t)
	z, _ := g.Field(grid.AtNode, grid.TopographicElevation)
	q := g.AddField(grid.AtNode, grid.SurfaceWaterAreaNormDischarge)
	for n := range q {
		q[n] = 1
	}
	p, err := Eroder(1, grid.SurfaceWaterAreaNormDischarge)
	if err != nil {
		t.Fatal(err)
	}
	if err := p(g, 1e9); err != nil {
		t.Fatal(err)
	}
	for n := 7; n < 11; n++ {
		if z[n] < z[n-1] || z[n] < 0 || z[n] > 1e-6 {
			t.Errorf("node %d: elevation %g is unstable or below its receiver", n, z[n])
		}
	}
	if z[11] != 5 {
		t.Errorf("closed node changed: %g", z[11])
	}
}

func TestEroderErrors(t *testing.T) {
	if _, err := Eroder(-1, grid.SurfaceWaterAreaNormDischarge); err == nil {
		t.Error("negative erodibility should cause an error")
	}
	g := channel(t)
	p, err := Eroder(1, "no_such_field")
	if err != nil {
		t.Fatal(err)
	}
	if err := p(g, 1); err == nil {
		t.Error("missing discharge field should cause an error")
	}
}
