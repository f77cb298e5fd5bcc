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

// Package diffusion contains a linear hillslope diffusion model.
package diffusion

import (
	"fmt"
	"math"

	"github.com/spatialmodel/dupuitlem"
	"github.com/spatialmodel/dupuitlem/grid"
)

// stability is the fraction of the explicit stability limit used
// for each substep.
const stability = 0.2

// Linear returns a surface process that diffuses topographic elevation
// with diffusivity d [m²/s]:
//
//	dz/dt = -∇·(-d ∇z)
//
// The equation is solved explicitly on the orthogonal links of the grid,
// with as many substeps as stability requires. There is no flux across
// links that touch closed nodes, and only core nodes change elevation.
func Linear(d float64) (dupuitlem.SurfaceProcess, error) {
	if d < 0 {
		return nil, fmt.Errorf("diffusion: diffusivity must be >= 0; got %g", d)
	}
	return func(g *grid.Raster, dt float64) error {
		z, err := g.Field(grid.AtNode, grid.TopographicElevation)
		if err != nil {
			return fmt.Errorf("diffusion: %w", err)
		}
		if d == 0 || dt <= 0 {
			return nil
		}
		maxStep := stability * g.Dx * g.Dx / d
		nSteps := int(math.Ceil(dt / maxStep))
		h := dt / float64(nSteps)

		active := make([]bool, g.NumLinks())
		for l := range active {
			t, hd := g.LinkTail(l), g.LinkHead(l)
			active[l] = g.Status(t) != grid.Closed && g.Status(hd) != grid.Closed &&
				(g.IsCore(t) || g.IsCore(hd))
		}
		dz := make([]float64, len(z))
		for i := 0; i < nSteps; i++ {
			for n := range dz {
				dz[n] = 0
			}
			for l, ok := range active {
				if !ok {
					continue
				}
				t, hd := g.LinkTail(l), g.LinkHead(l)
				q := -d * (z[hd] - z[t]) / g.Dx
				dz[t] -= q * h / g.Dx
				dz[hd] += q * h / g.Dx
			}
			for n, v := range dz {
				if g.IsCore(n) {
					z[n] += v
				}
			}
		}
		return nil
	}, nil
}
