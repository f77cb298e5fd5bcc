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

// Package streampower contains a detachment-limited fluvial erosion model
// driven by effective discharge.
package streampower

import (
	"fmt"

	"github.com/spatialmodel/dupuitlem"
	"github.com/spatialmodel/dupuitlem/grid"
)

// Eroder returns a surface process that erodes topography at rate
//
//	E = ksp q S
//
// where q [m²/s] is the node field named by discharge, usually
// surface_water_area_norm__discharge, and S is the slope to each
// node's receiver. Any erosion threshold is expected to have been
// removed from q already. The equation is solved implicitly by
// visiting nodes from downstream to upstream along the flow stack, so
// it is stable for any time step and never lowers a node below its
// receiver.
func Eroder(ksp float64, discharge string) (dupuitlem.SurfaceProcess, error) {
	if ksp < 0 {
		return nil, fmt.Errorf("streampower: erodibility must be >= 0; got %g", ksp)
	}
	return func(g *grid.Raster, dt float64) error {
		fields := make(map[string][]float64)
		for _, name := range []string{grid.TopographicElevation, discharge,
			grid.FlowReceiverNode, grid.FlowLinkToReceiver, grid.FlowUpstreamNodeOrder} {
			f, err := g.Field(grid.AtNode, name)
			if err != nil {
				return fmt.Errorf("streampower: %w", err)
			}
			fields[name] = f
		}
		z, q := fields[grid.TopographicElevation], fields[discharge]
		receiver, link := fields[grid.FlowReceiverNode], fields[grid.FlowLinkToReceiver]
		for _, sf := range fields[grid.FlowUpstreamNodeOrder] {
			n := int(sf)
			r, l := int(receiver[n]), int(link[n])
			if r == n || l < 0 || !g.IsCore(n) || z[n] <= z[r] {
				continue
			}
			alpha := ksp * q[n] * dt / g.LinkLength(l)
			z[n] = (z[n] + alpha*z[r]) / (1 + alpha)
		}
		return nil
	}, nil
}
