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
	"fmt"
	"math"

	"github.com/spatialmodel/dupuitlem/grid"
)

// surfaceAndBase returns the topographic and aquifer base elevations.
func surfaceAndBase(g *grid.Raster) (z, b []float64, err error) {
	if z, err = g.Field(grid.AtNode, grid.TopographicElevation); err != nil {
		return nil, nil, err
	}
	if b, err = g.Field(grid.AtNode, grid.AquiferBaseElevation); err != nil {
		return nil, nil, err
	}
	return z, b, nil
}

// Uplift raises the surface and the aquifer base of core nodes at rate
// u [m/s].
func Uplift(u float64) SurfaceProcess {
	return func(g *grid.Raster, dt float64) error {
		z, b, err := surfaceAndBase(g)
		if err != nil {
			return err
		}
		for _, n := range g.CoreNodes() {
			z[n] += u * dt
			b[n] += u * dt
		}
		return nil
	}
}

// RegolithProduction lowers the aquifer base of core nodes as bedrock
// weathers into permeable regolith, at a rate that decays
// exponentially with regolith thickness:
//
//	db/dt = -w0 exp(-(z-b)/ds)
//
// where w0 [m/s] is the production rate at zero thickness and ds [m]
// the characteristic depth.
func RegolithProduction(w0, ds float64) SurfaceProcess {
	return func(g *grid.Raster, dt float64) error {
		if !(ds > 0) {
			return fmt.Errorf("dupuitlem: characteristic regolith depth must be > 0; got %g", ds)
		}
		z, b, err := surfaceAndBase(g)
		if err != nil {
			return err
		}
		for _, n := range g.CoreNodes() {
			b[n] -= w0 * math.Exp(-(z[n]-b[n])/ds) * dt
		}
		return nil
	}
}

// ApplyErosionRate changes the elevation of core nodes by the
// fluvial_erosion__rate calculated by the hydrological model.
func ApplyErosionRate() SurfaceProcess {
	return func(g *grid.Raster, dt float64) error {
		z, err := g.Field(grid.AtNode, grid.TopographicElevation)
		if err != nil {
			return err
		}
		dzdt, err := g.Field(grid.AtNode, grid.FluvialErosionRate)
		if err != nil {
			return err
		}
		for _, n := range g.CoreNodes() {
			z[n] += dzdt[n] * dt
		}
		return nil
	}
}

// ClampToBedrock keeps the surface from eroding below the aquifer base.
func ClampToBedrock() SurfaceProcess {
	return func(g *grid.Raster, _ float64) error {
		z, b, err := surfaceAndBase(g)
		if err != nil {
			return err
		}
		for i := range z {
			if z[i] < b[i] {
				z[i] = b[i]
			}
		}
		return nil
	}
}
