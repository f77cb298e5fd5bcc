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

package lemutil

import (
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/dupuitlem/grid"
	"github.com/spf13/cast"
	"golang.org/x/exp/rand"
)

// closedEdges parses the Grid.ClosedBoundaries configuration into
// flags for the right, top, left, and bottom edges.
func closedEdges(v interface{}) (right, top, left, bottom bool, err error) {
	edges, err := cast.ToStringSliceE(v)
	if err != nil {
		return false, false, false, false, fmt.Errorf("dupuitlem: Grid.ClosedBoundaries: %v", err)
	}
	for _, e := range edges {
		switch strings.ToLower(strings.TrimSpace(e)) {
		case "right":
			right = true
		case "top":
			top = true
		case "left":
			left = true
		case "bottom":
			bottom = true
		case "":
		default:
			return false, false, false, false,
				fmt.Errorf("dupuitlem: Grid.ClosedBoundaries: invalid edge '%s'", e)
		}
	}
	if right && top && left && bottom {
		return false, false, false, false,
			fmt.Errorf("dupuitlem: Grid.ClosedBoundaries: at least one edge must be open")
	}
	return right, top, left, bottom, nil
}

// NewGrid creates the model grid specified by cfg. The aquifer base is
// flat at zero elevation. The surface is Grid.RegolithThickness above
// it at core nodes, plus uniform random noise of amplitude
// Grid.InitialNoise, and at the aquifer base at boundary nodes. The
// water table starts at the surface.
func NewGrid(cfg *viper.Viper) (*grid.Raster, error) {
	g, err := grid.NewRaster(cfg.GetInt("Grid.NRows"), cfg.GetInt("Grid.NCols"), cfg.GetFloat64("Grid.Dx"))
	if err != nil {
		return nil, fmt.Errorf("dupuitlem: %w", err)
	}
	right, top, left, bottom, err := closedEdges(cfg.Get("Grid.ClosedBoundaries"))
	if err != nil {
		return nil, err
	}
	g.SetClosedBoundaries(right, top, left, bottom)

	thickness := cfg.GetFloat64("Grid.RegolithThickness")
	if thickness < 0 {
		return nil, fmt.Errorf("dupuitlem: Grid.RegolithThickness must be >= 0; got %g", thickness)
	}
	noise := cfg.GetFloat64("Grid.InitialNoise")
	src := rand.New(rand.NewSource(uint64(cfg.GetInt("Seed"))))

	z := g.AddField(grid.AtNode, grid.TopographicElevation)
	g.AddField(grid.AtNode, grid.AquiferBaseElevation)
	wt := g.AddField(grid.AtNode, grid.WaterTableElevation)
	for _, n := range g.CoreNodes() {
		z[n] = thickness + noise*src.Float64()
	}
	copy(wt, z)
	return g, nil
}
