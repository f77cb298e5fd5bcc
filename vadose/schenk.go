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

// Package vadose holds a stochastic model of the unsaturated zone
// after Schenk (2008), which tracks a profile of storage bins that
// fill from the top during storms and are emptied by evapotranspiration
// between storms. Water that passes all unfilled bins above a given
// depth becomes recharge at that depth.
package vadose

import (
	"fmt"
)

// Profile is a column of equally sized storage bins.
type Profile struct {
	// PET is the potential evapotranspiration rate [m/s].
	PET float64

	depths          []float64
	binCapacity     float64
	saturated       []bool
	rechargeAtDepth []float64
}

// NewProfile creates a profile of numBins bins extending to
// profileDepth [m]. Each bin holds availableWaterContent times its
// thickness. pet is the potential evapotranspiration rate [m/s].
func NewProfile(numBins int, profileDepth, availableWaterContent, pet float64) (*Profile, error) {
	if numBins < 1 {
		return nil, fmt.Errorf("vadose: need at least one bin; got %d", numBins)
	}
	if profileDepth <= 0 || availableWaterContent <= 0 || pet < 0 {
		return nil, fmt.Errorf("vadose: invalid profile: depth=%g, water content=%g, PET=%g",
			profileDepth, availableWaterContent, pet)
	}
	dz := profileDepth / float64(numBins)
	p := &Profile{
		PET:             pet,
		depths:          make([]float64, numBins),
		binCapacity:     availableWaterContent * dz,
		saturated:       make([]bool, numBins),
		rechargeAtDepth: make([]float64, numBins),
	}
	for i := range p.depths {
		p.depths[i] = dz * float64(i+1)
	}
	return p, nil
}

// Depths returns the depth [m] of the bottom of each bin, increasing
// from the surface.
func (p *Profile) Depths() []float64 { return p.depths }

// BinCapacity returns the water depth [m] that fills one bin.
func (p *Profile) BinCapacity() float64 { return p.binCapacity }

// RechargeAtDepth returns the depth of water [m] that reached the
// bottom of each bin during the last event.
func (p *Profile) RechargeAtDepth() []float64 { return p.rechargeAtDepth }

// Saturated returns whether each bin is at capacity.
func (p *Profile) Saturated() []bool { return p.saturated }

// RunEvent infiltrates a storm of depth d [m]. Unfilled bins are filled
// from the top down; the water remaining below each bin is the
// recharge at that depth.
func (p *Profile) RunEvent(d float64) {
	remaining := d
	for i, sat := range p.saturated {
		if !sat && remaining >= p.binCapacity {
			p.saturated[i] = true
			remaining -= p.binCapacity
		} else if !sat {
			remaining = 0
		}
		p.rechargeAtDepth[i] = remaining
	}
}

// RunInterevent removes water by evapotranspiration over an interval
// of duration t [s], emptying the shallowest filled bins first.
func (p *Profile) RunInterevent(t float64) {
	n := int(p.PET * t / p.binCapacity)
	for i := range p.saturated {
		if n == 0 {
			return
		}
		if p.saturated[i] {
			p.saturated[i] = false
			n--
		}
	}
}
