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

	"github.com/ctessum/sparse"
	"github.com/ctessum/unit"
	"github.com/spatialmodel/dupuitlem/grid"
)

var volume = unit.Dimensions{unit.LengthDim: 3}

// Balance holds the water volumes [m³] crossing the model boundaries
// during a step.
type Balance struct {
	// Precipitation falling on core nodes.
	Precipitation *unit.Unit
	// Recharge reaching the water table beneath core nodes.
	Recharge *unit.Unit
	// Exfiltration is surface water discharge leaving through open
	// boundary nodes.
	Exfiltration *unit.Unit
}

func newBalance() Balance {
	return Balance{
		Precipitation: unit.New(0, volume),
		Recharge:      unit.New(0, volume),
		Exfiltration:  unit.New(0, volume),
	}
}

// Recorder keeps the state of the model at the start of a step and at
// the end of every storm and dry period, so a step with N events has
// 2N+1 time points. State arrays are indexed [time point, node].
// Values not defined at a time point, such as recharge at the end of a
// dry period, are zero.
type Recorder struct {
	Time      []float64 // [s]
	Intensity []float64 // rainfall intensity [m/s]

	Discharge                *sparse.DenseArray // [m³/s]
	WaterTable               *sparse.DenseArray // [m]
	SurfaceSpecificDischarge *sparse.DenseArray // [m/s]
	ShearStress              *sparse.DenseArray // [Pa]
	Recharge                 *sparse.DenseArray // [m/s]

	Balance Balance

	// Horizon is the duration of the recorded step [s].
	Horizon float64

	g         *grid.Raster
	cores     []int
	open      []int
	cellArea  []float64
	fields    Fields
	numPoints int
}

// NewRecorder returns a recorder for grid g.
func NewRecorder(g *grid.Raster) *Recorder {
	return &Recorder{
		g:        g,
		cores:    g.CoreNodes(),
		open:     g.OpenBoundaryNodes(),
		cellArea: g.CellArea(),
	}
}

func (r *Recorder) begin(numEvents int, f Fields) error {
	r.numPoints = 2*numEvents + 1
	nn := r.g.NumNodes()
	r.fields = f
	r.Time = make([]float64, r.numPoints)
	r.Intensity = make([]float64, r.numPoints)
	r.Discharge = sparse.ZerosDense(r.numPoints, nn)
	r.WaterTable = sparse.ZerosDense(r.numPoints, nn)
	r.SurfaceSpecificDischarge = sparse.ZerosDense(r.numPoints, nn)
	r.ShearStress = sparse.ZerosDense(r.numPoints, nn)
	r.Recharge = sparse.ZerosDense(r.numPoints, nn)
	r.Balance = newBalance()
	return r.setRowFromField(r.WaterTable, 0, grid.WaterTableElevation)
}

func setRow(a *sparse.DenseArray, row int, v []float64) {
	for i, x := range v {
		a.Set(x, row, i)
	}
}

func (r *Recorder) setRowFromField(a *sparse.DenseArray, row int, name string) error {
	v, err := r.fields.Field(grid.AtNode, name)
	if err != nil {
		return fmt.Errorf("dupuitlem: recording state: %w", err)
	}
	setRow(a, row, v)
	return nil
}

// recordState stores the groundwater state and discharge at row.
func (r *Recorder) recordState(row int, q []float64, agg Aggregator) error {
	setRow(r.Discharge, row, q)
	if err := r.setRowFromField(r.WaterTable, row, grid.WaterTableElevation); err != nil {
		return err
	}
	if err := r.setRowFromField(r.SurfaceSpecificDischarge, row, grid.SurfaceWaterSpecificDischarge); err != nil {
		return err
	}
	if s, ok := agg.(shearStresser); ok && s.lastShearStress() != nil {
		setRow(r.ShearStress, row, s.lastShearStress())
	}
	return nil
}

// outflow returns the discharge leaving through the open boundaries.
func (r *Recorder) outflow(q []float64) float64 {
	var o float64
	for _, n := range r.open {
		o += q[n]
	}
	return o
}

func (r *Recorder) recordStorm(i int, e Event, q, recharge []float64, agg Aggregator) error {
	r.Time[2*i+1] = r.Time[2*i] + e.Storm
	r.Intensity[2*i] = e.Intensity
	setRow(r.Recharge, 2*i, recharge)
	if err := r.recordState(2*i+1, q, agg); err != nil {
		return err
	}
	var p, rch float64
	for _, n := range r.cores {
		p += e.Intensity * r.cellArea[n]
		rch += recharge[n] * r.cellArea[n]
	}
	r.Balance.Precipitation.Add(unit.New(p*e.Storm, volume))
	r.Balance.Recharge.Add(unit.New(rch*e.Storm, volume))
	r.Balance.Exfiltration.Add(unit.New(r.outflow(q)*e.Storm, volume))
	return nil
}

func (r *Recorder) recordInterstorm(i int, e Event, q []float64, agg Aggregator) error {
	r.Time[2*i+2] = r.Time[2*i+1] + e.Interstorm
	if err := r.recordState(2*i+2, q, agg); err != nil {
		return err
	}
	r.Balance.Exfiltration.Add(unit.New(r.outflow(q)*e.Interstorm, volume))
	return nil
}

func (r *Recorder) finish(th float64) { r.Horizon = th }

// NumPoints returns the number of recorded time points.
func (r *Recorder) NumPoints() int { return r.numPoints }

// At returns the recorded values of a at time point k.
func At(a *sparse.DenseArray, k int) []float64 {
	n := a.Shape[1]
	return a.Elements[k*n : (k+1)*n]
}
