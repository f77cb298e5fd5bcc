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
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dupuitlem/grid"
	"gonum.org/v1/gonum/stat"
)

const yearsPerSecond = 1. / 3600. / 24. / 365.

// SetMorphologicTimestep sets the morphologic time step to the
// hydrological time per step, dtH [s], multiplied by the morphologic
// scaling factor msf.
func SetMorphologicTimestep(dtH, msf float64) DomainManipulator {
	return func(d *LEM) error {
		if !(dtH > 0) || !(msf > 0) {
			return fmt.Errorf("dupuitlem: invalid hydrological time step %g or morphologic scaling factor %g", dtH, msf)
		}
		d.Dt = dtH * msf
		return nil
	}
}

// NumSteps returns the number of whole morphologic steps of length dt
// that fit in totalTime.
func NumSteps(totalTime, dt float64) int {
	return int(math.Floor(totalTime / dt))
}

// RunHydrology runs one step of the hydrological model and records
// its diagnostics.
func RunHydrology() DomainManipulator {
	return func(d *LEM) error {
		if err := d.Hydrology.RunStep(); err != nil {
			return err
		}
		var diag Diagnostics
		switch h := d.Hydrology.(type) {
		case *EventHydrology:
			diag = h.Diagnostics
		case *SteadyHydrology:
			diag = h.Diagnostics
		}
		d.Stats = append(d.Stats, StepStats{
			MaxSubstepsStorm:      diag.MaxSubstepsStorm,
			MaxSubstepsInterstorm: diag.MaxSubstepsInterstorm,
			NumPits:               diag.NumPits,
		})
		return nil
	}
}

// Processes returns a function that runs a series of surface processes
// on the grid over one morphologic time step.
func Processes(ps ...SurfaceProcess) DomainManipulator {
	return func(d *LEM) error {
		for _, p := range ps {
			if err := p(d.Grid, d.Dt); err != nil {
				return err
			}
		}
		return nil
	}
}

// Finish sets the Done flag after numSteps steps and advances the
// model time by Dt every step.
func Finish(numSteps int) DomainManipulator {
	return func(d *LEM) error {
		d.Iteration++
		d.Time += d.Dt
		if d.Iteration >= numSteps {
			d.Done = true
		}
		return nil
	}
}

// ElevationChange returns a pair of functions that, placed at the start
// and end of RunFuncs, calculate the relative change in elevation of
// core nodes over each step. Nodes with zero initial elevation are
// excluded.
func ElevationChange() (start, end DomainManipulator) {
	var z0 []float64
	start = func(d *LEM) error {
		z, err := d.Grid.Field(grid.AtNode, grid.TopographicElevation)
		if err != nil {
			return err
		}
		z0 = append(z0[:0], z...)
		return nil
	}
	end = func(d *LEM) error {
		z, err := d.Grid.Field(grid.AtNode, grid.TopographicElevation)
		if err != nil {
			return err
		}
		if len(z0) != len(z) {
			return fmt.Errorf("dupuitlem: elevation change end called before start")
		}
		var rel []float64
		for _, n := range d.Grid.CoreNodes() {
			if z0[n] != 0 {
				rel = append(rel, math.Abs(z[n]-z0[n])/math.Abs(z0[n]))
			}
		}
		if len(d.Stats) == 0 {
			d.Stats = append(d.Stats, StepStats{})
		}
		s := &d.Stats[len(d.Stats)-1]
		if len(rel) > 0 {
			sort.Float64s(rel)
			s.MaxRelativeChange = rel[len(rel)-1]
			s.Percentile90RelativeChange = stat.Quantile(0.9, stat.LinInterp, rel, nil)
		}
		return nil
	}
	return start, end
}

// Log writes simulation status messages to l.
func Log(l logrus.FieldLogger) DomainManipulator {
	startTime := time.Now()
	timeStepTime := time.Now()

	return func(d *LEM) error {
		fields := logrus.Fields{
			"iteration":        d.Iteration,
			"walltime_h":       fmt.Sprintf("%6.3g", time.Since(startTime).Hours()),
			"delta_walltime_s": fmt.Sprintf("%4.2g", time.Since(timeStepTime).Seconds()),
			"model_time_yr":    fmt.Sprintf("%.4g", d.Time*yearsPerSecond),
			"timestep_yr":      fmt.Sprintf("%.3g", d.Dt*yearsPerSecond),
		}
		if len(d.Stats) > 0 {
			s := d.Stats[len(d.Stats)-1]
			fields["substeps_storm"] = s.MaxSubstepsStorm
			fields["substeps_interstorm"] = s.MaxSubstepsInterstorm
			fields["pits"] = s.NumPits
			fields["max_rel_change"] = s.MaxRelativeChange
		}
		l.WithFields(fields).Info("step complete")
		timeStepTime = time.Now()
		return nil
	}
}

// Results returns copies of the named node fields.
func (d *LEM) Results(names ...string) (map[string][]float64, error) {
	o := make(map[string][]float64)
	for _, name := range names {
		f, err := d.Grid.Field(grid.AtNode, name)
		if err != nil {
			return nil, err
		}
		o[name] = append([]float64(nil), f...)
	}
	return o, nil
}
