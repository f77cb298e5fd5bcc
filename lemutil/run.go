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
	"os"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dupuitlem"
	"github.com/spatialmodel/dupuitlem/flow"
	"github.com/spatialmodel/dupuitlem/grid"
	"github.com/spatialmodel/dupuitlem/groundwater"
	"github.com/spatialmodel/dupuitlem/precip"
	"github.com/spatialmodel/dupuitlem/science/diffusion"
	"github.com/spatialmodel/dupuitlem/science/shearstress"
	"github.com/spatialmodel/dupuitlem/science/streampower"
	"github.com/spatialmodel/dupuitlem/vadose"
	"github.com/spf13/cast"
)

// Mode specifies how rainfall is represented.
type Mode int

const (
	// Steady runs with constant recharge.
	Steady Mode = iota
	// Stochastic runs with a stochastic storm series.
	Stochastic
)

func (m Mode) String() string {
	if m == Steady {
		return "steady"
	}
	return "stochastic"
}

// Aggregator names.
const (
	dischargeVolume      = "DischargeVolume"
	integrateShearStress = "IntegrateShearStress"
	eventShearStress     = "EventShearStress"
)

// Run builds and runs the simulation specified by cfg, and writes the
// results to the OutputFile if one is specified.
func Run(cfg *viper.Viper, mode Mode) error {
	log := logrus.New()
	level, err := logrus.ParseLevel(cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("dupuitlem: %v", err)
	}
	log.Level = level

	d, err := Build(cfg, mode, log)
	if err != nil {
		return err
	}
	if f := cfg.GetString("OutputFile"); f != "" {
		vars, err := cast.ToStringSliceE(cfg.Get("OutputVariables"))
		if err != nil {
			return fmt.Errorf("dupuitlem: OutputVariables: %v", err)
		}
		d.CleanupFuncs = append(d.CleanupFuncs, Save(os.ExpandEnv(f), vars...))
	}
	log.WithField("mode", mode).Info("initializing simulation")
	if err := d.Init(); err != nil {
		return err
	}
	if err := d.Run(); err != nil {
		return err
	}
	if err := d.Cleanup(); err != nil {
		return err
	}
	log.WithField("steps", d.Iteration).Info("simulation complete")
	return nil
}

// Build creates a simulation from the configuration in cfg.
func Build(cfg *viper.Viper, mode Mode, log logrus.FieldLogger) (*dupuitlem.LEM, error) {
	g, err := NewGrid(cfg)
	if err != nil {
		return nil, err
	}
	gw, err := groundwater.New(g,
		groundwater.WithHydraulicConductivity(cfg.GetFloat64("Groundwater.HydraulicConductivity")),
		groundwater.WithPorosity(cfg.GetFloat64("Groundwater.Porosity")),
		groundwater.WithRegularization(cfg.GetFloat64("Groundwater.Regularization")),
		groundwater.WithCourant(cfg.GetFloat64("Groundwater.Courant"), cfg.GetFloat64("Groundwater.VonNeumann")),
		groundwater.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	routing := cfg.GetString("Hydrology.RoutingMethod")
	aggName := cfg.GetString("Hydrology.Aggregator")
	var (
		hyd dupuitlem.Hydrology
		dtH float64
	)
	switch mode {
	case Steady:
		hyd, dtH, err = steadyHydrology(cfg, g, gw, routing, aggName, log)
	case Stochastic:
		hyd, dtH, err = stochasticHydrology(cfg, g, gw, routing, aggName, log)
	default:
		err = fmt.Errorf("dupuitlem: invalid run mode %d", mode)
	}
	if err != nil {
		return nil, err
	}

	processes, err := surfaceProcesses(cfg, aggName)
	if err != nil {
		return nil, err
	}
	dt := dtH * cfg.GetFloat64("MorphologicScalingFactor")
	if !(dt > 0) {
		return nil, fmt.Errorf("dupuitlem: morphologic time step must be > 0; got %g", dt)
	}
	numSteps := dupuitlem.NumSteps(cfg.GetFloat64("TotalTime"), dt)
	if numSteps < 1 {
		return nil, fmt.Errorf("dupuitlem: TotalTime %g is shorter than one morphologic step of %g s",
			cfg.GetFloat64("TotalTime"), dt)
	}

	start, end := dupuitlem.ElevationChange()
	return &dupuitlem.LEM{
		Grid:      g,
		Hydrology: hyd,
		InitFuncs: []dupuitlem.DomainManipulator{
			dupuitlem.SetMorphologicTimestep(dtH, cfg.GetFloat64("MorphologicScalingFactor")),
		},
		RunFuncs: []dupuitlem.DomainManipulator{
			start,
			dupuitlem.RunHydrology(),
			dupuitlem.Processes(processes...),
			end,
			dupuitlem.Finish(numSteps),
			dupuitlem.Log(log),
		},
	}, nil
}

// checkAggregator returns an error if name is not a known aggregator.
func checkAggregator(name string) error {
	switch name {
	case dischargeVolume, integrateShearStress, eventShearStress:
		return nil
	}
	return fmt.Errorf("dupuitlem: Hydrology.Aggregator must be one of %s, %s, or %s; got '%s'",
		dischargeVolume, integrateShearStress, eventShearStress, name)
}

// erosionLaw returns the shear stress and erosion functions specified
// in cfg.
func erosionLaw(cfg *viper.Viper, g *grid.Raster) (dupuitlem.ShearStressFunc, dupuitlem.ErosionFunc, error) {
	tau, err := shearstress.Manning(g, cfg.GetFloat64("ShearStress.ManningN"))
	if err != nil {
		return nil, nil, err
	}
	k, tauc, b := cfg.GetFloat64("ShearStress.K"), cfg.GetFloat64("ShearStress.Tauc"), cfg.GetFloat64("ShearStress.B")
	if expr := cfg.GetString("ShearStress.ErosionLaw"); expr != "" {
		e, err := shearstress.Expression(expr, map[string]float64{"k": k, "tauc": tauc, "b": b})
		return tau, e, err
	}
	return tau, shearstress.ThresholdPowerLaw(k, tauc, b), nil
}

func steadyHydrology(cfg *viper.Viper, g *grid.Raster, gw dupuitlem.Groundwater, routing, aggName string,
	log logrus.FieldLogger) (dupuitlem.Hydrology, float64, error) {
	if err := checkAggregator(aggName); err != nil {
		return nil, 0, err
	}
	router, err := flow.NewRouter(g, routing)
	if err != nil {
		return nil, 0, fmt.Errorf("dupuitlem: %w", err)
	}
	h, err := dupuitlem.NewSteadyHydrology(g, gw, router,
		cfg.GetFloat64("Steady.Recharge"), cfg.GetFloat64("Steady.Duration"))
	if err != nil {
		return nil, 0, err
	}
	h.Log = log
	if aggName != dischargeVolume {
		if h.ShearStress, h.Erosion, err = erosionLaw(cfg, g); err != nil {
			return nil, 0, err
		}
	}
	return h, h.Duration, nil
}

func stochasticHydrology(cfg *viper.Viper, g *grid.Raster, gw dupuitlem.Groundwater, routing, aggName string,
	log logrus.FieldLogger) (dupuitlem.Hydrology, float64, error) {
	storms, err := precip.NewDistribution(
		cfg.GetFloat64("Precip.MeanStormDuration"),
		cfg.GetFloat64("Precip.MeanInterstormDuration"),
		cfg.GetFloat64("Precip.MeanStormDepth"),
		cfg.GetFloat64("Precip.HydrologicalTime"),
		uint64(cfg.GetInt("Seed")),
	)
	if err != nil {
		return nil, 0, err
	}
	opts := []dupuitlem.HydrologyOption{dupuitlem.WithLogger(log)}

	var agg dupuitlem.Aggregator
	switch aggName {
	case dischargeVolume:
		agg = new(dupuitlem.DischargeVolume)
		threshold, err := dupuitlem.NewThresholdDischarge(g, routing,
			cfg.GetFloat64("Hydrology.E0"), cfg.GetFloat64("StreamPower.Ksp"))
		if err != nil {
			return nil, 0, err
		}
		opts = append(opts,
			dupuitlem.WithPostprocessor(threshold),
			dupuitlem.WithPostprocessor(dupuitlem.AreaNormalize{}))
	case integrateShearStress, eventShearStress:
		tau, erosion, err := erosionLaw(cfg, g)
		if err != nil {
			return nil, 0, err
		}
		if aggName == integrateShearStress {
			agg = &dupuitlem.IntegrateShearStress{ShearStress: tau, Erosion: erosion,
				Tauc: cfg.GetFloat64("ShearStress.Tauc")}
		} else {
			agg = &dupuitlem.EventShearStress{ShearStress: tau, Erosion: erosion}
		}
	default:
		return nil, 0, checkAggregator(aggName)
	}

	if cfg.GetBool("Hydrology.VadoseZone") {
		profile, err := vadose.NewProfile(cfg.GetInt("Vadose.NumBins"), cfg.GetFloat64("Vadose.ProfileDepth"),
			cfg.GetFloat64("Vadose.AvailableWaterContent"), cfg.GetFloat64("Vadose.PET"))
		if err != nil {
			return nil, 0, err
		}
		opts = append(opts, dupuitlem.WithPostprocessor(dupuitlem.NewVadoseDelay(g, profile)))
	}

	h, err := dupuitlem.NewGridHydrology(g, routing, dupuitlem.StochasticForcing{Storms: storms}, gw, agg, opts...)
	if err != nil {
		return nil, 0, err
	}
	return h, storms.TotalTime, nil
}

// surfaceProcesses returns the processes that change the landscape
// each morphologic step.
func surfaceProcesses(cfg *viper.Viper, aggName string) ([]dupuitlem.SurfaceProcess, error) {
	var fluvial dupuitlem.SurfaceProcess
	if aggName == dischargeVolume {
		var err error
		fluvial, err = streampower.Eroder(cfg.GetFloat64("StreamPower.Ksp"), grid.SurfaceWaterAreaNormDischarge)
		if err != nil {
			return nil, err
		}
	} else {
		fluvial = dupuitlem.ApplyErosionRate()
	}
	hillslope, err := diffusion.Linear(cfg.GetFloat64("Diffusivity"))
	if err != nil {
		return nil, err
	}
	return []dupuitlem.SurfaceProcess{
		fluvial,
		hillslope,
		dupuitlem.Uplift(cfg.GetFloat64("UpliftRate")),
		dupuitlem.RegolithProduction(cfg.GetFloat64("Regolith.W0"), cfg.GetFloat64("Regolith.Ds")),
		dupuitlem.ClampToBedrock(),
	}, nil
}

// Save returns a function that writes the named node fields to a TOML
// file at the end of the simulation.
func Save(path string, names ...string) dupuitlem.DomainManipulator {
	return func(d *dupuitlem.LEM) error {
		fields, err := d.Results(names...)
		if err != nil {
			return fmt.Errorf("dupuitlem: saving results: %w", err)
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("dupuitlem: saving results: %v", err)
		}
		out := struct {
			Time      float64
			Iteration int
			NRows     int
			NCols     int
			Dx        float64
			Fields    map[string][]float64
		}{
			Time:      d.Time,
			Iteration: d.Iteration,
			NRows:     d.Grid.NRows,
			NCols:     d.Grid.NCols,
			Dx:        d.Grid.Dx,
			Fields:    fields,
		}
		if err := toml.NewEncoder(f).Encode(out); err != nil {
			f.Close()
			return fmt.Errorf("dupuitlem: saving results: %v", err)
		}
		return f.Close()
	}
}
