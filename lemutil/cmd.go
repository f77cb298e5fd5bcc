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

// Package lemutil contains the command-line interface and configuration
// handling for DupuitLEM.
package lemutil

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/dupuitlem"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to DupuitLEM.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel specifies the minimum level of log messages
              that are printed: debug, info, warning, or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile specifies the path of a TOML file where the final
              node fields are written. If it is empty, no output is written.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies the node fields to write to OutputFile.`,
			defaultVal: []string{"topographic__elevation", "aquifer_base__elevation",
				"water_table__elevation", "drainage_area"},
			flagsets: []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "TotalTime",
			usage: `
              TotalTime is the length of the simulation in model time [s].`,
			defaultVal: 1e13,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "MorphologicScalingFactor",
			usage: `
              MorphologicScalingFactor is the ratio of the morphologic time
              step to the hydrological time simulated in each step.`,
			defaultVal: 500.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Grid.NRows",
			usage: `
              Grid.NRows is the number of rows of grid nodes.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Grid.NCols",
			usage: `
              Grid.NCols is the number of columns of grid nodes.`,
			defaultVal: 50,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Grid.Dx",
			usage: `
              Grid.Dx is the node spacing [m].`,
			defaultVal: 10.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Grid.ClosedBoundaries",
			usage: `
              Grid.ClosedBoundaries lists the grid edges (right, top, left,
              bottom) with no flow across them. Other edges are fixed-value
              outlets.`,
			defaultVal: []string{"right", "top", "left"},
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Grid.RegolithThickness",
			usage: `
              Grid.RegolithThickness is the initial thickness of the
              permeable regolith above the aquifer base [m].`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Grid.InitialNoise",
			usage: `
              Grid.InitialNoise is the amplitude of the random
              perturbation added to the initial surface [m].`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Seed",
			usage: `
              Seed initializes the random number generators for the initial
              topography and the storm sequence.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Groundwater.HydraulicConductivity",
			usage: `
              Groundwater.HydraulicConductivity is the saturated hydraulic
              conductivity of the regolith [m/s].`,
			defaultVal: 1e-4,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Groundwater.Porosity",
			usage: `
              Groundwater.Porosity is the drainable porosity [-].`,
			defaultVal: 0.2,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Groundwater.Regularization",
			usage: `
              Groundwater.Regularization controls how sharply seepage
              begins as the water table reaches the surface [-].`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Groundwater.Courant",
			usage: `
              Groundwater.Courant is the Courant coefficient of the
              adaptive groundwater time step.`,
			defaultVal: 0.1,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Groundwater.VonNeumann",
			usage: `
              Groundwater.VonNeumann is the von Neumann coefficient of the
              adaptive groundwater time step.`,
			defaultVal: 0.8,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Hydrology.RoutingMethod",
			usage: `
              Hydrology.RoutingMethod is the flow routing method: D8 or Steepest.`,
			defaultVal: "D8",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Hydrology.Aggregator",
			usage: `
              Hydrology.Aggregator specifies how hydraulic quantities are
              combined over each hydrological step. DischargeVolume drives
              stream power erosion with area-normalized effective discharge.
              IntegrateShearStress and EventShearStress drive erosion with
              the shear stress of surface runoff.`,
			defaultVal: "DischargeVolume",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Hydrology.E0",
			usage: `
              Hydrology.E0 is the erosion threshold [m/s]. Discharge below
              the corresponding critical discharge does not erode.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Hydrology.VadoseZone",
			usage: `
              Hydrology.VadoseZone specifies whether recharge passes
              through an unsaturated zone model before reaching the
              water table during stochastic runs.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Steady.Recharge",
			usage: `
              Steady.Recharge is the constant recharge rate [m/s].`,
			defaultVal: 1e-8,
			flagsets:   []*pflag.FlagSet{steadyCmd.Flags()},
		},
		{
			name: "Steady.Duration",
			usage: `
              Steady.Duration is the hydrological time simulated in each
              step [s].`,
			defaultVal: 1e5,
			flagsets:   []*pflag.FlagSet{steadyCmd.Flags()},
		},
		{
			name: "Precip.MeanStormDuration",
			usage: `
              Precip.MeanStormDuration is the mean storm duration [s].`,
			defaultVal: 3600.0 * 4,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Precip.MeanInterstormDuration",
			usage: `
              Precip.MeanInterstormDuration is the mean time between
              storms [s].`,
			defaultVal: 3600.0 * 24 * 3,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Precip.MeanStormDepth",
			usage: `
              Precip.MeanStormDepth is the mean depth of rain per storm [m].`,
			defaultVal: 0.01,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Precip.HydrologicalTime",
			usage: `
              Precip.HydrologicalTime is the length of the storm sequence
              simulated in each step [s].`,
			defaultVal: 3600.0 * 24 * 365,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Vadose.NumBins",
			usage: `
              Vadose.NumBins is the number of storage bins in the
              unsaturated zone profile.`,
			defaultVal: 500,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Vadose.ProfileDepth",
			usage: `
              Vadose.ProfileDepth is the depth of the unsaturated zone
              profile [m].`,
			defaultVal: 5.0,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Vadose.AvailableWaterContent",
			usage: `
              Vadose.AvailableWaterContent is the plant-available water
              content of the unsaturated zone [-].`,
			defaultVal: 0.15,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "Vadose.PET",
			usage: `
              Vadose.PET is the potential evapotranspiration rate [m/s].`,
			defaultVal: 1e-8,
			flagsets:   []*pflag.FlagSet{stochasticCmd.Flags()},
		},
		{
			name: "ShearStress.ManningN",
			usage: `
              ShearStress.ManningN is Manning's roughness coefficient
              [s/m^(1/3)].`,
			defaultVal: 0.05,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ShearStress.Tauc",
			usage: `
              ShearStress.Tauc is the threshold shear stress for
              erosion [Pa].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ShearStress.K",
			usage: `
              ShearStress.K is the erodibility in the shear stress
              erosion law [m/s/Pa^b].`,
			defaultVal: 1e-10,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ShearStress.B",
			usage: `
              ShearStress.B is the exponent of excess shear stress in the
              erosion law.`,
			defaultVal: 1.5,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "ShearStress.ErosionLaw",
			usage: `
              ShearStress.ErosionLaw is an optional expression for the
              erosion rate as a function of shear stress 'tau' and the
              parameters 'k', 'tauc', and 'b', for example
              '-k * (max(tau - tauc, 0) ** b)'. If it is empty, that
              threshold power law is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "StreamPower.Ksp",
			usage: `
              StreamPower.Ksp is the stream power erodibility [1/m].`,
			defaultVal: 1e-10,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Diffusivity",
			usage: `
              Diffusivity is the hillslope diffusivity [m²/s].`,
			defaultVal: 1e-10,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "UpliftRate",
			usage: `
              UpliftRate is the rate of rock uplift relative to the
              outlets [m/s].`,
			defaultVal: 1e-12,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Regolith.W0",
			usage: `
              Regolith.W0 is the maximum regolith production rate [m/s].`,
			defaultVal: 2e-12,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
		{
			name: "Regolith.Ds",
			usage: `
              Regolith.Ds is the characteristic depth of regolith
              production [m].`,
			defaultVal: 1.5,
			flagsets:   []*pflag.FlagSet{runCmd.PersistentFlags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("DUPUITLEM")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(configCmd)
	Root.AddCommand(runCmd)
	runCmd.AddCommand(steadyCmd)
	runCmd.AddCommand(stochasticCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("dupuitlem: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "dupuitlem",
	Short: "A landscape evolution model driven by groundwater-fed runoff.",
	Long: `DupuitLEM is a landscape evolution model in which surface runoff is generated
by the exfiltration of shallow groundwater, modeled with the Dupuit-Forchheimer
approximation. Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'DUPUITLEM_var' where 'var' is the
name of the variable to be set, with periods replaced by underscores.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of DupuitLEM.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("DupuitLEM v%s\n", dupuitlem.Version)
	},
	DisableAutoGenTag: true,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the configuration.",
	Long: `config prints the configuration that results from combining the
configuration file, command-line arguments, environment variables, and
default values, in TOML format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return toml.NewEncoder(cmd.OutOrStdout()).Encode(Cfg.AllSettings())
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs a DupuitLEM simulation. Use the subcommands specified below to
choose how rainfall is represented.`,
	DisableAutoGenTag: true,
}

// steadyCmd is a command that runs a simulation with constant recharge.
var steadyCmd = &cobra.Command{
	Use:   "steady",
	Short: "Run DupuitLEM with constant recharge.",
	Long: `steady runs DupuitLEM with recharge that is constant in time. Each step
runs the groundwater model for Steady.Duration and erodes the landscape with the
resulting discharge or shear stress.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(Cfg, Steady)
	},
	DisableAutoGenTag: true,
}

// stochasticCmd is a command that runs a simulation with stochastic storms.
var stochasticCmd = &cobra.Command{
	Use:   "stochastic",
	Short: "Run DupuitLEM with a stochastic storm series.",
	Long: `stochastic runs DupuitLEM with a new series of storms and dry periods
drawn from exponential distributions at every step. The hydraulic quantities
of every storm and dry period are combined into effective values that drive
erosion over the morphologic time step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return Run(Cfg, Stochastic)
	},
	DisableAutoGenTag: true,
}
