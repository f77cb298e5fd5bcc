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

// Package shearstress contains functions that calculate the shear stress
// exerted by surface water on the bed and the erosion rates that result.
package shearstress

import (
	"fmt"
	"math"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/dupuitlem"
	"github.com/spatialmodel/dupuitlem/grid"
)

// physical constants
const (
	rhoWater = 1000. // kg/m³, density of water
	gravity  = 9.81  // m/s², gravitational acceleration
)

// Manning returns a function that calculates the bed shear stress [Pa]
// of discharge q [m³/s] flowing in a channel one grid cell wide,
// assuming uniform flow with Manning's roughness coefficient n [s/m^(1/3)]:
//
//	h   = (n (q/dx) / √S)^(3/5)
//	tau = ρ g h S
//
// The slope S is read from the topographic__steepest_slope field each
// time the function is called, so it follows the current flow directions.
func Manning(g *grid.Raster, n float64) (dupuitlem.ShearStressFunc, error) {
	if !(n > 0) {
		return nil, fmt.Errorf("shearstress: Manning's n must be > 0; got %g", n)
	}
	return func(q []float64) ([]float64, error) {
		s, err := g.Field(grid.AtNode, grid.SteepestSlope)
		if err != nil {
			return nil, fmt.Errorf("shearstress: %w", err)
		}
		if len(s) != len(q) {
			return nil, fmt.Errorf("shearstress: discharge has %d values but slope has %d", len(q), len(s))
		}
		tau := make([]float64, len(q))
		for i, qi := range q {
			if qi <= 0 || s[i] <= 0 {
				continue
			}
			h := math.Pow(n*(qi/g.Dx)/math.Sqrt(s[i]), 0.6)
			tau[i] = rhoWater * gravity * h * s[i]
		}
		return tau, nil
	}, nil
}

// ThresholdPowerLaw returns an erosion law in which the erosion rate
// [m/s] is
//
//	E = -k (tau - tauc)^b
//
// where tau exceeds tauc, and zero elsewhere.
func ThresholdPowerLaw(k, tauc, b float64) dupuitlem.ErosionFunc {
	return func(tau []float64) []float64 {
		e := make([]float64, len(tau))
		for i, t := range tau {
			if t > tauc {
				e[i] = -k * math.Pow(t-tauc, b)
			}
		}
		return e
	}
}

// expressionFuncs are the functions available to erosion law
// expressions in addition to the govaluate operators.
var expressionFuncs = map[string]govaluate.ExpressionFunction{
	"exp": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("shearstress: got %d arguments for function 'exp', but needs 1", len(arg))
		}
		return math.Exp(arg[0].(float64)), nil
	},
	"max": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 2 {
			return nil, fmt.Errorf("shearstress: got %d arguments for function 'max', but needs 2", len(arg))
		}
		return math.Max(arg[0].(float64), arg[1].(float64)), nil
	},
	"min": func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 2 {
			return nil, fmt.Errorf("shearstress: got %d arguments for function 'min', but needs 2", len(arg))
		}
		return math.Min(arg[0].(float64), arg[1].(float64)), nil
	},
}

// Expression returns an erosion law defined by a mathematical expression
// of the shear stress "tau" and the named parameters, for example
//
//	-k * max(tau - tauc, 0) ** b
//
// with parameters k, tauc, and b. Available functions are exp, max,
// and min. The expression is checked when it is created; it must use no
// other variables and must evaluate to a number.
func Expression(expr string, params map[string]float64) (dupuitlem.ErosionFunc, error) {
	e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, expressionFuncs)
	if err != nil {
		return nil, fmt.Errorf("shearstress: parsing erosion law: %v", err)
	}
	vars := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		vars[k] = v
	}
	for _, v := range e.Vars() {
		if _, ok := vars[v]; !ok && v != "tau" {
			return nil, fmt.Errorf("shearstress: undefined variable '%s' in erosion law", v)
		}
	}
	eval := func(tau float64) (float64, error) {
		vars["tau"] = tau
		r, err := e.Evaluate(vars)
		if err != nil {
			return math.NaN(), err
		}
		f, ok := r.(float64)
		if !ok {
			return math.NaN(), fmt.Errorf("shearstress: erosion law '%s' evaluates to %T, not a number", expr, r)
		}
		return f, nil
	}
	if _, err := eval(0); err != nil {
		return nil, err
	}
	return func(tau []float64) []float64 {
		o := make([]float64, len(tau))
		for i, t := range tau {
			v, err := eval(t)
			if err != nil {
				panic(err)
			}
			o[i] = v
		}
		return o
	}, nil
}
