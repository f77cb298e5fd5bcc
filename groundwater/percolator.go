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

// Package groundwater solves unconfined groundwater flow in a thin
// aquifer under the Dupuit-Forchheimer approximation, with seepage to
// the surface where the water table approaches the land surface.
package groundwater

import (
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/dupuitlem/grid"
	"gonum.org/v1/gonum/floats"
)

// ErrSubstepLimit is returned when the adaptive solver needs more
// than MaxSubsteps substeps to advance.
var ErrSubstepLimit = errors.New("groundwater: substep limit exceeded")

// Percolator is a Dupuit-Forchheimer groundwater model with an
// adaptive explicit time step. Flux on each link is
//
//	q = -K h ∇η
//
// where h is the aquifer thickness at the upslope node and η the
// water table elevation. Surface water specific discharge is
//
//	qs = G(h/(z-b)) max(R - ∇·q, 0),  G(u) = exp(-(1-u)/r)
//
// and the thickness changes at rate (R - qs - ∇·q)/n.
type Percolator struct {
	// HydraulicConductivity K [m/s].
	HydraulicConductivity float64

	// Porosity n is the drainable porosity [-].
	Porosity float64

	// Regularization r controls how sharply seepage turns on as the
	// water table reaches the surface [-].
	Regularization float64

	// CourantCoefficient and VNCoefficient scale the advective and
	// diffusive stability limits on the substep length.
	CourantCoefficient, VNCoefficient float64

	// MaxSubsteps is the largest number of substeps allowed per Advance.
	MaxSubsteps int

	// Log receives per-call solver diagnostics.
	Log logrus.FieldLogger

	g        *grid.Raster
	recharge []float64
	substeps int
	cores    []int
	cellArea []float64
}

// Option configures a Percolator.
type Option func(*Percolator)

// WithHydraulicConductivity sets K [m/s].
func WithHydraulicConductivity(k float64) Option {
	return func(p *Percolator) { p.HydraulicConductivity = k }
}

// WithPorosity sets the drainable porosity.
func WithPorosity(n float64) Option { return func(p *Percolator) { p.Porosity = n } }

// WithRegularization sets the seepage regularization factor.
func WithRegularization(r float64) Option { return func(p *Percolator) { p.Regularization = r } }

// WithCourant sets the Courant and von Neumann coefficients.
func WithCourant(courant, vn float64) Option {
	return func(p *Percolator) { p.CourantCoefficient, p.VNCoefficient = courant, vn }
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option { return func(p *Percolator) { p.Log = l } }

// New creates a groundwater model on grid g. The grid must hold
// topographic__elevation and aquifer_base__elevation. If
// water_table__elevation is absent, it is initialized at the surface.
func New(g *grid.Raster, opts ...Option) (*Percolator, error) {
	p := &Percolator{
		HydraulicConductivity: 0.001,
		Porosity:              0.2,
		Regularization:        0.01,
		CourantCoefficient:    0.1,
		VNCoefficient:         0.8,
		MaxSubsteps:           1000000,
		Log:                   logrus.StandardLogger(),
		g:                     g,
		recharge:              make([]float64, g.NumNodes()),
		cores:                 g.CoreNodes(),
		cellArea:              g.CellArea(),
	}
	for _, o := range opts {
		o(p)
	}
	switch {
	case p.HydraulicConductivity <= 0:
		return nil, fmt.Errorf("groundwater: hydraulic conductivity must be > 0; got %g", p.HydraulicConductivity)
	case p.Porosity <= 0 || p.Porosity > 1:
		return nil, fmt.Errorf("groundwater: porosity must be in (0, 1]; got %g", p.Porosity)
	case p.Regularization <= 0:
		return nil, fmt.Errorf("groundwater: regularization factor must be > 0; got %g", p.Regularization)
	case p.CourantCoefficient <= 0 || p.VNCoefficient <= 0:
		return nil, fmt.Errorf("groundwater: stability coefficients must be > 0")
	}
	z, err := g.Field(grid.AtNode, grid.TopographicElevation)
	if err != nil {
		return nil, fmt.Errorf("groundwater: %w", err)
	}
	if _, err := g.Field(grid.AtNode, grid.AquiferBaseElevation); err != nil {
		return nil, fmt.Errorf("groundwater: %w", err)
	}
	if !g.HasField(grid.AtNode, grid.WaterTableElevation) {
		copy(g.AddField(grid.AtNode, grid.WaterTableElevation), z)
	}
	g.AddField(grid.AtNode, grid.AquiferThickness)
	g.AddField(grid.AtNode, grid.SurfaceWaterSpecificDischarge)
	g.AddField(grid.AtNode, grid.GroundwaterSpecificDischargeNode)
	g.AddField(grid.AtLink, grid.GroundwaterSpecificDischarge)
	return p, nil
}

// SetUniformRecharge sets the recharge rate [m/s] at every node.
func (p *Percolator) SetUniformRecharge(r float64) {
	for i := range p.recharge {
		p.recharge[i] = r
	}
}

// SetRecharge sets the recharge rate [m/s] at each node.
func (p *Percolator) SetRecharge(r []float64) { copy(p.recharge, r) }

// Recharge returns the current recharge rate at each node.
func (p *Percolator) Recharge() []float64 { return p.recharge }

// NumSubsteps returns the number of substeps taken during the last call
// to Advance.
func (p *Percolator) NumSubsteps() int { return p.substeps }

type state struct {
	z, b, wt, h, qsAvg, qNode, qLink []float64
}

func (p *Percolator) fields() (*state, error) {
	s := new(state)
	for _, f := range []struct {
		loc  grid.Location
		name string
		dst  *[]float64
	}{
		{grid.AtNode, grid.TopographicElevation, &s.z},
		{grid.AtNode, grid.AquiferBaseElevation, &s.b},
		{grid.AtNode, grid.WaterTableElevation, &s.wt},
		{grid.AtNode, grid.AquiferThickness, &s.h},
		{grid.AtNode, grid.SurfaceWaterSpecificDischarge, &s.qsAvg},
		{grid.AtNode, grid.GroundwaterSpecificDischargeNode, &s.qNode},
		{grid.AtLink, grid.GroundwaterSpecificDischarge, &s.qLink},
	} {
		v, err := p.g.Field(f.loc, f.name)
		if err != nil {
			return nil, fmt.Errorf("groundwater: %w", err)
		}
		*f.dst = v
	}
	return s, nil
}

// Advance runs the model forward by dt seconds using as many substeps
// as the stability limits require. It updates water_table__elevation,
// aquifer__thickness, groundwater__specific_discharge, and
// average_surface_water__specific_discharge, which is the time
// average of surface water specific discharge over dt. It returns
// the number of substeps taken.
func (p *Percolator) Advance(dt float64) (int, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return 0, fmt.Errorf("groundwater: invalid time step %g", dt)
	}
	s, err := p.fields()
	if err != nil {
		return 0, err
	}
	for i := range s.h {
		s.h[i] = math.Max(s.wt[i]-s.b[i], 0)
	}
	nn := p.g.NumNodes()
	div := make([]float64, nn)
	qs := make([]float64, nn)
	qsSum := make([]float64, nn)
	dx := p.g.Dx

	remaining := dt
	p.substeps = 0
	for remaining > 0 {
		if p.substeps >= p.MaxSubsteps {
			return p.substeps, fmt.Errorf("%w: %d substeps with %g s remaining",
				ErrSubstepLimit, p.substeps, remaining)
		}
		p.linkFlux(s)
		for i := range div {
			div[i] = 0
		}
		for l, q := range s.qLink {
			div[p.g.LinkTail(l)] += q / dx
			div[p.g.LinkHead(l)] -= q / dx
		}

		sub := math.Min(remaining, p.stableStep(s))
		for _, n := range p.cores {
			u := 1.
			if thick := s.z[n] - s.b[n]; thick > 0 {
				u = math.Min(s.h[n]/thick, 1)
			}
			qs[n] = math.Exp(-(1-u)/p.Regularization) * math.Max(p.recharge[n]-div[n], 0)
			dhdt := (p.recharge[n] - qs[n] - div[n]) / p.Porosity
			s.h[n] = math.Max(s.h[n]+dhdt*sub, 0)
		}
		floats.AddScaled(qsSum, sub, qs)
		remaining -= sub
		p.substeps++
	}
	for i := range s.wt {
		s.wt[i] = s.b[i] + s.h[i]
	}
	p.linkFlux(s)
	p.mapFluxToNodes(s)
	for i := range s.qsAvg {
		s.qsAvg[i] = qsSum[i] / dt
	}
	p.Log.WithFields(logrus.Fields{
		"dt":       dt,
		"substeps": p.substeps,
	}).Debug("groundwater advanced")
	return p.substeps, nil
}

// linkFlux sets the groundwater specific discharge on each link.
func (p *Percolator) linkFlux(s *state) {
	for i := range s.wt {
		s.wt[i] = s.b[i] + s.h[i]
	}
	hl := p.g.MapMaxOfLinkNodes(s.wt, s.h)
	grad := p.g.CalcGradAtLink(s.wt)
	for l := range s.qLink {
		t, h := p.g.LinkTail(l), p.g.LinkHead(l)
		if p.g.Status(t) == grid.Closed || p.g.Status(h) == grid.Closed ||
			(!p.g.IsCore(t) && !p.g.IsCore(h)) {
			s.qLink[l] = 0
			continue
		}
		s.qLink[l] = -p.HydraulicConductivity * hl[l] * grad[l]
	}
}

// stableStep returns the largest substep allowed by the Courant and
// von Neumann stability limits.
func (p *Percolator) stableStep(s *state) float64 {
	dx := p.g.Dx
	hMax := floats.Max(s.h)
	dt := math.Inf(1)
	if hMax > 0 {
		dt = p.VNCoefficient * p.Porosity * dx * dx / (4 * p.HydraulicConductivity * hMax)
	}
	hl := p.g.MapMaxOfLinkNodes(s.wt, s.h)
	var vMax float64
	for l, q := range s.qLink {
		if hl[l] > 0 {
			vMax = math.Max(vMax, math.Abs(q)/(p.Porosity*hl[l]))
		}
	}
	if vMax > 0 {
		dt = math.Min(dt, p.CourantCoefficient*dx/vMax)
	}
	return dt
}

// mapFluxToNodes sets the magnitude of the groundwater flux at each
// node from the mean flux on its adjacent links in each direction.
func (p *Percolator) mapFluxToNodes(s *state) {
	for n := range s.qNode {
		links := p.g.LinksAtNode(n)
		var q [2]float64
		for k := 0; k < 4; k++ {
			if l := links[k]; l >= 0 {
				q[k%2] += 0.5 * s.qLink[l]
			}
		}
		s.qNode[n] = math.Hypot(q[0], q[1])
	}
}

// StorageVolume returns the volume of water [m³] stored in the aquifer
// beneath core nodes.
func (p *Percolator) StorageVolume() (float64, error) {
	s, err := p.fields()
	if err != nil {
		return 0, err
	}
	var v float64
	for _, n := range p.cores {
		v += math.Max(s.wt[n]-s.b[n], 0) * p.cellArea[n] * p.Porosity
	}
	return v, nil
}
