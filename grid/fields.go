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

package grid

// Names of the fields shared between components. Each field has
// a single writer during a hydrological step.
const (
	// TopographicElevation [m] is written by the landscape evolution
	// loop and by depression filling.
	TopographicElevation = "topographic__elevation"

	// AquiferBaseElevation [m] is written by regolith production.
	AquiferBaseElevation = "aquifer_base__elevation"

	// WaterTableElevation [m] is written by the groundwater model.
	WaterTableElevation = "water_table__elevation"

	// AquiferThickness [m] is written by the groundwater model.
	AquiferThickness = "aquifer__thickness"

	// SurfaceWaterSpecificDischarge [m/s] is the time-averaged
	// seepage (return flow plus saturation excess) from the
	// groundwater model. It is the runoff rate used by flow accumulation.
	SurfaceWaterSpecificDischarge = "average_surface_water__specific_discharge"

	// GroundwaterSpecificDischarge [m²/s] at links is written by the
	// groundwater model.
	GroundwaterSpecificDischarge = "groundwater__specific_discharge"

	// GroundwaterSpecificDischargeNode [m²/s] is the magnitude of the
	// groundwater flux mapped to nodes.
	GroundwaterSpecificDischargeNode = "groundwater__specific_discharge_node"

	// RechargeRate [m/s] is written by the vadose delay recharge source.
	RechargeRate = "recharge_rate"

	// FlowReceiverNode, FlowLinkToReceiver, SteepestSlope, and
	// FlowUpstreamNodeOrder are written by the flow director.
	// Integer-valued fields are stored as float64.
	FlowReceiverNode      = "flow__receiver_node"
	FlowLinkToReceiver    = "flow__link_to_receiver_node"
	SteepestSlope         = "topographic__steepest_slope"
	FlowUpstreamNodeOrder = "flow__upstream_node_order"

	// DrainageArea [m²] and SurfaceWaterDischarge [m³/s] are
	// written by flow accumulation.
	DrainageArea          = "drainage_area"
	SurfaceWaterDischarge = "surface_water__discharge"

	// The fields below are committed by the hydrological models at
	// the end of a successful step.

	// SurfaceWaterShearStress [Pa].
	SurfaceWaterShearStress = "surface_water__shear_stress"
	// SurfaceWaterEffectiveDischarge [m³/s].
	SurfaceWaterEffectiveDischarge = "surface_water_effective__discharge"
	// SurfaceWaterAreaNormDischarge [m²/s].
	SurfaceWaterAreaNormDischarge = "surface_water_area_norm__discharge"
	// CriticalErosionDischarge [m³/s].
	CriticalErosionDischarge = "critical_erosion__discharge"
	// FluvialErosionRate [m/s], negative for erosion.
	FluvialErosionRate = "fluvial_erosion__rate"
)
