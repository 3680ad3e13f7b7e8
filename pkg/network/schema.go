package network

import (
	"context"

	"porenet/internal/models"
)

// Attribute keys shared by every extraction method.
const (
	PoreCoords             = "pore.coords"
	PoreVolume             = "pore.volume"
	PoreInscribedDiameter  = "pore.inscribed_diameter"
	PoreEquivalentDiameter = "pore.equivalent_diameter"
	PoreBoundary           = "pore.boundary"

	ThroatConns              = "throat.conns"
	ThroatInscribedDiameter  = "throat.inscribed_diameter"
	ThroatCrossSectionalArea = "throat.cross_sectional_area"
	ThroatConduitLength      = "throat.conduit_length"
	ThroatTotalLength        = "throat.total_length"
	ThroatEquivalentDiameter = "throat.equivalent_diameter"
)

// Method specific keys.
const (
	PoreRegionLabel = "pore.region_label"
	PoreSurfaceArea = "pore.surface_area"
	PoreLocalPeak   = "pore.local_peak"
	PoreInlet       = "pore.inlet"
	PoreOutlet      = "pore.outlet"
	PoreShapeFactor = "pore.shape_factor"
	PoreDiameter    = "pore.diameter"

	ThroatClamped     = "throat.clamped"
	ThroatPatch       = "throat.patch"
	ThroatShapeFactor = "throat.shape_factor"
	ThroatVolume      = "throat.volume"
	ThroatDiameter    = "throat.diameter"
	ThroatLength      = "throat.length"
)

// RequiredPoreKeys lists the pore attributes CheckSchema insists on.
var RequiredPoreKeys = []string{
	PoreCoords,
	PoreVolume,
	PoreInscribedDiameter,
	PoreEquivalentDiameter,
	PoreBoundary,
}

// RequiredThroatKeys lists the throat attributes CheckSchema insists on.
// throat.conns is carried by Network.Conns.
var RequiredThroatKeys = []string{
	ThroatInscribedDiameter,
	ThroatCrossSectionalArea,
	ThroatConduitLength,
	ThroatTotalLength,
	ThroatEquivalentDiameter,
}

// NetworkExtractor turns a binary pore image (true = void) into a network.
// Implementations produce at least RequiredPoreKeys and RequiredThroatKeys.
type NetworkExtractor interface {
	Extract(ctx context.Context, im *models.Binary) (*Network, error)
}
