package tilebuilder

import "github.com/roadgraph/tilegraph/internal/primitives"

// getLinkUse ports the original's GetLinkUse: a link edge whose road class
// is motorway/trunk, or whose length exceeds kMaxTurnChannelLength, is
// always a ramp. Otherwise it is a turn channel only if both endpoints have
// a non-link edge of their own and neither endpoint touches any other link
// edge (a fork or split, not a short connector).
func (b *tileBuilder) getLinkUse(edgeIdx uint32, rc primitives.RoadClass, length uint32, sourceG, targetG primitives.GraphId) (primitives.Use, error) {
	if rc == primitives.RoadClassMotorway || rc == primitives.RoadClassTrunk || length > kMaxTurnChannelLength {
		return primitives.UseRamp, nil
	}

	sourceBundle, ok, err := b.collectAt(sourceG)
	if err != nil {
		return primitives.UseRamp, err
	}
	if !ok || !sourceBundle.NonLinkEdge {
		return primitives.UseRamp, nil
	}
	targetBundle, ok, err := b.collectAt(targetG)
	if err != nil {
		return primitives.UseRamp, err
	}
	if !ok || !targetBundle.NonLinkEdge {
		return primitives.UseRamp, nil
	}

	for _, ei := range sourceBundle.EdgeIndices {
		if ei == edgeIdx {
			continue
		}
		e, err := b.edgeAt(ei)
		if err != nil {
			return primitives.UseRamp, err
		}
		if e.Link {
			return primitives.UseRamp, nil
		}
	}
	for _, ei := range targetBundle.EdgeIndices {
		if ei == edgeIdx {
			continue
		}
		e, err := b.edgeAt(ei)
		if err != nil {
			return primitives.UseRamp, err
		}
		if e.Link {
			return primitives.UseRamp, nil
		}
	}
	return primitives.UseTurnChannel, nil
}

// updateLinkSpeed ports the original's UpdateLinkSpeed.
func updateLinkSpeed(use primitives.Use, rc primitives.RoadClass, waySpeed float32) float32 {
	switch use {
	case primitives.UseTurnChannel:
		return waySpeed * 0.9
	case primitives.UseRamp:
		if spd, ok := rampSpeedByRoadClass[rc]; ok {
			return spd
		}
		return defaultOtherRampSpeed
	default:
		return waySpeed
	}
}
