package tilebuilder

import (
	"strings"

	"github.com/paulmach/osm"
	"github.com/roadgraph/tilegraph/internal/auxstore"
	"github.com/roadgraph/tilegraph/internal/primitives"
	"github.com/roadgraph/tilegraph/internal/signs"
)

func splitTokens(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, tok := range strings.Split(s, ";") {
		tok = strings.TrimSpace(tok)
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// buildExitSigns ports the original's CreateExitSignInfoList: way-level
// exit number/branch/toward fields take precedence; the node's exit_to tag
// is only parsed when the way carries neither branch nor toward info. Node
// names, when present, become exit-name signs regardless.
func (b *tileBuilder) buildExitSigns(way primitives.Way, nodeOriginalID osm.NodeID) (ExitSigns, error) {
	var out ExitSigns

	number, err := b.refAt(way.JunctionRefOffset)
	if err != nil {
		return out, err
	}
	out.Number = number

	branchRefs, err := b.refAt(way.BranchRefOffset)
	if err != nil {
		return out, err
	}
	towardRefs, err := b.refAt(way.TowardRefOffset)
	if err != nil {
		return out, err
	}
	destinations, err := b.refAt(way.DestinationRefOffset)
	if err != nil {
		return out, err
	}

	out.Branches = append(out.Branches, splitTokens(branchRefs)...)
	out.Towards = append(out.Towards, splitTokens(towardRefs)...)
	out.Towards = append(out.Towards, splitTokens(destinations)...)

	if len(out.Branches) == 0 && len(out.Towards) == 0 {
		attrs, err := b.nodeAttrs(nodeOriginalID)
		if err != nil {
			return out, err
		}
		if attrs.ExitTo != "" {
			parsed := signs.ParseExitTo(attrs.ExitTo)
			out.Branches = parsed.Branches
			out.Towards = parsed.Towards
		}
	}

	attrs, err := b.nodeAttrs(nodeOriginalID)
	if err != nil {
		return out, err
	}
	if attrs.Name != "" {
		out.Names = append(out.Names, attrs.Name)
	}
	return out, nil
}

func (b *tileBuilder) nodeAttrs(originalID osm.NodeID) (auxstore.NodeAttrs, error) {
	if b.strings == nil {
		return auxstore.NodeAttrs{}, nil
	}
	return b.strings.NodeAttrs(originalID)
}

func (b *tileBuilder) refAt(offset int32) (string, error) {
	if b.refs == nil {
		return "", nil
	}
	return b.refs.Get(offset)
}
