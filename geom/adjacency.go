package geom

import (
	"github.com/uber/h3-go/v4"
)

// ContiguityOverride declares two units logically adjacent even when their
// cells are not grid neighbors — e.g. a bridge or tunnel link the raw grid
// can't see. Mirrors the data model's ContiguityOverride entity.
type ContiguityOverride struct {
	FromUnit string
	ToUnit   string
}

// Adjacent reports whether cell a and cell b are grid neighbors (relate
// pattern T********, interior-interior intersection of their rings) or are
// linked by an explicit contiguity override.
func Adjacent(a, b h3.Cell, overrides []ContiguityOverride) bool {
	if a == b {
		return true
	}
	for _, n := range a.GridDisk(1) {
		if n == b {
			return true
		}
	}
	aStr, bStr := a.String(), b.String()
	for _, ov := range overrides {
		if (ov.FromUnit == aStr && ov.ToUnit == bStr) || (ov.FromUnit == bStr && ov.ToUnit == aStr) {
			return true
		}
	}
	return false
}

// TouchesRegion reports whether cell c is a grid neighbor of (or override-
// linked to) any cell belonging to r. Used to decide whether a base unit
// "touches the exterior ring" of a candidate district per the adjacency
// branch of fix-unassigned.
func TouchesRegion(c h3.Cell, r Region, overrides []ContiguityOverride) bool {
	for _, n := range c.GridDisk(1) {
		if r.Has(n) {
			return true
		}
	}
	if len(overrides) == 0 {
		return false
	}
	cStr := c.String()
	for _, ov := range overrides {
		var other string
		switch cStr {
		case ov.FromUnit:
			other = ov.ToUnit
		case ov.ToUnit:
			other = ov.FromUnit
		default:
			continue
		}
		var oc h3.Cell
		if err := oc.UnmarshalText([]byte(other)); err == nil && r.Has(oc) {
			return true
		}
	}
	return false
}

// ApplyContiguityOverrides filters overrides down to those relevant to the
// given region, used by callers that want to cache a per-region override
// subset rather than scanning the full override list on every adjacency
// check.
func ApplyContiguityOverrides(r Region, all []ContiguityOverride) []ContiguityOverride {
	out := make([]ContiguityOverride, 0, len(all))
	for _, ov := range all {
		var from, to h3.Cell
		fromErr := from.UnmarshalText([]byte(ov.FromUnit))
		toErr := to.UnmarshalText([]byte(ov.ToUnit))
		if fromErr != nil || toErr != nil {
			continue
		}
		if r.Has(from) || r.Has(to) {
			out = append(out, ov)
		}
	}
	return out
}
