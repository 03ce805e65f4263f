// Package selector implements the mixed-geounit algorithm: given a
// user-selected set of units at some geolevel and a target boundary region,
// it returns the largest possible units — of possibly mixed geolevels —
// that tile the requested region. Grounded on the original
// Geounit.get_mixed_geounits (original_source/.../models.py) and rendered
// over the H3 cell-set substrate from geom.
package selector

import (
	"errors"
	"fmt"

	"github.com/uber/h3-go/v4"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/geom"
)

// ErrUnknownGeolevel is returned when sourceLevel does not belong to body.
var ErrUnknownGeolevel = errors.New("selector: unknown source geolevel")

// SelectMixed produces the maximal mixed-geolevel tiling of
// U(unitIDs) ∩ boundary (inside=true) or U(unitIDs) \ boundary
// (inside=false), descending the body's geolevel ladder from sourceLevel to
// the base level. unitIDs are H3 cell ids at sourceLevel's resolution;
// boundary is expressed as a Region (any mix of resolutions is accepted —
// it is normalized internally).
func SelectMixed(body *catalog.LegislativeBody, unitIDs []string, sourceLevel string, boundary geom.Region, inside bool) ([]string, error) {
	startIdx := body.GeolevelIndex(sourceLevel)
	if startIdx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGeolevel, sourceLevel)
	}
	levels := body.Geolevels()
	baseRes := body.BaseGeolevel().H3Resolution

	source, err := geom.FromIDs(unitIDs...)
	if err != nil {
		return nil, err
	}

	// Rule 1: boundary absent and inside=true yields nothing to select.
	if boundary.IsEmpty() && inside {
		return nil, nil
	}

	sourceBase, err := normalizeToBase(source, baseRes)
	if err != nil {
		return nil, err
	}
	boundaryBase, err := normalizeToBase(boundary, baseRes)
	if err != nil {
		return nil, err
	}

	var accepted []string
	acceptedBase := geom.Empty()

	// Starting level: test the user's given units directly against the
	// boundary, not a derived remainder.
	startLevel := levels[startIdx]
	isBase := startIdx == len(levels)-1
	for _, id := range unitIDs {
		var cell h3.Cell
		if err := cell.UnmarshalText([]byte(id)); err != nil || !cell.IsValid() {
			continue
		}
		childBase, err := unitBaseRegion(cell, startLevel.H3Resolution, baseRes)
		if err != nil {
			continue
		}
		ok := matchesBoundary(childBase, boundaryBase, inside, isBase)
		if !ok {
			continue
		}
		accepted = append(accepted, id)
		acceptedBase = geom.Union(acceptedBase, childBase)
	}

	if isBase {
		return accepted, nil
	}

	remainder := computeRemainder(sourceBase, boundaryBase, acceptedBase, inside)

	for i := startIdx + 1; i < len(levels); i++ {
		level := levels[i]
		isBase = i == len(levels)-1

		if remainder.IsEmpty() {
			break
		}

		newUnits, newBase, err := descend(remainder, level, baseRes, isBase)
		if err != nil {
			// Geometry-kernel-style failure: stop descending this branch
			// and return what has been accumulated so far.
			break
		}
		accepted = append(accepted, newUnits...)
		acceptedBase = geom.Union(acceptedBase, newBase)

		if isBase {
			break
		}
		remainder = computeRemainder(sourceBase, boundaryBase, acceptedBase, inside)
	}

	return accepted, nil
}

// matchesBoundary tests a unit's base-resolution footprint against the
// boundary per the spec's non-base/base branching: non-base units require
// full containment (inside) or non-intersection (outside); base units are
// tested by cell membership, the discrete analogue of centroid containment
// (a cell is wholly in or out of the boundary's cell set; there is no
// partial-edge case to adjudicate at the finest resolution).
func matchesBoundary(unitBase, boundaryBase geom.Region, inside, isBase bool) bool {
	if isBase {
		contained := geom.Within(unitBase, boundaryBase)
		if inside {
			return contained
		}
		return !contained
	}
	if inside {
		return geom.Within(unitBase, boundaryBase)
	}
	return !geom.Intersects(unitBase, boundaryBase)
}

// computeRemainder implements spec §4.C step 4.
func computeRemainder(sourceBase, boundaryBase, acceptedBase geom.Region, inside bool) geom.Region {
	notYetAccepted := geom.Difference(sourceBase, acceptedBase)
	if inside {
		return geom.Intersection(boundaryBase, notYetAccepted)
	}
	return geom.Intersection(geom.Difference(sourceBase, boundaryBase), notYetAccepted)
}

// descend finds every unit at `level` that is fully covered by remainder
// (non-base: full coverage by all its base-resolution descendants; base:
// membership in remainder itself, i.e. centroid containment).
func descend(remainder geom.Region, level catalog.Geolevel, baseRes int, isBase bool) ([]string, geom.Region, error) {
	if isBase {
		cells := remainder.IDs()
		return cells, remainder.Clone(), nil
	}

	seenParents := make(map[h3.Cell]struct{})
	var units []string
	covered := geom.Empty()

	for _, id := range remainder.IDs() {
		var cell h3.Cell
		if err := cell.UnmarshalText([]byte(id)); err != nil {
			return nil, geom.Region{}, err
		}
		if cell.Resolution() <= level.H3Resolution {
			continue
		}
		parent := cell.Parent(level.H3Resolution)
		if _, done := seenParents[parent]; done {
			continue
		}
		seenParents[parent] = struct{}{}

		childBase, err := unitBaseRegion(parent, level.H3Resolution, baseRes)
		if err != nil {
			return nil, geom.Region{}, err
		}
		if geom.Within(childBase, remainder) {
			units = append(units, parent.String())
			covered = geom.Union(covered, childBase)
		}
	}
	return units, covered, nil
}

// unitBaseRegion returns the base-resolution footprint of a cell declared
// at geolevel resolution res: itself if already at the base resolution,
// or its full set of base-level children otherwise.
func unitBaseRegion(cell h3.Cell, res, baseRes int) (geom.Region, error) {
	if res >= baseRes {
		ids, err := geom.FromIDs(cell.String())
		return ids, err
	}
	children := cell.Children(baseRes)
	ids := make([]string, len(children))
	for i, c := range children {
		ids[i] = c.String()
	}
	return geom.FromIDs(ids...)
}

// normalizeToBase expands every cell in r to the base resolution so set
// operations across mixed-resolution regions are well defined.
func normalizeToBase(r geom.Region, baseRes int) (geom.Region, error) {
	if r.IsEmpty() {
		return geom.Empty(), nil
	}
	out := geom.Empty()
	for _, id := range r.IDs() {
		var cell h3.Cell
		if err := cell.UnmarshalText([]byte(id)); err != nil {
			return geom.Region{}, err
		}
		region, err := unitBaseRegion(cell, cell.Resolution(), baseRes)
		if err != nil {
			return geom.Region{}, err
		}
		out = geom.Union(out, region)
	}
	return out, nil
}
