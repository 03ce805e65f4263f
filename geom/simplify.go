package geom

import (
	"github.com/uber/h3-go/v4"
)

// Simplify compacts a region to its coarsest representable ancestor cells,
// the H3 counterpart of the geometry kernel's `simplify(tolerance,
// preserve_topology=true)`. A region compacted this way remains exactly
// equal in area to the input; H3's CompactCells never discards area, only
// replaces seven sibling cells with their shared parent where possible.
func Simplify(r Region) (Region, error) {
	cells := r.sortedCells()
	if len(cells) == 0 {
		return Empty(), nil
	}
	compacted, err := h3.CompactCells(cells)
	if err != nil {
		return Region{}, err
	}
	return fromCells(compacted), nil
}

// Uncompact expands every cell in r to resolution, the inverse of Simplify.
// Cells already finer than resolution are left as-is since H3 cannot
// subdivide past its own fixed resolution ladder in reverse.
func Uncompact(r Region, resolution int) (Region, error) {
	cells := r.sortedCells()
	if len(cells) == 0 {
		return Empty(), nil
	}
	uncompacted, err := h3.UncompactCells(cells, resolution)
	if err != nil {
		return Region{}, err
	}
	return fromCells(uncompacted), nil
}

// Centroid returns the area-weighted mean of the region's cell centers as
// (lat, lng). Returns an error for an empty region.
func Centroid(r Region) (lat, lng float64, err error) {
	if r.IsEmpty() {
		return 0, 0, ErrEmptyRegion
	}
	var sumLat, sumLng, sumArea float64
	for c := range r.cells {
		ll := c.LatLng()
		area := h3.CellAreaM2(c)
		sumLat += ll.Lat * area
		sumLng += ll.Lng * area
		sumArea += area
	}
	if sumArea == 0 {
		return 0, 0, ErrEmptyRegion
	}
	return sumLat / sumArea, sumLng / sumArea, nil
}

// AreaM2 returns the total area of the region in square meters.
func AreaM2(r Region) float64 {
	var total float64
	for c := range r.cells {
		total += h3.CellAreaM2(c)
	}
	return total
}

// ContainsPoint reports whether the cell at the given resolution covering
// (lat, lng) belongs to the region — the H3 rendering of the geometry
// kernel's centroid/point containment test used throughout the
// mixed-geounit algorithm's base-level branch.
func ContainsPoint(r Region, lat, lng float64, resolution int) bool {
	c := h3.LatLngToCell(h3.NewLatLng(lat, lng), resolution)
	return r.Has(c)
}
