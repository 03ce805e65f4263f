// Package geom wraps the geometry kernel required by the districting
// engine. It grounds the kernel's abstract multi-polygon contract (union,
// difference, intersection, simplify, within, intersects, centroid) on H3's
// hexagonal grid: a Region is a deduplicated set of H3 cell IDs, possibly at
// mixed resolutions, and the kernel's set operations become cell-set
// algebra.
package geom

import (
	"errors"
	"fmt"
	"sort"

	"github.com/uber/h3-go/v4"
)

// ErrInvalidCell is returned when a region contains a malformed H3 cell ID.
var ErrInvalidCell = errors.New("geom: invalid cell id")

// ErrEmptyRegion is returned by operations (centroid, etc.) that are
// undefined over an empty region.
var ErrEmptyRegion = errors.New("geom: empty region")

// Region is an immutable-by-convention multi-polygon: the union of the
// areas covered by its cells. Cells may span multiple resolutions; callers
// that need a single-resolution region should Uncompact to a common
// resolution first.
type Region struct {
	cells map[h3.Cell]struct{}
}

// Empty returns a Region covering no area.
func Empty() Region {
	return Region{cells: map[h3.Cell]struct{}{}}
}

// FromIDs builds a Region from H3 cell-id strings.
func FromIDs(ids ...string) (Region, error) {
	r := Region{cells: make(map[h3.Cell]struct{}, len(ids))}
	for _, id := range ids {
		var c h3.Cell
		if err := c.UnmarshalText([]byte(id)); err != nil || !c.IsValid() {
			return Region{}, fmt.Errorf("%w: %s", ErrInvalidCell, id)
		}
		r.cells[c] = struct{}{}
	}
	return r, nil
}

func fromCells(cs []h3.Cell) Region {
	r := Region{cells: make(map[h3.Cell]struct{}, len(cs))}
	for _, c := range cs {
		r.cells[c] = struct{}{}
	}
	return r
}

// IsEmpty reports whether the region covers no area.
func (r Region) IsEmpty() bool {
	return len(r.cells) == 0
}

// Len returns the number of cells in the region.
func (r Region) Len() int {
	return len(r.cells)
}

// IDs returns the region's cell IDs in a stable sorted order.
func (r Region) IDs() []string {
	out := make([]string, 0, len(r.cells))
	for c := range r.cells {
		out = append(out, c.String())
	}
	sort.Strings(out)
	return out
}

// Has reports whether the region contains the given cell.
func (r Region) Has(c h3.Cell) bool {
	_, ok := r.cells[c]
	return ok
}

// Union returns the cascaded union of the region with others, mirroring the
// geometry kernel's cascaded_union over a collection of geometries.
func Union(regions ...Region) Region {
	out := make(map[h3.Cell]struct{})
	for _, r := range regions {
		for c := range r.cells {
			out[c] = struct{}{}
		}
	}
	return Region{cells: out}
}

// Intersection returns the area common to a and b.
func Intersection(a, b Region) Region {
	small, big := a, b
	if len(a.cells) > len(b.cells) {
		small, big = b, a
	}
	out := make(map[h3.Cell]struct{})
	for c := range small.cells {
		if _, ok := big.cells[c]; ok {
			out[c] = struct{}{}
		}
	}
	return Region{cells: out}
}

// Difference returns a with b's area removed (a \ b).
func Difference(a, b Region) Region {
	out := make(map[h3.Cell]struct{}, len(a.cells))
	for c := range a.cells {
		if _, ok := b.cells[c]; !ok {
			out[c] = struct{}{}
		}
	}
	return Region{cells: out}
}

// Intersects reports whether a and b share any area. Equivalent to the
// geometry kernel's `intersects` predicate.
func Intersects(a, b Region) bool {
	small, big := a, b
	if len(a.cells) > len(b.cells) {
		small, big = b, a
	}
	for c := range small.cells {
		if _, ok := big.cells[c]; ok {
			return true
		}
	}
	return false
}

// Within reports whether a is entirely contained within b. Equivalent to
// the geometry kernel's `within` predicate (a.within(b)).
func Within(a, b Region) bool {
	if a.IsEmpty() {
		return false
	}
	for c := range a.cells {
		if _, ok := b.cells[c]; !ok {
			return false
		}
	}
	return true
}

// EnforceMulti normalizes a region after a set operation, analogous to the
// geometry kernel's `enforce_multi` + `buffer(0)` validity pass: it simply
// rebuilds the cell set, dropping any accidental duplicates. H3 cell sets
// cannot hold invalid topology, so this is a no-op beyond deduplication; it
// exists so call sites that mirror the source's defensive `buffer(0)` calls
// have a direct counterpart.
func EnforceMulti(r Region) Region {
	return fromCells(r.sortedCells())
}

func (r Region) sortedCells() []h3.Cell {
	out := make([]h3.Cell, 0, len(r.cells))
	for c := range r.cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Clone returns an independent copy of the region.
func (r Region) Clone() Region {
	out := make(map[h3.Cell]struct{}, len(r.cells))
	for c := range r.cells {
		out[c] = struct{}{}
	}
	return Region{cells: out}
}
