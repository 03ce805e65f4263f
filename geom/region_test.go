package geom

import (
	"testing"

	"github.com/uber/h3-go/v4"
)

const (
	testLat = 28.6139 // Delhi latitude
	testLng = 77.2090 // Delhi longitude
)

func cellAt(t *testing.T, lat, lng float64, res int) h3.Cell {
	t.Helper()
	return h3.LatLngToCell(h3.NewLatLng(lat, lng), res)
}

func TestFromIDsRejectsInvalidCell(t *testing.T) {
	if _, err := FromIDs("not-a-cell"); err == nil {
		t.Fatal("expected error for invalid cell id")
	}
}

func TestUnionIntersectionDifference(t *testing.T) {
	a := cellAt(t, testLat, testLng, 9)
	b := cellAt(t, testLat+0.01, testLng+0.01, 9)

	ra, _ := FromIDs(a.String())
	rb, _ := FromIDs(a.String(), b.String())

	u := Union(ra, rb)
	if u.Len() != 2 {
		t.Fatalf("expected union of 2 cells, got %d", u.Len())
	}

	i := Intersection(ra, rb)
	if i.Len() != 1 || !i.Has(a) {
		t.Fatalf("expected intersection to contain only a, got %v", i.IDs())
	}

	d := Difference(rb, ra)
	if d.Len() != 1 || !d.Has(b) {
		t.Fatalf("expected difference to contain only b, got %v", d.IDs())
	}
}

func TestWithinAndIntersects(t *testing.T) {
	a := cellAt(t, testLat, testLng, 9)
	ra, _ := FromIDs(a.String())
	empty := Empty()

	if Within(ra, empty) {
		t.Error("non-empty region should not be within an empty region")
	}
	if Within(empty, ra) {
		t.Error("empty region is never within anything (no area to contain)")
	}
	if !Within(ra, ra) {
		t.Error("a region is within itself")
	}
	if !Intersects(ra, ra) {
		t.Error("a region intersects itself")
	}
	if Intersects(ra, empty) {
		t.Error("nothing intersects an empty region")
	}
}

func TestEnforceMultiDeduplicates(t *testing.T) {
	a := cellAt(t, testLat, testLng, 9)
	r, _ := FromIDs(a.String(), a.String())
	out := EnforceMulti(r)
	if out.Len() != 1 {
		t.Fatalf("expected deduplication to 1 cell, got %d", out.Len())
	}
}

func TestSimplifyRoundTripsArea(t *testing.T) {
	parent := cellAt(t, testLat, testLng, 6)
	children := parent.Children(7)
	ids := make([]string, len(children))
	for i, c := range children {
		ids[i] = c.String()
	}
	r, err := FromIDs(ids...)
	if err != nil {
		t.Fatalf("FromIDs: %v", err)
	}

	simplified, err := Simplify(r)
	if err != nil {
		t.Fatalf("Simplify: %v", err)
	}
	if simplified.Len() != 1 {
		t.Fatalf("expected all children to compact to 1 parent cell, got %d", simplified.Len())
	}

	back, err := Uncompact(simplified, 7)
	if err != nil {
		t.Fatalf("Uncompact: %v", err)
	}
	if back.Len() != r.Len() {
		t.Fatalf("uncompact did not round-trip: got %d want %d", back.Len(), r.Len())
	}
}

func TestCentroidOfEmptyRegionErrors(t *testing.T) {
	if _, _, err := Centroid(Empty()); err != ErrEmptyRegion {
		t.Fatalf("expected ErrEmptyRegion, got %v", err)
	}
}

func TestContainsPoint(t *testing.T) {
	a := cellAt(t, testLat, testLng, 9)
	r, _ := FromIDs(a.String())
	if !ContainsPoint(r, testLat, testLng, 9) {
		t.Error("expected region to contain its own defining point")
	}
	if ContainsPoint(r, testLat+10, testLng+10, 9) {
		t.Error("expected distant point not to be contained")
	}
}

func TestAdjacentGridNeighbors(t *testing.T) {
	a := cellAt(t, testLat, testLng, 9)
	neighbors := a.GridDisk(1)
	var b h3.Cell
	for _, n := range neighbors {
		if n != a {
			b = n
			break
		}
	}
	if !Adjacent(a, b, nil) {
		t.Error("expected grid neighbors to be adjacent")
	}
}

func TestAdjacentViaOverride(t *testing.T) {
	a := cellAt(t, testLat, testLng, 3)
	b := cellAt(t, testLat+20, testLng+20, 3)
	if Adjacent(a, b, nil) {
		t.Fatal("distant cells should not be adjacent without an override")
	}
	overrides := []ContiguityOverride{{FromUnit: a.String(), ToUnit: b.String()}}
	if !Adjacent(a, b, overrides) {
		t.Error("expected override to make distant cells adjacent")
	}
}
