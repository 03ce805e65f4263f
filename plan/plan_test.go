package plan

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uber/h3-go/v4"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/freeze"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
)

const (
	testLat = 28.6139
	testLng = 77.2090
	baseRes = 9
)

// baseCells returns n distinct base-resolution cells around the test point.
func baseCells(t *testing.T, n int) []h3.Cell {
	t.Helper()
	origin := h3.LatLngToCell(h3.NewLatLng(testLat, testLng), baseRes)
	disk := origin.GridDisk(3)
	if len(disk) < n {
		t.Fatalf("need %d distinct cells, grid disk only has %d", n, len(disk))
	}
	return disk[:n]
}

func singleLevelBody(t *testing.T, maxDistricts int) *catalog.LegislativeBody {
	t.Helper()
	b, err := catalog.NewLegislativeBody("Assembly", maxDistricts, "{name}", "TotalPopulation", []catalog.Geolevel{
		{Name: "tract", H3Resolution: baseRes},
	})
	if err != nil {
		t.Fatalf("NewLegislativeBody: %v", err)
	}
	return b
}

// twoLevelBody builds a county/tract ladder with tract at this file's base
// resolution, mirroring selector_test.go's fixture of the same name.
func twoLevelBody(t *testing.T, maxDistricts, countyRes int) *catalog.LegislativeBody {
	t.Helper()
	b, err := catalog.NewLegislativeBody("Assembly", maxDistricts, "{name}", "TotalPopulation", []catalog.Geolevel{
		{Name: "county", H3Resolution: countyRes},
		{Name: "tract", H3Resolution: baseRes, ParentGeolevel: "county"},
	})
	if err != nil {
		t.Fatalf("NewLegislativeBody: %v", err)
	}
	return b
}

func newCatalog(t *testing.T, cells []h3.Cell, popPerUnit, vapPerUnit int64) *catalog.Store {
	t.Helper()
	cat := catalog.NewStore()
	cat.AddSubject(catalog.Subject{Name: "TotalPopulation"})
	cat.AddSubject(catalog.Subject{Name: "VotingAgePopulation", PercentageDenominator: "TotalPopulation"})
	for _, c := range cells {
		cat.AddUnit(catalog.Unit{ID: c.String(), Geolevel: "tract"})
		cat.SetCharacteristic(c.String(), "TotalPopulation", decimal.NewFromInt(popPerUnit))
		cat.SetCharacteristic(c.String(), "VotingAgePopulation", decimal.NewFromInt(vapPerUnit))
	}
	return cat
}

func regionOf(t *testing.T, cells []h3.Cell) geom.Region {
	t.Helper()
	ids := make([]string, len(cells))
	for i, c := range cells {
		ids[i] = c.String()
	}
	r, err := geom.FromIDs(ids...)
	if err != nil {
		t.Fatalf("FromIDs: %v", err)
	}
	return r
}

func newEngine(cat *catalog.Store) (*Engine, *store.MemStore) {
	mem := store.NewMemStore()
	return &Engine{
		Store:                          mem,
		Catalog:                        cat,
		MaxUndosDuringEdit:             0,
		FixUnassignedMinPercent:        50,
		FixUnassignedComparatorSubject: "TotalPopulation",
	}, mem
}

func seedPlan(t *testing.T, mem *store.MemStore, unassignedGeom geom.Region) {
	t.Helper()
	ctx := context.Background()
	if err := mem.SavePlan(ctx, store.Plan{ID: "p1", BodyName: "Assembly", Version: 0, MinVersion: 0, IsValid: true}); err != nil {
		t.Fatalf("SavePlan: %v", err)
	}
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: UnassignedDistrictID, Ver: 0, Name: "Unassigned", Geom: unassignedGeom,
	}); err != nil {
		t.Fatalf("seed unassigned row: %v", err)
	}
}

func TestAssignCreatesTargetAndShrinksUnassigned(t *testing.T) {
	cells := baseCells(t, 6)
	cat := newCatalog(t, cells, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)

	seedPlan(t, mem, regionOf(t, cells))

	unitIDs := []string{cells[0].String(), cells[1].String(), cells[2].String()}
	ctx := context.Background()
	fixed, err := e.Assign(ctx, body, "p1", 1, unitIDs, "tract", 0, time.Now())
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !fixed {
		t.Fatal("expected fixed=true")
	}

	plan, err := mem.GetPlan(ctx, "p1")
	if err != nil {
		t.Fatalf("GetPlan: %v", err)
	}
	if plan.Version != 1 {
		t.Fatalf("expected plan.Version == 1, got %d", plan.Version)
	}

	rows, err := mem.DistrictsAtVersion(ctx, "p1", 1)
	if err != nil {
		t.Fatalf("DistrictsAtVersion: %v", err)
	}
	byID := map[int]store.DistrictRow{}
	for _, r := range rows {
		byID[r.DistrictID] = r
	}

	target, ok := byID[1]
	if !ok {
		t.Fatal("expected target district 1 to exist at version 1")
	}
	if target.Geom.Len() != 3 {
		t.Fatalf("expected target to cover 3 units, got %d", target.Geom.Len())
	}
	cc, ok := e.Store.GetComputed(targetRowID(t, mem, "p1", 1, 1), "TotalPopulation")
	if !ok {
		t.Fatal("expected TotalPopulation computed for target")
	}
	if !cc.Number.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected target TotalPopulation == 30, got %s", cc.Number.String())
	}

	unassigned := byID[UnassignedDistrictID]
	if unassigned.Geom.Len() != 3 {
		t.Fatalf("expected unassigned to shrink to 3 units, got %d", unassigned.Geom.Len())
	}
}

func targetRowID(t *testing.T, mem *store.MemStore, planID string, districtID, version int) string {
	t.Helper()
	rows, err := mem.AllRows(context.Background(), planID)
	if err != nil {
		t.Fatalf("AllRows: %v", err)
	}
	for _, r := range rows {
		if r.DistrictID == districtID && r.Ver == version {
			return r.RowID
		}
	}
	t.Fatalf("no row found for district %d at version %d", districtID, version)
	return ""
}

// TestAssignShedsCoarseDistrictWhenFinerUnitAssignedFromChild exercises the
// cross-geolevel partition invariant from spec §8: assigning a whole county
// to one district and then a child tract of that same county to another
// must leave the two districts' geometries disjoint. Before normalizing to
// base resolution, the county-level district's stored Geom (a single res-6
// cell) never compared equal to the incoming res-9 tract id even though the
// tract is geographically inside it, so the county district silently kept
// claiming the tract's area too.
func TestAssignShedsCoarseDistrictWhenFinerUnitAssignedFromChild(t *testing.T) {
	county := h3.LatLngToCell(h3.NewLatLng(testLat, testLng), 6)
	children := county.Children(baseRes)
	if len(children) < 2 {
		t.Fatal("expected county to have at least 2 tract children")
	}

	cat := newCatalog(t, children, 10, 6)
	body := twoLevelBody(t, 10, 6)
	e, mem := newEngine(cat)
	ctx := context.Background()

	seedPlan(t, mem, regionOf(t, children))

	fixed, err := e.Assign(ctx, body, "p1", 1, []string{county.String()}, "county", 0, time.Now())
	if err != nil {
		t.Fatalf("Assign county to district 1: %v", err)
	}
	if !fixed {
		t.Fatal("expected fixed=true assigning the county")
	}

	tract := children[0]
	fixed, err = e.Assign(ctx, body, "p1", 2, []string{tract.String()}, "tract", 1, time.Now())
	if err != nil {
		t.Fatalf("Assign tract to district 2: %v", err)
	}
	if !fixed {
		t.Fatal("expected fixed=true assigning the tract")
	}

	rows, err := mem.DistrictsAtVersion(ctx, "p1", 2)
	if err != nil {
		t.Fatalf("DistrictsAtVersion: %v", err)
	}
	byID := map[int]store.DistrictRow{}
	for _, r := range rows {
		byID[r.DistrictID] = r
	}

	d1, ok := byID[1]
	if !ok {
		t.Fatal("expected district 1 to exist at version 2")
	}
	d2, ok := byID[2]
	if !ok {
		t.Fatal("expected district 2 to exist at version 2")
	}

	tractRegion, err := geom.FromIDs(tract.String())
	if err != nil {
		t.Fatalf("FromIDs: %v", err)
	}
	if geom.Intersects(d1.Geom, tractRegion) {
		t.Fatal("district 1 must shed the tract's area once it is reassigned to district 2")
	}
	if !geom.Intersects(d2.Geom, tractRegion) {
		t.Fatal("district 2 must own the reassigned tract")
	}
	if d1.Geom.Len()+d2.Geom.Len() != len(children) {
		t.Fatalf("expected districts 1 and 2 to partition all %d tracts, got %d+%d", len(children), d1.Geom.Len(), d2.Geom.Len())
	}
}

func TestAssignLockedTargetIsNoop(t *testing.T) {
	cells := baseCells(t, 4)
	cat := newCatalog(t, cells, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)

	ctx := context.Background()
	seedPlan(t, mem, regionOf(t, cells))
	if err := mem.SavePlan(ctx, store.Plan{ID: "p1", BodyName: "Assembly", Version: 0}); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 1, Ver: 0, Name: "D1", IsLocked: true, Geom: geom.Empty(),
	}); err != nil {
		t.Fatal(err)
	}

	fixed, err := e.Assign(ctx, body, "p1", 1, []string{cells[0].String()}, "tract", 0, time.Now())
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if fixed {
		t.Fatal("expected no-op against a locked target")
	}
	plan, _ := mem.GetPlan(ctx, "p1")
	if plan.Version != 0 {
		t.Fatalf("expected plan.Version unchanged, got %d", plan.Version)
	}
}

func TestFreezeBlocksAssign(t *testing.T) {
	cells := baseCells(t, 4)
	cat := newCatalog(t, cells, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)
	e.Freeze = freeze.NewChecker()
	e.Freeze.AddWindow(freeze.Window{BodyName: "Assembly", Start: day(1), End: day(5)})

	seedPlan(t, mem, regionOf(t, cells))

	_, err := e.Assign(context.Background(), body, "p1", 1, []string{cells[0].String()}, "tract", 0, day(2))
	if err == nil {
		t.Fatal("expected freeze to block the mutation")
	}
}

func TestCombineMergesComponentsIntoTarget(t *testing.T) {
	cells := baseCells(t, 6)
	cat := newCatalog(t, cells, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)
	ctx := context.Background()

	seedPlan(t, mem, geom.Empty())
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 1, Ver: 0, Name: "D1", Geom: regionOf(t, cells[0:2]),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 2, Ver: 0, Name: "D2", Geom: regionOf(t, cells[2:4]),
	}); err != nil {
		t.Fatal(err)
	}

	// seed computed characteristics the way a prior assign would have left
	// them.
	e.Store.SetComputed(computedFor(rowIDFor(t, mem, "p1", 1, 0), "TotalPopulation", 20))
	e.Store.SetComputed(computedFor(rowIDFor(t, mem, "p1", 2, 0), "TotalPopulation", 20))

	if err := e.Combine(ctx, body, "p1", 1, []int{2}, 0, time.Now()); err != nil {
		t.Fatalf("Combine: %v", err)
	}

	plan, _ := mem.GetPlan(ctx, "p1")
	if plan.Version != 1 {
		t.Fatalf("expected plan.Version == 1, got %d", plan.Version)
	}

	rows, _ := mem.DistrictsAtVersion(ctx, "p1", 1)
	var target, component store.DistrictRow
	for _, r := range rows {
		if r.DistrictID == 1 {
			target = r
		}
		if r.DistrictID == 2 {
			component = r
		}
	}
	if target.Geom.Len() != 4 {
		t.Fatalf("expected merged target to cover 4 units, got %d", target.Geom.Len())
	}
	if !component.Geom.IsEmpty() {
		t.Fatal("expected component district to be logically deleted (empty geometry)")
	}
	cc, ok := e.Store.GetComputed(target.RowID, "TotalPopulation")
	if !ok || !cc.Number.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected merged TotalPopulation == 40, got %v ok=%v", cc.Number, ok)
	}
}

func TestCombineRejectsLockedTarget(t *testing.T) {
	cells := baseCells(t, 4)
	cat := newCatalog(t, cells, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)
	ctx := context.Background()

	seedPlan(t, mem, geom.Empty())
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 1, Ver: 0, IsLocked: true, Geom: regionOf(t, cells[0:2]),
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 2, Ver: 0, Geom: regionOf(t, cells[2:4]),
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.Combine(ctx, body, "p1", 1, []int{2}, 0, time.Now()); err == nil {
		t.Fatal("expected combine against a locked target to fail")
	}
}

func TestPasteImportsDistrictAndCarvesOverlap(t *testing.T) {
	cells := baseCells(t, 6)
	cat := newCatalog(t, cells, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)
	ctx := context.Background()

	seedPlan(t, mem, geom.Empty())
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 1, Ver: 0, Name: "D1", Geom: regionOf(t, cells[0:3]),
	}); err != nil {
		t.Fatal(err)
	}
	e.Store.SetComputed(computedFor(rowIDFor(t, mem, "p1", 1, 0), "TotalPopulation", 30))

	pasted := SourceDistrict{Name: "Imported", NumMembers: 1, Geom: regionOf(t, cells[1:5])}
	newIDs, err := e.Paste(ctx, body, "p1", []SourceDistrict{pasted}, 0, time.Now())
	if err != nil {
		t.Fatalf("Paste: %v", err)
	}
	if len(newIDs) != 1 || newIDs[0] != 2 {
		t.Fatalf("expected new district id 2, got %v", newIDs)
	}

	rows, _ := mem.DistrictsAtVersion(ctx, "p1", 1)
	var original, pastedRow store.DistrictRow
	for _, r := range rows {
		if r.DistrictID == 1 {
			original = r
		}
		if r.DistrictID == 2 {
			pastedRow = r
		}
	}
	if pastedRow.Geom.Len() != 4 {
		t.Fatalf("expected pasted district to keep all 4 of its own units, got %d", pastedRow.Geom.Len())
	}
	if original.Geom.Len() != 1 {
		t.Fatalf("expected original district to shrink to 1 unit after losing overlap, got %d", original.Geom.Len())
	}
}

func TestFixUnassignedFillsHole(t *testing.T) {
	origin := h3.LatLngToCell(h3.NewLatLng(testLat, testLng), baseRes)
	disk := origin.GridDisk(1) // origin + 6 neighbors for a hex grid; order unspecified
	if len(disk) < 7 {
		t.Fatalf("expected a full disk of 7 cells, got %d", len(disk))
	}
	hole := origin
	var surrounding []h3.Cell
	for _, c := range disk {
		if c != origin {
			surrounding = append(surrounding, c)
		}
	}
	ring := append([]h3.Cell{hole}, surrounding...)

	cat := newCatalog(t, ring, 10, 6)
	body := singleLevelBody(t, 3)
	e, mem := newEngine(cat)
	e.FixUnassignedMinPercent = 1000 // disable adjacency branch for this test
	ctx := context.Background()

	seedPlan(t, mem, regionOf(t, []h3.Cell{hole}))
	if _, err := mem.InsertDistrictRow(ctx, store.DistrictRow{
		PlanID: "p1", DistrictID: 1, Ver: 0, Name: "D1", Geom: regionOf(t, surrounding),
	}); err != nil {
		t.Fatal(err)
	}

	ok, _, err := e.FixUnassigned(ctx, body, "p1", 0, time.Now())
	if err != nil {
		t.Fatalf("FixUnassigned: %v", err)
	}
	if !ok {
		t.Fatal("expected the enclosed hole to be filled")
	}

	rows, _ := mem.DistrictsAtVersion(ctx, "p1", 1)
	for _, r := range rows {
		if r.DistrictID == UnassignedDistrictID && !r.Geom.IsEmpty() {
			t.Fatalf("expected unassigned to be fully drained, still has %d units", r.Geom.Len())
		}
		if r.DistrictID == 1 && r.Geom.Len() != len(ring) {
			t.Fatalf("expected district 1 to absorb the hole, has %d units want %d", r.Geom.Len(), len(ring))
		}
	}
}

func rowIDFor(t *testing.T, mem *store.MemStore, planID string, districtID, version int) string {
	return targetRowID(t, mem, planID, districtID, version)
}

func computedFor(rowID, subject string, number int64) stats.ComputedCharacteristic {
	return stats.ComputedCharacteristic{
		DistrictRowID: rowID,
		Subject:       subject,
		Number:        decimal.NewFromInt(number),
	}
}

func day(n int) time.Time {
	return time.Date(2026, 1, n, 0, 0, 0, 0, time.UTC)
}
