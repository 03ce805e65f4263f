package plan

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uber/h3-go/v4"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/coreerr"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
)

// FixUnassigned implements spec §4.F.4: reassigns base units of the
// Unassigned district (district_id 0), first filling holes fully enclosed
// by a single district, then — once the assigned fraction clears
// FixUnassignedMinPercent — assigning remaining edge units to the
// smallest-by-comparator-subject adjacent unlocked district.
//
// Unlike assign, which the original implements as N sequential add_geounits
// calls later compacted back to one undo step, this engine computes the
// whole reassignment in a single pass and writes one new version directly —
// there is no intermediate history to purge, so the "single undo reverses
// the whole fix" requirement (spec §4.F.4 last paragraph) holds trivially.
func (e *Engine) FixUnassigned(ctx context.Context, body *catalog.LegislativeBody, planID string, baseVersion int, at time.Time) (bool, string, error) {
	if err := e.checkFreeze(body, at); err != nil {
		return false, "", err
	}

	plan, err := e.Store.GetPlan(ctx, planID)
	if err != nil {
		return false, "", coreerr.Wrap(coreerr.KindStoreError, err, "load plan %s", planID)
	}

	districts, err := e.Store.DistrictsAtVersion(ctx, planID, baseVersion)
	if err != nil {
		return false, "", coreerr.Wrap(coreerr.KindStoreError, err, "load districts at version %d", baseVersion)
	}
	byDistrict := latestByDistrict(districts)

	unassigned, ok := byDistrict[UnassignedDistrictID]
	if !ok || unassigned.Geom.IsEmpty() {
		return true, "no unassigned units to fix", nil
	}

	baseRes := body.BaseGeolevel().H3Resolution
	unassignedRegion, err := geom.Uncompact(unassigned.Geom, baseRes)
	if err != nil {
		return false, "", coreerr.Wrap(coreerr.KindGeometryError, err, "uncompact unassigned")
	}
	unassignedCells, err := parseCells(unassignedRegion.IDs())
	if err != nil {
		return false, "", coreerr.Wrap(coreerr.KindGeometryError, err, "parse unassigned cells")
	}

	cellDistrict := make(map[h3.Cell]int)
	totalAssigned := 0
	for _, d := range districts {
		if d.DistrictID == UnassignedDistrictID || d.Geom.IsEmpty() {
			continue
		}
		expanded, err := geom.Uncompact(d.Geom, baseRes)
		if err != nil {
			return false, "", coreerr.Wrap(coreerr.KindGeometryError, err, "uncompact district %d", d.DistrictID)
		}
		cells, err := parseCells(expanded.IDs())
		if err != nil {
			return false, "", coreerr.Wrap(coreerr.KindGeometryError, err, "parse district %d cells", d.DistrictID)
		}
		for _, c := range cells {
			cellDistrict[c] = d.DistrictID
		}
		totalAssigned += len(cells)
	}

	overrides := geom.ApplyContiguityOverrides(unassignedRegion, e.ContiguityOverrides)
	assignment := make(map[h3.Cell]int)

	// Hole-fill: repeat passes until nothing changes, since filling one ring
	// of cells can enclose the next; at most 8 passes are made.
	for pass := 0; pass < 8; pass++ {
		changed := false
		for _, c := range unassignedCells {
			if _, done := assignment[c]; done {
				continue
			}
			candidates := map[int]bool{}
			neighborCount := 0
			for _, n := range c.GridDisk(1) {
				if n == c {
					continue
				}
				if id, isUnassignedNeighbor := cellDistrict[n]; isUnassignedNeighbor {
					candidates[id] = true
					neighborCount++
				} else if assigned, ok := assignment[n]; ok {
					candidates[assigned] = true
					neighborCount++
				} else {
					// still unassigned and not yet resolved this pass: not
					// fully enclosed (or not enclosed yet).
					neighborCount++
					candidates[-1] = true
				}
			}
			if neighborCount > 0 && len(candidates) == 1 {
				for id := range candidates {
					if id != -1 {
						assignment[c] = id
						changed = true
					}
				}
			}
		}
		if !changed {
			break
		}
	}

	totalBase := totalAssigned + len(unassignedCells)
	assignedFraction := func() float64 {
		if totalBase == 0 {
			return 0
		}
		return float64(totalAssigned+len(assignment)) / float64(totalBase) * 100
	}

	if assignedFraction() >= e.FixUnassignedMinPercent {
		comparator := make(map[int]decimal.Decimal)
		for id, d := range byDistrict {
			if id == UnassignedDistrictID {
				continue
			}
			cc, _ := e.Store.GetComputed(d.RowID, e.FixUnassignedComparatorSubject)
			comparator[id] = cc.Number
		}

		for pass := 0; pass < 8; pass++ {
			changed := false
			for _, c := range unassignedCells {
				if _, done := assignment[c]; done {
					continue
				}
				best := -1
				for _, n := range append(c.GridDisk(1), resolveOverrideNeighbors(c, overrides)...) {
					var cand int
					var found bool
					if id, ok := cellDistrict[n]; ok {
						cand, found = id, true
					} else if id, ok := assignment[n]; ok {
						cand, found = id, true
					}
					if !found {
						continue
					}
					if byDistrict[cand].IsLocked {
						continue
					}
					if best == -1 {
						best = cand
						continue
					}
					if comparator[cand].LessThan(comparator[best]) ||
						(comparator[cand].Equal(comparator[best]) && cand < best) {
						best = cand
					}
				}
				if best != -1 {
					assignment[c] = best
					changed = true
				}
			}
			if !changed {
				break
			}
		}
	}

	if len(assignment) == 0 {
		return false, "no unassigned units could be fixed", nil
	}

	if err := purgeAfter(ctx, e.Store, planID, baseVersion); err != nil {
		return false, "", err
	}

	subjects := e.Catalog.Subjects()
	newVersion := plan.Version + 1

	byTarget := make(map[int][]string)
	for c, districtID := range assignment {
		byTarget[districtID] = append(byTarget[districtID], c.String())
	}

	var assignedIDs []int
	for id := range byTarget {
		assignedIDs = append(assignedIDs, id)
	}
	sort.Ints(assignedIDs)

	for _, districtID := range assignedIDs {
		units := byTarget[districtID]
		d := byDistrict[districtID]
		added, err := geom.FromIDs(units...)
		if err != nil {
			return false, "", coreerr.Wrap(coreerr.KindGeometryError, err, "parse assigned units")
		}
		newGeom := geom.EnforceMulti(geom.Union(d.Geom, added))
		simple, err := simplifyFor(body, newGeom)
		if err != nil {
			return false, "", err
		}
		newRow := store.DistrictRow{
			PlanID:     planID,
			DistrictID: districtID,
			Ver:        newVersion,
			Name:       d.Name,
			NumMembers: d.NumMembers,
			IsLocked:   d.IsLocked,
			Geom:       newGeom,
			Simple:     simple,
		}
		newRowID, err := e.Store.InsertDistrictRow(ctx, newRow)
		if err != nil {
			return false, "", coreerr.Wrap(coreerr.KindStoreError, err, "insert fixed district row")
		}
		cloneComputed(e.Store, d.RowID, newRowID, subjects)
		if err := stats.Delta(e.Store, e.Catalog, newRowID, units, subjects, true); err != nil {
			return false, "", coreerr.Wrap(coreerr.KindInvariantViolation, err, "delta add fixed units")
		}
	}

	var allAssignedUnits []string
	for _, units := range byTarget {
		allAssignedUnits = append(allAssignedUnits, units...)
	}
	removed, err := geom.FromIDs(allAssignedUnits...)
	if err != nil {
		return false, "", coreerr.Wrap(coreerr.KindGeometryError, err, "parse removed units")
	}
	newUnassignedGeom := geom.EnforceMulti(geom.Difference(unassignedRegion, removed))
	simple, err := simplifyFor(body, newUnassignedGeom)
	if err != nil {
		return false, "", err
	}
	newUnassignedRow := store.DistrictRow{
		PlanID:     planID,
		DistrictID: UnassignedDistrictID,
		Ver:        newVersion,
		Name:       unassigned.Name,
		NumMembers: unassigned.NumMembers,
		Geom:       newUnassignedGeom,
		Simple:     simple,
	}
	newUnassignedRowID, err := e.Store.InsertDistrictRow(ctx, newUnassignedRow)
	if err != nil {
		return false, "", coreerr.Wrap(coreerr.KindStoreError, err, "insert updated unassigned row")
	}
	cloneComputed(e.Store, unassigned.RowID, newUnassignedRowID, subjects)
	if err := stats.Delta(e.Store, e.Catalog, newUnassignedRowID, allAssignedUnits, subjects, false); err != nil {
		return false, "", coreerr.Wrap(coreerr.KindInvariantViolation, err, "delta subtract from unassigned")
	}

	plan.Version = newVersion
	plan.IsValid = false
	plan.EditedAt = at
	if err := e.Store.SavePlan(ctx, plan); err != nil {
		return false, "", coreerr.Wrap(coreerr.KindStoreError, err, "save plan")
	}
	if err := e.purgeBoundedUndo(ctx, &plan); err != nil {
		return false, "", err
	}
	if plan.MinVersion != 0 {
		if err := e.Store.SavePlan(ctx, plan); err != nil {
			return false, "", coreerr.Wrap(coreerr.KindStoreError, err, "save plan min_version")
		}
	}

	return true, "fixed unassigned units", nil
}

func parseCells(ids []string) ([]h3.Cell, error) {
	out := make([]h3.Cell, len(ids))
	for i, id := range ids {
		if err := out[i].UnmarshalText([]byte(id)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// resolveOverrideNeighbors returns the override-linked partner cells of c
// among the overrides relevant to the unassigned region.
func resolveOverrideNeighbors(c h3.Cell, overrides []geom.ContiguityOverride) []h3.Cell {
	if len(overrides) == 0 {
		return nil
	}
	cStr := c.String()
	var out []h3.Cell
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
		if err := oc.UnmarshalText([]byte(other)); err == nil {
			out = append(out, oc)
		}
	}
	return out
}
