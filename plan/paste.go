package plan

import (
	"context"
	"sort"
	"time"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/coreerr"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
)

// SourceDistrict is an externally-supplied district shape to import via
// Paste — e.g. a district pulled in from another plan. It carries no
// plan-relative identity; Paste allocates a fresh district_id for it.
type SourceDistrict struct {
	Name       string
	NumMembers int
	Geom       geom.Region
}

// Paste implements spec §4.F.2: import each source district in order,
// carving overlapping area out of existing districts (or out of itself, if
// the overlap is with a locked district), and returns the new district_ids
// actually created (a source that fully collapses against a locked overlap
// contributes no id).
func (e *Engine) Paste(ctx context.Context, body *catalog.LegislativeBody, planID string, sources []SourceDistrict, baseVersion int, at time.Time) ([]int, error) {
	if err := e.checkFreeze(body, at); err != nil {
		return nil, err
	}

	plan, err := e.Store.GetPlan(ctx, planID)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindStoreError, err, "load plan %s", planID)
	}

	districts, err := e.Store.DistrictsAtVersion(ctx, planID, baseVersion)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindStoreError, err, "load districts at version %d", baseVersion)
	}

	if err := purgeAfter(ctx, e.Store, planID, baseVersion); err != nil {
		return nil, err
	}

	subjects := e.Catalog.Subjects()
	baseRes := body.BaseGeolevel().H3Resolution
	newVersion := baseVersion + 1

	// clonedThisBatch tracks, per district_id, the row already written at
	// newVersion for an unlocked district so subsequent pastes in the same
	// batch carve from it and replace it, rather than re-cloning from the
	// base-version row.
	clonedThisBatch := make(map[int]store.DistrictRow)
	assignedDistrictIDs := make(map[int]bool)
	for _, d := range districts {
		if d.DistrictID != UnassignedDistrictID && !d.Geom.IsEmpty() {
			assignedDistrictIDs[d.DistrictID] = true
		}
	}

	var newIDs []int

	for _, src := range sources {
		if len(assignedDistrictIDs)+1 > body.MaxDistricts+1 {
			return newIDs, coreerr.New(coreerr.KindCapacityExceeded, "paste: plan already has %d districts, max is %d", len(assignedDistrictIDs), body.MaxDistricts)
		}

		districtID := nextDistrictID(assignedDistrictIDs)
		pastedGeom := src.Geom
		dropped := false

		for _, d := range districts {
			if d.DistrictID == UnassignedDistrictID || d.Geom.IsEmpty() {
				continue
			}
			dBase, err := normalizeBase(d.Geom, baseRes)
			if err != nil {
				return newIDs, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize district %d", d.DistrictID)
			}
			pastedBase, err := normalizeBase(pastedGeom, baseRes)
			if err != nil {
				return newIDs, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize pasted geometry")
			}
			overlap := geom.Intersection(dBase, pastedBase)
			if overlap.IsEmpty() {
				continue
			}
			overlapUnits, err := overlapBaseUnits(overlap, baseRes)
			if err != nil {
				return newIDs, coreerr.Wrap(coreerr.KindGeometryError, err, "overlap units")
			}

			if d.IsLocked {
				pastedGeom = geom.EnforceMulti(geom.Difference(pastedBase, dBase))
				if pastedGeom.IsEmpty() {
					dropped = true
					break
				}
				continue
			}

			row, already := clonedThisBatch[d.DistrictID]
			if !already {
				row = d
			}
			rowBase, err := normalizeBase(row.Geom, baseRes)
			if err != nil {
				return newIDs, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize district %d", d.DistrictID)
			}
			newGeom := geom.EnforceMulti(geom.Difference(rowBase, pastedBase))
			simple, err := simplifyFor(body, newGeom)
			if err != nil {
				return newIDs, err
			}
			updated := store.DistrictRow{
				PlanID:     planID,
				DistrictID: d.DistrictID,
				Ver:        newVersion,
				Name:       d.Name,
				NumMembers: d.NumMembers,
				IsLocked:   d.IsLocked,
				Geom:       newGeom,
				Simple:     simple,
			}
			sourceRowID := d.RowID
			if already {
				sourceRowID = row.RowID
			}
			newRowID, err := e.Store.InsertDistrictRow(ctx, updated)
			if err != nil {
				return newIDs, coreerr.Wrap(coreerr.KindStoreError, err, "insert updated district row")
			}
			updated.RowID = newRowID
			cloneComputed(e.Store, sourceRowID, newRowID, subjects)
			if err := stats.Delta(e.Store, e.Catalog, newRowID, overlapUnits, subjects, false); err != nil {
				return newIDs, coreerr.Wrap(coreerr.KindInvariantViolation, err, "delta subtract overlap")
			}
			clonedThisBatch[d.DistrictID] = updated
			if already {
				// The updated row supersedes the one an earlier paste wrote
				// at newVersion, so the district keeps a single row there.
				if err := e.Store.DeleteDistrictRows(ctx, []string{row.RowID}); err != nil {
					return newIDs, coreerr.Wrap(coreerr.KindStoreError, err, "replace batch row for district %d", d.DistrictID)
				}
			}
		}

		if dropped {
			continue
		}

		numMembers := src.NumMembers
		if numMembers <= 0 {
			numMembers = 1
		}
		name := src.Name
		if name == "" {
			name = districtName(body, districtID, numMembers)
		}
		newRow := store.DistrictRow{
			PlanID:     planID,
			DistrictID: districtID,
			Ver:        newVersion,
			Name:       name,
			NumMembers: numMembers,
			Geom:       geom.EnforceMulti(pastedGeom),
		}
		simple, err := simplifyFor(body, newRow.Geom)
		if err != nil {
			return newIDs, err
		}
		newRow.Simple = simple
		newRowID, err := e.Store.InsertDistrictRow(ctx, newRow)
		if err != nil {
			return newIDs, coreerr.Wrap(coreerr.KindStoreError, err, "insert pasted district")
		}
		pastedUnits, err := overlapBaseUnits(newRow.Geom, baseRes)
		if err != nil {
			return newIDs, coreerr.Wrap(coreerr.KindGeometryError, err, "pasted district units")
		}
		if err := stats.Delta(e.Store, e.Catalog, newRowID, pastedUnits, subjects, true); err != nil {
			return newIDs, coreerr.Wrap(coreerr.KindInvariantViolation, err, "delta add pasted")
		}

		assignedDistrictIDs[districtID] = true
		newIDs = append(newIDs, districtID)
	}

	plan.Version = newVersion
	plan.IsValid = false
	plan.EditedAt = at
	if err := e.Store.SavePlan(ctx, plan); err != nil {
		return newIDs, coreerr.Wrap(coreerr.KindStoreError, err, "save plan")
	}
	if err := e.purgeBoundedUndo(ctx, &plan); err != nil {
		return newIDs, err
	}
	if plan.MinVersion != 0 {
		if err := e.Store.SavePlan(ctx, plan); err != nil {
			return newIDs, coreerr.Wrap(coreerr.KindStoreError, err, "save plan min_version")
		}
	}

	return newIDs, nil
}

// nextDistrictID returns the lowest positive integer not present in used.
func nextDistrictID(used map[int]bool) int {
	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	next := 1
	for _, id := range ids {
		if id == next {
			next++
		} else if id > next {
			break
		}
	}
	return next
}

