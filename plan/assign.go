package plan

import (
	"context"
	"time"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/coreerr"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/selector"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
)

// Assign implements spec §4.F.1: add unitIDs (at geolevel `level`) to
// district targetID, stealing them away from whatever district currently
// holds them. Returns whether any district geometry actually changed.
func (e *Engine) Assign(ctx context.Context, body *catalog.LegislativeBody, planID string, targetID int, unitIDs []string, level string, baseVersion int, at time.Time) (bool, error) {
	if err := e.checkFreeze(body, at); err != nil {
		return false, err
	}

	plan, err := e.Store.GetPlan(ctx, planID)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindStoreError, err, "load plan %s", planID)
	}

	incremental, err := geom.FromIDs(unitIDs...)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindGeometryError, err, "parse unit ids")
	}

	districts, err := e.Store.DistrictsAtVersion(ctx, planID, baseVersion)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindStoreError, err, "load districts at version %d", baseVersion)
	}
	byDistrict := latestByDistrict(districts)

	if target, ok := byDistrict[targetID]; ok && target.IsLocked {
		return false, nil
	}

	baseRes := body.BaseGeolevel().H3Resolution
	locked := unionLocked(districts)
	if !locked.IsEmpty() {
		incrementalBase, err := normalizeBase(geom.EnforceMulti(incremental), baseRes)
		if err != nil {
			return false, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize incremental")
		}
		lockedBase, err := normalizeBase(locked, baseRes)
		if err != nil {
			return false, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize locked")
		}
		incremental = geom.EnforceMulti(geom.Difference(incrementalBase, lockedBase))
	}

	if err := purgeAfter(ctx, e.Store, planID, baseVersion); err != nil {
		return false, err
	}

	subjects := e.Catalog.Subjects()
	newVersion := plan.Version + 1
	fixed := false

	incrementalBase, err := normalizeBase(incremental, baseRes)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize incremental")
	}

	var target store.DistrictRow
	hadTarget := false

	for _, d := range districts {
		if d.DistrictID == targetID {
			target = d
			hadTarget = true
			continue
		}
		if d.Geom.IsEmpty() {
			continue
		}
		dBase, err := normalizeBase(d.Geom, baseRes)
		if err != nil {
			return false, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize district %d", d.DistrictID)
		}
		if !geom.Intersects(dBase, incrementalBase) {
			if d.Ver < plan.Version {
				if err := e.cloneForward(ctx, d, newVersion, subjects); err != nil {
					return false, err
				}
			}
			continue
		}

		taken, err := selector.SelectMixed(body, unitIDs, level, d.Geom, true)
		if err != nil {
			return false, coreerr.Wrap(coreerr.KindGeometryError, err, "mixed-selector for district %d", d.DistrictID)
		}
		if len(taken) > 0 {
			fixed = true
		}
		takenBase, err := baseUnitIDs(taken, baseRes)
		if err != nil {
			return false, coreerr.Wrap(coreerr.KindGeometryError, err, "expand taken units to base")
		}

		newGeom := geom.EnforceMulti(geom.Difference(dBase, incrementalBase))
		simple, err := simplifyFor(body, newGeom)
		if err != nil {
			return false, err
		}

		newRow := store.DistrictRow{
			PlanID:     planID,
			DistrictID: d.DistrictID,
			Ver:        newVersion,
			Name:       d.Name,
			NumMembers: d.NumMembers,
			IsLocked:   d.IsLocked,
			Geom:       newGeom,
			Simple:     simple,
		}
		newRowID, err := e.Store.InsertDistrictRow(ctx, newRow)
		if err != nil {
			return false, coreerr.Wrap(coreerr.KindStoreError, err, "insert district row")
		}
		cloneComputed(e.Store, d.RowID, newRowID, subjects)
		if err := stats.Delta(e.Store, e.Catalog, newRowID, takenBase, subjects, false); err != nil {
			return false, coreerr.Wrap(coreerr.KindInvariantViolation, err, "delta subtract")
		}
	}

	bounds := locked
	if hadTarget && !target.Geom.IsEmpty() {
		bounds = geom.Union(target.Geom, locked)
	}
	added, err := selector.SelectMixed(body, unitIDs, level, bounds, false)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindGeometryError, err, "mixed-selector for target")
	}
	if len(added) > 0 {
		fixed = true
	}
	addedBase, err := baseUnitIDs(added, baseRes)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindGeometryError, err, "expand added units to base")
	}

	var targetGeom geom.Region
	if hadTarget && !target.Geom.IsEmpty() {
		targetGeom = geom.EnforceMulti(geom.Union(target.Geom, incremental))
	} else {
		targetGeom = geom.EnforceMulti(incremental)
	}
	simple, err := simplifyFor(body, targetGeom)
	if err != nil {
		return false, err
	}

	numMembers := 1
	name := districtName(body, targetID, numMembers)
	if hadTarget {
		name = target.Name
		numMembers = target.NumMembers
	}

	newTarget := store.DistrictRow{
		PlanID:     planID,
		DistrictID: targetID,
		Ver:        newVersion,
		Name:       name,
		NumMembers: numMembers,
		Geom:       targetGeom,
		Simple:     simple,
	}
	newTargetID, err := e.Store.InsertDistrictRow(ctx, newTarget)
	if err != nil {
		return false, coreerr.Wrap(coreerr.KindStoreError, err, "insert target row")
	}
	if hadTarget {
		cloneComputed(e.Store, target.RowID, newTargetID, subjects)
	}
	if err := stats.Delta(e.Store, e.Catalog, newTargetID, addedBase, subjects, true); err != nil {
		return false, coreerr.Wrap(coreerr.KindInvariantViolation, err, "delta add")
	}

	plan.Version = newVersion
	plan.IsValid = false
	plan.EditedAt = at
	if err := e.Store.SavePlan(ctx, plan); err != nil {
		return false, coreerr.Wrap(coreerr.KindStoreError, err, "save plan")
	}

	if err := e.purgeBoundedUndo(ctx, &plan); err != nil {
		return false, err
	}
	if plan.MinVersion != 0 {
		if err := e.Store.SavePlan(ctx, plan); err != nil {
			return false, coreerr.Wrap(coreerr.KindStoreError, err, "save plan min_version")
		}
	}

	return fixed, nil
}

// cloneForward copies a district row unchanged to newVersion, the "revert
// later edits" branch of spec §4.F.1 step 6.
func (e *Engine) cloneForward(ctx context.Context, d store.DistrictRow, newVersion int, subjects []catalog.Subject) error {
	clone := d
	clone.RowID = ""
	clone.Ver = newVersion
	newRowID, err := e.Store.InsertDistrictRow(ctx, clone)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "clone district forward")
	}
	cloneComputed(e.Store, d.RowID, newRowID, subjects)
	return nil
}
