package plan

import (
	"context"
	"time"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/coreerr"
	"github.com/politic-in/districting-core/decimalx"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
)

// Combine implements spec §4.F.3: merge componentIDs into targetID,
// summing computed characteristics (denominator-first) and unioning
// geometry, then logically deleting each component at the new version.
func (e *Engine) Combine(ctx context.Context, body *catalog.LegislativeBody, planID string, targetID int, componentIDs []int, baseVersion int, at time.Time) error {
	if err := e.checkFreeze(body, at); err != nil {
		return err
	}

	plan, err := e.Store.GetPlan(ctx, planID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "load plan %s", planID)
	}

	districts, err := e.Store.DistrictsAtVersion(ctx, planID, baseVersion)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "load districts at version %d", baseVersion)
	}
	byDistrict := latestByDistrict(districts)

	target, ok := byDistrict[targetID]
	if !ok {
		return coreerr.New(coreerr.KindInvariantViolation, "combine: target district %d not in plan", targetID)
	}
	if target.IsLocked {
		return coreerr.New(coreerr.KindLockedTarget, "combine: target district %d is locked", targetID)
	}

	components := make([]store.DistrictRow, 0, len(componentIDs))
	for _, id := range componentIDs {
		c, ok := byDistrict[id]
		if !ok {
			return coreerr.New(coreerr.KindInvariantViolation, "combine: component district %d not in plan", id)
		}
		components = append(components, c)
	}

	if err := purgeAfter(ctx, e.Store, planID, baseVersion); err != nil {
		return err
	}

	subjects := e.Catalog.Subjects()
	newVersion := plan.Version + 1

	allGeoms := []geom.Region{target.Geom}
	rowIDs := []string{target.RowID}
	for _, c := range components {
		allGeoms = append(allGeoms, c.Geom)
		rowIDs = append(rowIDs, c.RowID)
	}
	mergedGeom := geom.EnforceMulti(geom.Union(allGeoms...))
	simple, err := simplifyFor(body, mergedGeom)
	if err != nil {
		return err
	}

	newTarget := store.DistrictRow{
		PlanID:     planID,
		DistrictID: targetID,
		Ver:        newVersion,
		Name:       target.Name,
		NumMembers: target.NumMembers,
		Geom:       mergedGeom,
		Simple:     simple,
	}
	newTargetRowID, err := e.Store.InsertDistrictRow(ctx, newTarget)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "insert combined target row")
	}

	for _, subject := range stats.OrderedSubjects(subjects) {
		total := decimalx.Zero
		for _, rowID := range rowIDs {
			cc, found := e.Store.GetComputed(rowID, subject.Name)
			if found {
				total = decimalx.New(total.Add(cc.Number))
			}
		}
		newCC := stats.ComputedCharacteristic{
			DistrictRowID: newTargetRowID,
			Subject:       subject.Name,
			Number:        total,
		}
		if subject.PercentageDenominator != "" {
			denomCC, _ := e.Store.GetComputed(newTargetRowID, subject.PercentageDenominator)
			newCC.Percentage = decimalx.Percentage(total, denomCC.Number)
		}
		e.Store.SetComputed(newCC)
	}

	for _, c := range components {
		deletedRow := store.DistrictRow{
			PlanID:     planID,
			DistrictID: c.DistrictID,
			Ver:        newVersion,
			Name:       c.Name,
			NumMembers: c.NumMembers,
			Geom:       geom.Empty(),
		}
		rowID, err := e.Store.InsertDistrictRow(ctx, deletedRow)
		if err != nil {
			return coreerr.Wrap(coreerr.KindStoreError, err, "insert logically-deleted component %d", c.DistrictID)
		}
		stats.Reset(e.Store, rowID, subjects)
	}

	plan.Version = newVersion
	plan.IsValid = false
	plan.EditedAt = at
	if err := e.Store.SavePlan(ctx, plan); err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "save plan")
	}

	if err := e.purgeBoundedUndo(ctx, &plan); err != nil {
		return err
	}
	if plan.MinVersion != 0 {
		if err := e.Store.SavePlan(ctx, plan); err != nil {
			return coreerr.Wrap(coreerr.KindStoreError, err, "save plan min_version")
		}
	}

	return nil
}
