// Package plan is the Mutation Engine (component F): assign, paste,
// combine and fix_unassigned over versioned districts. Grounded on
// Plan.add_geounits, Plan.combine_districts and Plan.fix_unassigned
// (original_source/.../models.py), rendered over this module's
// geom/selector/stats/version/store packages and its H3 ground substrate.
package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/coreerr"
	"github.com/politic-in/districting-core/freeze"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
	"github.com/politic-in/districting-core/version"
)

// UnassignedDistrictID is the reserved district_id for unassigned base
// units (spec §3 data model: "0 is reserved for Unassigned").
const UnassignedDistrictID = 0

// Engine wires the Mutation Engine to its collaborators. Every mutation
// entry point takes a context, since store round-trips and geometry-kernel
// calls are both treated as blocking per spec §5.
type Engine struct {
	Store   store.Store
	Catalog *catalog.Store
	Freeze  *freeze.Checker // nil disables the freeze guard

	// MaxUndosDuringEdit bounds the retained history depth after every
	// mutation (spec §6 MAX_UNDOS_DURING_EDIT); 0 disables purging.
	MaxUndosDuringEdit int
	// FixUnassignedMinPercent is the assigned-fraction threshold (0-100)
	// past which fix_unassigned's adjacency heuristic activates.
	FixUnassignedMinPercent float64
	// FixUnassignedComparatorSubject names the subject used to choose among
	// adjacent unlocked candidate districts: the smallest value wins, and
	// equal values go to the lower district_id.
	FixUnassignedComparatorSubject string
	// ContiguityOverrides augments H3 grid adjacency for fix_unassigned.
	ContiguityOverrides []geom.ContiguityOverride
}

func (e *Engine) checkFreeze(body *catalog.LegislativeBody, at time.Time) error {
	if e.Freeze == nil {
		return nil
	}
	if err := e.Freeze.Check(body.Name, at); err != nil {
		return coreerr.Wrap(coreerr.KindInvariantViolation, err, "plan mutation blocked for body %s", body.Name)
	}
	return nil
}

// cloneComputed copies every subject's ComputedCharacteristic from one row
// id to another, the bookkeeping counterpart of the original's
// `clone_relations_from` for the statistics (Comment/Tag have no
// counterpart in this engine's scope).
func cloneComputed(s stats.Store, fromRowID, toRowID string, subjects []catalog.Subject) {
	for _, subject := range subjects {
		cc, ok := s.GetComputed(fromRowID, subject.Name)
		if !ok {
			continue
		}
		cc.DistrictRowID = toRowID
		s.SetComputed(cc)
	}
}

// latestByDistrict indexes a DistrictsAtVersion result by district_id.
func latestByDistrict(rows []store.DistrictRow) map[int]store.DistrictRow {
	out := make(map[int]store.DistrictRow, len(rows))
	for _, r := range rows {
		out[r.DistrictID] = r
	}
	return out
}

func unionLocked(rows []store.DistrictRow) geom.Region {
	locked := geom.Empty()
	for _, r := range rows {
		if r.IsLocked {
			locked = geom.Union(locked, r.Geom)
		}
	}
	return geom.EnforceMulti(locked)
}

// simplifyFor builds the `simple` collection for a district row: one
// compacted copy of geom keyed by every geolevel name in the body's ladder.
// H3's CompactCells is tolerance-free, so (unlike a true geometry kernel's
// simplify(tolerance)) a single compaction pass serves every geolevel; this
// is recorded as a deliberate simplification in DESIGN.md.
func simplifyFor(body *catalog.LegislativeBody, g geom.Region) (map[string]geom.Region, error) {
	compacted, err := geom.Simplify(g)
	if err != nil {
		return nil, coreerr.Wrap(coreerr.KindGeometryError, err, "simplify")
	}
	out := make(map[string]geom.Region, len(body.Geolevels()))
	for _, lvl := range body.Geolevels() {
		out[lvl.Name] = compacted
	}
	return out, nil
}

func purgeAfter(ctx context.Context, s store.Store, planID string, v int) error {
	rows, err := s.AllRows(ctx, planID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "load plan history")
	}
	toDelete := version.RowsToDeleteAfter(store.AsVersionRows(rows), v)
	if len(toDelete) == 0 {
		return nil
	}
	if err := s.DeleteDistrictRows(ctx, toDelete); err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "purge after %d", v)
	}
	return nil
}

// purgeBoundedUndo applies the MAX_UNDOS_DURING_EDIT bound after a
// successful mutation (spec §4.F.1 step 11, §4.G purge_beyond).
func (e *Engine) purgeBoundedUndo(ctx context.Context, plan *store.Plan) error {
	if e.MaxUndosDuringEdit <= 0 {
		return nil
	}
	rows, err := e.Store.AllRows(ctx, plan.ID)
	if err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "load plan history")
	}
	newMin, toDelete := version.PurgeBeyondSteps(store.AsVersionRows(rows), e.MaxUndosDuringEdit, plan.MinVersion)
	if len(toDelete) == 0 {
		return nil
	}
	if err := e.Store.DeleteDistrictRows(ctx, toDelete); err != nil {
		return coreerr.Wrap(coreerr.KindStoreError, err, "purge beyond %d steps", e.MaxUndosDuringEdit)
	}
	plan.MinVersion = newMin
	return nil
}

func districtName(body *catalog.LegislativeBody, districtID, numMembers int) string {
	return catalog.RenderLabel(body.LabelTemplate, fmt.Sprintf("District %d", districtID), numMembers)
}

// normalizeBase expands a region to the legislative body's base resolution.
// geom.Region cells can sit at whatever geolevel resolution a prior
// mutation left them at (geom/region.go's "possibly mixed resolutions"
// doc), so any cross-geometry comparison or subtraction — Intersects,
// Intersection, Difference — must expand both sides to a common resolution
// first, or a coarse stored cell can silently fail to match a finer
// incoming unit that is actually its geographic child. package selector
// applies the same normalization internally (normalizeToBase) before its
// own set comparisons.
func normalizeBase(r geom.Region, baseRes int) (geom.Region, error) {
	out, err := geom.Uncompact(r, baseRes)
	if err != nil {
		return geom.Region{}, coreerr.Wrap(coreerr.KindGeometryError, err, "normalize region to base resolution")
	}
	return out, nil
}

// overlapBaseUnits derives the base-resolution unit ids covered by an
// arbitrary region, expanding any coarser cells down to the base
// resolution — unit ids are H3 cell id strings throughout this engine (the
// same convention package selector relies on).
func overlapBaseUnits(r geom.Region, baseRes int) ([]string, error) {
	expanded, err := geom.Uncompact(r, baseRes)
	if err != nil {
		return nil, err
	}
	return expanded.IDs(), nil
}

// baseUnitIDs expands a set of (possibly mixed-resolution) unit ids to
// their base-resolution descendants. Every stats.Delta call must be given
// base-level unit ids: catalog.Store.CharacteristicsSum looks up
// characteristics by exact unit id with no descent to base children, and
// per the spec glossary characteristics are only authoritative at the base
// level, so a coarse id the Mixed-Selector returns (spec §8 scenario 3)
// would otherwise silently contribute zero to the delta.
func baseUnitIDs(ids []string, baseRes int) ([]string, error) {
	r, err := geom.FromIDs(ids...)
	if err != nil {
		return nil, err
	}
	return overlapBaseUnits(r, baseRes)
}
