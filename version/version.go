// Package version is the Version Manager: version allocation, bounded undo
// windows, and purge-before/after semantics over the district row history.
// Grounded on Plan.get_nth_previous_version and Plan.purge
// (original_source/.../models.py:676-758). Pure bookkeeping over row
// metadata the caller supplies — no store or geometry dependency, since no
// library in the example corpus addresses this kind of history-compaction
// algorithm directly (see DESIGN.md).
package version

import "sort"

// Row is the minimal view the Version Manager needs of a district row: its
// storage key (for deletion), the logical district it belongs to, and its
// version stamp. The plan/store District row type satisfies this directly.
type Row interface {
	Key() string
	DistrictID() int
	Version() int
}

// Allocate returns the next version number for a plan currently at
// currentVersion.
func Allocate(currentVersion int) int {
	return currentVersion + 1
}

// DistinctVersionsDesc returns the distinct version numbers present among
// rows, sorted descending.
func DistinctVersionsDesc(rows []Row) []int {
	seen := make(map[int]struct{})
	for _, r := range rows {
		seen[r.Version()] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out
}

// NthPrevious returns the n-th distinct stored version strictly before the
// newest one, descending, or 0 if there are fewer than n such versions.
// n=1 means "one step back from the newest stored version" (the newest
// version itself is not counted as a previous version). Always valid: 0 is
// a legitimate "nothing to undo to" sentinel, never an error.
func NthPrevious(rows []Row, n int) int {
	if n <= 0 {
		return 0
	}
	versions := DistinctVersionsDesc(rows)
	if len(versions) == 0 || n >= len(versions) {
		return 0
	}
	return versions[n]
}

// RowsToDeleteAfter returns the keys of every row with version > v — the
// `purge(after=V)` branch: delete all district rows with version > V so a
// new mutation can branch off V cleanly.
func RowsToDeleteAfter(rows []Row, v int) []string {
	var out []string
	for _, r := range rows {
		if r.Version() > v {
			out = append(out, r.Key())
		}
	}
	return out
}

// RowsToDeleteBefore implements the `purge(before=V)` branch (spec §8
// scenario 4): for each logical district_id, collapse every row with
// version < V down to a single "as-of V" snapshot, deleting everything
// older. If a district already has a row at exactly version V, that row IS
// the as-of-V snapshot and every older row for it is deleted outright. If
// it doesn't (V falls in one of that district's version holes), the
// greatest version strictly below V is retained instead, so a read at any
// version in [minVersion, V) still finds a row. Rows at version >= V are
// always untouched.
func RowsToDeleteBefore(rows []Row, minVersion, v int) []string {
	existsAtV := make(map[int]bool)
	latestBelowV := make(map[int]int)
	for _, r := range rows {
		ver := r.Version()
		if ver == v {
			existsAtV[r.DistrictID()] = true
			continue
		}
		if ver < minVersion || ver >= v {
			continue
		}
		if cur, ok := latestBelowV[r.DistrictID()]; !ok || ver > cur {
			latestBelowV[r.DistrictID()] = ver
		}
	}

	var out []string
	for _, r := range rows {
		ver := r.Version()
		if ver < minVersion || ver >= v {
			continue
		}
		if existsAtV[r.DistrictID()] {
			out = append(out, r.Key())
			continue
		}
		if ver < latestBelowV[r.DistrictID()] {
			out = append(out, r.Key())
		}
	}
	return out
}

// PurgeBeyondSteps computes the version `steps` undo-steps back from the
// newest stored version; if that version is more recent than minVersion it
// becomes the new min_version and every row strictly before it (but at or
// after the old minVersion) is purged, except that a district with no row
// exactly at the cutoff keeps its greatest earlier row as its as-of-cutoff
// snapshot (RowsToDeleteBefore). Returns the keys to delete and the plan's
// new min_version (unchanged if no purge was warranted).
func PurgeBeyondSteps(rows []Row, steps, minVersion int) (newMinVersion int, toDelete []string) {
	cutoff := NthPrevious(rows, steps)
	if cutoff <= minVersion {
		return minVersion, nil
	}
	return cutoff, RowsToDeleteBefore(rows, minVersion, cutoff)
}
