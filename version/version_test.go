package version

import (
	"reflect"
	"sort"
	"testing"
)

type row struct {
	key        string
	districtID int
	version    int
}

func (r row) Key() string     { return r.key }
func (r row) DistrictID() int { return r.districtID }
func (r row) Version() int    { return r.version }

func districtOneRows() []Row {
	return []Row{
		row{key: "r1", districtID: 1, version: 1},
		row{key: "r2", districtID: 1, version: 2},
		row{key: "r4", districtID: 1, version: 4},
		row{key: "r5", districtID: 1, version: 5},
	}
}

// TestPurgeCollapsesHistory exercises spec §8 scenario 4.
func TestPurgeCollapsesHistory(t *testing.T) {
	rows := districtOneRows()

	if got := NthPrevious(rows, 1); got != 4 {
		t.Fatalf("NthPrevious(1) = %d, want 4", got)
	}
	if got := NthPrevious(rows, 2); got != 2 {
		t.Fatalf("NthPrevious(2) = %d, want 2", got)
	}

	deleted := RowsToDeleteBefore(rows, 1, 4)
	sort.Strings(deleted)
	want := []string{"r1", "r2"}
	if !reflect.DeepEqual(deleted, want) {
		t.Fatalf("RowsToDeleteBefore = %v, want %v", deleted, want)
	}

	// After the purge, only versions {4,5} remain for district 1; the
	// scenario's post-purge expectation is nth_previous(2) == 0.
	postPurge := []Row{
		row{key: "r4", districtID: 1, version: 4},
		row{key: "r5", districtID: 1, version: 5},
	}
	if got := NthPrevious(postPurge, 2); got != 0 {
		t.Fatalf("post-purge NthPrevious(2) = %d, want 0", got)
	}
	if got := NthPrevious(postPurge, 1); got != 4 {
		t.Fatalf("post-purge NthPrevious(1) = %d, want 4", got)
	}
}

func TestRowsToDeleteAfter(t *testing.T) {
	rows := districtOneRows()
	deleted := RowsToDeleteAfter(rows, 2)
	sort.Strings(deleted)
	want := []string{"r4", "r5"}
	if !reflect.DeepEqual(deleted, want) {
		t.Fatalf("RowsToDeleteAfter = %v, want %v", deleted, want)
	}
}

func TestAllocate(t *testing.T) {
	if Allocate(5) != 6 {
		t.Fatal("expected Allocate(5) == 6")
	}
}

func TestPurgeBeyondStepsNoopWhenWithinBudget(t *testing.T) {
	rows := districtOneRows()
	newMin, deleted := PurgeBeyondSteps(rows, 10, 1)
	if newMin != 1 || deleted != nil {
		t.Fatalf("expected no-op purge, got newMin=%d deleted=%v", newMin, deleted)
	}
}

func TestPurgeBeyondStepsAdvancesMinVersion(t *testing.T) {
	rows := districtOneRows()
	newMin, deleted := PurgeBeyondSteps(rows, 2, 1)
	if newMin != 2 {
		t.Fatalf("expected newMin=2, got %d", newMin)
	}
	want := []string{"r1"}
	if !reflect.DeepEqual(deleted, want) {
		t.Fatalf("expected to delete %v, got %v", want, deleted)
	}
}

// TestRowsToDeleteBeforeRetainsSnapshotAcrossVersionHole exercises the
// literal purge(before=V) contract (spec §8 scenario 4) directly, for a
// district with no row exactly at V — unlike districtOneRows (which has a
// row exactly at version 4), here V falls in a hole, so the greatest
// version strictly below V must survive as the as-of-V snapshot.
func TestRowsToDeleteBeforeRetainsSnapshotAcrossVersionHole(t *testing.T) {
	rows := []Row{
		row{key: "r1", districtID: 1, version: 1},
		row{key: "r2", districtID: 1, version: 2},
		row{key: "r6", districtID: 1, version: 6},
	}
	deleted := RowsToDeleteBefore(rows, 1, 4)
	want := []string{"r1"}
	if !reflect.DeepEqual(deleted, want) {
		t.Fatalf("RowsToDeleteBefore = %v, want %v (r2 must survive as the as-of-4 snapshot)", deleted, want)
	}
}
