package scorefunc

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/store"
)

func regionOf(t *testing.T, ids ...string) geom.Region {
	t.Helper()
	r, err := geom.FromIDs(ids...)
	if err != nil {
		t.Fatalf("FromIDs: %v", err)
	}
	return r
}

func TestPopulationDeviationScoresAgainstIdeal(t *testing.T) {
	reg := NewRegistry()
	f, err := reg.New("population_deviation", Args{"subject": "TotalPopulation", "ideal": "100"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	mem := store.NewMemStore()
	mem.SetComputed(stats.ComputedCharacteristic{DistrictRowID: "row-1", Subject: "TotalPopulation", Number: decimal.NewFromInt(110)})

	value, err := f(Input{Row: store.DistrictRow{RowID: "row-1"}, Computed: mem})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !value.Equal(decimal.NewFromFloat(0.1)) {
		t.Fatalf("expected 0.1 deviation, got %s", value)
	}
}

func TestPopulationDeviationRequiresArgs(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.New("population_deviation", Args{"subject": "TotalPopulation"}); err == nil {
		t.Fatal("expected error for missing ideal arg")
	}
}

func TestCompactnessScoresPerfectDiskAsOne(t *testing.T) {
	reg := NewRegistry()
	f, err := reg.New("compactness", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	row := store.DistrictRow{RowID: "row-1", Geom: regionOf(t, "8928308280fffff")}
	value, err := f(Input{Row: row})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !value.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected single-cell district to score 1, got %s", value)
	}
}

func TestContiguityScoresSingleComponentAsOne(t *testing.T) {
	reg := NewRegistry()
	f, err := reg.New("contiguity", nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	row := store.DistrictRow{RowID: "row-1", Geom: regionOf(t, "8928308280fffff")}
	value, err := f(Input{Row: row})
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if !value.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("expected single-cell district to score 1, got %s", value)
	}
}

func TestUnknownFunctionErrors(t *testing.T) {
	reg := NewRegistry()
	if _, err := reg.New("not_a_real_score", nil); err == nil {
		t.Fatal("expected ErrUnknownFunction")
	}
}
