package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
)

func levels() []Geolevel {
	return []Geolevel{
		{Name: "county", H3Resolution: 6},
		{Name: "tract", H3Resolution: 8, ParentGeolevel: "county"},
		{Name: "block", H3Resolution: 9, ParentGeolevel: "tract"},
	}
}

func TestNewLegislativeBodyOrdersCoarsestToFinest(t *testing.T) {
	b, err := NewLegislativeBody("Assembly", 10, "{name}", "TotalPopulation", levels())
	if err != nil {
		t.Fatalf("NewLegislativeBody: %v", err)
	}
	got := b.Geolevels()
	want := []string{"county", "tract", "block"}
	for i, w := range want {
		if got[i].Name != w {
			t.Fatalf("geolevel[%d] = %s, want %s", i, got[i].Name, w)
		}
	}
	if !b.IsBaseGeolevel("block") {
		t.Error("expected block to be the base geolevel")
	}
	if b.IsBaseGeolevel("county") {
		t.Error("county should not be the base geolevel")
	}
}

func TestNewLegislativeBodyRejectsMultipleRoots(t *testing.T) {
	bad := []Geolevel{
		{Name: "a"},
		{Name: "b"},
	}
	if _, err := NewLegislativeBody("Bad", 1, "", "", bad); err == nil {
		t.Fatal("expected error for two root geolevels")
	}
}

func TestNewLegislativeBodyRejectsCycle(t *testing.T) {
	cyclic := []Geolevel{
		{Name: "a", ParentGeolevel: "b"},
		{Name: "b", ParentGeolevel: "a"},
	}
	if _, err := NewLegislativeBody("Bad", 1, "", "", cyclic); err == nil {
		t.Fatal("expected error for cyclic geolevel graph")
	}
}

func TestRenderLabel(t *testing.T) {
	got := RenderLabel("District {name} ({num_members} seats)", "12", 3)
	want := "District 12 (3 seats)"
	if got != want {
		t.Fatalf("RenderLabel = %q, want %q", got, want)
	}
}

func TestStoreUnitsAndCharacteristics(t *testing.T) {
	s := NewStore()
	s.AddUnit(Unit{ID: "u1", Geolevel: "block"})
	s.AddUnit(Unit{ID: "u2", Geolevel: "block", ParentUnitID: "p1"})
	s.SetCharacteristic("u1", "TotalPopulation", decimal.NewFromInt(100))
	s.SetCharacteristic("u2", "TotalPopulation", decimal.NewFromInt(50))

	sum := s.CharacteristicsSum([]string{"u1", "u2"}, "TotalPopulation")
	if sum.String() != "150" {
		t.Fatalf("sum = %s, want 150", sum.String())
	}

	if _, err := s.Unit("missing"); err == nil {
		t.Fatal("expected ErrUnitNotFound")
	}

	units := s.UnitsAtLevel("block")
	if len(units) != 2 {
		t.Fatalf("expected 2 units at block level, got %d", len(units))
	}
}
