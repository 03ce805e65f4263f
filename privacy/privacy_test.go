package privacy

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/politic-in/districting-core/stats"
)

func TestReleasePassesNonSensitiveSubjectsThrough(t *testing.T) {
	g := NewGuard(10, []string{"MinoritySubgroupPopulation"})
	cc := stats.ComputedCharacteristic{Subject: "TotalPopulation", Number: decimal.NewFromInt(3)}

	released, err := g.Release(cc)
	if err != nil {
		t.Fatalf("expected no error for non-sensitive subject, got %v", err)
	}
	if !released.Number.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected value unchanged, got %s", released.Number)
	}
}

func TestReleaseSuppressesBelowThreshold(t *testing.T) {
	g := NewGuard(10, []string{"MinoritySubgroupPopulation"})
	cc := stats.ComputedCharacteristic{Subject: "MinoritySubgroupPopulation", Number: decimal.NewFromInt(4)}

	_, err := g.Release(cc)
	if !errors.Is(err, ErrSuppressed) {
		t.Fatalf("expected ErrSuppressed, got %v", err)
	}
}

func TestReleaseAllowsAtThreshold(t *testing.T) {
	g := NewGuard(10, []string{"MinoritySubgroupPopulation"})
	cc := stats.ComputedCharacteristic{Subject: "MinoritySubgroupPopulation", Number: decimal.NewFromInt(10)}

	if _, err := g.Release(cc); err != nil {
		t.Fatalf("expected value exactly at threshold to pass, got %v", err)
	}
}

func TestReleaseAllDropsSuppressedEntries(t *testing.T) {
	g := NewGuard(10, []string{"MinoritySubgroupPopulation"})
	ccs := []stats.ComputedCharacteristic{
		{Subject: "MinoritySubgroupPopulation", Number: decimal.NewFromInt(4)},
		{Subject: "MinoritySubgroupPopulation", Number: decimal.NewFromInt(12)},
		{Subject: "TotalPopulation", Number: decimal.NewFromInt(1)},
	}

	released := g.ReleaseAll(ccs)
	if len(released) != 2 {
		t.Fatalf("expected 2 surviving entries, got %d", len(released))
	}
}
