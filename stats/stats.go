// Package stats is the Statistics Engine: incremental delta add/subtract
// over per-district subject aggregates, with percentage derivation against
// denominator subjects. Grounded on spec §4.E and the original's
// Plan.combine_districts characteristic-summation loop
// (original_source/.../models.py:1668-1681).
package stats

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/politic-in/districting-core/catalog"
	"github.com/politic-in/districting-core/decimalx"
)

// ComputedCharacteristic is the per-district-row aggregate of a subject.
type ComputedCharacteristic struct {
	DistrictRowID string
	Subject       string
	Number        decimal.Decimal
	Percentage    decimal.Decimal
}

// Store is the minimal persistence contract the Statistics Engine needs
// from the Plan Store: read/write one ComputedCharacteristic at a time,
// keyed by (district row, subject).
type Store interface {
	GetComputed(districtRowID, subject string) (ComputedCharacteristic, bool)
	SetComputed(cc ComputedCharacteristic)
}

// OrderedSubjects returns subjects sorted so that any subject serving as a
// percentage denominator for another is processed before its dependents —
// a proper topological sort on the denominator graph, not the source's
// single-level `order_by('-percentage_denominator')` heuristic (see
// DESIGN.md Open Question 2). The denominator graph is required to be
// acyclic; a cyclic input is returned in an arbitrary but deterministic
// order rather than erroring, since detecting and surfacing that is a
// catalog-load concern, not a per-mutation one.
func OrderedSubjects(subjects []catalog.Subject) []catalog.Subject {
	byName := make(map[string]catalog.Subject, len(subjects))
	for _, s := range subjects {
		byName[s.Name] = s
	}

	visited := make(map[string]bool, len(subjects))
	inProgress := make(map[string]bool, len(subjects))
	var ordered []catalog.Subject

	var visit func(name string)
	visit = func(name string) {
		if visited[name] || inProgress[name] {
			return
		}
		s, ok := byName[name]
		if !ok {
			return
		}
		inProgress[name] = true
		if s.PercentageDenominator != "" {
			visit(s.PercentageDenominator)
		}
		inProgress[name] = false
		visited[name] = true
		ordered = append(ordered, s)
	}

	names := make([]string, 0, len(subjects))
	for _, s := range subjects {
		names = append(names, s.Name)
	}
	sort.Strings(names) // deterministic traversal order
	for _, n := range names {
		visit(n)
	}
	return ordered
}

// Delta updates district row's ComputedCharacteristic for every subject,
// adding (combine=true) or subtracting (combine=false) the sum of
// Characteristic values over units. Processes subjects in denominator-first
// order per spec §4.E.
func Delta(store Store, cat *catalog.Store, districtRowID string, units []string, subjects []catalog.Subject, combine bool) error {
	ordered := OrderedSubjects(subjects)
	for _, subject := range ordered {
		d := decimalx.New(cat.CharacteristicsSum(units, subject.Name))

		existing, _ := store.GetComputed(districtRowID, subject.Name)
		existing.DistrictRowID = districtRowID
		existing.Subject = subject.Name

		if combine {
			existing.Number = decimalx.New(existing.Number.Add(d))
		} else {
			existing.Number = decimalx.New(existing.Number.Sub(d))
		}

		if subject.PercentageDenominator != "" {
			denom, _ := store.GetComputed(districtRowID, subject.PercentageDenominator)
			existing.Percentage = decimalx.Percentage(existing.Number, denom.Number)
		}

		store.SetComputed(existing)
	}
	return nil
}

// Reset zeroes every subject's ComputedCharacteristic for a district row,
// the counterpart of the original's `reset`.
func Reset(store Store, districtRowID string, subjects []catalog.Subject) {
	for _, subject := range subjects {
		store.SetComputed(ComputedCharacteristic{
			DistrictRowID: districtRowID,
			Subject:       subject.Name,
			Number:        decimalx.Zero,
			Percentage:    decimalx.Zero,
		})
	}
}

// Recompute performs a full, from-scratch recomputation of a district
// row's aggregates over its base-level descendant units — the reference
// computation the incremental Delta invariant must always agree with
// (spec §8 universal invariant).
func Recompute(store Store, cat *catalog.Store, districtRowID string, baseUnits []string, subjects []catalog.Subject) {
	Reset(store, districtRowID, subjects)
	_ = Delta(store, cat, districtRowID, baseUnits, subjects, true)
}
