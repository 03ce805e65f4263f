// Package privacy is the small-area / small-count suppression guard
// supplemented from original_source/ (see SPEC_FULL.md §4): before a
// computed characteristic for a sensitive subject is released through a
// read API, it is checked against a minimum-count threshold and redacted if
// the underlying district falls below it. Grounded on the teacher's
// anonymization package, which encoded exactly this kind of count-based
// release guard (KAnonymityThreshold, MinAggregationSize) for a different
// kind of sensitive aggregate — survey responses rather than district
// population counts.
package privacy

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/politic-in/districting-core/stats"
)

// ErrSuppressed is returned by Guard.Release when a value fails the
// configured threshold and must not be surfaced to the caller.
var ErrSuppressed = errors.New("privacy: value suppressed below minimum count")

// DefaultMinimumCount mirrors the teacher's KAnonymityThreshold: the
// smallest population a released count may represent.
const DefaultMinimumCount = 10

// Guard enforces a minimum-count suppression rule over a set of subjects
// flagged as sensitive (e.g. a subject tracking a protected demographic
// characteristic where releasing an exact small count could re-identify
// individuals).
type Guard struct {
	minimumCount      decimal.Decimal
	sensitiveSubjects map[string]bool
}

// NewGuard builds a Guard with the given minimum count and set of subject
// names considered sensitive. An empty sensitiveSubjects set means no
// subject is suppressed — Guard becomes a no-op pass-through.
func NewGuard(minimumCount int, sensitiveSubjects []string) *Guard {
	set := make(map[string]bool, len(sensitiveSubjects))
	for _, s := range sensitiveSubjects {
		set[s] = true
	}
	return &Guard{
		minimumCount:      decimal.NewFromInt(int64(minimumCount)),
		sensitiveSubjects: set,
	}
}

// IsSensitive reports whether subject is subject to suppression.
func (g *Guard) IsSensitive(subject string) bool {
	return g.sensitiveSubjects[subject]
}

// Release returns cc unchanged if its subject is not sensitive, or if its
// Number meets the minimum count. Otherwise it returns ErrSuppressed — the
// caller must not surface cc.Number or cc.Percentage to an external reader.
func (g *Guard) Release(cc stats.ComputedCharacteristic) (stats.ComputedCharacteristic, error) {
	if !g.IsSensitive(cc.Subject) {
		return cc, nil
	}
	if cc.Number.GreaterThanOrEqual(g.minimumCount) {
		return cc, nil
	}
	return stats.ComputedCharacteristic{}, ErrSuppressed
}

// ReleaseAll applies Release to every characteristic, dropping any that are
// suppressed (rather than erroring the whole batch) — matching the
// teacher's Aggregator.AggregateResponses behavior of redacting individual
// results rather than failing the entire aggregation.
func (g *Guard) ReleaseAll(ccs []stats.ComputedCharacteristic) []stats.ComputedCharacteristic {
	out := make([]stats.ComputedCharacteristic, 0, len(ccs))
	for _, cc := range ccs {
		released, err := g.Release(cc)
		if err == nil {
			out = append(out, released)
		}
	}
	return out
}
