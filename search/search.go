// Package search implements fuzzy lookup of districts and units by name,
// supplemented from original_source/'s district-search UI support (see
// SPEC_FULL.md §4). Grounded on the teacher's booth-matching package: the
// same normalize/index/levenshtein-score shape, repointed from matching a
// spoken polling-booth name against a fixed list to matching a typed
// district or unit name against a plan's current districts.
package search

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// Errors returned by Index lookups.
var (
	ErrNoEntriesLoaded = errors.New("search: no entries loaded")
	ErrInvalidInput    = errors.New("search: empty input")
	ErrNoMatchFound    = errors.New("search: no matching entry found")
	ErrBelowConfidence = errors.New("search: match confidence below threshold")
)

// Constants mirroring the teacher's confidence bands, renamed for this
// domain's searchable entries (districts and catalog units) rather than
// polling booths.
const (
	MinConfidence = 0.7
	HighConfidence = 0.9

	// DefaultCandidateLimit bounds how many candidates MatchWithCandidates
	// returns when the caller doesn't specify a limit.
	DefaultCandidateLimit = 5

	// MaxInputLength caps the query length accepted for matching.
	MaxInputLength = 500
)

// Entry is a single searchable name — a district's display name, or a
// catalog unit's portable id/label.
type Entry struct {
	ID         string
	Name       string
	normalized string
}

// Result is one scored match.
type Result struct {
	ID         string
	Name       string
	Confidence float64 // 0.0 to 1.0
	Distance   int     // Levenshtein distance
}

// Index is a fuzzy name index over a fixed set of entries, safe for
// concurrent lookups after construction.
type Index struct {
	mu          sync.RWMutex
	entries     []Entry
	exactIndex  map[string][]int
	minConf     float64
	maxCandidates int
}

// NewIndex builds an Index over entries with the default confidence and
// candidate-limit configuration.
func NewIndex(entries []Entry) *Index {
	return NewIndexWithConfig(entries, MinConfidence, DefaultCandidateLimit)
}

// NewIndexWithConfig builds an Index with explicit thresholds.
func NewIndexWithConfig(entries []Entry, minConfidence float64, maxCandidates int) *Index {
	idx := &Index{
		exactIndex:    make(map[string][]int),
		minConf:       minConfidence,
		maxCandidates: maxCandidates,
	}
	idx.entries = make([]Entry, len(entries))
	for i, e := range entries {
		e.normalized = Normalize(e.Name)
		idx.entries[i] = e
		idx.exactIndex[e.normalized] = append(idx.exactIndex[e.normalized], i)
	}
	return idx
}

// Add appends a new entry to the index. It takes the index's write lock, so
// it is safe to call concurrently with lookups.
func (idx *Index) Add(e Entry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e.normalized = Normalize(e.Name)
	i := len(idx.entries)
	idx.entries = append(idx.entries, e)
	idx.exactIndex[e.normalized] = append(idx.exactIndex[e.normalized], i)
}

// Match returns the single best match for input, or ErrBelowConfidence if
// the best candidate doesn't clear the index's minimum confidence.
func (idx *Index) Match(input string) (*Result, error) {
	candidates, err := idx.MatchWithCandidates(input, 1)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, ErrNoMatchFound
	}
	best := candidates[0]
	if best.Confidence < idx.minConf {
		return nil, ErrBelowConfidence
	}
	return &best, nil
}

// MatchWithCandidates returns up to limit scored matches for input, best
// first. limit <= 0 uses the index's configured default.
func (idx *Index) MatchWithCandidates(input string, limit int) ([]Result, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return nil, ErrNoEntriesLoaded
	}
	if input == "" {
		return nil, ErrInvalidInput
	}
	if len(input) > MaxInputLength {
		input = input[:MaxInputLength]
	}
	if limit <= 0 {
		limit = idx.maxCandidates
	}

	normalized := Normalize(input)

	if indices, ok := idx.exactIndex[normalized]; ok {
		results := make([]Result, 0, len(indices))
		for _, i := range indices {
			e := idx.entries[i]
			results = append(results, Result{ID: e.ID, Name: e.Name, Confidence: 1.0, Distance: 0})
		}
		if len(results) > limit {
			results = results[:limit]
		}
		return results, nil
	}

	var results []Result
	for _, e := range idx.entries {
		distance := fuzzy.LevenshteinDistance(normalized, e.normalized)
		maxLen := max(len(normalized), len(e.normalized))
		if maxLen == 0 {
			continue
		}
		confidence := 1.0 - (float64(distance) / float64(maxLen))
		if confidence <= 0 {
			continue
		}
		results = append(results, Result{ID: e.ID, Name: e.Name, Confidence: confidence, Distance: distance})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Normalize lowercases, strips punctuation, and collapses whitespace — the
// same preparation the teacher's booth matcher applies before comparison.
func Normalize(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasSpace = false
		} else if unicode.IsSpace(r) && !lastWasSpace {
			b.WriteRune(' ')
			lastWasSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
