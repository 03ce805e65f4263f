// Package catalog is the read-only Unit Catalog: legislative bodies, their
// geolevel ladders, subjects, units and per-unit characteristic values.
// Grounded on the teacher's data package (State/District/AC/Booth index and
// loaders), generalized from India-specific administrative levels to a
// body-configurable geolevel hierarchy, with H3 resolutions standing in for
// the source's polygon geometry.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Errors returned by catalog lookups and loaders.
var (
	ErrBodyNotFound      = errors.New("catalog: legislative body not found")
	ErrSubjectNotFound   = errors.New("catalog: subject not found")
	ErrUnitNotFound      = errors.New("catalog: unit not found")
	ErrGeolevelNotFound  = errors.New("catalog: geolevel not found")
	ErrCyclicGeolevels   = errors.New("catalog: geolevel hierarchy contains a cycle")
	ErrDuplicateGeolevel = errors.New("catalog: duplicate geolevel in body")
)

// Subject is a named measurable attribute of a unit, e.g. "TotalPopulation".
// PercentageDenominator, when set, names another subject whose aggregate is
// the divisor when this subject is presented as a ratio.
type Subject struct {
	Name                  string
	ShortName             string
	PercentageDenominator string // empty when this subject has no denominator
	IsDisplayed           bool
	SortKey               int
}

// Geolevel is one resolution tier of a legislative body, mapped onto an H3
// resolution. Levels are totally ordered within a body, coarsest first.
type Geolevel struct {
	Name                string
	H3Resolution        int
	SimplifyTolerance   float64 // in the projection's linear units, spec §6 SIMPLIFY_THRESHOLD_DEFAULT
	MinDisplayZoom      int
	ParentGeolevel      string // empty for the coarsest ("root") level
}

// Unit is an atomic areal feature at some geolevel.
type Unit struct {
	ID           string // stable id; for this catalog, the H3 cell id
	PortableID   string // external string key
	ParentUnitID string // empty at the coarsest level
	Geolevel     string
}

// Characteristic is the read-only per-unit value of a subject.
type Characteristic struct {
	UnitID  string
	Subject string
	Number  decimal.Decimal
}

// LegislativeBody defines the districting rules for one plan family: a
// maximum district count, multi-member district rules, and an ordered
// geolevel hierarchy from coarsest to finest (the finest is the base
// level).
type LegislativeBody struct {
	Name             string
	MaxDistricts     int
	MultiMemberMin   int // 0 disables multi-member districts
	MultiMemberMax   int
	PlanMemberMin    int
	PlanMemberMax    int
	LabelTemplate    string // substitutes {name} and {num_members}, spec §6
	DefaultSubjectName string

	geolevels []Geolevel // ordered coarsest -> finest, validated at Build time
}

// NewLegislativeBody validates and linearizes a body's geolevel hierarchy.
// The source links each level to a parent level; this rejects cycles and
// orders levels from the single root (coarsest) to leaves (finest), per
// the Design Notes' "adjacency list with a single root" instruction.
func NewLegislativeBody(name string, maxDistricts int, labelTemplate, defaultSubject string, levels []Geolevel) (*LegislativeBody, error) {
	ordered, err := linearizeGeolevels(levels)
	if err != nil {
		return nil, err
	}
	return &LegislativeBody{
		Name:               name,
		MaxDistricts:       maxDistricts,
		LabelTemplate:      labelTemplate,
		DefaultSubjectName: defaultSubject,
		geolevels:          ordered,
	}, nil
}

func linearizeGeolevels(levels []Geolevel) ([]Geolevel, error) {
	byName := make(map[string]Geolevel, len(levels))
	children := make(map[string][]string)
	var root string
	rootCount := 0
	for _, lvl := range levels {
		if _, dup := byName[lvl.Name]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateGeolevel, lvl.Name)
		}
		byName[lvl.Name] = lvl
		if lvl.ParentGeolevel == "" {
			root = lvl.Name
			rootCount++
		} else {
			children[lvl.ParentGeolevel] = append(children[lvl.ParentGeolevel], lvl.Name)
		}
	}
	if rootCount != 1 {
		return nil, fmt.Errorf("%w: expected exactly one root level, found %d", ErrCyclicGeolevels, rootCount)
	}

	ordered := make([]Geolevel, 0, len(levels))
	visited := make(map[string]bool, len(levels))
	var walk func(name string) error
	walk = func(name string) error {
		if visited[name] {
			return fmt.Errorf("%w: revisited %s", ErrCyclicGeolevels, name)
		}
		visited[name] = true
		ordered = append(ordered, byName[name])
		for _, c := range children[name] {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	if len(ordered) != len(levels) {
		return nil, fmt.Errorf("%w: hierarchy is disconnected", ErrCyclicGeolevels)
	}
	return ordered, nil
}

// Geolevels returns the body's geolevels ordered coarsest to finest.
func (b *LegislativeBody) Geolevels() []Geolevel {
	return b.geolevels
}

// BaseGeolevel returns the finest geolevel, the level at which
// Characteristics are authoritative.
func (b *LegislativeBody) BaseGeolevel() Geolevel {
	return b.geolevels[len(b.geolevels)-1]
}

// GeolevelIndex returns the position of a named geolevel in the coarsest-
// to-finest ordering, or -1 if not found.
func (b *LegislativeBody) GeolevelIndex(name string) int {
	for i, l := range b.geolevels {
		if l.Name == name {
			return i
		}
	}
	return -1
}

// IsBaseGeolevel reports whether name is the body's finest geolevel.
func (b *LegislativeBody) IsBaseGeolevel(name string) bool {
	return len(b.geolevels) > 0 && b.geolevels[len(b.geolevels)-1].Name == name
}

// RenderLabel substitutes {name} and {num_members} into the body's
// configured multi-member label template (spec §6 "Labels").
func RenderLabel(template, name string, numMembers int) string {
	s := strings.ReplaceAll(template, "{name}", name)
	s = strings.ReplaceAll(s, "{num_members}", fmt.Sprintf("%d", numMembers))
	return s
}

// DefaultSubject returns the body's configured default display subject
// name, used for percentage rendering when no subject is explicitly
// requested (grounded on the original's LegislativeDefault concept).
func (b *LegislativeBody) DefaultSubject() string {
	return b.DefaultSubjectName
}
