package catalog

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/politic-in/districting-core/geom"
)

// Store is an in-memory, read-only-after-bootstrap Unit Catalog: bodies,
// subjects, units and characteristics, with O(1) lookups guarded by an
// RWMutex the way the teacher's GeoIndex guards its administrative-geography
// maps. Bootstrap (Add* calls) is expected to happen once at process start;
// all lookup methods are safe for concurrent readers thereafter.
type Store struct {
	mu sync.RWMutex

	bodies   map[string]*LegislativeBody
	subjects map[string]Subject

	unitsByID     map[string]Unit
	unitsByLevel  map[string][]string // geolevel -> unit ids
	childrenOf    map[string][]string // parent unit id -> child unit ids

	characteristics map[string]map[string]decimal.Decimal // unit id -> subject -> value
}

// NewStore constructs an empty catalog store.
func NewStore() *Store {
	return &Store{
		bodies:          make(map[string]*LegislativeBody),
		subjects:        make(map[string]Subject),
		unitsByID:       make(map[string]Unit),
		unitsByLevel:    make(map[string][]string),
		childrenOf:      make(map[string][]string),
		characteristics: make(map[string]map[string]decimal.Decimal),
	}
}

// AddBody registers a legislative body.
func (s *Store) AddBody(b *LegislativeBody) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bodies[b.Name] = b
}

// Body returns a registered legislative body by name.
func (s *Store) Body(name string) (*LegislativeBody, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bodies[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBodyNotFound, name)
	}
	return b, nil
}

// AddSubject registers a subject definition.
func (s *Store) AddSubject(sub Subject) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[sub.Name] = sub
}

// Subject returns a registered subject by name.
func (s *Store) Subject(name string) (Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subjects[name]
	if !ok {
		return Subject{}, fmt.Errorf("%w: %s", ErrSubjectNotFound, name)
	}
	return sub, nil
}

// Subjects returns every registered subject, in no particular order; use
// stats.OrderedSubjects for denominator-safe processing order.
func (s *Store) Subjects() []Subject {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Subject, 0, len(s.subjects))
	for _, sub := range s.subjects {
		out = append(out, sub)
	}
	return out
}

// AddUnit registers a unit, indexing it by geolevel and by parent.
func (s *Store) AddUnit(u Unit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unitsByID[u.ID] = u
	s.unitsByLevel[u.Geolevel] = append(s.unitsByLevel[u.Geolevel], u.ID)
	if u.ParentUnitID != "" {
		s.childrenOf[u.ParentUnitID] = append(s.childrenOf[u.ParentUnitID], u.ID)
	}
}

// Unit returns a unit by id.
func (s *Store) Unit(id string) (Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.unitsByID[id]
	if !ok {
		return Unit{}, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
	}
	return u, nil
}

// UnitsByIDs resolves multiple unit ids, returning an error on the first
// miss (mirrors the Store API's `units_by_ids`).
func (s *Store) UnitsByIDs(ids []string) ([]Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Unit, 0, len(ids))
	for _, id := range ids {
		u, ok := s.unitsByID[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnitNotFound, id)
		}
		out = append(out, u)
	}
	return out, nil
}

// UnitsAtLevel returns every unit id registered at the named geolevel.
func (s *Store) UnitsAtLevel(level string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.unitsByLevel[level]))
	copy(out, s.unitsByLevel[level])
	return out
}

// ChildrenOf returns the direct children of a unit (the next finer
// geolevel's units whose ParentUnitID equals id).
func (s *Store) ChildrenOf(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.childrenOf[id]))
	copy(out, s.childrenOf[id])
	return out
}

// RegionOf builds the Region a unit covers. For this H3-grounded catalog a
// unit's region is simply its own cell expanded to the base resolution by
// the caller when needed; RegionOf returns the unit's own cell as a
// single-cell region at its native geolevel resolution.
func (s *Store) RegionOf(id string) (geom.Region, error) {
	if _, err := s.Unit(id); err != nil {
		return geom.Region{}, err
	}
	return geom.FromIDs(id)
}

// SetCharacteristic stores the (unit, subject) -> decimal characteristic
// value. Characteristics are read-only to mutation-engine callers; this
// setter exists for catalog bootstrap/loaders only.
func (s *Store) SetCharacteristic(unitID, subject string, value decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySubject, ok := s.characteristics[unitID]
	if !ok {
		bySubject = make(map[string]decimal.Decimal)
		s.characteristics[unitID] = bySubject
	}
	bySubject[subject] = value
}

// Characteristic returns the value of subject for unit, or zero if unset.
func (s *Store) Characteristic(unitID, subject string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySubject, ok := s.characteristics[unitID]
	if !ok {
		return decimal.Zero
	}
	return bySubject[subject]
}

// CharacteristicsSum sums subject's Characteristic value over a set of
// units (the Store API's `characteristics_sum`).
func (s *Store) CharacteristicsSum(unitIDs []string, subject string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for _, id := range unitIDs {
		if bySubject, ok := s.characteristics[id]; ok {
			total = total.Add(bySubject[subject])
		}
	}
	return total
}
