package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/politic-in/districting-core/stats"
)

// MemStore is an in-memory reference Store, grounded on the teacher's
// RWMutex-guarded index style (data/index.go). It is the Store used by
// this module's own tests and is a reasonable embedded store for callers
// that don't need real persistence.
type MemStore struct {
	mu sync.RWMutex

	plans map[string]Plan
	rows  map[string]DistrictRow // RowID -> row
	byPlan map[string][]string   // planID -> RowIDs, insertion order

	computed map[string]stats.ComputedCharacteristic // RowID|subject -> cc

	nextRowID int
}

// NewMemStore constructs an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		plans:    make(map[string]Plan),
		rows:     make(map[string]DistrictRow),
		byPlan:   make(map[string][]string),
		computed: make(map[string]stats.ComputedCharacteristic),
	}
}

func (m *MemStore) GetPlan(_ context.Context, planID string) (Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[planID]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	return p, nil
}

func (m *MemStore) SavePlan(_ context.Context, plan Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans[plan.ID] = plan
	return nil
}

func (m *MemStore) DistrictsAtVersion(_ context.Context, planID string, v int) ([]DistrictRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	latest := make(map[int]DistrictRow)
	for _, id := range m.byPlan[planID] {
		r := m.rows[id]
		if r.Ver > v {
			continue
		}
		cur, ok := latest[r.DistrictID]
		if !ok || r.Ver > cur.Ver {
			latest[r.DistrictID] = r
		}
	}

	out := make([]DistrictRow, 0, len(latest))
	for _, r := range latest {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DistrictID < out[j].DistrictID })
	return out, nil
}

func (m *MemStore) AllRows(_ context.Context, planID string) ([]DistrictRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]DistrictRow, 0, len(m.byPlan[planID]))
	for _, id := range m.byPlan[planID] {
		out = append(out, m.rows[id])
	}
	return out, nil
}

func (m *MemStore) InsertDistrictRow(_ context.Context, row DistrictRow) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row.RowID == "" {
		m.nextRowID++
		row.RowID = fmt.Sprintf("row-%d", m.nextRowID)
	}
	m.rows[row.RowID] = row
	m.byPlan[row.PlanID] = append(m.byPlan[row.PlanID], row.RowID)
	return row.RowID, nil
}

func (m *MemStore) DeleteDistrictRows(_ context.Context, rowIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	toDelete := make(map[string]bool, len(rowIDs))
	for _, id := range rowIDs {
		toDelete[id] = true
	}
	for _, id := range rowIDs {
		row, ok := m.rows[id]
		if !ok {
			continue
		}
		delete(m.rows, id)
		plan := m.byPlan[row.PlanID]
		filtered := plan[:0]
		for _, existing := range plan {
			if !toDelete[existing] {
				filtered = append(filtered, existing)
			}
		}
		m.byPlan[row.PlanID] = filtered
		for subject := range subjectsForRow(m.computed, id) {
			delete(m.computed, computedKey(id, subject))
		}
	}
	return nil
}

func subjectsForRow(computed map[string]stats.ComputedCharacteristic, rowID string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, cc := range computed {
		if cc.DistrictRowID == rowID {
			out[cc.Subject] = struct{}{}
		}
	}
	return out
}

func computedKey(rowID, subject string) string { return rowID + "|" + subject }

func (m *MemStore) GetComputed(districtRowID, subject string) (stats.ComputedCharacteristic, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cc, ok := m.computed[computedKey(districtRowID, subject)]
	return cc, ok
}

func (m *MemStore) SetComputed(cc stats.ComputedCharacteristic) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.computed[computedKey(cc.DistrictRowID, cc.Subject)] = cc
}

var _ Store = (*MemStore)(nil)
