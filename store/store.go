// Package store is the Plan Store (component D): persists district records
// keyed by (plan, district_id, version) and supplies version-at-most
// queries. Grounded on SoySergo-location_microservice's
// internal/repository/postgres pattern (sqlx.DB + pgx driver, sentinel-
// error mapping from sql.ErrNoRows) for the SQL-backed implementation, and
// on the teacher's own RWMutex-guarded map-of-maps indexing style
// (data/index.go) for the in-memory reference implementation used by tests
// and by callers with no persistence requirement.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
	"github.com/politic-in/districting-core/version"
)

// Errors returned by Store implementations.
var (
	ErrPlanNotFound     = errors.New("store: plan not found")
	ErrDistrictNotFound = errors.New("store: district not found")
	ErrRowNotFound      = errors.New("store: district row not found")
)

// DistrictRow is one immutable (plan, district_id, version) record. Rows
// are copy-on-write: a new row is inserted rather than an existing one
// mutated, keeping district_id stable across versions while RowID
// (the storage primary key) is unique per row. Dependent entities
// (ComputedCharacteristic, comments, tags — the latter two out of scope)
// are keyed by RowID so cascade delete on purge is sufficient cleanup.
type DistrictRow struct {
	RowID      string
	PlanID     string
	DistrictID int // 0 is reserved for Unassigned
	Ver        int
	Name       string
	NumMembers int
	IsLocked   bool
	Geom       geom.Region
	// Simple holds one simplified geometry per geolevel, keyed by geolevel
	// name, per the data model's "simple" field.
	Simple map[string]geom.Region
}

// Key and Version satisfy part of version.Row directly. DistrictID is
// already a field name on this struct, so the third method version.Row
// needs (DistrictID() int) is supplied by the versionRow wrapper below
// instead of on DistrictRow itself.
func (d DistrictRow) Key() string  { return d.RowID }
func (d DistrictRow) Version() int { return d.Ver }

// versionRow adapts a DistrictRow to package version's Row interface,
// which needs a DistrictID() int method — a name this struct's DistrictID
// field already occupies.
type versionRow struct{ DistrictRow }

func (v versionRow) DistrictID() int { return v.DistrictRow.DistrictID }

// VersionRow is the interface package version's functions operate over.
type VersionRow = version.Row

// AsVersionRows adapts a slice of DistrictRow for use with package version.
func AsVersionRows(rows []DistrictRow) []VersionRow {
	out := make([]VersionRow, len(rows))
	for i, r := range rows {
		out[i] = versionRow{r}
	}
	return out
}

// Plan is the owning container for a set of districts across versions.
type Plan struct {
	ID         string
	BodyName   string
	Version    int
	MinVersion int
	IsTemplate bool
	IsShared   bool
	IsPending  bool
	IsValid    bool
	CreatedAt  time.Time
	EditedAt   time.Time
}

// Store is the persistence contract the Mutation Engine and Version
// Manager need (spec §6 "Store API"). Every method except the embedded
// stats.Store accessors (GetComputed, SetComputed) takes a context since
// store round-trips are treated as blocking, cancellable I/O (spec §5).
type Store interface {
	stats.Store

	GetPlan(ctx context.Context, planID string) (Plan, error)
	SavePlan(ctx context.Context, plan Plan) error

	// DistrictsAtVersion returns, for each district_id present at or
	// before version v, the row with the greatest stored version <= v
	// (the `districts_latest_at` query).
	DistrictsAtVersion(ctx context.Context, planID string, v int) ([]DistrictRow, error)

	// AllRows returns every stored row for a plan across all versions,
	// for Version Manager bookkeeping (nth_previous, purge).
	AllRows(ctx context.Context, planID string) ([]DistrictRow, error)

	// InsertDistrictRow writes a new copy-on-write row and returns its
	// generated RowID.
	InsertDistrictRow(ctx context.Context, row DistrictRow) (string, error)

	// DeleteDistrictRows cascade-deletes the named rows and every
	// ComputedCharacteristic keyed by those RowIDs.
	DeleteDistrictRows(ctx context.Context, rowIDs []string) error
}
