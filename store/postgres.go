package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/politic-in/districting-core/decimalx"
	"github.com/politic-in/districting-core/geom"
	"github.com/politic-in/districting-core/stats"
)

// PostgresStore is the SQL-backed Store implementation, grounded on
// location-microservice's repository/postgres package: a thin sqlx.DB
// wrapper, raw SQL per method, sql.ErrNoRows mapped to a package sentinel.
// The geometry columns are declared as a recoverable text encoding of an
// H3 cell set (comma-joined cell ids) rather than a PostGIS geometry
// column, since the real geometry kernel and its spatial index are out of
// scope for this engine (spec §1) — the column exists so the Store
// contract's shape matches the spec's "relational store with spatial
// index" description without inventing a fake PostGIS schema.
type PostgresStore struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewPostgresStore wraps an existing sqlx.DB (itself opened with the pgx
// stdlib driver, "pgx", by the caller) as a Store.
func NewPostgresStore(db *sqlx.DB, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

func encodeRegion(r geom.Region) string {
	return strings.Join(r.IDs(), ",")
}

func decodeRegion(s string) (geom.Region, error) {
	if s == "" {
		return geom.Empty(), nil
	}
	return geom.FromIDs(strings.Split(s, ",")...)
}

func encodeSimple(m map[string]geom.Region) string {
	if len(m) == 0 {
		return ""
	}
	parts := make([]string, 0, len(m))
	for level, r := range m {
		parts = append(parts, level+"="+encodeRegion(r))
	}
	return strings.Join(parts, ";")
}

func decodeSimple(s string) (map[string]geom.Region, error) {
	out := make(map[string]geom.Region)
	if s == "" {
		return out, nil
	}
	for _, entry := range strings.Split(s, ";") {
		kv := strings.SplitN(entry, "=", 2)
		if len(kv) != 2 {
			continue
		}
		r, err := decodeRegion(kv[1])
		if err != nil {
			return nil, err
		}
		out[kv[0]] = r
	}
	return out, nil
}

func (p *PostgresStore) GetPlan(ctx context.Context, planID string) (Plan, error) {
	const query = `
		SELECT id, body_name, version, min_version, is_template, is_shared,
		       is_pending, is_valid, created_at, edited_at
		FROM districting_plans
		WHERE id = $1
	`
	var plan Plan
	err := p.db.QueryRowxContext(ctx, query, planID).Scan(
		&plan.ID, &plan.BodyName, &plan.Version, &plan.MinVersion,
		&plan.IsTemplate, &plan.IsShared, &plan.IsPending, &plan.IsValid,
		&plan.CreatedAt, &plan.EditedAt,
	)
	if err == sql.ErrNoRows {
		return Plan{}, fmt.Errorf("%w: %s", ErrPlanNotFound, planID)
	}
	if err != nil {
		p.logger.Error("failed to load plan", zap.String("plan_id", planID), zap.Error(err))
		return Plan{}, fmt.Errorf("store: %w", err)
	}
	return plan, nil
}

func (p *PostgresStore) SavePlan(ctx context.Context, plan Plan) error {
	const query = `
		INSERT INTO districting_plans
			(id, body_name, version, min_version, is_template, is_shared, is_pending, is_valid, created_at, edited_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			version = EXCLUDED.version,
			min_version = EXCLUDED.min_version,
			is_valid = EXCLUDED.is_valid,
			edited_at = EXCLUDED.edited_at
	`
	_, err := p.db.ExecContext(ctx, query,
		plan.ID, plan.BodyName, plan.Version, plan.MinVersion,
		plan.IsTemplate, plan.IsShared, plan.IsPending, plan.IsValid,
		plan.CreatedAt, plan.EditedAt,
	)
	if err != nil {
		p.logger.Error("failed to save plan", zap.String("plan_id", plan.ID), zap.Error(err))
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

type districtRowDTO struct {
	RowID      string `db:"row_id"`
	PlanID     string `db:"plan_id"`
	DistrictID int    `db:"district_id"`
	Version    int    `db:"version"`
	Name       string `db:"name"`
	NumMembers int    `db:"num_members"`
	IsLocked   bool   `db:"is_locked"`
	GeomCells  string `db:"geom_cells"`
	SimpleEnc  string `db:"simple_cells"`
}

func (dto districtRowDTO) toDomain() (DistrictRow, error) {
	g, err := decodeRegion(dto.GeomCells)
	if err != nil {
		return DistrictRow{}, err
	}
	simple, err := decodeSimple(dto.SimpleEnc)
	if err != nil {
		return DistrictRow{}, err
	}
	return DistrictRow{
		RowID:      dto.RowID,
		PlanID:     dto.PlanID,
		DistrictID: dto.DistrictID,
		Ver:        dto.Version,
		Name:       dto.Name,
		NumMembers: dto.NumMembers,
		IsLocked:   dto.IsLocked,
		Geom:       g,
		Simple:     simple,
	}, nil
}

func (p *PostgresStore) DistrictsAtVersion(ctx context.Context, planID string, v int) ([]DistrictRow, error) {
	const query = `
		SELECT DISTINCT ON (district_id)
			row_id, plan_id, district_id, version, name, num_members, is_locked, geom_cells, simple_cells
		FROM districting_districts
		WHERE plan_id = $1 AND version <= $2
		ORDER BY district_id, version DESC
	`
	var dtos []districtRowDTO
	if err := p.db.SelectContext(ctx, &dtos, query, planID, v); err != nil {
		p.logger.Error("failed to load districts at version",
			zap.String("plan_id", planID), zap.Int("version", v), zap.Error(err))
		return nil, fmt.Errorf("store: %w", err)
	}
	out := make([]DistrictRow, 0, len(dtos))
	for _, dto := range dtos {
		row, err := dto.toDomain()
		if err != nil {
			return nil, fmt.Errorf("store: decoding row %s: %w", dto.RowID, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (p *PostgresStore) AllRows(ctx context.Context, planID string) ([]DistrictRow, error) {
	const query = `
		SELECT row_id, plan_id, district_id, version, name, num_members, is_locked, geom_cells, simple_cells
		FROM districting_districts
		WHERE plan_id = $1
		ORDER BY district_id, version
	`
	var dtos []districtRowDTO
	if err := p.db.SelectContext(ctx, &dtos, query, planID); err != nil {
		p.logger.Error("failed to load plan history", zap.String("plan_id", planID), zap.Error(err))
		return nil, fmt.Errorf("store: %w", err)
	}
	out := make([]DistrictRow, 0, len(dtos))
	for _, dto := range dtos {
		row, err := dto.toDomain()
		if err != nil {
			return nil, fmt.Errorf("store: decoding row %s: %w", dto.RowID, err)
		}
		out = append(out, row)
	}
	return out, nil
}

func (p *PostgresStore) InsertDistrictRow(ctx context.Context, row DistrictRow) (string, error) {
	const query = `
		INSERT INTO districting_districts
			(plan_id, district_id, version, name, num_members, is_locked, geom_cells, simple_cells)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING row_id
	`
	var rowID string
	err := p.db.QueryRowxContext(ctx, query,
		row.PlanID, row.DistrictID, row.Ver, row.Name, row.NumMembers, row.IsLocked,
		encodeRegion(row.Geom), encodeSimple(row.Simple),
	).Scan(&rowID)
	if err != nil {
		p.logger.Error("failed to insert district row",
			zap.String("plan_id", row.PlanID), zap.Int("district_id", row.DistrictID), zap.Error(err))
		return "", fmt.Errorf("store: %w", err)
	}
	return rowID, nil
}

func (p *PostgresStore) DeleteDistrictRows(ctx context.Context, rowIDs []string) error {
	if len(rowIDs) == 0 {
		return nil
	}
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	defer tx.Rollback()

	// Dependent ComputedCharacteristic (and, were they in scope, comment
	// and tag) rows are keyed by row_id with ON DELETE CASCADE, so the
	// district row delete alone is sufficient cleanup.
	query, args, err := sqlx.In(`DELETE FROM districting_districts WHERE row_id IN (?)`, rowIDs)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	query = tx.Rebind(query)
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		p.logger.Error("failed to delete district rows", zap.Strings("row_ids", rowIDs), zap.Error(err))
		return fmt.Errorf("store: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: %w", err)
	}
	return nil
}

func (p *PostgresStore) GetComputed(districtRowID, subject string) (stats.ComputedCharacteristic, bool) {
	const query = `
		SELECT district_row_id, subject, number, percentage
		FROM districting_computed_characteristics
		WHERE district_row_id = $1 AND subject = $2
	`
	var cc stats.ComputedCharacteristic
	var number, percentage string
	err := p.db.QueryRowx(query, districtRowID, subject).Scan(&cc.DistrictRowID, &cc.Subject, &number, &percentage)
	if err != nil {
		return stats.ComputedCharacteristic{}, false
	}
	cc.Number, _ = decimalx.FromString(number)
	cc.Percentage, _ = decimalx.FromString(percentage)
	return cc, true
}

func (p *PostgresStore) SetComputed(cc stats.ComputedCharacteristic) {
	const query = `
		INSERT INTO districting_computed_characteristics (district_row_id, subject, number, percentage)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (district_row_id, subject) DO UPDATE SET
			number = EXCLUDED.number,
			percentage = EXCLUDED.percentage
	`
	if _, err := p.db.Exec(query, cc.DistrictRowID, cc.Subject, cc.Number.String(), cc.Percentage.String()); err != nil {
		p.logger.Error("failed to upsert computed characteristic",
			zap.String("row_id", cc.DistrictRowID), zap.String("subject", cc.Subject), zap.Error(err))
	}
}

var _ Store = (*PostgresStore)(nil)
