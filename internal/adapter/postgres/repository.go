package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/oslomod/teotil3-scenarios/internal/basin"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
)

// Repository runs the read-only TEOTIL3 queries.
type Repository struct {
	db *DB
}

// NewRepository returns a Repository on db.
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

type regineRow struct {
	Code    string `db:"regine"`
	GeoJSON string `db:"geojson"`
}

func (r regineRow) toRegine() (basin.Regine, error) {
	return basin.DecodeGeoJSON(r.Code, []byte(r.GeoJSON))
}

// Regines returns the regine polygons valid for year, in WGS84.
func (r *Repository) Regines(ctx context.Context, year int) ([]basin.Regine, error) {
	const q = `
		SELECT regine, ST_AsGeoJSON(ST_Transform(geom, 4326)) AS geojson
		FROM teotil3.regines
		WHERE year = $1
		ORDER BY regine`

	var rows []regineRow
	if err := r.db.SelectContext(ctx, &rows, q, year); err != nil {
		return nil, fmt.Errorf("query regines for %d: %w", year, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no regines for %d", year)
	}
	out := make([]basin.Regine, 0, len(rows))
	for _, row := range rows {
		reg, err := row.toRegine()
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	r.db.logger.Debug("regines loaded", "year", year, "count", len(out))
	return out, nil
}

// InputParams returns teotil3.input_param_definitions.
func (r *Repository) InputParams(ctx context.Context) ([]modelinput.InputParam, error) {
	var out []modelinput.InputParam
	err := r.db.SelectContext(ctx, &out,
		`SELECT in_par_id, name, unit FROM teotil3.input_param_definitions ORDER BY in_par_id`)
	if err != nil {
		return nil, fmt.Errorf("query input parameters: %w", err)
	}
	return out, nil
}

// OutputParams returns teotil3.output_param_definitions.
func (r *Repository) OutputParams(ctx context.Context) ([]modelinput.OutputParam, error) {
	var out []modelinput.OutputParam
	err := r.db.SelectContext(ctx, &out,
		`SELECT out_par_id, name, unit FROM teotil3.output_param_definitions ORDER BY out_par_id`)
	if err != nil {
		return nil, fmt.Errorf("query output parameters: %w", err)
	}
	return out, nil
}

// Conversions returns teotil3.input_output_param_conversion.
func (r *Repository) Conversions(ctx context.Context) ([]modelinput.Conversion, error) {
	var out []modelinput.Conversion
	err := r.db.SelectContext(ctx, &out,
		`SELECT in_par_id, out_par_id, factor FROM teotil3.input_output_param_conversion`)
	if err != nil {
		return nil, fmt.Errorf("query parameter conversions: %w", err)
	}
	return out, nil
}

// RawSiteRegines returns the sites of sector that reported any of the output
// parameters pars (e.g. "totn_kg") in year, with their regine.
func (r *Repository) RawSiteRegines(ctx context.Context, year int, sector string, pars []string) ([]domain.SiteRegine, error) {
	const q = `
		SELECT DISTINCT l.site_id, l.regine, v.year
		FROM teotil3.point_source_locations l
		JOIN teotil3.point_source_values v ON v.site_id = l.site_id
		JOIN teotil3.output_param_definitions p ON p.out_par_id = v.out_par_id
		WHERE v.year = $1
		  AND LOWER(l.sector) = $2
		  AND LOWER(p.name || '_' || p.unit) = ANY($3)
		ORDER BY l.site_id`

	lower := make([]string, len(pars))
	for i, p := range pars {
		lower[i] = strings.ToLower(p)
	}
	var out []domain.SiteRegine
	if err := r.db.SelectContext(ctx, &out, q, year, strings.ToLower(sector), pq.Array(lower)); err != nil {
		return nil, fmt.Errorf("query %s sites for %d: %w", sector, year, err)
	}
	return out, nil
}
