package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"sync"

	"github.com/ctessum/geom"

	"github.com/oslomod/teotil3-scenarios/internal/basin"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
)

// --- mocks ---

// memWorkbooks keeps site tables in memory but still creates the files it
// is asked to write, so the runner can move them into place.
type memWorkbooks struct {
	mu     sync.Mutex
	tables map[string]*domain.SiteTable
	metals map[domain.SiteKey]string
}

func newMemWorkbooks() *memWorkbooks {
	return &memWorkbooks{tables: make(map[string]*domain.SiteTable)}
}

func (m *memWorkbooks) ReadSites(path, sector string) (*domain.SiteTable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tbl, ok := m.tables[path]
	if !ok {
		return nil, fmt.Errorf("open workbook %s: %w", path, os.ErrNotExist)
	}
	return cloneTable(tbl, sector), nil
}

func (m *memWorkbooks) WriteSites(path string, tbl *domain.SiteTable) error {
	m.mu.Lock()
	m.tables[path] = cloneTable(tbl, "")
	m.mu.Unlock()
	return os.WriteFile(path, []byte("xlsx"), 0o644)
}

func (m *memWorkbooks) CopyFile(src, dst string) error {
	m.mu.Lock()
	tbl, ok := m.tables[src]
	if ok {
		m.tables[dst] = tbl
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("copy %s: %w", src, os.ErrNotExist)
	}
	return os.WriteFile(dst, []byte("xlsx"), 0o644)
}

func (m *memWorkbooks) RewriteMetals(_, dst string, types map[domain.SiteKey]string) error {
	m.mu.Lock()
	m.metals = types
	m.mu.Unlock()
	return os.WriteFile(dst, []byte("xlsx"), 0o644)
}

func cloneTable(tbl *domain.SiteTable, sector string) *domain.SiteTable {
	out := &domain.SiteTable{Columns: tbl.Columns, Sites: make([]domain.Site, len(tbl.Sites))}
	copy(out.Sites, tbl.Sites)
	if sector != "" {
		for i := range out.Sites {
			out.Sites[i].Sector = sector
		}
	}
	return out
}

type mockReference struct {
	err error
}

func (m *mockReference) InputParams(context.Context) ([]modelinput.InputParam, error) {
	return []modelinput.InputParam{
		{ID: 1, Name: "TOTP", Unit: "tonnes"},
		{ID: 2, Name: "TOTN", Unit: "tonnes"},
		{ID: 3, Name: "TOTP", Unit: "kg"},
	}, m.err
}

func (m *mockReference) OutputParams(context.Context) ([]modelinput.OutputParam, error) {
	return []modelinput.OutputParam{
		{ID: 10, Name: "TOTP", Unit: "kg"},
		{ID: 11, Name: "TOTN", Unit: "kg"},
		{ID: 12, Name: "TDP", Unit: "kg"},
	}, nil
}

func (m *mockReference) Conversions(context.Context) ([]modelinput.Conversion, error) {
	return []modelinput.Conversion{
		{InParID: 1, OutParID: 10, Factor: 1000},
		{InParID: 1, OutParID: 12, Factor: 500},
		{InParID: 2, OutParID: 11, Factor: 1000},
	}, nil
}

type mockRegines struct{}

func (mockRegines) Regines(context.Context, int) ([]basin.Regine, error) {
	return []basin.Regine{
		{Code: "001.10", Vassom: 1, Polygonal: square(10, 59, 1)},
		{Code: "002.10", Vassom: 2, Polygonal: square(11, 59, 1)},
	}, nil
}

type mockTypes struct {
	valid map[string]bool
}

func (m mockTypes) ValidateType(_ context.Context, sector, siteType string) error {
	if !m.valid[siteType] {
		return fmt.Errorf("%w: site type %q is not valid for sector %q", domain.ErrInvalidInput, siteType, sector)
	}
	return nil
}

type mockPublisher struct {
	mu        sync.Mutex
	summaries []*domain.RunSummary
	err       error
}

func (m *mockPublisher) Publish(_ context.Context, s *domain.RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.summaries = append(m.summaries, s)
	return nil
}

type mockSiteRegines struct {
	rows map[int][]domain.SiteRegine
}

func (m mockSiteRegines) RawSiteRegines(_ context.Context, year int, _ string, _ []string) ([]domain.SiteRegine, error) {
	rows, ok := m.rows[year]
	if !ok {
		return nil, errors.New("no registrations")
	}
	return rows, nil
}

// --- data ---

func square(x0, y0, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
		{X: x0, Y: y0},
	}}
}

// newSite returns a site with every load missing.
func newSite(id string, capacity, lon, lat float64) domain.Site {
	s := domain.Site{
		AnleggNr:        id,
		Year:            2019,
		Type:            "Mekanisk",
		CurrentCapacity: capacity,
		DesignCapacity:  math.NaN(),
		Lon:             lon,
		Lat:             lat,
	}
	for _, p := range domain.WWParameters {
		s.Loads[p] = domain.Load{In: math.NaN(), Out: math.NaN()}
	}
	return s
}

// rawWastewater has a small site in 001.10 and a larger one in 002.10.
func rawWastewater() *domain.SiteTable {
	a := newSite("0301AL01", 1000, 10.5, 59.5)
	a.Loads[domain.TotP] = domain.Load{In: 10, Out: 5}
	a.Loads[domain.TotN] = domain.Load{In: 100, Out: 80}

	b := newSite("0301AL02", 5000, 11.5, 59.5)
	b.Loads[domain.TotP] = domain.Load{In: 20, Out: 2}
	b.Loads[domain.TotN] = domain.Load{In: 50, Out: 10}

	return &domain.SiteTable{
		Columns: []string{"anlegg_nr", "year", "type", "current_capacity", "lon", "lat"},
		Sites:   []domain.Site{a, b},
	}
}

// rawIndustry has one site in 001.10 that shares its id with the wastewater
// site in 002.10.
func rawIndustry() *domain.SiteTable {
	c := newSite("IND01", math.NaN(), 10.2, 59.2)
	c.Loads[domain.TotP] = domain.Load{In: math.NaN(), Out: 3}
	d := newSite("0301AL02", math.NaN(), 10.3, 59.3)
	d.Loads[domain.TotP] = domain.Load{In: math.NaN(), Out: 4}
	return &domain.SiteTable{Columns: []string{"anlegg_nr", "year"}, Sites: []domain.Site{c, d}}
}

const baselineCSV = `regine,agriculture_totp_kg,large-wastewater_totp_kg
001.10,5,1
002.10,7,2
003.10,9,3
`

const scenarioYAML = `
name: Tiltak A
overflow:
  "0-2000": 10
upgrade_by_capacity:
  "2000-10000": {type: "Kjemisk", totp: 95}
`
