package domain

import (
	"fmt"
	"math"
	"strings"
)

// Sector names used by TEOTIL3 for point sources.
const (
	SectorLargeWastewater = "Large wastewater"
	SectorIndustry        = "Industry"
)

// Parameter is a wastewater quality parameter reported per site.
type Parameter int

const (
	TotN Parameter = iota
	TotP
	BOF5
	KOF
	SS
	numParameters
)

// WWParameters lists every parameter tracked in the raw wastewater workbooks,
// in column order.
var WWParameters = [numParameters]Parameter{TotN, TotP, BOF5, KOF, SS}

var parameterNames = [numParameters]string{"totn", "totp", "bof5", "kof", "ss"}

func (p Parameter) String() string {
	if p < 0 || p >= numParameters {
		return fmt.Sprintf("Parameter(%d)", int(p))
	}
	return parameterNames[p]
}

// InColumn is the workbook column holding the inflow for p.
func (p Parameter) InColumn() string { return p.String() + "_in_tonnes" }

// OutColumn is the workbook column holding the outflow for p.
func (p Parameter) OutColumn() string { return p.String() + "_out_tonnes" }

// ParseParameter maps a lower-case parameter name to a Parameter.
func ParseParameter(name string) (Parameter, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i, n := range parameterNames {
		if n == name {
			return Parameter(i), nil
		}
	}
	return 0, invalidf("unknown wastewater parameter %q (valid: %s)", name, strings.Join(parameterNames[:], ", "))
}

// Load holds inflow and outflow in tonnes. NaN marks an empty cell.
type Load struct {
	In  float64
	Out float64
}

// Efficiency returns the treatment efficiency in percent. The result is NaN
// or infinite when In is NaN or zero; callers decide how to treat that.
func (l Load) Efficiency() float64 {
	return 100 * (l.In - l.Out) / l.In
}

// Site is one point-source discharge facility for one year.
type Site struct {
	AnleggNr        string
	Name            string
	Year            int
	Sector          string
	Type            string
	CurrentCapacity float64
	DesignCapacity  float64
	Lon             float64
	Lat             float64
	Loads           [numParameters]Load

	// Extra keeps workbook columns this package does not interpret so the
	// scenario workbook can be written back without losing them. Values are
	// float64 for numeric cells and string for text, so codes such as "0301"
	// keep their leading zeros.
	Extra map[string]any
}

// SourceKey identifies a site within one sector. Ids are only unique per
// sector.
type SourceKey struct {
	Sector   string
	AnleggNr string
}

// Source returns the key of s within its sector.
func (s *Site) Source() SourceKey {
	return SourceKey{Sector: s.Sector, AnleggNr: s.AnleggNr}
}

// SiteTable is the full set of sites read from one workbook.
type SiteTable struct {
	// Columns is the header of the source workbook, in order.
	Columns []string
	Sites   []Site
}

// Validate checks that anlegg_nr is unique within each year.
func (t *SiteTable) Validate() error {
	type key struct {
		id   string
		year int
	}
	seen := make(map[key]struct{}, len(t.Sites))
	for _, s := range t.Sites {
		k := key{s.AnleggNr, s.Year}
		if _, dup := seen[k]; dup {
			return integrityf("anlegg_nr %q is not unique for year %d", s.AnleggNr, s.Year)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// FillCapacity patches missing current capacity with the design capacity and
// fails if any site still has no capacity.
func (t *SiteTable) FillCapacity() error {
	var missing []string
	for i := range t.Sites {
		s := &t.Sites[i]
		if math.IsNaN(s.CurrentCapacity) {
			s.CurrentCapacity = s.DesignCapacity
		}
		if math.IsNaN(s.CurrentCapacity) {
			missing = append(missing, s.AnleggNr)
		}
	}
	if len(missing) > 0 {
		return integrityf("%d sites have neither current nor design capacity: %s", len(missing), strings.Join(missing, ", "))
	}
	return nil
}

// Types returns the treatment type of every site keyed by (anlegg_nr, year).
func (t *SiteTable) Types() map[SiteKey]string {
	out := make(map[SiteKey]string, len(t.Sites))
	for _, s := range t.Sites {
		out[SiteKey{AnleggNr: s.AnleggNr, Year: s.Year}] = s.Type
	}
	return out
}

// SiteKey identifies a site within a multi-year dataset.
type SiteKey struct {
	AnleggNr string
	Year     int
}

// SiteRegine is the regine a site was registered in for a year.
type SiteRegine struct {
	SiteID string `db:"site_id"`
	Regine string `db:"regine"`
	Year   int    `db:"year"`
}
