package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/oslomod/teotil3-scenarios/internal/basin"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
)

// SiteRegineSource looks up where the sites of a sector were registered.
type SiteRegineSource interface {
	RawSiteRegines(ctx context.Context, year int, sector string, pars []string) ([]domain.SiteRegine, error)
}

// VassomSite is a raw wastewater site located in one of the requested vassoms.
type VassomSite struct {
	Regine string
	Vassom int
	domain.Site
}

// WastewaterForVassoms returns the raw large wastewater sites registered in
// any of vassoms, for every year. Sites are matched to the database
// registrations on (anlegg_nr, year); sites without a registration are left
// out.
func WastewaterForVassoms(ctx context.Context, src SiteRegineSource, wb Workbooks, layout Layout, vassoms, years []int, logger *slog.Logger) ([]VassomSite, error) {
	want := make(map[int]bool, len(vassoms))
	for _, v := range vassoms {
		want[v] = true
	}
	pars := make([]string, len(modelinput.TEO3Parameters))
	copy(pars, modelinput.TEO3Parameters)

	var out []VassomSite
	for _, year := range years {
		regs, err := src.RawSiteRegines(ctx, year, domain.SectorLargeWastewater, pars)
		if err != nil {
			return nil, err
		}
		type loc struct {
			regine string
			vassom int
		}
		where := make(map[domain.SiteKey]loc, len(regs))
		for _, sr := range regs {
			v, err := basin.VassomOf(sr.Regine)
			if err != nil {
				return nil, fmt.Errorf("site %s: %w", sr.SiteID, err)
			}
			if want[v] {
				where[domain.SiteKey{AnleggNr: sr.SiteID, Year: sr.Year}] = loc{sr.Regine, v}
			}
		}

		raw, err := wb.ReadSites(layout.RawWastewater(year), domain.SectorLargeWastewater)
		if err != nil {
			return nil, err
		}
		n := 0
		for _, s := range raw.Sites {
			l, ok := where[domain.SiteKey{AnleggNr: s.AnleggNr, Year: s.Year}]
			if !ok {
				continue
			}
			out = append(out, VassomSite{Regine: l.regine, Vassom: l.vassom, Site: s})
			n++
		}
		logger.Info("wastewater sites selected", "year", year, "vassoms", vassoms, "sites", n)
	}
	return out, nil
}

// VassomTable converts sites to a table that can be written as a workbook,
// with regine and vassom ahead of the raw columns.
func VassomTable(sites []VassomSite, columns []string) *domain.SiteTable {
	tbl := &domain.SiteTable{Columns: append([]string{"regine", "vassom"}, columns...)}
	for _, vs := range sites {
		s := vs.Site
		extra := make(map[string]any, len(s.Extra)+2)
		for k, v := range s.Extra {
			extra[k] = v
		}
		extra["regine"] = vs.Regine
		extra["vassom"] = vs.Vassom
		s.Extra = extra
		tbl.Sites = append(tbl.Sites, s)
	}
	return tbl
}

// VassomRegines restricts Source to the regines of the listed vassoms.
type VassomRegines struct {
	Source  RegineSource
	Vassoms []int
}

func (v VassomRegines) Regines(ctx context.Context, year int) ([]basin.Regine, error) {
	regs, err := v.Source.Regines(ctx, year)
	if err != nil {
		return nil, err
	}
	return basin.FilterVassoms(regs, v.Vassoms), nil
}

// ParseVassoms parses a comma-separated list of vassom numbers.
func ParseVassoms(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.Atoi(part)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: invalid vassom %q", domain.ErrInvalidInput, part)
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no vassoms given", domain.ErrInvalidInput)
	}
	return out, nil
}
