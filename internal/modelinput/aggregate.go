package modelinput

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

// TEO3Parameters are the model parameters, in column order.
var TEO3Parameters = []string{
	"totn_kg",
	"din_kg",
	"ton_kg",
	"totp_kg",
	"tdp_kg",
	"tpp_kg",
	"toc_kg",
	"ss_kg",
}

// WastewaterPrefix prefixes every large wastewater column in the model input.
const WastewaterPrefix = "large-wastewater_"

// InputParam is a row of teotil3.input_param_definitions.
type InputParam struct {
	ID   int    `db:"in_par_id"`
	Name string `db:"name"`
	Unit string `db:"unit"`
}

// OutputParam is a row of teotil3.output_param_definitions.
type OutputParam struct {
	ID   int    `db:"out_par_id"`
	Name string `db:"name"`
	Unit string `db:"unit"`
}

// Conversion is a row of teotil3.input_output_param_conversion. One input
// parameter may feed several output parameters.
type Conversion struct {
	InParID  int     `db:"in_par_id"`
	OutParID int     `db:"out_par_id"`
	Factor   float64 `db:"factor"`
}

// PointValue is one reported outflow of one site, in long form.
type PointValue struct {
	SiteID  string
	Sector  string
	InParID int
	Value   float64
}

// LongForm melts the outflow columns of sites into PointValues. A parameter is
// matched to an input definition by name and the unit "tonnes", ignoring case.
// Parameters without a definition and missing outflows are skipped.
func LongForm(sites []domain.Site, inputs []InputParam, logger *slog.Logger) ([]PointValue, error) {
	ids := make(map[domain.Parameter]int, len(domain.WWParameters))
	for _, par := range domain.WWParameters {
		for _, in := range inputs {
			if strings.EqualFold(in.Name, par.String()) && strings.EqualFold(in.Unit, "tonnes") {
				ids[par] = in.ID
				break
			}
		}
		if _, ok := ids[par]; !ok {
			logger.Debug("no input parameter definition", "parameter", par.String())
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no input parameter definitions match the wastewater parameters")
	}

	var out []PointValue
	for _, s := range sites {
		for _, par := range domain.WWParameters {
			id, ok := ids[par]
			if !ok {
				continue
			}
			v := s.Loads[par].Out
			if math.IsNaN(v) {
				continue
			}
			out = append(out, PointValue{SiteID: s.AnleggNr, Sector: s.Sector, InParID: id, Value: v})
		}
	}
	return out, nil
}

// AggregateWastewater converts large wastewater outflows to model parameters
// and sums them per regine. Values from other sectors, from sites without a
// regine or without a conversion are dropped. The result has one column per
// TEO3 parameter present, prefixed with WastewaterPrefix, rounded to 1 dp.
func AggregateWastewater(values []PointValue, conv []Conversion, params []OutputParam, regines map[domain.SourceKey]string) (*Table, error) {
	byIn := make(map[int][]Conversion)
	for _, c := range conv {
		byIn[c.InParID] = append(byIn[c.InParID], c)
	}
	names := make(map[int]string, len(params))
	for _, p := range params {
		names[p.ID] = strings.ToLower(p.Name + "_" + p.Unit)
	}

	sums := make(map[string]map[string]float64)
	present := make(map[string]bool)
	for _, v := range values {
		if v.Sector != domain.SectorLargeWastewater {
			continue
		}
		reg, ok := regines[domain.SourceKey{Sector: v.Sector, AnleggNr: v.SiteID}]
		if !ok {
			continue
		}
		for _, c := range byIn[v.InParID] {
			name, ok := names[c.OutParID]
			if !ok {
				return nil, fmt.Errorf("conversion %d -> %d: unknown output parameter", c.InParID, c.OutParID)
			}
			val := v.Value * c.Factor
			if math.IsNaN(val) {
				continue
			}
			if sums[reg] == nil {
				sums[reg] = make(map[string]float64)
			}
			sums[reg][name] += val
			present[name] = true
		}
	}

	cols := []string{KeyColumn}
	var pars []string
	for _, p := range TEO3Parameters {
		if present[p] {
			cols = append(cols, WastewaterPrefix+p)
			pars = append(pars, p)
		}
	}

	keys := make([]string, 0, len(sums))
	for reg := range sums {
		keys = append(keys, reg)
	}
	sort.Strings(keys)

	t := NewTable(cols...)
	for _, reg := range keys {
		rec := make([]string, 0, len(cols))
		rec = append(rec, reg)
		for _, p := range pars {
			v, ok := sums[reg][p]
			if !ok {
				rec = append(rec, "")
				continue
			}
			rec = append(rec, FormatValue(round1(v)))
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// round1 rounds half to even at one decimal place.
func round1(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}
