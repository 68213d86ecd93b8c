// Package agri reads NIBIO agricultural loss templates and swaps their
// losses into the model input.
package agri

import (
	"fmt"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
)

// Loss types accepted by ReadTemplate.
const (
	LossAnnual = "annual"
	LossRisk   = "risk"
)

var lossWords = map[string]string{
	LossAnnual: "årlig",
	LossRisk:   "risiko",
}

// Template source groups (first header row) and their model source names.
var sourceGroups = []struct{ label, source string }{
	{"Jordbruk", "agriculture"},
	{"Bakgrunn", "agriculture_background"},
}

// Template parameters (second header row, before the loss word). SS and TOC
// are reported in tonnes, the rest in kg.
var templateParams = []struct {
	label  string
	name   string
	factor float64
}{
	{"TotN", "totn", 1},
	{"DIN", "din", 1},
	{"TotP", "totp", 1},
	{"TDP", "tdp", 1},
	{"SS", "ss", 1000},
	{"TOC", "toc", 1000},
}

var modelParams = []string{"totn", "din", "ton", "totp", "tdp", "tpp", "ss", "toc"}

// TemplatePath is the location of the template for year under dir.
func TemplatePath(dir string, year int) string {
	return filepath.Join(dir, fmt.Sprintf("Leveranse_%d.xlsx", year))
}

type column struct {
	name   string
	factor float64
}

// namesDict maps joined, space-free template headers to model columns.
// Headers of the other loss type map to an empty name and are dropped.
func namesDict(lossType string) map[string]column {
	d := map[string]column{"Regine_": {name: modelinput.KeyColumn}}
	for _, g := range sourceGroups {
		for _, p := range templateParams {
			for lt, word := range lossWords {
				key := strings.ReplaceAll(g.label+"_"+p.label+word, " ", "")
				if lt != lossType {
					d[key] = column{}
					continue
				}
				d[key] = column{name: fmt.Sprintf("%s_%s_kg", g.source, p.name), factor: p.factor}
			}
		}
	}
	return d
}

// ReadTemplate reads the sheet named scenario from Leveranse_{year}.xlsx in
// dir. The sheet has two header rows: the source group, which may span
// merged cells, and the parameter with its loss word, e.g. "TotN årlig".
// Losses are converted to kg, TON and TPP are derived, and the result has the
// columns regine plus agriculture and agriculture-background losses for
// every model parameter.
func ReadTemplate(dir string, year int, scenario, lossType string) (*modelinput.Table, error) {
	if _, ok := lossWords[lossType]; !ok {
		return nil, fmt.Errorf("%w: loss type %q must be %q or %q", domain.ErrInvalidInput, lossType, LossAnnual, LossRisk)
	}

	path := TemplatePath(dir, year)
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open agriculture template: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(scenario)
	if err != nil {
		return nil, fmt.Errorf("agriculture template %s, sheet %q: %w", path, scenario, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: agriculture template sheet %q has no header", domain.ErrInvalidInput, scenario)
	}

	headers := joinHeaders(rows[0], rows[1])
	names := namesDict(lossType)

	type source struct {
		col    int
		factor float64
	}
	cols := make(map[string]source)
	for i, h := range headers {
		c, known := names[h]
		if !known {
			return nil, fmt.Errorf("%w: template for %d contains invalid column %q", domain.ErrInvalidInput, year, h)
		}
		if c.name == "" {
			continue
		}
		if _, dup := cols[c.name]; dup {
			return nil, fmt.Errorf("%w: template for %d has column %q twice", domain.ErrInvalidInput, year, h)
		}
		cols[c.name] = source{col: i, factor: c.factor}
	}
	if len(cols) != 1+len(sourceGroups)*len(templateParams) {
		return nil, fmt.Errorf("%w: template for %d is missing columns for loss type %q", domain.ErrInvalidInput, year, lossType)
	}

	out := modelinput.NewTable(modelinput.KeyColumn)
	for _, g := range sourceGroups {
		for _, p := range modelParams {
			out.Columns = append(out.Columns, strings.ReplaceAll(g.source, "_", "-")+"_"+p+"_kg")
		}
	}

	var negative []string
	for r, row := range rows[2:] {
		key := strings.TrimSpace(cell(row, cols[modelinput.KeyColumn].col))
		if key == "" {
			continue
		}
		rec := []string{key}
		for _, g := range sourceGroups {
			v := make(map[string]float64, len(modelParams))
			for _, p := range templateParams {
				name := fmt.Sprintf("%s_%s_kg", g.source, p.name)
				src := cols[name]
				x, err := parseNumber(cell(row, src.col))
				if err != nil {
					return nil, fmt.Errorf("%w: template row %d, %s: %v", domain.ErrInvalidInput, r+3, name, err)
				}
				v[p.name] = x * src.factor
			}
			v["ton"] = v["totn"] - v["din"]
			v["tpp"] = v["totp"] - v["tdp"]
			for _, p := range modelParams {
				if v[p] < 0 {
					negative = append(negative, fmt.Sprintf("%s_%s_kg", g.source, p))
				}
				rec = append(rec, modelinput.FormatValue(v[p]))
			}
		}
		out.Records = append(out.Records, rec)
	}
	if len(negative) > 0 {
		return nil, fmt.Errorf("%w: the template for %d contains negative losses for %s",
			domain.ErrInvalidInput, year, strings.Join(uniqueSorted(negative), ", "))
	}
	return out, nil
}

// Apply replaces the agricultural losses in base with those of scen.
func Apply(base, scen *modelinput.Table) (*modelinput.Table, error) {
	return modelinput.Replace(base, scen)
}

// joinHeaders joins the two header rows with "_" and strips spaces. Blank
// group cells inherit the group to their left, as merged cells read back
// empty.
func joinHeaders(groups, labels []string) []string {
	n := max(len(groups), len(labels))
	out := make([]string, n)
	group := ""
	for i := 0; i < n; i++ {
		if g := strings.TrimSpace(cell(groups, i)); g != "" {
			group = g
		}
		out[i] = strings.ReplaceAll(group+"_"+cell(labels, i), " ", "")
	}
	return out
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func parseNumber(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func uniqueSorted(in []string) []string {
	sort.Strings(in)
	out := in[:0]
	for i, s := range in {
		if i == 0 || s != in[i-1] {
			out = append(out, s)
		}
	}
	return out
}
