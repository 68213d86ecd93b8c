package dashboard

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
)

const vegaLiteSchema = "https://vega.github.io/schema/vega-lite/v5.json"

// Spec is a Vega-Lite chart specification, rendered client-side.
type Spec map[string]any

// sourceColours fixes the colour of each source across all charts.
var sourceColours = []struct{ source, colour string }{
	{"Akvakultur", "royalblue"},
	{"Jordbruk", "sienna"},
	{"Kommunalt avløp", "red"},
	{"Spredt avløp", "orange"},
	{"Industri", "darkgrey"},
	{"Bebygd", "gold"},
	{"Bakgrunn", "limegreen"},
}

func colourScale() map[string]any {
	domain := make([]string, len(sourceColours))
	rng := make([]string, len(sourceColours))
	for i, c := range sourceColours {
		domain[i] = c.source
		rng[i] = c.colour
	}
	return map[string]any{"domain": domain, "range": rng}
}

func barChart(title string, height int, values []map[string]any, encoding map[string]any) Spec {
	return Spec{
		"$schema":  vegaLiteSchema,
		"title":    title,
		"height":   height,
		"width":    "container",
		"data":     map[string]any{"values": values},
		"mark":     "bar",
		"encoding": encoding,
	}
}

// StackedBar shows the load per scenario, stacked by source.
func StackedBar(records []Record) Spec {
	values := make([]map[string]any, 0, len(records))
	for _, r := range records {
		values = append(values, map[string]any{
			colScenario:    r.Scenario,
			colSource:      r.Source,
			colValue:       r.Tonnes,
			"Verdi_rundet": roundTo(r.Tonnes, 3),
		})
	}
	return barChart("Gjennomsnittlig årlig tilførsel per kilde (2017–2019)", 400, values, map[string]any{
		"x":     map[string]any{"field": colScenario, "type": "nominal"},
		"y":     map[string]any{"field": colValue, "type": "quantitative"},
		"color": map[string]any{"field": colSource, "type": "nominal", "scale": colourScale()},
		"tooltip": []any{
			map[string]any{"field": colScenario, "type": "nominal"},
			map[string]any{"field": colSource, "type": "nominal"},
			map[string]any{"field": "Verdi_rundet", "type": "quantitative", "title": colValue},
		},
	})
}

// Share is one source's share of the baseline load.
type Share struct {
	Source  string
	Percent float64
}

// BaselineShares returns each baseline source's percentage of the baseline
// total, in input order.
func BaselineShares(records []Record) []Share {
	var vals []float64
	var base []Record
	for _, r := range records {
		if r.Scenario == Baseline {
			base = append(base, r)
			vals = append(vals, r.Tonnes)
		}
	}
	total := floats.Sum(vals)
	out := make([]Share, len(base))
	for i, r := range base {
		out[i] = Share{Source: r.Source, Percent: percentOf(r.Tonnes, total)}
	}
	return out
}

// percentOf is v as a percentage of total, or 0 when total is 0.
func percentOf(v, total float64) float64 {
	if total == 0 {
		return 0
	}
	return v / total * 100
}

// BaselineContribution shows each source's share of the baseline load.
func BaselineContribution(records []Record) Spec {
	shares := BaselineShares(records)
	values := make([]map[string]any, 0, len(shares))
	for _, s := range shares {
		values = append(values, map[string]any{
			colSource:        s.Source,
			"Prosent":        s.Percent,
			"Prosent_rundet": roundTo(s.Percent, 1),
		})
	}
	return barChart("Baseline kildefordeling (2017 - 2019)", 400, values, map[string]any{
		"y": map[string]any{"field": colSource, "type": "nominal", "sort": "-x"},
		"x": map[string]any{"field": "Prosent", "type": "quantitative"},
		"tooltip": []any{
			map[string]any{"field": colSource, "type": "nominal"},
			map[string]any{"field": "Prosent_rundet", "type": "quantitative", "title": "Andel (%)"},
		},
	})
}

// Change is a source's contribution to a scenario's change from baseline, as
// a percentage of the total baseline load.
type Change struct {
	Scenario string
	Source   string
	Percent  float64
}

// PercentageChanges compares every non-baseline scenario with the baseline,
// source by source. Sources missing from the baseline are left out. Results
// are sorted by scenario, then source.
func PercentageChanges(records []Record) []Change {
	baseBySource := make(map[string]float64)
	var baseVals []float64
	type key struct{ scenario, source string }
	scen := make(map[key]float64)
	for _, r := range records {
		if r.Scenario == Baseline {
			baseBySource[r.Source] += r.Tonnes
			baseVals = append(baseVals, r.Tonnes)
			continue
		}
		scen[key{r.Scenario, r.Source}] += r.Tonnes
	}
	total := floats.Sum(baseVals)

	var out []Change
	for k, v := range scen {
		b, ok := baseBySource[k.source]
		if !ok {
			continue
		}
		out = append(out, Change{
			Scenario: k.scenario,
			Source:   k.source,
			Percent:  roundTo(percentOf(v-b, total), 1),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Scenario != out[j].Scenario {
			return out[i].Scenario < out[j].Scenario
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// PercentageChange shows each scenario's change from baseline, stacked by
// source.
func PercentageChange(records []Record) Spec {
	changes := PercentageChanges(records)
	values := make([]map[string]any, 0, len(changes))
	for _, c := range changes {
		values = append(values, map[string]any{
			colScenario:                  c.Scenario,
			colSource:                    c.Source,
			"KildeEndringProsent_rundet": c.Percent,
		})
	}
	return barChart("Prosentvis endring fra baseline (bidrag per kilde)", 250, values, map[string]any{
		"y":     map[string]any{"field": colScenario, "type": "nominal", "title": "Scenario"},
		"x":     map[string]any{"field": "KildeEndringProsent_rundet", "type": "quantitative", "title": "Total Prosentvis Endring"},
		"color": map[string]any{"field": colSource, "type": "nominal", "scale": colourScale()},
		"tooltip": []any{
			map[string]any{"field": colScenario, "type": "nominal"},
			map[string]any{"field": colSource, "type": "nominal"},
			map[string]any{"field": "KildeEndringProsent_rundet", "type": "quantitative", "title": "Endring (%)"},
		},
	})
}

// Charts bundles the three dashboard charts.
type Charts struct {
	StackedBar           Spec `json:"stacked_bar"`
	BaselineContribution Spec `json:"baseline_contribution"`
	PercentageChange     Spec `json:"percentage_change"`
}

// BuildCharts builds all charts for one area and parameter.
func BuildCharts(records []Record, area, parameter string) Charts {
	sel := Filter(records, area, parameter)
	return Charts{
		StackedBar:           StackedBar(sel),
		BaselineContribution: BaselineContribution(sel),
		PercentageChange:     PercentageChange(sel),
	}
}

// roundTo rounds half to even at the given number of decimals.
func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.RoundToEven(v*p) / p
}
