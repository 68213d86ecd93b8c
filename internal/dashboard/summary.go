// Package dashboard loads the scenario results summary and builds the
// Vega-Lite charts shown on the OsloMod dashboard.
package dashboard

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Summary CSV headers.
const (
	colArea      = "Område"
	colParameter = "Parameter"
	colScenario  = "Scenario"
	colSource    = "Kilde"
	colValue     = "Verdi (tonn)"
)

// Baseline is the scenario every other scenario is compared with.
const Baseline = "Baseline"

// Record is one row of the results summary: the mean annual load in tonnes
// from one source, for one area, parameter and scenario.
type Record struct {
	Area      string  `json:"Område"`
	Parameter string  `json:"Parameter"`
	Scenario  string  `json:"Scenario"`
	Source    string  `json:"Kilde"`
	Tonnes    float64 `json:"Verdi (tonn)"`
}

// Load reads a results summary CSV.
func Load(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open results summary: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads results summary rows. Column order is free.
func Parse(r io.Reader) ([]Record, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read results summary: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read results summary: empty file")
	}

	idx := make(map[string]int)
	for i, h := range rows[0] {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, c := range []string{colArea, colParameter, colScenario, colSource, colValue} {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("read results summary: missing column %q", c)
		}
	}

	out := make([]Record, 0, len(rows)-1)
	for n, row := range rows[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[idx[colValue]]), 64)
		if err != nil {
			return nil, fmt.Errorf("read results summary: line %d: %q is not a number", n+2, row[idx[colValue]])
		}
		out = append(out, Record{
			Area:      row[idx[colArea]],
			Parameter: row[idx[colParameter]],
			Scenario:  row[idx[colScenario]],
			Source:    row[idx[colSource]],
			Tonnes:    v,
		})
	}
	return out, nil
}

// Filter keeps the records for one area and parameter.
func Filter(records []Record, area, parameter string) []Record {
	var out []Record
	for _, r := range records {
		if r.Area == area && r.Parameter == parameter {
			out = append(out, r)
		}
	}
	return out
}

// Options lists the selectable areas and parameters, sorted.
type Options struct {
	Areas      []string `json:"areas"`
	Parameters []string `json:"parameters"`
}

// OptionsOf collects the distinct areas and parameters in records.
func OptionsOf(records []Record) Options {
	areas := make(map[string]struct{})
	pars := make(map[string]struct{})
	for _, r := range records {
		areas[r.Area] = struct{}{}
		pars[r.Parameter] = struct{}{}
	}
	return Options{Areas: sortedKeys(areas), Parameters: sortedKeys(pars)}
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
