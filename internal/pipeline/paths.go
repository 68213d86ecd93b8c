package pipeline

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var lower = cases.Lower(language.Norwegian)

// Layout locates the raw TEOTIL3 point data and the scenario outputs.
type Layout struct {
	// BaseDir holds point_data/{year}/*_raw.xlsx.
	BaseDir string
	// ScenarioDir receives the model input CSVs, and one folder of modified
	// workbooks per scenario.
	ScenarioDir string
	// BaselineCSV may contain "{year}".
	BaselineCSV     string
	AgriTemplateDir string
}

func (l Layout) rawDir(year int) string {
	return filepath.Join(l.BaseDir, "point_data", strconv.Itoa(year))
}

func workbookName(kind string, year int) string {
	return fmt.Sprintf("%s_%d_raw.xlsx", kind, year)
}

// RawWastewater is the large wastewater workbook for year.
func (l Layout) RawWastewater(year int) string {
	return filepath.Join(l.rawDir(year), workbookName("large_wastewater", year))
}

// RawIndustry is the industry workbook for year.
func (l Layout) RawIndustry(year int) string {
	return filepath.Join(l.rawDir(year), workbookName("industry", year))
}

// RawMetals is the wastewater metals workbook for year.
func (l Layout) RawMetals(year int) string {
	return filepath.Join(l.rawDir(year), workbookName("metals", year))
}

// ScenarioYearDir is the folder holding a scenario's modified workbooks for
// year: {ScenarioDir}/{scenario lowercased}/{year}.
func (l Layout) ScenarioYearDir(scenario string, year int) string {
	return filepath.Join(l.ScenarioDir, lower.String(scenario), strconv.Itoa(year))
}

func (l Layout) ScenarioWastewater(scenario string, year int) string {
	return filepath.Join(l.ScenarioYearDir(scenario, year), workbookName("large_wastewater", year))
}

func (l Layout) ScenarioIndustry(scenario string, year int) string {
	return filepath.Join(l.ScenarioYearDir(scenario, year), workbookName("industry", year))
}

func (l Layout) ScenarioMetals(scenario string, year int) string {
	return filepath.Join(l.ScenarioYearDir(scenario, year), workbookName("metals", year))
}

// Baseline is the unmodified model input for year.
func (l Layout) Baseline(year int) string {
	return strings.ReplaceAll(l.BaselineCSV, "{year}", strconv.Itoa(year))
}

// OutputCSV is the model input written for a scenario.
func (l Layout) OutputCSV(scenario string, year int) string {
	name := fmt.Sprintf("oslomod_teotil3_input_data_%s_%d.csv", lower.String(scenario), year)
	return filepath.Join(l.ScenarioDir, name)
}
