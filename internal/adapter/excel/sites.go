// Package excel reads and writes the TEOTIL3 point-source workbooks.
package excel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

// Column names with a fixed meaning in the raw workbooks.
const (
	colID              = "anlegg_nr"
	colName            = "anlegg_navn"
	colYear            = "year"
	colType            = "type"
	colCurrentCapacity = "current_capacity"
	colDesignCapacity  = "design_capacity"
	colLon             = "lon"
	colLat             = "lat"
)

// Sheet is the worksheet written to new workbooks.
const Sheet = "Sheet1"

// ReadSites reads the first worksheet of a raw point-source workbook. Every
// site gets the given sector. anlegg_nr and year are required; any other
// known column that is absent reads as missing.
func ReadSites(path, sector string) (*domain.SiteTable, error) {
	sh, err := readSheet(path)
	if err != nil {
		return nil, err
	}
	header := sh.header
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, req := range []string{colID, colYear} {
		if _, ok := idx[req]; !ok {
			return nil, fmt.Errorf("%s: missing column %q", path, req)
		}
	}

	known := map[string]bool{
		colID: true, colName: true, colYear: true, colType: true,
		colCurrentCapacity: true, colDesignCapacity: true, colLon: true, colLat: true,
	}
	for _, p := range domain.WWParameters {
		known[p.InColumn()] = true
		known[p.OutColumn()] = true
	}

	get := func(row []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(row []string, col string, line int) (float64, error) {
		s := get(row, col)
		if s == "" {
			return math.NaN(), nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%s row %d: %s %q is not a number", path, line, col, s)
		}
		return v, nil
	}

	tbl := &domain.SiteTable{Columns: header}
	for r, row := range sh.rows {
		line := r + 2
		id := get(row, colID)
		if id == "" {
			if blank(row) {
				continue
			}
			return nil, fmt.Errorf("%s row %d: %w: missing %s", path, line, domain.ErrIntegrity, colID)
		}
		year, err := num(row, colYear, line)
		if err != nil {
			return nil, err
		}
		if math.IsNaN(year) {
			return nil, fmt.Errorf("%s row %d: missing year", path, line)
		}

		s := domain.Site{
			AnleggNr: id,
			Name:     get(row, colName),
			Year:     int(year),
			Sector:   sector,
			Type:     get(row, colType),
		}
		for col, dst := range map[string]*float64{
			colCurrentCapacity: &s.CurrentCapacity,
			colDesignCapacity:  &s.DesignCapacity,
			colLon:             &s.Lon,
			colLat:             &s.Lat,
		} {
			if *dst, err = num(row, col, line); err != nil {
				return nil, err
			}
		}
		for _, p := range domain.WWParameters {
			if s.Loads[p].In, err = num(row, p.InColumn(), line); err != nil {
				return nil, err
			}
			if s.Loads[p].Out, err = num(row, p.OutColumn(), line); err != nil {
				return nil, err
			}
		}
		for i, h := range header {
			if known[h] || i >= len(row) || row[i] == "" {
				continue
			}
			if s.Extra == nil {
				s.Extra = make(map[string]any)
			}
			s.Extra[h] = sh.value(r, i)
		}
		tbl.Sites = append(tbl.Sites, s)
	}
	return tbl, nil
}

// WriteSites writes tbl back with its original column order.
func WriteSites(path string, tbl *domain.SiteTable) error {
	f := excelize.NewFile()
	defer f.Close()

	header := make([]any, len(tbl.Columns))
	for i, c := range tbl.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(Sheet, "A1", &header); err != nil {
		return err
	}

	for r, s := range tbl.Sites {
		row := make([]any, len(tbl.Columns))
		for i, c := range tbl.Columns {
			row[i] = siteCell(&s, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(Sheet, cell, &row); err != nil {
			return fmt.Errorf("write site %s: %w", s.AnleggNr, err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

func siteCell(s *domain.Site, col string) any {
	switch col {
	case colID:
		return s.AnleggNr
	case colName:
		return s.Name
	case colYear:
		return s.Year
	case colType:
		return s.Type
	case colCurrentCapacity:
		return number(s.CurrentCapacity)
	case colDesignCapacity:
		return number(s.DesignCapacity)
	case colLon:
		return number(s.Lon)
	case colLat:
		return number(s.Lat)
	}
	for _, p := range domain.WWParameters {
		switch col {
		case p.InColumn():
			return number(s.Loads[p].In)
		case p.OutColumn():
			return number(s.Loads[p].Out)
		}
	}
	return s.Extra[col]
}

// number leaves missing values as empty cells.
func number(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// sheet is the first worksheet of a workbook as raw cell text, with the
// cells that were stored as numbers marked.
type sheet struct {
	header  []string
	rows    [][]string
	numeric [][]bool
}

// value returns data cell (r, i) as float64 when it was stored as a number,
// as string otherwise, and nil when it is empty.
func (sh *sheet) value(r, i int) any {
	row := sh.rows[r]
	if i >= len(row) || row[i] == "" {
		return nil
	}
	if sh.numeric[r][i] {
		if v, err := strconv.ParseFloat(row[i], 64); err == nil {
			return v
		}
	}
	return row[i]
}

func readSheet(path string) (*sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", path)
	}
	name := sheets[0]
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty sheet", path)
	}

	sh := &sheet{
		header:  make([]string, len(rows[0])),
		rows:    rows[1:],
		numeric: make([][]bool, len(rows)-1),
	}
	for i, h := range rows[0] {
		sh.header[i] = strings.TrimSpace(h)
	}
	for r, row := range sh.rows {
		sh.numeric[r] = make([]bool, len(row))
		for i, v := range row {
			if v == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(i+1, r+2)
			if err != nil {
				return nil, err
			}
			typ, err := f.GetCellType(name, cell)
			if err != nil {
				return nil, fmt.Errorf("%s %s: %w", path, cell, err)
			}
			sh.numeric[r][i] = typ == excelize.CellTypeUnset || typ == excelize.CellTypeNumber
		}
	}
	return sh, nil
}
