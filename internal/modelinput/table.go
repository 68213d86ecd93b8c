// Package modelinput reads, aggregates into and writes the TEOTIL3 model
// input table: one row per regine, one column per source and parameter.
package modelinput

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"gonum.org/v1/gonum/floats"
)

// KeyColumn is the join key of every model input table.
const KeyColumn = "regine"

// Table is a wide table keyed by regine. Cells are kept as text so columns
// this package does not touch are written back exactly as read. An empty
// cell is a missing value.
type Table struct {
	Columns []string
	Records [][]string
}

// NewTable returns an empty table with the given columns. The first column
// must be KeyColumn.
func NewTable(columns ...string) *Table {
	return &Table{Columns: columns}
}

// ReadCSV parses a model input CSV. The header must contain a regine column.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read model input: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read model input: empty file")
	}
	t := &Table{Columns: rows[0], Records: rows[1:]}
	if t.ColumnIndex(KeyColumn) < 0 {
		return nil, fmt.Errorf("read model input: no %q column", KeyColumn)
	}
	return t, nil
}

// ReadFile opens and parses a model input CSV.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model input: %w", err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes the table with a header row and no index column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Records); err != nil {
		return fmt.Errorf("write model input: %w", err)
	}
	return nil
}

// WriteFile writes the table to path, replacing any existing file.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create model input: %w", err)
	}
	if err := t.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ColumnIndex returns the position of name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Keys returns the regine of every record, in order.
func (t *Table) Keys() []string {
	k := t.ColumnIndex(KeyColumn)
	out := make([]string, len(t.Records))
	for i, rec := range t.Records {
		out[i] = rec[k]
	}
	return out
}

// Float returns the numeric value of a column for every record. Empty or
// unparsable cells are NaN.
func (t *Table) Float(column string) ([]float64, error) {
	c := t.ColumnIndex(column)
	if c < 0 {
		return nil, fmt.Errorf("no column %q", column)
	}
	out := make([]float64, len(t.Records))
	for i, rec := range t.Records {
		out[i] = parseCell(rec[c])
	}
	return out, nil
}

// Sums returns the column totals of the named columns, skipping missing
// cells.
func (t *Table) Sums(columns []string) (map[string]float64, error) {
	out := make(map[string]float64, len(columns))
	for _, col := range columns {
		vals, err := t.Float(col)
		if err != nil {
			return nil, err
		}
		present := vals[:0]
		for _, v := range vals {
			if !math.IsNaN(v) {
				present = append(present, v)
			}
		}
		out[col] = floats.Sum(present)
	}
	return out, nil
}

func parseCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// FormatValue renders a float cell; NaN becomes an empty cell.
func FormatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
