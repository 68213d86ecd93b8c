package modelinput

import "fmt"

// Replace returns a copy of base in which every non-key column of repl has
// been swapped for repl's values. Replaced columns are dropped from base and
// appended at the end in repl's order; rows are left-joined on regine, and
// regines absent from repl, or empty cells, get 0. Applying the same
// replacement twice gives the same table.
func Replace(base, repl *Table) (*Table, error) {
	bk := base.ColumnIndex(KeyColumn)
	if bk < 0 {
		return nil, fmt.Errorf("replace: base table has no %q column", KeyColumn)
	}
	rk := repl.ColumnIndex(KeyColumn)
	if rk < 0 {
		return nil, fmt.Errorf("replace: replacement table has no %q column", KeyColumn)
	}

	var newCols []int
	drop := make(map[string]bool)
	for i, c := range repl.Columns {
		if i == rk {
			continue
		}
		newCols = append(newCols, i)
		drop[c] = true
	}

	lookup := make(map[string][]string, len(repl.Records))
	for _, rec := range repl.Records {
		key := rec[rk]
		if _, dup := lookup[key]; dup {
			return nil, fmt.Errorf("replace: regine %q appears more than once in the replacement", key)
		}
		lookup[key] = rec
	}

	var keep []int
	out := &Table{}
	for i, c := range base.Columns {
		if drop[c] {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, c)
	}
	for _, i := range newCols {
		out.Columns = append(out.Columns, repl.Columns[i])
	}

	out.Records = make([][]string, 0, len(base.Records))
	for _, rec := range base.Records {
		row := make([]string, 0, len(out.Columns))
		for _, i := range keep {
			row = append(row, rec[i])
		}
		match := lookup[rec[bk]]
		for _, i := range newCols {
			v := ""
			if match != nil {
				v = match[i]
			}
			if v == "" {
				v = "0"
			}
			row = append(row, v)
		}
		out.Records = append(out.Records, row)
	}
	return out, nil
}
