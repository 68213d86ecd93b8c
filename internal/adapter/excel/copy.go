package excel

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

// CopyFile copies src to dst, keeping the modification time.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copy workbook: %w", err)
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copy workbook: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy workbook: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// RewriteMetals copies the metals workbook src to dst, replacing its type
// column with the site types in types, matched on (anlegg_nr, year). Sites
// without a match get an empty type. The type column is written last.
func RewriteMetals(src, dst string, types map[domain.SiteKey]string) error {
	sh, err := readSheet(src)
	if err != nil {
		return err
	}
	header := sh.header
	idCol, yearCol, typeCol := -1, -1, -1
	for i, h := range header {
		switch h {
		case colID:
			idCol = i
		case colYear:
			yearCol = i
		case colType:
			typeCol = i
		}
	}
	if idCol < 0 || yearCol < 0 {
		return fmt.Errorf("%s: metals workbook needs %q and %q columns", src, colID, colYear)
	}

	f := excelize.NewFile()
	defer f.Close()

	outHeader := make([]any, 0, len(header)+1)
	for i, h := range header {
		if i != typeCol {
			outHeader = append(outHeader, h)
		}
	}
	outHeader = append(outHeader, colType)
	if err := f.SetSheetRow(Sheet, "A1", &outHeader); err != nil {
		return err
	}

	for r, row := range sh.rows {
		out := make([]any, 0, len(outHeader))
		for i := range header {
			if i == typeCol {
				continue
			}
			if i == idCol {
				out = append(out, strings.TrimSpace(cellAt(row, i)))
				continue
			}
			out = append(out, sh.value(r, i))
		}

		key := domain.SiteKey{AnleggNr: strings.TrimSpace(cellAt(row, idCol))}
		if y, err := strconv.ParseFloat(strings.TrimSpace(cellAt(row, yearCol)), 64); err == nil {
			key.Year = int(y)
		}
		if t, ok := types[key]; ok && t != "" {
			out = append(out, t)
		} else {
			out = append(out, nil)
		}

		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(Sheet, cell, &out); err != nil {
			return err
		}
	}
	if err := f.SaveAs(dst); err != nil {
		return fmt.Errorf("save %s: %w", dst, err)
	}
	return nil
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
