// Package basin assigns point sources to TEOTIL3 regine catchments by polygon
// containment.
package basin

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
)

// Regine is one TEOTIL3 catchment unit. Geometry is in WGS84 lon/lat.
type Regine struct {
	Code   string
	Vassom int
	geom.Polygonal
}

// VassomOf returns the numeric vassom prefix of a regine code, e.g. 1 for
// "001.10".
func VassomOf(code string) (int, error) {
	prefix, _, _ := strings.Cut(strings.TrimSpace(code), ".")
	v, err := strconv.Atoi(prefix)
	if err != nil {
		return 0, fmt.Errorf("regine %q: vassom prefix is not an integer", code)
	}
	return v, nil
}

// FilterVassoms keeps the regines whose vassom is in vassoms, in input order.
func FilterVassoms(regines []Regine, vassoms []int) []Regine {
	want := make(map[int]struct{}, len(vassoms))
	for _, v := range vassoms {
		want[v] = struct{}{}
	}
	var out []Regine
	for _, r := range regines {
		if _, ok := want[r.Vassom]; ok {
			out = append(out, r)
		}
	}
	return out
}
