package basin

import (
	"log/slog"
	"math"
	"sort"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/index/rtree"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

// Index is an R-tree over regine polygons.
type Index struct {
	tree *rtree.Rtree
	size int
}

// NewIndex builds an index over regines. Regines without geometry are skipped.
func NewIndex(regines []Regine) *Index {
	ix := &Index{tree: rtree.NewTree(25, 50)}
	for i := range regines {
		if regines[i].Polygonal == nil {
			continue
		}
		ix.tree.Insert(&regines[i])
		ix.size++
	}
	return ix
}

// Len returns the number of indexed regines.
func (ix *Index) Len() int { return ix.size }

// Locate returns the code of the regine strictly containing p. Points on a
// shared boundary are not inside either polygon. If polygons overlap, the
// lowest code wins.
func (ix *Index) Locate(p geom.Point) (string, bool) {
	var hits []string
	for _, g := range ix.tree.SearchIntersect(p.Bounds()) {
		r, ok := g.(*Regine)
		if !ok {
			continue
		}
		if p.Within(r.Polygonal) == geom.Inside {
			hits = append(hits, r.Code)
		}
	}
	if len(hits) == 0 {
		return "", false
	}
	sort.Strings(hits)
	return hits[0], true
}

// Assign maps every site lying inside a regine to the regine's code, keyed by
// sector and anlegg_nr. Sites without coordinates or outside every polygon are
// left out.
func (ix *Index) Assign(sites []domain.Site, logger *slog.Logger) map[domain.SourceKey]string {
	out := make(map[domain.SourceKey]string, len(sites))
	for _, s := range sites {
		if math.IsNaN(s.Lon) || math.IsNaN(s.Lat) {
			logger.Debug("site has no coordinates", "anlegg_nr", s.AnleggNr)
			continue
		}
		code, ok := ix.Locate(geom.Point{X: s.Lon, Y: s.Lat})
		if !ok {
			logger.Debug("site outside all regines", "anlegg_nr", s.AnleggNr, "lon", s.Lon, "lat", s.Lat)
			continue
		}
		out[s.Source()] = code
	}
	return out
}
