package basin

import (
	"context"
	"fmt"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
)

const wgs84 = "+proj=longlat +datum=WGS84 +no_defs"

// LoadShapefile reads regine polygons from a shapefile with "regine" and
// "vassom" attribute columns, reprojecting to WGS84 lon/lat.
func LoadShapefile(path string) ([]Regine, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open regine shapefile: %w", err)
	}
	defer dec.Close()

	src, err := dec.SR()
	if err != nil {
		return nil, fmt.Errorf("regine shapefile projection: %w", err)
	}
	dst, err := proj.Parse(wgs84)
	if err != nil {
		return nil, err
	}
	trans, err := src.NewTransform(dst)
	if err != nil {
		return nil, fmt.Errorf("regine shapefile projection: %w", err)
	}

	var regines []Regine
	for {
		g, fields, more := dec.DecodeRowFields("regine", "vassom")
		if !more {
			break
		}
		code := strings.TrimSpace(fields["regine"])
		if code == "" {
			return nil, fmt.Errorf("regine shapefile: row %d has no regine code", len(regines))
		}
		gg, err := g.Transform(trans)
		if err != nil {
			return nil, fmt.Errorf("regine %s: %w", code, err)
		}
		poly, ok := gg.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("regine %s: geometry is %T, not a polygon", code, gg)
		}
		vassom, err := VassomOf(code)
		if err != nil {
			return nil, err
		}
		regines = append(regines, Regine{Code: code, Vassom: vassom, Polygonal: poly})
	}
	if err := dec.Error(); err != nil {
		return nil, fmt.Errorf("read regine shapefile: %w", err)
	}
	return regines, nil
}

// ShapefileSource serves regines from a shapefile, whatever the year.
type ShapefileSource struct {
	Path string
}

// Regines loads the shapefile on every call.
func (s ShapefileSource) Regines(_ context.Context, _ int) ([]Regine, error) {
	return LoadShapefile(s.Path)
}
