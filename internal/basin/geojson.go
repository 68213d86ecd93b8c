package basin

import (
	"fmt"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

// DecodeGeoJSON builds a Regine from a GeoJSON geometry, as returned by
// PostGIS ST_AsGeoJSON.
func DecodeGeoJSON(code string, data []byte) (Regine, error) {
	g, err := geojson.Decode(data)
	if err != nil {
		return Regine{}, fmt.Errorf("regine %s: decode geometry: %w", code, err)
	}
	poly, ok := g.(geom.Polygonal)
	if !ok {
		return Regine{}, fmt.Errorf("regine %s: geometry is %T, not a polygon", code, g)
	}
	vassom, err := VassomOf(code)
	if err != nil {
		return Regine{}, err
	}
	return Regine{Code: code, Vassom: vassom, Polygonal: poly}, nil
}
