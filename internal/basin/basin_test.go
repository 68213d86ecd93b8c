package basin

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/ctessum/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

func square(x0, y0, size float64) geom.Polygon {
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x0 + size, Y: y0},
		{X: x0 + size, Y: y0 + size},
		{X: x0, Y: y0 + size},
		{X: x0, Y: y0},
	}}
}

func testRegines() []Regine {
	return []Regine{
		{Code: "001.10", Vassom: 1, Polygonal: square(10, 59, 1)},
		{Code: "001.20", Vassom: 1, Polygonal: square(11, 59, 1)},
		{Code: "002.1A", Vassom: 2, Polygonal: square(10, 60, 1)},
	}
}

func TestVassomOf(t *testing.T) {
	tests := []struct {
		code    string
		want    int
		wantErr bool
	}{
		{"001.10", 1, false},
		{"315.A1", 315, false},
		{"012", 12, false},
		{"X01.10", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			got, err := VassomOf(tt.code)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterVassoms(t *testing.T) {
	got := FilterVassoms(testRegines(), []int{2, 7})
	require.Len(t, got, 1)
	assert.Equal(t, "002.1A", got[0].Code)

	assert.Empty(t, FilterVassoms(testRegines(), nil))
}

func TestIndex_Assign(t *testing.T) {
	ix := NewIndex(testRegines())
	assert.Equal(t, 3, ix.Len())

	sites := []domain.Site{
		{AnleggNr: "A", Sector: domain.SectorLargeWastewater, Lon: 10.5, Lat: 59.5},
		{AnleggNr: "B", Sector: domain.SectorLargeWastewater, Lon: 11.5, Lat: 59.2},
		{AnleggNr: "C", Sector: domain.SectorLargeWastewater, Lon: 10.1, Lat: 60.9},
		{AnleggNr: "A", Sector: domain.SectorIndustry, Lon: 10.1, Lat: 60.9},
		{AnleggNr: "outside", Sector: domain.SectorLargeWastewater, Lon: 5, Lat: 62},
		{AnleggNr: "no-coords", Sector: domain.SectorLargeWastewater, Lon: math.NaN(), Lat: math.NaN()},
	}
	got := ix.Assign(sites, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.Equal(t, map[domain.SourceKey]string{
		{Sector: domain.SectorLargeWastewater, AnleggNr: "A"}: "001.10",
		{Sector: domain.SectorLargeWastewater, AnleggNr: "B"}: "001.20",
		{Sector: domain.SectorLargeWastewater, AnleggNr: "C"}: "002.1A",
		{Sector: domain.SectorIndustry, AnleggNr: "A"}:        "002.1A",
	}, got)
}

func TestIndex_Locate(t *testing.T) {
	ix := NewIndex(testRegines())

	code, ok := ix.Locate(geom.Point{X: 11.25, Y: 59.75})
	require.True(t, ok)
	assert.Equal(t, "001.20", code)

	_, ok = ix.Locate(geom.Point{X: 0, Y: 0})
	assert.False(t, ok)
}

func TestIndex_SkipsMissingGeometry(t *testing.T) {
	ix := NewIndex([]Regine{{Code: "003.1", Vassom: 3}})
	assert.Equal(t, 0, ix.Len())
}

func TestDecodeGeoJSON(t *testing.T) {
	data := []byte(`{"type":"Polygon","coordinates":[[[10,59],[11,59],[11,60],[10,60],[10,59]]]}`)
	r, err := DecodeGeoJSON("001.10", data)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Vassom)

	ix := NewIndex([]Regine{r})
	code, ok := ix.Locate(geom.Point{X: 10.5, Y: 59.5})
	require.True(t, ok)
	assert.Equal(t, "001.10", code)

	_, err = DecodeGeoJSON("001.11", []byte(`{"type":"Point","coordinates":[10,59]}`))
	require.Error(t, err)
}
