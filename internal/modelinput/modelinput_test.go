package modelinput

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oslomod/teotil3-scenarios/internal/domain"
)

const baselineCSV = `regine,regine_down,agriculture_totn_kg,large-wastewater_totn_kg,large-wastewater_totp_kg
001.10,001.1,12.5,100,10
001.20,001.1,3,50,5
002.1A,002.1,0,7,0.7
`

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestReadWriteCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(baselineCSV))
	require.NoError(t, err)
	assert.Equal(t, []string{"001.10", "001.20", "002.1A"}, tbl.Keys())

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteCSV(&buf))
	assert.Equal(t, baselineCSV, buf.String())

	_, err = ReadCSV(strings.NewReader("a,b\n1,2\n"))
	require.Error(t, err)
	_, err = ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}

func TestTable_FileRoundTrip(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(baselineCSV))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "input.csv")
	require.NoError(t, tbl.WriteFile(path))
	got, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, tbl, got)
}

func TestTable_Sums(t *testing.T) {
	tbl := &Table{
		Columns: []string{"regine", "x"},
		Records: [][]string{{"a", "1.5"}, {"b", ""}, {"c", "2"}},
	}
	sums, err := tbl.Sums([]string{"x"})
	require.NoError(t, err)
	assert.InDelta(t, 3.5, sums["x"], 1e-9)

	_, err = tbl.Sums([]string{"missing"})
	require.Error(t, err)
}

func TestReplace(t *testing.T) {
	base, err := ReadCSV(strings.NewReader(baselineCSV))
	require.NoError(t, err)

	repl := &Table{
		Columns: []string{"regine", "large-wastewater_totn_kg", "large-wastewater_din_kg"},
		Records: [][]string{
			{"001.10", "80", "40"},
			{"002.1A", "", "1.5"},
			{"999.99", "1", "1"},
		},
	}

	got, err := Replace(base, repl)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"regine", "regine_down", "agriculture_totn_kg", "large-wastewater_totp_kg",
		"large-wastewater_totn_kg", "large-wastewater_din_kg",
	}, got.Columns)
	assert.Equal(t, [][]string{
		{"001.10", "001.1", "12.5", "10", "80", "40"},
		{"001.20", "001.1", "3", "5", "0", "0"},
		{"002.1A", "002.1", "0", "0.7", "0", "1.5"},
	}, got.Records)

	t.Run("idempotent", func(t *testing.T) {
		again, err := Replace(got, repl)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	})

	t.Run("base untouched", func(t *testing.T) {
		assert.Equal(t, "100", base.Records[0][3])
	})
}

func TestReplace_Errors(t *testing.T) {
	base, err := ReadCSV(strings.NewReader(baselineCSV))
	require.NoError(t, err)

	_, err = Replace(base, &Table{Columns: []string{"id", "x"}})
	require.Error(t, err)

	dup := &Table{
		Columns: []string{"regine", "x"},
		Records: [][]string{{"001.10", "1"}, {"001.10", "2"}},
	}
	_, err = Replace(base, dup)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than once")
}

func nanLoads() [5]domain.Load {
	var l [5]domain.Load
	for i := range l {
		l[i] = domain.Load{In: math.NaN(), Out: math.NaN()}
	}
	return l
}

func TestLongForm(t *testing.T) {
	loads := nanLoads()
	loads[domain.TotN] = domain.Load{In: 10, Out: 2}
	loads[domain.TotP] = domain.Load{In: 1, Out: 0.1}
	sites := []domain.Site{{AnleggNr: "A", Sector: domain.SectorLargeWastewater, Loads: loads}}

	inputs := []InputParam{
		{ID: 1, Name: "TOTN", Unit: "tonnes"},
		{ID: 2, Name: "totp", Unit: "Tonnes"},
		{ID: 3, Name: "totn", Unit: "kg"},
	}
	got, err := LongForm(sites, inputs, discard())
	require.NoError(t, err)
	assert.Equal(t, []PointValue{
		{SiteID: "A", Sector: domain.SectorLargeWastewater, InParID: 1, Value: 2},
		{SiteID: "A", Sector: domain.SectorLargeWastewater, InParID: 2, Value: 0.1},
	}, got)

	_, err = LongForm(sites, []InputParam{{ID: 9, Name: "cu", Unit: "kg"}}, discard())
	require.Error(t, err)
}

func TestAggregateWastewater(t *testing.T) {
	values := []PointValue{
		{SiteID: "A", Sector: domain.SectorLargeWastewater, InParID: 1, Value: 2},
		{SiteID: "B", Sector: domain.SectorLargeWastewater, InParID: 1, Value: 1.26},
		{SiteID: "B", Sector: domain.SectorLargeWastewater, InParID: 2, Value: 0.1},
		{SiteID: "C", Sector: domain.SectorLargeWastewater, InParID: 1, Value: 3},
		{SiteID: "I", Sector: domain.SectorIndustry, InParID: 1, Value: 50},
		{SiteID: "orphan", Sector: domain.SectorLargeWastewater, InParID: 1, Value: 99},
		{SiteID: "A", Sector: domain.SectorLargeWastewater, InParID: 7, Value: 99},
	}
	conv := []Conversion{
		{InParID: 1, OutParID: 10, Factor: 1000},
		{InParID: 1, OutParID: 11, Factor: 700},
		{InParID: 2, OutParID: 20, Factor: 1000},
		{InParID: 2, OutParID: 30, Factor: 1},
	}
	params := []OutputParam{
		{ID: 10, Name: "TOTN", Unit: "kg"},
		{ID: 11, Name: "DIN", Unit: "kg"},
		{ID: 20, Name: "TOTP", Unit: "kg"},
		{ID: 30, Name: "Cu", Unit: "kg"},
	}
	ww := func(id string) domain.SourceKey {
		return domain.SourceKey{Sector: domain.SectorLargeWastewater, AnleggNr: id}
	}
	regines := map[domain.SourceKey]string{
		ww("A"): "001.20",
		ww("B"): "001.10",
		ww("C"): "001.20",
		{Sector: domain.SectorIndustry, AnleggNr: "I"}: "001.10",
		// an industry site sharing a wastewater id must not move it
		{Sector: domain.SectorIndustry, AnleggNr: "A"}: "009.10",
	}

	got, err := AggregateWastewater(values, conv, params, regines)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"regine",
		"large-wastewater_totn_kg",
		"large-wastewater_din_kg",
		"large-wastewater_totp_kg",
	}, got.Columns)
	assert.Equal(t, [][]string{
		{"001.10", "1260", "882", "100"},
		{"001.20", "5000", "3500", ""},
	}, got.Records)
}

func TestAggregateWastewater_UnknownOutput(t *testing.T) {
	values := []PointValue{{SiteID: "A", Sector: domain.SectorLargeWastewater, InParID: 1, Value: 1}}
	conv := []Conversion{{InParID: 1, OutParID: 5, Factor: 1}}
	regines := map[domain.SourceKey]string{{Sector: domain.SectorLargeWastewater, AnleggNr: "A"}: "001.10"}
	_, err := AggregateWastewater(values, conv, nil, regines)
	require.Error(t, err)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 0.1, round1(0.14))
	assert.Equal(t, 0.2, round1(0.25))
	assert.Equal(t, 2.0, round1(1.96))
}
