// Command genmock writes a small synthetic TEOTIL3 dataset for local runs:
// raw point-source workbooks for one year, a baseline model input CSV and a
// results summary for the dashboard. Output is reproducible for a given seed.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -year 2019 -sites 40
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"

	"github.com/oslomod/teotil3-scenarios/internal/adapter/excel"
	"github.com/oslomod/teotil3-scenarios/internal/dashboard"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
	"github.com/oslomod/teotil3-scenarios/internal/pipeline"
)

var treatmentTypes = []string{"Mekanisk", "Kjemisk", "Biologisk", "Kjemisk-biologisk"}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output directory")
	year := flag.Int("year", 2019, "data year")
	nSites := flag.Int("sites", 40, "number of wastewater sites")
	nRegines := flag.Int("regines", 12, "number of regines in the baseline")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}

	rng := rand.New(rand.NewPCG(*seed, *seed))
	layout := pipeline.Layout{
		BaseDir:     *out,
		ScenarioDir: filepath.Join(*out, "scenarios"),
		BaselineCSV: filepath.Join(*out, "scenarios", "oslomod_teotil3_input_data_baseline_{year}.csv"),
	}
	if err := os.MkdirAll(filepath.Dir(layout.RawWastewater(*year)), 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll(layout.ScenarioDir, 0o755); err != nil {
		return err
	}

	wb := excel.Workbooks{}
	ww := wastewaterSites(rng, *year, *nSites)
	if err := wb.WriteSites(layout.RawWastewater(*year), ww); err != nil {
		return err
	}
	log.Printf("wastewater: %d sites", len(ww.Sites))

	if err := wb.WriteSites(layout.RawMetals(*year), metals(rng, ww)); err != nil {
		return err
	}

	ind := industrySites(rng, *year, *nSites/4)
	if err := wb.WriteSites(layout.RawIndustry(*year), ind); err != nil {
		return err
	}
	log.Printf("industry: %d sites", len(ind.Sites))

	base := baseline(rng, *nRegines)
	if err := base.WriteFile(layout.Baseline(*year)); err != nil {
		return err
	}
	log.Printf("baseline: %d regines", len(base.Records))

	summaryPath := filepath.Join(*out, "results_summary.csv")
	if err := writeSummary(rng, summaryPath); err != nil {
		return err
	}
	log.Printf("wrote %s", *out)
	return nil
}

func wwColumns() []string {
	cols := []string{"anlegg_nr", "anlegg_navn", "year", "type", "current_capacity", "design_capacity", "lon", "lat"}
	for _, p := range domain.WWParameters {
		cols = append(cols, p.InColumn(), p.OutColumn())
	}
	return cols
}

func wastewaterSites(rng *rand.Rand, year, n int) *domain.SiteTable {
	tbl := &domain.SiteTable{Columns: wwColumns()}
	for i := range n {
		design := math.Round(math.Exp(rng.Float64()*9 + 4))
		current := math.NaN()
		// Some sites only report design capacity.
		if rng.IntN(5) != 0 {
			current = math.Round(design * (0.5 + rng.Float64()/2))
		}
		s := domain.Site{
			AnleggNr:        fmt.Sprintf("%04dAL%02d", 301+i/10, i%10),
			Name:            fmt.Sprintf("Renseanlegg %d", i+1),
			Year:            year,
			Sector:          domain.SectorLargeWastewater,
			Type:            treatmentTypes[rng.IntN(len(treatmentTypes))],
			CurrentCapacity: current,
			DesignCapacity:  design,
			Lon:             round(10+rng.Float64()*5, 5),
			Lat:             round(59+rng.Float64()*2, 5),
		}
		for _, p := range domain.WWParameters {
			in := round(design*(0.001+rng.Float64()*0.01), 3)
			eff := 0.3 + rng.Float64()*0.65
			s.Loads[p] = domain.Load{In: in, Out: round(in*(1-eff), 3)}
		}
		tbl.Sites = append(tbl.Sites, s)
	}
	return tbl
}

func metals(rng *rand.Rand, ww *domain.SiteTable) *domain.SiteTable {
	tbl := &domain.SiteTable{Columns: []string{"anlegg_nr", "year", "type", "cu_out_kg", "zn_out_kg"}}
	for _, s := range ww.Sites {
		tbl.Sites = append(tbl.Sites, domain.Site{
			AnleggNr: s.AnleggNr,
			Year:     s.Year,
			Type:     s.Type,
			Extra: map[string]any{
				"cu_out_kg": round(rng.Float64()*50, 2),
				"zn_out_kg": round(rng.Float64()*200, 2),
			},
		})
	}
	return tbl
}

func industrySites(rng *rand.Rand, year, n int) *domain.SiteTable {
	cols := []string{"anlegg_nr", "anlegg_navn", "year", "lon", "lat"}
	for _, p := range domain.WWParameters {
		cols = append(cols, p.OutColumn())
	}
	tbl := &domain.SiteTable{Columns: cols}
	for i := range n {
		s := domain.Site{
			AnleggNr:        fmt.Sprintf("IND%03d", i+1),
			Name:            fmt.Sprintf("Industri %d", i+1),
			Year:            year,
			Sector:          domain.SectorIndustry,
			CurrentCapacity: math.NaN(),
			DesignCapacity:  math.NaN(),
			Lon:             round(10+rng.Float64()*5, 5),
			Lat:             round(59+rng.Float64()*2, 5),
		}
		for _, p := range domain.WWParameters {
			s.Loads[p] = domain.Load{In: math.NaN(), Out: round(rng.Float64()*5, 3)}
		}
		tbl.Sites = append(tbl.Sites, s)
	}
	return tbl
}

func baseline(rng *rand.Rand, n int) *modelinput.Table {
	cols := []string{modelinput.KeyColumn, "regine_down"}
	for _, p := range modelinput.TEO3Parameters {
		cols = append(cols, "agriculture_"+p)
	}
	for _, p := range modelinput.TEO3Parameters {
		cols = append(cols, modelinput.WastewaterPrefix+p)
	}
	t := modelinput.NewTable(cols...)
	for i := range n {
		vassom := 1 + i/4
		rec := []string{
			fmt.Sprintf("%03d.%d0", vassom, 1+i%4),
			fmt.Sprintf("%03d.", vassom),
		}
		for range 2 * len(modelinput.TEO3Parameters) {
			rec = append(rec, modelinput.FormatValue(round(rng.Float64()*10000, 1)))
		}
		t.Records = append(t.Records, rec)
	}
	return t
}

func writeSummary(rng *rand.Rand, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"Område", "Parameter", "Scenario", "Kilde", "Verdi (tonn)"}); err != nil {
		f.Close()
		return err
	}
	sources := []string{"Jordbruk", "Kommunalt avløp", "Industri", "Bakgrunn"}
	for _, area := range []string{"Indre Oslofjord", "Ytre Oslofjord"} {
		for _, par := range []string{"TOTN", "TOTP"} {
			for i, scen := range []string{dashboard.Baseline, "Tiltak A", "Tiltak B"} {
				for _, src := range sources {
					v := round((100+rng.Float64()*900)*(1-0.1*float64(i)), 1)
					if err := w.Write([]string{area, par, scen, src, strconv.FormatFloat(v, 'f', -1, 64)}); err != nil {
						f.Close()
						return err
					}
				}
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
