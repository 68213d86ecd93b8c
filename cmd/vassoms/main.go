// Command vassoms extracts the raw large wastewater sites registered in the
// given vassoms and writes them, with their regine, to one workbook.
//
// Usage:
//
//	go run ./cmd/vassoms -vassoms 1,2,3 -years 2017,2018,2019 -out oslofjord_ww.xlsx
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oslomod/teotil3-scenarios/internal/adapter/excel"
	"github.com/oslomod/teotil3-scenarios/internal/adapter/postgres"
	"github.com/oslomod/teotil3-scenarios/internal/config"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
	"github.com/oslomod/teotil3-scenarios/internal/pipeline"
)

func main() {
	vassomFlag := flag.String("vassoms", "", "comma-separated vassom numbers")
	yearsFlag := flag.String("years", "2017,2018,2019", "comma-separated years")
	out := flag.String("out", "", "output workbook")
	flag.Parse()

	if *vassomFlag == "" || *out == "" {
		flag.Usage()
		os.Exit(2)
	}

	_ = godotenv.Load(".env.local")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateRun(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg)

	if err := run(cfg, logger, *vassomFlag, *yearsFlag, *out); err != nil {
		logger.Error("vassom export failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger, vassomFlag, yearsFlag, out string) error {
	vassoms, err := pipeline.ParseVassoms(vassomFlag)
	if err != nil {
		return err
	}
	years, err := pipeline.ParseYears(yearsFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	layout := pipeline.Layout{BaseDir: cfg.BaseDir}
	wb := excel.Workbooks{}
	sites, err := pipeline.WastewaterForVassoms(ctx, postgres.NewRepository(db), wb, layout, vassoms, years, logger)
	if err != nil {
		return err
	}

	// Raw workbooks share a header across years; take it from the first.
	raw, err := wb.ReadSites(layout.RawWastewater(years[0]), domain.SectorLargeWastewater)
	if err != nil {
		return err
	}
	if err := wb.WriteSites(out, pipeline.VassomTable(sites, raw.Columns)); err != nil {
		return err
	}
	logger.Info("vassom workbook written", "path", out, "sites", len(sites))
	return nil
}
