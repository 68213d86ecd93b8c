// Command scenario applies wastewater (and optionally agricultural) scenarios
// to the raw TEOTIL3 point data and writes one model input CSV per scenario
// and year.
//
// Usage:
//
//	go run ./cmd/scenario \
//	  -scenario scenarios/tiltak_a.yaml,scenarios/tiltak_b.yaml \
//	  -years 2017,2018,2019
//
// With -vassoms only sites inside the listed vassoms reach the model input.
// -list-types prints the treatment types a scenario may set and exits.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/oslomod/teotil3-scenarios/internal/adapter/excel"
	httpadapter "github.com/oslomod/teotil3-scenarios/internal/adapter/http"
	kafkaadapter "github.com/oslomod/teotil3-scenarios/internal/adapter/kafka"
	"github.com/oslomod/teotil3-scenarios/internal/adapter/postgres"
	"github.com/oslomod/teotil3-scenarios/internal/adapter/treatment"
	"github.com/oslomod/teotil3-scenarios/internal/basin"
	"github.com/oslomod/teotil3-scenarios/internal/config"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
	"github.com/oslomod/teotil3-scenarios/internal/pipeline"
)

func main() {
	scenarioFlag := flag.String("scenario", "", "comma-separated scenario YAML files")
	yearsFlag := flag.String("years", "2017,2018,2019", "comma-separated years")
	serve := flag.Bool("serve", false, "expose /healthz, /readyz and /metrics on HTTP_ADDR while running")
	vassomFlag := flag.String("vassoms", "", "only assign sites to regines in these comma-separated vassoms")
	listTypes := flag.Bool("list-types", false, "print the known large wastewater treatment types and exit")
	flag.Parse()

	if *scenarioFlag == "" && !*listTypes {
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
	if *listTypes {
		if err := printTypes(cfg, logger); err != nil {
			logger.Error("list treatment types failed", "error", err)
			os.Exit(1)
		}
		return
	}
	if err := run(cfg, logger, *scenarioFlag, *yearsFlag, *vassomFlag, *serve); err != nil {
		logger.Error("scenario run failed", "error", err)
		os.Exit(1)
	}
}

func printTypes(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	client := treatment.NewClient(cfg.TreatmentTypesURL, cfg.TreatmentTypesTimeout, nil, cfg.TreatmentTypesTTL, logger)
	types, err := client.Types(ctx, domain.SectorLargeWastewater)
	if err != nil {
		return err
	}
	for _, t := range types {
		fmt.Println(t)
	}
	return nil
}

func run(cfg *config.Config, logger *slog.Logger, scenarioFlag, yearsFlag, vassomFlag string, serve bool) error {
	years, err := pipeline.ParseYears(yearsFlag)
	if err != nil {
		return err
	}
	var vassoms []int
	if vassomFlag != "" {
		if vassoms, err = pipeline.ParseVassoms(vassomFlag); err != nil {
			return err
		}
	}
	var scenarios []*domain.Scenario
	for _, path := range strings.Split(scenarioFlag, ",") {
		scen, err := domain.LoadScenario(strings.TrimSpace(path))
		if err != nil {
			return err
		}
		scenarios = append(scenarios, scen)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := observability.NewMetrics()

	db, err := postgres.New(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer db.Close()
	repo := postgres.NewRepository(db)

	var regines pipeline.RegineSource = repo
	if cfg.RegineShapefile != "" {
		regines = basin.ShapefileSource{Path: cfg.RegineShapefile}
		logger.Info("regines read from shapefile", "path", cfg.RegineShapefile)
	}
	if len(vassoms) > 0 {
		regines = pipeline.VassomRegines{Source: regines, Vassoms: vassoms}
	}
	ready := httpadapter.Readiness{db}

	var cache treatment.Cache
	if cfg.RedisAddr != "" {
		rc, err := treatment.NewRedisCache(ctx, cfg.RedisAddr)
		if err != nil {
			logger.Warn("redis unavailable, treatment types not cached", "error", err)
		} else {
			defer rc.Close()
			cache = rc
			ready = append(ready, rc)
		}
	}
	types := treatment.NewClient(cfg.TreatmentTypesURL, cfg.TreatmentTypesTimeout, cache, cfg.TreatmentTypesTTL, logger)

	deps := pipeline.Deps{
		Workbooks: excel.Workbooks{},
		Reference: repo,
		Regines:   regines,
		Types:     types,
	}
	if cfg.PublishEnabled() {
		pub := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if err := pub.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		deps.Publisher = pub
		logger.Info("run summaries published", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	layout := pipeline.Layout{
		BaseDir:         cfg.BaseDir,
		ScenarioDir:     cfg.ScenarioDataDir,
		BaselineCSV:     cfg.ModelInputCSV,
		AgriTemplateDir: cfg.AgriTemplateDir,
	}
	runner := pipeline.New(layout, deps, logger, metrics)

	if serve {
		srv := httpadapter.NewServer(cfg.HTTPAddr, append(ready, runner), logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("http server shutdown error", "error", err)
			}
		}()
	}

	summaries, err := runner.RunAll(ctx, scenarios, years)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		logger.Info("model input written", "scenario", s.Scenario, "year", s.Year, "path", s.OutputPath)
	}
	return nil
}
