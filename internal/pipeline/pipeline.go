package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/oslomod/teotil3-scenarios/internal/agri"
	"github.com/oslomod/teotil3-scenarios/internal/basin"
	"github.com/oslomod/teotil3-scenarios/internal/domain"
	"github.com/oslomod/teotil3-scenarios/internal/modelinput"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
)

// Workbooks reads and writes the point-source workbooks.
type Workbooks interface {
	ReadSites(path, sector string) (*domain.SiteTable, error)
	WriteSites(path string, tbl *domain.SiteTable) error
	CopyFile(src, dst string) error
	RewriteMetals(src, dst string, types map[domain.SiteKey]string) error
}

// ReferenceData serves the TEOTIL3 parameter definitions and conversions.
type ReferenceData interface {
	InputParams(ctx context.Context) ([]modelinput.InputParam, error)
	OutputParams(ctx context.Context) ([]modelinput.OutputParam, error)
	Conversions(ctx context.Context) ([]modelinput.Conversion, error)
}

// RegineSource returns the regine polygons in use for a year.
type RegineSource interface {
	Regines(ctx context.Context, year int) ([]basin.Regine, error)
}

// SummaryPublisher announces a completed run.
type SummaryPublisher interface {
	Publish(ctx context.Context, summary *domain.RunSummary) error
}

// Deps are the stages a Runner is built from. Types and Publisher may be nil:
// without Types a scenario that sets a treatment type fails, and without a
// Publisher summaries are only logged.
type Deps struct {
	Workbooks Workbooks
	Reference ReferenceData
	Regines   RegineSource
	Types     domain.TypeValidator
	Publisher SummaryPublisher
}

// Runner applies scenarios to one year of point-source data and writes the
// resulting model input.
type Runner struct {
	layout  Layout
	deps    Deps
	logger  *slog.Logger
	metrics *observability.Metrics
	ready   atomic.Bool
}

// New creates a Runner with the given stages and observability.
func New(layout Layout, deps Deps, logger *slog.Logger, metrics *observability.Metrics) *Runner {
	return &Runner{
		layout:  layout,
		deps:    deps,
		logger:  logger,
		metrics: metrics,
	}
}

// CheckReadiness returns nil once a run has completed, or an error describing
// why the service is not yet ready.
func (r *Runner) CheckReadiness(_ context.Context) error {
	if !r.ready.Load() {
		return errors.New("no scenario run has completed yet")
	}
	return nil
}

// Run applies scen to the raw data for year and writes the scenario
// workbooks and model input CSV. Nothing is written to the scenario folder
// unless every step succeeds.
func (r *Runner) Run(ctx context.Context, scen *domain.Scenario, year int) (*domain.RunSummary, error) {
	logger := r.logger.With("scenario", scen.Name, "year", year)
	logger.Info("scenario run started")
	r.metrics.RunRunning.Set(1)
	defer r.metrics.RunRunning.Set(0)

	start := time.Now()
	summary, err := r.run(ctx, scen, year, logger)
	if err != nil {
		r.metrics.RunsTotal.WithLabelValues("error").Inc()
		logger.Error("scenario run failed", "error", err)
		return nil, err
	}
	r.metrics.RunsTotal.WithLabelValues("success").Inc()
	r.metrics.RunDuration.Observe(time.Since(start).Seconds())
	r.ready.Store(true)

	if r.deps.Publisher != nil {
		if err := r.deps.Publisher.Publish(ctx, summary); err != nil {
			logger.Error("publish run summary failed", "run_id", summary.RunID, "error", err)
		}
	}
	logger.Info("scenario run finished",
		"run_id", summary.RunID,
		"output", summary.OutputPath,
		"duration", time.Since(start),
	)
	return summary, nil
}

func (r *Runner) run(ctx context.Context, scen *domain.Scenario, year int, logger *slog.Logger) (*domain.RunSummary, error) {
	summary := domain.NewRunSummary(scen.Name, year)

	if err := os.MkdirAll(r.layout.ScenarioDir, 0o755); err != nil {
		return nil, fmt.Errorf("create scenario folder: %w", err)
	}
	staging, err := os.MkdirTemp(r.layout.ScenarioDir, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("create staging folder: %w", err)
	}
	defer os.RemoveAll(staging)
	stage := func(final string) string { return filepath.Join(staging, filepath.Base(final)) }

	ww, err := r.loadWastewater(year)
	if err != nil {
		return nil, err
	}
	summary.SitesLoaded = len(ww.Sites)
	r.metrics.SitesLoaded.Set(float64(len(ww.Sites)))

	reports, err := domain.ApplyScenario(ctx, ww, scen, r.deps.Types, logger)
	if err != nil {
		return nil, fmt.Errorf("apply scenario %q: %w", scen.Name, err)
	}
	summary.Rules = reports
	r.recordRules(reports)

	wwPath := r.layout.ScenarioWastewater(scen.Name, year)
	indPath := r.layout.ScenarioIndustry(scen.Name, year)
	metPath := r.layout.ScenarioMetals(scen.Name, year)
	if err := r.deps.Workbooks.WriteSites(stage(wwPath), ww); err != nil {
		return nil, err
	}
	if err := r.deps.Workbooks.CopyFile(r.layout.RawIndustry(year), stage(indPath)); err != nil {
		return nil, err
	}
	if err := r.deps.Workbooks.RewriteMetals(r.layout.RawMetals(year), stage(metPath), ww.Types()); err != nil {
		return nil, err
	}

	table, err := r.modelInput(ctx, scen, year, stage(wwPath), stage(indPath), summary, logger)
	if err != nil {
		return nil, err
	}

	outPath := r.layout.OutputCSV(scen.Name, year)
	if err := table.WriteFile(stage(outPath)); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(r.layout.ScenarioYearDir(scen.Name, year), 0o755); err != nil {
		return nil, fmt.Errorf("create scenario year folder: %w", err)
	}
	for _, final := range []string{wwPath, indPath, metPath, outPath} {
		if err := os.Rename(stage(final), final); err != nil {
			return nil, fmt.Errorf("move %s into place: %w", filepath.Base(final), err)
		}
	}
	summary.OutputPath = outPath
	summary.Finish()
	return summary, nil
}

// loadWastewater reads the raw large wastewater sites for year and patches
// their capacities.
func (r *Runner) loadWastewater(year int) (*domain.SiteTable, error) {
	ww, err := r.deps.Workbooks.ReadSites(r.layout.RawWastewater(year), domain.SectorLargeWastewater)
	if err != nil {
		return nil, err
	}
	if err := ww.Validate(); err != nil {
		return nil, err
	}
	if err := ww.FillCapacity(); err != nil {
		return nil, err
	}
	return ww, nil
}

// modelInput assigns the staged wastewater and industry sites to regines,
// aggregates wastewater outflows and merges them, and any agricultural
// scenario, into the baseline model input.
func (r *Runner) modelInput(ctx context.Context, scen *domain.Scenario, year int, wwPath, indPath string, summary *domain.RunSummary, logger *slog.Logger) (*modelinput.Table, error) {
	ww, err := r.deps.Workbooks.ReadSites(wwPath, domain.SectorLargeWastewater)
	if err != nil {
		return nil, err
	}
	ind, err := r.deps.Workbooks.ReadSites(indPath, domain.SectorIndustry)
	if err != nil {
		return nil, err
	}
	sites := append(append([]domain.Site{}, ww.Sites...), ind.Sites...)

	regines, err := r.deps.Regines.Regines(ctx, year)
	if err != nil {
		return nil, err
	}
	index := basin.NewIndex(regines)
	assigned := index.Assign(sites, logger)
	wwAssigned := 0
	for _, s := range ww.Sites {
		if _, ok := assigned[s.Source()]; ok {
			wwAssigned++
		}
	}
	summary.SitesAssigned = wwAssigned
	r.metrics.SitesOutside.Set(float64(len(ww.Sites) - wwAssigned))
	logger.Info("sites assigned to regines",
		"regines", index.Len(),
		"wastewater_sites", len(ww.Sites),
		"assigned", wwAssigned,
	)

	inputs, err := r.deps.Reference.InputParams(ctx)
	if err != nil {
		return nil, err
	}
	outputs, err := r.deps.Reference.OutputParams(ctx)
	if err != nil {
		return nil, err
	}
	conv, err := r.deps.Reference.Conversions(ctx)
	if err != nil {
		return nil, err
	}
	values, err := modelinput.LongForm(sites, inputs, logger)
	if err != nil {
		return nil, err
	}
	agg, err := modelinput.AggregateWastewater(values, conv, outputs, assigned)
	if err != nil {
		return nil, err
	}

	base, err := modelinput.ReadFile(r.layout.Baseline(year))
	if err != nil {
		return nil, err
	}
	out, err := modelinput.Replace(base, agg)
	if err != nil {
		return nil, err
	}
	replaced := agg.Columns[1:]

	if scen.Agriculture != nil {
		tmpl, err := agri.ReadTemplate(r.layout.AgriTemplateDir, year, scen.Agriculture.Sheet, scen.Agriculture.LossType)
		if err != nil {
			return nil, err
		}
		if out, err = agri.Apply(out, tmpl); err != nil {
			return nil, err
		}
		replaced = append(replaced, tmpl.Columns[1:]...)
		logger.Info("agricultural scenario applied", "sheet", scen.Agriculture.Sheet, "loss_type", scen.Agriculture.LossType)
	}

	totals, err := out.Sums(replaced)
	if err != nil {
		return nil, err
	}
	summary.Totals = totals
	return out, nil
}

func (r *Runner) recordRules(reports []domain.RuleReport) {
	for _, rep := range reports {
		r.metrics.RuleApplications.WithLabelValues(rep.Rule).Inc()
		r.metrics.SitesSelected.WithLabelValues(rep.Rule).Add(float64(rep.SitesSelected))
		for par, n := range rep.AlreadyAbove {
			r.metrics.SitesAboveTarget.WithLabelValues(par).Add(float64(n))
		}
	}
}

// RunAll runs every scenario for every year, stopping at the first failure.
func (r *Runner) RunAll(ctx context.Context, scenarios []*domain.Scenario, years []int) ([]*domain.RunSummary, error) {
	var out []*domain.RunSummary
	for _, scen := range scenarios {
		for _, year := range years {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			s, err := r.Run(ctx, scen, year)
			if err != nil {
				return out, err
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// ParseYears parses a comma-separated list of years such as "2017,2018".
func ParseYears(s string) ([]int, error) {
	var years []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil || y < 1900 || y > 2100 {
			return nil, fmt.Errorf("%w: invalid year %q", domain.ErrInvalidInput, part)
		}
		years = append(years, y)
	}
	if len(years) == 0 {
		return nil, fmt.Errorf("%w: no years given", domain.ErrInvalidInput)
	}
	return years, nil
}
