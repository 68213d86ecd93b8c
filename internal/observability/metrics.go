package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "teotil3_scenario"

// Metrics holds the Prometheus collectors for scenario runs and the dashboard.
type Metrics struct {
	RunsTotal    *prometheus.CounterVec // labels: outcome={success,error}
	RunDuration  prometheus.Histogram
	RunRunning   prometheus.Gauge
	SitesLoaded  prometheus.Gauge
	SitesOutside prometheus.Gauge

	// Rule metrics.
	RuleApplications *prometheus.CounterVec // labels: rule
	SitesSelected    *prometheus.CounterVec // labels: rule
	SitesAboveTarget *prometheus.CounterVec // labels: parameter

	// Dashboard metrics.
	DashboardRequests *prometheus.CounterVec // labels: route, code
	SummaryRows       prometheus.Gauge
}

func newMetrics() *Metrics {
	return &Metrics{
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Scenario runs by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of a complete scenario run.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}),
		RunRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_running",
			Help:      "1 while a scenario run is in progress.",
		}),
		SitesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sites_loaded",
			Help:      "Wastewater sites read in the last run.",
		}),
		SitesOutside: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sites_unassigned",
			Help:      "Sites in the last run that fell outside every regine.",
		}),
		RuleApplications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_applications_total",
			Help:      "Scenario rules applied, by rule kind.",
		}, []string{"rule"}),
		SitesSelected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sites_selected_total",
			Help:      "Sites selected by scenario rules, by rule kind.",
		}, []string{"rule"}),
		SitesAboveTarget: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sites_above_target_total",
			Help:      "Upgraded sites already above the target efficiency, by parameter.",
		}, []string{"parameter"}),
		DashboardRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dashboard_requests_total",
			Help:      "Dashboard API requests by route and status code.",
		}, []string{"route", "code"}),
		SummaryRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dashboard_summary_rows",
			Help:      "Rows in the loaded results summary.",
		}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.RunsTotal,
		m.RunDuration,
		m.RunRunning,
		m.SitesLoaded,
		m.SitesOutside,
		m.RuleApplications,
		m.SitesSelected,
		m.SitesAboveTarget,
		m.DashboardRequests,
		m.SummaryRows,
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates unregistered Metrics so tests can build as
// many as they need.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
