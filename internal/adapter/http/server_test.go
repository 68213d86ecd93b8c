package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/oslomod/teotil3-scenarios/internal/adapter/http"
	"github.com/oslomod/teotil3-scenarios/internal/dashboard"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, discard())
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("not ready yet")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "not ready yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

const summaryCSV = `Område,Parameter,Scenario,Kilde,Verdi (tonn)
Indre Oslofjord,TotN,Baseline,Jordbruk,60
Indre Oslofjord,TotN,Baseline,Kommunalt avløp,40
Indre Oslofjord,TotN,Tiltak A,Kommunalt avløp,20
Ytre Oslofjord,TotP,Baseline,Jordbruk,2
`

func newDashboardServer(t *testing.T, rps float64) (*httpadapter.Server, *observability.Metrics) {
	t.Helper()
	dir := t.TempDir()
	summary := filepath.Join(dir, "results_summary.csv")
	info := filepath.Join(dir, "info.md")
	require.NoError(t, os.WriteFile(summary, []byte(summaryCSV), 0o600))
	require.NoError(t, os.WriteFile(info, []byte("# Scenarier\n"), 0o600))

	store := dashboard.NewStore(summary, info)
	require.NoError(t, store.Reload())
	metrics := observability.NewMetricsForTesting()
	srv := httpadapter.NewServer(":0", store, discard(), httpadapter.DashboardRoutes(store, metrics, rps))
	return srv, metrics
}

func TestDashboardOptions(t *testing.T) {
	srv, metrics := newDashboardServer(t, 100)
	rec := get(t, srv, "/api/options")
	require.Equal(t, http.StatusOK, rec.Code)

	var opts dashboard.Options
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &opts))
	assert.Equal(t, []string{"Indre Oslofjord", "Ytre Oslofjord"}, opts.Areas)
	assert.Equal(t, []string{"TotN", "TotP"}, opts.Parameters)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.DashboardRequests.WithLabelValues("/api/options", "200")))
}

func TestDashboardCharts(t *testing.T) {
	srv, _ := newDashboardServer(t, 100)

	rec := get(t, srv, "/api/charts?area=Indre+Oslofjord&parameter=TotN")
	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body, "stacked_bar")
	assert.Contains(t, body, "baseline_contribution")
	assert.Contains(t, body, "percentage_change")
	assert.Equal(t, "bar", body["stacked_bar"]["mark"])

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/charts?area=Indre+Oslofjord").Code)
	assert.Equal(t, http.StatusNotFound, get(t, srv, "/api/charts?area=Nowhere&parameter=TotN").Code)
}

func TestDashboardInfo(t *testing.T) {
	srv, _ := newDashboardServer(t, 100)
	rec := get(t, srv, "/api/info")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "# Scenarier\n", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
}

func TestDashboardRateLimit(t *testing.T) {
	srv, _ := newDashboardServer(t, 1)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/options").Code)
	assert.Equal(t, http.StatusOK, get(t, srv, "/api/options").Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, srv, "/api/options").Code)
}

func TestDashboardReadyWhenLoaded(t *testing.T) {
	srv, _ := newDashboardServer(t, 100)
	assert.Equal(t, http.StatusOK, get(t, srv, "/readyz").Code)
}

func TestReadinessReportsFirstFailure(t *testing.T) {
	ready := httpadapter.Readiness{&mockReadiness{}, &mockReadiness{err: fmt.Errorf("redis down")}, &mockReadiness{err: fmt.Errorf("db down")}}
	assert.EqualError(t, ready.CheckReadiness(context.Background()), "redis down")
	assert.NoError(t, httpadapter.Readiness{&mockReadiness{}}.CheckReadiness(context.Background()))
}
