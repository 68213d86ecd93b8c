package http

import (
	"net/http"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/oslomod/teotil3-scenarios/internal/dashboard"
	"github.com/oslomod/teotil3-scenarios/internal/observability"
)

// DashboardRoutes mounts the dashboard API under /api. Requests beyond
// rps per second (with a burst of twice that) get 429.
func DashboardRoutes(store *dashboard.Store, metrics *observability.Metrics, rps float64) func(chi.Router) {
	limiter := rate.NewLimiter(rate.Limit(rps), max(1, int(2*rps)))
	h := &dashboardHandler{store: store}

	return func(r chi.Router) {
		r.Route("/api", func(r chi.Router) {
			r.Use(rateLimit(limiter))
			r.Use(countRequests(metrics))
			r.Get("/options", h.options)
			r.Get("/charts", h.charts)
			r.Get("/info", h.info)
		})
	}
}

type dashboardHandler struct {
	store *dashboard.Store
}

func (h *dashboardHandler) options(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, dashboard.OptionsOf(h.store.Records()))
}

func (h *dashboardHandler) charts(w http.ResponseWriter, r *http.Request) {
	area := r.URL.Query().Get("area")
	parameter := r.URL.Query().Get("parameter")
	if area == "" || parameter == "" {
		sharedobs.WriteJSON(w, http.StatusBadRequest, map[string]string{
			"error": "area and parameter are required",
		})
		return
	}
	records := h.store.Records()
	if len(dashboard.Filter(records, area, parameter)) == 0 {
		sharedobs.WriteJSON(w, http.StatusNotFound, map[string]string{
			"error": "no results for area " + strconv.Quote(area) + " and parameter " + strconv.Quote(parameter),
		})
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, dashboard.BuildCharts(records, area, parameter))
}

func (h *dashboardHandler) info(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(h.store.Info()))
}

func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				sharedobs.WriteJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func countRequests(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}
			m.DashboardRequests.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		})
	}
}
