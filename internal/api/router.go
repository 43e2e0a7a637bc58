package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ledgerops/heteroledger/internal/metrics"
)

// NewRouter wires every route spec §6 names onto h, following the teacher's
// mux.Router + per-route .Methods(...) style, plus instrumentation
// middleware that feeds the same Prometheus collectors the teacher exposes.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.Use(instrument)

	r.HandleFunc("/db/proc/exec", h.DBProcExec).Methods(http.MethodPost)
	r.HandleFunc("/mongo_proc/{op:.*}", h.MongoProcExec).Methods(http.MethodPost)
	r.HandleFunc("/rdg/start", h.RDGStart).Methods(http.MethodPost)
	r.HandleFunc("/rdg/stop", h.RDGStop).Methods(http.MethodPost)
	r.HandleFunc("/rdg/status", h.RDGStatus).Methods(http.MethodGet)
	r.HandleFunc("/system/reset", h.SystemReset).Methods(http.MethodPost)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// statusRecorder captures the response code a handler wrote, the way the
// teacher's instrumentation middleware does, since http.ResponseWriter
// doesn't expose it after the fact.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per method/route, mirroring
// the teacher's HTTPRequestsTotal/HTTPRequestDuration middleware.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if m := mux.CurrentRoute(r); m != nil {
			if tmpl, err := m.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		status := http.StatusText(rec.status)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
