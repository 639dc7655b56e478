// Package metrics exposes pipeline run counters and durations to
// Prometheus, grounded on the corpus's prometheus/client_golang +
// promhttp usage (vjache-cie's cmd/cie/index.go) — the teacher itself
// carries no metrics package, so this component is learned from the rest
// of the pack rather than adapted from teacher code.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the counters and histograms the pipeline updates as it
// processes centers and files.
type Metrics struct {
	FilesValidated  *prometheus.CounterVec
	FilesInvalid    *prometheus.CounterVec
	CenterDuration  *prometheus.HistogramVec
	PlatformRetries prometheus.Counter
}

// New registers and returns a fresh set of collectors against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FilesValidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genie_ingest_files_validated_total",
			Help: "Files that passed validation, by center and filetype.",
		}, []string{"center", "filetype"}),
		FilesInvalid: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "genie_ingest_files_invalid_total",
			Help: "Files that failed validation, by center and filetype.",
		}, []string{"center", "filetype"}),
		CenterDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "genie_ingest_center_run_duration_seconds",
			Help:    "Wall-clock duration of one center's pipeline run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"center"}),
		PlatformRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "genie_ingest_platform_retries_total",
			Help: "Platform Gateway calls retried after a transient failure.",
		}),
	}
	reg.MustRegister(m.FilesValidated, m.FilesInvalid, m.CenterDuration, m.PlatformRetries)
	return m
}

// ObserveCenterDuration records how long center's run took.
func (m *Metrics) ObserveCenterDuration(center string, d time.Duration) {
	m.CenterDuration.WithLabelValues(center).Observe(d.Seconds())
}

// Serve starts the /metrics HTTP endpoint on addr and blocks until ctx is
// cancelled or the server fails. Serving is skipped entirely when addr is
// empty, letting the caller unconditionally call Serve.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	if addr == "" {
		<-ctx.Done()
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
