// Package metrics exposes Prometheus instruments for journal builds.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Tzeak/obsidian-autojournal/journal"
)

const namespace = "autojournal"

// Outcome labels for summaries_total.
const (
	OutcomeOK          = "ok"
	OutcomeUnreachable = "unreachable"
	OutcomeRejected    = "rejected"
	OutcomeCanceled    = "canceled"
	OutcomeOther       = "error"
)

// Metrics groups the instruments recorded while building journals.
type Metrics struct {
	registry *prometheus.Registry

	Conversations  prometheus.Counter
	Summaries      *prometheus.CounterVec
	SummaryLatency prometheus.Histogram
	Journals       *prometheus.CounterVec
	LastBuild      prometheus.Gauge
}

// New registers every instrument on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Conversations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_total",
			Help:      "Conversations found by the segmenter.",
		}),
		Summaries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summary requests by backend and outcome.",
		}, []string{"backend", "outcome"}),
		SummaryLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_seconds",
			Help:      "Time to summarize one conversation.",
			Buckets:   []float64{0.05, 0.25, 1, 2.5, 5, 10, 30, 60},
		}),
		Journals: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journals_total",
			Help:      "Journal builds by result.",
		}, []string{"result"}),
		LastBuild: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_journal_timestamp_seconds",
			Help:      "Unix time of the last journal written.",
		}),
	}
}

// ObserveJournal records one journal build. result is "written", "empty" or "failed".
func (m *Metrics) ObserveJournal(result string, conversations int) {
	m.Journals.WithLabelValues(result).Inc()
	m.Conversations.Add(float64(conversations))
	if result == "written" {
		m.LastBuild.SetToCurrentTime()
	}
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return r
}

// Summarizer records the outcome and latency of every call to the wrapped summarizer.
type Summarizer struct {
	inner   journal.Summarizer
	metrics *Metrics
}

// Wrap instruments inner.
func Wrap(inner journal.Summarizer, m *Metrics) *Summarizer {
	return &Summarizer{inner: inner, metrics: m}
}

// Info implements journal.Summarizer.
func (s *Summarizer) Info() string { return s.inner.Info() }

// Summarize implements journal.Summarizer.
func (s *Summarizer) Summarize(ctx context.Context, content string) (string, error) {
	began := time.Now()
	summary, err := s.inner.Summarize(ctx, content)
	s.metrics.SummaryLatency.Observe(time.Since(began).Seconds())
	s.metrics.Summaries.WithLabelValues(s.inner.Info(), outcome(err)).Inc()
	return summary, err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, journal.ErrServiceUnreachable):
		return OutcomeUnreachable
	case errors.Is(err, journal.ErrRequestRejected):
		return OutcomeRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeOther
	}
}

// Serve runs the metrics endpoint on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
