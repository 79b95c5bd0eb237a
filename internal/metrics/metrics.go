// Package metrics exposes Prometheus collectors for the harvesting pipeline.
package metrics

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Document outcomes and rejection reasons used as label values.
const (
	OutcomeProcessed = "processed"
	OutcomeRejected  = "rejected"
	OutcomeFault     = "fault"
	OutcomeEmpty     = "empty"

	ReasonNilContent = "nil_content"
	ReasonTooLarge   = "too_large"
	ReasonTooSmall   = "too_small"
	ReasonTimeout    = "timeout"
)

var (
	fetchesTotal    *prometheus.CounterVec
	documentsTotal  *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	batchesTotal    prometheus.Counter
	pausesTotal     prometheus.Counter

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafilatura_fetches_total",
				Help: "Total number of URL fetch attempts, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		documentsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafilatura_documents_total",
				Help: "Total number of documents routed through the safety gate, labeled by outcome.",
			},
			[]string{"outcome"},
		)
		rejectionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trafilatura_rejections_total",
				Help: "Documents rejected before extraction, labeled by reason.",
			},
			[]string{"reason"},
		)
		batchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trafilatura_batches_total",
				Help: "Number of dispatched file batches.",
			},
		)
		pausesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "trafilatura_scheduler_pauses_total",
				Help: "Number of global politeness pauses triggered by the stall valve.",
			},
		)
	})
}

// ObserveFetch records one fetch attempt.
func ObserveFetch(ok bool) {
	if fetchesTotal == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	fetchesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDocument records one document outcome.
func ObserveDocument(outcome string) {
	if documentsTotal == nil {
		return
	}
	documentsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRejection records one safety-gate rejection.
func ObserveRejection(reason string) {
	if rejectionsTotal == nil {
		return
	}
	rejectionsTotal.WithLabelValues(reason).Inc()
	ObserveDocument(OutcomeRejected)
}

// ObserveBatch records one dispatched file batch.
func ObserveBatch() {
	if batchesTotal == nil {
		return
	}
	batchesTotal.Inc()
}

// ObservePause records one global scheduler pause.
func ObservePause() {
	if pausesTotal == nil {
		return
	}
	pausesTotal.Inc()
}

// Handler returns the HTTP handler served when a metrics address is set.
func Handler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}
