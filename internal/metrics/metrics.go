package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "catalog"

// Page outcomes recorded in PagesTotal.
const (
	OutcomeOK     = "ok"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// Metrics holds the collectors shared by the fetcher, reconciler and extractor.
type Metrics struct {
	FetchAttempts      prometheus.Counter
	PagesTotal         *prometheus.CounterVec
	ProductsParsed     prometheus.Counter
	ReconcileBatches   prometheus.Counter
	PricesReconciled   prometheus.Counter
	ExtractionDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers all collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		FetchAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_attempts_total",
			Help:      "Listing page requests issued, retries included",
		}),
		PagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Listing pages by final fetch outcome",
		}, []string{"outcome"}),
		ProductsParsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_parsed_total",
			Help:      "Product records built from listing entries",
		}),
		ReconcileBatches: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_batches_total",
			Help:      "Calls made to the real-price endpoint",
		}),
		PricesReconciled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prices_reconciled_total",
			Help:      "Products whose listing price was replaced by a reconciled price",
		}),
		ExtractionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "extraction_duration_seconds",
			Help:      "Wall time of a whole category extraction",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}, []string{"outcome"}),
		gatherer: reg,
	}
}

// NewNop returns collectors registered on a private registry, for callers that do not export them.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
