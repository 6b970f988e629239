// Package metrics registers the Prometheus collectors of the index.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FeaturesBuiltTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoindex_features_built_total",
		Help: "Total number of features converted, by geometry kind",
	}, []string{"kind"})
	FeaturesRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geoindex_features_rejected_total",
		Help: "Total number of records rejected during conversion, by reason",
	}, []string{"reason"})
	IndexSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geoindex_index_size",
		Help: "Number of features in the index",
	})
	QueryDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geoindex_query_duration_ms",
		Help:    "Index query duration in milliseconds",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"query"})
)

func init() {
	prometheus.MustRegister(FeaturesBuiltTotal)
	prometheus.MustRegister(FeaturesRejectedTotal)
	prometheus.MustRegister(IndexSize)
	prometheus.MustRegister(QueryDurationMs)
}

// ObserveQuery records the time elapsed since start for a query type.
func ObserveQuery(query string, start time.Time) {
	QueryDurationMs.WithLabelValues(query).Observe(float64(time.Since(start).Microseconds()) / 1000)
}

// Handler exposes the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
